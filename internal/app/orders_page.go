package app

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/warlaundry/washerman/internal/domain"
)

type OrdersView struct {
	Page        OrderPage
	Filter      domain.FilterStatus
	Search      string
	Counts      FilterCounts
	Error       string
	Loaded      bool
	LastUpdated time.Time
}

// OrdersPage is the state behind the orders listing: one snapshot, one error banner, one ListState.
// Results that arrive after Close, or after a newer load was applied, are dropped.
type OrdersPage struct {
	orders      OrderService
	transitions *Transitioner
	nowFn       func() time.Time

	mu          sync.Mutex
	snapshot    []domain.Order
	loaded      bool
	errMsg      string
	lastUpdated time.Time
	state       *ListState
	issued      uint64
	applied     uint64
	closed      bool
}

func NewOrdersPage(orders OrderService, transitions *Transitioner, pageSize int, filter domain.FilterStatus) *OrdersPage {
	return &OrdersPage{
		orders:      orders,
		transitions: transitions,
		nowFn:       time.Now,
		state:       NewListState(pageSize, filter),
	}
}

func (p *OrdersPage) Load(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.issued++
	seq := p.issued
	p.mu.Unlock()

	orders, err := p.orders.ListOrders(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || seq < p.applied {
		return err
	}
	p.applied = seq
	if err != nil {
		p.errMsg = MessageOf(err, MsgLoadOrders)
		return fmt.Errorf("orders.ListOrders: %w", err)
	}
	p.snapshot = orders
	p.loaded = true
	p.errMsg = ""
	p.lastUpdated = p.nowFn()
	return nil
}

// Retry re-issues the same fetch the banner refers to.
func (p *OrdersPage) Retry(ctx context.Context) error {
	return p.Load(ctx)
}

func (p *OrdersPage) refetch(ctx context.Context) {
	_ = p.Load(ctx)
}

func (p *OrdersPage) Advance(ctx context.Context, orderID int64) error {
	order, ok := p.find(orderID)
	if !ok {
		err := domain.EntityNotFoundError("order", strconv.FormatInt(orderID, 10))
		p.setError(MessageOf(err, MsgUpdateStatus))
		return err
	}
	if err := p.transitions.Advance(ctx, order, p.refetch); err != nil {
		p.setError(MessageOf(err, MsgUpdateStatus))
		return err
	}
	return nil
}

// SetStatus sends an explicit target; only the next status in the lifecycle is accepted.
func (p *OrdersPage) SetStatus(ctx context.Context, orderID int64, target domain.OrderStatus) error {
	order, ok := p.find(orderID)
	if !ok {
		err := domain.EntityNotFoundError("order", strconv.FormatInt(orderID, 10))
		p.setError(MessageOf(err, MsgUpdateStatus))
		return err
	}
	if next, ok := order.Status.Next(); !ok || next != target {
		err := TransitionError(orderID, domain.TransitionNotAllowedError(order.Status))
		p.setError(MessageOf(err, MsgUpdateStatus))
		return err
	}
	if err := p.transitions.Transition(ctx, orderID, target, p.refetch); err != nil {
		p.setError(MessageOf(err, MsgUpdateStatus))
		return err
	}
	return nil
}

func (p *OrdersPage) AdvanceMany(ctx context.Context, orderIDs []int64) error {
	selected := make([]domain.Order, 0, len(orderIDs))
	var missing []int64
	for _, id := range orderIDs {
		order, ok := p.find(id)
		if !ok {
			missing = append(missing, id)
			continue
		}
		selected = append(selected, order)
	}
	err := p.transitions.AdvanceMany(ctx, selected, p.refetch)
	for _, id := range missing {
		err = appendMissing(err, id)
	}
	if err != nil {
		p.setError(BulkMessageOf(err, MsgUpdateStatus))
	}
	return err
}

func (p *OrdersPage) SetFilter(f domain.FilterStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.SetFilter(f)
}

func (p *OrdersPage) SetQuery(q string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.SetQuery(q)
}

func (p *OrdersPage) NextPage() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := BuildOrderPage(p.snapshot, p.state.Query()).TotalPages
	return p.state.NextPage(total)
}

func (p *OrdersPage) PrevPage() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.PrevPage()
}

func (p *OrdersPage) GoTo(page int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := BuildOrderPage(p.snapshot, p.state.Query()).TotalPages
	return p.state.GoTo(page, total)
}

func (p *OrdersPage) View() OrdersView {
	p.mu.Lock()
	defer p.mu.Unlock()
	return OrdersView{
		Page:        BuildOrderPage(p.snapshot, p.state.Query()),
		Filter:      p.state.Filter(),
		Search:      p.state.Search(),
		Counts:      Counts(p.snapshot),
		Error:       p.errMsg,
		Loaded:      p.loaded,
		LastUpdated: p.lastUpdated,
	}
}

func (p *OrdersPage) ClearError() {
	p.setError("")
}

// Close tears the page down; later results are discarded.
func (p *OrdersPage) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

func (p *OrdersPage) find(orderID int64) (domain.Order, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, o := range p.snapshot {
		if o.ID == orderID {
			return o, true
		}
	}
	return domain.Order{}, false
}

func (p *OrdersPage) setError(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.errMsg = msg
}

func appendMissing(err error, orderID int64) error {
	return multierr.Append(err,
		TransitionError(orderID, domain.EntityNotFoundError("order", strconv.FormatInt(orderID, 10))))
}
