package dashboard

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/warlaundry/washerman/internal/app"
	"github.com/warlaundry/washerman/internal/domain"
	"github.com/warlaundry/washerman/internal/metrics"
)

const (
	RecentLimit     = 10
	DefaultInterval = 60 * time.Second
)

type Snapshot struct {
	Stats       domain.DashboardStats
	Recent      []domain.Order
	Loaded      bool
	Error       string
	LastUpdated time.Time
}

// ShowViewAll is true when the recent list is full and there may be more bags to see.
func (s Snapshot) ShowViewAll() bool {
	return len(s.Recent) >= RecentLimit
}

type Options struct {
	Interval time.Duration
	Metrics  metrics.MetricsProvider
	Logger   *zap.Logger
	// OnUpdate, if set, sees every snapshot a refresh applied, failed ones included.
	OnUpdate func(Snapshot)
}

// Aggregator keeps the stats and the most recent orders together.
// A refresh replaces both or neither.
type Aggregator struct {
	orders      app.OrderService
	transitions *app.Transitioner
	interval    time.Duration
	metrics     metrics.MetricsProvider
	log         *zap.Logger
	onUpdate    func(Snapshot)
	nowFn       func() time.Time

	mu      sync.Mutex
	snap    Snapshot
	issued  uint64
	applied uint64
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func New(orders app.OrderService, transitions *app.Transitioner, opts Options) *Aggregator {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNoOpProvider()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Aggregator{
		orders:      orders,
		transitions: transitions,
		interval:    opts.Interval,
		metrics:     opts.Metrics,
		log:         opts.Logger,
		onUpdate:    opts.OnUpdate,
		nowFn:       time.Now,
	}
}

func (a *Aggregator) Refresh(ctx context.Context) error {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return nil
	}
	a.issued++
	seq := a.issued
	a.mu.Unlock()

	var (
		stats  domain.DashboardStats
		recent []domain.Order
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		s, err := a.orders.GetDashboardStats(groupCtx)
		if err != nil {
			return fmt.Errorf("orders.GetDashboardStats: %w", err)
		}
		stats = s
		return nil
	})
	group.Go(func() error {
		list, err := a.orders.ListOrders(groupCtx)
		if err != nil {
			return fmt.Errorf("orders.ListOrders: %w", err)
		}
		if len(list) > RecentLimit {
			list = list[:RecentLimit]
		}
		recent = append([]domain.Order(nil), list...)
		return nil
	})
	err := group.Wait()

	snap, applied := a.apply(seq, stats, recent, err)
	if applied && a.onUpdate != nil {
		a.onUpdate(snap)
	}
	return err
}

func (a *Aggregator) apply(seq uint64, stats domain.DashboardStats, recent []domain.Order, err error) (Snapshot, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped || seq < a.applied {
		a.log.Debug("dashboard refresh discarded", zap.Uint64("seq", seq))
		return Snapshot{}, false
	}
	a.applied = seq

	if err != nil {
		a.metrics.DashboardRefreshed(nil, err)
		a.snap.Error = app.MessageOf(err, app.MsgLoadDashboard)
		a.log.Warn("dashboard refresh failed", zap.Error(err))
		return a.copySnapshot(), true
	}

	a.metrics.DashboardRefreshed(&stats, nil)
	if !stats.Consistent() {
		a.log.Debug("dashboard stats do not add up",
			zap.Int("total", stats.TotalOrders),
			zap.Int("pending", stats.PendingOrders),
			zap.Int("in_progress", stats.InProgressOrders),
			zap.Int("complete", stats.CompleteOrders))
	}
	a.snap = Snapshot{
		Stats:       stats,
		Recent:      recent,
		Loaded:      true,
		LastUpdated: a.nowFn(),
	}
	return a.copySnapshot(), true
}

// Start refreshes once and then on every tick until Stop or ctx is done.
func (a *Aggregator) Start(ctx context.Context) {
	a.mu.Lock()
	if a.stopped || a.cancel != nil {
		a.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.done = make(chan struct{})
	done := a.done
	a.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()

		_ = a.Refresh(ctx)
		for {
			select {
			case <-ticker.C:
				_ = a.Refresh(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop releases the ticker. Results of refreshes still in flight are dropped.
func (a *Aggregator) Stop() {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	a.stopped = true
	cancel, done := a.cancel, a.done
	a.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.copySnapshot()
}

func (a *Aggregator) copySnapshot() Snapshot {
	s := a.snap
	s.Recent = append([]domain.Order(nil), a.snap.Recent...)
	return s
}

// Advance moves a recent order one step and refreshes the whole dashboard.
func (a *Aggregator) Advance(ctx context.Context, orderID int64) error {
	order, ok := a.findRecent(orderID)
	if !ok {
		err := domain.EntityNotFoundError("order", strconv.FormatInt(orderID, 10))
		a.setError(app.MessageOf(err, app.MsgUpdateStatus))
		return err
	}
	err := a.transitions.Advance(ctx, order, func(ctx context.Context) { _ = a.Refresh(ctx) })
	if err != nil {
		a.setError(app.MessageOf(err, app.MsgUpdateStatus))
	}
	return err
}

func (a *Aggregator) ClearError() {
	a.setError("")
}

func (a *Aggregator) findRecent(orderID int64) (domain.Order, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, o := range a.snap.Recent {
		if o.ID == orderID {
			return o, true
		}
	}
	return domain.Order{}, false
}

func (a *Aggregator) setError(msg string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return
	}
	a.snap.Error = msg
}
