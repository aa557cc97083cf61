package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/warlaundry/washerman/internal/domain"
)

func newTestPage(svc *orderServiceMock) *OrdersPage {
	page := NewOrdersPage(svc, NewTransitioner(svc, nil, nil, nil), DefaultPageSize, domain.FilterAll)
	page.nowFn = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	return page
}

func TestOrdersPage_Load(t *testing.T) {
	t.Parallel()

	svc := new(orderServiceMock)
	svc.On("ListOrders", mock.Anything).Return(FifteenBags(), nil).Once()
	page := newTestPage(svc)

	require.NoError(t, page.Load(contextBack))

	view := page.View()
	assert.True(t, view.Loaded)
	assert.Empty(t, view.Error)
	assert.Equal(t, 15, view.Page.FilteredCount)
	assert.Equal(t, 2, view.Page.TotalPages)
	assert.Equal(t, 6, view.Counts[domain.FilterPending])
	assert.Equal(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), view.LastUpdated)
}

func TestOrdersPage_LoadFailure_KeepsSnapshot(t *testing.T) {
	t.Parallel()

	svc := new(orderServiceMock)
	svc.On("ListOrders", mock.Anything).Return(FifteenBags(), nil).Once()
	svc.On("ListOrders", mock.Anything).Return(nil, errors.New("dial tcp: refused")).Once()
	page := newTestPage(svc)

	require.NoError(t, page.Load(contextBack))
	require.Error(t, page.Load(contextBack))

	view := page.View()
	assert.Equal(t, MsgLoadOrders, view.Error)
	assert.Equal(t, 15, view.Page.FilteredCount)
}

func TestOrdersPage_FailedUpdate_ListUnchanged(t *testing.T) {
	t.Parallel()

	svc := new(orderServiceMock)
	svc.On("ListOrders", mock.Anything).Return(FifteenBags(), nil).Once()
	svc.On("UpdateOrderStatus", mock.Anything, int64(42), domain.StatusInProgress).
		Return(domain.RemoteError(500, "")).Once()
	page := newTestPage(svc)
	require.NoError(t, page.Load(contextBack))
	before := page.View().Page

	err := page.Advance(contextBack, 42)

	require.Error(t, err)
	view := page.View()
	assert.Equal(t, before, view.Page)
	assert.Equal(t, domain.StatusPending, view.Page.Items[0].Status)
	assert.Equal(t, MsgUpdateStatus, view.Error)
	svc.AssertNumberOfCalls(t, "ListOrders", 1)

	// retry re-issues the listing fetch
	svc.On("ListOrders", mock.Anything).Return(FifteenBags(), nil).Once()
	require.NoError(t, page.Retry(contextBack))
	svc.AssertNumberOfCalls(t, "ListOrders", 2)
	assert.Empty(t, page.View().Error)
}

func TestOrdersPage_FailedUpdate_ServiceMessageShown(t *testing.T) {
	t.Parallel()

	svc := new(orderServiceMock)
	svc.On("ListOrders", mock.Anything).Return(FifteenBags(), nil).Once()
	svc.On("UpdateOrderStatus", mock.Anything, int64(101), domain.StatusComplete).
		Return(domain.RemoteError(409, "Order is locked")).Once()
	page := newTestPage(svc)
	require.NoError(t, page.Load(contextBack))

	require.Error(t, page.Advance(contextBack, 101))
	assert.Equal(t, "Order is locked", page.View().Error)
}

func TestOrdersPage_SuccessfulUpdate_ShowsConfirmedStatus(t *testing.T) {
	t.Parallel()

	confirmed := FifteenBags()
	confirmed[0].Status = domain.StatusInProgress

	svc := new(orderServiceMock)
	svc.On("ListOrders", mock.Anything).Return(FifteenBags(), nil).Once()
	svc.On("UpdateOrderStatus", mock.Anything, int64(42), domain.StatusInProgress).Return(nil).Once()
	svc.On("ListOrders", mock.Anything).Return(confirmed, nil).Once()
	page := newTestPage(svc)
	require.NoError(t, page.Load(contextBack))

	require.NoError(t, page.Advance(contextBack, 42))

	view := page.View()
	assert.Equal(t, domain.StatusInProgress, view.Page.Items[0].Status)
	assert.Equal(t, 5, view.Counts[domain.FilterPending])
	svc.AssertExpectations(t)
}

func TestOrdersPage_AdvanceUnknownOrder(t *testing.T) {
	t.Parallel()

	svc := new(orderServiceMock)
	svc.On("ListOrders", mock.Anything).Return(FifteenBags(), nil).Once()
	page := newTestPage(svc)
	require.NoError(t, page.Load(contextBack))

	err := page.Advance(contextBack, 9999)

	var de domain.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.ErrorCodeNotFound, de.Code)
	svc.AssertNotCalled(t, "UpdateOrderStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrdersPage_AdvanceMany_ReportsMissing(t *testing.T) {
	t.Parallel()

	svc := new(orderServiceMock)
	svc.On("ListOrders", mock.Anything).Return(FifteenBags(), nil)
	svc.On("UpdateOrderStatus", mock.Anything, int64(103), domain.StatusInProgress).Return(nil).Once()
	page := newTestPage(svc)
	require.NoError(t, page.Load(contextBack))

	err := page.AdvanceMany(contextBack, []int64{103, 5000})

	require.Error(t, err)
	var oe *OrderError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, int64(5000), oe.OrderID)
	svc.AssertNumberOfCalls(t, "ListOrders", 2)
}

func TestOrdersPage_AdvanceMany_BannerNamesEveryFailure(t *testing.T) {
	t.Parallel()

	svc := new(orderServiceMock)
	svc.On("ListOrders", mock.Anything).Return(FifteenBags(), nil)
	svc.On("UpdateOrderStatus", mock.Anything, int64(103), domain.StatusInProgress).Return(nil).Once()
	svc.On("UpdateOrderStatus", mock.Anything, int64(104), domain.StatusComplete).
		Return(domain.RemoteError(500, "")).Once()
	page := newTestPage(svc)
	require.NoError(t, page.Load(contextBack))

	err := page.AdvanceMany(contextBack, []int64{102, 103, 104, 105})
	require.Error(t, err)

	banner := page.View().Error
	assert.Contains(t, banner, `Order 102: Cannot move forward from "Done"`)
	assert.Contains(t, banner, "Order 104: "+MsgUpdateStatus)
	assert.Contains(t, banner, `Order 105: Cannot move forward from "Done"`)
	assert.NotContains(t, banner, "Order 103")
}

func TestBulkMessageOf(t *testing.T) {
	t.Parallel()

	assert.Empty(t, BulkMessageOf(nil, MsgUpdateStatus))
	assert.Equal(t, MsgUpdateStatus, BulkMessageOf(errors.New("boom"), MsgUpdateStatus))
	assert.Equal(t, "Order 7: Bag is locked",
		BulkMessageOf(TransitionError(7, domain.RemoteError(409, "Bag is locked")), MsgUpdateStatus))
}

func TestOrdersPage_ListControls(t *testing.T) {
	t.Parallel()

	svc := new(orderServiceMock)
	svc.On("ListOrders", mock.Anything).Return(FifteenBags(), nil).Once()
	page := newTestPage(svc)
	require.NoError(t, page.Load(contextBack))

	assert.True(t, page.NextPage())
	assert.False(t, page.NextPage())
	assert.Equal(t, 2, page.View().Page.Page)

	page.SetFilter(domain.FilterPending)
	view := page.View()
	assert.Equal(t, 1, view.Page.Page)
	assert.Equal(t, 6, view.Page.FilteredCount)

	page.SetQuery("105")
	assert.Zero(t, page.View().Page.FilteredCount)

	page.SetFilter(domain.FilterAll)
	assert.Equal(t, []int64{105}, IdsOf(page.View().Page.Items))
	assert.False(t, page.GoTo(2))
	assert.False(t, page.PrevPage())
}

// gatedLister holds its first ListOrders call until release is closed.
type gatedLister struct {
	OrderService
	started chan struct{}
	release chan struct{}
	first   []domain.Order
	rest    []domain.Order
	calls   atomic.Int32
}

func newGatedLister(first, rest []domain.Order) *gatedLister {
	return &gatedLister{
		started: make(chan struct{}),
		release: make(chan struct{}),
		first:   first,
		rest:    rest,
	}
}

func (g *gatedLister) ListOrders(context.Context) ([]domain.Order, error) {
	if g.calls.Add(1) == 1 {
		close(g.started)
		<-g.release
		return g.first, nil
	}
	return g.rest, nil
}

func TestOrdersPage_DiscardsResultAfterClose(t *testing.T) {
	t.Parallel()

	svc := newGatedLister(FifteenBags(), nil)
	page := NewOrdersPage(svc, NewTransitioner(svc, nil, nil, nil), DefaultPageSize, domain.FilterAll)

	done := make(chan error, 1)
	go func() { done <- page.Load(contextBack) }()

	<-svc.started
	page.Close()
	close(svc.release)

	require.NoError(t, <-done)
	view := page.View()
	assert.False(t, view.Loaded)
	assert.Zero(t, view.Page.FilteredCount)
}

func TestOrdersPage_StaleResultDropped(t *testing.T) {
	t.Parallel()

	svc := newGatedLister([]domain.Order{Bag(1, domain.StatusPending)}, FifteenBags())
	page := NewOrdersPage(svc, NewTransitioner(svc, nil, nil, nil), DefaultPageSize, domain.FilterAll)

	first := make(chan error, 1)
	go func() { first <- page.Load(contextBack) }()
	<-svc.started

	require.NoError(t, page.Load(contextBack))
	close(svc.release)
	require.NoError(t, <-first)

	assert.Equal(t, 15, page.View().Page.FilteredCount)
}

func TestOrdersPage_ClearError(t *testing.T) {
	t.Parallel()

	svc := new(orderServiceMock)
	svc.On("ListOrders", mock.Anything).Return(nil, domain.RemoteError(503, "Service down")).Once()
	page := newTestPage(svc)

	require.Error(t, page.Load(contextBack))
	assert.Equal(t, "Service down", page.View().Error)

	page.ClearError()
	assert.Empty(t, page.View().Error)
}

func TestOrdersPage_SetStatus(t *testing.T) {
	t.Parallel()

	svc := new(orderServiceMock)
	svc.On("ListOrders", mock.Anything).Return(FifteenBags(), nil)
	svc.On("UpdateOrderStatus", mock.Anything, int64(42), domain.StatusInProgress).Return(nil).Once()
	page := newTestPage(svc)
	require.NoError(t, page.Load(contextBack))

	err := page.SetStatus(contextBack, 42, domain.StatusComplete)
	var domainErr domain.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrorCodeTransitionNotAllowed, domainErr.Code)
	assert.Equal(t, domainErr.Message, page.View().Error)

	require.NoError(t, page.SetStatus(contextBack, 42, domain.StatusInProgress))
	svc.AssertNumberOfCalls(t, "UpdateOrderStatus", 1)
	svc.AssertNumberOfCalls(t, "ListOrders", 2)
}
