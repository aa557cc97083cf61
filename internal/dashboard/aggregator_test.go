package dashboard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/warlaundry/washerman/internal/app"
	"github.com/warlaundry/washerman/internal/domain"
)

type fakeOrders struct {
	mu        sync.Mutex
	orders    []domain.Order
	stats     domain.DashboardStats
	listErr   error
	statsErr  error
	updateErr error
	gate      chan struct{}
	updates   []int64
	listCalls atomic.Int32
}

func (f *fakeOrders) ListOrders(ctx context.Context) ([]domain.Order, error) {
	f.listCalls.Add(1)
	f.mu.Lock()
	gate := f.gate
	orders, err := f.orders, f.listErr
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return orders, err
}

func (f *fakeOrders) GetDashboardStats(ctx context.Context) (domain.DashboardStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats, f.statsErr
}

func (f *fakeOrders) UpdateOrderStatus(ctx context.Context, orderID int64, status domain.OrderStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, orderID)
	for i := range f.orders {
		if f.orders[i].ID == orderID {
			f.orders[i].Status = status
		}
	}
	return nil
}

func (f *fakeOrders) set(fn func(f *fakeOrders)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func orders(n int) []domain.Order {
	out := make([]domain.Order, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, domain.Order{ID: int64(i), BagNo: "B", Status: domain.StatusPending})
	}
	return out
}

var someStats = domain.DashboardStats{TotalOrders: 15, PendingOrders: 6, InProgressOrders: 5, CompleteOrders: 4}

func newAggregator(f *fakeOrders, log *zap.Logger) *Aggregator {
	a := New(f, app.NewTransitioner(f, nil, nil, nil), Options{Interval: 20 * time.Millisecond, Logger: log})
	a.nowFn = func() time.Time { return time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC) }
	return a
}

func TestAggregator_Refresh(t *testing.T) {
	t.Parallel()

	f := &fakeOrders{orders: orders(15), stats: someStats}
	a := newAggregator(f, nil)

	require.NoError(t, a.Refresh(context.Background()))

	snap := a.Snapshot()
	assert.True(t, snap.Loaded)
	assert.Equal(t, someStats, snap.Stats)
	require.Len(t, snap.Recent, RecentLimit)
	assert.Equal(t, int64(1), snap.Recent[0].ID)
	assert.Equal(t, int64(10), snap.Recent[9].ID)
	assert.True(t, snap.ShowViewAll())
	assert.Equal(t, time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC), snap.LastUpdated)
	assert.Empty(t, snap.Error)
}

func TestAggregator_Refresh_FewOrders(t *testing.T) {
	t.Parallel()

	f := &fakeOrders{orders: orders(3), stats: someStats}
	a := newAggregator(f, nil)

	require.NoError(t, a.Refresh(context.Background()))
	assert.Len(t, a.Snapshot().Recent, 3)
	assert.False(t, a.Snapshot().ShowViewAll())
}

func TestAggregator_Refresh_AllOrNothing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		breakIt func(f *fakeOrders)
		wantMsg string
	}{
		{
			name:    "StatsFail",
			breakIt: func(f *fakeOrders) { f.statsErr = errors.New("connection reset") },
			wantMsg: app.MsgLoadDashboard,
		},
		{
			name:    "OrdersFail_ServiceMessage",
			breakIt: func(f *fakeOrders) { f.listErr = domain.RemoteError(503, "Maintenance window") },
			wantMsg: "Maintenance window",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zapcore.WarnLevel)
			f := &fakeOrders{orders: orders(4), stats: someStats}
			a := newAggregator(f, zap.New(core))
			require.NoError(t, a.Refresh(context.Background()))
			before := a.Snapshot()

			f.set(func(f *fakeOrders) {
				f.orders = orders(12)
				f.stats = domain.DashboardStats{TotalOrders: 99}
				tc.breakIt(f)
			})
			require.Error(t, a.Refresh(context.Background()))

			after := a.Snapshot()
			assert.Equal(t, before.Stats, after.Stats)
			assert.Equal(t, before.Recent, after.Recent)
			assert.Equal(t, before.LastUpdated, after.LastUpdated)
			assert.Equal(t, tc.wantMsg, after.Error)
			assert.Equal(t, 1, logs.FilterMessage("dashboard refresh failed").Len())
		})
	}
}

func TestAggregator_ErrorClearedOnSuccess(t *testing.T) {
	t.Parallel()

	f := &fakeOrders{orders: orders(2), statsErr: errors.New("down")}
	a := newAggregator(f, nil)

	require.Error(t, a.Refresh(context.Background()))
	assert.Equal(t, app.MsgLoadDashboard, a.Snapshot().Error)
	assert.False(t, a.Snapshot().Loaded)

	f.set(func(f *fakeOrders) { f.statsErr = nil })
	require.NoError(t, a.Refresh(context.Background()))
	assert.Empty(t, a.Snapshot().Error)
	assert.True(t, a.Snapshot().Loaded)
}

func TestAggregator_StartPollsUntilStop(t *testing.T) {
	t.Parallel()

	f := &fakeOrders{orders: orders(2), stats: someStats}
	a := newAggregator(f, nil)

	a.Start(context.Background())
	require.Eventually(t, func() bool { return f.listCalls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

	a.Stop()
	stoppedAt := f.listCalls.Load()
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, stoppedAt, f.listCalls.Load())

	// second Stop is harmless
	a.Stop()
}

func TestAggregator_ResultAfterStopDiscarded(t *testing.T) {
	t.Parallel()

	gate := make(chan struct{})
	f := &fakeOrders{orders: orders(5), stats: someStats, gate: gate}
	a := newAggregator(f, nil)

	done := make(chan error, 1)
	go func() { done <- a.Refresh(context.Background()) }()
	require.Eventually(t, func() bool { return f.listCalls.Load() == 1 }, time.Second, time.Millisecond)

	a.Stop()
	close(gate)
	require.NoError(t, <-done)

	assert.False(t, a.Snapshot().Loaded)
	assert.Empty(t, a.Snapshot().Recent)
	require.NoError(t, a.Refresh(context.Background()))
	assert.Equal(t, int32(1), f.listCalls.Load(), "refresh after stop does nothing")
}

func TestAggregator_Advance(t *testing.T) {
	t.Parallel()

	f := &fakeOrders{orders: orders(3), stats: someStats}
	a := newAggregator(f, nil)
	require.NoError(t, a.Refresh(context.Background()))

	require.NoError(t, a.Advance(context.Background(), 2))

	snap := a.Snapshot()
	assert.Equal(t, domain.StatusInProgress, snap.Recent[1].Status)
	assert.Equal(t, int32(2), f.listCalls.Load())
}

func TestAggregator_Advance_Failure(t *testing.T) {
	t.Parallel()

	f := &fakeOrders{orders: orders(3), stats: someStats, updateErr: domain.RemoteError(500, "")}
	a := newAggregator(f, nil)
	require.NoError(t, a.Refresh(context.Background()))

	require.Error(t, a.Advance(context.Background(), 1))

	snap := a.Snapshot()
	assert.Equal(t, app.MsgUpdateStatus, snap.Error)
	assert.Equal(t, domain.StatusPending, snap.Recent[0].Status)
	assert.Equal(t, int32(1), f.listCalls.Load())

	a.ClearError()
	assert.Empty(t, a.Snapshot().Error)
	assert.Error(t, a.Advance(context.Background(), 404))
}

func TestAggregator_OnUpdate(t *testing.T) {
	t.Parallel()

	f := &fakeOrders{orders: orders(2), stats: someStats}
	var seen []Snapshot
	a := New(f, app.NewTransitioner(f, nil, nil, nil), Options{
		OnUpdate: func(s Snapshot) { seen = append(seen, s) },
	})

	require.NoError(t, a.Refresh(context.Background()))
	f.set(func(f *fakeOrders) { f.statsErr = errors.New("boom") })
	require.Error(t, a.Refresh(context.Background()))

	require.Len(t, seen, 2)
	assert.True(t, seen[0].Loaded)
	assert.Empty(t, seen[0].Error)
	assert.Equal(t, app.MsgLoadDashboard, seen[1].Error)
	assert.Len(t, seen[1].Recent, 2)
}
