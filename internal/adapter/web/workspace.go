package web

import (
	"context"
	"sync"
	"time"

	"github.com/warlaundry/washerman/internal/app"
	"github.com/warlaundry/washerman/internal/dashboard"
	"github.com/warlaundry/washerman/internal/domain"
	"github.com/warlaundry/washerman/internal/infra"
	"github.com/warlaundry/washerman/internal/session"
	"github.com/warlaundry/washerman/pkg/cache"
)

// workspace is the component state one signed-in session keeps between requests.
type workspace struct {
	orders    *app.OrdersPage
	dashboard *dashboard.Aggregator
	students  *app.StudentDirectory
}

func (w *workspace) close() {
	w.orders.Close()
	w.dashboard.Stop()
}

type workspaceFactory func(token string) *workspace

type workspaces struct {
	mu    sync.Mutex
	cache *cache.LRUCache[string, *workspace]
	build workspaceFactory
	store session.Store
}

func newWorkspaces(store session.Store, maxSessions int, ttl time.Duration, build workspaceFactory) *workspaces {
	cfg := cache.Config{MaxSize: maxSessions, TTL: ttl, Sliding: true}
	return &workspaces{
		cache: cache.NewWithEviction[string, *workspace](cfg, func(_ string, ws *workspace) { ws.close() }),
		build: build,
		store: store,
	}
}

func (w *workspaces) For(s session.Session) *workspace {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cache.GetOrCreate(s.ID, func() *workspace { return w.build(s.Token) })
}

func (w *workspaces) Drop(sessionID string) {
	w.cache.Delete(sessionID)
}

func (w *workspaces) Close() {
	w.cache.Clear()
}

func (w *workspaces) SessionStats(ctx context.Context) (infra.SessionStats, error) {
	n, err := w.store.Count(ctx)
	if err != nil {
		return infra.SessionStats{}, err
	}
	return infra.SessionStats{Active: n, PageStates: w.cache.Size()}, nil
}

func (w *workspaces) CleanupSessions(ctx context.Context) (int, error) {
	w.cache.CleanupExpired()
	return w.store.Cleanup(ctx)
}

func buildWorkspace(backend Backend, transitions func(app.OrderService) *app.Transitioner, pageSize int, opts dashboard.Options) workspaceFactory {
	return func(token string) *workspace {
		orders := backend.Orders(token)
		tr := transitions(orders)
		return &workspace{
			orders:    app.NewOrdersPage(orders, tr, pageSize, domain.FilterAll),
			dashboard: dashboard.New(orders, tr, opts),
			students:  app.NewStudentDirectory(backend.Students(token)),
		}
	}
}
