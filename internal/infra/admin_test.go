package infra

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/warlaundry/washerman/internal/workerpool"
)

type fakeSessions struct {
	stats   SessionStats
	removed int
	err     error
}

func (f *fakeSessions) SessionStats(context.Context) (SessionStats, error) {
	return f.stats, f.err
}

func (f *fakeSessions) CleanupSessions(context.Context) (int, error) {
	return f.removed, f.err
}

func newAdmin(t *testing.T, sessions SessionManager) (*AdminServer, *workerpool.Pool) {
	t.Helper()
	pool := workerpool.New(2, 4)
	t.Cleanup(pool.Close)
	return NewAdmin(":0", pool, sessions, zap.NewNop()), pool
}

func TestAdmin_Resize(t *testing.T) {
	t.Parallel()

	admin, pool := newAdmin(t, nil)

	tests := []struct {
		name     string
		method   string
		target   string
		wantCode int
	}{
		{name: "WrongMethod", method: http.MethodGet, target: "/resize?workers=3", wantCode: http.StatusMethodNotAllowed},
		{name: "BadCount", method: http.MethodPost, target: "/resize?workers=zero", wantCode: http.StatusBadRequest},
		{name: "OK", method: http.MethodPost, target: "/resize?workers=5", wantCode: http.StatusOK},
	}
	for _, tc := range tests {
		rec := httptest.NewRecorder()
		admin.Handler().ServeHTTP(rec, httptest.NewRequest(tc.method, tc.target, nil))
		assert.Equal(t, tc.wantCode, rec.Code, tc.name)
	}
	assert.Equal(t, 5, pool.WorkerCount())
}

func TestAdmin_SessionStats(t *testing.T) {
	t.Parallel()

	admin, _ := newAdmin(t, &fakeSessions{stats: SessionStats{Active: 3, PageStates: 5}})

	rec := httptest.NewRecorder()
	admin.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got SessionStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, SessionStats{Active: 3, PageStates: 5}, got)
}

func TestAdmin_SessionCleanup(t *testing.T) {
	t.Parallel()

	admin, _ := newAdmin(t, &fakeSessions{removed: 2})
	rec := httptest.NewRecorder()
	admin.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sessions/cleanup", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "removed 2")

	broken, _ := newAdmin(t, &fakeSessions{err: errors.New("redis down")})
	rec = httptest.NewRecorder()
	broken.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sessions/cleanup", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	none, _ := newAdmin(t, nil)
	rec = httptest.NewRecorder()
	none.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/stats", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAdmin_Metrics(t *testing.T) {
	t.Parallel()

	admin, _ := newAdmin(t, nil)
	rec := httptest.NewRecorder()
	admin.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
