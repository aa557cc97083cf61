package infra

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/warlaundry/washerman/internal/workerpool"
)

type SessionStats struct {
	Active     int `json:"active"`
	PageStates int `json:"page_states"`
}

type SessionManager interface {
	SessionStats(ctx context.Context) (SessionStats, error)
	CleanupSessions(ctx context.Context) (int, error)
}

type AdminServer struct {
	srv      *http.Server
	pool     *workerpool.Pool
	sessions SessionManager
	log      *zap.Logger
}

func NewAdmin(addr string, pool *workerpool.Pool, sessions SessionManager, log *zap.Logger) *AdminServer {
	mux := http.NewServeMux()
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
	as := &AdminServer{
		srv:      server,
		pool:     pool,
		sessions: sessions,
		log:      log.Named("admin"),
	}

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/resize", as.handleResize)
	mux.HandleFunc("/sessions/stats", as.handleSessionStats)
	mux.HandleFunc("/sessions/cleanup", as.handleSessionCleanup)

	return as
}

func (a *AdminServer) Handler() http.Handler {
	return a.srv.Handler
}

func (a *AdminServer) handleResize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "use POST", http.StatusMethodNotAllowed)
		return
	}
	n, _ := strconv.Atoi(r.URL.Query().Get("workers"))
	if n <= 0 {
		http.Error(w, "workers must be > 0", http.StatusBadRequest)
		return
	}
	a.pool.Resize(n)
	a.log.Info("worker pool resized", zap.Int("workers", n))
	if _, err := w.Write([]byte("ok")); err != nil {
		a.log.Warn("admin write failed", zap.Error(err))
	}
}

func (a *AdminServer) handleSessionStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "use GET", http.StatusMethodNotAllowed)
		return
	}
	if a.sessions == nil {
		http.Error(w, "sessions not available", http.StatusServiceUnavailable)
		return
	}

	stats, err := a.sessions.SessionStats(r.Context())
	if err != nil {
		a.log.Error("session stats", zap.Error(err))
		http.Error(w, "session store error", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		a.log.Error("failed to encode session stats", zap.Error(err))
	}
}

func (a *AdminServer) handleSessionCleanup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "use POST", http.StatusMethodNotAllowed)
		return
	}
	if a.sessions == nil {
		http.Error(w, "sessions not available", http.StatusServiceUnavailable)
		return
	}

	n, err := a.sessions.CleanupSessions(r.Context())
	if err != nil {
		a.log.Error("session cleanup", zap.Error(err))
		http.Error(w, "session store error", http.StatusBadGateway)
		return
	}
	if _, err := w.Write([]byte("removed " + strconv.Itoa(n) + " expired sessions")); err != nil {
		a.log.Warn("admin write failed", zap.Error(err))
	}
}

func (a *AdminServer) Start() {
	go func() {
		if err := a.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("admin listen error", zap.Error(err))
		}
	}()
}

func (a *AdminServer) Shutdown(ctx context.Context) {
	if err := a.srv.Shutdown(ctx); err != nil {
		a.log.Warn("admin shutdown error", zap.Error(err))
	}
}
