package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/ulule/limiter/v3"
	"go.uber.org/zap"

	"github.com/warlaundry/washerman/internal/app"
	"github.com/warlaundry/washerman/internal/dashboard"
	"github.com/warlaundry/washerman/internal/debounce"
	"github.com/warlaundry/washerman/internal/metrics"
	"github.com/warlaundry/washerman/internal/session"
)

type Options struct {
	CookieName      string
	CookieSecure    bool
	SessionTTL      time.Duration
	MaxSessions     int
	PageSize        int
	SearchDebounce  time.Duration
	RefreshInterval time.Duration
	RequestTimeout  time.Duration
	CORSOrigins     []string
	// LoginLimiter and WriteLimiter may be nil to disable limiting.
	LoginLimiter *limiter.Limiter
	WriteLimiter *limiter.Limiter
}

type Server struct {
	backend    Backend
	guard      *session.Guard
	workspaces *workspaces
	views      *views
	metrics    metrics.MetricsProvider
	log        *zap.Logger
	opts       Options
	router     chi.Router
}

// NewServer wires the panel. transitions builds the status command for a session's order service.
func NewServer(backend Backend, guard *session.Guard, store session.Store, transitions func(app.OrderService) *app.Transitioner,
	m metrics.MetricsProvider, log *zap.Logger, opts Options) *Server {
	if opts.CookieName == "" {
		opts.CookieName = "washerman_session"
	}
	if opts.PageSize <= 0 {
		opts.PageSize = app.DefaultPageSize
	}
	if opts.SearchDebounce <= 0 {
		opts.SearchDebounce = debounce.DefaultDelay
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = dashboard.DefaultInterval
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 12 * time.Hour
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = 1000
	}
	if m == nil {
		m = metrics.NewNoOpProvider()
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("web")

	dashOpts := dashboard.Options{Interval: opts.RefreshInterval, Metrics: m, Logger: log.Named("dashboard")}
	s := &Server{
		backend: backend,
		guard:   guard,
		workspaces: newWorkspaces(store, opts.MaxSessions, opts.SessionTTL,
			buildWorkspace(backend, transitions, opts.PageSize, dashOpts)),
		views:   mustLoadViews(),
		metrics: m,
		log:     log,
		opts:    opts,
	}
	s.router = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Sessions exposes session bookkeeping to the admin server.
func (s *Server) Sessions() *workspaces {
	return s.workspaces
}

func (s *Server) Close() {
	s.workspaces.Close()
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.opts.RequestTimeout))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/login", s.handleLoginForm)
	r.With(s.rateLimit(s.opts.LoginLimiter)).Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(s.requireSession(false))
		r.Get("/dashboard", s.handleDashboard)
		r.Get("/orders", s.handleOrders)
		r.Get("/students", s.handleStudents)
		r.Get("/settings", s.handleSettings)
		r.Post("/orders/dismiss", s.handleOrdersDismiss)
		r.Post("/dashboard/dismiss", s.handleDashboardDismiss)

		r.Group(func(r chi.Router) {
			r.Use(s.rateLimit(s.opts.WriteLimiter))
			r.Post("/orders/advance", s.handleAdvanceMany)
			r.Post("/orders/{id}/advance", s.handleAdvance)
			r.Post("/dashboard/orders/{id}/advance", s.handleDashboardAdvance)
			r.Post("/settings/password", s.handleChangePassword)
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.opts.CORSOrigins,
			AllowedMethods:   []string{"GET", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
		r.Use(s.requireSession(true))
		r.Get("/orders", s.handleAPIOrders)
		r.Get("/dashboard", s.handleAPIDashboard)
	})

	r.Get("/", redirectTo("/orders"))
	r.NotFound(redirectTo("/orders"))
	return r
}

func redirectTo(target string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target, http.StatusFound)
	}
}
