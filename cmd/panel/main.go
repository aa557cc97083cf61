package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/warlaundry/washerman/internal/adapter/web"
	"github.com/warlaundry/washerman/internal/app"
	"github.com/warlaundry/washerman/internal/config"
	"github.com/warlaundry/washerman/internal/infra"
	"github.com/warlaundry/washerman/internal/logger"
	"github.com/warlaundry/washerman/internal/metrics"
	"github.com/warlaundry/washerman/internal/remote"
	"github.com/warlaundry/washerman/internal/session"
	"github.com/warlaundry/washerman/internal/tracing"
	"github.com/warlaundry/washerman/internal/workerpool"
)

func main() {
	var configPath string
	root := &cobra.Command{
		Use:           "washerman-panel",
		Short:         "WAR washerman web panel",
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, args []string) {
			serve(configPath)
		},
	}
	root.Flags().StringVar(&configPath, "config", config.DefaultPath, "path to the YAML config")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(configPath string) {
	cfg, err := config.Load(configPath)
	if err != nil {
		zap.NewExample().Error("config load failed", zap.Error(err))
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: cfg.Log.TimeFormat,
	})
	if err != nil {
		zap.NewExample().Error("logger init failed", zap.Error(err))
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	shutdownTracing := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
	}, log)

	m := metrics.NewPrometheusProvider()
	client := remote.NewClient(remote.Config{
		BaseURL:   cfg.Remote.BaseURL,
		Timeout:   cfg.Remote.Timeout,
		RateLimit: cfg.Remote.RateLimit,
		Burst:     cfg.Remote.Burst,
	}, m, log.Named("remote"))

	var srv *web.Server
	var store session.Store
	switch cfg.Session.Store {
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		store = session.NewRedisStore(rdb, cfg.Session.TTL)
		log.Info("session store: redis", zap.String("addr", cfg.Redis.Addr))
	default:
		store = session.NewMemoryStore(cfg.Session.MaxSessions, cfg.Session.TTL, func(id string) {
			if srv != nil {
				srv.Sessions().Drop(id)
			}
		})
		log.Info("session store: memory", zap.Int("max_sessions", cfg.Session.MaxSessions))
	}

	var authority session.Authority
	if cfg.Session.VerifyRemote {
		authority = client
	}
	guard := session.NewGuard(store, authority, remote.IsUnauthorized, log.Named("session"))

	pool := workerpool.New(cfg.Service.WorkerLimit, cfg.Service.QueueSize)
	transitions := func(orders app.OrderService) *app.Transitioner {
		return app.NewTransitioner(orders, pool, m, log.Named("transitions"))
	}

	loginLimiter, err := newLimiter(cfg.RateLimit.Login)
	if err != nil {
		log.Fatal("login rate limit", zap.Error(err))
	}
	writeLimiter, err := newLimiter(cfg.RateLimit.Writes)
	if err != nil {
		log.Fatal("write rate limit", zap.Error(err))
	}

	srv = web.NewServer(remote.NewBackend(client), guard, store, transitions, m, log, web.Options{
		CookieName:      cfg.Session.CookieName,
		CookieSecure:    cfg.Session.CookieSecure,
		SessionTTL:      cfg.Session.TTL,
		MaxSessions:     cfg.Session.MaxSessions,
		PageSize:        cfg.Orders.PageSize,
		SearchDebounce:  cfg.Orders.SearchDebounce,
		RefreshInterval: cfg.Dashboard.RefreshInterval,
		RequestTimeout:  cfg.Service.Timeout,
		CORSOrigins:     cfg.Service.CORSOrigins,
		LoginLimiter:    loginLimiter,
		WriteLimiter:    writeLimiter,
	})

	ctx, stopBackground := context.WithCancel(context.Background())
	go poolStats(ctx, pool, m, log)
	go sessionCleanup(ctx, srv, cfg.Session.CleanupInterval, m, log)

	httpServer := &http.Server{
		Addr:              cfg.Service.HTTPAddress,
		Handler:           otelhttp.NewHandler(srv.Handler(), "washerman.panel"),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("panel listening", zap.String("addr", cfg.Service.HTTPAddress), zap.String("remote", cfg.Remote.BaseURL))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("panel serve error", zap.Error(err))
		}
	}()

	admin := infra.NewAdmin(cfg.Service.AdminAddress, pool, srv.Sessions(), log)
	admin.Start()
	log.Info("admin HTTP listening", zap.String("addr", cfg.Service.AdminAddress))

	// curl -XPOST 'http://localhost:8081/resize?workers=8'
	// curl -XGET 'http://localhost:8081/sessions/stats'
	// curl -XPOST 'http://localhost:8081/sessions/cleanup'

	infra.Graceful(log,
		func(ctx context.Context) {
			if err := httpServer.Shutdown(ctx); err != nil {
				log.Warn("panel shutdown", zap.Error(err))
			}
		},
		admin.Shutdown,
		func(context.Context) { stopBackground() },
		func(context.Context) { srv.Close() },
		func(context.Context) { pool.Close() },
		func(context.Context) { shutdownTracing() },
	)
}

func newLimiter(formatted string) (*limiter.Limiter, error) {
	if formatted == "" || formatted == "off" {
		return nil, nil
	}
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, err
	}
	return limiter.New(memory.NewStore(), rate), nil
}

func poolStats(ctx context.Context, pool *workerpool.Pool, m metrics.MetricsProvider, log *zap.Logger) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.UpdateWorkerPoolMetrics(pool.ActiveWorkers(), pool.QueueSize())
			log.Debug("worker pool stats",
				zap.Int("active", pool.ActiveWorkers()),
				zap.Int("total", pool.WorkerCount()),
				zap.Int("queue_size", pool.QueueSize()),
				zap.Int("queue_capacity", pool.QueueCapacity()))
		case <-ctx.Done():
			return
		}
	}
}

func sessionCleanup(ctx context.Context, srv *web.Server, every time.Duration, m metrics.MetricsProvider, log *zap.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed, err := srv.Sessions().CleanupSessions(ctx)
			if err != nil {
				log.Warn("session cleanup", zap.Error(err))
				continue
			}
			stats, err := srv.Sessions().SessionStats(ctx)
			if err == nil {
				m.SessionsActive(stats.Active)
			}
			log.Debug("session cleanup completed", zap.Int("removed", removed), zap.Int("active", stats.Active))
		case <-ctx.Done():
			return
		}
	}
}
