package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/warlaundry/washerman/internal/adapter/cli"
	"github.com/warlaundry/washerman/internal/app"
	"github.com/warlaundry/washerman/internal/config"
	"github.com/warlaundry/washerman/internal/logger"
	"github.com/warlaundry/washerman/internal/metrics"
	"github.com/warlaundry/washerman/internal/remote"
	"github.com/warlaundry/washerman/internal/session"
	"github.com/warlaundry/washerman/internal/workerpool"
)

const logFile = "washerman-cli.log"

var (
	debug      bool
	configPath string
)

func newRoot(adapter *cli.CLIAdapter) func() *cobra.Command {
	return func() *cobra.Command {
		rootCmd := &cobra.Command{
			Short:         "WAR washerman command-line panel",
			Long:          `A command-line panel for washermen: dashboard, bag list and status updates.`,
			Run:           func(cmd *cobra.Command, args []string) { cmd.Help() },
			SilenceUsage:  true,
			SilenceErrors: true,
		}
		adapter.RegisterCommands(rootCmd)
		return rootCmd
	}
}

func main() {
	boot := &cobra.Command{
		Use:           "washerman-cli",
		Short:         "WAR washerman command-line panel",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	boot.Flags().StringVar(&configPath, "config", config.DefaultPath, "path to the YAML config")
	boot.Flags().BoolVar(&debug, "debug", false, "log to stderr at debug level")

	if err := boot.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	logCfg := logger.Config{Level: cfg.Log.Level, Format: "json", Output: logFile, TimeFormat: cfg.Log.TimeFormat}
	if debug {
		logCfg = logger.Config{Level: "debug", Format: "console", Output: "stderr", TimeFormat: cfg.Log.TimeFormat}
	}
	log, err := logger.New(logCfg)
	if err != nil {
		return fmt.Errorf("logger init failed: %w", err)
	}
	defer func() { _ = log.Sync() }()

	m := metrics.NewNoOpProvider()
	client := remote.NewClient(remote.Config{
		BaseURL:   cfg.Remote.BaseURL,
		Timeout:   cfg.Remote.Timeout,
		RateLimit: cfg.Remote.RateLimit,
		Burst:     cfg.Remote.Burst,
	}, m, log.Named("remote"))

	var authority session.Authority
	if cfg.Session.VerifyRemote {
		authority = client
	}
	store := session.NewMemoryStore(1, cfg.Session.TTL, nil)
	guard := session.NewGuard(store, authority, remote.IsUnauthorized, log.Named("session"))

	pool := workerpool.New(cfg.Service.WorkerLimit, cfg.Service.QueueSize)
	defer pool.Close()

	adapter := cli.NewCLIAdapter(remote.NewBackend(client), guard, os.Stdin, cli.Options{
		PageSize:        cfg.Orders.PageSize,
		RefreshInterval: cfg.Dashboard.RefreshInterval,
		SearchDebounce:  cfg.Orders.SearchDebounce,
		Transitions: func(orders app.OrderService) *app.Transitioner {
			return app.NewTransitioner(orders, pool, m, log.Named("transitions"))
		},
		Metrics: m,
		Logger:  log,
	})
	defer adapter.Close()

	log.Info("cli started", zap.String("remote", cfg.Remote.BaseURL))
	return adapter.Serve(cmd.Context(), newRoot(adapter), os.Stdout, os.Stderr)
}
