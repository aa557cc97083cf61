package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "config/config.yaml"

type Config struct {
	Service struct {
		HTTPAddress  string        `yaml:"http_address" env:"WASHERMAN_HTTP_ADDRESS"`
		AdminAddress string        `yaml:"admin_address" env:"WASHERMAN_ADMIN_ADDRESS"`
		Timeout      time.Duration `yaml:"timeout"`
		WorkerLimit  int           `yaml:"worker_limit"`
		QueueSize    int           `yaml:"queue_size"`
		CORSOrigins  []string      `yaml:"cors_origins" env:"WASHERMAN_CORS_ORIGINS" envSeparator:","`
	} `yaml:"service"`

	Remote struct {
		BaseURL   string        `yaml:"base_url" env:"WASHERMAN_API_BASE_URL"`
		Timeout   time.Duration `yaml:"timeout"`
		RateLimit float64       `yaml:"rate_limit"`
		Burst     int           `yaml:"burst"`
	} `yaml:"remote"`

	Session struct {
		Store           string        `yaml:"store" env:"WASHERMAN_SESSION_STORE"`
		CookieName      string        `yaml:"cookie_name"`
		CookieSecure    bool          `yaml:"cookie_secure" env:"WASHERMAN_COOKIE_SECURE"`
		TTL             time.Duration `yaml:"ttl"`
		MaxSessions     int           `yaml:"max_sessions"`
		CleanupInterval time.Duration `yaml:"cleanup_interval"`
		VerifyRemote    bool          `yaml:"verify_remote"`
	} `yaml:"session"`

	Dashboard struct {
		RefreshInterval time.Duration `yaml:"refresh_interval"`
	} `yaml:"dashboard"`

	Orders struct {
		PageSize       int           `yaml:"page_size"`
		SearchDebounce time.Duration `yaml:"search_debounce"`
	} `yaml:"orders"`

	RateLimit struct {
		Login  string `yaml:"login"`
		Writes string `yaml:"writes"`
	} `yaml:"rate_limit"`

	Log struct {
		Level      string `yaml:"level" env:"WASHERMAN_LOG_LEVEL"`
		Format     string `yaml:"format" env:"WASHERMAN_LOG_FORMAT"`
		Output     string `yaml:"output"`
		TimeFormat string `yaml:"time_format"`
	} `yaml:"log"`

	Tracing struct {
		Enabled     bool   `yaml:"enabled" env:"WASHERMAN_TRACING_ENABLED"`
		Endpoint    string `yaml:"endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
		ServiceName string `yaml:"service_name"`
	} `yaml:"tracing"`

	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"-" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read yaml")
	}
	return Parse(data)
}

// Parse reads YAML, overlays the environment and fills what is still unset.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "parse yaml")
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, errors.Wrap(err, "parse env")
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "validate")
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	setString(&c.Service.HTTPAddress, ":8080")
	setString(&c.Service.AdminAddress, ":8081")
	setDuration(&c.Service.Timeout, 15*time.Second)
	setInt(&c.Service.WorkerLimit, 4)
	setInt(&c.Service.QueueSize, 16)

	setString(&c.Remote.BaseURL, "http://localhost:8000/api")
	setDuration(&c.Remote.Timeout, 10*time.Second)
	setInt(&c.Remote.Burst, 1)

	setString(&c.Session.Store, "memory")
	setString(&c.Session.CookieName, "washerman_session")
	setDuration(&c.Session.TTL, 12*time.Hour)
	setInt(&c.Session.MaxSessions, 1000)
	setDuration(&c.Session.CleanupInterval, 5*time.Minute)

	setDuration(&c.Dashboard.RefreshInterval, 60*time.Second)

	setInt(&c.Orders.PageSize, 10)
	setDuration(&c.Orders.SearchDebounce, 300*time.Millisecond)

	setString(&c.RateLimit.Login, "10-M")
	setString(&c.RateLimit.Writes, "120-M")

	setString(&c.Log.Level, "info")
	setString(&c.Log.Format, "console")
	setString(&c.Log.Output, "stdout")

	setString(&c.Tracing.ServiceName, "washerman-panel")
	setString(&c.Redis.Addr, "localhost:6379")
}

func (c *Config) Validate() error {
	switch c.Session.Store {
	case "memory", "redis":
	default:
		return errors.Errorf("session.store must be memory or redis, got %q", c.Session.Store)
	}
	if c.Orders.PageSize < 1 {
		return errors.New("orders.page_size must be positive")
	}
	if c.Dashboard.RefreshInterval < time.Second {
		return errors.New("dashboard.refresh_interval must be at least 1s")
	}
	if c.Remote.RateLimit < 0 {
		return errors.New("remote.rate_limit must not be negative")
	}
	if c.Session.MaxSessions < 1 {
		return errors.New("session.max_sessions must be positive")
	}
	for name, d := range map[string]time.Duration{
		"service.timeout":          c.Service.Timeout,
		"remote.timeout":           c.Remote.Timeout,
		"session.ttl":              c.Session.TTL,
		"session.cleanup_interval": c.Session.CleanupInterval,
		"orders.search_debounce":   c.Orders.SearchDebounce,
	} {
		if d <= 0 {
			return errors.Errorf("%s must be positive, got %s", name, d)
		}
	}
	return nil
}

func setString(v *string, def string) {
	if *v == "" {
		*v = def
	}
}

func setInt(v *int, def int) {
	if *v == 0 {
		*v = def
	}
}

func setDuration(v *time.Duration, def time.Duration) {
	if *v == 0 {
		*v = def
	}
}
