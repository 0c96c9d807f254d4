package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
)

// Run modes for the dashboard binary
const (
	ModeServe = "serve"
	ModeTUI   = "tui"
)

// Config represents the complete application configuration
type Config struct {
	// Account is the deployment identifier the bucket name is derived from
	Account string `env:"AUDIT_ACCOUNT,required"`

	// StoreEndpoint is the base URL of the object store
	StoreEndpoint string `env:"AUDIT_STORE_ENDPOINT,required"`

	// Mode selects the HTTP API server or the interactive terminal dashboard
	Mode string `env:"AUDIT_MODE" envDefault:"serve"`

	Loader        LoaderConfig
	API           APIConfig
	Observability ObservabilityConfig
	SLO           SLOConfig
}

// LoaderConfig configures fetching and the time-bucketed cache
type LoaderConfig struct {
	// CacheWindow is the coarse time bucket; loads inside one window reuse
	// the previous snapshot instead of re-querying the store
	CacheWindow  time.Duration `env:"AUDIT_CACHE_WINDOW" envDefault:"10m"`
	FetchTimeout time.Duration `env:"AUDIT_FETCH_TIMEOUT" envDefault:"30s"`
	FetchRetries int           `env:"AUDIT_FETCH_RETRIES" envDefault:"3"`
	RetryBackoff time.Duration `env:"AUDIT_RETRY_BACKOFF" envDefault:"2s"`
	SQLitePath   string        `env:"AUDIT_SQLITE_PATH" envDefault:"auditdash.db"`
}

// APIConfig configures the HTTP API server
type APIConfig struct {
	Port       int           `env:"AUDIT_API_PORT" envDefault:"8080"`
	APIKey     string        `env:"AUDIT_API_KEY"`
	SessionTTL time.Duration `env:"AUDIT_SESSION_TTL" envDefault:"1h"`
}

// ObservabilityConfig configures logging and the operations server
type ObservabilityConfig struct {
	LogLevel string `env:"AUDIT_LOG_LEVEL" envDefault:"info"`
	OpsPort  int    `env:"AUDIT_OPS_PORT" envDefault:"9090"`
	// TUILogFile receives log lines in TUI mode; empty discards them so
	// they cannot corrupt the rendered dashboard
	TUILogFile string `env:"AUDIT_TUI_LOG_FILE"`
}

// SLOConfig configures the alert SLO policy
type SLOConfig struct {
	// BreachExpression is a CEL expression over a dependency alert group;
	// empty selects the built-in default
	BreachExpression string `env:"AUDIT_SLO_EXPRESSION"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// BucketName derives the audit bucket name from the account identifier
func (c *Config) BucketName() string {
	return fmt.Sprintf("%s-github-audit-dashboard", c.Account)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Account == "" {
		return fmt.Errorf("account identifier is required")
	}

	u, err := url.Parse(c.StoreEndpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("store endpoint must be an absolute URL: %q", c.StoreEndpoint)
	}

	if c.Mode != ModeServe && c.Mode != ModeTUI {
		return fmt.Errorf("invalid mode: %s (must be serve or tui)", c.Mode)
	}

	if c.Loader.CacheWindow <= 0 {
		return fmt.Errorf("cache window must be positive")
	}

	if c.Loader.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive")
	}

	if c.Loader.FetchRetries < 0 {
		return fmt.Errorf("fetch retries cannot be negative")
	}

	if c.Loader.SQLitePath == "" {
		return fmt.Errorf("sqlite path is required")
	}

	if c.API.Port <= 0 || c.Observability.OpsPort <= 0 {
		return fmt.Errorf("ports must be positive")
	}

	if c.API.SessionTTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}

	return nil
}
