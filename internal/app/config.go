package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Session stores of the delivery wizard.
const (
	SessionsMemory = "memory"
	SessionsRedis  = "redis"
)

// Config holds the complete application configuration, loadable from
// environment variables (STAND_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string   `default:"0.0.0.0:8080" usage:"API server listen address"`
	Storage     string   `default:"postgres" usage:"Storage driver: postgres or memory"`
	DatabaseURL string   `usage:"PostgreSQL connection URL (STAND_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	CatalogFile string   `usage:"Products JSON or JSON.gz loaded at start by the memory driver" flag:"catalog-file"`
	Staff       []string `usage:"Staff provisioning entries id:role[:name] applied at start"`
	Catalog     CatalogConfig
	Wizard      WizardConfig
	RateLimit   RateLimitConfig
	Graceful    GracefulConfig
}

// CatalogConfig controls the product listing cache.
type CatalogConfig struct {
	TTL time.Duration `default:"3m" usage:"How long a catalog snapshot is served before reloading"`
}

// WizardConfig controls the delivery seat wizard.
type WizardConfig struct {
	Store    string        `default:"memory" usage:"Session store: memory or redis"`
	TTL      time.Duration `default:"15m" usage:"Idle lifetime of a wizard session"`
	RedisURL string        `usage:"Redis URL for the redis session store (STAND_WIZARD_REDIS_URL or REDIS_URL)" flag:"redis-url"`
}

// RateLimitConfig controls the per-account sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "STAND",
		Files:     []string{"config.yaml", "/etc/stand/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the driver choices and the settings each one needs.
func (c *Config) Validate() error {
	switch c.Storage {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("database URL is required: set STAND_DATABASE_URL or DATABASE_URL")
		}
	case DriverMemory:
	default:
		return errors.Errorf("unknown storage driver %q", c.Storage)
	}

	switch c.Wizard.Store {
	case SessionsRedis:
		if c.Wizard.RedisURL == "" {
			return errors.New("redis URL is required: set STAND_WIZARD_REDIS_URL or REDIS_URL")
		}
	case SessionsMemory:
	default:
		return errors.Errorf("unknown wizard session store %q", c.Wizard.Store)
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's STAND_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.Wizard.RedisURL == "" {
		c.Wizard.RedisURL = os.Getenv("REDIS_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
