package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"

	"github.com/Sabariaz123456/Hackathon3/internal/catalog/sanity"
	"github.com/Sabariaz123456/Hackathon3/internal/events"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (STOREFRONT_ prefix), flags, or YAML config files.
type Config struct {
	Addr      string `default:"0.0.0.0:8080" usage:"API server listen address"`
	Storage   StorageConfig
	Catalog   CatalogConfig
	Session   SessionConfig
	Events    events.Config
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Graceful  GracefulConfig
}

// StorageConfig selects where cart documents and orders live.
type StorageConfig struct {
	Backend     string        `default:"memory" usage:"Cart backend: memory, redis or postgres" validate:"oneof=memory redis postgres"`
	RedisURL    string        `usage:"Redis URL for the redis backend (STOREFRONT_STORAGE_REDIS_URL or REDIS_URL)" validate:"required_if=Backend redis"`
	TTL         time.Duration `default:"720h" usage:"Expiry of idle carts in redis, 0 keeps them forever" validate:"gte=0"`
	DatabaseURL string        `usage:"PostgreSQL connection URL (STOREFRONT_STORAGE_DATABASE_URL or DATABASE_URL)"`
	KeyPrefix   string        `default:"cart" usage:"Prefix of cart keys" validate:"required"`
}

// CatalogConfig selects the product source.
type CatalogConfig struct {
	Source          string        `default:"sanity" usage:"Product source: sanity or postgres" validate:"oneof=sanity postgres"`
	RefreshInterval time.Duration `default:"5m" usage:"How long a catalog snapshot is served before refresh"`
	Sanity          sanity.Config
}

// SessionConfig controls the cart session cookie.
type SessionConfig struct {
	CookieName string        `default:"cart_session" usage:"Session cookie name"`
	MaxAge     time.Duration `default:"720h" usage:"Session cookie lifetime"`
	Secure     bool          `default:"false" usage:"Send the session cookie over HTTPS only"`
}

// RateLimitConfig controls the per-session sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window" validate:"gt=0"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration" validate:"gt=0"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (the session cookie)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, flags and YAML
// config files, then applies platform defaults and validates the result.
func LoadConfig() (*Config, error) {
	return loadConfig(aconfig.Config{
		EnvPrefix: "STOREFRONT",
		Files:     []string{"config.yaml", "/etc/storefront/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
}

func loadConfig(ac aconfig.Config) (*Config, error) {
	var cfg Config
	if err := aconfig.LoaderFor(&cfg, ac).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's STOREFRONT_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.Storage.DatabaseURL == "" {
		c.Storage.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.Storage.RedisURL == "" {
		c.Storage.RedisURL = os.Getenv("REDIS_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

// usesPostgres reports whether any component needs the database pool.
func (c *Config) usesPostgres() bool {
	return c.Storage.Backend == "postgres" || c.Catalog.Source == "postgres"
}

func (c *Config) validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return errors.Wrap(err, "invalid config")
	}
	if c.usesPostgres() && c.Storage.DatabaseURL == "" {
		return errors.New("database URL is required: set STOREFRONT_STORAGE_DATABASE_URL or DATABASE_URL")
	}
	return nil
}
