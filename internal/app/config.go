package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/solemart/storefront/internal/domain/lifecycle"
)

// Config holds the complete application configuration, loadable from
// environment variables (SHOP_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (SHOP_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	RedisAddr    string `default:"localhost:6379" usage:"Redis address for cart storage" flag:"redis-addr"`
	ImageBaseURL string `default:"" usage:"Base URL for product images (e.g. https://cdn.example.com/images)" flag:"image-base-url"`
	APIKeyPepper string `usage:"HMAC pepper for API key hashing (SHOP_API_KEY_PEPPER)" flag:"api-key-pepper"`
	Policy       PolicyConfig
	Cart         CartConfig
	Catalog      CatalogConfig
	Jobs         JobsConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// PolicyConfig exposes the business-policy knobs that operators tune most.
// Everything not listed here keeps its default.
type PolicyConfig struct {
	CancellationWindow time.Duration `default:"24h"  usage:"How long after placement an order may be cancelled" flag:"cancellation-window"`
	ReturnWindow       time.Duration `default:"720h" usage:"How long after delivery a return may be requested" flag:"return-window"`
	RestockFeePercent  int           `default:"20"   usage:"Restocking fee percent for buyer-caused returns" flag:"restock-fee-percent"`
}

// Lifecycle builds the engine policy from the configured knobs.
func (p PolicyConfig) Lifecycle() lifecycle.Policy {
	pol := lifecycle.DefaultPolicy()
	pol.CancellationWindow = p.CancellationWindow
	pol.ReturnWindow = p.ReturnWindow
	pol.RestockFeePercent = decimal.NewFromInt(int64(p.RestockFeePercent))
	return pol
}

// CartConfig controls cart persistence.
type CartConfig struct {
	TTL time.Duration `default:"720h" usage:"Idle time before a cart expires" flag:"cart-ttl"`
}

// CatalogConfig controls the in-process product cache.
type CatalogConfig struct {
	CacheTTL time.Duration `default:"5m" usage:"Product cache TTL" flag:"product-cache-ttl"`
}

// JobsConfig controls background maintenance jobs.
type JobsConfig struct {
	ExpireSchedule string        `default:"@every 10m" usage:"Cron spec for the unpaid-order expiry job" flag:"expire-schedule"`
	UnpaidOrderTTL time.Duration `default:"1h"         usage:"How long an order may wait for payment before auto-cancel" flag:"unpaid-order-ttl"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "SHOP",
		Files:     []string{"config.yaml", "/etc/storefront/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set SHOP_DATABASE_URL or DATABASE_URL")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables
// (Railway, Render, etc.) that use standard names like DATABASE_URL and PORT
// to the application's SHOP_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if c.RedisAddr == "localhost:6379" {
		if v := os.Getenv("REDIS_ADDR"); v != "" {
			c.RedisAddr = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
