package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/pricing"
	"github.com/xenking/storefront/internal/seed"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (STOREFRONT_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL; empty runs on in-memory storage" flag:"database-url"`
	APIKeyPepper string `usage:"HMAC pepper for API key hashing (STOREFRONT_API_KEY_PEPPER)" flag:"api-key-pepper"`
	// SeedDemo loads the embedded demo accounts into in-memory storage.
	SeedDemo  bool `default:"true" usage:"Seed demo accounts when running in memory" flag:"seed-demo"`
	Catalog   CatalogConfig
	Pricing   PricingConfig
	RateLimit RateLimitConfig
	Checkout  CheckoutConfig
	Graceful  GracefulConfig
}

// CatalogConfig points at the price list files. Empty paths use the
// embedded defaults.
type CatalogConfig struct {
	Vegetables string `usage:"Vegetable price list (INI)" flag:"catalog-vegetables"`
	Boxes      string `usage:"Premade box list (INI)" flag:"catalog-boxes"`
}

// PricingConfig holds the business constants.
type PricingConfig struct {
	DeliveryFee      string `default:"10.00" usage:"Flat delivery fee" flag:"delivery-fee"`
	DeliveryRadiusKM int    `default:"20" usage:"Maximum delivery distance in km" flag:"delivery-radius"`
	CorporateRate    string `default:"0.10" usage:"Discount for corporate customers without their own rate" flag:"corporate-rate"`
	MaxOwing         string `default:"-100.00" usage:"Credit limit for customers without their own" flag:"max-owing"`
	MinPayment       string `default:"1.00" usage:"Minimum balance payment" flag:"min-payment"`
}

// RateLimitConfig throttles payment routes per principal.
type RateLimitConfig struct {
	Rate  float64       `default:"1" usage:"Sustained payment requests per second"`
	Burst int           `default:"5" usage:"Payment request burst"`
	TTL   time.Duration `default:"10m" usage:"Idle limiter eviction"`
}

// CheckoutConfig controls abandoned transaction cleanup.
type CheckoutConfig struct {
	TTL time.Duration `default:"30m" usage:"Drop checkout transactions older than this" flag:"checkout-ttl"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// Business is the parsed form of PricingConfig.
type Business struct {
	Rules      pricing.Rules
	Seed       seed.Defaults
	MinPayment decimal.Decimal
}

// Business parses the decimal settings.
func (c PricingConfig) Business() (Business, error) {
	parse := func(name, v string) (decimal.Decimal, error) {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, errors.Wrapf(err, "pricing %s", name)
		}
		return d, nil
	}

	var (
		b   Business
		err error
	)
	if b.Rules.DeliveryFee, err = parse("delivery fee", c.DeliveryFee); err != nil {
		return b, err
	}
	if b.Seed.CorporateRate, err = parse("corporate rate", c.CorporateRate); err != nil {
		return b, err
	}
	if b.Seed.MaxOwing, err = parse("max owing", c.MaxOwing); err != nil {
		return b, err
	}
	if b.MinPayment, err = parse("min payment", c.MinPayment); err != nil {
		return b, err
	}
	b.Rules.DeliveryRadiusKM = c.DeliveryRadiusKM

	switch {
	case b.Rules.DeliveryFee.IsNegative():
		return b, errors.New("pricing delivery fee must not be negative")
	case b.Rules.DeliveryRadiusKM < 0:
		return b, errors.New("pricing delivery radius must not be negative")
	case b.Seed.CorporateRate.IsNegative() || b.Seed.CorporateRate.GreaterThan(decimal.NewFromInt(1)):
		return b, errors.New("pricing corporate rate must be between 0 and 1")
	case !b.MinPayment.IsPositive():
		return b, errors.New("pricing min payment must be positive")
	}
	return b, nil
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "STOREFRONT",
		Files:     []string{"config.yaml", "/etc/storefront/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL != "" && cfg.APIKeyPepper == "" {
		return nil, errors.New("API key pepper is required with a database: set STOREFRONT_API_KEY_PEPPER")
	}
	if _, err := cfg.Pricing.Business(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's STOREFRONT_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
