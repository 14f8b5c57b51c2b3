package config

import (
	"fmt"
	"net/url"
	"time"

	pkgconfig "github.com/gaarage/storefront/pkg/config"
)

// State backends for cart snapshots and the session token.
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config holds all configuration for the storefront client.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"json"`

	// Storefront API
	APIURL         string        `env:"STOREFRONT_API_URL" envDefault:"https://gaarage.ma/api/v2"`
	RequestTimeout time.Duration `env:"STOREFRONT_REQUEST_TIMEOUT" envDefault:"10s"`
	PageSize       int           `env:"STOREFRONT_PAGE_SIZE" envDefault:"10"`
	Debounce       time.Duration `env:"STOREFRONT_DEBOUNCE" envDefault:"500ms"`
	MaxRetries     int           `env:"STOREFRONT_MAX_RETRIES" envDefault:"0"`
	DeviceID       string        `env:"STOREFRONT_DEVICE_ID" envDefault:"web"`

	// Outbound protection
	RateLimitRPS        float64       `env:"RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst      int           `env:"RATE_LIMIT_BURST" envDefault:"20"`
	CircuitBreaker      bool          `env:"CIRCUIT_BREAKER_ENABLED" envDefault:"true"`
	ReachabilityTimeout time.Duration `env:"REACHABILITY_TIMEOUT" envDefault:"2s"`

	// Local state
	StateBackend string `env:"STATE_BACKEND" envDefault:"redis"`
	RedisAddr    string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass    string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB      int    `env:"REDIS_DB" envDefault:"0"`

	// Cart TTL in hours; 0 keeps snapshots forever.
	CartTTLHours int `env:"CART_TTL_HOURS" envDefault:"0"`

	// Kafka; no brokers disables activity events.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Metrics listener; empty disables it.
	MetricsAddr string `env:"METRICS_ADDR" envDefault:""`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	return LoadFrom(nil)
}

// LoadFrom reads configuration from the given variables, or from the process
// environment when environ is nil.
func LoadFrom(environ map[string]string) (*Config, error) {
	cfg, err := pkgconfig.Parse[Config](environ)
	if err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	return cfg, nil
}

// CartTTL returns the snapshot expiry, zero meaning none.
func (c *Config) CartTTL() time.Duration {
	return time.Duration(c.CartTTLHours) * time.Hour
}

// EventsEnabled reports whether activity events are published.
func (c *Config) EventsEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Validate checks the rules env tags cannot express.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("STOREFRONT_API_URL must be an absolute http(s) URL, got %q", c.APIURL)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("STOREFRONT_REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	if c.PageSize < 1 || c.PageSize > 100 {
		return fmt.Errorf("STOREFRONT_PAGE_SIZE must be between 1 and 100, got %d", c.PageSize)
	}
	if c.Debounce < 0 {
		return fmt.Errorf("STOREFRONT_DEBOUNCE must not be negative, got %s", c.Debounce)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("STOREFRONT_MAX_RETRIES must not be negative, got %d", c.MaxRetries)
	}
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must not be negative, got %v", c.RateLimitRPS)
	}
	switch c.StateBackend {
	case BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("STATE_BACKEND must be %q or %q, got %q", BackendRedis, BackendMemory, c.StateBackend)
	}
	if c.CartTTLHours < 0 {
		return fmt.Errorf("CART_TTL_HOURS must not be negative, got %d", c.CartTTLHours)
	}
	if c.OTELSampleRate < 0.0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %v", c.OTELSampleRate)
	}
	return nil
}
