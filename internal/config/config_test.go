package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})

	require.NoError(t, err)
	assert.Equal(t, "https://gaarage.ma/api/v2", cfg.APIURL)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 10, cfg.PageSize)
	assert.Equal(t, 500*time.Millisecond, cfg.Debounce)
	assert.Equal(t, 0, cfg.MaxRetries)
	assert.Equal(t, BackendRedis, cfg.StateBackend)
	assert.Equal(t, time.Duration(0), cfg.CartTTL())
	assert.False(t, cfg.EventsEnabled())
	assert.Empty(t, cfg.MetricsAddr)
}

func TestLoad_ProcessEnvironment(t *testing.T) {
	t.Setenv("STOREFRONT_API_URL", "http://localhost:8080/api/v2")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/api/v2", cfg.APIURL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.EventsEnabled())
}

func TestLoad_CartTTL(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{"CART_TTL_HOURS": "168"})

	require.NoError(t, err)
	assert.Equal(t, 7*24*time.Hour, cfg.CartTTL())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		msg  string
	}{
		{"relative url", map[string]string{"STOREFRONT_API_URL": "/api/v2"}, "STOREFRONT_API_URL"},
		{"ftp url", map[string]string{"STOREFRONT_API_URL": "ftp://gaarage.ma"}, "STOREFRONT_API_URL"},
		{"zero timeout", map[string]string{"STOREFRONT_REQUEST_TIMEOUT": "0s"}, "STOREFRONT_REQUEST_TIMEOUT"},
		{"page size", map[string]string{"STOREFRONT_PAGE_SIZE": "0"}, "STOREFRONT_PAGE_SIZE"},
		{"negative debounce", map[string]string{"STOREFRONT_DEBOUNCE": "-1s"}, "STOREFRONT_DEBOUNCE"},
		{"negative retries", map[string]string{"STOREFRONT_MAX_RETRIES": "-1"}, "STOREFRONT_MAX_RETRIES"},
		{"backend", map[string]string{"STATE_BACKEND": "sqlite"}, "STATE_BACKEND"},
		{"ttl", map[string]string{"CART_TTL_HOURS": "-5"}, "CART_TTL_HOURS"},
		{"sample rate", map[string]string{"OTEL_SAMPLE_RATE": "2.0"}, "OTEL_SAMPLE_RATE must be between 0.0 and 1.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadFrom(tt.env)
			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestLoad_ParseError(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{"STOREFRONT_PAGE_SIZE": "ten"})

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load storefront config")
}
