// Package httpclient is the outbound HTTP stack of the storefront client:
// pooled transport, rate limiting, opt-in retries, request metrics, and a
// circuit breaker in front of it all.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

// Doer is satisfied by Client and CircuitBreakerClient.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Config tunes a Client.
type Config struct {
	Timeout         time.Duration
	MaxConnsPerHost int

	// MaxRetries extra attempts are made for gateway errors and network
	// failures. Backoff doubles from RetryWaitMin up to RetryWaitMax.
	MaxRetries   int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration

	// RateLimit caps outbound requests per second; zero disables limiting.
	RateLimit float64
	RateBurst int

	// Tracing wraps the transport with otelhttp so each request gets a client span.
	Tracing bool
}

// DefaultConfig returns the storefront defaults: a 10s budget per request and
// no automatic retries.
func DefaultConfig() Config {
	return Config{
		Timeout:         10 * time.Second,
		MaxConnsPerHost: 16,
		RetryWaitMin:    500 * time.Millisecond,
		RetryWaitMax:    5 * time.Second,
		RateLimit:       10,
		RateBurst:       20,
	}
}

// Client sends requests to the storefront API.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	cfg     Config
}

// New creates a Client from cfg.
func New(cfg Config) *Client {
	var transport http.RoundTripper = &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConnsPerHost: cfg.MaxConnsPerHost,
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	if cfg.Tracing {
		transport = otelhttp.NewTransport(transport)
	}

	c := &Client{
		http: &http.Client{Transport: transport, Timeout: cfg.Timeout},
		cfg:  cfg,
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(cfg.RateBurst, 1))
	}
	return c
}

// Do sends req with ctx. Non-2xx responses are returned as they are; callers
// decide what a status means. A retry needs a rewindable body, so requests
// built from a bytes or strings reader qualify and streamed bodies do not.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)
	endpoint := EndpointFromContext(ctx)
	retries := c.cfg.MaxRetries
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		retries = 0
	}

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			if err := c.backoff(ctx, attempt); err != nil {
				return nil, err
			}
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, fmt.Errorf("rewind request body: %w", err)
				}
				req.Body = body
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limiter: %w", err)
			}
		}

		start := time.Now()
		requestsInFlight.Inc()
		resp, err := c.http.Do(req)
		requestsInFlight.Dec()
		observe(req.Method, endpoint, resp, err, time.Since(start))

		last := attempt >= retries
		switch {
		case err != nil:
			if last || !isRetryableError(err) {
				return nil, fmt.Errorf("%s %s (attempt %d): %w", req.Method, endpoint, attempt+1, err)
			}
		case retryableStatus(resp.StatusCode) && !last:
			_ = resp.Body.Close()
		default:
			return resp, nil
		}
	}
}

func (c *Client) backoff(ctx context.Context, attempt int) error {
	wait := min(c.cfg.RetryWaitMin<<(attempt-1), c.cfg.RetryWaitMax)
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// retryableStatus reports gateway failures, which are usually transient.
func retryableStatus(code int) bool {
	switch code {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// isRetryableError reports network failures other than the caller giving up.
func isRetryableError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
