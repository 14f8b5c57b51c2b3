// Package api is the typed client of the storefront REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/gaarage/storefront/pkg/errors"
	"github.com/gaarage/storefront/pkg/httpclient"
	"github.com/gaarage/storefront/pkg/logger"
)

// RequestIDHeader carries the correlation id of every outbound request.
const RequestIDHeader = "X-Request-ID"

// Prober reports whether the network is reachable.
type Prober interface {
	Check(ctx context.Context) error
}

// Options configures a Client.
type Options struct {
	BaseURL  string
	Timeout  time.Duration
	PageSize int
	DeviceID string

	// Reachability, when set, is consulted before every request.
	Reachability Prober
}

// Client talks to the storefront API. It is safe for concurrent use.
type Client struct {
	baseURL      string
	http         httpclient.Doer
	timeout      time.Duration
	pageSize     int
	deviceID     string
	reachability Prober
	logger       *slog.Logger

	mu    sync.RWMutex
	token string
}

// New creates a Client issuing requests through doer.
func New(doer httpclient.Doer, opts Options, logger *slog.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 10
	}
	if opts.DeviceID == "" {
		opts.DeviceID = "web"
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Client{
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		http:         doer,
		timeout:      opts.Timeout,
		pageSize:     opts.PageSize,
		deviceID:     opts.DeviceID,
		reachability: opts.Reachability,
		logger:       logger,
	}
}

// SetToken sets the bearer token sent with every request; "" removes it.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// PageSize returns the per_page value sent with listing requests.
func (c *Client) PageSize() int {
	return c.pageSize
}

// CategoryImageURL returns the public URL of a category image.
func (c *Client) CategoryImageURL(image string) string {
	return c.baseURL + "/image/category/" + url.PathEscape(image)
}

// ProductImageURL returns the public URL of a product image.
func (c *Client) ProductImageURL(image string) string {
	return c.baseURL + "/image/product/" + url.PathEscape(image)
}

// call describes one request. Endpoint is the route template used as the
// metrics label.
type call struct {
	method   string
	endpoint string
	path     string
	query    url.Values
	body     any
}

func (c call) op() string {
	return c.method + " " + c.endpoint
}

// send issues the call and returns the raw 2xx response. The caller owns the
// body and must call the returned cancel func once it has been read.
func (c *Client) send(ctx context.Context, in call) (*http.Response, context.CancelFunc, error) {
	if c.reachability != nil {
		if err := c.reachability.Check(ctx); err != nil {
			return nil, nil, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)

	requestID := logger.CorrelationIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
		ctx = logger.WithCorrelationID(ctx, requestID)
	}
	ctx = httpclient.WithEndpoint(ctx, in.endpoint)

	target := c.baseURL + in.path
	if len(in.query) > 0 {
		target += "?" + in.query.Encode()
	}

	var body io.Reader = http.NoBody
	if in.body != nil {
		data, err := json.Marshal(in.body)
		if err != nil {
			cancel()
			return nil, nil, fmt.Errorf("encode %s body: %w", in.op(), err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, in.method, target, body)
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("build %s request: %w", in.op(), err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	log := logger.WithContext(ctx, c.logger)
	start := time.Now()

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		cancel()
		err = httpclient.ClassifyError(in.op(), err)
		log.WarnContext(ctx, "storefront request failed",
			slog.String("op", in.op()),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("code", apperrors.Code(err)),
			slog.String("error", err.Error()),
		)
		return nil, nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := httpclient.ParseResponseError(resp)
		cancel()
		log.WarnContext(ctx, "storefront request rejected",
			slog.String("op", in.op()),
			slog.Int("status", resp.StatusCode),
			slog.String("error", err.Error()),
		)
		return nil, nil, err
	}

	log.DebugContext(ctx, "storefront request",
		slog.String("op", in.op()),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)),
	)
	return resp, cancel, nil
}

// do issues the call and decodes a 2xx JSON body into out (when non-nil).
func (c *Client) do(ctx context.Context, in call, out any) error {
	resp, cancel, err := c.send(ctx, in)
	if err != nil {
		return err
	}
	defer cancel()
	defer func() { _ = resp.Body.Close() }()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if isDeadline(err) {
			return apperrors.Timeout(in.op())
		}
		return apperrors.RequestFailed(resp.StatusCode, fmt.Sprintf("%s: malformed response body: %v", in.op(), err))
	}
	return nil
}

// raw issues the call and returns the 2xx body bytes.
func (c *Client) raw(ctx context.Context, in call) (int, []byte, error) {
	resp, cancel, err := c.send(ctx, in)
	if err != nil {
		return 0, nil, err
	}
	defer cancel()
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		if isDeadline(err) {
			return resp.StatusCode, nil, apperrors.Timeout(in.op())
		}
		return resp.StatusCode, nil, apperrors.RequestFailed(resp.StatusCode, fmt.Sprintf("%s: read body: %v", in.op(), err))
	}
	return resp.StatusCode, data, nil
}

func isDeadline(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
