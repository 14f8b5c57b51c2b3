package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/gaarage/storefront/pkg/errors"
	"github.com/gaarage/storefront/pkg/logger"
)

// flakyAPI answers with the status stored in status and counts hits.
type flakyAPI struct {
	status atomic.Int32
	hits   atomic.Int32
	server *httptest.Server
}

func newFlakyAPI(t *testing.T, status int) *flakyAPI {
	t.Helper()
	api := &flakyAPI{}
	api.status.Store(int32(status))
	api.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		api.hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(int(api.status.Load()))
		_, _ = w.Write([]byte(`{"message":"from server"}`))
	}))
	t.Cleanup(api.server.Close)
	return api
}

func newBreaker(name string, openFor time.Duration) *CircuitBreakerClient {
	cfg := DefaultCircuitBreakerConfig(name)
	cfg.Timeout = openFor
	cfg.FailureRatio = 0.5
	cfg.MinRequests = 3
	return NewCircuitBreakerClient(New(testConfig()), cfg, logger.Discard())
}

func send(t *testing.T, cb *CircuitBreakerClient, url string) (*http.Response, error) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url+"/zones", http.NoBody)
	require.NoError(t, err)
	resp, err := cb.Do(context.Background(), req)
	if resp != nil {
		_ = resp.Body.Close()
	}
	return resp, err
}

func TestCircuitBreaker_PassesSuccess(t *testing.T) {
	api := newFlakyAPI(t, http.StatusOK)
	cb := newBreaker("cb-success", time.Minute)

	resp, err := send(t, cb, api.server.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_ServerErrorsOpenIt(t *testing.T) {
	api := newFlakyAPI(t, http.StatusBadGateway)
	cb := newBreaker("cb-open", time.Minute)

	for i := 0; i < 3; i++ {
		_, err := send(t, cb, api.server.URL)
		require.Error(t, err)
		assert.Equal(t, http.StatusBadGateway, apperrors.StatusCode(err))
		assert.Equal(t, "from server", err.(*apperrors.AppError).Message)
	}
	require.Equal(t, gobreaker.StateOpen, cb.State())
	assert.Equal(t, float64(2), testutil.ToFloat64(breakerState.WithLabelValues("cb-open")))

	rejectedBefore := testutil.ToFloat64(breakerRejections.WithLabelValues("cb-open"))
	_, err := send(t, cb, api.server.URL)
	assert.True(t, errors.Is(err, ErrCircuitOpen))
	assert.Equal(t, int32(3), api.hits.Load(), "open breaker must not reach the server")
	assert.Equal(t, rejectedBefore+1, testutil.ToFloat64(breakerRejections.WithLabelValues("cb-open")))

	classified := ClassifyError("GET /zones", err)
	assert.Equal(t, http.StatusServiceUnavailable, apperrors.StatusCode(classified))
}

func TestCircuitBreaker_ClientErrorsDoNotCount(t *testing.T) {
	api := newFlakyAPI(t, http.StatusNotFound)
	cb := newBreaker("cb-4xx", time.Minute)

	for i := 0; i < 5; i++ {
		resp, err := send(t, cb, api.server.URL)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_CanceledRequestsDoNotCount(t *testing.T) {
	api := newFlakyAPI(t, http.StatusOK)
	cb := newBreaker("cb-cancel", time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 5; i++ {
		req, err := http.NewRequest(http.MethodGet, api.server.URL, http.NoBody)
		require.NoError(t, err)
		_, err = cb.Do(ctx, req)
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_RecoversAfterTimeout(t *testing.T) {
	api := newFlakyAPI(t, http.StatusServiceUnavailable)
	cb := newBreaker("cb-recover", 50*time.Millisecond)

	for i := 0; i < 3; i++ {
		_, _ = send(t, cb, api.server.URL)
	}
	require.Equal(t, gobreaker.StateOpen, cb.State())

	api.status.Store(http.StatusOK)
	require.Eventually(t, func() bool {
		return cb.State() == gobreaker.StateHalfOpen
	}, time.Second, 10*time.Millisecond)

	resp, err := send(t, cb, api.server.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}
