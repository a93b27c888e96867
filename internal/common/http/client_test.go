package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipeline-builder/internal/circuitbreaker"
	"pipeline-builder/internal/common/cache"
	"pipeline-builder/internal/common/errors"
	"pipeline-builder/internal/common/logging"
	"pipeline-builder/internal/common/ratelimit"
)

func fastRetry(attempts int) *RetryConfig {
	return &RetryConfig{
		MaxAttempts:   attempts,
		InitialDelay:  time.Millisecond,
		MaxDelay:      2 * time.Millisecond,
		BackoffFactor: 2,
	}
}

func newTestWrapper() *HTTPClientWrapper {
	return NewHTTPClientWrapper(WithTimeout(2 * time.Second)).
		WithLogger(logging.NewNopLogger()).
		WithRetryConfig(fastRetry(3))
}

func TestDefaultClientConfig(t *testing.T) {
	config := DefaultClientConfig()

	assert.Equal(t, 30*time.Second, config.Timeout)
	assert.Equal(t, 100, config.MaxIdleConns)
	assert.Equal(t, 10, config.MaxIdleConnsPerHost)
	assert.Nil(t, config.Transport)
}

func TestNewHTTPClient_Options(t *testing.T) {
	transport := &http.Transport{MaxIdleConns: 7}
	client := NewHTTPClient(WithTimeout(5*time.Second), WithMaxIdleConns(50), nil, WithTransport(transport))

	assert.Equal(t, 5*time.Second, client.Timeout)
	assert.Same(t, transport, client.Transport)
}

func TestRequest_Success(t *testing.T) {
	var gotRequestID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRequestID = r.Header.Get(RequestIDHeader)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"name":"demo"}`, string(body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"graph_id":"g1"}`))
	}))
	defer server.Close()

	resp, err := newTestWrapper().Request(context.Background(), &RequestOptions{
		Method:  http.MethodPost,
		URL:     server.URL + "/saved-graphs",
		Body:    strings.NewReader(`{"name":"demo"}`),
		Headers: map[string]string{"Content-Type": "application/json"},
	})
	require.NoError(t, err)

	var out struct {
		GraphID string `json:"graph_id"`
	}
	require.NoError(t, resp.JSON(&out))
	assert.Equal(t, "g1", out.GraphID)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, gotRequestID)
}

func TestRequest_PropagatesRequestID(t *testing.T) {
	var gotRequestID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRequestID = r.Header.Get(RequestIDHeader)
	}))
	defer server.Close()

	ctx := logging.ContextWith(context.Background(), logging.RequestIDKey, "req-42")
	_, err := newTestWrapper().Request(ctx, &RequestOptions{Method: http.MethodGet, URL: server.URL})
	require.NoError(t, err)
	assert.Equal(t, "req-42", gotRequestID)
}

func TestRequest_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	resp, err := newTestWrapper().Request(context.Background(), &RequestOptions{Method: http.MethodGet, URL: server.URL})
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, "[]", string(resp.RawBody))
}

func TestRequest_PostIsSentOnce(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestWrapper().Request(context.Background(), &RequestOptions{
		Method: http.MethodPost,
		URL:    server.URL + "/compiler/run",
		Body:   strings.NewReader(`{"dataset_id":"d1"}`),
	})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeInternal))
	assert.NotContains(t, err.Error(), "max retries exceeded")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRequest_DeleteIsRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestWrapper().Request(context.Background(), &RequestOptions{Method: http.MethodDelete, URL: server.URL + "/datasets/d1"})
	require.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestRequest_ClientErrorsAreNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Dataset not found"}`))
	}))
	defer server.Close()

	resp, err := newTestWrapper().Request(context.Background(), &RequestOptions{Method: http.MethodGet, URL: server.URL})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))
	assert.Contains(t, err.Error(), "Dataset not found")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRequest_ConnectionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestWrapper().WithRetryConfig(NoRetry()).Request(context.Background(), &RequestOptions{Method: http.MethodGet, URL: url})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeConnection))
}

func TestRequest_Cache(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"filter":{"args":[]}}`))
	}))
	defer server.Close()

	wrapper := newTestWrapper().WithCache(cache.NewLocalCache(time.Minute, time.Minute), nil)
	opts := func() *RequestOptions {
		return &RequestOptions{Method: http.MethodGet, URL: server.URL + "/functions", Cacheable: true}
	}

	first, err := wrapper.Request(context.Background(), opts())
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := wrapper.Request(context.Background(), opts())
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.RawBody, second.RawBody)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	wrapper.InvalidateCache(context.Background(), server.URL+"/functions")
	_, err = wrapper.Request(context.Background(), opts())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	// requests that do not opt in always hit the server
	_, err = wrapper.Request(context.Background(), &RequestOptions{Method: http.MethodGet, URL: server.URL + "/functions"})
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestRequest_CircuitBreakerOpens(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	wrapper := newTestWrapper().
		WithRetryConfig(NoRetry()).
		WithCircuitBreaker("backend", circuitbreaker.Config{MaxFailures: 2, Timeout: time.Minute, MaxConcurrentRequests: 1})

	for i := 0; i < 4; i++ {
		_, err := wrapper.Request(context.Background(), &RequestOptions{Method: http.MethodGet, URL: server.URL})
		require.Error(t, err)
	}

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.True(t, wrapper.GetCircuitBreaker().IsOpen())
}

func TestRequest_RateLimiterHonoursContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	limiter, err := ratelimit.NewLocalLimiter(ratelimit.Config{Enabled: true, RequestsPerSecond: 0.001, BurstSize: 1})
	require.NoError(t, err)
	wrapper := newTestWrapper().WithRateLimiter(limiter)

	_, err = wrapper.Request(context.Background(), &RequestOptions{Method: http.MethodGet, URL: server.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = wrapper.Request(ctx, &RequestOptions{Method: http.MethodGet, URL: server.URL})
	assert.True(t, errors.IsType(err, errors.ErrTypeRateLimit))
}

func TestResponse_JSON(t *testing.T) {
	var v map[string]interface{}

	assert.Error(t, (&Response{}).JSON(&v))
	assert.Error(t, (&Response{RawBody: []byte("not json")}).JSON(&v))
	assert.NoError(t, (&Response{RawBody: []byte(`{"a":1}`)}).JSON(&v))
	assert.Equal(t, float64(1), v["a"])
}
