// Package http wraps net/http with the request policies the backend
// clients share: retry with backoff, a circuit breaker, client-side rate
// limiting, GET response caching and request id propagation.
package http

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"pipeline-builder/internal/circuitbreaker"
	"pipeline-builder/internal/common/cache"
	"pipeline-builder/internal/common/errors"
	"pipeline-builder/internal/common/logging"
	"pipeline-builder/internal/common/ratelimit"
	"pipeline-builder/internal/common/utils"
)

// RequestIDHeader carries the request id to the backend
const RequestIDHeader = "X-Request-ID"

// RequestOptions describe one logical request
type RequestOptions struct {
	Method  string
	URL     string
	Body    io.Reader
	Headers map[string]string
	// Cacheable opts a GET request into the response cache
	Cacheable bool
}

// Response is a fully read HTTP response
type Response struct {
	StatusCode int
	Headers    map[string]string
	RawBody    []byte
	Duration   time.Duration
	Cached     bool
}

// JSON decodes the response body into v
func (r *Response) JSON(v interface{}) error {
	if len(r.RawBody) == 0 {
		return errors.InternalError("empty response body", nil)
	}
	if err := json.Unmarshal(r.RawBody, v); err != nil {
		return errors.InternalError("failed to decode response body", err)
	}
	return nil
}

// HTTPClientWrapper wraps http.Client with retry, breaker, cache and rate limiting
type HTTPClientWrapper struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.GoBreakerAdapter
	retryConfig    *RetryConfig
	cache          cache.Cache
	cacheConfig    *CacheConfig
	rateLimiter    ratelimit.Limiter
	logger         logging.Logger
}

// NewHTTPClientWrapper creates a wrapped HTTP client with default retries
func NewHTTPClientWrapper(opts ...ClientOption) *HTTPClientWrapper {
	return &HTTPClientWrapper{
		client:      NewHTTPClient(opts...),
		retryConfig: DefaultRetryConfig(),
		logger:      logging.Component("http_client"),
	}
}

// WithCircuitBreaker adds circuit breaker integration
func (w *HTTPClientWrapper) WithCircuitBreaker(name string, config circuitbreaker.Config) *HTTPClientWrapper {
	w.circuitBreaker = circuitbreaker.NewGoBreaker(name, config, w.logger)
	return w
}

// WithRetryConfig sets custom retry configuration
func (w *HTTPClientWrapper) WithRetryConfig(config *RetryConfig) *HTTPClientWrapper {
	if config != nil {
		w.retryConfig = config
	}
	return w
}

// WithCache enables caching with the provided cache instance
func (w *HTTPClientWrapper) WithCache(c cache.Cache, config *CacheConfig) *HTTPClientWrapper {
	w.cache = c
	w.cacheConfig = config
	if w.cacheConfig == nil {
		w.cacheConfig = DefaultCacheConfig()
	}
	return w
}

// WithRateLimiter adds rate limiting
func (w *HTTPClientWrapper) WithRateLimiter(limiter ratelimit.Limiter) *HTTPClientWrapper {
	w.rateLimiter = limiter
	return w
}

// WithLogger replaces the logger
func (w *HTTPClientWrapper) WithLogger(logger logging.Logger) *HTTPClientWrapper {
	if logger != nil {
		w.logger = logger
	}
	return w
}

// InvalidateCache drops the cached response for a GET of url
func (w *HTTPClientWrapper) InvalidateCache(ctx context.Context, url string) {
	if w.cache == nil {
		return
	}
	_ = w.cache.Delete(ctx, cacheKey(http.MethodGet, url))
}

// Request performs an HTTP request with the configured policies
func (w *HTTPClientWrapper) Request(ctx context.Context, opts *RequestOptions) (*Response, error) {
	ctx = ensureRequestID(ctx)
	logger := w.logger.WithContext(ctx)

	if w.rateLimiter != nil {
		if err := w.rateLimiter.Wait(ctx); err != nil {
			return nil, errors.RateLimitError(opts.URL)
		}
	}

	useCache := w.shouldCache(opts)
	if useCache {
		if resp, ok := w.lookupCache(ctx, opts); ok {
			logger.Debug("HTTP cache hit", logging.String("url", opts.URL))
			return resp, nil
		}
	}

	bodyBytes, err := readRequestBody(opts.Body)
	if err != nil {
		return nil, errors.InternalError("failed to read request body", err)
	}

	policy := w.retryConfig.policy()
	if !idempotent(opts.Method) {
		// sent exactly once
		policy.MaxAttempts = 1
	}

	var response *Response
	err = utils.RetryWithBackoff(ctx, policy, func() error {
		var reqErr error
		response, reqErr = w.executeRequest(ctx, opts, bodyBytes)
		if reqErr != nil {
			logger.Debug("HTTP attempt failed",
				logging.String("method", opts.Method),
				logging.String("url", opts.URL),
				logging.Err(reqErr),
			)
		}
		return reqErr
	})
	if err != nil {
		return response, err
	}

	if useCache {
		if cacheErr := w.cache.Set(ctx, cacheKey(opts.Method, opts.URL), string(response.RawBody), w.cacheConfig.TTL); cacheErr != nil {
			logger.Warn("Failed to cache HTTP response",
				logging.Err(cacheErr),
				logging.String("url", opts.URL))
		}
	}

	return response, nil
}

func (w *HTTPClientWrapper) executeRequest(ctx context.Context, opts *RequestOptions, bodyBytes []byte) (*Response, error) {
	start := time.Now()

	var bodyReader io.Reader
	if bodyBytes != nil {
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, opts.Method, opts.URL, bodyReader)
	if err != nil {
		return nil, errors.InternalError("failed to create request", err)
	}
	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}
	if id, ok := ctx.Value(logging.RequestIDKey).(string); ok {
		req.Header.Set(RequestIDHeader, id)
	}

	var resp *http.Response
	do := func() error {
		var doErr error
		resp, doErr = w.client.Do(req)
		if doErr != nil {
			return errors.ConnectionError(fmt.Sprintf("%s %s failed", opts.Method, opts.URL), doErr)
		}
		return nil
	}
	if w.circuitBreaker != nil {
		err = w.circuitBreaker.Execute(ctx, do)
	} else {
		err = do()
	}
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.ConnectionError("failed to read response body", err)
	}

	headers := make(map[string]string, len(resp.Header))
	for name, values := range resp.Header {
		if len(values) > 0 {
			headers[name] = values[0]
		}
	}

	response := &Response{
		StatusCode: resp.StatusCode,
		Headers:    headers,
		RawBody:    responseBody,
		Duration:   time.Since(start),
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return response, nil
	}
	return response, errors.HTTPStatusError(resp.StatusCode, errorDetail(responseBody))
}

func (w *HTTPClientWrapper) shouldCache(opts *RequestOptions) bool {
	return opts.Cacheable && opts.Method == http.MethodGet &&
		w.cache != nil && w.cacheConfig != nil && w.cacheConfig.Enabled
}

// lookupCache accepts string and []byte entries so local and Redis tiers
// decode the same way.
func (w *HTTPClientWrapper) lookupCache(ctx context.Context, opts *RequestOptions) (*Response, bool) {
	cached, found := w.cache.Get(ctx, cacheKey(opts.Method, opts.URL))
	if !found {
		return nil, false
	}

	var body []byte
	switch v := cached.(type) {
	case string:
		body = []byte(v)
	case []byte:
		body = v
	default:
		return nil, false
	}
	return &Response{StatusCode: http.StatusOK, RawBody: body, Cached: true}, true
}

// GetCircuitBreaker returns the circuit breaker for monitoring
func (w *HTTPClientWrapper) GetCircuitBreaker() *circuitbreaker.GoBreakerAdapter {
	return w.circuitBreaker
}

// Transport failures and server-side conditions are worth another attempt;
// client errors are not.
func isRetryableError(err error) bool {
	switch errors.GetType(err) {
	case errors.ErrTypeConnection, errors.ErrTypeInternal, errors.ErrTypeTimeout, errors.ErrTypeRateLimit:
		return true
	}
	return false
}

// idempotent methods are safe to resend after an ambiguous failure
func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

func readRequestBody(body io.Reader) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	return io.ReadAll(body)
}

// errorDetail extracts the "detail" field of a JSON error body when present
func errorDetail(body []byte) string {
	var payload struct {
		Detail interface{} `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Detail != nil {
		if s, ok := payload.Detail.(string); ok {
			return s
		}
		if b, err := json.Marshal(payload.Detail); err == nil {
			return string(b)
		}
	}
	if len(body) > 512 {
		body = body[:512]
	}
	return string(body)
}

func ensureRequestID(ctx context.Context) context.Context {
	if id, ok := ctx.Value(logging.RequestIDKey).(string); ok && id != "" {
		return ctx
	}
	return logging.ContextWith(ctx, logging.RequestIDKey, uuid.NewString())
}

func cacheKey(method, url string) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte(url))
	return "http:" + hex.EncodeToString(h.Sum(nil))
}
