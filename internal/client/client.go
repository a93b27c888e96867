// Package client is the REST client for the pipeline backend: datasets, the
// function registry, analyses and their artifacts, runs and saved graphs.
//
// Every call goes through the shared HTTP wrapper, so retries, the circuit
// breaker, rate limiting and request ids apply uniformly. Only the function
// registry is cached.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pipeline-builder/internal/circuitbreaker"
	"pipeline-builder/internal/common/cache"
	"pipeline-builder/internal/common/errors"
	commonhttp "pipeline-builder/internal/common/http"
	"pipeline-builder/internal/common/logging"
	"pipeline-builder/internal/common/ratelimit"
)

// Options configure a Client. Zero values fall back to the wrapper defaults.
type Options struct {
	BaseURL        string
	Timeout        time.Duration
	Retry          *commonhttp.RetryConfig
	CircuitBreaker *circuitbreaker.Config
	RateLimiter    ratelimit.Limiter
	Cache          cache.Cache
	CacheTTL       time.Duration
	Transport      http.RoundTripper
	Logger         logging.Logger
}

// Client talks to one backend
type Client struct {
	baseURL string
	http    *commonhttp.HTTPClientWrapper
	logger  logging.Logger
}

// New creates a client for opts.BaseURL
func New(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Component("api_client")
	}

	clientOpts := []commonhttp.ClientOption{}
	if opts.Timeout > 0 {
		clientOpts = append(clientOpts, commonhttp.WithTimeout(opts.Timeout))
	}
	if opts.Transport != nil {
		clientOpts = append(clientOpts, commonhttp.WithTransport(opts.Transport))
	}

	wrapper := commonhttp.NewHTTPClientWrapper(clientOpts...).
		WithLogger(logger).
		WithRetryConfig(opts.Retry)
	if opts.CircuitBreaker != nil {
		wrapper = wrapper.WithCircuitBreaker("backend", *opts.CircuitBreaker)
	}
	if opts.RateLimiter != nil {
		wrapper = wrapper.WithRateLimiter(opts.RateLimiter)
	}
	if opts.Cache != nil {
		cacheConfig := commonhttp.DefaultCacheConfig()
		if opts.CacheTTL > 0 {
			cacheConfig.TTL = opts.CacheTTL
		}
		wrapper = wrapper.WithCache(opts.Cache, cacheConfig)
	}

	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    wrapper,
		logger:  logger,
	}
}

// BaseURL returns the backend address the client was built for
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Breaker exposes the circuit breaker, nil when disabled
func (c *Client) Breaker() *circuitbreaker.GoBreakerAdapter {
	return c.http.GetCircuitBreaker()
}

type call struct {
	method    string
	path      string
	query     url.Values
	body      io.Reader
	headers   map[string]string
	cacheable bool
}

func (c *Client) url(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) do(ctx context.Context, req call) (*commonhttp.Response, error) {
	resp, err := c.http.Request(ctx, &commonhttp.RequestOptions{
		Method:    req.method,
		URL:       c.url(req.path, req.query),
		Body:      req.body,
		Headers:   req.headers,
		Cacheable: req.cacheable,
	})
	if err != nil {
		c.logger.WithContext(ctx).Warn("Backend request failed",
			logging.String("method", req.method),
			logging.String("path", req.path),
			logging.Err(err))
		return resp, err
	}
	return resp, nil
}

// getJSON performs a GET and decodes the body into out
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, cacheable bool, out interface{}) error {
	resp, err := c.do(ctx, call{method: http.MethodGet, path: path, query: query, cacheable: cacheable})
	if err != nil {
		return err
	}
	return resp.JSON(out)
}

// sendJSON encodes in as the request body and decodes the response into out
func (c *Client) sendJSON(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return errors.InternalError("failed to encode request body", err)
		}
		body = bytes.NewReader(payload)
	}

	resp, err := c.do(ctx, call{
		method:  method,
		path:    path,
		body:    body,
		headers: map[string]string{"Content-Type": "application/json"},
	})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return resp.JSON(out)
}

func escape(id string) string {
	return url.PathEscape(id)
}
