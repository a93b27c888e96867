package http

import (
	"net/http"
	"time"

	"pipeline-builder/internal/common/utils"
)

// ClientConfig tunes the underlying net/http client
type ClientConfig struct {
	Timeout             time.Duration
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
	// Transport replaces the pooled transport, e.g. with an httptest one
	Transport http.RoundTripper
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:             30 * time.Second,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
}

type ClientOption func(*ClientConfig)

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *ClientConfig) { c.Timeout = timeout }
}

func WithMaxIdleConns(n int) ClientOption {
	return func(c *ClientConfig) { c.MaxIdleConns = n }
}

func WithTransport(transport http.RoundTripper) ClientOption {
	return func(c *ClientConfig) { c.Transport = transport }
}

// NewHTTPClient applies opts over DefaultClientConfig; nil options are skipped
func NewHTTPClient(opts ...ClientOption) *http.Client {
	cfg := DefaultClientConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	transport := cfg.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        cfg.MaxIdleConns,
			MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
			IdleConnTimeout:     cfg.IdleConnTimeout,
		}
	}
	return &http.Client{Timeout: cfg.Timeout, Transport: transport}
}

// RetryConfig is the backoff applied to each logical request. Only
// transport failures and server-side statuses are retried, and only for
// idempotent methods; a POST is always sent once.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	JitterFactor  float64
}

func DefaultRetryConfig() *RetryConfig {
	d := utils.DefaultRetryConfig()
	return &RetryConfig{
		MaxAttempts:   d.MaxAttempts,
		InitialDelay:  d.InitialDelay,
		MaxDelay:      d.MaxDelay,
		BackoffFactor: d.BackoffFactor,
		JitterFactor:  d.JitterFactor,
	}
}

// NoRetry sends every request exactly once
func NoRetry() *RetryConfig {
	return &RetryConfig{MaxAttempts: 1}
}

func (r *RetryConfig) policy() utils.RetryConfig {
	return utils.RetryConfig{
		MaxAttempts:     r.MaxAttempts,
		InitialDelay:    r.InitialDelay,
		MaxDelay:        r.MaxDelay,
		BackoffFactor:   r.BackoffFactor,
		JitterFactor:    r.JitterFactor,
		RetryableErrors: isRetryableError,
	}
}

// CacheConfig controls GET response caching. Only 2xx responses to requests
// marked Cacheable are stored.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{Enabled: true, TTL: 5 * time.Minute}
}
