// Package ratelimit throttles outgoing backend requests using golang.org/x/time/rate
package ratelimit

import "context"

// Limiter defines the interface for rate limiting
type Limiter interface {
	// Wait blocks until a request may proceed or ctx ends
	Wait(ctx context.Context) error
	// TryAcquire reports whether a request may proceed right now
	TryAcquire() bool
	// Stats returns a snapshot for diagnostics
	Stats() map[string]interface{}
}
