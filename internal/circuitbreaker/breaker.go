// Package circuitbreaker stops the builder from hammering a pipeline backend
// that keeps failing. It wraps sony/gobreaker and reports rejections as
// connection errors.
package circuitbreaker

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"pipeline-builder/internal/common/errors"
	"pipeline-builder/internal/common/logging"
)

type Config struct {
	// MaxFailures consecutive server-side failures open the circuit
	MaxFailures int
	// Timeout is how long an open circuit waits before probing again
	Timeout time.Duration
	// MaxConcurrentRequests bounds the probes let through while half-open
	MaxConcurrentRequests int
}

func DefaultConfig() Config {
	return Config{MaxFailures: 3, Timeout: 30 * time.Second, MaxConcurrentRequests: 2}
}

func (c Config) Validate() error {
	switch {
	case c.MaxFailures <= 0:
		return fmt.Errorf("MaxFailures must be positive, got %d", c.MaxFailures)
	case c.Timeout <= 0:
		return fmt.Errorf("Timeout must be positive, got %v", c.Timeout)
	case c.MaxConcurrentRequests <= 0:
		return fmt.Errorf("MaxConcurrentRequests must be positive, got %d", c.MaxConcurrentRequests)
	}
	return nil
}

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// GoBreakerAdapter guards one backend
type GoBreakerAdapter struct {
	name    string
	breaker *gobreaker.CircuitBreaker
}

// NewGoBreaker builds a breaker named after the backend it guards. An invalid
// config is logged and replaced by DefaultConfig.
func NewGoBreaker(name string, config Config, logger logging.Logger) *GoBreakerAdapter {
	if logger == nil {
		logger = logging.Component("circuitbreaker")
	}
	if err := config.Validate(); err != nil {
		logger.Warn("invalid circuit breaker config, using defaults",
			logging.String("breaker", name), logging.Err(err))
		config = DefaultConfig()
	}

	trip := uint32(config.MaxFailures)
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: uint32(config.MaxConcurrentRequests),
		Interval:    time.Minute,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= trip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			fields := []logging.Field{
				logging.String("breaker", name),
				logging.String("from", from.String()),
				logging.String("to", to.String()),
			}
			if to == gobreaker.StateOpen {
				logger.Warn("backend calls suspended", fields...)
				return
			}
			logger.Info("circuit breaker state changed", fields...)
		},
		IsSuccessful: countsAsSuccess,
	})

	return &GoBreakerAdapter{name: name, breaker: cb}
}

// countsAsSuccess treats client errors as proof the backend is up
func countsAsSuccess(err error) bool {
	switch errors.GetType(err) {
	case errors.ErrTypeValidation, errors.ErrTypeNotFound, errors.ErrTypePrecondition:
		return true
	}
	return err == nil
}

// Execute runs fn unless the circuit rejects the call, in which case fn is
// not invoked and a connection error comes back
func (g *GoBreakerAdapter) Execute(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := g.breaker.Execute(func() (interface{}, error) { return nil, fn() })
	switch {
	case stderrors.Is(err, gobreaker.ErrOpenState):
		return errors.ConnectionError(fmt.Sprintf("circuit breaker '%s' is open", g.name), err)
	case stderrors.Is(err, gobreaker.ErrTooManyRequests):
		return errors.ConnectionError(fmt.Sprintf("circuit breaker '%s' has too many requests", g.name), err)
	}
	return err
}

func (g *GoBreakerAdapter) Name() string { return g.name }

func (g *GoBreakerAdapter) State() State {
	switch g.breaker.State() {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	}
	return StateClosed
}

func (g *GoBreakerAdapter) IsOpen() bool { return g.State() == StateOpen }

func (g *GoBreakerAdapter) Counts() gobreaker.Counts { return g.breaker.Counts() }
