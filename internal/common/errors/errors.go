// Package errors holds the typed errors shared by the API client, the
// controllers and the draft stores. Callers branch on ErrorType with IsType
// rather than on messages.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
)

type ErrorType string

const (
	// transport failures: refused, reset, DNS, open circuit
	ErrTypeConnection ErrorType = "connection"
	// rejected input, including 4xx responses not classified below
	ErrTypeValidation ErrorType = "validation"
	ErrTypeConfig     ErrorType = "config"
	ErrTypeNotFound   ErrorType = "not_found"
	// 5xx responses and local faults
	ErrTypeInternal  ErrorType = "internal"
	ErrTypeTimeout   ErrorType = "timeout"
	ErrTypeRateLimit ErrorType = "rate_limit"
	// an action refused locally before any request was sent
	ErrTypePrecondition ErrorType = "precondition"
)

type AppError struct {
	Type    ErrorType              `json:"type"`
	Message string                 `json:"message"`
	Code    string                 `json:"code,omitempty"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error renders "type: message[: code=..][: cause=..][: context={k=v, ..}]"
// with context keys sorted
func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Type))
	b.WriteString(": ")
	b.WriteString(e.Message)

	if e.Code != "" {
		b.WriteString(": code=" + e.Code)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": cause=%v", e.Cause)
	}
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteString(": context={")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%v", k, e.Context[k])
		}
		b.WriteString("}")
	}
	return b.String()
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext records key=value on e and returns e
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = map[string]interface{}{}
	}
	e.Context[key] = value
	return e
}

func newError(t ErrorType, msg string, cause error) *AppError {
	return &AppError{Type: t, Message: msg, Cause: cause}
}

func ConnectionError(msg string, cause error) *AppError {
	return newError(ErrTypeConnection, msg, cause)
}

func InternalError(msg string, cause error) *AppError {
	return newError(ErrTypeInternal, msg, cause)
}

func ValidationError(msg string) *AppError   { return newError(ErrTypeValidation, msg, nil) }
func ConfigError(msg string) *AppError       { return newError(ErrTypeConfig, msg, nil) }
func PreconditionError(msg string) *AppError { return newError(ErrTypePrecondition, msg, nil) }

func NotFoundError(resource string) *AppError {
	return newError(ErrTypeNotFound, resource+" not found", nil)
}

func TimeoutError(operation string) *AppError {
	return newError(ErrTypeTimeout, "timeout during "+operation, nil)
}

func RateLimitError(resource string) *AppError {
	return newError(ErrTypeRateLimit, "rate limit exceeded for "+resource, nil)
}

// HTTPStatusError classifies a non-2xx backend response. The status code is
// kept in Code and a non-blank body is appended to the message.
func HTTPStatusError(status int, body string) *AppError {
	msg := "HTTP " + strconv.Itoa(status)
	if body = strings.TrimSpace(body); body != "" {
		msg += ": " + body
	}

	t := ErrTypeValidation
	switch {
	case status == http.StatusNotFound:
		t = ErrTypeNotFound
	case status == http.StatusTooManyRequests:
		t = ErrTypeRateLimit
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		t = ErrTypeTimeout
	case status >= http.StatusInternalServerError:
		t = ErrTypeInternal
	}

	err := newError(t, msg, nil)
	err.Code = strconv.Itoa(status)
	return err
}

// IsType reports whether err wraps an AppError of type t
func IsType(err error, t ErrorType) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr) && appErr.Type == t
}

// GetType returns the type of the AppError wrapped by err. Plain errors are
// internal; nil has no type.
func GetType(err error) ErrorType {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrTypeInternal
}
