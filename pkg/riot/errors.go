package riot

import (
	"errors"
	"fmt"
)

// ErrorType classifies upstream API failures for retry logic.
type ErrorType int8

const (
	// Retryable error types.

	// ErrorTypeRateLimit represents a 429 response.
	ErrorTypeRateLimit ErrorType = iota
	// ErrorTypeServiceUnavailable represents 5xx responses.
	ErrorTypeServiceUnavailable
	// ErrorTypeTransport represents connection-level failures (timeout,
	// refused, reset).
	ErrorTypeTransport
	// ErrorTypeRateLimiter represents local permit acquisition failure,
	// worth retrying once the limit windows roll over.
	ErrorTypeRateLimiter

	// Non-retryable error types.

	// ErrorTypeAuthentication represents 401/403 (bad or expired API key).
	ErrorTypeAuthentication
	// ErrorTypeNotFound represents 404.
	ErrorTypeNotFound
	// ErrorTypeBadRequest represents 400.
	ErrorTypeBadRequest
	// ErrorTypeDecode represents a 200 body that failed to parse.
	ErrorTypeDecode
	// ErrorTypeAPI represents any other unexpected status.
	ErrorTypeAPI
)

// String returns the string representation of the error type.
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeRateLimit:
		return "rate_limit"
	case ErrorTypeServiceUnavailable:
		return "service_unavailable"
	case ErrorTypeTransport:
		return "transport"
	case ErrorTypeAuthentication:
		return "authentication"
	case ErrorTypeNotFound:
		return "not_found"
	case ErrorTypeBadRequest:
		return "bad_request"
	case ErrorTypeDecode:
		return "decode"
	case ErrorTypeRateLimiter:
		return "rate_limiter"
	case ErrorTypeAPI:
		return "api"
	default:
		return "invalid"
	}
}

// Error is a classified upstream API failure.
type Error struct {
	Err     error
	Message string
	Type    ErrorType
	Status  int
}

func (e *Error) Error() string {
	switch {
	case e.Status != 0 && e.Message != "":
		return fmt.Sprintf("%s error (status %d): %s", e.Type, e.Status, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("%s error (status %d)", e.Type, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s error: %v", e.Type, e.Err)
	default:
		return fmt.Sprintf("%s error: %s", e.Type, e.Message)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the request should be attempted again after a
// backoff delay.
func (e *Error) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeRateLimit, ErrorTypeServiceUnavailable, ErrorTypeTransport, ErrorTypeRateLimiter:
		return true
	case ErrorTypeAPI:
		return e.Status == 429 || e.Status == 500 || e.Status == 502 ||
			e.Status == 503 || e.Status == 504
	default:
		return false
	}
}

// IsNotFound reports whether the error is a 404. Callers use this to skip
// vanished resources without burning retries.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Type == ErrorTypeNotFound
}
