package riot

import (
	"fmt"
	"testing"
)

func TestErrorRetryability(t *testing.T) {
	cases := []struct {
		typ    ErrorType
		status int
		want   bool
	}{
		{ErrorTypeRateLimit, 429, true},
		{ErrorTypeServiceUnavailable, 503, true},
		{ErrorTypeTransport, 0, true},
		{ErrorTypeRateLimiter, 0, true},
		{ErrorTypeAuthentication, 403, false},
		{ErrorTypeNotFound, 404, false},
		{ErrorTypeBadRequest, 400, false},
		{ErrorTypeDecode, 0, false},
		{ErrorTypeAPI, 418, false},
		{ErrorTypeAPI, 502, true},
	}
	for _, tc := range cases {
		err := &Error{Type: tc.typ, Status: tc.status}
		if got := err.IsRetryable(); got != tc.want {
			t.Errorf("IsRetryable(%s, status %d) = %v, want %v", tc.typ, tc.status, got, tc.want)
		}
	}
}

func TestIsNotFoundUnwraps(t *testing.T) {
	inner := &Error{Type: ErrorTypeNotFound, Status: 404}
	if !IsNotFound(inner) {
		t.Error("expected direct 404 to match")
	}
	if !IsNotFound(fmt.Errorf("fetch failed: %w", inner)) {
		t.Error("expected wrapped 404 to match")
	}
	if IsNotFound(&Error{Type: ErrorTypeBadRequest, Status: 400}) {
		t.Error("400 must not match")
	}
}
