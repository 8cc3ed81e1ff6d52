package client

import (
	"errors"
	"net/http"
	"testing"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		limit      string
		remaining  string
		expected   ErrorClass
	}{
		{name: "success 200", statusCode: 200, expected: ""},
		{name: "no content 204", statusCode: 204, expected: ErrorClassUnexpected},
		{name: "not modified 304", statusCode: 304, expected: ErrorClassUnexpected},
		{name: "client error 401", statusCode: 401, expected: ErrorClassClient},
		{name: "client error 404", statusCode: 404, expected: ErrorClassClient},
		{name: "forbidden without rate limit headers", statusCode: 403, expected: ErrorClassClient},
		{name: "forbidden with quota left", statusCode: 403, limit: "60", remaining: "12", expected: ErrorClassClient},
		{name: "forbidden with exhausted quota", statusCode: 403, limit: "60", remaining: "0", expected: ErrorClassRateLimit},
		{name: "forbidden with zero remaining and no limit", statusCode: 403, remaining: "0", expected: ErrorClassClient},
		{name: "forbidden with malformed remaining", statusCode: 403, limit: "60", remaining: "none", expected: ErrorClassClient},
		{name: "too many requests 429", statusCode: 429, expected: ErrorClassRateLimit},
		{name: "server error 500", statusCode: 500, expected: ErrorClassServer},
		{name: "server error 503", statusCode: 503, expected: ErrorClassServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.limit != "" {
				h.Set("X-RateLimit-Limit", tt.limit)
			}
			if tt.remaining != "" {
				h.Set("X-RateLimit-Remaining", tt.remaining)
			}
			if result := classifyStatus(tt.statusCode, h); result != tt.expected {
				t.Errorf("classifyStatus() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestHTTPError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *HTTPError
		expected string
	}{
		{
			name: "json message",
			err: &HTTPError{
				StatusCode: 403,
				Status:     "403 Forbidden",
				Class:      ErrorClassRateLimit,
				Body:       []byte(`{"message":"API rate limit exceeded"}`),
			},
			expected: "GitHub rate_limit error (status 403): API rate limit exceeded",
		},
		{
			name: "non-json body falls back to status",
			err: &HTTPError{
				StatusCode: 502,
				Status:     "502 Bad Gateway",
				Class:      ErrorClassServer,
				Body:       []byte("<html>bad gateway</html>"),
			},
			expected: "GitHub server error (status 502): 502 Bad Gateway",
		},
		{
			name: "no status line",
			err: &HTTPError{
				StatusCode: 404,
				Class:      ErrorClassClient,
			},
			expected: "GitHub client error (status 404): Not Found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := tt.err.Error(); result != tt.expected {
				t.Errorf("Error() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestHTTPError_RateLimit(t *testing.T) {
	h := http.Header{}
	h.Set("X-RateLimit-Limit", "60")
	h.Set("X-RateLimit-Remaining", "0")
	h.Set("X-RateLimit-Reset", "1792411200")

	state, ok := (&HTTPError{StatusCode: 403, Header: h}).RateLimit()
	if !ok {
		t.Fatal("RateLimit() ok = false, want true")
	}
	if !state.IsExhausted() {
		t.Errorf("State %+v should be exhausted", state)
	}

	if _, ok := (&HTTPError{StatusCode: 500, Header: http.Header{}}).RateLimit(); ok {
		t.Error("RateLimit() without headers should report ok = false")
	}
}

func TestTransportError_Unwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := &TransportError{URL: "https://api.github.com/user/starred", Err: inner}

	if !errors.Is(err, inner) {
		t.Error("errors.Is should work with wrapped error")
	}
	expected := "GitHub request failed (status 000): https://api.github.com/user/starred: connection refused"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}
