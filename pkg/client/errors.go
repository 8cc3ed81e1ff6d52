package client

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Sternrassler/star-sizes/pkg/ratelimit"
)

// StatusUnreachable is reported in place of an HTTP status when no response
// was received.
const StatusUnreachable = "000"

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429, or 403 with an exhausted rate limit.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassUnexpected represents non-error statuses other than 200 (e.g. 204, 304).
	ErrorClassUnexpected ErrorClass = "unexpected_status"
)

// TransportError is returned when a request produced no response at all
// (DNS, connect, TLS, timeout).
type TransportError struct {
	URL string
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("GitHub request failed (status %s): %s: %v", StatusUnreachable, e.URL, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Status returns the sentinel status code for unreachable requests.
func (e *TransportError) Status() string {
	return StatusUnreachable
}

// HTTPError is returned when a request completed with a status other than 200.
// Body and Header hold the raw response for diagnostics.
type HTTPError struct {
	StatusCode int
	Status     string
	Class      ErrorClass
	URL        string
	Body       []byte
	Header     http.Header
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("GitHub %s error (status %d): %s", e.Class, e.StatusCode, e.Message())
}

// Message returns the "message" field of a GitHub JSON error body, falling
// back to the status line.
func (e *HTTPError) Message() string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(e.Body, &body); err == nil && body.Message != "" {
		return body.Message
	}
	if e.Status != "" {
		return e.Status
	}
	return http.StatusText(e.StatusCode)
}

// RateLimit returns the rate limit state carried by the error response.
func (e *HTTPError) RateLimit() (ratelimit.State, bool) {
	state, ok, err := ratelimit.ParseHeaders(e.Header)
	if err != nil {
		return ratelimit.State{}, false
	}
	return state, ok
}

// classifyStatus categorizes a completed response for metrics and diagnostics.
func classifyStatus(statusCode int, header http.Header) ErrorClass {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case statusCode == http.StatusForbidden && quotaExhausted(header):
		return ErrorClassRateLimit
	case statusCode >= 400 && statusCode < 500:
		return ErrorClassClient
	case statusCode >= 500:
		return ErrorClassServer
	case statusCode == http.StatusOK:
		return ""
	default:
		return ErrorClassUnexpected
	}
}

// quotaExhausted reports whether header carries a rate limit window with no
// requests left. Malformed headers count as not exhausted.
func quotaExhausted(header http.Header) bool {
	state, ok, err := ratelimit.ParseHeaders(header)
	return err == nil && ok && state.IsExhausted()
}
