// Package ratelimit tracks the GitHub REST API rate limit as reported by the
// X-RateLimit-* response headers.
//
// The tracker only observes. It never delays or blocks a request; its state
// feeds warnings and the failure diagnostic.
package ratelimit

import (
	"time"
)

// GitHub rate limit response headers.
const (
	HeaderLimit     = "X-RateLimit-Limit"
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderUsed      = "X-RateLimit-Used"
	HeaderReset     = "X-RateLimit-Reset"
	HeaderResource  = "X-RateLimit-Resource"
)

// RemainingThresholdWarning logs a warning once remaining requests fall
// below this value.
const RemainingThresholdWarning = 10

// State is the rate limit window reported by the most recent response.
type State struct {
	// Limit is the maximum number of requests in the window.
	Limit int

	// Remaining is the number of requests left in the window.
	Remaining int

	// Used is the number of requests made in the window.
	Used int

	// ResetAt is when the window resets (X-RateLimit-Reset, epoch seconds).
	ResetAt time.Time

	// Resource is the rate limit bucket, e.g. "core".
	Resource string

	// LastUpdate is when this state was parsed.
	LastUpdate time.Time
}

// IsExhausted returns true if no requests are left in the window.
func (s *State) IsExhausted() bool {
	return s.Limit > 0 && s.Remaining <= 0
}

// IsLow returns true if remaining requests are below the warning threshold.
func (s *State) IsLow() bool {
	return s.Limit > 0 && s.Remaining < RemainingThresholdWarning
}

// TimeUntilReset returns the duration until the window resets.
// Returns 0 if the reset time has already passed.
func (s *State) TimeUntilReset() time.Duration {
	d := time.Until(s.ResetAt)
	if d < 0 {
		return 0
	}
	return d
}
