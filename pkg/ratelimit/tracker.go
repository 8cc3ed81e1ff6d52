package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	rateLimitRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "github_rate_limit_remaining",
		Help: "Requests remaining in the current GitHub rate limit window",
	})

	rateLimitLowTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "github_rate_limit_low_total",
		Help: "Responses observed with remaining requests below the warning threshold",
	})
)

// Tracker records the rate limit state from response headers.
type Tracker struct {
	state  State
	known  bool
	logger zerolog.Logger
}

// NewTracker creates a new rate limit tracker.
func NewTracker(logger zerolog.Logger) *Tracker {
	return &Tracker{logger: logger}
}

// State returns the last observed state and whether any was observed.
func (t *Tracker) State() (State, bool) {
	return t.state, t.known
}

// UpdateFromHeaders parses the rate limit headers and stores the result.
// Responses without rate limit headers leave the state untouched.
func (t *Tracker) UpdateFromHeaders(headers http.Header) error {
	state, ok, err := ParseHeaders(headers)
	if err != nil || !ok {
		return err
	}

	t.state = state
	t.known = true
	rateLimitRemaining.Set(float64(state.Remaining))

	if state.IsLow() {
		rateLimitLowTotal.Inc()

		// An exhausted quota fails the request, which is reported by the caller.
		event := t.logger.Warn()
		if state.IsExhausted() {
			event = t.logger.Debug()
		}
		event.
			Int("remaining", state.Remaining).
			Int("limit", state.Limit).
			Time("reset_at", state.ResetAt).
			Msg("GitHub rate limit running low")
		return nil
	}

	t.logger.Debug().
		Int("remaining", state.Remaining).
		Int("limit", state.Limit).
		Str("resource", state.Resource).
		Msg("Rate limit state updated")
	return nil
}

// ParseHeaders extracts the rate limit state from response headers.
// ok is false when the response carries no X-RateLimit-Remaining header.
func ParseHeaders(headers http.Header) (state State, ok bool, err error) {
	remainStr := headers.Get(HeaderRemaining)
	if remainStr == "" {
		return State{}, false, nil
	}

	remaining, err := parseIntHeader(remainStr)
	if err != nil {
		return State{}, false, fmt.Errorf("parse %s header: %w", HeaderRemaining, err)
	}

	state = State{
		Remaining:  remaining,
		Resource:   headers.Get(HeaderResource),
		LastUpdate: time.Now(),
	}

	if v := headers.Get(HeaderLimit); v != "" {
		if state.Limit, err = parseIntHeader(v); err != nil {
			return State{}, false, fmt.Errorf("parse %s header: %w", HeaderLimit, err)
		}
	}
	if v := headers.Get(HeaderUsed); v != "" {
		if state.Used, err = parseIntHeader(v); err != nil {
			return State{}, false, fmt.Errorf("parse %s header: %w", HeaderUsed, err)
		}
	}
	if v := headers.Get(HeaderReset); v != "" {
		epoch, perr := strconv.ParseInt(v, 10, 64)
		if perr != nil {
			return State{}, false, fmt.Errorf("parse %s header: %w", HeaderReset, perr)
		}
		state.ResetAt = time.Unix(epoch, 0).UTC()
	}

	return state, true, nil
}

func parseIntHeader(v string) (int, error) {
	return strconv.Atoi(v)
}
