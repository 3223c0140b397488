// Package quota tracks the remote quota reported by GitHub rate-limit
// response headers and owns the per-run call budget. Budget state is
// deliberately run-scoped: one Budget belongs to one run, so repeated or
// concurrent runs within a process stay independent.
package quota

import (
	"net/http"
	"strconv"
	"time"
)

// GitHub rate-limit response headers.
const (
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderLimit     = "X-RateLimit-Limit"
	HeaderReset     = "X-RateLimit-Reset"
)

// LowRemainingThreshold triggers a warning when the remote-reported
// remaining quota falls below it.
const LowRemainingThreshold = 5

// State is a snapshot of the remote rate-limit window, parsed from
// response headers after each call.
type State struct {
	// Remaining is the number of calls left in the current window.
	Remaining int

	// Limit is the total calls allowed per window.
	Limit int

	// ResetAt is when the window resets (header value is a Unix timestamp).
	ResetAt time.Time

	// ObservedAt is when this snapshot was taken.
	ObservedAt time.Time
}

// ParseHeaders extracts rate-limit state from response headers.
// Returns ok=false when the headers are absent (non-API responses).
func ParseHeaders(h http.Header) (*State, bool) {
	remainStr := h.Get(HeaderRemaining)
	if remainStr == "" {
		return nil, false
	}

	remaining, err := strconv.Atoi(remainStr)
	if err != nil {
		return nil, false
	}

	state := &State{
		Remaining:  remaining,
		ObservedAt: time.Now(),
	}

	if limitStr := h.Get(HeaderLimit); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			state.Limit = limit
		}
	}

	if resetStr := h.Get(HeaderReset); resetStr != "" {
		if resetUnix, err := strconv.ParseInt(resetStr, 10, 64); err == nil {
			state.ResetAt = time.Unix(resetUnix, 0)
		}
	}

	return state, true
}

// Exhausted returns true when the remote window has no calls left.
func (s *State) Exhausted() bool {
	return s.Remaining <= 0
}

// Low returns true when the remaining quota is below the warning threshold.
func (s *State) Low() bool {
	return s.Remaining < LowRemainingThreshold && !s.Exhausted()
}

// TimeUntilReset returns the duration until the quota window resets.
// Returns 0 if the reset time has already passed or is unknown.
func (s *State) TimeUntilReset() time.Duration {
	if s.ResetAt.IsZero() {
		return 0
	}
	duration := time.Until(s.ResetAt)
	if duration < 0 {
		return 0
	}
	return duration
}
