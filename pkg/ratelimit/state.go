// Package ratelimit tracks the storefront API request budget advertised via
// X-RateLimit-* response headers and gates requests before they are sent.
// Gating never retries or delays a request that was already issued; it only
// refuses to send new ones while the shared budget is critical.
package ratelimit

import (
	"time"
)

// Redis keys for rate limit state storage. The state is shared so every
// client process sees the same remaining budget.
const (
	RedisKeyRemaining      = "storefront:rate_limit:remaining"
	RedisKeyResetTimestamp = "storefront:rate_limit:reset_timestamp"
	RedisKeyLastUpdate     = "storefront:rate_limit:last_update"
)

// State represents the current request budget as last advertised by the
// storefront API.
type State struct {
	// Remaining is the number of requests left in the current window,
	// extracted from the X-RateLimit-Remaining header.
	Remaining int `json:"remaining"`

	// ResetAt is when the budget window resets, from the
	// X-RateLimit-Reset header (unix seconds).
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when this state was last written.
	LastUpdate time.Time `json:"last_update"`
}

// IsStale returns true if the state data is older than the given duration.
func (s *State) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// TimeUntilReset returns the duration until the budget window resets.
// Returns 0 if the reset time has already passed.
func (s *State) TimeUntilReset() time.Duration {
	duration := time.Until(s.ResetAt)
	if duration < 0 {
		return 0
	}
	return duration
}

// Expired reports whether the advertised window has already reset, in which
// case the remaining count no longer applies.
func (s *State) Expired() bool {
	return !s.ResetAt.IsZero() && time.Now().After(s.ResetAt)
}
