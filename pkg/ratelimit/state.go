// Package ratelimit implements an upstream error budget. Failed upstream calls
// are counted in a Redis window shared by every server instance; when the
// remaining budget runs low requests are throttled, and when it is nearly
// exhausted they are refused until the window resets.
package ratelimit

import (
	"errors"
	"time"
)

// RedisKeyErrors holds the failure counter for the current window.
const RedisKeyErrors = "catalog:upstream:errors"

// ErrBudgetExhausted is returned when the error budget blocks a request.
var ErrBudgetExhausted = errors.New("upstream error budget exhausted")

// Config sizes the error budget.
type Config struct {
	// Limit is the number of failures tolerated per window
	Limit int

	// Window is the counting window; it starts at the first failure
	Window time.Duration

	// CriticalRemaining blocks requests below this many remaining errors
	CriticalRemaining int

	// WarningRemaining throttles requests below this many remaining errors
	WarningRemaining int

	// ThrottleDelay is the pause applied while throttling
	ThrottleDelay time.Duration
}

// DefaultConfig returns the budget used by the server.
func DefaultConfig() Config {
	return Config{
		Limit:             100,
		Window:            60 * time.Second,
		CriticalRemaining: 5,
		WarningRemaining:  20,
		ThrottleDelay:     time.Second,
	}
}

// State is the current budget as seen from Redis.
type State struct {
	ErrorsRemaining int       `json:"errors_remaining"`
	ResetAt         time.Time `json:"reset_at"`
	IsHealthy       bool      `json:"is_healthy"`

	critical int
	warning  int
}

// NeedsCriticalBlock reports whether requests must be refused.
func (s *State) NeedsCriticalBlock() bool {
	return s.ErrorsRemaining < s.critical
}

// NeedsThrottling reports whether requests should be slowed down.
func (s *State) NeedsThrottling() bool {
	return s.ErrorsRemaining < s.warning && !s.NeedsCriticalBlock()
}

// TimeUntilReset returns the duration until the window resets, or 0.
func (s *State) TimeUntilReset() time.Duration {
	d := time.Until(s.ResetAt)
	if d < 0 {
		return 0
	}
	return d
}

func newState(cfg Config, failures int, resetIn time.Duration) *State {
	s := &State{
		ErrorsRemaining: cfg.Limit - failures,
		ResetAt:         time.Now().Add(resetIn),
		critical:        cfg.CriticalRemaining,
		warning:         cfg.WarningRemaining,
	}
	s.IsHealthy = s.ErrorsRemaining >= cfg.WarningRemaining
	return s
}
