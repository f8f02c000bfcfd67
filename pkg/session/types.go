// Package session derives a bounded "observed session" abstraction
// from the unbounded usage-entry stream and maintains the append-only
// history of past sessions.
//
// An observed session is a read-only approximation of a usage period
// inferred from log timestamps, not an authoritative session created by
// any external system. At most one session is current; prior sessions
// become immutable history entries.
package session

import (
	"strconv"
	"time"
)

// Window is the fixed session duration. All plans use 5-hour sessions.
const Window = 5 * time.Hour

// PlanType identifies a Claude plan and its default token limit.
type PlanType string

// Known plan types.
const (
	PlanPro    PlanType = "pro"
	PlanMax5   PlanType = "max5"
	PlanMax20  PlanType = "max20"
	PlanCustom PlanType = "custom"
)

// DefaultLimit returns the token limit for the plan. PlanCustom has no
// intrinsic limit; callers supply one through Config.CustomLimit.
func (p PlanType) DefaultLimit() int {
	switch p {
	case PlanPro:
		return 40_000
	case PlanMax5:
		return 20_000
	case PlanMax20:
		return 100_000
	default:
		return 0
	}
}

// Valid reports whether p is a known plan type.
func (p PlanType) Valid() bool {
	switch p {
	case PlanPro, PlanMax5, PlanMax20, PlanCustom:
		return true
	}
	return false
}

// ObservedSession is the derived current session. Rebuilt every
// derivation cycle; its ID persists across cycles as long as the
// window start is unchanged.
type ObservedSession struct {
	// ID is deterministically generated from the window start, so
	// repeated derivation over unchanged data reproduces the same
	// identity.
	ID string `json:"id"`

	// PlanType the session was attributed to (hint or auto-detected).
	PlanType PlanType `json:"plan_type"`

	// TokensUsed is the sum of all four token fields over the entries
	// inside the window. Monotonically non-decreasing while active.
	TokensUsed int `json:"tokens_used"`

	// TokensLimit is the plan's token budget.
	TokensLimit int `json:"tokens_limit"`

	// StartTime is the window start; ResetTime = StartTime + Window.
	StartTime time.Time `json:"start_time"`
	ResetTime time.Time `json:"reset_time"`

	// IsActive reports whether the current time is before ResetTime.
	IsActive bool `json:"is_active"`

	// EndTime is set once the session is superseded, after which the
	// record is never mutated.
	EndTime *time.Time `json:"end_time,omitempty"`
}

// SessionID derives the deterministic identity for a window start.
func SessionID(start time.Time) string {
	return "observed-" + strconv.FormatInt(start.Unix(), 10)
}

// Config contains derivation configuration. Passed explicitly into the
// engine so the pipeline stays independently testable (no process-wide
// state).
type Config struct {
	// PlanHint forces the plan type; empty means auto-detect from the
	// observed volume.
	PlanHint PlanType

	// CustomLimit is the token limit used when the plan (hinted or
	// detected) is PlanCustom.
	CustomLimit int

	// Granularity rounds the window start down. Default: 1 hour.
	Granularity time.Duration

	// SkewTolerance bounds how far in the future an entry timestamp
	// may be and still count for window math. Default: 5 minutes.
	SkewTolerance time.Duration
}

// withDefaults fills zero fields.
func (c Config) withDefaults() Config {
	if c.Granularity == 0 {
		c.Granularity = time.Hour
	}
	if c.SkewTolerance == 0 {
		c.SkewTolerance = 5 * time.Minute
	}
	return c
}

// limitFor resolves the token limit for a plan under this config.
func (c Config) limitFor(plan PlanType) int {
	if plan == PlanCustom && c.CustomLimit > 0 {
		return c.CustomLimit
	}
	return plan.DefaultLimit()
}
