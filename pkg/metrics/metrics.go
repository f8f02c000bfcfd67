// Package metrics derives rate and projection figures from an observed
// session. The calculator is a pure function of the session, its entries
// and a wall-clock instant, so every cycle recomputes from scratch and
// results carry no state between calls.
package metrics

import (
	"time"

	"github.com/0xmhha/usage-monitor/pkg/parser"
	"github.com/0xmhha/usage-monitor/pkg/session"
)

// epsilon is the rate below which depletion is treated as unbounded.
const epsilon = 1e-9

// windowMinutes is the session window length in minutes.
var windowMinutes = session.Window.Minutes()

// Metrics holds the derived figures for one session at one instant.
type Metrics struct {
	// UsageRate is the consumption rate in tokens per minute.
	UsageRate float64 `json:"usage_rate"`

	// SessionProgress is how far through the window the session is,
	// clamped to [0, 1].
	SessionProgress float64 `json:"session_progress"`

	// EfficiencyScore compares the budgeted rate against the actual
	// rate, clamped to [0, 1]. A score of 1.0 means consumption is at
	// or under budget.
	EfficiencyScore float64 `json:"efficiency_score"`

	// ProjectedDepletion is when the limit runs out at the current
	// rate. Nil means unbounded (no measurable consumption). A
	// depleted session projects to the calculation instant.
	ProjectedDepletion *time.Time `json:"projected_depletion,omitempty"`

	// TokensRemaining is the headroom left under the limit, floored
	// at zero.
	TokensRemaining int `json:"tokens_remaining"`

	// CacheHitRate is the fraction of prompt reads served from cache,
	// in [0, 1].
	CacheHitRate float64 `json:"cache_hit_rate"`

	// CacheCreationRate is cache creation tokens per minute.
	CacheCreationRate float64 `json:"cache_creation_rate"`
}

// Calculate computes the metrics for a session.
//
// Parameters:
//   - sess: The observed session
//   - entries: The entries inside the session window
//   - now: Wall-clock time of the calculation
//
// Returns:
//   - Derived metrics for this instant
func Calculate(sess session.ObservedSession, entries []parser.UsageEntry, now time.Time) Metrics {
	// Floor elapsed time at one minute so rates stay finite right
	// after the window opens.
	minutes := now.Sub(sess.StartTime).Minutes()
	if minutes < 1 {
		minutes = 1
	}

	rate := float64(sess.TokensUsed) / minutes

	progress := clamp01(now.Sub(sess.StartTime).Minutes() / windowMinutes)

	expectedRate := float64(sess.TokensLimit) / windowMinutes
	efficiency := 1.0
	if rate > 0 {
		efficiency = clamp01(expectedRate / rate)
	}

	remaining := sess.TokensLimit - sess.TokensUsed
	if remaining < 0 {
		remaining = 0
	}

	m := Metrics{
		UsageRate:          rate,
		SessionProgress:    progress,
		EfficiencyScore:    efficiency,
		ProjectedDepletion: projectDepletion(sess, rate, now),
		TokensRemaining:    remaining,
	}

	m.CacheHitRate, m.CacheCreationRate = cacheStats(entries, minutes)

	return m
}

// projectDepletion estimates when the limit runs out. Returns nil when
// the rate is too small to project, and now when already depleted.
func projectDepletion(sess session.ObservedSession, rate float64, now time.Time) *time.Time {
	if sess.TokensUsed >= sess.TokensLimit {
		depleted := now
		return &depleted
	}
	if rate <= epsilon {
		return nil
	}

	minutesLeft := float64(sess.TokensLimit-sess.TokensUsed) / rate
	at := now.Add(time.Duration(minutesLeft * float64(time.Minute)))
	return &at
}

// cacheStats sums cache token fields over the window's entries. The
// hit-rate denominator is floored at one so entry sets with no prompt
// traffic report zero instead of NaN.
func cacheStats(entries []parser.UsageEntry, minutes float64) (hitRate, creationRate float64) {
	var input, cacheRead, cacheCreation int
	for _, entry := range entries {
		input += entry.InputTokens
		cacheRead += entry.CacheReadTokens
		cacheCreation += entry.CacheCreationTokens
	}

	denom := input + cacheRead
	if denom < 1 {
		denom = 1
	}

	return float64(cacheRead) / float64(denom), float64(cacheCreation) / minutes
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
