package session

import (
	"time"

	"github.com/0xmhha/usage-monitor/pkg/logger"
	"github.com/0xmhha/usage-monitor/pkg/parser"
)

// Engine converts the ordered, deduplicated entry stream into the
// current observed session. The engine itself is stateless; each
// Derive call recomputes from scratch, so repeated passes over
// unchanged data are idempotent.
type Engine struct {
	config Config
	logger logger.Logger
}

// NewEngine creates a derivation engine.
func NewEngine(cfg Config, log logger.Logger) *Engine {
	return &Engine{
		config: cfg.withDefaults(),
		logger: log,
	}
}

// Derive runs one derivation cycle.
//
// Parameters:
//   - entries: Deduplicated entries in ascending timestamp order
//   - now: Wall-clock time of this cycle
//
// Returns:
//   - The current session and the entries inside its window
//   - (nil, nil) when no qualifying entries exist (Inactive state)
//
// The window anchors on the most recent entry: every entry within
// Window of it is included, and the window start is the earliest
// included entry's timestamp rounded down to the configured
// granularity. The included set is exactly the entries falling in
// [StartTime, StartTime+Window).
func (e *Engine) Derive(entries []parser.UsageEntry, now time.Time) (*ObservedSession, []parser.UsageEntry) {
	eligible := e.eligible(entries, now)
	if len(eligible) == 0 {
		return nil, nil
	}

	latest := eligible[len(eligible)-1]

	// Scan backward from the most recent entry: everything within
	// Window of it belongs to the trailing window.
	trailingStart := latest.Timestamp.Add(-Window)
	earliest := latest
	for i := len(eligible) - 1; i >= 0; i-- {
		if !eligible[i].Timestamp.After(trailingStart) {
			break
		}
		earliest = eligible[i]
	}

	start := earliest.Timestamp.Truncate(e.config.Granularity)

	// Rounding must never push the most recent entry outside the
	// half-open window; fall back to the exact timestamp when the
	// trailing window is too full.
	if !latest.Timestamp.Before(start.Add(Window)) {
		start = earliest.Timestamp
	}

	reset := start.Add(Window)

	included := make([]parser.UsageEntry, 0, len(eligible))
	tokens := 0
	for _, entry := range eligible {
		if entry.Timestamp.Before(start) || !entry.Timestamp.Before(reset) {
			continue
		}
		included = append(included, entry)
		tokens += entry.TotalTokens()
	}

	plan := e.detectPlan(tokens, len(included))

	active := now.Before(reset)

	sess := &ObservedSession{
		ID:          SessionID(start),
		PlanType:    plan,
		TokensUsed:  tokens,
		TokensLimit: e.config.limitFor(plan),
		StartTime:   start,
		ResetTime:   reset,
		IsActive:    active,
	}
	if !active {
		end := reset
		sess.EndTime = &end
	}

	return sess, included
}

// eligible drops entries whose timestamps lie beyond the clock-skew
// tolerance. Such entries are excluded from window math but stay in
// the source files for audit.
func (e *Engine) eligible(entries []parser.UsageEntry, now time.Time) []parser.UsageEntry {
	horizon := now.Add(e.config.SkewTolerance)

	eligible := make([]parser.UsageEntry, 0, len(entries))
	skipped := 0

	for _, entry := range entries {
		if entry.Timestamp.After(horizon) {
			skipped++
			continue
		}
		eligible = append(eligible, entry)
	}

	if skipped > 0 {
		e.logger.Warn("excluding future-dated entries from window math",
			"count", skipped,
			"tolerance", e.config.SkewTolerance)
	}

	return eligible
}

// detectPlan infers the plan from observed volume when no hint is
// configured. Thresholds follow observed usage patterns: heavy volume
// implies a larger plan.
func (e *Engine) detectPlan(tokens, count int) PlanType {
	if e.config.PlanHint.Valid() {
		return e.config.PlanHint
	}

	switch {
	case tokens > 20_000:
		return PlanMax20
	case tokens > 10_000 || count > 20:
		return PlanPro
	default:
		return PlanMax5
	}
}

// Close marks a superseded session as ended. The returned record is
// final: EndTime is its ResetTime and it must not be mutated again.
func Close(s ObservedSession) ObservedSession {
	s.IsActive = false
	end := s.ResetTime
	s.EndTime = &end
	return s
}
