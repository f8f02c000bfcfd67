package metrics

import (
	"math"
	"testing"
	"time"

	"github.com/0xmhha/usage-monitor/pkg/parser"
	"github.com/0xmhha/usage-monitor/pkg/session"
)

func testSession(start time.Time, used, limit int) session.ObservedSession {
	return session.ObservedSession{
		ID:          session.SessionID(start),
		PlanType:    session.PlanPro,
		TokensUsed:  used,
		TokensLimit: limit,
		StartTime:   start,
		ResetTime:   start.Add(session.Window),
		IsActive:    true,
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCalculateUsageRate(t *testing.T) {
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		used    int
		elapsed time.Duration
		want    float64
	}{
		{"steady rate", 6000, 60 * time.Minute, 100},
		{"half hour", 3000, 30 * time.Minute, 100},
		{"floor below one minute", 500, 10 * time.Second, 500},
		{"zero usage", 0, 60 * time.Minute, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := testSession(start, tt.used, 40_000)
			m := Calculate(sess, nil, start.Add(tt.elapsed))

			if !almostEqual(m.UsageRate, tt.want) {
				t.Errorf("UsageRate = %v, want %v", m.UsageRate, tt.want)
			}
		})
	}
}

func TestCalculateSessionProgress(t *testing.T) {
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		elapsed time.Duration
		want    float64
	}{
		{"start", 0, 0},
		{"halfway", 150 * time.Minute, 0.5},
		{"end", 5 * time.Hour, 1},
		{"past end clamps", 7 * time.Hour, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := testSession(start, 100, 40_000)
			m := Calculate(sess, nil, start.Add(tt.elapsed))

			if !almostEqual(m.SessionProgress, tt.want) {
				t.Errorf("SessionProgress = %v, want %v", m.SessionProgress, tt.want)
			}
		})
	}
}

func TestCalculateEfficiency(t *testing.T) {
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	// Expected rate for a 30 000 limit is 100 tokens/min.
	tests := []struct {
		name    string
		used    int
		elapsed time.Duration
		want    float64
	}{
		{"zero rate is fully efficient", 0, time.Hour, 1},
		{"on budget", 6000, time.Hour, 1},
		{"double budget", 12_000, time.Hour, 0.5},
		{"under budget clamps to one", 3000, time.Hour, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := testSession(start, tt.used, 30_000)
			m := Calculate(sess, nil, start.Add(tt.elapsed))

			if !almostEqual(m.EfficiencyScore, tt.want) {
				t.Errorf("EfficiencyScore = %v, want %v", m.EfficiencyScore, tt.want)
			}
		})
	}
}

func TestCalculateProjectedDepletion(t *testing.T) {
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	now := start.Add(time.Hour)

	t.Run("steady burn", func(t *testing.T) {
		// 100 tokens/min with 34 000 remaining projects 340 minutes out.
		sess := testSession(start, 6000, 40_000)
		m := Calculate(sess, nil, now)

		if m.ProjectedDepletion == nil {
			t.Fatal("ProjectedDepletion = nil, want projection")
		}
		want := now.Add(340 * time.Minute)
		if !m.ProjectedDepletion.Equal(want) {
			t.Errorf("ProjectedDepletion = %v, want %v", m.ProjectedDepletion, want)
		}
	})

	t.Run("zero rate is unbounded", func(t *testing.T) {
		sess := testSession(start, 0, 40_000)
		m := Calculate(sess, nil, now)

		if m.ProjectedDepletion != nil {
			t.Errorf("ProjectedDepletion = %v, want nil", m.ProjectedDepletion)
		}
	})

	t.Run("already depleted projects to now", func(t *testing.T) {
		sess := testSession(start, 40_000, 40_000)
		m := Calculate(sess, nil, now)

		if m.ProjectedDepletion == nil {
			t.Fatal("ProjectedDepletion = nil, want now")
		}
		if !m.ProjectedDepletion.Equal(now) {
			t.Errorf("ProjectedDepletion = %v, want %v", m.ProjectedDepletion, now)
		}
		if m.TokensRemaining != 0 {
			t.Errorf("TokensRemaining = %d, want 0", m.TokensRemaining)
		}
	})

	t.Run("over limit floors remaining at zero", func(t *testing.T) {
		sess := testSession(start, 45_000, 40_000)
		m := Calculate(sess, nil, now)

		if m.TokensRemaining != 0 {
			t.Errorf("TokensRemaining = %d, want 0", m.TokensRemaining)
		}
		if m.ProjectedDepletion == nil || !m.ProjectedDepletion.Equal(now) {
			t.Errorf("ProjectedDepletion = %v, want %v", m.ProjectedDepletion, now)
		}
	})
}

func TestCalculateCacheStats(t *testing.T) {
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	now := start.Add(10 * time.Minute)

	t.Run("mixed traffic", func(t *testing.T) {
		entries := []parser.UsageEntry{
			{InputTokens: 300, CacheReadTokens: 600, CacheCreationTokens: 50},
			{InputTokens: 100, CacheReadTokens: 0, CacheCreationTokens: 150},
		}
		sess := testSession(start, 1200, 40_000)
		m := Calculate(sess, entries, now)

		// 600 reads over 400 input + 600 reads.
		if !almostEqual(m.CacheHitRate, 0.6) {
			t.Errorf("CacheHitRate = %v, want 0.6", m.CacheHitRate)
		}
		// 200 creation tokens over 10 minutes.
		if !almostEqual(m.CacheCreationRate, 20) {
			t.Errorf("CacheCreationRate = %v, want 20", m.CacheCreationRate)
		}
	})

	t.Run("no prompt traffic", func(t *testing.T) {
		entries := []parser.UsageEntry{
			{OutputTokens: 500},
		}
		sess := testSession(start, 500, 40_000)
		m := Calculate(sess, entries, now)

		if m.CacheHitRate != 0 {
			t.Errorf("CacheHitRate = %v, want 0", m.CacheHitRate)
		}
		if math.IsNaN(m.CacheHitRate) {
			t.Error("CacheHitRate is NaN")
		}
	})

	t.Run("no entries", func(t *testing.T) {
		sess := testSession(start, 0, 40_000)
		m := Calculate(sess, nil, now)

		if m.CacheHitRate != 0 || m.CacheCreationRate != 0 {
			t.Errorf("cache stats = (%v, %v), want (0, 0)",
				m.CacheHitRate, m.CacheCreationRate)
		}
	})
}

func TestCalculateIdempotent(t *testing.T) {
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	now := start.Add(42 * time.Minute)
	sess := testSession(start, 7777, 40_000)
	entries := []parser.UsageEntry{
		{InputTokens: 1000, CacheReadTokens: 500, CacheCreationTokens: 100},
	}

	first := Calculate(sess, entries, now)
	second := Calculate(sess, entries, now)

	if first.UsageRate != second.UsageRate ||
		first.SessionProgress != second.SessionProgress ||
		first.EfficiencyScore != second.EfficiencyScore ||
		first.CacheHitRate != second.CacheHitRate ||
		first.CacheCreationRate != second.CacheCreationRate {
		t.Errorf("repeated calculation differs: %+v vs %+v", first, second)
	}
}
