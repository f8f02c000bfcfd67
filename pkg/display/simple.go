package display

import (
	"fmt"
	"io"

	"github.com/0xmhha/usage-monitor/pkg/aggregator"
	"github.com/0xmhha/usage-monitor/pkg/monitor"
	"github.com/0xmhha/usage-monitor/pkg/session"
)

// simpleFormatter displays snapshots in a compact text format.
type simpleFormatter struct {
	config Config
}

// FormatStatus implements Formatter.FormatStatus.
func (f *simpleFormatter) FormatStatus(w io.Writer, snap monitor.Snapshot) error {
	sess := snap.Session
	m := snap.Metrics

	frac := 0.0
	if sess.TokensLimit > 0 {
		frac = float64(sess.TokensUsed) / float64(sess.TokensLimit)
		if frac > 1 {
			frac = 1
		}
	}

	bar := renderBar(frac, f.config.barWidth())
	pct := formatFloat(frac*100, 1)

	if f.config.ColorEnabled {
		color := usageColor(frac, f.config.WarningThreshold)
		bar = color + bar + colorReset
		pct = color + pct + colorReset
	}

	if _, err := fmt.Fprintf(w, "Session %s (%s)\n", sess.ID, sess.PlanType); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s %s%% (%s / %s tokens)\n",
		bar, pct, formatNumber(sess.TokensUsed), formatNumber(sess.TokensLimit)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Rate: %s tok/min | Remaining: %s | Resets: %s\n",
		formatFloat(m.UsageRate, 1),
		formatNumber(m.TokensRemaining),
		sess.ResetTime.Format("15:04")); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Depletion: %s | Cache hit: %s%%\n",
		formatDepletion(m.ProjectedDepletion, snap.Taken),
		formatFloat(m.CacheHitRate*100, 1)); err != nil {
		return err
	}

	if frac >= f.config.WarningThreshold {
		warning := fmt.Sprintf("WARNING: usage at %s%% of limit\n", formatFloat(frac*100, 1))
		if f.config.ColorEnabled {
			warning = colorRed + warning + colorReset
		}
		if _, err := fmt.Fprint(w, warning); err != nil {
			return err
		}
	}

	return nil
}

// FormatInactive implements Formatter.FormatInactive.
func (f *simpleFormatter) FormatInactive(w io.Writer) error {
	_, err := fmt.Fprintln(w, "No active session (no usage entries found)")
	return err
}

// FormatSessions implements Formatter.FormatSessions.
func (f *simpleFormatter) FormatSessions(w io.Writer, sessions []session.ObservedSession) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions recorded")
		return err
	}

	for _, sess := range sessions {
		state := "closed"
		if sess.EndTime == nil {
			state = "open"
		}
		if _, err := fmt.Fprintf(w, "%s  %s  %s  %s tokens  [%s]\n",
			sess.StartTime.Format("2006-01-02 15:04"),
			sess.ID,
			sess.PlanType,
			formatNumber(sess.TokensUsed),
			state); err != nil {
			return err
		}
	}
	return nil
}

// FormatModels implements Formatter.FormatModels.
func (f *simpleFormatter) FormatModels(w io.Writer, models []aggregator.ModelStats) error {
	if len(models) == 0 {
		_, err := fmt.Fprintln(w, "No model usage recorded")
		return err
	}

	for _, ms := range models {
		if _, err := fmt.Fprintf(w, "%s: %s tokens (%d entries, avg %s)\n",
			ms.Model,
			formatNumber(ms.Statistics.TotalTokens),
			ms.Statistics.Count,
			formatFloat(ms.Statistics.AvgTokens, 1)); err != nil {
			return err
		}
	}
	return nil
}
