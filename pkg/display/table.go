package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/0xmhha/usage-monitor/pkg/aggregator"
	"github.com/0xmhha/usage-monitor/pkg/monitor"
	"github.com/0xmhha/usage-monitor/pkg/session"
)

// tableFormatter formats output as tables.
type tableFormatter struct {
	config Config
}

// FormatStatus implements Formatter.FormatStatus.
func (f *tableFormatter) FormatStatus(w io.Writer, snap monitor.Snapshot) error {
	if err := writeHeader(w, "Current Session", f.config.Compact); err != nil {
		return err
	}

	sess := snap.Session
	m := snap.Metrics

	frac := 0.0
	if sess.TokensLimit > 0 {
		frac = float64(sess.TokensUsed) / float64(sess.TokensLimit)
		if frac > 1 {
			frac = 1
		}
	}

	var input, output, cacheCreation, cacheRead int
	for _, entry := range snap.Entries {
		input += entry.InputTokens
		output += entry.OutputTokens
		cacheCreation += entry.CacheCreationTokens
		cacheRead += entry.CacheReadTokens
	}

	rows := [][]string{
		{"Session ID", sess.ID},
		{"Plan", string(sess.PlanType)},
		{"Tokens Used", formatNumber(sess.TokensUsed)},
		{"Token Limit", formatNumber(sess.TokensLimit)},
		{"Input Tokens", formatNumber(input)},
		{"Output Tokens", formatNumber(output)},
		{"Cache Creation", formatNumber(cacheCreation)},
		{"Cache Read", formatNumber(cacheRead)},
		{"Usage", formatFloat(frac*100, 1) + "%"},
		{"Remaining", formatNumber(m.TokensRemaining)},
		{"Usage Rate", formatFloat(m.UsageRate, 1) + " tok/min"},
		{"Progress", formatFloat(m.SessionProgress*100, 1) + "%"},
		{"Efficiency", formatFloat(m.EfficiencyScore*100, 1) + "%"},
		{"Cache Hit Rate", formatFloat(m.CacheHitRate*100, 1) + "%"},
		{"Started", sess.StartTime.Format("2006-01-02 15:04")},
		{"Resets", sess.ResetTime.Format("2006-01-02 15:04")},
		{"Depletion", formatDepletion(m.ProjectedDepletion, snap.Taken)},
	}

	if err := f.writeTable(w, []string{"Field", "Value"}, rows); err != nil {
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
func (f *tableFormatter) FormatInactive(w io.Writer) error {
	if err := writeHeader(w, "Current Session", f.config.Compact); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "No data")
	return err
}

// FormatSessions implements Formatter.FormatSessions.
func (f *tableFormatter) FormatSessions(w io.Writer, sessions []session.ObservedSession) error {
	if err := writeHeader(w, "Session History", f.config.Compact); err != nil {
		return err
	}

	header := []string{"Session ID", "Plan", "Tokens", "Limit", "Started", "Resets", "State"}

	rows := make([][]string, len(sessions))
	for i, sess := range sessions {
		state := "closed"
		if sess.EndTime == nil {
			state = "open"
		}
		rows[i] = []string{
			sess.ID,
			string(sess.PlanType),
			formatNumber(sess.TokensUsed),
			formatNumber(sess.TokensLimit),
			sess.StartTime.Format("2006-01-02 15:04"),
			sess.ResetTime.Format("2006-01-02 15:04"),
			state,
		}
	}

	return f.writeTable(w, header, rows)
}

// FormatModels implements Formatter.FormatModels.
func (f *tableFormatter) FormatModels(w io.Writer, models []aggregator.ModelStats) error {
	if err := writeHeader(w, "Usage by Model", f.config.Compact); err != nil {
		return err
	}

	header := []string{"Rank", "Model", "Entries", "Total Tokens", "Input", "Output", "Avg"}

	rows := make([][]string, len(models))
	for i, ms := range models {
		rows[i] = []string{
			fmt.Sprintf("#%d", i+1),
			ms.Model,
			formatNumber(ms.Statistics.Count),
			formatNumber(ms.Statistics.TotalTokens),
			formatNumber(ms.Statistics.InputTokens),
			formatNumber(ms.Statistics.OutputTokens),
			formatFloat(ms.Statistics.AvgTokens, 1),
		}
	}

	return f.writeTable(w, header, rows)
}

// writeTable writes a formatted table.
func (f *tableFormatter) writeTable(w io.Writer, header []string, rows [][]string) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No data")
		return err
	}

	// Calculate column widths.
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = len(h)
	}

	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	// Write header.
	if err := f.writeRow(w, header, widths); err != nil {
		return err
	}

	// Write separator.
	if !f.config.Compact {
		separator := make([]string, len(header))
		for i, width := range widths {
			separator[i] = strings.Repeat("-", width)
		}
		if err := f.writeRow(w, separator, widths); err != nil {
			return err
		}
	}

	// Write rows.
	for _, row := range rows {
		if err := f.writeRow(w, row, widths); err != nil {
			return err
		}
	}

	// Add spacing.
	if !f.config.Compact {
		_, err := fmt.Fprintln(w)
		return err
	}

	return nil
}

// writeRow writes a single table row.
func (f *tableFormatter) writeRow(w io.Writer, cells []string, widths []int) error {
	for i, cell := range cells {
		if i > 0 {
			if f.config.Compact {
				if _, err := fmt.Fprint(w, " "); err != nil {
					return err
				}
			} else {
				if _, err := fmt.Fprint(w, "  "); err != nil {
					return err
				}
			}
		}

		format := fmt.Sprintf("%%-%ds", widths[i])
		if _, err := fmt.Fprintf(w, format, cell); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintln(w)
	return err
}
