package display

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"
)

// ANSI color codes for text output.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorGreen  = "\033[32m"
)

// New creates a new formatter based on configuration.
//
// Parameters:
//   - cfg: Formatter configuration
//
// Returns a configured Formatter.
func New(cfg Config) Formatter {
	// Set defaults.
	if cfg.Format == "" {
		cfg.Format = FormatSimple
	}
	if cfg.WarningThreshold <= 0 || cfg.WarningThreshold > 1 {
		cfg.WarningThreshold = 0.85
	}

	switch cfg.Format {
	case FormatJSON:
		return &jsonFormatter{config: cfg}
	case FormatTable:
		return &tableFormatter{config: cfg}
	case FormatSimple:
		fallthrough
	default:
		return &simpleFormatter{config: cfg}
	}
}

// formatNumber formats a number with thousand separators.
func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}

	// Convert to string and add commas.
	s := fmt.Sprintf("%d", n)
	result := ""
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result += ","
		}
		result += string(c)
	}
	return result
}

// formatFloat formats a float with specified precision.
func formatFloat(f float64, precision int) string {
	format := fmt.Sprintf("%%.%df", precision)
	return fmt.Sprintf(format, f)
}

// formatDepletion renders the projected depletion instant.
func formatDepletion(at *time.Time, now time.Time) string {
	if at == nil {
		return "unbounded"
	}
	if !at.After(now) {
		return "now"
	}
	return at.Format("2006-01-02 15:04")
}

// writeHeader writes a section header.
func writeHeader(w io.Writer, title string, compact bool) error {
	if compact {
		_, err := fmt.Fprintf(w, "%s\n", title)
		return err
	}

	separator := strings.Repeat("=", len(title))

	_, err := fmt.Fprintf(w, "\n%s\n%s\n\n", title, separator)
	return err
}

// barWidth resolves the progress bar width, preferring the configured
// value, then the terminal size, then a fixed fallback.
func (c Config) barWidth() int {
	if c.BarWidth > 0 {
		return c.BarWidth
	}

	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 20 {
		// Leave room for the bracket frame and the percent suffix.
		if width > 60 {
			return 40
		}
		return width - 20
	}

	return 40
}

// renderBar renders a usage bar for a fraction in [0, 1].
func renderBar(frac float64, width int) string {
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}

	filled := int(frac * float64(width))
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

// usageColor picks a color for the usage fraction.
func usageColor(frac, warnAt float64) string {
	switch {
	case frac >= warnAt:
		return colorRed
	case frac >= warnAt*0.7:
		return colorYellow
	default:
		return colorGreen
	}
}
