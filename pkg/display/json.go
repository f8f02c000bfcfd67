package display

import (
	"encoding/json"
	"io"
	"time"

	"github.com/0xmhha/usage-monitor/pkg/aggregator"
	"github.com/0xmhha/usage-monitor/pkg/metrics"
	"github.com/0xmhha/usage-monitor/pkg/monitor"
	"github.com/0xmhha/usage-monitor/pkg/session"
)

// jsonFormatter formats output as JSON.
type jsonFormatter struct {
	config Config
}

// statusDocument is the JSON shape of a status snapshot.
type statusDocument struct {
	Active  bool                    `json:"active"`
	Session session.ObservedSession `json:"session"`
	Metrics metrics.Metrics         `json:"metrics"`
	Taken   time.Time               `json:"taken"`
}

func (f *jsonFormatter) encoder(w io.Writer) *json.Encoder {
	encoder := json.NewEncoder(w)
	if !f.config.Compact {
		encoder.SetIndent("", "  ")
	}
	return encoder
}

// FormatStatus implements Formatter.FormatStatus.
func (f *jsonFormatter) FormatStatus(w io.Writer, snap monitor.Snapshot) error {
	return f.encoder(w).Encode(statusDocument{
		Active:  true,
		Session: snap.Session,
		Metrics: snap.Metrics,
		Taken:   snap.Taken,
	})
}

// FormatInactive implements Formatter.FormatInactive.
func (f *jsonFormatter) FormatInactive(w io.Writer) error {
	return f.encoder(w).Encode(statusDocument{Active: false})
}

// FormatSessions implements Formatter.FormatSessions.
func (f *jsonFormatter) FormatSessions(w io.Writer, sessions []session.ObservedSession) error {
	if sessions == nil {
		sessions = []session.ObservedSession{}
	}
	return f.encoder(w).Encode(sessions)
}

// FormatModels implements Formatter.FormatModels.
func (f *jsonFormatter) FormatModels(w io.Writer, models []aggregator.ModelStats) error {
	if models == nil {
		models = []aggregator.ModelStats{}
	}
	return f.encoder(w).Encode(models)
}
