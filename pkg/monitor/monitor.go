package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/0xmhha/usage-monitor/pkg/logger"
	"github.com/0xmhha/usage-monitor/pkg/metrics"
	"github.com/0xmhha/usage-monitor/pkg/session"
	"github.com/0xmhha/usage-monitor/pkg/source"
	"github.com/0xmhha/usage-monitor/pkg/watcher"
)

// usageMonitor implements the Monitor interface.
type usageMonitor struct {
	config  Config
	logger  logger.Logger
	source  source.Source
	engine  *session.Engine
	store   *session.Store
	watcher watcher.Watcher

	now func() time.Time

	mu       sync.RWMutex
	running  bool
	closed   bool
	stopChan chan struct{}
	done     chan struct{}

	// Latest snapshot, replaced whole under mu.
	snapshot *Snapshot
	series   []UsagePoint

	// Coalesced rescan requests.
	trigger chan struct{}
}

// New creates a monitor.
//
// Parameters:
//   - cfg: Monitor configuration
//   - src: Entry source (file-backed or mock)
//   - engine: Session derivation engine
//   - store: Session history store; nil disables history
//   - w: File watcher; nil means polling only
//   - log: Logger instance
//
// Returns:
//   - Configured Monitor
func New(cfg Config, src source.Source, engine *session.Engine, store *session.Store, w watcher.Watcher, log logger.Logger) Monitor {
	if cfg.UpdateInterval <= 0 {
		cfg.UpdateInterval = 3 * time.Second
	}
	if cfg.SeriesPoints <= 0 {
		cfg.SeriesPoints = DefaultSeriesPoints
	}

	m := &usageMonitor{
		config:   cfg,
		logger:   log,
		source:   src,
		engine:   engine,
		store:    store,
		watcher:  w,
		now:      time.Now,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
		trigger:  make(chan struct{}, 1),
	}

	log.Info("monitor created",
		"update_interval", cfg.UpdateInterval,
		"watching", w != nil)

	return m
}

// Start implements Monitor.Start.
func (m *usageMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrMonitorClosed
	}
	if m.running {
		m.mu.Unlock()
		return ErrMonitorRunning
	}
	m.running = true
	m.mu.Unlock()

	// A session left open by a previous run can never become current
	// again once its window has reset; close it before pruning so
	// retention applies to it.
	if m.store != nil {
		if _, err := m.store.FinalizeExpired(m.now()); err != nil {
			m.logger.Warn("failed to finalize stale sessions", "error", err)
		}
		if err := m.store.Prune(m.now(), m.config.HistoryRetention); err != nil {
			m.logger.Warn("failed to prune session history", "error", err)
		}
	}

	// Watcher trouble degrades to polling, never aborts the loop.
	if m.watcher != nil {
		if err := m.watcher.Start(ctx, m.config.WatchPaths); err != nil {
			m.logger.Warn("watcher failed to start, falling back to polling",
				"error", err)
			m.watcher = nil
		}
	}

	// Populate the first snapshot before returning.
	m.rescan(ctx)

	go m.run(ctx)

	m.logger.Info("monitor started")
	return nil
}

// Stop implements Monitor.Stop.
func (m *usageMonitor) Stop() error {
	m.mu.Lock()

	if m.closed {
		m.mu.Unlock()
		return ErrMonitorClosed
	}
	if !m.running {
		m.mu.Unlock()
		return ErrMonitorNotRunning
	}

	close(m.stopChan)
	m.running = false
	done := m.done
	m.mu.Unlock()

	// Wait for the loop to release the watcher.
	<-done

	m.logger.Info("monitor stopped")
	return nil
}

// Snapshot implements Monitor.Snapshot.
func (m *usageMonitor) Snapshot() (Snapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.snapshot == nil {
		return Snapshot{}, false
	}
	return *m.snapshot, true
}

// History implements Monitor.History.
func (m *usageMonitor) History() ([]session.ObservedSession, error) {
	if m.store == nil {
		return nil, nil
	}
	return m.store.List()
}

// Series implements Monitor.Series.
func (m *usageMonitor) Series() []UsagePoint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]UsagePoint, len(m.series))
	copy(out, m.series)
	return out
}

// Rescan implements Monitor.Rescan.
func (m *usageMonitor) Rescan() {
	select {
	case m.trigger <- struct{}{}:
	default:
		// A pass is already pending.
	}
}

// Close implements Monitor.Close.
func (m *usageMonitor) Close() error {
	m.mu.Lock()

	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true

	wasRunning := m.running
	if m.running {
		close(m.stopChan)
		m.running = false
	}
	done := m.done
	m.mu.Unlock()

	if wasRunning {
		<-done
	} else if m.watcher != nil {
		if err := m.watcher.Close(); err != nil {
			m.logger.Warn("failed to close watcher", "error", err)
		}
	}

	m.logger.Info("monitor closed")
	return nil
}

// run is the monitoring loop. It owns the watcher for its lifetime and
// releases it on the way out.
func (m *usageMonitor) run(ctx context.Context) {
	defer close(m.done)
	defer m.releaseWatcher()

	ticker := time.NewTicker(m.config.UpdateInterval)
	defer ticker.Stop()

	// Nil channels block forever, turning the watcher cases into
	// no-ops when polling only.
	var events <-chan watcher.Event
	var watchErrs <-chan error
	if m.watcher != nil {
		events = m.watcher.Events()
		watchErrs = m.watcher.Errors()
	}

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("monitor loop stopped", "reason", "context cancelled")
			return

		case <-m.stopChan:
			m.logger.Info("monitor loop stopped", "reason", "stop signal")
			return

		case <-m.trigger:
			m.rescan(ctx)

		case <-ticker.C:
			m.rescan(ctx)

		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			m.logger.Debug("file change detected",
				"path", event.Path,
				"op", event.Op)
			m.rescan(ctx)

		case err, ok := <-watchErrs:
			if !ok {
				watchErrs = nil
				continue
			}
			m.logger.Error("watcher error", "error", err)
		}
	}
}

// rescan runs one full ingestion pass. A failed pass logs and leaves
// the previous snapshot in place; the next trigger retries.
func (m *usageMonitor) rescan(ctx context.Context) {
	entries, err := m.source.Entries(ctx)
	if err != nil {
		// An all-roots-empty pass is the Inactive state, not a failure.
		if !errors.Is(err, session.ErrNoData) {
			m.logger.Warn("rescan failed", "error", err)
			return
		}
		entries = nil
	}

	now := m.now()
	sess, included := m.engine.Derive(entries, now)
	if sess == nil {
		m.logger.Debug("no derivable session", "entries", len(entries))
		m.mu.Lock()
		m.snapshot = nil
		m.mu.Unlock()
		if m.store != nil {
			if _, err := m.store.FinalizeExpired(now); err != nil {
				m.logger.Warn("failed to finalize stale sessions", "error", err)
			}
		}
		return
	}

	calc := metrics.Calculate(*sess, included, now)

	m.mu.Lock()
	prev := m.snapshot
	m.snapshot = &Snapshot{
		Session: *sess,
		Metrics: calc,
		Entries: included,
		Taken:   now,
	}
	m.series = append(m.series, UsagePoint{Timestamp: now, Tokens: sess.TokensUsed})
	if len(m.series) > m.config.SeriesPoints {
		m.series = m.series[len(m.series)-m.config.SeriesPoints:]
	}
	m.mu.Unlock()

	m.persist(prev, sess, now)

	m.logger.Debug("rescan complete",
		"session", sess.ID,
		"tokens_used", sess.TokensUsed,
		"entries", len(included))
}

// persist records the current session and finalizes a superseded one.
func (m *usageMonitor) persist(prev *Snapshot, current *session.ObservedSession, now time.Time) {
	if m.store == nil {
		return
	}

	// A new window closes the previous session for good.
	if prev != nil && prev.Session.ID != current.ID {
		closed := session.Close(prev.Session)
		if err := m.store.Append(closed); err != nil {
			m.logger.Warn("failed to close previous session",
				"session", closed.ID,
				"error", err)
		} else {
			m.logger.Info("session closed",
				"session", closed.ID,
				"tokens_used", closed.TokensUsed)
		}

		if err := m.store.Prune(now, m.config.HistoryRetention); err != nil {
			m.logger.Warn("failed to prune session history", "error", err)
		}
	}

	if err := m.store.Append(*current); err != nil {
		m.logger.Warn("failed to record current session",
			"session", current.ID,
			"error", err)
	}
}

// releaseWatcher closes the watch resource exactly once.
func (m *usageMonitor) releaseWatcher() {
	m.mu.Lock()
	w := m.watcher
	m.watcher = nil
	m.mu.Unlock()

	if w == nil {
		return
	}
	if err := w.Close(); err != nil {
		m.logger.Warn("failed to close watcher", "error", err)
	}
}
