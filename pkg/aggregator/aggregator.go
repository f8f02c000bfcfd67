package aggregator

import (
	"sort"
	"strings"
	"sync"

	"github.com/0xmhha/usage-monitor/pkg/parser"
)

// aggregator implements the Aggregator interface.
type aggregator struct {
	config Config

	mu     sync.RWMutex
	counts []int             // All token counts for percentile calculation
	stats  Statistics        // Overall statistics
	groups map[string]*group // Grouped statistics
}

// group holds statistics for a specific dimension combination.
type group struct {
	counts []int
	stats  Statistics
}

// New creates a new aggregator.
//
// Parameters:
//   - cfg: Aggregator configuration
//
// Returns a configured Aggregator.
func New(cfg Config) Aggregator {
	return &aggregator{
		config: cfg,
		counts: make([]int, 0),
		groups: make(map[string]*group),
	}
}

// Add implements Aggregator.Add.
func (a *aggregator) Add(entry parser.UsageEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()

	total := entry.TotalTokens()

	// Update overall stats.
	updateStats(&a.stats, entry, total)

	// Track counts for percentiles.
	if a.config.TrackPercentiles {
		a.counts = append(a.counts, total)
	}

	// Update grouped stats.
	if len(a.config.GroupBy) > 0 {
		key := a.dimensionKey(entry)
		g, exists := a.groups[key]
		if !exists {
			g = &group{
				counts: make([]int, 0),
			}
			a.groups[key] = g
		}

		updateStats(&g.stats, entry, total)

		if a.config.TrackPercentiles {
			g.counts = append(g.counts, total)
		}
	}
}

// AddAll implements Aggregator.AddAll.
func (a *aggregator) AddAll(entries []parser.UsageEntry) {
	for _, entry := range entries {
		a.Add(entry)
	}
}

// Stats implements Aggregator.Stats.
func (a *aggregator) Stats() Statistics {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := a.stats

	// Calculate percentiles if enabled.
	if a.config.TrackPercentiles && len(a.counts) > 0 {
		counts := make([]int, len(a.counts))
		copy(counts, a.counts)
		sort.Ints(counts)

		stats.P50Tokens = percentile(counts, 50)
		stats.P95Tokens = percentile(counts, 95)
		stats.P99Tokens = percentile(counts, 99)
	}

	return stats
}

// GroupedStats implements Aggregator.GroupedStats.
func (a *aggregator) GroupedStats() map[string]Statistics {
	a.mu.RLock()
	defer a.mu.RUnlock()

	result := make(map[string]Statistics, len(a.groups))

	for key, g := range a.groups {
		result[key] = a.finalize(g)
	}

	return result
}

// TopModels implements Aggregator.TopModels.
func (a *aggregator) TopModels(n int) []ModelStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	modelIdx := a.dimensionIndex(DimModel)
	if modelIdx < 0 {
		return nil
	}

	// Merge groups that share a model but differ in other dimensions.
	models := make(map[string]*group)
	for key, g := range a.groups {
		components := strings.Split(key, "|")
		if modelIdx >= len(components) {
			continue
		}
		model := components[modelIdx]

		merged, exists := models[model]
		if !exists {
			merged = &group{}
			models[model] = merged
		}
		merged.stats = mergeStats(merged.stats, g.stats)
		merged.counts = append(merged.counts, g.counts...)
	}

	result := make([]ModelStats, 0, len(models))
	for model, g := range models {
		result = append(result, ModelStats{
			Model:      model,
			Statistics: a.finalize(g),
		})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Statistics.TotalTokens != result[j].Statistics.TotalTokens {
			return result[i].Statistics.TotalTokens > result[j].Statistics.TotalTokens
		}
		return result[i].Model < result[j].Model
	})

	if n > 0 && n < len(result) {
		result = result[:n]
	}

	return result
}

// Reset implements Aggregator.Reset.
func (a *aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.counts = make([]int, 0)
	a.stats = Statistics{}
	a.groups = make(map[string]*group)
}

// finalize copies a group's statistics, filling in percentiles.
func (a *aggregator) finalize(g *group) Statistics {
	stats := g.stats

	if a.config.TrackPercentiles && len(g.counts) > 0 {
		counts := make([]int, len(g.counts))
		copy(counts, g.counts)
		sort.Ints(counts)

		stats.P50Tokens = percentile(counts, 50)
		stats.P95Tokens = percentile(counts, 95)
		stats.P99Tokens = percentile(counts, 99)
	}

	return stats
}

// updateStats updates statistics with a new entry.
func updateStats(stats *Statistics, entry parser.UsageEntry, total int) {
	stats.Count++
	stats.TotalTokens += total
	stats.InputTokens += entry.InputTokens
	stats.OutputTokens += entry.OutputTokens
	stats.CacheCreationTokens += entry.CacheCreationTokens
	stats.CacheReadTokens += entry.CacheReadTokens

	stats.AvgTokens = float64(stats.TotalTokens) / float64(stats.Count)

	if stats.Count == 1 {
		stats.MinTokens = total
		stats.MaxTokens = total
	} else {
		if total < stats.MinTokens {
			stats.MinTokens = total
		}
		if total > stats.MaxTokens {
			stats.MaxTokens = total
		}
	}

	if stats.FirstSeen.IsZero() || entry.Timestamp.Before(stats.FirstSeen) {
		stats.FirstSeen = entry.Timestamp
	}
	if stats.LastSeen.IsZero() || entry.Timestamp.After(stats.LastSeen) {
		stats.LastSeen = entry.Timestamp
	}
}

// dimensionKey creates a unique key for the configured dimensions.
func (a *aggregator) dimensionKey(entry parser.UsageEntry) string {
	if len(a.config.GroupBy) == 0 {
		return ""
	}

	parts := make([]string, len(a.config.GroupBy))
	for i, dim := range a.config.GroupBy {
		switch dim {
		case DimModel:
			parts[i] = entry.Model
		case DimDate:
			parts[i] = entry.Timestamp.Format("2006-01-02")
		case DimHour:
			parts[i] = entry.Timestamp.Format("2006-01-02 15:00")
		}
	}

	return strings.Join(parts, "|")
}

// dimensionIndex returns the position of dim in GroupBy, or -1.
func (a *aggregator) dimensionIndex(dim Dimension) int {
	for i, d := range a.config.GroupBy {
		if d == dim {
			return i
		}
	}
	return -1
}

// mergeStats merges two Statistics structs. Percentile fields are left
// zero; finalize recomputes them from the merged counts.
func mergeStats(s1, s2 Statistics) Statistics {
	if s1.Count == 0 {
		return s2
	}
	if s2.Count == 0 {
		return s1
	}

	result := Statistics{
		Count:               s1.Count + s2.Count,
		TotalTokens:         s1.TotalTokens + s2.TotalTokens,
		InputTokens:         s1.InputTokens + s2.InputTokens,
		OutputTokens:        s1.OutputTokens + s2.OutputTokens,
		CacheCreationTokens: s1.CacheCreationTokens + s2.CacheCreationTokens,
		CacheReadTokens:     s1.CacheReadTokens + s2.CacheReadTokens,
	}

	result.AvgTokens = float64(result.TotalTokens) / float64(result.Count)

	if s1.MinTokens < s2.MinTokens {
		result.MinTokens = s1.MinTokens
	} else {
		result.MinTokens = s2.MinTokens
	}

	if s1.MaxTokens > s2.MaxTokens {
		result.MaxTokens = s1.MaxTokens
	} else {
		result.MaxTokens = s2.MaxTokens
	}

	if s1.FirstSeen.Before(s2.FirstSeen) {
		result.FirstSeen = s1.FirstSeen
	} else {
		result.FirstSeen = s2.FirstSeen
	}

	if s1.LastSeen.After(s2.LastSeen) {
		result.LastSeen = s1.LastSeen
	} else {
		result.LastSeen = s2.LastSeen
	}

	return result
}

// percentile calculates the nth percentile of a sorted slice.
func percentile(sorted []int, p int) int {
	if len(sorted) == 0 {
		return 0
	}

	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	// Linear interpolation between closest ranks.
	rank := float64(p) / 100.0 * float64(len(sorted)-1)
	lower := int(rank)
	upper := lower + 1

	if upper >= len(sorted) {
		return sorted[lower]
	}

	fraction := rank - float64(lower)
	return int(float64(sorted[lower])*(1-fraction) + float64(sorted[upper])*fraction)
}
