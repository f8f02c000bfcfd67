// Package dedup merges usage entries from many files into a single
// chronologically ordered, duplicate-free stream.
//
// Session-window derivation assumes a monotonic stream, so entries are
// stably sorted by timestamp (ties keep file-discovery order then line
// order) and collapsed to one representative per non-empty
// (message_id, request_id) pair.
package dedup

import (
	"sort"

	"github.com/samber/lo"

	"github.com/0xmhha/usage-monitor/pkg/parser"
)

// Key is the deduplication key identifying a single logical usage
// event possibly recorded more than once.
type Key struct {
	MessageID string
	RequestID string
}

// KeyOf returns the deduplication key for an entry and whether the
// entry is dedupable at all. Entries with both identifiers empty are
// never deduplicated against each other.
func KeyOf(entry parser.UsageEntry) (Key, bool) {
	if entry.MessageID == "" && entry.RequestID == "" {
		return Key{}, false
	}
	return Key{MessageID: entry.MessageID, RequestID: entry.RequestID}, true
}

// Merge orders the concatenated output of all discovered files by
// ascending timestamp and drops duplicates.
//
// Parameters:
//   - entries: Entries in file-discovery order then line order
//
// Returns a new slice; the input is not modified. The first occurrence
// in sorted order wins for each non-empty key.
func Merge(entries []parser.UsageEntry) []parser.UsageEntry {
	if len(entries) == 0 {
		return nil
	}

	sorted := make([]parser.UsageEntry, len(entries))
	copy(sorted, entries)

	// Stable: equal timestamps keep input order.
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	seen := make(map[Key]bool, len(sorted))
	result := make([]parser.UsageEntry, 0, len(sorted))

	for _, entry := range sorted {
		key, dedupable := KeyOf(entry)
		if dedupable {
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		result = append(result, entry)
	}

	return result
}

// TotalTokens sums all four token fields over the entries.
func TotalTokens(entries []parser.UsageEntry) int {
	return lo.SumBy(entries, func(e parser.UsageEntry) int {
		return e.TotalTokens()
	})
}
