package api

import (
	"sort"
	"time"
)

// SortEntriesNewestFirst orders entries by EnqueuedAt descending, breaking ties by ID descending.
func SortEntriesNewestFirst(entries []QueueEntry) []QueueEntry {
	if len(entries) == 0 {
		return nil
	}
	sorted := make([]QueueEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		ti := parseQueueTime(sorted[i].EnqueuedAt)
		tj := parseQueueTime(sorted[j].EnqueuedAt)
		if ti.Equal(tj) {
			return sorted[i].ID > sorted[j].ID
		}
		return ti.After(tj)
	})
	return sorted
}

// CountByType tallies entries per job type; undecodable entries count as "corrupt".
func CountByType(entries []QueueEntry) map[string]int {
	counts := make(map[string]int)
	for _, entry := range entries {
		key := entry.Type
		if entry.DecodeError != "" {
			key = "corrupt"
		}
		counts[key]++
	}
	return counts
}

func parseQueueTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	return time.Time{}
}

// ParseQueueTime exposes queue timestamp parsing for consumers that need display formatting.
func ParseQueueTime(value string) time.Time {
	return parseQueueTime(value)
}
