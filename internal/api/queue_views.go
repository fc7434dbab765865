package api

import (
	"cmp"
	"slices"
	"time"
)

// SortQueueItemsNewestFirst orders queue items by CreatedAt descending,
// breaking ties by ID descending.
func SortQueueItemsNewestFirst(items []QueueItem) []QueueItem {
	if len(items) == 0 {
		return nil
	}
	sorted := slices.Clone(items)
	slices.SortFunc(sorted, func(a, b QueueItem) int {
		ta := ParseQueueTime(a.CreatedAt)
		tb := ParseQueueTime(b.CreatedAt)
		if ta.Equal(tb) {
			return cmp.Compare(b.ID, a.ID)
		}
		if ta.After(tb) {
			return -1
		}
		return 1
	})
	return sorted
}

// ParseQueueTime parses an API timestamp for display formatting. It returns
// the zero time when the value is empty or malformed.
func ParseQueueTime(value string) time.Time {
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
