package motion

import (
	"sync"
	"time"
)

// TimeRange selects how far back a movement log query reaches
type TimeRange int

const (
	RangeLastHour TimeRange = iota
	RangeLastDay
	RangeLastWeek
	RangeLastMonth
	RangeAllTime
)

// DurationMs returns the range width in milliseconds, or 0 for AllTime
func (r TimeRange) DurationMs() int64 {
	switch r {
	case RangeLastHour:
		return 3600 * 1000
	case RangeLastDay:
		return 24 * 3600 * 1000
	case RangeLastWeek:
		return 7 * 24 * 3600 * 1000
	case RangeLastMonth:
		return 30 * 24 * 3600 * 1000
	default:
		return 0
	}
}

// Log is an append-only, chronologically ordered record of movement events.
// A single classifier appends while UI observers read concurrently, so all
// reads return copies taken under the lock.
type Log struct {
	mu      sync.RWMutex
	entries []Event
}

// NewLog creates an empty movement log
func NewLog() *Log {
	return &Log{}
}

// Append adds an event to the tail of the log. The single-producer discipline
// guarantees timestamps arrive in non-decreasing order.
func (l *Log) Append(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, event)
}

// Snapshot returns a copy of all entries in insertion order
func (l *Log) Snapshot() []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Event, len(l.entries))
	copy(out, l.entries)
	return out
}

// FilterByRange returns the entries with timestamps inside the range,
// measured back from the current wall clock, in insertion order
func (l *Log) FilterByRange(r TimeRange) []Event {
	return l.FilterSince(cutoff(r, time.Now().UnixMilli()))
}

// FilterSince returns the entries with timestamp >= sinceMs in insertion
// order. A sinceMs of 0 returns the full log.
func (l *Log) FilterSince(sinceMs int64) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Event, 0, len(l.entries))
	for _, e := range l.entries {
		if e.Timestamp >= sinceMs {
			out = append(out, e)
		}
	}
	return out
}

// CountInRange returns the number of entries inside the range without
// materializing the filtered view
func (l *Log) CountInRange(r TimeRange) int {
	return l.CountSince(cutoff(r, time.Now().UnixMilli()))
}

// CountSince returns the number of entries with timestamp >= sinceMs
func (l *Log) CountSince(sinceMs int64) int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	count := 0
	for _, e := range l.entries {
		if e.Timestamp >= sinceMs {
			count++
		}
	}
	return count
}

// Len returns the total number of entries
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Clear empties the log. Safe to call repeatedly.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}

// cutoff converts a time range to an absolute millisecond cutoff
func cutoff(r TimeRange, nowMs int64) int64 {
	d := r.DurationMs()
	if d == 0 {
		return 0
	}
	return nowMs - d
}
