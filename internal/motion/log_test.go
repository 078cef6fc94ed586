package motion

import (
	"testing"
)

func TestLogAppendPreservesOrder(t *testing.T) {
	log := NewLog()

	log.Append(Event{ID: "e1", Kind: KindSprint, Timestamp: 100, Confidence: 0.7})
	log.Append(Event{ID: "e2", Kind: KindSuddenHalt, Timestamp: 200, Confidence: 0.8})
	log.Append(Event{ID: "e3", Kind: KindUnusualRotation, Timestamp: 300, Confidence: 0.9})

	entries := log.FilterSince(0)
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	for i := 1; i < len(entries); i++ {
		if entries[i].Timestamp < entries[i-1].Timestamp {
			t.Errorf("entries out of order: %d before %d",
				entries[i-1].Timestamp, entries[i].Timestamp)
		}
	}
	if entries[0].ID != "e1" || entries[2].ID != "e3" {
		t.Errorf("insertion order not preserved: got %s..%s", entries[0].ID, entries[2].ID)
	}
}

func TestLogFilterSince(t *testing.T) {
	log := NewLog()
	log.Append(Event{ID: "old", Timestamp: 1000})
	log.Append(Event{ID: "mid", Timestamp: 2000})
	log.Append(Event{ID: "new", Timestamp: 3000})

	tests := []struct {
		name    string
		sinceMs int64
		want    int
	}{
		{"all time", 0, 3},
		{"from mid", 2000, 2},
		{"from after newest", 3001, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := log.FilterSince(tt.sinceMs)
			if len(got) != tt.want {
				t.Errorf("FilterSince(%d) returned %d entries, want %d", tt.sinceMs, len(got), tt.want)
			}
			if count := log.CountSince(tt.sinceMs); count != tt.want {
				t.Errorf("CountSince(%d) = %d, want %d", tt.sinceMs, count, tt.want)
			}
		})
	}
}

func TestLogClearIsIdempotent(t *testing.T) {
	log := NewLog()
	log.Append(Event{ID: "e1", Timestamp: 100})
	log.Append(Event{ID: "e2", Timestamp: 200})

	log.Clear()
	if log.CountSince(0) != 0 {
		t.Errorf("expected empty log after clear, got %d entries", log.CountSince(0))
	}

	// Clearing an already-empty log is fine
	log.Clear()
	if log.Len() != 0 {
		t.Errorf("expected empty log after second clear, got %d entries", log.Len())
	}

	// The log accepts new entries after a clear
	log.Append(Event{ID: "e3", Timestamp: 300})
	if log.Len() != 1 {
		t.Errorf("expected 1 entry after re-append, got %d", log.Len())
	}
}

func TestLogSnapshotIsCopy(t *testing.T) {
	log := NewLog()
	log.Append(Event{ID: "e1", Timestamp: 100})

	snap := log.Snapshot()
	log.Append(Event{ID: "e2", Timestamp: 200})

	if len(snap) != 1 {
		t.Errorf("snapshot grew with the log: %d entries", len(snap))
	}
}

func TestTimeRangeDurations(t *testing.T) {
	tests := []struct {
		r    TimeRange
		want int64
	}{
		{RangeLastHour, 3600 * 1000},
		{RangeLastDay, 24 * 3600 * 1000},
		{RangeLastWeek, 7 * 24 * 3600 * 1000},
		{RangeLastMonth, 30 * 24 * 3600 * 1000},
		{RangeAllTime, 0},
	}

	for _, tt := range tests {
		if got := tt.r.DurationMs(); got != tt.want {
			t.Errorf("DurationMs(%d) = %d, want %d", tt.r, got, tt.want)
		}
	}
}
