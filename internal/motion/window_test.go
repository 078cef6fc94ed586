package motion

import (
	"math"
	"testing"
)

func TestSignalWindowPushEvicts(t *testing.T) {
	w := NewSignalWindow(3)

	w.Push(1)
	w.Push(2)
	w.Push(3)
	if w.Len() != 3 {
		t.Fatalf("expected 3 samples, got %d", w.Len())
	}

	// Fourth push evicts the oldest sample
	w.Push(4)
	if w.Len() != 3 {
		t.Fatalf("expected window to stay at 3 samples, got %d", w.Len())
	}
	want := (2.0 + 3.0 + 4.0) / 3.0
	if math.Abs(w.Mean()-want) > 1e-9 {
		t.Errorf("expected mean %v after eviction, got %v", want, w.Mean())
	}
}

func TestSignalWindowMeanEmpty(t *testing.T) {
	w := NewSignalWindow(5)
	if w.Mean() != 0 {
		t.Errorf("expected mean 0 for empty window, got %v", w.Mean())
	}
}

func TestSignalWindowAllAbove(t *testing.T) {
	tests := []struct {
		name      string
		samples   []float64
		threshold float64
		want      bool
	}{
		{"empty window", nil, 10, false},
		{"all above", []float64{11, 12, 13}, 10, true},
		{"one at threshold", []float64{11, 10, 13}, 10, false},
		{"one below", []float64{11, 2, 13}, 10, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewSignalWindow(10)
			for _, s := range tt.samples {
				w.Push(s)
			}
			if got := w.AllAbove(tt.threshold); got != tt.want {
				t.Errorf("AllAbove(%v) = %v, want %v", tt.threshold, got, tt.want)
			}
		})
	}
}

func TestSignalWindowReset(t *testing.T) {
	w := NewSignalWindow(3)
	w.Push(1)
	w.Push(2)
	w.Reset()
	if w.Len() != 0 {
		t.Errorf("expected empty window after reset, got %d samples", w.Len())
	}
}
