package motion

// SignalWindow is a fixed-size FIFO buffer of recent smoothed accelerometer
// magnitudes. When full, the oldest sample is evicted on Push.
type SignalWindow struct {
	samples []float64
	size    int
}

// NewSignalWindow creates a window holding at most size samples
func NewSignalWindow(size int) *SignalWindow {
	return &SignalWindow{
		samples: make([]float64, 0, size),
		size:    size,
	}
}

// Push appends a magnitude, evicting the oldest sample if the window is full
func (w *SignalWindow) Push(magnitude float64) {
	if len(w.samples) == w.size {
		copy(w.samples, w.samples[1:])
		w.samples = w.samples[:len(w.samples)-1]
	}
	w.samples = append(w.samples, magnitude)
}

// Mean returns the arithmetic mean of the samples currently in the window,
// or 0 for an empty window
func (w *SignalWindow) Mean() float64 {
	if len(w.samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range w.samples {
		sum += s
	}
	return sum / float64(len(w.samples))
}

// AllAbove reports whether every sample in the window exceeds threshold.
// An empty window reports false.
func (w *SignalWindow) AllAbove(threshold float64) bool {
	if len(w.samples) == 0 {
		return false
	}
	for _, s := range w.samples {
		if s <= threshold {
			return false
		}
	}
	return true
}

// Len returns the number of samples currently in the window
func (w *SignalWindow) Len() int {
	return len(w.samples)
}

// Reset empties the window
func (w *SignalWindow) Reset() {
	w.samples = w.samples[:0]
}
