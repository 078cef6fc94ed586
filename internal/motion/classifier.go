package motion

import (
	"log/slog"
	"math"
	"sync"

	"github.com/google/uuid"
)

// Calibration constants. These were tuned against real handset sensor noise
// together with the Z-axis gravity approximation below; changing one without
// the other shifts every detection rate.
const (
	gravity = 9.8

	historySize     = 10
	eventCooldownMs = 2000

	sprintAvgThreshold = 25.0
	sprintSustainFloor = 10.0
	sprintConfCeiling  = 40.0

	haltPrevThreshold = 15.0
	haltAvgThreshold  = 3.0
	haltMaxGapMs      = 1000

	stationaryCheckIntervalMs = 5000
	stationaryTolerance       = 2.0
	stationaryAfterMs         = 30000
	stationaryConfidence      = 0.9

	rotationThreshold   = 5.0
	rotationConfCeiling = 15.0
)

// Classifier consumes a stream of raw accelerometer and gyroscope samples and
// emits debounced movement events with confidence scores. Samples must arrive
// on a single logical stream; Process is not safe for concurrent callers.
//
// Gravity compensation subtracts the gravity constant from the Z axis only,
// which is orientation-dependent rather than a true gravity-vector removal.
// The thresholds above were calibrated against exactly this formula, so it is
// kept as is.
type Classifier struct {
	log    *Log
	logger *slog.Logger

	mu        sync.Mutex
	active    bool
	listeners []Listener

	window           *SignalWindow
	lastAcceleration float64
	lastTimestamp    int64
	hasLast          bool

	isStationary        bool
	stationaryStart     int64
	lastStationaryCheck int64

	lastDetection map[EventKind]int64
}

// NewClassifier creates a classifier that appends emitted events to log.
// The classifier starts stopped; call Start before feeding samples.
func NewClassifier(log *Log, logger *slog.Logger) *Classifier {
	return &Classifier{
		log:           log,
		logger:        logger,
		window:        NewSignalWindow(historySize),
		lastDetection: make(map[EventKind]int64),
	}
}

// AddListener registers a listener for emitted events. Listeners are invoked
// synchronously in registration order on the sample-processing path.
func (c *Classifier) AddListener(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// Start activates the classifier and resets all streaming state.
// Starting while already active is a no-op.
func (c *Classifier) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active {
		return
	}

	c.window.Reset()
	c.hasLast = false
	c.lastAcceleration = 0
	c.lastTimestamp = 0
	c.isStationary = false
	c.stationaryStart = 0
	c.lastStationaryCheck = 0
	c.lastDetection = make(map[EventKind]int64)

	c.active = true
	c.logger.Info("Motion classifier started")
}

// Stop deactivates the classifier. History is kept until the next Start.
func (c *Classifier) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active {
		return
	}
	c.active = false
	c.logger.Info("Motion classifier stopped")
}

// Active reports whether the classifier is currently consuming samples
func (c *Classifier) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Process consumes one raw sensor sample. Samples from an inactive classifier
// are dropped. There is no error channel: the classifier is a best-effort
// streaming filter and the sensor source guarantees well-formed readings.
func (c *Classifier) Process(s Sample) {
	if !c.Active() {
		return
	}

	switch s.Sensor {
	case SensorAccelerometer:
		c.processAccelerometer(s)
	case SensorGyroscope:
		c.processGyroscope(s)
	}
}

// processAccelerometer handles the accelerometer path: smoothing, sprint and
// sudden-halt detection, then stationary tracking on the raw magnitude.
func (c *Classifier) processAccelerometer(s Sample) {
	linear := math.Sqrt(s.X*s.X + s.Y*s.Y + (s.Z-gravity)*(s.Z-gravity))
	if math.IsNaN(linear) || math.IsInf(linear, 0) {
		return
	}

	c.window.Push(linear)
	avg := c.window.Mean()

	// Sprint: sustained high average. The all-samples floor rejects a single
	// spike dragging the mean over the threshold.
	if avg > sprintAvgThreshold &&
		c.cooldownElapsed(KindSprint, s.Timestamp) &&
		c.window.AllAbove(sprintSustainFloor) {
		c.emit(KindSprint, confidence(avg, sprintAvgThreshold, sprintConfCeiling), s.Timestamp)
	}

	// Sudden halt: fast motion followed by near-stillness within one second
	if c.hasLast &&
		c.lastAcceleration > haltPrevThreshold &&
		avg < haltAvgThreshold &&
		s.Timestamp-c.lastTimestamp < haltMaxGapMs &&
		c.cooldownElapsed(KindSuddenHalt, s.Timestamp) {
		c.emit(KindSuddenHalt, confidence(haltPrevThreshold-avg-5, 0, 20-5), s.Timestamp)
	}

	c.lastAcceleration = linear
	c.lastTimestamp = s.Timestamp
	c.hasLast = true

	c.checkStationary(s)
}

// checkStationary tracks stillness runs on the uncompensated total magnitude.
// Throttled to at most one check per stationaryCheckIntervalMs of wall clock.
func (c *Classifier) checkStationary(s Sample) {
	if s.Timestamp-c.lastStationaryCheck < stationaryCheckIntervalMs {
		return
	}
	c.lastStationaryCheck = s.Timestamp

	total := math.Sqrt(s.X*s.X + s.Y*s.Y + s.Z*s.Z)
	if math.Abs(total-gravity) >= stationaryTolerance {
		c.isStationary = false
		c.stationaryStart = 0
		return
	}

	if !c.isStationary {
		c.isStationary = true
		c.stationaryStart = s.Timestamp
		return
	}

	if s.Timestamp-c.stationaryStart >= stationaryAfterMs &&
		c.cooldownElapsed(KindProlongedStationary, s.Timestamp) {
		c.emit(KindProlongedStationary, stationaryConfidence, s.Timestamp)
		// Reset the stillness clock so a continuously still device
		// re-alerts roughly every 30 seconds
		c.stationaryStart = s.Timestamp
	}
}

// processGyroscope handles the rotation path
func (c *Classifier) processGyroscope(s Sample) {
	x, y, z := math.Abs(s.X), math.Abs(s.Y), math.Abs(s.Z)
	magnitude := math.Sqrt(x*x + y*y + z*z)
	if math.IsNaN(magnitude) || math.IsInf(magnitude, 0) {
		return
	}

	if magnitude > rotationThreshold && c.cooldownElapsed(KindUnusualRotation, s.Timestamp) {
		c.emit(KindUnusualRotation, confidence(magnitude, rotationThreshold, rotationConfCeiling), s.Timestamp)
	}
}

// cooldownElapsed reports whether enough time passed since the last emission
// of kind. Kinds never emitted before always pass.
func (c *Classifier) cooldownElapsed(kind EventKind, nowMs int64) bool {
	last, ok := c.lastDetection[kind]
	if !ok {
		return true
	}
	return nowMs-last >= eventCooldownMs
}

// emit records the detection time, appends to the movement log and notifies
// listeners
func (c *Classifier) emit(kind EventKind, conf float64, timestampMs int64) {
	c.lastDetection[kind] = timestampMs

	event := Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		Timestamp:  timestampMs,
		Confidence: conf,
	}

	c.log.Append(event)

	c.mu.Lock()
	listeners := c.listeners
	c.mu.Unlock()

	for _, l := range listeners {
		l.OnMovementEvent(event)
	}

	c.logger.Debug("Movement event emitted",
		"kind", kind.String(),
		"confidence", conf,
		"timestamp_ms", timestampMs)
}

// confidence maps a detection value to [0.6, 1.0]: the low threshold was
// already crossed at emission time, so scores never fall below 0.6
func confidence(value, low, high float64) float64 {
	ratio := (value - low) / (high - low)
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	return 0.6 + 0.4*ratio
}
