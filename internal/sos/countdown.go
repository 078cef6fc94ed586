package sos

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AdjustStepSec is the step applied by the external adjust control
// (hardware volume-key analogue)
const AdjustStepSec = 60

var (
	// ErrInvalidDuration is returned when a countdown is started with a
	// non-positive duration. The machine state is unchanged.
	ErrInvalidDuration = errors.New("countdown duration must be positive")

	// ErrNotIdle is returned when Start is called on an already-used
	// instance. Terminal states are final; start a fresh instance instead.
	ErrNotIdle = errors.New("countdown already started")

	// ErrNotCounting is returned by commands that require an active countdown
	ErrNotCounting = errors.New("countdown is not active")
)

// Phase is the lifecycle state of a Countdown instance
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseCounting
	PhaseFired
	PhaseCancelled
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseCounting:
		return "counting"
	case PhaseFired:
		return "fired"
	case PhaseCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Countdown is the manual SOS state machine: idle, counting down, then fired
// or cancelled. One instance covers one countdown; Fired and Cancelled are
// terminal and a new trigger needs a new instance.
//
// All commands and ticks are serialized through one mutex, so a cancel that
// reaches the machine before the final tick always wins and the gateway is
// invoked at most once per instance.
type Countdown struct {
	mu        sync.Mutex
	phase     Phase
	remaining int
	total     int

	gateway    Gateway
	logger     *slog.Logger
	userID     string
	deviceID   string
	location   *Location
	kind       AlertKind
	confidence *float64
}

// NewCountdown creates an idle SOS countdown for one user/device pair
func NewCountdown(gateway Gateway, logger *slog.Logger, userID, deviceID string) *Countdown {
	return &Countdown{
		phase:    PhaseIdle,
		gateway:  gateway,
		logger:   logger,
		userID:   userID,
		deviceID: deviceID,
		kind:     AlertManualSOS,
	}
}

// SetTrigger overrides the alert kind and attaches the classifier confidence.
// Used for countdowns auto-started by abnormal movement detection.
func (c *Countdown) SetTrigger(kind AlertKind, confidence *float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.kind = kind
	c.confidence = confidence
}

// SetLocation attaches a last-known position to the eventual alert
func (c *Countdown) SetLocation(loc *Location) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.location = loc
}

// Start begins the countdown with the given duration in seconds.
// Rejects non-positive durations and reuse of a non-idle instance.
func (c *Countdown) Start(durationSec int) error {
	if durationSec <= 0 {
		return ErrInvalidDuration
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseIdle {
		return ErrNotIdle
	}

	c.phase = PhaseCounting
	c.remaining = durationSec
	c.total = durationSec

	c.logger.Info("SOS countdown started",
		"device_id", c.deviceID,
		"duration_sec", durationSec)
	return nil
}

// Tick advances the countdown by one second. Ticks outside the counting
// phase are ignored. When remaining reaches zero the machine transitions to
// Fired and raises the alert exactly once; a duplicate tick cannot double-fire
// because the phase check happens under the same lock as the transition.
func (c *Countdown) Tick() Phase {
	c.mu.Lock()

	if c.phase != PhaseCounting {
		phase := c.phase
		c.mu.Unlock()
		return phase
	}

	c.remaining--
	if c.remaining > 0 {
		c.mu.Unlock()
		return PhaseCounting
	}

	c.remaining = 0
	c.phase = PhaseFired
	alert := Alert{
		ID:         uuid.NewString(),
		UserID:     c.userID,
		DeviceID:   c.deviceID,
		Kind:       c.kind,
		Location:   c.location,
		Confidence: c.confidence,
		RaisedAt:   time.Now().UTC(),
	}
	c.mu.Unlock()

	// Dispatch outside the lock; the machine reports Fired regardless of the
	// gateway outcome because the attempt was made
	if err := c.gateway.RaiseAlert(context.Background(), alert); err != nil {
		c.logger.Error("Alert dispatch failed",
			"device_id", c.deviceID,
			"alert_id", alert.ID,
			"error", err)
	} else {
		c.logger.Info("SOS alert raised",
			"device_id", c.deviceID,
			"alert_id", alert.ID)
	}

	return PhaseFired
}

// Cancel aborts an active countdown. No alert is raised. Cancelling a
// countdown that is not counting returns ErrNotCounting.
func (c *Countdown) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseCounting {
		return ErrNotCounting
	}

	c.phase = PhaseCancelled
	c.logger.Info("SOS countdown cancelled",
		"device_id", c.deviceID,
		"remaining_sec", c.remaining)
	return nil
}

// Adjust adds deltaSec to the remaining time, clamped to zero. A countdown
// adjusted to zero still fires through the next tick rather than immediately,
// keeping firing synchronous with the tick source.
func (c *Countdown) Adjust(deltaSec int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseCounting {
		return ErrNotCounting
	}

	c.remaining += deltaSec
	if c.remaining < 0 {
		c.remaining = 0
	}

	c.logger.Info("SOS countdown adjusted",
		"device_id", c.deviceID,
		"delta_sec", deltaSec,
		"remaining_sec", c.remaining)
	return nil
}

// Phase returns the current lifecycle phase
func (c *Countdown) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Remaining returns the remaining seconds
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Total returns the configured duration in seconds
func (c *Countdown) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// Done reports whether the instance reached a terminal phase
func (c *Countdown) Done() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase == PhaseFired || c.phase == PhaseCancelled
}
