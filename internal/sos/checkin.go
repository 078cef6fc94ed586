package sos

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotRunning is returned by commands that require an active check-in timer
	ErrNotRunning = errors.New("check-in timer is not running")

	// ErrNotPaused is returned by Resume when the timer is not paused
	ErrNotPaused = errors.New("check-in timer is not paused")
)

// CheckInPhase is the lifecycle state of a CheckIn timer instance
type CheckInPhase int

const (
	CheckInIdle CheckInPhase = iota
	CheckInRunning
	CheckInPaused
	CheckInExpired
	CheckInCheckedIn
)

func (p CheckInPhase) String() string {
	switch p {
	case CheckInIdle:
		return "idle"
	case CheckInRunning:
		return "running"
	case CheckInPaused:
		return "paused"
	case CheckInExpired:
		return "expired"
	case CheckInCheckedIn:
		return "checked_in"
	default:
		return "unknown"
	}
}

// CheckIn is the safety-timer sibling of Countdown. The user arms it before a
// risky stretch and checks in before it expires; expiry raises a missed
// check-in alert through the same gateway, exactly once. Unlike the SOS
// countdown it can be paused, which freezes the remaining time.
type CheckIn struct {
	mu        sync.Mutex
	phase     CheckInPhase
	remaining int
	total     int

	gateway  Gateway
	logger   *slog.Logger
	userID   string
	deviceID string
	location *Location
}

// NewCheckIn creates an idle check-in timer for one user/device pair
func NewCheckIn(gateway Gateway, logger *slog.Logger, userID, deviceID string) *CheckIn {
	return &CheckIn{
		phase:    CheckInIdle,
		gateway:  gateway,
		logger:   logger,
		userID:   userID,
		deviceID: deviceID,
	}
}

// SetLocation attaches a last-known position to the eventual alert
func (c *CheckIn) SetLocation(loc *Location) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.location = loc
}

// Start arms the timer with the given duration in seconds.
// Rejects non-positive durations and reuse of a non-idle instance.
func (c *CheckIn) Start(durationSec int) error {
	if durationSec <= 0 {
		return ErrInvalidDuration
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != CheckInIdle {
		return ErrNotIdle
	}

	c.phase = CheckInRunning
	c.remaining = durationSec
	c.total = durationSec

	c.logger.Info("Check-in timer started",
		"device_id", c.deviceID,
		"duration_sec", durationSec)
	return nil
}

// Tick advances the timer by one second. Ticks while paused or in a terminal
// phase are ignored. Expiry dispatches the missed check-in alert exactly once.
func (c *CheckIn) Tick() CheckInPhase {
	c.mu.Lock()

	if c.phase != CheckInRunning {
		phase := c.phase
		c.mu.Unlock()
		return phase
	}

	c.remaining--
	if c.remaining > 0 {
		c.mu.Unlock()
		return CheckInRunning
	}

	c.remaining = 0
	c.phase = CheckInExpired
	alert := Alert{
		ID:       uuid.NewString(),
		UserID:   c.userID,
		DeviceID: c.deviceID,
		Kind:     AlertMissedCheckIn,
		Location: c.location,
		RaisedAt: time.Now().UTC(),
	}
	c.mu.Unlock()

	if err := c.gateway.RaiseAlert(context.Background(), alert); err != nil {
		c.logger.Error("Alert dispatch failed",
			"device_id", c.deviceID,
			"alert_id", alert.ID,
			"error", err)
	} else {
		c.logger.Info("Missed check-in alert raised",
			"device_id", c.deviceID,
			"alert_id", alert.ID)
	}

	return CheckInExpired
}

// Pause freezes the remaining time. Only a running timer can be paused.
func (c *CheckIn) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != CheckInRunning {
		return ErrNotRunning
	}

	c.phase = CheckInPaused
	c.logger.Info("Check-in timer paused",
		"device_id", c.deviceID,
		"remaining_sec", c.remaining)
	return nil
}

// Resume continues a paused timer
func (c *CheckIn) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != CheckInPaused {
		return ErrNotPaused
	}

	c.phase = CheckInRunning
	c.logger.Info("Check-in timer resumed",
		"device_id", c.deviceID,
		"remaining_sec", c.remaining)
	return nil
}

// Complete marks a successful check-in before expiry. No alert is raised.
func (c *CheckIn) Complete() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != CheckInRunning && c.phase != CheckInPaused {
		return ErrNotRunning
	}

	c.phase = CheckInCheckedIn
	c.logger.Info("Checked in",
		"device_id", c.deviceID,
		"remaining_sec", c.remaining)
	return nil
}

// Adjust adds deltaSec to the remaining time, clamped to zero. A timer
// adjusted to zero still expires through the next tick.
func (c *CheckIn) Adjust(deltaSec int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != CheckInRunning && c.phase != CheckInPaused {
		return ErrNotRunning
	}

	c.remaining += deltaSec
	if c.remaining < 0 {
		c.remaining = 0
	}

	c.logger.Info("Check-in timer adjusted",
		"device_id", c.deviceID,
		"delta_sec", deltaSec,
		"remaining_sec", c.remaining)
	return nil
}

// Phase returns the current lifecycle phase
func (c *CheckIn) Phase() CheckInPhase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Remaining returns the remaining seconds
func (c *CheckIn) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Total returns the configured duration in seconds
func (c *CheckIn) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// Done reports whether the instance reached a terminal phase
func (c *CheckIn) Done() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase == CheckInExpired || c.phase == CheckInCheckedIn
}
