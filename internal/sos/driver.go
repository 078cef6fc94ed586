package sos

import (
	"context"
	"log/slog"
	"time"
)

// tickable is what the driver actually drives; both machines satisfy it
// through small adapters because their Tick methods return different phases
type tickable interface {
	Done() bool
	step()
}

// countdownTicker adapts Countdown to the driver
type countdownTicker struct{ m *Countdown }

func (t countdownTicker) Done() bool { return t.m.Done() }
func (t countdownTicker) step()      { t.m.Tick() }

// checkInTicker adapts CheckIn to the driver
type checkInTicker struct{ m *CheckIn }

func (t checkInTicker) Done() bool { return t.m.Done() }
func (t checkInTicker) step()      { t.m.Tick() }

// Driver delivers ticks to a state machine on a fixed cadence until the
// machine reaches a terminal phase or the context is cancelled. Cancellation
// stops tick delivery immediately; a cancelled countdown can never receive
// the tick that would have fired it.
type Driver struct {
	interval time.Duration
	logger   *slog.Logger
}

// NewDriver creates a driver with the standard 1-second cadence
func NewDriver(logger *slog.Logger) *Driver {
	return &Driver{
		interval: time.Second,
		logger:   logger,
	}
}

// NewDriverWithInterval creates a driver with a custom cadence, used by tests
func NewDriverWithInterval(interval time.Duration, logger *slog.Logger) *Driver {
	return &Driver{
		interval: interval,
		logger:   logger,
	}
}

// RunCountdown drives a Countdown until terminal or cancelled. onTick, if
// non-nil, is invoked after every delivered tick (used to mirror status).
// Blocks; run it in its own goroutine.
func (d *Driver) RunCountdown(ctx context.Context, m *Countdown, onTick func()) {
	d.run(ctx, countdownTicker{m}, onTick)
}

// RunCheckIn drives a CheckIn until terminal or cancelled
func (d *Driver) RunCheckIn(ctx context.Context, m *CheckIn, onTick func()) {
	d.run(ctx, checkInTicker{m}, onTick)
}

func (d *Driver) run(ctx context.Context, t tickable, onTick func()) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Debug("Tick driver stopped", "reason", ctx.Err())
			return
		case <-ticker.C:
			t.step()
			if onTick != nil {
				onTick()
			}
			if t.Done() {
				return
			}
		}
	}
}
