package sos

import (
	"errors"
	"testing"
)

func TestCheckInExpiryRaisesAlertOnce(t *testing.T) {
	gw := &fakeGateway{}
	c := NewCheckIn(gw, testLogger(), "user-1", "device-1")

	if err := c.Start(2); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if p := c.Tick(); p != CheckInRunning {
		t.Errorf("tick 1: expected running, got %s", p)
	}
	if p := c.Tick(); p != CheckInExpired {
		t.Errorf("tick 2: expected expired, got %s", p)
	}
	if p := c.Tick(); p != CheckInExpired {
		t.Errorf("tick after expiry: expected expired, got %s", p)
	}

	alerts := gw.raised()
	if len(alerts) != 1 {
		t.Fatalf("expected exactly 1 alert, got %d", len(alerts))
	}
	if alerts[0].Kind != AlertMissedCheckIn {
		t.Errorf("expected missed check-in kind, got %s", alerts[0].Kind)
	}
}

func TestCheckInPauseFreezesRemaining(t *testing.T) {
	gw := &fakeGateway{}
	c := NewCheckIn(gw, testLogger(), "u", "d")

	if err := c.Start(10); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	c.Tick()
	c.Tick()
	if c.Remaining() != 8 {
		t.Fatalf("expected remaining 8, got %d", c.Remaining())
	}

	if err := c.Pause(); err != nil {
		t.Fatalf("pause failed: %v", err)
	}

	// Ticks keep arriving but a paused timer ignores them
	for i := 0; i < 20; i++ {
		if p := c.Tick(); p != CheckInPaused {
			t.Fatalf("expected paused during tick storm, got %s", p)
		}
	}
	if c.Remaining() != 8 {
		t.Errorf("expected remaining frozen at 8, got %d", c.Remaining())
	}
	if len(gw.raised()) != 0 {
		t.Errorf("expected no alerts while paused, got %d", len(gw.raised()))
	}

	if err := c.Resume(); err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if p := c.Tick(); p != CheckInRunning {
		t.Errorf("expected running after resume, got %s", p)
	}
	if c.Remaining() != 7 {
		t.Errorf("expected remaining 7 after resume tick, got %d", c.Remaining())
	}
}

func TestCheckInCompleteBeforeExpiry(t *testing.T) {
	gw := &fakeGateway{}
	c := NewCheckIn(gw, testLogger(), "u", "d")

	if err := c.Start(5); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	c.Tick()
	if err := c.Complete(); err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if c.Phase() != CheckInCheckedIn {
		t.Errorf("expected checked_in, got %s", c.Phase())
	}
	if !c.Done() {
		t.Error("expected terminal phase after check-in")
	}

	if p := c.Tick(); p != CheckInCheckedIn {
		t.Errorf("tick after check-in: expected checked_in, got %s", p)
	}
	if len(gw.raised()) != 0 {
		t.Errorf("expected no alerts after successful check-in, got %d", len(gw.raised()))
	}
}

func TestCheckInCompleteWhilePaused(t *testing.T) {
	c := NewCheckIn(&fakeGateway{}, testLogger(), "u", "d")

	if err := c.Start(5); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := c.Pause(); err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	if err := c.Complete(); err != nil {
		t.Errorf("complete from paused failed: %v", err)
	}
	if c.Phase() != CheckInCheckedIn {
		t.Errorf("expected checked_in, got %s", c.Phase())
	}
}

func TestCheckInTransitionValidation(t *testing.T) {
	c := NewCheckIn(&fakeGateway{}, testLogger(), "u", "d")

	if err := c.Pause(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("pause while idle = %v, want ErrNotRunning", err)
	}
	if err := c.Resume(); !errors.Is(err, ErrNotPaused) {
		t.Errorf("resume while idle = %v, want ErrNotPaused", err)
	}
	if err := c.Complete(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("complete while idle = %v, want ErrNotRunning", err)
	}
	if err := c.Start(0); !errors.Is(err, ErrInvalidDuration) {
		t.Errorf("start with zero duration = %v, want ErrInvalidDuration", err)
	}

	if err := c.Start(3); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := c.Resume(); !errors.Is(err, ErrNotPaused) {
		t.Errorf("resume while running = %v, want ErrNotPaused", err)
	}
	if err := c.Start(3); !errors.Is(err, ErrNotIdle) {
		t.Errorf("restart while running = %v, want ErrNotIdle", err)
	}

	c.Tick()
	c.Tick()
	c.Tick()
	if c.Phase() != CheckInExpired {
		t.Fatalf("expected expired, got %s", c.Phase())
	}
	if err := c.Complete(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("complete after expiry = %v, want ErrNotRunning", err)
	}
	if err := c.Pause(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("pause after expiry = %v, want ErrNotRunning", err)
	}
}

func TestCheckInAdjust(t *testing.T) {
	gw := &fakeGateway{}
	c := NewCheckIn(gw, testLogger(), "u", "d")

	if err := c.Start(10); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := c.Adjust(30); err != nil {
		t.Fatalf("adjust failed: %v", err)
	}
	if c.Remaining() != 40 {
		t.Errorf("expected remaining 40, got %d", c.Remaining())
	}

	// Adjust is allowed while paused
	if err := c.Pause(); err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	if err := c.Adjust(-100); err != nil {
		t.Fatalf("adjust while paused failed: %v", err)
	}
	if c.Remaining() != 0 {
		t.Errorf("expected remaining clamped to 0, got %d", c.Remaining())
	}

	// Still paused: expiry waits for a resume plus a tick
	if p := c.Tick(); p != CheckInPaused {
		t.Fatalf("expected paused, got %s", p)
	}
	if err := c.Resume(); err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if p := c.Tick(); p != CheckInExpired {
		t.Errorf("expected expired on first running tick, got %s", p)
	}
	if len(gw.raised()) != 1 {
		t.Errorf("expected 1 alert, got %d", len(gw.raised()))
	}
}

func TestAlertKindRoundTrip(t *testing.T) {
	kinds := []AlertKind{AlertManualSOS, AlertMissedCheckIn, AlertAbnormalMovement}
	for _, k := range kinds {
		parsed, err := ParseAlertKind(k.String())
		if err != nil {
			t.Errorf("ParseAlertKind(%q) failed: %v", k.String(), err)
			continue
		}
		if parsed != k {
			t.Errorf("round trip changed kind: %v -> %v", k, parsed)
		}
	}

	if _, err := ParseAlertKind("smoke"); err == nil {
		t.Error("expected error for unknown kind name")
	}
}
