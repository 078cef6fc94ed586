package sos

import (
	"context"
	"testing"
	"time"
)

func TestDriverDrivesCountdownToFire(t *testing.T) {
	gw := &fakeGateway{}
	c := NewCountdown(gw, testLogger(), "u", "d")
	if err := c.Start(3); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	var ticks int
	d := NewDriverWithInterval(time.Millisecond, testLogger())

	done := make(chan struct{})
	go func() {
		d.RunCountdown(context.Background(), c, func() { ticks++ })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("driver did not finish")
	}

	if c.Phase() != PhaseFired {
		t.Errorf("expected fired, got %s", c.Phase())
	}
	if len(gw.raised()) != 1 {
		t.Errorf("expected 1 alert, got %d", len(gw.raised()))
	}
	if ticks != 3 {
		t.Errorf("expected 3 delivered ticks, got %d", ticks)
	}
}

func TestDriverStopsOnContextCancel(t *testing.T) {
	gw := &fakeGateway{}
	c := NewCountdown(gw, testLogger(), "u", "d")
	if err := c.Start(1000); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := NewDriverWithInterval(time.Millisecond, testLogger())

	done := make(chan struct{})
	go func() {
		d.RunCountdown(ctx, c, nil)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("driver did not stop on cancel")
	}

	if c.Phase() != PhaseCounting {
		t.Errorf("expected machine left counting, got %s", c.Phase())
	}
	if len(gw.raised()) != 0 {
		t.Errorf("expected no alerts after cancelled driver, got %d", len(gw.raised()))
	}
}

func TestDriverDrivesCheckInToExpiry(t *testing.T) {
	gw := &fakeGateway{}
	c := NewCheckIn(gw, testLogger(), "u", "d")
	if err := c.Start(2); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	d := NewDriverWithInterval(time.Millisecond, testLogger())

	done := make(chan struct{})
	go func() {
		d.RunCheckIn(context.Background(), c, nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("driver did not finish")
	}

	if c.Phase() != CheckInExpired {
		t.Errorf("expected expired, got %s", c.Phase())
	}
	alerts := gw.raised()
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
	if alerts[0].Kind != AlertMissedCheckIn {
		t.Errorf("expected missed check-in kind, got %s", alerts[0].Kind)
	}
}

func TestDriverStopsWhenMachineAlreadyTerminal(t *testing.T) {
	gw := &fakeGateway{}
	c := NewCountdown(gw, testLogger(), "u", "d")
	if err := c.Start(5); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := c.Cancel(); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	d := NewDriverWithInterval(time.Millisecond, testLogger())

	done := make(chan struct{})
	go func() {
		d.RunCountdown(context.Background(), c, nil)
		close(done)
	}()

	// The first delivered tick observes the terminal phase and returns
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("driver did not stop for terminal machine")
	}

	if len(gw.raised()) != 0 {
		t.Errorf("expected no alerts, got %d", len(gw.raised()))
	}
}
