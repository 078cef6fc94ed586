package sos

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeGateway records raised alerts and optionally fails the dispatch
type fakeGateway struct {
	mu     sync.Mutex
	alerts []Alert
	err    error
}

func (g *fakeGateway) RaiseAlert(_ context.Context, a Alert) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return g.err
	}
	g.alerts = append(g.alerts, a)
	return nil
}

func (g *fakeGateway) raised() []Alert {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Alert, len(g.alerts))
	copy(out, g.alerts)
	return out
}

func TestCountdownFiresExactlyOnce(t *testing.T) {
	gw := &fakeGateway{}
	c := NewCountdown(gw, testLogger(), "user-1", "device-1")

	if err := c.Start(3); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if c.Phase() != PhaseCounting {
		t.Fatalf("expected counting phase, got %s", c.Phase())
	}

	if p := c.Tick(); p != PhaseCounting {
		t.Errorf("tick 1: expected counting, got %s", p)
	}
	if p := c.Tick(); p != PhaseCounting {
		t.Errorf("tick 2: expected counting, got %s", p)
	}
	if p := c.Tick(); p != PhaseFired {
		t.Errorf("tick 3: expected fired, got %s", p)
	}

	// A stray tick after firing must not dispatch again
	if p := c.Tick(); p != PhaseFired {
		t.Errorf("tick after fire: expected fired, got %s", p)
	}

	alerts := gw.raised()
	if len(alerts) != 1 {
		t.Fatalf("expected exactly 1 alert, got %d", len(alerts))
	}
	a := alerts[0]
	if a.Kind != AlertManualSOS {
		t.Errorf("expected manual SOS kind, got %s", a.Kind)
	}
	if a.UserID != "user-1" || a.DeviceID != "device-1" {
		t.Errorf("alert identity mismatch: %s/%s", a.UserID, a.DeviceID)
	}
	if a.ID == "" {
		t.Error("expected alert ID to be set")
	}
	if c.Remaining() != 0 {
		t.Errorf("expected remaining 0 after fire, got %d", c.Remaining())
	}
}

func TestCountdownCancelBeforeFinalTick(t *testing.T) {
	gw := &fakeGateway{}
	c := NewCountdown(gw, testLogger(), "user-1", "device-1")

	if err := c.Start(3); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	c.Tick()
	c.Tick()
	if err := c.Cancel(); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	// The final tick arrives after the cancel and must be ignored
	if p := c.Tick(); p != PhaseCancelled {
		t.Errorf("expected cancelled, got %s", p)
	}
	if len(gw.raised()) != 0 {
		t.Errorf("expected no alerts after cancel, got %d", len(gw.raised()))
	}
}

func TestCountdownStartValidation(t *testing.T) {
	tests := []struct {
		name     string
		duration int
		wantErr  error
	}{
		{"zero duration", 0, ErrInvalidDuration},
		{"negative duration", -5, ErrInvalidDuration},
		{"positive duration", 10, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCountdown(&fakeGateway{}, testLogger(), "u", "d")
			err := c.Start(tt.duration)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Start(%d) = %v, want %v", tt.duration, err, tt.wantErr)
			}
		})
	}
}

func TestCountdownInstanceIsSingleUse(t *testing.T) {
	gw := &fakeGateway{}
	c := NewCountdown(gw, testLogger(), "u", "d")

	if err := c.Start(1); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := c.Start(5); !errors.Is(err, ErrNotIdle) {
		t.Errorf("restart while counting = %v, want ErrNotIdle", err)
	}

	c.Tick()
	if !c.Done() {
		t.Fatal("expected terminal phase after fire")
	}
	if err := c.Start(5); !errors.Is(err, ErrNotIdle) {
		t.Errorf("restart after fire = %v, want ErrNotIdle", err)
	}
	if err := c.Cancel(); !errors.Is(err, ErrNotCounting) {
		t.Errorf("cancel after fire = %v, want ErrNotCounting", err)
	}
}

func TestCountdownAdjust(t *testing.T) {
	gw := &fakeGateway{}
	c := NewCountdown(gw, testLogger(), "u", "d")

	if err := c.Adjust(AdjustStepSec); !errors.Is(err, ErrNotCounting) {
		t.Errorf("adjust while idle = %v, want ErrNotCounting", err)
	}

	if err := c.Start(10); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := c.Adjust(AdjustStepSec); err != nil {
		t.Fatalf("adjust failed: %v", err)
	}
	if c.Remaining() != 70 {
		t.Errorf("expected remaining 70, got %d", c.Remaining())
	}

	// Negative adjust clamps at zero but does not fire on its own
	if err := c.Adjust(-500); err != nil {
		t.Fatalf("adjust failed: %v", err)
	}
	if c.Remaining() != 0 {
		t.Errorf("expected remaining clamped to 0, got %d", c.Remaining())
	}
	if c.Phase() != PhaseCounting {
		t.Errorf("expected still counting after clamp, got %s", c.Phase())
	}
	if len(gw.raised()) != 0 {
		t.Fatalf("expected no alert before next tick, got %d", len(gw.raised()))
	}

	// The next tick delivers the fire
	if p := c.Tick(); p != PhaseFired {
		t.Errorf("expected fired on tick after clamp, got %s", p)
	}
	if len(gw.raised()) != 1 {
		t.Errorf("expected 1 alert, got %d", len(gw.raised()))
	}
}

func TestCountdownFiresDespiteGatewayError(t *testing.T) {
	gw := &fakeGateway{err: errors.New("broker unreachable")}
	c := NewCountdown(gw, testLogger(), "u", "d")

	if err := c.Start(1); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if p := c.Tick(); p != PhaseFired {
		t.Errorf("expected fired even when dispatch fails, got %s", p)
	}
	if c.Phase() != PhaseFired {
		t.Errorf("expected terminal fired phase, got %s", c.Phase())
	}
}

func TestCountdownAutoTriggerMetadata(t *testing.T) {
	gw := &fakeGateway{}
	c := NewCountdown(gw, testLogger(), "user-1", "device-1")

	conf := 0.91
	c.SetTrigger(AlertAbnormalMovement, &conf)
	c.SetLocation(&Location{Latitude: 60.17, Longitude: 24.94})

	if err := c.Start(1); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	c.Tick()

	alerts := gw.raised()
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
	a := alerts[0]
	if a.Kind != AlertAbnormalMovement {
		t.Errorf("expected abnormal movement kind, got %s", a.Kind)
	}
	if a.Confidence == nil || *a.Confidence != 0.91 {
		t.Errorf("expected confidence 0.91, got %v", a.Confidence)
	}
	if a.Location == nil || a.Location.Latitude != 60.17 {
		t.Errorf("expected location to carry through, got %v", a.Location)
	}
}

func TestCountdownConcurrentTicksFireOnce(t *testing.T) {
	gw := &fakeGateway{}
	c := NewCountdown(gw, testLogger(), "u", "d")

	if err := c.Start(5); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Tick()
		}()
	}
	wg.Wait()

	if len(gw.raised()) != 1 {
		t.Errorf("expected exactly 1 alert under concurrent ticks, got %d", len(gw.raised()))
	}
	if c.Phase() != PhaseFired {
		t.Errorf("expected fired, got %s", c.Phase())
	}
}
