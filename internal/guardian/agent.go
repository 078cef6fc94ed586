package guardian

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sentra-safety/sentra-platform/internal/sos"
	"github.com/sentra-safety/sentra-platform/pkg/config"
	"github.com/sentra-safety/sentra-platform/pkg/mqtt"
	"github.com/sentra-safety/sentra-platform/pkg/redis"
)

// Agent owns the SOS countdowns and check-in timers for all devices. Commands
// arrive over MQTT, ticks come from per-instance drivers, and both funnel into
// the machines' own serialization, so a cancel racing the final tick resolves
// deterministically.
type Agent struct {
	mqtt    mqtt.Client
	redis   redis.Client
	gateway sos.Gateway
	driver  *sos.Driver
	status  *StatusMirror
	cfg     *config.Config
	logger  *slog.Logger

	mu         sync.Mutex
	countdowns map[string]*countdownSession
	checkIns   map[string]*checkInSession
	runCtx     context.Context
}

// countdownSession pairs a countdown instance with its driver's cancel func
type countdownSession struct {
	machine *sos.Countdown
	cancel  context.CancelFunc
}

// checkInSession pairs a check-in timer with its driver's cancel func
type checkInSession struct {
	machine *sos.CheckIn
	cancel  context.CancelFunc
}

// NewAgent creates a new guardian agent with the given dependencies
func NewAgent(mqttClient mqtt.Client, redisClient redis.Client, gateway sos.Gateway, cfg *config.Config, logger *slog.Logger) *Agent {
	return &Agent{
		mqtt:       mqttClient,
		redis:      redisClient,
		gateway:    gateway,
		driver:     sos.NewDriver(logger),
		status:     NewStatusMirror(redisClient, logger),
		cfg:        cfg,
		logger:     logger,
		countdowns: make(map[string]*countdownSession),
		checkIns:   make(map[string]*checkInSession),
	}
}

// Start starts the guardian agent and begins processing commands
func (a *Agent) Start(ctx context.Context) error {
	a.logger.Info("Starting guardian agent",
		"service_name", a.cfg.ServiceName,
		"mqtt_broker", a.cfg.MQTTAddress())

	a.mu.Lock()
	a.runCtx = ctx
	a.mu.Unlock()

	if err := a.mqtt.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to MQTT: %w", err)
	}

	if err := a.redis.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}

	if err := a.mqtt.Subscribe(mqtt.TopicSosCommands, 1, a.handleSosCommand); err != nil {
		return fmt.Errorf("failed to subscribe to SOS commands: %w", err)
	}
	if err := a.mqtt.Subscribe(mqtt.TopicCheckInCommands, 1, a.handleCheckInCommand); err != nil {
		return fmt.Errorf("failed to subscribe to check-in commands: %w", err)
	}

	a.logger.Info("Guardian agent started and ready to receive commands")

	<-ctx.Done()
	a.logger.Info("Guardian agent stopping")

	return nil
}

// Stop gracefully stops the guardian agent
func (a *Agent) Stop() error {
	a.logger.Info("Stopping guardian agent")

	a.mu.Lock()
	for _, s := range a.countdowns {
		s.cancel()
	}
	for _, s := range a.checkIns {
		s.cancel()
	}
	a.mu.Unlock()

	a.mqtt.Disconnect()

	if err := a.redis.Close(); err != nil {
		a.logger.Error("Error closing Redis connection", "error", err)
		return err
	}

	a.logger.Info("Guardian agent stopped")
	return nil
}

// handleSosCommand processes a command on the SOS topic
func (a *Agent) handleSosCommand(msg mqtt.Message) {
	cmd, err := ParseCommand(msg.Topic(), msg.Payload())
	if err != nil {
		a.logger.Error("Failed to parse SOS command", "topic", msg.Topic(), "error", err)
		return
	}

	ctx := context.Background()

	switch cmd.Action {
	case ActionStart:
		a.startCountdown(ctx, cmd)
	case ActionCancel:
		a.withCountdown(cmd.DeviceID, func(s *countdownSession) {
			if err := s.machine.Cancel(); err != nil {
				a.logger.Warn("Cancel rejected", "device_id", cmd.DeviceID, "error", err)
				return
			}
			s.cancel()
			a.status.MirrorCountdown(ctx, cmd.DeviceID, s.machine)
		})
	case ActionAdjust:
		a.withCountdown(cmd.DeviceID, func(s *countdownSession) {
			delta := cmd.DeltaSec
			if delta == 0 {
				delta = sos.AdjustStepSec
			}
			if err := s.machine.Adjust(delta); err != nil {
				a.logger.Warn("Adjust rejected", "device_id", cmd.DeviceID, "error", err)
				return
			}
			a.status.MirrorCountdown(ctx, cmd.DeviceID, s.machine)
		})
	default:
		a.logger.Warn("Unknown SOS command", "device_id", cmd.DeviceID, "action", cmd.Action)
	}
}

// startCountdown creates and starts a fresh countdown instance for the device.
// A still-active instance is left alone: the first trigger wins.
func (a *Agent) startCountdown(ctx context.Context, cmd *Command) {
	a.mu.Lock()
	if existing, ok := a.countdowns[cmd.DeviceID]; ok && !existing.machine.Done() {
		a.mu.Unlock()
		a.logger.Warn("Countdown already active, ignoring start", "device_id", cmd.DeviceID)
		return
	}
	runCtx := a.runCtx
	a.mu.Unlock()
	if runCtx == nil {
		runCtx = context.Background()
	}

	userID := cmd.UserID
	if userID == "" {
		userID = cmd.DeviceID
	}

	machine := sos.NewCountdown(a.gateway, a.logger, userID, cmd.DeviceID)
	if cmd.Source == "auto_motion" {
		conf := cmd.Confidence
		machine.SetTrigger(sos.AlertAbnormalMovement, &conf)
	}
	if cmd.Latitude != nil && cmd.Longitude != nil {
		machine.SetLocation(&sos.Location{Latitude: *cmd.Latitude, Longitude: *cmd.Longitude})
	}

	duration := cmd.DurationSec
	if duration == 0 {
		duration = a.cfg.DefaultSosCountdownSec
	}

	if err := machine.Start(duration); err != nil {
		// Rejected start: machine unchanged, the caller's UI surfaces feedback
		a.logger.Warn("Countdown start rejected",
			"device_id", cmd.DeviceID,
			"duration_sec", duration,
			"error", err)
		return
	}

	driveCtx, cancel := context.WithCancel(runCtx)
	session := &countdownSession{machine: machine, cancel: cancel}

	a.mu.Lock()
	a.countdowns[cmd.DeviceID] = session
	a.mu.Unlock()

	a.status.MirrorCountdown(ctx, cmd.DeviceID, machine)

	go a.driver.RunCountdown(driveCtx, machine, func() {
		a.status.MirrorCountdown(context.Background(), cmd.DeviceID, machine)
	})
}

// withCountdown runs fn with the device's countdown session if one exists
func (a *Agent) withCountdown(deviceID string, fn func(*countdownSession)) {
	a.mu.Lock()
	s, ok := a.countdowns[deviceID]
	a.mu.Unlock()

	if !ok {
		a.logger.Warn("No countdown for device", "device_id", deviceID)
		return
	}
	fn(s)
}

// handleCheckInCommand processes a command on the check-in topic
func (a *Agent) handleCheckInCommand(msg mqtt.Message) {
	cmd, err := ParseCommand(msg.Topic(), msg.Payload())
	if err != nil {
		a.logger.Error("Failed to parse check-in command", "topic", msg.Topic(), "error", err)
		return
	}

	ctx := context.Background()

	switch cmd.Action {
	case ActionStart:
		a.startCheckIn(ctx, cmd)
	case ActionPause:
		a.withCheckIn(cmd.DeviceID, func(s *checkInSession) {
			if err := s.machine.Pause(); err != nil {
				a.logger.Warn("Pause rejected", "device_id", cmd.DeviceID, "error", err)
				return
			}
			a.status.MirrorCheckIn(ctx, cmd.DeviceID, s.machine)
		})
	case ActionResume:
		a.withCheckIn(cmd.DeviceID, func(s *checkInSession) {
			if err := s.machine.Resume(); err != nil {
				a.logger.Warn("Resume rejected", "device_id", cmd.DeviceID, "error", err)
				return
			}
			a.status.MirrorCheckIn(ctx, cmd.DeviceID, s.machine)
		})
	case ActionCheckIn:
		a.withCheckIn(cmd.DeviceID, func(s *checkInSession) {
			if err := s.machine.Complete(); err != nil {
				a.logger.Warn("Check-in rejected", "device_id", cmd.DeviceID, "error", err)
				return
			}
			s.cancel()
			a.status.MirrorCheckIn(ctx, cmd.DeviceID, s.machine)
		})
	case ActionAdjust:
		a.withCheckIn(cmd.DeviceID, func(s *checkInSession) {
			delta := cmd.DeltaSec
			if delta == 0 {
				delta = sos.AdjustStepSec
			}
			if err := s.machine.Adjust(delta); err != nil {
				a.logger.Warn("Adjust rejected", "device_id", cmd.DeviceID, "error", err)
				return
			}
			a.status.MirrorCheckIn(ctx, cmd.DeviceID, s.machine)
		})
	default:
		a.logger.Warn("Unknown check-in command", "device_id", cmd.DeviceID, "action", cmd.Action)
	}
}

// startCheckIn creates and starts a fresh check-in timer for the device
func (a *Agent) startCheckIn(ctx context.Context, cmd *Command) {
	a.mu.Lock()
	if existing, ok := a.checkIns[cmd.DeviceID]; ok && !existing.machine.Done() {
		a.mu.Unlock()
		a.logger.Warn("Check-in timer already active, ignoring start", "device_id", cmd.DeviceID)
		return
	}
	runCtx := a.runCtx
	a.mu.Unlock()
	if runCtx == nil {
		runCtx = context.Background()
	}

	userID := cmd.UserID
	if userID == "" {
		userID = cmd.DeviceID
	}

	machine := sos.NewCheckIn(a.gateway, a.logger, userID, cmd.DeviceID)
	if cmd.Latitude != nil && cmd.Longitude != nil {
		machine.SetLocation(&sos.Location{Latitude: *cmd.Latitude, Longitude: *cmd.Longitude})
	}

	duration := cmd.DurationSec
	if duration == 0 {
		duration = a.cfg.DefaultCheckInSec
	}

	if err := machine.Start(duration); err != nil {
		a.logger.Warn("Check-in start rejected",
			"device_id", cmd.DeviceID,
			"duration_sec", duration,
			"error", err)
		return
	}

	driveCtx, cancel := context.WithCancel(runCtx)
	session := &checkInSession{machine: machine, cancel: cancel}

	a.mu.Lock()
	a.checkIns[cmd.DeviceID] = session
	a.mu.Unlock()

	a.status.MirrorCheckIn(ctx, cmd.DeviceID, machine)

	go a.driver.RunCheckIn(driveCtx, machine, func() {
		a.status.MirrorCheckIn(context.Background(), cmd.DeviceID, machine)
	})
}

// withCheckIn runs fn with the device's check-in session if one exists
func (a *Agent) withCheckIn(deviceID string, fn func(*checkInSession)) {
	a.mu.Lock()
	s, ok := a.checkIns[deviceID]
	a.mu.Unlock()

	if !ok {
		a.logger.Warn("No check-in timer for device", "device_id", deviceID)
		return
	}
	fn(s)
}
