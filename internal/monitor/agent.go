package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/sentra-safety/sentra-platform/internal/motion"
	"github.com/sentra-safety/sentra-platform/pkg/config"
	"github.com/sentra-safety/sentra-platform/pkg/mqtt"
	"github.com/sentra-safety/sentra-platform/pkg/redis"
)

// Agent receives raw sensor samples over MQTT, runs one motion classifier per
// device session and fans classified events out to Redis, the movement event
// topic and (for high-confidence detections) the SOS command topic.
type Agent struct {
	mqtt      mqtt.Client
	redis     redis.Client
	processor *Processor
	storage   *Storage
	cfg       *config.Config
	logger    *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

// session is one device's monitoring state. The classifier instance is owned
// by the session and torn down with it, never shared.
type session struct {
	deviceID   string
	userID     string
	classifier *motion.Classifier
	log        *motion.Log
}

// NewAgent creates a new monitor agent with the given dependencies
func NewAgent(mqttClient mqtt.Client, redisClient redis.Client, cfg *config.Config, logger *slog.Logger) *Agent {
	return &Agent{
		mqtt:      mqttClient,
		redis:     redisClient,
		processor: NewProcessor(logger),
		storage:   NewStorage(redisClient, mqttClient, cfg, logger),
		cfg:       cfg,
		logger:    logger,
		sessions:  make(map[string]*session),
	}
}

// Start starts the monitor agent and begins processing sensor samples
func (a *Agent) Start(ctx context.Context) error {
	a.logger.Info("Starting monitor agent",
		"service_name", a.cfg.ServiceName,
		"mqtt_broker", a.cfg.MQTTAddress())

	if err := a.mqtt.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to MQTT: %w", err)
	}

	if err := a.redis.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}

	for _, topic := range a.cfg.SensorTopics {
		if err := a.mqtt.Subscribe(topic, 0, a.handleSample); err != nil {
			a.logger.Error("Failed to subscribe to topic", "topic", topic, "error", err)
			continue
		}
	}

	if err := a.mqtt.Subscribe(mqtt.TopicMovementCommands, 1, a.handleMovementCommand); err != nil {
		return fmt.Errorf("failed to subscribe to movement commands: %w", err)
	}

	a.logger.Info("Monitor agent started and ready to receive samples",
		"subscribed_topics", strings.Join(a.cfg.SensorTopics, ", "))

	<-ctx.Done()
	a.logger.Info("Monitor agent stopping")

	return nil
}

// Stop gracefully stops the monitor agent
func (a *Agent) Stop() error {
	a.logger.Info("Stopping monitor agent")

	a.mu.Lock()
	for _, s := range a.sessions {
		s.classifier.Stop()
	}
	a.mu.Unlock()

	a.mqtt.Disconnect()

	if err := a.redis.Close(); err != nil {
		a.logger.Error("Error closing Redis connection", "error", err)
		return err
	}

	a.logger.Info("Monitor agent stopped")
	return nil
}

// MovementLog returns the movement log for a device, or nil if the device has
// no active monitoring session
func (a *Agent) MovementLog(deviceID string) *motion.Log {
	a.mu.Lock()
	defer a.mu.Unlock()
	if s, ok := a.sessions[deviceID]; ok {
		return s.log
	}
	return nil
}

// handleSample processes incoming raw sensor messages
func (a *Agent) handleSample(msg mqtt.Message) {
	sampleMsg, err := a.processor.ParseSample(msg.Topic(), msg.Payload())
	if err != nil {
		a.logger.Error("Failed to parse sample", "topic", msg.Topic(), "error", err)
		return
	}

	s := a.sessionFor(sampleMsg)
	a.storage.TouchDevice(context.Background(), s.deviceID, sampleMsg.Sample.Timestamp)

	// Sensor delivery is a single logical stream per device, so this is the
	// only writer into the classifier
	s.classifier.Process(sampleMsg.Sample)
}

// sessionFor returns the monitoring session for the sample's device, creating
// and starting one on first contact
func (a *Agent) sessionFor(msg *SampleMessage) *session {
	a.mu.Lock()
	defer a.mu.Unlock()

	if s, ok := a.sessions[msg.DeviceID]; ok {
		if s.userID == "" && msg.UserID != "" {
			s.userID = msg.UserID
		}
		return s
	}

	s := &session{
		deviceID: msg.DeviceID,
		userID:   msg.UserID,
		log:      motion.NewLog(),
	}
	s.classifier = motion.NewClassifier(s.log, a.logger)
	s.classifier.AddListener(motion.ListenerFunc(func(event motion.Event) {
		a.handleEvent(s, event)
	}))
	s.classifier.Start()

	a.sessions[msg.DeviceID] = s
	a.logger.Info("Monitoring session started", "device_id", msg.DeviceID)

	return s
}

// handleEvent fans one classified movement event out to the mirrors and,
// for high-confidence detections, the SOS auto-trigger
func (a *Agent) handleEvent(s *session, event motion.Event) {
	ctx := context.Background()

	if err := a.storage.StoreEvent(ctx, s.deviceID, event); err != nil {
		a.logger.Error("Failed to store movement event",
			"device_id", s.deviceID,
			"kind", event.Kind.String(),
			"error", err)
		// Keep publishing even if the mirror write fails
	}

	if err := a.storage.PublishEvent(s.deviceID, event); err != nil {
		a.logger.Error("Failed to publish movement event",
			"device_id", s.deviceID,
			"kind", event.Kind.String(),
			"error", err)
	}

	if a.cfg.AutoTriggerEnabled && event.Confidence >= a.cfg.AutoTriggerMinConf {
		a.autoTrigger(s, event)
	}
}

// autoTrigger asks the guardian agent to start an SOS countdown for the
// device. Going through the command topic keeps the guardian the single owner
// of countdown state.
func (a *Agent) autoTrigger(s *session, event motion.Event) {
	cmd := map[string]interface{}{
		"data": map[string]interface{}{
			"action":       "start",
			"duration_sec": a.cfg.AutoTriggerCountdown,
			"user_id":      s.userID,
			"source":       "auto_motion",
			"trigger_kind": event.Kind.String(),
			"confidence":   event.Confidence,
		},
	}

	payload, err := json.Marshal(cmd)
	if err != nil {
		a.logger.Error("Failed to marshal auto-trigger command", "device_id", s.deviceID, "error", err)
		return
	}

	topic := mqtt.SosCommandTopic(s.deviceID)
	if err := a.mqtt.Publish(topic, 1, false, payload); err != nil {
		a.logger.Error("Failed to publish auto-trigger command",
			"device_id", s.deviceID,
			"topic", topic,
			"error", err)
		return
	}

	a.logger.Info("Auto-triggered SOS countdown",
		"device_id", s.deviceID,
		"trigger_kind", event.Kind.String(),
		"confidence", event.Confidence)
}

// handleMovementCommand processes movement log commands (currently only clear)
func (a *Agent) handleMovementCommand(msg mqtt.Message) {
	parts := strings.Split(msg.Topic(), "/")
	if len(parts) < 4 {
		a.logger.Warn("Invalid command topic", "topic", msg.Topic())
		return
	}
	deviceID := parts[3]

	var envelope struct {
		Data struct {
			Action string `json:"action"`
		} `json:"data"`
	}
	if err := json.Unmarshal(msg.Payload(), &envelope); err != nil {
		a.logger.Error("Failed to parse movement command", "topic", msg.Topic(), "error", err)
		return
	}

	switch envelope.Data.Action {
	case "clear":
		a.mu.Lock()
		s, ok := a.sessions[deviceID]
		a.mu.Unlock()
		if !ok {
			a.logger.Warn("Clear for unknown device", "device_id", deviceID)
			return
		}
		s.log.Clear()
		if err := a.storage.ClearEvents(context.Background(), deviceID); err != nil {
			a.logger.Error("Failed to clear movement mirror", "device_id", deviceID, "error", err)
		}
		a.logger.Info("Movement log cleared", "device_id", deviceID)
	default:
		a.logger.Warn("Unknown movement command",
			"device_id", deviceID,
			"action", envelope.Data.Action)
	}
}
