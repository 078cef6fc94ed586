package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sentra-safety/sentra-platform/internal/motion"
	"github.com/sentra-safety/sentra-platform/pkg/mqtt"
)

// Processor parses raw sensor sample messages off the wire
type Processor struct {
	logger *slog.Logger
}

// NewProcessor creates a new sample processor
func NewProcessor(logger *slog.Logger) *Processor {
	return &Processor{
		logger: logger,
	}
}

// SampleMessage is a parsed raw sensor sample with routing metadata
type SampleMessage struct {
	DeviceID      string
	UserID        string
	OriginalTopic string
	Sample        motion.Sample
}

// rawSample is the JSON body of a raw sensor message
type rawSample struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
	Timestamp int64   `json:"timestamp"`
	UserID    string  `json:"user_id"`
}

// ParseSample parses an MQTT message into a structured sensor sample.
// Topic pattern: safety/raw/{sensor_type}/{device_id}
func (p *Processor) ParseSample(topic string, payload []byte) (*SampleMessage, error) {
	parts := strings.Split(topic, "/")
	if len(parts) < 4 {
		p.logger.Warn("Invalid topic format", "topic", topic)
		return nil, fmt.Errorf("invalid topic format: %s (expected at least 4 parts)", topic)
	}

	sensorType := parts[2]
	deviceID := parts[3]

	var sensor motion.SensorType
	switch sensorType {
	case mqtt.SensorAccelerometer:
		sensor = motion.SensorAccelerometer
	case mqtt.SensorGyroscope:
		sensor = motion.SensorGyroscope
	default:
		return nil, fmt.Errorf("unknown sensor type: %s", sensorType)
	}

	// Messages are wrapped in {"data": {...}}
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		p.logger.Error("Failed to parse JSON payload", "topic", topic, "error", err)
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	body := envelope.Data
	if len(body) == 0 {
		// Fall back to the raw payload if there is no data wrapper
		body = payload
	}

	var raw rawSample
	if err := json.Unmarshal(body, &raw); err != nil {
		p.logger.Error("Failed to parse sample body", "topic", topic, "error", err)
		return nil, fmt.Errorf("failed to parse sample: %w", err)
	}

	if raw.Timestamp == 0 {
		raw.Timestamp = time.Now().UnixMilli()
	}

	msg := &SampleMessage{
		DeviceID:      deviceID,
		UserID:        raw.UserID,
		OriginalTopic: topic,
		Sample: motion.Sample{
			X:         raw.X,
			Y:         raw.Y,
			Z:         raw.Z,
			Sensor:    sensor,
			Timestamp: raw.Timestamp,
		},
	}

	p.logger.Debug("Parsed sensor sample",
		"sensor_type", sensorType,
		"device_id", deviceID,
		"timestamp_ms", raw.Timestamp)

	return msg, nil
}
