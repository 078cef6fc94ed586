package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/sentra-safety/sentra-platform/internal/motion"
	"github.com/sentra-safety/sentra-platform/pkg/config"
	"github.com/sentra-safety/sentra-platform/pkg/mqtt"
	"github.com/sentra-safety/sentra-platform/pkg/redis"
)

// Storage mirrors movement events into Redis and republishes them on the
// device's movement event topic. The in-memory movement log stays the source
// of truth for the monitoring session; the Redis mirror is what UIs read.
type Storage struct {
	redis  redis.Client
	mqtt   mqtt.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewStorage creates a new storage handler
func NewStorage(redisClient redis.Client, mqttClient mqtt.Client, cfg *config.Config, logger *slog.Logger) *Storage {
	return &Storage{
		redis:  redisClient,
		mqtt:   mqttClient,
		ttl:    time.Duration(cfg.MovementHistoryHours) * time.Hour,
		logger: logger,
	}
}

// movementMessage is the wire form of a movement event
type movementMessage struct {
	ID         string  `json:"id"`
	DeviceID   string  `json:"device_id"`
	Kind       string  `json:"kind"`
	Confidence float64 `json:"confidence"`
	Timestamp  int64   `json:"timestamp"`
}

// StoreEvent mirrors one movement event to the device's sorted set, trims
// entries older than the retention window and refreshes the TTL
func (s *Storage) StoreEvent(ctx context.Context, deviceID string, event motion.Event) error {
	key := redis.MovementLogKey(deviceID)

	msg := movementMessage{
		ID:         event.ID,
		DeviceID:   deviceID,
		Kind:       event.Kind.String(),
		Confidence: event.Confidence,
		Timestamp:  event.Timestamp,
	}

	jsonData, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal movement event: %w", err)
	}

	// Add to sorted set with detection timestamp as score
	if err := s.redis.ZAdd(ctx, key, float64(event.Timestamp), jsonData); err != nil {
		return fmt.Errorf("failed to add movement event to sorted set: %w", err)
	}

	// Clean entries older than the retention window
	maxAgeTimestamp := event.Timestamp - s.ttl.Milliseconds()
	if err := s.redis.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(maxAgeTimestamp, 10)); err != nil {
		s.logger.Warn("Failed to clean old movement events", "device_id", deviceID, "error", err)
	}

	if err := s.redis.Expire(ctx, key, s.ttl); err != nil {
		return fmt.Errorf("failed to set TTL on movement events: %w", err)
	}

	count, err := s.redis.ZCard(ctx, key)
	if err != nil {
		s.logger.Warn("Failed to get movement buffer size", "device_id", deviceID, "error", err)
	} else {
		s.logger.Debug("Stored movement event",
			"device_id", deviceID,
			"kind", msg.Kind,
			"buffer_size", count)
	}

	return nil
}

// PublishEvent republishes a movement event on safety/event/movement/{device}
func (s *Storage) PublishEvent(deviceID string, event motion.Event) error {
	msg := movementMessage{
		ID:         event.ID,
		DeviceID:   deviceID,
		Kind:       event.Kind.String(),
		Confidence: event.Confidence,
		Timestamp:  event.Timestamp,
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal movement event: %w", err)
	}

	topic := mqtt.MovementEventTopic(deviceID)
	if err := s.mqtt.Publish(topic, 0, false, payload); err != nil {
		return fmt.Errorf("failed to publish movement event: %w", err)
	}

	s.logger.Debug("Published movement event", "topic", topic, "kind", msg.Kind)
	return nil
}

// ClearEvents drops the device's mirrored movement history so UIs stop
// seeing events the in-memory log no longer holds
func (s *Storage) ClearEvents(ctx context.Context, deviceID string) error {
	if err := s.redis.Del(ctx, redis.MovementLogKey(deviceID)); err != nil {
		return fmt.Errorf("failed to clear movement history: %w", err)
	}
	return nil
}

// TouchDevice records the last sample time for a device in its metadata hash
func (s *Storage) TouchDevice(ctx context.Context, deviceID string, timestampMs int64) {
	metaKey := redis.DeviceMetaKey(deviceID)

	if err := s.redis.HSet(ctx, metaKey, "lastSampleTime", strconv.FormatInt(timestampMs, 10)); err != nil {
		s.logger.Warn("Failed to update device metadata", "device_id", deviceID, "error", err)
		return
	}
	if err := s.redis.Expire(ctx, metaKey, s.ttl); err != nil {
		s.logger.Warn("Failed to set TTL on device metadata", "device_id", deviceID, "error", err)
	}
}
