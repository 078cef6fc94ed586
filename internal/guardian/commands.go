package guardian

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Command actions accepted on the SOS and check-in command topics
const (
	ActionStart   = "start"
	ActionCancel  = "cancel"
	ActionAdjust  = "adjust"
	ActionPause   = "pause"
	ActionResume  = "resume"
	ActionCheckIn = "checkin"
)

// Command is a parsed control message for one device's state machine
type Command struct {
	DeviceID    string
	Action      string
	DurationSec int
	DeltaSec    int
	UserID      string
	Source      string
	TriggerKind string
	Confidence  float64
	Latitude    *float64
	Longitude   *float64
}

// commandBody is the JSON body of a command message
type commandBody struct {
	Action      string   `json:"action"`
	DurationSec int      `json:"duration_sec"`
	DeltaSec    int      `json:"delta_sec"`
	UserID      string   `json:"user_id"`
	Source      string   `json:"source"`
	TriggerKind string   `json:"trigger_kind"`
	Confidence  float64  `json:"confidence"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
}

// ParseCommand parses a command message from its topic and payload.
// Topic pattern: safety/command/{sos|checkin}/{device_id}
func ParseCommand(topic string, payload []byte) (*Command, error) {
	parts := strings.Split(topic, "/")
	if len(parts) < 4 {
		return nil, fmt.Errorf("invalid command topic: %s (expected at least 4 parts)", topic)
	}
	deviceID := parts[3]

	var envelope struct {
		Data commandBody `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse command JSON: %w", err)
	}

	if envelope.Data.Action == "" {
		return nil, fmt.Errorf("command has no action")
	}

	return &Command{
		DeviceID:    deviceID,
		Action:      envelope.Data.Action,
		DurationSec: envelope.Data.DurationSec,
		DeltaSec:    envelope.Data.DeltaSec,
		UserID:      envelope.Data.UserID,
		Source:      envelope.Data.Source,
		TriggerKind: envelope.Data.TriggerKind,
		Confidence:  envelope.Data.Confidence,
		Latitude:    envelope.Data.Latitude,
		Longitude:   envelope.Data.Longitude,
	}, nil
}
