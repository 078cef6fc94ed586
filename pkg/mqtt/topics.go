package mqtt

import "fmt"

// Topic scheme for the safety pipeline.
//
// Raw sensor samples flow in on safety/raw/{sensor}/{device}, the monitor
// agent republishes classified movement events on safety/event/movement/{device},
// and the guardian agent consumes commands and publishes raised alerts.
const (
	// Raw sensor sample topics (input)
	TopicRawSensors = "safety/raw/+/+"
	TopicRawAccel   = "safety/raw/accelerometer/+"
	TopicRawGyro    = "safety/raw/gyroscope/+"

	// Movement event topics (output of the monitor agent)
	TopicMovementEvents = "safety/event/movement/+"

	// Alert topics (output of the guardian agent)
	TopicAlerts = "safety/alert/+"

	// Command topics (input of the guardian agent)
	TopicSosCommands     = "safety/command/sos/+"
	TopicCheckInCommands = "safety/command/checkin/+"

	// Movement log commands (input of the monitor agent)
	TopicMovementCommands = "safety/command/movement/+"
)

// Sensor type segments used in raw topics
const (
	SensorAccelerometer = "accelerometer"
	SensorGyroscope     = "gyroscope"
)

// RawSensorTopic constructs a raw sensor topic for a specific sensor type and device
// Pattern: safety/raw/{sensor_type}/{device_id}
func RawSensorTopic(sensorType, deviceID string) string {
	return fmt.Sprintf("safety/raw/%s/%s", sensorType, deviceID)
}

// MovementEventTopic constructs the movement event topic for a device
// Pattern: safety/event/movement/{device_id}
func MovementEventTopic(deviceID string) string {
	return fmt.Sprintf("safety/event/movement/%s", deviceID)
}

// AlertTopic constructs the alert topic for a device
// Pattern: safety/alert/{device_id}
func AlertTopic(deviceID string) string {
	return fmt.Sprintf("safety/alert/%s", deviceID)
}

// SosCommandTopic constructs the SOS command topic for a device
// Pattern: safety/command/sos/{device_id}
func SosCommandTopic(deviceID string) string {
	return fmt.Sprintf("safety/command/sos/%s", deviceID)
}

// CheckInCommandTopic constructs the check-in command topic for a device
// Pattern: safety/command/checkin/{device_id}
func CheckInCommandTopic(deviceID string) string {
	return fmt.Sprintf("safety/command/checkin/%s", deviceID)
}

// MovementCommandTopic constructs the movement log command topic for a device
// Pattern: safety/command/movement/{device_id}
func MovementCommandTopic(deviceID string) string {
	return fmt.Sprintf("safety/command/movement/%s", deviceID)
}
