package redis

import "fmt"

// Key construction helpers for the safety pipeline.

// MovementLogKey returns the key for a device's movement event mirror (sorted set,
// score = detection timestamp in ms)
// Pattern: movement:{device_id}
func MovementLogKey(deviceID string) string {
	return fmt.Sprintf("movement:%s", deviceID)
}

// SosStatusKey returns the key for a device's live countdown status (hash)
// Pattern: sos:{device_id}
func SosStatusKey(deviceID string) string {
	return fmt.Sprintf("sos:%s", deviceID)
}

// CheckInStatusKey returns the key for a device's check-in timer status (hash)
// Pattern: checkin:{device_id}
func CheckInStatusKey(deviceID string) string {
	return fmt.Sprintf("checkin:%s", deviceID)
}

// DeviceMetaKey returns the key for device metadata (hash with lastSampleTime)
// Pattern: meta:device:{device_id}
func DeviceMetaKey(deviceID string) string {
	return fmt.Sprintf("meta:device:%s", deviceID)
}
