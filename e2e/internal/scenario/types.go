package scenario

import "time"

// Scenario represents a complete end-to-end test scenario: a stream of raw
// sensor samples and control commands for one device, plus the expected
// platform reactions.
type Scenario struct {
	Name         string                   `yaml:"name"`
	Description  string                   `yaml:"description"`
	Device       DeviceConfig             `yaml:"device"`
	Samples      []SensorSample           `yaml:"samples"`
	Commands     []CommandEvent           `yaml:"commands"`
	Wait         []WaitPeriod             `yaml:"wait"`
	Expectations map[string][]Expectation `yaml:"expectations"`
}

// DeviceConfig identifies the simulated device under test
type DeviceConfig struct {
	DeviceID string `yaml:"device_id"`
	UserID   string `yaml:"user_id"`
}

// SensorSample is one raw sensor reading to publish during the test.
// Repeat/IntervalMs turn a single entry into a burst, which keeps scenarios
// for sustained-motion detections short.
type SensorSample struct {
	Time        int     `yaml:"time"`   // Seconds from scenario start
	Sensor      string  `yaml:"sensor"` // "accelerometer" or "gyroscope"
	X           float64 `yaml:"x"`
	Y           float64 `yaml:"y"`
	Z           float64 `yaml:"z"`
	Repeat      int     `yaml:"repeat,omitempty"`
	IntervalMs  int     `yaml:"interval_ms,omitempty"`
	Description string  `yaml:"description"`
}

// CommandEvent is one control command to publish during the test
type CommandEvent struct {
	Time        int    `yaml:"time"`
	Channel     string `yaml:"channel"` // "sos", "checkin" or "movement"
	Action      string `yaml:"action"`
	DurationSec int    `yaml:"duration_sec,omitempty"`
	DeltaSec    int    `yaml:"delta_sec,omitempty"`
	Description string `yaml:"description"`
}

// WaitPeriod represents a documented pause in the scenario
type WaitPeriod struct {
	Time        int    `yaml:"time"`
	Description string `yaml:"description"`
}

// Expectation represents an expected outcome to verify
type Expectation struct {
	Time    int                    `yaml:"time"`
	Topic   string                 `yaml:"topic,omitempty"`
	Payload map[string]interface{} `yaml:"payload,omitempty"` // Supports ~regex~ and >/< matchers

	// Redis state checks (status hashes written by the guardian agent)
	RedisKey   string `yaml:"redis_key,omitempty"`
	RedisField string `yaml:"redis_field,omitempty"`
	Expected   string `yaml:"expected,omitempty"`

	// Postgres state checks (alert rows); the query must return a single value
	PostgresQuery    string      `yaml:"postgres_query,omitempty"`
	PostgresExpected interface{} `yaml:"postgres_expected,omitempty"`
}

// ExpectationResult captures the outcome of a single expectation check
type ExpectationResult struct {
	Layer         string
	Expectation   Expectation
	Passed        bool
	Reason        string
	ActualTopic   string
	ActualPayload interface{}
}

// TestResult is the outcome of a full scenario run
type TestResult struct {
	Scenario     *Scenario
	StartTime    time.Time
	EndTime      time.Time
	Passed       bool
	PassedCount  int
	FailedCount  int
	Expectations []ExpectationResult
}
