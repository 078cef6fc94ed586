package scenario

import "fmt"

var knownSensors = map[string]bool{
	"accelerometer": true,
	"gyroscope":     true,
}

var knownChannels = map[string]bool{
	"sos":      true,
	"checkin":  true,
	"movement": true,
}

// ValidateScenario performs validation checks on a loaded scenario
func ValidateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("scenario name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("scenario description is required")
	}
	if s.Device.DeviceID == "" {
		return fmt.Errorf("device.device_id is required")
	}

	if err := validateSamples(s.Samples); err != nil {
		return fmt.Errorf("samples validation failed: %w", err)
	}
	if err := validateCommands(s.Commands); err != nil {
		return fmt.Errorf("commands validation failed: %w", err)
	}
	if err := validateWaitPeriods(s.Wait); err != nil {
		return fmt.Errorf("wait periods validation failed: %w", err)
	}
	if err := validateExpectations(s.Expectations); err != nil {
		return fmt.Errorf("expectations validation failed: %w", err)
	}

	if len(s.Samples) == 0 && len(s.Commands) == 0 {
		return fmt.Errorf("at least one sample or command is required")
	}

	return nil
}

func validateSamples(samples []SensorSample) error {
	for i, sample := range samples {
		if sample.Time < 0 {
			return fmt.Errorf("sample %d: time cannot be negative", i)
		}
		if !knownSensors[sample.Sensor] {
			return fmt.Errorf("sample %d: unknown sensor %q", i, sample.Sensor)
		}
		if sample.Repeat < 0 {
			return fmt.Errorf("sample %d: repeat cannot be negative", i)
		}
		if sample.Repeat > 1 && sample.IntervalMs <= 0 {
			return fmt.Errorf("sample %d: interval_ms is required when repeat > 1", i)
		}
		if sample.Description == "" {
			return fmt.Errorf("sample %d: description is required", i)
		}
	}
	return nil
}

func validateCommands(commands []CommandEvent) error {
	for i, cmd := range commands {
		if cmd.Time < 0 {
			return fmt.Errorf("command %d: time cannot be negative", i)
		}
		if !knownChannels[cmd.Channel] {
			return fmt.Errorf("command %d: unknown channel %q", i, cmd.Channel)
		}
		if cmd.Action == "" {
			return fmt.Errorf("command %d: action is required", i)
		}
		if cmd.Description == "" {
			return fmt.Errorf("command %d: description is required", i)
		}
	}
	return nil
}

func validateWaitPeriods(waits []WaitPeriod) error {
	for i, wait := range waits {
		if wait.Time < 0 {
			return fmt.Errorf("wait period %d: time cannot be negative", i)
		}
		if wait.Description == "" {
			return fmt.Errorf("wait period %d: description is required", i)
		}
	}
	return nil
}

func validateExpectations(expectations map[string][]Expectation) error {
	if len(expectations) == 0 {
		return fmt.Errorf("at least one expectation is required")
	}

	for layer, exps := range expectations {
		if layer == "" {
			return fmt.Errorf("expectation layer name cannot be empty")
		}

		for i, exp := range exps {
			if exp.Time < 0 {
				return fmt.Errorf("layer %s, expectation %d: time cannot be negative", layer, i)
			}
			if exp.Topic == "" && exp.RedisKey == "" && exp.PostgresQuery == "" {
				return fmt.Errorf("layer %s, expectation %d: topic, redis_key or postgres_query is required", layer, i)
			}
			if exp.Topic != "" && len(exp.Payload) == 0 {
				return fmt.Errorf("layer %s, expectation %d: MQTT expectations require a payload", layer, i)
			}
			if exp.RedisKey != "" {
				if exp.RedisField == "" {
					return fmt.Errorf("layer %s, expectation %d: redis_field is required with redis_key", layer, i)
				}
				if exp.Expected == "" {
					return fmt.Errorf("layer %s, expectation %d: expected is required with redis_key", layer, i)
				}
			}
			if exp.PostgresQuery != "" && exp.PostgresExpected == nil {
				return fmt.Errorf("layer %s, expectation %d: postgres_expected is required with postgres_query", layer, i)
			}
		}
	}

	return nil
}
