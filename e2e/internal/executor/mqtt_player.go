package executor

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/sentra-safety/sentra-platform/e2e/internal/scenario"
)

// MQTTPlayer publishes scenario traffic to the MQTT broker: raw sensor
// samples on the raw topics and control commands on the command topics.
type MQTTPlayer struct {
	client mqtt.Client
	logger *log.Logger
}

// NewMQTTPlayer creates a player connected to the given broker
func NewMQTTPlayer(broker string, logger *log.Logger) (*MQTTPlayer, error) {
	if logger == nil {
		logger = log.Default()
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID("sentra-e2e-player")
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	token.Wait()
	if token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	logger.Printf("Connected to MQTT broker at %s", broker)

	return &MQTTPlayer{
		client: client,
		logger: logger,
	}, nil
}

// PublishSample publishes one sensor sample entry. Repeat bursts are spaced
// by the configured interval and timestamped individually.
func (p *MQTTPlayer) PublishSample(device scenario.DeviceConfig, sample scenario.SensorSample) error {
	topic := fmt.Sprintf("safety/raw/%s/%s", sample.Sensor, device.DeviceID)

	repeat := sample.Repeat
	if repeat < 1 {
		repeat = 1
	}

	for i := 0; i < repeat; i++ {
		payload := map[string]interface{}{
			"data": map[string]interface{}{
				"x":         sample.X,
				"y":         sample.Y,
				"z":         sample.Z,
				"timestamp": time.Now().UnixMilli(),
				"user_id":   device.UserID,
			},
		}

		payloadBytes, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal sample: %w", err)
		}

		token := p.client.Publish(topic, 0, false, payloadBytes)
		token.Wait()
		if token.Error() != nil {
			return fmt.Errorf("failed to publish to %s: %w", topic, token.Error())
		}

		if i < repeat-1 {
			time.Sleep(time.Duration(sample.IntervalMs) * time.Millisecond)
		}
	}

	p.logger.Printf("Published %d sample(s) to %s", repeat, topic)
	return nil
}

// PublishCommand publishes one control command with QoS 1 to ensure delivery
func (p *MQTTPlayer) PublishCommand(device scenario.DeviceConfig, cmd scenario.CommandEvent) error {
	topic := fmt.Sprintf("safety/command/%s/%s", cmd.Channel, device.DeviceID)

	body := map[string]interface{}{
		"action":  cmd.Action,
		"user_id": device.UserID,
	}
	if cmd.DurationSec != 0 {
		body["duration_sec"] = cmd.DurationSec
	}
	if cmd.DeltaSec != 0 {
		body["delta_sec"] = cmd.DeltaSec
	}

	payloadBytes, err := json.Marshal(map[string]interface{}{"data": body})
	if err != nil {
		return fmt.Errorf("failed to marshal command: %w", err)
	}

	token := p.client.Publish(topic, 1, false, payloadBytes)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, token.Error())
	}

	p.logger.Printf("Published command to %s: %s", topic, string(payloadBytes))
	return nil
}

// Close disconnects from the MQTT broker
func (p *MQTTPlayer) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
		p.logger.Printf("Disconnected from MQTT broker")
	}
}
