package observer

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// captureTopic covers everything the platform says: raw samples, movement
// events, commands and alerts all live under the safety/ root
const captureTopic = "safety/#"

// CapturedMessage is one MQTT message seen during a run. Payload holds the
// decoded JSON object where the payload parses, otherwise the raw string.
type CapturedMessage struct {
	Timestamp time.Time   `json:"timestamp"`
	Topic     string      `json:"topic"`
	Payload   interface{} `json:"payload"`
	QoS       byte        `json:"qos"`
}

// Observer records the platform's MQTT traffic during a scenario run so the
// checkers can assert on it afterwards
type Observer struct {
	broker  string
	logger  *log.Logger
	client  mqtt.Client
	started time.Time

	mu       sync.RWMutex
	captured []CapturedMessage
}

// NewObserver creates an observer for the given broker
func NewObserver(broker string, logger *log.Logger) *Observer {
	if logger == nil {
		logger = log.Default()
	}
	return &Observer{broker: broker, logger: logger}
}

// Start connects and begins capturing. The subscription is re-issued from
// the connect handler so it survives broker reconnects.
func (o *Observer) Start() error {
	o.started = time.Now()

	opts := mqtt.NewClientOptions().
		AddBroker(o.broker).
		SetClientID("sentra-e2e-observer").
		SetCleanSession(true).
		SetAutoReconnect(true)

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		o.logger.Printf("Observer lost broker connection: %v", err)
	})
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		token := client.Subscribe(captureTopic, 0, o.record)
		token.Wait()
		if token.Error() != nil {
			o.logger.Printf("Observer subscribe to %s failed: %v", captureTopic, token.Error())
			return
		}
		o.logger.Printf("Observer capturing %s on %s", captureTopic, o.broker)
	})

	o.client = mqtt.NewClient(opts)
	token := o.client.Connect()
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("observer failed to connect to %s: %w", o.broker, token.Error())
	}
	return nil
}

func (o *Observer) record(_ mqtt.Client, msg mqtt.Message) {
	var payload interface{}
	if err := json.Unmarshal(msg.Payload(), &payload); err != nil {
		payload = string(msg.Payload())
	}

	o.mu.Lock()
	o.captured = append(o.captured, CapturedMessage{
		Timestamp: time.Now(),
		Topic:     msg.Topic(),
		Payload:   payload,
		QoS:       msg.Qos(),
	})
	o.mu.Unlock()

	pretty, _ := json.Marshal(payload)
	o.logger.Printf("[%7.2fs] %s: %s", time.Since(o.started).Seconds(), msg.Topic(), pretty)
}

// Messages returns a copy of everything captured so far
func (o *Observer) Messages() []CapturedMessage {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]CapturedMessage, len(o.captured))
	copy(out, o.captured)
	return out
}

// Count returns the number of captured messages
func (o *Observer) Count() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.captured)
}

// SaveCapture writes the captured traffic as indented JSON
func (o *Observer) SaveCapture(filename string) error {
	data, err := json.MarshalIndent(o.Messages(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal capture: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("failed to create capture directory: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write capture: %w", err)
	}

	o.logger.Printf("Saved %d captured messages to %s", o.Count(), filename)
	return nil
}

// Stop disconnects from the broker
func (o *Observer) Stop() {
	if o.client != nil && o.client.IsConnected() {
		o.client.Disconnect(250)
	}
}
