package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sentra-safety/sentra-platform/pkg/config"
)

// Samples from phones arrive continuously, so the client reconnects forever
// rather than surfacing transient broker outages to the agents.
const (
	connectRetryInterval = 5 * time.Second
	maxReconnectInterval = 30 * time.Second
	disconnectGraceMs    = 250
)

type pahoClient struct {
	client paho.Client
	broker string
	logger *slog.Logger
}

// NewClient builds a Paho-backed client from the shared configuration
func NewClient(cfg *config.Config, logger *slog.Logger) Client {
	broker := cfg.MQTTAddress()

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID(cfg)).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(connectRetryInterval).
		SetMaxReconnectInterval(maxReconnectInterval)

	if cfg.MQTTUser != "" {
		opts.SetUsername(cfg.MQTTUser)
		opts.SetPassword(cfg.MQTTPassword)
	}

	opts.SetOnConnectHandler(func(paho.Client) {
		logger.Info("Connected to MQTT broker", "broker", broker)
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		logger.Warn("MQTT connection lost", "error", err)
	})

	return &pahoClient{
		client: paho.NewClient(opts),
		broker: broker,
		logger: logger,
	}
}

// clientID derives a broker-unique client ID when none is configured.
// Two clients sharing an ID evict each other, so the fallback is salted
// with the start time.
func clientID(cfg *config.Config) string {
	if cfg.MQTTClientID != "" {
		return cfg.MQTTClientID
	}
	return fmt.Sprintf("%s-%d", cfg.ServiceName, time.Now().Unix())
}

func (c *pahoClient) Connect(ctx context.Context) error {
	c.logger.Info("Connecting to MQTT broker", "broker", c.broker)

	token := c.client.Connect()
	select {
	case <-token.Done():
		if token.Error() != nil {
			return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("connection timeout: %w", ctx.Err())
	}
}

func (c *pahoClient) Disconnect() {
	c.logger.Info("Disconnecting from MQTT broker")
	c.client.Disconnect(disconnectGraceMs)
}

func (c *pahoClient) Subscribe(topic string, qos byte, handler MessageHandler) error {
	token := c.client.Subscribe(topic, qos, func(_ paho.Client, msg paho.Message) {
		handler(&pahoMessage{msg: msg})
	})
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", topic, token.Error())
	}

	c.logger.Info("Subscribed to MQTT topic", "topic", topic, "qos", qos)
	return nil
}

func (c *pahoClient) Publish(topic string, qos byte, retained bool, payload []byte) error {
	token := c.client.Publish(topic, qos, retained, payload)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, token.Error())
	}

	c.logger.Debug("Published message", "topic", topic, "size", len(payload))
	return nil
}

func (c *pahoClient) IsConnected() bool {
	return c.client.IsConnected()
}

type pahoMessage struct {
	msg paho.Message
}

func (m *pahoMessage) Topic() string   { return m.msg.Topic() }
func (m *pahoMessage) Payload() []byte { return m.msg.Payload() }
func (m *pahoMessage) Ack()            { m.msg.Ack() }
