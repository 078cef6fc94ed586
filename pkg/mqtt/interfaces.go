package mqtt

import "context"

// Client is the broker connection shared by the agents. It hides the Paho
// types so agent tests can substitute in-memory fakes.
type Client interface {
	// Connect dials the broker, honouring ctx for the initial attempt
	Connect(ctx context.Context) error

	// Disconnect drains in-flight messages and closes the connection
	Disconnect()

	// Subscribe registers handler for topic at the given QoS
	Subscribe(topic string, qos byte, handler MessageHandler) error

	// Publish sends payload to topic at the given QoS
	Publish(topic string, qos byte, retained bool, payload []byte) error

	// IsConnected reports the live connection state, used by health checks
	IsConnected() bool
}

// MessageHandler receives inbound messages for a subscription
type MessageHandler func(Message)

// Message is one inbound MQTT message
type Message interface {
	Topic() string
	Payload() []byte
	Ack()
}
