package monitor

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sentra-safety/sentra-platform/pkg/config"
	"github.com/sentra-safety/sentra-platform/pkg/mqtt"
	"github.com/sentra-safety/sentra-platform/pkg/redis"
)

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Topic() string   { return m.topic }
func (m *fakeMessage) Payload() []byte { return m.payload }
func (m *fakeMessage) Ack()            {}

type fakeMQTT struct {
	mu     sync.Mutex
	topics []string
}

func (f *fakeMQTT) Connect(ctx context.Context) error { return nil }
func (f *fakeMQTT) Disconnect()                       {}
func (f *fakeMQTT) IsConnected() bool                 { return true }

func (f *fakeMQTT) Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error {
	return nil
}

func (f *fakeMQTT) Publish(topic string, qos byte, retained bool, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, topic)
	return nil
}

type fakeRedis struct {
	mu      sync.Mutex
	zadded  []string
	deleted []string
}

func (f *fakeRedis) HSet(ctx context.Context, key, field string, value interface{}) error {
	return nil
}

func (f *fakeRedis) ZAdd(ctx context.Context, key string, score float64, member interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.zadded = append(f.zadded, key)
	return nil
}

func (f *fakeRedis) ZRemRangeByScore(ctx context.Context, key, min, max string) error { return nil }

func (f *fakeRedis) ZCard(ctx context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.zadded)), nil
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, keys...)
	return nil
}

func (f *fakeRedis) Expire(ctx context.Context, key string, ttl time.Duration) error { return nil }
func (f *fakeRedis) Ping(ctx context.Context) error                                  { return nil }
func (f *fakeRedis) Close() error                                                    { return nil }

func (f *fakeRedis) deletedKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.deleted))
	copy(out, f.deleted)
	return out
}

func (f *fakeRedis) mirrorWrites() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.zadded)
}

func rawSampleMessage(deviceID string, x, z float64, ts int64) *fakeMessage {
	return &fakeMessage{
		topic: "safety/raw/accelerometer/" + deviceID,
		payload: []byte(fmt.Sprintf(
			`{"data":{"x":%.1f,"y":0,"z":%.1f,"timestamp":%d,"user_id":"user-1"}}`,
			x, z, ts)),
	}
}

func TestClearCommandDropsLogAndMirror(t *testing.T) {
	fr := &fakeRedis{}
	agent := NewAgent(&fakeMQTT{}, fr, config.NewConfig(), testLogger())

	// Sprint-level burst so the classifier mirrors at least one event
	base := int64(1_000_000)
	for i := 0; i < 10; i++ {
		agent.handleSample(rawSampleMessage("device-1", 30.0, 9.8, base+int64(i*100)))
	}

	log := agent.MovementLog("device-1")
	if log == nil {
		t.Fatal("expected a monitoring session for device-1")
	}
	if log.Len() == 0 {
		t.Fatal("expected movement events in the log before clear")
	}
	if fr.mirrorWrites() == 0 {
		t.Fatal("expected mirrored events in Redis before clear")
	}

	agent.handleMovementCommand(&fakeMessage{
		topic:   "safety/command/movement/device-1",
		payload: []byte(`{"data":{"action":"clear"}}`),
	})

	if got := log.Len(); got != 0 {
		t.Errorf("expected empty log after clear, got %d entries", got)
	}

	wantKey := redis.MovementLogKey("device-1")
	deleted := fr.deletedKeys()
	if len(deleted) != 1 || deleted[0] != wantKey {
		t.Errorf("expected mirror key %s deleted, got %v", wantKey, deleted)
	}
}

func TestClearCommandUnknownDevice(t *testing.T) {
	fr := &fakeRedis{}
	agent := NewAgent(&fakeMQTT{}, fr, config.NewConfig(), testLogger())

	agent.handleMovementCommand(&fakeMessage{
		topic:   "safety/command/movement/ghost-device",
		payload: []byte(`{"data":{"action":"clear"}}`),
	})

	if deleted := fr.deletedKeys(); len(deleted) != 0 {
		t.Errorf("expected no mirror deletes for unknown device, got %v", deleted)
	}
}
