package alert

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentra-safety/sentra-platform/internal/sos"
	"github.com/sentra-safety/sentra-platform/pkg/mqtt"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakePostgres records executed statements
type fakePostgres struct {
	execQueries []string
	execArgs    [][]interface{}
	execErr     error
}

func (f *fakePostgres) Connect(ctx context.Context) error { return nil }
func (f *fakePostgres) Disconnect() error                 { return nil }

func (f *fakePostgres) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	if f.execErr != nil {
		return nil, f.execErr
	}
	f.execQueries = append(f.execQueries, query)
	f.execArgs = append(f.execArgs, args)
	return nil, nil
}

// fakeMQTT records published messages
type fakeMQTT struct {
	topics     []string
	payloads   [][]byte
	publishErr error
}

func (f *fakeMQTT) Connect(ctx context.Context) error { return nil }
func (f *fakeMQTT) Disconnect()                       {}
func (f *fakeMQTT) IsConnected() bool                 { return true }

func (f *fakeMQTT) Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error {
	return nil
}

func (f *fakeMQTT) Publish(topic string, qos byte, retained bool, payload []byte) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.topics = append(f.topics, topic)
	f.payloads = append(f.payloads, payload)
	return nil
}

// fixedResolver returns the same contact set for every kind
type fixedResolver struct {
	contacts []Contact
}

func (r fixedResolver) ContactsFor(kind sos.AlertKind) []Contact { return r.contacts }

func testAlert() sos.Alert {
	conf := 0.9
	return sos.Alert{
		ID:         "a7f3b6c0-0000-0000-0000-000000000001",
		UserID:     "user-1",
		DeviceID:   "device-1",
		Kind:       sos.AlertAbnormalMovement,
		Location:   &sos.Location{Latitude: 60.17, Longitude: 24.94},
		Confidence: &conf,
		RaisedAt:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestRaiseAlertPersistsAndPublishes(t *testing.T) {
	pg := &fakePostgres{}
	broker := &fakeMQTT{}
	resolver := fixedResolver{contacts: []Contact{
		{Name: "Maria", Phone: "+358401234567", Channels: []string{"sms"}},
	}}
	store := NewStore(pg, broker, resolver, testLogger())

	err := store.RaiseAlert(context.Background(), testAlert())
	require.NoError(t, err)

	require.Len(t, pg.execQueries, 1)
	assert.Contains(t, pg.execQueries[0], "INSERT INTO alerts")
	require.Len(t, pg.execArgs[0], 9)
	assert.Equal(t, "a7f3b6c0-0000-0000-0000-000000000001", pg.execArgs[0][0])
	assert.Equal(t, "abnormal_movement", pg.execArgs[0][3])

	require.Len(t, broker.topics, 1)
	assert.Equal(t, "safety/alert/device-1", broker.topics[0])

	var msg map[string]interface{}
	require.NoError(t, json.Unmarshal(broker.payloads[0], &msg))
	assert.Equal(t, "abnormal_movement", msg["kind"])
	assert.Equal(t, "user-1", msg["user_id"])
	assert.InDelta(t, 0.9, msg["confidence"], 1e-9)

	contacts, ok := msg["contacts"].([]interface{})
	require.True(t, ok, "expected contacts array in published alert")
	require.Len(t, contacts, 1)
}

func TestRaiseAlertWithoutResolver(t *testing.T) {
	pg := &fakePostgres{}
	broker := &fakeMQTT{}
	store := NewStore(pg, broker, nil, testLogger())

	err := store.RaiseAlert(context.Background(), testAlert())
	require.NoError(t, err)
	require.Len(t, broker.payloads, 1)

	var msg map[string]interface{}
	require.NoError(t, json.Unmarshal(broker.payloads[0], &msg))
	assert.NotContains(t, msg, "contacts")
}

func TestRaiseAlertInsertFailure(t *testing.T) {
	pg := &fakePostgres{execErr: errors.New("connection refused")}
	broker := &fakeMQTT{}
	store := NewStore(pg, broker, nil, testLogger())

	err := store.RaiseAlert(context.Background(), testAlert())
	require.Error(t, err)
	assert.Empty(t, broker.topics, "failed insert must not publish")
}

func TestRaiseAlertPublishFailureIsNotFatal(t *testing.T) {
	pg := &fakePostgres{}
	broker := &fakeMQTT{publishErr: errors.New("broker down")}
	store := NewStore(pg, broker, nil, testLogger())

	// The Postgres record is authoritative; publish errors are logged only
	err := store.RaiseAlert(context.Background(), testAlert())
	assert.NoError(t, err)
	assert.Len(t, pg.execQueries, 1)
}

func TestEnsureSchema(t *testing.T) {
	pg := &fakePostgres{}
	store := NewStore(pg, &fakeMQTT{}, nil, testLogger())

	err := store.EnsureSchema(context.Background())
	require.NoError(t, err)
	require.Len(t, pg.execQueries, 2)
	assert.Contains(t, pg.execQueries[0], "CREATE TABLE IF NOT EXISTS alerts")
	assert.Contains(t, pg.execQueries[1], "CREATE INDEX IF NOT EXISTS")
}
