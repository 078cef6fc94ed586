package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/sentra-safety/sentra-platform/internal/sos"
	"github.com/sentra-safety/sentra-platform/pkg/mqtt"
	"github.com/sentra-safety/sentra-platform/pkg/postgres"
)

// Contact is one emergency contact resolved from the escalation policy
type Contact struct {
	Name     string   `json:"name" yaml:"name"`
	Phone    string   `json:"phone,omitempty" yaml:"phone,omitempty"`
	Email    string   `json:"email,omitempty" yaml:"email,omitempty"`
	Channels []string `json:"channels" yaml:"channels"`
}

// ContactResolver maps an alert kind to the contacts that should be notified.
// Actual delivery (SMS, email, push) happens downstream and is not this
// package's concern; the store only records who was selected.
type ContactResolver interface {
	ContactsFor(kind sos.AlertKind) []Contact
}

// Store implements the sos.Gateway boundary: raised alerts are written to
// Postgres and republished on the device's alert topic for live consumers.
type Store struct {
	pg       postgres.Client
	mqtt     mqtt.Client
	resolver ContactResolver
	logger   *slog.Logger
}

// NewStore creates an alert store. resolver may be nil, in which case alerts
// are recorded without a contact set.
func NewStore(pgClient postgres.Client, mqttClient mqtt.Client, resolver ContactResolver, logger *slog.Logger) *Store {
	return &Store{
		pg:       pgClient,
		mqtt:     mqttClient,
		resolver: resolver,
		logger:   logger,
	}
}

// EnsureSchema creates the alerts table if it does not exist
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pg.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS alerts (
			id          UUID PRIMARY KEY,
			user_id     TEXT NOT NULL,
			device_id   TEXT NOT NULL,
			kind        TEXT NOT NULL,
			confidence  DOUBLE PRECISION,
			latitude    DOUBLE PRECISION,
			longitude   DOUBLE PRECISION,
			contacts    JSONB,
			raised_at   TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("failed to create alerts table: %w", err)
	}

	_, err = s.pg.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS alerts_device_raised_idx
		ON alerts (device_id, raised_at DESC)`)
	if err != nil {
		return fmt.Errorf("failed to create alerts index: %w", err)
	}

	return nil
}

// alertMessage is the wire form published on safety/alert/{device}
type alertMessage struct {
	ID         string       `json:"id"`
	UserID     string       `json:"user_id"`
	DeviceID   string       `json:"device_id"`
	Kind       string       `json:"kind"`
	Confidence *float64     `json:"confidence,omitempty"`
	Location   *sos.Location `json:"location,omitempty"`
	Contacts   []Contact    `json:"contacts,omitempty"`
	RaisedAt   string       `json:"raised_at"`
}

// RaiseAlert persists the alert and publishes it to MQTT. The Postgres insert
// is the authoritative record; a publish failure is logged but does not fail
// the dispatch.
func (s *Store) RaiseAlert(ctx context.Context, a sos.Alert) error {
	var contacts []Contact
	if s.resolver != nil {
		contacts = s.resolver.ContactsFor(a.Kind)
	}

	contactsJSON, err := json.Marshal(contacts)
	if err != nil {
		return fmt.Errorf("failed to marshal contacts: %w", err)
	}

	var lat, lon *float64
	if a.Location != nil {
		lat = &a.Location.Latitude
		lon = &a.Location.Longitude
	}

	_, err = s.pg.Exec(ctx, `
		INSERT INTO alerts (id, user_id, device_id, kind, confidence, latitude, longitude, contacts, raised_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.UserID, a.DeviceID, a.Kind.String(), a.Confidence, lat, lon, contactsJSON, a.RaisedAt)
	if err != nil {
		return fmt.Errorf("failed to insert alert %s: %w", a.ID, err)
	}

	s.logger.Info("Alert stored",
		"alert_id", a.ID,
		"device_id", a.DeviceID,
		"kind", a.Kind.String(),
		"contacts", len(contacts))

	s.publish(a, contacts)

	return nil
}

// publish republishes the alert on the device topic for live consumers
func (s *Store) publish(a sos.Alert, contacts []Contact) {
	msg := alertMessage{
		ID:         a.ID,
		UserID:     a.UserID,
		DeviceID:   a.DeviceID,
		Kind:       a.Kind.String(),
		Confidence: a.Confidence,
		Location:   a.Location,
		Contacts:   contacts,
		RaisedAt:   a.RaisedAt.Format(time.RFC3339Nano),
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("Failed to marshal alert message", "alert_id", a.ID, "error", err)
		return
	}

	topic := mqtt.AlertTopic(a.DeviceID)
	if err := s.mqtt.Publish(topic, 1, false, payload); err != nil {
		s.logger.Error("Failed to publish alert",
			"alert_id", a.ID,
			"topic", topic,
			"error", err)
		return
	}

	s.logger.Debug("Published alert", "topic", topic, "alert_id", a.ID)
}
