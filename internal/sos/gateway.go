package sos

import (
	"context"
	"fmt"
	"time"
)

// AlertKind identifies why an alert was raised
type AlertKind int

const (
	AlertManualSOS AlertKind = iota
	AlertMissedCheckIn
	AlertAbnormalMovement
)

// alertNames maps alert kinds to their wire representation
var alertNames = map[AlertKind]string{
	AlertManualSOS:        "manual_sos",
	AlertMissedCheckIn:    "missed_check_in",
	AlertAbnormalMovement: "abnormal_movement",
}

// String returns the wire name of the alert kind
func (k AlertKind) String() string {
	if name, ok := alertNames[k]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(k))
}

// ParseAlertKind converts a wire name back to an AlertKind
func ParseAlertKind(name string) (AlertKind, error) {
	for kind, n := range alertNames {
		if n == name {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("unknown alert kind: %s", name)
}

// Location is an optional position attached to an alert
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Alert is the payload handed to the dispatch gateway when a countdown fires
// or a check-in expires
type Alert struct {
	ID         string
	UserID     string
	DeviceID   string
	Kind       AlertKind
	Location   *Location
	Confidence *float64
	RaisedAt   time.Time
}

// Gateway is the boundary the state machines call to actually raise an alert.
// Dispatch is fire-and-forget from the machines' perspective: retry and backoff
// are the gateway's responsibility, and a dispatch error never rolls a machine
// back to a pre-fire state.
type Gateway interface {
	RaiseAlert(ctx context.Context, alert Alert) error
}
