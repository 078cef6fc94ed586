package motion

import "fmt"

// EventKind identifies the kind of movement anomaly a classifier emitted
type EventKind int

const (
	KindSprint EventKind = iota
	KindSuddenHalt
	KindProlongedStationary
	KindUnusualRotation
)

// kindNames maps event kinds to their wire representation
var kindNames = map[EventKind]string{
	KindSprint:              "sprint",
	KindSuddenHalt:          "sudden_halt",
	KindProlongedStationary: "prolonged_stationary",
	KindUnusualRotation:     "unusual_rotation",
}

// String returns the wire name of the event kind
func (k EventKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(k))
}

// ParseEventKind converts a wire name back to an EventKind
func ParseEventKind(name string) (EventKind, error) {
	for kind, n := range kindNames {
		if n == name {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("unknown event kind: %s", name)
}

// Event is a single classified movement anomaly. Immutable once created;
// owned by the movement log after Append.
type Event struct {
	ID         string
	Kind       EventKind
	Timestamp  int64 // milliseconds since epoch, set at detection time
	Confidence float64
}

// Listener receives classified movement events as they are emitted.
// Listeners are invoked synchronously on the sample-processing path and
// must not block.
type Listener interface {
	OnMovementEvent(event Event)
}

// ListenerFunc adapts a plain function to the Listener interface
type ListenerFunc func(event Event)

func (f ListenerFunc) OnMovementEvent(event Event) {
	f(event)
}

// SensorType distinguishes the two sensor streams the classifier consumes
type SensorType int

const (
	SensorAccelerometer SensorType = iota
	SensorGyroscope
)

// Sample is one raw 3-axis sensor reading
type Sample struct {
	X, Y, Z   float64
	Sensor    SensorType
	Timestamp int64 // milliseconds since epoch
}
