package provision

import (
	"encoding/json"
	"fmt"

	"github.com/divehq/hostdeps/internal/binary"
)

// EventType discriminates Event payloads.
type EventType string

const (
	EventOutput   EventType = "output"
	EventProgress EventType = "progress"
	EventError    EventType = "error"
	EventFinished EventType = "finished"
)

// EventBufferSize is the capacity of the Events channel.
const EventBufferSize = 20

// Event is one provisioning notification.
//
// It serialises as {"type":"<kind>","data":<payload>}. Output and error events
// carry a string, progress events carry a binary.Progress object and finished
// events carry no data field.
type Event struct {
	Type     EventType
	Text     string
	Progress binary.Progress
}

// OutputEvent reports a human-readable status line.
func OutputEvent(text string) Event {
	return Event{Type: EventOutput, Text: text}
}

// ErrorEvent reports a failure.
func ErrorEvent(text string) Event {
	return Event{Type: EventError, Text: text}
}

// ProgressEvent reports download progress.
func ProgressEvent(p binary.Progress) Event {
	return Event{Type: EventProgress, Progress: p}
}

// FinishedEvent is the last event of a successful run.
func FinishedEvent() Event {
	return Event{Type: EventFinished}
}

type wireEvent struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (e Event) MarshalJSON() ([]byte, error) {
	w := wireEvent{Type: e.Type}
	var err error
	switch e.Type {
	case EventOutput, EventError:
		w.Data, err = json.Marshal(e.Text)
	case EventProgress:
		w.Data, err = json.Marshal(e.Progress)
	case EventFinished:
	default:
		return nil, fmt.Errorf("unknown event type %q", e.Type)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Event) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	ev := Event{Type: w.Type}
	switch w.Type {
	case EventOutput, EventError:
		if err := json.Unmarshal(w.Data, &ev.Text); err != nil {
			return fmt.Errorf("decode %s event: %w", w.Type, err)
		}
	case EventProgress:
		if err := json.Unmarshal(w.Data, &ev.Progress); err != nil {
			return fmt.Errorf("decode progress event: %w", err)
		}
	case EventFinished:
	default:
		return fmt.Errorf("unknown event type %q", w.Type)
	}
	*e = ev
	return nil
}

func (e Event) String() string {
	switch e.Type {
	case EventProgress:
		p := e.Progress
		return fmt.Sprintf("progress: %d/%d bytes (%.1f%%, %.0f B/s)", p.Downloaded, p.Total, p.Percentage, p.SpeedBps)
	case EventFinished:
		return "finished"
	default:
		return fmt.Sprintf("%s: %s", e.Type, e.Text)
	}
}
