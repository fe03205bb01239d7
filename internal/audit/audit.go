package audit

import (
	"context"
	"time"
)

// Event is one session activity record. Timestamp and Seq are assigned by the
// Dispatcher when the event is accepted.
type Event struct {
	Seq       uint64            `json:"seq"`
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	ProfileID string            `json:"profile_id,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Sink receives relayed events on the dispatcher goroutine.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// SinkFunc adapts a function to [Sink].
type SinkFunc func(ctx context.Context, event Event)

// Emit calls f.
func (f SinkFunc) Emit(ctx context.Context, event Event) {
	f(ctx, event)
}

// NoOpSink drops events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// stamp fills the dispatcher-owned fields and detaches Metadata from the
// caller's map.
func stamp(ev Event, seq uint64, now time.Time) Event {
	ev.Seq = seq
	if ev.Timestamp.IsZero() {
		ev.Timestamp = now.UTC()
	}
	if len(ev.Metadata) > 0 {
		md := make(map[string]string, len(ev.Metadata))
		for k, v := range ev.Metadata {
			md[k] = v
		}
		ev.Metadata = md
	}
	return ev
}
