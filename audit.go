package goSession

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	internalaudit "github.com/MrEthical07/goSession/internal/audit"
)

// Audit event types emitted by the Manager.
const (
	AuditLoginSuccess           = "login_success"
	AuditLoginFailure           = "login_failure"
	AuditLogout                 = "logout"
	AuditProfileSwitch          = "profile_switch"
	AuditProfileSwitchFailed    = "profile_switch_failed"
	AuditProfileLoadFailed      = "profile_load_failed"
	AuditPasswordResetRequested = "password_reset_requested"
	AuditPasswordUpdated        = "password_updated"
)

// AuditEvent is one session activity record. Seq increases by one per
// emitted event; a gap means the events in between were dropped.
type AuditEvent struct {
	Seq       uint64            `json:"seq"`
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	ProfileID string            `json:"profile_id,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// AuditSink receives audit events from the dispatcher goroutine.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// NoOpSink drops every event.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, AuditEvent) {}

// ChannelSink buffers events in a channel for the caller to drain.
type ChannelSink struct {
	events chan AuditEvent
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan AuditEvent, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan AuditEvent {
	return s.events
}

// JSONWriterSink writes one JSON object per line to w.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(ctx context.Context, event AuditEvent) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *internalaudit.Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	return internalaudit.NewDispatcher(internalaudit.Config{
		BufferSize: cfg.BufferSize,
		DropIfFull: cfg.DropIfFull,
	}, internalaudit.SinkFunc(func(ctx context.Context, ev internalaudit.Event) {
		sink.Emit(ctx, AuditEvent(ev))
	}))
}

func (m *Manager) emitAudit(ctx context.Context, eventType, userID, profileID string, success bool, err error, metadata func() map[string]string) {
	if m == nil || m.audit == nil {
		return
	}
	ev := internalaudit.Event{
		EventType: eventType,
		UserID:    userID,
		ProfileID: profileID,
		Success:   success,
	}
	if err != nil {
		ev.Error = err.Error()
	}
	if metadata != nil {
		ev.Metadata = metadata()
	}
	m.audit.Emit(ctx, ev)
}
