package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDispatcherDeliversAndDrainsOnClose(t *testing.T) {
	var got atomic.Int64
	d := NewDispatcher(Config{BufferSize: 64}, SinkFunc(func(context.Context, Event) {
		got.Add(1)
	}))

	for i := 0; i < 50; i++ {
		d.Emit(context.Background(), Event{EventType: "logout"})
	}
	d.Close()

	if got.Load() != 50 {
		t.Fatalf("expected 50 delivered events, got %d", got.Load())
	}
	d.Emit(context.Background(), Event{EventType: "logout"})
	if got.Load() != 50 {
		t.Fatal("emit after close must be ignored")
	}
}

func TestDispatcherStampsEvents(t *testing.T) {
	var (
		mu  sync.Mutex
		out []Event
	)
	d := NewDispatcher(Config{BufferSize: 8}, SinkFunc(func(_ context.Context, ev Event) {
		mu.Lock()
		out = append(out, ev)
		mu.Unlock()
	}))
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("x", 3600))
	d.now = func() time.Time { return fixed }

	meta := map[string]string{"email": "a@example.com"}
	d.Emit(context.Background(), Event{EventType: "login_failure", Metadata: meta})
	meta["email"] = "changed"
	preset := time.Unix(100, 0).UTC()
	d.Emit(context.Background(), Event{EventType: "logout", Timestamp: preset})
	d.Close()

	if len(out) != 2 {
		t.Fatalf("expected 2 events, got %d", len(out))
	}
	if out[0].Seq != 1 || out[1].Seq != 2 {
		t.Fatalf("unexpected sequence %d, %d", out[0].Seq, out[1].Seq)
	}
	if !out[0].Timestamp.Equal(fixed) || out[0].Timestamp.Location() != time.UTC {
		t.Fatalf("timestamp not stamped in UTC: %v", out[0].Timestamp)
	}
	if !out[1].Timestamp.Equal(preset) {
		t.Fatalf("preset timestamp overwritten: %v", out[1].Timestamp)
	}
	if out[0].Metadata["email"] != "a@example.com" {
		t.Fatal("metadata must be detached from the caller's map")
	}
}

func TestDispatcherDropIfFullLeavesSequenceGaps(t *testing.T) {
	gate := make(chan struct{})
	var (
		mu   sync.Mutex
		seqs []uint64
	)
	d := NewDispatcher(Config{BufferSize: 1, DropIfFull: true}, SinkFunc(func(_ context.Context, ev Event) {
		<-gate
		mu.Lock()
		seqs = append(seqs, ev.Seq)
		mu.Unlock()
	}))

	deadline := time.Now().Add(time.Second)
	for d.Dropped() == 0 && time.Now().Before(deadline) {
		d.Emit(context.Background(), Event{EventType: "profile_switch"})
	}
	close(gate)
	d.Close()

	if d.Dropped() == 0 {
		t.Fatal("expected drops with a blocked sink")
	}
	issued := d.seq.Load()
	if uint64(len(seqs))+d.Dropped() != issued {
		t.Fatalf("delivered %d + dropped %d != issued %d", len(seqs), d.Dropped(), issued)
	}
}

func TestDispatcherBlockingEmitHonoursContext(t *testing.T) {
	gate := make(chan struct{})
	d := NewDispatcher(Config{BufferSize: 1}, SinkFunc(func(context.Context, Event) { <-gate }))
	defer func() {
		close(gate)
		d.Close()
	}()

	// One event held by the sink, one filling the buffer.
	d.Emit(context.Background(), Event{EventType: "logout"})
	d.Emit(context.Background(), Event{EventType: "logout"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	d.Emit(ctx, Event{EventType: "logout"})

	if d.Dropped() != 1 {
		t.Fatalf("expected the timed-out event to count as dropped, got %d", d.Dropped())
	}
}

func TestNilDispatcherIsInert(t *testing.T) {
	var d *Dispatcher
	d.Emit(context.Background(), Event{})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher reports no drops")
	}
}
