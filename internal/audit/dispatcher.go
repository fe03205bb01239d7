package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Config controls buffering. Whether auditing is on at all is decided by the
// caller, which simply does not build a Dispatcher when it is off.
type Config struct {
	BufferSize int
	DropIfFull bool
}

// Dispatcher relays events to a sink on its own goroutine so that the
// Manager's loop never waits on sink I/O.
//
// Every accepted or dropped event consumes one sequence number, so a sink sees
// a gap in Seq exactly where events were dropped.
type Dispatcher struct {
	cfg  Config
	sink Sink
	now  func() time.Time

	ch   chan Event
	done chan struct{}
	wg   sync.WaitGroup

	seq       atomic.Uint64
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		cfg:  cfg,
		sink: sink,
		now:  time.Now,
		ch:   make(chan Event, cfg.BufferSize),
		done: make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case ev := <-d.ch:
			d.sink.Emit(context.Background(), ev)
		case <-d.done:
			d.drain()
			return
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case ev := <-d.ch:
			d.sink.Emit(context.Background(), ev)
		default:
			return
		}
	}
}

// Emit stamps ev and queues it. With DropIfFull a full buffer drops the event
// and counts it; otherwise Emit waits for room, ctx, or Close.
func (d *Dispatcher) Emit(ctx context.Context, ev Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ev = stamp(ev, d.seq.Add(1), d.now())

	if d.cfg.DropIfFull {
		select {
		case d.ch <- ev:
		case <-d.done:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.ch <- ev:
	case <-ctx.Done():
		d.dropped.Add(1)
	case <-d.done:
	}
}

// Close stops accepting events and returns after queued ones reached the sink.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
