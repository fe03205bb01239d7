package loop

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned when work is submitted to a stopped loop.
var ErrClosed = errors.New("loop closed")

// Loop runs submitted closures sequentially on a dedicated goroutine.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	closed  bool
	wake    chan struct{}
	done    chan struct{}
	stopped chan struct{}

	closeOnce sync.Once
}

// New starts a loop goroutine.
func New() *Loop {
	l := &Loop{
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.stopped)

	for {
		batch, closed := l.take()
		for _, fn := range batch {
			fn()
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}

		select {
		case <-l.wake:
		case <-l.done:
		}
	}
}

func (l *Loop) take() ([]func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	batch := l.queue
	l.queue = nil
	return batch, l.closed
}

// Post enqueues fn and returns immediately. It reports false when the loop has
// been closed and fn will never run.
func (l *Loop) Post(fn func()) bool {
	if fn == nil {
		return false
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Do enqueues fn and waits until it has run. Work already queued runs first.
// Do must not be called from inside a loop closure.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	if ctx == nil {
		ctx = context.Background()
	}

	ran := make(chan struct{})
	if !l.Post(func() {
		fn()
		close(ran)
	}) {
		return ErrClosed
	}

	select {
	case <-ran:
		return nil
	case <-l.stopped:
		// Close drains the queue before stopping, so fn has run.
		<-ran
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close rejects further submissions, runs everything already queued, and waits
// for the loop goroutine to exit.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.closed = true
		l.mu.Unlock()
		close(l.done)
		<-l.stopped
	})
}
