package loop

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestLoopRunsInSubmissionOrder(t *testing.T) {
	l := New()
	defer l.Close()

	var got []int
	for i := 0; i < 100; i++ {
		i := i
		if !l.Post(func() { got = append(got, i) }) {
			t.Fatalf("post %d rejected", i)
		}
	}
	if err := l.Do(context.Background(), func() {}); err != nil {
		t.Fatalf("Do failed: %v", err)
	}

	if len(got) != 100 {
		t.Fatalf("expected 100 closures, got %d", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("closure %d ran at position %d", v, i)
		}
	}
}

func TestLoopPostFromInsideClosureDoesNotBlock(t *testing.T) {
	l := New()
	defer l.Close()

	var order []string
	err := l.Do(context.Background(), func() {
		order = append(order, "outer")
		for i := 0; i < 1000; i++ {
			l.Post(func() {})
		}
		l.Post(func() { order = append(order, "inner") })
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if err := l.Do(context.Background(), func() {}); err != nil {
		t.Fatalf("Do failed: %v", err)
	}

	if len(order) != 2 || order[0] != "outer" || order[1] != "inner" {
		t.Fatalf("unexpected order %v", order)
	}
}

func TestLoopNeverRunsClosuresConcurrently(t *testing.T) {
	l := New()
	defer l.Close()

	var (
		inFlight int
		overlap  bool
		wg       sync.WaitGroup
	)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				l.Post(func() {
					inFlight++
					if inFlight > 1 {
						overlap = true
					}
					inFlight--
				})
			}
		}()
	}
	wg.Wait()
	_ = l.Do(context.Background(), func() {})

	if overlap {
		t.Fatal("closures overlapped")
	}
}

func TestLoopCloseDrainsAndRejects(t *testing.T) {
	l := New()

	ran := 0
	block := make(chan struct{})
	l.Post(func() { <-block })
	for i := 0; i < 10; i++ {
		l.Post(func() { ran++ })
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		close(block)
	}()
	l.Close()

	if ran != 10 {
		t.Fatalf("expected queued closures to drain, ran=%d", ran)
	}
	if l.Post(func() {}) {
		t.Fatal("expected post after close to be rejected")
	}
	if err := l.Do(context.Background(), func() {}); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	l.Close()
}

func TestLoopDoHonorsContext(t *testing.T) {
	l := New()
	defer l.Close()

	block := make(chan struct{})
	defer close(block)
	l.Post(func() { <-block })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Do(ctx, func() {}); err != context.DeadlineExceeded {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
