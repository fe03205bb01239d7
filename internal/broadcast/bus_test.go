package broadcast

import (
	"sync"
	"testing"

	goSession "github.com/MrEthical07/goSession"
)

func TestSubscribeDeliversBootstrapFirst(t *testing.T) {
	var b Bus
	held := &goSession.Session{AccessToken: "a"}

	var got []goSession.AuthEvent
	sub := b.Subscribe(func(ev goSession.AuthEvent) { got = append(got, ev) }, func() *goSession.Session { return held })
	defer sub.Release()

	if len(got) != 1 || got[0].Kind != goSession.EventBootstrap || got[0].Session != held {
		t.Fatalf("unexpected bootstrap delivery %+v", got)
	}
}

func TestEmitSkipsWhenChangeDeclines(t *testing.T) {
	var b Bus
	count := 0
	b.Subscribe(func(goSession.AuthEvent) { count++ }, nil)

	b.Emit(func() (goSession.AuthEvent, bool) { return goSession.AuthEvent{}, false })
	b.Emit(func() (goSession.AuthEvent, bool) {
		return goSession.AuthEvent{Kind: goSession.EventSignedOut}, true
	})

	if count != 2 {
		t.Fatalf("expected bootstrap plus one event, got %d", count)
	}
}

func TestReleaseStopsDelivery(t *testing.T) {
	var b Bus
	count := 0
	sub := b.Subscribe(func(goSession.AuthEvent) { count++ }, nil)
	sub.Release()
	sub.Release()

	b.Emit(func() (goSession.AuthEvent, bool) { return goSession.AuthEvent{Kind: goSession.EventSignedIn}, true })
	if count != 1 || b.Len() != 0 {
		t.Fatalf("released handler still receiving: count=%d len=%d", count, b.Len())
	}
}

func TestEmitOrderMatchesChangeOrder(t *testing.T) {
	var (
		b     Bus
		mu    sync.Mutex
		state int
		seen  []int
	)
	b.Subscribe(func(ev goSession.AuthEvent) {
		if ev.Kind == goSession.EventBootstrap {
			return
		}
		mu.Lock()
		seen = append(seen, len(ev.Session.AccessToken))
		mu.Unlock()
	}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Emit(func() (goSession.AuthEvent, bool) {
				state++
				tok := make([]byte, state)
				return goSession.AuthEvent{Kind: goSession.EventTokenRefreshed, Session: &goSession.Session{AccessToken: string(tok)}}, true
			})
		}()
	}
	wg.Wait()

	for i, v := range seen {
		if v != i+1 {
			t.Fatalf("event %d delivered out of order: %v", i, seen[:i+1])
		}
	}
}
