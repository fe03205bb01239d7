package goSession

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	waitFor  = 2 * time.Second
	pollTick = 5 * time.Millisecond
)

type fakeSubscription struct {
	p    *fakeProvider
	id   int
	once sync.Once
}

func (s *fakeSubscription) Release() {
	s.once.Do(func() {
		s.p.mu.Lock()
		delete(s.p.handlers, s.id)
		s.p.mu.Unlock()
		s.p.releases.Add(1)
	})
}

type fakeProvider struct {
	mu       sync.Mutex
	session  *Session
	handlers map[int]func(AuthEvent)
	nextID   int

	// bootstrap makes Subscribe report the held session synchronously.
	bootstrap bool
	// fetchGate, when set, holds GetSession until closed or cancelled.
	fetchGate chan struct{}
	// fetchSession overrides the session GetSession reports.
	fetchSession *Session
	fetchErr     error
	subscribeErr error
	signOutErr   error
	// signInEmpty makes SignIn report success without a session.
	signInEmpty bool

	passwords map[string]string
	users     map[string]User

	fetches  atomic.Int32
	releases atomic.Int32
	fetchCtx chan context.Context
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		handlers:  make(map[int]func(AuthEvent)),
		passwords: make(map[string]string),
		users:     make(map[string]User),
		fetchCtx:  make(chan context.Context, 8),
	}
}

func (p *fakeProvider) addUser(u User, password string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[u.Email] = u
	p.passwords[u.Email] = password
}

func (p *fakeProvider) setSession(s *Session) {
	p.mu.Lock()
	p.session = s
	p.mu.Unlock()
}

func (p *fakeProvider) GetSession(ctx context.Context) (*Session, error) {
	p.fetches.Add(1)
	p.fetchCtx <- ctx

	p.mu.Lock()
	gate := p.fetchGate
	p.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, fmt.Errorf("get session: %w", ErrAbortedInit)
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fetchErr != nil {
		return nil, p.fetchErr
	}
	if p.fetchSession != nil {
		return p.fetchSession, nil
	}
	return p.session, nil
}

func (p *fakeProvider) Subscribe(handler func(AuthEvent)) (Subscription, error) {
	p.mu.Lock()
	if p.subscribeErr != nil {
		p.mu.Unlock()
		return nil, p.subscribeErr
	}
	id := p.nextID
	p.nextID++
	p.handlers[id] = handler
	current := p.session
	bootstrap := p.bootstrap
	p.mu.Unlock()

	if bootstrap {
		handler(AuthEvent{Kind: EventBootstrap, Session: current})
	}
	return &fakeSubscription{p: p, id: id}, nil
}

func (p *fakeProvider) emit(kind EventKind, s *Session) {
	p.mu.Lock()
	p.session = s
	hs := make([]func(AuthEvent), 0, len(p.handlers))
	for _, h := range p.handlers {
		hs = append(hs, h)
	}
	p.mu.Unlock()

	for _, h := range hs {
		h(AuthEvent{Kind: kind, Session: s})
	}
}

func (p *fakeProvider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	p.mu.Lock()
	u, ok := p.users[email]
	pw := p.passwords[email]
	empty := p.signInEmpty
	p.mu.Unlock()

	if empty {
		return nil, nil
	}

	if !ok || pw != password {
		return nil, fmt.Errorf("sign in %q: %w", email, ErrAuthentication)
	}
	s := sessionFor(u)
	p.emit(EventSignedIn, s)
	return s, nil
}

func (p *fakeProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	err := p.signOutErr
	p.mu.Unlock()
	if err != nil {
		return err
	}
	p.emit(EventSignedOut, nil)
	return nil
}

func (p *fakeProvider) RequestPasswordReset(ctx context.Context, email string) error {
	return nil
}

func (p *fakeProvider) UpdatePassword(ctx context.Context, newPassword string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return ErrNotAuthenticated
	}
	p.passwords[p.session.User.Email] = newPassword
	return nil
}

type fakeStore struct {
	mu       sync.Mutex
	listings map[string]ProfileListing
	extra    map[string]Profile
	listErr  error
	listGate chan struct{}
	setGate  chan struct{}
	setErr   error

	listCalls atomic.Int32
	setCalls  atomic.Int32
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		listings: make(map[string]ProfileListing),
		extra:    make(map[string]Profile),
	}
}

func (s *fakeStore) put(userID string, listing ProfileListing) {
	s.mu.Lock()
	s.listings[userID] = listing
	s.mu.Unlock()
}

func (s *fakeStore) ListProfiles(ctx context.Context, userID string) (ProfileListing, error) {
	s.listCalls.Add(1)

	s.mu.Lock()
	gate := s.listGate
	s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ProfileListing{}, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return ProfileListing{}, s.listErr
	}
	return s.listings[userID], nil
}

func (s *fakeStore) SetActiveProfile(ctx context.Context, userID, profileID string) (Profile, error) {
	s.setCalls.Add(1)

	s.mu.Lock()
	gate := s.setGate
	s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return Profile{}, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return Profile{}, s.setErr
	}
	for _, p := range s.listings[userID].Profiles {
		if p.ID == profileID {
			return p, nil
		}
	}
	if p, ok := s.extra[profileID]; ok {
		return p, nil
	}
	return Profile{}, fmt.Errorf("profile %q: %w", profileID, ErrProfileNotFound)
}

func sessionFor(u User) *Session {
	return &Session{
		AccessToken: "access-" + u.ID,
		TokenType:   "bearer",
		ExpiresAt:   time.Now().Add(time.Hour),
		User:        u,
	}
}

var (
	alice = User{ID: "u1", Email: "alice@example.com", Metadata: UserMetadata{FirstName: "Alice", LastName: "Liddell"}}
	bob   = User{ID: "u2", Email: "bob@example.com"}
)

type harness struct {
	provider *fakeProvider
	store    *fakeStore
	manager  *Manager
	audit    *ChannelSink
}

func newHarness(t *testing.T, mutate func(*Config)) *harness {
	t.Helper()

	h := &harness{
		provider: newFakeProvider(),
		store:    newFakeStore(),
		audit:    NewChannelSink(64),
	}
	cfg := DefaultConfig()
	cfg.Audit.Enabled = true
	if mutate != nil {
		mutate(&cfg)
	}

	m, err := New().
		WithIdentityProvider(h.provider).
		WithProfileStore(h.store).
		WithConfig(cfg).
		WithAuditSink(h.audit).
		Build()
	require.NoError(t, err)
	t.Cleanup(m.Close)
	h.manager = m
	return h
}

func (h *harness) activate(t *testing.T) {
	t.Helper()
	require.NoError(t, h.manager.Activate(context.Background()))
}

func (h *harness) waitState(t *testing.T, cond func(State) bool, msg string) State {
	t.Helper()
	require.Eventually(t, func() bool {
		return cond(h.manager.State())
	}, waitFor, pollTick, msg)
	return h.manager.State()
}

func (h *harness) waitReady(t *testing.T) State {
	t.Helper()
	return h.waitState(t, func(s State) bool { return s.Phase == PhaseReady }, "manager never became ready")
}

func (h *harness) waitMetric(t *testing.T, id MetricID, want uint64) {
	t.Helper()
	require.Eventually(t, func() bool {
		return h.manager.metrics.Value(id) == want
	}, waitFor, pollTick, "metric %d never reached %d", id, want)
}

// settle waits until the loop has processed everything posted so far.
func (h *harness) settle(t *testing.T) {
	t.Helper()
	require.NoError(t, h.manager.loop.Do(context.Background(), func() {}))
}

func (h *harness) nextAudit(t *testing.T, eventType string) AuditEvent {
	t.Helper()
	deadline := time.After(waitFor)
	for {
		select {
		case ev := <-h.audit.Events():
			if ev.EventType == eventType {
				return ev
			}
		case <-deadline:
			t.Fatalf("audit event %q not emitted", eventType)
		}
	}
}

// handlerSnapshot copies the currently subscribed handlers.
func (p *fakeProvider) handlerSnapshot() []func(AuthEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	hs := make([]func(AuthEvent), 0, len(p.handlers))
	for _, h := range p.handlers {
		hs = append(hs, h)
	}
	return hs
}

func latencyCount(m *Manager) uint64 {
	var n uint64
	for _, c := range m.metrics.Snapshot().Histograms[MetricProfileLoadLatency] {
		n += c
	}
	return n
}

func profileIDs(ps []Profile) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ID)
	}
	return out
}
