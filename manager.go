package goSession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	internalaudit "github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/internal/loop"
)

// Manager reconciles the identity provider's session with the profile store's
// profile set and publishes the result as [State] snapshots.
//
// Every mutation of session and profile state runs on one loop goroutine.
// Provider and store calls run elsewhere and hand their results back to the
// loop, where they are checked against the activation generation and the
// sign-in episode before they are applied. Methods are safe for concurrent use.
type Manager struct {
	config   Config
	provider IdentityProvider
	store    ProfileStore
	logger   *slog.Logger
	metrics  *Metrics
	audit    *internalaudit.Dispatcher

	loop   *loop.Loop
	ctx    context.Context
	cancel context.CancelFunc

	// Owned by the loop goroutine.
	sync        flows.SessionSync
	guard       flows.ProfileGuard
	core        coreState
	sub         Subscription
	cancelFetch context.CancelFunc

	snapshot atomic.Pointer[State]

	watchMu     sync.Mutex
	watchers    map[uint64]chan State
	nextWatcher uint64

	closed    atomic.Bool
	closeOnce sync.Once
}

type coreState struct {
	session  *Session
	user     *User
	profiles []Profile
	active   *Profile
}

func newManager(cfg Config, provider IdentityProvider, store ProfileStore, logger *slog.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		config:   cfg,
		provider: provider,
		store:    store,
		logger:   logger,
		loop:     loop.New(),
		ctx:      ctx,
		cancel:   cancel,
		watchers: make(map[uint64]chan State),
	}
	m.snapshot.Store(&State{Phase: PhaseUninitialized})
	return m
}

/*
====================================
LIFECYCLE
====================================
*/

// Activate starts an activation: it subscribes to the provider's event stream
// and issues the initial session fetch. The first activation moves the Manager
// to [PhaseInitializing]. Activate is a no-op while already active.
//
// A ctx that is already done returns its error and activates nothing. Once
// accepted, the activation always completes, so a nil error means the caller
// owns a matching [Manager.Deactivate]. The initial fetch inherits ctx values
// but not its cancellation; Deactivate cancels it.
func (m *Manager) Activate(ctx context.Context) error {
	if m.closed.Load() {
		return ErrManagerClosed
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	detached := context.WithoutCancel(ctx)
	err := m.loop.Do(detached, func() {
		m.activate(detached)
	})
	return m.loopErr(err)
}

func (m *Manager) activate(parent context.Context) {
	gen, started := m.sync.Activate()
	if !started {
		return
	}
	m.publish()

	sub, err := m.provider.Subscribe(func(ev AuthEvent) {
		m.loop.Post(func() {
			m.onAuthEvent(gen, ev)
		})
	})
	if err != nil {
		m.logger.Warn("auth event subscription failed",
			"module", "session_sync",
			"operation", "subscribe",
			"outcome", "failure",
			"error", err,
		)
	} else {
		m.sub = sub
	}

	fetchCtx, cancel := context.WithCancel(parent)
	m.cancelFetch = cancel

	// Started after Subscribe so a bootstrap event delivered during Subscribe
	// is queued ahead of the fetch result.
	go func() {
		sess, err := m.provider.GetSession(fetchCtx)
		aborted := fetchCtx.Err() != nil
		m.loop.Post(func() {
			m.onInitialFetch(gen, sess, err, aborted)
		})
	}()
}

// Deactivate releases the event subscription and cancels the initial fetch.
// Results that arrive for the ended activation are discarded. Cached state is
// kept; a later Activate reconciles it again.
func (m *Manager) Deactivate() {
	if m.closed.Load() {
		return
	}
	_ = m.loop.Do(context.Background(), m.deactivate)
}

func (m *Manager) deactivate() {
	if !m.sync.Deactivate() {
		return
	}
	if m.sub != nil {
		m.sub.Release()
		m.sub = nil
	}
	if m.cancelFetch != nil {
		m.cancelFetch()
		m.cancelFetch = nil
	}
	// A new activation reloads profiles for the session it finds.
	m.guard.End()
}

// Close deactivates the Manager, stops its loop and audit dispatcher, and
// closes every watch channel. Operations after Close return [ErrManagerClosed].
func (m *Manager) Close() {
	if m == nil {
		return
	}
	m.closeOnce.Do(func() {
		_ = m.loop.Do(context.Background(), m.deactivate)
		m.closed.Store(true)
		m.cancel()
		m.loop.Close()
		if m.audit != nil {
			m.audit.Close()
		}

		m.watchMu.Lock()
		for id, ch := range m.watchers {
			close(ch)
			delete(m.watchers, id)
		}
		m.watchMu.Unlock()
	})
}

func (m *Manager) loopErr(err error) error {
	if errors.Is(err, loop.ErrClosed) {
		return ErrManagerClosed
	}
	return err
}

/*
====================================
SESSION SYNCHRONIZATION
====================================
*/

func (m *Manager) onInitialFetch(gen uint64, sess *Session, err error, cancelled bool) {
	outcome := flows.FetchOK
	switch {
	case err == nil:
	case cancelled || errors.Is(err, ErrAbortedInit):
		outcome = flows.FetchAborted
	default:
		outcome = flows.FetchFailed
	}

	d := m.sync.Fetch(gen, outcome, err == nil && sess != nil)
	if d.Drop == flows.DropInactive || d.Drop == flows.DropStaleGeneration {
		m.metrics.Inc(MetricInitialFetchDiscarded)
		m.logger.Debug("initial session fetch discarded",
			"module", "session_sync",
			"operation", "initial_fetch",
			"outcome", "discarded",
		)
		return
	}
	if m.cancelFetch != nil {
		m.cancelFetch()
		m.cancelFetch = nil
	}

	if outcome == flows.FetchFailed {
		m.metrics.Inc(MetricInitialFetchFailure)
		m.logger.Warn("initial session fetch failed",
			"module", "session_sync",
			"operation", "initial_fetch",
			"outcome", "failure",
			"error", err,
		)
	}

	if d.Apply {
		m.metrics.Inc(MetricInitialFetchSuccess)
		m.setSession(sess)
		m.notify(d.Notify)
	}
	if d.Apply || d.BecameReady {
		m.publish()
	}
}

func (m *Manager) onAuthEvent(gen uint64, ev AuthEvent) {
	d := m.sync.Event(gen, flowKind(ev.Kind), ev.Session != nil)
	switch d.Drop {
	case flows.DropNone:
	case flows.DropBootstrapBeforeFetch:
		m.metrics.Inc(MetricBootstrapSuppressed)
		m.logger.Debug("bootstrap event suppressed",
			"module", "session_sync",
			"operation", "event",
			"outcome", "suppressed",
			"kind", ev.Kind.String(),
		)
		return
	default:
		m.metrics.Inc(MetricEventDropped)
		m.logger.Debug("auth event dropped",
			"module", "session_sync",
			"operation", "event",
			"outcome", "dropped",
			"kind", ev.Kind.String(),
		)
		return
	}

	m.metrics.Inc(MetricEventApplied)
	m.setSession(ev.Session)
	m.notify(d.Notify)
	m.publish()
}

func (m *Manager) setSession(sess *Session) {
	m.core.session = sess.clone()
	if sess == nil {
		m.core.user = nil
		return
	}
	u := sess.User.clone()
	m.core.user = &u
}

func (m *Manager) notify(n flows.Notification) {
	switch n {
	case flows.NotifySignedIn, flows.NotifyTokenRefreshed:
		if m.core.user != nil {
			m.beginProfileLoad(m.core.user.ID)
		}
	case flows.NotifySignedOut:
		m.clearProfiles()
		m.guard.End()
	}
}

func flowKind(k EventKind) flows.Kind {
	switch k {
	case EventBootstrap:
		return flows.KindBootstrap
	case EventSignedIn:
		return flows.KindSignedIn
	case EventTokenRefreshed:
		return flows.KindTokenRefreshed
	case EventSignedOut:
		return flows.KindSignedOut
	default:
		return flows.KindOther
	}
}

/*
====================================
PROFILE COORDINATION
====================================
*/

func (m *Manager) beginProfileLoad(userID string) {
	if cur := m.guard.UserID(); cur != "" && cur != userID && !m.config.Profiles.ReloadOnUserChange {
		m.metrics.Inc(MetricProfileLoadSuppressed)
		return
	}

	episode, start, reset := m.guard.Begin(userID)
	if !start {
		m.metrics.Inc(MetricProfileLoadSuppressed)
		return
	}
	if reset {
		m.clearProfiles()
	}

	gen := m.sync.Generation()
	m.metrics.Inc(MetricProfileLoadStarted)

	go func() {
		started := time.Now()
		listing, err := m.store.ListProfiles(m.ctx, userID)
		elapsed := time.Since(started)
		m.loop.Post(func() {
			if m.applyProfileLoad(gen, episode, userID, listing, err, elapsed) {
				m.publish()
			}
		})
	}()
}

// applyProfileLoad installs a fetched profile set. It reports false when the
// result belongs to an ended activation or sign-in episode.
func (m *Manager) applyProfileLoad(gen, episode uint64, userID string, listing ProfileListing, err error, elapsed time.Duration) bool {
	if !m.sync.Live(gen) || !m.guard.Current(episode) || m.guard.UserID() != userID {
		m.metrics.Inc(MetricProfileLoadStale)
		m.logger.Debug("profile load discarded",
			"module", "profiles",
			"operation", "load",
			"outcome", "stale",
		)
		return false
	}
	m.metrics.Observe(MetricProfileLoadLatency, elapsed)

	if err != nil {
		m.metrics.Inc(MetricProfileLoadFailure)
		m.logger.Error("profile load failed",
			"module", "profiles",
			"operation", "load",
			"outcome", "failure",
			"error", fmt.Errorf("%w: %w", ErrProfileLoad, err),
		)
		m.emitAudit(m.ctx, AuditProfileLoadFailed, userID, "", false, err, nil)
		m.clearProfiles()
		return true
	}

	m.metrics.Inc(MetricProfileLoadSuccess)
	m.setProfiles(listing)
	return true
}

func (m *Manager) setProfiles(listing ProfileListing) {
	profiles := append([]Profile(nil), listing.Profiles...)
	ids := make([]string, len(profiles))
	for i, p := range profiles {
		ids[i] = p.ID
	}

	m.core.profiles = profiles
	m.core.active = nil
	if i := flows.SelectActive(ids, listing.PreferredActiveProfileID); i >= 0 {
		active := profiles[i]
		m.core.active = &active
	}
}

func (m *Manager) clearProfiles() {
	m.core.profiles = nil
	m.core.active = nil
}

// adoptActive replaces the active profile with p, keeping the cached set in
// step with it.
func (m *Manager) adoptActive(p Profile) {
	active := p
	m.core.active = &active

	for i := range m.core.profiles {
		if m.core.profiles[i].ID == p.ID {
			m.core.profiles[i] = p
			return
		}
	}
	m.core.profiles = append(m.core.profiles, p)
}

/*
====================================
SNAPSHOTS
====================================
*/

// State returns a copy of the current reconciled state.
func (m *Manager) State() State {
	return m.snapshot.Load().clone()
}

// Watch returns a channel that receives a snapshot after every state change,
// starting with the current state. A slow receiver only ever finds the newest
// snapshot queued. The returned function stops delivery and closes the
// channel.
//
// After Close, or when Config.Watch.MaxWatchers is reached, the channel is
// returned already closed.
func (m *Manager) Watch(buffer int) (<-chan State, func()) {
	if buffer <= 0 {
		buffer = m.config.Watch.DefaultBuffer
	}
	ch := make(chan State, buffer)

	m.watchMu.Lock()
	defer m.watchMu.Unlock()

	limit := m.config.Watch.MaxWatchers
	if m.closed.Load() || (limit > 0 && len(m.watchers) >= limit) {
		close(ch)
		return ch, func() {}
	}

	id := m.nextWatcher
	m.nextWatcher++
	m.watchers[id] = ch
	ch <- m.snapshot.Load().clone()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.watchMu.Lock()
			defer m.watchMu.Unlock()
			if _, ok := m.watchers[id]; ok {
				delete(m.watchers, id)
				close(ch)
			}
		})
	}
}

func (m *Manager) publish() {
	s := State{
		Phase:    phaseOf(m.sync.Phase()),
		Loading:  m.sync.Loading(),
		Session:  m.core.session,
		User:     m.core.user,
		Profiles: m.core.profiles,
	}
	s.ActiveProfile = m.core.active
	s = s.clone()
	m.snapshot.Store(&s)

	m.watchMu.Lock()
	defer m.watchMu.Unlock()

	for _, ch := range m.watchers {
		offer(ch, s.clone())
	}
}

// offer replaces the oldest queued snapshot when ch is full. publish is the
// only sender, so the second send cannot fail after a successful receive.
func offer(ch chan State, s State) {
	select {
	case ch <- s:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- s:
	default:
	}
}

func phaseOf(p flows.Phase) Phase {
	switch p {
	case flows.PhaseInitializing:
		return PhaseInitializing
	case flows.PhaseReady:
		return PhaseReady
	default:
		return PhaseUninitialized
	}
}

/*
====================================
INTROSPECTION
====================================
*/

// MetricsSnapshot returns a copy of the Manager's counters.
func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	if m == nil || m.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return m.metrics.Snapshot()
}

// AuditDropped returns the number of audit events dropped on a full buffer
// or abandoned because the emitting context ended.
func (m *Manager) AuditDropped() uint64 {
	if m == nil || m.audit == nil {
		return 0
	}
	return m.audit.Dropped()
}
