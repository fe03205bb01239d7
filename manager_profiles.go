package goSession

import (
	"context"
	"fmt"
	"time"
)

type episodeRef struct {
	gen     uint64
	episode uint64
	userID  string
}

// capture records the activation and episode a profile operation starts in.
func (m *Manager) capture(ctx context.Context) (episodeRef, error) {
	var (
		ref episodeRef
		err error
	)
	doErr := m.loop.Do(ctx, func() {
		switch {
		case !m.sync.Active():
			err = ErrManagerNotActive
		case m.core.user == nil:
			err = ErrNotAuthenticated
		default:
			ref = episodeRef{
				gen:     m.sync.Generation(),
				episode: m.guard.Episode(),
				userID:  m.core.user.ID,
			}
		}
	})
	if doErr != nil {
		return ref, m.loopErr(doErr)
	}
	return ref, err
}

func (m *Manager) stillCurrent(ref episodeRef) bool {
	return m.sync.Live(ref.gen) &&
		m.guard.Episode() == ref.episode &&
		m.core.user != nil &&
		m.core.user.ID == ref.userID
}

// SwitchProfile asks the profile store to make profileID the active profile
// and adopts the profile it returns. profileID need not be in the cached set.
//
// Every failure wraps [ErrProfileSwitch] and leaves the active profile
// unchanged. When the sign-in episode ends while the store call is in flight
// the result is not applied and the error also wraps [ErrSessionChanged].
func (m *Manager) SwitchProfile(ctx context.Context, profileID string) (Profile, error) {
	if m.closed.Load() {
		return Profile{}, ErrManagerClosed
	}

	ref, err := m.capture(ctx)
	if err != nil {
		m.metrics.Inc(MetricProfileSwitchFailure)
		return Profile{}, fmt.Errorf("%w: %w", ErrProfileSwitch, err)
	}

	p, err := m.store.SetActiveProfile(ctx, ref.userID, profileID)
	if err != nil {
		m.metrics.Inc(MetricProfileSwitchFailure)
		m.emitAudit(ctx, AuditProfileSwitchFailed, ref.userID, profileID, false, err, nil)
		return Profile{}, fmt.Errorf("%w: %w", ErrProfileSwitch, err)
	}

	applied := false
	doErr := m.loop.Do(context.WithoutCancel(ctx), func() {
		if !m.stillCurrent(ref) {
			return
		}
		m.adoptActive(p)
		m.publish()
		applied = true
	})
	if doErr != nil {
		return Profile{}, fmt.Errorf("%w: %w", ErrProfileSwitch, m.loopErr(doErr))
	}
	if !applied {
		m.metrics.Inc(MetricProfileSwitchFailure)
		m.emitAudit(ctx, AuditProfileSwitchFailed, ref.userID, profileID, false, ErrSessionChanged, nil)
		return Profile{}, fmt.Errorf("%w: %w", ErrProfileSwitch, ErrSessionChanged)
	}

	m.metrics.Inc(MetricProfileSwitchSuccess)
	m.emitAudit(ctx, AuditProfileSwitch, ref.userID, p.ID, true, nil, nil)
	return p, nil
}

// ReloadProfiles fetches the profile set again within the current sign-in
// episode and waits for the result. A failed fetch clears the set exactly as
// the automatic load does, and the error wrapping [ErrProfileLoad] is
// returned.
func (m *Manager) ReloadProfiles(ctx context.Context) error {
	if m.closed.Load() {
		return ErrManagerClosed
	}

	var (
		ref episodeRef
		ok  bool
	)
	doErr := m.loop.Do(ctx, func() {
		if !m.sync.Active() {
			return
		}
		episode, userID, open := m.guard.Reload()
		if !open {
			return
		}
		ref = episodeRef{gen: m.sync.Generation(), episode: episode, userID: userID}
		ok = true
	})
	if doErr != nil {
		return m.loopErr(doErr)
	}
	if !ok {
		return ErrNotAuthenticated
	}

	m.metrics.Inc(MetricProfileLoadStarted)
	started := time.Now()
	listing, err := m.store.ListProfiles(ctx, ref.userID)
	elapsed := time.Since(started)

	applied := false
	doErr = m.loop.Do(context.WithoutCancel(ctx), func() {
		applied = m.applyProfileLoad(ref.gen, ref.episode, ref.userID, listing, err, elapsed)
		if applied {
			m.publish()
		}
	})
	if doErr != nil {
		return m.loopErr(doErr)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrProfileLoad, err)
	}
	if !applied {
		return fmt.Errorf("%w: %w", ErrProfileLoad, ErrSessionChanged)
	}
	return nil
}
