package goSession

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func signedInHarness(t *testing.T, listing ProfileListing) *harness {
	t.Helper()
	h := newHarness(t, nil)
	h.store.put(alice.ID, listing)
	h.provider.setSession(sessionFor(alice))
	h.activate(t)
	h.waitState(t, func(s State) bool { return len(s.Profiles) == len(listing.Profiles) && s.ActiveProfile != nil }, "profiles never loaded")
	return h
}

func TestSwitchProfileAdoptsStoreResult(t *testing.T) {
	h := signedInHarness(t, ProfileListing{Profiles: []Profile{
		{ID: "1", Name: "Home", Type: ProfileTypeMember},
		{ID: "2", Name: "Ops", Type: ProfileTypeAdmin},
	}})
	require.Equal(t, "1", h.manager.State().ActiveProfile.ID)

	p, err := h.manager.SwitchProfile(context.Background(), "2")
	require.NoError(t, err)
	require.Equal(t, "2", p.ID)

	s := h.manager.State()
	require.Equal(t, "2", s.ActiveProfile.ID)
	require.True(t, s.Roles().Admin)
	require.EqualValues(t, 1, h.manager.metrics.Value(MetricProfileSwitchSuccess))

	ev := h.nextAudit(t, AuditProfileSwitch)
	require.Equal(t, alice.ID, ev.UserID)
	require.Equal(t, "2", ev.ProfileID)
}

func TestSwitchProfileUpsertsUnknownProfile(t *testing.T) {
	h := signedInHarness(t, ProfileListing{Profiles: []Profile{{ID: "1", Type: ProfileTypeMember}}})
	h.store.mu.Lock()
	h.store.extra["9"] = Profile{ID: "9", Type: ProfileTypeCoach}
	h.store.mu.Unlock()

	_, err := h.manager.SwitchProfile(context.Background(), "9")
	require.NoError(t, err)

	s := h.manager.State()
	require.Equal(t, "9", s.ActiveProfile.ID)
	require.Equal(t, []string{"1", "9"}, profileIDs(s.Profiles))
}

func TestSwitchProfileNotFoundKeepsActive(t *testing.T) {
	h := signedInHarness(t, ProfileListing{Profiles: []Profile{{ID: "1"}}})

	_, err := h.manager.SwitchProfile(context.Background(), "missing")
	require.ErrorIs(t, err, ErrProfileSwitch)
	require.ErrorIs(t, err, ErrProfileNotFound)
	require.Equal(t, "1", h.manager.State().ActiveProfile.ID)
	require.EqualValues(t, 1, h.manager.metrics.Value(MetricProfileSwitchFailure))
}

func TestSwitchProfileRequiresSession(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.manager.SwitchProfile(context.Background(), "1")
	require.ErrorIs(t, err, ErrProfileSwitch)
	require.ErrorIs(t, err, ErrManagerNotActive)

	h.activate(t)
	h.waitReady(t)
	_, err = h.manager.SwitchProfile(context.Background(), "1")
	require.ErrorIs(t, err, ErrProfileSwitch)
	require.ErrorIs(t, err, ErrNotAuthenticated)
	require.Zero(t, h.store.setCalls.Load())
}

func TestSwitchProfileAfterSignOutIsNotApplied(t *testing.T) {
	h := signedInHarness(t, ProfileListing{Profiles: []Profile{{ID: "1"}, {ID: "2"}}})
	gate := make(chan struct{})
	h.store.mu.Lock()
	h.store.setGate = gate
	h.store.mu.Unlock()

	errc := make(chan error, 1)
	go func() {
		_, err := h.manager.SwitchProfile(context.Background(), "2")
		errc <- err
	}()

	require.Eventually(t, func() bool { return h.store.setCalls.Load() == 1 }, waitFor, pollTick)
	h.provider.emit(EventSignedOut, nil)
	h.settle(t)
	close(gate)

	err := <-errc
	require.ErrorIs(t, err, ErrProfileSwitch)
	require.ErrorIs(t, err, ErrSessionChanged)

	s := h.manager.State()
	require.False(t, s.IsAuthenticated())
	require.Nil(t, s.ActiveProfile)
}

func TestReloadProfilesFetchesAgain(t *testing.T) {
	h := signedInHarness(t, ProfileListing{Profiles: []Profile{{ID: "1"}}})
	require.EqualValues(t, 1, h.store.listCalls.Load())

	h.store.put(alice.ID, ProfileListing{
		Profiles:                 []Profile{{ID: "1"}, {ID: "2"}},
		PreferredActiveProfileID: "2",
	})
	require.NoError(t, h.manager.ReloadProfiles(context.Background()))
	require.EqualValues(t, 2, h.store.listCalls.Load())

	s := h.manager.State()
	require.Equal(t, []string{"1", "2"}, profileIDs(s.Profiles))
	require.Equal(t, "2", s.ActiveProfile.ID)
}

func TestReloadProfilesFailureClearsSet(t *testing.T) {
	h := signedInHarness(t, ProfileListing{Profiles: []Profile{{ID: "1"}}})

	boom := errors.New("store down")
	h.store.mu.Lock()
	h.store.listErr = boom
	h.store.mu.Unlock()

	err := h.manager.ReloadProfiles(context.Background())
	require.ErrorIs(t, err, ErrProfileLoad)
	require.ErrorIs(t, err, boom)

	s := h.manager.State()
	require.True(t, s.IsAuthenticated())
	require.Empty(t, s.Profiles)
	require.Nil(t, s.ActiveProfile)
}

func TestReloadProfilesRequiresSession(t *testing.T) {
	h := newHarness(t, nil)
	h.activate(t)
	h.waitReady(t)

	require.ErrorIs(t, h.manager.ReloadProfiles(context.Background()), ErrNotAuthenticated)
	require.Zero(t, h.store.listCalls.Load())
}
