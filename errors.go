package goSession

import "errors"

var (
	// ErrAuthentication is returned by Login when the provider rejects the
	// credentials. Provider adapters wrap it.
	ErrAuthentication = errors.New("authentication failed")
	// ErrAbortedInit marks an initial session fetch aborted by deactivation.
	// The Manager swallows it; providers may return it from GetSession.
	ErrAbortedInit = errors.New("initial session fetch aborted")
	// ErrProfileLoad marks a failed background profile load. It is logged and
	// audited, never returned from the automatic load path.
	ErrProfileLoad = errors.New("profile load failed")
	// ErrProfileSwitch wraps every SwitchProfile failure.
	ErrProfileSwitch = errors.New("profile switch failed")
	// ErrProfileNotFound is returned by profile stores for unknown profile ids.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrNotAuthenticated is returned by operations that require a session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrSessionChanged is returned when the sign-in episode ended while an
	// operation was in flight.
	ErrSessionChanged = errors.New("session changed during operation")
	// ErrManagerClosed is returned after Close.
	ErrManagerClosed = errors.New("manager closed")
	// ErrManagerNotActive is returned by operations that need an activation.
	ErrManagerNotActive = errors.New("manager not active")
	// ErrProviderRequired is returned by Build without an identity provider.
	ErrProviderRequired = errors.New("identity provider required")
	// ErrProfileStoreRequired is returned by Build without a profile store.
	ErrProfileStoreRequired = errors.New("profile store required")
)
