package goSession

import (
	"context"
	"time"
)

// Session is the token bundle issued by the identity provider. The Manager
// holds a read-only copy and replaces it wholesale on fetch or event delivery.
type Session struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresAt    time.Time
	User         User
}

// Expired reports whether the access token is past its expiry at now. A zero
// ExpiresAt never expires.
func (s *Session) Expired(now time.Time) bool {
	if s == nil {
		return true
	}
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(s.ExpiresAt)
}

func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.User = s.User.clone()
	return &out
}

// EventKind tags an auth event pushed by the identity provider.
type EventKind uint8

const (
	// EventUnknown is any kind the Manager does not recognize. It updates the
	// session but never triggers a profile load.
	EventUnknown EventKind = iota
	// EventBootstrap is the event a provider may emit synchronously from
	// Subscribe to report the session it already holds.
	EventBootstrap
	// EventSignedIn reports a new sign-in.
	EventSignedIn
	// EventTokenRefreshed reports rotated tokens for the same user.
	EventTokenRefreshed
	// EventSignedOut reports the end of the session.
	EventSignedOut
	// EventUserUpdated reports changed user attributes.
	EventUserUpdated
	// EventPasswordRecovery reports a completed password recovery.
	EventPasswordRecovery
)

var eventKindNames = [...]string{
	EventUnknown:          "unknown",
	EventBootstrap:        "bootstrap",
	EventSignedIn:         "signed_in",
	EventTokenRefreshed:   "token_refreshed",
	EventSignedOut:        "signed_out",
	EventUserUpdated:      "user_updated",
	EventPasswordRecovery: "password_recovery",
}

func (k EventKind) String() string {
	if int(k) < len(eventKindNames) {
		return eventKindNames[k]
	}
	return eventKindNames[EventUnknown]
}

// AuthEvent is one delivery on the provider's push stream. Session is nil when
// the event reports the absence of a session.
type AuthEvent struct {
	Kind    EventKind
	Session *Session
}

// Subscription is a live registration on the provider's event stream.
// Release stops delivery; it must be safe to call more than once.
type Subscription interface {
	Release()
}

// IdentityProvider is the external authentication collaborator.
//
// Subscribe may invoke handler synchronously, before it returns, to report the
// session the provider already holds (an [EventBootstrap] event). Handlers must
// not block.
type IdentityProvider interface {
	GetSession(ctx context.Context) (*Session, error)
	Subscribe(handler func(AuthEvent)) (Subscription, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context) error
	RequestPasswordReset(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, newPassword string) error
}

// ProfileListing is the profile set of one user in provider-defined order,
// plus the profile the store remembers as active, if any.
type ProfileListing struct {
	Profiles                 []Profile
	PreferredActiveProfileID string
}

// ProfileStore is the external profile collaborator.
type ProfileStore interface {
	ListProfiles(ctx context.Context, userID string) (ProfileListing, error)
	SetActiveProfile(ctx context.Context, userID, profileID string) (Profile, error)
}

// Profile is an application-level role record. IDs are unique within the set
// returned for one user.
type Profile struct {
	ID   string
	Name string
	Type ProfileType
}

// Roles returns the role flags derived from the profile type.
func (p Profile) Roles() RoleFlags {
	return RolesFor(p.Type)
}

// Phase is the Manager lifecycle phase.
type Phase uint8

const (
	// PhaseUninitialized is the phase before the first activation.
	PhaseUninitialized Phase = iota
	// PhaseInitializing lasts until the first initial fetch settles.
	PhaseInitializing
	// PhaseReady is terminal for the lifetime of the Manager.
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseInitializing:
		return "initializing"
	case PhaseReady:
		return "ready"
	default:
		return "uninitialized"
	}
}

// State is a read-only snapshot of the reconciled session and profile state.
// Values returned by the Manager are copies; mutating them has no effect.
type State struct {
	Phase         Phase
	Loading       bool
	Session       *Session
	User          *User
	Profiles      []Profile
	ActiveProfile *Profile
}

// IsAuthenticated reports whether a session is present.
func (s State) IsAuthenticated() bool {
	return s.Session != nil
}

// Roles returns the role flags of the active profile. Without an active
// profile every flag is false.
func (s State) Roles() RoleFlags {
	if s.ActiveProfile == nil {
		return RoleFlags{}
	}
	return s.ActiveProfile.Roles()
}

func (s State) clone() State {
	out := State{
		Phase:   s.Phase,
		Loading: s.Loading,
		Session: s.Session.clone(),
	}
	if s.User != nil {
		u := s.User.clone()
		out.User = &u
	}
	if s.Profiles != nil {
		out.Profiles = append([]Profile(nil), s.Profiles...)
	}
	if s.ActiveProfile != nil {
		p := *s.ActiveProfile
		out.ActiveProfile = &p
	}
	return out
}
