package flows

// Phase is the Session Synchronizer lifecycle phase.
type Phase uint8

const (
	PhaseUninitialized Phase = iota
	PhaseInitializing
	PhaseReady
)

// Kind is the flow-level classification of a pushed auth event.
type Kind uint8

const (
	KindOther Kind = iota
	KindBootstrap
	KindSignedIn
	KindTokenRefreshed
	KindSignedOut
)

// Notification is what the Profile Coordinator must be told after a session
// change has been applied.
type Notification uint8

const (
	NotifyNone Notification = iota
	NotifySignedIn
	NotifyTokenRefreshed
	NotifySignedOut
)

// DropReason explains why a continuation or event was not applied.
type DropReason uint8

const (
	DropNone DropReason = iota
	DropStaleGeneration
	DropInactive
	DropBootstrapBeforeFetch
	DropAborted
)

// FetchOutcome classifies how the initial session fetch settled.
type FetchOutcome uint8

const (
	FetchOK FetchOutcome = iota
	FetchFailed
	FetchAborted
)

// Decision is the result of arbitrating a pushed event or a fetch result.
type Decision struct {
	Apply       bool
	Drop        DropReason
	Notify      Notification
	BecameReady bool
}

// SessionSync arbitrates the one-shot initial fetch against the pushed event
// stream. It is not safe for concurrent use; the owning loop serializes calls.
type SessionSync struct {
	phase   Phase
	gen     uint64
	active  bool
	settled bool
}

// Phase returns the current lifecycle phase.
func (s *SessionSync) Phase() Phase {
	return s.phase
}

// Loading reports whether the initial fetch of the first activation is still
// outstanding.
func (s *SessionSync) Loading() bool {
	return s.phase == PhaseInitializing
}

// Active reports whether an activation is in progress.
func (s *SessionSync) Active() bool {
	return s.active
}

// Generation returns the current activation generation.
func (s *SessionSync) Generation() uint64 {
	return s.gen
}

// Activate starts a new activation generation. started is false when an
// activation is already in progress, in which case nothing changes.
func (s *SessionSync) Activate() (gen uint64, started bool) {
	if s.active {
		return s.gen, false
	}
	s.gen++
	s.active = true
	s.settled = false
	if s.phase == PhaseUninitialized {
		s.phase = PhaseInitializing
	}
	return s.gen, true
}

// Deactivate ends the current activation. Every continuation captured under
// the old generation is rejected afterwards.
func (s *SessionSync) Deactivate() bool {
	if !s.active {
		return false
	}
	s.active = false
	s.gen++
	return true
}

// Live reports whether a continuation captured at gen may still mutate state.
func (s *SessionSync) Live(gen uint64) bool {
	return s.active && s.gen == gen
}

func (s *SessionSync) liveness(gen uint64) DropReason {
	if !s.active {
		return DropInactive
	}
	if s.gen != gen {
		return DropStaleGeneration
	}
	return DropNone
}

// Event arbitrates a pushed event captured under gen. hasSession reports
// whether the event carries a session.
func (s *SessionSync) Event(gen uint64, kind Kind, hasSession bool) Decision {
	if reason := s.liveness(gen); reason != DropNone {
		return Decision{Drop: reason}
	}
	if kind == KindBootstrap && !s.settled {
		return Decision{Drop: DropBootstrapBeforeFetch}
	}

	d := Decision{Apply: true}
	switch {
	case !hasSession:
		d.Notify = NotifySignedOut
	case kind == KindSignedIn:
		d.Notify = NotifySignedIn
	case kind == KindTokenRefreshed:
		d.Notify = NotifyTokenRefreshed
	case kind == KindSignedOut:
		d.Notify = NotifySignedOut
	}
	return d
}

// Fetch settles the initial fetch captured under gen. Ready is entered at most
// once over the lifetime of the synchronizer.
func (s *SessionSync) Fetch(gen uint64, outcome FetchOutcome, hasSession bool) Decision {
	if reason := s.liveness(gen); reason != DropNone {
		return Decision{Drop: reason}
	}
	if s.settled {
		return Decision{Drop: DropStaleGeneration}
	}

	s.settled = true
	d := Decision{}
	if s.phase == PhaseInitializing {
		s.phase = PhaseReady
		d.BecameReady = true
	}

	switch outcome {
	case FetchOK:
		d.Apply = true
		if hasSession {
			d.Notify = NotifySignedIn
		} else {
			d.Notify = NotifySignedOut
		}
	case FetchAborted:
		d.Drop = DropAborted
	}
	return d
}
