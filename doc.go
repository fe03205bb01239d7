// Package goSession reconciles an identity provider's session with an
// application's multi-profile model and exposes the result as read-only
// snapshots.
//
// A [Manager] is built once through [Builder.Build], activated with
// [Manager.Activate], and passed to consumers by reference (see [WithManager]).
// It performs a one-shot initial session fetch, subscribes to the provider's
// push events, and arbitrates between the two so that state converges even when
// activation runs twice or events interleave with the fetch. On sign-in it
// loads the user's profiles once per sign-in episode and selects the active
// profile; [Manager.SwitchProfile] changes it explicitly.
//
// # Architecture boundaries
//
// goSession is the public surface. It exposes [Manager], [Builder], [Config],
// the value types ([State], [Session], [User], [Profile]) and the two consumed
// contracts ([IdentityProvider], [ProfileStore]). The event loop, the
// synchronizer and coordinator state machines, and audit dispatch live under
// internal/ and are never exported. Adapters live in provider/ and store/.
//
// # What this package must NOT do
//
//   - Mutate session or profile state outside the Manager's loop goroutine.
//   - Apply a provider or store result captured under an ended activation or
//     sign-in episode.
//   - Block the loop on provider or store I/O.
//   - Import any sub-package that re-imports goSession (no import cycles).
package goSession
