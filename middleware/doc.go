// Package middleware exposes HTTP middleware that gates handlers on the state
// of a goSession.Manager.
//
// # Guards
//
//   - [Guard] rejects requests unless a caller-supplied predicate accepts the
//     current [goSession.State].
//   - [RequireSession] passes any authenticated state.
//   - [RequireAdmin], [RequireCoach] and [RequireNavigator] check the role
//     flags of the active profile.
//
// Every guard answers 503 while the Manager is still initializing, 401 when
// no session is present and 403 when the predicate refuses. Accepted requests
// carry the evaluated state, retrievable with [StateFromContext].
//
// # What this package must NOT do
//
//   - Call the identity provider or the profile store.
//   - Mutate Manager state.
package middleware
