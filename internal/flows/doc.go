// Package flows holds the decision logic behind the Manager's two state machines.
//
//   - [SessionSync] arbitrates the initial session fetch against pushed auth events:
//     activation generations, the bootstrap-before-fetch guard, and the single
//     Initializing to Ready transition.
//   - [ProfileGuard] enforces the load-once-per-sign-in-episode rule and tags profile
//     continuations with the episode they belong to.
//   - [SelectActive] is the active-profile selection rule.
//
// # Architecture boundaries
//
// Decisions only. The root package owns the session and profile values, performs the
// I/O, and applies what these types decide, always from the loop goroutine.
//
// # What this package must NOT do
//
//   - Perform I/O or start goroutines.
//   - Import goSession (to avoid import cycles).
package flows
