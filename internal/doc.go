// Package internal groups helpers that are private to goSession.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - broadcast: provider-side event fan-out with bootstrap delivery
//   - flows: decision logic for session synchronization and profile episodes
//   - loop: the single goroutine that owns Manager state
//   - rate: Redis-backed sign-in and reset throttles
//   - secret: opaque id|secret bearer tokens
//
// # What this package must NOT do
//
//   - Export types that appear in the public goSession API.
//   - Be imported by any package outside the goSession module.
package internal
