// Package audit relays session activity events to a caller-supplied sink off the
// caller's goroutine.
//
// # Components
//
//   - [Sink]: event consumer interface ([SinkFunc], [NoOpSink]).
//   - [Dispatcher]: buffered relay with drop-if-full / block-if-full semantics, a
//     dropped-event counter and per-dispatcher sequence numbers.
//   - [Event]: record with type, user, profile, outcome and metadata, stamped with
//     a timestamp and sequence number on acceptance.
//
// # What this package must NOT do
//
//   - Decide which events to emit. The Manager does that.
//   - Import goSession or any sibling internal package.
package audit
