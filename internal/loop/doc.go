// Package loop implements the single-threaded cooperative executor that owns all
// mutable Manager state.
//
// Work is submitted as closures. Closures run one at a time, in submission order, on
// one goroutine. Blocking I/O never runs on the loop: callers start it elsewhere and
// [Loop.Post] a continuation when it completes, so handlers interleave only at those
// suspension points.
//
// # What this package must NOT do
//
//   - Block inside Post. Identity providers may deliver events synchronously from
//     within a running closure, so submission must never wait on the loop.
//   - Import goSession or any sibling internal package.
package loop
