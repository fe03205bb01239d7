// Package rate provides the Redis-backed throttles used by the in-process
// identity provider.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Keys:
//   - <prefix>:signin:<email>: failed sign-ins per account
//   - <prefix>:reset:<email> : password reset requests per email
//
// # What this package must NOT do
//
//   - Decide what happens when a budget is exhausted; callers map
//     [ErrRateLimited] to their own errors.
//   - Be imported outside the goSession module.
package rate
