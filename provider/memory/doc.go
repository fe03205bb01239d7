// Package memory is an in-process goSession.IdentityProvider.
//
// It keeps one client-side session, like a browser SDK would: Subscribe
// reports the held session synchronously as a bootstrap event, and every
// credential operation pushes the matching auth event to subscribers.
// Passwords are stored as Argon2id hashes and access tokens are signed JWTs.
// An optional Redis throttle limits failed sign-ins and reset requests.
package memory
