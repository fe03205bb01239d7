// Package password hashes and verifies account passwords for the in-process
// identity provider using Argon2id.
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Salt and hash use unpadded standard base64, as produced by the reference
// argon2 tooling.
package password
