// Package jwt issues and verifies the access tokens carried by sessions and
// extracts the user identity claims (subject, email, user_metadata) they hold.
package jwt
