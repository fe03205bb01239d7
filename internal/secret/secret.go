// Package secret generates opaque bearer tokens of the form id|secret. Only
// the SHA-256 of the secret half is meant to be stored.
package secret

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
)

const (
	idSize     = 16
	secretSize = 32
	tokenSize  = idSize + secretSize
)

// ErrMalformed is returned by Decode for tokens of the wrong size or alphabet.
var ErrMalformed = errors.New("malformed token")

type ID [idSize]byte

func NewID() (ID, error) {
	var id ID
	_, err := rand.Read(id[:])
	return id, err
}

func (id ID) String() string {
	// base64url, no padding, compact
	return base64.RawURLEncoding.EncodeToString(id[:])
}

func ParseID(s string) (ID, error) {
	var id ID

	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return id, ErrMalformed
	}
	if len(raw) != len(id) {
		return id, ErrMalformed
	}

	copy(id[:], raw)
	return id, nil
}

type Secret [secretSize]byte

func NewSecret() (Secret, error) {
	var s Secret
	_, err := rand.Read(s[:])
	return s, err
}

func (s Secret) Hash() [32]byte {
	return sha256.Sum256(s[:])
}

// Matches compares s against a stored hash in constant time.
func (s Secret) Matches(hash [32]byte) bool {
	sum := s.Hash()
	return subtle.ConstantTimeCompare(sum[:], hash[:]) == 1
}

// New returns a fresh token together with its parts.
func New() (string, ID, Secret, error) {
	id, err := NewID()
	if err != nil {
		return "", ID{}, Secret{}, err
	}
	s, err := NewSecret()
	if err != nil {
		return "", ID{}, Secret{}, err
	}
	return Encode(id, s), id, s, nil
}

func Encode(id ID, s Secret) string {
	var raw [tokenSize]byte
	copy(raw[:idSize], id[:])
	copy(raw[idSize:], s[:])
	return base64.RawURLEncoding.EncodeToString(raw[:])
}

func Decode(token string) (ID, Secret, error) {
	var (
		id ID
		s  Secret
	)

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return id, s, ErrMalformed
	}
	if len(raw) != tokenSize {
		return id, s, ErrMalformed
	}

	copy(id[:], raw[:idSize])
	copy(s[:], raw[idSize:])
	return id, s, nil
}
