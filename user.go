package goSession

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// User is the identity record carried by a Session.
type User struct {
	ID       string
	Email    string
	Metadata UserMetadata
}

// UserMetadata holds the optional profile fields an identity provider keeps
// next to the account.
type UserMetadata struct {
	FirstName string
	LastName  string
	// Initials overrides the derived initials when non-empty.
	Initials string
	Extra    map[string]string
}

// Initials returns the explicit override, else the first letters of first and
// last name, else the first letter of the email, else "?".
func (u User) Initials() string {
	if v := strings.TrimSpace(u.Metadata.Initials); v != "" {
		return strings.ToUpper(v)
	}

	first := firstLetter(u.Metadata.FirstName)
	last := firstLetter(u.Metadata.LastName)
	if first != "" || last != "" {
		return strings.ToUpper(first + last)
	}

	if e := firstLetter(u.Email); e != "" {
		return strings.ToUpper(e)
	}
	return "?"
}

// DisplayName returns "First Last" when a name is known, else the email.
func (u User) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(u.Metadata.FirstName) + " " + strings.TrimSpace(u.Metadata.LastName))
	if name != "" {
		return name
	}
	return u.Email
}

func (u User) clone() User {
	out := u
	if u.Metadata.Extra != nil {
		out.Metadata.Extra = make(map[string]string, len(u.Metadata.Extra))
		for k, v := range u.Metadata.Extra {
			out.Metadata.Extra[k] = v
		}
	}
	return out
}

func firstLetter(s string) string {
	s = strings.TrimSpace(s)
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return string(r)
		}
		s = s[size:]
	}
	return ""
}
