package middleware

import (
	"net/http"

	goSession "github.com/MrEthical07/goSession"
)

func RequireSession(m *goSession.Manager) func(http.Handler) http.Handler {
	return Guard(m, nil)
}

// RequireAdmin passes only while the active profile is an admin profile.
func RequireAdmin(m *goSession.Manager) func(http.Handler) http.Handler {
	return Guard(m, func(st goSession.State) bool { return st.Roles().Admin })
}

func RequireCoach(m *goSession.Manager) func(http.Handler) http.Handler {
	return Guard(m, func(st goSession.State) bool { return st.Roles().Coach })
}

func RequireNavigator(m *goSession.Manager) func(http.Handler) http.Handler {
	return Guard(m, func(st goSession.State) bool { return st.Roles().Navigator })
}
