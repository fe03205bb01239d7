package middleware

import (
	"context"
	"net/http"

	goSession "github.com/MrEthical07/goSession"
)

type stateContextKey struct{}

// StateFromContext returns the state a guard evaluated for this request.
func StateFromContext(ctx context.Context) (goSession.State, bool) {
	st, ok := ctx.Value(stateContextKey{}).(goSession.State)
	return st, ok
}

// Guard serves next only when allow accepts the Manager's current state. A nil
// allow accepts every authenticated state.
func Guard(m *goSession.Manager, allow func(goSession.State) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			st := m.State()
			if st.Phase != goSession.PhaseReady {
				w.Header().Set("Retry-After", "1")
				http.Error(w, "session initializing", http.StatusServiceUnavailable)
				return
			}
			if !st.IsAuthenticated() {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if allow != nil && !allow(st) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), stateContextKey{}, st)
			ctx = goSession.WithManager(ctx, m)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
