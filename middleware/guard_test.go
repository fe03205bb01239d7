package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/middleware"
	"github.com/MrEthical07/goSession/password"
	"github.com/MrEthical07/goSession/provider/memory"
	"github.com/MrEthical07/goSession/store/redisstore"
)

func newManager(t *testing.T, typ goSession.ProfileType) *goSession.Manager {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	store := redisstore.New(rdb, "mw")

	pw := password.DefaultConfig()
	pw.Memory = 8 * 1024
	pw.Time = 1
	pw.Parallelism = 1
	provider, err := memory.New(memory.WithPasswordConfig(pw))
	require.NoError(t, err)

	user, err := provider.AddUser("gail@example.com", "correct-horse", goSession.UserMetadata{})
	require.NoError(t, err)
	require.NoError(t, store.PutProfiles(context.Background(), user.ID, []goSession.Profile{
		{ID: "p1", Name: "Only", Type: typ},
	}))

	m, err := goSession.New().WithIdentityProvider(provider).WithProfileStore(store).Build()
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m
}

func serve(h func(http.Handler) http.Handler) (*httptest.ResponseRecorder, *goSession.State) {
	var seen *goSession.State
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if st, ok := middleware.StateFromContext(r.Context()); ok {
			seen = &st
		}
		if _, ok := goSession.FromContext(r.Context()); !ok {
			http.Error(w, "manager missing", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	rec := httptest.NewRecorder()
	h(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	return rec, seen
}

func ready(t *testing.T, m *goSession.Manager, cond func(goSession.State) bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		st := m.State()
		return st.Phase == goSession.PhaseReady && cond(st)
	}, 2*time.Second, 5*time.Millisecond)
}

func TestGuardNilManager(t *testing.T) {
	rec, _ := serve(middleware.RequireSession(nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGuardBeforeActivation(t *testing.T) {
	m := newManager(t, goSession.ProfileTypeMember)

	rec, _ := serve(middleware.RequireSession(m))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestGuardRequiresSession(t *testing.T) {
	m := newManager(t, goSession.ProfileTypeMember)
	require.NoError(t, m.Activate(context.Background()))
	ready(t, m, func(goSession.State) bool { return true })

	rec, seen := serve(middleware.RequireSession(m))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Nil(t, seen)
}

func TestGuardRoles(t *testing.T) {
	m := newManager(t, goSession.ProfileTypeCoach)
	ctx := context.Background()
	require.NoError(t, m.Activate(ctx))
	ready(t, m, func(goSession.State) bool { return true })
	_, err := m.Login(ctx, "gail@example.com", "correct-horse")
	require.NoError(t, err)
	ready(t, m, func(st goSession.State) bool { return st.ActiveProfile != nil })

	rec, seen := serve(middleware.RequireCoach(m))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	require.Equal(t, "p1", seen.ActiveProfile.ID)

	rec, _ = serve(middleware.RequireAdmin(m))
	require.Equal(t, http.StatusForbidden, rec.Code)
	rec, _ = serve(middleware.RequireNavigator(m))
	require.Equal(t, http.StatusForbidden, rec.Code)
	rec, _ = serve(middleware.RequireSession(m))
	require.Equal(t, http.StatusOK, rec.Code)
}
