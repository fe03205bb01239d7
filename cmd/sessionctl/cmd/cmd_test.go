package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/store/redisstore"
)

func run(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(append([]string{"--env-file", t.TempDir() + "/missing.env"}, args...))
	return rootCmd.ExecuteContext(context.Background())
}

func TestParseProfileSpecs(t *testing.T) {
	got, err := parseProfileSpecs([]string{"p1:Personal:member", "p2:Ops Team:ADMIN"})
	require.NoError(t, err)
	require.Equal(t, []goSession.Profile{
		{ID: "p1", Name: "Personal", Type: goSession.ProfileTypeMember},
		{ID: "p2", Name: "Ops Team", Type: goSession.ProfileTypeAdmin},
	}, got)

	_, err = parseProfileSpecs([]string{"p1:Personal"})
	require.Error(t, err)
	_, err = parseProfileSpecs([]string{"p1:Personal:wizard"})
	require.Error(t, err)
	_, err = parseProfileSpecs([]string{":Personal:member"})
	require.Error(t, err)
}

func TestFormatRoles(t *testing.T) {
	require.Equal(t, "-", formatRoles(goSession.RoleFlags{}))
	require.Equal(t, "coach", formatRoles(goSession.RolesFor(goSession.ProfileTypeCoach)))
}

func TestProfilesPutThenActivate(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("SESSIONCTL_REDIS_ADDR", mr.Addr())
	t.Setenv("SESSIONCTL_REDIS_PREFIX", "cli")

	require.NoError(t, run(t, "profiles", "put", "u1", "--profile", "p1:Personal:member", "--profile", "p2:Coaching:coach"))
	require.NoError(t, run(t, "profiles", "activate", "u1", "p2"))
	require.NoError(t, run(t, "profiles", "list", "u1"))
	require.Error(t, run(t, "profiles", "activate", "u1", "p9"))

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	listing, err := redisstore.New(rdb, "cli").ListProfiles(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, listing.Profiles, 2)
	require.Equal(t, "p2", listing.PreferredActiveProfileID)
}

func TestProfilesRequireStore(t *testing.T) {
	t.Setenv("SESSIONCTL_REDIS_ADDR", "")
	t.Setenv("SESSIONCTL_DATABASE_URL", "")
	require.ErrorIs(t, run(t, "profiles", "list", "u1"), errNoStore)
}

func TestConfigFromEnvironment(t *testing.T) {
	t.Setenv("SESSIONCTL_AUDIT", "true")
	t.Setenv("SESSIONCTL_AUDIT_BUFFER", "4")
	t.Setenv("SESSIONCTL_RELOAD_ON_USER_CHANGE", "false")
	require.NoError(t, run(t, "config", "lint"))

	cfg := configFromSettings()
	require.True(t, cfg.Audit.Enabled)
	require.Equal(t, 4, cfg.Audit.BufferSize)
	require.Equal(t, []string{"audit_buffer_small", "stale_profiles_on_user_change"}, cfg.Lint().Codes())
}

func TestDemoRunsAgainstEphemeralStore(t *testing.T) {
	t.Setenv("SESSIONCTL_REDIS_ADDR", "")
	t.Setenv("SESSIONCTL_DATABASE_URL", "")
	demoTimeout = 10 * time.Second
	require.NoError(t, run(t, "demo"))
}
