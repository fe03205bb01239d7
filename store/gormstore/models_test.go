package gormstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	goSession "github.com/MrEthical07/goSession"
)

func TestProfileMapping(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	p := goSession.Profile{ID: "p1", Name: "Coaching", Type: goSession.ProfileTypeCoach}

	rec := fromProfile("u1", 3, p, now)
	require.Equal(t, "coach", rec.Type)
	require.Equal(t, 3, rec.Position)
	require.Equal(t, now, rec.CreatedAt)
	require.Equal(t, p, toProfile(rec))
}

func TestUnknownTypeMapsToUnknown(t *testing.T) {
	got := toProfile(profileModel{ProfileID: "p", Type: "superuser"})
	require.Equal(t, goSession.ProfileTypeUnknown, got.Type)
}

func TestTableNames(t *testing.T) {
	require.Equal(t, "gs_profiles", profileModel{}.TableName())
	require.Equal(t, "gs_active_profiles", activeProfileModel{}.TableName())
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationFS.ReadDir("migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)
}

func TestStoreSatisfiesInterface(t *testing.T) {
	var _ goSession.ProfileStore = (*Store)(nil)
}
