// Package gormstore implements goSession.ProfileStore on PostgreSQL through
// GORM. Call RunMigrations once before use.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	goSession "github.com/MrEthical07/goSession"
)

// Store is a SQL-backed goSession.ProfileStore.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// New wraps an open connection.
func New(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// ListProfiles returns the user's profiles ordered by position, then id.
func (s *Store) ListProfiles(ctx context.Context, userID string) (goSession.ProfileListing, error) {
	var recs []profileModel
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("position ASC").
		Order("profile_id ASC").
		Find(&recs).Error; err != nil {
		return goSession.ProfileListing{}, fmt.Errorf("list profiles: %w", err)
	}

	var active activeProfileModel
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Take(&active).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return goSession.ProfileListing{}, fmt.Errorf("read active profile: %w", err)
	}

	profiles := make([]goSession.Profile, 0, len(recs))
	for _, rec := range recs {
		profiles = append(profiles, toProfile(rec))
	}
	return goSession.ProfileListing{
		Profiles:                 profiles,
		PreferredActiveProfileID: active.ProfileID,
	}, nil
}

// SetActiveProfile remembers profileID as the user's active profile. Unknown
// ids return an error wrapping goSession.ErrProfileNotFound.
func (s *Store) SetActiveProfile(ctx context.Context, userID, profileID string) (goSession.Profile, error) {
	var rec profileModel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND profile_id = ?", userID, profileID).Take(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("profile %q: %w", profileID, goSession.ErrProfileNotFound)
			}
			return err
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"profile_id", "updated_at"}),
		}).Create(&activeProfileModel{
			UserID:    userID,
			ProfileID: profileID,
			UpdatedAt: s.now(),
		}).Error
	})
	if err != nil {
		if errors.Is(err, goSession.ErrProfileNotFound) {
			return goSession.Profile{}, err
		}
		return goSession.Profile{}, fmt.Errorf("set active profile: %w", err)
	}
	return toProfile(rec), nil
}

// PutProfiles replaces the user's profile set, keeping slice order. The
// remembered active id is dropped when it is not part of the new set.
func (s *Store) PutProfiles(ctx context.Context, userID string, profiles []goSession.Profile) error {
	now := s.now()
	recs := make([]profileModel, 0, len(profiles))
	ids := make([]string, 0, len(profiles))
	seen := make(map[string]struct{}, len(profiles))
	for i, p := range profiles {
		if p.ID == "" {
			return errors.New("profile id required")
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("duplicate profile id %q", p.ID)
		}
		seen[p.ID] = struct{}{}
		recs = append(recs, fromProfile(userID, i, p, now))
		ids = append(ids, p.ID)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&profileModel{}).Error; err != nil {
			return fmt.Errorf("clear profiles: %w", err)
		}
		if len(recs) > 0 {
			if err := tx.Create(&recs).Error; err != nil {
				return fmt.Errorf("insert profiles: %w", err)
			}
		}

		stale := tx.Where("user_id = ?", userID)
		if len(ids) > 0 {
			stale = stale.Where("profile_id NOT IN ?", ids)
		}
		if err := stale.Delete(&activeProfileModel{}).Error; err != nil {
			return fmt.Errorf("clear stale active profile: %w", err)
		}
		return nil
	})
}

// DeleteProfiles removes the given ids and reports how many existed.
func (s *Store) DeleteProfiles(ctx context.Context, userID string, profileIDs ...string) (int, error) {
	if len(profileIDs) == 0 {
		return 0, nil
	}

	var removed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND profile_id IN ?", userID, profileIDs).Delete(&profileModel{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected
		return tx.Where("user_id = ? AND profile_id IN ?", userID, profileIDs).Delete(&activeProfileModel{}).Error
	})
	if err != nil {
		return 0, fmt.Errorf("delete profiles: %w", err)
	}
	return int(removed), nil
}
