package gormstore

import (
	"time"

	goSession "github.com/MrEthical07/goSession"
)

type profileModel struct {
	UserID    string    `gorm:"column:user_id;primaryKey"`
	ProfileID string    `gorm:"column:profile_id;primaryKey"`
	Name      string    `gorm:"column:name"`
	Type      string    `gorm:"column:type"`
	Position  int       `gorm:"column:position"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (profileModel) TableName() string { return "gs_profiles" }

type activeProfileModel struct {
	UserID    string    `gorm:"column:user_id;primaryKey"`
	ProfileID string    `gorm:"column:profile_id"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (activeProfileModel) TableName() string { return "gs_active_profiles" }

func toProfile(rec profileModel) goSession.Profile {
	return goSession.Profile{
		ID:   rec.ProfileID,
		Name: rec.Name,
		Type: goSession.ParseProfileType(rec.Type),
	}
}

func fromProfile(userID string, position int, p goSession.Profile, now time.Time) profileModel {
	return profileModel{
		UserID:    userID,
		ProfileID: p.ID,
		Name:      p.Name,
		Type:      p.Type.String(),
		Position:  position,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
