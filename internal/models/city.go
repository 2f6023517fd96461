package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// City is a geographic anchor for posts. Seed cities ship with the app;
// user-created cities appear the first time someone posts to them.
type City struct {
	ID      string `gorm:"primaryKey;type:uuid" json:"id"`
	Name    string `gorm:"not null;index:idx_cities_name_country" json:"name"`
	Country string `gorm:"not null;index:idx_cities_name_country" json:"country"`

	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	IsSeed       bool `gorm:"default:false" json:"is_seed"`
	ContentCount int  `gorm:"default:0" json:"content_count"`
	HasContent   bool `gorm:"default:false" json:"has_content"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *City) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// CityModerator assigns a moderator to a city; moderators only review posts
// from their assigned cities, admins review everything.
type CityModerator struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	CityID    string    `gorm:"not null;uniqueIndex:idx_city_moderators_pair" json:"city_id"`
	UserID    string    `gorm:"not null;uniqueIndex:idx_city_moderators_pair;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (m *CityModerator) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
