package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User roles
const (
	RoleUser      = "user"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// Messaging privacy settings
const (
	MessagingEveryone    = "everyone"
	MessagingFriendsOnly = "friendsOnly"
)

// User represents a CulturalX member account
type User struct {
	ID           string  `gorm:"primaryKey;type:uuid" json:"id"`
	Name         string  `gorm:"not null" json:"name"`
	Email        string  `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash *string `gorm:"type:text" json:"-"`

	// Profile data
	Bio            string   `gorm:"type:text" json:"bio"`
	Country        string   `json:"country"`
	City           string   `json:"city"`
	Languages      []string `gorm:"serializer:json" json:"languages"`
	Interests      []string `gorm:"serializer:json" json:"interests"`
	ProfilePicture string   `json:"profile_picture"`

	// Authorization
	Role string `gorm:"default:user;index" json:"role"`

	// Privacy settings
	MessagingPrivacy string `gorm:"default:everyone" json:"messaging_privacy"`
	ShowOnlineStatus bool   `gorm:"default:true" json:"show_online_status"`

	// Presence mirror (cached from the in-memory registry, not source of truth)
	IsOnline     bool       `gorm:"default:false" json:"is_online"`
	LastActiveAt *time.Time `json:"last_active_at"`

	// GORM fields
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate assigns a UUID primary key when none is set
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// UserBlock records that blocker does not want contact from blocked
type UserBlock struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	BlockerID string    `gorm:"not null;uniqueIndex:idx_user_blocks_pair;index" json:"blocker_id"`
	BlockedID string    `gorm:"not null;uniqueIndex:idx_user_blocks_pair;index" json:"blocked_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (b *UserBlock) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// SavedPost is a user's bookmark of a post
type SavedPost struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string    `gorm:"not null;uniqueIndex:idx_saved_posts_pair" json:"user_id"`
	PostID    string    `gorm:"not null;uniqueIndex:idx_saved_posts_pair" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *SavedPost) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
