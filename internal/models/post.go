package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Post moderation states
const (
	PostStatusPending  = "pending"
	PostStatusApproved = "approved"
	PostStatusRejected = "rejected"
)

// Post content types
const (
	PostTypeStory     = "story"
	PostTypeRecipe    = "recipe"
	PostTypePhoto     = "photo"
	PostTypeTradition = "tradition"
	PostTypeMusic     = "music"
	PostTypePlace     = "place"
)

// Post represents a city-tagged piece of content awaiting or past moderation
type Post struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID string `gorm:"not null;index:idx_posts_user_created" json:"user_id"`
	User   *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CityID string `gorm:"not null;index" json:"city_id"`
	City   *City  `gorm:"foreignKey:CityID" json:"city,omitempty"`

	Type        string   `gorm:"not null" json:"type"`
	Title       string   `gorm:"not null" json:"title"`
	Description string   `gorm:"type:text" json:"description"`
	Photos      []string `gorm:"serializer:json" json:"photos"`
	Tags        []string `gorm:"serializer:json" json:"tags"`

	// Moderation state
	Status      string     `gorm:"default:pending;index" json:"status"`
	Flagged     bool       `gorm:"default:false;index" json:"flagged"`
	FlagReasons []string   `gorm:"serializer:json" json:"flag_reasons"`
	ModeratorID *string    `json:"moderator_id,omitempty"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`

	// Cached engagement counters
	LikeCount    int `gorm:"default:0" json:"like_count"`
	CommentCount int `gorm:"default:0" json:"comment_count"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// PostLike records one user's like of one post
type PostLike struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	PostID    string    `gorm:"not null;uniqueIndex:idx_post_likes_pair" json:"post_id"`
	UserID    string    `gorm:"not null;uniqueIndex:idx_post_likes_pair" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (l *PostLike) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

// Comment is a comment on a post; ParentCommentID marks a nested reply
type Comment struct {
	ID              string  `gorm:"primaryKey;type:uuid" json:"id"`
	PostID          string  `gorm:"not null;index:idx_comments_post_created" json:"post_id"`
	UserID          string  `gorm:"not null;index" json:"user_id"`
	User            *User   `gorm:"foreignKey:UserID" json:"user,omitempty"`
	ParentCommentID *string `gorm:"index" json:"parent_comment_id,omitempty"`
	Text            string  `gorm:"type:text;not null" json:"text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
