package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationType is the closed set of events that produce notifications
type NotificationType string

const (
	NotificationFriendRequest  NotificationType = "friendRequest"
	NotificationFriendAccepted NotificationType = "friendAccepted"
	NotificationMessage        NotificationType = "message"
	NotificationPostApproved   NotificationType = "postApproved"
	NotificationPostRejected   NotificationType = "postRejected"
	NotificationPostLiked      NotificationType = "postLiked"
	NotificationPostCommented  NotificationType = "postCommented"
	NotificationCommentReplied NotificationType = "commentReplied"
)

// Valid reports whether t is a member of the notification type enumeration
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationFriendRequest, NotificationFriendAccepted,
		NotificationMessage, NotificationPostApproved, NotificationPostRejected,
		NotificationPostLiked, NotificationPostCommented, NotificationCommentReplied:
		return true
	}
	return false
}

// Notification is a durable per-user event record. Created only through the
// notify dispatcher; deletable by its target user.
type Notification struct {
	ID         string           `gorm:"primaryKey;type:uuid" json:"id"`
	UserID     string           `gorm:"not null;index:idx_notifications_user_read" json:"user_id"`
	Type       NotificationType `gorm:"not null" json:"type"`
	RelatedID  string           `gorm:"not null" json:"related_id"`
	FromUserID *string          `json:"from_user_id,omitempty"`
	Content    string           `gorm:"type:text;not null" json:"content"`
	Read       bool             `gorm:"default:false;index:idx_notifications_user_read" json:"read"`

	CreatedAt time.Time `json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}
