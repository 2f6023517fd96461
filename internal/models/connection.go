package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Connection (friend) states
const (
	ConnectionPending  = "pending"
	ConnectionAccepted = "accepted"
	ConnectionRejected = "rejected"
)

// Connection links two users. RequestedBy records which side initiated;
// only the other side may accept or reject.
type Connection struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	User1ID     string `gorm:"not null;uniqueIndex:idx_connections_pair;index" json:"user1_id"`
	User2ID     string `gorm:"not null;uniqueIndex:idx_connections_pair;index" json:"user2_id"`
	User1       *User  `gorm:"foreignKey:User1ID" json:"user1,omitempty"`
	User2       *User  `gorm:"foreignKey:User2ID" json:"user2,omitempty"`
	RequestedBy string `gorm:"not null" json:"requested_by"`
	Status      string `gorm:"default:pending;index" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Connection) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// OtherUserID returns the participant that is not userID
func (c *Connection) OtherUserID(userID string) string {
	if c.User1ID == userID {
		return c.User2ID
	}
	return c.User1ID
}

// Involves reports whether userID is one of the two participants
func (c *Connection) Involves(userID string) bool {
	return c.User1ID == userID || c.User2ID == userID
}
