package models

import "time"

// MaxMessageLength bounds direct-message content
const MaxMessageLength = 2000

// Message is a durable direct message between two users.
//
// The primary key is a database-assigned auto-increment, so message identities
// are monotonic and sortable; conversation history paginates on `id <cursor`
// rather than offsets. Messages are mutated only to flip the read flag and are
// never deleted here.
type Message struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	SenderID   string `gorm:"not null;index:idx_messages_pair" json:"sender_id"`
	ReceiverID string `gorm:"not null;index:idx_messages_pair;index:idx_messages_unread" json:"receiver_id"`
	Content    string `gorm:"type:text;not null" json:"content"`
	Read       bool   `gorm:"default:false;index:idx_messages_unread" json:"read"`

	CreatedAt time.Time `json:"created_at"`
}
