// Package messaging implements direct messages: persistence, the
// shared pre-send check, cursor pagination, and real-time delivery.
package messaging

import (
	"errors"
	"fmt"
	"strings"

	apierrors "github.com/culturalx/backend/internal/errors"
	"github.com/culturalx/backend/internal/logger"
	"github.com/culturalx/backend/internal/metrics"
	"github.com/culturalx/backend/internal/models"
	ws "github.com/culturalx/backend/internal/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Send failures, mapped to API error codes by the HTTP layer and to
// message_error events by the WebSocket relay.
var (
	ErrEmptyContent     = errors.New("message content is empty")
	ErrContentTooLong   = fmt.Errorf("message content exceeds %d characters", models.MaxMessageLength)
	ErrSelfMessage      = errors.New("cannot message yourself")
	ErrReceiverNotFound = errors.New("receiver not found")
	ErrBlocked          = errors.New("messaging is not available between these users")
	ErrNotFriends       = errors.New("receiver only accepts messages from friends")
)

// Pusher delivers real-time events to connected users. *websocket.Hub
// satisfies it; tests substitute a recorder.
type Pusher interface {
	SendToUser(userID string, message *ws.Message)
	IsUserOnline(userID string) bool
}

// Service handles direct message operations
type Service struct {
	db     *gorm.DB
	pusher Pusher
}

// NewService creates a new messaging service
func NewService(db *gorm.DB, pusher Pusher) *Service {
	return &Service{db: db, pusher: pusher}
}

// Send validates, persists, and then delivers a direct message. The
// same checks run for every transport: content bounds, receiver
// existence, blocks in either direction, and the receiver's messaging
// privacy. The message is durably stored before any push goes out.
func (s *Service) Send(senderID, receiverID, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if len(content) > models.MaxMessageLength {
		return nil, ErrContentTooLong
	}
	if senderID == receiverID {
		return nil, ErrSelfMessage
	}

	var receiver models.User
	if err := s.db.First(&receiver, "id = ?", receiverID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReceiverNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if err := s.checkCanMessage(senderID, &receiver); err != nil {
		return nil, err
	}

	msg := models.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
	}
	if err := s.db.Create(&msg).Error; err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}

	// Persist-then-push: delivery happens only after the row exists,
	// so a crash can lose a push but never a message.
	s.pushToReceiver(&msg)

	metrics.Get().MessagesSentTotal.WithLabelValues("service").Inc()

	return &msg, nil
}

// checkCanMessage enforces blocks (either direction) and the
// receiver's messaging privacy setting.
func (s *Service) checkCanMessage(senderID string, receiver *models.User) error {
	var blockCount int64
	err := s.db.Model(&models.UserBlock{}).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)",
			senderID, receiver.ID, receiver.ID, senderID).
		Count(&blockCount).Error
	if err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	if blockCount > 0 {
		return ErrBlocked
	}

	if receiver.MessagingPrivacy == models.MessagingFriendsOnly {
		var connCount int64
		err := s.db.Model(&models.Connection{}).
			Where("status = ?", models.ConnectionAccepted).
			Where("(user1_id = ? AND user2_id = ?) OR (user1_id = ? AND user2_id = ?)",
				senderID, receiver.ID, receiver.ID, senderID).
			Count(&connCount).Error
		if err != nil {
			return fmt.Errorf("database error: %w", err)
		}
		if connCount == 0 {
			return ErrNotFriends
		}
	}

	return nil
}

// pushToReceiver delivers a receive_message event to the receiver's
// live connections, if any.
func (s *Service) pushToReceiver(msg *models.Message) {
	if s.pusher == nil {
		return
	}

	var sender models.User
	senderName := ""
	if err := s.db.Select("name").First(&sender, "id = ?", msg.SenderID).Error; err == nil {
		senderName = sender.Name
	}

	delivery := "offline"
	if s.pusher.IsUserOnline(msg.ReceiverID) {
		delivery = "online"
	}
	metrics.Get().WSMessagesRelayed.WithLabelValues(delivery).Inc()

	s.pusher.SendToUser(msg.ReceiverID, ws.NewMessage(ws.MessageTypeReceiveMessage, ws.MessagePayload{
		MessageID:  msg.ID,
		SenderID:   msg.SenderID,
		SenderName: senderName,
		ReceiverID: msg.ReceiverID,
		Content:    msg.Content,
		CreatedAt:  msg.CreatedAt.UnixMilli(),
	}))
}

// ConversationHistory returns messages between two users, newest
// first, using the message ID as cursor. It returns up to limit
// messages plus a hasMore flag, and marks the returned messages from
// the other user as read.
func (s *Service) ConversationHistory(userID, otherUserID string, cursor uint64, limit int) ([]models.Message, bool, error) {
	if limit < 1 {
		limit = 50
	}

	query := s.db.
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userID, otherUserID, otherUserID, userID)
	if cursor > 0 {
		query = query.Where("id < ?", cursor)
	}

	var messages []models.Message
	// Fetch one extra row to know whether more pages exist
	if err := query.Order("id DESC").Limit(limit + 1).Find(&messages).Error; err != nil {
		return nil, false, fmt.Errorf("database error: %w", err)
	}

	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[:limit]
	}

	// Viewing the conversation marks the other side's messages read
	err := s.db.Model(&models.Message{}).
		Where("sender_id = ? AND receiver_id = ? AND read = ?", otherUserID, userID, false).
		Update("read", true).Error
	if err != nil {
		logger.Log.Warn("Failed to mark messages read",
			zap.String("user_id", userID),
			zap.Error(err))
	}

	return messages, hasMore, nil
}

// ConversationSummary is one row in the conversation list
type ConversationSummary struct {
	OtherUser   models.User    `json:"other_user"`
	LastMessage models.Message `json:"last_message"`
	UnreadCount int64          `json:"unread_count"`
}

// Conversations returns the user's conversations, one per counterpart,
// ordered by recency of the last message.
func (s *Service) Conversations(userID string) ([]ConversationSummary, error) {
	// The highest message ID per counterpart identifies the latest
	// message in each conversation.
	var lastMessages []models.Message
	err := s.db.
		Where("id IN (SELECT MAX(id) FROM messages WHERE sender_id = ? OR receiver_id = ? GROUP BY CASE WHEN sender_id = ? THEN receiver_id ELSE sender_id END)",
			userID, userID, userID).
		Order("id DESC").
		Find(&lastMessages).Error
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	summaries := make([]ConversationSummary, 0, len(lastMessages))
	for _, msg := range lastMessages {
		otherID := msg.SenderID
		if otherID == userID {
			otherID = msg.ReceiverID
		}

		var other models.User
		if err := s.db.First(&other, "id = ?", otherID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, fmt.Errorf("database error: %w", err)
		}

		var unread int64
		err := s.db.Model(&models.Message{}).
			Where("sender_id = ? AND receiver_id = ? AND read = ?", otherID, userID, false).
			Count(&unread).Error
		if err != nil {
			return nil, fmt.Errorf("database error: %w", err)
		}

		summaries = append(summaries, ConversationSummary{
			OtherUser:   other,
			LastMessage: msg,
			UnreadCount: unread,
		})
	}

	return summaries, nil
}

// UnreadCount returns the user's total unread message count
func (s *Service) UnreadCount(userID string) (int64, error) {
	var count int64
	err := s.db.Model(&models.Message{}).
		Where("receiver_id = ? AND read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("database error: %w", err)
	}
	return count, nil
}

// APIError maps a send failure to its HTTP representation
func APIError(err error) *apierrors.APIError {
	switch {
	case errors.Is(err, ErrEmptyContent), errors.Is(err, ErrContentTooLong), errors.Is(err, ErrSelfMessage):
		return apierrors.BadRequest(err.Error())
	case errors.Is(err, ErrReceiverNotFound):
		return apierrors.NotFound("receiver")
	case errors.Is(err, ErrBlocked), errors.Is(err, ErrNotFriends):
		return apierrors.Forbidden(err.Error())
	default:
		return apierrors.InternalError("failed to send message")
	}
}
