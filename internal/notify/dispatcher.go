// Package notify is the single choke point for creating and delivering
// notifications. Everything that notifies a user goes through Dispatch.
package notify

import (
	"fmt"

	"github.com/culturalx/backend/internal/logger"
	"github.com/culturalx/backend/internal/metrics"
	"github.com/culturalx/backend/internal/models"
	ws "github.com/culturalx/backend/internal/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Pusher delivers real-time events to connected users
type Pusher interface {
	SendToUser(userID string, message *ws.Message)
	IsUserOnline(userID string) bool
}

// Dispatcher persists notifications and pushes them to live connections
type Dispatcher struct {
	db     *gorm.DB
	pusher Pusher
}

// NewDispatcher creates a notification dispatcher
func NewDispatcher(db *gorm.DB, pusher Pusher) *Dispatcher {
	return &Dispatcher{db: db, pusher: pusher}
}

// Event describes a notification to dispatch
type Event struct {
	// UserID is the target of the notification
	UserID string
	// Type is one of the models.Notification* constants
	Type models.NotificationType
	// RelatedID points at the entity the notification is about
	RelatedID string
	// FromUserID is the acting user, when there is one
	FromUserID string
	// Content is the human-readable notification text
	Content string
}

// Dispatch persists a notification and pushes it to the target's live
// connections. Events where the actor is the target are dropped: users
// never get notified about their own actions. Offline targets simply
// find the notification on their next fetch.
func (d *Dispatcher) Dispatch(event Event) (*models.Notification, error) {
	if event.UserID == "" {
		return nil, fmt.Errorf("notification target is required")
	}
	if !event.Type.Valid() {
		return nil, fmt.Errorf("unknown notification type: %s", event.Type)
	}

	// No self-notifications
	if event.FromUserID != "" && event.FromUserID == event.UserID {
		return nil, nil
	}

	notification := models.Notification{
		UserID:    event.UserID,
		Type:      event.Type,
		RelatedID: event.RelatedID,
		Content:   event.Content,
	}
	if event.FromUserID != "" {
		notification.FromUserID = &event.FromUserID
	}

	if err := d.db.Create(&notification).Error; err != nil {
		return nil, fmt.Errorf("failed to save notification: %w", err)
	}

	delivery := d.push(&notification)
	metrics.Get().NotificationsDispatchTotal.WithLabelValues(string(event.Type), delivery).Inc()

	logger.Log.Debug("Notification dispatched",
		zap.String("user_id", event.UserID),
		zap.String("type", string(event.Type)),
		zap.String("delivery", delivery))

	return &notification, nil
}

// push sends the new_notification event; returns "online" or "offline"
func (d *Dispatcher) push(n *models.Notification) string {
	if d.pusher == nil || !d.pusher.IsUserOnline(n.UserID) {
		return "offline"
	}

	payload := ws.NotificationPayload{
		ID:        n.ID,
		Type:      string(n.Type),
		Content:   n.Content,
		RelatedID: n.RelatedID,
		Read:      n.Read,
		CreatedAt: n.CreatedAt.UnixMilli(),
	}
	if n.FromUserID != nil {
		payload.FromUserID = *n.FromUserID
	}

	d.pusher.SendToUser(n.UserID, ws.NewMessage(ws.MessageTypeNewNotification, payload))
	return "online"
}

// UnreadCount returns the user's unread notification count. Satisfies
// websocket.UnreadCounter so the count can be pushed on connect.
func (d *Dispatcher) UnreadCount(userID string) (int64, error) {
	var count int64
	err := d.db.Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// List returns a page of the user's notifications, newest first
func (d *Dispatcher) List(userID string, page, limit int) ([]models.Notification, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	var total int64
	if err := d.db.Model(&models.Notification{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var notifications []models.Notification
	err := d.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&notifications).Error
	return notifications, total, err
}

// MarkRead marks a single notification as read. Scoped to the owner.
func (d *Dispatcher) MarkRead(userID, notificationID string) error {
	result := d.db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Update("read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkAllRead marks all of the user's notifications as read
func (d *Dispatcher) MarkAllRead(userID string) (int64, error) {
	result := d.db.Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true)
	return result.RowsAffected, result.Error
}

// Delete removes a notification. Scoped to the owner.
func (d *Dispatcher) Delete(userID, notificationID string) error {
	result := d.db.Where("id = ? AND user_id = ?", notificationID, userID).
		Delete(&models.Notification{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
