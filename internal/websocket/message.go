package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// FlexibleTime handles both Unix millisecond timestamps and RFC3339 strings
type FlexibleTime struct {
	time.Time
}

// UnmarshalJSON implements custom unmarshaling for timestamps
func (ft *FlexibleTime) UnmarshalJSON(b []byte) error {
	// Try to unmarshal as Unix milliseconds (integer)
	var ms int64
	if err := json.Unmarshal(b, &ms); err == nil {
		ft.Time = time.UnixMilli(ms)
		return nil
	}

	// Fall back to RFC3339 string format
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return fmt.Errorf("timestamp must be Unix milliseconds (integer) or RFC3339 string")
	}

	t, err := time.Parse(time.RFC3339, str)
	if err != nil {
		return err
	}
	ft.Time = t
	return nil
}

// MarshalJSON implements custom marshaling (always output as RFC3339)
func (ft FlexibleTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(ft.Time)
}

// Message types for WebSocket communication
const (
	// System messages
	MessageTypeSystem = "system"
	MessageTypePing   = "ping"
	MessageTypePong   = "pong"
	MessageTypeError  = "error"
	MessageTypeAuth   = "auth"

	// Lifecycle messages
	MessageTypeConnected           = "connected"
	MessageTypeUnreadNotifications = "unread_notifications"

	// Presence messages
	MessageTypeUserOnline      = "user_online"
	MessageTypeUserOffline     = "user_offline"
	MessageTypeCheckUserStatus = "check_user_status"
	MessageTypeUserStatus      = "user_status"

	// Direct message relay
	MessageTypeSendMessage    = "send_message"
	MessageTypeReceiveMessage = "receive_message"
	MessageTypeMessageSent    = "message_sent"
	MessageTypeMessageError   = "message_error"

	// Typing indicators
	MessageTypeTyping         = "typing"
	MessageTypeStopTyping     = "stop_typing"
	MessageTypeUserTyping     = "user_typing"
	MessageTypeUserStopTyping = "user_stop_typing"

	// Notification messages
	MessageTypeNewNotification = "new_notification"
)

// Message represents a WebSocket message
type Message struct {
	// Type identifies the message type for routing
	Type string `json:"type"`

	// Payload contains the message-specific data
	Payload interface{} `json:"payload,omitempty"`

	// ID is a unique message identifier for acknowledgment
	ID string `json:"id,omitempty"`

	// ReplyTo references the original message ID for responses
	ReplyTo string `json:"reply_to,omitempty"`

	// Timestamp when the message was created (accepts Unix ms or RFC3339)
	Timestamp FlexibleTime `json:"timestamp"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType string, payload interface{}) *Message {
	return &Message{
		Type:      msgType,
		Payload:   payload,
		Timestamp: FlexibleTime{Time: time.Now().UTC()},
	}
}

// NewReply creates a reply message correlated to an original message
func NewReply(original *Message, msgType string, payload interface{}) *Message {
	return &Message{
		Type:      msgType,
		ReplyTo:   original.ID,
		Payload:   payload,
		Timestamp: FlexibleTime{Time: time.Now().UTC()},
	}
}

// NewErrorMessage creates an error message
func NewErrorMessage(code string, message string) *Message {
	return &Message{
		Type: MessageTypeError,
		Payload: ErrorPayload{
			Code:    code,
			Message: message,
		},
		Timestamp: FlexibleTime{Time: time.Now().UTC()},
	}
}

// ParsePayload unmarshals the payload into a specific type
func (m *Message) ParsePayload(target interface{}) error {
	if m.Payload == nil {
		return nil
	}

	// Re-marshal and unmarshal to properly type the payload
	data, err := json.Marshal(m.Payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}

// ErrorPayload represents an error message payload
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PingPayload represents a ping message payload
type PingPayload struct {
	ClientTime int64 `json:"client_time"`
}

// PongPayload represents a pong message payload
type PongPayload struct {
	ClientTime int64 `json:"client_time"`
	ServerTime int64 `json:"server_time"`
	Latency    int64 `json:"latency_ms"`
}

// AuthPayload represents authentication message payload
type AuthPayload struct {
	Token  string `json:"token,omitempty"`
	UserID string `json:"user_id,omitempty"`
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

// SystemPayload represents system event payloads
type SystemPayload struct {
	Event   string                 `json:"event"`
	Message string                 `json:"message,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// PresencePayload announces a user going online or offline
type PresencePayload struct {
	UserID    string `json:"user_id"`
	Name      string `json:"name,omitempty"`
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
}

// UserStatusPayload answers a check_user_status query
type UserStatusPayload struct {
	UserID   string `json:"user_id"`
	Online   bool   `json:"online"`
	LastSeen int64  `json:"last_seen,omitempty"`
}

// CheckUserStatusPayload is a client query for another user's presence
type CheckUserStatusPayload struct {
	UserID string `json:"user_id"`
}

// SendMessagePayload is a client request to relay a direct message
type SendMessagePayload struct {
	ReceiverID string `json:"receiver_id"`
	Content    string `json:"content"`
}

// MessagePayload carries a persisted direct message over the wire
type MessagePayload struct {
	MessageID  uint64 `json:"message_id"`
	SenderID   string `json:"sender_id"`
	SenderName string `json:"sender_name,omitempty"`
	ReceiverID string `json:"receiver_id"`
	Content    string `json:"content"`
	CreatedAt  int64  `json:"created_at"`
}

// MessageErrorPayload reports a failed send_message request
type MessageErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// TypingPayload carries typing indicator events in both directions:
// clients send receiver_id, the relay fills in the sender
type TypingPayload struct {
	ReceiverID string `json:"receiver_id,omitempty"`
	UserID     string `json:"user_id,omitempty"`
	Name       string `json:"name,omitempty"`
	Timestamp  int64  `json:"timestamp,omitempty"`
}

// NotificationPayload represents a pushed notification
type NotificationPayload struct {
	ID         string `json:"id"`
	Type       string `json:"notification_type"`
	Content    string `json:"content"`
	RelatedID  string `json:"related_id,omitempty"`
	FromUserID string `json:"from_user_id,omitempty"`
	Read       bool   `json:"read"`
	CreatedAt  int64  `json:"created_at"`
}

// UnreadCountPayload pushes the unread notification count on connect
type UnreadCountPayload struct {
	Count int64 `json:"count"`
}
