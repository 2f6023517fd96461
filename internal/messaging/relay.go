package messaging

import (
	"errors"
	"log"

	ws "github.com/culturalx/backend/internal/websocket"
)

// RegisterWSHandlers wires the send_message relay onto the hub. Every
// WebSocket send goes through the same Service.Send path as the HTTP
// endpoint, so blocks and privacy settings apply uniformly.
func (s *Service) RegisterWSHandlers(hub *ws.Hub) {
	hub.RegisterHandler(ws.MessageTypeSendMessage, func(client *ws.Client, msg *ws.Message) error {
		var payload ws.SendMessagePayload
		if err := msg.ParsePayload(&payload); err != nil {
			client.Send(ws.NewReply(msg, ws.MessageTypeMessageError, ws.MessageErrorPayload{
				Code:    "invalid_payload",
				Message: "failed to parse send_message payload",
			}))
			return nil
		}

		saved, err := s.Send(client.UserID, payload.ReceiverID, payload.Content)
		if err != nil {
			client.Send(ws.NewReply(msg, ws.MessageTypeMessageError, ws.MessageErrorPayload{
				Code:    sendErrorCode(err),
				Message: err.Error(),
			}))
			return nil
		}

		// Acknowledge to the sender with the persisted message
		return client.Send(ws.NewReply(msg, ws.MessageTypeMessageSent, ws.MessagePayload{
			MessageID:  saved.ID,
			SenderID:   saved.SenderID,
			ReceiverID: saved.ReceiverID,
			Content:    saved.Content,
			CreatedAt:  saved.CreatedAt.UnixMilli(),
		}))
	})

	log.Println("📨 Registered message relay handler")
}

// sendErrorCode maps send failures to stable wire codes
func sendErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrEmptyContent):
		return "empty_content"
	case errors.Is(err, ErrContentTooLong):
		return "content_too_long"
	case errors.Is(err, ErrSelfMessage):
		return "self_message"
	case errors.Is(err, ErrReceiverNotFound):
		return "receiver_not_found"
	case errors.Is(err, ErrBlocked):
		return "blocked"
	case errors.Is(err, ErrNotFriends):
		return "friends_only"
	default:
		return "send_failed"
	}
}
