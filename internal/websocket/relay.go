package websocket

import (
	"log"
	"time"
)

// RegisterTypingHandlers wires the typing indicator relay. Typing
// events are ephemeral: nothing is persisted, and indicators sent to
// offline users are silently dropped by the hub.
func RegisterTypingHandlers(hub *Hub) {
	hub.RegisterHandler(MessageTypeTyping, func(client *Client, msg *Message) error {
		return relayTyping(hub, client, msg, MessageTypeUserTyping)
	})

	hub.RegisterHandler(MessageTypeStopTyping, func(client *Client, msg *Message) error {
		return relayTyping(hub, client, msg, MessageTypeUserStopTyping)
	})

	log.Println("📨 Registered typing indicator handlers")
}

func relayTyping(hub *Hub, client *Client, msg *Message, outType string) error {
	var payload TypingPayload
	if err := msg.ParsePayload(&payload); err != nil {
		return err
	}
	if payload.ReceiverID == "" {
		client.SendError("invalid_payload", "receiver_id is required")
		return nil
	}

	hub.SendToUser(payload.ReceiverID, NewMessage(outType, TypingPayload{
		UserID:    client.UserID,
		Name:      client.Name,
		Timestamp: time.Now().UnixMilli(),
	}))
	return nil
}

// RegisterPresenceQuery wires the check_user_status request/reply.
// The reply carries the query's ID in reply_to so clients can
// correlate concurrent lookups.
func RegisterPresenceQuery(hub *Hub, presence *PresenceRegistry) {
	hub.RegisterHandler(MessageTypeCheckUserStatus, func(client *Client, msg *Message) error {
		var payload CheckUserStatusPayload
		if err := msg.ParsePayload(&payload); err != nil {
			return err
		}
		if payload.UserID == "" {
			client.SendError("invalid_payload", "user_id is required")
			return nil
		}

		online, lastSeen := presence.Status(payload.UserID)

		reply := UserStatusPayload{
			UserID: payload.UserID,
			Online: online,
		}
		if !lastSeen.IsZero() {
			reply.LastSeen = lastSeen.UnixMilli()
		}

		return client.Send(NewReply(msg, MessageTypeUserStatus, reply))
	})

	log.Println("📨 Registered presence query handler")
}
