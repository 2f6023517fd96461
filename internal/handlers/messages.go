package handlers

import (
	"net/http"

	"github.com/culturalx/backend/internal/messaging"
	"github.com/culturalx/backend/internal/util"
	"github.com/gin-gonic/gin"
)

// SendMessage sends a direct message over HTTP. It runs through the
// same messaging service as the WebSocket relay, so blocks and privacy
// settings apply identically on both paths.
// POST /api/messages
func (h *Handlers) SendMessage(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		util.RespondUnauthorized(c)
		return
	}

	var req struct {
		ReceiverID string `json:"receiver_id" binding:"required"`
		Content    string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	msg, err := h.messaging.Send(userID, req.ReceiverID, req.Content)
	if err != nil {
		util.RespondWithAPIError(c, messaging.APIError(err))
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// GetConversations lists the user's conversations with last message
// and unread counts
// GET /api/messages/conversations
func (h *Handlers) GetConversations(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		util.RespondUnauthorized(c)
		return
	}

	conversations, err := h.messaging.Conversations(userID)
	if err != nil {
		util.RespondInternalError(c, "failed to load conversations")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"conversations": conversations,
		"count":         len(conversations),
	})
}

// GetConversation returns the message history with another user,
// newest first, cursor-paginated by message ID. Fetching a page marks
// the other side's messages as read.
// GET /api/messages/:userId?cursor=...&limit=...
func (h *Handlers) GetConversation(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		util.RespondUnauthorized(c)
		return
	}

	otherUserID := c.Param("userId")
	cursor := util.ParseCursor(c)
	limit := util.ParseLimit(c, 50, 100)

	messages, hasMore, err := h.messaging.ConversationHistory(userID, otherUserID, cursor, limit)
	if err != nil {
		util.RespondInternalError(c, "failed to load messages")
		return
	}

	var nextCursor uint64
	if hasMore && len(messages) > 0 {
		nextCursor = messages[len(messages)-1].ID
	}

	c.JSON(http.StatusOK, gin.H{
		"messages":    messages,
		"has_more":    hasMore,
		"next_cursor": nextCursor,
	})
}

// GetUnreadMessageCount returns the user's total unread message count
// GET /api/messages/unread/count
func (h *Handlers) GetUnreadMessageCount(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		util.RespondUnauthorized(c)
		return
	}

	count, err := h.messaging.UnreadCount(userID)
	if err != nil {
		util.RespondInternalError(c, "failed to count unread messages")
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": count})
}
