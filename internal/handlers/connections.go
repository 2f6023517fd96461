package handlers

import (
	"errors"
	"net/http"

	"github.com/culturalx/backend/internal/logger"
	"github.com/culturalx/backend/internal/models"
	"github.com/culturalx/backend/internal/notify"
	"github.com/culturalx/backend/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SendConnectionRequest sends a friend request
// POST /api/connections/request
func (h *Handlers) SendConnectionRequest(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		util.RespondUnauthorized(c)
		return
	}

	var req struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	if req.UserID == user.ID {
		util.RespondBadRequest(c, "cannot connect with yourself")
		return
	}

	var target models.User
	if err := h.db.First(&target, "id = ?", req.UserID).Error; err != nil {
		util.RespondNotFound(c, "user")
		return
	}

	// Blocked pairs cannot connect
	var blockCount int64
	h.db.Model(&models.UserBlock{}).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)",
			user.ID, req.UserID, req.UserID, user.ID).
		Count(&blockCount)
	if blockCount > 0 {
		util.RespondForbidden(c, "cannot connect with this user")
		return
	}

	var existing models.Connection
	err := h.db.Where("(user1_id = ? AND user2_id = ?) OR (user1_id = ? AND user2_id = ?)",
		user.ID, req.UserID, req.UserID, user.ID).
		First(&existing).Error
	if err == nil {
		util.RespondConflict(c, "connection")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		util.RespondInternalError(c, "failed to check existing connection")
		return
	}

	conn := models.Connection{
		User1ID:     user.ID,
		User2ID:     req.UserID,
		RequestedBy: user.ID,
		Status:      models.ConnectionPending,
	}
	if err := h.db.Create(&conn).Error; err != nil {
		util.RespondInternalError(c, "failed to create connection request")
		return
	}

	if _, err := h.notify.Dispatch(notify.Event{
		UserID:     req.UserID,
		Type:       models.NotificationFriendRequest,
		RelatedID:  conn.ID,
		FromUserID: user.ID,
		Content:    notify.FriendRequestContent(user.Name),
	}); err != nil {
		logger.Log.Warn("Failed to dispatch friend request notification", zap.Error(err))
	}

	c.JSON(http.StatusCreated, gin.H{"connection": conn})
}

// AcceptConnectionRequest accepts an incoming friend request
// PUT /api/connections/:id/accept
func (h *Handlers) AcceptConnectionRequest(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		util.RespondUnauthorized(c)
		return
	}

	var conn models.Connection
	if err := h.db.First(&conn, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "connection request")
		return
	}

	// Only the recipient can accept, and only pending requests
	if !conn.Involves(user.ID) || conn.RequestedBy == user.ID {
		util.RespondForbidden(c, "not the recipient of this request")
		return
	}
	if conn.Status != models.ConnectionPending {
		util.RespondBadRequest(c, "request is not pending")
		return
	}

	if err := h.db.Model(&conn).Update("status", models.ConnectionAccepted).Error; err != nil {
		util.RespondInternalError(c, "failed to accept request")
		return
	}

	if _, err := h.notify.Dispatch(notify.Event{
		UserID:     conn.RequestedBy,
		Type:       models.NotificationFriendAccepted,
		RelatedID:  conn.ID,
		FromUserID: user.ID,
		Content:    notify.FriendAcceptedContent(user.Name),
	}); err != nil {
		logger.Log.Warn("Failed to dispatch friend accepted notification", zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{"connection": conn})
}

// RejectConnectionRequest declines an incoming friend request
// PUT /api/connections/:id/reject
func (h *Handlers) RejectConnectionRequest(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		util.RespondUnauthorized(c)
		return
	}

	var conn models.Connection
	if err := h.db.First(&conn, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "connection request")
		return
	}

	if !conn.Involves(user.ID) || conn.RequestedBy == user.ID {
		util.RespondForbidden(c, "not the recipient of this request")
		return
	}
	if conn.Status != models.ConnectionPending {
		util.RespondBadRequest(c, "request is not pending")
		return
	}

	if err := h.db.Model(&conn).Update("status", models.ConnectionRejected).Error; err != nil {
		util.RespondInternalError(c, "failed to reject request")
		return
	}

	c.JSON(http.StatusOK, gin.H{"connection": conn})
}

// GetConnections lists the user's accepted connections
// GET /api/connections
func (h *Handlers) GetConnections(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		util.RespondUnauthorized(c)
		return
	}

	var connections []models.Connection
	err := h.db.Preload("User1").Preload("User2").
		Where("status = ?", models.ConnectionAccepted).
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Find(&connections).Error
	if err != nil {
		util.RespondInternalError(c, "failed to load connections")
		return
	}

	friends := make([]models.User, 0, len(connections))
	for _, conn := range connections {
		if conn.User1ID == userID {
			friends = append(friends, *conn.User2)
		} else {
			friends = append(friends, *conn.User1)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"friends": friends,
		"count":   len(friends),
	})
}

// GetPendingRequests lists incoming pending friend requests
// GET /api/connections/pending
func (h *Handlers) GetPendingRequests(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		util.RespondUnauthorized(c)
		return
	}

	var requests []models.Connection
	err := h.db.Preload("User1").Preload("User2").
		Where("status = ?", models.ConnectionPending).
		Where("(user1_id = ? OR user2_id = ?) AND requested_by <> ?", userID, userID, userID).
		Find(&requests).Error
	if err != nil {
		util.RespondInternalError(c, "failed to load pending requests")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"requests": requests,
		"count":    len(requests),
	})
}

// RemoveConnection removes an accepted connection
// DELETE /api/connections/:id
func (h *Handlers) RemoveConnection(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		util.RespondUnauthorized(c)
		return
	}

	var conn models.Connection
	if err := h.db.First(&conn, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "connection")
		return
	}

	if !conn.Involves(userID) {
		util.RespondForbidden(c, "not part of this connection")
		return
	}

	if err := h.db.Delete(&conn).Error; err != nil {
		util.RespondInternalError(c, "failed to remove connection")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
