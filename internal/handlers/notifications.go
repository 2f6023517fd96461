package handlers

import (
	"errors"
	"net/http"

	"github.com/culturalx/backend/internal/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// GetNotifications gets the user's notifications, newest first
// GET /api/notifications?page=...&limit=...
func (h *Handlers) GetNotifications(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		util.RespondUnauthorized(c)
		return
	}

	page, limit := util.ParsePage(c, 20, 100)

	notifications, total, err := h.notify.List(userID, page, limit)
	if err != nil {
		util.RespondInternalError(c, "failed to load notifications")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": notifications,
		"meta": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// GetNotificationCount gets the unread count for badge display
// GET /api/notifications/unread/count
func (h *Handlers) GetNotificationCount(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		util.RespondUnauthorized(c)
		return
	}

	count, err := h.notify.UnreadCount(userID)
	if err != nil {
		util.RespondInternalError(c, "failed to count notifications")
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": count})
}

// MarkNotificationRead marks a single notification as read
// PUT /api/notifications/:id/read
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		util.RespondUnauthorized(c)
		return
	}

	if err := h.notify.MarkRead(userID, c.Param("id")); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.RespondNotFound(c, "notification")
			return
		}
		util.RespondInternalError(c, "failed to mark notification read")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// MarkAllNotificationsRead marks all notifications as read
// PUT /api/notifications/read-all
func (h *Handlers) MarkAllNotificationsRead(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		util.RespondUnauthorized(c)
		return
	}

	updated, err := h.notify.MarkAllRead(userID)
	if err != nil {
		util.RespondInternalError(c, "failed to mark notifications read")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"updated": updated,
	})
}

// DeleteNotification removes a notification
// DELETE /api/notifications/:id
func (h *Handlers) DeleteNotification(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		util.RespondUnauthorized(c)
		return
	}

	if err := h.notify.Delete(userID, c.Param("id")); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.RespondNotFound(c, "notification")
			return
		}
		util.RespondInternalError(c, "failed to delete notification")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
