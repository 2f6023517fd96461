package handlers

import (
	"net/http"

	"github.com/culturalx/backend/internal/logger"
	"github.com/culturalx/backend/internal/models"
	"github.com/culturalx/backend/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BlockUser blocks another member. Any existing connection between the
// pair is severed, and the block stops messages in both directions.
// POST /api/users/:id/block
func (h *Handlers) BlockUser(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		util.RespondUnauthorized(c)
		return
	}
	targetID := c.Param("id")

	if targetID == userID {
		util.RespondBadRequest(c, "you cannot block yourself")
		return
	}

	var target models.User
	if err := h.db.First(&target, "id = ?", targetID).Error; err != nil {
		util.RespondNotFound(c, "user")
		return
	}

	block := models.UserBlock{BlockerID: userID, BlockedID: targetID}
	if err := h.db.Create(&block).Error; err != nil {
		util.RespondConflict(c, "block")
		return
	}

	if err := h.db.Where(
		"(user1_id = ? AND user2_id = ?) OR (user1_id = ? AND user2_id = ?)",
		userID, targetID, targetID, userID,
	).Delete(&models.Connection{}).Error; err != nil {
		logger.Log.Warn("Failed to remove connection after block", zap.Error(err))
	}

	c.JSON(http.StatusCreated, gin.H{"status": "success"})
}

// UnblockUser removes a block the user previously placed
// DELETE /api/users/:id/block
func (h *Handlers) UnblockUser(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		util.RespondUnauthorized(c)
		return
	}

	result := h.db.Where("blocker_id = ? AND blocked_id = ?", userID, c.Param("id")).
		Delete(&models.UserBlock{})
	if result.Error != nil {
		util.RespondInternalError(c, "failed to unblock user")
		return
	}
	if result.RowsAffected == 0 {
		util.RespondNotFound(c, "block")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// IsBlocked reports the block state between the user and another member
// GET /api/users/:id/is-blocked
func (h *Handlers) IsBlocked(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		util.RespondUnauthorized(c)
		return
	}
	targetID := c.Param("id")

	var blockedByMe, blockedMe int64
	h.db.Model(&models.UserBlock{}).
		Where("blocker_id = ? AND blocked_id = ?", userID, targetID).Count(&blockedByMe)
	h.db.Model(&models.UserBlock{}).
		Where("blocker_id = ? AND blocked_id = ?", targetID, userID).Count(&blockedMe)

	c.JSON(http.StatusOK, gin.H{
		"is_blocked":    blockedByMe > 0 || blockedMe > 0,
		"blocked_by_me": blockedByMe > 0,
		"blocked_me":    blockedMe > 0,
	})
}

// GetBlockedUsers lists members the user has blocked
// GET /api/users/blocked
func (h *Handlers) GetBlockedUsers(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		util.RespondUnauthorized(c)
		return
	}

	var blocks []models.UserBlock
	if err := h.db.Where("blocker_id = ?", userID).Order("created_at DESC").Find(&blocks).Error; err != nil {
		util.RespondInternalError(c, "failed to load blocked users")
		return
	}

	blockedIDs := make([]string, 0, len(blocks))
	for _, b := range blocks {
		blockedIDs = append(blockedIDs, b.BlockedID)
	}

	var users []models.User
	if len(blockedIDs) > 0 {
		if err := h.db.Where("id IN ?", blockedIDs).Find(&users).Error; err != nil {
			util.RespondInternalError(c, "failed to load blocked users")
			return
		}
	}

	profiles := make([]publicProfile, 0, len(users))
	for i := range users {
		profiles = append(profiles, toPublicProfile(&users[i], false))
	}

	c.JSON(http.StatusOK, gin.H{"blocked": profiles})
}
