package handlers

import (
	"net/http"
	"time"

	"github.com/culturalx/backend/internal/logger"
	"github.com/culturalx/backend/internal/models"
	"github.com/culturalx/backend/internal/notify"
	"github.com/culturalx/backend/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// moderatorCityScope narrows a post query to the moderator's assigned
// cities. Admins see everything.
func (h *Handlers) moderatorCityScope(user *models.User, query *gorm.DB) *gorm.DB {
	if user.Role == models.RoleAdmin {
		return query
	}
	return query.Where("city_id IN (?)",
		h.db.Model(&models.CityModerator{}).Select("city_id").Where("user_id = ?", user.ID))
}

// GetPendingPosts lists posts awaiting review in the moderator's cities
// GET /api/moderation/pending
func (h *Handlers) GetPendingPosts(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		util.RespondUnauthorized(c)
		return
	}
	limit := util.ParseLimit(c, 20, 100)

	query := h.db.Preload("User").Preload("City").
		Where("status = ?", models.PostStatusPending)
	query = h.moderatorCityScope(user, query)

	var posts []models.Post
	if err := query.Order("created_at ASC").Limit(limit).Find(&posts).Error; err != nil {
		util.RespondInternalError(c, "failed to load pending posts")
		return
	}

	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

// GetFlaggedPosts lists pending posts the scorer flagged, scoped like
// GetPendingPosts
// GET /api/moderation/flagged
func (h *Handlers) GetFlaggedPosts(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		util.RespondUnauthorized(c)
		return
	}
	limit := util.ParseLimit(c, 20, 100)

	query := h.db.Preload("User").Preload("City").
		Where("status = ? AND flagged = ?", models.PostStatusPending, true)
	query = h.moderatorCityScope(user, query)

	var posts []models.Post
	if err := query.Order("created_at ASC").Limit(limit).Find(&posts).Error; err != nil {
		util.RespondInternalError(c, "failed to load flagged posts")
		return
	}

	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

// loadReviewablePost fetches a pending post the moderator is allowed to act on
func (h *Handlers) loadReviewablePost(c *gin.Context, user *models.User) (*models.Post, bool) {
	var post models.Post
	if err := h.db.First(&post, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "post")
		return nil, false
	}
	if post.Status != models.PostStatusPending {
		util.RespondConflict(c, "post review")
		return nil, false
	}
	if user.Role != models.RoleAdmin {
		var count int64
		h.db.Model(&models.CityModerator{}).
			Where("user_id = ? AND city_id = ?", user.ID, post.CityID).
			Count(&count)
		if count == 0 {
			util.RespondForbidden(c, "you do not moderate this city")
			return nil, false
		}
	}
	return &post, true
}

// ApprovePost publishes a pending post and notifies its author
// POST /api/moderation/posts/:id/approve
func (h *Handlers) ApprovePost(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		util.RespondUnauthorized(c)
		return
	}
	post, ok := h.loadReviewablePost(c, user)
	if !ok {
		return
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":       models.PostStatusApproved,
		"moderator_id": user.ID,
		"approved_at":  now,
	}
	if err := h.db.Model(post).Updates(updates).Error; err != nil {
		util.RespondInternalError(c, "failed to approve post")
		return
	}

	// The city gains visible content the moment its first post goes live
	h.db.Model(&models.City{}).Where("id = ?", post.CityID).
		Updates(map[string]interface{}{
			"content_count": gorm.Expr("content_count + 1"),
			"has_content":   true,
		})

	if _, err := h.notify.Dispatch(notify.Event{
		UserID:     post.UserID,
		Type:       models.NotificationPostApproved,
		RelatedID:  post.ID,
		FromUserID: user.ID,
		Content:    notify.PostApprovedContent(post.Title),
	}); err != nil {
		logger.Log.Warn("Failed to dispatch approval notification", zap.Error(err))
	}

	logger.Log.Info("Post approved",
		logger.WithPostID(post.ID),
		logger.WithUserID(user.ID))

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// RejectPost declines a pending post with an optional reason
// POST /api/moderation/posts/:id/reject
func (h *Handlers) RejectPost(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		util.RespondUnauthorized(c)
		return
	}
	post, ok := h.loadReviewablePost(c, user)
	if !ok {
		return
	}

	var req struct {
		Reason string `json:"reason" binding:"max=500"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		util.RespondBadRequest(c, err.Error())
		return
	}

	updates := map[string]interface{}{
		"status":       models.PostStatusRejected,
		"moderator_id": user.ID,
	}
	if err := h.db.Model(post).Updates(updates).Error; err != nil {
		util.RespondInternalError(c, "failed to reject post")
		return
	}

	if _, err := h.notify.Dispatch(notify.Event{
		UserID:     post.UserID,
		Type:       models.NotificationPostRejected,
		RelatedID:  post.ID,
		FromUserID: user.ID,
		Content:    notify.PostRejectedContent(post.Title, req.Reason),
	}); err != nil {
		logger.Log.Warn("Failed to dispatch rejection notification", zap.Error(err))
	}

	logger.Log.Info("Post rejected",
		logger.WithPostID(post.ID),
		logger.WithUserID(user.ID),
		zap.String("reason", req.Reason))

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
