package handlers

import (
	"net/http"
	"strings"

	"github.com/culturalx/backend/internal/logger"
	"github.com/culturalx/backend/internal/metrics"
	"github.com/culturalx/backend/internal/models"
	"github.com/culturalx/backend/internal/moderation"
	"github.com/culturalx/backend/internal/notify"
	"github.com/culturalx/backend/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreatePost submits a post into the review queue. Every post starts
// pending; the moderation scorer only adds flags for reviewers.
// POST /api/posts
func (h *Handlers) CreatePost(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		util.RespondUnauthorized(c)
		return
	}

	var req struct {
		CityID      string   `json:"city_id" binding:"required"`
		Type        string   `json:"type" binding:"required"`
		Title       string   `json:"title" binding:"required,max=120"`
		Description string   `json:"description" binding:"max=5000"`
		Photos      []string `json:"photos"`
		Tags        []string `json:"tags"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	if !validPostType(req.Type) {
		util.RespondValidationError(c, "type", "unknown post type")
		return
	}

	var city models.City
	if err := h.db.First(&city, "id = ?", req.CityID).Error; err != nil {
		util.RespondNotFound(c, "city")
		return
	}

	dup, err := moderation.IsDuplicate(h.db, user.ID, req.Title)
	if err != nil {
		util.RespondInternalError(c, "failed to check for duplicates")
		return
	}
	if dup {
		util.RespondConflict(c, "a post with this title")
		return
	}

	score := moderation.Score(req.Title, req.Description)

	post := models.Post{
		UserID:      user.ID,
		CityID:      city.ID,
		Type:        req.Type,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Photos:      req.Photos,
		Tags:        req.Tags,
		Status:      models.PostStatusPending,
		Flagged:     score.Flagged,
		FlagReasons: score.Reasons,
	}
	if err := h.db.Create(&post).Error; err != nil {
		util.RespondInternalError(c, "failed to create post")
		return
	}

	if score.Flagged {
		metrics.Get().PostsFlaggedTotal.WithLabelValues("auto_score").Inc()
		logger.Log.Info("Post flagged by moderation scorer",
			logger.WithPostID(post.ID),
			zap.Int("score", score.Score),
			zap.Strings("reasons", score.Reasons))
	}

	c.JSON(http.StatusCreated, gin.H{"post": post})
}

func validPostType(t string) bool {
	switch t {
	case models.PostTypeStory, models.PostTypeRecipe, models.PostTypePhoto,
		models.PostTypeTradition, models.PostTypeMusic, models.PostTypePlace:
		return true
	}
	return false
}

// GetFeed returns approved posts, newest first, cursor-paginated,
// optionally filtered by city or type
// GET /api/posts/feed?city_id=...&type=...&cursor=...&limit=...
func (h *Handlers) GetFeed(c *gin.Context) {
	limit := util.ParseLimit(c, 20, 50)

	query := h.db.Preload("User").Preload("City").
		Where("status = ?", models.PostStatusApproved)

	if cityID := c.Query("city_id"); cityID != "" {
		query = query.Where("city_id = ?", cityID)
	}
	if postType := c.Query("type"); postType != "" {
		query = query.Where("type = ?", postType)
	}
	if cursor := c.Query("cursor"); cursor != "" {
		query = query.Where("created_at < (SELECT created_at FROM posts WHERE id = ?)", cursor)
	}

	var posts []models.Post
	if err := query.Order("created_at DESC").Limit(limit + 1).Find(&posts).Error; err != nil {
		util.RespondInternalError(c, "failed to load feed")
		return
	}

	hasMore := len(posts) > limit
	if hasMore {
		posts = posts[:limit]
	}

	nextCursor := ""
	if hasMore && len(posts) > 0 {
		nextCursor = posts[len(posts)-1].ID
	}

	c.JSON(http.StatusOK, gin.H{
		"posts":       posts,
		"has_more":    hasMore,
		"next_cursor": nextCursor,
	})
}

// GetActivityFeed returns approved posts by the user's accepted
// connections, newest first
// GET /api/posts/feed/activity?cursor=...&limit=...
func (h *Handlers) GetActivityFeed(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		util.RespondUnauthorized(c)
		return
	}
	limit := util.ParseLimit(c, 20, 50)

	friendIDs := h.db.Model(&models.Connection{}).
		Select("CASE WHEN user1_id = ? THEN user2_id ELSE user1_id END", userID).
		Where("status = ? AND (user1_id = ? OR user2_id = ?)",
			models.ConnectionAccepted, userID, userID)

	query := h.db.Preload("User").Preload("City").
		Where("status = ? AND user_id IN (?)", models.PostStatusApproved, friendIDs)
	if cursor := c.Query("cursor"); cursor != "" {
		query = query.Where("created_at < (SELECT created_at FROM posts WHERE id = ?)", cursor)
	}

	var posts []models.Post
	if err := query.Order("created_at DESC").Limit(limit + 1).Find(&posts).Error; err != nil {
		util.RespondInternalError(c, "failed to load activity feed")
		return
	}

	hasMore := len(posts) > limit
	if hasMore {
		posts = posts[:limit]
	}
	nextCursor := ""
	if hasMore && len(posts) > 0 {
		nextCursor = posts[len(posts)-1].ID
	}

	c.JSON(http.StatusOK, gin.H{
		"posts":       posts,
		"has_more":    hasMore,
		"next_cursor": nextCursor,
	})
}

// SearchPosts finds approved posts by title or description
// GET /api/posts/search?q=...&cursor=...&limit=...
func (h *Handlers) SearchPosts(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if len(q) < 2 {
		util.RespondValidationError(c, "q", "query must be at least 2 characters")
		return
	}
	limit := util.ParseLimit(c, 20, 50)

	pattern := "%" + q + "%"
	query := h.db.Preload("User").Preload("City").
		Where("status = ?", models.PostStatusApproved).
		Where("title LIKE ? OR description LIKE ?", pattern, pattern)
	if cursor := c.Query("cursor"); cursor != "" {
		query = query.Where("created_at < (SELECT created_at FROM posts WHERE id = ?)", cursor)
	}

	var posts []models.Post
	if err := query.Order("created_at DESC").Limit(limit + 1).Find(&posts).Error; err != nil {
		util.RespondInternalError(c, "failed to search posts")
		return
	}

	hasMore := len(posts) > limit
	if hasMore {
		posts = posts[:limit]
	}
	nextCursor := ""
	if hasMore && len(posts) > 0 {
		nextCursor = posts[len(posts)-1].ID
	}

	c.JSON(http.StatusOK, gin.H{
		"posts":       posts,
		"has_more":    hasMore,
		"next_cursor": nextCursor,
	})
}

// UpdatePost edits the author's own post. Edits go back through
// moderation: the post is rescored and returns to pending.
// PUT /api/posts/:id
func (h *Handlers) UpdatePost(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		util.RespondUnauthorized(c)
		return
	}

	var post models.Post
	if err := h.db.First(&post, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "post")
		return
	}
	if post.UserID != user.ID {
		util.RespondForbidden(c, "you can only edit your own posts")
		return
	}

	var req struct {
		Title       *string   `json:"title"`
		Description *string   `json:"description"`
		Photos      *[]string `json:"photos"`
		Tags        *[]string `json:"tags"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	if req.Title != nil {
		post.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		post.Description = strings.TrimSpace(*req.Description)
	}
	if req.Photos != nil {
		post.Photos = *req.Photos
	}
	if req.Tags != nil {
		post.Tags = *req.Tags
	}
	if post.Title == "" {
		util.RespondValidationError(c, "title", "title cannot be empty")
		return
	}

	wasApproved := post.Status == models.PostStatusApproved

	score := moderation.Score(post.Title, post.Description)
	post.Flagged = score.Flagged
	post.FlagReasons = score.Reasons
	post.Status = models.PostStatusPending
	post.ModeratorID = nil
	post.ApprovedAt = nil

	if err := h.db.Save(&post).Error; err != nil {
		util.RespondInternalError(c, "failed to update post")
		return
	}

	if wasApproved {
		h.db.Model(&models.City{}).Where("id = ? AND content_count > 0", post.CityID).
			UpdateColumn("content_count", gorm.Expr("content_count - 1"))
	}

	c.JSON(http.StatusOK, gin.H{"post": post})
}

// DeletePost removes the author's own post (admins may remove any)
// DELETE /api/posts/:id
func (h *Handlers) DeletePost(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		util.RespondUnauthorized(c)
		return
	}

	var post models.Post
	if err := h.db.First(&post, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "post")
		return
	}
	if post.UserID != user.ID && user.Role != models.RoleAdmin {
		util.RespondForbidden(c, "you can only delete your own posts")
		return
	}

	if err := h.db.Delete(&post).Error; err != nil {
		util.RespondInternalError(c, "failed to delete post")
		return
	}

	if post.Status == models.PostStatusApproved {
		h.db.Model(&models.City{}).Where("id = ? AND content_count > 0", post.CityID).
			UpdateColumn("content_count", gorm.Expr("content_count - 1"))
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// GetPost returns a single post. Non-approved posts are only visible
// to their author and moderators.
// GET /api/posts/:id
func (h *Handlers) GetPost(c *gin.Context) {
	var post models.Post
	if err := h.db.Preload("User").Preload("City").First(&post, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "post")
		return
	}

	if post.Status != models.PostStatusApproved {
		user, ok := util.GetUserFromContext(c)
		if !ok || (user.ID != post.UserID && user.Role == models.RoleUser) {
			util.RespondNotFound(c, "post")
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"post": post})
}

// GetUserPosts returns a user's approved posts
// GET /api/users/:id/posts
func (h *Handlers) GetUserPosts(c *gin.Context) {
	targetID := c.Param("id")
	limit := util.ParseLimit(c, 20, 50)

	query := h.db.Preload("City").
		Where("user_id = ? AND status = ?", targetID, models.PostStatusApproved)

	// Authors see all their own posts, whatever the status
	if userID, ok := util.GetUserIDFromContext(c); ok && userID == targetID {
		query = h.db.Preload("City").Where("user_id = ?", targetID)
	}

	var posts []models.Post
	if err := query.Order("created_at DESC").Limit(limit).Find(&posts).Error; err != nil {
		util.RespondInternalError(c, "failed to load posts")
		return
	}

	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

// LikePost likes an approved post and notifies its author
// POST /api/posts/:id/like
func (h *Handlers) LikePost(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		util.RespondUnauthorized(c)
		return
	}

	var post models.Post
	if err := h.db.First(&post, "id = ? AND status = ?", c.Param("id"), models.PostStatusApproved).Error; err != nil {
		util.RespondNotFound(c, "post")
		return
	}

	like := models.PostLike{UserID: user.ID, PostID: post.ID}
	if err := h.db.Create(&like).Error; err != nil {
		// Unique index violation: already liked
		util.RespondConflict(c, "like")
		return
	}

	h.db.Model(&post).UpdateColumn("like_count", gorm.Expr("like_count + 1"))

	if _, err := h.notify.Dispatch(notify.Event{
		UserID:     post.UserID,
		Type:       models.NotificationPostLiked,
		RelatedID:  post.ID,
		FromUserID: user.ID,
		Content:    notify.PostLikedContent(user.Name, post.Title),
	}); err != nil {
		logger.Log.Warn("Failed to dispatch like notification", zap.Error(err))
	}

	c.JSON(http.StatusCreated, gin.H{"status": "success"})
}

// UnlikePost removes a like
// DELETE /api/posts/:id/like
func (h *Handlers) UnlikePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		util.RespondUnauthorized(c)
		return
	}

	result := h.db.Where("user_id = ? AND post_id = ?", userID, c.Param("id")).Delete(&models.PostLike{})
	if result.Error != nil {
		util.RespondInternalError(c, "failed to remove like")
		return
	}
	if result.RowsAffected == 0 {
		util.RespondNotFound(c, "like")
		return
	}

	h.db.Model(&models.Post{}).Where("id = ? AND like_count > 0", c.Param("id")).
		UpdateColumn("like_count", gorm.Expr("like_count - 1"))

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// CommentOnPost adds a comment, or a reply when parent_comment_id is
// set. Comments notify the post author; replies notify the parent
// comment's author.
// POST /api/posts/:id/comments
func (h *Handlers) CommentOnPost(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		util.RespondUnauthorized(c)
		return
	}

	var post models.Post
	if err := h.db.First(&post, "id = ? AND status = ?", c.Param("id"), models.PostStatusApproved).Error; err != nil {
		util.RespondNotFound(c, "post")
		return
	}

	var req struct {
		Content         string  `json:"content" binding:"required,max=1000"`
		ParentCommentID *string `json:"parent_comment_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	var parent *models.Comment
	if req.ParentCommentID != nil {
		var p models.Comment
		if err := h.db.First(&p, "id = ? AND post_id = ?", *req.ParentCommentID, post.ID).Error; err != nil {
			util.RespondNotFound(c, "parent comment")
			return
		}
		parent = &p
	}

	comment := models.Comment{
		PostID:          post.ID,
		UserID:          user.ID,
		Text:            strings.TrimSpace(req.Content),
		ParentCommentID: req.ParentCommentID,
	}
	if err := h.db.Create(&comment).Error; err != nil {
		util.RespondInternalError(c, "failed to create comment")
		return
	}

	h.db.Model(&post).UpdateColumn("comment_count", gorm.Expr("comment_count + 1"))

	if parent != nil {
		if _, err := h.notify.Dispatch(notify.Event{
			UserID:     parent.UserID,
			Type:       models.NotificationCommentReplied,
			RelatedID:  post.ID,
			FromUserID: user.ID,
			Content:    notify.CommentRepliedContent(user.Name),
		}); err != nil {
			logger.Log.Warn("Failed to dispatch reply notification", zap.Error(err))
		}
	} else {
		if _, err := h.notify.Dispatch(notify.Event{
			UserID:     post.UserID,
			Type:       models.NotificationPostCommented,
			RelatedID:  post.ID,
			FromUserID: user.ID,
			Content:    notify.PostCommentedContent(user.Name, post.Title),
		}); err != nil {
			logger.Log.Warn("Failed to dispatch comment notification", zap.Error(err))
		}
	}

	c.JSON(http.StatusCreated, gin.H{"comment": comment})
}

// GetComments lists a post's comments, oldest first
// GET /api/posts/:id/comments
func (h *Handlers) GetComments(c *gin.Context) {
	limit := util.ParseLimit(c, 50, 200)

	var comments []models.Comment
	err := h.db.Preload("User").
		Where("post_id = ?", c.Param("id")).
		Order("created_at ASC").
		Limit(limit).
		Find(&comments).Error
	if err != nil {
		util.RespondInternalError(c, "failed to load comments")
		return
	}

	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

// UpdateComment edits the author's own comment
// PUT /api/comments/:id
func (h *Handlers) UpdateComment(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		util.RespondUnauthorized(c)
		return
	}

	var comment models.Comment
	if err := h.db.First(&comment, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "comment")
		return
	}
	if comment.UserID != userID {
		util.RespondForbidden(c, "you can only edit your own comments")
		return
	}

	var req struct {
		Content string `json:"content" binding:"required,max=1000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	comment.Text = strings.TrimSpace(req.Content)
	if err := h.db.Save(&comment).Error; err != nil {
		util.RespondInternalError(c, "failed to update comment")
		return
	}

	c.JSON(http.StatusOK, gin.H{"comment": comment})
}

// DeleteComment removes a comment. The comment's author and the post's
// author may both delete it.
// DELETE /api/comments/:id
func (h *Handlers) DeleteComment(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		util.RespondUnauthorized(c)
		return
	}

	var comment models.Comment
	if err := h.db.First(&comment, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "comment")
		return
	}

	var post models.Post
	if err := h.db.First(&post, "id = ?", comment.PostID).Error; err != nil {
		util.RespondNotFound(c, "post")
		return
	}

	if comment.UserID != user.ID && post.UserID != user.ID && user.Role != models.RoleAdmin {
		util.RespondForbidden(c, "not allowed to delete this comment")
		return
	}

	// Replies go with their parent
	result := h.db.Where("id = ? OR parent_comment_id = ?", comment.ID, comment.ID).
		Delete(&models.Comment{})
	if result.Error != nil {
		util.RespondInternalError(c, "failed to delete comment")
		return
	}

	h.db.Model(&post).Where("comment_count >= ?", result.RowsAffected).
		UpdateColumn("comment_count", gorm.Expr("comment_count - ?", result.RowsAffected))

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// SavePost bookmarks a post for the user
// POST /api/posts/:id/save
func (h *Handlers) SavePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		util.RespondUnauthorized(c)
		return
	}

	var post models.Post
	if err := h.db.First(&post, "id = ? AND status = ?", c.Param("id"), models.PostStatusApproved).Error; err != nil {
		util.RespondNotFound(c, "post")
		return
	}

	saved := models.SavedPost{UserID: userID, PostID: post.ID}
	if err := h.db.Create(&saved).Error; err != nil {
		util.RespondConflict(c, "saved post")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "success"})
}

// UnsavePost removes a bookmark
// DELETE /api/posts/:id/save
func (h *Handlers) UnsavePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		util.RespondUnauthorized(c)
		return
	}

	result := h.db.Where("user_id = ? AND post_id = ?", userID, c.Param("id")).Delete(&models.SavedPost{})
	if result.Error != nil {
		util.RespondInternalError(c, "failed to unsave post")
		return
	}
	if result.RowsAffected == 0 {
		util.RespondNotFound(c, "saved post")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// GetSavedPosts lists the user's bookmarked posts
// GET /api/posts/saved
func (h *Handlers) GetSavedPosts(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		util.RespondUnauthorized(c)
		return
	}

	var saved []models.SavedPost
	if err := h.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&saved).Error; err != nil {
		util.RespondInternalError(c, "failed to load saved posts")
		return
	}

	postIDs := make([]string, 0, len(saved))
	for _, s := range saved {
		postIDs = append(postIDs, s.PostID)
	}

	var posts []models.Post
	if len(postIDs) > 0 {
		if err := h.db.Preload("User").Preload("City").
			Where("id IN ? AND status = ?", postIDs, models.PostStatusApproved).
			Find(&posts).Error; err != nil {
			util.RespondInternalError(c, "failed to load saved posts")
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"posts": posts})
}
