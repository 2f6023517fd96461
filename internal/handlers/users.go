package handlers

import (
	"net/http"
	"strings"

	"github.com/culturalx/backend/internal/models"
	"github.com/culturalx/backend/internal/util"
	"github.com/gin-gonic/gin"
)

// publicProfile is the subset of a user safe to show to other members
type publicProfile struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Bio            string   `json:"bio"`
	Country        string   `json:"country"`
	City           string   `json:"city"`
	Languages      []string `json:"languages"`
	Interests      []string `json:"interests"`
	ProfilePicture string   `json:"profile_picture"`
	IsOnline       *bool    `json:"is_online,omitempty"`
}

func toPublicProfile(u *models.User, online bool) publicProfile {
	p := publicProfile{
		ID:             u.ID,
		Name:           u.Name,
		Bio:            u.Bio,
		Country:        u.Country,
		City:           u.City,
		Languages:      u.Languages,
		Interests:      u.Interests,
		ProfilePicture: u.ProfilePicture,
	}
	if u.ShowOnlineStatus {
		p.IsOnline = &online
	}
	return p
}

// GetUsers lists community members, newest first, optionally filtered
// by country
// GET /api/users?country=...&page=...&limit=...
func (h *Handlers) GetUsers(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		util.RespondUnauthorized(c)
		return
	}

	page, limit := util.ParsePage(c, 20, 50)

	query := h.db.Model(&models.User{}).Where("id <> ?", userID)
	if country := c.Query("country"); country != "" {
		query = query.Where("country = ?", country)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		util.RespondInternalError(c, "failed to count users")
		return
	}

	var users []models.User
	err := query.Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&users).Error
	if err != nil {
		util.RespondInternalError(c, "failed to load users")
		return
	}

	profiles := make([]publicProfile, 0, len(users))
	for i := range users {
		online := false
		if h.wsHandler != nil {
			online = h.wsHandler.GetHub().IsUserOnline(users[i].ID)
		}
		profiles = append(profiles, toPublicProfile(&users[i], online))
	}

	c.JSON(http.StatusOK, gin.H{
		"users": profiles,
		"meta": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// GetUser returns another member's public profile. Online status is
// omitted when the member has hidden it.
// GET /api/users/:id
func (h *Handlers) GetUser(c *gin.Context) {
	var user models.User
	if err := h.db.First(&user, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "user")
		return
	}

	online := false
	if h.wsHandler != nil {
		online = h.wsHandler.GetHub().IsUserOnline(user.ID)
	}

	c.JSON(http.StatusOK, gin.H{"user": toPublicProfile(&user, online)})
}

// UpdateProfile lets the authenticated user edit their own profile and
// privacy settings. Only fields present in the request change.
// PUT /api/users/me
func (h *Handlers) UpdateProfile(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		util.RespondUnauthorized(c)
		return
	}

	var req struct {
		Name             *string   `json:"name"`
		Bio              *string   `json:"bio"`
		Country          *string   `json:"country"`
		City             *string   `json:"city"`
		Languages        *[]string `json:"languages"`
		Interests        *[]string `json:"interests"`
		ProfilePicture   *string   `json:"profile_picture"`
		MessagingPrivacy *string   `json:"messaging_privacy"`
		ShowOnlineStatus *bool     `json:"show_online_status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			util.RespondValidationError(c, "name", "name cannot be empty")
			return
		}
		updates["name"] = name
	}
	if req.Bio != nil {
		updates["bio"] = strings.TrimSpace(*req.Bio)
	}
	if req.Country != nil {
		updates["country"] = *req.Country
	}
	if req.City != nil {
		updates["city"] = *req.City
	}
	if req.ProfilePicture != nil {
		updates["profile_picture"] = *req.ProfilePicture
	}
	if req.MessagingPrivacy != nil {
		switch *req.MessagingPrivacy {
		case models.MessagingEveryone, models.MessagingFriendsOnly:
			updates["messaging_privacy"] = *req.MessagingPrivacy
		default:
			util.RespondValidationError(c, "messaging_privacy", "must be everyone or friendsOnly")
			return
		}
	}
	if req.ShowOnlineStatus != nil {
		updates["show_online_status"] = *req.ShowOnlineStatus
	}

	if len(updates) > 0 {
		if err := h.db.Model(user).Updates(updates).Error; err != nil {
			util.RespondInternalError(c, "failed to update profile")
			return
		}
	}

	// Serialized slice columns need the struct-field path
	if req.Languages != nil || req.Interests != nil {
		if req.Languages != nil {
			user.Languages = *req.Languages
		}
		if req.Interests != nil {
			user.Interests = *req.Interests
		}
		if err := h.db.Model(user).Select("Languages", "Interests").Updates(user).Error; err != nil {
			util.RespondInternalError(c, "failed to update profile")
			return
		}
	}

	var fresh models.User
	if err := h.db.First(&fresh, "id = ?", user.ID).Error; err != nil {
		util.RespondInternalError(c, "failed to load profile")
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": fresh})
}

// SearchUsers finds members by name, optionally filtered by country.
// Blocked relationships (either direction) are excluded from results.
// GET /api/users/search?q=...&country=...
func (h *Handlers) SearchUsers(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		util.RespondUnauthorized(c)
		return
	}

	q := strings.TrimSpace(c.Query("q"))
	if len(q) < 2 {
		util.RespondValidationError(c, "q", "query must be at least 2 characters")
		return
	}
	limit := util.ParseLimit(c, 20, 50)

	query := h.db.Model(&models.User{}).
		Where("name LIKE ?", "%"+q+"%").
		Where("id <> ?", userID).
		Where("id NOT IN (?)",
			h.db.Model(&models.UserBlock{}).Select("blocked_id").Where("blocker_id = ?", userID)).
		Where("id NOT IN (?)",
			h.db.Model(&models.UserBlock{}).Select("blocker_id").Where("blocked_id = ?", userID))

	if country := c.Query("country"); country != "" {
		query = query.Where("country = ?", country)
	}

	var users []models.User
	if err := query.Order("name ASC").Limit(limit).Find(&users).Error; err != nil {
		util.RespondInternalError(c, "failed to search users")
		return
	}

	results := make([]publicProfile, 0, len(users))
	for i := range users {
		online := false
		if h.wsHandler != nil {
			online = h.wsHandler.GetHub().IsUserOnline(users[i].ID)
		}
		results = append(results, toPublicProfile(&users[i], online))
	}

	c.JSON(http.StatusOK, gin.H{"users": results})
}
