package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/culturalx/backend/internal/auth"
	apierrors "github.com/culturalx/backend/internal/errors"
	"github.com/culturalx/backend/internal/logger"
	"github.com/culturalx/backend/internal/models"
	"github.com/culturalx/backend/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Register creates a new account
// POST /api/auth/register
func (h *Handlers) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	resp, err := h.auth.Register(req)
	if err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			util.RespondWithAPIError(c, apierrors.Conflict("account"))
			return
		}
		logger.Log.Error("Registration failed", zap.Error(err))
		util.RespondInternalError(c, "registration failed")
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// Login authenticates with email/password
// POST /api/auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	resp, err := h.auth.Login(req)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			util.RespondUnauthorized(c, "invalid email or password")
			return
		}
		logger.Log.Error("Login failed", zap.Error(err))
		util.RespondInternalError(c, "login failed")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Me returns the authenticated user
// GET /api/auth/me
func (h *Handlers) Me(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		util.RespondUnauthorized(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// AuthMiddleware validates the Bearer token and loads the user into
// the request context under "user" and "user_id".
func (h *Handlers) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""

		if header := c.GetHeader("Authorization"); header != "" {
			if strings.HasPrefix(header, "Bearer ") {
				tokenString = strings.TrimPrefix(header, "Bearer ")
			} else {
				tokenString = header
			}
		}

		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authentication token"})
			return
		}

		user, err := h.auth.ValidateToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set("user", user)
		c.Set("user_id", user.ID)
		c.Next()
	}
}

// RequireRole gates a route to users holding one of the given roles
func (h *Handlers) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := util.GetUserFromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}

		for _, role := range roles {
			if user.Role == role {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
	}
}

// RequireModerator allows moderators and admins
func (h *Handlers) RequireModerator() gin.HandlerFunc {
	return h.RequireRole(models.RoleModerator, models.RoleAdmin)
}

// RequireAdmin allows admins only
func (h *Handlers) RequireAdmin() gin.HandlerFunc {
	return h.RequireRole(models.RoleAdmin)
}
