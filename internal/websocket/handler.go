package websocket

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/culturalx/backend/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

// UnreadCounter reports a user's unread notification count so it can
// be pushed right after the handshake.
type UnreadCounter interface {
	UnreadCount(userID string) (int64, error)
}

// Handler handles WebSocket HTTP upgrade requests
type Handler struct {
	hub           *Hub
	db            *gorm.DB
	jwtSecret     []byte
	presence      *PresenceRegistry
	unreadCounter UnreadCounter
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, db *gorm.DB, jwtSecret []byte) *Handler {
	return &Handler{
		hub:       hub,
		db:        db,
		jwtSecret: jwtSecret,
	}
}

// SetPresenceRegistry sets the presence registry for the handler
func (h *Handler) SetPresenceRegistry(pr *PresenceRegistry) {
	h.presence = pr
}

// GetPresenceRegistry returns the presence registry
func (h *Handler) GetPresenceRegistry() *PresenceRegistry {
	return h.presence
}

// SetUnreadCounter sets the source of unread notification counts
func (h *Handler) SetUnreadCounter(uc UnreadCounter) {
	h.unreadCounter = uc
}

// HandleWebSocket handles WebSocket upgrade requests.
// Authentication is done via JWT token in query param: ?token=...
// Or via Authorization header: Bearer <token>
// An invalid or missing token rejects the request before the upgrade.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	user, err := h.authenticateRequest(c)
	if err != nil {
		log.Printf("WebSocket auth failed: %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "authentication_failed",
			"message": err.Error(),
		})
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // TODO: restrict origins in production
		CompressionMode:    websocket.CompressionContextTakeover,
	})
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := NewClient(h.hub, conn, user.ID, user.Name)
	client.RemoteAddr = c.ClientIP()
	client.UserAgent = c.GetHeader("User-Agent")

	h.hub.Register(client)

	if h.presence != nil {
		h.presence.OnClientConnect(client)
	}

	// Welcome message
	client.Send(NewMessage(MessageTypeConnected, SystemPayload{
		Event:   "connected",
		Message: "Welcome to CulturalX!",
		Data: map[string]interface{}{
			"user_id":     user.ID,
			"name":        user.Name,
			"server_time": time.Now().UTC().UnixMilli(),
			"session_id":  fmt.Sprintf("%p", client),
		},
	}))

	// Push the unread notification count so clients can badge immediately
	if h.unreadCounter != nil {
		if count, err := h.unreadCounter.UnreadCount(user.ID); err == nil {
			client.Send(NewMessage(MessageTypeUnreadNotifications, UnreadCountPayload{Count: count}))
		}
	}

	// Start client read/write pumps. ReadPump blocks until the client
	// disconnects; its hub unregister drives the presence offline flip.
	go client.WritePump()
	client.ReadPump()
}

// authenticateRequest extracts and validates the JWT token from the request
func (h *Handler) authenticateRequest(c *gin.Context) (*models.User, error) {
	tokenString := ""

	if token := c.Query("token"); token != "" {
		tokenString = token
	}

	if auth := c.GetHeader("Authorization"); auth != "" {
		if strings.HasPrefix(auth, "Bearer ") {
			tokenString = strings.TrimPrefix(auth, "Bearer ")
		} else {
			tokenString = auth
		}
	}

	if tokenString == "" {
		return nil, errors.New("no authentication token provided")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return h.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return nil, errors.New("token missing expiration")
	}
	if time.Unix(int64(exp), 0).Before(time.Now()) {
		return nil, errors.New("token expired")
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return nil, errors.New("invalid user_id in token")
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}

	return &user, nil
}

// HandleMetrics returns WebSocket metrics (for monitoring)
func (h *Handler) HandleMetrics(c *gin.Context) {
	metrics := h.hub.GetMetrics()
	c.JSON(http.StatusOK, gin.H{
		"websocket":    metrics,
		"online_users": h.hub.GetOnlineUsers(),
		"timestamp":    time.Now().UTC(),
	})
}

// HandleOnlineStatus checks if specific users are online
func (h *Handler) HandleOnlineStatus(c *gin.Context) {
	var req struct {
		UserIDs []string `json:"user_ids" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	statuses := make(map[string]bool)
	for _, userID := range req.UserIDs {
		statuses[userID] = h.hub.IsUserOnline(userID)
	}

	c.JSON(http.StatusOK, gin.H{
		"statuses":  statuses,
		"timestamp": time.Now().UTC(),
	})
}

// Shutdown gracefully shuts down the WebSocket handler
func (h *Handler) Shutdown(ctx context.Context) error {
	return h.hub.Shutdown(ctx)
}

// GetHub returns the hub for external access
func (h *Handler) GetHub() *Hub {
	return h.hub
}
