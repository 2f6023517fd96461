// Package handlers contains the HTTP handlers for the REST API.
package handlers

import (
	"net/http"
	"time"

	"github.com/culturalx/backend/internal/auth"
	"github.com/culturalx/backend/internal/messaging"
	"github.com/culturalx/backend/internal/notify"
	"github.com/culturalx/backend/internal/websocket"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	db        *gorm.DB
	auth      *auth.Service
	messaging *messaging.Service
	notify    *notify.Dispatcher
	wsHandler *websocket.Handler
}

// NewHandlers creates a new handlers instance
func NewHandlers(db *gorm.DB, authSvc *auth.Service, msgSvc *messaging.Service, dispatcher *notify.Dispatcher) *Handlers {
	return &Handlers{
		db:        db,
		auth:      authSvc,
		messaging: msgSvc,
		notify:    dispatcher,
	}
}

// SetWebSocketHandler sets the WebSocket handler for real-time features
func (h *Handlers) SetWebSocketHandler(ws *websocket.Handler) {
	h.wsHandler = ws
}

// Health reports service liveness
// GET /health
func (h *Handlers) Health(c *gin.Context) {
	status := "ok"
	sqlDB, err := h.db.DB()
	if err != nil || sqlDB.Ping() != nil {
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC(),
	})
}
