// Presence tracking for real-time user status.
package websocket

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/culturalx/backend/internal/models"
	"gorm.io/gorm"
)

// PresenceStatus represents the current status of a user
type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusOffline PresenceStatus = "offline"
)

// UserPresence tracks a single user's presence state
type UserPresence struct {
	UserID       string         `json:"user_id"`
	Name         string         `json:"name"`
	Status       PresenceStatus `json:"status"`
	LastActivity time.Time      `json:"last_activity"`
	ConnectedAt  time.Time      `json:"connected_at"`
}

// PresenceRegistry tracks user presence, mirrors it to the database,
// and announces status changes to other connected users.
type PresenceRegistry struct {
	hub *Hub
	db  *gorm.DB

	// In-memory presence storage
	presence map[string]*UserPresence
	mu       sync.RWMutex

	// How long without activity before a user is considered offline
	timeoutDuration time.Duration

	// Shutdown handling
	ctx    context.Context
	cancel context.CancelFunc
}

// PresenceConfig holds configuration for the presence registry
type PresenceConfig struct {
	TimeoutDuration time.Duration // Default: 5 minutes
}

// DefaultPresenceConfig returns sensible defaults
func DefaultPresenceConfig() PresenceConfig {
	return PresenceConfig{
		TimeoutDuration: 5 * time.Minute,
	}
}

// NewPresenceRegistry creates a new presence registry
func NewPresenceRegistry(hub *Hub, db *gorm.DB, config PresenceConfig) *PresenceRegistry {
	ctx, cancel := context.WithCancel(context.Background())

	if config.TimeoutDuration == 0 {
		config.TimeoutDuration = 5 * time.Minute
	}

	pr := &PresenceRegistry{
		hub:             hub,
		db:              db,
		presence:        make(map[string]*UserPresence),
		timeoutDuration: config.TimeoutDuration,
		ctx:             ctx,
		cancel:          cancel,
	}

	// The hub decides when a user's last connection is gone, so the
	// offline flip can't race a second live connection.
	hub.SetUserOfflineFunc(pr.SetOffline)

	return pr
}

// Start begins the registry's background tasks
func (pr *PresenceRegistry) Start() {
	log.Println("👤 Presence registry starting...")
	go pr.runTimeoutChecker()
}

// Stop gracefully shuts down the registry, marking everyone offline
func (pr *PresenceRegistry) Stop() {
	log.Println("👤 Presence registry stopping...")
	pr.cancel()

	pr.mu.Lock()
	for userID := range pr.presence {
		pr.setOfflineInternal(userID)
	}
	pr.mu.Unlock()
}

// OnClientConnect is called when a client connects. The offline side
// has no handler here: the hub's unregister path calls SetOffline once
// it has removed the user's last connection.
func (pr *PresenceRegistry) OnClientConnect(client *Client) {
	pr.SetOnline(client.UserID, client.Name)
}

// SetOnline marks a user online and announces the transition
func (pr *PresenceRegistry) SetOnline(userID, name string) {
	pr.mu.Lock()

	existing := pr.presence[userID]
	wasOffline := existing == nil || existing.Status == StatusOffline

	now := time.Now()
	if existing == nil {
		pr.presence[userID] = &UserPresence{
			UserID:       userID,
			Name:         name,
			Status:       StatusOnline,
			LastActivity: now,
			ConnectedAt:  now,
		}
	} else {
		existing.Status = StatusOnline
		existing.LastActivity = now
		if existing.Name == "" {
			existing.Name = name
		}
	}
	pr.mu.Unlock()

	// Update database (non-blocking)
	go pr.updateDatabasePresence(userID, true)

	if wasOffline {
		go pr.announce(userID, MessageTypeUserOnline, PresencePayload{
			UserID:    userID,
			Name:      name,
			Status:    string(StatusOnline),
			Timestamp: now.UnixMilli(),
		})
	}
}

// SetOffline marks a user as offline
func (pr *PresenceRegistry) SetOffline(userID string) {
	pr.mu.Lock()
	pr.setOfflineInternal(userID)
	pr.mu.Unlock()
}

// setOfflineInternal marks a user as offline (must hold lock)
func (pr *PresenceRegistry) setOfflineInternal(userID string) {
	presence, ok := pr.presence[userID]
	if !ok {
		return
	}

	wasOnline := presence.Status != StatusOffline
	presence.Status = StatusOffline
	presence.LastActivity = time.Now()

	if wasOnline {
		go pr.updateDatabasePresence(userID, false)

		go pr.announce(userID, MessageTypeUserOffline, PresencePayload{
			UserID:    userID,
			Name:      presence.Name,
			Status:    string(StatusOffline),
			Timestamp: time.Now().UnixMilli(),
		})
	}
}

// IsOnline reports whether a user is currently online
func (pr *PresenceRegistry) IsOnline(userID string) bool {
	pr.mu.RLock()
	defer pr.mu.RUnlock()
	presence, ok := pr.presence[userID]
	return ok && presence.Status != StatusOffline
}

// Status returns a user's presence and last activity time. A user
// never seen by this instance reports offline with a zero last-seen.
func (pr *PresenceRegistry) Status(userID string) (online bool, lastSeen time.Time) {
	pr.mu.RLock()
	defer pr.mu.RUnlock()

	if presence, ok := pr.presence[userID]; ok {
		return presence.Status != StatusOffline, presence.LastActivity
	}
	return false, time.Time{}
}

// GetPresence returns a copy of a user's current presence
func (pr *PresenceRegistry) GetPresence(userID string) *UserPresence {
	pr.mu.RLock()
	defer pr.mu.RUnlock()

	if presence, ok := pr.presence[userID]; ok {
		cp := *presence
		return &cp
	}
	return nil
}

// GetAllOnline returns all currently online users
func (pr *PresenceRegistry) GetAllOnline() []*UserPresence {
	pr.mu.RLock()
	defer pr.mu.RUnlock()

	result := make([]*UserPresence, 0)
	for _, presence := range pr.presence {
		if presence.Status != StatusOffline {
			cp := *presence
			result = append(result, &cp)
		}
	}
	return result
}

// Heartbeat updates the last activity time for a user
func (pr *PresenceRegistry) Heartbeat(userID string) {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	if presence, ok := pr.presence[userID]; ok {
		presence.LastActivity = time.Now()
	}
}

// runTimeoutChecker periodically checks for timed-out users
func (pr *PresenceRegistry) runTimeoutChecker() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-pr.ctx.Done():
			return
		case <-ticker.C:
			pr.checkTimeouts()
		}
	}
}

// checkTimeouts marks users as offline if they have gone quiet and
// hold no live connections
func (pr *PresenceRegistry) checkTimeouts() {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	cutoff := time.Now().Add(-pr.timeoutDuration)

	for userID, presence := range pr.presence {
		if presence.Status != StatusOffline && presence.LastActivity.Before(cutoff) {
			if !pr.hub.IsUserOnline(userID) {
				log.Printf("👤 Presence timeout for user %s (last activity: %v)", userID, presence.LastActivity)
				pr.setOfflineInternal(userID)
			} else {
				// They have connections but no heartbeat, update activity
				presence.LastActivity = time.Now()
			}
		}
	}
}

// announce broadcasts a presence transition to everyone except the
// user themselves, honoring their visibility preference.
func (pr *PresenceRegistry) announce(userID string, msgType string, payload PresencePayload) {
	if pr.db != nil {
		var showOnlineStatus bool
		if err := pr.db.Model(&models.User{}).Select("show_online_status").
			Where("id = ?", userID).Scan(&showOnlineStatus).Error; err != nil {
			showOnlineStatus = true // Default to showing on error
		}
		if !showOnlineStatus {
			log.Printf("👤 Skipping presence broadcast for user %s (online status hidden)", userID)
			return
		}
	}

	pr.hub.BroadcastExcept(userID, NewMessage(msgType, payload))
}

// updateDatabasePresence mirrors the user's online status to the database
func (pr *PresenceRegistry) updateDatabasePresence(userID string, isOnline bool) {
	if pr.db == nil {
		return
	}

	now := time.Now()
	updates := map[string]interface{}{
		"is_online":      isOnline,
		"last_active_at": now,
	}

	if err := pr.db.Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
		log.Printf("Error updating user presence in database: %v", err)
	}
}
