package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	// Requests per window
	Limit int
	// Window duration
	Window time.Duration
	// Message returned in the 429 body when the limit is hit
	Message string
	// KeyFunc extracts the limiting key from the request. Defaults to
	// the client IP; authenticated routes can key by user ID instead.
	KeyFunc func(c *gin.Context) string
}

// rejection returns the configured 429 message, defaulting when unset
func (cfg RateLimitConfig) rejection() string {
	if cfg.Message != "" {
		return cfg.Message
	}
	return "rate limit exceeded"
}

// APIRateLimitConfig returns defaults for the general API surface
func APIRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Limit:   100,              // 100 requests
		Window:  15 * time.Minute, // per 15 minutes
		Message: "too many requests, please slow down",
	}
}

// AuthRateLimitConfig returns stricter limits for auth endpoints
func AuthRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Limit:   5,                // 5 attempts
		Window:  15 * time.Minute, // per 15 minutes
		Message: "too many authentication attempts, please try again later",
	}
}

// UploadRateLimitConfig returns limits for upload endpoints
func UploadRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Limit:   10,        // 10 uploads
		Window:  time.Hour, // per hour
		Message: "upload limit reached, please try again later",
	}
}

// PostRateLimitConfig returns limits for post creation
func PostRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Limit:   20,        // 20 posts
		Window:  time.Hour, // per hour
		Message: "you are posting too frequently, please try again later",
	}
}

// MessageRateLimitConfig returns limits for the HTTP message endpoint
func MessageRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Limit:   50,        // 50 messages
		Window:  time.Hour, // per hour
		Message: "you are sending messages too quickly, please slow down",
	}
}

// window tracks request counts within a fixed time window
type window struct {
	count int
	start time.Time
}

// RateLimiter enforces a fixed-window limit per key. The first request
// for a key opens a window; requests beyond Limit within that window
// are rejected until the window expires, at which point the count
// resets and the clock restarts.
type RateLimiter struct {
	windows map[string]*window
	config  RateLimitConfig
	mu      sync.Mutex
	done    chan struct{}
	once    sync.Once
}

// NewRateLimiter creates a fixed-window rate limiter and starts its
// background sweep of expired windows.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		windows: make(map[string]*window),
		config:  config,
		done:    make(chan struct{}),
	}
	go rl.sweep()
	return rl
}

// Allow records a request for key and reports whether it is within the
// limit. Returns the remaining quota and seconds until the window resets.
func (rl *RateLimiter) Allow(key string) (allowed bool, remaining int, retryAfter int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	w, exists := rl.windows[key]
	if !exists || now.Sub(w.start) >= rl.config.Window {
		rl.windows[key] = &window{count: 1, start: now}
		return true, rl.config.Limit - 1, 0
	}

	resetIn := int(rl.config.Window.Seconds() - now.Sub(w.start).Seconds())
	if resetIn < 1 {
		resetIn = 1
	}

	if w.count >= rl.config.Limit {
		return false, 0, resetIn
	}

	w.count++
	return true, rl.config.Limit - w.count, resetIn
}

// Stop terminates the background sweep goroutine.
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.done) })
}

// sweep periodically drops windows that have expired so idle keys
// don't accumulate.
func (rl *RateLimiter) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.mu.Lock()
			now := time.Now()
			for key, w := range rl.windows {
				if now.Sub(w.start) >= rl.config.Window {
					delete(rl.windows, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Middleware returns the gin handler enforcing this limiter.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	keyFunc := rl.config.KeyFunc
	if keyFunc == nil {
		keyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}

	return func(c *gin.Context) {
		allowed, remaining, retryAfter := rl.Allow(keyFunc(c))

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.config.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       rl.config.rejection(),
				"retry_after": retryAfter,
			})
			return
		}
		c.Next()
	}
}

// UserKeyFunc keys the limiter by authenticated user ID, falling back
// to the client IP for unauthenticated requests.
func UserKeyFunc(c *gin.Context) string {
	if id, exists := c.Get("user_id"); exists {
		if s, ok := id.(string); ok && s != "" {
			return s
		}
	}
	return c.ClientIP()
}

// RateLimitAPI returns a middleware with the general API limits
func RateLimitAPI() gin.HandlerFunc {
	return NewRateLimiter(APIRateLimitConfig()).Middleware()
}

// RateLimitAuth returns a middleware for auth endpoints
func RateLimitAuth() gin.HandlerFunc {
	return NewRateLimiter(AuthRateLimitConfig()).Middleware()
}

// RateLimitUpload returns a middleware for upload endpoints
func RateLimitUpload() gin.HandlerFunc {
	cfg := UploadRateLimitConfig()
	cfg.KeyFunc = UserKeyFunc
	return NewRateLimiter(cfg).Middleware()
}

// RateLimitPost returns a middleware for post creation
func RateLimitPost() gin.HandlerFunc {
	cfg := PostRateLimitConfig()
	cfg.KeyFunc = UserKeyFunc
	return NewRateLimiter(cfg).Middleware()
}

// RateLimitMessage returns a middleware for the message endpoint
func RateLimitMessage() gin.HandlerFunc {
	cfg := MessageRateLimitConfig()
	cfg.KeyFunc = UserKeyFunc
	return NewRateLimiter(cfg).Middleware()
}

// Smart rate limit wrappers that use Redis if available, else fall back
// to the in-memory fixed window. Redis availability is checked per
// request, so a client wired after startup takes over without a restart.

// RateLimitSmartAPI returns a middleware with API config that tries Redis first
func RateLimitSmartAPI() gin.HandlerFunc {
	return smartRateLimit("api", APIRateLimitConfig())
}

// RateLimitSmartAuth returns a middleware for auth with Redis support
func RateLimitSmartAuth() gin.HandlerFunc {
	return smartRateLimit("auth", AuthRateLimitConfig())
}
