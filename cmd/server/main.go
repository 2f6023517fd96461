package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/culturalx/backend/internal/auth"
	"github.com/culturalx/backend/internal/cache"
	"github.com/culturalx/backend/internal/database"
	"github.com/culturalx/backend/internal/handlers"
	"github.com/culturalx/backend/internal/logger"
	"github.com/culturalx/backend/internal/messaging"
	"github.com/culturalx/backend/internal/metrics"
	"github.com/culturalx/backend/internal/middleware"
	"github.com/culturalx/backend/internal/notify"
	"github.com/culturalx/backend/internal/seed"
	"github.com/culturalx/backend/internal/websocket"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	// Initialize structured logging
	if err := logger.Initialize(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FILE")); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	logger.Log.Info("=== CulturalX server starting ===")

	// Initialize Prometheus metrics
	metrics.Initialize()

	// Initialize database
	if err := database.Initialize(); err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer database.Close()

	// Run migrations
	if err := database.Migrate(); err != nil {
		logger.Log.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Seed the built-in city list (no-op when already present)
	seeder := seed.NewSeeder(database.DB)
	if err := seeder.SeedCities(); err != nil {
		logger.Log.Fatal("Failed to seed cities", zap.Error(err))
	}

	// Redis backs the distributed rate limiter; the server runs without
	// it on the in-process limiter
	redisClient, err := cache.NewRedisClient(
		os.Getenv("REDIS_HOST"),
		os.Getenv("REDIS_PORT"),
		os.Getenv("REDIS_PASSWORD"),
	)
	if err != nil {
		logger.Log.Warn("Redis not available, continuing without distributed rate limiting", zap.Error(err))
	} else {
		defer redisClient.Close()
	}

	// JWT secret is required: the WebSocket handshake and every API
	// request authenticate with it
	jwtSecret := []byte(os.Getenv("JWT_SECRET"))
	if len(jwtSecret) == 0 {
		logger.Log.Fatal("JWT_SECRET environment variable is required")
	}

	authService := auth.NewService(database.DB, jwtSecret)

	// Initialize WebSocket hub and handler
	wsHub := websocket.NewHub()
	go wsHub.Run()

	wsHandler := websocket.NewHandler(wsHub, database.DB, jwtSecret)

	// Presence registry tracks who is online and announces transitions
	presence := websocket.NewPresenceRegistry(wsHub, database.DB, websocket.DefaultPresenceConfig())
	wsHandler.SetPresenceRegistry(presence)
	presence.Start()
	defer presence.Stop()

	// Messaging service: shared by the WebSocket relay and the REST API
	messagingService := messaging.NewService(database.DB, wsHub)
	messagingService.RegisterWSHandlers(wsHub)

	// Typing indicators and presence queries
	websocket.RegisterTypingHandlers(wsHub)
	websocket.RegisterPresenceQuery(wsHub, presence)

	// Notification dispatcher: the single path for creating notifications
	dispatcher := notify.NewDispatcher(database.DB, wsHub)
	wsHandler.SetUnreadCounter(dispatcher)

	h := handlers.NewHandlers(database.DB, authService, messagingService, dispatcher)
	h.SetWebSocketHandler(wsHandler)

	// Setup Gin router
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	// CORS middleware
	config := cors.DefaultConfig()
	config.AllowOrigins = []string{"*"} // Configure properly for production
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	r.Use(cors.New(config))

	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(middleware.MetricsMiddleware())

	// Health and metrics endpoints
	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes
	api := r.Group("/api")
	api.Use(middleware.RateLimitSmartAPI())
	{
		// Authentication routes (public)
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", middleware.RateLimitSmartAuth(), h.Register)
			authGroup.POST("/login", middleware.RateLimitSmartAuth(), h.Login)
			authGroup.GET("/me", h.AuthMiddleware(), h.Me)
		}

		// User routes
		users := api.Group("/users")
		{
			users.Use(h.AuthMiddleware())
			users.GET("", h.GetUsers)
			users.PUT("/me", h.UpdateProfile)
			users.GET("/search", h.SearchUsers)
			users.GET("/blocked", h.GetBlockedUsers)
			users.GET("/:id", h.GetUser)
			users.GET("/:id/posts", h.GetUserPosts)
			users.GET("/:id/is-blocked", h.IsBlocked)
			users.POST("/:id/block", h.BlockUser)
			users.DELETE("/:id/block", h.UnblockUser)
		}

		// Connection (friend) routes
		connections := api.Group("/connections")
		{
			connections.Use(h.AuthMiddleware())
			connections.POST("/request", h.SendConnectionRequest)
			connections.GET("", h.GetConnections)
			connections.GET("/pending", h.GetPendingRequests)
			connections.PUT("/:id/accept", h.AcceptConnectionRequest)
			connections.PUT("/:id/reject", h.RejectConnectionRequest)
			connections.DELETE("/:id", h.RemoveConnection)
		}

		// Direct message routes
		messages := api.Group("/messages")
		{
			messages.Use(h.AuthMiddleware())
			messages.POST("", middleware.RateLimitMessage(), h.SendMessage)
			messages.GET("/conversations", h.GetConversations)
			messages.GET("/unread/count", h.GetUnreadMessageCount)
			messages.GET("/:userId", h.GetConversation)
		}

		// Notification routes
		notifications := api.Group("/notifications")
		{
			notifications.Use(h.AuthMiddleware())
			notifications.GET("", h.GetNotifications)
			notifications.GET("/unread/count", h.GetNotificationCount)
			notifications.PUT("/read-all", h.MarkAllNotificationsRead)
			notifications.PUT("/:id/read", h.MarkNotificationRead)
			notifications.DELETE("/:id", h.DeleteNotification)
		}

		// Post routes
		posts := api.Group("/posts")
		{
			posts.Use(h.AuthMiddleware())
			posts.POST("", middleware.RateLimitPost(), h.CreatePost)
			posts.GET("/feed", h.GetFeed)
			posts.GET("/feed/activity", h.GetActivityFeed)
			posts.GET("/search", h.SearchPosts)
			posts.GET("/saved", h.GetSavedPosts)
			posts.GET("/:id", h.GetPost)
			posts.PUT("/:id", h.UpdatePost)
			posts.DELETE("/:id", h.DeletePost)
			posts.POST("/:id/like", h.LikePost)
			posts.DELETE("/:id/like", h.UnlikePost)
			posts.POST("/:id/comments", h.CommentOnPost)
			posts.GET("/:id/comments", h.GetComments)
			posts.POST("/:id/save", h.SavePost)
			posts.DELETE("/:id/save", h.UnsavePost)
		}

		// Comment routes
		comments := api.Group("/comments")
		{
			comments.Use(h.AuthMiddleware())
			comments.PUT("/:id", h.UpdateComment)
			comments.DELETE("/:id", h.DeleteComment)
		}

		// City routes
		cities := api.Group("/cities")
		{
			cities.Use(h.AuthMiddleware())
			cities.GET("", h.GetCities)
			cities.GET("/nearest", h.GetNearestCities)
			cities.GET("/:id", h.GetCity)
			cities.GET("/:id/posts", h.GetCityPosts)
		}

		// Moderation routes
		moderation := api.Group("/moderation")
		{
			moderation.Use(h.AuthMiddleware(), h.RequireModerator())
			moderation.GET("/pending", h.GetPendingPosts)
			moderation.GET("/flagged", h.GetFlaggedPosts)
			moderation.POST("/posts/:id/approve", h.ApprovePost)
			moderation.POST("/posts/:id/reject", h.RejectPost)
		}

		// WebSocket routes
		ws := api.Group("/ws")
		{
			// WebSocket connection endpoint - auth via query param ?token=... or Authorization header
			ws.GET("", wsHandler.HandleWebSocket)
			ws.GET("/connect", wsHandler.HandleWebSocket)

			// Hub metrics (protected)
			ws.GET("/metrics", h.AuthMiddleware(), wsHandler.HandleMetrics)

			// Online status check (protected)
			ws.POST("/online", h.AuthMiddleware(), wsHandler.HandleOnlineStatus)
		}
	}

	// Server configuration
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info("🌍 CulturalX backend listening", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown WebSocket connections gracefully
	if err := wsHandler.Shutdown(ctx); err != nil {
		logger.Log.Warn("WebSocket shutdown warning", zap.Error(err))
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Log.Info("Server exited")
}
