// Package backend provides the CulturalX API server.

// This package contains the main application entry point. The actual API
// documentation is organized into subpackages:

// - internal/handlers: HTTP request handlers for all API endpoints
// - internal/models: Data models and database schemas
// - internal/auth: Authentication and authorization services
// - internal/websocket: WebSocket server for presence, messaging and typing relays
// - internal/messaging: Direct message service shared by HTTP and WebSocket
// - internal/notify: Notification dispatcher
// - internal/moderation: Content scoring for the review queue
// - internal/database: Database connection and migrations
// - internal/middleware: HTTP middleware (rate limiting, metrics)
// - internal/cache: Redis client
// - internal/seed: Development and test data seeding

// See the individual package documentation for detailed API reference.
package backend
