// Package api wires together all HTTP routes for the contact vault backend.
//
// Route grouping philosophy:
//   - /api/v1/auth/register and /api/v1/auth/login are unauthenticated but
//     carry a strict per-IP rate limit, since they are the only endpoints an
//     attacker can hit without a token.
//   - Everything else under /api/v1/ requires a valid JWT. The auth middleware
//     resolves the token to a live user and organization on every request, so
//     deactivating either takes effect immediately rather than at token expiry.
package api

import (
	"log"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/contactvault/contactvault/internal/audit"
	"github.com/contactvault/contactvault/internal/config"
	"github.com/contactvault/contactvault/internal/db/repositories"
	"github.com/contactvault/contactvault/internal/middleware"
	"github.com/contactvault/contactvault/internal/services"
)

// Version is the server version reported by /version. Overridden at build
// time via -ldflags.
var Version = "0.1.0"

// BackgroundServices holds resources that must be stopped during graceful
// shutdown. The caller (cmd/server) is responsible for calling Shutdown()
// after the HTTP server has drained in-flight requests.
type BackgroundServices struct {
	rateLimiters []*middleware.RateLimiter
	shippers     []audit.Shipper
}

// Shutdown stops the rate limiter cleanup goroutines and closes the audit
// shippers, flushing any buffered output.
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	for _, rl := range bg.rateLimiters {
		rl.Stop()
	}
	for _, s := range bg.shippers {
		if err := s.Close(); err != nil {
			slog.Error("failed to close audit shipper", "error", err)
		}
	}
	slog.Info("all background services stopped")
}

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, db *sqlx.DB) (*gin.Engine, *BackgroundServices) {
	router := gin.New()

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	orgRepo := repositories.NewOrganizationRepository(db)
	contactRepo := repositories.NewContactRepository(db)
	auditRepo := repositories.NewAuditRepository(db)

	// Initialize audit shippers from configuration
	shippers, err := audit.NewShippers(cfg.Audit.Shippers)
	if err != nil {
		log.Fatalf("Failed to initialize audit shippers: %v", err)
	}

	// Initialize services
	authService := services.NewAuthService(db, userRepo, orgRepo, auditRepo, cfg.Auth)
	contactService := services.NewContactService(db, contactRepo, auditRepo, shippers)

	// Initialize handlers
	accountHandler := NewAccountHandler(authService)
	contactHandler := NewContactHandler(contactService, cfg.Contacts)

	// Initialize rate limiters
	authRateLimiter := middleware.NewRateLimiter(middleware.AuthRateLimitConfig())
	generalRateLimiter := middleware.NewRateLimiter(middleware.GeneralRateLimitConfig(cfg.Security.RateLimiting))

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg))
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig()))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	// API version
	router.GET("/version", versionHandler())

	apiV1 := router.Group("/api/v1")
	{
		// Public authentication endpoints (no auth required, but strictly
		// rate limited per source IP)
		authGroup := apiV1.Group("/auth")
		if cfg.Security.RateLimiting.Enabled {
			authGroup.Use(middleware.RateLimitMiddleware(authRateLimiter))
		}
		{
			authGroup.POST("/register", accountHandler.Register)
			authGroup.POST("/login", accountHandler.Login)
		}

		// Authenticated-only endpoints
		authenticatedGroup := apiV1.Group("")
		authenticatedGroup.Use(middleware.AuthMiddleware(userRepo, orgRepo))
		if cfg.Security.RateLimiting.Enabled {
			authenticatedGroup.Use(middleware.RateLimitMiddleware(generalRateLimiter))
		}
		{
			authenticatedGroup.GET("/auth/profile", accountHandler.Profile)

			contactsGroup := authenticatedGroup.Group("/contacts")
			{
				contactsGroup.POST("", contactHandler.Create)
				contactsGroup.GET("", contactHandler.List)
				contactsGroup.GET("/:id", contactHandler.Get)
				contactsGroup.PUT("/:id", contactHandler.Update)
				contactsGroup.DELETE("/:id", contactHandler.Archive)
				contactsGroup.POST("/:id/notes", contactHandler.AddNote)
				contactsGroup.GET("/:id/audit-logs", contactHandler.AuditLogs)
			}
		}
	}

	bg := &BackgroundServices{
		rateLimiters: []*middleware.RateLimiter{authRateLimiter, generalRateLimiter},
		shippers:     shippers,
	}

	return router, bg
}

// healthCheckHandler returns the health status of the service
func healthCheckHandler(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check database connection
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// versionHandler returns the API version
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     Version,
			"api_version": "v1",
		})
	}
}

// LoggerMiddleware provides structured request logging via the global slog
// handler configured in telemetry.SetupLogger.
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		slog.LogAttrs(
			c.Request.Context(),
			slog.LevelInfo,
			"http request",
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("query", query),
			slog.Int("status", c.Writer.Status()),
			slog.Int("size", c.Writer.Size()),
			slog.Duration("latency", latency),
			slog.String("ip", c.ClientIP()),
			slog.String("request_id", c.GetString(middleware.RequestIDKey)),
			slog.String("user_agent", c.Request.UserAgent()),
		)
	}
}

// CORSMiddleware handles CORS
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	allowedMethods := "GET, POST, PUT, DELETE, OPTIONS"
	if len(cfg.Security.CORS.AllowedMethods) > 0 {
		allowedMethods = strings.Join(cfg.Security.CORS.AllowedMethods, ", ")
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		// Check if origin is allowed
		allowed := false
		for _, allowedOrigin := range cfg.Security.CORS.AllowedOrigins {
			if allowedOrigin == "*" || allowedOrigin == origin {
				allowed = true
				break
			}
		}

		if allowed {
			if origin == "" {
				c.Header("Access-Control-Allow-Origin", "*")
			} else {
				c.Header("Access-Control-Allow-Origin", origin)
			}
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", allowedMethods)
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
			c.Header("Access-Control-Max-Age", "3600")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
