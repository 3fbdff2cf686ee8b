// Package api wires together all HTTP routes for the RADIUS gateway.
//
// Route grouping philosophy:
//   - The freeradius endpoints (/api/v1/freeradius/) authenticate with the
//     organization token carried in the query string or the Authorization
//     header. They sit on the NAS hot path and get their own rate budget.
//   - Tenant self-service routes (/api/v1/radius/organization/:slug/) are
//     dispatched by organization slug; an unknown slug 404s before any
//     credential is examined.
//   - Admin routes (/api/v1/admin/) require a staff JWT; every mutation is
//     recorded by the audit middleware.
package api

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/radius-gateway/radius-gateway/internal/api/account"
	"github.com/radius-gateway/radius-gateway/internal/api/admin"
	"github.com/radius-gateway/radius-gateway/internal/api/batch"
	"github.com/radius-gateway/radius-gateway/internal/api/freeradius"
	"github.com/radius-gateway/radius-gateway/internal/audit"
	"github.com/radius-gateway/radius-gateway/internal/config"
	"github.com/radius-gateway/radius-gateway/internal/crypto"
	"github.com/radius-gateway/radius-gateway/internal/db/repositories"
	"github.com/radius-gateway/radius-gateway/internal/jobs"
	"github.com/radius-gateway/radius-gateway/internal/mail"
	"github.com/radius-gateway/radius-gateway/internal/middleware"
	"github.com/radius-gateway/radius-gateway/internal/pdf"
	"github.com/radius-gateway/radius-gateway/internal/sms"
	"github.com/radius-gateway/radius-gateway/internal/storage"
	"github.com/radius-gateway/radius-gateway/internal/tokencache"

	// Import storage backends to register them
	_ "github.com/radius-gateway/radius-gateway/internal/storage/azure"
	_ "github.com/radius-gateway/radius-gateway/internal/storage/gcs"
	_ "github.com/radius-gateway/radius-gateway/internal/storage/local"
	_ "github.com/radius-gateway/radius-gateway/internal/storage/s3"
)

// BackgroundServices holds references to background jobs and resources that must
// be stopped during graceful shutdown. The caller (cmd/server) is responsible for
// calling Shutdown() when the process receives a termination signal.
type BackgroundServices struct {
	expiredUserSweeper *jobs.ExpiredUserSweeper
	rateLimiters       []*middleware.RateLimiter
	tokenCache         tokencache.Cache
	auditShipper       audit.Shipper
}

// Shutdown stops all background goroutines. It should be called after the HTTP
// server has been shut down so that in-flight requests are drained first.
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	if bg.expiredUserSweeper != nil {
		bg.expiredUserSweeper.Stop()
	}
	for _, rl := range bg.rateLimiters {
		rl.Stop()
	}
	if bg.auditShipper != nil {
		if err := bg.auditShipper.Close(); err != nil {
			slog.Warn("failed to close audit shipper", "error", err)
		}
	}
	if bg.tokenCache != nil {
		if err := bg.tokenCache.Close(); err != nil {
			slog.Warn("failed to close token cache", "error", err)
		}
	}
	slog.Info("all background services stopped")
}

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, db *sql.DB) (*gin.Engine, *BackgroundServices) {
	router := gin.New()

	// Initialize storage backend
	storageBackend, err := storage.NewStorage(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage backend: %v", err)
	}
	slog.Info("initialized storage backend", "backend", cfg.Storage.DefaultBackend)

	// Token cipher for organization tokens and user keys at rest
	tokenCipher, err := crypto.NewTokenCipherFromBase64(cfg.Crypto.TokenCipherKey)
	if err != nil {
		log.Fatalf("Failed to initialize token cipher: %v", err)
	}

	// Organization token cache: Redis when configured, in-process otherwise
	var tokenCache tokencache.Cache
	if cfg.Redis.Enabled {
		tokenCache, err = tokencache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Auth.TokenCacheTTL)
		if err != nil {
			log.Fatalf("Failed to connect to redis token cache: %v", err)
		}
		slog.Info("token cache: redis", "addr", cfg.Redis.Addr)
	} else {
		tokenCache = tokencache.NewMemoryCache(cfg.Auth.TokenCacheTTL)
		slog.Info("token cache: in-process memory")
	}

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	orgRepo := repositories.NewOrganizationRepository(db)
	settingsRepo := repositories.NewRadiusSettingsRepository(db)
	tokenRepo := repositories.NewUserTokenRepository(db)
	auditRepo := repositories.NewAuditRepository(db)

	// sqlx wrapper for the aggregate stats queries
	sqlxDB := sqlx.NewDb(db, "postgres")

	// External collaborators for account flows
	smsSender, err := sms.New(cfg.SMS.Backend)
	if err != nil {
		log.Fatalf("Failed to initialize SMS sender: %v", err)
	}
	mailSender, err := mail.New(&cfg.Mail)
	if err != nil {
		log.Fatalf("Failed to initialize mail sender: %v", err)
	}

	// Audit shipper (nil when audit forwarding is disabled)
	auditShipper, err := audit.NewShipperFromConfig(&cfg.Audit)
	if err != nil {
		log.Fatalf("Failed to initialize audit shipper: %v", err)
	}

	// Start the expired-user sweeper
	expiredUserSweeper := jobs.NewExpiredUserSweeper(userRepo, &cfg.Jobs)
	go expiredUserSweeper.Start(context.Background())

	// Handlers
	accountHandlers := account.NewHandlers(cfg, db, tokenCipher, mailSender, smsSender)
	batchHandlers := batch.NewHandlers(cfg, db, storageBackend, pdf.NewSheetRenderer())
	adminHandlers := admin.NewHandlers(cfg, db, tokenCipher, tokenCache)
	statsHandlers := admin.NewStatsHandler(sqlxDB)

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(LoggerMiddleware(cfg))
	router.Use(CORSMiddleware(cfg))
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig()))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	// Readiness check endpoint (includes storage backend probe)
	router.GET("/ready", readinessHandler(db, storageBackend))

	// API version
	router.GET("/version", versionHandler())

	// Rate limiters. Each surface gets its own budget; the freeradius
	// endpoints are hit once per NAS authentication and must not share a
	// bucket with interactive traffic.
	rl := cfg.Security.RateLimiting
	freeradiusLimiter := middleware.NewRateLimiter(rateLimitConfig(rl.FreeradiusPerMinute, rl.Burst))
	accountLimiter := middleware.NewRateLimiter(rateLimitConfig(rl.AccountPerMinute, rl.Burst))
	adminLimiter := middleware.NewRateLimiter(rateLimitConfig(rl.AdminPerMinute, rl.Burst))

	orgAuth := middleware.OrgAuthMiddleware(settingsRepo, orgRepo, tokenCache, tokenCipher)
	userTokenAuth := middleware.UserTokenAuthMiddleware(tokenRepo, userRepo, orgRepo, tokenCipher)

	apiV1 := router.Group("/api/v1")
	{
		// FreeRADIUS endpoints (organization token auth)
		freeradiusGroup := apiV1.Group("/freeradius")
		if rl.Enabled {
			freeradiusGroup.Use(middleware.RateLimitMiddleware(freeradiusLimiter))
		}
		freeradiusGroup.Use(orgAuth)
		{
			freeradiusGroup.POST("/authorize/", freeradius.AuthorizeHandler(db))
			freeradiusGroup.POST("/postauth/", freeradius.PostAuthHandler(db))
			freeradiusGroup.POST("/accounting/", freeradius.AccountingHandler(db))
			freeradiusGroup.GET("/accounting/", freeradius.ListAccountingHandler(db))
		}

		// Batch provisioning (organization token auth, same credential as
		// the freeradius endpoints but the interactive budget)
		batchGroup := apiV1.Group("/radius/batch")
		if rl.Enabled {
			batchGroup.Use(middleware.RateLimitMiddleware(accountLimiter))
		}
		batchGroup.Use(orgAuth)
		{
			batchGroup.POST("/", batchHandlers.CreateHandler())
		}

		// Slug-dispatched tenant routes. The dispatch middleware 404s on an
		// unknown or inactive slug before any credential is examined.
		slugGroup := apiV1.Group("/radius/organization/:slug")
		if rl.Enabled {
			slugGroup.Use(middleware.RateLimitMiddleware(accountLimiter))
		}
		slugGroup.Use(middleware.SlugDispatchMiddleware(orgRepo))
		{
			slugGroup.POST("/account/", accountHandlers.RegisterHandler())
			slugGroup.POST("/account/email/verify/", accountHandlers.VerifyEmailHandler())
			slugGroup.POST("/account/token/", accountHandlers.ObtainTokenHandler())
			slugGroup.POST("/account/password/reset/", accountHandlers.ResetPasswordHandler())
			slugGroup.POST("/account/password/reset/confirm/", accountHandlers.ConfirmResetHandler())

			// Routes below require the caller's user key
			authed := slugGroup.Group("")
			authed.Use(userTokenAuth)
			{
				authed.GET("/account/token/validate/", accountHandlers.ValidateTokenHandler())
				authed.GET("/account/session/", accountHandlers.ListSessionsHandler())
				authed.POST("/account/password/change/", accountHandlers.ChangePasswordHandler())
				authed.POST("/account/phone/token/", accountHandlers.CreatePhoneTokenHandler())
				authed.POST("/account/phone/verify/", accountHandlers.VerifyPhoneHandler())
				authed.POST("/account/phone/change/", accountHandlers.ChangePhoneHandler())

				// Credential sheet downloads are staff-only
				authed.GET("/batch/:batch_id/pdf/", middleware.RequireStaff(), batchHandlers.DownloadPDFHandler())
			}
		}

		// Admin endpoints (staff JWT)
		adminGroup := apiV1.Group("/admin")
		if rl.Enabled {
			adminGroup.Use(middleware.RateLimitMiddleware(adminLimiter))
		}
		{
			adminGroup.POST("/auth/login", adminHandlers.LoginHandler())

			protected := adminGroup.Group("")
			protected.Use(middleware.StaffJWTMiddleware(userRepo))
			protected.Use(middleware.AuditMiddlewareWithShipper(auditRepo, auditShipper))
			{
				protected.GET("/organizations", adminHandlers.ListOrganizationsHandler())
				protected.POST("/organizations", adminHandlers.CreateOrganizationHandler())
				protected.GET("/organizations/:org_id", adminHandlers.GetOrganizationHandler())
				protected.POST("/organizations/:org_id/radius-settings/rotate", adminHandlers.RotateTokenHandler())
				protected.GET("/stats/dashboard", statsHandlers.GetDashboardStats)
			}
		}
	}

	bg := &BackgroundServices{
		expiredUserSweeper: expiredUserSweeper,
		rateLimiters:       []*middleware.RateLimiter{freeradiusLimiter, accountLimiter, adminLimiter},
		tokenCache:         tokenCache,
		auditShipper:       auditShipper,
	}

	return router, bg
}

// rateLimitConfig builds a limiter budget from the configured per-minute
// rate, falling back to the default budget when unset.
func rateLimitConfig(perMinute, burst int) middleware.RateLimitConfig {
	c := middleware.DefaultRateLimitConfig()
	if perMinute > 0 {
		c.RequestsPerMinute = perMinute
	}
	if burst > 0 {
		c.BurstSize = burst
	}
	return c
}

// @Summary      Health check
// @Description  Returns the health status of the service, including database connectivity.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status: healthy, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "status: unhealthy, error: database connection failed"
// @Router       /health [get]
// healthCheckHandler returns the health status of the service
func healthCheckHandler(db *sql.DB) gin.HandlerFunc {
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

// @Summary      Readiness check
// @Description  Returns whether the service is ready to accept traffic. Checks database and storage backend connectivity.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "ready: true, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "ready: false, error: database not ready"
// @Router       /ready [get]
// readinessHandler returns the readiness status of the service.
// Unlike the liveness probe (/health), this also checks the storage backend so
// that a Kubernetes readiness gate fails when artifact downloads would error.
func readinessHandler(db *sql.DB, storageBackend storage.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := gin.H{}

		// Check database connection
		if err := db.Ping(); err != nil {
			checks["database"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "database not ready",
			})
			return
		}
		checks["database"] = "healthy"

		// Check storage backend — probe with a known-absent sentinel path.
		// Exists() exercises authentication and network connectivity without
		// creating any state.
		if _, err := storageBackend.Exists(c.Request.Context(), ".readiness-probe"); err != nil {
			checks["storage"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "storage backend not ready",
			})
			return
		}
		checks["storage"] = "healthy"

		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"checks": checks,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      API version
// @Description  Returns the current API version.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "version, api_version"
// @Router       /version [get]
// versionHandler returns the API version
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     "0.1.0",
			"api_version": "v1",
		})
	}
}

// LoggerMiddleware provides structured logging
func LoggerMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		// Log the request
		if cfg.Logging.Format == "json" {
			logJSON(c, latency, path, query)
		} else {
			logText(c, latency, path, query)
		}
	}
}

// logJSON logs a request as a JSON-structured slog record.
func logJSON(c *gin.Context, latency time.Duration, path, query string) {
	requestID, _ := c.Get(middleware.RequestIDKey)
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
		slog.String("request_id", fmt.Sprintf("%v", requestID)),
		slog.String("user_agent", c.Request.UserAgent()),
	)
}

// logText logs a request as a human-readable slog text record.
func logText(c *gin.Context, latency time.Duration, path, query string) {
	// reuse the same structured output; slog will emit text format when the global
	// handler is a TextHandler (configured in telemetry.SetupLogger).
	logJSON(c, latency, path, query)
}

// CORSMiddleware handles CORS
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
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
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
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
