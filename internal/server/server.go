// Package server wires the HTTP surface: cookie resolution, the access gate,
// and the signup/login/logout flows.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/roostd-dev/roostd/internal/auth"
	"github.com/roostd-dev/roostd/internal/config"
	"github.com/roostd-dev/roostd/internal/credentials"
	"github.com/roostd-dev/roostd/internal/gate"
	"github.com/roostd-dev/roostd/internal/models"
	"github.com/roostd-dev/roostd/internal/store"
)

// Server represents the HTTP server
type Server struct {
	router      *gin.Engine
	db          *gorm.DB
	config      *config.Config
	logger      zerolog.Logger
	users       store.UserStore
	userCache   *store.CachedStore // nil unless the cache policy is enabled
	credentials *credentials.Service
	tokens      *auth.TokenCodec
	gate        *gate.Gate
	limiter     *auth.LoginLimiter
	cron        *cron.Cron
	version     string
}

// New creates a new server instance
func New(cfg *config.Config, zlog zerolog.Logger, version string) (*Server, error) {
	db, err := initDatabase(cfg, zlog)
	if err != nil {
		return nil, err
	}

	if err := models.AutoMigrate(db); err != nil {
		return nil, err
	}

	// Signing keys come from configuration, never the database or the code.
	keyring, err := auth.NewKeyring(cfg.Session.Keys, cfg.Session.ActiveKeyID)
	if err != nil {
		return nil, err
	}
	tokens := auth.NewTokenCodec(keyring, cfg.Session.TokenTTL)

	// The store is wrapped in the cache decorator only when the policy is
	// explicitly enabled; default is a fresh lookup per gated request.
	var users store.UserStore = store.NewGormStore(db)
	var userCache *store.CachedStore
	if cfg.Session.UserCacheTTL > 0 {
		userCache = store.NewCachedStore(users, cfg.Session.UserCacheTTL)
		users = userCache
		zlog.Info().Dur("ttl", cfg.Session.UserCacheTTL).Msg("Access-gate user cache enabled")
	}

	server := &Server{
		db:          db,
		config:      cfg,
		logger:      zlog,
		users:       users,
		userCache:   userCache,
		credentials: credentials.NewService(users, zlog),
		tokens:      tokens,
		gate:        gate.New(users, zlog),
		limiter:     auth.NewLoginLimiter(),
		cron:        cron.New(),
		version:     version,
	}

	// Periodic janitor for the login limiter's attempt map
	if _, err := server.cron.AddFunc("@every 5m", server.limiter.Sweep); err != nil {
		return nil, fmt.Errorf("failed to schedule limiter sweep: %w", err)
	}

	server.setupRouter()

	return server, nil
}

// initDatabase initializes the database connection with production settings
func initDatabase(cfg *config.Config, zlog zerolog.Logger) (*gorm.DB, error) {
	const (
		maxOpenConns    = 4
		maxIdleConns    = 2
		connMaxLifetime = 300 * time.Second
		busyTimeout     = 5000
	)

	db, err := gorm.Open(sqlite.Open(cfg.Database.URL), &gorm.Config{
		TranslateError: true,
		Logger: gormlogger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			gormlogger.Config{
				LogLevel:                  gormlogger.Error,
				IgnoreRecordNotFoundError: true,
				SlowThreshold:             200 * time.Millisecond,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// WAL first for concurrent readers during login bursts
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout),
		"PRAGMA foreign_keys=1",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			zlog.Warn().Str("pragma", pragma).Err(err).Msg("Failed to apply pragma")
		}
	}

	return db, nil
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()

	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	s.router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Cookie resolution runs on every request before dispatch
	s.router.Use(s.authContextMiddleware())

	// Health check endpoint (no auth required)
	s.router.GET("/health", s.healthCheck)

	// Public pages and auth flows
	s.router.GET("/", s.home)
	s.router.GET("/signup", s.showSignup)
	s.router.POST("/signup", s.signup)
	s.router.GET("/login", s.showLogin)
	s.router.POST("/login", s.login)
	s.router.DELETE("/logout", s.logout)

	// Access-gated routes: user existence re-confirmed per request
	protected := s.router.Group("/")
	protected.Use(s.requireUser())
	{
		protected.GET("/dashboard", s.dashboard)
		protected.DELETE("/logout/all", s.logoutAll)
	}
}

// loggingMiddleware creates a custom logging middleware using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start)

		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

// @Router /health [get]
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"timestamp": time.Now().UTC(),
		"service":   "roostd",
		"version":   s.version,
	})
}

// Handler returns the full request handler, including the method-override
// wrapper that runs before routing. Tests drive this directly.
func (s *Server) Handler() http.Handler {
	return methodOverride(s.router)
}

// GetDB returns the database connection
func (s *Server) GetDB() *gorm.DB {
	return s.db
}

// Start starts the HTTP server and blocks until shutdown
func (s *Server) Start() error {
	s.cron.Start()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	srv := &http.Server{
		Addr:              s.config.Server.ListenAddr,
		Handler:           s.Handler(),
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		s.logger.Info().Str("addr", s.config.Server.ListenAddr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	<-sigChan
	s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")

	s.cron.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	// Close database connection to flush WAL writes
	if sqlDB, err := s.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			s.logger.Error().Err(err).Msg("Error closing database")
		}
	}

	s.logger.Info().Msg("Server shutdown complete")
	return nil
}
