// Package devserver is a local Quantrack backend for development and
// end-to-end tests. It serves the same routes the CLI talks to, backed by
// SQLite through GORM.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/hibiken/asynqmon"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/quantrack/quantrack/internal/auth"
	"github.com/quantrack/quantrack/internal/config"
	"github.com/quantrack/quantrack/internal/models"
	"github.com/quantrack/quantrack/internal/workers"
)

// Server represents the HTTP server
type Server struct {
	router    *gin.Engine
	db        *gorm.DB
	config    *config.Config
	logger    zerolog.Logger
	validator *validator.Validate
	mailer    workers.Mailer
	queue     *asynq.Client
	janitor   *cron.Cron
	version   string
	now       func() time.Time
}

// New creates a new server instance
func New(cfg *config.Config, zlog zerolog.Logger, version string) (*Server, error) {
	db, err := initDatabase(cfg, zlog)
	if err != nil {
		return nil, err
	}

	if err := models.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	auth.InitializeJWT(cfg.DevServer.JWTSecret)

	validate := validator.New()

	// Join codes are short uppercase hex strings
	validate.RegisterValidation("joincode", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		if value == "" || len(value) > 10 {
			return false
		}
		for _, char := range value {
			if !((char >= 'A' && char <= 'F') || (char >= '0' && char <= '9')) {
				return false
			}
		}
		return true
	})

	server := &Server{
		db:        db,
		config:    cfg,
		logger:    zlog,
		validator: validate,
		mailer:    workers.NewLogMailer(zlog),
		version:   version,
		now:       time.Now,
	}

	// With Redis configured, mail goes through the queue the worker drains
	if cfg.DevServer.RedisAddr != "" {
		server.queue = asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.DevServer.RedisAddr})
		server.mailer = workers.NewQueueMailer(server.queue, zlog)
	}

	server.setupRouter()

	return server, nil
}

// initDatabase opens the SQLite database and applies connection settings
func initDatabase(cfg *config.Config, zlog zerolog.Logger) (*gorm.DB, error) {
	const (
		maxOpenConns    = 8
		maxIdleConns    = 4
		connMaxLifetime = 300 // 5 minutes
		busyTimeout     = 5000
	)

	db, err := gorm.Open(sqlite.Open(cfg.DevServer.DatabaseURL), &gorm.Config{
		Logger: logger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			logger.Config{
				LogLevel:                  logger.Error,
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
	sqlDB.SetConnMaxLifetime(time.Duration(connMaxLifetime) * time.Second)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// In-memory databases reject WAL; a warning is enough there
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
		AllowOrigins:     []string{s.config.DevServer.AllowedOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	s.router.GET("/health", s.healthCheck)

	if s.config.DevServer.RedisAddr != "" {
		monitor := asynqmon.New(asynqmon.Options{
			RootPath:     "/asynqmon",
			RedisConnOpt: asynq.RedisClientOpt{Addr: s.config.DevServer.RedisAddr},
		})
		s.router.Any("/asynqmon/*any", gin.WrapH(monitor))
	}

	api := s.router.Group("/api")

	// Public endpoints
	api.POST("/token/", s.login)
	api.POST("/token/refresh/", s.refreshToken)
	api.POST("/register/", s.register)
	api.POST("/verify-email/", s.verifyEmail)
	api.POST("/password-reset/", s.requestPasswordReset)
	api.POST("/password-reset-confirm/", s.confirmPasswordReset)
	api.POST("/register-organization/", s.registerOrganization)

	authed := api.Group("")
	authed.Use(JWTAuthMiddleware(s.db, s.logger))
	{
		authed.GET("/authenticated/", s.whoAmI)
		authed.POST("/logout/", s.logout)
		authed.POST("/resend-verification-code/", s.resendVerificationCode)
	}

	admin := authed.Group("")
	admin.Use(RoleMiddleware(models.RoleAdmin, s.logger))
	{
		admin.PATCH("/update-organization/", s.updateOrganization)

		admin.GET("/my-admin-data/", s.myAdminData)
		admin.PATCH("/update-admin-data/", s.updateAdminData)

		admin.GET("/get-my-events-as-admin/", s.eventsAsAdmin)
		admin.POST("/create-event/", s.createEvent)
		admin.PATCH("/update-event/:id/", s.updateEvent)
		admin.DELETE("/delete-event/:id/", s.deleteEvent)

		admin.GET("/list_pending_members/", s.pendingMembers)
		admin.PATCH("/approve_membership/:id/", s.approveMembership)
		admin.PATCH("/reject_membership/:id/", s.rejectMembership)

		admin.GET("/participations-as-admin/:id/", s.participationsAsAdmin)
		admin.PATCH("/participations/:id/complete/", s.completeParticipation)

		admin.GET("/analytics/my-admin-stats/", s.myAdminStats)
		admin.GET("/analytics/volunteer-stats/", s.volunteerStats)
		admin.GET("/analytics/event-participation-stats/", s.eventParticipationStats)
		admin.GET("/analytics/my-organization-stats/", s.myOrganizationStats)

		admin.GET("/system/info", s.getSystemInfo)
	}

	volunteer := authed.Group("")
	volunteer.Use(RoleMiddleware(models.RoleVolunteer, s.logger))
	{
		volunteer.POST("/organizations/join/", s.joinOrganization)
		volunteer.POST("/organizations/quit/", s.quitOrganization)

		volunteer.GET("/my-volunteer-data/", s.myVolunteerData)
		volunteer.PATCH("/update-volunteer-data/", s.updateVolunteerData)

		volunteer.GET("/get-my-events-as-volunteer/", s.eventsAsVolunteer)
		volunteer.POST("/events/:id/join/", s.joinEvent)
		volunteer.GET("/participations-as-volunteer/", s.participationsAsVolunteer)

		volunteer.GET("/analytics/my-volunteer-stats/", s.myVolunteerStats)
	}

	// Open to either role; event and certificate handlers scope by role
	authed.GET("/events/:id/", s.getEvent)
	authed.GET("/get-admin-data/:id/", s.adminData)
	authed.GET("/get-volunteer-data/:id/", s.volunteerData)
	authed.GET("/generate-certificate/:id/", s.generateCertificate)
	authed.POST("/generate-certificate/:id/", s.generateCertificate)
}

// loggingMiddleware creates a custom logging middleware using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"timestamp": time.Now().UTC(),
		"service":   "quantrack-devserver",
		"version":   s.version,
	})
}

// Handler returns the router for use with httptest or a custom listener
func (s *Server) Handler() http.Handler {
	return s.router
}

// DB returns the database connection
func (s *Server) DB() *gorm.DB {
	return s.db
}

// Close releases the queue client and the database connection
func (s *Server) Close() error {
	if s.queue != nil {
		if err := s.queue.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("Error closing queue client")
		}
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Start serves HTTP until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.DevServer.Addr,
		Handler:           s.router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	janitor, err := workers.StartJanitor(s.config.DevServer.CleanupSchedule, s.db, s.logger)
	if err != nil {
		return err
	}
	s.janitor = janitor
	defer func() { <-s.janitor.Stop().Done() }()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", srv.Addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	if err := s.Close(); err != nil {
		s.logger.Error().Err(err).Msg("Error closing database")
	}

	s.logger.Info().Msg("Server shutdown complete")
	return nil
}

// today returns the current date as YYYY-MM-DD
func (s *Server) today() string {
	return s.now().UTC().Format(dateLayout)
}

const dateLayout = "2006-01-02"
