// Package server contains the HTTP handlers and route setup for the
// application's web pages.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"bibleblock/internal/config"
	"bibleblock/internal/database"
	"bibleblock/internal/mailer"
	"bibleblock/internal/middleware"
	"bibleblock/internal/observability"
	"bibleblock/internal/pictures"
	"bibleblock/internal/repository"
	appsession "bibleblock/internal/session"
	"bibleblock/internal/token"
	"bibleblock/web"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/template/html/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	store          *session.Store
	promMiddleware *fiberprometheus.FiberPrometheus
	userRepo       repository.UserRepository
	postRepo       repository.PostRepository
	resetTokens    *token.ResetIssuer
	mail           mailer.Sender
	pictures       *pictures.Store
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisURL})
	}

	var mail mailer.Sender
	if cfg.ResendAPIKey != "" {
		mail = mailer.NewResendSender(cfg.ResendAPIKey)
	} else {
		mail = &mailer.LogSender{Logger: middleware.Logger}
	}

	srv := NewServerWithDeps(cfg, db, redisClient, mail)
	// Registered here rather than in NewServerWithDeps: the collectors go into
	// the default registry, which tolerates only one registration per process.
	srv.promMiddleware = fiberprometheus.New("bibleblock")
	return srv, nil
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis itself.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, mail mailer.Sender) *Server {
	return &Server{
		config:      cfg,
		db:          db,
		redis:       redisClient,
		store:       appsession.NewStore(redisClient),
		userRepo:    repository.NewUserRepository(db),
		postRepo:    repository.NewPostRepository(db),
		resetTokens: token.NewResetIssuer(cfg.SecretKey, cfg.ResetTokenTTL()),
		mail:        mail,
		pictures:    pictures.NewStore(cfg.UploadDir),
	}
}

// NewApp builds the Fiber app with views, middleware and routes configured.
func (s *Server) NewApp() *fiber.App {
	engine := html.NewFileSystem(http.FS(web.Templates()), ".html")
	engine.AddFunc("datefmt", func(t time.Time) string {
		return t.Format("January 2, 2006")
	})

	app := fiber.New(fiber.Config{
		AppName:      "BibleBlock",
		Views:        engine,
		BodyLimit:    8 * 1024 * 1024,
		ErrorHandler: s.handleError,
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for correlation
	app.Use(requestid.New())

	// Context middleware to propagate request ID and user ID into slog
	app.Use(middleware.ContextMiddleware())

	if s.config.TracingEnabled {
		app.Use(observability.TracingMiddleware())
	}

	if s.promMiddleware != nil {
		app.Use(s.promMiddleware.Middleware)
	}

	// Structured logging (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	// Uploaded profile pictures and the default image
	app.Static("/static", filepath.Dir(s.config.UploadDir))

	// Public pages
	app.Get("/", s.Home)
	app.Get("/home", s.Home)
	app.Get("/about", s.About)
	app.Get("/post/:id<int>", s.ShowPost)
	app.Get("/user/:username", s.UserPosts)

	// Credentials, rate limited per IP outside dev/test
	app.Get("/register", s.RegisterPage)
	app.Post("/register", middleware.RateLimit(s.redis, 5, 10*time.Minute, "register"), s.Register)
	app.Get("/login", s.LoginPage)
	app.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)

	// Password reset
	app.Get("/reset_password", s.ResetRequestPage)
	app.Post("/reset_password", middleware.RateLimit(s.redis, 5, 10*time.Minute, "reset"), s.ResetRequest)
	app.Get("/reset_password/:token", s.ResetPasswordPage)
	app.Post("/reset_password/:token", s.ResetPassword)

	// Authenticated pages
	app.Get("/logout", s.LoginRequired(), s.Logout)
	app.Get("/account", s.LoginRequired(), s.AccountPage)
	app.Post("/account", s.LoginRequired(), s.UpdateAccount)
	app.Get("/post/new", s.LoginRequired(), s.NewPostPage)
	app.Post("/post/new", s.LoginRequired(), s.CreatePost)
	app.Get("/post/:id<int>/update", s.LoginRequired(), s.EditPostPage)
	app.Post("/post/:id<int>/update", s.LoginRequired(), s.UpdatePost)
	app.Post("/post/:id<int>/delete", s.LoginRequired(), s.DeletePost)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		// Sessions fall back to in-memory storage without Redis.
		redisStatus = "disabled"
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start starts the server
func (s *Server) Start() error {
	app := s.NewApp()
	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
