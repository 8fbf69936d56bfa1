// Package server contains the HTTP and WebSocket handlers of the forum API.
package server

import (
	"context"
	"errors"
	"time"

	"forum/internal/auth"
	"forum/internal/config"
	"forum/internal/database"
	"forum/internal/middleware"
	"forum/internal/models"
	"forum/internal/notifications"
	"forum/internal/repository"
	"forum/internal/service"
	"forum/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const serviceName = "forum-api"

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	storage        storage.FileStorage
	promMiddleware *fiberprometheus.FiberPrometheus
	userRepo       repository.UserRepository
	postRepo       repository.PostRepository
	commentRepo    repository.CommentRepository
	authService    *service.AuthService
	postService    *service.PostService
	commentService *service.CommentService
	hub            *notifications.Hub
	// notifier is set once StartRealtime has subscribed to Redis.
	notifier *notifications.Notifier
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, store storage.FileStorage) (*Server, error) {
	if cfg == nil || db == nil || store == nil {
		return nil, errors.New("server: config, database and storage are required")
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		storage:        store,
		promMiddleware: middleware.InitMetrics(serviceName),
		userRepo:       repository.NewUserRepository(db),
		postRepo:       repository.NewPostRepository(db),
		commentRepo:    repository.NewCommentRepository(db),
		hub:            notifications.NewHub(),
	}
	s.authService = service.NewAuthService(s.userRepo, tokens, 0)
	s.postService = service.NewPostService(s.postRepo)
	s.commentService = service.NewCommentService(s.commentRepo)

	return s, nil
}

// NewApp builds the Fiber app with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      serviceName,
		BodyLimit:    s.config.BodyLimitBytes(),
		ErrorHandler: s.ErrorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Media is embedded by front-ends served from other origins.
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	app.Use(middleware.StructuredLogger())

	// CORS runs before anything that can short-circuit so error responses
	// still carry the headers. Tokens travel in headers, not cookies.
	app.Use(cors.New(cors.Config{
		AllowOrigins: s.config.AllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		MaxAge:       86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	authPolicy := middleware.FailOpen
	if s.config.AuthRateLimitFailClosed {
		authPolicy = middleware.FailClosed
	}
	authLimit := func(name string) fiber.Handler {
		return middleware.RateLimit(s.redis, middleware.RateLimitOptions{
			Limit:  s.config.AuthRateLimit,
			Window: time.Minute,
			Name:   name,
			Policy: authPolicy,
			Env:    s.config.Env,
		})
	}
	app.Post("/register", authLimit("register"), s.Register)
	app.Post("/login", authLimit("login"), s.Login)

	authRequired := middleware.AuthRequired(s.authService)
	writeLimit := middleware.RateLimit(s.redis, middleware.RateLimitOptions{
		Limit:  s.config.WriteRateLimit,
		Window: time.Minute,
		Name:   "write",
		Env:    s.config.Env,
	})

	posts := app.Group("/posts")
	posts.Get("/", s.GetPosts)
	posts.Post("/", authRequired, writeLimit, s.CreatePost)
	posts.Get("/:id/likes", s.GetLikes)
	posts.Get("/:id/comments", s.GetComments)
	posts.Post("/:id/like", authRequired, writeLimit, s.LikePost)
	posts.Post("/:id/comment", authRequired, writeLimit, s.CreateComment)

	app.Get("/uploads/*", s.ServeUpload)

	app.Get("/ws", s.WebSocketUpgrade, s.WebsocketHandler())
}

// StartRealtime relays events through Redis so every replica's clients see
// them. Without Redis events stay local to this process.
func (s *Server) StartRealtime(ctx context.Context) error {
	if s.redis == nil {
		return nil
	}
	n := notifications.NewNotifier(s.redis)
	if err := s.hub.StartWiring(ctx, n); err != nil {
		return err
	}
	s.notifier = n
	return nil
}

// Shutdown closes every websocket client.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.hub.Shutdown(ctx)
}

// ErrorHandler renders errors that escaped the handlers in the standard
// error body.
func (s *Server) ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
	}

	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return models.RespondWithError(c, models.StatusFor(err), err)
	}

	middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err.Error())
	return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
}

// LivenessCheck handles liveness checks
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports whether the database, and Redis when configured,
// answer.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
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
			"storage":  s.storage.Backend(),
		},
		"time": time.Now(),
	})
}
