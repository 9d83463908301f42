// Package server contains the fiber application: routes, page handlers and templates.
package server

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"yatube/internal/cache"
	"yatube/internal/config"
	"yatube/internal/middleware"
	"yatube/internal/repository"
	"yatube/internal/service"
	"yatube/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/template/html/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

//go:embed views
var viewsFS embed.FS

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	pageCache      *cache.PageCache
	images         *storage.Images
	userService    *service.UserService
	postService    *service.PostService
	commentService *service.CommentService
	feedService    *service.FeedService
	followService  *service.FollowService
}

// NewServerWithDeps creates a Server over already-initialized dependencies.
// rdb may be nil; the page cache and rate limits then pass requests through.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, rdb *redis.Client, store storage.ObjectStore) *Server {
	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	followRepo := repository.NewFollowRepository(db)

	images := storage.NewImages(store, cfg.MediaMaxUploadMB)

	return &Server{
		config:         cfg,
		db:             db,
		redis:          rdb,
		promMiddleware: middleware.InitMetrics("yatube"),
		pageCache:      cache.NewPageCache(rdb, cfg.PageCacheTTL),
		images:         images,
		userService:    service.NewUserService(userRepo),
		postService:    service.NewPostService(postRepo, groupRepo, commentRepo, images),
		commentService: service.NewCommentService(commentRepo, postRepo),
		feedService:    service.NewFeedService(postRepo, cfg.PageSize),
		followService:  service.NewFollowService(followRepo, userRepo),
	}
}

// newViews builds the template engine over the embedded views directory.
func (s *Server) newViews() *html.Engine {
	sub, err := fs.Sub(viewsFS, "views")
	if err != nil {
		panic(err)
	}
	engine := html.NewFileSystem(http.FS(sub), ".html")
	engine.AddFunc("thumb", s.images.ThumbURL)
	engine.AddFunc("media", s.images.URL)
	engine.AddFunc("date", func(t time.Time) string {
		return t.Format("02.01.2006 15:04")
	})
	return engine
}

// App builds the fiber application with middleware and routes.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName:      "Yatube",
		Views:        s.newViews(),
		ErrorHandler: s.errorHandler,
		BodyLimit:    (s.config.MediaMaxUploadMB + 1) * 1024 * 1024,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.Tracing())

	// Viewer is resolved before ContextMiddleware so logs carry the user id.
	app.Use(s.LoadViewer())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New(helmet.Config{
		CrossOriginEmbedderPolicy: "unsafe-none",
	}))
	app.Use(middleware.StructuredLogger())

	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/health") || strings.HasPrefix(c.Path(), s.mediaPrefix())
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).SendString("Too many requests, please try again later.")
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

	if s.config.MediaBackend == "local" {
		app.Static(s.mediaPrefix(), s.config.MediaRoot, fiber.Static{MaxAge: 3600})
	}

	// Only the anonymous global feed is cached.
	app.Get("/", s.pageCache.Handler(), s.Index)
	app.Get("/group/:slug/", s.GroupPosts)
	app.Get("/profile/:username/", s.Profile)
	app.Get("/posts/:id/", s.PostDetail)
	app.Get("/about/author/", s.AboutAuthor)
	app.Get("/about/tech/", s.AboutTech)

	auth := app.Group("/auth")
	auth.Get("/signup/", s.SignupPage)
	auth.Post("/signup/", middleware.RateLimit(s.redis, 5, 10*time.Minute, "signup"), s.Signup)
	auth.Get("/login/", s.LoginPage)
	auth.Post("/login/", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Get("/logout/", s.Logout)
	auth.Post("/logout/", s.Logout)

	authed := s.AuthRequired()
	commentLimit := middleware.RateLimit(s.redis, 30, time.Minute, "create_comment")
	app.Post("/posts/:id/", authed, commentLimit, s.AddComment)
	app.Post("/posts/:id/comment/", authed, commentLimit, s.AddComment)
	app.Get("/posts/:id/edit/", authed, s.EditPostPage)
	app.Post("/posts/:id/edit/", authed, s.EditPost)
	app.Get("/create/", authed, s.CreatePostPage)
	app.Post("/create/", authed, middleware.RateLimit(s.redis, 20, 10*time.Minute, "create_post"), s.CreatePost)
	app.Get("/follow/", authed, s.FollowIndex)
	app.Get("/profile/:username/follow/", authed, s.ProfileFollow)
	app.Post("/profile/:username/follow/", authed, s.ProfileFollow)
	app.Get("/profile/:username/unfollow/", authed, s.ProfileUnfollow)
	app.Post("/profile/:username/unfollow/", authed, s.ProfileUnfollow)

	// Anything unmatched renders the 404 page.
	app.Use(func(c *fiber.Ctx) error {
		return fiber.ErrNotFound
	})
}

func (s *Server) mediaPrefix() string {
	prefix := strings.TrimSuffix(s.config.MediaURL, "/")
	if prefix == "" || !strings.HasPrefix(prefix, "/") {
		return "/media"
	}
	return prefix
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports database and cache health. Redis is optional, so its absence
// degrades the status without failing the probe.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if sqlDB, err := s.db.DB(); err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	switch {
	case dbStatus != "healthy":
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	case redisStatus != "healthy":
		overall = "degraded"
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

// Start listens on the configured port until Shutdown.
func (s *Server) Start() error {
	app := s.App()
	middleware.Logger.Info(fmt.Sprintf("Server starting on port %s...", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully stops the listener and closes the database and Redis clients.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", "error", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", "error", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", "error", rerr)
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
