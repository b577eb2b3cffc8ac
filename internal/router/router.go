package router

import (
	"time"

	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/plumehq/plume/backend/internal/cache"
	"github.com/plumehq/plume/backend/internal/handlers"
	"github.com/plumehq/plume/backend/internal/middleware"
	"github.com/plumehq/plume/backend/internal/notify"
	"github.com/plumehq/plume/backend/internal/realtime"
	"github.com/plumehq/plume/backend/internal/repositories"
	"github.com/plumehq/plume/backend/pkg/config"
)

// Per-endpoint cache TTLs. Short TTLs are the staleness bound; nothing
// invalidates on write.
const (
	feedTTL      = 30 * time.Second
	userPostsTTL = 60 * time.Second
	searchTTL    = 60 * time.Second
	postTTL      = 120 * time.Second
	profileTTL   = 120 * time.Second
)

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo) {
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, db *mongo.Database, cfg *config.Config, log *zap.Logger) {
	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	// --- Repositories ---
	userRepo := repositories.NewMongoUserRepository(db)
	postRepo := repositories.NewMongoPostRepository(db)
	commentRepo := repositories.NewMongoCommentRepository(db)
	notificationRepo := repositories.NewMongoNotificationRepository(db)

	// --- Realtime + notification pipeline ---
	hub := realtime.NewHub(log)
	engine := notify.NewEngine(notificationRepo, userRepo, hub, log)

	// --- Response cache ---
	store := cache.NewStore()
	store.StartJanitor(time.Minute, make(chan struct{}))

	// --- Handlers ---
	authHandler := handlers.NewAuthHandler(userRepo, cfg.JWTSecret)
	userHandler := handlers.NewUserHandler(userRepo, engine)
	postHandler := handlers.NewPostHandler(postRepo, userRepo, commentRepo, engine)
	commentHandler := handlers.NewCommentHandler(commentRepo, postRepo, engine)
	notificationHandler := handlers.NewNotificationHandler(notificationRepo)
	realtimeHandler := handlers.NewRealtimeHandler(hub, cfg.JWTSecret, log)

	// --- Unprotected routes for authentication ---
	authGroup := e.Group("/api/v1/auth")
	authHandler.RegisterAuthRoutes(authGroup)

	// --- Public reads; the viewer is picked up when a token is present ---
	public := e.Group("/api/v1")
	public.Use(middleware.OptionalJWTAuth(cfg.JWTSecret))
	public.GET("/posts", postHandler.GetFeed, cache.Middleware(store, feedTTL))
	public.GET("/posts/:id", postHandler.GetPost, cache.Middleware(store, postTTL))
	public.GET("/users/:id", userHandler.GetUser, cache.Middleware(store, profileTTL))
	public.GET("/users/:id/posts", postHandler.GetUserPosts, cache.Middleware(store, userPostsTTL))
	public.GET("/users/search", userHandler.SearchUsers, cache.Middleware(store, searchTTL))

	// --- Protected routes (require JWT authentication) ---
	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuth(cfg.JWTSecret))

	authHandler.RegisterMeRoute(api)

	api.PUT("/profile", userHandler.UpdateProfile)
	api.POST("/users/:id/follow", userHandler.FollowUser)
	api.DELETE("/users/:id/follow", userHandler.UnfollowUser)

	api.POST("/posts", postHandler.CreatePost)
	api.PUT("/posts/:id", postHandler.UpdatePost)
	api.DELETE("/posts/:id", postHandler.DeletePost)
	api.POST("/posts/:id/like", postHandler.LikePost)
	api.DELETE("/posts/:id/like", postHandler.UnlikePost)
	api.POST("/posts/:id/bookmark", userHandler.ToggleBookmark)

	api.POST("/posts/:id/comments", commentHandler.AddComment)
	api.DELETE("/comments/:id", commentHandler.DeleteComment)

	api.GET("/notifications", notificationHandler.GetNotifications)
	api.GET("/notifications/unread-count", notificationHandler.GetUnreadCount)
	api.PUT("/notifications/:id/read", notificationHandler.MarkAsRead)
	api.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)

	// --- Realtime channel ---
	e.GET("/ws", realtimeHandler.Serve)

	log.Info("all routes configured")
}
