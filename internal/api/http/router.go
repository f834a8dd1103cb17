package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/blog-service/internal/api/http/handlers"
	"github.com/spec-kit/blog-service/internal/auth"
	"github.com/spec-kit/blog-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health        *handlers.HealthHandler
	Auth          *handlers.AuthHandler
	Posts         *handlers.PostsHandler
	Categories    *handlers.CategoriesHandler
	Admin         *handlers.AdminHandler
	Authenticator *auth.Authenticator
	Authorizer    *auth.Authorizer
	// AuthRateLimit guards the credential endpoints; nil disables it.
	AuthRateLimit fiber.Handler
	Metrics       fiber.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", cfg.Metrics)
	}

	requireAuth := cfg.Authenticator.Handle
	api := app.Group("/api")

	limit := cfg.AuthRateLimit
	if limit == nil {
		limit = func(c *fiber.Ctx) error { return c.Next() }
	}
	authGroup := api.Group("/auth")
	authGroup.Post("/register", limit, cfg.Auth.Register)
	authGroup.Post("/login", limit, cfg.Auth.Login)
	authGroup.Get("/me", requireAuth, cfg.Auth.Me)
	authGroup.Put("/profile", requireAuth, cfg.Auth.UpdateProfile)
	authGroup.Put("/password", requireAuth, cfg.Auth.ChangePassword)

	posts := api.Group("/posts")
	posts.Get("/", cfg.Posts.List)
	posts.Get("/:id", cfg.Authenticator.Optional, cfg.Posts.Get)
	posts.Get("/:id/comments", cfg.Authenticator.Optional, cfg.Posts.ListComments)
	posts.Post("/", requireAuth, cfg.Posts.Create)
	posts.Put("/:id", requireAuth, cfg.Posts.Update)
	posts.Delete("/:id", requireAuth, cfg.Posts.Delete)
	posts.Post("/:id/comments", requireAuth, cfg.Posts.AddComment)
	posts.Delete("/:id/comments/:commentId", requireAuth, cfg.Posts.DeleteComment)

	categories := api.Group("/categories")
	categories.Get("/", cfg.Categories.List)
	categories.Get("/:id", cfg.Categories.Get)
	adminOnly := cfg.Authorizer.RequireRoleHandler(domain.RoleAdmin)
	categories.Post("/", requireAuth, adminOnly, cfg.Categories.Create)
	categories.Put("/:id", requireAuth, adminOnly, cfg.Categories.Update)
	categories.Delete("/:id", requireAuth, adminOnly, cfg.Categories.Delete)

	admin := api.Group("/admin")
	admin.Post("/identities/:id/deactivate", requireAuth, adminOnly, cfg.Admin.Deactivate)
}
