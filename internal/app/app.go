// Package app assembles the blog server from configuration: storage, auth,
// services, middleware and routes.
package app

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/blog-service/internal/api/http"
	"github.com/spec-kit/blog-service/internal/api/http/handlers"
	"github.com/spec-kit/blog-service/internal/auth"
	"github.com/spec-kit/blog-service/internal/config"
	"github.com/spec-kit/blog-service/internal/events"
	"github.com/spec-kit/blog-service/internal/observability"
	"github.com/spec-kit/blog-service/internal/persistence"
	"github.com/spec-kit/blog-service/internal/repository"
	"github.com/spec-kit/blog-service/internal/repository/memory"
	"github.com/spec-kit/blog-service/internal/service"
	"github.com/spec-kit/blog-service/internal/worker"
)

// App is a fully wired server.
type App struct {
	Fiber   *fiber.App
	Metrics *observability.Metrics

	cfg      *config.Config
	logger   *zap.Logger
	postgres *persistence.Postgres
	redis    *persistence.Redis
	hasher   *auth.PasswordHasher
}

type repositories struct {
	identities repository.IdentityRepository
	posts      repository.PostRepository
	comments   repository.CommentRepository
	categories repository.CategoryRepository
}

// New connects dependencies and registers routes. Without a Postgres DSN the
// server runs on in-memory storage; without a Redis address the login
// throttle is kept in process.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger, Metrics: observability.NewMetrics()}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	a.postgres = pg

	pool := pg.PoolHandle()
	if pool != nil && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pool, logger); err != nil {
			a.Close()
			return nil, err
		}
	}

	var repos repositories
	if pool != nil {
		repos = repositories{
			identities: repository.NewIdentityRepository(pool),
			posts:      repository.NewPostRepository(pool),
			comments:   repository.NewCommentRepository(pool),
			categories: repository.NewCategoryRepository(pool),
		}
	} else {
		store := memory.NewStore()
		repos = repositories{
			identities: store.Identities(),
			posts:      store.Posts(),
			comments:   store.Comments(),
			categories: store.Categories(),
		}
	}

	a.redis = persistence.NewRedis(ctx, cfg.Redis, logger)
	var throttle auth.LoginThrottle
	if a.redis != nil {
		throttle = auth.NewRedisLoginThrottle(a.redis.Client, cfg.Auth.LoginMaxFailures, cfg.Auth.LoginFailureWindow)
	} else {
		throttle = auth.NewMemoryLoginThrottle(cfg.Auth.LoginMaxFailures, cfg.Auth.LoginFailureWindow, nil)
	}

	a.hasher, err = auth.NewPasswordHasher(cfg.Auth.BcryptCost, cfg.Auth.HashWorkers)
	if err != nil {
		a.Close()
		return nil, err
	}
	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, auth.WithIssuer(cfg.Auth.Issuer))
	if err != nil {
		a.Close()
		return nil, err
	}

	dispatcher := events.NewDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger))

	authorizer := auth.NewAuthorizer(a.Metrics)
	authenticator := auth.NewAuthenticator(tokens, repos.identities, logger, a.Metrics)

	authService := service.NewAuthService(service.AuthDependencies{
		Identities:          repos.identities,
		Hasher:              a.hasher,
		Tokens:              tokens,
		Authorizer:          authorizer,
		Throttle:            throttle,
		Dispatcher:          dispatcher,
		Logger:              logger,
		Metrics:             a.Metrics,
		BootstrapAdminEmail: cfg.Auth.BootstrapAdminEmail,
	})
	content := service.ContentDependencies{
		Posts:      repos.posts,
		Comments:   repos.comments,
		Categories: repos.categories,
		Authorizer: authorizer,
		Dispatcher: dispatcher,
		Logger:     logger,
	}
	postService := service.NewPostService(content)
	commentService := service.NewCommentService(content, postService)
	categoryService := service.NewCategoryService(content)

	a.Fiber = fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
		BodyLimit:             1 << 20,
	})
	httptransport.RegisterMiddlewares(a.Fiber, logger, a.Metrics, httptransport.MiddlewareConfig{
		Timeout:     cfg.App.RequestTimeout(),
		CORSOrigins: cfg.App.CORSOrigins,
	})
	httptransport.RegisterRoutes(a.Fiber, httptransport.RouteConfig{
		Health:        handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, a.postgres, a.redis),
		Auth:          handlers.NewAuthHandler(authService),
		Posts:         handlers.NewPostsHandler(postService, commentService),
		Categories:    handlers.NewCategoriesHandler(categoryService),
		Admin:         handlers.NewAdminHandler(authService),
		Authenticator: authenticator,
		Authorizer:    authorizer,
		AuthRateLimit: httptransport.RateLimit(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst),
		Metrics:       a.Metrics.Handler(),
	})
	return a, nil
}

// Listen serves HTTP on the configured address until Shutdown.
func (a *App) Listen() error {
	a.logger.Info("listening", zap.String("addr", a.cfg.App.Addr()), zap.String("env", a.cfg.App.Env))
	return a.Fiber.Listen(a.cfg.App.Addr())
}

// Shutdown drains in-flight requests and releases every dependency.
func (a *App) Shutdown(ctx context.Context) error {
	var err error
	if a.Fiber != nil {
		err = a.Fiber.ShutdownWithContext(ctx)
	}
	a.Close()
	return err
}

// Close releases dependencies without touching the HTTP server.
func (a *App) Close() {
	if a.hasher != nil {
		a.hasher.Close()
	}
	a.redis.Close()
	a.postgres.Close()
}
