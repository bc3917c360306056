package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/bankcards-service/internal/api/http/handlers"
	"github.com/spec-kit/bankcards-service/internal/auth"
	"github.com/spec-kit/bankcards-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Cards          *handlers.CardsHandler
	AdminUsers     *handlers.AdminUsersHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	v1 := app.Group("/v1")

	users := v1.Group("/users")
	users.Post("/registration", cfg.Users.Register)
	users.Post("/login", cfg.Users.Login)
	users.Post("/refresh-tokens", cfg.Users.Refresh)

	admin := auth.RequireAdmin()
	holder := auth.RequireRole(domain.RoleUser)
	anyRole := auth.RequireRole(domain.RoleUser, domain.RoleAdmin)

	cards := v1.Group("/cards", cfg.AuthMiddleware.Handle)
	cards.Post("/transfer", holder, cfg.Cards.Transfer)
	cards.Post("/", admin, cfg.Cards.Create)
	cards.Get("/", anyRole, cfg.Cards.List)
	cards.Get("/:id", anyRole, cfg.Cards.Get)
	cards.Patch("/:id", admin, cfg.Cards.Update)
	cards.Delete("/:id", admin, cfg.Cards.Delete)
	cards.Post("/:id/block", holder, cfg.Cards.RequestBlock)
	cards.Post("/:id/block-admin", admin, cfg.Cards.AdminBlock)
	cards.Post("/:id/activate", admin, cfg.Cards.AdminActivate)

	adminUsers := v1.Group("/admin/users", cfg.AuthMiddleware.Handle, admin)
	adminUsers.Get("/", cfg.AdminUsers.List)
	adminUsers.Post("/", cfg.AdminUsers.Create)
	adminUsers.Get("/:id", cfg.AdminUsers.Get)
	adminUsers.Patch("/:id", cfg.AdminUsers.Update)
	adminUsers.Delete("/:id", cfg.AdminUsers.Delete)
}

// NewApp builds a fiber app with middlewares and routes registered.
func NewApp(appName string, routes RouteConfig, mw func(*fiber.App)) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      appName,
		ErrorHandler: ErrorHandler,
	})
	if mw != nil {
		mw(app)
	}
	RegisterRoutes(app, routes)
	return app
}
