package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/turklawai/auth-service/internal/api/http/handlers"
	"github.com/turklawai/auth-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/logout", cfg.Auth.Logout)
	authGroup.Post("/password/reset/request", cfg.Auth.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Auth.ConfirmPasswordReset)

	protected := authGroup.Group("", cfg.AuthMiddleware.Handle)
	protected.Get("/user", cfg.Auth.CurrentUser)
	protected.Get("/usage", cfg.Auth.Usage)
	protected.Post("/usage/consume", auth.RequireActive(), cfg.Auth.ConsumeQuota)
	protected.Post("/password/change", auth.RequireActive(), cfg.Auth.ChangePassword)
}
