package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/token-auth-service/internal/api/http/handlers"
	"github.com/spec-kit/token-auth-service/internal/auth"
	"github.com/spec-kit/token-auth-service/internal/config"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Metrics *handlers.MetricsHandler
	Auth    *handlers.AuthHandler
	System  *handlers.SystemHandler

	// TokenAuth runs on every request before the policy.
	TokenAuth *auth.Pipeline
	// Login runs on the login processing path.
	Login *auth.Pipeline
	// Refresh runs on the login success path.
	Refresh *auth.Pipeline
	Policy  *Policy

	Security  config.SecurityConfig
	StaticDir string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Use(cfg.TokenAuth.Handle)
	app.Use(cfg.Policy.Handle)

	management := app.Group("/management")
	management.Get("/health", cfg.Health.Ready)
	management.Get("/health/live", cfg.Health.Live)
	management.Get("/metrics", cfg.Metrics.Snapshot)
	management.Get("/selfcheck", cfg.System.SelfCheck)

	sec := cfg.Security
	app.Get(sec.LoginPath, cfg.Auth.LoginPage)
	app.Post(sec.LoginProcessingPath, cfg.Login.Handle, cfg.Auth.Success)
	app.Get(sec.LoginSuccessPath, cfg.Refresh.Handle, cfg.Auth.Success)
	app.Post(sec.LoginSuccessPath, cfg.Refresh.Handle, cfg.Auth.Success)
	app.Get(sec.LogoutPath, cfg.Auth.Logout)
	app.Post(sec.LogoutPath, cfg.Auth.Logout)
	app.Get("/auth/info", cfg.Auth.Info)
	app.Get("/auth", cfg.Auth.Info)

	app.Get("/api/me", auth.RequireAuthenticated(), cfg.Auth.Me)
	app.Get("/system/identity", cfg.System.Identity)

	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir)
	}
}
