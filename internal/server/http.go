// Package server builds the HTTP application: routes, middleware, and the
// wiring between handlers.
package server

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	authhandler "chat-platform/backend/internal/auth/handler"
	"chat-platform/backend/internal/health"
	realtimehandler "chat-platform/backend/internal/realtime/handler"
	"chat-platform/backend/internal/server/middleware"
	"chat-platform/backend/internal/token"
)

// Deps holds the handlers and services the HTTP app is built from.
type Deps struct {
	Auth     *authhandler.Handler
	Realtime *realtimehandler.Handler
	Health   *health.Handler
	Tokens   *token.Issuer
}

// New builds the fiber application with all routes mounted under /api/v1
// and /healthz at the root.
func New(appName string, deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{AppName: appName})

	app.Use(recover.New())
	app.Use(middleware.Telemetry(appName))
	app.Use(middleware.ClientIP())

	requireAuth := middleware.RequireAuth(deps.Tokens)

	v1 := app.Group("/api/v1")
	deps.Auth.RegisterRoutes(v1, requireAuth)
	deps.Realtime.RegisterRoutes(v1, requireAuth)

	app.Get("/healthz", deps.Health.Check)
	return app
}
