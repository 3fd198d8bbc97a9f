// Package health serves readiness for Kubernetes, load balancers, and CI.
package health

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// Pinger is the database health check dependency.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handler serves GET /healthz.
type Handler struct {
	db Pinger
}

// NewHandler returns a health handler; db may be nil when running without a database.
func NewHandler(db Pinger) *Handler {
	return &Handler{db: db}
}

// Check reports ok when the process is up and the database answers a ping.
func (h *Handler) Check(c *fiber.Ctx) error {
	if h.db != nil {
		if err := h.db.PingContext(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded"})
		}
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
