package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// SystemDeps groups dependencies of the discovery and health endpoints.
type SystemDeps struct {
	Version string
	Now     func() time.Time
}

// SystemHandler serves service discovery and liveness.
type SystemHandler struct {
	version string
	now     func() time.Time
}

func NewSystemHandler(deps SystemDeps) *SystemHandler {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	return &SystemHandler{version: version, now: now}
}

// Register wires the root and health routes.
func (h *SystemHandler) Register(router fiber.Router) {
	router.Get("/", h.Root)
	router.Get("/api/health", h.Health)
}

// Root handles GET /
func (h *SystemHandler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "PowerHook webhook capture server",
		"version": h.version,
		"endpoints": fiber.Map{
			"createLink":     "POST /api/webhooks/links",
			"getLinks":       "GET /api/webhooks/links",
			"getLink":        "GET /api/webhooks/links/:linkId",
			"deleteLink":     "DELETE /api/webhooks/links/:linkId",
			"getRequests":    "GET /api/webhooks/links/:linkId/requests",
			"clearRequests":  "DELETE /api/webhooks/links/:linkId/requests",
			"receiveWebhook": "ANY /api/webhooks/receive/:linkId",
			"health":         "GET /api/health",
		},
	})
}

// Health handles GET /api/health
func (h *SystemHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"timestamp": formatTime(h.now()),
	})
}
