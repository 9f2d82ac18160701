package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/PowerHook/internal/app/service"
	"go.uber.org/zap"
)

// APIDeps groups dependencies required by API handlers.
type APIDeps struct {
	Logger         *zap.Logger
	LinkService    service.LinkService
	CaptureService service.CaptureService
	Now            func() time.Time
}

// APIHandler implements the link and request-log management endpoints.
type APIHandler struct {
	logger   *zap.Logger
	links    service.LinkService
	captures service.CaptureService
	now      func() time.Time
}

// NewAPIHandler creates an API handler with the provided dependencies.
func NewAPIHandler(deps APIDeps) *APIHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &APIHandler{
		logger:   logger,
		links:    deps.LinkService,
		captures: deps.CaptureService,
		now:      now,
	}
}

// Register wires API routes onto the /api/webhooks group.
func (h *APIHandler) Register(webhooks fiber.Router) {
	webhooks.Post("/links", h.CreateLink)
	webhooks.Get("/links", h.ListLinks)
	webhooks.Get("/links/:code", h.GetLink)
	webhooks.Delete("/links/:code", h.DeleteLink)
	webhooks.Get("/links/:code/requests", h.ListRequests)
	webhooks.Delete("/links/:code/requests", h.ClearRequests)
}

// CreateLink handles POST /api/webhooks/links
func (h *APIHandler) CreateLink(c *fiber.Ctx) error {
	link, err := h.links.CreateLink(userContext(c))
	if err != nil {
		h.logger.Error("failed to create link", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to create link",
		})
	}

	h.logger.Info("link created", zap.String("code", link.Code))
	return c.JSON(newLinkResponse(*link, h.now()))
}

// ListLinks handles GET /api/webhooks/links
func (h *APIHandler) ListLinks(c *fiber.Ctx) error {
	links, err := h.links.ListLinks(userContext(c))
	if err != nil {
		h.logger.Error("failed to list links", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list links",
		})
	}

	now := h.now()
	response := make([]LinkResponse, len(links))
	for i, link := range links {
		response[i] = newLinkResponse(link, now)
	}
	return c.JSON(response)
}

// GetLink handles GET /api/webhooks/links/:code
func (h *APIHandler) GetLink(c *fiber.Ctx) error {
	code := c.Params("code")

	link, err := h.links.GetLink(userContext(c), code)
	if err != nil {
		return mapLinkError(h.logger, err, "Link", code).send(c)
	}

	return c.JSON(newLinkResponse(*link, h.now()))
}

// DeleteLink handles DELETE /api/webhooks/links/:code
func (h *APIHandler) DeleteLink(c *fiber.Ctx) error {
	code := c.Params("code")

	if err := h.links.DeleteLink(userContext(c), code); err != nil {
		return mapLinkError(h.logger, err, "Link", code).send(c)
	}

	h.logger.Info("link deleted", zap.String("code", code))
	return c.JSON(MessageResponse{Message: "Link deleted successfully"})
}

// ListRequests handles GET /api/webhooks/links/:code/requests
func (h *APIHandler) ListRequests(c *fiber.Ctx) error {
	code := c.Params("code")

	requests, err := h.captures.ListRequests(userContext(c), code)
	if err != nil {
		return mapLinkError(h.logger, err, "Link", code).send(c)
	}

	response := make([]CapturedRequestResponse, len(requests))
	for i, req := range requests {
		response[i] = newCapturedRequestResponse(req)
	}
	return c.JSON(response)
}

// ClearRequests handles DELETE /api/webhooks/links/:code/requests
func (h *APIHandler) ClearRequests(c *fiber.Ctx) error {
	code := c.Params("code")

	if err := h.captures.ClearRequests(userContext(c), code); err != nil {
		return mapLinkError(h.logger, err, "Link", code).send(c)
	}

	return c.JSON(MessageResponse{Message: "Requests cleared successfully"})
}

func userContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx
}
