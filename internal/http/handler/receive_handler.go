package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/PowerHook/internal/app/model"
	"github.com/sifan077/PowerHook/internal/app/service"
	"github.com/sifan077/PowerHook/internal/http/util"
	"go.uber.org/zap"
)

// ReceiveDeps groups dependencies required by the ingest handler.
type ReceiveDeps struct {
	Logger         *zap.Logger
	CaptureService service.CaptureService
	// Limiter runs in front of capture when set.
	Limiter fiber.Handler
}

// ReceiveHandler captures webhook deliveries of any method.
type ReceiveHandler struct {
	logger   *zap.Logger
	captures service.CaptureService
	limiter  fiber.Handler
}

// NewReceiveHandler creates an ingest handler.
func NewReceiveHandler(deps ReceiveDeps) *ReceiveHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReceiveHandler{
		logger:   logger,
		captures: deps.CaptureService,
		limiter:  deps.Limiter,
	}
}

// Register wires the ingest routes onto the /api/webhooks group.
func (h *ReceiveHandler) Register(router fiber.Router) {
	handlers := []fiber.Handler{h.Receive}
	if h.limiter != nil {
		handlers = []fiber.Handler{h.limiter, h.Receive}
	}
	router.All("/receive/:code", handlers...)
	router.All("/receive/:code/*", handlers...)
}

// Receive handles ANY /api/webhooks/receive/:code[/*]
func (h *ReceiveHandler) Receive(c *fiber.Ctx) error {
	code := strings.Clone(c.Params("code"))

	body, err := h.readBody(c)
	if err != nil {
		h.logger.Warn("malformed request body",
			zap.String("code", code),
			zap.String("content_type", c.Get(fiber.HeaderContentType)),
			zap.Error(err),
		)
		body = util.RawBody(c.BodyRaw())
	}

	input := service.CaptureInput{
		Method:    strings.Clone(c.Method()),
		Path:      subPath(c),
		Headers:   util.FlattenHeaders(c.GetReqHeaders()),
		Query:     util.CloneMap(c.Queries()),
		Body:      body,
		IPAddress: strings.Clone(c.IP()),
	}

	req, err := h.captures.Capture(userContext(c), code, input)
	if err != nil {
		return mapLinkError(h.logger, err, "Webhook link", code).send(c)
	}

	h.logger.Debug("webhook captured",
		zap.String("code", code),
		zap.String("method", req.Method),
		zap.String("id", req.ID),
		zap.Int("body_size", req.Body.Size()),
	)

	return c.JSON(ReceiveResponse{
		Message:   "Webhook received successfully",
		RequestID: req.ID,
	})
}

func (h *ReceiveHandler) readBody(c *fiber.Ctx) (model.Body, error) {
	contentType := c.Get(fiber.HeaderContentType)
	raw := c.BodyRaw()

	if util.IsMultipart(contentType) && len(raw) > 0 {
		form, err := c.MultipartForm()
		if err != nil {
			return model.Body{}, err
		}
		return util.MultipartBody(form, len(raw)), nil
	}
	return util.ParseBody(contentType, raw), nil
}

func subPath(c *fiber.Ctx) string {
	rest := c.Params("*")
	if rest == "" {
		return ""
	}
	return "/" + strings.Clone(rest)
}
