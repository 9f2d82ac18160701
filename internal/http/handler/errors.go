package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/PowerHook/internal/app/repository"
	"github.com/sifan077/PowerHook/internal/app/service"
	"go.uber.org/zap"
)

type linkLoadError struct {
	StatusCode int
	Message    string
}

// mapLinkError translates service errors into HTTP responses. subject names the
// resource in messages, e.g. "Link" or "Webhook link".
func mapLinkError(logger *zap.Logger, err error, subject, code string) *linkLoadError {
	switch {
	case errors.Is(err, service.ErrInvalidCode):
		return &linkLoadError{StatusCode: fiber.StatusBadRequest, Message: "Invalid link code"}
	case errors.Is(err, repository.ErrLinkNotFound):
		return &linkLoadError{StatusCode: fiber.StatusNotFound, Message: subject + " not found"}
	case errors.Is(err, service.ErrLinkExpired):
		return &linkLoadError{StatusCode: fiber.StatusGone, Message: subject + " expired"}
	default:
		logger.Error("unexpected service error", zap.Error(err), zap.String("code", code))
		return &linkLoadError{StatusCode: fiber.StatusInternalServerError, Message: "internal server error"}
	}
}

func (e *linkLoadError) send(c *fiber.Ctx) error {
	return c.Status(e.StatusCode).JSON(fiber.Map{
		"error": e.Message,
	})
}

// ErrorHandler renders errors returned from handlers, and from Fiber itself
// (unknown route, oversized body), as JSON.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		message := "internal server error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
			message = fe.Message
		} else {
			logger.Error("unhandled error", zap.Error(err), zap.String("path", c.Path()))
		}

		return c.Status(status).JSON(fiber.Map{
			"error": message,
		})
	}
}
