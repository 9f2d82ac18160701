package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CORS opens the API to browser clients. Only real preflights (OPTIONS carrying
// Access-Control-Request-Method) are answered here; a plain OPTIONS request
// continues to its route so it can be captured.
func CORS(methods []string) fiber.Handler {
	allowMethods := strings.Join(methods, ", ")
	if allowMethods == "" {
		allowMethods = strings.Join(fiber.DefaultMethods, ", ")
	}

	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
		c.Set(fiber.HeaderAccessControlExposeHeaders, "Content-Length, Content-Type, "+RequestIDHeader)

		if c.Method() != fiber.MethodOptions || c.Get(fiber.HeaderAccessControlRequestMethod) == "" {
			return c.Next()
		}

		c.Set(fiber.HeaderAccessControlAllowMethods, allowMethods)
		if reqHeaders := c.Get(fiber.HeaderAccessControlRequestHeaders); reqHeaders != "" {
			// Webhook senders use arbitrary headers; echo whatever was asked for.
			c.Set(fiber.HeaderAccessControlAllowHeaders, reqHeaders)
		} else {
			c.Set(fiber.HeaderAccessControlAllowHeaders, "Origin, Content-Type, Accept, Authorization, "+RequestIDHeader)
		}
		c.Set(fiber.HeaderAccessControlMaxAge, "86400")
		return c.SendStatus(fiber.StatusNoContent)
	}
}
