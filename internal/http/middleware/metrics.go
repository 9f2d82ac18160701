package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	infraPrometheus "github.com/sifan077/PowerHook/internal/infra/prometheus"
)

// Metrics records request counts and latency per matched route.
func Metrics(m *infraPrometheus.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		// Route templates keep the label set bounded.
		m.ObserveHTTP(c.Method(), c.Route().Path, responseStatus(c, err), time.Since(start))

		return err
	}
}
