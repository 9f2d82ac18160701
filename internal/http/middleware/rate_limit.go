package middleware

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	MaxRequests int
	Window      time.Duration
	KeyPrefix   string
}

// DefaultRateLimitConfig returns default rate limit configuration
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxRequests: 120,
		Window:      time.Minute,
		KeyPrefix:   "powerhook:ratelimit",
	}
}

func (cfg RateLimitConfig) withDefaults() RateLimitConfig {
	def := DefaultRateLimitConfig()
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = def.MaxRequests
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = def.KeyPrefix
	}
	return cfg
}

// RateLimit creates a fixed-window rate limiter shared through Redis, keyed by
// client IP.
func RateLimit(redisClient *redis.Client, config RateLimitConfig, logger *zap.Logger) fiber.Handler {
	config = config.withDefaults()
	return func(c *fiber.Ctx) error {
		ctx := c.Context()
		key := config.KeyPrefix + ":" + c.IP()

		// Every INCR carries EXPIRE NX so no counter is ever left without a TTL.
		pipe := redisClient.Pipeline()
		incr := pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, config.Window)
		if _, err := pipe.Exec(ctx); err != nil {
			logger.Error("rate limit redis error", zap.Error(err))
			// Fail open: allow request if Redis is unavailable
			return c.Next()
		}
		result := incr.Val()

		remaining := config.MaxRequests - int(result)
		c.Set("X-RateLimit-Limit", strconv.Itoa(config.MaxRequests))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(max(0, remaining)))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(config.Window).Unix(), 10))

		if result > int64(config.MaxRequests) {
			return tooManyRequests(c)
		}

		return c.Next()
	}
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LocalRateLimit is the single-process fallback used when Redis is not
// configured: a token bucket per client IP refilled at MaxRequests per Window.
func LocalRateLimit(config RateLimitConfig) fiber.Handler {
	config = config.withDefaults()
	every := rate.Every(config.Window / time.Duration(config.MaxRequests))
	idleTTL := 5 * config.Window

	var (
		mu       sync.Mutex
		limiters = map[string]*ipLimiter{}
		swept    = time.Now()
	)

	get := func(ip string, now time.Time) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()

		if now.Sub(swept) > idleTTL {
			for key, l := range limiters {
				if now.Sub(l.lastSeen) > idleTTL {
					delete(limiters, key)
				}
			}
			swept = now
		}

		l, ok := limiters[ip]
		if !ok {
			l = &ipLimiter{limiter: rate.NewLimiter(every, config.MaxRequests)}
			limiters[ip] = l
		}
		l.lastSeen = now
		return l.limiter
	}

	return func(c *fiber.Ctx) error {
		limiter := get(strings.Clone(c.IP()), time.Now())

		c.Set("X-RateLimit-Limit", strconv.Itoa(config.MaxRequests))
		if !limiter.Allow() {
			return tooManyRequests(c)
		}
		c.Set("X-RateLimit-Remaining", strconv.Itoa(int(limiter.Tokens())))
		return c.Next()
	}
}

func tooManyRequests(c *fiber.Ctx) error {
	return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
		"error": "rate limit exceeded",
	})
}
