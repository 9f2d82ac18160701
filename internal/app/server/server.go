package server

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sifan077/PowerHook/config"
	"github.com/sifan077/PowerHook/internal/app/service"
	inthttp "github.com/sifan077/PowerHook/internal/http/handler"
	"github.com/sifan077/PowerHook/internal/http/middleware"
	infraPrometheus "github.com/sifan077/PowerHook/internal/infra/prometheus"
	"go.uber.org/zap"
)

// Dependencies bundles infrastructure dependencies required by the HTTP server.
type Dependencies struct {
	Logger         *zap.Logger
	Config         config.Config
	LinkService    service.LinkService
	CaptureService service.CaptureService
	// Metrics may be nil.
	Metrics *infraPrometheus.Metrics
	// Redis backs the shared rate limiter when set.
	Redis   *redis.Client
	Version string
	Now     func() time.Time
}

// Server wraps the Fiber application and its dependencies.
type Server struct {
	app  *fiber.App
	deps Dependencies
}

// New creates a new HTTP server instance with all routes registered.
func New(deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	bodyLimit := deps.Config.Server.BodyLimit
	if bodyLimit <= 0 {
		bodyLimit = config.DefaultBodyLimit
	}

	methods := requestMethods(deps.Config.Server.ExtraMethods)
	app := fiber.New(fiber.Config{
		AppName:               "PowerHook",
		Immutable:             true,
		BodyLimit:             bodyLimit,
		RequestMethods:        methods,
		ProxyHeader:           deps.Config.Server.ProxyHeader,
		ErrorHandler:          inthttp.ErrorHandler(deps.Logger),
		DisableStartupMessage: true,
	})

	s := &Server{
		app:  app,
		deps: deps,
	}

	s.registerMiddleware(methods)
	s.registerRoutes()
	return s
}

// App exposes the underlying Fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts the Fiber server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the Fiber server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) registerMiddleware(methods []string) {
	s.app.Use(middleware.Recovery(s.deps.Logger))
	s.app.Use(middleware.RequestID())
	s.app.Use(middleware.Logger(s.deps.Logger))
	s.app.Use(middleware.CORS(methods))
	if s.deps.Metrics != nil {
		s.app.Use(middleware.Metrics(s.deps.Metrics))
	}
}

func (s *Server) registerRoutes() {
	inthttp.NewSystemHandler(inthttp.SystemDeps{
		Version: s.deps.Version,
		Now:     s.deps.Now,
	}).Register(s.app)

	webhooks := s.app.Group("/api/webhooks")

	inthttp.NewAPIHandler(inthttp.APIDeps{
		Logger:         s.deps.Logger,
		LinkService:    s.deps.LinkService,
		CaptureService: s.deps.CaptureService,
		Now:            s.deps.Now,
	}).Register(webhooks)

	inthttp.NewReceiveHandler(inthttp.ReceiveDeps{
		Logger:         s.deps.Logger,
		CaptureService: s.deps.CaptureService,
		Limiter:        s.rateLimiter(),
	}).Register(webhooks)
}

// rateLimiter prefers the Redis-backed limiter and falls back to an in-process
// one. It returns nil when rate limiting is disabled.
func (s *Server) rateLimiter() fiber.Handler {
	cfg := s.deps.Config.RateLimit
	if !cfg.Enabled {
		return nil
	}

	limitCfg := middleware.RateLimitConfig{
		MaxRequests: cfg.MaxRequests,
		Window:      cfg.Window,
	}
	if s.deps.Redis != nil {
		return middleware.RateLimit(s.deps.Redis, limitCfg, s.deps.Logger)
	}
	return middleware.LocalRateLimit(limitCfg)
}

// requestMethods extends Fiber's default verbs with extra, skipping duplicates.
func requestMethods(extra []string) []string {
	methods := slices.Clone(fiber.DefaultMethods)
	for _, m := range extra {
		m = strings.ToUpper(strings.TrimSpace(m))
		if m == "" || slices.Contains(methods, m) {
			continue
		}
		methods = append(methods, m)
	}
	return methods
}

// Addr formats the listen address for port.
func Addr(port int) string {
	return fmt.Sprintf(":%d", port)
}
