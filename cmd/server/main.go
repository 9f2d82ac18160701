package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/sifan077/PowerHook/config"
	apprepository "github.com/sifan077/PowerHook/internal/app/repository"
	appserver "github.com/sifan077/PowerHook/internal/app/server"
	appservice "github.com/sifan077/PowerHook/internal/app/service"
	"github.com/sifan077/PowerHook/internal/infra/logger"
	infraNATS "github.com/sifan077/PowerHook/internal/infra/nats"
	infraPrometheus "github.com/sifan077/PowerHook/internal/infra/prometheus"
	infraRedis "github.com/sifan077/PowerHook/internal/infra/redis"
	"go.uber.org/zap"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "1.0.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logCfg := logger.ConfigFromEnv()
	isDev := logCfg.Development
	log := logger.MustInit(logCfg)
	defer func() { _ = logger.Sync() }()

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	log.Info("Configuration loaded successfully",
		zap.Int("port", cfg.Server.Port),
		zap.Int("body_limit", cfg.Server.BodyLimit),
		zap.Strings("extra_methods", cfg.Server.ExtraMethods),
		zap.Duration("sweep_interval", cfg.Links.SweepInterval),
		zap.Bool("ratelimit_enabled", cfg.RateLimit.Enabled),
		zap.Bool("redis_enabled", cfg.Redis.Enabled),
		zap.Bool("nats_enabled", cfg.NATS.Enabled),
	)

	metrics := infraPrometheus.NewMetrics()
	serviceOpts := []appservice.Option{
		appservice.WithLogger(log),
		appservice.WithRecorder(metrics),
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = infraRedis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		log.Info("Connected to Redis successfully", zap.String("addr", infraRedis.Addr(cfg.Redis)))
	}

	if cfg.NATS.Enabled {
		natsConn, js, err := infraNATS.Connect(cfg.NATS, log)
		if err != nil {
			log.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		defer natsConn.Drain()

		if err := appservice.EnsureCaptureStream(js); err != nil {
			log.Fatal("Failed to prepare capture stream", zap.Error(err))
		}
		serviceOpts = append(serviceOpts, appservice.WithPublisher(appservice.NewCapturePublisher(js)))

		consumer := appservice.NewCaptureConsumer(js, log)
		if err := consumer.Start(ctx); err != nil {
			log.Fatal("Failed to start capture consumer", zap.Error(err))
		}
		log.Info("Connected to NATS successfully", zap.Bool("jetstream_ready", js != nil))
	}

	if !isDev {
		promServer := infraPrometheus.NewServer(cfg.Prometheus, metrics, log)
		go func() {
			log.Info("Starting Prometheus metrics server",
				zap.Int("port", cfg.Prometheus.Port))
			if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Prometheus metrics server stopped unexpectedly", zap.Error(err))
			}
		}()
		defer func() {
			if err := promServer.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("Failed to close Prometheus server", zap.Error(err))
			}
		}()
	} else {
		log.Info("Skipping Prometheus metrics server in development mode")
	}

	store := apprepository.NewMemoryStore(apprepository.Options{
		CodeFilterCapacity: cfg.Links.CodeFilterCapacity,
	})
	linkService := appservice.NewLinkService(store.Links(), serviceOpts...)
	captureService := appservice.NewCaptureService(store.Links(), store.Captures(), serviceOpts...)

	if cfg.Links.SweepInterval > 0 {
		sweeper := appservice.NewExpirySweeper(log, linkService, cfg.Links.SweepInterval)
		sweeper.Start()
		defer sweeper.Stop()
	}

	server := appserver.New(appserver.Dependencies{
		Logger:         log,
		Config:         *cfg,
		LinkService:    linkService,
		CaptureService: captureService,
		Metrics:        metrics,
		Redis:          redisClient,
		Version:        version,
	})

	errCh := make(chan error, 1)
	go func() {
		addr := appserver.Addr(cfg.Server.Port)
		log.Info("Starting HTTP server", zap.String("addr", addr))
		errCh <- server.Listen(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("Fiber server exited", zap.Error(err))
		}
	case <-ctx.Done():
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Graceful shutdown failed", zap.Error(err))
		}
	}
}
