package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// HTTP listener
	Server ServerConfig `mapstructure:"server"`

	// Link lifecycle
	Links LinksConfig `mapstructure:"links"`

	// Ingest rate limiting
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`

	// Redis
	Redis RedisConfig `mapstructure:"redis"`

	// NATS
	NATS NATSConfig `mapstructure:"nats"`

	// Prometheus
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	BodyLimit       int           `mapstructure:"body_limit"`
	ProxyHeader     string        `mapstructure:"proxy_header"`
	ExtraMethods    []string      `mapstructure:"extra_methods"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LinksConfig struct {
	// SweepInterval enables a scheduled expiry sweep when positive.
	SweepInterval      time.Duration `mapstructure:"sweep_interval"`
	CodeFilterCapacity uint          `mapstructure:"code_filter_capacity"`
}

type RateLimitConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type NATSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

type PrometheusConfig struct {
	Port int `mapstructure:"port"`
}

// DefaultExtraMethods are routed to the capture endpoint on top of the standard verbs.
var DefaultExtraMethods = []string{
	"PURGE", "LINK", "UNLINK", "PROPFIND", "PROPPATCH", "MKCOL", "COPY", "MOVE",
	"LOCK", "UNLOCK", "REPORT", "SEARCH", "VIEW", "NOTIFY", "SUBSCRIBE", "UNSUBSCRIBE",
}

// DefaultBodyLimit is the fixed ingest cap.
const DefaultBodyLimit = 10 * 1024 * 1024

func Load() (*Config, error) {
	// Load local .env for development (ignored when missing).
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()

	// Search for config/config.yaml (plus root for overrides).
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Allow environment variables to override YAML entries.
	v.SetEnvPrefix("")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Preserve legacy env variable names.
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for i, m := range cfg.Server.ExtraMethods {
		cfg.Server.ExtraMethods[i] = strings.ToUpper(strings.TrimSpace(m))
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.body_limit", DefaultBodyLimit)
	v.SetDefault("server.proxy_header", "")
	v.SetDefault("server.extra_methods", DefaultExtraMethods)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("links.sweep_interval", time.Duration(0))
	v.SetDefault("links.code_filter_capacity", 1_000_000)

	v.SetDefault("ratelimit.enabled", false)
	v.SetDefault("ratelimit.max_requests", 120)
	v.SetDefault("ratelimit.window", time.Minute)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.host", "localhost")
	v.SetDefault("nats.port", 4222)
	v.SetDefault("nats.user", "")
	v.SetDefault("nats.password", "")

	v.SetDefault("prometheus.port", 9090)
}

func bindEnvVars(v *viper.Viper) {
	// Server
	v.BindEnv("server.port", "SERVER_PORT", "PORT")
	v.BindEnv("server.proxy_header", "PROXY_HEADER")

	// Rate limiting
	v.BindEnv("ratelimit.enabled", "RATELIMIT_ENABLED")

	// Redis
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")

	// NATS
	v.BindEnv("nats.enabled", "NATS_ENABLED")
	v.BindEnv("nats.host", "NATS_HOST")
	v.BindEnv("nats.port", "NATS_PORT")
	v.BindEnv("nats.user", "NATS_USER")
	v.BindEnv("nats.password", "NATS_PASSWORD")

	// Prometheus
	v.BindEnv("prometheus.port", "PROM_PORT")
}
