package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration. Values come from an optional
// YAML file (CONFIG_FILE) overridden by environment variables.
type Config struct {
	DatabaseURL       string        `yaml:"database_url"`
	ServerPort        string        `yaml:"server_port"`
	FrontendURL       string        `yaml:"frontend_url"`
	RedisURL          string        `yaml:"redis_url"`
	RabbitMQURL       string        `yaml:"rabbitmq_url"`
	RabbitMQPrefetch  int           `yaml:"rabbitmq_prefetch"`
	JWTSecret         string        `yaml:"jwt_secret"`
	TelegramBotToken  string        `yaml:"telegram_bot_token"`
	Timezone          string        `yaml:"timezone"`
	RateLimit         string        `yaml:"rate_limit"`
	EnableHSTS        bool          `yaml:"enable_hsts"`
	ServerDebugMode   bool          `yaml:"server_debug_mode"`
	WorkerDebugMode   bool          `yaml:"worker_debug_mode"`
	SchedulerResync   time.Duration `yaml:"scheduler_resync"`
	MetricsPort       string        `yaml:"metrics_port"`
	OTELEnabled       bool          `yaml:"otel_enabled"`
	OTELEndpoint      string        `yaml:"otel_endpoint"`
}

// Load loads configuration. The YAML file named by CONFIG_FILE is read
// first if present; environment variables override it.
func Load() (*Config, error) {
	cfg := &Config{
		ServerPort:       "8080",
		FrontendURL:      "http://localhost:3000",
		RedisURL:         "redis://localhost:6379/0",
		RabbitMQPrefetch: 1,
		Timezone:         "Europe/Moscow",
		RateLimit:        "10-S",
		SchedulerResync:  30 * time.Second,
		MetricsPort:      "9091",
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.ServerPort = getEnv("SERVER_PORT", cfg.ServerPort)
	cfg.FrontendURL = getEnv("FRONTEND_URL", cfg.FrontendURL)
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.RabbitMQURL = getEnv("RABBITMQ_URL", cfg.RabbitMQURL)
	cfg.RabbitMQPrefetch = getEnvInt("RABBITMQ_PREFETCH", cfg.RabbitMQPrefetch)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.TelegramBotToken = getEnv("TELEGRAM_BOT_TOKEN", cfg.TelegramBotToken)
	cfg.Timezone = getEnv("TIMEZONE", cfg.Timezone)
	cfg.RateLimit = getEnv("RATE_LIMIT", cfg.RateLimit)
	cfg.EnableHSTS = getEnvBool("ENABLE_HSTS", cfg.EnableHSTS)
	cfg.ServerDebugMode = getEnvBool("SERVER_DEBUG_MODE", cfg.ServerDebugMode)
	cfg.WorkerDebugMode = getEnvBool("WORKER_DEBUG_MODE", cfg.WorkerDebugMode)
	cfg.MetricsPort = getEnv("METRICS_PORT", cfg.MetricsPort)
	cfg.OTELEnabled = getEnvBool("OTEL_ENABLED", cfg.OTELEnabled)
	cfg.OTELEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTELEndpoint)
	if v := os.Getenv("SCHEDULER_RESYNC"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SCHEDULER_RESYNC: %w", err)
		}
		cfg.SchedulerResync = d
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.RabbitMQURL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required (reminder delivery runs through the job queue)")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", cfg.Timezone, err)
	}

	return cfg, nil
}

// Location returns the configured process-wide timezone. All habit
// recurrence schedules are evaluated in this location.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
