package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/Cheertaboi/coupon-service/pkg/db"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server    ServerConfig
	Database  db.PostgresConfig
	Redis     RedisConfig
	Engine    EngineConfig
	Scheduler SchedulerConfig
	Log       LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// RedisConfig holds the optional shared coupon cache.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

// EngineConfig tunes redemption and evaluation.
type EngineConfig struct {
	Store          string // "postgres" or "memory"
	RedeemAttempts int
	RedeemBackoff  time.Duration
	Workers        int
}

type SchedulerConfig struct {
	StatusSweepSpec string // "off" disables the sweep
}

type LogConfig struct {
	Env   string
	Level string
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  time.Duration(getEnvInt("READ_TIMEOUT_SEC", 10)) * time.Second,
			WriteTimeout: time.Duration(getEnvInt("WRITE_TIMEOUT_SEC", 15)) * time.Second,
			IdleTimeout:  time.Duration(getEnvInt("IDLE_TIMEOUT_SEC", 60)) * time.Second,
		},
		Database: db.LoadPostgresConfig(),
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			CacheTTL: time.Duration(getEnvInt("COUPON_CACHE_TTL_SEC", 30)) * time.Second,
		},
		Engine: EngineConfig{
			Store:          strings.ToLower(getEnv("COUPON_STORE", "postgres")),
			RedeemAttempts: getEnvInt("REDEEM_MAX_ATTEMPTS", 5),
			RedeemBackoff:  time.Duration(getEnvInt("REDEEM_BACKOFF_MS", 10)) * time.Millisecond,
			Workers:        getEnvInt("EVAL_WORKERS", 4),
		},
		Scheduler: SchedulerConfig{
			StatusSweepSpec: getEnv("STATUS_SWEEP_SPEC", "@every 1m"),
		},
		Log: LogConfig{
			Env:   getEnv("APP_ENV", "development"),
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
