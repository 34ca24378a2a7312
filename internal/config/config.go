package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
)

const envPrefix = "CLAIMPAY_"

type Config struct {
	Primary       Primary             `koanf:"primary"`
	Server        ServerConfig        `koanf:"server"`
	Database      DatabaseConfig      `koanf:"database"`
	Validation    ValidationConfig    `koanf:"validation"`
	Retry         RetryConfig         `koanf:"retry"`
	Breaker       BreakerConfig       `koanf:"breaker"`
	Authorization AuthorizationConfig `koanf:"authorization"`
	Rates         RateConfig          `koanf:"rates"`
	Logger        LoggerConfig        `koanf:"logger"`
	Worker        WorkerConfig        `koanf:"worker"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type ServerConfig struct {
	Port           string        `koanf:"port" validate:"required"`
	ReadTimeout    time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout   time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout    time.Duration `koanf:"idle_timeout" validate:"required"`
	RequestTimeout time.Duration `koanf:"request_timeout" validate:"required"`
}

type DatabaseConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"required"`
	User            string        `koanf:"user" validate:"required"`
	Password        string        `koanf:"password" validate:"required"`
	Name            string        `koanf:"name" validate:"required"`
	SSLMode         string        `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time" validate:"required"`
}

// ProviderConfig describes one external validation system.
type ProviderConfig struct {
	BaseURL        string        `koanf:"base_url" validate:"required,url"`
	AttemptTimeout time.Duration `koanf:"attempt_timeout" validate:"required"`
	ClientTimeout  time.Duration `koanf:"client_timeout" validate:"required,gtefield=AttemptTimeout"`
	HealthPath     string        `koanf:"health_path"`
	SlowThreshold  time.Duration `koanf:"slow_threshold"`
}

type ValidationConfig struct {
	CNOUA ProviderConfig `koanf:"cnoua"`
	SIPUA ProviderConfig `koanf:"sipua"`
	SIMDA ProviderConfig `koanf:"simda"`
}

// RetryConfig drives client retries: BaseDelay * 2^retry between attempts.
type RetryConfig struct {
	BaseDelay  time.Duration `koanf:"base_delay" validate:"required"`
	MaxRetries int           `koanf:"max_retries" validate:"gte=0,lte=10"`
	MaxJitter  time.Duration `koanf:"max_jitter"`
}

type BreakerConfig struct {
	ConsecutiveFailures uint32        `koanf:"consecutive_failures" validate:"required"`
	OpenTimeout         time.Duration `koanf:"open_timeout" validate:"required"`
	HalfOpenRequests    uint32        `koanf:"half_open_requests"`
}

type AuthorizationConfig struct {
	MaxConflictAttempts int    `koanf:"max_conflict_attempts" validate:"required,gte=1,lte=10"`
	SystemID            string `koanf:"system_id" validate:"required"`
}

type RateConfig struct {
	Currency string        `koanf:"currency" validate:"required"`
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

type LoggerConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format" validate:"omitempty,oneof=text json"`
}

type WorkerConfig struct {
	Interval       time.Duration `koanf:"interval" validate:"required"`
	BatchSize      int           `koanf:"batch_size" validate:"required"`
	HealthInterval time.Duration `koanf:"health_interval" validate:"required"`
	PendingTTL     time.Duration `koanf:"pending_ttl" validate:"required"`
	// SettleWindow is how long a missing history record is reported as
	// pending before the authorization is declared not committed.
	SettleWindow   time.Duration `koanf:"settle_window" validate:"required"`
}

// defaults mirror the production policy: 10s per attempt, 15s per client,
// retries after 2s, 4s and 8s, breaker open for 30s after 5 failures.
var defaults = map[string]any{
	"primary.env":                         "development",
	"server.port":                         "8080",
	"server.read_timeout":                 "15s",
	"server.write_timeout":                "60s",
	"server.idle_timeout":                 "60s",
	"server.request_timeout":              "55s",
	"database.ssl_mode":                   "disable",
	"database.max_open_conns":             20,
	"database.max_idle_conns":             5,
	"database.conn_max_lifetime":          "1h",
	"database.conn_max_idle_time":         "30m",
	"validation.cnoua.attempt_timeout":    "10s",
	"validation.cnoua.client_timeout":     "15s",
	"validation.cnoua.health_path":        "/health",
	"validation.cnoua.slow_threshold":     "2s",
	"validation.sipua.attempt_timeout":    "10s",
	"validation.sipua.client_timeout":     "15s",
	"validation.sipua.health_path":        "/health",
	"validation.sipua.slow_threshold":     "2s",
	"validation.simda.attempt_timeout":    "10s",
	"validation.simda.client_timeout":     "15s",
	"validation.simda.health_path":        "/health",
	"validation.simda.slow_threshold":     "2s",
	"retry.base_delay":                    "2s",
	"retry.max_retries":                   3,
	"breaker.consecutive_failures":        5,
	"breaker.open_timeout":                "30s",
	"breaker.half_open_requests":          1,
	"authorization.max_conflict_attempts": 3,
	"authorization.system_id":             "SI",
	"rates.currency":                      "BRL",
	"rates.cache_ttl":                     "10m",
	"logger.level":                        "info",
	"logger.format":                       "text",
	"worker.interval":                     "1m",
	"worker.batch_size":                   50,
	"worker.health_interval":              "30s",
	"worker.pending_ttl":                  "72h",
	"worker.settle_window":                "5m",
}

func LoadConfig() (*Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		logger.Error("failed to load defaults", "error", err)
		return nil, err
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, envPrefix)),
			"__",
			".",
		)
	}), nil)
	if err != nil {
		logger.Error("failed to load environment variables", "error", err)
		return nil, err
	}

	mainConfig := &Config{}

	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Error("could not unmarshal main config", "error", err)
		return nil, err
	}

	validate := validator.New()

	err = validate.Struct(mainConfig)
	if err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	return mainConfig, nil
}
