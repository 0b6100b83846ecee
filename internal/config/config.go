package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Import       ImportConfig
	Rules        RulesConfig
	Seed         SeedConfig
	Notification NotificationConfig
	Identity     IdentityConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	CORSAllowOrigins      string
	RateLimitPerMinute    int
}

// RedisConfig holds Redis connection values. An empty Addr disables Redis.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	CodeTTLHours int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level       string
	File        string
	MaxSizeMB   int
	MaxBackups  int
	MaxAgeDays  int
	Development bool
}

// ImportConfig bounds bulk imports.
type ImportConfig struct {
	MaxUploadMB int
	Timezone    string
}

// RulesConfig points at an optional YAML override of aliases and keywords.
type RulesConfig struct {
	File string
}

// SeedConfig toggles demo data at startup.
type SeedConfig struct {
	Enabled bool
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom         string
	WebhookURL        string
	PartnerWebhookURL string
}

// IdentityConfig namespaces generated sequence tokens per instance.
type IdentityConfig struct {
	SnowflakeNode int64
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	node, err := strconv.ParseInt(getEnv("SNOWFLAKE_NODE", "1"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid SNOWFLAKE_NODE: %w", err)
	}

	env := getEnv("APP_ENV", "development")
	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "complaint-desk"),
			Env:                   env,
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			CORSAllowOrigins:      getEnv("HTTP_CORS_ALLOW_ORIGINS", "*"),
			RateLimitPerMinute:    getEnvAsInt("HTTP_RATE_LIMIT_PER_MINUTE", 120),
		},
		Redis: RedisConfig{
			Addr:         strings.TrimSpace(os.Getenv("REDIS_ADDR")),
			Password:     os.Getenv("REDIS_PASSWORD"),
			DB:           redisDB,
			CodeTTLHours: getEnvAsInt("REDIS_CODE_TTL_HOURS", 24*30),
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			File:        os.Getenv("LOG_FILE"),
			MaxSizeMB:   getEnvAsInt("LOG_MAX_SIZE_MB", 100),
			MaxBackups:  getEnvAsInt("LOG_MAX_BACKUPS", 3),
			MaxAgeDays:  getEnvAsInt("LOG_MAX_AGE_DAYS", 28),
			Development: env == "development",
		},
		Import: ImportConfig{
			MaxUploadMB: getEnvAsInt("IMPORT_MAX_UPLOAD_MB", 10),
			Timezone:    getEnv("IMPORT_TIMEZONE", "UTC"),
		},
		Rules: RulesConfig{
			File: os.Getenv("RULES_FILE"),
		},
		Seed: SeedConfig{
			Enabled: getEnvAsBool("SEED_DATA", true),
		},
		Notification: NotificationConfig{
			EmailFrom:         getEnv("NOTIFY_EMAIL_FROM", "noreply@banza.example"),
			WebhookURL:        getEnv("NOTIFY_WEBHOOK_URL", ""),
			PartnerWebhookURL: getEnv("NOTIFY_PARTNER_WEBHOOK_URL", ""),
		},
		Identity: IdentityConfig{
			SnowflakeNode: node,
		},
	}

	if _, err := cfg.Import.Location(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Enabled reports whether a Redis address was configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// CodeTTL is how long a reserved ticket code stays claimed in Redis.
func (r RedisConfig) CodeTTL() time.Duration {
	if r.CodeTTLHours <= 0 {
		return 0
	}
	return time.Duration(r.CodeTTLHours) * time.Hour
}

// MaxUploadBytes is the largest accepted import body.
func (i ImportConfig) MaxUploadBytes() int64 {
	if i.MaxUploadMB <= 0 {
		return 10 << 20
	}
	return int64(i.MaxUploadMB) << 20
}

// Location resolves Timezone, the zone naive spreadsheet timestamps are read in.
func (i ImportConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(i.Timezone)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid IMPORT_TIMEZONE %q: %w", name, err)
	}
	return loc, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
