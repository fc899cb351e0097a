// Package config loads and validates application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Narrative providers.
const (
	ProviderNoop   = "noop"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Config holds all application configuration.
type Config struct {
	// Server settings.
	Port                int
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	MaxRequestBodyBytes int64
	CORSAllowedOrigins  []string

	// Storage settings. DatabaseURL wins over SQLitePath; with neither,
	// reports are not persisted.
	DatabaseURL     string
	SQLitePath      string
	ReportRetention time.Duration

	// Rules override file (YAML).
	RulesFile string

	// Auth settings.
	AuthEnabled       bool
	JWTPrivateKeyPath string // Path to Ed25519 private key PEM file.
	JWTPublicKeyPath  string // Path to Ed25519 public key PEM file.
	JWTExpiration     time.Duration
	AdminAPIKey       string

	// Narrative enrichment.
	NarrativeProvider string // "noop", "openai" or "ollama"
	OpenAIAPIKey      string
	NarrativeModel    string
	OllamaURL         string
	OllamaModel       string

	// Rate limiting. RedisURL switches from the in-memory limiter to Redis.
	RateLimitEnabled bool
	RateLimitRPS     float64
	RateLimitBurst   int
	RedisURL         string

	// Report publishing.
	KafkaBrokers []string
	KafkaTopic   string

	// OTEL settings.
	OTELEndpoint string
	ServiceName  string
	OTELInsecure bool

	LogLevel string
}

// Load reads configuration from environment variables with defaults.
// Every malformed value is reported, not just the first.
func Load() (Config, error) {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	var cfg Config
	var err error

	cfg.Port, err = envInt("KENKO_PORT", 8080)
	collect(err)
	cfg.ReadTimeout, err = envDuration("KENKO_READ_TIMEOUT", 30*time.Second)
	collect(err)
	cfg.WriteTimeout, err = envDuration("KENKO_WRITE_TIMEOUT", 30*time.Second)
	collect(err)
	body, err := envInt("KENKO_MAX_REQUEST_BODY_BYTES", 10*1024*1024)
	collect(err)
	cfg.MaxRequestBodyBytes = int64(body)
	cfg.CORSAllowedOrigins = envList("KENKO_CORS_ALLOWED_ORIGINS")

	cfg.DatabaseURL = envStr("DATABASE_URL", "")
	cfg.SQLitePath = envStr("KENKO_SQLITE_PATH", "")
	cfg.ReportRetention, err = envDuration("KENKO_REPORT_RETENTION", 0)
	collect(err)
	cfg.RulesFile = envStr("KENKO_RULES_FILE", "")

	cfg.AuthEnabled, err = envBool("KENKO_AUTH_ENABLED", false)
	collect(err)
	cfg.JWTPrivateKeyPath = envStr("KENKO_JWT_PRIVATE_KEY", "")
	cfg.JWTPublicKeyPath = envStr("KENKO_JWT_PUBLIC_KEY", "")
	cfg.JWTExpiration, err = envDuration("KENKO_JWT_EXPIRATION", 24*time.Hour)
	collect(err)
	cfg.AdminAPIKey = envStr("KENKO_ADMIN_API_KEY", "")

	cfg.NarrativeProvider = strings.ToLower(envStr("KENKO_NARRATIVE_PROVIDER", ProviderNoop))
	cfg.OpenAIAPIKey = envStr("OPENAI_API_KEY", "")
	cfg.NarrativeModel = envStr("KENKO_NARRATIVE_MODEL", "gpt-4o-mini")
	cfg.OllamaURL = envStr("OLLAMA_URL", "http://localhost:11434")
	cfg.OllamaModel = envStr("OLLAMA_MODEL", "qwen2.5:3b")

	cfg.RateLimitEnabled, err = envBool("KENKO_RATE_LIMIT_ENABLED", true)
	collect(err)
	cfg.RateLimitRPS, err = envFloat("KENKO_RATE_LIMIT_RPS", 5)
	collect(err)
	cfg.RateLimitBurst, err = envInt("KENKO_RATE_LIMIT_BURST", 20)
	collect(err)
	cfg.RedisURL = envStr("REDIS_URL", "")

	cfg.KafkaBrokers = envList("KENKO_KAFKA_BROKERS")
	cfg.KafkaTopic = envStr("KENKO_KAFKA_TOPIC", "kenko.reports")

	cfg.OTELEndpoint = envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	cfg.ServiceName = envStr("OTEL_SERVICE_NAME", "kenko")
	cfg.OTELInsecure, err = envBool("KENKO_OTEL_INSECURE", false)
	collect(err)
	cfg.LogLevel = envStr("KENKO_LOG_LEVEL", "info")

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("config: %w", errors.Join(errs...))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges and cross-field requirements.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: KENKO_PORT must be between 1 and 65535")
	}
	if c.MaxRequestBodyBytes <= 0 {
		return fmt.Errorf("config: KENKO_MAX_REQUEST_BODY_BYTES must be positive")
	}
	if c.ReportRetention < 0 {
		return fmt.Errorf("config: KENKO_REPORT_RETENTION must not be negative")
	}
	if c.AuthEnabled && c.JWTExpiration <= 0 {
		return fmt.Errorf("config: KENKO_JWT_EXPIRATION must be positive")
	}
	if (c.JWTPrivateKeyPath == "") != (c.JWTPublicKeyPath == "") {
		return fmt.Errorf("config: KENKO_JWT_PRIVATE_KEY and KENKO_JWT_PUBLIC_KEY must be set together")
	}
	switch c.NarrativeProvider {
	case ProviderNoop, ProviderOllama:
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("config: OPENAI_API_KEY is required when KENKO_NARRATIVE_PROVIDER=openai")
		}
	default:
		return fmt.Errorf("config: KENKO_NARRATIVE_PROVIDER must be one of noop, openai, ollama (got %q)", c.NarrativeProvider)
	}
	if c.RateLimitEnabled && (c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0) {
		return fmt.Errorf("config: KENKO_RATE_LIMIT_RPS and KENKO_RATE_LIMIT_BURST must be positive")
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return fmt.Errorf("config: KENKO_KAFKA_TOPIC is required when KENKO_KAFKA_BROKERS is set")
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLogLevel maps KENKO_LOG_LEVEL onto a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("config: KENKO_LOG_LEVEL %q is not one of debug, info, warn, error", s)
	}
	return level, nil
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid integer", key, v)
	}
	return n, nil
}

func envFloat(key string, defaultVal float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid number", key, v)
	}
	return f, nil
}

func envBool(key string, defaultVal bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s=%q is not a valid boolean", key, v)
	}
	return b, nil
}

func envDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid duration", key, v)
	}
	return d, nil
}

// envList splits a comma-separated variable, dropping empty entries.
func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
