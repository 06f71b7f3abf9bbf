package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	LogFormat          string
	LogLevel           string
	RedisURL           string
	CORSAllowedOrigins []string

	CatalogBaseURL  string
	CatalogCacheTTL time.Duration

	ChargeTableURL            string
	ChargeTablePath           string
	ChargeTableReloadInterval time.Duration

	DefaultProvince string

	Upstream UpstreamConfig
	Deposit  DepositConfig
	Contact  ContactConfig
	Limits   LimitConfig
	Tracing  TracingConfig

	MetricsNamespace string
	HTTPBucketsMS    string
	BodyLimitBytes   int64
	ShutdownGrace    time.Duration
	IdempotencyTTL   time.Duration
	ReadinessTimeout time.Duration
}

// UpstreamConfig tunes outbound calls to the catalog, charge-table and checkout services.
type UpstreamConfig struct {
	Timeout         time.Duration
	MaxAttempts     int
	BaseBackoff     time.Duration
	Jitter          float64
	BreakerMinCalls int
	BreakerRatio    float64
	BreakerOpenFor  time.Duration
}

// DepositConfig controls refundable deposit checkout sessions.
type DepositConfig struct {
	AmountCAD       int64
	Currency        string
	StripeSecretKey string
	StripeBaseURL   string
	SuccessURL      string
	CancelURL       string
}

// ContactConfig holds the dealer contact channels surfaced on vehicle pages.
type ContactConfig struct {
	WhatsAppNumber string
	SchedulingURL  string
	Email          string
	Phone          string
	ContactName    string
}

// LimitConfig holds per-IP rate limits.
type LimitConfig struct {
	GlobalRate    string
	DepositPerMin int
	DepositWindow time.Duration
}

// TracingConfig controls OpenTelemetry export.
type TracingConfig struct {
	Enabled       bool
	ServiceName   string
	Endpoint      string
	Exporter      string
	SamplingRatio float64
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		LogFormat:          valueOrDefault(k.String("LOG_FORMAT"), "json"),
		LogLevel:           valueOrDefault(k.String("LOG_LEVEL"), "info"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		CatalogBaseURL:  strings.TrimRight(strings.TrimSpace(k.String("CATALOG_API_BASE_URL")), "/"),
		CatalogCacheTTL: parseDuration(k.String("CATALOG_CACHE_TTL"), "60s"),

		ChargeTableURL:            strings.TrimSpace(k.String("CHARGE_TABLE_URL")),
		ChargeTablePath:           strings.TrimSpace(k.String("CHARGE_TABLE_PATH")),
		ChargeTableReloadInterval: parseDuration(k.String("CHARGE_TABLE_RELOAD_INTERVAL"), "5m"),

		DefaultProvince: strings.ToUpper(valueOrDefault(k.String("DEFAULT_PROVINCE"), "BC")),

		Upstream: UpstreamConfig{
			Timeout:         parseDuration(k.String("UPSTREAM_TIMEOUT"), "5s"),
			MaxAttempts:     parseInt(k.String("UPSTREAM_MAX_ATTEMPTS"), 3),
			BaseBackoff:     parseDuration(k.String("UPSTREAM_BASE_BACKOFF"), "200ms"),
			Jitter:          parseFloat(k.String("UPSTREAM_JITTER"), 0.2),
			BreakerMinCalls: parseInt(k.String("BREAKER_MIN_REQUESTS"), 5),
			BreakerRatio:    parseFloat(k.String("BREAKER_FAILURE_RATIO"), 0.5),
			BreakerOpenFor:  parseDuration(k.String("BREAKER_OPEN_FOR"), "30s"),
		},
		Deposit: DepositConfig{
			AmountCAD:       int64(parseInt(k.String("DEPOSIT_AMOUNT_CAD"), 1000)),
			Currency:        strings.ToLower(valueOrDefault(k.String("DEPOSIT_CURRENCY"), "cad")),
			StripeSecretKey: strings.TrimSpace(k.String("STRIPE_SECRET_KEY")),
			StripeBaseURL:   strings.TrimRight(valueOrDefault(k.String("STRIPE_API_BASE_URL"), "https://api.stripe.com"), "/"),
			SuccessURL:      valueOrDefault(k.String("DEPOSIT_SUCCESS_URL"), "http://localhost:3000/success"),
			CancelURL:       valueOrDefault(k.String("DEPOSIT_CANCEL_URL"), "http://localhost:3000/cars"),
		},
		Contact: ContactConfig{
			WhatsAppNumber: valueOrDefault(k.String("CONTACT_WHATSAPP_NUMBER"), "14374638189"),
			SchedulingURL:  valueOrDefault(k.String("CONTACT_SCHEDULING_URL"), "https://calendly.com/admin-sgsupercars/15min"),
			Email:          valueOrDefault(k.String("CONTACT_EMAIL"), "admin@sgsupercars.ca"),
			Phone:          valueOrDefault(k.String("CONTACT_PHONE"), "(437)-463-8189"),
			ContactName:    valueOrDefault(k.String("CONTACT_NAME"), "Brian"),
		},
		Limits: LimitConfig{
			GlobalRate:    valueOrDefault(k.String("RATE_LIMIT_GLOBAL"), "120-M"),
			DepositPerMin: parseInt(k.String("RATE_LIMIT_DEPOSIT_PER_MIN"), 5),
			DepositWindow: parseDuration(k.String("RATE_LIMIT_DEPOSIT_WINDOW"), "1m"),
		},
		Tracing: TracingConfig{
			Enabled:       parseBool(k.String("OTEL_ENABLED")),
			ServiceName:   valueOrDefault(k.String("OTEL_SERVICE_NAME"), "backend-import"),
			Endpoint:      k.String("OTEL_EXPORTER_OTLP_ENDPOINT"),
			Exporter:      valueOrDefault(k.String("OTEL_TRACES_EXPORTER"), "otlp"),
			SamplingRatio: parseFloat(k.String("OTEL_TRACES_SAMPLER_RATIO"), 1),
		},

		MetricsNamespace: valueOrDefault(k.String("METRICS_NAMESPACE"), "landed"),
		HTTPBucketsMS:    k.String("HTTP_LATENCY_BUCKETS_MS"),
		BodyLimitBytes:   int64(parseInt(k.String("HTTP_BODY_LIMIT_BYTES"), 1<<20)),
		ShutdownGrace:    parseDuration(k.String("SHUTDOWN_GRACE"), "15s"),
		IdempotencyTTL:   parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		ReadinessTimeout: parseDuration(k.String("READINESS_TIMEOUT"), "2s"),
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.CatalogBaseURL == "" {
		return nil, errors.New("CATALOG_API_BASE_URL is required")
	}
	if cfg.ChargeTableURL == "" && cfg.ChargeTablePath == "" {
		return nil, errors.New("one of CHARGE_TABLE_URL or CHARGE_TABLE_PATH is required")
	}
	if cfg.Deposit.AmountCAD <= 0 {
		return nil, errors.New("DEPOSIT_AMOUNT_CAD must be positive")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return v
}

func parseFloat(value string, fallback float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return v
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// MustLoad behaves like Load but panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
