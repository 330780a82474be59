// Package config loads and validates service configuration from the
// environment and an optional .env file using Viper.
package config

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	AppEnv   string `mapstructure:"APP_ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`
	RedisAddr   string `mapstructure:"REDIS_ADDR"`
	RedisPrefix string `mapstructure:"REDIS_PREFIX"`

	JWTIssuer             string `mapstructure:"JWT_ISSUER"`
	JWTAudience           string `mapstructure:"JWT_AUDIENCE"`
	JWTAccessSecret       string `mapstructure:"JWT_ACCESS_SECRET"`
	JWTRefreshSecret      string `mapstructure:"JWT_REFRESH_SECRET"`
	AccessTokenTTLSeconds int    `mapstructure:"ACCESS_TOKEN_TTL_SECONDS"`
	RefreshTokenTTLDays   int    `mapstructure:"REFRESH_TOKEN_TTL_DAYS"`
	RefreshTokenPepper    string `mapstructure:"REFRESH_TOKEN_PEPPER"`
	ResetCodeTTLMinutes   int    `mapstructure:"RESET_CODE_TTL_MINUTES"`

	Argon2MemoryKiB uint32 `mapstructure:"ARGON2_MEMORY_KIB"`
	Argon2Time      uint32 `mapstructure:"ARGON2_TIME"`
	Argon2Threads   uint8  `mapstructure:"ARGON2_THREADS"`

	AuthRateLimitRPM        int           `mapstructure:"AUTH_RATE_LIMIT_RPM"`
	APIRateLimitRPM         int           `mapstructure:"API_RATE_LIMIT_RPM"`
	LoginAbuseFreeAttempts  int           `mapstructure:"LOGIN_ABUSE_FREE_ATTEMPTS"`
	LoginAbuseBaseDelay     time.Duration `mapstructure:"LOGIN_ABUSE_BASE_DELAY"`
	LoginAbuseMaxDelay      time.Duration `mapstructure:"LOGIN_ABUSE_MAX_DELAY"`
	LoginAbuseResetWindow   time.Duration `mapstructure:"LOGIN_ABUSE_RESET_WINDOW"`
	CORSOriginsRaw          string        `mapstructure:"CORS_ORIGINS"`
	CookieSecureRaw         string        `mapstructure:"COOKIE_SECURE"`
	ShutdownTimeout         time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
	ReadinessProbeTimeout   time.Duration `mapstructure:"READINESS_PROBE_TIMEOUT"`
	ReadinessProbeCacheTTL  time.Duration `mapstructure:"READINESS_PROBE_CACHE_TTL"`
	CleanupInterval         time.Duration `mapstructure:"CLEANUP_INTERVAL"`

	OTELServiceName           string        `mapstructure:"OTEL_SERVICE_NAME"`
	OTELEnvironment           string        `mapstructure:"OTEL_ENVIRONMENT"`
	OTELExporterOTLPEndpoint  string        `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTELExporterOTLPInsecure  bool          `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	OTELMetricsEnabled        bool          `mapstructure:"OTEL_METRICS_ENABLED"`
	OTELTracingEnabled        bool          `mapstructure:"OTEL_TRACING_ENABLED"`
	OTELLogsEnabled           bool          `mapstructure:"OTEL_LOGS_ENABLED"`
	OTELMetricsExportInterval time.Duration `mapstructure:"OTEL_METRICS_EXPORT_INTERVAL"`
	OTELTraceSamplingRatio    float64       `mapstructure:"OTEL_TRACE_SAMPLING_RATIO"`
}

var defaults = map[string]any{
	"HTTP_ADDR":                    ":8080",
	"DATABASE_URL":                 "",
	"REDIS_ADDR":                   "",
	"JWT_ACCESS_SECRET":            "",
	"JWT_REFRESH_SECRET":           "",
	"REFRESH_TOKEN_PEPPER":         "",
	"APP_ENV":                      "development",
	"LOG_LEVEL":                    "info",
	"REDIS_PREFIX":                 "jobsy_identity",
	"JWT_ISSUER":                   "jobsy-identity",
	"JWT_AUDIENCE":                 "jobsy-api",
	"ACCESS_TOKEN_TTL_SECONDS":     900,
	"REFRESH_TOKEN_TTL_DAYS":       30,
	"RESET_CODE_TTL_MINUTES":       15,
	"ARGON2_MEMORY_KIB":            64 * 1024,
	"ARGON2_TIME":                  3,
	"ARGON2_THREADS":               2,
	"AUTH_RATE_LIMIT_RPM":          30,
	"API_RATE_LIMIT_RPM":           600,
	"LOGIN_ABUSE_FREE_ATTEMPTS":    5,
	"LOGIN_ABUSE_BASE_DELAY":       "1s",
	"LOGIN_ABUSE_MAX_DELAY":        "5m",
	"LOGIN_ABUSE_RESET_WINDOW":     "30m",
	"CORS_ORIGINS":                 "http://localhost:5173",
	"COOKIE_SECURE":                "",
	"SHUTDOWN_TIMEOUT":             "15s",
	"READINESS_PROBE_TIMEOUT":      "2s",
	"READINESS_PROBE_CACHE_TTL":    "1s",
	"CLEANUP_INTERVAL":             "1h",
	"OTEL_SERVICE_NAME":            "jobsy-identity",
	"OTEL_ENVIRONMENT":             "development",
	"OTEL_EXPORTER_OTLP_ENDPOINT":  "localhost:4317",
	"OTEL_EXPORTER_OTLP_INSECURE":  true,
	"OTEL_METRICS_ENABLED":         false,
	"OTEL_TRACING_ENABLED":         false,
	"OTEL_LOGS_ENABLED":            false,
	"OTEL_METRICS_EXPORT_INTERVAL": "15s",
	"OTEL_TRACE_SAMPLING_RATIO":    1.0,
}

// Load reads .env (if present), then the environment. Env vars override .env.
func Load() (*Config, error) {
	cfg, err := load(".env")
	profile := ""
	if cfg != nil {
		profile = cfg.AppEnv
	}
	recordLoad(context.Background(), profile, err)
	return cfg, err
}

func load(envFile string) (*Config, error) {
	v := viper.New()
	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		_ = v.ReadInConfig() // missing .env is fine
	}
	v.AutomaticEnv()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &loadError{stage: "parse", err: err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, &loadError{stage: "validate", err: err}
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("HTTP_ADDR is required"))
	}
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if len(c.JWTAccessSecret) < 32 {
		errs = append(errs, errors.New("JWT_ACCESS_SECRET must be at least 32 bytes"))
	}
	if len(c.JWTRefreshSecret) < 32 {
		errs = append(errs, errors.New("JWT_REFRESH_SECRET must be at least 32 bytes"))
	}
	if c.JWTAccessSecret != "" && c.JWTAccessSecret == c.JWTRefreshSecret {
		errs = append(errs, errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ"))
	}
	if len(c.RefreshTokenPepper) < 16 {
		errs = append(errs, errors.New("REFRESH_TOKEN_PEPPER must be at least 16 bytes"))
	}
	if c.AccessTokenTTLSeconds <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_TTL_SECONDS must be positive"))
	}
	if c.RefreshTokenTTLDays <= 0 {
		errs = append(errs, errors.New("REFRESH_TOKEN_TTL_DAYS must be positive"))
	}
	if c.ResetCodeTTLMinutes <= 0 {
		errs = append(errs, errors.New("RESET_CODE_TTL_MINUTES must be positive"))
	}
	if c.CookieSecureRaw != "" {
		if _, err := strconv.ParseBool(c.CookieSecureRaw); err != nil {
			errs = append(errs, fmt.Errorf("COOKIE_SECURE: %w", err))
		}
	}
	if c.OTELTraceSamplingRatio < 0 || c.OTELTraceSamplingRatio > 1 {
		errs = append(errs, errors.New("OTEL_TRACE_SAMPLING_RATIO must be within [0,1]"))
	}
	return errors.Join(errs...)
}

func (c *Config) AccessTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLSeconds) * time.Second
}

func (c *Config) RefreshTTL() time.Duration {
	return time.Duration(c.RefreshTokenTTLDays) * 24 * time.Hour
}

func (c *Config) ResetCodeTTL() time.Duration {
	return time.Duration(c.ResetCodeTTLMinutes) * time.Minute
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.AppEnv), "production")
}

// CookieSecure defaults to true in production when COOKIE_SECURE is unset.
func (c *Config) CookieSecure() bool {
	if v, err := strconv.ParseBool(strings.TrimSpace(c.CookieSecureRaw)); err == nil {
		return v
	}
	return c.IsProduction()
}

func (c *Config) CORSOrigins() []string {
	parts := strings.Split(c.CORSOriginsRaw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
