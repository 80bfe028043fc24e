// Package config loads cmd/authd settings from the environment and an
// optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/tokenauth"
	"github.com/MrEthical07/tokenauth/password"
	"github.com/spf13/viper"
)

const (
	// EnvProduction is the APP_ENV value that enables production checks.
	EnvProduction = "production"

	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"

	devAccessSecret  = "dev-access-secret-change-me"
	devRefreshSecret = "dev-refresh-secret-change-me"
)

// Config holds service configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the listen address (e.g. :4000).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// Env is the application environment. "production" marks the refresh
	// cookie Secure and rejects demo settings.
	Env      string `mapstructure:"APP_ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// LogFormat is "json" or "console".
	LogFormat string `mapstructure:"LOG_FORMAT"`

	ServerName string `mapstructure:"SERVER_NAME"`
	Version    string `mapstructure:"APP_VERSION"`

	AccessTokenSecret  string        `mapstructure:"ACCESS_TOKEN_SECRET"`
	RefreshTokenSecret string        `mapstructure:"REFRESH_TOKEN_SECRET"`
	AccessTokenTTL     time.Duration `mapstructure:"ACCESS_TOKEN_TTL"`
	RefreshTokenTTL    time.Duration `mapstructure:"REFRESH_TOKEN_TTL"`
	JWTIssuer          string        `mapstructure:"JWT_ISSUER"`
	JWTAudience        string        `mapstructure:"JWT_AUDIENCE"`
	// RefreshCookieName names the httpOnly cookie carrying the refresh token.
	RefreshCookieName string `mapstructure:"REFRESH_COOKIE_NAME"`

	// CORSOrigins is a comma-separated list of allowed origins.
	CORSOrigins string `mapstructure:"CORS_ORIGINS"`

	SessionBackend     string        `mapstructure:"SESSION_BACKEND"`
	MaxSessionsPerUser int           `mapstructure:"MAX_SESSIONS_PER_USER"`
	SessionLifetime    time.Duration `mapstructure:"SESSION_LIFETIME"`
	RedisAddr          string        `mapstructure:"REDIS_ADDR"`
	RedisPassword      string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB            int           `mapstructure:"REDIS_DB"`
	RedisPrefix        string        `mapstructure:"REDIS_PREFIX"`

	// DatabaseURL is the Postgres DSN for the user directory. Required when
	// UseMockData is false.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// UseMockData seeds the in-memory demo users instead of using Postgres.
	UseMockData bool `mapstructure:"USE_MOCK_DATA"`

	PasswordAlgorithm string `mapstructure:"PASSWORD_ALGORITHM"`
	BcryptCost        int    `mapstructure:"BCRYPT_COST"`

	MetricsEnabled bool `mapstructure:"METRICS_ENABLED"`
	AuditEnabled   bool `mapstructure:"AUDIT_ENABLED"`

	// OTLPEndpoint turns on pushing metrics to an OpenTelemetry collector
	// over gRPC. Empty disables it.
	OTLPEndpoint       string        `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure       bool          `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	OTLPExportInterval time.Duration `mapstructure:"OTEL_EXPORT_INTERVAL"`

	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
}

// Load reads .env (if present), then builds and validates Config from the
// environment. Env vars override .env.
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile is [Load] with an explicit env file path. A missing file is ignored.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore a missing file

	v.AutomaticEnv()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_ADDR", ":4000")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("SERVER_NAME", "localhost")
	v.SetDefault("APP_VERSION", "1.0.0")
	v.SetDefault("ACCESS_TOKEN_SECRET", "")
	v.SetDefault("REFRESH_TOKEN_SECRET", "")
	v.SetDefault("ACCESS_TOKEN_TTL", "15m")
	v.SetDefault("REFRESH_TOKEN_TTL", "168h")
	v.SetDefault("JWT_ISSUER", "")
	v.SetDefault("JWT_AUDIENCE", "")
	v.SetDefault("REFRESH_COOKIE_NAME", "refreshToken")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("SESSION_BACKEND", SessionBackendMemory)
	v.SetDefault("MAX_SESSIONS_PER_USER", 5)
	v.SetDefault("SESSION_LIFETIME", "168h")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_PREFIX", "ts")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("USE_MOCK_DATA", true)
	v.SetDefault("PASSWORD_ALGORITHM", password.AlgorithmBcrypt)
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("AUDIT_ENABLED", false)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_EXPORT_INTERVAL", "10s")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
}

func (c *Config) validate() error {
	if c.HTTPAddr == "" {
		return errors.New("config: HTTP_ADDR must be set")
	}
	if c.RefreshCookieName == "" {
		return errors.New("config: REFRESH_COOKIE_NAME must be set")
	}

	switch c.SessionBackend {
	case SessionBackendMemory:
	case SessionBackendRedis:
		if c.RedisAddr == "" {
			return errors.New("config: REDIS_ADDR must be set when SESSION_BACKEND=redis")
		}
	default:
		return fmt.Errorf("config: SESSION_BACKEND must be %q or %q", SessionBackendMemory, SessionBackendRedis)
	}

	if c.OTLPEndpoint != "" && c.OTLPExportInterval <= 0 {
		return errors.New("config: OTEL_EXPORT_INTERVAL must be > 0 when OTEL_EXPORTER_OTLP_ENDPOINT is set")
	}

	if !c.UseMockData && c.DatabaseURL == "" {
		return errors.New("config: DATABASE_URL must be set when USE_MOCK_DATA=false")
	}

	if c.IsProduction() {
		if c.UseMockData {
			return errors.New("config: USE_MOCK_DATA must not be true when APP_ENV=production")
		}
		if c.AccessTokenSecret == "" || c.RefreshTokenSecret == "" {
			return errors.New("config: ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must be set when APP_ENV=production")
		}
		if c.AccessTokenSecret == devAccessSecret || c.RefreshTokenSecret == devRefreshSecret {
			return errors.New("config: development token secrets must not be used when APP_ENV=production")
		}
	}

	if c.AccessTokenSecret == "" {
		c.AccessTokenSecret = devAccessSecret
	}
	if c.RefreshTokenSecret == "" {
		c.RefreshTokenSecret = devRefreshSecret
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, EnvProduction)
}

// AllowedOrigins splits CORSOrigins into trimmed, non-empty entries.
func (c *Config) AllowedOrigins() []string {
	if c == nil || c.CORSOrigins == "" {
		return nil
	}
	parts := strings.Split(c.CORSOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Engine maps the service settings onto the library configuration.
func (c *Config) Engine() tokenauth.Config {
	out := tokenauth.DefaultConfig()
	out.JWT.AccessSecret = []byte(c.AccessTokenSecret)
	out.JWT.RefreshSecret = []byte(c.RefreshTokenSecret)
	out.JWT.AccessTTL = c.AccessTokenTTL
	out.JWT.RefreshTTL = c.RefreshTokenTTL
	out.JWT.Issuer = c.JWTIssuer
	out.JWT.Audience = c.JWTAudience

	out.Session.MaxSessionsPerUser = c.MaxSessionsPerUser
	out.Session.Lifetime = c.SessionLifetime
	out.Session.RedisPrefix = c.RedisPrefix

	out.Password.Algorithm = c.PasswordAlgorithm
	out.Password.BcryptCost = c.BcryptCost

	out.Metrics.Enabled = c.MetricsEnabled
	out.Metrics.EnableLatencyHistograms = c.MetricsEnabled
	out.Audit.Enabled = c.AuditEnabled
	return out
}
