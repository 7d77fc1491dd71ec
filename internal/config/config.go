package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server   ServerConfig
	Redis    RedisConfig
	Frontend FrontendConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
	RateLimit    float64
	RateBurst    int
}

// RedisConfig holds Redis connection settings. An empty Addr disables the
// reload bus.
type RedisConfig struct {
	Addr     string
	Password string //nolint:gosec // G117: Redis connection config
	DB       int
}

// Enabled reports whether a Redis address is configured.
func (c RedisConfig) Enabled() bool { return c.Addr != "" }

// FrontendConfig selects how page assets are resolved.
type FrontendConfig struct {
	// ConfigPath is the frontend.yaml file; empty uses the built-in entries.
	ConfigPath string
	// DevMode points pages at the dev server instead of built output.
	DevMode bool
	// DevOrigin overrides the dev server URL derived from ConfigPath.
	DevOrigin string
	// Embedded serves the build output compiled into the binary.
	Embedded bool
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  zerolog.Level
	Format string
}

// Load reads configuration from environment variables.
// Defaults are suitable for local development.
func Load() (*Config, error) {
	redisDB, err := getEnvInt("SURVEYDESK_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	readTimeout, err := getEnvDuration("SURVEYDESK_SERVER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	writeTimeout, err := getEnvDuration("SURVEYDESK_SERVER_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	rateLimit, err := getEnvFloat("SURVEYDESK_RATE_LIMIT", 20)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	rateBurst, err := getEnvInt("SURVEYDESK_RATE_BURST", 40)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	devMode, err := getEnvBool("SURVEYDESK_DEV", false)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	embedded, err := getEnvBool("SURVEYDESK_EMBEDDED_ASSETS", false)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	level, err := zerolog.ParseLevel(getEnv("SURVEYDESK_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("config.Load: parsing SURVEYDESK_LOG_LEVEL: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Addr:         getEnv("SURVEYDESK_SERVER_ADDR", ":8080"),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			CORSOrigins:  getEnvList("SURVEYDESK_CORS_ORIGINS", []string{"http://127.0.0.1:3000"}),
			RateLimit:    rateLimit,
			RateBurst:    rateBurst,
		},
		Redis: RedisConfig{
			Addr:     getEnv("SURVEYDESK_REDIS_ADDR", ""),
			Password: getEnv("SURVEYDESK_REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Frontend: FrontendConfig{
			ConfigPath: getEnv("SURVEYDESK_FRONTEND_CONFIG", ""),
			DevMode:    devMode,
			DevOrigin:  getEnv("SURVEYDESK_DEV_ORIGIN", ""),
			Embedded:   embedded,
		},
		Log: LogConfig{
			Level:  level,
			Format: getEnv("SURVEYDESK_LOG_FORMAT", "json"),
		},
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	if c.Server.Addr == "" {
		return errors.New("SURVEYDESK_SERVER_ADDR is required")
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("SURVEYDESK_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("SURVEYDESK_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}
	if c.Server.RateLimit <= 0 {
		return fmt.Errorf("SURVEYDESK_RATE_LIMIT must be positive, got %g", c.Server.RateLimit)
	}
	if c.Server.RateBurst < 1 {
		return fmt.Errorf("SURVEYDESK_RATE_BURST must be >= 1, got %d", c.Server.RateBurst)
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("SURVEYDESK_REDIS_DB must be >= 0, got %d", c.Redis.DB)
	}

	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("SURVEYDESK_LOG_FORMAT must be json or text, got %q", c.Log.Format)
	}

	if c.Frontend.DevOrigin != "" {
		u, err := url.Parse(c.Frontend.DevOrigin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("SURVEYDESK_DEV_ORIGIN must be an absolute URL, got %q", c.Frontend.DevOrigin)
		}
	}

	if c.Frontend.DevMode && c.Frontend.Embedded {
		log.Warn().Msg("SURVEYDESK_EMBEDDED_ASSETS has no effect with SURVEYDESK_DEV=true")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as float: %w", key, v, err)
	}
	return f, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parsing %s=%q as bool: %w", key, v, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
