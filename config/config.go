// Package config loads runtime settings from the environment.
package config

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrMissingAPIKey is returned when neither API_KEY nor GEMINI_API_KEY is set.
var ErrMissingAPIKey = errors.New("API_KEY is required (GEMINI_API_KEY is also accepted)")

// Config represents application configuration loaded from environment variables.
type Config struct {
	APIKey           string
	Model            string
	BaseURL          string
	Addr             string
	DownloadDir      string
	DownloadPrefix   string
	LogLevel         string
	LogFormat        string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	PostRateLimit    float64
	PostBurst        int
	MetricsEnabled   bool
}

// Load loads configuration from environment variables and applies defaults where needed.
func Load() (*Config, error) {
	cfg := &Config{
		APIKey:           getEnv("API_KEY", os.Getenv("GEMINI_API_KEY")),
		Model:            getEnv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),
		BaseURL:          os.Getenv("GEMINI_BASE_URL"),
		Addr:             getEnv("ADDR", "localhost:8080"),
		DownloadDir:      os.Getenv("DOWNLOAD_DIR"),
		DownloadPrefix:   getEnv("DOWNLOAD_PREFIX", "gemini-image"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "text"),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 180)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		PostRateLimit:    getEnvFloat("HTTP_POST_RATE_LIMIT", 2),
		PostBurst:        getEnvInt("HTTP_POST_BURST", 10),
		MetricsEnabled:   getEnvBool("METRICS_ENABLED", true),
	}

	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	return cfg, nil
}

// NewLogger builds a text or JSON slog logger at the configured level.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(c.LogLevel)}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
