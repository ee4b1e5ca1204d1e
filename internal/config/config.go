package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultBind                = ":8080"
	DefaultMaxImageBytes int64 = 20 * 1024 * 1024
	DefaultMaxPixels           = 50_000_000
	DefaultHTTPTimeout         = 30 * time.Second
	DefaultDebounce            = 500 * time.Millisecond
	DefaultUnsplashBaseURL     = "https://api.unsplash.com"
	DefaultSessionTTL          = 30 * time.Minute
	DefaultMaxSessions         = 200
)

type AuthMode string

const (
	AuthNone   AuthMode = "none"
	AuthAPIKey AuthMode = "apikey"
)

type Config struct {
	Bind               string
	UnsplashAccessKey  string
	UnsplashBaseURL    string
	DBDSN              string
	CacheDir           string
	MaxImageBytes      int64
	MaxPixels          int
	HTTPTimeout        time.Duration
	Debounce           time.Duration
	SessionTTL         time.Duration
	MaxSessions        int
	AuthMode           AuthMode
	APIKeysFile        string
	CORSAllowedOrigins []string
	LogLevel           string
	SwaggerUIPath      string
	OpenAPIPath        string
}

// Load reads configuration from the environment, after merging a .env file
// from the working directory when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Bind:               getenv("THANKYOU_BIND", DefaultBind),
		UnsplashAccessKey:  strings.TrimSpace(os.Getenv("THANKYOU_UNSPLASH_ACCESS_KEY")),
		UnsplashBaseURL:    getenv("THANKYOU_UNSPLASH_BASE_URL", DefaultUnsplashBaseURL),
		DBDSN:              os.Getenv("THANKYOU_DB_DSN"),
		CacheDir:           strings.TrimSpace(os.Getenv("THANKYOU_CACHE_DIR")),
		MaxImageBytes:      getInt64("THANKYOU_MAX_IMAGE_BYTES", DefaultMaxImageBytes),
		MaxPixels:          getInt("THANKYOU_MAX_PIXELS", DefaultMaxPixels),
		HTTPTimeout:        getDuration("THANKYOU_HTTP_TIMEOUT", DefaultHTTPTimeout),
		Debounce:           getDuration("THANKYOU_DEBOUNCE", DefaultDebounce),
		SessionTTL:         getDuration("THANKYOU_SESSION_TTL", DefaultSessionTTL),
		MaxSessions:        getInt("THANKYOU_MAX_SESSIONS", DefaultMaxSessions),
		AuthMode:           AuthMode(getenv("THANKYOU_AUTH_MODE", string(AuthNone))),
		CORSAllowedOrigins: splitAndTrim(os.Getenv("THANKYOU_CORS_ALLOWED_ORIGINS")),
		LogLevel:           os.Getenv("THANKYOU_LOG_LEVEL"),
		SwaggerUIPath:      "/swagger",
		OpenAPIPath:        "/openapi.yaml",
	}

	if cfg.UnsplashAccessKey == "" {
		return nil, fmt.Errorf("THANKYOU_UNSPLASH_ACCESS_KEY is required")
	}

	switch cfg.AuthMode {
	case AuthNone, AuthAPIKey:
	default:
		return nil, fmt.Errorf("invalid THANKYOU_AUTH_MODE: %s", cfg.AuthMode)
	}

	if cfg.AuthMode == AuthAPIKey {
		cfg.APIKeysFile = getenv("THANKYOU_API_KEYS_FILE", "api-keys.yaml")
	}

	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			return i
		}
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err == nil && d >= 0 {
			return d
		}
	}
	return def
}

func splitAndTrim(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
