package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultEndpoint    = "http://127.0.0.1:8000/predict"
	DefaultTimeout     = 60 * time.Second
	DefaultLogDir      = "logs"
	DefaultDBPath      = "leafscan.db"
	DefaultPreviewSize = 160
)

// Config holds application configuration
type Config struct {
	Endpoint string        // Classifier URL that accepts the multipart upload
	Timeout  time.Duration // Per-request timeout for the classifier call
	LogDir   string
	DBPath   string // SQLite prediction journal
	Debug    bool

	Telemetry   bool // Export traces and metrics to the log directory
	PreviewSize uint // Longest edge of generated preview thumbnails, in pixels
}

// Load reads configuration from an optional .env file and the process environment.
// Missing values fall back to the package defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using process environment")
	}

	return Config{
		Endpoint:    getEnv("LEAFSCAN_CLASSIFIER_URL", DefaultEndpoint),
		Timeout:     getEnvAsDuration("LEAFSCAN_TIMEOUT", DefaultTimeout),
		LogDir:      getEnv("LEAFSCAN_LOG_DIR", DefaultLogDir),
		DBPath:      getEnv("LEAFSCAN_DB", DefaultDBPath),
		Debug:       getEnvAsBool("LEAFSCAN_DEBUG", false),
		Telemetry:   getEnvAsBool("LEAFSCAN_TELEMETRY", true),
		PreviewSize: uint(getEnvAsInt("LEAFSCAN_PREVIEW_SIZE", DefaultPreviewSize)),
	}
}

// Validate reports the first configuration value that cannot be used.
func (c Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("classifier endpoint is required")
	}
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return fmt.Errorf("invalid classifier endpoint: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("classifier endpoint must be an absolute URL: %q", c.Endpoint)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.PreviewSize == 0 {
		return fmt.Errorf("preview size must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	value, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func getEnvAsBool(key string, fallback bool) bool {
	value, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return value
}

// getEnvAsDuration accepts Go duration strings ("30s") or a bare number of seconds.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
