package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/vegwatch-service/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	CORSOrigins     []string

	// Observation source. SourcePath wins over SourceURL when both are set.
	SourceURL       string
	SourcePath      string
	SourceTimeout   time.Duration
	RefreshInterval time.Duration

	Selection      domain.SelectionConfig
	SearchDebounce time.Duration

	SQLitePath string

	// Mapbox place search configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
	MapboxRateLimit float64 // requests per second

	// Kafka action publishing configuration.
	KafkaEnabled     bool
	KafkaBrokers     []string
	KafkaActionTopic string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parsePositiveDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	sourceTimeout, err := parsePositiveDuration("SOURCE_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	refreshInterval, err := parsePositiveDuration("REFRESH_INTERVAL", "5m")
	if err != nil {
		return nil, err
	}
	searchDebounce, err := parseNonNegativeDuration("SEARCH_DEBOUNCE", "300ms")
	if err != nil {
		return nil, err
	}
	mapboxTimeout, err := parsePositiveDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	selection, err := parseSelection()
	if err != nil {
		return nil, err
	}

	mapboxRate, err := strconv.ParseFloat(envOrDefault("MAPBOX_RATE_LIMIT", "10"), 64)
	if err != nil || mapboxRate <= 0 {
		return nil, errors.New("invalid MAPBOX_RATE_LIMIT")
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		CORSOrigins:     parseList(envOrDefault("CORS_ORIGINS", "*")),

		SourceURL:       os.Getenv("SOURCE_URL"),
		SourcePath:      os.Getenv("SOURCE_PATH"),
		SourceTimeout:   sourceTimeout,
		RefreshInterval: refreshInterval,

		Selection:      selection,
		SearchDebounce: searchDebounce,

		SQLitePath: envOrDefault("SQLITE_PATH", "vegwatch.db"),

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parsePositiveInt("MAPBOX_CACHE_SIZE", 1000),
		MapboxRateLimit: mapboxRate,

		KafkaEnabled:     os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:     parseList(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaActionTopic: envOrDefault("KAFKA_ACTION_TOPIC", "vegetation-actions"),
	}

	if cfg.SourceURL == "" && cfg.SourcePath == "" {
		return nil, errors.New("SOURCE_URL or SOURCE_PATH is required")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
	}
	if cfg.KafkaEnabled && cfg.KafkaActionTopic == "" {
		return nil, errors.New("KAFKA_ACTION_TOPIC is required when KAFKA_ENABLED is true")
	}

	return cfg, nil
}

// parseSelection reads the density-selection settings. Caps accept a
// non-negative integer or "unbounded".
func parseSelection() (domain.SelectionConfig, error) {
	sel := domain.DefaultSelectionConfig()

	minDistance, err := strconv.ParseFloat(envOrDefault("MIN_DISTANCE_METERS", "500"), 64)
	if err != nil || minDistance < 0 {
		return sel, errors.New("invalid MIN_DISTANCE_METERS")
	}
	sel.MinDistanceMeters = minDistance

	caps := []struct {
		key string
		def string
		dst *int
	}{
		{"CAP_CRITICAL", "unbounded", &sel.Caps.Critical},
		{"CAP_MODERATE", "150", &sel.Caps.Moderate},
		{"CAP_HEALTHY", "100", &sel.Caps.Healthy},
	}
	for _, c := range caps {
		v, err := parseCap(envOrDefault(c.key, c.def))
		if err != nil {
			return sel, fmt.Errorf("invalid %s: %w", c.key, err)
		}
		*c.dst = v
	}

	if v := os.Getenv("FILL_TO_CAP"); v != "" {
		sel.FillToCap = v == "true"
	}
	return sel, nil
}

func parseCap(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "unbounded" || s == "none" {
		return domain.NoCap, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errors.New("must be non-negative")
	}
	return n, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseNonNegativeDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

// parseList splits a comma-separated value, dropping empty entries.
func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
