package config

import (
	"testing"
	"time"

	"github.com/couchcryptid/vegwatch-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSourceURL   = "https://data.example.org/ndvi/points.geojson"
	testMapboxToken = "pk.test-token"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SOURCE_URL", testSourceURL)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, testSourceURL, cfg.SourceURL)
	assert.Empty(t, cfg.SourcePath)
	assert.Equal(t, 15*time.Second, cfg.SourceTimeout)
	assert.Equal(t, 5*time.Minute, cfg.RefreshInterval)
	assert.Equal(t, domain.DefaultSelectionConfig(), cfg.Selection)
	assert.Equal(t, 300*time.Millisecond, cfg.SearchDebounce)
	assert.Equal(t, "vegwatch.db", cfg.SQLitePath)
	assert.False(t, cfg.MapboxEnabled)
	assert.Empty(t, cfg.MapboxToken)
	assert.Equal(t, 5*time.Second, cfg.MapboxTimeout)
	assert.Equal(t, 1000, cfg.MapboxCacheSize)
	assert.Equal(t, 10.0, cfg.MapboxRateLimit)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "vegetation-actions", cfg.KafkaActionTopic)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("CORS_ORIGINS", "https://map.example.org, https://ops.example.org")
	t.Setenv("SOURCE_PATH", "/data/points.geojson")
	t.Setenv("SOURCE_TIMEOUT", "3s")
	t.Setenv("REFRESH_INTERVAL", "1m")
	t.Setenv("MIN_DISTANCE_METERS", "250")
	t.Setenv("CAP_CRITICAL", "2000")
	t.Setenv("CAP_MODERATE", "50")
	t.Setenv("CAP_HEALTHY", "unbounded")
	t.Setenv("FILL_TO_CAP", "false")
	t.Setenv("SEARCH_DEBOUNCE", "0s")
	t.Setenv("SQLITE_PATH", "/var/lib/vegwatch/state.db")
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	t.Setenv("MAPBOX_TIMEOUT", "10s")
	t.Setenv("MAPBOX_CACHE_SIZE", "500")
	t.Setenv("MAPBOX_RATE_LIMIT", "2.5")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_ACTION_TOPIC", "field-actions")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, []string{"https://map.example.org", "https://ops.example.org"}, cfg.CORSOrigins)
	assert.Equal(t, "/data/points.geojson", cfg.SourcePath)
	assert.Equal(t, 3*time.Second, cfg.SourceTimeout)
	assert.Equal(t, time.Minute, cfg.RefreshInterval)
	assert.Equal(t, domain.SelectionConfig{
		MinDistanceMeters: 250,
		Caps:              domain.BandCaps{Critical: 2000, Moderate: 50, Healthy: domain.NoCap},
		FillToCap:         false,
	}, cfg.Selection)
	assert.Equal(t, time.Duration(0), cfg.SearchDebounce)
	assert.Equal(t, "/var/lib/vegwatch/state.db", cfg.SQLitePath)
	assert.True(t, cfg.MapboxEnabled)
	assert.Equal(t, testMapboxToken, cfg.MapboxToken)
	assert.Equal(t, 10*time.Second, cfg.MapboxTimeout)
	assert.Equal(t, 500, cfg.MapboxCacheSize)
	assert.Equal(t, 2.5, cfg.MapboxRateLimit)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "field-actions", cfg.KafkaActionTopic)
}

func TestLoad_SourceRequired(t *testing.T) {
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SOURCE_URL")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"SHUTDOWN_TIMEOUT", "not-a-duration"},
		{"SHUTDOWN_TIMEOUT", "-1s"},
		{"SOURCE_TIMEOUT", "0s"},
		{"REFRESH_INTERVAL", "soon"},
		{"SEARCH_DEBOUNCE", "-5ms"},
		{"MAPBOX_TIMEOUT", "bad"},
		{"MAPBOX_RATE_LIMIT", "0"},
		{"MIN_DISTANCE_METERS", "-10"},
		{"CAP_MODERATE", "-1"},
		{"CAP_HEALTHY", "lots"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv("SOURCE_URL", testSourceURL)
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_MapboxEnabledWithoutToken(t *testing.T) {
	t.Setenv("SOURCE_URL", testSourceURL)
	t.Setenv("MAPBOX_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAPBOX_TOKEN")
}

func TestLoad_MapboxExplicitlyDisabled(t *testing.T) {
	t.Setenv("SOURCE_URL", testSourceURL)
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	t.Setenv("MAPBOX_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.MapboxEnabled)
}

func TestLoad_KafkaEnabledWithoutBrokers(t *testing.T) {
	t.Setenv("SOURCE_URL", testSourceURL)
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", " , ")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}

func TestParseCap(t *testing.T) {
	n, err := parseCap("Unbounded")
	require.NoError(t, err)
	assert.Equal(t, domain.NoCap, n)

	n, err = parseCap(" 0 ")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
