package config

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-normalizer/internal/weather"
)

var configKeys = []string{
	"PORT", "OPENWEATHER_API_KEY", "OPENWEATHER_BASE_URL", "RELAY_PREFIX", "UNITS", "EXCLUDE",
	"CONDITIONS_TTL", "IMAGERY_TTL", "HTTP_TIMEOUT", "IMAGERY_MANIFEST_URL", "IMAGERY_TILE_BASE_URL",
	"GEOCODER", "GOOGLE_GEOCODER_API_KEY", "DEDUPE_INFLIGHT", "REFRESH_INTERVAL", "LOCATIONS",
	"LOG_LEVEL", "LOG_FORMAT",
}

// clearEnv blanks every key so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, weather.UnitsImperial, cfg.Units)
	assert.Equal(t, "minutely", cfg.Exclude)
	assert.Equal(t, "", cfg.RelayPrefix)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 10*time.Minute, cfg.ConditionsTTL)
	assert.Equal(t, 5*time.Minute, cfg.ImageryTTL)
	assert.Equal(t, 15*time.Minute, cfg.RefreshInterval)
	assert.True(t, cfg.DedupeInflight)
	assert.Equal(t, GeocoderOpenWeather, cfg.Geocoder)
	assert.Empty(t, cfg.Locations)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("OPENWEATHER_API_KEY", "abc")
	t.Setenv("UNITS", "Metric")
	t.Setenv("RELAY_PREFIX", "https://relay.example.com/?url=")
	t.Setenv("CONDITIONS_TTL", "2m")
	t.Setenv("DEDUPE_INFLIGHT", "false")
	t.Setenv("GEOCODER", "google")
	t.Setenv("LOCATIONS", "39.7392,-104.9903; 51.5074,-0.1278")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "abc", cfg.OpenWeatherAPIKey)
	assert.Equal(t, weather.UnitsMetric, cfg.Units)
	assert.Equal(t, "https://relay.example.com/?url=", cfg.RelayPrefix)
	assert.Equal(t, 2*time.Minute, cfg.ConditionsTTL)
	assert.False(t, cfg.DedupeInflight)
	assert.Equal(t, GeocoderGoogle, cfg.Geocoder)
	assert.Equal(t, []weather.Location{
		{Lat: 39.7392, Lon: -104.9903},
		{Lat: 51.5074, Lon: -0.1278},
	}, cfg.Locations)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]struct {
		key   string
		value string
	}{
		"units":     {key: "UNITS", value: "kelvin"},
		"geocoder":  {key: "GEOCODER", value: "bing"},
		"timeout":   {key: "HTTP_TIMEOUT", value: "soon"},
		"ttl":       {key: "IMAGERY_TTL", value: "-1m"},
		"locations": {key: "LOCATIONS", value: "91,0"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tc.key, tc.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestParseLocations(t *testing.T) {
	locs, err := ParseLocations("")
	require.NoError(t, err)
	assert.Empty(t, locs)

	locs, err = ParseLocations("1,2;;3,4;")
	require.NoError(t, err)
	assert.Len(t, locs, 2)

	for _, bad := range []string{"1", "1,2,3", "a,2", "1,b", "0,181"} {
		_, err := ParseLocations(bad)
		assert.Error(t, err, bad)
	}
}

func TestNewLogger_Level(t *testing.T) {
	ctx := context.Background()

	debug := (&AppConfig{LogLevel: "debug", LogFormat: "json"}).NewLogger()
	assert.True(t, debug.Enabled(ctx, slog.LevelDebug))

	warn := (&AppConfig{LogLevel: "WARN"}).NewLogger()
	assert.False(t, warn.Enabled(ctx, slog.LevelInfo))
	assert.True(t, warn.Enabled(ctx, slog.LevelWarn))

	fallback := (&AppConfig{LogLevel: "chatty"}).NewLogger()
	assert.True(t, fallback.Enabled(ctx, slog.LevelInfo))
	assert.False(t, fallback.Enabled(ctx, slog.LevelDebug))
}
