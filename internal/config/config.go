package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/i474232898/weather-normalizer/internal/store"
	"github.com/i474232898/weather-normalizer/internal/weather"
)

// Geocoder backends.
const (
	GeocoderOpenWeather = "openweather"
	GeocoderGoogle      = "google"
)

type AppConfig struct {
	Port string

	OpenWeatherAPIKey  string
	OpenWeatherBaseURL string
	Units              weather.Units
	// Exclude is the comma separated One Call sections to skip.
	Exclude string

	// RelayPrefix is prepended to every upstream URL; empty means direct.
	RelayPrefix string
	HTTPTimeout time.Duration

	ConditionsTTL time.Duration
	ImageryTTL    time.Duration

	// DedupeInflight collapses concurrent fetches of the same cache key.
	DedupeInflight bool

	ImageryManifestURL string
	ImageryTileBaseURL string

	Geocoder             string
	GoogleGeocoderAPIKey string

	// RefreshInterval controls how often the scheduler warms the caches.
	RefreshInterval time.Duration
	// Locations to keep warm.
	Locations []weather.Location

	LogLevel  string
	LogFormat string
}

var validate = validator.New()

// Load reads configuration from .env, an optional config.yaml and the
// environment, with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found or error loading it", "error", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("PORT", "8080")
	v.SetDefault("OPENWEATHER_BASE_URL", "https://api.openweathermap.org")
	v.SetDefault("UNITS", string(weather.UnitsImperial))
	v.SetDefault("EXCLUDE", "minutely")
	v.SetDefault("HTTP_TIMEOUT", "10s")
	v.SetDefault("CONDITIONS_TTL", store.DefaultConditionsTTL.String())
	v.SetDefault("IMAGERY_TTL", store.DefaultImageryTTL.String())
	v.SetDefault("DEDUPE_INFLIGHT", true)
	v.SetDefault("IMAGERY_MANIFEST_URL", "https://api.rainviewer.com/public/weather-maps.json")
	v.SetDefault("IMAGERY_TILE_BASE_URL", "https://tilecache.rainviewer.com")
	v.SetDefault("GEOCODER", GeocoderOpenWeather)
	v.SetDefault("REFRESH_INTERVAL", "15m")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults and env cover everything.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &AppConfig{
		Port:                 v.GetString("PORT"),
		OpenWeatherAPIKey:    v.GetString("OPENWEATHER_API_KEY"),
		OpenWeatherBaseURL:   v.GetString("OPENWEATHER_BASE_URL"),
		Units:                weather.Units(strings.ToLower(v.GetString("UNITS"))),
		Exclude:              v.GetString("EXCLUDE"),
		RelayPrefix:          v.GetString("RELAY_PREFIX"),
		DedupeInflight:       v.GetBool("DEDUPE_INFLIGHT"),
		ImageryManifestURL:   v.GetString("IMAGERY_MANIFEST_URL"),
		ImageryTileBaseURL:   v.GetString("IMAGERY_TILE_BASE_URL"),
		Geocoder:             strings.ToLower(v.GetString("GEOCODER")),
		GoogleGeocoderAPIKey: v.GetString("GOOGLE_GEOCODER_API_KEY"),
		LogLevel:             v.GetString("LOG_LEVEL"),
		LogFormat:            v.GetString("LOG_FORMAT"),
	}

	if !cfg.Units.Valid() {
		return nil, fmt.Errorf("invalid UNITS %q: want imperial or metric", cfg.Units)
	}
	if cfg.Geocoder != GeocoderOpenWeather && cfg.Geocoder != GeocoderGoogle {
		return nil, fmt.Errorf("invalid GEOCODER %q: want openweather or google", cfg.Geocoder)
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"HTTP_TIMEOUT", &cfg.HTTPTimeout},
		{"CONDITIONS_TTL", &cfg.ConditionsTTL},
		{"IMAGERY_TTL", &cfg.ImageryTTL},
		{"REFRESH_INTERVAL", &cfg.RefreshInterval},
	}
	for _, d := range durations {
		parsed, err := time.ParseDuration(v.GetString(d.key))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		if parsed < 0 {
			return nil, fmt.Errorf("invalid %s: must not be negative", d.key)
		}
		*d.dst = parsed
	}

	locs, err := ParseLocations(v.GetString("LOCATIONS"))
	if err != nil {
		return nil, err
	}
	cfg.Locations = locs

	return cfg, nil
}

// ParseLocations parses "lat,lon;lat,lon". Blank entries are skipped.
func ParseLocations(s string) ([]weather.Location, error) {
	var locs []weather.Location
	for _, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.Split(pair, ",")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid LOCATIONS entry %q: want lat,lon", pair)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid latitude in %q: %w", pair, err)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid longitude in %q: %w", pair, err)
		}

		loc := weather.Location{Lat: lat, Lon: lon}
		if err := validate.Struct(loc); err != nil {
			return nil, fmt.Errorf("invalid LOCATIONS entry %q: %w", pair, err)
		}
		locs = append(locs, loc)
	}
	return locs, nil
}

// NewLogger creates a slog.Logger from LOG_LEVEL and LOG_FORMAT.
func (c *AppConfig) NewLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(c.LogFormat) {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
