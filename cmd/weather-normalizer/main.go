package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/i474232898/weather-normalizer/internal/api/http"
	"github.com/i474232898/weather-normalizer/internal/config"
	"github.com/i474232898/weather-normalizer/internal/imagery"
	"github.com/i474232898/weather-normalizer/internal/scheduler"
	"github.com/i474232898/weather-normalizer/internal/timezone"
	"github.com/i474232898/weather-normalizer/internal/weather"
	"github.com/i474232898/weather-normalizer/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	// One client per upstream family; each owns its cache.
	conditionsClient := providers.NewClient(providers.ClientConfig{
		Name:           "openweather",
		Relay:          cfg.RelayPrefix,
		Timeout:        cfg.HTTPTimeout,
		TTL:            cfg.ConditionsTTL,
		DedupeInflight: cfg.DedupeInflight,
		Logger:         logger,
	})
	imageryClient := providers.NewClient(providers.ClientConfig{
		Name:           "rainviewer",
		Relay:          cfg.RelayPrefix,
		Timeout:        cfg.HTTPTimeout,
		TTL:            cfg.ImageryTTL,
		DedupeInflight: cfg.DedupeInflight,
		Logger:         logger,
	})

	openWeather := providers.NewOpenWeatherProvider(conditionsClient, providers.OpenWeatherConfig{
		APIKey:  cfg.OpenWeatherAPIKey,
		BaseURL: cfg.OpenWeatherBaseURL,
		Units:   cfg.Units,
		Exclude: cfg.Exclude,
	})
	rainViewer := providers.NewRainViewerProvider(imageryClient, cfg.ImageryManifestURL)

	caches := []weather.CacheController{openWeather, rainViewer}

	var geocoder weather.Geocoder = providers.NewOpenWeatherGeocoder(openWeather)
	if cfg.Geocoder == config.GeocoderGoogle {
		google := providers.NewGoogleGeocoder(cfg.GoogleGeocoderAPIKey, cfg.ConditionsTTL, logger)
		geocoder = google
		caches = append(caches, google)
	}

	opts := []weather.Option{
		weather.WithLogger(logger),
		weather.WithUnits(cfg.Units),
		weather.WithGeocoder(geocoder),
		weather.WithCaches(caches...),
	}

	// Timezone fallback is optional; the polygon data is large.
	if tz, err := timezone.NewService(); err != nil {
		logger.Warn("timezone fallback disabled", "error", err)
	} else {
		opts = append(opts, weather.WithTimezoneResolver(tz))
	}

	service := weather.NewService(openWeather, opts...)
	images := imagery.NewManager(rainViewer, cfg.ImageryTileBaseURL, logger)

	// Scheduler that keeps configured locations and imagery warm.
	sched := scheduler.New(cfg.Locations, cfg.RefreshInterval, service, images, logger)
	if err := sched.Start(); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	app := httpapi.NewApp(true)
	httpapi.RegisterRoutes(app, service, images)

	go func() {
		logger.Info("listening", "port", cfg.Port, "units", cfg.Units, "relay", cfg.RelayPrefix != "")
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Error("fiber server stopped", "error", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("error during shutdown", "error", err)
	}
}
