package providers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/weather-normalizer/internal/store"
	"github.com/i474232898/weather-normalizer/internal/weather"
)

// GoogleGeocoder implements weather.Geocoder with the Google Geocoding API.
// The underlying library returns a single best match and does not go
// through the relay.
type GoogleGeocoder struct {
	cache  *store.Cache[[]weather.Location]
	logger *slog.Logger

	geocode func(geocoder.Address) (geocoder.Location, error)
	reverse func(geocoder.Location) ([]geocoder.Address, error)
}

// NewGoogleGeocoder sets the library's process-wide API key, so build at
// most one per process.
func NewGoogleGeocoder(apiKey string, ttl time.Duration, logger *slog.Logger) *GoogleGeocoder {
	geocoder.ApiKey = apiKey
	if logger == nil {
		logger = slog.Default()
	}
	return &GoogleGeocoder{
		cache:   store.NewCache[[]weather.Location](ttl),
		logger:  logger.With("component", "geocoder", "provider", "google"),
		geocode: geocoder.Geocoding,
		reverse: geocoder.GeocodingReverse,
	}
}

// Search resolves query. limit is accepted for interface parity.
func (g *GoogleGeocoder) Search(ctx context.Context, query string, limit int) ([]weather.Location, error) {
	key := "direct:" + strings.ToLower(query)
	if g.cache.IsFresh(key) {
		if v, ok := g.cache.Get(key); ok {
			return v, nil
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	loc, err := g.geocode(geocoder.Address{City: query})
	if err != nil {
		return g.staleOr(key, fmt.Errorf("%w: google geocoding: %v", ErrTransport, err))
	}

	result := []weather.Location{{Lat: loc.Latitude, Lon: loc.Longitude, Name: query}}
	g.cache.Put(key, result)
	return result, nil
}

// Reverse fills place names for loc.
func (g *GoogleGeocoder) Reverse(ctx context.Context, loc weather.Location) (weather.Location, error) {
	key := "reverse:" + loc.Key()
	if g.cache.IsFresh(key) {
		if v, ok := g.cache.Get(key); ok && len(v) > 0 {
			return v[0], nil
		}
	}
	if err := ctx.Err(); err != nil {
		return weather.Location{}, err
	}

	addrs, err := g.reverse(geocoder.Location{Latitude: loc.Lat, Longitude: loc.Lon})
	if err != nil {
		v, staleErr := g.staleOr(key, fmt.Errorf("%w: google reverse geocoding: %v", ErrTransport, err))
		if staleErr != nil || len(v) == 0 {
			return weather.Location{}, staleErr
		}
		return v[0], nil
	}
	if len(addrs) == 0 {
		return weather.Location{}, fmt.Errorf("reverse geocode %s: %w", loc.Key(), ErrNoResults)
	}

	a := addrs[0]
	loc.Name = a.City
	if loc.Name == "" {
		loc.Name = a.FormattedAddress
	}
	loc.State = a.State
	loc.Country = a.Country

	g.cache.Put(key, []weather.Location{loc})
	return loc, nil
}

// SetTTL changes the freshness window of the geocoding cache.
func (g *GoogleGeocoder) SetTTL(ttl time.Duration) {
	g.cache.SetTTL(ttl)
}

// ClearCache drops the geocoding cache.
func (g *GoogleGeocoder) ClearCache() {
	g.cache.Clear()
}

func (g *GoogleGeocoder) staleOr(key string, err error) ([]weather.Location, error) {
	if v, ok := g.cache.Get(key); ok {
		g.logger.Warn("serving stale cache entry", "key", key, "error", err)
		return v, nil
	}
	return nil, err
}
