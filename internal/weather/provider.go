package weather

import (
	"context"
	"time"
)

// Provider abstracts the upstream that serves conditions, forecasts, alerts
// and air quality for a location.
type Provider interface {
	Name() string
	FetchConditions(ctx context.Context, loc Location) (Conditions, error)
	FetchAirQuality(ctx context.Context, loc Location) (*AirQuality, error)
}

// Geocoder resolves free text to locations and locations back to names.
type Geocoder interface {
	Search(ctx context.Context, query string, limit int) ([]Location, error)
	Reverse(ctx context.Context, loc Location) (Location, error)
}

// CacheController is implemented by every component that owns a cache.
type CacheController interface {
	SetTTL(ttl time.Duration)
	ClearCache()
}

// TimezoneResolver looks up the IANA timezone for a coordinate.
type TimezoneResolver interface {
	GetTimezone(latitude, longitude float64) (string, error)
}
