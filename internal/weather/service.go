package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/sourcegraph/conc/iter"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNoProvider is returned when the service was built without a provider.
	ErrNoProvider = errors.New("no weather provider configured")
	// ErrNoGeocoder is returned when geocoding is requested but not configured.
	ErrNoGeocoder = errors.New("no geocoder configured")
	// ErrEmptyQuery is returned for blank location searches.
	ErrEmptyQuery = errors.New("search query is empty")
)

// DefaultSearchLimit is used when a search asks for zero or fewer results.
const DefaultSearchLimit = 5

// Service orchestrates fetching from the provider and building snapshots.
type Service struct {
	provider  Provider
	geocoder  Geocoder
	timezones TimezoneResolver
	caches    []CacheController
	units     Units
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithGeocoder sets the geocoder used by SearchLocation and ReverseGeocode.
func WithGeocoder(g Geocoder) Option {
	return func(s *Service) { s.geocoder = g }
}

// WithTimezoneResolver sets the fallback used when a provider omits the timezone.
func WithTimezoneResolver(r TimezoneResolver) Option {
	return func(s *Service) { s.timezones = r }
}

// WithCaches registers caches that SetTTL and ClearCache fan out to.
func WithCaches(caches ...CacheController) Option {
	return func(s *Service) { s.caches = append(s.caches, caches...) }
}

// WithUnits records the unit system snapshots are reported in.
func WithUnits(u Units) Option {
	return func(s *Service) { s.units = u }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a new Service.
func NewService(provider Provider, opts ...Option) *Service {
	s := &Service{
		provider: provider,
		units:    UnitsImperial,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "weather-service")
	return s
}

// GetSnapshot fetches conditions and air quality concurrently for loc.
// A conditions failure is returned to the caller; an air-quality failure is
// logged and leaves AirQuality nil.
func (s *Service) GetSnapshot(ctx context.Context, loc Location) (*Snapshot, error) {
	if s.provider == nil {
		return nil, ErrNoProvider
	}

	var (
		g          errgroup.Group
		conditions Conditions
		airQuality *AirQuality
	)

	g.Go(func() error {
		c, err := s.provider.FetchConditions(ctx, loc)
		if err != nil {
			return fmt.Errorf("failed to get conditions for %s: %w", loc.Key(), err)
		}
		conditions = c
		return nil
	})

	g.Go(func() error {
		aq, err := s.provider.FetchAirQuality(ctx, loc)
		if err != nil {
			s.logger.Warn("air quality unavailable",
				"provider", s.provider.Name(),
				"location", loc.Key(),
				"error", err,
			)
			return nil
		}
		airQuality = aq
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("snapshot fetch failed", "location", loc.Key(), "error", err)
		return nil, err
	}

	tz := conditions.Timezone
	if tz == "" && s.timezones != nil {
		resolved, err := s.timezones.GetTimezone(loc.Lat, loc.Lon)
		if err != nil {
			s.logger.Debug("timezone fallback failed", "location", loc.Key(), "error", err)
		} else if zone, err := time.LoadLocation(resolved); err != nil {
			s.logger.Debug("unknown fallback timezone", "location", loc.Key(), "timezone", resolved, "error", err)
		} else {
			tz = resolved
			conditions = conditions.In(zone)
		}
	}

	return &Snapshot{
		Location:   loc,
		Timezone:   tz,
		Units:      s.units,
		Current:    conditions.Current,
		Hourly:     conditions.Hourly,
		Daily:      conditions.Daily,
		Alerts:     conditions.Alerts,
		AirQuality: airQuality,
		Stale:      conditions.Stale || (airQuality != nil && airQuality.Stale),
		FetchedAt:  s.now().UTC(),
	}, nil
}

// GetBatchSnapshots fetches one snapshot per location concurrently. The
// result is index-aligned with locs; a failed location yields nil at its
// index and does not affect the others.
func (s *Service) GetBatchSnapshots(ctx context.Context, locs []Location) []*Snapshot {
	mapper := iter.Mapper[Location, *Snapshot]{MaxGoroutines: len(locs)}
	return mapper.Map(locs, func(loc *Location) *Snapshot {
		snap, err := s.GetSnapshot(ctx, *loc)
		if err != nil {
			s.logger.Warn("batch member failed", "location", loc.Key(), "error", err)
			return nil
		}
		return snap
	})
}

// SearchLocation resolves a free-text query into candidate locations.
func (s *Service) SearchLocation(ctx context.Context, query string, limit int) ([]Location, error) {
	if s.geocoder == nil {
		return nil, ErrNoGeocoder
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	return s.geocoder.Search(ctx, query, limit)
}

// ReverseGeocode fills in place names for loc.
func (s *Service) ReverseGeocode(ctx context.Context, loc Location) (Location, error) {
	if s.geocoder == nil {
		return Location{}, ErrNoGeocoder
	}
	return s.geocoder.Reverse(ctx, loc)
}

// SetTTL changes the freshness window of every owned cache.
func (s *Service) SetTTL(ttl time.Duration) {
	for _, c := range s.caches {
		c.SetTTL(ttl)
	}
	s.logger.Info("cache ttl updated", "ttl", ttl)
}

// ClearCache drops every entry of every owned cache.
func (s *Service) ClearCache() {
	for _, c := range s.caches {
		c.ClearCache()
	}
	s.logger.Info("caches cleared")
}
