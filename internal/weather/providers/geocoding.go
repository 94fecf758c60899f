package providers

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/i474232898/weather-normalizer/internal/weather"
)

// OpenWeatherGeocoder implements weather.Geocoder with the /geo/1.0 API. It
// shares the conditions client and therefore its cache.
type OpenWeatherGeocoder struct {
	provider *OpenWeatherProvider
}

func NewOpenWeatherGeocoder(provider *OpenWeatherProvider) *OpenWeatherGeocoder {
	return &OpenWeatherGeocoder{provider: provider}
}

// Search resolves a free-text place name to up to limit locations.
func (g *OpenWeatherGeocoder) Search(ctx context.Context, query string, limit int) ([]weather.Location, error) {
	p := g.provider
	if p.apiKey == "" {
		return nil, fmt.Errorf("openweather api key is not configured")
	}

	values := url.Values{}
	values.Set("q", query)
	values.Set("limit", strconv.Itoa(limit))
	values.Set("appid", p.apiKey)

	target := fmt.Sprintf("%s/geo/1.0/direct?%s", p.baseURL, values.Encode())
	key := fmt.Sprintf("geo:direct:%s:%d", strings.ToLower(query), limit)

	f, err := fetchWithCache(ctx, p.client, target, key, decodeGeocoding)
	if err != nil {
		return nil, err
	}
	return f.Value, nil
}

// Reverse fills place names for loc. The returned coordinates are the
// caller's, not the matched place's.
func (g *OpenWeatherGeocoder) Reverse(ctx context.Context, loc weather.Location) (weather.Location, error) {
	p := g.provider
	if p.apiKey == "" {
		return weather.Location{}, fmt.Errorf("openweather api key is not configured")
	}

	values := p.coordValues(loc)
	values.Set("limit", "1")

	target := fmt.Sprintf("%s/geo/1.0/reverse?%s", p.baseURL, values.Encode())
	key := "geo:reverse:" + loc.Key()

	f, err := fetchWithCache(ctx, p.client, target, key, decodeGeocoding)
	if err != nil {
		return weather.Location{}, err
	}
	if len(f.Value) == 0 {
		return weather.Location{}, fmt.Errorf("reverse geocode %s: %w", loc.Key(), ErrNoResults)
	}

	match := f.Value[0]
	loc.Name = match.Name
	loc.State = match.State
	loc.Country = match.Country
	return loc, nil
}

func decodeGeocoding(body []byte) ([]weather.Location, error) {
	results, err := decodeJSON[[]GeocodingResult](body)
	if err != nil {
		return nil, err
	}
	locs := make([]weather.Location, 0, len(results))
	for _, r := range results {
		locs = append(locs, weather.Location{
			Lat:     r.Lat,
			Lon:     r.Lon,
			Name:    r.Name,
			State:   r.State,
			Country: r.Country,
		})
	}
	return locs, nil
}
