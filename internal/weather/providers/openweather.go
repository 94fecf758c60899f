package providers

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/weather-normalizer/internal/weather"
)

// DefaultOpenWeatherBaseURL is the public OpenWeather API host.
const DefaultOpenWeatherBaseURL = "https://api.openweathermap.org"

// OpenWeatherConfig holds request parameters shared by every OpenWeather call.
type OpenWeatherConfig struct {
	APIKey  string
	BaseURL string
	Units   weather.Units
	// Exclude is passed through to One Call (e.g. "minutely").
	Exclude string
}

// OpenWeatherProvider implements weather.Provider on top of One Call 3.0
// and the Air Pollution API.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	units   weather.Units
	exclude string
	client  *Client
}

func NewOpenWeatherProvider(client *Client, cfg OpenWeatherConfig) *OpenWeatherProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenWeatherBaseURL
	}
	if !cfg.Units.Valid() {
		cfg.Units = weather.UnitsImperial
	}

	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		units:   cfg.Units,
		exclude: cfg.Exclude,
		client:  client,
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

// FetchConditions returns current conditions, forecasts and alerts for loc.
func (p *OpenWeatherProvider) FetchConditions(ctx context.Context, loc weather.Location) (weather.Conditions, error) {
	if p.apiKey == "" {
		return weather.Conditions{}, fmt.Errorf("openweather api key is not configured")
	}

	values := p.coordValues(loc)
	values.Set("units", string(p.units))
	if p.exclude != "" {
		values.Set("exclude", p.exclude)
	}

	target := fmt.Sprintf("%s/data/3.0/onecall?%s", p.baseURL, values.Encode())
	key := fmt.Sprintf("onecall:%s:%s:%s", loc.Key(), p.units, p.exclude)

	f, err := fetchWithCache(ctx, p.client, target, key, func(body []byte) (weather.Conditions, error) {
		r, err := decodeJSON[OneCallResponse](body)
		if err != nil {
			return weather.Conditions{}, err
		}
		return NormalizeOneCall(r, p.units), nil
	})
	if err != nil {
		return weather.Conditions{}, err
	}

	c := f.Value
	c.Stale = f.Stale
	return c, nil
}

// FetchAirQuality returns the current air-quality reading for loc.
func (p *OpenWeatherProvider) FetchAirQuality(ctx context.Context, loc weather.Location) (*weather.AirQuality, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("openweather api key is not configured")
	}

	target := fmt.Sprintf("%s/data/2.5/air_pollution?%s", p.baseURL, p.coordValues(loc).Encode())
	key := "air:" + loc.Key()

	f, err := fetchWithCache(ctx, p.client, target, key, func(body []byte) (weather.AirQuality, error) {
		r, err := decodeJSON[AirPollutionResponse](body)
		if err != nil {
			return weather.AirQuality{}, err
		}
		return NormalizeAirQuality(r, time.UTC), nil
	})
	if err != nil {
		return nil, err
	}

	// Copy so the cached value is never mutated.
	aq := f.Value
	aq.Stale = f.Stale
	return &aq, nil
}

// SetTTL changes the freshness window of the underlying client cache.
func (p *OpenWeatherProvider) SetTTL(ttl time.Duration) {
	p.client.SetTTL(ttl)
}

// ClearCache drops the underlying client cache.
func (p *OpenWeatherProvider) ClearCache() {
	p.client.ClearCache()
}

func (p *OpenWeatherProvider) coordValues(loc weather.Location) url.Values {
	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(loc.Lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(loc.Lon, 'f', -1, 64))
	values.Set("appid", p.apiKey)
	return values
}
