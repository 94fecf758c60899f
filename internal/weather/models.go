package weather

import (
	"strconv"
	"time"
)

// Units selects the measurement system requested from upstream and used for
// every canonical field.
type Units string

const (
	UnitsImperial Units = "imperial"
	UnitsMetric   Units = "metric"
)

// Valid reports whether u is a supported unit system.
func (u Units) Valid() bool {
	return u == UnitsImperial || u == UnitsMetric
}

// Forecast length limits of the canonical schema.
const (
	MaxHourly = 48
	MaxDaily  = 8
)

// Location identifies a geographic point. Only the coordinates take part in
// cache keys; the names are filled by geocoding and are informational.
type Location struct {
	Lat     float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon     float64 `json:"lon" validate:"gte=-180,lte=180"`
	Name    string  `json:"name,omitempty"`
	State   string  `json:"state,omitempty"`
	Country string  `json:"country,omitempty"`
}

// Key returns a canonical string key for indexing this location in caches.
// Coordinates are used verbatim, without rounding.
func (l Location) Key() string {
	return strconv.FormatFloat(l.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(l.Lon, 'f', -1, 64)
}

// Snapshot is the canonical weather view for one location.
type Snapshot struct {
	Location   Location    `json:"location"`
	Timezone   string      `json:"timezone"`
	Units      Units       `json:"units"`
	Current    Current     `json:"current"`
	Hourly     []Hourly    `json:"hourly"`
	Daily      []Daily     `json:"daily"`
	Alerts     []Alert     `json:"alerts"`
	AirQuality *AirQuality `json:"airQuality"`

	// Stale is set when any part of the snapshot was served from an expired
	// cache entry because the refresh failed.
	Stale     bool      `json:"stale"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// Current holds observed conditions.
type Current struct {
	ObservationTime       time.Time `json:"observationTime"`
	Temperature           int       `json:"temperature"`
	TemperatureFeelsLike  int       `json:"temperatureFeelsLike"`
	TemperatureDewPoint   int       `json:"temperatureDewPoint"`
	RelativeHumidity      int       `json:"relativeHumidity"`
	PressureAltimeter     float64   `json:"pressureAltimeter"`
	Visibility            float64   `json:"visibility"`
	WindSpeed             int       `json:"windSpeed"`
	WindGust              int       `json:"windGust"`
	WindDirection         int       `json:"windDirection"`
	WindDirectionCardinal string    `json:"windDirectionCardinal"`
	UVIndex               int       `json:"uvIndex"`
	CloudCover            int       `json:"cloudCover"`
	IconCode              IconCode  `json:"iconCode"`
	DayOrNight            string    `json:"dayOrNight"`
	WxPhraseLong          string    `json:"wxPhraseLong"`
	Sunrise               time.Time `json:"sunriseTimeLocal"`
	Sunset                time.Time `json:"sunsetTimeLocal"`
}

// Hourly is one forecast hour. Index 0 is the nearest future hour.
type Hourly struct {
	ValidTime             time.Time `json:"validTimeLocal"`
	Temperature           int       `json:"temperature"`
	TemperatureFeelsLike  int       `json:"temperatureFeelsLike"`
	RelativeHumidity      int       `json:"relativeHumidity"`
	PrecipChance          int       `json:"precipChance"`
	WindSpeed             int       `json:"windSpeed"`
	WindGust              int       `json:"windGust"`
	WindDirectionCardinal string    `json:"windDirectionCardinal"`
	CloudCover            int       `json:"cloudCover"`
	IconCode              IconCode  `json:"iconCode"`
	DayOrNight            string    `json:"dayOrNight"`
	WxPhraseLong          string    `json:"wxPhraseLong"`
}

// Daily is one forecast day. Index 0 is today.
type Daily struct {
	ValidTime             time.Time `json:"validTimeLocal"`
	DayOfWeek             string    `json:"dayOfWeek"`
	TemperatureMax        int       `json:"temperatureMax"`
	TemperatureMin        int       `json:"temperatureMin"`
	PrecipChance          int       `json:"precipChance"`
	WindSpeed             int       `json:"windSpeed"`
	WindDirectionCardinal string    `json:"windDirectionCardinal"`
	IconCodeDay           IconCode  `json:"iconCodeDay"`
	IconCodeNight         IconCode  `json:"iconCodeNight"`
	WxPhraseLong          string    `json:"wxPhraseLong"`
	Narrative             string    `json:"narrative"`
	Sunrise               time.Time `json:"sunriseTimeLocal"`
	Sunset                time.Time `json:"sunsetTimeLocal"`
	MoonPhase             float64   `json:"moonPhase"`
}

// Alert is a normalized weather alert. SeverityCode is derived from
// free-text tags and is not guaranteed to match any upstream scale.
type Alert struct {
	EventDescription string    `json:"eventDescription"`
	HeadlineText     string    `json:"headlineText"`
	Description      string    `json:"description"`
	SeverityCode     int       `json:"severityCode"`
	IssueTime        time.Time `json:"issueTimeLocal"`
	ExpireTime       time.Time `json:"expireTimeLocal"`
	Source           string    `json:"source"`
}

// AirQuality is a single current air-quality reading.
type AirQuality struct {
	Index      int                `json:"index"`
	Category   string             `json:"category"`
	Components map[string]float64 `json:"components,omitempty"`
	Time       time.Time          `json:"time"`
	Stale      bool               `json:"stale,omitempty"`
}

// Conditions is what a provider returns for the load-bearing dataset:
// current conditions, forecasts and alerts for one location.
type Conditions struct {
	Timezone string
	Current  Current
	Hourly   []Hourly
	Daily    []Daily
	Alerts   []Alert
	Stale    bool
}

// In returns a copy of c with every timestamp expressed in zone. The slices
// are copied so cached values are never mutated.
func (c Conditions) In(zone *time.Location) Conditions {
	c.Current.ObservationTime = inZone(c.Current.ObservationTime, zone)
	c.Current.Sunrise = inZone(c.Current.Sunrise, zone)
	c.Current.Sunset = inZone(c.Current.Sunset, zone)

	hourly := make([]Hourly, len(c.Hourly))
	for i, h := range c.Hourly {
		h.ValidTime = inZone(h.ValidTime, zone)
		hourly[i] = h
	}
	daily := make([]Daily, len(c.Daily))
	for i, d := range c.Daily {
		d.ValidTime = inZone(d.ValidTime, zone)
		d.Sunrise = inZone(d.Sunrise, zone)
		d.Sunset = inZone(d.Sunset, zone)
		if !d.ValidTime.IsZero() {
			d.DayOfWeek = d.ValidTime.Weekday().String()
		}
		daily[i] = d
	}
	alerts := make([]Alert, len(c.Alerts))
	for i, a := range c.Alerts {
		a.IssueTime = inZone(a.IssueTime, zone)
		a.ExpireTime = inZone(a.ExpireTime, zone)
		alerts[i] = a
	}

	if c.Hourly != nil {
		c.Hourly = hourly
	}
	if c.Daily != nil {
		c.Daily = daily
	}
	if c.Alerts != nil {
		c.Alerts = alerts
	}
	return c
}

// inZone leaves the zero time untouched so absent fields stay absent.
func inZone(t time.Time, zone *time.Location) time.Time {
	if t.IsZero() {
		return t
	}
	return t.In(zone)
}
