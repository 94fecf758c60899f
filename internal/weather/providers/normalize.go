package providers

import (
	"fmt"
	"time"
	// Embedded zone database so LoadTimezone works on minimal images.
	_ "time/tzdata"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/i474232898/weather-normalizer/internal/common"
	"github.com/i474232898/weather-normalizer/internal/weather"
)

const (
	hpaToInHg     = 0.02953
	metersPerMile = 1609.344
	msToKmh       = 3.6

	// Upstream caps reported visibility at 10 km and omits it when unknown.
	defaultVisibilityMeters = 10000
)

var titleCaser = cases.Title(language.English)

// LoadTimezone resolves an IANA name, falling back to UTC.
func LoadTimezone(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// NormalizeOneCall maps a full One Call body onto canonical conditions.
func NormalizeOneCall(r OneCallResponse, units weather.Units) weather.Conditions {
	tz := LoadTimezone(r.Timezone)
	return weather.Conditions{
		Timezone: r.Timezone,
		Current:  NormalizeCurrent(r.Current, units, tz),
		Hourly:   NormalizeHourly(r.Hourly, r.Current.Dt, units, tz),
		Daily:    NormalizeDaily(r.Daily, units, tz),
		Alerts:   NormalizeAlerts(r.Alerts, tz),
	}
}

// NormalizeCurrent maps observed conditions.
func NormalizeCurrent(c OneCallCurrent, units weather.Units, tz *time.Location) weather.Current {
	cond := primaryCondition(c.Weather)
	isDay := weather.IsDayIcon(cond.Icon)

	return weather.Current{
		ObservationTime:       localTime(c.Dt, tz),
		Temperature:           roundInt(c.Temp),
		TemperatureFeelsLike:  roundInt(c.FeelsLike),
		TemperatureDewPoint:   roundInt(c.DewPoint),
		RelativeHumidity:      roundInt(c.Humidity),
		PressureAltimeter:     convertPressure(c.Pressure, units),
		Visibility:            convertVisibility(c.Visibility, units),
		WindSpeed:             convertWind(c.WindSpeed, units),
		WindGust:              convertWind(gustOr(c.WindGust, c.WindSpeed), units),
		WindDirection:         roundInt(c.WindDeg),
		WindDirectionCardinal: weather.MapDirection(c.WindDeg),
		UVIndex:               roundInt(c.UVI),
		CloudCover:            roundInt(c.Clouds),
		IconCode:              weather.MapCondition(cond.ID, isDay),
		DayOrNight:            dayOrNight(isDay),
		WxPhraseLong:          phrase(cond),
		Sunrise:               localTime(c.Sunrise, tz),
		Sunset:                localTime(c.Sunset, tz),
	}
}

// NormalizeHourly maps the hourly forecast. Hours that ended before the
// observation time are skipped and the result is capped at MaxHourly.
func NormalizeHourly(hours []OneCallHourly, observedAt int64, units weather.Units, tz *time.Location) []weather.Hourly {
	out := make([]weather.Hourly, 0, min(len(hours), weather.MaxHourly))
	for _, h := range hours {
		if len(out) == weather.MaxHourly {
			break
		}
		if observedAt > 0 && h.Dt+3600 <= observedAt {
			continue
		}

		cond := primaryCondition(h.Weather)
		isDay := weather.IsDayIcon(cond.Icon)
		out = append(out, weather.Hourly{
			ValidTime:             localTime(h.Dt, tz),
			Temperature:           roundInt(h.Temp),
			TemperatureFeelsLike:  roundInt(h.FeelsLike),
			RelativeHumidity:      roundInt(h.Humidity),
			PrecipChance:          percent(h.Pop),
			WindSpeed:             convertWind(h.WindSpeed, units),
			WindGust:              convertWind(gustOr(h.WindGust, h.WindSpeed), units),
			WindDirectionCardinal: weather.MapDirection(h.WindDeg),
			CloudCover:            roundInt(h.Clouds),
			IconCode:              weather.MapCondition(cond.ID, isDay),
			DayOrNight:            dayOrNight(isDay),
			WxPhraseLong:          phrase(cond),
		})
	}
	return out
}

// NormalizeDaily maps the daily forecast, capped at MaxDaily.
func NormalizeDaily(days []OneCallDaily, units weather.Units, tz *time.Location) []weather.Daily {
	if len(days) > weather.MaxDaily {
		days = days[:weather.MaxDaily]
	}

	out := make([]weather.Daily, 0, len(days))
	for _, d := range days {
		cond := primaryCondition(d.Weather)
		valid := localTime(d.Dt, tz)
		out = append(out, weather.Daily{
			ValidTime:             valid,
			DayOfWeek:             valid.Weekday().String(),
			TemperatureMax:        roundInt(d.Temp.Max),
			TemperatureMin:        roundInt(d.Temp.Min),
			PrecipChance:          percent(d.Pop),
			WindSpeed:             convertWind(d.WindSpeed, units),
			WindDirectionCardinal: weather.MapDirection(d.WindDeg),
			IconCodeDay:           weather.MapCondition(cond.ID, true),
			IconCodeNight:         weather.MapCondition(cond.ID, false),
			WxPhraseLong:          phrase(cond),
			Narrative:             d.Summary,
			Sunrise:               localTime(d.Sunrise, tz),
			Sunset:                localTime(d.Sunset, tz),
			MoonPhase:             d.MoonPhase,
		})
	}
	return out
}

// NormalizeAlerts maps upstream alerts. Severity is derived from tags and
// the event name.
func NormalizeAlerts(alerts []OneCallAlert, tz *time.Location) []weather.Alert {
	out := make([]weather.Alert, 0, len(alerts))
	for _, a := range alerts {
		headline := a.Event
		if a.SenderName != "" {
			headline = fmt.Sprintf("%s issued by %s", a.Event, a.SenderName)
		}
		out = append(out, weather.Alert{
			EventDescription: a.Event,
			HeadlineText:     headline,
			Description:      a.Description,
			SeverityCode:     weather.MapSeverity(a.Tags),
			IssueTime:        localTime(a.Start, tz),
			ExpireTime:       localTime(a.End, tz),
			Source:           a.SenderName,
		})
	}
	return out
}

// NormalizeAirQuality maps the first air-quality reading. An empty list
// yields index 0 with the unknown category.
func NormalizeAirQuality(r AirPollutionResponse, tz *time.Location) weather.AirQuality {
	if len(r.List) == 0 {
		return weather.AirQuality{Category: weather.AQICategoryUnknown}
	}
	item := r.List[0]
	return weather.AirQuality{
		Index:      item.Main.AQI,
		Category:   weather.MapAQICategory(item.Main.AQI),
		Components: item.Components,
		Time:       localTime(item.Dt, tz),
	}
}

func primaryCondition(items []owCondition) owCondition {
	if len(items) == 0 {
		return owCondition{}
	}
	return items[0]
}

func phrase(c owCondition) string {
	if c.Description == "" {
		return c.Main
	}
	return titleCaser.String(c.Description)
}

func dayOrNight(isDay bool) string {
	if isDay {
		return "D"
	}
	return "N"
}

func localTime(unix int64, tz *time.Location) time.Time {
	if unix == 0 {
		return time.Time{}
	}
	if tz == nil {
		tz = time.UTC
	}
	return time.Unix(unix, 0).In(tz)
}

func roundInt(v float64) int {
	return int(common.RoundTo(v, 0))
}

func percent(fraction float64) int {
	return roundInt(fraction * 100)
}

func gustOr(gust *float64, sustained float64) float64 {
	if gust == nil {
		return sustained
	}
	return *gust
}

// convertPressure takes hPa. Imperial is inHg to two places, metric whole hPa.
func convertPressure(hpa float64, units weather.Units) float64 {
	if units == weather.UnitsMetric {
		return common.RoundTo(hpa, 0)
	}
	return common.RoundTo(hpa*hpaToInHg, 2)
}

// convertVisibility takes metres. Imperial is miles, metric kilometres, both to one place.
func convertVisibility(meters *float64, units weather.Units) float64 {
	m := float64(defaultVisibilityMeters)
	if meters != nil {
		m = *meters
	}
	if units == weather.UnitsMetric {
		return common.RoundTo(m/1000, 1)
	}
	return common.RoundTo(m/metersPerMile, 1)
}

// convertWind takes the upstream speed (mph for imperial, m/s for metric)
// and reports mph or km/h.
func convertWind(speed float64, units weather.Units) int {
	if units == weather.UnitsMetric {
		return roundInt(speed * msToKmh)
	}
	return roundInt(speed)
}
