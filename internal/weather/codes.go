package weather

import (
	"math"
	"strings"

	"github.com/i474232898/weather-normalizer/internal/common"
)

// IconCode is an entry of the display's icon vocabulary (0..47).
type IconCode int

// Icon codes referenced by the condition table.
const (
	IconTornado              IconCode = 0
	IconSevereThunderstorms  IconCode = 3
	IconThunderstorms        IconCode = 4
	IconRainSnow             IconCode = 5
	IconDrizzle              IconCode = 9
	IconFreezingRain         IconCode = 10
	IconShowers              IconCode = 11
	IconRain                 IconCode = 12
	IconLightSnow            IconCode = 14
	IconSnow                 IconCode = 16
	IconSleet                IconCode = 18
	IconDust                 IconCode = 19
	IconFog                  IconCode = 20
	IconHaze                 IconCode = 21
	IconSmoke                IconCode = 22
	IconWindy                IconCode = 24
	IconCloudy               IconCode = 26
	IconMostlyCloudyNight    IconCode = 27
	IconMostlyCloudyDay      IconCode = 28
	IconPartlyCloudyNight    IconCode = 29
	IconPartlyCloudyDay      IconCode = 30
	IconClearNight           IconCode = 31
	IconSunny                IconCode = 32
	IconFairNight            IconCode = 33
	IconFairDay              IconCode = 34
	IconIsolatedThunderDay   IconCode = 37
	IconScatteredThunderDay  IconCode = 38
	IconScatteredShowersDay  IconCode = 39
	IconHeavyRain            IconCode = 40
	IconScatteredSnowDay     IconCode = 41
	IconHeavySnow            IconCode = 42
	IconUnavailable          IconCode = 44
	IconScatteredShowersNite IconCode = 45
	IconScatteredSnowNight   IconCode = 46
	IconScatteredThunderNite IconCode = 47
)

// iconPair holds the day and night variant of a condition.
type iconPair struct {
	day   IconCode
	night IconCode
}

func same(c IconCode) iconPair { return iconPair{day: c, night: c} }

// conditionIcons maps upstream condition ids (2xx thunderstorm, 3xx drizzle,
// 5xx rain, 6xx snow, 7xx atmosphere, 80x clouds) to icon codes.
var conditionIcons = map[int]iconPair{
	200: same(IconThunderstorms),
	201: same(IconThunderstorms),
	202: same(IconSevereThunderstorms),
	210: {IconIsolatedThunderDay, IconScatteredThunderNite},
	211: same(IconThunderstorms),
	212: same(IconSevereThunderstorms),
	221: {IconScatteredThunderDay, IconScatteredThunderNite},
	230: same(IconThunderstorms),
	231: same(IconThunderstorms),
	232: same(IconThunderstorms),

	300: same(IconDrizzle),
	301: same(IconDrizzle),
	302: same(IconDrizzle),
	310: same(IconDrizzle),
	311: same(IconDrizzle),
	312: same(IconDrizzle),
	313: same(IconShowers),
	314: same(IconShowers),
	321: same(IconShowers),

	500: same(IconShowers),
	501: same(IconRain),
	502: same(IconHeavyRain),
	503: same(IconHeavyRain),
	504: same(IconHeavyRain),
	511: same(IconFreezingRain),
	520: {IconScatteredShowersDay, IconScatteredShowersNite},
	521: same(IconShowers),
	522: same(IconHeavyRain),
	531: {IconScatteredShowersDay, IconScatteredShowersNite},

	600: same(IconLightSnow),
	601: same(IconSnow),
	602: same(IconHeavySnow),
	611: same(IconSleet),
	612: same(IconSleet),
	613: same(IconSleet),
	615: same(IconRainSnow),
	616: same(IconRainSnow),
	620: {IconScatteredSnowDay, IconScatteredSnowNight},
	621: same(IconSnow),
	622: same(IconHeavySnow),

	701: same(IconFog),
	711: same(IconSmoke),
	721: same(IconHaze),
	731: same(IconDust),
	741: same(IconFog),
	751: same(IconDust),
	761: same(IconDust),
	762: same(IconSmoke),
	771: same(IconWindy),
	781: same(IconTornado),

	800: {IconSunny, IconClearNight},
	801: {IconFairDay, IconFairNight},
	802: {IconPartlyCloudyDay, IconPartlyCloudyNight},
	803: {IconMostlyCloudyDay, IconMostlyCloudyNight},
	804: same(IconCloudy),
}

// MapCondition translates an upstream condition id into an icon code.
// Unknown ids resolve to IconUnavailable.
func MapCondition(id int, isDay bool) IconCode {
	pair, ok := conditionIcons[id]
	if !ok {
		return IconUnavailable
	}
	if isDay {
		return pair.day
	}
	return pair.night
}

// IsDayIcon reports whether an upstream icon name ("10d", "01n") denotes
// daytime. Anything without an "n" suffix is treated as day.
func IsDayIcon(icon string) bool {
	return !strings.HasSuffix(icon, "n")
}

var cardinals = [16]string{
	"N", "NNE", "NE", "ENE",
	"E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW",
	"W", "WNW", "NW", "NNW",
}

// MapDirection converts a bearing in degrees to a 16-point compass label.
// Out of range and negative bearings are wrapped; NaN maps to "N".
func MapDirection(deg float64) string {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return cardinals[0]
	}
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	idx := int(math.Round(deg/22.5)) % len(cardinals)
	return cardinals[idx]
}

// Alert severity codes; lower is more severe.
const (
	SeverityExtreme  = 2
	SeveritySevere   = 3
	SeverityModerate = 4
)

// MapSeverity derives a severity code from an alert's free-text tags. The
// event name is not consulted. "extreme" is checked before "severe";
// everything else is moderate.
func MapSeverity(tags []string) int {
	text := strings.Join(tags, " ")
	switch {
	case common.HasAny(text, "extreme"):
		return SeverityExtreme
	case common.HasAny(text, "severe"):
		return SeveritySevere
	default:
		return SeverityModerate
	}
}

// AQICategoryUnknown is returned for indices outside the 1..5 scale.
const AQICategoryUnknown = "Unknown"

var aqiCategories = [...]string{"Good", "Fair", "Moderate", "Poor", "Very Poor"}

// MapAQICategory returns the label of a 1..5 air-quality index.
func MapAQICategory(index int) string {
	if index < 1 || index > len(aqiCategories) {
		return AQICategoryUnknown
	}
	return aqiCategories[index-1]
}
