package weather

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapCondition_Total(t *testing.T) {
	// Every id in the upstream's documented range, plus ids well outside it.
	ids := []int{-1, 0, 199, 999, 100000}
	for id := 200; id <= 804; id++ {
		ids = append(ids, id)
	}

	for _, id := range ids {
		for _, isDay := range []bool{true, false} {
			got := MapCondition(id, isDay)
			assert.GreaterOrEqual(t, int(got), 0, "id %d", id)
			assert.LessOrEqual(t, int(got), 47, "id %d", id)
			if _, known := conditionIcons[id]; !known {
				assert.Equal(t, IconUnavailable, got, "unmapped id %d must resolve to sentinel", id)
			}
		}
	}
}

func TestMapCondition_DayNight(t *testing.T) {
	tests := map[string]struct {
		id    int
		isDay bool
		want  IconCode
	}{
		"clear day":          {id: 800, isDay: true, want: IconSunny},
		"clear night":        {id: 800, isDay: false, want: IconClearNight},
		"few clouds night":   {id: 801, isDay: false, want: IconFairNight},
		"overcast any time":  {id: 804, isDay: false, want: IconCloudy},
		"shower rain night":  {id: 520, isDay: false, want: IconScatteredShowersNite},
		"heavy snow":         {id: 602, isDay: true, want: IconHeavySnow},
		"tornado":            {id: 781, isDay: true, want: IconTornado},
		"unknown atmosphere": {id: 799, isDay: true, want: IconUnavailable},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, MapCondition(tc.id, tc.isDay))
		})
	}
}

func TestIsDayIcon(t *testing.T) {
	assert.True(t, IsDayIcon("01d"))
	assert.False(t, IsDayIcon("01n"))
	assert.True(t, IsDayIcon(""))
}

func TestMapDirection(t *testing.T) {
	tests := []struct {
		deg  float64
		want string
	}{
		{0, "N"},
		{11.24, "N"},
		{11.25, "NNE"},
		{45, "NE"},
		{90, "E"},
		{180, "S"},
		{225, "SW"},
		{270, "W"},
		{348.75, "N"},
		{359, "N"},
		{360, "N"},
		{720 + 90, "E"},
		{-90, "W"},
		{math.NaN(), "N"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, MapDirection(tt.deg), "deg %v", tt.deg)
	}
}

func TestMapSeverity(t *testing.T) {
	tests := map[string]struct {
		tags []string
		want int
	}{
		"extreme tag":          {tags: []string{"Extreme temperature value"}, want: SeverityExtreme},
		"severe tag":           {tags: []string{"Thunderstorm", "Severe"}, want: SeveritySevere},
		"extreme beats severe": {tags: []string{"Severe", "Extreme"}, want: SeverityExtreme},
		"case insensitive":     {tags: []string{"SEVERE wind"}, want: SeveritySevere},
		"no match":             {tags: []string{"Frost"}, want: SeverityModerate},
		"empty":                {want: SeverityModerate},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, MapSeverity(tc.tags))
		})
	}
}

func TestMapAQICategory(t *testing.T) {
	assert.Equal(t, "Good", MapAQICategory(1))
	assert.Equal(t, "Fair", MapAQICategory(2))
	assert.Equal(t, "Moderate", MapAQICategory(3))
	assert.Equal(t, "Poor", MapAQICategory(4))
	assert.Equal(t, "Very Poor", MapAQICategory(5))
	assert.Equal(t, AQICategoryUnknown, MapAQICategory(0))
	assert.Equal(t, AQICategoryUnknown, MapAQICategory(6))
	assert.Equal(t, AQICategoryUnknown, MapAQICategory(-3))
}

func TestLocation_Key(t *testing.T) {
	assert.Equal(t, "39.7392,-104.9903", Location{Lat: 39.7392, Lon: -104.9903}.Key())
	assert.Equal(t, "0,0", Location{}.Key())
	assert.Equal(t,
		Location{Lat: 1.5, Lon: 2}.Key(),
		Location{Lat: 1.5, Lon: 2, Name: "Somewhere"}.Key(),
		"names do not take part in the key")
}
