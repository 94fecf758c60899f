package providers

// Native OpenWeather payloads. Optional numeric fields are pointers so that
// a missing value can be told apart from zero.

type owCondition struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// OneCallResponse is the One Call 3.0 body.
type OneCallResponse struct {
	Lat            float64         `json:"lat"`
	Lon            float64         `json:"lon"`
	Timezone       string          `json:"timezone"`
	TimezoneOffset int             `json:"timezone_offset"`
	Current        OneCallCurrent  `json:"current"`
	Hourly         []OneCallHourly `json:"hourly"`
	Daily          []OneCallDaily  `json:"daily"`
	Alerts         []OneCallAlert  `json:"alerts"`
}

type OneCallCurrent struct {
	Dt         int64         `json:"dt"`
	Sunrise    int64         `json:"sunrise"`
	Sunset     int64         `json:"sunset"`
	Temp       float64       `json:"temp"`
	FeelsLike  float64       `json:"feels_like"`
	Pressure   float64       `json:"pressure"`
	Humidity   float64       `json:"humidity"`
	DewPoint   float64       `json:"dew_point"`
	UVI        float64       `json:"uvi"`
	Clouds     float64       `json:"clouds"`
	Visibility *float64      `json:"visibility"`
	WindSpeed  float64       `json:"wind_speed"`
	WindDeg    float64       `json:"wind_deg"`
	WindGust   *float64      `json:"wind_gust"`
	Weather    []owCondition `json:"weather"`
}

type OneCallHourly struct {
	Dt         int64         `json:"dt"`
	Temp       float64       `json:"temp"`
	FeelsLike  float64       `json:"feels_like"`
	Pressure   float64       `json:"pressure"`
	Humidity   float64       `json:"humidity"`
	DewPoint   float64       `json:"dew_point"`
	UVI        float64       `json:"uvi"`
	Clouds     float64       `json:"clouds"`
	Visibility *float64      `json:"visibility"`
	WindSpeed  float64       `json:"wind_speed"`
	WindDeg    float64       `json:"wind_deg"`
	WindGust   *float64      `json:"wind_gust"`
	Pop        float64       `json:"pop"`
	Weather    []owCondition `json:"weather"`
}

type OneCallDaily struct {
	Dt        int64   `json:"dt"`
	Sunrise   int64   `json:"sunrise"`
	Sunset    int64   `json:"sunset"`
	Moonrise  int64   `json:"moonrise"`
	Moonset   int64   `json:"moonset"`
	MoonPhase float64 `json:"moon_phase"`
	Summary   string  `json:"summary"`
	Temp      struct {
		Day   float64 `json:"day"`
		Min   float64 `json:"min"`
		Max   float64 `json:"max"`
		Night float64 `json:"night"`
		Eve   float64 `json:"eve"`
		Morn  float64 `json:"morn"`
	} `json:"temp"`
	Pressure  float64       `json:"pressure"`
	Humidity  float64       `json:"humidity"`
	DewPoint  float64       `json:"dew_point"`
	WindSpeed float64       `json:"wind_speed"`
	WindDeg   float64       `json:"wind_deg"`
	WindGust  *float64      `json:"wind_gust"`
	Clouds    float64       `json:"clouds"`
	Pop       float64       `json:"pop"`
	Rain      *float64      `json:"rain"`
	Snow      *float64      `json:"snow"`
	UVI       float64       `json:"uvi"`
	Weather   []owCondition `json:"weather"`
}

type OneCallAlert struct {
	SenderName  string   `json:"sender_name"`
	Event       string   `json:"event"`
	Start       int64    `json:"start"`
	End         int64    `json:"end"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// AirPollutionResponse is the /data/2.5/air_pollution body.
type AirPollutionResponse struct {
	Coord struct {
		Lon float64 `json:"lon"`
		Lat float64 `json:"lat"`
	} `json:"coord"`
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			AQI int `json:"aqi"`
		} `json:"main"`
		Components map[string]float64 `json:"components"`
	} `json:"list"`
}

// GeocodingResult is one element of the /geo/1.0 responses.
type GeocodingResult struct {
	Name       string            `json:"name"`
	LocalNames map[string]string `json:"local_names"`
	Lat        float64           `json:"lat"`
	Lon        float64           `json:"lon"`
	Country    string            `json:"country"`
	State      string            `json:"state"`
}
