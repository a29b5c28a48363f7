package meteo

// Condition is the display mapping for an Open-Meteo weather code.
type Condition struct {
	Icon  string `json:"icon"`
	Label string `json:"label"`
}

// UnknownCondition is the sentinel returned for weather codes missing from
// the lookup table. An unrecognized code is never an error.
var UnknownCondition = Condition{Icon: "🌡️", Label: "Unknown conditions"}

// ErrorCondition marks a city row whose live fetch failed outright.
var ErrorCondition = Condition{Icon: "⚠️", Label: "Unavailable"}

// weatherConditions maps WMO weather codes to their display description.
var weatherConditions = map[int]Condition{
	0:  {Icon: "☀️", Label: "Clear sky"},
	1:  {Icon: "🌤️", Label: "Mainly clear"},
	2:  {Icon: "⛅", Label: "Partly cloudy"},
	3:  {Icon: "☁️", Label: "Overcast"},
	45: {Icon: "🌫️", Label: "Fog"},
	48: {Icon: "🌫️", Label: "Depositing rime fog"},
	51: {Icon: "🌦️", Label: "Light drizzle"},
	53: {Icon: "🌦️", Label: "Moderate drizzle"},
	55: {Icon: "🌧️", Label: "Dense drizzle"},
	61: {Icon: "🌧️", Label: "Light rain"},
	63: {Icon: "🌧️", Label: "Moderate rain"},
	65: {Icon: "🌧️", Label: "Heavy rain"},
	71: {Icon: "❄️", Label: "Light snow"},
	73: {Icon: "❄️", Label: "Moderate snow"},
	75: {Icon: "❄️", Label: "Heavy snow"},
	95: {Icon: "⛈️", Label: "Thunderstorm"},
	96: {Icon: "⛈️", Label: "Thunderstorm with light hail"},
	99: {Icon: "⛈️", Label: "Thunderstorm with heavy hail"},
}

// DescribeWeatherCode returns the display condition for a weather code,
// falling back to UnknownCondition for codes outside the table.
func DescribeWeatherCode(code int) Condition {
	if c, ok := weatherConditions[code]; ok {
		return c
	}
	return UnknownCondition
}
