package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/forecast-enhancer/internal/weather"
)

// OpenMeteoProvider implements the weather.Provider interface for Open-Meteo.
// It needs no API key but only understands coordinates.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenMeteoProvider(client *http.Client) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: "https://api.open-meteo.com/v1/forecast",
		httpCfg: defaultHTTPConfig(client),
		circuit: newCircuitBreaker("openmeteo"),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) FetchForecast(ctx context.Context, req weather.ForecastRequest) ([]weather.ProviderReading, error) {
	if req.Location.Kind() != weather.LocationCoordinates {
		return nil, fmt.Errorf("%w: openmeteo requires latitude and longitude", errUnsupported)
	}
	c := req.Location.Coordinates()

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", strconv.FormatFloat(c.Lat, 'f', -1, 64))
		values.Set("longitude", strconv.FormatFloat(c.Lon, 'f', -1, 64))
		values.Set("hourly", "temperature_2m,relative_humidity_2m,pressure_msl,cloud_cover,rain,snowfall,wind_speed_10m,weather_code")
		values.Set("timeformat", "unixtime")
		values.Set("forecast_days", "7")
		if req.Unit == weather.UnitImperial {
			values.Set("temperature_unit", "fahrenheit")
			values.Set("wind_speed_unit", "mph")
		} else {
			values.Set("wind_speed_unit", "ms")
		}

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.name, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Hourly struct {
			Time        []int64   `json:"time"`
			Temperature []float64 `json:"temperature_2m"`
			Humidity    []float64 `json:"relative_humidity_2m"`
			Pressure    []float64 `json:"pressure_msl"`
			CloudCover  []float64 `json:"cloud_cover"`
			Rain        []float64 `json:"rain"`
			Snowfall    []float64 `json:"snowfall"`
			WindSpeed   []float64 `json:"wind_speed_10m"`
			WeatherCode []int     `json:"weather_code"`
		} `json:"hourly"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	h := payload.Hourly
	readings := make([]weather.ProviderReading, 0, len(h.Time))
	for i, ts := range h.Time {
		code := at(h.WeatherCode, i)
		cond := mapOpenMeteoCondition(code)
		temp := atf(h.Temperature, i)
		if req.Unit == weather.UnitStandard {
			temp = toStandard(temp)
		}
		readings = append(readings, weather.ProviderReading{
			ProviderName: p.name,
			Timestamp:    time.Unix(ts, 0).UTC(),
			Temperature:  temp,
			HumidityPct:  atf(h.Humidity, i),
			WindSpeed:    atf(h.WindSpeed, i),
			PressureHpa:  atf(h.Pressure, i),
			CloudsPct:    atf(h.CloudCover, i),
			RainMm:       atf(h.Rain, i),
			// snowfall is reported in centimetres
			SnowMm:      atf(h.Snowfall, i) * 10,
			Condition:   cond,
			Description: wmoDescription(code),
			Icon:        conditionIcon(cond),
		})
	}

	return readings, nil
}

func at(s []int, i int) int {
	if i < len(s) {
		return s[i]
	}
	return -1
}

func atf(s []float64, i int) float64 {
	if i < len(s) {
		return s[i]
	}
	return 0
}

func mapOpenMeteoCondition(code int) weather.Condition {
	// Mapping based on Open-Meteo weather codes (simplified).
	switch {
	case code == 0:
		return weather.ConditionClear
	case code >= 1 && code <= 3:
		return weather.ConditionCloudy
	case code == 45 || code == 48:
		return weather.ConditionMist
	case (code >= 51 && code <= 67) || (code >= 80 && code <= 82):
		return weather.ConditionRain
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return weather.ConditionSnow
	case code >= 95:
		return weather.ConditionStorm
	default:
		return weather.ConditionUnknown
	}
}

// wmoDescription maps a WMO weather code to a human-readable description.
func wmoDescription(code int) string {
	switch code {
	case 0:
		return "clear sky"
	case 1:
		return "mainly clear"
	case 2:
		return "partly cloudy"
	case 3:
		return "overcast"
	case 45, 48:
		return "fog"
	case 51, 53, 55:
		return "drizzle"
	case 56, 57:
		return "freezing drizzle"
	case 61, 63, 65:
		return "rain"
	case 66, 67:
		return "freezing rain"
	case 71, 73, 75, 77:
		return "snow"
	case 80, 81, 82:
		return "rain showers"
	case 85, 86:
		return "snow showers"
	case 95:
		return "thunderstorm"
	case 96, 99:
		return "thunderstorm with hail"
	default:
		return "unknown"
	}
}

// conditionIcon picks an OpenWeatherMap icon code for providers that don't
// ship their own, so every reading renders through the same icon set.
func conditionIcon(c weather.Condition) string {
	switch c {
	case weather.ConditionClear:
		return "01d"
	case weather.ConditionCloudy:
		return "03d"
	case weather.ConditionRain:
		return "10d"
	case weather.ConditionSnow:
		return "13d"
	case weather.ConditionStorm:
		return "11d"
	case weather.ConditionMist:
		return "50d"
	default:
		return "03d"
	}
}
