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

const (
	openWeatherBaseURL    = "https://api.openweathermap.org/data/2.5/forecast"
	openWeatherProBaseURL = "https://pro.openweathermap.org/data/2.5/forecast"
)

// OpenWeatherProvider implements the weather.Provider interface for the
// OpenWeatherMap 5 day / 3 hour forecast.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewOpenWeatherProvider creates the provider; pro selects the paid-tier host.
func NewOpenWeatherProvider(client *http.Client, apiKey string, pro bool) *OpenWeatherProvider {
	base := openWeatherBaseURL
	if pro {
		base = openWeatherProBaseURL
	}
	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: base,
		httpCfg: defaultHTTPConfig(client),
		circuit: newCircuitBreaker("openweather"),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

func (p *OpenWeatherProvider) FetchForecast(ctx context.Context, req weather.ForecastRequest) ([]weather.ProviderReading, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("openweather api key is not configured")
	}

	values := url.Values{}
	values.Set("appid", p.apiKey)
	if req.Unit != "" {
		values.Set("units", string(req.Unit))
	}
	if req.Language != "" {
		values.Set("lang", req.Language)
	}

	loc := req.Location
	switch loc.Kind() {
	case weather.LocationCoordinates:
		c := loc.Coordinates()
		values.Set("lat", strconv.FormatFloat(c.Lat, 'f', -1, 64))
		values.Set("lon", strconv.FormatFloat(c.Lon, 'f', -1, 64))
	case weather.LocationPlaceID:
		values.Set("id", strconv.Itoa(loc.PlaceID()))
	case weather.LocationPlaceName:
		values.Set("q", loc.PlaceName())
	case weather.LocationPostal:
		z := loc.Postal()
		values.Set("zip", fmt.Sprintf("%s,%s", z.Code, z.Country))
	default:
		return nil, fmt.Errorf("%w: openweather cannot query %s", errUnsupported, loc.Kind())
	}

	buildRequest := func() (*http.Request, error) {
		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.name, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		List []struct {
			Dt   int64 `json:"dt"`
			Main struct {
				Temp     float64 `json:"temp"`
				Humidity float64 `json:"humidity"`
				Pressure float64 `json:"pressure"`
			} `json:"main"`
			Clouds struct {
				All float64 `json:"all"`
			} `json:"clouds"`
			Wind struct {
				Speed float64 `json:"speed"`
			} `json:"wind"`
			Rain struct {
				ThreeH float64 `json:"3h"`
			} `json:"rain"`
			Snow struct {
				ThreeH float64 `json:"3h"`
			} `json:"snow"`
			Weather []openWeatherCondition `json:"weather"`
		} `json:"list"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	readings := make([]weather.ProviderReading, 0, len(payload.List))
	for _, item := range payload.List {
		r := weather.ProviderReading{
			ProviderName: p.name,
			Timestamp:    time.Unix(item.Dt, 0).UTC(),
			Temperature:  item.Main.Temp,
			HumidityPct:  item.Main.Humidity,
			WindSpeed:    item.Wind.Speed,
			PressureHpa:  item.Main.Pressure,
			CloudsPct:    item.Clouds.All,
			RainMm:       item.Rain.ThreeH,
			SnowMm:       item.Snow.ThreeH,
			Condition:    mapOpenWeatherCondition(item.Weather),
		}
		if len(item.Weather) > 0 {
			r.Description = item.Weather[0].Description
			r.Icon = item.Weather[0].Icon
		}
		readings = append(readings, r)
	}

	return readings, nil
}

type openWeatherCondition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

func mapOpenWeatherCondition(items []openWeatherCondition) weather.Condition {
	if len(items) == 0 {
		return weather.ConditionUnknown
	}
	switch items[0].Main {
	case "Clear":
		return weather.ConditionClear
	case "Clouds":
		return weather.ConditionCloudy
	case "Rain", "Drizzle":
		return weather.ConditionRain
	case "Snow":
		return weather.ConditionSnow
	case "Thunderstorm":
		return weather.ConditionStorm
	case "Mist", "Fog", "Haze", "Smoke":
		return weather.ConditionMist
	default:
		return weather.ConditionUnknown
	}
}
