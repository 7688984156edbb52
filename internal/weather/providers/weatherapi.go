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

	"github.com/i474232898/forecast-enhancer/internal/common"
	"github.com/i474232898/forecast-enhancer/internal/weather"
)

// WeatherAPIProvider implements the weather.Provider interface for WeatherAPI.com.
type WeatherAPIProvider struct {
	name    string
	apiKey  string
	baseURL string
	days    int
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewWeatherAPIProvider(client *http.Client, apiKey string) *WeatherAPIProvider {
	return &WeatherAPIProvider{
		name:    "weatherapi",
		apiKey:  apiKey,
		baseURL: "https://api.weatherapi.com/v1/forecast.json",
		days:    3,
		httpCfg: defaultHTTPConfig(client),
		circuit: newCircuitBreaker("weatherapi"),
	}
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

func (p *WeatherAPIProvider) FetchForecast(ctx context.Context, req weather.ForecastRequest) ([]weather.ProviderReading, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("weatherapi api key is not configured")
	}

	// WeatherAPI uses "q" for every kind of location.
	var q string
	loc := req.Location
	switch loc.Kind() {
	case weather.LocationCoordinates:
		c := loc.Coordinates()
		q = fmt.Sprintf("%f,%f", c.Lat, c.Lon)
	case weather.LocationPlaceID:
		q = "id:" + strconv.Itoa(loc.PlaceID())
	case weather.LocationPlaceName:
		q = loc.PlaceName()
	case weather.LocationPostal:
		q = loc.Postal().Code
	default:
		return nil, fmt.Errorf("%w: weatherapi cannot query %s", errUnsupported, loc.Kind())
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("key", p.apiKey)
		values.Set("q", q)
		values.Set("days", strconv.Itoa(p.days))
		if req.Language != "" {
			values.Set("lang", req.Language)
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
		Forecast struct {
			ForecastDay []struct {
				Hour []struct {
					TimeEpoch  int64   `json:"time_epoch"`
					TempC      float64 `json:"temp_c"`
					TempF      float64 `json:"temp_f"`
					Humidity   float64 `json:"humidity"`
					WindKph    float64 `json:"wind_kph"`
					WindMph    float64 `json:"wind_mph"`
					PressureMb float64 `json:"pressure_mb"`
					PrecipMm   float64 `json:"precip_mm"`
					SnowCm     float64 `json:"snow_cm"`
					Cloud      float64 `json:"cloud"`
					Condition  struct {
						Text string `json:"text"`
					} `json:"condition"`
				} `json:"hour"`
			} `json:"forecastday"`
		} `json:"forecast"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	var readings []weather.ProviderReading
	for _, day := range payload.Forecast.ForecastDay {
		for _, h := range day.Hour {
			temp := h.TempC
			// Convert wind from kph to m/s (approx).
			wind := h.WindKph / 3.6
			switch req.Unit {
			case weather.UnitImperial:
				temp = h.TempF
				wind = h.WindMph
			case weather.UnitStandard:
				temp = toStandard(h.TempC)
			}

			cond := mapWeatherAPICondition(h.Condition.Text)
			readings = append(readings, weather.ProviderReading{
				ProviderName: p.name,
				Timestamp:    time.Unix(h.TimeEpoch, 0).UTC(),
				Temperature:  temp,
				HumidityPct:  h.Humidity,
				WindSpeed:    wind,
				PressureHpa:  h.PressureMb,
				CloudsPct:    h.Cloud,
				RainMm:       h.PrecipMm,
				SnowMm:       h.SnowCm * 10,
				Condition:    cond,
				Description:  h.Condition.Text,
				Icon:         conditionIcon(cond),
			})
		}
	}

	return readings, nil
}

func mapWeatherAPICondition(text string) weather.Condition {
	switch {
	case text == "":
		return weather.ConditionUnknown
	case common.HasAny(text, "thunder", "storm"):
		return weather.ConditionStorm
	case common.HasAny(text, "snow", "sleet", "blizzard", "ice pellets"):
		return weather.ConditionSnow
	case common.HasAny(text, "rain", "shower", "drizzle"):
		return weather.ConditionRain
	case common.HasAny(text, "mist", "fog"):
		return weather.ConditionMist
	case common.HasAny(text, "cloud", "overcast"):
		return weather.ConditionCloudy
	case common.HasAny(text, "sunny", "clear"):
		return weather.ConditionClear
	default:
		return weather.ConditionUnknown
	}
}
