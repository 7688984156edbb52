package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// ProviderReading represents a single provider's normalized reading for one
// forecast step. Values are expressed in the unit the request asked for.
type ProviderReading struct {
	ProviderName string    `json:"provider"`
	Timestamp    time.Time `json:"timestamp"`

	Temperature float64   `json:"temperature"`
	HumidityPct float64   `json:"humidity"`
	WindSpeed   float64   `json:"wind"`
	PressureHpa float64   `json:"pressure"`
	CloudsPct   float64   `json:"clouds"`
	RainMm      float64   `json:"rain"`
	SnowMm      float64   `json:"snow"`
	Condition   Condition `json:"condition"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
}

// ForecastRequest is what a provider needs to fetch one target's forecast.
// Location is always a single-target kind (see Location.Targets).
type ForecastRequest struct {
	Location Location
	Unit     Unit
	Language string
}

// Provider abstracts a forecast data source (e.g. OpenWeatherMap, WeatherAPI, Open-Meteo).
type Provider interface {
	Name() string
	FetchForecast(ctx context.Context, req ForecastRequest) ([]ProviderReading, error)
}

// APIError is returned when a provider answers with a non-success status.
// The raw body is kept so callers can decode the provider's error document.
type APIError struct {
	Provider   string
	StatusCode int
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: unexpected status code %d", e.Provider, e.StatusCode)
}

// Payload decodes the response body as JSON.
func (e *APIError) Payload() (any, error) {
	var v any
	if err := json.Unmarshal(e.Body, &v); err != nil {
		return nil, err
	}
	return v, nil
}
