package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/i474232898/forecast-enhancer/internal/config"
	"github.com/i474232898/forecast-enhancer/internal/forecast"
	"github.com/i474232898/forecast-enhancer/internal/geo"
	"github.com/i474232898/forecast-enhancer/internal/store"
	"github.com/i474232898/forecast-enhancer/internal/weather"
	"github.com/i474232898/forecast-enhancer/internal/weather/providers"
)

func newProvider(cfg *config.AppConfig, hc *http.Client) weather.Provider {
	switch cfg.Provider {
	case "openmeteo":
		return providers.NewOpenMeteoProvider(hc)
	case "weatherapi":
		return providers.NewWeatherAPIProvider(hc, cfg.APIKey)
	default:
		return providers.NewOpenWeatherProvider(hc, cfg.APIKey, cfg.Pro)
	}
}

func newLocator(cfg *config.AppConfig, hc *http.Client) (geo.Locator, error) {
	switch cfg.GeoSource {
	case "address":
		return geo.NewAddressLocator(cfg.GeocoderAPIKey, cfg.GeoAddressCity, cfg.GeoAddressCountry), nil
	case "static":
		if cfg.Location.Kind() != weather.LocationCoordinates {
			return nil, errors.New("static geo source requires FORECAST_LAT and FORECAST_LON")
		}
		return geo.Static(cfg.Location.Coordinates()), nil
	default:
		return geo.NewIPLocator(hc), nil
	}
}

func openStore(cfg *config.AppConfig) (store.Storage, func(), error) {
	if cfg.StoreBackend == "sqlite" {
		s, err := store.OpenSQLite(cfg.StorePath, cfg.StoreMaxAge)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	}
	return store.NewMemoryStore(cfg.StoreMaxEntries, cfg.StoreMaxAge), func() {}, nil
}

// baseSetup applies the configured query to the client. With geo enabled
// the location is left to the device locator.
func baseSetup(cfg *config.AppConfig) func(*forecast.Client) {
	return func(c *forecast.Client) {
		from := time.Now().Truncate(time.Hour)
		c.At(from, from.AddDate(0, 0, cfg.Days)).
			Units(cfg.Units).
			Language(cfg.Language)
		if !cfg.GeoEnabled {
			c.Locate(cfg.Location)
		}
	}
}
