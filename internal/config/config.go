package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/i474232898/forecast-enhancer/internal/common"
	"github.com/i474232898/forecast-enhancer/internal/store"
	"github.com/i474232898/forecast-enhancer/internal/weather"
)

var validate = validator.New()

type AppConfig struct {
	APIKey   string
	Pro      bool
	Provider string `validate:"oneof=openweather openmeteo weatherapi"`

	// Query defaults applied to the forecast client.
	Fields      []weather.Field     `validate:"required,min=1"`
	Granularity weather.Granularity `validate:"oneof=day hour"`
	Units       weather.Unit        `validate:"oneof=standard metric imperial"`
	Language    string              `validate:"required"`
	Days        int                 `validate:"gte=1,lte=16"`
	Location    weather.Location    `validate:"-"`

	// Device location.
	GeoEnabled        bool
	GeoRefreshMinutes int    `validate:"gte=0"`
	GeoSource         string `validate:"oneof=ip address static"`
	GeoAddressCity    string
	GeoAddressCountry string
	GeocoderAPIKey    string

	// Persistence binding.
	StoreBackend    string       `validate:"oneof=memory sqlite"`
	StorePath       string       `validate:"required_if=StoreBackend sqlite"`
	StoreExpire     store.Expiry `validate:"-"`
	StoreMaxEntries int          `validate:"gte=0"` // 0 = unlimited
	StoreMaxAge     time.Duration

	HTTPTimeout time.Duration `validate:"gt=0"`
	Port        string        `validate:"required,numeric"`
	LogLevel    string
	LogFormat   string `validate:"oneof=console json"`

	// EnvFile is set when a .env file was loaded.
	EnvFile string
}

// Load reads configuration from environment with sensible defaults. Values
// from a .env file in the working directory never override the environment.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := godotenv.Load(); err == nil {
		cfg.EnvFile = ".env"
	}

	cfg.APIKey = os.Getenv("FORECAST_API_KEY")
	cfg.Pro = getenvBool("FORECAST_PRO", false)
	cfg.Provider = strings.ToLower(getenvDefault("FORECAST_PROVIDER", "openweather"))

	cfg.Fields = weather.ParseFields(getenvDefault("FORECAST_FIELDS", "temperature,clouds,weather"))
	for _, f := range cfg.Fields {
		if !f.Known() {
			return nil, fmt.Errorf("invalid FORECAST_FIELDS: unknown field %q", f)
		}
	}
	cfg.Granularity = weather.Granularity(getenvDefault("FORECAST_BY", string(weather.ByDay)))
	cfg.Units = weather.Unit(getenvDefault("FORECAST_UNITS", string(weather.UnitMetric)))
	cfg.Language = getenvDefault("FORECAST_LANG", "en")
	cfg.Days = getenvInt("FORECAST_DAYS", 5)

	loc, err := loadLocation()
	if err != nil {
		return nil, err
	}
	cfg.Location = loc

	cfg.GeoEnabled = getenvBool("GEO_ENABLED", false)
	cfg.GeoRefreshMinutes = getenvInt("GEO_REFRESH_MINUTES", 0)
	cfg.GeoSource = strings.ToLower(getenvDefault("GEO_SOURCE", "ip"))
	cfg.GeoAddressCity = os.Getenv("GEO_ADDRESS_CITY")
	cfg.GeoAddressCountry = os.Getenv("GEO_ADDRESS_COUNTRY")
	cfg.GeocoderAPIKey = os.Getenv("GOOGLE_GEOCODER_API_KEY")

	cfg.StoreBackend = strings.ToLower(getenvDefault("STORE_BACKEND", "memory"))
	cfg.StorePath = getenvDefault("STORE_PATH", "forecast-cache.db")
	cfg.StoreExpire, err = store.ParseExpiry(os.Getenv("STORE_EXPIRE"))
	if err != nil {
		return nil, fmt.Errorf("invalid STORE_EXPIRE: %w", err)
	}
	cfg.StoreMaxEntries = getenvInt("STORE_MAX_ENTRIES", 256)
	if cfg.StoreMaxAge, err = getenvDuration("STORE_MAX_AGE", "24h"); err != nil {
		return nil, err
	}

	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	cfg.Port = getenvDefault("PORT", "8080")
	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.LogFormat = strings.ToLower(getenvDefault("LOG_FORMAT", "console"))

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Provider != "openmeteo" && cfg.APIKey == "" {
		return nil, fmt.Errorf("FORECAST_API_KEY is required for provider %s", cfg.Provider)
	}
	if cfg.GeoEnabled && cfg.GeoSource == "address" && cfg.GeoAddressCity == "" {
		return nil, fmt.Errorf("GEO_ADDRESS_CITY is required for the address geo source")
	}
	return cfg, nil
}

// loadLocation reads the initial forecast target. Coordinates take
// precedence over place ids, then place names, then a postal code.
func loadLocation() (weather.Location, error) {
	lat, lon := os.Getenv("FORECAST_LAT"), os.Getenv("FORECAST_LON")
	if lat != "" || lon != "" {
		la, err := strconv.ParseFloat(lat, 64)
		if err != nil {
			return weather.Location{}, fmt.Errorf("invalid FORECAST_LAT: %w", err)
		}
		lo, err := strconv.ParseFloat(lon, 64)
		if err != nil {
			return weather.Location{}, fmt.Errorf("invalid FORECAST_LON: %w", err)
		}
		return weather.AtCoordinates(la, lo), nil
	}

	if raw := common.SplitList(os.Getenv("FORECAST_PLACE_ID")); len(raw) > 0 {
		ids := make([]int, 0, len(raw))
		for _, s := range raw {
			id, err := strconv.Atoi(s)
			if err != nil {
				return weather.Location{}, fmt.Errorf("invalid FORECAST_PLACE_ID %q: %w", s, err)
			}
			ids = append(ids, id)
		}
		if len(ids) == 1 {
			return weather.ByPlaceID(ids[0]), nil
		}
		return weather.ByPlaceIDs(ids...), nil
	}

	if names := common.SplitList(os.Getenv("FORECAST_PLACE")); len(names) > 0 {
		if len(names) == 1 {
			return weather.ByPlaceName(names[0]), nil
		}
		return weather.ByPlaceNames(names...), nil
	}

	if zip := os.Getenv("FORECAST_ZIP"); zip != "" {
		country := os.Getenv("FORECAST_COUNTRY")
		if country == "" {
			return weather.Location{}, fmt.Errorf("FORECAST_COUNTRY is required with FORECAST_ZIP")
		}
		return weather.ByPostal(zip, country), nil
	}

	return weather.NoLocation(), nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
