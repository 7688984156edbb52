// Package geo resolves the device's current position for forecast clients.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/forecast-enhancer/internal/weather"
)

// ErrNoPosition is returned when a locator cannot determine a position.
var ErrNoPosition = errors.New("position unavailable")

// Locator resolves where the device currently is.
type Locator interface {
	Locate(ctx context.Context) (weather.Coordinates, error)
}

// LocatorFunc adapts a function to the Locator interface.
type LocatorFunc func(ctx context.Context) (weather.Coordinates, error)

func (f LocatorFunc) Locate(ctx context.Context) (weather.Coordinates, error) { return f(ctx) }

// Static always reports the same coordinates.
type Static weather.Coordinates

func (s Static) Locate(context.Context) (weather.Coordinates, error) {
	return weather.Coordinates(s), nil
}

// IPLocator looks the position up from the public IP address using an
// ip-api.com compatible JSON endpoint.
type IPLocator struct {
	client  *http.Client
	baseURL string
}

func NewIPLocator(client *http.Client) *IPLocator {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &IPLocator{
		client:  client,
		baseURL: "http://ip-api.com/json/?fields=status,message,lat,lon",
	}
}

type ipLookupResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

func (l *IPLocator) Locate(ctx context.Context) (weather.Coordinates, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL, nil)
	if err != nil {
		return weather.Coordinates{}, err
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return weather.Coordinates{}, fmt.Errorf("ip lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return weather.Coordinates{}, fmt.Errorf("ip lookup returned status %d", resp.StatusCode)
	}

	var body ipLookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return weather.Coordinates{}, fmt.Errorf("decode ip lookup response: %w", err)
	}
	if body.Status != "success" {
		return weather.Coordinates{}, fmt.Errorf("%w: %s", ErrNoPosition, body.Message)
	}

	return weather.Coordinates{Lat: body.Lat, Lon: body.Lon}, nil
}

// AddressLocator geocodes a fixed postal address through the Google
// Geocoding API. The result is cached after the first successful lookup.
type AddressLocator struct {
	address geocoder.Address
	geocode func(geocoder.Address) (geocoder.Location, error)

	mu       sync.Mutex
	resolved *weather.Coordinates
}

// NewAddressLocator sets the package-wide geocoder API key and returns a
// locator for the given city and country.
func NewAddressLocator(apiKey, city, country string) *AddressLocator {
	geocoder.ApiKey = apiKey
	return &AddressLocator{
		address: geocoder.Address{City: city, Country: country},
		geocode: geocoder.Geocoding,
	}
}

func (l *AddressLocator) Locate(ctx context.Context) (weather.Coordinates, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.resolved != nil {
		return *l.resolved, nil
	}
	if err := ctx.Err(); err != nil {
		return weather.Coordinates{}, err
	}

	loc, err := l.geocode(l.address)
	if err != nil {
		return weather.Coordinates{}, fmt.Errorf("geocode %s, %s: %w", l.address.City, l.address.Country, err)
	}
	if loc.Latitude == 0 && loc.Longitude == 0 {
		return weather.Coordinates{}, ErrNoPosition
	}

	c := weather.Coordinates{Lat: loc.Latitude, Lon: loc.Longitude}
	l.resolved = &c
	return c, nil
}
