// Package forecast implements the forecast query client: a configurable
// query (date range, location, unit, language) whose fields resolve lazily
// through a weather provider, cached in a caller supplied storage.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/i474232898/forecast-enhancer/internal/geo"
	"github.com/i474232898/forecast-enhancer/internal/store"
	"github.com/i474232898/forecast-enhancer/internal/weather"
	"github.com/i474232898/forecast-enhancer/internal/weather/providers"
)

// DefaultSpan is the length of the date range a new client starts with.
const DefaultSpan = 5 * 24 * time.Hour

var (
	ErrNoLocation   = errors.New("no location configured")
	ErrNoLocator    = errors.New("no device locator configured")
	ErrUnknownField = errors.New("unknown field")
)

// Accessor resolves the value of one field.
type Accessor func(ctx context.Context) (any, error)

// List maps every resolvable field to its accessor.
type List map[weather.Field]Accessor

// Option customizes a Client.
type Option func(*Client)

// WithProvider replaces the default OpenWeatherMap provider.
func WithProvider(p weather.Provider) Option {
	return func(c *Client) { c.provider = p }
}

// WithLocator sets the device locator used by Geo.
func WithLocator(l geo.Locator) Option {
	return func(c *Client) { c.locator = l }
}

// WithHTTPClient sets the HTTP client of the default provider.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// Client is a forecast query. Configuration methods return the client so
// calls can be chained; all methods are safe for concurrent use.
type Client struct {
	provider   weather.Provider
	locator    geo.Locator
	httpClient *http.Client
	log        zerolog.Logger
	now        func() time.Time

	mu       sync.RWMutex
	dates    weather.DateRange
	location weather.Location
	unit     weather.Unit
	lang     string
	storage  store.Storage
	expire   store.Expiry
	onError  func(error)
}

// New creates a client for apiKey. pro selects the paid API tier of the
// default provider.
func New(apiKey string, pro bool, opts ...Option) *Client {
	c := &Client{
		log:      zerolog.Nop(),
		now:      time.Now,
		location: weather.NoLocation(),
		unit:     weather.UnitMetric,
		lang:     "en",
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.provider == nil {
		hc := c.httpClient
		if hc == nil {
			hc = &http.Client{Timeout: 10 * time.Second}
		}
		c.provider = providers.NewOpenWeatherProvider(hc, apiKey, pro)
	}
	from := c.now().Truncate(time.Hour)
	c.dates = weather.DateRange{From: from, To: from.Add(DefaultSpan)}
	return c
}

// At sets the date range.
func (c *Client) At(from, to time.Time) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dates = weather.DateRange{From: from, To: to}
	return c
}

// Around targets a coordinate pair.
func (c *Client) Around(lat, lon float64) *Client {
	return c.setLocation(weather.AtCoordinates(lat, lon))
}

// ID targets a provider city id.
func (c *Client) ID(id int) *Client { return c.setLocation(weather.ByPlaceID(id)) }

// IDs targets several provider city ids.
func (c *Client) IDs(ids ...int) *Client { return c.setLocation(weather.ByPlaceIDs(ids...)) }

// Place targets a place by name.
func (c *Client) Place(name string) *Client { return c.setLocation(weather.ByPlaceName(name)) }

// Places targets several places by name.
func (c *Client) Places(names ...string) *Client {
	return c.setLocation(weather.ByPlaceNames(names...))
}

// Zip targets a postal code within a country.
func (c *Client) Zip(code, country string) *Client {
	return c.setLocation(weather.ByPostal(code, country))
}

// Nowhere clears the location.
func (c *Client) Nowhere() *Client { return c.setLocation(weather.NoLocation()) }

// Locate sets an arbitrary location value.
func (c *Client) Locate(l weather.Location) *Client { return c.setLocation(l.Clone()) }

func (c *Client) setLocation(l weather.Location) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.location = l
	return c
}

// Units sets the measurement system.
func (c *Client) Units(u weather.Unit) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unit = u
	return c
}

// Language sets the language of textual descriptions.
func (c *Client) Language(lang string) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lang = lang
	return c
}

func (c *Client) Dates() weather.DateRange {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dates
}

func (c *Client) Location() weather.Location {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.location.Clone()
}

// Copy returns an independent snapshot of the current configuration.
// Fields and Granularity are left empty; they belong to the caller.
func (c *Client) Copy() weather.Query {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return weather.Query{
		Dates:    c.dates,
		Location: c.location.Clone(),
		Unit:     c.unit,
		Language: c.lang,
	}
}

// Store sets the persistence binding used to cache provider responses.
func (c *Client) Store(s store.Storage, expire store.Expiry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.storage = s
	c.expire = expire
}

// Error registers the handler every failure is reported to. A later call
// replaces the earlier handler.
func (c *Client) Error(handler func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = handler
}

func (c *Client) report(err error) {
	c.mu.RLock()
	h := c.onError
	c.mu.RUnlock()

	c.log.Warn().Err(err).Msg("forecast error")
	if h != nil {
		h(err)
	}
}

// Geo resolves the device position and targets it.
func (c *Client) Geo(ctx context.Context) error {
	if c.locator == nil {
		c.report(ErrNoLocator)
		return ErrNoLocator
	}
	coords, err := c.locator.Locate(ctx)
	if err != nil {
		err = fmt.Errorf("locate device: %w", err)
		c.report(err)
		return err
	}
	c.log.Debug().Float64("lat", coords.Lat).Float64("lon", coords.Lon).Msg("device located")
	c.Around(coords.Lat, coords.Lon)
	return nil
}

// Icon returns the URL of a weather icon code.
func (c *Client) Icon(code string) string {
	if code == "" {
		return ""
	}
	return fmt.Sprintf("https://openweathermap.org/img/wn/%s@2x.png", code)
}

// List snapshots the current configuration and returns an accessor for every
// known field. Accessors of one list share a single provider fetch.
func (c *Client) List(g weather.Granularity) List {
	q := c.Copy()
	l := &loader{client: c, query: q}

	out := make(List, len(weather.Fields))
	for _, f := range weather.Fields {
		out[f] = func(ctx context.Context) (any, error) {
			readings, err := l.load(ctx)
			if err != nil {
				return nil, err
			}
			readings = within(readings, q.Dates)
			if g == weather.ByDay {
				readings = weather.BucketByDay(readings, q.Dates.From.Location())
			}
			return weather.Extract(f, readings)
		}
	}
	return out
}

func within(readings []weather.ProviderReading, r weather.DateRange) []weather.ProviderReading {
	out := make([]weather.ProviderReading, 0, len(readings))
	for _, rd := range readings {
		if r.Contains(rd.Timestamp) {
			out = append(out, rd)
		}
	}
	return out
}

type loader struct {
	client *Client
	query  weather.Query

	mu       sync.Mutex
	done     bool
	readings []weather.ProviderReading
	err      error
}

func (l *loader) load(ctx context.Context) ([]weather.ProviderReading, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.done {
		return l.readings, l.err
	}

	readings, err := l.client.fetchAll(ctx, l.query)
	if err != nil {
		// context errors are the caller's doing; let a later call retry
		if ctx.Err() != nil {
			return nil, err
		}
		l.client.report(err)
	}
	l.done = true
	l.readings, l.err = readings, err
	return readings, err
}

func (c *Client) fetchAll(ctx context.Context, q weather.Query) ([]weather.ProviderReading, error) {
	targets := q.Location.Targets()
	if len(targets) == 0 {
		return nil, ErrNoLocation
	}

	var all []weather.ProviderReading
	for _, target := range targets {
		readings, err := c.readings(ctx, weather.ForecastRequest{
			Location: target,
			Unit:     q.Unit,
			Language: q.Language,
		})
		if err != nil {
			return nil, fmt.Errorf("%s forecast for %s: %w", c.provider.Name(), target, err)
		}
		all = append(all, readings...)
	}
	return all, nil
}
