package forecast

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/i474232898/forecast-enhancer/internal/geo"
	"github.com/i474232898/forecast-enhancer/internal/store"
	"github.com/i474232898/forecast-enhancer/internal/weather"
)

var base = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

// fakeProvider returns hourly readings for two days starting at base.
type fakeProvider struct {
	mu       sync.Mutex
	requests []weather.ForecastRequest
	err      error
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) FetchForecast(_ context.Context, req weather.ForecastRequest) ([]weather.ProviderReading, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	var out []weather.ProviderReading
	for h := 0; h < 48; h++ {
		cond := weather.ConditionClear
		if h%2 == 1 {
			cond = weather.ConditionCloudy
		}
		out = append(out, weather.ProviderReading{
			ProviderName: "fake",
			Timestamp:    base.Add(time.Duration(h) * time.Hour),
			Temperature:  float64(h),
			CloudsPct:    float64(h % 2 * 100),
			Condition:    cond,
			Description:  string(cond),
			Icon:         "01d",
		})
	}
	return out, nil
}

func (p *fakeProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

func newTestClient(p *fakeProvider, opts ...Option) *Client {
	opts = append([]Option{WithProvider(p), WithClock(func() time.Time { return base })}, opts...)
	return New("k", false, opts...)
}

func TestNewDefaults(t *testing.T) {
	c := newTestClient(&fakeProvider{})
	q := c.Copy()

	if q.Unit != weather.UnitMetric || q.Language != "en" {
		t.Errorf("unexpected defaults: unit=%s lang=%s", q.Unit, q.Language)
	}
	if q.Location.Kind() != weather.LocationNone {
		t.Errorf("expected no location, got %s", q.Location.Kind())
	}
	if !q.Dates.From.Equal(base) || !q.Dates.To.Equal(base.Add(DefaultSpan)) {
		t.Errorf("unexpected default range %+v", q.Dates)
	}
}

func TestCopyIsIndependent(t *testing.T) {
	c := newTestClient(&fakeProvider{}).IDs(1, 2).Units(weather.UnitImperial).Language("cz")

	snap := c.Copy()
	c.IDs(3).Language("en")

	if !snap.Location.Equal(weather.ByPlaceIDs(1, 2)) {
		t.Errorf("snapshot location changed: %v", snap.Location)
	}
	if snap.Language != "cz" || snap.Unit != weather.UnitImperial {
		t.Errorf("snapshot changed: %+v", snap)
	}
}

func TestListResolvesHourlyFields(t *testing.T) {
	p := &fakeProvider{}
	c := newTestClient(p).Around(50.08804, 14.42076).At(base, base.Add(3*time.Hour))

	list := c.List(weather.ByHour)

	v, err := list[weather.FieldTemperature](context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	temps := v.([]weather.Measurement)
	if len(temps) != 4 {
		t.Fatalf("expected 4 hourly values within range, got %d", len(temps))
	}
	if temps[3].Value != 3 {
		t.Errorf("expected last value 3, got %v", temps[3].Value)
	}

	v, err = list[weather.FieldCloudy](context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cloudy := v.([]weather.Report); len(cloudy) != 2 {
		t.Errorf("expected 2 cloudy reports, got %d", len(cloudy))
	}

	if p.calls() != 1 {
		t.Errorf("accessors of one list should share a fetch, got %d calls", p.calls())
	}
}

func TestListBucketsByDay(t *testing.T) {
	c := newTestClient(&fakeProvider{}).Place("Prague").At(base, base.Add(47*time.Hour))

	v, err := c.List(weather.ByDay)[weather.FieldTemperature](context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	days := v.([]weather.Measurement)
	if len(days) != 2 {
		t.Fatalf("expected 2 days, got %d", len(days))
	}
	if days[0].Value != 11.5 || days[1].Value != 35.5 {
		t.Errorf("unexpected daily averages %v, %v", days[0].Value, days[1].Value)
	}
}

func TestListFetchesEveryTarget(t *testing.T) {
	p := &fakeProvider{}
	c := newTestClient(p).Places("Prague", "Brno")

	if _, err := c.List(weather.ByHour)[weather.FieldWeather](context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.calls() != 2 {
		t.Fatalf("expected one fetch per place, got %d", p.calls())
	}
	if p.requests[0].Location.PlaceName() != "Prague" || p.requests[1].Location.PlaceName() != "Brno" {
		t.Errorf("unexpected request order: %+v", p.requests)
	}
}

func TestListCachesInStorage(t *testing.T) {
	now := base
	p := &fakeProvider{}
	c := New("k", false, WithProvider(p), WithClock(func() time.Time { return now })).ID(42)
	c.Store(store.NewMemoryStore(0, 0), store.After(10*time.Minute))

	fetch := func() {
		t.Helper()
		if _, err := c.List(weather.ByHour)[weather.FieldClouds](context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	fetch()
	fetch()
	if p.calls() != 1 {
		t.Fatalf("second list should be served from storage, got %d calls", p.calls())
	}

	now = now.Add(11 * time.Minute)
	fetch()
	if p.calls() != 2 {
		t.Fatalf("expired entry should be refetched, got %d calls", p.calls())
	}
}

func TestListCacheNeverExpires(t *testing.T) {
	now := base
	p := &fakeProvider{}
	c := New("k", false, WithProvider(p), WithClock(func() time.Time { return now })).ID(42)
	c.Store(store.NewMemoryStore(0, 0), store.Never())

	for i := 0; i < 3; i++ {
		if _, err := c.List(weather.ByHour)[weather.FieldClouds](context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		now = now.Add(24 * time.Hour)
	}
	if p.calls() != 1 {
		t.Fatalf("never-expiring entry should not be refetched, got %d calls", p.calls())
	}
}

func TestListReportsErrors(t *testing.T) {
	boom := errors.New("boom")
	c := newTestClient(&fakeProvider{err: boom}).Place("Prague")

	var reported []error
	c.Error(func(err error) { reported = append(reported, err) })

	list := c.List(weather.ByHour)
	_, err := list[weather.FieldClouds](context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	_, err = list[weather.FieldCloudy](context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected memoized boom, got %v", err)
	}
	if len(reported) != 1 || !errors.Is(reported[0], boom) {
		t.Fatalf("expected the failure to be reported once, got %v", reported)
	}
}

func TestListWithoutLocation(t *testing.T) {
	c := newTestClient(&fakeProvider{})

	var reported error
	c.Error(func(err error) { reported = err })

	_, err := c.List(weather.ByHour)[weather.FieldClouds](context.Background())
	if !errors.Is(err, ErrNoLocation) || !errors.Is(reported, ErrNoLocation) {
		t.Fatalf("expected ErrNoLocation, got %v (reported %v)", err, reported)
	}
}

func TestGeo(t *testing.T) {
	c := newTestClient(&fakeProvider{}, WithLocator(geo.Static{Lat: 1.5, Lon: 2.5})).Place("Prague")

	if err := c.Geo(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.Location().Equal(weather.AtCoordinates(1.5, 2.5)) {
		t.Fatalf("expected coordinates location, got %v", c.Location())
	}
}

func TestGeoFailureIsReported(t *testing.T) {
	failing := geo.LocatorFunc(func(context.Context) (weather.Coordinates, error) {
		return weather.Coordinates{}, geo.ErrNoPosition
	})
	c := newTestClient(&fakeProvider{}, WithLocator(failing)).Place("Prague")

	var reported error
	c.Error(func(err error) { reported = err })

	if err := c.Geo(context.Background()); !errors.Is(err, geo.ErrNoPosition) {
		t.Fatalf("expected ErrNoPosition, got %v", err)
	}
	if !errors.Is(reported, geo.ErrNoPosition) {
		t.Fatalf("expected failure to be reported, got %v", reported)
	}
	if c.Location().Kind() != weather.LocationPlaceName {
		t.Fatalf("location must be untouched on failure")
	}
}

func TestGeoWithoutLocator(t *testing.T) {
	c := newTestClient(&fakeProvider{})
	if err := c.Geo(context.Background()); !errors.Is(err, ErrNoLocator) {
		t.Fatalf("expected ErrNoLocator, got %v", err)
	}
}

func TestIcon(t *testing.T) {
	c := newTestClient(&fakeProvider{})
	if got := c.Icon("04d"); got != "https://openweathermap.org/img/wn/04d@2x.png" {
		t.Errorf("unexpected icon url %s", got)
	}
	if got := c.Icon(""); got != "" {
		t.Errorf("expected empty url for empty code, got %s", got)
	}
}

func TestNewDefaultProvider(t *testing.T) {
	hc := &http.Client{}
	c := New("k", true, WithHTTPClient(hc))
	if got := c.provider.Name(); got != "openweathermap" {
		t.Fatalf("expected the openweathermap provider by default, got %s", got)
	}
}
