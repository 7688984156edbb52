package main

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/i474232898/forecast-enhancer/internal/config"
	"github.com/i474232898/forecast-enhancer/internal/forecast"
	"github.com/i474232898/forecast-enhancer/internal/geo"
	"github.com/i474232898/forecast-enhancer/internal/store"
	"github.com/i474232898/forecast-enhancer/internal/weather"
)

func TestNewProvider(t *testing.T) {
	hc := &http.Client{}
	for provider, want := range map[string]string{
		"openweather": "openweathermap",
		"openmeteo":   "openmeteo",
		"weatherapi":  "weatherapi",
	} {
		got := newProvider(&config.AppConfig{Provider: provider, APIKey: "k"}, hc).Name()
		if got != want {
			t.Errorf("provider %s: expected %s, got %s", provider, want, got)
		}
	}
}

func TestNewLocator(t *testing.T) {
	hc := &http.Client{}

	l, err := newLocator(&config.AppConfig{GeoSource: "ip"}, hc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := l.(*geo.IPLocator); !ok {
		t.Fatalf("expected ip locator, got %T", l)
	}

	l, err = newLocator(&config.AppConfig{GeoSource: "static", Location: weather.AtCoordinates(1, 2)}, hc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := l.Locate(context.Background())
	if got != (weather.Coordinates{Lat: 1, Lon: 2}) {
		t.Fatalf("unexpected static position %+v", got)
	}

	if _, err := newLocator(&config.AppConfig{GeoSource: "static"}, hc); err == nil {
		t.Fatal("static source without coordinates must fail")
	}
}

func TestOpenStore(t *testing.T) {
	s, closeStore, err := openStore(&config.AppConfig{StoreBackend: "memory"})
	if err != nil {
		t.Fatalf("memory store: %v", err)
	}
	closeStore()
	if _, ok := s.(*store.MemoryStore); !ok {
		t.Fatalf("expected memory store, got %T", s)
	}

	s, closeStore, err = openStore(&config.AppConfig{
		StoreBackend: "sqlite",
		StorePath:    filepath.Join(t.TempDir(), "cache.db"),
		StoreMaxAge:  time.Hour,
	})
	if err != nil {
		t.Fatalf("sqlite store: %v", err)
	}
	defer closeStore()
	if err := s.Set("k", []byte("v")); err != nil {
		t.Fatalf("Set: %v", err)
	}
}

func TestBaseSetup(t *testing.T) {
	cfg := &config.AppConfig{
		Units:    weather.UnitImperial,
		Language: "cz",
		Days:     3,
		Location: weather.ByPlaceName("Prague"),
	}
	c := forecast.New("k", false)
	baseSetup(cfg)(c)

	q := c.Copy()
	if q.Unit != weather.UnitImperial || q.Language != "cz" || !q.Location.Equal(weather.ByPlaceName("Prague")) {
		t.Fatalf("configured query not applied: %+v", q)
	}
	if span := q.Dates.To.Sub(q.Dates.From); span < 71*time.Hour || span > 73*time.Hour {
		t.Fatalf("unexpected span %v", span)
	}

	cfg.GeoEnabled = true
	geoClient := forecast.New("k", false).Around(1, 2)
	baseSetup(cfg)(geoClient)
	if !geoClient.Location().Equal(weather.AtCoordinates(1, 2)) {
		t.Fatalf("geo mode must keep the located position, got %v", geoClient.Location())
	}
}
