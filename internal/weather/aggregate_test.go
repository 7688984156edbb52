package weather

import (
	"testing"
	"time"
)

func TestAggregateReadings(t *testing.T) {
	ts := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	got := AggregateReadings(ts, []ProviderReading{
		{ProviderName: "p", Temperature: 10, CloudsPct: 100, RainMm: 1, Condition: ConditionRain, Description: "light rain", Icon: "10d"},
		{ProviderName: "p", Temperature: 20, CloudsPct: 50, RainMm: 2, Condition: ConditionCloudy, Icon: "03d"},
		{ProviderName: "p", Temperature: 30, CloudsPct: 0, RainMm: 0.5, Condition: ConditionRain, Description: "rain", Icon: "09d"},
	})

	if got.Temperature != 20 || got.CloudsPct != 50 {
		t.Errorf("expected averaged values, got temp=%v clouds=%v", got.Temperature, got.CloudsPct)
	}
	if got.RainMm != 3.5 {
		t.Errorf("expected summed rain 3.5, got %v", got.RainMm)
	}
	if got.Condition != ConditionRain || got.Description != "light rain" || got.Icon != "10d" {
		t.Errorf("expected first rain reading to represent the majority, got %+v", got)
	}
	if !got.Timestamp.Equal(ts) {
		t.Errorf("unexpected timestamp %v", got.Timestamp)
	}
}

func TestAggregateTieKeepsEarliest(t *testing.T) {
	got := AggregateReadings(time.Time{}, []ProviderReading{
		{Condition: ConditionSnow},
		{Condition: ConditionClear},
	})
	if got.Condition != ConditionSnow {
		t.Fatalf("expected the earliest condition on a tie, got %s", got.Condition)
	}
	if empty := AggregateReadings(time.Time{}, nil); empty.Condition != ConditionUnknown {
		t.Fatalf("expected unknown condition for no readings, got %s", empty.Condition)
	}
}

func TestBucketByDay(t *testing.T) {
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	readings := []ProviderReading{
		{Timestamp: day.Add(30 * time.Hour), Temperature: 4},
		{Timestamp: day.Add(1 * time.Hour), Temperature: 1},
		{Timestamp: day.Add(23 * time.Hour), Temperature: 3},
	}

	got := BucketByDay(readings, time.UTC)
	if len(got) != 2 {
		t.Fatalf("expected 2 days, got %d", len(got))
	}
	if !got[0].Timestamp.Equal(day) || got[0].Temperature != 2 {
		t.Errorf("unexpected first day %+v", got[0])
	}
	if !got[1].Timestamp.Equal(day.AddDate(0, 0, 1)) || got[1].Temperature != 4 {
		t.Errorf("unexpected second day %+v", got[1])
	}

	// 23:00 UTC is already the next day in Prague.
	prague := time.FixedZone("CEST", 2*3600)
	if got := BucketByDay(readings, prague); len(got) != 2 || got[1].Temperature != 3.5 {
		t.Errorf("expected buckets in the requested zone, got %+v", got)
	}
}

func TestExtract(t *testing.T) {
	readings := []ProviderReading{
		{Temperature: 1, WindSpeed: 3, Condition: ConditionClear, Icon: "01d"},
		{Temperature: 2, WindSpeed: 4, Condition: ConditionStorm, Icon: "11d"},
	}

	v, err := Extract(FieldWind, readings)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wind := v.([]Measurement); len(wind) != 2 || wind[1].Value != 4 {
		t.Errorf("unexpected wind series %v", wind)
	}

	v, _ = Extract(FieldStormy, readings)
	if stormy := v.([]Report); len(stormy) != 1 || stormy[0].Icon != "11d" {
		t.Errorf("unexpected stormy reports %v", stormy)
	}
	v, _ = Extract(FieldWeather, readings)
	if all := v.([]Report); len(all) != 2 {
		t.Errorf("weather must report every reading, got %v", all)
	}

	if _, err := Extract("fog", readings); err == nil {
		t.Errorf("expected error for unknown field")
	}
}

func TestParseFields(t *testing.T) {
	got := ParseFields(" clouds, ,cloudy,rain ")
	want := []Field{FieldClouds, FieldCloudy, FieldRain}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] || !got[i].Known() {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if Field("fog").Known() {
		t.Fatalf("fog is not a known field")
	}
}
