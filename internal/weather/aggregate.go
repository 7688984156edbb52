package weather

import (
	"sort"
	"time"
)

// AggregateReadings combines several readings into one.
// Numeric fields are averaged; the condition is selected by majority (earliest
// seen wins a tie) and carries the description and icon of its first reading.
func AggregateReadings(ts time.Time, readings []ProviderReading) ProviderReading {
	if len(readings) == 0 {
		return ProviderReading{
			Timestamp: ts,
			Condition: ConditionUnknown,
		}
	}

	var (
		sumTemp     float64
		sumHumidity float64
		sumWind     float64
		sumPressure float64
		sumClouds   float64
		sumRain     float64
		sumSnow     float64
	)

	conditionCounts := make(map[Condition]int)
	firstOf := make(map[Condition]ProviderReading)
	var seen []Condition

	for _, r := range readings {
		sumTemp += r.Temperature
		sumHumidity += r.HumidityPct
		sumWind += r.WindSpeed
		sumPressure += r.PressureHpa
		sumClouds += r.CloudsPct
		sumRain += r.RainMm
		sumSnow += r.SnowMm

		if _, ok := firstOf[r.Condition]; !ok {
			firstOf[r.Condition] = r
			seen = append(seen, r.Condition)
		}
		conditionCounts[r.Condition]++
	}

	n := float64(len(readings))

	// Pick majority condition.
	bestCond := seen[0]
	for _, cond := range seen[1:] {
		if conditionCounts[cond] > conditionCounts[bestCond] {
			bestCond = cond
		}
	}
	rep := firstOf[bestCond]

	return ProviderReading{
		ProviderName: readings[0].ProviderName,
		Timestamp:    ts,
		Temperature:  sumTemp / n,
		HumidityPct:  sumHumidity / n,
		WindSpeed:    sumWind / n,
		PressureHpa:  sumPressure / n,
		CloudsPct:    sumClouds / n,
		// precipitation accumulates over the day
		RainMm:      sumRain,
		SnowMm:      sumSnow,
		Condition:   bestCond,
		Description: rep.Description,
		Icon:        rep.Icon,
	}
}

// BucketByDay groups readings by calendar day in loc and aggregates each day.
// The result is ordered by day, each entry stamped at midnight.
func BucketByDay(readings []ProviderReading, loc *time.Location) []ProviderReading {
	if loc == nil {
		loc = time.UTC
	}

	type dayKey string

	var (
		dayReadings   = make(map[dayKey][]ProviderReading)
		dayTimestamps = make(map[dayKey]time.Time)
	)

	for _, r := range readings {
		ts := r.Timestamp.In(loc)
		k := dayKey(ts.Format("2006-01-02"))
		dayReadings[k] = append(dayReadings[k], r)
		if _, exists := dayTimestamps[k]; !exists {
			dayTimestamps[k] = time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, loc)
		}
	}

	keys := make([]string, 0, len(dayReadings))
	for k := range dayReadings {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)

	out := make([]ProviderReading, 0, len(keys))
	for _, k := range keys {
		dk := dayKey(k)
		out = append(out, AggregateReadings(dayTimestamps[dk], dayReadings[dk]))
	}
	return out
}
