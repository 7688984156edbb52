package weather

import (
	"time"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionMist    Condition = "mist"
)

// Unit selects the measurement system used by providers.
type Unit string

const (
	UnitStandard Unit = "standard" // Kelvin, m/s
	UnitMetric   Unit = "metric"   // Celsius, m/s
	UnitImperial Unit = "imperial" // Fahrenheit, mph
)

// Valid reports whether u is one of the known units.
func (u Unit) Valid() bool {
	switch u {
	case UnitStandard, UnitMetric, UnitImperial:
		return true
	}
	return false
}

// Granularity controls whether forecast data is bucketed by day or by hour.
type Granularity string

const (
	ByDay  Granularity = "day"
	ByHour Granularity = "hour"
)

// DateRange is the inclusive window a query covers.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Contains reports whether t falls within the range (inclusive on both ends).
func (r DateRange) Contains(t time.Time) bool {
	return (t.Equal(r.From) || t.After(r.From)) && (t.Equal(r.To) || t.Before(r.To))
}

// Measurement is a single numeric value of a series field.
type Measurement struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Report is a single entry of a condition field.
type Report struct {
	Date        time.Time `json:"date"`
	Condition   Condition `json:"condition"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
}
