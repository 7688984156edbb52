package weather

import (
	"slices"

	"github.com/i474232898/forecast-enhancer/internal/common"
)

// Field names one queryable forecast metric.
type Field string

// Series fields resolve to []Measurement.
const (
	FieldTemperature Field = "temperature"
	FieldPressure    Field = "pressure"
	FieldHumidity    Field = "humidity"
	FieldClouds      Field = "clouds"
	FieldRain        Field = "rain"
	FieldSnow        Field = "snow"
	FieldWind        Field = "wind"
)

// Condition fields resolve to []Report. All but FieldWeather only keep the
// entries matching their condition.
const (
	FieldWeather Field = "weather"
	FieldCloudy  Field = "cloudy"
	FieldRainy   Field = "rainy"
	FieldSnowy   Field = "snowy"
	FieldSunny   Field = "sunny"
	FieldStormy  Field = "stormy"
)

// Fields lists every field a forecast client can resolve, in a stable order.
var Fields = []Field{
	FieldTemperature, FieldPressure, FieldHumidity, FieldClouds, FieldRain, FieldSnow, FieldWind,
	FieldWeather, FieldCloudy, FieldRainy, FieldSnowy, FieldSunny, FieldStormy,
}

// Known reports whether f is one of Fields.
func (f Field) Known() bool {
	return slices.Contains(Fields, f)
}

// ParseFields splits a comma separated list, keeping order and dropping blanks.
func ParseFields(s string) []Field {
	var out []Field
	for _, part := range common.SplitList(s) {
		out = append(out, Field(part))
	}
	return out
}

// Query is the effective configuration of one resolution cycle.
type Query struct {
	Dates       DateRange   `json:"dates"`
	Location    Location    `json:"location"`
	Unit        Unit        `json:"unit"`
	Language    string      `json:"language"`
	Fields      []Field     `json:"fields"`
	Granularity Granularity `json:"granularity"`
}

// Clone returns a deep copy of q.
func (q Query) Clone() Query {
	c := q
	c.Location = q.Location.Clone()
	c.Fields = slices.Clone(q.Fields)
	return c
}
