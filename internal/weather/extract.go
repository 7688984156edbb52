package weather

import "fmt"

// Extract projects readings onto field f. Series fields yield []Measurement,
// condition fields yield []Report.
func Extract(f Field, readings []ProviderReading) (any, error) {
	switch f {
	case FieldTemperature:
		return series(readings, func(r ProviderReading) float64 { return r.Temperature }), nil
	case FieldPressure:
		return series(readings, func(r ProviderReading) float64 { return r.PressureHpa }), nil
	case FieldHumidity:
		return series(readings, func(r ProviderReading) float64 { return r.HumidityPct }), nil
	case FieldClouds:
		return series(readings, func(r ProviderReading) float64 { return r.CloudsPct }), nil
	case FieldRain:
		return series(readings, func(r ProviderReading) float64 { return r.RainMm }), nil
	case FieldSnow:
		return series(readings, func(r ProviderReading) float64 { return r.SnowMm }), nil
	case FieldWind:
		return series(readings, func(r ProviderReading) float64 { return r.WindSpeed }), nil
	case FieldWeather:
		return reports(readings, func(Condition) bool { return true }), nil
	case FieldCloudy:
		return reports(readings, is(ConditionCloudy)), nil
	case FieldRainy:
		return reports(readings, is(ConditionRain)), nil
	case FieldSnowy:
		return reports(readings, is(ConditionSnow)), nil
	case FieldSunny:
		return reports(readings, is(ConditionClear)), nil
	case FieldStormy:
		return reports(readings, is(ConditionStorm)), nil
	default:
		return nil, fmt.Errorf("unknown field %q", f)
	}
}

func is(c Condition) func(Condition) bool {
	return func(o Condition) bool { return o == c }
}

func series(readings []ProviderReading, pick func(ProviderReading) float64) []Measurement {
	out := make([]Measurement, 0, len(readings))
	for _, r := range readings {
		out = append(out, Measurement{Date: r.Timestamp, Value: pick(r)})
	}
	return out
}

func reports(readings []ProviderReading, keep func(Condition) bool) []Report {
	out := make([]Report, 0, len(readings))
	for _, r := range readings {
		if !keep(r.Condition) {
			continue
		}
		out = append(out, Report{
			Date:        r.Timestamp,
			Condition:   r.Condition,
			Description: r.Description,
			Icon:        r.Icon,
		})
	}
	return out
}
