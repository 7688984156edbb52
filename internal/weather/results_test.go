package weather

import (
	"encoding/json"
	"slices"
	"testing"
)

func TestResultSetKeepsPopulationOrder(t *testing.T) {
	r := NewResultSet(3)
	r.Set(FieldCloudy, []Report{})
	r.Set(FieldClouds, 80.0)
	r.Set(FieldCloudy, []Report{{Condition: ConditionCloudy}})

	if got := r.Fields(); !slices.Equal(got, []Field{FieldCloudy, FieldClouds}) {
		t.Fatalf("unexpected order %v", got)
	}
	if r.Len() != 2 {
		t.Fatalf("expected 2 fields, got %d", r.Len())
	}
	reports, ok := Value[[]Report](r, FieldCloudy)
	if !ok || len(reports) != 1 {
		t.Fatalf("expected overwritten value, got %v", reports)
	}
	if _, ok := Value[string](r, FieldClouds); ok {
		t.Fatalf("type mismatch must not convert")
	}

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"cloudy":[{"date":"0001-01-01T00:00:00Z","condition":"cloudy","description":"","icon":""}],"clouds":80}`
	if string(data) != want {
		t.Fatalf("unexpected json\n got %s\nwant %s", data, want)
	}
}

func TestResultSetNil(t *testing.T) {
	var r *ResultSet
	if r.Len() != 0 || r.Fields() != nil {
		t.Fatalf("nil set must be empty")
	}
	if _, ok := r.Get(FieldClouds); ok {
		t.Fatalf("nil set has no values")
	}
	data, err := json.Marshal(r)
	if err != nil || string(data) != "null" {
		t.Fatalf("unexpected nil json %s (%v)", data, err)
	}
}
