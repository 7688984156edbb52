package weather

import "slices"

// ShouldRefetch reports whether data resolved for prev is stale under cur.
// Any difference in date range bounds, location, unit, language, the ordered
// field list or granularity requires a new resolution cycle. Reordering the
// same fields counts as a change.
func ShouldRefetch(prev, cur Query) bool {
	return !prev.Dates.From.Equal(cur.Dates.From) ||
		!prev.Dates.To.Equal(cur.Dates.To) ||
		!prev.Location.Equal(cur.Location) ||
		prev.Unit != cur.Unit ||
		prev.Language != cur.Language ||
		!slices.Equal(prev.Fields, cur.Fields) ||
		prev.Granularity != cur.Granularity
}
