package weather

import (
	"bytes"
	"encoding/json"
	"slices"
)

// ResultSet maps requested fields to their resolved values and remembers the
// order in which they were populated.
type ResultSet struct {
	order  []Field
	values map[Field]any
}

// NewResultSet creates an empty set sized for n fields.
func NewResultSet(n int) *ResultSet {
	return &ResultSet{
		order:  make([]Field, 0, n),
		values: make(map[Field]any, n),
	}
}

// Set stores v for f. Setting a field again keeps its original position.
func (r *ResultSet) Set(f Field, v any) {
	if _, ok := r.values[f]; !ok {
		r.order = append(r.order, f)
	}
	r.values[f] = v
}

func (r *ResultSet) Get(f Field) (any, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r.values[f]
	return v, ok
}

// Fields returns the populated fields in population order.
func (r *ResultSet) Fields() []Field {
	if r == nil {
		return nil
	}
	return slices.Clone(r.order)
}

func (r *ResultSet) Len() int {
	if r == nil {
		return 0
	}
	return len(r.order)
}

// Value returns the value of f converted to T.
func Value[T any](r *ResultSet, f Field) (T, bool) {
	v, ok := r.Get(f)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// MarshalJSON encodes the set as an object whose keys follow population order.
func (r *ResultSet) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(string(f))
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.values[f])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
