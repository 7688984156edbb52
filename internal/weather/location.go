package weather

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// LocationKind tags the variant held by a Location.
type LocationKind int

const (
	LocationNone LocationKind = iota
	LocationCoordinates
	LocationPlaceID
	LocationPlaceIDs
	LocationPlaceName
	LocationPlaceNames
	LocationPostal
)

var locationKindNames = [...]string{
	LocationNone:        "none",
	LocationCoordinates: "coordinates",
	LocationPlaceID:     "placeId",
	LocationPlaceIDs:    "placeIds",
	LocationPlaceName:   "placeName",
	LocationPlaceNames:  "placeNames",
	LocationPostal:      "postal",
}

func (k LocationKind) String() string {
	if k < 0 || int(k) >= len(locationKindNames) {
		return "LocationKind(" + strconv.Itoa(int(k)) + ")"
	}
	return locationKindNames[k]
}

// ParseLocationKind maps a kind name back to its LocationKind.
func ParseLocationKind(s string) (LocationKind, error) {
	for i, name := range locationKindNames {
		if name == s {
			return LocationKind(i), nil
		}
	}
	return LocationNone, fmt.Errorf("unknown location kind %q", s)
}

// Coordinates is a latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Postal identifies a place by postal code within a country.
type Postal struct {
	Code    string `json:"code"`
	Country string `json:"country"`
}

// Location describes how a forecast's geographic target is specified.
// Only the payload matching Kind is meaningful; values are built through the
// constructors below.
type Location struct {
	kind   LocationKind
	coords Coordinates
	id     int
	ids    []int
	name   string
	names  []string
	postal Postal
}

func NoLocation() Location { return Location{} }

func AtCoordinates(lat, lon float64) Location {
	return Location{kind: LocationCoordinates, coords: Coordinates{Lat: lat, Lon: lon}}
}

func ByPlaceID(id int) Location {
	return Location{kind: LocationPlaceID, id: id}
}

func ByPlaceIDs(ids ...int) Location {
	return Location{kind: LocationPlaceIDs, ids: slices.Clone(ids)}
}

func ByPlaceName(name string) Location {
	return Location{kind: LocationPlaceName, name: name}
}

func ByPlaceNames(names ...string) Location {
	return Location{kind: LocationPlaceNames, names: slices.Clone(names)}
}

func ByPostal(code, country string) Location {
	return Location{kind: LocationPostal, postal: Postal{Code: code, Country: country}}
}

func (l Location) Kind() LocationKind       { return l.kind }
func (l Location) Coordinates() Coordinates { return l.coords }
func (l Location) PlaceID() int             { return l.id }
func (l Location) PlaceIDs() []int          { return slices.Clone(l.ids) }
func (l Location) PlaceName() string        { return l.name }
func (l Location) PlaceNames() []string     { return slices.Clone(l.names) }
func (l Location) Postal() Postal           { return l.postal }

// Equal compares two locations: different kinds are never equal, otherwise the
// payloads of that kind are compared exactly (sequences in order).
func (l Location) Equal(o Location) bool {
	if l.kind != o.kind {
		return false
	}
	switch l.kind {
	case LocationNone:
		return true
	case LocationCoordinates:
		return l.coords.Lat == o.coords.Lat && l.coords.Lon == o.coords.Lon
	case LocationPlaceID:
		return l.id == o.id
	case LocationPlaceIDs:
		return slices.Equal(l.ids, o.ids)
	case LocationPlaceName:
		return l.name == o.name
	case LocationPlaceNames:
		return slices.Equal(l.names, o.names)
	case LocationPostal:
		return l.postal == o.postal
	default:
		return false
	}
}

// Clone returns a copy that shares no slices with l.
func (l Location) Clone() Location {
	c := l
	c.ids = slices.Clone(l.ids)
	c.names = slices.Clone(l.names)
	return c
}

// Targets splits list kinds into one single-target location per element.
// Single-target kinds return themselves; none returns nothing.
func (l Location) Targets() []Location {
	switch l.kind {
	case LocationNone:
		return nil
	case LocationPlaceIDs:
		out := make([]Location, 0, len(l.ids))
		for _, id := range l.ids {
			out = append(out, ByPlaceID(id))
		}
		return out
	case LocationPlaceNames:
		out := make([]Location, 0, len(l.names))
		for _, n := range l.names {
			out = append(out, ByPlaceName(n))
		}
		return out
	default:
		return []Location{l}
	}
}

// Key returns a canonical string key for indexing this location in stores.
func (l Location) Key() string {
	switch l.kind {
	case LocationCoordinates:
		return fmt.Sprintf("geo:%s,%s",
			strconv.FormatFloat(l.coords.Lat, 'f', -1, 64),
			strconv.FormatFloat(l.coords.Lon, 'f', -1, 64))
	case LocationPlaceID:
		return "id:" + strconv.Itoa(l.id)
	case LocationPlaceIDs:
		parts := make([]string, len(l.ids))
		for i, id := range l.ids {
			parts[i] = strconv.Itoa(id)
		}
		return "ids:" + strings.Join(parts, ",")
	case LocationPlaceName:
		return "place:" + strings.ToLower(l.name)
	case LocationPlaceNames:
		return "places:" + strings.ToLower(strings.Join(l.names, "|"))
	case LocationPostal:
		return "zip:" + l.postal.Code + ":" + strings.ToLower(l.postal.Country)
	default:
		return "none"
	}
}

func (l Location) String() string {
	switch l.kind {
	case LocationCoordinates:
		return fmt.Sprintf("%.4f,%.4f", l.coords.Lat, l.coords.Lon)
	case LocationPlaceName:
		return l.name
	case LocationPlaceNames:
		return strings.Join(l.names, "; ")
	case LocationPostal:
		return l.postal.Code + ", " + l.postal.Country
	default:
		return l.Key()
	}
}

// locationJSON is the wire shape of a Location.
type locationJSON struct {
	Kind    string   `json:"kind"`
	Lat     *float64 `json:"lat,omitempty"`
	Lon     *float64 `json:"lon,omitempty"`
	ID      *int     `json:"id,omitempty"`
	IDs     []int    `json:"ids,omitempty"`
	Name    string   `json:"name,omitempty"`
	Names   []string `json:"names,omitempty"`
	Code    string   `json:"code,omitempty"`
	Country string   `json:"country,omitempty"`
}

func (l Location) MarshalJSON() ([]byte, error) {
	w := locationJSON{Kind: l.kind.String()}
	switch l.kind {
	case LocationCoordinates:
		w.Lat, w.Lon = &l.coords.Lat, &l.coords.Lon
	case LocationPlaceID:
		w.ID = &l.id
	case LocationPlaceIDs:
		w.IDs = l.ids
	case LocationPlaceName:
		w.Name = l.name
	case LocationPlaceNames:
		w.Names = l.names
	case LocationPostal:
		w.Code, w.Country = l.postal.Code, l.postal.Country
	}
	return json.Marshal(w)
}

func (l *Location) UnmarshalJSON(data []byte) error {
	var w locationJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Kind == "" {
		*l = NoLocation()
		return nil
	}
	kind, err := ParseLocationKind(w.Kind)
	if err != nil {
		return err
	}
	switch kind {
	case LocationNone:
		*l = NoLocation()
	case LocationCoordinates:
		if w.Lat == nil || w.Lon == nil {
			return errors.New("coordinates location requires lat and lon")
		}
		*l = AtCoordinates(*w.Lat, *w.Lon)
	case LocationPlaceID:
		if w.ID == nil {
			return errors.New("placeId location requires id")
		}
		*l = ByPlaceID(*w.ID)
	case LocationPlaceIDs:
		if len(w.IDs) == 0 {
			return errors.New("placeIds location requires ids")
		}
		*l = ByPlaceIDs(w.IDs...)
	case LocationPlaceName:
		if w.Name == "" {
			return errors.New("placeName location requires name")
		}
		*l = ByPlaceName(w.Name)
	case LocationPlaceNames:
		if len(w.Names) == 0 {
			return errors.New("placeNames location requires names")
		}
		*l = ByPlaceNames(w.Names...)
	case LocationPostal:
		if w.Code == "" || w.Country == "" {
			return errors.New("postal location requires code and country")
		}
		*l = ByPostal(w.Code, w.Country)
	}
	return nil
}
