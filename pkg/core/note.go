package core

import (
	"fmt"
	"math"
	"time"
)

// Coordinate is a WGS84 point in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// Valid reports whether the coordinate lies within the WGS84 ranges.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) {
		return false
	}
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", c.Latitude, c.Longitude)
}

// Fix is a coordinate as reported by a position provider.
type Fix struct {
	Coordinate
	Accuracy float64   // meters, zero when unknown
	Time     time.Time // when the fix was taken, zero when unknown
}

// Location is the place a note is tagged with.
// Latitude and Longitude are always present together; Name and Address are optional.
type Location struct {
	Name      string  `json:"name,omitempty" yaml:"name,omitempty"`
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
	Address   string  `json:"address,omitempty" yaml:"address,omitempty"`
}

// Coordinate returns the point of the location.
func (l Location) Coordinate() Coordinate {
	return Coordinate{Latitude: l.Latitude, Longitude: l.Longitude}
}

// Validate checks the coordinate ranges.
func (l Location) Validate() error {
	if !l.Coordinate().Valid() {
		return fmt.Errorf("%w: %s out of range", ErrInvalidLocation, l.Coordinate())
	}
	return nil
}

// NewLocation builds a Location from optional parts, enforcing that latitude and
// longitude are either both set or both absent. It returns nil when neither is set.
func NewLocation(name string, lat, lon *float64, address string) (*Location, error) {
	switch {
	case lat == nil && lon == nil:
		if name != "" || address != "" {
			return nil, fmt.Errorf("%w: place without coordinates", ErrInvalidLocation)
		}
		return nil, nil
	case lat == nil || lon == nil:
		return nil, fmt.Errorf("%w: latitude and longitude must be set together", ErrInvalidLocation)
	}
	loc := &Location{Name: name, Latitude: *lat, Longitude: *lon, Address: address}
	if err := loc.Validate(); err != nil {
		return nil, err
	}
	return loc, nil
}

// Note is the central entity of the domain.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags,omitempty"`
	Location  *Location `json:"location,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Coordinate returns the tagged point of the note, if any.
func (n Note) Coordinate() (Coordinate, bool) {
	if n.Location == nil {
		return Coordinate{}, false
	}
	return n.Location.Coordinate(), true
}

// HasTag reports whether the note carries the given tag.
func (n Note) HasTag(tag string) bool {
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
