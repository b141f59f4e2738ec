package domain

import (
	"math"

	"github.com/golang/geo/r1"
	"github.com/golang/geo/r2"
)

// Coordinate is a WGS-84 latitude/longitude pair in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// IsNumeric reports whether both axes are finite numbers.
func (c Coordinate) IsNumeric() bool {
	return !math.IsNaN(c.Lat) && !math.IsNaN(c.Lng) &&
		!math.IsInf(c.Lat, 0) && !math.IsInf(c.Lng, 0)
}

// GeoEntity is a caller-owned record placed on the map. The engine reads ID
// and the coordinate only; Attributes is carried through untouched.
type GeoEntity struct {
	ID         string
	Lat        float64
	Lng        float64
	Attributes any
}

// Coordinate returns the entity position as a Coordinate.
func (e GeoEntity) Coordinate() Coordinate {
	return Coordinate{Lat: e.Lat, Lng: e.Lng}
}

// Region is an axis-aligned lat/lng box. It does not wrap the antimeridian.
type Region struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// SupportedRegion is the area listings may be drawn in.
var SupportedRegion = Region{
	North: 49.38,
	South: 24.52,
	East:  -66.95,
	West:  -124.77,
}

func (r Region) latInterval() r1.Interval { return r1.Interval{Lo: r.South, Hi: r.North} }
func (r Region) lngInterval() r1.Interval { return r1.Interval{Lo: r.West, Hi: r.East} }

// Contains reports whether c lies inside r, edges included.
func (r Region) Contains(c Coordinate) bool {
	return r.latInterval().Contains(c.Lat) && r.lngInterval().Contains(c.Lng)
}

// Clamp returns c unchanged when it is inside r, otherwise the nearest point
// on r's boundary, clamping each axis independently.
func (r Region) Clamp(c Coordinate) Coordinate {
	return Coordinate{
		Lat: r.latInterval().ClampPoint(c.Lat),
		Lng: r.lngInterval().ClampPoint(c.Lng),
	}
}

// Center returns the midpoint of r.
func (r Region) Center() Coordinate {
	return Coordinate{
		Lat: r.latInterval().Center(),
		Lng: r.lngInterval().Center(),
	}
}

// IsWithinRegion reports whether (lat, lng) is inside SupportedRegion.
func IsWithinRegion(lat, lng float64) bool {
	return SupportedRegion.Contains(Coordinate{Lat: lat, Lng: lng})
}

// Clamp moves (lat, lng) into SupportedRegion.
func Clamp(lat, lng float64) (float64, float64) {
	c := SupportedRegion.Clamp(Coordinate{Lat: lat, Lng: lng})
	return c.Lat, c.Lng
}

// Bounds accumulates the bounding box of a set of coordinates. The zero value
// is an empty accumulator.
type Bounds struct {
	rect  r2.Rect
	count int
}

// Extend returns b grown to include c.
func (b Bounds) Extend(c Coordinate) Bounds {
	p := r2.Point{X: c.Lng, Y: c.Lat}
	if b.count == 0 {
		return Bounds{rect: r2.RectFromPoints(p), count: 1}
	}
	return Bounds{rect: b.rect.AddPoint(p), count: b.count + 1}
}

// IsEmpty reports whether no coordinate has been added.
func (b Bounds) IsEmpty() bool { return b.count == 0 }

// Len returns the number of coordinates added.
func (b Bounds) Len() int { return b.count }

// Region returns the accumulated box. It is the zero Region when b is empty.
func (b Bounds) Region() Region {
	if b.count == 0 {
		return Region{}
	}
	lo, hi := b.rect.Lo(), b.rect.Hi()
	return Region{North: hi.Y, South: lo.Y, East: hi.X, West: lo.X}
}
