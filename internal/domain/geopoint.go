// Package domain contains the core business entities and value objects.
package domain

import (
	"encoding/json"
	"fmt"
	"math"
)

// Geographic limits. MaxLatitude is the latitude at which Web Mercator's y
// coordinate reaches the edge of the square world (atan(sinh(π)) in degrees).
const (
	MaxLatitude  = 85.0511287798
	MinLatitude  = -MaxLatitude
	MaxLongitude = 180.0
	MinLongitude = -180.0
)

// GeoPoint is a WGS84 position in degrees.
type GeoPoint struct {
	Lat float64
	Lng float64
}

// NewGeoPoint creates a point from latitude and longitude.
func NewGeoPoint(lat, lng float64) GeoPoint {
	return GeoPoint{Lat: lat, Lng: lng}
}

// Validate checks that the point lies inside the editable Web Mercator area.
func (p GeoPoint) Validate() error {
	if math.IsNaN(p.Lat) || p.Lat < MinLatitude || p.Lat > MaxLatitude {
		return &ValidationError{
			Field:      "latitude",
			Value:      p.Lat,
			Constraint: fmt.Sprintf("[%g, %g]", MinLatitude, MaxLatitude),
			Message:    "latitude outside valid geographic bounds",
			Err:        ErrOutOfBounds,
		}
	}
	if math.IsNaN(p.Lng) || p.Lng < MinLongitude || p.Lng > MaxLongitude {
		return &ValidationError{
			Field:      "longitude",
			Value:      p.Lng,
			Constraint: "[-180, 180]",
			Message:    "longitude outside valid geographic bounds",
			Err:        ErrOutOfBounds,
		}
	}
	return nil
}

// IsValid reports whether Validate would succeed.
func (p GeoPoint) IsValid() bool {
	return p.Validate() == nil
}

// Add returns the point shifted by the given deltas.
func (p GeoPoint) Add(dLat, dLng float64) GeoPoint {
	return GeoPoint{Lat: p.Lat + dLat, Lng: p.Lng + dLng}
}

// Sub returns the component-wise difference p - q.
func (p GeoPoint) Sub(q GeoPoint) (dLat, dLng float64) {
	return p.Lat - q.Lat, p.Lng - q.Lng
}

// Equal compares two points exactly.
func (p GeoPoint) Equal(q GeoPoint) bool {
	return p.Lat == q.Lat && p.Lng == q.Lng
}

// String returns a string representation of the point.
func (p GeoPoint) String() string {
	return fmt.Sprintf("(%f, %f)", p.Lat, p.Lng)
}

// MarshalJSON encodes the point as a [lat, lng] pair.
func (p GeoPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.Lat, p.Lng})
}

// UnmarshalJSON decodes a [lat, lng] pair.
func (p *GeoPoint) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return &ValidationError{
			Field:      "coordinate",
			Value:      pair,
			Constraint: "[lat, lng]",
			Message:    "coordinate must be a [lat, lng] pair",
		}
	}
	p.Lat, p.Lng = pair[0], pair[1]
	return nil
}

// BBox is a geographic bounding box.
type BBox struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// Contains checks if a point is within the box.
func (b BBox) Contains(p GeoPoint) bool {
	return p.Lat >= b.South && p.Lat <= b.North && p.Lng >= b.West && p.Lng <= b.East
}

// IsValid checks if the box has valid dimensions.
func (b BBox) IsValid() bool {
	return b.South <= b.North && b.West <= b.East
}

// Center returns the center point of the box.
func (b BBox) Center() GeoPoint {
	return GeoPoint{
		Lat: (b.North + b.South) / 2,
		Lng: (b.East + b.West) / 2,
	}
}

// BBoxAround returns a box of roughly radiusKm around p, clipped to the
// valid geographic range.
func BBoxAround(p GeoPoint, radiusKm float64) BBox {
	const kmPerDegree = 111.32

	latDelta := radiusKm / kmPerDegree
	cosLat := math.Cos(p.Lat * math.Pi / 180)
	lngDelta := 180.0
	if cosLat > 1e-9 {
		lngDelta = math.Min(radiusKm/(kmPerDegree*cosLat), 180)
	}

	return BBox{
		North: math.Min(p.Lat+latDelta, MaxLatitude),
		South: math.Max(p.Lat-latDelta, MinLatitude),
		East:  math.Min(p.Lng+lngDelta, MaxLongitude),
		West:  math.Max(p.Lng-lngDelta, MinLongitude),
	}
}

// Viewport is the single source of truth for pixel projections at a
// given instant: the map center, a fractional zoom and the pixel size of the
// visible rectangle.
type Viewport struct {
	Center GeoPoint `json:"center"`
	Zoom   float64  `json:"zoom"`
	Width  float64  `json:"width"`
	Height float64  `json:"height"`
}

// Validate checks the viewport dimensions.
func (v Viewport) Validate() error {
	if v.Width <= 0 || v.Height <= 0 {
		return &ValidationError{
			Field:      "viewport",
			Value:      [2]float64{v.Width, v.Height},
			Constraint: "> 0",
			Message:    "viewport width and height must be positive",
		}
	}
	if v.Zoom < 0 || v.Zoom > 24 {
		return &ValidationError{
			Field:      "zoom",
			Value:      v.Zoom,
			Constraint: "[0, 24]",
			Message:    "zoom must be between 0 and 24",
		}
	}
	return nil
}
