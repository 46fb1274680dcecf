package geometry

import (
	"fmt"

	"github.com/jobrunner/limes/internal/domain"
)

// Latitude band defaults.
const (
	LatBandMaxLongitude = 179.6
	LatBandDefaultUpper = 3.0
	LatBandDefaultLower = -3.0
)

// Rectangle expands two opposite corners into an axis-aligned polygon
// [(lat1,lng1), (lat1,lng2), (lat2,lng2), (lat2,lng1)].
func Rectangle(a, b domain.GeoPoint) (domain.Polygon, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if a.Lat == b.Lat || a.Lng == b.Lng {
		return nil, &domain.ValidationError{
			Field:      "rectangle",
			Value:      [2]domain.GeoPoint{a, b},
			Constraint: "non-zero width and height",
			Message:    "rectangle corners must differ in latitude and longitude",
			Err:        domain.ErrInvalidGeometry,
		}
	}
	return domain.Polygon{
		{Lat: a.Lat, Lng: a.Lng},
		{Lat: a.Lat, Lng: b.Lng},
		{Lat: b.Lat, Lng: b.Lng},
		{Lat: b.Lat, Lng: a.Lng},
	}, nil
}

// LatBand builds the five vertex band spanning nearly all longitudes between
// two latitudes. The middle vertex on the upper edge keeps renderers from
// taking the short way round between the two far ends.
func LatBand(upper, lower float64) (domain.Polygon, error) {
	if !(upper > lower) {
		return nil, &domain.ValidationError{
			Field:      "latband",
			Value:      [2]float64{upper, lower},
			Constraint: "upper > lower",
			Message:    fmt.Sprintf("upper latitude %g must be greater than lower latitude %g", upper, lower),
			Err:        domain.ErrInvalidLatBand,
		}
	}
	band := domain.Polygon{
		{Lat: upper, Lng: -LatBandMaxLongitude},
		{Lat: upper, Lng: 0},
		{Lat: upper, Lng: LatBandMaxLongitude},
		{Lat: lower, Lng: LatBandMaxLongitude},
		{Lat: lower, Lng: -LatBandMaxLongitude},
	}
	if err := band.ValidateBounds(); err != nil {
		return nil, err
	}
	return band, nil
}
