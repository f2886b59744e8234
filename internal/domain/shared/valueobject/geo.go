package valueobject

import (
	"errors"
	"math"
)

const earthRadiusKm = 6371.0088

// ErrInvalidCoordinates is returned for latitude/longitude outside their ranges
var ErrInvalidCoordinates = errors.New("invalid coordinates")

// Coordinates is a WGS84 point
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// NewCoordinates validates a latitude/longitude pair
func NewCoordinates(lat, lng float64) (Coordinates, error) {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 || math.IsNaN(lat) || math.IsNaN(lng) {
		return Coordinates{}, ErrInvalidCoordinates
	}
	return Coordinates{Lat: lat, Lng: lng}, nil
}

// IsZero reports whether the point was never set
func (c Coordinates) IsZero() bool {
	return c.Lat == 0 && c.Lng == 0
}

// DistanceKm returns the great-circle distance using the haversine formula
func (c Coordinates) DistanceKm(o Coordinates) float64 {
	lat1 := c.Lat * math.Pi / 180
	lat2 := o.Lat * math.Pi / 180
	dLat := (o.Lat - c.Lat) * math.Pi / 180
	dLng := (o.Lng - c.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}
