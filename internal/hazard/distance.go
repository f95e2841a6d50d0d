// Package hazard loads CIMC hazard sites and answers radius-bounded
// proximity queries over them.
package hazard

import (
	"math"

	"github.com/geoequity/gei/internal/model"
)

// earthRadiusMiles matches the constant used by the source dashboard's
// haversine, keeping reported distances byte-comparable.
const earthRadiusMiles = 3956.0

// milesPerDegreeLat is the approximate span of one degree of latitude.
const milesPerDegreeLat = 69.0

// Distance returns the great-circle distance between two coordinates in
// miles (haversine).
func Distance(a, b model.Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lon1 := a.Lon * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	lon2 := b.Lon * math.Pi / 180

	dLat := lat2 - lat1
	dLon := lon2 - lon1

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Asin(math.Sqrt(h))
	return c * earthRadiusMiles
}
