package region

import (
	"github.com/twpayne/go-geom"

	"github.com/geoequity/gei/internal/model"
)

// Contains reports whether the coordinate is inside the multipolygon under
// the even-odd rule: a ray from the point crosses an odd number of ring
// edges. Counting parity across every ring handles holes without caring
// how rings are grouped into polygons.
func Contains(mp *geom.MultiPolygon, c model.Coordinate) bool {
	if mp == nil {
		return false
	}
	crossings := 0
	for i := 0; i < mp.NumPolygons(); i++ {
		poly := mp.Polygon(i)
		for j := 0; j < poly.NumLinearRings(); j++ {
			crossings += ringCrossings(poly.LinearRing(j), c)
		}
	}
	return crossings%2 == 1
}

// ringCrossings counts how many ring edges a horizontal ray cast eastward
// from the point intersects. The small denominator offset keeps the
// division stable when an edge is nearly horizontal.
func ringCrossings(ring *geom.LinearRing, c model.Coordinate) int {
	coords := ring.FlatCoords()
	stride := ring.Stride()
	n := len(coords) / stride
	if n < 3 {
		return 0
	}

	x, y := c.Lon, c.Lat
	count := 0
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := coords[i*stride], coords[i*stride+1]
		xj, yj := coords[j*stride], coords[j*stride+1]
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi+1e-12)+xi {
			count++
		}
	}
	return count
}

// boundsContain is the cheap bounding-box pre-test before the exact check.
func boundsContain(b *geom.Bounds, c model.Coordinate) bool {
	return c.Lon >= b.Min(0) && c.Lon <= b.Max(0) &&
		c.Lat >= b.Min(1) && c.Lat <= b.Max(1)
}
