// Package region loads census tract boundaries with their GEI attributes
// and answers point-in-region containment queries.
package region

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// polygonToMultiPolygon converts a shapefile Polygon to a geom.MultiPolygon.
// Shapefile polygons store outer rings and holes as flat parts; each part
// becomes one ring here and containment is resolved by even-odd parity, so
// the grouping of holes under outers does not matter. A ring with fewer
// than four points or mismatched endpoints is malformed and rejected.
func polygonToMultiPolygon(p *shp.Polygon) (*geom.MultiPolygon, error) {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil, eris.New("region: empty polygon record")
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		var end int32
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		} else {
			end = int32(len(p.Points))
		}

		n := end - start
		if n < 4 {
			return nil, eris.Errorf("region: ring %d has %d points, need at least 4", i, n)
		}
		if p.Points[start] != p.Points[end-1] {
			return nil, eris.Errorf("region: ring %d is not closed", i)
		}

		flat := make([]float64, 0, n*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		ring := geom.NewLinearRingFlat(geom.XY, flat)
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			return nil, eris.Wrapf(err, "region: ring %d", i)
		}
		if err := mp.Push(poly); err != nil {
			return nil, eris.Wrapf(err, "region: polygon part %d", i)
		}
	}

	return mp, nil
}
