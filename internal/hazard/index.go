package hazard

import (
	"math"
	"sort"

	"github.com/geoequity/gei/internal/model"
)

// distanceTolerance absorbs floating-point noise at the radius boundary,
// and makes a zero radius match coincident points.
const distanceTolerance = 1e-9

// bboxBuffer widens the candidate bounding box so sites at the very edge
// of the radius are not pruned by the degree approximation.
const bboxBuffer = 1.2

// defaultCellDeg is the grid cell size in degrees (~17 miles of latitude).
const defaultCellDeg = 0.25

type cellKey struct {
	row, col int
}

// Index is a static cell-grid index over hazard sites. Built once at
// startup; queries are read-only and safe for concurrent use.
type Index struct {
	sites   []model.HazardSite
	cells   map[cellKey][]int
	cellDeg float64

	minScore int
	maxScore int
}

// NewIndex builds the grid index over the given sites. The slice is owned
// by the index after the call.
func NewIndex(sites []model.HazardSite) *Index {
	ix := &Index{
		sites:   sites,
		cells:   make(map[cellKey][]int),
		cellDeg: defaultCellDeg,
	}
	for i, s := range sites {
		k := ix.cellOf(s.Coordinate)
		ix.cells[k] = append(ix.cells[k], i)
		if i == 0 || s.HazardScore < ix.minScore {
			ix.minScore = s.HazardScore
		}
		if i == 0 || s.HazardScore > ix.maxScore {
			ix.maxScore = s.HazardScore
		}
	}
	return ix
}

// Len returns the number of indexed sites.
func (ix *Index) Len() int {
	return len(ix.sites)
}

// ScoreRange returns the minimum and maximum hazard score seen at load.
func (ix *Index) ScoreRange() (min, max int) {
	return ix.minScore, ix.maxScore
}

func (ix *Index) cellOf(c model.Coordinate) cellKey {
	return cellKey{
		row: int(math.Floor(c.Lat / ix.cellDeg)),
		col: int(math.Floor(c.Lon / ix.cellDeg)),
	}
}

// WithinRadius returns every site within radiusMiles of center, sorted
// ascending by distance with ties broken by site ID. The boundary is
// inclusive: a site at exactly radiusMiles is returned. A radius of zero
// matches only sites coincident with center. Out-of-range coordinates
// yield an empty result.
func (ix *Index) WithinRadius(center model.Coordinate, radiusMiles float64) []model.SiteDistance {
	if !center.Valid() || radiusMiles < 0 {
		return nil
	}

	// Candidate cells from a buffered degree bounding box. Longitude
	// degrees shrink with latitude; guard the cosine near the poles.
	dLat := radiusMiles / milesPerDegreeLat * bboxBuffer
	cosLat := math.Cos(center.Lat * math.Pi / 180)
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	dLon := radiusMiles / (milesPerDegreeLat * cosLat) * bboxBuffer

	minRow := int(math.Floor((center.Lat - dLat) / ix.cellDeg))
	maxRow := int(math.Floor((center.Lat + dLat) / ix.cellDeg))
	minCol := int(math.Floor((center.Lon - dLon) / ix.cellDeg))
	maxCol := int(math.Floor((center.Lon + dLon) / ix.cellDeg))

	var out []model.SiteDistance
	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			for _, i := range ix.cells[cellKey{row, col}] {
				site := &ix.sites[i]
				d := Distance(center, site.Coordinate)
				if d <= radiusMiles+distanceTolerance {
					out = append(out, model.SiteDistance{Site: site, Miles: d})
				}
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Miles != out[j].Miles {
			return out[i].Miles < out[j].Miles
		}
		return out[i].Site.ID < out[j].Site.ID
	})
	return out
}
