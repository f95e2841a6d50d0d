package region

import (
	"math"

	"github.com/twpayne/go-geom"

	"github.com/geoequity/gei/internal/model"
)

// defaultCellDeg is the grid cell size in degrees. Census tracts are small
// relative to this, so most cells hold a handful of candidates.
const defaultCellDeg = 0.5

type cellKey struct {
	row, col int
}

// Index is a static cell-grid index over region polygons. Candidate
// regions for a point come from the cell covering it; the exact even-odd
// containment test runs only on those. Built once at startup; queries are
// read-only and safe for concurrent use.
type Index struct {
	regions []model.Region
	bounds  []*geom.Bounds
	cells   map[cellKey][]int
	cellDeg float64

	scoreMin float64
	scoreMax float64
	scored   int
}

// NewIndex builds the grid index over the given regions. Regions must be
// in load order; boundary ties resolve to the earliest-loaded region whose
// polygon contains the point.
func NewIndex(regions []model.Region) *Index {
	ix := &Index{
		regions: regions,
		bounds:  make([]*geom.Bounds, len(regions)),
		cells:   make(map[cellKey][]int),
		cellDeg: defaultCellDeg,
	}

	for i := range regions {
		r := &regions[i]
		b := r.Geometry.Bounds()
		ix.bounds[i] = b

		minRow := int(math.Floor(b.Min(1) / ix.cellDeg))
		maxRow := int(math.Floor(b.Max(1) / ix.cellDeg))
		minCol := int(math.Floor(b.Min(0) / ix.cellDeg))
		maxCol := int(math.Floor(b.Max(0) / ix.cellDeg))
		for row := minRow; row <= maxRow; row++ {
			for col := minCol; col <= maxCol; col++ {
				k := cellKey{row, col}
				ix.cells[k] = append(ix.cells[k], i)
			}
		}

		if r.Overall != nil {
			if ix.scored == 0 || *r.Overall < ix.scoreMin {
				ix.scoreMin = *r.Overall
			}
			if ix.scored == 0 || *r.Overall > ix.scoreMax {
				ix.scoreMax = *r.Overall
			}
			ix.scored++
		}
	}

	return ix
}

// Len returns the number of indexed regions.
func (ix *Index) Len() int {
	return len(ix.regions)
}

// ScoreRange returns the min and max overall GEI score across regions that
// carry one. ok is false when no region has a score.
func (ix *Index) ScoreRange() (min, max float64, ok bool) {
	return ix.scoreMin, ix.scoreMax, ix.scored > 0
}

// Locate returns the region containing the coordinate, or nil when the
// coordinate is out of WGS84 range or outside every region. A point on a
// boundary edge falls on whichever side the even-odd crossing test
// assigns it, so a shared interior boundary resolves to exactly one of
// its neighbors, always the same one; a point on the exterior boundary of
// the whole coverage may resolve to no region. Cell entries are appended
// in load order, so overlapping polygons resolve to the earliest loaded.
func (ix *Index) Locate(c model.Coordinate) *model.Region {
	if !c.Valid() {
		return nil
	}

	k := cellKey{
		row: int(math.Floor(c.Lat / ix.cellDeg)),
		col: int(math.Floor(c.Lon / ix.cellDeg)),
	}
	for _, i := range ix.cells[k] {
		if !boundsContain(ix.bounds[i], c) {
			continue
		}
		if Contains(ix.regions[i].Geometry, c) {
			return &ix.regions[i]
		}
	}
	return nil
}
