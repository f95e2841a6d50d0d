package region

import (
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shpSquare(minX, minY, maxX, maxY float64) []shp.Point {
	return []shp.Point{
		{X: minX, Y: minY},
		{X: maxX, Y: minY},
		{X: maxX, Y: maxY},
		{X: minX, Y: maxY},
		{X: minX, Y: minY},
	}
}

func TestPolygonToMultiPolygon(t *testing.T) {
	points := shpSquare(-84.1, 33.9, -83.9, 34.1)
	p := &shp.Polygon{
		NumParts:  1,
		NumPoints: int32(len(points)),
		Parts:     []int32{0},
		Points:    points,
	}

	mp, err := polygonToMultiPolygon(p)
	require.NoError(t, err)
	assert.Equal(t, 1, mp.NumPolygons())
	assert.Equal(t, 4326, mp.SRID())

	b := mp.Bounds()
	assert.Equal(t, -84.1, b.Min(0))
	assert.Equal(t, 34.1, b.Max(1))
}

func TestPolygonToMultiPolygonWithHole(t *testing.T) {
	outer := shpSquare(0, 0, 4, 4)
	hole := shpSquare(1, 1, 3, 3)
	p := &shp.Polygon{
		NumParts:  2,
		NumPoints: int32(len(outer) + len(hole)),
		Parts:     []int32{0, int32(len(outer))},
		Points:    append(outer, hole...),
	}

	mp, err := polygonToMultiPolygon(p)
	require.NoError(t, err)
	assert.Equal(t, 2, mp.NumPolygons())
}

func TestPolygonToMultiPolygonMalformed(t *testing.T) {
	tests := []struct {
		name string
		p    *shp.Polygon
		want string
	}{
		{"nil", nil, "empty polygon"},
		{"no parts", &shp.Polygon{}, "empty polygon"},
		{
			"too few points",
			&shp.Polygon{
				NumParts:  1,
				NumPoints: 3,
				Parts:     []int32{0},
				Points:    []shp.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 0}},
			},
			"need at least 4",
		},
		{
			"unclosed ring",
			&shp.Polygon{
				NumParts:  1,
				NumPoints: 4,
				Parts:     []int32{0},
				Points:    []shp.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}},
			},
			"not closed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := polygonToMultiPolygon(tt.p)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
