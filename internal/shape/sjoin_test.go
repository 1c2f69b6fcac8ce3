package shape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/civicworks/parcel-cli/internal/table"
)

func square(x, y, size float64) *geom.Polygon {
	return geom.NewPolygonFlat(geom.XY, []float64{
		x, y,
		x + size, y,
		x + size, y + size,
		x, y + size,
		x, y,
	}, []int{10})
}

func TestCentroid(t *testing.T) {
	x, y, ok := Centroid(geom.NewPointFlat(geom.XY, []float64{5, 7}))
	require.True(t, ok)
	assert.Equal(t, 5.0, x)
	assert.Equal(t, 7.0, y)

	// Square from (0,0) to (2,2): vertex average including the closing
	// duplicate still lands inside.
	cx, cy, ok := Centroid(square(0, 0, 2))
	require.True(t, ok)
	assert.True(t, Contains(square(0, 0, 2), cx, cy))

	_, _, ok = Centroid(nil)
	assert.False(t, ok)
}

func TestContains(t *testing.T) {
	sq := square(0, 0, 10)

	assert.True(t, Contains(sq, 5, 5))
	assert.False(t, Contains(sq, 15, 5))
	assert.False(t, Contains(sq, -1, -1))

	// Point geometries never contain anything.
	assert.False(t, Contains(geom.NewPointFlat(geom.XY, []float64{0, 0}), 0, 0))
}

func TestContains_Hole(t *testing.T) {
	// 10x10 square with a 2x2 hole in the middle.
	poly := geom.NewPolygon(geom.XY)
	require.NoError(t, poly.Push(geom.NewLinearRingFlat(geom.XY, []float64{
		0, 0, 10, 0, 10, 10, 0, 10, 0, 0,
	})))
	require.NoError(t, poly.Push(geom.NewLinearRingFlat(geom.XY, []float64{
		4, 4, 6, 4, 6, 6, 4, 6, 4, 4,
	})))

	assert.True(t, Contains(poly, 2, 2))
	assert.False(t, Contains(poly, 5, 5))
}

func TestJoin(t *testing.T) {
	// Two parcels as points; two zone squares. One parcel falls in each zone.
	leftFrame := table.New(3)
	require.NoError(t, leftFrame.Set("parcel_id", []any{"P1", "P2", "P3"}))
	left := &Layer{
		Frame: leftFrame,
		Geoms: []geom.T{
			geom.NewPointFlat(geom.XY, []float64{0.5, 0.5}),
			geom.NewPointFlat(geom.XY, []float64{10.5, 0.5}),
			geom.NewPointFlat(geom.XY, []float64{99, 99}), // no zone
		},
	}

	rightFrame := table.New(2)
	require.NoError(t, rightFrame.Set("GEOID", []any{"BG1", "BG2"}))
	right := &Layer{
		Frame: rightFrame,
		Geoms: []geom.T{square(0, 0, 1), square(10, 0, 1)},
	}

	joined, err := Join(left, right, []string{"GEOID"})
	require.NoError(t, err)

	assert.Equal(t, []string{"BG1", "BG2", ""}, joined.Frame.Strings("GEOID"))
	// Left frame was not mutated.
	assert.False(t, leftFrame.Has("GEOID"))
}

func TestJoin_BadColumn(t *testing.T) {
	empty := &Layer{Frame: table.New(0)}
	_, err := Join(empty, empty, []string{"missing"})
	assert.Error(t, err)
}

func TestJoin_MisalignedGeoms(t *testing.T) {
	frame := table.New(2)
	require.NoError(t, frame.Set("id", []any{"a", "b"}))
	left := &Layer{Frame: frame, Geoms: []geom.T{nil}}

	_, err := Join(left, &Layer{Frame: table.New(0)}, nil)
	assert.Error(t, err)
}
