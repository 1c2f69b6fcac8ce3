package shape

import (
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

// writePolygonShapefile writes a shapefile of square polygons with a GEOID
// attribute, one square per entry keyed on its lower-left corner.
func writePolygonShapefile(t *testing.T, squares map[string][2]float64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "zones.shp")

	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	w.SetFields([]shp.Field{shp.StringField("GEOID", 20)})

	row := 0
	for geoid, ll := range squares {
		x, y := ll[0], ll[1]
		ring := []shp.Point{
			{X: x, Y: y},
			{X: x + 1, Y: y},
			{X: x + 1, Y: y + 1},
			{X: x, Y: y + 1},
			{X: x, Y: y},
		}
		poly := (*shp.Polygon)(shp.NewPolyLine([][]shp.Point{ring}))
		w.Write(poly)
		require.NoError(t, w.WriteAttribute(row, 0, geoid))
		row++
	}
	w.Close()
	return path
}

func TestRead(t *testing.T) {
	path := writePolygonShapefile(t, map[string][2]float64{
		"420010001001": {0, 0},
	})

	layer, err := Read(path)
	require.NoError(t, err)

	assert.Equal(t, 1, layer.Frame.Len())
	assert.Equal(t, []string{"420010001001"}, layer.Frame.Strings("GEOID"))
	require.Len(t, layer.Geoms, 1)

	mp, ok := layer.Geoms[0].(*geom.MultiPolygon)
	require.True(t, ok)
	assert.Equal(t, 1, mp.NumPolygons())
}

func TestRead_MissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "nope.shp"))
	assert.Error(t, err)
}

func TestToGeom(t *testing.T) {
	pt := ToGeom(&shp.Point{X: 3, Y: 4})
	p, ok := pt.(*geom.Point)
	require.True(t, ok)
	assert.Equal(t, []float64{3, 4}, p.FlatCoords())

	assert.Nil(t, ToGeom(nil))
	assert.Nil(t, ToGeom(&shp.Polygon{}))
}
