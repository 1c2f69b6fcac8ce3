package shape

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// Centroid returns the vertex-average centroid of a geometry. For points it
// is the point itself. Returns ok=false for nil or empty geometries.
func Centroid(g geom.T) (x, y float64, ok bool) {
	if g == nil {
		return 0, 0, false
	}

	switch s := g.(type) {
	case *geom.Point:
		c := s.Coords()
		return c[0], c[1], true
	default:
		flat := g.FlatCoords()
		stride := g.Stride()
		if len(flat) < stride || stride < 2 {
			return 0, 0, false
		}
		n := len(flat) / stride
		var sx, sy float64
		for i := 0; i < len(flat); i += stride {
			sx += flat[i]
			sy += flat[i+1]
		}
		return sx / float64(n), sy / float64(n), true
	}
}

// Contains reports whether the point lies inside the polygon or multipolygon
// by even-odd ray casting. Holes count against containment.
func Contains(g geom.T, x, y float64) bool {
	switch s := g.(type) {
	case *geom.Polygon:
		return polygonContains(s, x, y)
	case *geom.MultiPolygon:
		for i := 0; i < s.NumPolygons(); i++ {
			if polygonContains(s.Polygon(i), x, y) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func polygonContains(p *geom.Polygon, x, y float64) bool {
	inside := false
	for r := 0; r < p.NumLinearRings(); r++ {
		ring := p.LinearRing(r)
		flat := ring.FlatCoords()
		stride := ring.Stride()
		n := len(flat) / stride
		for i, j := 0, n-1; i < n; j, i = i, i+1 {
			xi, yi := flat[i*stride], flat[i*stride+1]
			xj, yj := flat[j*stride], flat[j*stride+1]
			if (yi > y) != (yj > y) &&
				x < (xj-xi)*(y-yi)/(yj-yi)+xi {
				inside = !inside
			}
		}
	}
	return inside
}

// Join left-joins polygon attributes onto the left layer by centroid
// containment: for each left geometry, the first right polygon containing its
// centroid contributes the named columns. Misses leave nil cells. The left
// frame is copied, never mutated.
func Join(left, right *Layer, cols []string) (*Layer, error) {
	if len(left.Geoms) != left.Frame.Len() {
		return nil, eris.Errorf("shape: left layer has %d geometries for %d rows", len(left.Geoms), left.Frame.Len())
	}
	if len(right.Geoms) != right.Frame.Len() {
		return nil, eris.Errorf("shape: right layer has %d geometries for %d rows", len(right.Geoms), right.Frame.Len())
	}
	for _, col := range cols {
		if !right.Frame.Has(col) {
			return nil, eris.Errorf("shape: join column %q not in right layer", col)
		}
	}

	out, err := left.Frame.Filter(allTrue(left.Frame.Len()))
	if err != nil {
		return nil, err
	}

	matched := 0
	joined := make(map[string][]any, len(cols))
	for _, col := range cols {
		joined[col] = make([]any, left.Frame.Len())
	}

	for i, g := range left.Geoms {
		cx, cy, ok := Centroid(g)
		if !ok {
			continue
		}
		for j, rg := range right.Geoms {
			if Contains(rg, cx, cy) {
				for _, col := range cols {
					joined[col][i] = right.Frame.Column(col)[j]
				}
				matched++
				break
			}
		}
	}

	for _, col := range cols {
		if err := out.Set(col, joined[col]); err != nil {
			return nil, err
		}
	}

	zap.L().Info("shape: spatial join complete",
		zap.Int("left_rows", left.Frame.Len()),
		zap.Int("matched", matched),
	)

	return &Layer{Frame: out, Geoms: left.Geoms}, nil
}

func allTrue(n int) []bool {
	mask := make([]bool, n)
	for i := range mask {
		mask[i] = true
	}
	return mask
}
