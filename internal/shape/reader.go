// Package shape reads ESRI shapefiles into frames and joins layers
// spatially.
package shape

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/civicworks/parcel-cli/internal/table"
)

// Layer is a shapefile read into memory: one frame row per record, with the
// record's geometry aligned by position. Geometries that cannot be converted
// are nil.
type Layer struct {
	Frame *table.Frame
	Geoms []geom.T
}

// Read opens a shapefile and its DBF sidecar and returns the full layer.
// DBF strings are NUL- and space-trimmed; blanks become nil cells.
func Read(shpPath string) (*Layer, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "shape: open %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.TrimRight(f.String(), "\x00")
	}

	var rows [][]string
	var geoms []geom.T
	var skipped int

	for reader.Next() {
		_, s := reader.Shape()

		row := make([]string, len(fields))
		for i := range fields {
			val := strings.TrimRight(reader.Attribute(i), "\x00")
			row[i] = strings.TrimSpace(val)
		}
		rows = append(rows, row)

		g := ToGeom(s)
		if g == nil {
			skipped++
		}
		geoms = append(geoms, g)
	}

	if skipped > 0 {
		zap.L().Debug("shape: records without usable geometry",
			zap.String("path", shpPath),
			zap.Int("count", skipped),
		)
	}

	frame, err := table.FromRecords(names, rows)
	if err != nil {
		return nil, err
	}

	return &Layer{Frame: frame, Geoms: geoms}, nil
}

// ToGeom converts a go-shp shape to a go-geom geometry. Unsupported or nil
// shapes yield nil.
func ToGeom(shape shp.Shape) geom.T {
	switch s := shape.(type) {
	case *shp.Point:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y}).SetSRID(4326)
	case *shp.Polygon:
		return polygonToMultiPolygon(s)
	case *shp.PolyLine:
		return polyLineToMultiLineString(s)
	default:
		return nil
	}
}

func polygonToMultiPolygon(p *shp.Polygon) geom.T {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
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

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		ring := geom.NewLinearRingFlat(geom.XY, flat)
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("shape: skipping malformed ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("shape: skipping malformed part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

func polyLineToMultiLineString(pl *shp.PolyLine) geom.T {
	if pl == nil || pl.NumParts == 0 || len(pl.Points) == 0 {
		return nil
	}

	mls := geom.NewMultiLineString(geom.XY).SetSRID(4326)

	for i := int32(0); i < pl.NumParts; i++ {
		start := pl.Parts[i]
		var end int32
		if i+1 < pl.NumParts {
			end = pl.Parts[i+1]
		} else {
			end = int32(len(pl.Points))
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, pl.Points[j].X, pl.Points[j].Y)
		}

		ls := geom.NewLineStringFlat(geom.XY, flat)
		if err := mls.Push(ls); err != nil {
			zap.L().Debug("shape: skipping malformed part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mls.NumLineStrings() == 0 {
		return nil
	}
	return mls
}
