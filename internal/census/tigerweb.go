package census

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/civicworks/parcel-cli/internal/fetcher"
	"github.com/civicworks/parcel-cli/internal/shape"
	"github.com/civicworks/parcel-cli/internal/table"
)

// TIGERweb layer endpoints. Layer 2 is block groups, layer 8 is tracts.
const (
	DefaultBlockGroupsURL = "https://tigerweb.geo.census.gov/arcgis/rest/services/TIGERweb/Tracts_Blocks/MapServer/2"
	DefaultTractsURL      = "https://tigerweb.geo.census.gov/arcgis/rest/services/TIGERweb/Tracts_Blocks/MapServer/8"
)

// largeCounties lists metropolitan counties whose block-group layers are too
// big for a single TIGERweb request and always go through the per-tract path.
var largeCounties = map[string]bool{
	"17031": true, // Cook County, IL (Chicago)
	"06037": true, // Los Angeles County, CA
	"48201": true, // Harris County, TX (Houston)
	"04013": true, // Maricopa County, AZ (Phoenix)
	"06073": true, // San Diego County, CA
	"06059": true, // Orange County, CA
	"36081": true, // Queens County, NY
	"36047": true, // Kings County, NY (Brooklyn)
	"12086": true, // Miami-Dade County, FL
	"53033": true, // King County, WA (Seattle)
}

// BoundaryOptions configures a TIGERweb boundary pull.
type BoundaryOptions struct {
	BlockGroupsURL string // default DefaultBlockGroupsURL
	TractsURL      string // default DefaultTractsURL
	MaxParallel    int    // per-tract fetch concurrency, default 4
}

// BlockGroupBoundaries fetches the block-group polygons for a county from
// TIGERweb and returns them with a std_geoid column. Large counties are
// fetched tract by tract; smaller ones in one query, falling back to the
// per-tract path if the direct query fails.
func BlockGroupBoundaries(ctx context.Context, f fetcher.Fetcher, fips string, opts BoundaryOptions) (*shape.Layer, error) {
	if err := validateFIPS(fips); err != nil {
		return nil, err
	}
	if opts.BlockGroupsURL == "" {
		opts.BlockGroupsURL = DefaultBlockGroupsURL
	}
	if opts.TractsURL == "" {
		opts.TractsURL = DefaultTractsURL
	}
	if opts.MaxParallel == 0 {
		opts.MaxParallel = 4
	}

	if largeCounties[fips] {
		zap.L().Info("census: large county, fetching boundaries per tract", zap.String("fips", fips))
		return blockGroupsChunked(ctx, f, fips, opts)
	}

	layer, err := blockGroupsDirect(ctx, f, fips, opts)
	if err != nil {
		zap.L().Warn("census: direct boundary query failed, falling back to per-tract",
			zap.String("fips", fips),
			zap.Error(err),
		)
		return blockGroupsChunked(ctx, f, fips, opts)
	}
	return layer, nil
}

func countyWhere(fips string) string {
	return fmt.Sprintf("STATE='%s' AND COUNTY='%s'", fips[:2], fips[2:])
}

func blockGroupsDirect(ctx context.Context, f fetcher.Fetcher, fips string, opts BoundaryOptions) (*shape.Layer, error) {
	result, err := fetcher.FetchArcGISLayer(ctx, f, opts.BlockGroupsURL, fetcher.ArcGISOptions{
		Where:        countyWhere(fips),
		WithGeometry: true,
	})
	if err != nil {
		return nil, err
	}
	if result.Frame.Len() == 0 {
		return nil, eris.Errorf("census: no block groups for county %s", fips)
	}
	return finishBoundaryLayer(&shape.Layer{Frame: result.Frame, Geoms: result.Geoms}, fips)
}

// blockGroupsChunked enumerates the county's tracts, then pulls block groups
// one tract at a time with bounded parallelism. Tracts that fail after the
// fetcher's own retries are skipped, matching how partial pulls are treated
// upstream.
func blockGroupsChunked(ctx context.Context, f fetcher.Fetcher, fips string, opts BoundaryOptions) (*shape.Layer, error) {
	tracts, err := countyTracts(ctx, f, fips, opts)
	if err != nil {
		return nil, err
	}

	zap.L().Info("census: fetching block groups per tract",
		zap.String("fips", fips),
		zap.Int("tracts", len(tracts)),
	)

	var mu sync.Mutex
	layersByTract := make(map[string]*fetcher.ArcGISLayer, len(tracts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.MaxParallel)
	for _, tract := range tracts {
		tract := tract
		g.Go(func() error {
			where := fmt.Sprintf("%s AND TRACT='%s'", countyWhere(fips), tract)
			result, err := fetcher.FetchArcGISLayer(gctx, f, opts.BlockGroupsURL, fetcher.ArcGISOptions{
				Where:        where,
				WithGeometry: true,
			})
			if err != nil {
				zap.L().Warn("census: skipping tract after fetch failure",
					zap.String("tract", tract),
					zap.Error(err),
				)
				return nil
			}
			mu.Lock()
			layersByTract[tract] = result
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(layersByTract) == 0 {
		return nil, eris.Errorf("census: no block group data fetched for county %s", fips)
	}

	// Deterministic order regardless of fetch completion order.
	fetched := make([]string, 0, len(layersByTract))
	for tract := range layersByTract {
		fetched = append(fetched, tract)
	}
	sort.Strings(fetched)

	var frames []*table.Frame
	var geoms []geom.T
	for _, tract := range fetched {
		layer := layersByTract[tract]
		frames = append(frames, layer.Frame)
		geoms = append(geoms, layer.Geoms...)
	}

	combined, err := concatFrames(frames)
	if err != nil {
		return nil, err
	}
	return finishBoundaryLayer(&shape.Layer{Frame: combined, Geoms: geoms}, fips)
}

// countyTracts returns the sorted distinct tract codes in a county.
func countyTracts(ctx context.Context, f fetcher.Fetcher, fips string, opts BoundaryOptions) ([]string, error) {
	result, err := fetcher.FetchArcGISLayer(ctx, f, opts.TractsURL, fetcher.ArcGISOptions{
		Where:     countyWhere(fips),
		OutFields: "TRACT",
	})
	if err != nil {
		return nil, eris.Wrapf(err, "census: list tracts for %s", fips)
	}

	seen := make(map[string]bool)
	var tracts []string
	for _, tract := range result.Frame.Strings("TRACT") {
		if tract != "" && !seen[tract] {
			seen[tract] = true
			tracts = append(tracts, tract)
		}
	}
	if len(tracts) == 0 {
		return nil, eris.Errorf("census: no tracts found for county %s", fips)
	}
	sort.Strings(tracts)
	return tracts, nil
}

// finishBoundaryLayer appends the std_geoid column built from the TIGERweb
// attribute names.
func finishBoundaryLayer(layer *shape.Layer, fips string) (*shape.Layer, error) {
	for _, col := range []string{"STATE", "COUNTY", "TRACT", "BLKGRP"} {
		if !layer.Frame.Has(col) {
			return nil, eris.Errorf("census: boundary response for %s missing column %s", fips, col)
		}
	}
	if err := addStdGeoid(layer.Frame, "STATE", "COUNTY", "TRACT", "BLKGRP"); err != nil {
		return nil, err
	}
	return layer, nil
}

// concatFrames appends frames row-wise using the first frame's columns.
func concatFrames(frames []*table.Frame) (*table.Frame, error) {
	if len(frames) == 0 {
		return table.New(0), nil
	}

	total := 0
	for _, f := range frames {
		total += f.Len()
	}

	out := table.New(total)
	for _, name := range frames[0].Columns() {
		col := make([]any, 0, total)
		for _, f := range frames {
			if f.Has(name) {
				col = append(col, f.Column(name)...)
			} else {
				col = append(col, make([]any, f.Len())...)
			}
		}
		if err := out.Set(name, col); err != nil {
			return nil, err
		}
	}
	return out, nil
}
