package fetcher

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/civicworks/parcel-cli/internal/table"
)

// DefaultArcGISChunk is the page size for ArcGIS query pagination. Most
// county FeatureServers cap maxRecordCount at or above this.
const DefaultArcGISChunk = 2000

// ArcGISOptions configures a paginated feature query.
type ArcGISOptions struct {
	Where        string // default "1=1"
	OutFields    string // default "*"
	ChunkSize    int    // default DefaultArcGISChunk
	StartOffset  int    // resume point for interrupted pulls
	WithGeometry bool   // also decode polygon rings
}

// ArcGISLayer is the result of a full layer pull: one frame row per feature,
// with geometries aligned by position when requested.
type ArcGISLayer struct {
	Frame *table.Frame
	Geoms []geom.T // nil unless WithGeometry
}

type arcgisFeature struct {
	Attributes map[string]any `json:"attributes"`
	Geometry   *struct {
		Rings [][][]float64 `json:"rings"`
	} `json:"geometry"`
}

type arcgisPage struct {
	Features              []arcgisFeature `json:"features"`
	ExceededTransferLimit bool            `json:"exceededTransferLimit"`
	Error                 *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type arcgisCount struct {
	Count *int `json:"count"`
}

// FetchArcGISLayer pulls every feature from an ArcGIS FeatureServer or
// MapServer layer, paging by result offset. FeatureServers report a total
// count up front; MapServers that reject returnCountOnly are paged until a
// short page arrives.
func FetchArcGISLayer(ctx context.Context, f Fetcher, layerURL string, opts ArcGISOptions) (*ArcGISLayer, error) {
	if opts.Where == "" {
		opts.Where = "1=1"
	}
	if opts.OutFields == "" {
		opts.OutFields = "*"
	}
	if opts.ChunkSize == 0 {
		opts.ChunkSize = DefaultArcGISChunk
	}

	total, err := arcgisFeatureCount(ctx, f, layerURL, opts.Where)
	if err != nil {
		zap.L().Debug("arcgis: count probe failed, paging blind", zap.Error(err))
		total = -1
	}

	var columns []string
	colSet := make(map[string]bool)
	var records []map[string]any
	var geoms []geom.T

	offset := opts.StartOffset
	for {
		if total >= 0 && offset >= total {
			break
		}

		page, err := arcgisQueryPage(ctx, f, layerURL, opts, offset)
		if err != nil {
			return nil, err
		}
		if len(page.Features) == 0 {
			break
		}

		for _, feat := range page.Features {
			for name := range feat.Attributes {
				if !colSet[name] {
					colSet[name] = true
					columns = append(columns, name)
				}
			}
			records = append(records, feat.Attributes)
			if opts.WithGeometry {
				geoms = append(geoms, ringsToPolygon(feat.Geometry))
			}
		}

		zap.L().Info("arcgis: fetched page",
			zap.Int("offset", offset),
			zap.Int("features", len(page.Features)),
			zap.Int("total", total),
		)

		offset += len(page.Features)
		if total < 0 && !page.ExceededTransferLimit && len(page.Features) < opts.ChunkSize {
			break
		}
	}

	frame := table.New(len(records))
	for _, name := range columns {
		col := make([]any, len(records))
		for i, rec := range records {
			col[i] = rec[name]
		}
		if err := frame.Set(name, col); err != nil {
			return nil, err
		}
	}

	return &ArcGISLayer{Frame: frame, Geoms: geoms}, nil
}

func arcgisFeatureCount(ctx context.Context, f Fetcher, layerURL, where string) (int, error) {
	params := url.Values{}
	params.Set("where", where)
	params.Set("returnCountOnly", "true")
	params.Set("f", "json")

	body, err := f.Download(ctx, queryURL(layerURL, params))
	if err != nil {
		return 0, err
	}
	defer body.Close() //nolint:errcheck

	resp, err := DecodeJSONObject[arcgisCount](body)
	if err != nil {
		return 0, err
	}
	if resp.Count == nil {
		return 0, eris.New("arcgis: server did not return a count")
	}
	return *resp.Count, nil
}

func arcgisQueryPage(ctx context.Context, f Fetcher, layerURL string, opts ArcGISOptions, offset int) (*arcgisPage, error) {
	params := url.Values{}
	params.Set("where", opts.Where)
	params.Set("outFields", opts.OutFields)
	params.Set("resultOffset", fmt.Sprintf("%d", offset))
	params.Set("resultRecordCount", fmt.Sprintf("%d", opts.ChunkSize))
	params.Set("returnGeometry", fmt.Sprintf("%t", opts.WithGeometry))
	params.Set("outSR", "4326")
	params.Set("f", "json")

	body, err := f.Download(ctx, queryURL(layerURL, params))
	if err != nil {
		return nil, eris.Wrapf(err, "arcgis: query offset %d", offset)
	}
	defer body.Close() //nolint:errcheck

	page, err := DecodeJSONObject[arcgisPage](body)
	if err != nil {
		return nil, eris.Wrapf(err, "arcgis: decode page at offset %d", offset)
	}
	if page.Error != nil {
		return nil, eris.Errorf("arcgis: server error %d: %s", page.Error.Code, page.Error.Message)
	}
	return page, nil
}

func queryURL(layerURL string, params url.Values) string {
	return strings.TrimRight(layerURL, "/") + "/query?" + params.Encode()
}

// ringsToPolygon converts ESRI JSON rings to a go-geom polygon. Nil or empty
// geometry yields nil.
func ringsToPolygon(g *struct {
	Rings [][][]float64 `json:"rings"`
}) geom.T {
	if g == nil || len(g.Rings) == 0 {
		return nil
	}
	poly := geom.NewPolygon(geom.XY)
	for _, ring := range g.Rings {
		coords := make([]geom.Coord, len(ring))
		for i, pt := range ring {
			if len(pt) < 2 {
				return nil
			}
			coords[i] = geom.Coord{pt[0], pt[1]}
		}
		if err := poly.Push(geom.NewLinearRing(geom.XY).MustSetCoords(coords)); err != nil {
			return nil
		}
	}
	return poly
}
