package census

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/civicworks/parcel-cli/internal/fetcher"
	"github.com/civicworks/parcel-cli/internal/shape"
)

// TIGEROptions configures a TIGER/Line shapefile pull.
type TIGEROptions struct {
	Year    int    // default 2022
	WorkDir string // scratch directory for the zip and extracted files
	FTPHost string // default ftp2.census.gov
}

// BlockGroupsFromTIGER downloads the state's TIGER/Line block-group archive
// over FTP, extracts it, and returns the county's block groups with columns
// renamed to the TIGERweb names and a std_geoid column. This is the path of
// last resort for counties TIGERweb cannot serve.
func BlockGroupsFromTIGER(ctx context.Context, ftp *fetcher.FTPFetcher, fips string, opts TIGEROptions) (*shape.Layer, error) {
	if err := validateFIPS(fips); err != nil {
		return nil, err
	}
	if opts.Year == 0 {
		opts.Year = 2022
	}
	if opts.FTPHost == "" {
		opts.FTPHost = "ftp2.census.gov"
	}

	stateFIPS, countyFIPS := fips[:2], fips[2:]
	archive := fmt.Sprintf("tl_%d_%s_bg.zip", opts.Year, stateFIPS)
	ftpURL := fmt.Sprintf("ftp://%s/geo/tiger/TIGER%d/BG/%s", opts.FTPHost, opts.Year, archive)
	zipPath := filepath.Join(opts.WorkDir, archive)

	zap.L().Info("census: downloading TIGER block groups",
		zap.String("url", ftpURL),
		zap.String("fips", fips),
	)

	if _, err := ftp.DownloadToFile(ctx, ftpURL, zipPath); err != nil {
		return nil, eris.Wrapf(err, "census: download %s", archive)
	}

	shpPath, err := fetcher.ExtractShapefile(zipPath, opts.WorkDir)
	if err != nil {
		return nil, err
	}

	layer, err := shape.Read(shpPath)
	if err != nil {
		return nil, err
	}

	// State-level archive: keep only the requested county.
	counties := layer.Frame.Strings("COUNTYFP")
	mask := make([]bool, layer.Frame.Len())
	var geoms []geom.T
	for i, c := range counties {
		if c == countyFIPS {
			mask[i] = true
			geoms = append(geoms, layer.Geoms[i])
		}
	}

	frame, err := layer.Frame.Filter(mask)
	if err != nil {
		return nil, err
	}
	if frame.Len() == 0 {
		return nil, eris.Errorf("census: no block groups for county %s in %s", fips, archive)
	}

	renames := map[string]string{
		"STATEFP":  "STATE",
		"COUNTYFP": "COUNTY",
		"TRACTCE":  "TRACT",
		"BLKGRPCE": "BLKGRP",
	}
	for old, tigerweb := range renames {
		if err := frame.Rename(old, tigerweb); err != nil {
			return nil, err
		}
	}

	return finishBoundaryLayer(&shape.Layer{Frame: frame, Geoms: geoms}, fips)
}
