package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/civicworks/parcel-cli/internal/fetcher"
	"github.com/civicworks/parcel-cli/internal/policy"
	"github.com/civicworks/parcel-cli/internal/snapshot"
	"github.com/civicworks/parcel-cli/internal/table"
)

// loadFrame reads a dataset from a CSV or XLSX file, or from the snapshot
// store when the source is "snapshot:<name>".
func loadFrame(ctx context.Context, source string) (*table.Frame, error) {
	if name, ok := strings.CutPrefix(source, "snapshot:"); ok {
		store, err := openSnapshotStore(ctx)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		return store.Load(ctx, name)
	}

	switch ext := strings.ToLower(filepath.Ext(source)); ext {
	case ".csv":
		file, err := os.Open(source)
		if err != nil {
			return nil, eris.Wrapf(err, "open %s", source)
		}
		defer file.Close()
		return fetcher.ReadCSVFrame(file, fetcher.CSVOptions{})
	case ".xlsx":
		return fetcher.ReadXLSXFrame(source, fetcher.XLSXOptions{})
	default:
		return nil, eris.Errorf("unsupported source %q (want .csv, .xlsx, or snapshot:<name>)", source)
	}
}

// openSnapshotStore opens the configured snapshot backend and runs migrations.
func openSnapshotStore(ctx context.Context) (snapshot.Store, error) {
	if err := cfg.Validate("snapshot"); err != nil {
		return nil, err
	}

	var store snapshot.Store
	var err error
	switch cfg.Snapshot.Driver {
	case "postgres":
		store, err = snapshot.NewPostgres(ctx, cfg.Snapshot.DatabaseURL)
	default:
		store, err = snapshot.NewSQLite(cfg.Snapshot.Path)
	}
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// newFetcher builds the retrying HTTP fetcher from config.
func newFetcher() *fetcher.HTTPFetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		Timeout:      time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
		MaxRetries:   cfg.Fetch.MaxRetries,
		RateLimiters: fetcher.DefaultRateLimiters(),
	})
}

// valueColumns maps the configured roll columns onto the analysis inputs.
func valueColumns() policy.ValueColumns {
	return policy.ValueColumns{
		Land:          cfg.Columns.Land,
		Improvement:   cfg.Columns.Improvement,
		Exemption:     cfg.Columns.Exemption,
		ExemptionFlag: cfg.Columns.ExemptionFlag,
	}
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "encode json")
}

// reportEmptyFilter prints the no-match marker when err is the empty-filter
// sentinel and reports whether it handled it. An empty filter is a finding,
// not a failure; the command exits 0.
func reportEmptyFilter(err error) bool {
	if eris.Is(err, policy.ErrEmptyFilter) {
		fmt.Println("No parcels matched the filter; nothing to analyze.")
		return true
	}
	return false
}

// writeFrameCSV writes a frame to a CSV file.
func writeFrameCSV(path string, f *table.Frame) error {
	file, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	defer file.Close()
	return fetcher.WriteCSV(file, f)
}
