// Package census fetches ACS demographics and block-group boundaries for a
// county.
package census

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"regexp"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/civicworks/parcel-cli/internal/fetcher"
	"github.com/civicworks/parcel-cli/internal/table"
)

var fipsPattern = regexp.MustCompile(`^\d{5}$`)

// acsVariables are the ACS 5-year variables pulled per block group:
// median income, total population, white alone, black alone, hispanic.
const acsVariables = "NAME,B19013_001E,B01003_001E,B03002_003E,B03002_004E,B03002_012E"

// DefaultACSBaseURL is the Census data API root.
const DefaultACSBaseURL = "https://api.census.gov/data"

// ACSOptions configures an ACS block-group pull.
type ACSOptions struct {
	Year    int    // default 2022
	APIKey  string // required
	BaseURL string // default DefaultACSBaseURL
}

// validateFIPS checks for a 5-digit state+county FIPS code.
func validateFIPS(fips string) error {
	if !fipsPattern.MatchString(fips) {
		return eris.Errorf("census: fips code must be 5 digits (state + county), got %q", fips)
	}
	return nil
}

// BlockGroupProfile fetches the ACS 5-year demographic profile for every
// block group in a county and returns it as a frame with a std_geoid column
// (state+county+tract+block group) plus derived minority_pct and black_pct.
func BlockGroupProfile(ctx context.Context, f fetcher.Fetcher, fips string, opts ACSOptions) (*table.Frame, error) {
	if err := validateFIPS(fips); err != nil {
		return nil, err
	}
	if opts.APIKey == "" {
		return nil, eris.New("census: API key required for ACS queries")
	}
	if opts.Year == 0 {
		opts.Year = 2022
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultACSBaseURL
	}

	stateFIPS, countyFIPS := fips[:2], fips[2:]

	params := url.Values{}
	params.Set("get", acsVariables)
	params.Set("for", "block group:*")
	params.Set("in", fmt.Sprintf("state:%s county:%s", stateFIPS, countyFIPS))
	params.Set("key", opts.APIKey)
	queryURL := fmt.Sprintf("%s/%d/acs/acs5?%s", opts.BaseURL, opts.Year, params.Encode())

	body, err := f.Download(ctx, queryURL)
	if err != nil {
		return nil, eris.Wrapf(err, "census: fetch ACS profile for %s", fips)
	}
	defer body.Close() //nolint:errcheck

	// The data API returns an array of arrays, header row first. Nulls and
	// numbers both appear, so cells go through the usual coercion.
	raw, err := fetcher.DecodeJSONObject[[][]any](body)
	if err != nil {
		return nil, eris.Wrap(err, "census: decode ACS response")
	}
	rows := *raw
	if len(rows) < 1 {
		return nil, eris.Errorf("census: empty ACS response for %s", fips)
	}

	header := make([]string, len(rows[0]))
	for i, cell := range rows[0] {
		header[i] = table.ToString(cell)
	}
	records := make([][]string, len(rows)-1)
	for r, row := range rows[1:] {
		rec := make([]string, len(row))
		for i, cell := range row {
			rec[i] = table.ToString(cell)
		}
		records[r] = rec
	}

	frame, err := table.FromRecords(header, records)
	if err != nil {
		return nil, err
	}

	renames := map[string]string{
		"B19013_001E": "median_income",
		"B01003_001E": "total_pop",
		"B03002_003E": "white_pop",
		"B03002_004E": "black_pop",
		"B03002_012E": "hispanic_pop",
		"state":       "state_fips",
		"county":      "county_fips",
		"tract":       "tract_fips",
		"block group": "bg_fips",
	}
	for old, new := range renames {
		if frame.Has(old) {
			if err := frame.Rename(old, new); err != nil {
				return nil, err
			}
		}
	}

	if err := addStdGeoid(frame, "state_fips", "county_fips", "tract_fips", "bg_fips"); err != nil {
		return nil, err
	}
	if err := addDerivedPercentages(frame); err != nil {
		return nil, err
	}

	zap.L().Info("census: fetched ACS block-group profile",
		zap.String("fips", fips),
		zap.Int("year", opts.Year),
		zap.Int("block_groups", frame.Len()),
	)

	return frame, nil
}

// addStdGeoid concatenates the component FIPS columns into std_geoid.
func addStdGeoid(f *table.Frame, stateCol, countyCol, tractCol, bgCol string) error {
	states := f.Strings(stateCol)
	counties := f.Strings(countyCol)
	tracts := f.Strings(tractCol)
	bgs := f.Strings(bgCol)

	geoids := make([]any, f.Len())
	for i := range geoids {
		geoids[i] = states[i] + counties[i] + tracts[i] + bgs[i]
	}
	return f.Set("std_geoid", geoids)
}

// addDerivedPercentages appends minority_pct and black_pct, rounded to two
// decimals. Zero population yields 0 rather than NaN.
func addDerivedPercentages(f *table.Frame) error {
	total := f.Numeric("total_pop")
	white := f.Numeric("white_pop")
	black := f.Numeric("black_pop")

	minority := make([]any, f.Len())
	blackPct := make([]any, f.Len())
	for i := range total {
		minority[i] = round2(safePct(total[i]-white[i], total[i]))
		blackPct[i] = round2(safePct(black[i], total[i]))
	}
	if err := f.Set("minority_pct", minority); err != nil {
		return err
	}
	return f.Set("black_pct", blackPct)
}

func safePct(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den * 100
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
