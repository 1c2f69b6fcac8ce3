package policy

import "github.com/civicworks/parcel-cli/internal/table"

// ShareBucket summarizes parcels whose improvement share of total value
// falls in one band. Counts and land sums cover non-fully-exempt rows only.
type ShareBucket struct {
	Category          string  `json:"category"`
	ParcelCount       int     `json:"parcel_count"`
	AdjustedLandValue float64 `json:"adjusted_land_value"`
	ShareOfTotalPct   float64 `json:"share_of_total_land_value_pct"`
}

// ImprovementShareResult breaks adjusted land value down by how built-up
// each parcel is.
type ImprovementShareResult struct {
	TotalAdjustedLandValue float64       `json:"total_adjusted_land_value"`
	Buckets                []ShareBucket `json:"categories"`
	Notes                  string        `json:"notes"`
}

// AnalyzeImprovementShare buckets parcels by improvement share of full
// market value and reports adjusted land totals per bucket.
//
// The share is computed from RAW values on purpose: the bucket is a
// physical/use classification and must not move when a parcel's tax status
// changes. Dollar totals and shares are reported on a non-exempt basis:
// fully exempt rows are excluded and partial exemptions reduce improvements
// first, then land.
func AnalyzeImprovementShare(f *table.Frame, cols ValueColumns) *ImprovementShareResult {
	rawLand := f.Numeric(cols.Land)
	rawImpr := f.Numeric(cols.Improvement)

	adjLand, _ := AdjustedValues(f, cols)
	exempt := FullyExempt(f, cols)

	var totalAdjLand float64
	for i, land := range adjLand {
		if !exempt[i] {
			totalAdjLand += land
		}
	}

	// Denominator floored at 1 so shares read as 0 when everything is exempt.
	shareBase := totalAdjLand
	if shareBase <= 0 {
		shareBase = 1
	}

	type band struct {
		name    string
		matches func(share, impr, total float64) bool
	}
	bands := []band{
		{"0% improvement", func(share, impr, total float64) bool {
			return impr == 0 && total > 0
		}},
		{"<10% improvement (excl. 0%)", func(share, impr, total float64) bool {
			return share > 0 && share < 0.10
		}},
		{"10-25% improvement", func(share, impr, total float64) bool {
			return share >= 0.10 && share < 0.25
		}},
		{"25-50% improvement", func(share, impr, total float64) bool {
			return share >= 0.25 && share < 0.50
		}},
	}

	buckets := make([]ShareBucket, 0, len(bands))
	for _, b := range bands {
		var count int
		var landSum float64
		for i := range rawLand {
			if exempt[i] {
				continue
			}
			total := rawLand[i] + rawImpr[i]
			share := SafeRatio(rawImpr[i], total)
			if b.matches(share, rawImpr[i], total) {
				count++
				landSum += adjLand[i]
			}
		}
		buckets = append(buckets, ShareBucket{
			Category:          b.name,
			ParcelCount:       count,
			AdjustedLandValue: landSum,
			ShareOfTotalPct:   SafePct(landSum, shareBase),
		})
	}

	return &ImprovementShareResult{
		TotalAdjustedLandValue: totalAdjLand,
		Buckets:                buckets,
		Notes:                  "Improvement share computed from full market values; land totals/shares reported on non-exempt basis.",
	}
}
