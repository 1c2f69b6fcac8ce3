// Package policy computes derived land-policy metrics over parcel frames:
// exemption-adjusted valuations, vacant-land concentration, parking-lot
// underutilization, improvement-share breakdowns, and the development tax
// penalty. All functions are pure over an in-memory snapshot; data-quality
// problems coerce to zero rather than erroring.
package policy

import (
	"github.com/rotisserie/eris"

	"github.com/civicworks/parcel-cli/internal/table"
)

// ErrEmptyFilter marks an analysis whose population of interest matched zero
// rows. Callers branch on it with errors.Is; it is a condition, not a fault.
var ErrEmptyFilter = eris.New("policy: no parcels matched filter")

// ValueColumns names the parcel value and exemption columns in a frame.
// An empty name, or a name absent from the frame, means the field is not
// tracked in this dataset.
type ValueColumns struct {
	Land          string
	Improvement   string
	Exemption     string
	ExemptionFlag string
}

// AdjustedValues computes non-exempt (taxable) land and improvement values
// for every row.
//
// Partial exemption amounts are applied to improvements first; whatever
// exceeds the original improvement value is applied to land. Both results
// clamp at zero. When the frame tracks no improvement column, the entire
// exemption amount comes out of land. A nonzero full-exemption flag zeroes
// both values and dominates any partial exemption.
//
// The improvements slice is nil when improvements are untracked.
func AdjustedValues(f *table.Frame, cols ValueColumns) (land []float64, improvements []float64) {
	land = f.Numeric(cols.Land)

	hasImpr := f.Has(cols.Improvement)
	if hasImpr {
		improvements = f.Numeric(cols.Improvement)
	}

	if f.Has(cols.Exemption) {
		exempt := f.Numeric(cols.Exemption)
		if hasImpr {
			for i := range land {
				orig := improvements[i]
				improvements[i] = clampZero(orig - exempt[i])
				remaining := clampZero(exempt[i] - orig)
				land[i] = clampZero(land[i] - remaining)
			}
		} else {
			for i := range land {
				land[i] = clampZero(land[i] - exempt[i])
			}
		}
	}

	// Full exemption is applied last so it overrides the partial result.
	if f.Has(cols.ExemptionFlag) {
		flags := f.Numeric(cols.ExemptionFlag)
		for i, flag := range flags {
			if flag != 0 {
				land[i] = 0
				if hasImpr {
					improvements[i] = 0
				}
			}
		}
	}

	return land, improvements
}

// FullyExempt returns the full-exemption mask for the frame. Without a flag
// column every row is non-exempt.
func FullyExempt(f *table.Frame, cols ValueColumns) []bool {
	mask := make([]bool, f.Len())
	if !f.Has(cols.ExemptionFlag) {
		return mask
	}
	for i, flag := range f.Numeric(cols.ExemptionFlag) {
		mask[i] = flag != 0
	}
	return mask
}

// AdjustParcel applies the exemption allocation to a single parcel.
// hasImprovement mirrors whether the dataset tracks improvement values at
// all; when false the adjusted improvement is reported as 0 and the full
// exemption amount is taken from land.
func AdjustParcel(land, improvement, exemption float64, hasImprovement, fullyExempt bool) (adjLand, adjImprovement float64) {
	if fullyExempt {
		return 0, 0
	}
	if hasImprovement {
		adjImprovement = clampZero(improvement - exemption)
		remaining := clampZero(exemption - improvement)
		adjLand = clampZero(land - remaining)
		return adjLand, adjImprovement
	}
	return clampZero(land - exemption), 0
}

func clampZero(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
