package policy

import (
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/civicworks/parcel-cli/internal/table"
)

// Land-value tier boundaries for the parking breakdown, in dollars. Each
// tier covers (lower, upper], so a parcel at exactly $25,000 belongs to
// "<$25k".
var parkingTiers = []struct {
	label string
	lower float64 // exclusive
	upper float64 // inclusive; 0 means unbounded
}{
	{"<$25k", 0, 25_000},
	{"$25k-$50k", 25_000, 50_000},
	{"$50k-$100k", 50_000, 100_000},
	{"$100k-$250k", 100_000, 250_000},
	{">$250k", 250_000, 0},
}

// ParkingLotOptions configures the parking-lot analysis.
type ParkingLotOptions struct {
	Values              ValueColumns
	PropertyTypeCol     string
	ParkingIdentifier   string
	MinLandValue        float64 // underutilization land-value floor
	MaxImprovementRatio float64 // underutilization ratio ceiling
}

// UnderutilizedStats summarizes high-value parking lots with almost no
// improvements on them.
type UnderutilizedStats struct {
	Count                 int     `json:"count"`
	TotalLandValue        float64 `json:"total_land_value"`
	AverageLandValue      float64 `json:"average_land_value"`
	TotalImprovementValue float64 `json:"total_improvement_value"`
	Criteria              string  `json:"criteria"`
}

// DevelopmentPotential estimates the improvement value the underutilized
// lots would carry at the citywide average improvement-to-land ratio.
type DevelopmentPotential struct {
	CurrentImprovementValue   float64 `json:"current_improvement_value"`
	PotentialImprovementValue float64 `json:"potential_improvement_value"`
	UntappedDevelopmentValue  float64 `json:"untapped_development_value"`
	CitywideAvgRatio          float64 `json:"citywide_avg_improvement_ratio"`
}

// TierStats summarizes parking lots within one land-value tier.
type TierStats struct {
	Tier                string  `json:"tier"`
	Count               int     `json:"count"`
	TotalLandValue      float64 `json:"total_land_value"`
	AvgLandValue        float64 `json:"avg_land_value"`
	AvgImprovementRatio float64 `json:"avg_improvement_ratio"`
}

// ParkingLotResult is the full parking-lot efficiency analysis.
type ParkingLotResult struct {
	TotalLots             int                   `json:"total_parking_lots"`
	TotalLandValue        float64               `json:"total_parking_land_value"`
	TotalImprovementValue float64               `json:"total_parking_improvement_value"`
	AverageLandValue      float64               `json:"average_parking_land_value"`
	AverageRatio          float64               `json:"average_improvement_ratio"`
	Underutilized         UnderutilizedStats    `json:"underutilized_parking_lots"`
	Potential             *DevelopmentPotential `json:"development_potential,omitempty"`
	ByTier                []TierStats           `json:"by_land_value_tier"`
}

// AnalyzeParkingLots identifies inefficient land use on valuable parking
// parcels. All ratios use adjusted values and normalize zero denominators to
// 0. Returns ErrEmptyFilter when no parcel matches the parking identifier.
func AnalyzeParkingLots(f *table.Frame, opts ParkingLotOptions) (*ParkingLotResult, error) {
	if opts.ParkingIdentifier == "" {
		opts.ParkingIdentifier = "Trans - Parking"
	}
	if opts.MinLandValue == 0 {
		opts.MinLandValue = 50_000
	}
	if opts.MaxImprovementRatio == 0 {
		opts.MaxImprovementRatio = 0.1
	}

	types := f.Strings(opts.PropertyTypeCol)
	mask := make([]bool, f.Len())
	matched := 0
	for i, t := range types {
		if t == opts.ParkingIdentifier {
			mask[i] = true
			matched++
		}
	}
	if matched == 0 {
		return nil, eris.Wrapf(ErrEmptyFilter, "no parcels with %s == %q", opts.PropertyTypeCol, opts.ParkingIdentifier)
	}

	parking, err := f.Filter(mask)
	if err != nil {
		return nil, err
	}

	cityLand, cityImpr := AdjustedValues(f, opts.Values)
	parkLand, parkImpr := AdjustedValues(parking, opts.Values)

	ratios := make([]float64, parking.Len())
	for i := range ratios {
		var impr float64
		if parkImpr != nil {
			impr = parkImpr[i]
		}
		ratios[i] = SafeRatio(impr, parkLand[i])
	}

	result := &ParkingLotResult{
		TotalLots:        parking.Len(),
		TotalLandValue:   Sum(parkLand),
		AverageLandValue: Mean(parkLand),
		AverageRatio:     Mean(ratios),
	}
	if parkImpr != nil {
		result.TotalImprovementValue = Sum(parkImpr)
	}

	under := make([]bool, parking.Len())
	var underLand, underImpr, underCount float64
	for i := range under {
		if parkLand[i] >= opts.MinLandValue && ratios[i] <= opts.MaxImprovementRatio {
			under[i] = true
			underCount++
			underLand += parkLand[i]
			if parkImpr != nil {
				underImpr += parkImpr[i]
			}
		}
	}
	result.Underutilized = UnderutilizedStats{
		Count:                 int(underCount),
		TotalLandValue:        underLand,
		AverageLandValue:      SafeRatio(underLand, underCount),
		TotalImprovementValue: underImpr,
		Criteria: fmt.Sprintf("Land value >= %s and improvement ratio <= %.1f%%",
			Dollars(opts.MinLandValue), opts.MaxImprovementRatio*100),
	}

	if underCount > 0 {
		var cityImprTotal float64
		if cityImpr != nil {
			cityImprTotal = Sum(cityImpr)
		}
		citywideRatio := SafeRatio(cityImprTotal, Sum(cityLand))
		potential := underLand * citywideRatio
		result.Potential = &DevelopmentPotential{
			CurrentImprovementValue:   underImpr,
			PotentialImprovementValue: potential,
			UntappedDevelopmentValue:  potential - underImpr,
			CitywideAvgRatio:          citywideRatio,
		}
	}

	result.ByTier = tierBreakdown(parkLand, ratios)

	return result, nil
}

// tierBreakdown buckets parking lots into fixed land-value tiers and
// summarizes each. Parcels with no adjusted land value fall outside every
// tier; tiers with no parcels are omitted.
func tierBreakdown(land, ratios []float64) []TierStats {
	var out []TierStats
	for _, tier := range parkingTiers {
		var values, tierRatios []float64
		for i, v := range land {
			if v <= tier.lower {
				continue
			}
			if tier.upper != 0 && v > tier.upper {
				continue
			}
			values = append(values, v)
			tierRatios = append(tierRatios, ratios[i])
		}
		if len(values) == 0 {
			continue
		}
		out = append(out, TierStats{
			Tier:                tier.label,
			Count:               len(values),
			TotalLandValue:      Sum(values),
			AvgLandValue:        Mean(values),
			AvgImprovementRatio: Mean(tierRatios),
		})
	}
	return out
}
