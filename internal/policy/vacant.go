package policy

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/civicworks/parcel-cli/internal/table"
)

// VacantLandOptions configures the vacant-land analysis. Column names are
// dataset-specific; optional breakdown columns may be empty.
type VacantLandOptions struct {
	Values           ValueColumns
	PropertyTypeCol  string
	VacantIdentifier string
	NeighborhoodCol  string
	ZoningCol        string
	OwnerCol         string
}

// OwnerHolding is one owner's position in the vacant-land market.
type OwnerHolding struct {
	Owner          string  `json:"owner"`
	ParcelCount    int     `json:"parcel_count"`
	TotalLandValue float64 `json:"total_land_value"`
}

// ConcentrationMetrics reports how much vacant-land value the largest owners
// control. The top-k sets always contain at least one owner.
type ConcentrationMetrics struct {
	Top5PctOwnerCount  int     `json:"top_5_pct_owner_count"`
	Top5PctValue       float64 `json:"top_5_percent_owners_control_value"`
	Top5PctShare       float64 `json:"top_5_percent_share"`
	Top10PctOwnerCount int     `json:"top_10_pct_owner_count"`
	Top10PctValue      float64 `json:"top_10_percent_owners_control_value"`
	Top10PctShare      float64 `json:"top_10_percent_share"`
}

// VacantLandResult is the full vacant-land analysis. All dollar figures use
// exemption-adjusted values when exemption columns are configured.
type VacantLandResult struct {
	TotalParcels      int                   `json:"total_vacant_parcels"`
	TotalLandValue    float64               `json:"total_vacant_land_value"`
	AverageLandValue  float64               `json:"average_vacant_land_value"`
	MedianLandValue   float64               `json:"median_vacant_land_value"`
	PctOfCityValue    float64               `json:"vacant_land_pct_of_total"`
	ByNeighborhood    []Summary             `json:"by_neighborhood,omitempty"`
	ByZoning          []Summary             `json:"by_zoning,omitempty"`
	Top10Owners       []OwnerHolding        `json:"top_10_owners_by_value,omitempty"`
	Concentration     *ConcentrationMetrics `json:"concentration_metrics,omitempty"`
}

// AnalyzeVacantLand analyzes vacant-land value, geographic distribution, and
// ownership concentration. Returns ErrEmptyFilter when no parcel matches the
// vacant identifier.
func AnalyzeVacantLand(f *table.Frame, opts VacantLandOptions) (*VacantLandResult, error) {
	if opts.VacantIdentifier == "" {
		opts.VacantIdentifier = "Vacant Land"
	}

	types := f.Strings(opts.PropertyTypeCol)
	mask := make([]bool, f.Len())
	matched := 0
	for i, t := range types {
		if t == opts.VacantIdentifier {
			mask[i] = true
			matched++
		}
	}
	if matched == 0 {
		return nil, eris.Wrapf(ErrEmptyFilter, "no parcels with %s == %q", opts.PropertyTypeCol, opts.VacantIdentifier)
	}

	vacant, err := f.Filter(mask)
	if err != nil {
		return nil, err
	}

	cityLand, _ := AdjustedValues(f, opts.Values)
	vacantLand, _ := AdjustedValues(vacant, opts.Values)

	result := &VacantLandResult{
		TotalParcels:     vacant.Len(),
		TotalLandValue:   Sum(vacantLand),
		AverageLandValue: Mean(vacantLand),
		MedianLandValue:  Median(vacantLand),
	}
	result.PctOfCityValue = SafePct(result.TotalLandValue, Sum(cityLand))

	if vacant.Has(opts.NeighborhoodCol) {
		result.ByNeighborhood = SummarizeByKey(vacant.Strings(opts.NeighborhoodCol), vacantLand)
	}
	if vacant.Has(opts.ZoningCol) {
		result.ByZoning = SummarizeByKey(vacant.Strings(opts.ZoningCol), vacantLand)
	}
	if vacant.Has(opts.OwnerCol) {
		holdings := ownerHoldings(vacant.Strings(opts.OwnerCol), vacantLand)
		top := holdings
		if len(top) > 10 {
			top = top[:10]
		}
		result.Top10Owners = top
		result.Concentration = concentration(holdings, result.TotalLandValue)
	}

	return result, nil
}

// ownerHoldings aggregates adjusted land value per owner, sorted by value
// descending with owner-name tiebreak.
func ownerHoldings(owners []string, landValues []float64) []OwnerHolding {
	summaries := SummarizeByKey(owners, landValues)
	holdings := make([]OwnerHolding, len(summaries))
	for i, s := range summaries {
		holdings[i] = OwnerHolding{Owner: s.Key, ParcelCount: s.Count, TotalLandValue: s.Total}
	}
	return holdings
}

// concentration computes the top-5%/top-10% owner tiers. Each tier keeps at
// least one owner so small markets still report a concentration figure.
func concentration(holdings []OwnerHolding, totalValue float64) *ConcentrationMetrics {
	numOwners := len(holdings)
	if numOwners < 1 {
		numOwners = 1
	}
	top5Count := topTierCount(numOwners, 0.05)
	top10Count := topTierCount(numOwners, 0.10)

	top5Value := tierValue(holdings, top5Count)
	top10Value := tierValue(holdings, top10Count)

	return &ConcentrationMetrics{
		Top5PctOwnerCount:  top5Count,
		Top5PctValue:       top5Value,
		Top5PctShare:       SafePct(top5Value, totalValue),
		Top10PctOwnerCount: top10Count,
		Top10PctValue:      top10Value,
		Top10PctShare:      SafePct(top10Value, totalValue),
	}
}

func topTierCount(numOwners int, fraction float64) int {
	k := int(math.Round(float64(numOwners) * fraction))
	if k < 1 {
		k = 1
	}
	return k
}

func tierValue(holdings []OwnerHolding, k int) float64 {
	if k > len(holdings) {
		k = len(holdings)
	}
	var total float64
	for _, h := range holdings[:k] {
		total += h.TotalLandValue
	}
	return total
}
