package policy

import (
	"fmt"
	"math"

	"github.com/civicworks/parcel-cli/internal/table"
)

// TaxPenaltyParams configures the development tax penalty calculation.
// Zero values fall back to the defaults shown, except DiscountRate, where
// zero means undiscounted totals.
type TaxPenaltyParams struct {
	ImprovementCol     string
	MillageRate        float64 // 0.012
	Years              int     // 30
	DiscountRate       float64 // 0.05
	ConstructionPerSqf float64 // 150
	UnitSizeSqf        float64 // 1200
}

// TaxPenaltyResult quantifies how much the tax on improvements discourages
// building, expressed as NPV and an equivalent count of forgone housing
// units.
type TaxPenaltyResult struct {
	Params                  TaxPenaltyParams `json:"analysis_parameters"`
	TotalImprovementValue   float64          `json:"total_improvement_value"`
	AnnualImprovementTax    float64          `json:"annual_improvement_tax"`
	NPVImprovementTax       float64          `json:"npv_improvement_tax"`
	NPVPctOfConstruction    float64          `json:"npv_as_pct_of_construction_cost"`
	UnitConstructionCost    float64          `json:"typical_unit_construction_cost"`
	EquivalentLostUnits     float64          `json:"equivalent_lost_units"`
	EstimatedCurrentUnits   float64          `json:"estimated_current_units"`
	UnitsLostPct            float64          `json:"units_lost_percentage"`
	Interpretation          Interpretation   `json:"interpretation"`
}

// Interpretation carries the human-readable reading of the penalty numbers.
type Interpretation struct {
	Summary           string `json:"summary"`
	HousingImpact     string `json:"housing_impact"`
	PolicyImplication string `json:"policy_implication"`
}

// CalculateTaxPenalty computes the present value of building taxes over the
// analysis horizon and converts it to forgone housing units. Pure
// time-value-of-money arithmetic; no filtering.
func CalculateTaxPenalty(f *table.Frame, params TaxPenaltyParams) *TaxPenaltyResult {
	if params.MillageRate == 0 {
		params.MillageRate = 0.012
	}
	if params.Years == 0 {
		params.Years = 30
	}
	if params.ConstructionPerSqf == 0 {
		params.ConstructionPerSqf = 150
	}
	if params.UnitSizeSqf == 0 {
		params.UnitSizeSqf = 1200
	}

	improvements := f.Numeric(params.ImprovementCol)
	totalImprovement := Sum(improvements)
	annualTax := totalImprovement * params.MillageRate

	// Annuity present value. A zero discount rate degenerates to a straight
	// multiple of the horizon.
	var npv float64
	if params.DiscountRate == 0 {
		npv = annualTax * float64(params.Years)
	} else {
		factor := (1 - math.Pow(1+params.DiscountRate, -float64(params.Years))) / params.DiscountRate
		npv = annualTax * factor
	}

	unitCost := params.ConstructionPerSqf * params.UnitSizeSqf
	lostUnits := SafeRatio(npv, unitCost)

	// Coarse housing-stock heuristic: 1.5 units per improved parcel.
	var improvedParcels float64
	for _, v := range improvements {
		if v > 0 {
			improvedParcels++
		}
	}
	currentUnits := improvedParcels * 1.5

	result := &TaxPenaltyResult{
		Params:                params,
		TotalImprovementValue: totalImprovement,
		AnnualImprovementTax:  annualTax,
		NPVImprovementTax:     npv,
		NPVPctOfConstruction:  SafePct(npv, totalImprovement),
		UnitConstructionCost:  unitCost,
		EquivalentLostUnits:   lostUnits,
		EstimatedCurrentUnits: currentUnits,
		UnitsLostPct:          SafePct(lostUnits, currentUnits),
	}
	result.Interpretation = Interpretation{
		Summary: fmt.Sprintf(
			"With a %.1f%% building tax, the NPV of taxes over %d years equals %.1f%% of initial construction cost.",
			params.MillageRate*100, params.Years, result.NPVPctOfConstruction),
		HousingImpact: fmt.Sprintf(
			"This tax penalty is equivalent to losing %.0f housing units (%.1f%% of current housing stock).",
			lostUnits, result.UnitsLostPct),
		PolicyImplication: fmt.Sprintf(
			"Removing building taxes could enable %.0f additional housing units to be economically viable.",
			lostUnits),
	}

	return result
}
