package policy

import (
	"sort"

	"github.com/civicworks/parcel-cli/internal/table"
)

// CategoryRow is one category's value summary. The non-exempt columns are
// populated only when exemption columns are configured; they default to 0 so
// the table is always rectangular.
type CategoryRow struct {
	Category                  string  `json:"category"`
	PropertyCount             int     `json:"property_count"`
	TotalLandValue            float64 `json:"total_land_value"`
	TotalImprovementValue     float64 `json:"total_improvement_value"`
	ImprovementLandRatio      float64 `json:"improvement_land_ratio"`
	TotalExemptions           float64 `json:"total_exemptions,omitempty"`
	NonExemptLandValue        float64 `json:"non_exempt_land_value,omitempty"`
	NonExemptImprovementValue float64 `json:"non_exempt_improvement_value,omitempty"`
	NonExemptRatio            float64 `json:"non_exempt_improvement_land_ratio,omitempty"`
	FullyExemptCount          int     `json:"fully_exempt_count,omitempty"`
}

// CategoryTable is the category value summary, sorted by raw total land
// value descending.
type CategoryTable struct {
	CategoryColumn string        `json:"category_column"`
	HasExemptions  bool          `json:"has_exemptions"`
	Rows           []CategoryRow `json:"rows"`
}

// ValuesByCategory summarizes raw and (when exemption columns are supplied)
// non-exempt land/improvement values per category. The input frame is never
// mutated; calling twice on the same frame yields identical output.
func ValuesByCategory(f *table.Frame, categoryCol string, cols ValueColumns) *CategoryTable {
	categories := f.Strings(categoryCol)
	land := f.Numeric(cols.Land)
	impr := f.Numeric(cols.Improvement)

	hasExemptAmt := f.Has(cols.Exemption)
	hasExemptFlag := f.Has(cols.ExemptionFlag)
	hasExemptions := hasExemptAmt || hasExemptFlag

	byCat := make(map[string]*CategoryRow)
	order := make([]string, 0)
	rowFor := func(cat string) *CategoryRow {
		row, ok := byCat[cat]
		if !ok {
			row = &CategoryRow{Category: cat}
			byCat[cat] = row
			order = append(order, cat)
		}
		return row
	}

	for i, cat := range categories {
		row := rowFor(cat)
		row.PropertyCount++
		row.TotalLandValue += land[i]
		row.TotalImprovementValue += impr[i]
	}

	if hasExemptAmt {
		exempt := f.Numeric(cols.Exemption)
		for i, cat := range categories {
			rowFor(cat).TotalExemptions += exempt[i]
		}
	}

	if hasExemptions {
		adjLand, adjImpr := AdjustedValues(f, cols)
		for i, cat := range categories {
			row := rowFor(cat)
			row.NonExemptLandValue += adjLand[i]
			if adjImpr != nil {
				row.NonExemptImprovementValue += adjImpr[i]
			}
		}
	}

	if hasExemptFlag {
		flags := f.Numeric(cols.ExemptionFlag)
		for i, cat := range categories {
			if flags[i] == 1 {
				rowFor(cat).FullyExemptCount++
			}
		}
	}

	rows := make([]CategoryRow, 0, len(order))
	for _, cat := range order {
		row := byCat[cat]
		row.ImprovementLandRatio = SafeRatio(row.TotalImprovementValue, row.TotalLandValue)
		if hasExemptions {
			row.NonExemptRatio = SafeRatio(row.NonExemptImprovementValue, row.NonExemptLandValue)
		}
		rows = append(rows, *row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TotalLandValue != rows[j].TotalLandValue {
			return rows[i].TotalLandValue > rows[j].TotalLandValue
		}
		return rows[i].Category < rows[j].Category
	})

	return &CategoryTable{
		CategoryColumn: categoryCol,
		HasExemptions:  hasExemptions,
		Rows:           rows,
	}
}
