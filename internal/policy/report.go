package policy

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var reportPrinter = message.NewPrinter(language.English)

// Dollars renders a dollar amount with thousands separators and no cents.
func Dollars(v float64) string {
	return reportPrinter.Sprintf("$%.0f", v)
}

func banner(b *strings.Builder, title string, width int) {
	line := strings.Repeat("=", width)
	b.WriteString(line + "\n")
	b.WriteString(title + "\n")
	b.WriteString(line + "\n")
}

// FormatVacantSummary renders the vacant-land analysis as plain text.
func FormatVacantSummary(r *VacantLandResult) string {
	var b strings.Builder
	banner(&b, "VACANT LAND ANALYSIS SUMMARY", 60)

	reportPrinter.Fprintf(&b, "Total vacant parcels: %d\n", r.TotalParcels)
	fmt.Fprintf(&b, "Total vacant land value: %s\n", Dollars(r.TotalLandValue))
	fmt.Fprintf(&b, "Average vacant land value: %s\n", Dollars(r.AverageLandValue))
	fmt.Fprintf(&b, "Median vacant land value: %s\n", Dollars(r.MedianLandValue))
	fmt.Fprintf(&b, "Vacant land as %% of total city land value: %.1f%%\n", r.PctOfCityValue)

	if len(r.ByNeighborhood) > 0 {
		b.WriteString("\nTop 5 neighborhoods by vacant land value:\n")
		writeSummaryRows(&b, r.ByNeighborhood, 5)
	}
	if len(r.ByZoning) > 0 {
		b.WriteString("\nTop 5 zoning classes by vacant land value:\n")
		writeSummaryRows(&b, r.ByZoning, 5)
	}
	if r.Concentration != nil {
		cm := r.Concentration
		b.WriteString("\nOwnership concentration:\n")
		fmt.Fprintf(&b, "Top 5%% of owners control: %s (%.1f%%)\n", Dollars(cm.Top5PctValue), cm.Top5PctShare)
		fmt.Fprintf(&b, "Top 10%% of owners control: %s (%.1f%%)\n", Dollars(cm.Top10PctValue), cm.Top10PctShare)
	}

	return b.String()
}

func writeSummaryRows(b *strings.Builder, summaries []Summary, limit int) {
	if limit > len(summaries) {
		limit = len(summaries)
	}
	for _, s := range summaries[:limit] {
		fmt.Fprintf(b, "  %-30s count=%d total=%s avg=%s median=%s\n",
			s.Key, s.Count, Dollars(s.Total), Dollars(s.Mean), Dollars(s.Median))
	}
}

// FormatParkingSummary renders the parking-lot analysis as plain text.
func FormatParkingSummary(r *ParkingLotResult) string {
	var b strings.Builder
	banner(&b, "PARKING LOT EFFICIENCY ANALYSIS", 60)

	reportPrinter.Fprintf(&b, "Total parking lots: %d\n", r.TotalLots)
	fmt.Fprintf(&b, "Total parking land value: %s\n", Dollars(r.TotalLandValue))
	fmt.Fprintf(&b, "Average parking land value: %s\n", Dollars(r.AverageLandValue))
	fmt.Fprintf(&b, "Average improvement ratio: %.1f%%\n", r.AverageRatio*100)

	u := r.Underutilized
	fmt.Fprintf(&b, "\nUnderutilized parking lots (%s):\n", u.Criteria)
	reportPrinter.Fprintf(&b, "Count: %d\n", u.Count)
	fmt.Fprintf(&b, "Total land value: %s\n", Dollars(u.TotalLandValue))
	fmt.Fprintf(&b, "Average land value: %s\n", Dollars(u.AverageLandValue))

	if r.Potential != nil {
		p := r.Potential
		b.WriteString("\nDevelopment potential:\n")
		fmt.Fprintf(&b, "Current improvement value: %s\n", Dollars(p.CurrentImprovementValue))
		fmt.Fprintf(&b, "Potential improvement value: %s\n", Dollars(p.PotentialImprovementValue))
		fmt.Fprintf(&b, "Untapped development value: %s\n", Dollars(p.UntappedDevelopmentValue))
	}

	if len(r.ByTier) > 0 {
		b.WriteString("\nBy land value tier:\n")
		for _, t := range r.ByTier {
			fmt.Fprintf(&b, "  %-12s count=%d total=%s avg=%s ratio=%.3f\n",
				t.Tier, t.Count, Dollars(t.TotalLandValue), Dollars(t.AvgLandValue), t.AvgImprovementRatio)
		}
	}

	return b.String()
}

// FormatPenaltySummary renders the development tax penalty analysis.
func FormatPenaltySummary(r *TaxPenaltyResult) string {
	var b strings.Builder
	banner(&b, "DEVELOPMENT TAX PENALTY ANALYSIS", 60)

	b.WriteString("Analysis parameters:\n")
	fmt.Fprintf(&b, "  Building tax rate: %.1f%%\n", r.Params.MillageRate*100)
	fmt.Fprintf(&b, "  Time horizon: %d years\n", r.Params.Years)
	fmt.Fprintf(&b, "  Discount rate: %.1f%%\n", r.Params.DiscountRate*100)

	b.WriteString("\nResults:\n")
	fmt.Fprintf(&b, "Total improvement value in city: %s\n", Dollars(r.TotalImprovementValue))
	fmt.Fprintf(&b, "Annual building tax revenue: %s\n", Dollars(r.AnnualImprovementTax))
	fmt.Fprintf(&b, "NPV of building taxes (%d years): %s\n", r.Params.Years, Dollars(r.NPVImprovementTax))
	fmt.Fprintf(&b, "NPV as %% of construction cost: %.1f%%\n", r.NPVPctOfConstruction)

	b.WriteString("\nHousing impact analysis:\n")
	reportPrinter.Fprintf(&b, "Equivalent 'lost' housing units: %.0f\n", r.EquivalentLostUnits)
	fmt.Fprintf(&b, "Percentage of current housing stock: %.1f%%\n", r.UnitsLostPct)

	b.WriteString("\nInterpretation:\n")
	fmt.Fprintf(&b, "  %s\n", r.Interpretation.Summary)
	fmt.Fprintf(&b, "  %s\n", r.Interpretation.HousingImpact)
	fmt.Fprintf(&b, "  %s\n", r.Interpretation.PolicyImplication)

	return b.String()
}

// FormatImprovementShare renders the improvement-share breakdown.
func FormatImprovementShare(r *ImprovementShareResult) string {
	var b strings.Builder
	banner(&b, "LAND VALUE BY IMPROVEMENT SHARE", 60)

	fmt.Fprintf(&b, "Total adjusted land value: %s\n\n", Dollars(r.TotalAdjustedLandValue))
	for _, bucket := range r.Buckets {
		fmt.Fprintf(&b, "%-28s parcels=%d land=%s share=%.1f%%\n",
			bucket.Category, bucket.ParcelCount, Dollars(bucket.AdjustedLandValue), bucket.ShareOfTotalPct)
	}
	fmt.Fprintf(&b, "\n%s\n", r.Notes)

	return b.String()
}

// FormatCategoryTable renders the category value summary with totals.
func FormatCategoryTable(t *CategoryTable, title string) string {
	var b strings.Builder
	banner(&b, strings.ToUpper(title), 80)

	var totalCount, totalExemptCount int
	var totalLand, totalImpr, totalExempt float64
	for _, row := range t.Rows {
		fmt.Fprintf(&b, "%-30s count=%d land=%s impr=%s ratio=%.2f",
			row.Category, row.PropertyCount, Dollars(row.TotalLandValue),
			Dollars(row.TotalImprovementValue), row.ImprovementLandRatio)
		if t.HasExemptions {
			fmt.Fprintf(&b, " nonexempt_land=%s nonexempt_impr=%s nonexempt_ratio=%.2f exempt_count=%d",
				Dollars(row.NonExemptLandValue), Dollars(row.NonExemptImprovementValue),
				row.NonExemptRatio, row.FullyExemptCount)
		}
		b.WriteString("\n")

		totalCount += row.PropertyCount
		totalLand += row.TotalLandValue
		totalImpr += row.TotalImprovementValue
		totalExempt += row.TotalExemptions
		totalExemptCount += row.FullyExemptCount
	}

	b.WriteString("\nSUMMARY TOTALS:\n")
	reportPrinter.Fprintf(&b, "Total Properties: %d\n", totalCount)
	fmt.Fprintf(&b, "Total Land Value: %s\n", Dollars(totalLand))
	fmt.Fprintf(&b, "Total Improvement Value: %s\n", Dollars(totalImpr))
	fmt.Fprintf(&b, "Overall Improvement:Land Ratio: %.2f\n", SafeRatio(totalImpr, totalLand))
	if t.HasExemptions {
		fmt.Fprintf(&b, "Total Exemptions: %s\n", Dollars(totalExempt))
		reportPrinter.Fprintf(&b, "Fully Exempt Properties: %d\n", totalExemptCount)
	}

	return b.String()
}
