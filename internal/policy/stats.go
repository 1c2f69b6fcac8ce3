package policy

import "sort"

// SafeRatio divides num by den, returning 0 for a zero denominator. Every
// ratio in the package goes through it so results are always finite.
func SafeRatio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// SafePct is SafeRatio scaled to a percentage.
func SafePct(num, den float64) float64 {
	return SafeRatio(num, den) * 100
}

// Sum returns the sum of values; empty input sums to 0.
func Sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

// Mean returns the arithmetic mean, 0 for empty input.
func Mean(values []float64) float64 {
	return SafeRatio(Sum(values), float64(len(values)))
}

// Median returns the median, 0 for empty input. The input is not modified.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
