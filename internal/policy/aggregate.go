package policy

import "sort"

// Summary holds per-category aggregate metrics for one value column.
type Summary struct {
	Key    string  `json:"key"`
	Count  int     `json:"count"`
	Total  float64 `json:"total_value"`
	Mean   float64 `json:"avg_value"`
	Median float64 `json:"median_value"`
}

// SummarizeByKey groups values by category key and computes count, sum,
// mean, and median per group. Results are sorted by total descending; ties
// break on key ascending so output is deterministic.
func SummarizeByKey(keys []string, values []float64) []Summary {
	groups := make(map[string][]float64)
	for i, key := range keys {
		groups[key] = append(groups[key], values[i])
	}

	summaries := make([]Summary, 0, len(groups))
	for key, vals := range groups {
		summaries = append(summaries, Summary{
			Key:    key,
			Count:  len(vals),
			Total:  Sum(vals),
			Mean:   Mean(vals),
			Median: Median(vals),
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Total != summaries[j].Total {
			return summaries[i].Total > summaries[j].Total
		}
		return summaries[i].Key < summaries[j].Key
	})

	return summaries
}
