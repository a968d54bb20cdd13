// Package pricing holds the per-date-range price statistics and the
// session-scoped cache of fetch results.
package pricing

import (
	"math"

	"staylens/models"
)

// CalcStats computes min/avg/max/count over a price list. Callers must
// guarantee a non-empty input; the average is rounded to the nearest unit.
func CalcStats(prices []float64) models.PriceStats {
	min, max := prices[0], prices[0]
	sum := 0.0
	for _, p := range prices {
		if p < min {
			min = p
		}
		if p > max {
			max = p
		}
		sum += p
	}
	return models.PriceStats{
		Min:   min,
		Max:   max,
		Avg:   math.Round(sum / float64(len(prices))),
		Count: len(prices),
	}
}
