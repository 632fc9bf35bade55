
package engine

import (
	"sort"
	"time"
)

// Aggregate flattens per-group results into one snapshot: failed groups
// and incomplete records are dropped, the rest is stably sorted by price
// descending. The full sequence is exposed; truncation is the consumer's
// business.
func Aggregate(groups []GroupResult, at time.Time) RunSnapshot {
	var prices []PriceRecord
	for _, g := range groups {
		if g.Err != nil {
			continue
		}
		for _, rec := range g.Records {
			if rec.ID == "" {
				continue
			}
			prices = append(prices, rec)
		}
	}
	sort.SliceStable(prices, func(i, j int) bool {
		return prices[i].Price > prices[j].Price
	})
	return RunSnapshot{Prices: prices, UpdatedAt: at}
}
