
package market

// Listing is one sell listing for an item.
type Listing struct {
	PricePerUnit float64 `json:"pricePerUnit"`
	Quantity     int     `json:"quantity,omitempty"`
	HQ           bool    `json:"hq,omitempty"`
}

// ItemData is the market view of one item as returned by the price service.
type ItemData struct {
	Listings       []Listing `json:"listings"`
	AveragePrice   float64   `json:"averagePrice"`
	LastUploadTime int64     `json:"lastUploadTime"` // epoch milliseconds
}

// MinPrice returns the lowest listed price per unit. ok is false when the
// item has no listings at all ("no market data", not an error).
func (d ItemData) MinPrice() (float64, bool) {
	if len(d.Listings) == 0 {
		return 0, false
	}
	min := d.Listings[0].PricePerUnit
	for _, l := range d.Listings[1:] {
		if l.PricePerUnit < min {
			min = l.PricePerUnit
		}
	}
	return min, true
}
