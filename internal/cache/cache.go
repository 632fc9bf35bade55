
// Package cache is the durable price cache. Keys are namespaced strings,
// values carry the resolved price payload plus the time it was stored;
// freshness policy (TTL) belongs to the caller.
package cache

import (
	"context"
	"time"
)

// Payload is the cached market snapshot for one item, everything the
// resolver produces except the item id (the id is in the key).
type Payload struct {
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	AveragePrice float64 `json:"averagePrice"`
	LastUpload   string  `json:"lastUpload"`
	Listings     int     `json:"listings"`
}

// Entry is one cached record.
type Entry struct {
	Payload  Payload
	StoredAt time.Time
}

// Store is atomic per-key get/set/delete. Implementations must treat an
// undecodable stored payload as corruption: delete the key and report a
// miss rather than an error.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, e Entry) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Key builds the namespaced cache key for an item in a market.
func Key(market, itemID string) string {
	return "price:" + market + ":" + itemID
}
