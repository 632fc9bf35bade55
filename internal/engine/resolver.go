
package engine

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/Armin-kho/market-price-watch/internal/cache"
	"github.com/Armin-kho/market-price-watch/internal/catalog"
	"github.com/Armin-kho/market-price-watch/internal/market"
	"github.com/Armin-kho/market-price-watch/internal/utils"
)

// CacheTTL is how long a cached price stays valid. The price service data
// moves fast; anything older is worth a refetch.
const CacheTTL = 5 * time.Minute

type Strategy string

const (
	StrategyBulk   Strategy = "bulk"
	StrategySingle Strategy = "single"
)

// Resolver turns dispatch groups of catalog entries into price records.
// It consults the cache first and fetches only misses; successful fetches
// are written back with a fresh timestamp. Per-item failures are contained
// here: a failing id is dropped from the run and retried naturally on the
// next one.
type Resolver struct {
	client   *market.Client
	store    cache.Store
	market   string
	locale   string
	strategy Strategy
	debug    bool

	now func() time.Time // test hook
}

func NewResolver(client *market.Client, store cache.Store, marketID, locale string, strategy Strategy, debug bool) *Resolver {
	return &Resolver{
		client:   client,
		store:    store,
		market:   marketID,
		locale:   locale,
		strategy: strategy,
		debug:    debug,
		now:      time.Now,
	}
}

// ResolveGroup resolves one dispatch group. The returned error is non-nil
// only when the whole group was abandoned (context cancelled); individual
// item failures never surface past this boundary.
func (r *Resolver) ResolveGroup(ctx context.Context, group []catalog.Entry) ([]PriceRecord, error) {
	records := make([]PriceRecord, 0, len(group))
	misses := make([]catalog.Entry, 0, len(group))

	for _, e := range group {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if rec, ok := r.cached(ctx, e); ok {
			records = append(records, rec)
			continue
		}
		misses = append(misses, e)
	}
	if len(misses) == 0 {
		return records, nil
	}

	switch r.strategy {
	case StrategySingle:
		fetched, err := r.fetchSingles(ctx, misses)
		if err != nil {
			return nil, err
		}
		records = append(records, fetched...)
	default:
		fetched, err := r.fetchBulk(ctx, misses)
		if err != nil {
			return nil, err
		}
		records = append(records, fetched...)
	}
	return records, nil
}

// cached returns a still-fresh cached record. Expired entries are deleted
// eagerly so they can never be served again.
func (r *Resolver) cached(ctx context.Context, e catalog.Entry) (PriceRecord, bool) {
	key := cache.Key(r.market, e.ID)
	ce, ok, err := r.store.Get(ctx, key)
	if err != nil {
		log.Printf("[resolver] cache get %s: %v", key, err)
		return PriceRecord{}, false
	}
	if !ok {
		return PriceRecord{}, false
	}
	if r.now().Sub(ce.StoredAt) >= CacheTTL {
		if err := r.store.Delete(ctx, key); err != nil {
			log.Printf("[resolver] cache delete %s: %v", key, err)
		}
		return PriceRecord{}, false
	}
	p := ce.Payload
	return PriceRecord{
		ID:           e.ID,
		Name:         p.Name,
		Price:        p.Price,
		AveragePrice: p.AveragePrice,
		LastUpload:   p.LastUpload,
		Listings:     p.Listings,
	}, true
}

// fetchBulk resolves misses with one bulk request. If the bulk request
// itself fails it falls back to per-item fetches; ids absent from a
// successful response are omitted without retry.
func (r *Resolver) fetchBulk(ctx context.Context, misses []catalog.Entry) ([]PriceRecord, error) {
	// The service answers a one-id "bulk" request in the single-item
	// response shape, so route it through the single path.
	if len(misses) == 1 {
		return r.fetchSingles(ctx, misses)
	}
	ids := make([]string, len(misses))
	for i, e := range misses {
		ids[i] = e.ID
	}
	items, err := r.client.FetchBulk(ctx, ids)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("[resolver] bulk fetch of %d ids failed, falling back to singles: %v", len(ids), err)
		return r.fetchSingles(ctx, misses)
	}

	records := make([]PriceRecord, 0, len(misses))
	for _, e := range misses {
		d, ok := items[e.ID]
		if !ok {
			continue // nothing listed for this id
		}
		if rec, ok := r.record(ctx, e, d); ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

func (r *Resolver) fetchSingles(ctx context.Context, misses []catalog.Entry) ([]PriceRecord, error) {
	records := make([]PriceRecord, 0, len(misses))
	for _, e := range misses {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		d, err := r.client.FetchOne(ctx, e.ID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// Non-2xx means "no record for this id", anything else is a
			// transient network problem. Either way the id sits out this
			// run and is not cached, so the next run retries it.
			if errors.Is(err, market.ErrStatus) {
				if r.debug {
					log.Printf("[resolver] item %s: %v", e.ID, err)
				}
			} else {
				log.Printf("[resolver] fetch item %s: %v", e.ID, err)
			}
			continue
		}
		if rec, ok := r.record(ctx, e, d); ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

// record builds a PriceRecord from fetched data and writes it back to the
// cache. Items with zero listings produce no record and no cache entry.
func (r *Resolver) record(ctx context.Context, e catalog.Entry, d market.ItemData) (PriceRecord, bool) {
	min, ok := d.MinPrice()
	if !ok {
		return PriceRecord{}, false
	}
	rec := PriceRecord{
		ID:           e.ID,
		Name:         e.Name,
		Price:        min,
		AveragePrice: d.AveragePrice,
		LastUpload:   utils.LocalizeEpochMS(d.LastUploadTime, r.locale),
		Listings:     len(d.Listings),
	}
	entry := cache.Entry{
		Payload: cache.Payload{
			Name:         rec.Name,
			Price:        rec.Price,
			AveragePrice: rec.AveragePrice,
			LastUpload:   rec.LastUpload,
			Listings:     rec.Listings,
		},
		StoredAt: r.now(),
	}
	if err := r.store.Set(ctx, cache.Key(r.market, e.ID), entry); err != nil {
		log.Printf("[resolver] cache set %s: %v", e.ID, err)
	}
	return rec, true
}
