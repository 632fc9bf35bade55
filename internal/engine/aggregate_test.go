
package engine

import (
	"errors"
	"testing"
	"time"
)

func TestAggregateSortsByPriceDescending(t *testing.T) {
	groups := []GroupResult{
		{Records: []PriceRecord{
			{ID: "1", Name: "low", Price: 10},
			{ID: "2", Name: "high", Price: 900},
		}},
		{Records: []PriceRecord{
			{ID: "3", Name: "mid", Price: 450},
		}},
	}
	snap := Aggregate(groups, time.Now())
	if len(snap.Prices) != 3 {
		t.Fatalf("got %d prices, want 3", len(snap.Prices))
	}
	for i := 1; i < len(snap.Prices); i++ {
		if snap.Prices[i].Price > snap.Prices[i-1].Price {
			t.Fatalf("prices not non-increasing at %d: %v", i, snap.Prices)
		}
	}
	if snap.Prices[0].ID != "2" || snap.Prices[2].ID != "1" {
		t.Fatalf("unexpected order: %v", snap.Prices)
	}
}

func TestAggregateStableForTies(t *testing.T) {
	groups := []GroupResult{
		{Records: []PriceRecord{
			{ID: "a", Price: 100},
			{ID: "b", Price: 100},
			{ID: "c", Price: 100},
		}},
	}
	snap := Aggregate(groups, time.Now())
	if snap.Prices[0].ID != "a" || snap.Prices[1].ID != "b" || snap.Prices[2].ID != "c" {
		t.Fatalf("tie order not stable: %v", snap.Prices)
	}
}

func TestAggregateDropsFailedGroupsAndIncompleteRecords(t *testing.T) {
	groups := []GroupResult{
		{Records: []PriceRecord{{ID: "1", Price: 5}}},
		{Records: []PriceRecord{{ID: "poisoned", Price: 999}}, Err: errors.New("group failed")},
		{Records: []PriceRecord{{Price: 777}}}, // no id, incomplete
	}
	snap := Aggregate(groups, time.Now())
	if len(snap.Prices) != 1 || snap.Prices[0].ID != "1" {
		t.Fatalf("got %v, want only id 1", snap.Prices)
	}
}

func TestAggregateStampsUpdatedAt(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	snap := Aggregate(nil, at)
	if !snap.UpdatedAt.Equal(at) {
		t.Fatalf("UpdatedAt = %v, want %v", snap.UpdatedAt, at)
	}
	if len(snap.Prices) != 0 {
		t.Fatalf("empty input should give empty prices, got %v", snap.Prices)
	}
}
