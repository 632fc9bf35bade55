
package market

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchOne(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/karnak/123" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"listings":[{"pricePerUnit":30},{"pricePerUnit":12}],"averagePrice":21,"lastUploadTime":1717243200000}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "karnak")
	d, err := c.FetchOne(context.Background(), "123")
	if err != nil {
		t.Fatalf("FetchOne: %v", err)
	}
	if len(d.Listings) != 2 || d.AveragePrice != 21 || d.LastUploadTime != 1717243200000 {
		t.Fatalf("unexpected data: %+v", d)
	}
	min, ok := d.MinPrice()
	if !ok || min != 12 {
		t.Fatalf("MinPrice = %v ok=%v, want 12", min, ok)
	}
}

func TestFetchOneStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such item", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "karnak")
	_, err := c.FetchOne(context.Background(), "9")
	if !errors.Is(err, ErrStatus) {
		t.Fatalf("err = %v, want ErrStatus", err)
	}
}

func TestFetchBulk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/karnak/1,2,3" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"items":{"1":{"listings":[{"pricePerUnit":100}]},"3":{"listings":[]}}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "karnak")
	items, err := c.FetchBulk(context.Background(), []string{"1", "2", "3"})
	if err != nil {
		t.Fatalf("FetchBulk: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if _, ok := items["2"]; ok {
		t.Fatal("id 2 should be absent from the response")
	}
	if _, ok := items["3"].MinPrice(); ok {
		t.Fatal("empty listings must report no min price")
	}
}

func TestFetchBulkLimit(t *testing.T) {
	c := NewClient("http://unused.invalid", "karnak")
	ids := make([]string, MaxBulkIDs+1)
	for i := range ids {
		ids[i] = fmt.Sprint(i)
	}
	if _, err := c.FetchBulk(context.Background(), ids); err == nil {
		t.Fatal("oversized bulk request should be rejected")
	}
	if items, err := c.FetchBulk(context.Background(), nil); err != nil || len(items) != 0 {
		t.Fatalf("empty bulk request: items=%v err=%v", items, err)
	}
}

func TestMinPriceEmpty(t *testing.T) {
	var d ItemData
	if _, ok := d.MinPrice(); ok {
		t.Fatal("no listings must mean no price")
	}
}
