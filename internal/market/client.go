
// Package market talks to the remote price service.
package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// MaxBulkIDs is the largest number of ids one bulk request may carry.
const MaxBulkIDs = 100

// ErrStatus marks a non-2xx response. For a single-item request it means
// "no record for this id"; for a bulk request it means the request itself
// failed and the caller should fall back to per-item fetches.
var ErrStatus = errors.New("unexpected http status")

// Client fetches price data for one market from the remote service.
type Client struct {
	baseURL string
	market  string
	client  *http.Client
}

func NewClient(baseURL, market string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		market:  market,
		client: &http.Client{
			Timeout: 12 * time.Second,
		},
	}
}

// FetchOne resolves a single item: GET {base}/{market}/{id}.
func (c *Client) FetchOne(ctx context.Context, id string) (ItemData, error) {
	body, err := c.get(ctx, c.baseURL+"/"+url.PathEscape(c.market)+"/"+url.PathEscape(id))
	if err != nil {
		return ItemData{}, err
	}
	var d ItemData
	if err := json.Unmarshal(body, &d); err != nil {
		return ItemData{}, decodeErr("item", err, body)
	}
	return d, nil
}

// FetchBulk resolves up to MaxBulkIDs items in one request:
// GET {base}/{market}/{id1},{id2},... The response maps item id to data;
// requested ids the service has nothing for are simply absent.
func (c *Client) FetchBulk(ctx context.Context, ids []string) (map[string]ItemData, error) {
	if len(ids) == 0 {
		return map[string]ItemData{}, nil
	}
	if len(ids) > MaxBulkIDs {
		return nil, fmt.Errorf("bulk fetch of %d ids exceeds limit %d", len(ids), MaxBulkIDs)
	}
	body, err := c.get(ctx, c.baseURL+"/"+url.PathEscape(c.market)+"/"+strings.Join(ids, ","))
	if err != nil {
		return nil, err
	}
	var resp struct {
		Items map[string]ItemData `json:"items"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, decodeErr("bulk", err, body)
	}
	if resp.Items == nil {
		resp.Items = map[string]ItemData{}
	}
	return resp.Items, nil
}

func (c *Client) get(ctx context.Context, urlStr string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "market-price-watch/1.0 (+https://github.com/Armin-kho/market-price-watch)")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("%w %d: %s", ErrStatus, resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return io.ReadAll(io.LimitReader(resp.Body, 4<<20))
}

func decodeErr(what string, err error, body []byte) error {
	snip := string(body)
	if len(snip) > 200 {
		snip = snip[:200]
	}
	return fmt.Errorf("%s decode: %w (%s)", what, err, snip)
}
