
// Package catalog loads the item catalog the sync engine iterates over.
// The catalog is read once at startup and immutable afterwards.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

type Entry struct {
	ID   string
	Name string
}

// Catalog holds catalog entries in a fixed iteration order. Windowed
// batching depends on this order being stable for the process lifetime.
type Catalog struct {
	entries []Entry
	byID    map[string]Entry
}

// Load reads a catalog file: a JSON object mapping item id to either a
// bare name string or an object with a "name" field. A missing or
// malformed file is fatal for the engine, so errors here abort startup.
func Load(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("invalid catalog json: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("catalog %s is empty", path)
	}

	entries := make([]Entry, 0, len(raw))
	for id, msg := range raw {
		name, err := decodeName(msg)
		if err != nil {
			return nil, fmt.Errorf("catalog entry %q: %w", id, err)
		}
		if name == "" {
			return nil, fmt.Errorf("catalog entry %q has no name", id)
		}
		entries = append(entries, Entry{ID: id, Name: name})
	}
	sortEntries(entries)

	byID := make(map[string]Entry, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}
	return &Catalog{entries: entries, byID: byID}, nil
}

func decodeName(msg json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(msg, &s); err == nil {
		return strings.TrimSpace(s), nil
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(msg, &obj); err != nil {
		return "", err
	}
	return strings.TrimSpace(obj.Name), nil
}

// sortEntries orders ids numerically when every id is a number,
// lexicographically otherwise.
func sortEntries(entries []Entry) {
	numeric := true
	for _, e := range entries {
		if _, err := strconv.ParseInt(e.ID, 10, 64); err != nil {
			numeric = false
			break
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if numeric {
			a, _ := strconv.ParseInt(entries[i].ID, 10, 64)
			b, _ := strconv.ParseInt(entries[j].ID, 10, 64)
			return a < b
		}
		return entries[i].ID < entries[j].ID
	})
}

// Entries returns the catalog in its fixed iteration order. Callers must
// not mutate the returned slice.
func (c *Catalog) Entries() []Entry {
	return c.entries
}

func (c *Catalog) Len() int {
	return len(c.entries)
}

func (c *Catalog) lookup(id string) (Entry, bool) {
	e, ok := c.byID[id]
	return e, ok
}
