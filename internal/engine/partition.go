
package engine

import "github.com/Armin-kho/market-price-watch/internal/catalog"

// WindowCount returns how many outer windows of windowSize cover n entries.
func WindowCount(n, windowSize int) int {
	if n <= 0 || windowSize <= 0 {
		return 0
	}
	return (n + windowSize - 1) / windowSize
}

// Window returns the windowIndex-th contiguous slice of entries. Windows
// are disjoint, order-preserving, and together cover the input exactly;
// the trailing window may be shorter than windowSize. Callers wrap
// windowIndex modulo WindowCount for cyclic coverage.
func Window(entries []catalog.Entry, windowSize, windowIndex int) []catalog.Entry {
	if windowSize <= 0 || windowIndex < 0 {
		return nil
	}
	start := windowIndex * windowSize
	if start >= len(entries) {
		return nil
	}
	end := start + windowSize
	if end > len(entries) {
		end = len(entries)
	}
	return entries[start:end]
}

// GroupInto chunks a batch into dispatch groups of at most groupSize,
// preserving order. The final group may be smaller.
func GroupInto(batch []catalog.Entry, groupSize int) [][]catalog.Entry {
	if groupSize <= 0 || len(batch) == 0 {
		return nil
	}
	groups := make([][]catalog.Entry, 0, WindowCount(len(batch), groupSize))
	for start := 0; start < len(batch); start += groupSize {
		end := start + groupSize
		if end > len(batch) {
			end = len(batch)
		}
		groups = append(groups, batch[start:end])
	}
	return groups
}
