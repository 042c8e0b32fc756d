package resolver

import (
	"cmp"
	"slices"

	"github.com/cfd-dev/deduplicate-files/internal/types"
)

// Strategy names the retention policy applied within each duplicate class.
// Each strategy is a total order over the class plus a direction; the first
// record after sorting is the survivor.
type Strategy int

const (
	// Oldest keeps the earliest created file (default).
	Oldest Strategy = iota
	// Newest keeps the latest created file.
	Newest
	// Largest keeps the biggest file.
	Largest
	// Smallest keeps the smallest file.
	Smallest
	// ShortestPath keeps the file with the shortest path string.
	ShortestPath
	// LongestPath keeps the file with the longest path string.
	LongestPath
)

// strategyTokens maps CLI tokens to strategies.
var strategyTokens = map[string]Strategy{
	"oldest":        Oldest,
	"newest":        Newest,
	"largest":       Largest,
	"smallest":      Smallest,
	"shortest_path": ShortestPath,
	"longest_path":  LongestPath,
}

// ParseStrategy resolves a strategy token. An unrecognized token never
// fails the call - it falls back to Oldest.
func ParseStrategy(token string) Strategy {
	if s, ok := strategyTokens[token]; ok {
		return s
	}
	return Oldest
}

func (s Strategy) String() string {
	for token, strategy := range strategyTokens {
		if strategy == s {
			return token
		}
	}
	return "oldest"
}

// descending reports whether the strategy keeps the maximum of its order.
func (s Strategy) descending() bool {
	return s == Newest || s == Largest || s == LongestPath
}

// compare is the strategy's total order over records (ascending direction).
func (s Strategy) compare(a, b *types.FileRecord) int {
	switch s {
	case Largest, Smallest:
		return cmp.Compare(a.Size, b.Size)
	case ShortestPath, LongestPath:
		return cmp.Compare(len(a.Path), len(b.Path))
	default: // Oldest, Newest
		return a.CreatedTime.Compare(b.CreatedTime)
	}
}

// Sort orders a duplicate class so its survivor comes first, without
// mutating the input. Ascending strategies keep the minimum of the order,
// descending strategies keep the maximum.
func (s Strategy) Sort(records []*types.FileRecord) []*types.FileRecord {
	sorted := make([]*types.FileRecord, len(records))
	copy(sorted, records)
	slices.SortStableFunc(sorted, func(a, b *types.FileRecord) int {
		if s.descending() {
			return s.compare(b, a)
		}
		return s.compare(a, b)
	})
	return sorted
}
