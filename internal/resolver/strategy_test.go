package resolver

import (
	"testing"
	"time"

	"github.com/cfd-dev/deduplicate-files/internal/types"
)

func TestParseStrategyTokens(t *testing.T) {
	cases := map[string]Strategy{
		"oldest":        Oldest,
		"newest":        Newest,
		"largest":       Largest,
		"smallest":      Smallest,
		"shortest_path": ShortestPath,
		"longest_path":  LongestPath,
	}
	for token, want := range cases {
		if got := ParseStrategy(token); got != want {
			t.Errorf("ParseStrategy(%q) = %v, want %v", token, got, want)
		}
	}
}

func TestParseStrategyUnknownFallsBackToOldest(t *testing.T) {
	for _, token := range []string{"", "OLDEST", "keep-biggest", "random"} {
		if got := ParseStrategy(token); got != Oldest {
			t.Errorf("ParseStrategy(%q) = %v, want Oldest", token, got)
		}
	}
}

func TestStrategyStringRoundTrip(t *testing.T) {
	for token := range strategyTokens {
		if got := ParseStrategy(token).String(); got != token {
			t.Errorf("ParseStrategy(%q).String() = %q", token, got)
		}
	}
}

// strategyClass builds a class with distinct created times, sizes and path
// lengths so every strategy has an unambiguous extremal member.
func strategyClass() []*types.FileRecord {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return []*types.FileRecord{
		{Path: "/data/deep/nested/copy-three.txt", Size: 300, CreatedTime: base.Add(2 * time.Hour)},
		{Path: "/data/copy1.txt", Size: 100, CreatedTime: base},
		{Path: "/data/copy-two.txt", Size: 200, CreatedTime: base.Add(time.Hour)},
	}
}

func TestSortSurvivorPerStrategy(t *testing.T) {
	cases := map[Strategy]string{
		Oldest:       "/data/copy1.txt",                    // earliest created
		Newest:       "/data/deep/nested/copy-three.txt",   // latest created
		Largest:      "/data/deep/nested/copy-three.txt",   // biggest
		Smallest:     "/data/copy1.txt",                    // smallest
		ShortestPath: "/data/copy1.txt",                    // fewest path chars
		LongestPath:  "/data/deep/nested/copy-three.txt",   // most path chars
	}

	for strategy, want := range cases {
		sorted := strategy.Sort(strategyClass())
		if sorted[0].Path != want {
			t.Errorf("%v survivor = %s, want %s", strategy, sorted[0].Path, want)
		}
		if len(sorted) != 3 {
			t.Errorf("%v sort changed class size to %d", strategy, len(sorted))
		}
	}
}

func TestSortDoesNotMutateInput(t *testing.T) {
	class := strategyClass()
	original := make([]*types.FileRecord, len(class))
	copy(original, class)

	_ = Newest.Sort(class)
	for i := range class {
		if class[i] != original[i] {
			t.Fatal("Sort() reordered its input slice")
		}
	}
}
