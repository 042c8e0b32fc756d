package scanner

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"

	"github.com/cfd-dev/deduplicate-files/internal/cache"
	"github.com/cfd-dev/deduplicate-files/internal/testutil"
	"github.com/cfd-dev/deduplicate-files/internal/types"
)

// sowTree creates a small mixed tree:
//   - three byte-identical text files (one in a subdirectory)
//   - one unique text file
//   - two byte-identical PNGs
//   - one distinct PNG
//   - one empty file
func sowTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	testutil.WriteFile(t, filepath.Join(root, "a.txt"), "same content")
	testutil.WriteFile(t, filepath.Join(root, "b.txt"), "same content")
	testutil.WriteFile(t, filepath.Join(root, "sub", "c.txt"), "same content")
	testutil.WriteFile(t, filepath.Join(root, "unique.txt"), "different content")

	img := testutil.VerticalStep(80, 80, 220, 30)
	testutil.WritePNG(t, filepath.Join(root, "one.png"), img)
	testutil.WritePNG(t, filepath.Join(root, "sub", "two.png"), img)
	testutil.WritePNG(t, filepath.Join(root, "other.png"), testutil.VerticalStep(80, 80, 30, 220))

	testutil.WriteFile(t, filepath.Join(root, "empty.txt"), "")

	return root
}

func runScan(t *testing.T, root string, workers int) *Results {
	t.Helper()
	results, err := New(root, workers, false, nil, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	return results
}

func TestScanGroupsIdenticalGenericFiles(t *testing.T) {
	results := runScan(t, sowTree(t), 4)

	var sizes []int
	for _, records := range results.Generic {
		sizes = append(sizes, len(records))
	}
	sort.Ints(sizes)
	// "different content" alone, "same content" three times
	if !reflect.DeepEqual(sizes, []int{1, 3}) {
		t.Errorf("generic class sizes = %v, want [1 3]", sizes)
	}
}

func TestScanGroupsIdenticalImages(t *testing.T) {
	results := runScan(t, sowTree(t), 4)

	var sizes []int
	for _, records := range results.Images {
		sizes = append(sizes, len(records))
	}
	sort.Ints(sizes)
	if !reflect.DeepEqual(sizes, []int{1, 2}) {
		t.Errorf("image class sizes = %v, want [1 2]", sizes)
	}
}

func TestScanExcludesEmptyFiles(t *testing.T) {
	results := runScan(t, sowTree(t), 2)

	for _, m := range []types.ClassMap{results.Generic, results.Images} {
		for _, records := range m {
			for _, r := range records {
				if filepath.Base(r.Path) == "empty.txt" {
					t.Errorf("empty file %s appeared in results", r.Path)
				}
				if r.Size == 0 {
					t.Errorf("zero-size record for %s", r.Path)
				}
			}
		}
	}
}

// pathsByFingerprint flattens a Results into a deterministic representation
// for cross-run comparison.
func pathsByFingerprint(results *Results) map[string][]string {
	flat := make(map[string][]string)
	for prefix, m := range map[string]types.ClassMap{"i:": results.Images, "g:": results.Generic} {
		for fp, records := range m {
			var paths []string
			for _, r := range records {
				paths = append(paths, r.Path)
			}
			sort.Strings(paths)
			flat[prefix+fp] = paths
		}
	}
	return flat
}

func TestScanWorkerCountEquivalence(t *testing.T) {
	root := sowTree(t)

	base := pathsByFingerprint(runScan(t, root, 1))
	for _, workers := range []int{4, 8} {
		got := pathsByFingerprint(runScan(t, root, workers))
		if !reflect.DeepEqual(base, got) {
			t.Errorf("results with %d workers differ from 1 worker:\n%v\nvs\n%v", workers, got, base)
		}
	}
}

func TestScanRecordsCarryMetadata(t *testing.T) {
	results := runScan(t, sowTree(t), 2)

	for _, records := range results.Generic {
		for _, r := range records {
			if !filepath.IsAbs(r.Path) {
				t.Errorf("record path %s is not absolute", r.Path)
			}
			if r.Fingerprint == "" {
				t.Errorf("record %s has empty fingerprint", r.Path)
			}
			if r.ModifiedTime.IsZero() || r.CreatedTime.IsZero() {
				t.Errorf("record %s has zero timestamps", r.Path)
			}
			if r.Kind != types.Generic {
				t.Errorf("record %s has kind %v in generic map", r.Path, r.Kind)
			}
		}
	}
}

func TestScanUnreadableEntriesAreExcluded(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("permission bits do not bind root")
	}
	root := t.TempDir()
	testutil.WriteFile(t, filepath.Join(root, "ok.txt"), "fine")
	locked := filepath.Join(root, "locked.txt")
	testutil.WriteFile(t, locked, "can't read me")
	if err := os.Chmod(locked, 0o000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(locked, 0o644) })

	errs := make(chan error, 10)
	results, err := New(root, 2, false, errs, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	total := 0
	for _, records := range results.Generic {
		total += len(records)
	}
	if total != 1 {
		t.Errorf("scan produced %d generic records, want 1 (unreadable excluded)", total)
	}
	select {
	case <-errs:
	default:
		t.Error("no error reported for unreadable file")
	}
}

func TestScanInvalidDirectory(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "missing"), 2, false, nil, nil).Run(context.Background()); err == nil {
		t.Error("Run() on missing directory succeeded, want error")
	}

	file := filepath.Join(t.TempDir(), "plain.txt")
	testutil.WriteFile(t, file, "not a dir")
	if _, err := New(file, 2, false, nil, nil).Run(context.Background()); err == nil {
		t.Error("Run() on a regular file succeeded, want error")
	}
}

func TestScanCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := New(sowTree(t), 2, false, nil, nil).Run(ctx); err != context.Canceled {
		t.Errorf("Run() with cancelled context returned %v, want context.Canceled", err)
	}
}

func TestScanWithCacheIsEquivalent(t *testing.T) {
	root := sowTree(t)
	cachePath := filepath.Join(t.TempDir(), "fp.db")

	// First run populates the cache
	c1, err := cache.Open(cachePath)
	if err != nil {
		t.Fatalf("cache.Open() failed: %v", err)
	}
	cold, err := New(root, 2, false, nil, c1).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if err := c1.Close(); err != nil {
		t.Fatalf("cache.Close() failed: %v", err)
	}

	// Second run is served from the cache and must be indistinguishable
	c2, err := cache.Open(cachePath)
	if err != nil {
		t.Fatalf("cache.Open() failed: %v", err)
	}
	defer func() { _ = c2.Close() }()
	warm, err := New(root, 2, false, nil, c2).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if !reflect.DeepEqual(pathsByFingerprint(cold), pathsByFingerprint(warm)) {
		t.Error("cached run produced different fingerprint maps")
	}
}

func TestDefaultWorkersBounds(t *testing.T) {
	n := DefaultWorkers()
	if n < 1 || n > 8 {
		t.Errorf("DefaultWorkers() = %d, want within [1, 8]", n)
	}
}
