// Package organizer reclassifies image files into date- or quarter-named
// folders based on their capture metadata.
//
// # Overview
//
// For every image under the root (regardless of duplicate status), the
// organizer derives a bucket key - the EXIF capture date when present,
// else the filesystem modification date - and moves the image into a
// folder named after that key, directly under the root. Folder existence
// checks and creation are memoized so they happen at most once per
// distinct key per run.
//
// The image list is snapshotted before any move, so bucket folders created
// during the run are never re-walked within it. An image already sitting in
// its bucket collides with itself at the destination and is counted as
// skipped, which makes a second run over the same tree a no-op.
//
// # Accounting
//
// Every image is counted in exactly one of {organized, skipped} per run:
// organized + skipped == total always holds. Collisions, unresolvable
// dates, folder-creation failures and move failures all count as skipped;
// none of them aborts the walk.
package organizer

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cfd-dev/deduplicate-files/internal/fsutil"
	"github.com/cfd-dev/deduplicate-files/internal/progress"
	"github.com/cfd-dev/deduplicate-files/internal/types"
)

// Mode selects how bucket keys are derived from dates.
type Mode int

const (
	// ByDate buckets images into YYYY-MM-DD folders (default).
	ByDate Mode = iota
	// ByQuarter buckets images into YYYY-QN folders.
	ByQuarter
)

// ParseMode resolves a mode token. An unrecognized token falls back to ByDate.
func ParseMode(token string) Mode {
	if token == "quarter" {
		return ByQuarter
	}
	return ByDate
}

func (m Mode) String() string {
	if m == ByQuarter {
		return "quarter"
	}
	return "date"
}

// Tally reports the outcome of a classification run.
type Tally struct {
	TotalImages     int
	OrganizedImages int
	SkippedImages   int
	startTime       time.Time
}

func (t *Tally) String() string {
	return fmt.Sprintf("Classified %d/%d images, skipped %d in %.1fs",
		t.OrganizedImages, t.TotalImages, t.SkippedImages,
		time.Since(t.startTime).Seconds())
}

// Organizer moves images into date- or quarter-named bucket folders.
//
// The organizer is designed for single-use: create with New(), call Run() once.
type Organizer struct {
	// Config (immutable, set by New)
	root         string
	mode         Mode
	showProgress bool       // Whether to display progress bar
	errCh        chan error // Non-fatal errors (unreadable dirs, failed moves)

	// Runtime
	folders map[string]string // bucket key → created folder path
}

// New creates an Organizer for the given root directory and mode.
func New(root string, mode Mode, showProgress bool, errCh chan error) *Organizer {
	return &Organizer{
		root:         root,
		mode:         mode,
		showProgress: showProgress,
		errCh:        errCh,
	}
}

// Run executes classification and returns the tally.
//
// All filesystem mutation happens sequentially on this goroutine; the
// destination-existence check and the move can therefore never race on the
// same target path.
func (o *Organizer) Run() (*Tally, error) {
	absRoot, err := filepath.Abs(o.root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("invalid directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("invalid directory: %s is not a directory", absRoot)
	}

	o.folders = make(map[string]string)
	tally := &Tally{startTime: time.Now()}

	images := o.listImages(absRoot)

	bar := progress.New(o.showProgress, int64(len(images)))
	bar.Describe(tally)

	for _, path := range images {
		tally.TotalImages++
		if o.classify(absRoot, path) {
			tally.OrganizedImages++
		} else {
			tally.SkippedImages++
		}
		bar.Add(1)
		bar.Describe(tally)
	}

	bar.Finish(tally)
	return tally, nil
}

// listImages snapshots every image path under root before any move.
// Unreadable directories are reported and skipped.
func (o *Organizer) listImages(root string) []string {
	var images []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			o.sendError(err)
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if types.KindOf(path) == types.Image {
			images = append(images, path)
		}
		return nil
	})
	return images
}

// classify moves one image into its bucket folder.
// Returns true when the image was moved, false when it was skipped.
func (o *Organizer) classify(root, path string) bool {
	date := captureDate(path)
	if date == "" {
		info, err := os.Stat(path)
		if err != nil {
			o.sendError(fmt.Errorf("%s: %w", path, err))
			return false
		}
		date = info.ModTime().Format(dateLayout)
	}

	key := date
	if o.mode == ByQuarter {
		key = quarterKey(date)
		if key == "" {
			return false
		}
	}

	folder, err := o.folderFor(root, key)
	if err != nil {
		o.sendError(err)
		return false
	}

	target := filepath.Join(folder, filepath.Base(path))
	if _, err := os.Lstat(target); err == nil {
		return false // destination occupied (possibly by this very file) - never overwrite
	}

	if err := fsutil.Move(path, target); err != nil {
		o.sendError(fmt.Errorf("%s: %w", path, err))
		return false
	}
	return true
}

// folderFor resolves the destination folder for a bucket key, creating it
// on first use. Successful resolutions are memoized per run.
func (o *Organizer) folderFor(root, key string) (string, error) {
	if folder, ok := o.folders[key]; ok {
		return folder, nil
	}
	folder := filepath.Join(root, key)
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return "", fmt.Errorf("create bucket dir %s: %w", key, err)
	}
	o.folders[key] = folder
	return folder, nil
}

// quarterKey converts an ISO date to its quarter bucket key (YYYY-QN).
// Returns "" for dates that don't parse.
func quarterKey(date string) string {
	parts := strings.SplitN(date, "-", 3)
	if len(parts) != 3 {
		return ""
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return ""
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return ""
	}
	quarter := (month-1)/3 + 1
	return fmt.Sprintf("%d-Q%d", year, quarter)
}

// sendError sends an error to the errors channel if it's not nil.
func (o *Organizer) sendError(err error) {
	if o.errCh != nil {
		o.errCh <- err
	}
}
