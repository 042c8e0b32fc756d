// Package resolver quarantines redundant copies within duplicate classes.
//
// # Overview
//
// The resolver is the mutating stage of the deduplication pipeline. For
// each duplicate class it sorts the members by the chosen retention
// strategy, keeps the first member untouched (the survivor), and moves
// every other member into a run-scoped quarantine folder.
//
// # Safety Mechanisms
//
//   - The survivor is never touched, for every class and every strategy
//   - Destination collisions are skipped, never overwritten or renamed
//   - Per-file move failures are swallowed and reported; processing of the
//     remaining classes always continues
//   - All destination checks and moves happen on the single coordinating
//     goroutine, so no two moves can race on one target path
//
// The quarantine folder is named deterministically from the run timestamp
// (duplicates_<YYYYMMDD_HHMMSS>) and created lazily on first use, so a run
// that moves nothing leaves no folder behind.
package resolver

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/cfd-dev/deduplicate-files/internal/fsutil"
	"github.com/cfd-dev/deduplicate-files/internal/progress"
	"github.com/cfd-dev/deduplicate-files/internal/types"
)

// quarantinePrefix names quarantine folders, completed by a run timestamp.
const quarantinePrefix = "duplicates_"

// Result reports what a retention run moved.
type Result struct {
	MovedCount    int
	MovedBytes    int64
	MovedRecords  []*types.FileRecord // ordered as moved, for audit logging
	QuarantineDir string              // may not exist when MovedCount == 0
}

// Resolver relocates non-survivor duplicates into a quarantine folder.
//
// The resolver is designed for single-use: create with New(), call Run() once.
type Resolver struct {
	// Config (immutable, set by New)
	classes      types.ClassMap // Duplicate classes (kind-agnostic)
	strategy     Strategy
	workDir      string     // Parent of the quarantine folder ("" = process working directory)
	showProgress bool       // Whether to display progress bar
	errCh        chan error // Non-fatal errors (vanished files, etc.)

	// Runtime
	quarantineDir     string
	quarantineCreated bool
}

// New creates a Resolver for the given duplicate classes.
// workDir overrides the quarantine parent directory; pass "" for the
// process working directory.
func New(classes types.ClassMap, strategy Strategy, workDir string, showProgress bool, errCh chan error) *Resolver {
	return &Resolver{
		classes:      classes,
		strategy:     strategy,
		workDir:      workDir,
		showProgress: showProgress,
		errCh:        errCh,
	}
}

// stats tracks retention progress.
type stats struct {
	totalClasses   int
	resolvedClasses int
	movedFiles     int
	movedBytes     int64
	startTime      time.Time
}

func (s *stats) String() string {
	return fmt.Sprintf("Quarantined %d files (%s) from %d/%d classes in %.1fs",
		s.movedFiles, humanize.IBytes(uint64(s.movedBytes)),
		s.resolvedClasses, s.totalClasses,
		time.Since(s.startTime).Seconds())
}

// Run executes retention on all duplicate classes.
//
// Processing sequence per class:
//  1. Sort members by the strategy's order; the first member survives
//  2. For every other member, compute quarantineDir/<basename>
//  3. Occupied destination → leave the candidate in place, uncounted
//  4. Otherwise move (rename, or copy-then-delete across devices) and tally
//
// Processing order across classes is undefined; every survivor choice is a
// pure function of file metadata, so the outcome does not depend on it.
func (r *Resolver) Run() *Result {
	bar := progress.New(r.showProgress, -1)
	st := &stats{totalClasses: len(r.classes), startTime: time.Now()}
	bar.Describe(st)

	r.quarantineDir = filepath.Join(r.workDir, quarantinePrefix+time.Now().Format("20060102_150405"))

	result := &Result{QuarantineDir: r.quarantineDir}

	for _, class := range r.classes {
		sorted := r.strategy.Sort(class)

		// sorted[0] is the survivor and is never touched
		for _, candidate := range sorted[1:] {
			r.quarantine(candidate, result, st)
		}

		st.resolvedClasses++
		bar.Describe(st)
	}

	bar.Finish(st)
	return result
}

// quarantine moves one candidate into the quarantine folder.
//
// A file already occupying the destination path leaves the candidate in
// place: not renamed, not overwritten, not counted as moved. Losing a
// quarantine opportunity is preferred over any risk of silent overwrite.
func (r *Resolver) quarantine(candidate *types.FileRecord, result *Result, st *stats) {
	if err := r.ensureQuarantineDir(); err != nil {
		r.sendError(err)
		return
	}

	target := filepath.Join(r.quarantineDir, filepath.Base(candidate.Path))
	if _, err := os.Lstat(target); err == nil {
		return // basename collision - leave the duplicate unresolved
	}

	if err := fsutil.Move(candidate.Path, target); err != nil {
		r.sendError(fmt.Errorf("%s: %w", candidate.Path, err))
		return
	}

	result.MovedCount++
	result.MovedBytes += candidate.Size
	result.MovedRecords = append(result.MovedRecords, candidate)
	st.movedFiles++
	st.movedBytes += candidate.Size
}

// ensureQuarantineDir creates the quarantine folder on first use.
func (r *Resolver) ensureQuarantineDir() error {
	if r.quarantineCreated {
		return nil
	}
	if err := os.MkdirAll(r.quarantineDir, 0o755); err != nil {
		return fmt.Errorf("create quarantine dir: %w", err)
	}
	r.quarantineCreated = true
	return nil
}

// sendError sends an error to the errors channel if it's not nil.
func (r *Resolver) sendError(err error) {
	if r.errCh != nil {
		r.errCh <- err
	}
}
