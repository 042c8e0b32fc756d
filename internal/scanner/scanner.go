// Package scanner discovers files under a root and computes their content
// fingerprints using parallel directory traversal and a bounded hashing pool.
//
// # Architecture Overview
//
// A scan runs in two phases:
//
//  1. LISTING (fan-out/fan-in)
//     - One walker goroutine spawned per directory discovered
//     - Concurrency limited by semaphore (walkerSem)
//     - Each walker: acquires semaphore → lists directory → releases semaphore → spawns child walkers
//     - A single collector goroutine drains entryCh into a slice
//     - Unreadable directories are reported and skipped, never fatal
//
//  2. HASHING (fixed worker pool)
//     - Work is submitted only after the full entry list has been gathered,
//       trading some start latency for simpler bookkeeping and uniform
//       progress accounting
//     - N workers consume entries from a buffered channel and compute one
//       fingerprint each (exact digest or perceptual code, by kind)
//     - Results fan in to the coordinating goroutine, which alone owns the
//       per-kind fingerprint maps - no locks on the aggregates
//     - A failed entry (unreadable, undecodable) is excluded and reported;
//       it never aborts sibling workers or the scan
//
// Cancellation is honored only at the boundary between the two phases;
// already-dispatched hashing work runs to completion.
//
// # Synchronization Primitives
//
//	┌─────────────────┬────────────────────────────────────────────────┐
//	│ Primitive       │ Purpose                                        │
//	├─────────────────┼────────────────────────────────────────────────┤
//	│ walkerSem       │ Limits concurrent directory reads (backpressure)│
//	│ walkerWg        │ Tracks active walker goroutines                │
//	│ entryCh         │ Buffered channel for listed entries (fan-in)   │
//	│ workCh/recordCh │ Hashing pool input/output channels             │
//	│ atomic counters │ Lock-free stats updates from any goroutine     │
//	└─────────────────┴────────────────────────────────────────────────┘
package scanner

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/cfd-dev/deduplicate-files/internal/cache"
	"github.com/cfd-dev/deduplicate-files/internal/hasher"
	"github.com/cfd-dev/deduplicate-files/internal/progress"
	"github.com/cfd-dev/deduplicate-files/internal/types"
)

// maxWorkers caps the hashing pool to bound memory and I/O contention
// from opening many large files simultaneously.
const maxWorkers = 8

// DefaultWorkers returns min(maxWorkers, available parallelism), floor 1.
func DefaultWorkers() int {
	n := runtime.NumCPU()
	if n > maxWorkers {
		n = maxWorkers
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Results holds fingerprint-keyed records produced by a scan, one map per kind.
type Results struct {
	Images  types.ClassMap
	Generic types.ClassMap
}

// Scanner discovers files and fingerprints them.
//
// The scanner is designed for single-use: create with New(), call Run() once.
type Scanner struct {
	// Config (immutable, set by New)
	root         string       // Root directory to scan
	workers      int          // Hashing pool size
	showProgress bool         // Whether to display progress bars
	errCh        chan error   // Non-fatal errors (permission denied, etc.)
	fpCache      *cache.Cache // Optional fingerprint cache (nil = disabled)

	// Runtime (initialized in Run)
	walkerWg  sync.WaitGroup  // Tracks in-flight walker goroutines
	walkerSem types.Semaphore // Limits concurrent directory reads
	entryCh   chan *entry     // Fan-in channel: walkers → collector
	stats     *stats          // Atomic counters for progress tracking
}

// New creates a Scanner for the given root directory.
// Pass nil for fpCache to disable fingerprint caching.
func New(root string, workers int, showProgress bool, errCh chan error, fpCache *cache.Cache) *Scanner {
	if workers < 1 {
		workers = 1
	}
	return &Scanner{
		root:         root,
		workers:      workers,
		showProgress: showProgress,
		errCh:        errCh,
		fpCache:      fpCache,
	}
}

// stats tracks scanning progress using atomic counters for lock-free updates.
//
// Individual reads may not see a perfectly consistent view across counters,
// which is acceptable for progress display where exactness isn't required.
type stats struct {
	listedFiles   atomic.Int64 // Regular non-empty files discovered
	listedBytes   atomic.Int64 // Bytes across listed files
	hashedFiles   atomic.Int64 // Fingerprints computed
	cachedFiles   atomic.Int64 // Fingerprints served from cache
	excludedFiles atomic.Int64 // Entries dropped (unreadable, undecodable)
	startTime     time.Time
}

func (s *stats) String() string {
	msg := fmt.Sprintf("Listed %d files (%s), fingerprinted %d",
		s.listedFiles.Load(), humanize.IBytes(uint64(s.listedBytes.Load())),
		s.hashedFiles.Load())
	if cached := s.cachedFiles.Load(); cached > 0 {
		msg += fmt.Sprintf(" (%d cached)", cached)
	}
	if excluded := s.excludedFiles.Load(); excluded > 0 {
		msg += fmt.Sprintf(", excluded %d", excluded)
	}
	return fmt.Sprintf("%s in %.1fs", msg, time.Since(s.startTime).Seconds())
}

// Run executes the scan and returns per-kind fingerprint maps.
//
// Coordination sequence:
//  1. Validate the root (the only hard failure before scanning)
//  2. Listing phase: walker fan-out gathers the full entry list
//  3. Cancellation checkpoint (ctx)
//  4. Hashing phase: bounded worker pool fingerprints every entry,
//     coordinator merges completed records into the per-kind maps
func (s *Scanner) Run(ctx context.Context) (*Results, error) {
	absRoot, err := filepath.Abs(s.root)
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

	s.stats = &stats{startTime: time.Now()}

	entries := s.listEntries(absRoot)

	// Cancellation is honored only between phases: listed entries are
	// cheap to discard, dispatched hashing work is not.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return s.hashEntries(entries), nil
}

// listEntries runs the walker fan-out and returns all listed entries.
func (s *Scanner) listEntries(root string) []*entry {
	s.walkerSem = types.NewSemaphore(s.workers)
	s.entryCh = make(chan *entry, 1000) // Buffer smooths producer/consumer rates

	// Collector goroutine: single consumer aggregates all walker outputs.
	var entries []*entry
	collectorWg := sync.WaitGroup{}

	collectorWg.Add(1)
	go func() {
		for e := range s.entryCh {
			entries = append(entries, e)
		}
		collectorWg.Done()
	}()

	bar := progress.New(s.showProgress, -1)
	bar.Describe(s.stats)

	s.walkDirectory(root)

	// Shutdown sequence: wait for producers, then signal consumer, then wait for consumer
	s.walkerWg.Wait()  // All walkers done
	close(s.entryCh)   // Signal collector: no more items coming
	collectorWg.Wait() // Collector drained channel

	bar.Finish(s.stats)
	return entries
}

// walkDirectory spawns a goroutine to process one directory and recursively spawn children.
//
// Semaphore pattern:
//   - walkerWg.Add(1) BEFORE goroutine spawn (prevents race with Wait)
//   - acquire semaphore at goroutine start (blocks if at concurrency limit)
//   - release semaphore AFTER listing but BEFORE spawning children
func (s *Scanner) walkDirectory(dir string) {
	s.walkerWg.Add(1) // Increment BEFORE spawn to prevent race with Wait()
	go func() {
		defer s.walkerWg.Done()

		// Semaphore limits concurrent directory reads
		s.walkerSem.Acquire()
		defer s.walkerSem.Release()

		entries, subdirs, err := s.listDirectory(dir)
		if err != nil {
			s.sendError(err)
			return
		}

		for _, e := range entries {
			s.stats.listedFiles.Add(1)
			s.stats.listedBytes.Add(e.size)
			s.entryCh <- e // May block briefly if channel buffer full
		}

		// Recursive fan-out: spawn walker for each subdirectory
		for _, sub := range subdirs {
			s.walkDirectory(sub)
		}
	}()
}

// listDirectory reads a single directory, returning entries and subdirectories.
//
// Uses batched ReadDir (1000 entries per batch) to handle large directories
// efficiently. This is the ONLY place where directory I/O occurs - protected
// by walkerSem.
func (s *Scanner) listDirectory(dirPath string) (entries []*entry, subdirs []string, err error) {
	dir, err := os.Open(dirPath)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = dir.Close() }()

	const batchSize = 1000
	for {
		batch, err := dir.ReadDir(batchSize)
		if len(batch) == 0 {
			if err != nil && err != io.EOF {
				return entries, subdirs, err
			}
			break
		}

		for _, dirEntry := range batch {
			e, sub := s.processEntry(dirPath, dirEntry)
			if e != nil {
				entries = append(entries, e)
			}
			if sub != "" {
				subdirs = append(subdirs, sub)
			}
		}
	}

	return entries, subdirs, nil
}

// processEntry processes a single directory entry, returning an entry or
// subdirectory path. Returns (nil, "") for entries that are skipped:
// symlinks, devices, empty files, unstattable files.
func (s *Scanner) processEntry(dirPath string, dirEntry os.DirEntry) (e *entry, subdir string) {
	fullPath := filepath.Join(dirPath, dirEntry.Name())

	if dirEntry.IsDir() {
		return nil, fullPath
	}

	// Skip non-regular files (symlinks, devices, sockets, etc.)
	if !dirEntry.Type().IsRegular() {
		return nil, ""
	}

	// Stat snapshot captured here, without following symlinks, to avoid a
	// second filesystem round trip before hashing.
	info, err := dirEntry.Info()
	if err != nil {
		return nil, "" // Skip files we can't stat (race condition, permissions)
	}

	// Empty files never enter duplicate or classification reasoning
	if info.Size() == 0 {
		return nil, ""
	}

	return newEntry(fullPath, info), ""
}

// hashEntries fingerprints every listed entry through the bounded worker
// pool and merges completed records into per-kind maps.
//
// Each unit of work is independent: no shared mutable state, no ordering
// dependency between files. Results are merged by this goroutine only,
// eliminating the need for locks on the aggregate maps. Worker-pool size
// does not affect the resulting maps.
func (s *Scanner) hashEntries(entries []*entry) *Results {
	bar := progress.New(s.showProgress, int64(len(entries)))
	bar.Describe(s.stats)

	workCh := make(chan *entry, 1000)
	recordCh := make(chan *types.FileRecord, 1000)

	var workerWg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		workerWg.Add(1)
		go func() {
			defer workerWg.Done()
			for e := range workCh {
				s.hashEntry(e, recordCh)
				bar.Add(1)
			}
		}()
	}

	go func() {
		for _, e := range entries {
			workCh <- e
		}
		close(workCh)
	}()

	go func() {
		workerWg.Wait()
		close(recordCh)
	}()

	results := &Results{
		Images:  make(types.ClassMap),
		Generic: make(types.ClassMap),
	}
	for record := range recordCh {
		m := results.Generic
		if record.Kind == types.Image {
			m = results.Images
		}
		m[record.Fingerprint] = append(m[record.Fingerprint], record)
		bar.Describe(s.stats)
	}

	bar.Finish(s.stats)
	return results
}

// hashEntry computes one entry's fingerprint and sends the completed record.
// Failures degrade to exclusion: the entry is counted, reported, and dropped.
func (s *Scanner) hashEntry(e *entry, recordCh chan<- *types.FileRecord) {
	fingerprint := s.fpCache.Lookup(e.path, e.size, e.modified, e.kind)
	if fingerprint != "" {
		s.stats.cachedFiles.Add(1)
	} else {
		var err error
		fingerprint, err = hasher.Fingerprint(e.path, e.kind)
		if err != nil {
			s.stats.excludedFiles.Add(1)
			s.sendError(fmt.Errorf("%s: %w", e.path, err))
			return
		}
		s.fpCache.Store(e.path, e.size, e.modified, e.kind, fingerprint)
	}
	s.stats.hashedFiles.Add(1)

	recordCh <- &types.FileRecord{
		Path:         e.path,
		Size:         e.size,
		CreatedTime:  e.created,
		ModifiedTime: e.modified,
		Fingerprint:  fingerprint,
		Kind:         e.kind,
	}
}

// sendError sends an error to the errors channel if it's not nil.
func (s *Scanner) sendError(err error) {
	if s.errCh != nil {
		s.errCh <- err
	}
}
