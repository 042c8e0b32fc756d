package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/cfd-dev/deduplicate-files/internal/cache"
	"github.com/cfd-dev/deduplicate-files/internal/grouper"
	"github.com/cfd-dev/deduplicate-files/internal/organizer"
	"github.com/cfd-dev/deduplicate-files/internal/resolver"
	"github.com/cfd-dev/deduplicate-files/internal/scanner"
	"github.com/cfd-dev/deduplicate-files/internal/types"
)

// dedupeOptions holds CLI flags for the dedupe command.
type dedupeOptions struct {
	strategy      string
	workers       int
	noProgress    bool
	logFile       string
	cacheFile     string
	organizeAfter bool
	organizeMode  string
}

// newDedupeCmd creates the dedupe subcommand.
func newDedupeCmd() *cobra.Command {
	opts := &dedupeOptions{
		strategy:     "oldest",
		workers:      scanner.DefaultWorkers(),
		organizeMode: "date",
	}

	cmd := &cobra.Command{
		Use:   "dedupe [directory]",
		Short: "Find duplicate files and quarantine redundant copies",
		Long: `Scans a directory tree for duplicates - by exact content digest for
ordinary files and by perceptual fingerprint for images - and moves every
redundant copy into a run-scoped duplicates_<timestamp> folder in the
current working directory. One file per duplicate class survives, chosen
by --strategy. Nothing is ever deleted or overwritten.

Strategies: oldest, newest, largest, smallest, shortest_path, longest_path.
An unrecognized strategy falls back to oldest.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runDedupe(cmd.Context(), dir, opts)
		},
	}

	// Bind flags to options
	cmd.Flags().StringVarP(&opts.strategy, "strategy", "s", opts.strategy, "Which duplicate to keep per class")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", opts.workers, "Number of parallel hashing workers")
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "Disable progress output")
	cmd.Flags().StringVar(&opts.logFile, "log-file", "", "Write a plain-text audit log of moved files")
	cmd.Flags().StringVar(&opts.cacheFile, "cache-file", "", "Path to fingerprint cache file (enables caching)")
	cmd.Flags().BoolVar(&opts.organizeAfter, "organize-after", false, "Classify images into date folders after deduplication")
	cmd.Flags().StringVar(&opts.organizeMode, "organize-mode", opts.organizeMode, "Classification mode for --organize-after: date or quarter")

	return cmd
}

// drainErrors consumes errors from a channel and writes them to stderr.
// Clears progress bar line before printing to avoid visual collision.
func drainErrors(errs <-chan error) {
	for err := range errs {
		fmt.Fprintf(os.Stderr, "\r\033[Kerror: %v\n", err)
	}
}

// reportOutcome translates a phase error for the user.
// Cancellation is a distinguishable outcome, not a failure.
func reportOutcome(err error) error {
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "cancelled")
		return nil
	}
	return err
}

// runDedupe executes the dedupe pipeline: scan → group → resolve [→ organize].
func runDedupe(ctx context.Context, dir string, opts *dedupeOptions) error {
	showProgress := !opts.noProgress

	// Create shared error channel
	errs := make(chan error, 100)
	go drainErrors(errs)
	defer close(errs)

	// Open fingerprint cache (no-op when --cache-file is unset)
	fpCache, err := cache.Open(opts.cacheFile)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer func() { _ = fpCache.Close() }()

	// Phase 1: Scan filesystem and fingerprint everything
	results, err := scanner.New(dir, opts.workers, showProgress, errs, fpCache).Run(ctx)
	if err != nil {
		return reportOutcome(err)
	}

	// Phase 2: Group into duplicate classes
	imageDups := grouper.Duplicates(results.Images)
	genericDups := grouper.Duplicates(results.Generic)
	dupFiles, dupClasses := grouper.Totals(imageDups, genericDups)

	if dupFiles == 0 {
		fmt.Println("No duplicate files found")
	} else {
		fmt.Printf("Found %d duplicate files in %d classes\n", dupFiles, dupClasses)

		// Cancellation checkpoint before any mutation
		if err := ctx.Err(); err != nil {
			return reportOutcome(err)
		}

		// Phase 3: Quarantine redundant copies (policy is kind-agnostic)
		result := resolver.New(
			types.Merge(imageDups, genericDups),
			resolver.ParseStrategy(opts.strategy),
			"", showProgress, errs,
		).Run()

		fmt.Printf("Moved %d files (%s) to %s\n",
			result.MovedCount, humanize.IBytes(uint64(result.MovedBytes)), result.QuarantineDir)

		if opts.logFile != "" && result.MovedCount > 0 {
			if err := resolver.WriteAuditLog(opts.logFile, dir, result); err != nil {
				return fmt.Errorf("write audit log: %w", err)
			}
		}
	}

	if !opts.organizeAfter {
		return nil
	}

	// Cancellation checkpoint before classification
	if err := ctx.Err(); err != nil {
		return reportOutcome(err)
	}

	tally, err := organizer.New(dir, organizer.ParseMode(opts.organizeMode), showProgress, errs).Run()
	if err != nil {
		return reportOutcome(err)
	}
	printTally(tally)
	return nil
}

// printTally prints a classification summary.
func printTally(tally *organizer.Tally) {
	fmt.Printf("Classified %d of %d images, skipped %d\n",
		tally.OrganizedImages, tally.TotalImages, tally.SkippedImages)
}
