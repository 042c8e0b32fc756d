package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/cfd-dev/deduplicate-files/internal/organizer"
)

// organizeOptions holds CLI flags for the organize command.
type organizeOptions struct {
	mode       string
	noProgress bool
}

// newOrganizeCmd creates the organize subcommand.
func newOrganizeCmd() *cobra.Command {
	opts := &organizeOptions{mode: "date"}

	cmd := &cobra.Command{
		Use:   "organize [directory]",
		Short: "Classify images into date- or quarter-named folders",
		Long: `Moves every image under a directory into a folder named after its
capture date (from EXIF metadata, falling back to the file's modification
date). With --mode quarter, folders are named <year>-Q<quarter> instead of
the ISO date. Images whose destination already holds a same-named file are
skipped, never overwritten.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runOrganize(cmd.Context(), dir, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.mode, "mode", "m", opts.mode, "Classification mode: date or quarter")
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "Disable progress output")

	return cmd
}

// runOrganize executes the classification pass.
func runOrganize(ctx context.Context, dir string, opts *organizeOptions) error {
	errs := make(chan error, 100)
	go drainErrors(errs)
	defer close(errs)

	if err := ctx.Err(); err != nil {
		return reportOutcome(err)
	}

	tally, err := organizer.New(dir, organizer.ParseMode(opts.mode), !opts.noProgress, errs).Run()
	if err != nil {
		return reportOutcome(err)
	}
	printTally(tally)
	return nil
}
