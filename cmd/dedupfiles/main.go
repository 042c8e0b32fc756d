package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Cancellation is cooperative: the pipeline checks the context only at
	// phase boundaries, so a first Ctrl-C lets in-flight work drain.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := &cobra.Command{
		Use:     "dedupfiles",
		Short:   "Find duplicate files and organize images",
		Version: version + " (" + commit + ")",
	}

	root.AddCommand(newDedupeCmd())
	root.AddCommand(newOrganizeCmd())

	if err := root.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}
