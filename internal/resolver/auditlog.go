package resolver

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
)

// WriteAuditLog writes a plain-text record of a retention run: run
// timestamp, scanned directory, moved count and bytes, quarantine folder,
// and every moved source path in the order the moves happened.
func WriteAuditLog(path, scannedDir string, result *Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	fmt.Fprintf(f, "Deduplication log - %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(f, "Scanned directory: %s\n", scannedDir)
	fmt.Fprintf(f, "Moved files: %d\n", result.MovedCount)
	fmt.Fprintf(f, "Moved size: %s\n", humanize.IBytes(uint64(result.MovedBytes)))
	fmt.Fprintf(f, "Quarantine directory: %s\n", result.QuarantineDir)
	fmt.Fprintf(f, "\nMoved files:\n")
	for _, record := range result.MovedRecords {
		fmt.Fprintln(f, record.Path)
	}

	return f.Close()
}
