// Package grouper partitions fingerprinted files into duplicate classes.
//
// # Overview
//
// The grouper is the pure filtering stage between scanning and retention.
// It consumes the per-kind fingerprint maps produced by the scanner and
// keeps only true duplicate classes - fingerprints shared by two or more
// files. Singleton classes are discarded here, before any mutation occurs.
//
// No side effects, no I/O: safe to call repeatedly over the same input.
package grouper

import "github.com/cfd-dev/deduplicate-files/internal/types"

// Duplicates retains only the classes with at least two members.
// The input map is not modified.
func Duplicates(classes types.ClassMap) types.ClassMap {
	duplicates := make(types.ClassMap)
	for fingerprint, records := range classes {
		if len(records) >= 2 {
			duplicates[fingerprint] = records
		}
	}
	return duplicates
}

// Totals returns the number of duplicate files and duplicate classes across
// the given class maps. Used for reporting only.
func Totals(maps ...types.ClassMap) (files, classes int) {
	for _, m := range maps {
		for _, records := range m {
			files += len(records)
			classes++
		}
	}
	return files, classes
}
