// Package types provides shared types used across the dedupfiles codebase.
package types

import (
	"path/filepath"
	"strings"
	"time"
)

// Kind classifies a scanned file by how its fingerprint is computed.
type Kind int

const (
	// Generic files are fingerprinted with an exact content digest.
	Generic Kind = iota
	// Image files are fingerprinted with a perceptual hash.
	Image
)

func (k Kind) String() string {
	if k == Image {
		return "image"
	}
	return "generic"
}

// imageExtensions is the fixed set of extensions treated as images.
// Kind detection looks at the filename only, never at file content.
var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".bmp":  {},
	".tiff": {},
}

// KindOf decides a file's kind solely by its extension, case-insensitively.
func KindOf(path string) Kind {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := imageExtensions[ext]; ok {
		return Image
	}
	return Generic
}

// FileRecord holds metadata and the content fingerprint for one scanned file.
//
// A FileRecord is never constructed for an empty file or for a file whose
// stat or fingerprint could not be computed - such files are excluded from
// all duplicate and classification reasoning.
//
// Path is the absolute location at scan time, not a stable identity: the
// pipeline itself may move the file later.
type FileRecord struct {
	Path         string
	Size         int64
	CreatedTime  time.Time // filesystem-dependent; treated as an opaque sortable value
	ModifiedTime time.Time
	Fingerprint  string // lowercase hex: md5 digest or perceptual code
	Kind         Kind
}

// ClassMap maps a fingerprint to the records sharing it.
// Keys are scoped to one Kind - image and generic fingerprints never mix
// within a single map.
type ClassMap map[string][]*FileRecord

// Merge combines class maps into one. Fingerprint spaces of different kinds
// are disjoint (different algorithms, different code lengths), so merging is
// collision-free and the retention policy can treat all classes uniformly.
func Merge(maps ...ClassMap) ClassMap {
	merged := make(ClassMap)
	for _, m := range maps {
		for fp, records := range m {
			merged[fp] = append(merged[fp], records...)
		}
	}
	return merged
}

// Semaphore implements a counting semaphore using a buffered channel.
// It limits concurrent access to a resource by blocking when the limit is reached.
type Semaphore chan struct{}

// NewSemaphore creates a semaphore that allows up to n concurrent acquisitions.
func NewSemaphore(n int) Semaphore { return make(chan struct{}, n) }

// Acquire blocks until a slot is available, then claims it.
func (s Semaphore) Acquire() { s <- struct{}{} }

// Release frees a slot, unblocking one waiting Acquire call.
func (s Semaphore) Release() { <-s }
