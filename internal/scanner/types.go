package scanner

import (
	"os"
	"time"

	"github.com/cfd-dev/deduplicate-files/internal/types"
)

// entry pairs a discovered path with the stat snapshot captured during
// listing. It becomes a FileRecord only once its fingerprint is computed.
type entry struct {
	path     string
	size     int64
	created  time.Time
	modified time.Time
	kind     types.Kind
}

// newEntry creates an entry from os.FileInfo and path.
func newEntry(path string, info os.FileInfo) *entry {
	return &entry{
		path:     path,
		size:     info.Size(),
		created:  createdTime(info),
		modified: info.ModTime(),
		kind:     types.KindOf(path),
	}
}
