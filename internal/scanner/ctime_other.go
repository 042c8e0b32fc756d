//go:build !linux

package scanner

import (
	"os"
	"time"
)

// createdTime falls back to the modification time on platforms without a
// portable inode change time.
func createdTime(info os.FileInfo) time.Time {
	return info.ModTime()
}
