//go:build linux

package scanner

import (
	"os"
	"syscall"
	"time"
)

// createdTime returns the inode change time, the closest sortable analogue
// to a creation time the platform offers. It is treated as an opaque
// ordering value, not an absolute guarantee.
func createdTime(info os.FileInfo) time.Time {
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		return time.Unix(stat.Ctim.Sec, stat.Ctim.Nsec)
	}
	return info.ModTime()
}
