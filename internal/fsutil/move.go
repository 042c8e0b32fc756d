// Package fsutil provides filesystem move helpers shared by the
// quarantine and classification stages.
package fsutil

import (
	"fmt"
	"io"
	"os"
)

// Move relocates a file from source to target.
//
// An atomic rename is attempted first. When the filesystem refuses it
// (typically a cross-device move), Move falls back to copy-then-delete:
// the content is copied to a temporary file next to the target and renamed
// into place, so a half-written target is never left behind, and the source
// is removed only after the target exists.
//
// Move never overwrites: callers must check the target beforehand. The
// destination-existence check and the move itself are expected to run on a
// single coordinating goroutine, so no two moves can race on one target.
func Move(source, target string) error {
	err := os.Rename(source, target)
	if err == nil {
		return nil
	}

	if copyErr := copyFile(source, target); copyErr != nil {
		return fmt.Errorf("rename failed (%v), copy fallback: %w", err, copyErr)
	}
	if rmErr := os.Remove(source); rmErr != nil {
		return fmt.Errorf("copied but could not remove source: %w", rmErr)
	}
	return nil
}

// copyFile copies source to target via a temp file renamed into place.
func copyFile(source, target string) error {
	in, err := os.Open(source)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	tmp := target + ".dedupfiles.tmp"
	out, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp) // cleanup on failure
		return err
	}
	return nil
}
