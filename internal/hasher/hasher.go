// Package hasher computes content fingerprints for scanned files.
//
// Two algorithms are dispatched by file kind:
//
//   - Generic files get an exact streamed MD5 digest. MD5 is a
//     duplicate-detection heuristic here, not a security primitive -
//     its collision resistance is more than enough to group identical
//     content.
//   - Images get a DCT-based perceptual fingerprint (see phash.go) so
//     that re-encoded or slightly noisy copies still group together.
//
// Both return lowercase hexadecimal strings. The two fingerprint spaces
// never mix: digests are 32 hex chars, perceptual codes are 14.
package hasher

import (
	"crypto/md5" //nolint:gosec // content grouping, not authentication
	"encoding/hex"
	"io"
	"os"

	"github.com/cfd-dev/deduplicate-files/internal/types"
)

// blockSize is the read buffer size for exact digests.
const blockSize = 8 * 1024

// Fingerprint computes the fingerprint for path according to kind.
// Any I/O or decode failure is returned as an error; callers exclude
// such files from all further reasoning.
func Fingerprint(path string, kind types.Kind) (string, error) {
	if kind == types.Image {
		return Perceptual(path)
	}
	return Exact(path)
}

// Exact computes the streamed MD5 digest of a file's full content,
// reading in blockSize chunks to bound memory on large files.
func Exact(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	digest := md5.New() //nolint:gosec
	buf := make([]byte, blockSize)
	if _, err := io.CopyBuffer(digest, f, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(digest.Sum(nil)), nil
}
