// Package cache provides file-based caching of content fingerprints.
package cache

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/cfd-dev/deduplicate-files/internal/types"
)

const (
	bucketName = "fingerprints"
	// Fingerprint lengths in hex characters, per kind.
	exactHexLen      = 32
	perceptualHexLen = 14
)

// Cache provides persistent caching of fingerprints using BoltDB,
// keyed by (path, size, mtime, kind) so any file change is a miss.
// Implements self-cleaning: each run creates a new database, only used
// entries survive.
type Cache struct {
	readDB  *bolt.DB // Existing cache (read-only)
	writeDB *bolt.DB // New cache (write) - BoltDB locks this file
	path    string   // Final path (for atomic swap)
	enabled bool
}

// Open opens an existing cache for reading and creates a new cache for
// writing. BoltDB's built-in file locking on the .new file prevents
// concurrent instances. Returns a disabled cache if path is empty.
func Open(path string) (*Cache, error) {
	if path == "" {
		return &Cache{enabled: false}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	c := &Cache{path: path, enabled: true}
	var err error

	// Open existing cache for reading (if exists)
	if _, statErr := os.Stat(path); statErr == nil {
		c.readDB, err = bolt.Open(path, 0o600, &bolt.Options{
			ReadOnly: true,
			Timeout:  1 * time.Second,
		})
		if err != nil {
			// Can't open existing - continue without read cache
			c.readDB = nil
		}
	}

	// Create new cache for writing - BoltDB locks this file
	newPath := path + ".new"
	c.writeDB, err = bolt.Open(newPath, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("create new cache (locked by another instance?): %w", err)
	}

	if err := c.writeDB.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	}); err != nil {
		_ = c.Close()
		return nil, err
	}

	return c, nil
}

// Close closes both databases and atomically replaces old with new.
// Only replaces if the write database closed successfully to avoid data loss.
func (c *Cache) Close() error {
	var errs []error
	if c.readDB != nil {
		if err := c.readDB.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.writeDB != nil {
		if err := c.writeDB.Close(); err != nil {
			errs = append(errs, err)
		} else {
			// Atomic replace: rename new → old (only if close succeeded)
			if err := os.Rename(c.path+".new", c.path); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

const keyVersion byte = 1 // Increment when key format changes

// makeKey builds a deterministic byte key for BoltDB lookup.
// Key = ver(1) + path + NUL + size(8) + mtime(8) + kind(1)
func makeKey(path string, size int64, mtime time.Time, kind types.Kind) []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(keyVersion)
	buf.WriteString(path)
	buf.WriteByte(0) // NUL separator
	_ = binary.Write(buf, binary.BigEndian, size)
	_ = binary.Write(buf, binary.BigEndian, mtime.UnixNano())
	buf.WriteByte(byte(kind))
	return buf.Bytes()
}

// fingerprintLen returns the expected hex length for a kind's fingerprint.
func fingerprintLen(kind types.Kind) int {
	if kind == types.Image {
		return perceptualHexLen
	}
	return exactHexLen
}

// Lookup retrieves a cached fingerprint for a file.
// Any change to path, size or mtime produces a cache miss.
// On HIT the entry is copied to the write database (self-cleaning).
// Returns "" when not found.
func (c *Cache) Lookup(path string, size int64, mtime time.Time, kind types.Kind) string {
	if c == nil || !c.enabled || c.readDB == nil {
		return ""
	}

	key := makeKey(path, size, mtime, kind)
	var fingerprint string

	_ = c.readDB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}
		data := b.Get(key)
		if len(data) == fingerprintLen(kind) {
			fingerprint = string(data)
		}
		return nil
	})

	if fingerprint == "" {
		return ""
	}

	// Self-cleaning: copy valid entry to new database
	c.Store(path, size, mtime, kind, fingerprint)

	return fingerprint
}

// Store saves a fingerprint to the new database.
func (c *Cache) Store(path string, size int64, mtime time.Time, kind types.Kind, fingerprint string) {
	if c == nil || !c.enabled || c.writeDB == nil || len(fingerprint) != fingerprintLen(kind) {
		return
	}

	_ = c.writeDB.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		return b.Put(makeKey(path, size, mtime, kind), []byte(fingerprint))
	})
}
