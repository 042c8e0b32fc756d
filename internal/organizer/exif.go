package organizer

import (
	"os"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// dateLayout is the ISO date form used for bucket keys.
const dateLayout = "2006-01-02"

// captureDate reads the embedded capture date (DateTimeOriginal) from an
// image file and returns it as YYYY-MM-DD. Returns "" when the tag is
// absent, malformed, or the metadata is unreadable - the caller then falls
// back to the filesystem modification date.
func captureDate(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer func() { _ = f.Close() }()

	meta, err := exif.Decode(f)
	if err != nil {
		return ""
	}
	tag, err := meta.Get(exif.DateTimeOriginal)
	if err != nil {
		return ""
	}
	value, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return normalizeExifDate(value)
}

// normalizeExifDate converts the EXIF form "2006:01:02 15:04:05" to
// "2006-01-02", returning "" for values that don't parse as a date.
func normalizeExifDate(value string) string {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return ""
	}
	date := strings.ReplaceAll(fields[0], ":", "-")
	if _, err := time.Parse(dateLayout, date); err != nil {
		return ""
	}
	return date
}
