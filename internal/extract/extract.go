// Package extract resolves per-file metadata: a best-effort capture
// timestamp, optional GPS coordinates, a content hash, and the media-type
// flag. Extraction is a pure function of one file path plus the pattern
// table; failures never carry past the failing file.
package extract

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"

	"github.com/runnerr0/snapsort/internal/media"
)

const exifTimeLayout = "2006:01:02 15:04:05"

// Extractor resolves metadata for individual media files.
type Extractor struct {
	patterns  []Pattern
	photoExts map[string]bool
	videoExts map[string]bool
	videoTime videoTimeFunc
}

// New builds an Extractor from a compiled pattern table and extension sets.
func New(patterns []Pattern, photoExts, videoExts []string) *Extractor {
	e := &Extractor{
		patterns:  patterns,
		photoExts: make(map[string]bool, len(photoExts)),
		videoExts: make(map[string]bool, len(videoExts)),
		videoTime: ffprobeCreationTime,
	}
	for _, ext := range photoExts {
		e.photoExts[strings.ToLower(ext)] = true
	}
	for _, ext := range videoExts {
		e.videoExts[strings.ToLower(ext)] = true
	}
	return e
}

// Supported reports whether the file extension names a media type we handle.
// Detection is by extension only, not content sniffing.
func (e *Extractor) Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return e.photoExts[ext] || e.videoExts[ext]
}

// IsVideo reports whether the file extension names a video type.
func (e *Extractor) IsVideo(path string) bool {
	return e.videoExts[strings.ToLower(filepath.Ext(path))]
}

// Extract builds the media record for one file. The timestamp is resolved
// embedded metadata first (EXIF for photos, the container creation_time for
// videos), then the filename pattern table, then the file's modification
// time, which always succeeds. Missing or malformed GPS data yields a nil
// coordinate, not an error. Only an unreadable file fails extraction.
func (e *Extractor) Extract(path string) (*media.Record, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	hash, err := hashFile(path)
	if err != nil {
		return nil, fmt.Errorf("hash %s: %w", path, err)
	}

	rec := &media.Record{
		Path:        path,
		ContentHash: hash,
		SizeBytes:   info.Size(),
		IsVideo:     e.IsVideo(path),
	}

	var x *exif.Exif
	var embedded time.Time
	var hasEmbedded bool
	if rec.IsVideo {
		embedded, hasEmbedded = e.videoTime(path)
	} else {
		x = decodeExif(path)
		embedded, hasEmbedded = exifTimestamp(x)
	}

	if hasEmbedded {
		rec.Timestamp = embedded
	} else if t, ok := MatchTimestamp(e.patterns, stem(path)); ok {
		rec.Timestamp = t
	} else {
		rec.Timestamp = info.ModTime()
	}

	rec.GPS = exifGPS(x)

	return rec, nil
}

// decodeExif opens and decodes the EXIF block. Any failure (no EXIF,
// unsupported container, truncated file) simply means no embedded metadata.
func decodeExif(path string) *exif.Exif {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return nil
	}
	return x
}

// exifTimestamp reads the capture time, preferring the original capture
// field over digitized and modified times.
func exifTimestamp(x *exif.Exif) (time.Time, bool) {
	if x == nil {
		return time.Time{}, false
	}

	fields := []exif.FieldName{
		exif.DateTimeOriginal,
		exif.DateTimeDigitized,
		exif.DateTime,
	}
	for _, field := range fields {
		tag, err := x.Get(field)
		if err != nil {
			continue
		}
		val, err := tag.StringVal()
		if err != nil {
			continue
		}
		t, err := time.ParseInLocation(exifTimeLayout, strings.TrimSpace(val), time.Local)
		if err != nil {
			continue
		}
		return t, true
	}
	return time.Time{}, false
}

// exifGPS reads the satellite position. goexif converts the stored
// degrees/minutes/seconds rationals and hemisphere references to signed
// decimal degrees; coordinates outside the legal ranges are discarded.
func exifGPS(x *exif.Exif) *media.LatLon {
	if x == nil {
		return nil
	}

	lat, lon, err := x.LatLong()
	if err != nil {
		return nil
	}

	c := media.LatLon{Lat: lat, Lon: lon}
	if !c.Valid() {
		return nil
	}
	// A zero-zero pair is a stripped or never-set GPS block, not a reading
	// from the Gulf of Guinea.
	if lat == 0 && lon == 0 {
		return nil
	}
	return &c
}

// hashFile computes the SHA-256 digest of the full file contents, streaming
// so large videos are never held in one buffer.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// stem returns the base name without its extension, the part the filename
// patterns match against.
func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
