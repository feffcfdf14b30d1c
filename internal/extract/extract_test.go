package extract

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/snapsort/internal/extract/exiftest"
)

// newTestExtractor builds an Extractor with the default patterns and the
// usual extension sets. Video probing is stubbed out so tests never depend
// on an ffprobe binary.
func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	e := New(defaultTable(t), []string{".jpg", ".jpeg", ".png"}, []string{".mov", ".mp4"})
	e.videoTime = func(string) (time.Time, bool) { return time.Time{}, false }
	return e
}

// writeFile creates a file with the given contents and returns its path.
func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestSupported(t *testing.T) {
	e := newTestExtractor(t)

	assert.True(t, e.Supported("/x/photo.jpg"))
	assert.True(t, e.Supported("/x/PHOTO.JPG"), "extension match is case-insensitive")
	assert.True(t, e.Supported("/x/clip.mov"))
	assert.False(t, e.Supported("/x/notes.txt"))
	assert.False(t, e.Supported("/x/archive"))
}

func TestIsVideo(t *testing.T) {
	e := newTestExtractor(t)

	assert.True(t, e.IsVideo("/x/clip.MP4"))
	assert.False(t, e.IsVideo("/x/photo.jpg"))
}

func TestExtract_FilenameTimestamp(t *testing.T) {
	e := newTestExtractor(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "IMG_20250315_143025.jpg", []byte("not a real jpeg"))

	rec, err := e.Extract(path)
	require.NoError(t, err)

	assert.Equal(t, path, rec.Path)
	assert.Equal(t, time.Date(2025, 3, 15, 14, 30, 25, 0, time.Local), rec.Timestamp)
	assert.Nil(t, rec.GPS, "no EXIF means no coordinates")
	assert.False(t, rec.IsVideo)
	assert.Equal(t, int64(15), rec.SizeBytes)
}

func TestExtract_ModTimeFallback(t *testing.T) {
	e := newTestExtractor(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "DSC01234.jpg", []byte("x"))

	mtime := time.Date(2023, 8, 1, 9, 15, 0, 0, time.Local)
	require.NoError(t, os.Chtimes(path, mtime, mtime))

	rec, err := e.Extract(path)
	require.NoError(t, err)
	assert.True(t, rec.Timestamp.Equal(mtime), "timestamp should fall back to mtime")
}

func TestExtract_VideoCreationTime(t *testing.T) {
	e := newTestExtractor(t)
	embedded := time.Date(2025, 6, 1, 18, 45, 10, 0, time.UTC)
	e.videoTime = func(string) (time.Time, bool) { return embedded, true }

	dir := t.TempDir()
	// The filename carries a different timestamp; embedded metadata wins.
	path := writeFile(t, dir, "20240619_143025.mp4", []byte("mp4 bytes"))

	rec, err := e.Extract(path)
	require.NoError(t, err)
	assert.True(t, rec.IsVideo)
	assert.True(t, rec.Timestamp.Equal(embedded))
	assert.Nil(t, rec.GPS, "videos never carry GPS")
}

func TestExtract_VideoFilenameFallback(t *testing.T) {
	e := newTestExtractor(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "20240619_143025.mp4", []byte("mp4 bytes"))

	rec, err := e.Extract(path)
	require.NoError(t, err)
	assert.True(t, rec.IsVideo)
	assert.Equal(t, 2024, rec.Timestamp.Year())
	assert.Nil(t, rec.GPS)
}

func TestParseCreationTime(t *testing.T) {
	tests := []struct {
		name string
		json string
		want time.Time
		ok   bool
	}{
		{
			name: "iso fractional",
			json: `{"format":{"tags":{"creation_time":"2025-06-01T18:45:10.000000Z"}}}`,
			want: time.Date(2025, 6, 1, 18, 45, 10, 0, time.UTC),
			ok:   true,
		},
		{
			name: "iso plain",
			json: `{"format":{"tags":{"creation_time":"2025-06-01T18:45:10Z"}}}`,
			want: time.Date(2025, 6, 1, 18, 45, 10, 0, time.UTC),
			ok:   true,
		},
		{
			name: "space separated",
			json: `{"format":{"tags":{"creation_time":"2025-06-01 18:45:10"}}}`,
			want: time.Date(2025, 6, 1, 18, 45, 10, 0, time.UTC),
			ok:   true,
		},
		{name: "no tags", json: `{"format":{}}`},
		{name: "unparseable value", json: `{"format":{"tags":{"creation_time":"yesterday"}}}`},
		{name: "not json", json: `ffprobe exploded`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseCreationTime([]byte(tt.json))
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, got.Equal(tt.want), "got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtract_ContentHash(t *testing.T) {
	e := newTestExtractor(t)
	dir := t.TempDir()

	data := []byte("identical payload")
	a := writeFile(t, dir, "a.jpg", data)
	b := writeFile(t, dir, "b.jpg", data)
	c := writeFile(t, dir, "c.jpg", []byte("different payload"))

	recA, err := e.Extract(a)
	require.NoError(t, err)
	recB, err := e.Extract(b)
	require.NoError(t, err)
	recC, err := e.Extract(c)
	require.NoError(t, err)

	sum := sha256.Sum256(data)
	assert.Equal(t, hex.EncodeToString(sum[:]), recA.ContentHash)
	assert.Equal(t, recA.ContentHash, recB.ContentHash, "same bytes, same hash")
	assert.NotEqual(t, recA.ContentHash, recC.ContentHash)
}

// writeExifPhoto writes an EXIF-bearing fixture and returns its path.
func writeExifPhoto(t *testing.T, dir, name string, p exiftest.Photo) string {
	t.Helper()
	return writeFile(t, dir, name, exiftest.Encode(p))
}

func TestExtract_ExifTimestampPreference(t *testing.T) {
	e := newTestExtractor(t)
	dir := t.TempDir()

	tests := []struct {
		name  string
		photo exiftest.Photo
		want  time.Time
	}{
		{
			name: "original wins over digitized and modified",
			photo: exiftest.Photo{
				DateTime:          "2025:03:17 09:00:00",
				DateTimeOriginal:  "2025:03:15 14:30:25",
				DateTimeDigitized: "2025:03:16 10:00:00",
			},
			want: time.Date(2025, 3, 15, 14, 30, 25, 0, time.Local),
		},
		{
			name: "digitized wins over modified",
			photo: exiftest.Photo{
				DateTime:          "2025:03:17 09:00:00",
				DateTimeDigitized: "2025:03:16 10:00:00",
			},
			want: time.Date(2025, 3, 16, 10, 0, 0, 0, time.Local),
		},
		{
			name:  "modified as last resort",
			photo: exiftest.Photo{DateTime: "2025:03:17 09:00:00"},
			want:  time.Date(2025, 3, 17, 9, 0, 0, 0, time.Local),
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeExifPhoto(t, dir, fmt.Sprintf("DSC%04d.jpg", i), tt.photo)
			rec, err := e.Extract(path)
			require.NoError(t, err)
			assert.True(t, rec.Timestamp.Equal(tt.want), "got %v, want %v", rec.Timestamp, tt.want)
		})
	}
}

func TestExtract_ExifBeatsFilename(t *testing.T) {
	e := newTestExtractor(t)
	dir := t.TempDir()
	path := writeExifPhoto(t, dir, "IMG_20200101_000000.jpg", exiftest.Photo{
		DateTimeOriginal: "2025:03:15 14:30:25",
	})

	rec, err := e.Extract(path)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 15, 14, 30, 25, 0, time.Local), rec.Timestamp)
}

func TestExtract_ExifGPS(t *testing.T) {
	e := newTestExtractor(t)
	dir := t.TempDir()

	path := writeExifPhoto(t, dir, "berlin.jpg", exiftest.Photo{
		DateTimeOriginal: "2025:03:15 14:30:25",
		HasGPS:           true,
		Lat:              52.52,
		Lon:              13.405,
	})

	rec, err := e.Extract(path)
	require.NoError(t, err)
	require.NotNil(t, rec.GPS)
	assert.InDelta(t, 52.52, rec.GPS.Lat, 1e-4)
	assert.InDelta(t, 13.405, rec.GPS.Lon, 1e-4)
}

func TestExtract_ExifGPSSouthernHemisphere(t *testing.T) {
	e := newTestExtractor(t)
	dir := t.TempDir()

	path := writeExifPhoto(t, dir, "sydney.jpg", exiftest.Photo{
		DateTimeOriginal: "2025:03:15 14:30:25",
		HasGPS:           true,
		Lat:              -33.8688,
		Lon:              151.2093,
	})

	rec, err := e.Extract(path)
	require.NoError(t, err)
	require.NotNil(t, rec.GPS)
	assert.InDelta(t, -33.8688, rec.GPS.Lat, 1e-4)
	assert.InDelta(t, 151.2093, rec.GPS.Lon, 1e-4)
}

func TestExtract_ZeroZeroGPSDiscarded(t *testing.T) {
	e := newTestExtractor(t)
	dir := t.TempDir()

	path := writeExifPhoto(t, dir, "stripped.jpg", exiftest.Photo{
		DateTimeOriginal: "2025:03:15 14:30:25",
		HasGPS:           true,
		Lat:              0,
		Lon:              0,
	})

	rec, err := e.Extract(path)
	require.NoError(t, err)
	assert.Nil(t, rec.GPS, "a zero-zero pair is a stripped GPS block")
}

func TestExtract_MissingFile(t *testing.T) {
	e := newTestExtractor(t)

	_, err := e.Extract(filepath.Join(t.TempDir(), "gone.jpg"))
	require.Error(t, err)
}

func TestStem(t *testing.T) {
	assert.Equal(t, "IMG_1234", stem("/photos/IMG_1234.jpg"))
	assert.Equal(t, "clip", stem("clip.mov"))
	assert.Equal(t, "noext", stem("noext"))
}
