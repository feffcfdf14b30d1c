package snapshot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/snapsort/internal/media"
)

// sampleDoc builds a small complete document for the given identity.
func sampleDoc(identity string) *Document {
	return &Document{
		Meta: Meta{SourceIdentity: identity},
		Records: []*media.Record{
			{
				Path:        "/photos/IMG_001.jpg",
				Timestamp:   time.Date(2025, 3, 15, 14, 30, 25, 0, time.UTC),
				GPS:         &media.LatLon{Lat: 52.52, Lon: 13.405},
				PlaceName:   "Berlin",
				ContentHash: "abc123",
				SizeBytes:   1024,
			},
			{
				Path:        "/photos/clip.mp4",
				Timestamp:   time.Date(2025, 3, 15, 15, 0, 0, 0, time.UTC),
				ContentHash: "def456",
				IsVideo:     true,
				IsDuplicate: true,
			},
		},
		Locations:  map[string]string{"52.520,13.405": "Berlin"},
		Duplicates: []string{"def456"},
	}
}

func TestIdentity_Stable(t *testing.T) {
	dir := t.TempDir()

	a, err := Identity(dir)
	require.NoError(t, err)
	b, err := Identity(dir + string(os.PathSeparator))
	require.NoError(t, err)
	assert.Equal(t, a, b, "trailing separator must not change identity")
}

func TestIdentity_ResolvesSymlinks(t *testing.T) {
	dir := t.TempDir()
	link := filepath.Join(t.TempDir(), "link")
	require.NoError(t, os.Symlink(dir, link))

	a, err := Identity(dir)
	require.NoError(t, err)
	b, err := Identity(link)
	require.NoError(t, err)
	assert.Equal(t, a, b, "symlink and target are the same collection")
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())
	doc := sampleDoc("/photos")

	require.NoError(t, store.Save(doc))

	got, err := store.Load("/photos")
	require.NoError(t, err)

	assert.Equal(t, "/photos", got.Meta.SourceIdentity)
	assert.Equal(t, 2, got.Meta.RecordCount)
	assert.False(t, got.Meta.CreatedAt.IsZero())
	assert.False(t, got.Meta.Partial)

	require.Len(t, got.Records, 2)
	assert.Equal(t, doc.Records[0].Path, got.Records[0].Path)
	assert.True(t, doc.Records[0].Timestamp.Equal(got.Records[0].Timestamp))
	require.NotNil(t, got.Records[0].GPS)
	assert.Equal(t, 52.52, got.Records[0].GPS.Lat)
	assert.Equal(t, "Berlin", got.Records[0].PlaceName)
	assert.True(t, got.Records[1].IsDuplicate)

	assert.Equal(t, doc.Locations, got.Locations)
	assert.Equal(t, doc.Duplicates, got.Duplicates)
}

func TestSave_CreatesDirectory(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "deep", "nested"))
	require.NoError(t, store.Save(sampleDoc("/photos")))

	_, err := store.Load("/photos")
	require.NoError(t, err)
}

func TestSave_EmptyIdentityRejected(t *testing.T) {
	store := NewStore(t.TempDir())
	require.Error(t, store.Save(&Document{}))
}

func TestSave_Overwrites(t *testing.T) {
	store := NewStore(t.TempDir())

	doc := sampleDoc("/photos")
	require.NoError(t, store.Save(doc))

	doc.Records = doc.Records[:1]
	doc.Meta.Partial = true
	require.NoError(t, store.Save(doc))

	got, err := store.Load("/photos")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Meta.RecordCount)
	assert.True(t, got.Meta.Partial)
}

func TestLoad_MissingIsErrMiss(t *testing.T) {
	store := NewStore(t.TempDir())

	_, err := store.Load("/never-saved")
	require.ErrorIs(t, err, ErrMiss)
}

func TestLoad_CorruptIsErrMiss(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	require.NoError(t, store.Save(sampleDoc("/photos")))

	// Truncate the snapshot file in place.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, entries[0].Name()), []byte("{garbage"), 0644))

	_, err = store.Load("/photos")
	require.ErrorIs(t, err, ErrMiss)
}

func TestLoad_IdentityMismatchIsErrMiss(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	require.NoError(t, store.Save(sampleDoc("/photos")))

	// Rewrite the stored identity so the file no longer matches its name.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, entries[0].Name()),
		[]byte(strings.ReplaceAll(string(data), "/photos", "/other")), 0644))

	_, err = store.Load("/photos")
	require.ErrorIs(t, err, ErrMiss)
}

func TestDelete(t *testing.T) {
	store := NewStore(t.TempDir())
	require.NoError(t, store.Save(sampleDoc("/photos")))

	require.NoError(t, store.Delete("/photos"))
	_, err := store.Load("/photos")
	require.ErrorIs(t, err, ErrMiss)

	// Deleting an absent snapshot is not an error.
	require.NoError(t, store.Delete("/photos"))
}

func TestList(t *testing.T) {
	store := NewStore(t.TempDir())
	require.NoError(t, store.Save(sampleDoc("/a")))
	require.NoError(t, store.Save(sampleDoc("/b")))

	metas, err := store.List()
	require.NoError(t, err)
	require.Len(t, metas, 2)

	identities := []string{metas[0].SourceIdentity, metas[1].SourceIdentity}
	assert.ElementsMatch(t, []string{"/a", "/b"}, identities)
}

func TestList_MissingDirIsEmpty(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "never-created"))
	metas, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, metas)
}

func TestPurgeAll(t *testing.T) {
	store := NewStore(t.TempDir())
	require.NoError(t, store.Save(sampleDoc("/a")))
	require.NoError(t, store.Save(sampleDoc("/b")))

	removed, err := store.PurgeAll()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	metas, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, metas)
}
