package embedcache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreLoadMissingFile(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "missing.json"))

	snapshot, err := store.Load()

	require.NoError(t, err)
	assert.Nil(t, snapshot)
}

func TestFileStoreSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "cache.json")
	store := NewFileStore(path)

	in := &Snapshot{
		Metadata: Metadata{
			SchemaVersion: SchemaVersion,
			ModelTag:      "m",
			CreatedAt:     time.Now().UTC(),
			EntryCount:    1,
		},
		Entries: map[string]Entry{
			"k": {ID: "k", SourceText: "hello", Vector: []float32{1, 2}, ContentHash: "h", ModelTag: "m"},
		},
	}

	require.NoError(t, store.Save(in))

	out, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, "m", out.Metadata.ModelTag)
	assert.Equal(t, []float32{1, 2}, out.Entries["k"].Vector)
}

func TestFileStoreSaveLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "cache.json"))

	require.NoError(t, store.Save(&Snapshot{Entries: map[string]Entry{}}))

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "cache.json", files[0].Name())
}

func TestFileStoreLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte("not json at all"), 0644))

	_, err := NewFileStore(path).Load()

	assert.Error(t, err)
}
