package embedcache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chadd28/hackrice-15-sub000/pkg/utils"
)

const testModel = "test-embedding-model"

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.json")
	c := New(NewFileStore(path), testModel)
	// Drain background persists before the temp dir is removed.
	t.Cleanup(c.Flush)
	return c
}

func TestQuestionRoundTrip(t *testing.T) {
	c := newTestCache(t)

	c.StoreQuestionEmbeddings([]BatchItem{
		{QuestionID: "7", Text: "text", Vector: []float32{0.1, 0.2}},
	})

	entry, ok := c.GetQuestion("7", "text")
	require.True(t, ok)
	assert.Equal(t, []float32{0.1, 0.2}, entry.Vector)
	assert.Equal(t, utils.HashContent("text"), entry.ContentHash)
	assert.Equal(t, "7", entry.QuestionID)
	assert.Equal(t, testModel, entry.ModelTag)
}

func TestGetMissReturnsFalse(t *testing.T) {
	c := newTestCache(t)

	_, ok := c.Get("nope", "")
	assert.False(t, ok)
}

func TestContentChangeInvalidatesEntry(t *testing.T) {
	c := newTestCache(t)

	c.Store("k", "", "original text", []float32{1})

	_, ok := c.Get("k", "edited text")
	assert.False(t, ok, "stale content must read as a miss")

	_, ok = c.Get("k", "original text")
	assert.True(t, ok)
}

func TestGetWithoutTextSkipsHashCheck(t *testing.T) {
	c := newTestCache(t)

	c.Store("k", "", "some text", []float32{1})

	_, ok := c.Get("k", "")
	assert.True(t, ok)
}

func TestPersistAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")

	c := New(NewFileStore(path), testModel)
	c.Store("k", "", "hello", []float32{0.5, 0.6})
	c.Flush()

	reloaded := New(NewFileStore(path), testModel)
	require.NoError(t, reloaded.Initialize())

	entry, ok := reloaded.Get("k", "hello")
	require.True(t, ok)
	assert.Equal(t, []float32{0.5, 0.6}, entry.Vector)
}

func TestModelMismatchDiscardsCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")

	c := New(NewFileStore(path), "old-model")
	c.Store("k", "", "hello", []float32{1})
	c.Flush()

	reloaded := New(NewFileStore(path), "new-model")
	require.NoError(t, reloaded.Initialize())

	assert.Equal(t, 0, reloaded.Stats().EntryCount)
}

func TestInitializeIsIdempotent(t *testing.T) {
	c := newTestCache(t)

	require.NoError(t, c.Initialize())
	c.Store("k", "", "hello", []float32{1})
	require.NoError(t, c.Initialize())

	_, ok := c.Get("k", "")
	assert.True(t, ok, "re-initialization must not drop in-memory entries")
}

func TestLazyInitialization(t *testing.T) {
	c := newTestCache(t)

	// No explicit Initialize; operations must still work.
	c.Store("k", "", "hello", []float32{1})
	_, ok := c.Get("k", "")
	assert.True(t, ok)
	assert.True(t, c.Status().Initialized)
}

func TestCorruptSnapshotStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	c := New(NewFileStore(path), testModel)
	require.NoError(t, c.Initialize())
	assert.Equal(t, 0, c.Stats().EntryCount)
}

func TestRemoveEmbedding(t *testing.T) {
	c := newTestCache(t)

	c.Store("k", "", "hello", []float32{1})
	c.Remove("k")

	_, ok := c.Get("k", "")
	assert.False(t, ok)
}

func TestClearCache(t *testing.T) {
	c := newTestCache(t)

	c.Store("a", "", "one", []float32{1})
	c.Store("b", "", "two", []float32{2})
	c.Clear()

	assert.Equal(t, 0, c.Stats().EntryCount)
}

func TestCleanupWithoutMaxAgeIsNoop(t *testing.T) {
	c := newTestCache(t)

	c.Store("k", "", "hello", []float32{1})

	assert.Equal(t, 0, c.Cleanup(0))
	assert.Equal(t, 1, c.Stats().EntryCount)
}

func TestCleanupRemovesOldEntries(t *testing.T) {
	c := newTestCache(t)

	c.Store("k", "", "hello", []float32{1})

	removed := c.Cleanup(time.Nanosecond)
	// The entry was created just now; give the clock a moment.
	if removed == 0 {
		time.Sleep(2 * time.Millisecond)
		removed = c.Cleanup(time.Nanosecond)
	}
	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, c.Stats().EntryCount)
}

func TestStatsTracksQuestionEntries(t *testing.T) {
	c := newTestCache(t)

	c.StoreQuestionEmbeddings([]BatchItem{
		{QuestionID: "1", Text: "a", Vector: []float32{1}},
		{QuestionID: "2", Text: "b", Vector: []float32{2}},
	})
	c.Store("misc", "", "c", []float32{3})

	stats := c.Stats()
	assert.Equal(t, 3, stats.EntryCount)
	assert.Equal(t, 2, stats.QuestionCount)
	assert.Equal(t, []string{"1", "2"}, c.CoveredQuestionIDs())
}
