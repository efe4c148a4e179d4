// Package embedcache memoizes embedding vectors across restarts. Entries are
// content-addressed: a cached vector is only served while the hash of its
// source text still matches, and the whole cache is discarded when the
// embedding model changes, since vectors from different models are not
// comparable.
package embedcache

import (
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chadd28/hackrice-15-sub000/internal/metrics"
	"github.com/chadd28/hackrice-15-sub000/pkg/logger"
	"github.com/chadd28/hackrice-15-sub000/pkg/utils"
)

const SchemaVersion = 1

const questionKeyPrefix = "question_"

// QuestionKey builds the stable cache key for a question's reference answer.
func QuestionKey(questionID string) string {
	return questionKeyPrefix + questionID
}

type Entry struct {
	ID          string    `json:"id"`
	QuestionID  string    `json:"question_id,omitempty"`
	SourceText  string    `json:"source_text"`
	Vector      []float32 `json:"vector"`
	ContentHash string    `json:"content_hash"`
	CreatedAt   time.Time `json:"created_at"`
	ModelTag    string    `json:"model_tag"`
}

type Metadata struct {
	SchemaVersion int       `json:"schema_version"`
	ModelTag      string    `json:"model_tag"`
	CreatedAt     time.Time `json:"created_at"`
	LastUpdated   time.Time `json:"last_updated"`
	EntryCount    int       `json:"entry_count"`
	QuestionIDs   []string  `json:"question_ids"`
}

type Stats struct {
	EntryCount    int
	QuestionCount int
	OldestEntry   time.Time
	NewestEntry   time.Time
	ModelTag      string
}

type Status struct {
	Initialized bool
	EntryCount  int
	ModelTag    string
}

// BatchItem is one upsert in a batch store.
type BatchItem struct {
	ID         string
	QuestionID string
	Text       string
	Vector     []float32
}

type Cache struct {
	store    Store
	modelTag string

	mu          sync.RWMutex
	entries     map[string]Entry
	meta        Metadata
	initialized bool

	// persistMu serializes snapshot writes; pending tracks in-flight ones
	// so Flush can wait for them at shutdown.
	persistMu sync.Mutex
	pending   sync.WaitGroup
}

func New(store Store, modelTag string) *Cache {
	return &Cache{
		store:    store,
		modelTag: modelTag,
		entries:  make(map[string]Entry),
	}
}

// Initialize loads the persisted snapshot. Idempotent; every other method
// calls it lazily, so callers never fail purely from forgetting to
// initialize. A stale-model or unreadable snapshot degrades to an empty
// cache and is never an error.
func (c *Cache) Initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.initializeLocked()
	return nil
}

func (c *Cache) initializeLocked() {
	if c.initialized {
		return
	}

	c.meta = Metadata{
		SchemaVersion: SchemaVersion,
		ModelTag:      c.modelTag,
		CreatedAt:     time.Now(),
		LastUpdated:   time.Now(),
	}

	snapshot, err := c.store.Load()
	if err != nil {
		logger.Warn("Failed to load embedding cache, starting empty", zap.Error(err))
		c.initialized = true
		return
	}
	if snapshot == nil {
		logger.Info("No persisted embedding cache found, starting empty")
		c.initialized = true
		return
	}

	if snapshot.Metadata.ModelTag != c.modelTag {
		logger.Warn("Discarding embedding cache from different model",
			zap.String("cached_model", snapshot.Metadata.ModelTag),
			zap.String("current_model", c.modelTag),
		)
		c.initialized = true
		return
	}

	if snapshot.Metadata.SchemaVersion != SchemaVersion {
		logger.Warn("Discarding embedding cache with incompatible schema",
			zap.Int("cached_version", snapshot.Metadata.SchemaVersion),
			zap.Int("current_version", SchemaVersion),
		)
		c.initialized = true
		return
	}

	if snapshot.Entries != nil {
		c.entries = snapshot.Entries
	}
	c.meta = snapshot.Metadata
	c.initialized = true

	logger.Info("Embedding cache loaded",
		zap.Int("entries", len(c.entries)),
		zap.String("model", c.modelTag),
	)
}

// Get returns the entry for id. When currentText is non-empty the stored
// content hash is verified against it; a mismatch means the source text
// changed since caching and is treated as a miss.
func (c *Cache) Get(id, currentText string) (Entry, bool) {
	c.mu.Lock()
	c.initializeLocked()
	entry, ok := c.entries[id]
	c.mu.Unlock()

	if !ok {
		metrics.CacheMisses.WithLabelValues("embedding").Inc()
		return Entry{}, false
	}

	if currentText != "" && entry.ContentHash != utils.HashContent(currentText) {
		logger.Debug("Cache entry invalidated by content change", zap.String("id", id))
		metrics.CacheMisses.WithLabelValues("embedding").Inc()
		return Entry{}, false
	}

	metrics.CacheHits.WithLabelValues("embedding").Inc()
	return entry, true
}

func (c *Cache) GetQuestion(questionID, currentText string) (Entry, bool) {
	return c.Get(QuestionKey(questionID), currentText)
}

func (c *Cache) Store(id, questionID, text string, vector []float32) {
	c.StoreBatch([]BatchItem{{ID: id, QuestionID: questionID, Text: text, Vector: vector}})
}

// StoreBatch upserts all items under one writer lock, then schedules a
// single persist. Each item's hash is computed at write time.
func (c *Cache) StoreBatch(items []BatchItem) {
	if len(items) == 0 {
		return
	}

	c.mu.Lock()
	c.initializeLocked()
	now := time.Now()
	for _, item := range items {
		c.entries[item.ID] = Entry{
			ID:          item.ID,
			QuestionID:  item.QuestionID,
			SourceText:  item.Text,
			Vector:      item.Vector,
			ContentHash: utils.HashContent(item.Text),
			CreatedAt:   now,
			ModelTag:    c.modelTag,
		}
	}
	c.refreshMetaLocked()
	c.mu.Unlock()

	c.schedulePersist()
}

// StoreQuestionEmbeddings stores reference-answer vectors under their stable
// question keys.
func (c *Cache) StoreQuestionEmbeddings(items []BatchItem) {
	keyed := make([]BatchItem, 0, len(items))
	for _, item := range items {
		item.ID = QuestionKey(item.QuestionID)
		keyed = append(keyed, item)
	}
	c.StoreBatch(keyed)
}

func (c *Cache) Remove(id string) {
	c.mu.Lock()
	c.initializeLocked()
	if _, ok := c.entries[id]; !ok {
		c.mu.Unlock()
		return
	}
	delete(c.entries, id)
	c.refreshMetaLocked()
	c.mu.Unlock()

	c.schedulePersist()
}

func (c *Cache) Clear() {
	c.mu.Lock()
	c.initializeLocked()
	c.entries = make(map[string]Entry)
	c.refreshMetaLocked()
	c.mu.Unlock()

	logger.Info("Embedding cache cleared")
	c.schedulePersist()
}

// Cleanup removes entries older than maxAge and returns how many were
// dropped. A zero maxAge is a no-op; deleting anything requires explicit
// opt-in.
func (c *Cache) Cleanup(maxAge time.Duration) int {
	if maxAge <= 0 {
		return 0
	}

	cutoff := time.Now().Add(-maxAge)

	c.mu.Lock()
	c.initializeLocked()
	removed := 0
	for id, entry := range c.entries {
		if entry.CreatedAt.Before(cutoff) {
			delete(c.entries, id)
			removed++
		}
	}
	if removed > 0 {
		c.refreshMetaLocked()
	}
	c.mu.Unlock()

	if removed > 0 {
		logger.Info("Embedding cache cleanup", zap.Int("removed", removed))
		c.schedulePersist()
	}
	return removed
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	c.initializeLocked()
	defer c.mu.Unlock()

	stats := Stats{
		EntryCount: len(c.entries),
		ModelTag:   c.modelTag,
	}
	for _, entry := range c.entries {
		if entry.QuestionID != "" {
			stats.QuestionCount++
		}
		if stats.OldestEntry.IsZero() || entry.CreatedAt.Before(stats.OldestEntry) {
			stats.OldestEntry = entry.CreatedAt
		}
		if entry.CreatedAt.After(stats.NewestEntry) {
			stats.NewestEntry = entry.CreatedAt
		}
	}
	return stats
}

func (c *Cache) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Status{
		Initialized: c.initialized,
		EntryCount:  len(c.entries),
		ModelTag:    c.modelTag,
	}
}

// Flush waits for all scheduled persists to finish. Used at shutdown and in
// tests; normal operation never blocks on persistence.
func (c *Cache) Flush() {
	c.pending.Wait()
}

// refreshMetaLocked recomputes the derived metadata. Callers hold c.mu.
func (c *Cache) refreshMetaLocked() {
	questionIDs := make([]string, 0)
	for _, entry := range c.entries {
		if entry.QuestionID != "" {
			questionIDs = append(questionIDs, entry.QuestionID)
		}
	}
	sort.Strings(questionIDs)

	c.meta.ModelTag = c.modelTag
	c.meta.SchemaVersion = SchemaVersion
	c.meta.LastUpdated = time.Now()
	c.meta.EntryCount = len(c.entries)
	c.meta.QuestionIDs = questionIDs
}

// schedulePersist writes the snapshot on a background goroutine. Failures
// are logged and never reach the operation that triggered the write; the
// cache keeps serving from memory.
func (c *Cache) schedulePersist() {
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		c.persist()
	}()
}

func (c *Cache) persist() {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.RLock()
	snapshot := &Snapshot{
		Metadata: c.meta,
		Entries:  make(map[string]Entry, len(c.entries)),
	}
	for id, entry := range c.entries {
		snapshot.Entries[id] = entry
	}
	c.mu.RUnlock()

	if err := c.store.Save(snapshot); err != nil {
		logger.Warn("Failed to persist embedding cache", zap.Error(err))
		return
	}

	logger.Debug("Embedding cache persisted", zap.Int("entries", len(snapshot.Entries)))
}

// CoveredQuestionIDs reports which questions currently have a cached
// reference embedding.
func (c *Cache) CoveredQuestionIDs() []string {
	c.mu.Lock()
	c.initializeLocked()
	defer c.mu.Unlock()

	ids := make([]string, 0)
	for key, entry := range c.entries {
		if strings.HasPrefix(key, questionKeyPrefix) && entry.QuestionID != "" {
			ids = append(ids, entry.QuestionID)
		}
	}
	sort.Strings(ids)
	return ids
}
