// Package cache memoizes backend analysis results so re-uploading the
// same files with the same operations skips the remote calls. Entries are
// held msgpack-encoded in memory only; a restart or the clear-cache action
// empties it.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"github.com/pwin-ai/pdf-analyzer/internal/models"
	"github.com/vmihailenco/msgpack/v5"
)

// DefaultMaxEntries bounds the cache when no limit is configured.
const DefaultMaxEntries = 64

type entry struct {
	data    []byte
	addedAt time.Time
}

// ResultCache is a bounded in-memory cache of encoded AnalysisResults.
type ResultCache struct {
	mu         sync.Mutex
	entries    map[string]*entry
	maxEntries int
}

// New creates a cache holding at most maxEntries results.
func New(maxEntries int) *ResultCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &ResultCache{
		entries:    make(map[string]*entry),
		maxEntries: maxEntries,
	}
}

// Key derives a cache key from the uploaded file contents and the selected
// operations. Files are keyed by content digest, not name, so renaming a
// file does not defeat the cache; operation order does not matter.
func Key(fileData [][]byte, ops []models.Operation) string {
	digests := make([]string, 0, len(fileData))
	for _, data := range fileData {
		sum := sha256.Sum256(data)
		digests = append(digests, hex.EncodeToString(sum[:]))
	}
	sort.Strings(digests)

	opNames := make([]string, 0, len(ops))
	for _, op := range ops {
		opNames = append(opNames, string(op))
	}
	sort.Strings(opNames)

	h := sha256.New()
	for _, d := range digests {
		h.Write([]byte(d))
	}
	for _, o := range opNames {
		h.Write([]byte(o))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached result for key, or nil when absent or corrupt.
func (c *ResultCache) Get(key string) *models.AnalysisResult {
	c.mu.Lock()
	e, ok := c.entries[key]
	c.mu.Unlock()
	if !ok {
		return nil
	}

	var result models.AnalysisResult
	if err := msgpack.Unmarshal(e.data, &result); err != nil {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil
	}
	return &result
}

// Put stores a result, evicting the oldest entries when at capacity.
func (c *ResultCache) Put(key string, result *models.AnalysisResult) {
	data, err := msgpack.Marshal(result)
	if err != nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for len(c.entries) >= c.maxEntries {
		var oldestKey string
		var oldest time.Time
		for k, e := range c.entries {
			if oldestKey == "" || e.addedAt.Before(oldest) {
				oldestKey = k
				oldest = e.addedAt
			}
		}
		delete(c.entries, oldestKey)
	}

	c.entries[key] = &entry{data: data, addedAt: time.Now()}
}

// Clear empties the cache.
func (c *ResultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
}

// Len returns the number of cached results.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
