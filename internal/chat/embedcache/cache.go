package embedcache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/askcampus/askcampus/internal/helpers"
	"github.com/askcampus/askcampus/provider"
)

// Cache memoizes text embeddings keyed by content hash.
type Cache interface {
	Get(hash string) ([]float32, bool)
	Put(hash string, vec []float32)
	Len() int
	Flush() error
}

// Observer receives cache hit/miss notifications for metrics.
type Observer interface {
	RecordCacheHit()
	RecordCacheMiss()
}

// Embedder computes embeddings through the cache, only reaching the
// provider on a miss. Concurrent misses for the same text may race to
// compute; last write wins since vectors are deterministic per provider.
type Embedder struct {
	cache    Cache
	provider provider.Provider
	observer Observer
}

func NewEmbedder(cache Cache, p provider.Provider) *Embedder {
	return &Embedder{cache: cache, provider: p}
}

// WithObserver attaches a metrics observer and returns the embedder.
func (e *Embedder) WithObserver(o Observer) *Embedder {
	e.observer = o
	return e
}

// GetOrCompute returns the cached vector for the text, computing and
// storing it on a miss.
func (e *Embedder) GetOrCompute(ctx context.Context, text string) ([]float32, error) {
	hash := helpers.ContentHash(text)
	if vec, ok := e.cache.Get(hash); ok {
		if e.observer != nil {
			e.observer.RecordCacheHit()
		}
		return vec, nil
	}
	if e.observer != nil {
		e.observer.RecordCacheMiss()
	}
	vecs, err := e.provider.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("embed: provider returned no vectors")
	}
	e.cache.Put(hash, vecs[0])
	return vecs[0], nil
}

// FileCache is an in-memory map persisted wholesale to a JSON file.
// There is no eviction; the expected corpus is tens of thousands of
// documents, so unbounded growth is an accepted tradeoff.
type FileCache struct {
	path    string
	mu      sync.RWMutex
	entries map[string][]float32
}

// NewFileCache loads the cache file if present. A missing or corrupt
// file is never fatal; the cache starts empty instead.
func NewFileCache(path string) *FileCache {
	c := &FileCache{path: path, entries: make(map[string][]float32)}
	data, err := os.ReadFile(path)
	if err != nil {
		return c
	}
	if err := json.Unmarshal(data, &c.entries); err != nil {
		c.entries = make(map[string][]float32)
	}
	return c
}

func (c *FileCache) Get(hash string) ([]float32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	vec, ok := c.entries[hash]
	return vec, ok
}

func (c *FileCache) Put(hash string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[hash] = vec
}

func (c *FileCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Flush serializes the whole cache to disk atomically via a temp file
// rename. Meant to be called on checkpoint or shutdown, not per request.
func (c *FileCache) Flush() error {
	c.mu.RLock()
	data, err := json.Marshal(c.entries)
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}
	if dir := filepath.Dir(c.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create cache dir: %w", err)
		}
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("rename cache: %w", err)
	}
	return nil
}
