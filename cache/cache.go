// Package cache implements the on-disk response cache shared by the fetch
// coordinator: a mutex-protected metadata index over JSON blobs named by
// uuid, with oldest-expiration-first eviction once the configured size
// budget is exceeded.
package cache

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sunerpy/indexproxy/models"
)

type entry struct {
	uuid       string
	expiresAt  time.Time
	size       uint64
}

// Cache is a single exclusive owner of base_dir: every metadata lookup,
// write and eviction goes through the same mutex, so total_size and the
// directory contents never drift apart. Get reads an entry's file after
// releasing the mutex; an entry evicted meanwhile reads as absent.
type Cache struct {
	log     *zap.Logger
	baseDir string
	maxSize uint64

	mu        sync.Mutex
	metadata  map[string]*entry
	totalSize uint64
}

// New creates base_dir if absent and scrubs every regular file directly
// beneath it, per the cache's startup contract: the in-memory index starts
// empty and is the sole source of truth from then on.
func New(baseDir string, maxSize uint64, log *zap.Logger) (*Cache, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: mkdir %s: %v", models.ErrCacheIO, baseDir, err)
	}
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return nil, fmt.Errorf("%w: readdir %s: %v", models.ErrCacheIO, baseDir, err)
	}
	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(baseDir, de.Name())); err != nil {
			log.Warn("cache: failed to scrub stray file", zap.String("name", de.Name()), zap.Error(err))
		}
	}
	return &Cache{
		log:      log,
		baseDir:  baseDir,
		maxSize:  maxSize,
		metadata: make(map[string]*entry),
	}, nil
}

// Key composes the cache's (url, serialized-query) key space. Serialization
// uses url.Values' stable encoding; an empty query collapses to "".
func Key(rawURL string, query url.Values) string {
	q := ""
	if query != nil {
		q = query.Encode()
	}
	return rawURL + "\x00" + q
}

// Put serializes value to JSON, evicts until there is room, and writes a
// fresh uuid-named file. Cache-put failures are the caller's to log and
// swallow; Put itself only reports them.
func (c *Cache) Put(key string, lifetime time.Duration, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", models.ErrCacheIO, err)
	}
	newSize := uint64(len(data))

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()

	for c.totalSize+newSize > c.maxSize && len(c.metadata) > 0 {
		c.evictOldestLocked()
	}
	if c.totalSize+newSize > c.maxSize {
		return models.ErrCacheNoSpace
	}

	id := uuid.NewString()
	path := filepath.Join(c.baseDir, id)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			c.log.Warn("cache: failed to remove partial file", zap.String("path", path), zap.Error(rmErr))
		}
		return fmt.Errorf("%w: write %s: %v", models.ErrCacheIO, path, err)
	}

	if old, ok := c.metadata[key]; ok {
		c.removeFileLocked(old)
		c.totalSize -= old.size
	}
	c.metadata[key] = &entry{uuid: id, expiresAt: time.Now().Add(lifetime), size: newSize}
	c.totalSize += newSize
	return nil
}

// Get runs cleanup, then looks the key up. Any I/O or decode error returns
// absent without evicting — only expiration and cleanup remove entries.
func (c *Cache) Get(key string, out any) bool {
	c.mu.Lock()
	c.cleanupLocked()
	e, ok := c.metadata[key]
	if !ok {
		c.mu.Unlock()
		return false
	}
	if !e.expiresAt.After(time.Now()) {
		c.removeLocked(key, e)
		c.mu.Unlock()
		return false
	}
	path := filepath.Join(c.baseDir, e.uuid)
	c.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false
	}
	return true
}

// Cleanup removes every entry whose expiration is not strictly after now.
func (c *Cache) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupLocked()
}

func (c *Cache) cleanupLocked() {
	now := time.Now()
	for k, e := range c.metadata {
		if !e.expiresAt.After(now) {
			c.removeLocked(k, e)
		}
	}
}

// evictOldestLocked removes the entry whose expiration is minimal, per the
// cache's oldest-expiration-first policy (not LRU, not oldest creation).
func (c *Cache) evictOldestLocked() {
	var oldestKey string
	var oldest *entry
	keys := make([]string, 0, len(c.metadata))
	for k := range c.metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys) // deterministic tie-break
	for _, k := range keys {
		e := c.metadata[k]
		if oldest == nil || e.expiresAt.Before(oldest.expiresAt) {
			oldest, oldestKey = e, k
		}
	}
	if oldest != nil {
		c.removeLocked(oldestKey, oldest)
	}
}

func (c *Cache) removeLocked(key string, e *entry) {
	c.removeFileLocked(e)
	if e.size > c.totalSize {
		c.totalSize = 0
	} else {
		c.totalSize -= e.size
	}
	delete(c.metadata, key)
}

func (c *Cache) removeFileLocked(e *entry) {
	path := filepath.Join(c.baseDir, e.uuid)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		c.log.Warn("cache: failed to remove file", zap.String("path", path), zap.Error(err))
	}
}

// TotalSize reports the sum of data_size across live entries, exposed for
// the size-accounting invariant and for metrics/diagnostics.
func (c *Cache) TotalSize() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalSize
}

// Len reports the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.metadata)
}
