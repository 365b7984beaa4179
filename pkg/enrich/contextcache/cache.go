// Package contextcache persists generated chunk contexts keyed by
// content fingerprint.
//
// The on-disk layout is one JSON file per fingerprint, named by the
// 16-hex fingerprint prefix. Writes are atomic (temp file + rename) and
// serialized per fingerprint; reads tolerate missing or truncated files
// as cache misses. An in-memory LRU mirror bounds repeated disk reads.
package contextcache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/maypok86/otter"
	"go.uber.org/zap"

	"github.com/hsn0918/docindex/pkg/logger"
)

// lockStripes bounds the per-fingerprint write locks. Writes to
// distinct fingerprints proceed in parallel.
const lockStripes = 64

// defaultMirrorSize caps the in-memory LRU mirror.
const defaultMirrorSize = 4096

// Entry is one cached context payload.
type Entry struct {
	Fingerprint string `json:"fingerprint"`
	Category    string `json:"category"`
	Context     string `json:"context"`
	CreatedAt   int64  `json:"created_at_unix"`
}

// Cache is the persistent fingerprint cache with its LRU mirror.
type Cache struct {
	dir    string
	mirror otter.Cache[string, Entry]
	locks  [lockStripes]sync.Mutex
}

// New opens (and creates) the cache directory. An unwritable directory
// is a startup error.
func New(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("contextcache: create dir: %w", err)
	}
	// Verify writability up front so misconfiguration fails at startup.
	probe := filepath.Join(dir, ".probe")
	if err := os.WriteFile(probe, nil, 0o644); err != nil {
		return nil, fmt.Errorf("contextcache: dir not writable: %w", err)
	}
	_ = os.Remove(probe)

	mirror, err := otter.MustBuilder[string, Entry](defaultMirrorSize).
		Cost(func(key string, value Entry) uint32 {
			return uint32(len(value.Context) + len(key))
		}).
		Build()
	if err != nil {
		return nil, fmt.Errorf("contextcache: build mirror: %w", err)
	}

	return &Cache{dir: dir, mirror: mirror}, nil
}

// Fingerprint computes the cache key for a chunk: SHA-256 over the
// chunk content, section hierarchy, document path and category, joined
// with NUL separators.
func Fingerprint(content string, hierarchy []string, documentPath, category string) string {
	h := sha256.New()
	h.Write([]byte(content))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(hierarchy, "\x1f")))
	h.Write([]byte{0})
	h.Write([]byte(documentPath))
	h.Write([]byte{0})
	h.Write([]byte(category))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached entry for a fingerprint. Any read problem is a
// miss.
func (c *Cache) Get(fingerprint string) (Entry, bool) {
	if e, ok := c.mirror.Get(fingerprint); ok {
		return e, true
	}

	data, err := os.ReadFile(c.path(fingerprint))
	if err != nil {
		return Entry{}, false
	}
	var e Entry
	if err := sonic.Unmarshal(data, &e); err != nil {
		logger.Get().Debug("context cache entry unreadable, treating as miss",
			zap.String("fingerprint", fingerprint[:16]),
			zap.Error(err))
		return Entry{}, false
	}
	if e.Fingerprint != fingerprint {
		return Entry{}, false
	}
	c.mirror.Set(fingerprint, e)
	return e, true
}

// Put stores an entry. Entries are written once and never mutate: an
// existing file is left untouched. The write path is not cancellable;
// it either completes or rolls back the temp file.
func (c *Cache) Put(fingerprint, category, context string) error {
	lock := &c.locks[stripeFor(fingerprint)]
	lock.Lock()
	defer lock.Unlock()

	target := c.path(fingerprint)
	if _, err := os.Stat(target); err == nil {
		return nil
	}

	e := Entry{
		Fingerprint: fingerprint,
		Category:    category,
		Context:     context,
		CreatedAt:   time.Now().Unix(),
	}
	data, err := sonic.Marshal(e)
	if err != nil {
		return fmt.Errorf("contextcache: marshal: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("contextcache: temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("contextcache: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("contextcache: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("contextcache: rename: %w", err)
	}

	c.mirror.Set(fingerprint, e)
	return nil
}

// Close releases the in-memory mirror.
func (c *Cache) Close() {
	c.mirror.Close()
}

func (c *Cache) path(fingerprint string) string {
	name := fingerprint
	if len(name) > 16 {
		name = name[:16]
	}
	return filepath.Join(c.dir, name+".json")
}

func stripeFor(fingerprint string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(fingerprint))
	return int(h.Sum32() % lockStripes)
}
