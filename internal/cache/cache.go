// Package cache keeps compile results between builds. An entry is reused
// only while the root and every file it referenced are unchanged.
package cache

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/illusionfield/scssc/internal/logging"
	"github.com/illusionfield/scssc/pkg/compiler"
)

const (
	TierMemory = "memory"
	TierDisk   = "disk"
)

// maxEntries bounds the LRU by count; the byte budget is enforced separately.
const maxEntries = 1 << 16

// Entry is a cached compile of one root.
type Entry struct {
	Key                   string                 `json:"key"`
	Result                compiler.CompileResult `json:"result"`
	ReferencedImportPaths []string               `json:"referencedImportPaths"`
	Hashes                map[string]string      `json:"hashes"` // namespace key -> hash at compile time
}

// NewEntry records the compile of root f. Every referenced file's hash is
// taken from the batch the compile ran against.
func NewEntry(f *compiler.File, out *compiler.Output, batch compiler.Batch) *Entry {
	e := &Entry{
		Key:                   compiler.CacheKey(f),
		Result:                out.Result,
		ReferencedImportPaths: out.ReferencedImportPaths,
		Hashes:                make(map[string]string, len(out.ReferencedImportPaths)),
	}
	for _, key := range out.ReferencedImportPaths {
		if ref, ok := batch[key]; ok {
			e.Hashes[key] = ref.Hash
		}
	}
	return e
}

// Valid reports whether the entry still describes root f in batch.
func (e *Entry) Valid(f *compiler.File, batch compiler.Batch) bool {
	if e == nil || e.Key != compiler.CacheKey(f) {
		return false
	}
	for key, hash := range e.Hashes {
		ref, ok := batch[key]
		if !ok || ref.Hash != hash {
			return false
		}
	}
	return true
}

// Output rebuilds the compile output from the entry.
func (e *Entry) Output() *compiler.Output {
	return &compiler.Output{
		Result:                e.Result,
		ReferencedImportPaths: e.ReferencedImportPaths,
	}
}

func (e *Entry) size() int {
	return compiler.ResultSize(&e.Result)
}

// Cache is an in-memory LRU bounded by the total ResultSize of its entries,
// optionally backed by a Store. It is safe for concurrent use.
type Cache struct {
	mu     sync.Mutex
	lru    *lru.Cache
	budget int
	used   int
	store  *Store
	log    *logging.Logger
}

func New(budget int) *Cache {
	c := &Cache{
		budget: budget,
		log:    logging.Nop(),
	}
	l, err := lru.NewWithEvict(maxEntries, c.evicted)
	if err != nil {
		panic(err) // only for a non-positive size
	}
	c.lru = l
	return c
}

func (c *Cache) WithStore(s *Store) *Cache {
	c.store = s
	return c
}

func (c *Cache) WithLogger(log *logging.Logger) *Cache {
	c.log = log
	return c
}

// evicted is called by the LRU with c.mu held.
func (c *Cache) evicted(_, value any) {
	c.used -= value.(*Entry).size()
}

// Get returns a valid entry for root f and the tier it came from. Stale
// entries are dropped.
func (c *Cache) Get(ctx context.Context, f *compiler.File, batch compiler.Batch) (*Entry, string, bool) {
	key := f.Key()

	c.mu.Lock()
	v, ok := c.lru.Get(key)
	if ok {
		if e := v.(*Entry); e.Valid(f, batch) {
			c.mu.Unlock()
			return e, TierMemory, true
		}
		c.lru.Remove(key)
	}
	c.mu.Unlock()

	if c.store == nil {
		return nil, "", false
	}

	e, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.log.Warnf("cache lookup of %s failed: %v", key, err)
		return nil, "", false
	}
	if !ok || !e.Valid(f, batch) {
		return nil, "", false
	}
	c.add(key, e)
	return e, TierDisk, true
}

// Put stores the entry for the root with namespace key key.
func (c *Cache) Put(ctx context.Context, key string, e *Entry) {
	c.add(key, e)

	if c.store != nil {
		if err := c.store.Put(ctx, key, e); err != nil {
			c.log.Warnf("cache store of %s failed: %v", key, err)
		}
	}
}

func (c *Cache) add(key string, e *Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	size := e.size()
	if size > c.budget {
		c.lru.Remove(key)
		return
	}

	c.lru.Remove(key)
	c.lru.Add(key, e)
	c.used += size
	for c.used > c.budget {
		if _, _, ok := c.lru.RemoveOldest(); !ok {
			break
		}
	}
}

// Size returns the bytes held in memory.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.used
}

// Len returns the number of entries held in memory.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func (c *Cache) Close() error {
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}
