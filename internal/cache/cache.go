// Package cache remembers the last content written to each output path so
// a task can skip rewriting files whose bytes did not change.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"sync/atomic"
)

// OutputCache maps output paths to content hashes with LRU eviction.
type OutputCache struct {
	entries    map[string]*entry
	mutex      sync.Mutex
	maxEntries int
	head       *entry
	tail       *entry

	hits      int64
	misses    int64
	evictions int64
}

type entry struct {
	key  string
	hash string
	prev *entry
	next *entry
}

// New creates a cache holding at most maxEntries paths. Zero means 1024.
func New(maxEntries int) *OutputCache {
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	c := &OutputCache{
		entries:    make(map[string]*entry),
		maxEntries: maxEntries,
		head:       &entry{},
		tail:       &entry{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Hash returns the hex sha256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Unchanged reports whether data equals the last content remembered for path.
func (c *OutputCache) Unchanged(path string, data []byte) bool {
	hash := Hash(data)

	c.mutex.Lock()
	defer c.mutex.Unlock()

	e, ok := c.entries[path]
	if !ok || e.hash != hash {
		atomic.AddInt64(&c.misses, 1)
		return false
	}
	c.moveToFront(e)
	atomic.AddInt64(&c.hits, 1)
	return true
}

// Remember records data as the current content of path.
func (c *OutputCache) Remember(path string, data []byte) {
	hash := Hash(data)

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if e, ok := c.entries[path]; ok {
		e.hash = hash
		c.moveToFront(e)
		return
	}

	for len(c.entries) >= c.maxEntries && c.tail.prev != c.head {
		lru := c.tail.prev
		c.removeFromList(lru)
		delete(c.entries, lru.key)
		atomic.AddInt64(&c.evictions, 1)
	}

	e := &entry{key: path, hash: hash}
	c.entries[path] = e
	c.addToFront(e)
}

// Forget drops path from the cache.
func (c *OutputCache) Forget(path string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if e, ok := c.entries[path]; ok {
		c.removeFromList(e)
		delete(c.entries, path)
	}
}

// Len returns the number of remembered paths.
func (c *OutputCache) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.entries)
}

// Stats returns hit, miss, and eviction counts.
func (c *OutputCache) Stats() (hits, misses, evictions int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses), atomic.LoadInt64(&c.evictions)
}

func (c *OutputCache) addToFront(e *entry) {
	e.prev = c.head
	e.next = c.head.next
	c.head.next.prev = e
	c.head.next = e
}

func (c *OutputCache) removeFromList(e *entry) {
	e.prev.next = e.next
	e.next.prev = e.prev
}

func (c *OutputCache) moveToFront(e *entry) {
	c.removeFromList(e)
	c.addToFront(e)
}
