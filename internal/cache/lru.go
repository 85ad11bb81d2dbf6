package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRUCache evicts by entry count, by total size and by TTL. Size is measured with
// the sizeOf func given at construction; nil counts every entry as 1.
type LRUCache[T any] struct {
	mu       sync.Mutex
	maxSize  int
	maxBytes int
	ttl      time.Duration
	sizeOf   func(T) int
	bytes    int
	items    map[string]*list.Element
	lru      *list.List
	now      func() time.Time

	hits   uint64
	misses uint64
}

type cacheItem[T any] struct {
	key       string
	data      T
	size      int
	expiresAt time.Time
}

// Stats reports cache effectiveness.
type Stats struct {
	Entries int
	Bytes   int
	Hits    uint64
	Misses  uint64
}

// NewLRUCache creates a new LRU cache with TTL
func NewLRUCache[T any](maxSize int, ttl time.Duration) *LRUCache[T] {
	return &LRUCache[T]{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
		now:     time.Now,
	}
}

// NewBytesCache creates an LRU of byte slices bounded by both entry count and
// total payload size.
func NewBytesCache(maxEntries, maxBytes int, ttl time.Duration) *LRUCache[[]byte] {
	c := NewLRUCache[[]byte](maxEntries, ttl)
	c.maxBytes = maxBytes
	c.sizeOf = func(b []byte) int { return len(b) }
	return c
}

func (c *LRUCache[T]) size(data T) int {
	if c.sizeOf == nil {
		return 1
	}
	return c.sizeOf(data)
}

// Get retrieves a value from the cache
func (c *LRUCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	elem, exists := c.items[key]
	if !exists {
		c.misses++
		return zero, false
	}

	item := elem.Value.(*cacheItem[T])
	if c.now().After(item.expiresAt) {
		c.removeElement(elem)
		c.misses++
		return zero, false
	}

	c.lru.MoveToFront(elem)
	c.hits++
	return item.data, true
}

// Set stores a value in the cache. Values larger than the byte budget are not stored.
func (c *LRUCache[T]) Set(key string, data T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	size := c.size(data)
	if c.maxBytes > 0 && size > c.maxBytes {
		if elem, exists := c.items[key]; exists {
			c.removeElement(elem)
		}
		return
	}

	item := &cacheItem[T]{
		key:       key,
		data:      data,
		size:      size,
		expiresAt: c.now().Add(c.ttl),
	}

	if elem, exists := c.items[key]; exists {
		c.bytes -= elem.Value.(*cacheItem[T]).size
		elem.Value = item
		c.bytes += size
		c.lru.MoveToFront(elem)
	} else {
		c.items[key] = c.lru.PushFront(item)
		c.bytes += size
	}

	for c.lru.Len() > c.maxSize || (c.maxBytes > 0 && c.bytes > c.maxBytes) {
		oldest := c.lru.Back()
		if oldest == nil {
			break
		}
		c.removeElement(oldest)
	}
}

// Delete removes a key from the cache
func (c *LRUCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.items[key]; exists {
		c.removeElement(elem)
	}
}

// Purge drops every entry.
func (c *LRUCache[T]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.lru.Init()
	c.bytes = 0
}

func (c *LRUCache[T]) removeElement(elem *list.Element) {
	item := elem.Value.(*cacheItem[T])
	delete(c.items, item.key)
	c.bytes -= item.size
	c.lru.Remove(elem)
}

// CleanExpired removes all expired entries and returns count of removed items
func (c *LRUCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var toRemove []*list.Element
	for elem := c.lru.Front(); elem != nil; elem = elem.Next() {
		if now.After(elem.Value.(*cacheItem[T]).expiresAt) {
			toRemove = append(toRemove, elem)
		}
	}
	for _, elem := range toRemove {
		c.removeElement(elem)
	}
	return len(toRemove)
}

// Size returns the current number of items in the cache
func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns a snapshot of the cache counters.
func (c *LRUCache[T]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Entries: len(c.items), Bytes: c.bytes, Hits: c.hits, Misses: c.misses}
}
