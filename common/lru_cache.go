package common

// LruCache is a bounded key-value cache evicting the least recently used
// entry when full. It is not synchronized; callers requiring concurrent
// access must provide their own locking.
type LruCache[K comparable, V any] struct {
	entries  map[K]*lruEntry[K, V]
	capacity int
	head     *lruEntry[K, V]
	tail     *lruEntry[K, V]
}

// NewLruCache creates a cache retaining up to capacity entries. A capacity
// below one is raised to one.
func NewLruCache[K comparable, V any](capacity int) *LruCache[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	return &LruCache[K, V]{
		entries:  make(map[K]*lruEntry[K, V], capacity),
		capacity: capacity,
	}
}

// Get returns the value stored for the given key, if present, and marks the
// entry as recently used.
func (c *LruCache[K, V]) Get(key K) (V, bool) {
	var value V
	entry, exists := c.entries[key]
	if exists {
		value = entry.value
		c.touch(entry)
	}
	return value, exists
}

// Set associates the key with the given value and marks the entry as recently
// used. If the insertion exceeds the cache's capacity the least recently used
// entry is removed and returned.
func (c *LruCache[K, V]) Set(key K, value V) (evictedKey K, evictedValue V, evicted bool) {
	entry, exists := c.entries[key]
	if !exists {
		if len(c.entries) >= c.capacity {
			entry = c.dropLast()
			evictedKey = entry.key
			evictedValue = entry.value
			evicted = true
		} else {
			entry = new(lruEntry[K, V])
		}
		entry.key = key
		c.entries[key] = entry

		entry.prev = nil
		entry.next = c.head
		if c.head != nil {
			c.head.prev = entry
		}
		c.head = entry
		if c.tail == nil {
			c.tail = entry
		}
	}
	entry.value = value
	c.touch(entry)
	return
}

// Len returns the number of entries currently retained.
func (c *LruCache[K, V]) Len() int {
	return len(c.entries)
}

// Iterate calls the callback for each retained key-value pair in unspecified
// order until the callback returns false.
func (c *LruCache[K, V]) Iterate(callback func(K, V) bool) {
	for key, entry := range c.entries {
		if !callback(key, entry.value) {
			return
		}
	}
}

// touch moves the entry to the head of the LRU list.
func (c *LruCache[K, V]) touch(entry *lruEntry[K, V]) {
	if entry == c.head {
		return
	}
	entry.prev.next = entry.next
	if entry.next != nil {
		entry.next.prev = entry.prev
	} else {
		c.tail = entry.prev
	}
	entry.prev = nil
	entry.next = c.head
	c.head.prev = entry
	c.head = entry
}

// dropLast unlinks and returns the tail of the LRU list.
func (c *LruCache[K, V]) dropLast() *lruEntry[K, V] {
	last := c.tail
	delete(c.entries, last.key)
	c.tail = last.prev
	if c.tail != nil {
		c.tail.next = nil
	} else {
		c.head = nil
	}
	return last
}

type lruEntry[K comparable, V any] struct {
	key   K
	value V
	prev  *lruEntry[K, V]
	next  *lruEntry[K, V]
}
