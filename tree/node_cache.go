package tree

import (
	"sync"

	"github.com/trunklab/trunk/common"
	"github.com/trunklab/trunk/tree/shared"
)

// NodeCache memoizes decoded nodes keyed by their digest, so repeated
// traversals through the same subtree avoid repeated backend fetch and
// decode work. It is a performance overlay, never a source of truth: entries
// may be evicted at any time and are transparently reloaded on demand.
//
// The cache is safe for concurrent use. Cached nodes are shared between all
// traversals and must be treated as immutable; writers obtain private copies
// through their handles instead.
type NodeCache[L any] struct {
	mutex    sync.Mutex
	entries  *common.LruCache[common.Hash, *shared.Shared[Content[L]]]
	capacity int
}

// NewNodeCache creates a cache retaining up to capacity decoded nodes under
// an LRU eviction policy.
func NewNodeCache[L any](capacity int) *NodeCache[L] {
	return &NodeCache[L]{
		entries:  common.NewLruCache[common.Hash, *shared.Shared[Content[L]]](capacity),
		capacity: capacity,
	}
}

// GetOrLoad returns the cached node stored under the given digest, invoking
// load to materialize it on a miss. The loader runs outside the cache lock,
// so two concurrent misses on the same digest may both load; the first
// result registered wins and is returned to everyone. A loader failure is
// returned to the caller and leaves no cache entry behind.
func (c *NodeCache[L]) GetOrLoad(hash common.Hash, load func() (Content[L], error)) (*shared.Shared[Content[L]], error) {
	c.mutex.Lock()
	if entry, found := c.entries.Get(hash); found {
		c.mutex.Unlock()
		return entry, nil
	}
	c.mutex.Unlock()

	node, err := load()
	if err != nil {
		return nil, err
	}
	loaded := shared.MakeShared(node)

	c.mutex.Lock()
	defer c.mutex.Unlock()
	if entry, found := c.entries.Get(hash); found {
		// A concurrent load won the race; both decoded the same bytes, so
		// the results are interchangeable and the registered one is kept.
		return entry, nil
	}
	c.entries.Set(hash, loaded)
	return loaded, nil
}

// Get returns the cached node stored under the given digest, if present.
func (c *NodeCache[L]) Get(hash common.Hash) (*shared.Shared[Content[L]], bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.entries.Get(hash)
}

// Len returns the number of nodes currently retained.
func (c *NodeCache[L]) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.entries.Len()
}

// Purge drops all retained nodes. Traversal results must not depend on it.
func (c *NodeCache[L]) Purge() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.entries = common.NewLruCache[common.Hash, *shared.Shared[Content[L]]](c.capacity)
}
