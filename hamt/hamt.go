// Package hamt provides a persistent, content-addressed hash map built on
// the tree engine. Keys are navigated by their digest, one nibble per tree
// level, so the structure of a map depends only on the set of keys it holds:
// two maps with equal content persist to equal snapshots regardless of the
// order of insertions and removals that produced them.
package hamt

import (
	"github.com/trunklab/trunk/backend"
	"github.com/trunklab/trunk/common"
	"github.com/trunklab/trunk/tree"
)

// ErrPathCollision indicates that two distinct keys share a full navigation
// path. With a cryptographic digest as path source this marks a broken or
// mismatched hash algorithm rather than bad luck.
const ErrPathCollision = common.ConstError("distinct keys share a full navigation path")

// Entry is one key-value pair stored in a map.
type Entry struct {
	Key   string
	Value uint64
}

// width is the number of child slots per node, one per nibble of the key
// digest.
const width = 16

// maxDepth is the number of nibbles in a key digest, bounding the length of
// any navigation path.
const maxDepth = 2 * common.HashSize

type node struct {
	slots [width]tree.Handle[Entry]
}

func (n *node) Children() []tree.Handle[Entry] {
	return n.slots[:]
}

func (n *node) Clone() tree.Content[Entry] {
	clone := *n
	return &clone
}

// Prune restores the canonical trie shape after removals: resident child
// nodes that became empty are dropped, those that shrank to a single leaf
// are inlined. A child holding a single node keeps its place, since slot
// positions are bound to the depth they were computed at.
func (n *node) Prune() {
	for i := range n.slots {
		h := &n.slots[i]
		resident := h.Resident()
		if resident == nil {
			continue
		}
		children := resident.Children()
		occupied, last := 0, -1
		for j := range children {
			if !children[j].IsEmpty() {
				occupied++
				last = j
			}
		}
		switch {
		case occupied == 0:
			h.SetEmpty()
		case occupied == 1 && children[last].IsLeaf():
			leaf, _ := children[last].Leaf()
			h.SetLeaf(leaf)
		}
	}
}

// Map is a mutable hash map whose state can be persisted into and restored
// from a content-addressed backend. A map instance must be used by a single
// writer at a time; concurrent writers are detected and rejected rather than
// silently corrupting the trie.
type Map struct {
	store *tree.Store[Entry]
	root  tree.Content[Entry]
}

// New creates an empty map persisting into the given backend.
func New(b backend.Backend, config tree.Config) *Map {
	return &Map{
		store: tree.NewStore[Entry](b, codec{}, config),
		root:  &node{},
	}
}

// Restore opens the map persisted under the given snapshot. Nodes are
// loaded from the backend on demand as the map is navigated.
func Restore(b backend.Backend, config tree.Config, snapshot tree.Snapshot[Entry]) (*Map, error) {
	store := tree.NewStore[Entry](b, codec{}, config)
	root, err := store.Restore(snapshot)
	if err != nil {
		return nil, err
	}
	return &Map{store: store, root: root}, nil
}

// Persist writes the map's current state into the backend and returns a
// snapshot addressing it. The map remains usable; later mutations do not
// affect the snapshot.
func (m *Map) Persist() (tree.Snapshot[Entry], error) {
	return m.store.Persist(m.root)
}

// Insert stores value under key, returning the previously stored value if
// the key was already present.
func (m *Map) Insert(key string, value uint64) (previous uint64, replaced bool, err error) {
	path := m.store.Hasher().Hash([]byte(key))
	return m.insert(m.root, path, 0, key, value)
}

func (m *Map) insert(n tree.Content[Entry], path common.Hash, depth int, key string, value uint64) (uint64, bool, error) {
	if depth >= maxDepth {
		return 0, false, ErrPathCollision
	}
	slot := &n.Children()[bucket(path, depth)]
	switch {
	case slot.IsEmpty():
		slot.SetLeaf(Entry{Key: key, Value: value})
		return 0, false, nil
	case slot.IsLeaf():
		leaf, _ := slot.Leaf()
		if leaf.Key == key {
			previous := leaf.Value
			slot.SetLeaf(Entry{Key: key, Value: value})
			return previous, true, nil
		}
		// Two keys collide at this depth. The resident leaf moves one level
		// down; the insertion then continues into the new subtree and splits
		// further until the paths diverge.
		if depth+1 >= maxDepth {
			return 0, false, ErrPathCollision
		}
		child := &node{}
		child.slots[bucket(m.store.Hasher().Hash([]byte(leaf.Key)), depth+1)] = tree.LeafHandle(leaf)
		slot.SetNode(child)
		return m.insertInto(slot, path, depth+1, key, value)
	default:
		return m.insertInto(slot, path, depth+1, key, value)
	}
}

// insertInto continues an insertion below the given node slot, materializing
// the child for exclusive write access first.
func (m *Map) insertInto(slot *tree.Handle[Entry], path common.Hash, depth int, key string, value uint64) (previous uint64, replaced bool, err error) {
	err = m.store.Update(slot, func(child tree.Content[Entry]) error {
		var inner error
		previous, replaced, inner = m.insert(child, path, depth, key, value)
		return inner
	})
	if err != nil {
		return 0, false, err
	}
	return previous, replaced, nil
}

// Get returns the value stored under key, or false if the key is absent.
func (m *Map) Get(key string) (uint64, bool, error) {
	branch, err := tree.Search[Entry](m.store, m.root, m.method(key))
	if err != nil {
		return 0, false, err
	}
	if branch == nil {
		return 0, false, nil
	}
	defer branch.Close()
	return branch.Leaf().Value, true, nil
}

// Modify applies the given function to the value stored under key, in place.
// It returns false, without invoking the function, if the key is absent.
func (m *Map) Modify(key string, modify func(*uint64)) (bool, error) {
	branch, err := tree.SearchMut[Entry](m.store, m.root, m.method(key))
	if err != nil {
		return false, err
	}
	if branch == nil {
		return false, nil
	}
	modify(&branch.Leaf().Value)
	if err := branch.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// Remove deletes the value stored under key, returning it if the key was
// present. Subtrees emptied by the removal are collapsed, so the trie keeps
// its canonical shape.
func (m *Map) Remove(key string) (uint64, bool, error) {
	branch, err := tree.SearchMut[Entry](m.store, m.root, m.method(key))
	if err != nil {
		return 0, false, err
	}
	if branch == nil {
		return 0, false, nil
	}
	previous := branch.Leaf().Value
	branch.LeafSlot().SetEmpty()
	if err := branch.Commit(); err != nil {
		return 0, false, err
	}
	return previous, true, nil
}

// ForEach invokes the given function for every entry of the map, in digest
// order of the keys. The map must not be modified during the iteration. An
// error returned by the function aborts the iteration and is passed through.
func (m *Map) ForEach(visit func(key string, value uint64) error) error {
	method := tree.First[Entry]{}
	branch, err := tree.Search[Entry](m.store, m.root, method)
	if err != nil {
		return err
	}
	if branch == nil {
		return nil
	}
	for {
		leaf := branch.Leaf()
		if err := visit(leaf.Key, leaf.Value); err != nil {
			branch.Close()
			return err
		}
		ok, err := branch.Advance(method)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
}

// Len counts the entries of the map by iterating over it.
func (m *Map) Len() (int, error) {
	count := 0
	err := m.ForEach(func(string, uint64) error {
		count++
		return nil
	})
	return count, err
}

// method creates a search strategy navigating to the given key.
func (m *Map) method(key string) *keyMethod {
	return &keyMethod{
		key:  key,
		path: m.store.Hasher().Hash([]byte(key)),
	}
}

// bucket returns the child slot index for the given depth of a navigation
// path, consuming the path digest one nibble at a time.
func bucket(path common.Hash, depth int) int {
	b := path[depth/2]
	if depth%2 == 0 {
		return int(b >> 4)
	}
	return int(b & 0x0f)
}
