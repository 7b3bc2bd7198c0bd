package hamt

import (
	"github.com/trunklab/trunk/common"
	"github.com/trunklab/trunk/tree"
)

// keyMethod navigates to the leaf holding one key, consuming the key's
// digest one nibble per level. It never backtracks into sibling subtrees: a
// mismatch anywhere on the path proves the key absent, so the method rejects
// every level from that point on and lets the search run out.
type keyMethod struct {
	key       string
	path      common.Hash
	depth     int
	exhausted bool
}

func (m *keyMethod) Select(children []tree.Handle[Entry]) (int, bool) {
	if m.exhausted || m.depth >= maxDepth {
		return 0, false
	}
	// The engine re-queries a level starting past slots it already tried;
	// the absolute slot position follows from the remaining width.
	offset := width - len(children)
	target := bucket(m.path, m.depth)
	if target < offset {
		m.exhausted = true
		return 0, false
	}
	h := &children[target-offset]
	switch {
	case h.IsNode():
		m.depth++
		return target - offset, true
	case h.IsLeaf():
		if leaf, _ := h.Leaf(); leaf.Key == m.key {
			return target - offset, true
		}
	}
	m.exhausted = true
	return 0, false
}
