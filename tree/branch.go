package tree

import (
	"github.com/trunklab/trunk/tree/shared"
)

// level is one step of a branch's path from the root towards a leaf: a node,
// the read access held on it, and the position of the child slot the search
// last considered at this node.
type level[L any] struct {
	node   Content[L]
	read   shared.ReadHandle[Content[L]]
	offset int
}

// PartialBranch is a path from the root of a tree towards a leaf, under
// construction by a search. It becomes a Branch once the search lands on a
// leaf; a search that exhausts the tree leaves the partial branch invalid.
//
// A partial branch holds read access on every node along its path; it must be
// closed (or converted into a branch that is then closed) to release them.
type PartialBranch[L any] struct {
	store  *Store[L]
	levels []level[L]
	valid  bool
}

// NewPartialBranch starts a path at the given root node. The root is a node
// the caller materialized itself, typically via Restore, so no read handle is
// held on it.
func NewPartialBranch[L any](store *Store[L], root Content[L]) *PartialBranch[L] {
	return &PartialBranch[L]{
		store:  store,
		levels: []level[L]{{node: root}},
	}
}

// AdvanceSearch drives the search one leaf forward: it descends wherever the
// method selects a child, backtracks past subtrees the method rejects, and
// stops once the method selects a leaf or rejects the root level. Afterwards
// the branch is either valid and positioned on a leaf, or the search is
// exhausted and the branch invalid.
func (p *PartialBranch[L]) AdvanceSearch(method Method[L]) error {
	p.valid = false
	for len(p.levels) > 0 {
		top := &p.levels[len(p.levels)-1]
		children := top.node.Children()

		index, found := method.Select(children[top.offset:])
		if found && top.offset+index < len(children) {
			top.offset += index
			selected := &children[top.offset]
			switch {
			case selected.IsLeaf():
				p.valid = true
				return nil
			case selected.IsNode():
				read, node, err := p.store.view(selected)
				if err != nil {
					return err
				}
				p.levels = append(p.levels, level[L]{node: node, read: read})
				continue
			}
			// The method selected an empty slot; treat the level as rejected
			// from this position on.
		}

		// Backtrack: this level has nothing left to offer. The parent resumes
		// past the child it descended into.
		p.pop()
		if len(p.levels) > 0 {
			p.levels[len(p.levels)-1].offset++
		}
	}
	return nil
}

// Valid returns true if the branch is positioned on a leaf.
func (p *PartialBranch[L]) Valid() bool {
	return p.valid
}

// Branch converts a completed search into a leaf-positioned branch, or
// returns nil if the search was exhausted. Ownership of the held read access
// transfers to the branch.
func (p *PartialBranch[L]) Branch() *Branch[L] {
	if !p.valid {
		return nil
	}
	return &Branch[L]{partial: p}
}

// Close releases the read access held along the path. The branch must not be
// used afterwards.
func (p *PartialBranch[L]) Close() {
	for len(p.levels) > 0 {
		p.pop()
	}
	p.valid = false
}

func (p *PartialBranch[L]) pop() {
	top := &p.levels[len(p.levels)-1]
	if top.read.Valid() {
		top.read.Release()
	}
	p.levels = p.levels[:len(p.levels)-1]
}

// Branch is a read-only path from the root of a tree to one of its leaves.
// It gives access to the leaf it is positioned on and can be advanced to the
// next leaf accepted by a method, enabling iteration.
type Branch[L any] struct {
	partial *PartialBranch[L]
}

// Leaf returns a copy of the leaf the branch is positioned on.
func (b *Branch[L]) Leaf() L {
	top := &b.partial.levels[len(b.partial.levels)-1]
	leaf, _ := top.node.Children()[top.offset].Leaf()
	return leaf
}

// Advance moves the branch to the next leaf accepted by the given method,
// skipping the current one. It returns false if the search is exhausted, in
// which case the branch is closed.
func (b *Branch[L]) Advance(method Method[L]) (bool, error) {
	top := &b.partial.levels[len(b.partial.levels)-1]
	top.offset++
	if err := b.partial.AdvanceSearch(method); err != nil {
		b.partial.Close()
		return false, err
	}
	if !b.partial.Valid() {
		return false, nil
	}
	return true, nil
}

// Close releases the read access held along the path.
func (b *Branch[L]) Close() {
	b.partial.Close()
}

// Search descends from the given root following the given method and returns
// a branch positioned on the first accepted leaf, or nil if the method
// rejects the whole tree.
func Search[L any](store *Store[L], root Content[L], method Method[L]) (*Branch[L], error) {
	partial := NewPartialBranch(store, root)
	if err := partial.AdvanceSearch(method); err != nil {
		partial.Close()
		return nil, err
	}
	branch := partial.Branch()
	if branch == nil {
		partial.Close()
	}
	return branch, nil
}
