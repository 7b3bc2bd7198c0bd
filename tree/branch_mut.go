package tree

import (
	"github.com/trunklab/trunk/tree/shared"
)

// levelMut is one step of a mutable branch's path: the node, the exclusive
// write access held on it, the parent slot referencing it, and the position
// of the child slot the search last considered. The root level owns no slot
// and no write access; the caller holds the root exclusively.
type levelMut[L any] struct {
	node   Content[L]
	slot   *Handle[L]
	write  shared.WriteHandle[Content[L]]
	offset int
}

// PartialBranchMut is a writable path from the root of a tree towards a
// leaf, under construction by a search. Every node on the path has been
// materialized as a private copy under exclusive access, so mutations
// through the finished branch never touch cache-shared instances.
//
// Holding the path exclusively is also what enforces the single-writer
// discipline: a second mutable search through the same nodes fails with
// ErrAliasedNode instead of corrupting the tree.
type PartialBranchMut[L any] struct {
	store  *Store[L]
	levels []levelMut[L]
	valid  bool
}

// NewPartialBranchMut starts a writable path at the given root node. The
// root is held exclusively by the caller and is not guarded by a write
// handle.
func NewPartialBranchMut[L any](store *Store[L], root Content[L]) *PartialBranchMut[L] {
	return &PartialBranchMut[L]{
		store:  store,
		levels: []levelMut[L]{{node: root}},
	}
}

// AdvanceSearch mirrors the read-only search loop, acquiring exclusive
// instead of shared access on descent.
func (p *PartialBranchMut[L]) AdvanceSearch(method Method[L]) error {
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
				write, node, err := p.store.materializeExclusive(selected)
				if err != nil {
					return err
				}
				p.levels = append(p.levels, levelMut[L]{node: node, slot: selected, write: write})
				continue
			}
		}

		p.pop()
		if len(p.levels) > 0 {
			p.levels[len(p.levels)-1].offset++
		}
	}
	return nil
}

// Valid returns true if the path is positioned on a leaf.
func (p *PartialBranchMut[L]) Valid() bool {
	return p.valid
}

// Branch converts a completed search into a leaf-positioned mutable branch,
// or returns nil if the search was exhausted. Ownership of the held access
// transfers to the branch.
func (p *PartialBranchMut[L]) Branch() *BranchMut[L] {
	if !p.valid {
		return nil
	}
	return &BranchMut[L]{partial: p}
}

// Close abandons the path and releases all held access. Changes already
// applied to privately owned nodes remain in memory but carry stale digests
// until the next Commit or Persist covering them.
func (p *PartialBranchMut[L]) Close() {
	for len(p.levels) > 0 {
		p.pop()
	}
	p.valid = false
}

func (p *PartialBranchMut[L]) pop() {
	top := &p.levels[len(p.levels)-1]
	if top.write.Valid() {
		top.write.Release()
	}
	p.levels = p.levels[:len(p.levels)-1]
}

// BranchMut is a writable path from the root of a tree to one of its leaves.
// The mutation cycle is: search, modify the leaf or its slot, Commit.
type BranchMut[L any] struct {
	partial *PartialBranchMut[L]
}

// Leaf returns a pointer to the leaf the branch is positioned on. The leaf
// lives in a privately owned node, so writing through the pointer is the
// intended way to modify it in place. The pointer must not be retained past
// Commit or Close.
func (b *BranchMut[L]) Leaf() *L {
	top := &b.partial.levels[len(b.partial.levels)-1]
	return &top.node.Children()[top.offset].leaf
}

// LeafSlot returns a pointer to the slot holding the current leaf, for
// structural mutations such as clearing it or replacing it with a subtree.
// The pointer must not be retained past Commit or Close.
func (b *BranchMut[L]) LeafSlot() *Handle[L] {
	top := &b.partial.levels[len(b.partial.levels)-1]
	return &top.node.Children()[top.offset]
}

// Commit finalizes the mutation: every node on the path is pruned (deepest
// first, if the shape implements Pruner), its digest recomputed, and the
// fresh digest written into its parent slot, so afterwards no stale digest
// is reachable along the former path. All held access is released and the
// branch must not be used again.
func (b *BranchMut[L]) Commit() error {
	p := b.partial
	for len(p.levels) > 1 {
		top := &p.levels[len(p.levels)-1]
		if pruner, ok := top.node.(Pruner); ok {
			pruner.Prune()
		}
		hash, err := p.store.refreshDigests(top.node, false)
		if err != nil {
			p.Close()
			return err
		}
		top.slot.hash = hash
		top.slot.hashClean = true
		top.write.Release()
		p.levels = p.levels[:len(p.levels)-1]
	}
	if len(p.levels) == 1 {
		// The root is not referenced by any slot; its digest is computed on
		// demand by Persist. Only its structure gets normalized here.
		if pruner, ok := p.levels[0].node.(Pruner); ok {
			pruner.Prune()
		}
		p.levels = p.levels[:0]
	}
	p.valid = false
	return nil
}

// Close abandons the mutation and releases all held access.
func (b *BranchMut[L]) Close() {
	b.partial.Close()
}

// SearchMut descends from the given root following the given method and
// returns a branch positioned on the first accepted leaf, with exclusive
// access to the whole path. It returns nil if the method rejects the whole
// tree. The caller must Commit or Close the returned branch.
func SearchMut[L any](store *Store[L], root Content[L], method Method[L]) (*BranchMut[L], error) {
	partial := NewPartialBranchMut(store, root)
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
