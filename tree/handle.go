package tree

import (
	"github.com/trunklab/trunk/common"
	"github.com/trunklab/trunk/tree/shared"
)

type handleKind uint8

const (
	kindEmpty handleKind = iota
	kindLeaf
	kindNode
)

// Handle is one child slot of a tree node. A slot is either empty, holds a
// leaf value inline, or references a child node. A referenced child may be
// resident (materialized in memory), persisted (known only by its digest),
// or both at once.
//
// The zero value is an empty slot. Handles must be copied and mutated only
// under the single-writer discipline of the tree they belong to.
type Handle[L any] struct {
	kind handleKind
	leaf L

	// node is the resident child, nil if not materialized. owned marks the
	// resident child as exclusively reachable through this handle; unowned
	// residents are shared with the node cache and get cloned before any
	// write access is granted.
	node  *shared.Shared[Content[L]]
	owned bool

	// hash is the digest of the child's persisted form; hashClean indicates
	// that it matches the child's current content. A node slot without a
	// resident child always carries a clean digest.
	hash      common.Hash
	hashClean bool
}

// LeafHandle creates a slot holding the given leaf value inline.
func LeafHandle[L any](leaf L) Handle[L] {
	return Handle[L]{kind: kindLeaf, leaf: leaf}
}

// NodeHandle creates a slot referencing the given node as an exclusively
// owned resident child. Its digest is unknown until the next refresh.
func NodeHandle[L any](node Content[L]) Handle[L] {
	return Handle[L]{kind: kindNode, node: shared.MakeShared(node), owned: true}
}

// PersistedHandle creates a slot referencing the child node stored under the
// given digest.
func PersistedHandle[L any](hash common.Hash) Handle[L] {
	return Handle[L]{kind: kindNode, hash: hash, hashClean: true}
}

// IsEmpty returns true if the slot holds nothing.
func (h *Handle[L]) IsEmpty() bool {
	return h.kind == kindEmpty
}

// IsLeaf returns true if the slot holds a leaf value.
func (h *Handle[L]) IsLeaf() bool {
	return h.kind == kindLeaf
}

// IsNode returns true if the slot references a child node.
func (h *Handle[L]) IsNode() bool {
	return h.kind == kindNode
}

// Leaf returns the leaf value held by this slot, if any.
func (h *Handle[L]) Leaf() (L, bool) {
	return h.leaf, h.kind == kindLeaf
}

// Digest returns the digest of the referenced child's persisted form. The
// second return value is false for non-node slots and for slots whose digest
// has been invalidated by a mutation and not yet recomputed.
func (h *Handle[L]) Digest() (common.Hash, bool) {
	if h.kind != kindNode || !h.hashClean {
		return common.Hash{}, false
	}
	return h.hash, true
}

// Resident returns the materialized node referenced by this slot, or nil if
// the slot does not reference a node or the node is not resident. It is
// intended for shape code inspecting children during Prune, where the
// single-writer discipline guarantees no concurrent writer.
func (h *Handle[L]) Resident() Content[L] {
	if h.kind != kindNode || h.node == nil {
		return nil
	}
	read := h.node.GetReadHandle()
	defer read.Release()
	return read.Get()
}

// SetEmpty clears the slot.
func (h *Handle[L]) SetEmpty() {
	var none L
	h.kind = kindEmpty
	h.leaf = none
	h.node = nil
	h.owned = false
	h.hashClean = false
}

// SetLeaf replaces the slot's content with the given leaf value.
func (h *Handle[L]) SetLeaf(leaf L) {
	h.kind = kindLeaf
	h.leaf = leaf
	h.node = nil
	h.owned = false
	h.hashClean = false
}

// SetNode replaces the slot's content with a reference to the given node,
// which becomes an exclusively owned resident child.
func (h *Handle[L]) SetNode(node Content[L]) {
	var none L
	h.kind = kindNode
	h.leaf = none
	h.node = shared.MakeShared(node)
	h.owned = true
	h.hashClean = false
}
