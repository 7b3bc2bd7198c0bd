package tree

// Content is implemented by the node types of a concrete tree shape. A node
// owns an ordered sequence of child slots and, through the shape's Codec, a
// canonical byte representation from which its digest is derived. The digest
// of a node is a pure function of its encoded form; the engine keeps track of
// which digests are stale after mutations and recomputes them bottom-up.
//
// The leaf type L is the type of values stored inline in leaf slots.
type Content[L any] interface {
	// Children returns the node's ordered child slots. The returned slice
	// aliases the node's own storage; writes through it modify the node.
	Children() []Handle[L]

	// Clone returns a copy of this node backed by its own child slice. Slot
	// contents are copied by value; resident child nodes remain shared
	// between original and copy until one of them is materialized for
	// writing.
	Clone() Content[L]
}

// Codec translates nodes of one tree shape to and from their canonical byte
// form. Implementations must round trip exactly: decoding an encoded node
// yields a structurally equal node, and encoding is deterministic, since
// digests and cache keys are derived from the encoded bytes.
type Codec[L any] interface {
	EncodeNode(Content[L]) ([]byte, error)
	DecodeNode([]byte) (Content[L], error)
}

// Pruner may additionally be implemented by node types that collapse
// redundant structure after a mutation, such as a trie node inlining a
// subtree that shrank to a single leaf. BranchMut.Commit invokes Prune on
// every level from the deepest to the root, after the level's descendants
// have been pruned and refreshed.
type Pruner interface {
	Prune()
}
