package tree

// Method is a pluggable search strategy driving the engine's descent. It is
// the sole shape-specific hook of the navigation machinery: a trie method
// hashes a key and picks the matching bucket, an ordered-tree method compares
// keys, an enumeration method takes every occupied slot in order.
//
// Select receives the child slots of the current level starting at the
// level's current position and returns the index, relative to the given
// slice, of the slot to descend into, or false if no slot matches. Selecting
// a leaf slot terminates the search successfully, selecting a node slot
// descends into it, and selecting an empty slot counts as no match at this
// level.
//
// Select must decide based solely on the slice it is given. The engine
// re-queries a level after a failed descent with a slice that starts past
// the failed child, so a method honoring this contract can never send the
// search into a loop.
type Method[L any] interface {
	Select(children []Handle[L]) (int, bool)
}

// First is a Method selecting the first occupied slot at every level. Used
// with a fresh branch it enumerates all leaves of a tree in depth-first,
// slot-order sequence.
type First[L any] struct{}

func (First[L]) Select(children []Handle[L]) (int, bool) {
	for i := range children {
		if !children[i].IsEmpty() {
			return i, true
		}
	}
	return 0, false
}
