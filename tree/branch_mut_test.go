package tree

import (
	"errors"
	"testing"
)

func TestSearchMut_ExhaustedSearchReturnsNil(t *testing.T) {
	store := newTestStore()
	branch, err := SearchMut[entry](store, buildTestTree(), findKey{key: "missing"})
	if err != nil {
		t.Fatalf("failed to search tree: %v", err)
	}
	if branch != nil {
		branch.Close()
		t.Errorf("search for an absent key produced a branch")
	}
}

func TestBranchMut_ModifyLeafAndCommit(t *testing.T) {
	store := newTestStore()
	snapshot, err := store.Persist(buildTestTree())
	if err != nil {
		t.Fatalf("failed to persist tree: %v", err)
	}
	root, err := store.Restore(snapshot)
	if err != nil {
		t.Fatalf("failed to restore tree: %v", err)
	}

	branch, err := SearchMut(store, root, findKey{key: "b"})
	if err != nil {
		t.Fatalf("failed to search tree: %v", err)
	}
	if branch == nil {
		t.Fatalf("search found no leaf")
	}
	branch.Leaf().Value = 20
	if err := branch.Commit(); err != nil {
		t.Fatalf("failed to commit mutation: %v", err)
	}

	modified, err := store.Persist(root)
	if err != nil {
		t.Fatalf("failed to persist modified tree: %v", err)
	}
	if modified.Hash() == snapshot.Hash() {
		t.Errorf("modified tree persists to the original snapshot %v", snapshot.Hash())
	}

	restored, err := store.Restore(modified)
	if err != nil {
		t.Fatalf("failed to restore modified tree: %v", err)
	}
	for key, want := range map[string]uint64{"a": 1, "b": 20, "c": 3, "d": 4} {
		got, found := lookup(t, store, restored, key)
		if !found {
			t.Fatalf("modified tree misses key %s", key)
		}
		if got != want {
			t.Errorf("got value %d for key %s, want %d", got, key, want)
		}
	}
}

func TestBranchMut_CommitWritesFreshDigestIntoParentSlot(t *testing.T) {
	store := newTestStore()
	root := buildTestTree()
	if _, err := store.Persist(root); err != nil {
		t.Fatalf("failed to persist tree: %v", err)
	}
	before, ok := root.slots[0].Digest()
	if !ok {
		t.Fatalf("persisted slot carries no digest")
	}

	branch, err := SearchMut[entry](store, root, findKey{key: "a"})
	if err != nil {
		t.Fatalf("failed to search tree: %v", err)
	}
	if branch == nil {
		t.Fatalf("search found no leaf")
	}
	branch.Leaf().Value = 10
	if err := branch.Commit(); err != nil {
		t.Fatalf("failed to commit mutation: %v", err)
	}

	after, ok := root.slots[0].Digest()
	if !ok {
		t.Fatalf("slot digest is stale after commit")
	}
	if after == before {
		t.Errorf("slot digest %v did not change with its subtree", after)
	}
}

func TestBranchMut_RemoveLeafDropsEmptySubtree(t *testing.T) {
	store := newTestStore()
	root := buildTestTree()

	branch, err := SearchMut[entry](store, root, findKey{key: "d"})
	if err != nil {
		t.Fatalf("failed to search tree: %v", err)
	}
	if branch == nil {
		t.Fatalf("search found no leaf")
	}
	branch.LeafSlot().SetEmpty()
	if err := branch.Commit(); err != nil {
		t.Fatalf("failed to commit removal: %v", err)
	}

	// The subtree at root slot 2 held only the removed leaf and must have
	// been pruned away entirely.
	if !root.slots[2].IsEmpty() {
		t.Errorf("emptied subtree survived the commit")
	}
	if _, found := lookup(t, store, root, "d"); found {
		t.Errorf("removed leaf is still reachable")
	}
	for key, want := range map[string]uint64{"a": 1, "b": 2, "c": 3} {
		got, found := lookup(t, store, root, key)
		if !found {
			t.Fatalf("tree misses key %s after unrelated removal", key)
		}
		if got != want {
			t.Errorf("got value %d for key %s, want %d", got, key, want)
		}
	}
}

func TestBranchMut_RemoveLeafInlinesSingleLeafSubtree(t *testing.T) {
	store := newTestStore()
	root := buildTestTree()

	branch, err := SearchMut[entry](store, root, findKey{key: "b"})
	if err != nil {
		t.Fatalf("failed to search tree: %v", err)
	}
	if branch == nil {
		t.Fatalf("search found no leaf")
	}
	branch.LeafSlot().SetEmpty()
	if err := branch.Commit(); err != nil {
		t.Fatalf("failed to commit removal: %v", err)
	}

	// The subtree at root slot 0 shrank to the single leaf a, which must now
	// be inlined into the root.
	leaf, ok := root.slots[0].Leaf()
	if !ok {
		t.Fatalf("single-leaf subtree was not inlined")
	}
	if got, want := leaf, (entry{Key: "a", Value: 1}); got != want {
		t.Errorf("got inlined leaf %v, want %v", got, want)
	}
}

func TestBranchMut_DetectsAliasedPath(t *testing.T) {
	store := newTestStore()
	root := buildTestTree()

	first, err := SearchMut[entry](store, root, findKey{key: "a"})
	if err != nil {
		t.Fatalf("failed to search tree: %v", err)
	}
	if first == nil {
		t.Fatalf("search found no leaf")
	}
	defer first.Close()

	if _, err := SearchMut[entry](store, root, findKey{key: "a"}); !errors.Is(err, ErrAliasedNode) {
		t.Errorf("got error %v, want %v", err, ErrAliasedNode)
	}
}

func TestBranchMut_MutationLeavesCachePristine(t *testing.T) {
	store := newTestStore()
	snapshot, err := store.Persist(buildTestTree())
	if err != nil {
		t.Fatalf("failed to persist tree: %v", err)
	}
	root, err := store.Restore(snapshot)
	if err != nil {
		t.Fatalf("failed to restore tree: %v", err)
	}

	branch, err := SearchMut(store, root, findKey{key: "a"})
	if err != nil {
		t.Fatalf("failed to search tree: %v", err)
	}
	if branch == nil {
		t.Fatalf("search found no leaf")
	}
	branch.Leaf().Value = 99
	if err := branch.Commit(); err != nil {
		t.Fatalf("failed to commit mutation: %v", err)
	}

	pristine, err := store.Restore(snapshot)
	if err != nil {
		t.Fatalf("failed to restore pristine tree: %v", err)
	}
	if got, _ := lookup(t, store, pristine, "a"); got != 1 {
		t.Errorf("got value %d for key a in pristine restore, want 1", got)
	}
}

func TestBranchMut_RootOnlyTreeCommits(t *testing.T) {
	store := newTestStore()
	root := newTestNode()
	root.slots[0].SetLeaf(entry{Key: "a", Value: 1})

	branch, err := SearchMut[entry](store, root, findKey{key: "a"})
	if err != nil {
		t.Fatalf("failed to search tree: %v", err)
	}
	if branch == nil {
		t.Fatalf("search found no leaf")
	}
	branch.Leaf().Value = 2
	if err := branch.Commit(); err != nil {
		t.Fatalf("failed to commit mutation: %v", err)
	}

	if got, _ := lookup(t, store, root, "a"); got != 2 {
		t.Errorf("got value %d for key a, want 2", got)
	}
}

func TestPartialBranchMut_InvalidSearchYieldsNoBranch(t *testing.T) {
	store := newTestStore()
	partial := NewPartialBranchMut[entry](store, newTestNode())
	defer partial.Close()

	if err := partial.AdvanceSearch(First[entry]{}); err != nil {
		t.Fatalf("failed to search empty tree: %v", err)
	}
	if partial.Valid() {
		t.Errorf("search through an empty tree reports a valid branch")
	}
	if partial.Branch() != nil {
		t.Errorf("invalid partial branch converted into a branch")
	}
}

func TestBranchMut_CloseAbandonsHeldAccess(t *testing.T) {
	store := newTestStore()
	root := buildTestTree()

	branch, err := SearchMut[entry](store, root, findKey{key: "a"})
	if err != nil {
		t.Fatalf("failed to search tree: %v", err)
	}
	if branch == nil {
		t.Fatalf("search found no leaf")
	}
	branch.Close()

	// With all access released, a new mutable search must succeed.
	second, err := SearchMut[entry](store, root, findKey{key: "a"})
	if err != nil {
		t.Fatalf("failed to search tree after close: %v", err)
	}
	if second == nil {
		t.Fatalf("search found no leaf after close")
	}
	second.Close()
}
