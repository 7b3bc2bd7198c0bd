package tree

import (
	"fmt"

	"github.com/trunklab/trunk/backend"
	"github.com/trunklab/trunk/common"
	"github.com/trunklab/trunk/tree/shared"
)

const (
	// ErrHashMismatch indicates that content fetched from a backend does not
	// hash to the digest it was requested under, pointing at backend
	// corruption or tampering.
	ErrHashMismatch = common.ConstError("node content does not match its digest")

	// ErrAliasedNode indicates that exclusive access to a node was requested
	// while some other operation holds access to it, violating the
	// single-writer-per-tree discipline.
	ErrAliasedNode = common.ConstError("node is aliased by a concurrent operation")

	// ErrNoNode indicates that a node operation was attempted on a slot that
	// is empty or holds a leaf.
	ErrNoNode = common.ConstError("slot does not reference a node")
)

// DefaultCacheCapacity is the number of decoded nodes a store retains if no
// capacity is configured.
const DefaultCacheCapacity = 4096

// Config collects the tunable parameters of a Store.
type Config struct {
	// Algorithm selects the digest function for content addressing. It must
	// match the algorithm of the underlying backend. Defaults to Sha256.
	Algorithm common.HashAlgorithm
	// CacheCapacity bounds the number of decoded nodes retained in memory.
	// A value below one selects DefaultCacheCapacity.
	CacheCapacity int
}

// Store combines a content-addressed backend, a node cache, and a shape's
// codec into the persistence layer of one tree shape. It is safe for use by
// any number of concurrent read traversals; mutating traversals require the
// single-writer-per-tree discipline described in the package documentation.
type Store[L any] struct {
	backend backend.Backend
	codec   Codec[L]
	hasher  common.Hasher
	cache   *NodeCache[L]
}

// NewStore creates a store persisting nodes of one tree shape into the given
// backend.
func NewStore[L any](b backend.Backend, codec Codec[L], config Config) *Store[L] {
	algorithm := config.Algorithm
	if algorithm.Name == "" {
		algorithm = common.Sha256
	}
	capacity := config.CacheCapacity
	if capacity < 1 {
		capacity = DefaultCacheCapacity
	}
	return &Store[L]{
		backend: b,
		codec:   codec,
		hasher:  algorithm.NewHasher(),
		cache:   NewNodeCache[L](capacity),
	}
}

// Hasher returns the digest function used for content addressing. Shapes use
// it to derive navigation paths from keys.
func (s *Store[L]) Hasher() common.Hasher {
	return s.hasher
}

// Snapshot addresses a persisted tree by the digest of its root node.
type Snapshot[L any] struct {
	hash common.Hash
}

// Hash returns the root digest this snapshot addresses.
func (s Snapshot[L]) Hash() common.Hash {
	return s.hash
}

// SnapshotOf creates a snapshot addressing the tree whose root is persisted
// under the given digest.
func SnapshotOf[L any](hash common.Hash) Snapshot[L] {
	return Snapshot[L]{hash: hash}
}

// Persist writes the given tree into the backend and returns a snapshot
// addressing its root. All stale digests in the tree are recomputed in the
// process, and every resident node is (re-)stored; content addressing makes
// re-storing unchanged nodes a no-op.
func (s *Store[L]) Persist(root Content[L]) (Snapshot[L], error) {
	hash, err := s.refreshDigests(root, true)
	if err != nil {
		return Snapshot[L]{}, err
	}
	return Snapshot[L]{hash: hash}, nil
}

// Restore materializes the root of the tree addressed by the given snapshot.
// The returned node is a private copy owned by the caller; its children are
// materialized lazily during navigation.
func (s *Store[L]) Restore(snapshot Snapshot[L]) (Content[L], error) {
	entry, err := s.resolve(snapshot.hash)
	if err != nil {
		return nil, err
	}
	read := entry.GetReadHandle()
	defer read.Release()
	return read.Get().Clone(), nil
}

// Update grants exclusive write access to the node referenced by the given
// slot, materializing it if necessary, and invalidates the slot's digest.
// It is the building block for shape-specific mutations that do not fit the
// BranchMut search pattern, such as inserts that create new structure.
func (s *Store[L]) Update(h *Handle[L], modify func(Content[L]) error) error {
	write, node, err := s.materializeExclusive(h)
	if err != nil {
		return err
	}
	defer write.Release()
	h.hashClean = false
	return modify(node)
}

// resolve returns the shared, immutable instance of the node persisted under
// the given digest, loading and verifying it on a cache miss.
func (s *Store[L]) resolve(hash common.Hash) (*shared.Shared[Content[L]], error) {
	return s.cache.GetOrLoad(hash, func() (Content[L], error) {
		data, err := s.backend.Get(hash)
		if err != nil {
			return nil, err
		}
		if got := s.hasher.Hash(data); got != hash {
			return nil, fmt.Errorf("%w: fetched %v, got content hashing to %v", ErrHashMismatch, hash, got)
		}
		node, err := s.codec.DecodeNode(data)
		if err != nil {
			return nil, fmt.Errorf("decoding node %v: %w", hash, err)
		}
		return node, nil
	})
}

// view grants shared read access to the node referenced by the given slot,
// materializing it through the cache if it is not resident. The returned
// read handle must be released when the access ends; the slot itself is left
// untouched.
func (s *Store[L]) view(h *Handle[L]) (shared.ReadHandle[Content[L]], Content[L], error) {
	var none shared.ReadHandle[Content[L]]
	if h.kind != kindNode {
		return none, nil, ErrNoNode
	}
	target := h.node
	if target == nil {
		entry, err := s.resolve(h.hash)
		if err != nil {
			return none, nil, err
		}
		target = entry
	}
	read := target.GetReadHandle()
	return read, read.Get(), nil
}

// materializeExclusive turns the given node slot into an exclusively owned
// resident node and returns a write handle on it. Cache-shared residents are
// cloned so the shared instance stays pristine; the private copy is stored
// back into the slot, making repeated materialization within one operation
// free. The slot's digest is left intact: granting write access alone does
// not change content.
func (s *Store[L]) materializeExclusive(h *Handle[L]) (shared.WriteHandle[Content[L]], Content[L], error) {
	var none shared.WriteHandle[Content[L]]
	if h.kind != kindNode {
		return none, nil, ErrNoNode
	}
	if h.node != nil && h.owned {
		write, ok := h.node.TryGetWriteHandle()
		if !ok {
			return none, nil, ErrAliasedNode
		}
		return write, write.Get(), nil
	}

	var source Content[L]
	if h.node != nil {
		read := h.node.GetReadHandle()
		source = read.Get()
		read.Release()
	} else {
		entry, err := s.resolve(h.hash)
		if err != nil {
			return none, nil, err
		}
		read := entry.GetReadHandle()
		source = read.Get()
		read.Release()
	}

	private := shared.MakeShared(source.Clone())
	h.node = private
	h.owned = true
	write, _ := private.TryGetWriteHandle() // fresh instance, cannot fail
	return write, write.Get(), nil
}

// refreshDigests recomputes the digest of the given node, refreshing stale
// resident children first so every child digest entering the encoding is
// current. With persist set, the encoded form of each visited node is also
// written to the backend.
//
// Digest recomputation itself is a pure function of in-memory state; errors
// can only originate from the shape's codec or, when persisting, the
// backend.
func (s *Store[L]) refreshDigests(node Content[L], persist bool) (common.Hash, error) {
	children := node.Children()
	for i := range children {
		h := &children[i]
		if h.kind != kindNode || h.node == nil {
			continue
		}
		if h.hashClean && !persist {
			continue
		}
		write, ok := h.node.TryGetWriteHandle()
		if !ok {
			return common.Hash{}, ErrAliasedNode
		}
		hash, err := s.refreshDigests(write.Get(), persist)
		write.Release()
		if err != nil {
			return common.Hash{}, err
		}
		h.hash = hash
		h.hashClean = true
	}

	data, err := s.codec.EncodeNode(node)
	if err != nil {
		return common.Hash{}, fmt.Errorf("encoding node: %w", err)
	}
	hash := s.hasher.Hash(data)
	if persist {
		stored, err := s.backend.Put(data)
		if err != nil {
			return common.Hash{}, err
		}
		if stored != hash {
			// The backend addresses content with a different algorithm than
			// this store; nothing it returns could ever be resolved again.
			return common.Hash{}, fmt.Errorf("%w: store addressed node as %v, backend as %v", ErrHashMismatch, hash, stored)
		}
	}
	return hash, nil
}
