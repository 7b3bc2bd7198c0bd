// Package backend defines the contract between the tree engine and the
// content-addressed blob stores it persists nodes into. A backend is a flat
// mapping from digests to byte sequences; all structure lives above it.
package backend

import (
	"github.com/trunklab/trunk/common"
)

//go:generate mockgen -source backend.go -destination backend_mocks.go -package backend

// ErrNotFound is returned by Get when no blob is stored under the requested
// digest. When the digest was obtained from a trusted node reference this
// indicates store corruption and must not be swallowed.
const ErrNotFound = common.ConstError("blob not found in backend")

// Backend is a content-addressed store of raw byte sequences.
//
// Implementations must be safe for concurrent use. Writes must be atomic with
// respect to concurrent readers: a Get never observes a half-written blob.
type Backend interface {
	// Put stores the given bytes and returns the digest they are addressed
	// by. Storing identical bytes repeatedly is safe, yields the same digest
	// every time, and may be deduplicated to a no-op.
	Put(data []byte) (common.Hash, error)

	// Get returns the blob stored under the given digest, or ErrNotFound.
	// The returned slice must not be modified by the caller.
	Get(hash common.Hash) ([]byte, error)

	// Size returns the approximate total number of bytes retained.
	Size() int
}
