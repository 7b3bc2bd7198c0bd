package common

import (
	"crypto/sha256"
	"sync"

	"golang.org/x/crypto/sha3"
)

// Hasher computes fixed-width digests of byte sequences. Implementations must
// be deterministic, collision resistant, and safe for concurrent use.
type Hasher interface {
	Hash(data []byte) Hash
}

// HashAlgorithm is a configuration token selecting the digest function used
// for content addressing. All components of a single store must be configured
// with the same algorithm.
type HashAlgorithm struct {
	Name   string
	create func() Hasher
}

func (a HashAlgorithm) String() string {
	return a.Name
}

// NewHasher creates a hasher instance implementing this algorithm.
func (a HashAlgorithm) NewHasher() Hasher {
	return a.create()
}

// Sha256 is the default content-addressing algorithm.
var Sha256 = HashAlgorithm{
	Name:   "Sha256",
	create: func() Hasher { return sha256Hasher{} },
}

// Keccak256 is provided for deployments that need to share digests with
// Ethereum-style tooling.
var Keccak256 = HashAlgorithm{
	Name:   "Keccak256",
	create: func() Hasher { return keccakHasher{} },
}

type sha256Hasher struct{}

func (sha256Hasher) Hash(data []byte) Hash {
	return Hash(sha256.Sum256(data))
}

// keccakHasherPool recycles hasher states to avoid a heap allocation per
// digest computation.
var keccakHasherPool = sync.Pool{New: func() any { return sha3.NewLegacyKeccak256() }}

type keccakHasher struct{}

func (keccakHasher) Hash(data []byte) Hash {
	state := keccakHasherPool.Get().(keccakState)
	state.Reset()
	state.Write(data)
	var res Hash
	state.Read(res[:])
	keccakHasherPool.Put(state)
	return res
}

// keccakState is the subset of the sha3 state used for computing digests. The
// Read function is used instead of Sum to avoid a defensive copy.
type keccakState interface {
	Reset()
	Write(in []byte) (int, error)
	Read(out []byte) (int, error)
}
