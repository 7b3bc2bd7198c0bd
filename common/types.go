package common

import (
	"bytes"
	"encoding/hex"
)

// HashSize is the width, in bytes, of all digests handled by this library.
const HashSize = 32

// Hash is a fixed-width digest of a byte sequence. It is the key under which
// content is addressed in backend stores and node caches. The zero value is
// reserved and never produced by a hash function applied to stored content.
type Hash [HashSize]byte

func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// Compare orders hashes lexicographically, making them usable as sorted
// store keys. It returns -1, 0, or 1 analogous to bytes.Compare.
func (h Hash) Compare(other Hash) int {
	return bytes.Compare(h[:], other[:])
}

// HashFromBytes interprets the first HashSize bytes of the given slice as a
// hash. Shorter inputs are zero-padded at the end.
func HashFromBytes(data []byte) Hash {
	var h Hash
	copy(h[:], data)
	return h
}
