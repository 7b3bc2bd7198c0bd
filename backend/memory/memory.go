// Package memory provides a volatile, map-backed content-addressed store,
// intended for tests and short-lived trees.
package memory

import (
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/trunklab/trunk/backend"
	"github.com/trunklab/trunk/common"
)

// Store is an in-memory implementation of the backend.Backend interface.
// All operations are safe for concurrent use.
type Store struct {
	hasher common.Hasher
	mutex  sync.RWMutex
	blobs  map[common.Hash][]byte
	bytes  int
}

// NewStore creates an empty volatile store addressing content using the
// given hash algorithm.
func NewStore(algorithm common.HashAlgorithm) *Store {
	return &Store{
		hasher: algorithm.NewHasher(),
		blobs:  map[common.Hash][]byte{},
	}
}

func (s *Store) Put(data []byte) (common.Hash, error) {
	hash := s.hasher.Hash(data)
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, present := s.blobs[hash]; present {
		return hash, nil
	}
	// Copy the blob to decouple it from the caller's buffer.
	stored := make([]byte, len(data))
	copy(stored, data)
	s.blobs[hash] = stored
	s.bytes += len(stored)
	return hash, nil
}

func (s *Store) Get(hash common.Hash) ([]byte, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	data, present := s.blobs[hash]
	if !present {
		return nil, backend.ErrNotFound
	}
	return data, nil
}

func (s *Store) Size() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.bytes
}

// Hashes returns the digests of all retained blobs in ascending order. It is
// a diagnostic aid for tests and consistency checks.
func (s *Store) Hashes() []common.Hash {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	res := maps.Keys(s.blobs)
	slices.SortFunc(res, func(a, b common.Hash) bool {
		return a.Compare(b) < 0
	})
	return res
}
