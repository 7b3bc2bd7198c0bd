// Package ldb provides a content-addressed store backed by a LevelDB
// instance, suitable for stores with many small nodes where one file per
// blob would be wasteful.
package ldb

import (
	"errors"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/trunklab/trunk/backend"
	"github.com/trunklab/trunk/common"
)

// blobKeyPrefix separates blob records from any metadata records that may
// share the database in the future.
const blobKeyPrefix = byte('b')

// Store is a LevelDB implementation of the backend.Backend interface. The
// underlying database handle is safe for concurrent use, so the store is as
// well.
type Store struct {
	db     *leveldb.DB
	hasher common.Hasher
	wo     *opt.WriteOptions
}

// OpenStore opens (or creates) a LevelDB-backed blob store in the given
// directory. The returned store must be closed after use.
func OpenStore(directory string, algorithm common.HashAlgorithm) (*Store, error) {
	db, err := leveldb.OpenFile(directory, nil)
	if err != nil {
		return nil, err
	}
	return &Store{
		db:     db,
		hasher: algorithm.NewHasher(),
		wo:     &opt.WriteOptions{},
	}, nil
}

func (s *Store) Put(data []byte) (common.Hash, error) {
	hash := s.hasher.Hash(data)
	key := blobKey(hash)
	// Writing identical bytes twice is deduplicated; the key is derived from
	// the content, so an overwrite would store the same value again.
	present, err := s.db.Has(key, nil)
	if err != nil {
		return common.Hash{}, err
	}
	if present {
		return hash, nil
	}
	if err := s.db.Put(key, data, s.wo); err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

func (s *Store) Get(hash common.Hash) ([]byte, error) {
	data, err := s.db.Get(blobKey(hash), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, backend.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *Store) Size() int {
	size := 0
	iter := s.db.NewIterator(util.BytesPrefix([]byte{blobKeyPrefix}), nil)
	defer iter.Release()
	for iter.Next() {
		size += len(iter.Value())
	}
	return size
}

// Close flushes and closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func blobKey(hash common.Hash) []byte {
	key := make([]byte, 1+common.HashSize)
	key[0] = blobKeyPrefix
	copy(key[1:], hash[:])
	return key
}
