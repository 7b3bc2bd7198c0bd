// Package file provides a persistent content-addressed store keeping each
// blob in its own file within a sharded directory layout.
package file

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/trunklab/trunk/backend"
	"github.com/trunklab/trunk/common"
)

// Store is a filesystem implementation of the backend.Backend interface.
// Blobs are stored under <root>/<first hash byte>/<hex digest>. Writes go
// through a temporary file and an atomic rename, so concurrent readers never
// observe partially written blobs.
type Store struct {
	root   string
	hasher common.Hasher
	mutex  sync.Mutex // serializes writers; readers are lock free
	bytes  int
}

// OpenStore opens a blob store rooted in the given directory, creating the
// directory if needed.
func OpenStore(directory string, algorithm common.HashAlgorithm) (*Store, error) {
	if err := os.MkdirAll(directory, 0700); err != nil {
		return nil, err
	}
	s := &Store{
		root:   directory,
		hasher: algorithm.NewHasher(),
	}
	size, err := s.scanSize()
	if err != nil {
		return nil, err
	}
	s.bytes = size
	return s, nil
}

func (s *Store) Put(data []byte) (common.Hash, error) {
	hash := s.hasher.Hash(data)
	path := s.pathOf(hash)

	s.mutex.Lock()
	defer s.mutex.Unlock()

	// Identical content is already present; content addressing makes the
	// write a no-op.
	if _, err := os.Stat(path); err == nil {
		return hash, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return common.Hash{}, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "blob-*.tmp")
	if err != nil {
		return common.Hash{}, err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return common.Hash{}, err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return common.Hash{}, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return common.Hash{}, err
	}
	s.bytes += len(data)
	return hash, nil
}

func (s *Store) Get(hash common.Hash) ([]byte, error) {
	data, err := os.ReadFile(s.pathOf(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, backend.ErrNotFound
		}
		return nil, fmt.Errorf("reading blob %v: %w", hash, err)
	}
	return data, nil
}

func (s *Store) Size() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.bytes
}

func (s *Store) pathOf(hash common.Hash) string {
	name := hex.EncodeToString(hash[:])
	return filepath.Join(s.root, name[:2], name)
}

// scanSize sums the sizes of all blobs present in the store directory. Only
// run when opening a store.
func (s *Store) scanSize() (int, error) {
	size := 0
	err := filepath.Walk(s.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) != ".tmp" {
			size += int(info.Size())
		}
		return nil
	})
	return size, err
}
