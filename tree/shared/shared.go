// Package shared provides access-permission wrappers for node instances that
// may be reachable from multiple places, such as the node cache and the
// handles of materialized trees.
//
// Two levels of access are supported:
//   - read access: shared, grants reading the wrapped value
//   - write access: exclusive, grants reading and modifying the wrapped value
//
// Access is granted through handles which must be released once the access is
// no longer needed. The wrappers serve a second purpose beyond locking: an
// exclusive navigation path through a tree is witnessed by the chain of write
// handles its levels hold, and an aliasing bug surfaces as a failing
// TryGetWriteHandle instead of silent data corruption.
package shared

import (
	"fmt"
	"sync"
)

// Shared is a wrapper controlling access to a value of type T.
type Shared[T any] struct {
	value T
	mutex sync.RWMutex
}

// MakeShared wraps the given value into a new shared object.
func MakeShared[T any](value T) *Shared[T] {
	return &Shared[T]{value: value}
}

// GetReadHandle blocks until shared read access to the value can be granted.
// The resulting handle must be released once the access is no longer needed.
func (s *Shared[T]) GetReadHandle() ReadHandle[T] {
	s.mutex.RLock()
	return ReadHandle[T]{handle[T]{s}}
}

// TryGetReadHandle attempts to get read access without blocking. The second
// return value indicates success; a successfully acquired handle must be
// released.
func (s *Shared[T]) TryGetReadHandle() (ReadHandle[T], bool) {
	if s.mutex.TryRLock() {
		return ReadHandle[T]{handle[T]{s}}, true
	}
	return ReadHandle[T]{}, false
}

// GetWriteHandle blocks until exclusive access to the value can be granted.
// The resulting handle must be released once the access is no longer needed.
func (s *Shared[T]) GetWriteHandle() WriteHandle[T] {
	s.mutex.Lock()
	return WriteHandle[T]{handle[T]{s}}
}

// TryGetWriteHandle attempts to get exclusive access without blocking. The
// second return value indicates success; a successfully acquired handle must
// be released. A failure means some other handle on the same value is live,
// which in a single-writer setting indicates an aliasing bug.
func (s *Shared[T]) TryGetWriteHandle() (WriteHandle[T], bool) {
	if s.mutex.TryLock() {
		return WriteHandle[T]{handle[T]{s}}, true
	}
	return WriteHandle[T]{}, false
}

type handle[T any] struct {
	shared *Shared[T]
}

// Valid returns true if this handle represents an active access permission.
// Default initialized and released handles are invalid.
func (h *handle[T]) Valid() bool {
	return h.shared != nil
}

// Get returns the wrapped value. Must only be called on valid handles.
func (h *handle[T]) Get() T {
	return h.shared.value
}

// ReadHandle represents shared read access to a value of type T. While any
// read handle is valid no write access is granted.
type ReadHandle[T any] struct {
	handle[T]
}

// Release abandons the access permission, allowing other operations to gain
// access. The handle becomes invalid.
func (h *ReadHandle[T]) Release() {
	h.shared.mutex.RUnlock()
	h.shared = nil
}

func (h *ReadHandle[T]) String() string {
	return fmt.Sprintf("ReadHandle(%p)", h.shared)
}

// WriteHandle represents exclusive access to a value of type T. While a write
// handle is valid no other access is granted.
type WriteHandle[T any] struct {
	handle[T]
}

// Ref returns a pointer to the wrapped value. Must only be called on valid
// handles.
func (h *WriteHandle[T]) Ref() *T {
	return &h.shared.value
}

// Set replaces the wrapped value. Must only be called on valid handles.
func (h *WriteHandle[T]) Set(value T) {
	h.shared.value = value
}

// Release abandons the access permission, allowing other operations to gain
// access. The handle becomes invalid.
func (h *WriteHandle[T]) Release() {
	h.shared.mutex.Unlock()
	h.shared = nil
}

func (h *WriteHandle[T]) String() string {
	return fmt.Sprintf("WriteHandle(%p)", h.shared)
}
