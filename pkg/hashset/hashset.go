// Package hashset implements a hash set as a thin projection of
// hashmap.Map[T, struct{}], mirroring original_source/src/set.rs's
// wrapper-over-map design (see SPEC_FULL.md §5.C).
package hashset

import (
	"iter"

	"github.com/calvinalkan/kvstore/pkg/hashmap"
)

// Set is a hash set of comparable T, backed by a hashmap.Map[T, struct{}].
type Set[T comparable] struct {
	inner *hashmap.Map[T, struct{}]
}

// New creates an empty, anonymous-region-backed set. It panics if the
// backing region cannot be acquired; see TryNew.
func New[T comparable](hasher hashmap.Hasher[T]) *Set[T] {
	return &Set[T]{inner: hashmap.New[T, struct{}](hasher)}
}

// TryNew creates an empty, anonymous-region-backed set.
func TryNew[T comparable](hasher hashmap.Hasher[T]) (*Set[T], error) {
	inner, err := hashmap.TryNew[T, struct{}](hasher)
	if err != nil {
		return nil, err
	}

	return &Set[T]{inner: inner}, nil
}

// NewFile creates an empty set whose members live in a file-backed region.
// It panics on storage error; see TryNewFile.
func NewFile[T comparable](path string, hasher hashmap.Hasher[T]) *Set[T] {
	return &Set[T]{inner: hashmap.NewFile[T, struct{}](path, hasher)}
}

// TryNewFile creates an empty set whose members live in a file-backed
// region.
func TryNewFile[T comparable](path string, hasher hashmap.Hasher[T]) (*Set[T], error) {
	inner, err := hashmap.TryNewFile[T, struct{}](path, hasher)
	if err != nil {
		return nil, err
	}

	return &Set[T]{inner: inner}, nil
}

// Len returns the number of members.
func (s *Set[T]) Len() int {
	return s.inner.Len()
}

// IsEmpty reports whether the set has no members.
func (s *Set[T]) IsEmpty() bool {
	return s.inner.IsEmpty()
}

// Contains reports whether value is a member.
func (s *Set[T]) Contains(value T) bool {
	return s.inner.ContainsKey(value)
}

// Get returns the stored member equal to value, if present.
func (s *Set[T]) Get(value T) (T, bool) {
	return s.inner.GetKey(value)
}

// Iter yields every member, in physical slot order.
func (s *Set[T]) Iter() iter.Seq[T] {
	return s.inner.Keys()
}

// Insert adds value, returning true if it was newly inserted (i.e. it was
// not already a member). A set has no notion of "replacing" a value since
// the value itself carries no payload, unlike Map.Insert's duplicate-key
// policy.
func (s *Set[T]) Insert(value T) bool {
	_, replaced := s.inner.Insert(value, struct{}{})

	return !replaced
}

// Remove removes value, returning whether it was present.
func (s *Set[T]) Remove(value T) bool {
	return s.inner.Remove(value)
}

// AverageProbeCount delegates to the backing map's diagnostic; see
// hashmap.Map.AverageProbeCount.
func (s *Set[T]) AverageProbeCount() float64 {
	return s.inner.AverageProbeCount()
}

// Close releases the backing region.
func (s *Set[T]) Close() error {
	return s.inner.Close()
}
