// Package hashmap implements a Robin-Hood open-addressing hash table whose
// entries live directly inside a region.Capability, so the whole table
// (including tombstones) is a flat, offset-addressed buffer rather than a
// graph of heap-allocated buckets.
package hashmap

import (
	"errors"
	"fmt"
	"iter"

	"github.com/calvinalkan/kvstore/pkg/region"
)

// ErrStorage indicates the backing region could not be acquired or grown.
var ErrStorage = errors.New("hashmap: storage error")

const (
	initialSize       = 256
	loadFactorPercent = 90
	tombstoneBit      = uint64(1) << 63
)

// Elem is the in-place representation of one slot: a key/value pair plus
// its normalized hash. hash == 0 means the slot is empty; hash's top bit
// set means the slot is a tombstone; otherwise the slot is occupied and
// the low 63 bits are the key's digest.
type Elem[K any, V any] struct {
	Key   K
	Value V
	Hash  uint64
}

// Map is a Robin-Hood hash map with entries stored inside a
// region.Capability[Elem[K,V]].
//
// Map is not safe for concurrent use; callers must serialize all mutating
// access themselves (see spec.md §5 — this mirrors the single-writer model
// of the region it sits on).
type Map[K comparable, V any] struct {
	buffer          region.Capability[Elem[K, V]]
	hasher          Hasher[K]
	numElems        int
	capacity        int
	mask            uint64
	resizeThreshold int
}

func normalizeHash[K any](hasher Hasher[K], key K) uint64 {
	h := hasher(key) &^ tombstoneBit
	if h == 0 {
		h = 1
	}

	return h
}

func isTombstone(hash uint64) bool {
	return hash&tombstoneBit != 0
}

func zeroAllHashes[K comparable, V any](buf region.Capability[Elem[K, V]]) {
	for i := 0; i < buf.Len(); i++ {
		buf.At(i).Hash = 0
	}
}

func thresholdFor(capacity int) int {
	return (capacity * loadFactorPercent) / 100
}

// New creates an empty, anonymous-region-backed map. It panics if the
// backing region cannot be acquired (see TryNew for the fallible form).
func New[K comparable, V any](hasher Hasher[K]) *Map[K, V] {
	m, err := TryNew[K, V](hasher)
	if err != nil {
		panic(err)
	}

	return m
}

// TryNew creates an empty, anonymous-region-backed map.
func TryNew[K comparable, V any](hasher Hasher[K]) (*Map[K, V], error) {
	buf, err := region.OpenAnonymous[Elem[K, V]](initialSize)
	if err != nil {
		return nil, fmt.Errorf("hashmap: new: %w: %w", ErrStorage, err)
	}

	return newMap[K, V](buf, hasher), nil
}

// NewFile creates an empty map whose slots live in a file-backed region at
// path. It panics on storage error; see TryNewFile.
func NewFile[K comparable, V any](path string, hasher Hasher[K]) *Map[K, V] {
	m, err := TryNewFile[K, V](path, hasher)
	if err != nil {
		panic(err)
	}

	return m
}

// TryNewFile creates an empty map whose slots live in a file-backed region.
func TryNewFile[K comparable, V any](path string, hasher Hasher[K]) (*Map[K, V], error) {
	buf, err := region.OpenFile[Elem[K, V]](path, initialSize)
	if err != nil {
		return nil, fmt.Errorf("hashmap: new file %q: %w: %w", path, ErrStorage, err)
	}

	return newMap[K, V](buf, hasher), nil
}

func newMap[K comparable, V any](buf region.Capability[Elem[K, V]], hasher Hasher[K]) *Map[K, V] {
	zeroAllHashes[K, V](buf)

	return &Map[K, V]{
		buffer:          buf,
		hasher:          hasher,
		capacity:        initialSize,
		mask:            initialSize - 1,
		resizeThreshold: thresholdFor(initialSize),
	}
}

func (m *Map[K, V]) desiredPos(hash uint64) int {
	return int(hash & m.mask)
}

func (m *Map[K, V]) probeDistance(hash uint64, slotIndex int) int {
	distance := uint64(slotIndex) + uint64(m.capacity) - uint64(m.desiredPos(hash))

	return int(distance & m.mask)
}

// Len returns the number of live entries.
func (m *Map[K, V]) Len() int {
	return m.numElems
}

// IsEmpty reports whether the map has no live entries.
func (m *Map[K, V]) IsEmpty() bool {
	return m.numElems == 0
}

// ContainsKey reports whether key has a live entry.
func (m *Map[K, V]) ContainsKey(key K) bool {
	_, ok := m.lookupIndex(key)

	return ok
}

// Get returns the value for key, if live.
func (m *Map[K, V]) Get(key K) (V, bool) {
	if ix, ok := m.lookupIndex(key); ok {
		return m.buffer.Read(ix).Value, true
	}

	var zero V

	return zero, false
}

// GetMut returns a pointer to the value for key, if live, for in-place
// mutation.
func (m *Map[K, V]) GetMut(key K) (*V, bool) {
	if ix, ok := m.lookupIndex(key); ok {
		return &m.buffer.At(ix).Value, true
	}

	return nil, false
}

// GetKey returns the stored key equal to key, if live. Useful when K carries
// data beyond what Equal compares (not the case for comparable K, but kept
// for parity with the original set/map contract).
func (m *Map[K, V]) GetKey(key K) (K, bool) {
	if ix, ok := m.lookupIndex(key); ok {
		return m.buffer.Read(ix).Key, true
	}

	var zero K

	return zero, false
}

// Insert places key/value, growing the table if needed. If key already had
// a live entry, its value is replaced and the previous value is returned
// with replaced=true (see SPEC_FULL.md §5.B for why this, rather than the
// original's duplicate-slot behavior, is the chosen policy). It panics on
// storage error; see TryInsert.
func (m *Map[K, V]) Insert(key K, value V) (previous V, replaced bool) {
	previous, replaced, err := m.TryInsert(key, value)
	if err != nil {
		panic(err)
	}

	return previous, replaced
}

// TryInsert is the fallible form of Insert.
func (m *Map[K, V]) TryInsert(key K, value V) (previous V, replaced bool, err error) {
	hash := normalizeHash(m.hasher, key)

	if ix, ok := m.lookupIndex(key); ok {
		slot := m.buffer.At(ix)
		previous = slot.Value
		slot.Value = value

		return previous, true, nil
	}

	if err := m.maybeGrow(); err != nil {
		var zero V

		return zero, false, err
	}

	m.insertHelper(hash, key, value)
	m.numElems++

	var zero V

	return zero, false, nil
}

// Remove tombstones key's slot if live, returning whether it was present.
func (m *Map[K, V]) Remove(key K) bool {
	ix, ok := m.lookupIndex(key)
	if !ok {
		return false
	}

	m.buffer.At(ix).Hash |= tombstoneBit
	m.numElems--

	return true
}

func (m *Map[K, V]) maybeGrow() error {
	if m.numElems+1 < m.resizeThreshold {
		return nil
	}

	return m.grow()
}

func (m *Map[K, V]) grow() error {
	oldBuffer := m.buffer
	oldCapacity := m.capacity

	newCapacity := m.capacity * 2

	newBuffer, err := m.buffer.NewSized(newCapacity)
	if err != nil {
		return fmt.Errorf("hashmap: grow to %d: %w: %w", newCapacity, ErrStorage, err)
	}

	zeroAllHashes[K, V](newBuffer)

	m.buffer = newBuffer
	m.capacity = newCapacity
	m.mask = uint64(newCapacity - 1)
	m.resizeThreshold = thresholdFor(newCapacity)
	m.numElems = 0

	for i := 0; i < oldCapacity; i++ {
		elem := oldBuffer.Read(i)
		if elem.Hash == 0 || isTombstone(elem.Hash) {
			continue
		}

		m.insertHelper(elem.Hash, elem.Key, elem.Value)
		m.numElems++
	}

	return oldBuffer.Close()
}

// insertHelper runs the Robin-Hood probe/displacement loop and returns the
// slot index the caller's original key lands in.
func (m *Map[K, V]) insertHelper(hash uint64, key K, value V) int {
	pos := m.desiredPos(hash)
	dist := 0
	landedAt := -1

	for {
		slot := m.buffer.At(pos)

		if slot.Hash == 0 {
			*slot = Elem[K, V]{Key: key, Value: value, Hash: hash}
			if landedAt == -1 {
				landedAt = pos
			}

			return landedAt
		}

		residentDist := m.probeDistance(slot.Hash, pos)

		if residentDist < dist {
			if isTombstone(slot.Hash) {
				*slot = Elem[K, V]{Key: key, Value: value, Hash: hash}
				if landedAt == -1 {
					landedAt = pos
				}

				return landedAt
			}

			if landedAt == -1 {
				landedAt = pos
			}

			hash, slot.Hash = slot.Hash, hash
			key, slot.Key = slot.Key, key
			value, slot.Value = slot.Value, value
			dist = residentDist
		}

		pos = (pos + 1) & int(m.mask)
		dist++
	}
}

func (m *Map[K, V]) lookupIndex(key K) (int, bool) {
	hash := normalizeHash(m.hasher, key)
	pos := m.desiredPos(hash)
	dist := 0

	for {
		slot := m.buffer.Read(pos)

		if slot.Hash == 0 {
			return 0, false
		}

		if !isTombstone(slot.Hash) {
			if dist > m.probeDistance(slot.Hash, pos) {
				return 0, false
			}

			if slot.Hash == hash && slot.Key == key {
				return pos, true
			}
		}

		pos = (pos + 1) & int(m.mask)
		dist++
	}
}

// AverageProbeCount returns the mean probe distance across live slots plus
// one (i.e. the average number of slots examined per successful lookup). It
// is a read-only diagnostic carried over from the original implementation;
// see SPEC_FULL.md §6.
func (m *Map[K, V]) AverageProbeCount() float64 {
	if m.numElems == 0 {
		return 0
	}

	total := 0.0

	for i := 0; i < m.capacity; i++ {
		elem := m.buffer.Read(i)
		if elem.Hash != 0 && !isTombstone(elem.Hash) {
			total += float64(m.probeDistance(elem.Hash, i))
		}
	}

	return total/float64(m.numElems) + 1
}

// Iter yields every live key/value pair in physical slot order.
func (m *Map[K, V]) Iter() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for i := 0; i < m.capacity; i++ {
			elem := m.buffer.Read(i)
			if elem.Hash == 0 || isTombstone(elem.Hash) {
				continue
			}

			if !yield(elem.Key, elem.Value) {
				return
			}
		}
	}
}

// Keys yields every live key, in physical slot order.
func (m *Map[K, V]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		for k := range m.Iter() {
			if !yield(k) {
				return
			}
		}
	}
}

// Values yields every live value, in physical slot order.
func (m *Map[K, V]) Values() iter.Seq[V] {
	return func(yield func(V) bool) {
		for _, v := range m.Iter() {
			if !yield(v) {
				return
			}
		}
	}
}

// Entry returns a handle to key's slot, found with one lookup. Reads and
// updates through an occupied entry reuse that slot; OrInsert/OrInsertWith
// on a vacant entry insert through TryInsert and then look the key up again.
func (m *Map[K, V]) Entry(key K) Entry[K, V] {
	ix, ok := m.lookupIndex(key)

	return Entry[K, V]{m: m, key: key, index: ix, found: ok}
}

// Entry is a handle to a single map slot obtained from Map.Entry.
type Entry[K comparable, V any] struct {
	m     *Map[K, V]
	key   K
	index int
	found bool
}

// Key returns the entry's key, whether the entry is occupied or vacant.
func (e Entry[K, V]) Key() K {
	return e.key
}

// Get returns the entry's value, if occupied. Mirrors OccupiedEntry::get.
func (e Entry[K, V]) Get() (V, bool) {
	if !e.found {
		var zero V

		return zero, false
	}

	return e.m.buffer.Read(e.index).Value, true
}

// GetMut returns a pointer to the entry's value, if occupied. Mirrors
// OccupiedEntry::get_mut.
func (e Entry[K, V]) GetMut() (*V, bool) {
	if !e.found {
		return nil, false
	}

	return &e.m.buffer.At(e.index).Value, true
}

// IntoMut returns a pointer to the entry's value if the key is occupied.
// Mirrors OccupiedEntry::into_mut; identical to GetMut in Go since there is
// no move semantics distinguishing a consuming call from a borrowing one.
func (e Entry[K, V]) IntoMut() (*V, bool) {
	return e.GetMut()
}

// Insert replaces the entry's value in place and returns the value it held,
// if occupied. Mirrors OccupiedEntry::insert. A vacant entry is left
// untouched and ok is false: inserting a brand-new key belongs to
// OrInsert/OrInsertWith, not this method, matching how VacantEntry has no
// equivalent swap-and-return insert in the original.
func (e Entry[K, V]) Insert(value V) (previous V, ok bool) {
	if !e.found {
		var zero V

		return zero, false
	}

	slot := e.m.buffer.At(e.index)
	previous = slot.Value
	slot.Value = value

	return previous, true
}

// Remove tombstones the entry and returns the value it held, if occupied.
// Mirrors OccupiedEntry::remove.
func (e Entry[K, V]) Remove() (V, bool) {
	if !e.found {
		var zero V

		return zero, false
	}

	value := e.m.buffer.At(e.index).Value
	e.m.buffer.At(e.index).Hash |= tombstoneBit
	e.m.numElems--

	return value, true
}

// RemoveEntry tombstones the entry and returns its key and value, if
// occupied. Mirrors OccupiedEntry::remove_entry.
func (e Entry[K, V]) RemoveEntry() (K, V, bool) {
	if !e.found {
		var zeroK K

		var zeroV V

		return zeroK, zeroV, false
	}

	value, ok := e.Remove()

	return e.key, value, ok
}

// IntoKey returns the entry's key, consuming the entry. Mirrors
// VacantEntry::into_key; defined for both states since Go's Entry type is
// unified rather than split into Occupied/Vacant structs.
func (e Entry[K, V]) IntoKey() K {
	return e.key
}

// OrInsert returns a pointer to the existing value, inserting value if the
// entry is vacant.
func (e Entry[K, V]) OrInsert(value V) *V {
	return e.OrInsertWith(func() V { return value })
}

// OrInsertWith returns a pointer to the existing value, inserting f's result
// if the entry is vacant. f is not called for an occupied entry.
func (e Entry[K, V]) OrInsertWith(f func() V) *V {
	if e.found {
		return &e.m.buffer.At(e.index).Value
	}

	if _, _, err := e.m.TryInsert(e.key, f()); err != nil {
		panic(err)
	}

	ix, ok := e.m.lookupIndex(e.key)
	if !ok {
		panic("hashmap: entry: key not found immediately after insert")
	}

	return &e.m.buffer.At(ix).Value
}

// Close releases the backing region.
func (m *Map[K, V]) Close() error {
	return m.buffer.Close()
}
