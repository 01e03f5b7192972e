package hashmap

import "encoding/binary"

// Hasher produces the 64-bit digest used to place a key.
//
// The digest is treated as opaque by Map: any function that distributes
// keys reasonably well works. The normalization in normalizeHash (clear the top
// bit, promote a zero result to one) makes the sentinel encoding
// unambiguous regardless of which Hasher is supplied.
type Hasher[K any] func(K) uint64

const (
	fnv1aOffsetBasis = uint64(14695981039346656037)
	fnv1aPrime       = uint64(1099511628211)
)

func fnv1a64(b []byte) uint64 {
	hash := fnv1aOffsetBasis
	for _, c := range b {
		hash ^= uint64(c)
		hash *= fnv1aPrime
	}

	return hash
}

// BytesHasher hashes a []byte key with FNV-1a 64.
func BytesHasher(b []byte) uint64 {
	return fnv1a64(b)
}

// StringHasher hashes a string key with FNV-1a 64.
func StringHasher(s string) uint64 {
	return fnv1a64([]byte(s))
}

// Uint64Hasher hashes a uint64 key with FNV-1a 64 over its little-endian
// bytes, so it hashes consistently regardless of host byte order.
func Uint64Hasher(v uint64) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)

	return fnv1a64(buf[:])
}

// IntHasher hashes an int key by delegating to Uint64Hasher.
func IntHasher(v int) uint64 {
	return Uint64Hasher(uint64(v))
}
