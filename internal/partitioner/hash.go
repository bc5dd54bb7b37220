package partitioner

import "github.com/cespare/xxhash/v2"

// HashBytes hashes b with xxhash.
func HashBytes(b []byte) uint64 {
	return xxhash.Sum64(b)
}

// HashString hashes s with xxhash.
func HashString(s string) uint64 {
	return xxhash.Sum64String(s)
}
