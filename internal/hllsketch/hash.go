package hllsketch

import (
	"crypto/sha1"

	"github.com/cespare/xxhash/v2"
	"github.com/spaolacci/murmur3"
)

// Hash64 maps an opaque byte sequence to a uniform 64-bit value used to seed
// a register update. Any well-mixing 64-bit hash is valid; SHA1Hash64 is the
// default for reproducible fixtures, while Murmur3Hash64 and XXHash64 are
// cheaper well-mixing alternatives for production use.
type Hash64 func(v []byte) uint64

// SHA1Hash64 takes the first 8 bytes of SHA-1(v), big-endian. Heavier than
// strictly necessary for this purpose, but kept as the default so
// documented test fixtures reproduce exactly.
func SHA1Hash64(v []byte) uint64 {
	sum := sha1.Sum(v)
	var h uint64
	for i := 0; i < 8; i++ {
		h = (h << 8) | uint64(sum[i])
	}
	return h
}

// Murmur3Hash64 hashes v with MurmurHash3 x64/128 and returns the first
// 64-bit half of the result.
func Murmur3Hash64(v []byte) uint64 {
	return murmur3.Sum64(v)
}

// XXHash64 hashes v with xxHash64.
func XXHash64(v []byte) uint64 {
	return xxhash.Sum64(v)
}
