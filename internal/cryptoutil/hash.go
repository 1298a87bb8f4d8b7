package cryptoutil

import (
	"math/big"

	"golang.org/x/crypto/sha3"
)

// LongHash computes the keyed SHA3-512 digest of a rounded record's
// canonical identifier: sha3_512(key || canonical(roundedID)). The hash key
// is never transmitted; only holders of it can compute indices that compare
// equal across parties.
func LongHash(key []byte, roundedID []float64) [64]byte {
	h := sha3.New512()
	h.Write(key)
	h.Write(CanonicalRecord(roundedID))
	var out [64]byte
	copy(out[:], h.Sum(nil))
	return out
}

// HashToIndex extracts the low `bits` bits of hash, read as a little-endian
// byte string with a masked-off overhang in the top partial byte. This
// mirrors the original record hashing scheme's bit windowing exactly, since
// the spec leaves the byte/overhang convention unspecified.
func HashToIndex(hash []byte, bits int) *big.Int {
	if bits <= 0 {
		return new(big.Int)
	}
	nBytes := (bits + 7) / 8
	if nBytes > len(hash) {
		nBytes = len(hash)
	}
	buf := make([]byte, nBytes)
	copy(buf, hash[:nBytes])

	if overhang := bits % 8; overhang != 0 {
		buf[nBytes-1] &= byte(1<<uint(overhang) - 1)
	}

	// buf is little-endian (buf[0] is the least-significant byte); big.Int
	// wants big-endian, so reverse before SetBytes.
	rev := make([]byte, len(buf))
	for i, b := range buf {
		rev[len(buf)-1-i] = b
	}
	return new(big.Int).SetBytes(rev)
}
