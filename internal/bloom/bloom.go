// Package bloom provides a fixed-size, serialisable Bloom filter used by the
// matching orchestrator's bloom-mode candidate filter.
package bloom

import (
	"encoding/base64"
	"encoding/binary"
	"math"

	"github.com/dchest/siphash"

	"github.com/paramexchange/core/internal/errs"
)

// Filter is a fixed-size bitset with k independent hash functions, derived
// from a single siphash key by varying a counter rather than running k
// distinct hash algorithms.
type Filter struct {
	m        uint64
	k        uint64
	key0     uint64
	key1     uint64
	bitArray []uint64
}

// NewFilter returns an empty filter sized for capacity items at the given
// false-positive rate, using the standard optimal-m/k formulas.
func NewFilter(capacity uint64, falsePositiveRate float64, key0, key1 uint64) *Filter {
	m := optimalM(capacity, falsePositiveRate)
	k := optimalK(capacity, m)
	return NewFilterSized(m, k, key0, key1)
}

// NewFilterSized returns an empty filter with an explicit bit count and hash
// count.
func NewFilterSized(m, k uint64, key0, key1 uint64) *Filter {
	if m == 0 {
		m = 1
	}
	if k == 0 {
		k = 1
	}
	blocks := (m + 63) / 64
	return &Filter{m: m, k: k, key0: key0, key1: key1, bitArray: make([]uint64, blocks)}
}

func optimalM(n uint64, p float64) uint64 {
	if n == 0 {
		n = 1
	}
	m := -float64(n) * math.Log(p) / (math.Ln2 * math.Ln2)
	return uint64(math.Ceil(m))
}

func optimalK(n, m uint64) uint64 {
	if n == 0 {
		return 1
	}
	k := (float64(m) / float64(n)) * math.Ln2
	if k < 1 {
		k = 1
	}
	return uint64(math.Round(k))
}

// Add inserts data into the filter.
func (f *Filter) Add(data []byte) {
	h := siphash.Hash(f.key0, f.key1, data)
	for i := uint64(0); i < f.k; i++ {
		idx := f.slot(h, i)
		f.setBit(idx)
	}
}

// Test reports whether data is possibly a member (false means definitely
// not a member).
func (f *Filter) Test(data []byte) bool {
	h := siphash.Hash(f.key0, f.key1, data)
	for i := uint64(0); i < f.k; i++ {
		idx := f.slot(h, i)
		if !f.getBit(idx) {
			return false
		}
	}
	return true
}

// slot derives the i-th bit index as h + i*h2 (Kirsch-Mitzenmacher double
// hashing), where h2 is a siphash of the 8-byte h under a key varied by i,
// so each index costs one extra siphash of 8 bytes.
func (f *Filter) slot(h uint64, i uint64) uint64 {
	h2 := siphash.Hash(f.key1, f.key0^i, uint64ToBytes(h))
	return (h + i*h2) % f.m
}

func uint64ToBytes(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

func (f *Filter) setBit(idx uint64) { f.bitArray[idx/64] |= 1 << (idx % 64) }
func (f *Filter) getBit(idx uint64) bool {
	return f.bitArray[idx/64]&(1<<(idx%64)) != 0
}

// MarshalBinary serialises m, k, the siphash key, and the bit array.
func (f *Filter) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 32+8*len(f.bitArray))
	binary.LittleEndian.PutUint64(buf[0:8], f.m)
	binary.LittleEndian.PutUint64(buf[8:16], f.k)
	binary.LittleEndian.PutUint64(buf[16:24], f.key0)
	binary.LittleEndian.PutUint64(buf[24:32], f.key1)
	for i, w := range f.bitArray {
		binary.LittleEndian.PutUint64(buf[32+8*i:40+8*i], w)
	}
	return buf, nil
}

// UnmarshalBinary restores a filter produced by MarshalBinary.
func (f *Filter) UnmarshalBinary(data []byte) error {
	if len(data) < 32 {
		return errs.IntegrityError("bloom.UnmarshalBinary", errTooShort)
	}
	f.m = binary.LittleEndian.Uint64(data[0:8])
	f.k = binary.LittleEndian.Uint64(data[8:16])
	f.key0 = binary.LittleEndian.Uint64(data[16:24])
	f.key1 = binary.LittleEndian.Uint64(data[24:32])
	blocks := (f.m + 63) / 64
	if len(data) != 32+8*int(blocks) {
		return errs.IntegrityError("bloom.UnmarshalBinary", errBadLength)
	}
	f.bitArray = make([]uint64, blocks)
	for i := range f.bitArray {
		f.bitArray[i] = binary.LittleEndian.Uint64(data[32+8*i : 40+8*i])
	}
	return nil
}

// ToBase64 exports the filter as a base64 string, for the broker's /bloom
// endpoint.
func (f *Filter) ToBase64() (string, error) {
	b, err := f.MarshalBinary()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// FromBase64 imports a filter exported by ToBase64.
func FromBase64(s string) (*Filter, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, errs.IntegrityError("bloom.FromBase64", err)
	}
	f := &Filter{}
	if err := f.UnmarshalBinary(raw); err != nil {
		return nil, err
	}
	return f, nil
}
