package record

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var (
	errIncompatibleRounding = errors.New("rounding vector length must equal id length")
	errIDLongerThanRecord   = errors.New("id length cannot exceed record length")
	errWrongValueCount      = errors.New("value count does not match configured record length")
	errHashMismatch         = errors.New("decrypted record does not reproduce the envelope's claimed hash")
)

// encodeValues packs values as little-endian IEEE-754 doubles, the
// encryption plaintext format spec.md §4.1 mandates for the full record
// (distinct from the keyed-hash input, which uses CanonicalRecord's textual
// encoding over the rounded identity only).
func encodeValues(values []float64) []byte {
	buf := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

// decodeValues inverts encodeValues.
func decodeValues(data []byte) ([]float64, error) {
	if len(data)%8 != 0 {
		return nil, fmt.Errorf("record plaintext length %d is not a multiple of 8", len(data))
	}
	values := make([]float64, len(data)/8)
	for i := range values {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
	}
	return values, nil
}
