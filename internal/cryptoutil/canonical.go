package cryptoutil

import (
	"strconv"
	"strings"
)

// formatFloatRepr renders a float64 the way Python's repr() does for a
// float: shortest round-trip decimal, always showing a fractional part
// (333.0, never 333), switching to exponent notation outside [1e-4, 1e16).
func formatFloatRepr(x float64) string {
	abs := x
	if abs < 0 {
		abs = -abs
	}
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		s := strconv.FormatFloat(x, 'e', -1, 64)
		// Python: 1e+16 -> "1e+16"; Go's 'e' gives "1e+16" too, always
		// signing the exponent and writing at least two digits. The
		// padding below is a safeguard that keeps the two-digit form.
		mantissa, exp, ok := strings.Cut(s, "e")
		if !ok {
			return s
		}
		sign := exp[0:1]
		digits := exp[1:]
		if len(digits) < 2 {
			digits = "0" + digits
		}
		return mantissa + "e" + sign + digits
	}
	s := strconv.FormatFloat(x, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// CanonicalRecord renders a rounded vector byte-for-byte the way Python's
// repr(list) would, e.g. "[1.1, 22.2, 333.0]". This is the identifier the
// keyed hash is computed over, and must match the original wire format so
// ciphertexts and hashes stay compatible across implementations.
func CanonicalRecord(values []float64) []byte {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range values {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(formatFloatRepr(v))
	}
	b.WriteByte(']')
	return []byte(b.String())
}
