package ot

import "filippo.io/edwards25519"

// decodePoint parses a wire-transmitted curve point, grounded on the
// teacher's use of edwards25519.Point.SetBytes throughout blind.go.
func decodePoint(b []byte) (*edwards25519.Point, error) {
	return new(edwards25519.Point).SetBytes(b)
}
