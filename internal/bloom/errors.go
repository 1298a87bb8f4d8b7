package bloom

import "errors"

var (
	errTooShort  = errors.New("bloom: data too short")
	errBadLength = errors.New("bloom: incorrect length for declared bit count")
)
