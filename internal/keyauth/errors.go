package keyauth

import "errors"

var errRowOutOfRange = errors.New("keyauth: row index outside the encryption-key table")
