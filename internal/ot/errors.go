package ot

import "errors"

var (
	errChooseRowOutOfRange = errors.New("ot: chosen row outside [0,n)")
	errColumnLength        = errors.New("ot: correction column has the wrong length")
	errConsistencyFailed   = errors.New("ot: malicious-secure consistency check failed")
)
