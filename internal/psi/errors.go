package psi

import "errors"

var (
	errSetTooLarge       = errors.New("psi: deduplicated set exceeds configured set size")
	errEvictionOverflow  = errors.New("psi: cuckoo insertion exceeded maximum eviction chain")
	errTableSizeMismatch = errors.New("psi: peer's cuckoo table size does not match this session")
)
