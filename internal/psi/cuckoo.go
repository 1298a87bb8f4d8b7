// Package psi implements the cuckoo-hashed private set intersection
// engine (C4), layered on internal/ot's OPRF extension.
package psi

import (
	"math/big"

	"github.com/dchest/siphash"

	"github.com/paramexchange/core/internal/errs"
)

const (
	// psiIndexBits mirrors spec.md's PSI_INDEX_LEN default; real items are
	// assumed to fit this many bits so dummy ranges never collide with them.
	psiIndexBits = 127
	maxEvictions = 500
)

// dummyBase returns the start of a disjoint dummy-value range: server
// dummies begin at 2^PSI_INDEX_LEN, client dummies begin at
// 2^PSI_INDEX_LEN + PSI_SETSIZE, per spec.md §4.4.
func dummyBase(setSize int, isClient bool) *big.Int {
	base := new(big.Int).Lsh(big.NewInt(1), psiIndexBits)
	if isClient {
		base.Add(base, big.NewInt(int64(setSize)))
	}
	return base
}

// PadSet deduplicates items and pads to exactly setSize with distinct
// dummy values, failing with CapacityExceeded before any network I/O if
// the deduplicated input already exceeds setSize.
func PadSet(items []*big.Int, setSize int, isClient bool) ([]*big.Int, error) {
	seen := make(map[string]struct{}, len(items))
	dedup := make([]*big.Int, 0, len(items))
	for _, it := range items {
		k := it.String()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		dedup = append(dedup, it)
	}
	if len(dedup) > setSize {
		return nil, errs.CapacityExceededError("psi.PadSet", errSetTooLarge)
	}
	base := dummyBase(setSize, isClient)
	out := make([]*big.Int, setSize)
	copy(out, dedup)
	for i := len(dedup); i < setSize; i++ {
		out[i] = new(big.Int).Add(base, big.NewInt(int64(i-len(dedup))))
	}
	return out, nil
}

// IsDummy reports whether an intersection hit is a padded placeholder the
// orchestrator must filter out, per spec.md §4.4.
func IsDummy(item *big.Int, setSize int, isClient bool) bool {
	return item.Cmp(dummyBase(setSize, isClient)) >= 0
}

// Table is a 3-way cuckoo hash table over PSI items, keyed by three
// independent siphash instances so insertion failure probability stays
// negligible at PSI_SETSIZE, per spec.md §4.4.
type Table struct {
	slots []*big.Int
	keys  [3][2]uint64
}

// NewTable builds an empty table sized for n items with three random hash
// keys; lib: github.com/dchest/siphash, the same fast independent-hash
// primitive internal/bloom uses, chosen for the same reason: cuckoo
// hashing needs several cheap, statistically independent hash functions,
// a different job from the collision-resistant keyed LongHash.
func NewTable(n int, keys [3][2]uint64) *Table {
	size := int(float64(n)*1.3) + 8
	return &Table{slots: make([]*big.Int, size), keys: keys}
}

// NewHasher builds a Table of exactly m slots purely for computing
// candidate positions — used by the PSI sender side, which never inserts
// into a physical table of its own but must agree on the same slot space
// as the receiver's cuckoo table.
func NewHasher(m int, keys [3][2]uint64) *Table {
	return &Table{slots: make([]*big.Int, m), keys: keys}
}

func (t *Table) hash(i int, item *big.Int) int {
	h := siphash.Hash(t.keys[i][0], t.keys[i][1], item.Bytes())
	return int(h % uint64(len(t.slots)))
}

// Insert places item using cuckoo eviction across the three candidate
// slots, returning a CapacityExceeded error if no placement is found
// within maxEvictions displacements — in practice this should not happen
// for tables sized by NewTable at the set's declared capacity.
func (t *Table) Insert(item *big.Int) error {
	cur := item
	for step := 0; step < maxEvictions; step++ {
		placed := false
		for i := 0; i < 3; i++ {
			slot := t.hash(i, cur)
			if t.slots[slot] == nil {
				t.slots[slot] = cur
				placed = true
				break
			}
		}
		if placed {
			return nil
		}
		slot := t.hash(step%3, cur)
		cur, t.slots[slot] = t.slots[slot], cur
	}
	return errs.CapacityExceededError("psi.Table.Insert", errEvictionOverflow)
}

// Slot returns the item (possibly nil) occupying a table position.
func (t *Table) Slot(i int) *big.Int { return t.slots[i] }

// Len returns the table's physical size (including empty slots).
func (t *Table) Len() int { return len(t.slots) }

// CandidateSlots returns the (up to) three positions a given item could
// occupy, used by the sender side which does not cuckoo-hash its own set
// but must evaluate the OPRF at every slot a receiver item might land on.
func (t *Table) CandidateSlots(item *big.Int) [3]int {
	var out [3]int
	for i := 0; i < 3; i++ {
		out[i] = t.hash(i, item)
	}
	return out
}
