package psi

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"io"
	"math/big"

	"github.com/paramexchange/core/internal/errs"
	"github.com/paramexchange/core/internal/ot"
	"github.com/paramexchange/core/internal/transport"
)

// Config mirrors the PSI section of the platform configuration relevant
// to a single session.
type Config struct {
	SetSize int
}

// RunClient plays the cuckoo-table-holding side (the querier, per spec.md
// §4.4): it pads and cuckoo-hashes its own PSI indices, runs the OPRF
// setup as OT receiver, then checks each of its table slots against the
// server's broadcast tag set. It returns the indices, into the original
// (pre-padding) items slice, of items confirmed in the intersection.
func RunClient(rw io.ReadWriter, items []*big.Int, cfg Config) ([]int, error) {
	padded, err := PadSet(items, cfg.SetSize, true)
	if err != nil {
		return nil, err
	}

	keys, err := readHashKeys(rw)
	if err != nil {
		return nil, err
	}
	table := NewTable(cfg.SetSize, keys)
	for _, it := range padded {
		if err := table.Insert(it); err != nil {
			return nil, err
		}
	}
	fillEmptySlots(table)

	if err := transport.WriteFrame(rw, encodeInt(table.Len())); err != nil {
		return nil, err
	}

	receiver, err := ot.SetupOPRFReceiver(rw, table.Len())
	if err != nil {
		return nil, err
	}

	tagSet, err := readTagSet(rw)
	if err != nil {
		return nil, err
	}

	origByValue := make(map[string]int, len(items))
	for i, it := range items {
		origByValue[it.String()] = i
	}

	var hits []int
	for slot := 0; slot < table.Len(); slot++ {
		item := table.Slot(slot)
		if item == nil || IsDummy(item, cfg.SetSize, true) {
			continue
		}
		key := receiver.RowKey(slot)
		tag := oprfTag(key, item)
		if _, ok := tagSet[tag]; ok {
			if idx, ok := origByValue[item.String()]; ok {
				hits = append(hits, idx)
			}
		}
	}
	return hits, nil
}

// RunServer plays the broadcasting side: it evaluates the OPRF at every
// slot its items could have cuckoo-hashed to on the client's table (three
// candidate slots per item, per spec.md §4.4's three-hash scheme) and
// sends the resulting tag set. The set is first padded to cfg.SetSize, so
// the number of tags (up to three per padded item) follows the configured
// set size, not the number of real items.
func RunServer(rw io.ReadWriter, items []*big.Int, cfg Config) error {
	padded, err := PadSet(items, cfg.SetSize, false)
	if err != nil {
		return err
	}

	keys, err := randomHashKeys()
	if err != nil {
		return err
	}
	if err := writeHashKeys(rw, keys); err != nil {
		return err
	}

	mBytes, err := transport.ReadFrame(rw)
	if err != nil {
		return err
	}
	m := decodeInt(mBytes)
	hasher := NewHasher(m, keys)

	sender, err := ot.SetupOPRFSender(rw, m)
	if err != nil {
		return err
	}

	tags := make(map[[32]byte]struct{}, len(padded)*3)
	for _, it := range padded {
		for _, slot := range hasher.CandidateSlots(it) {
			key := sender.RowKey(slot)
			tags[oprfTag(key, it)] = struct{}{}
		}
	}
	return writeTagSet(rw, tags)
}

func oprfTag(key [32]byte, item *big.Int) [32]byte {
	h := sha256.New()
	h.Write(key[:])
	h.Write(item.Bytes())
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// fillEmptySlots occupies every physical table position that insertion
// left empty with a fresh dummy beyond the padding range, so every row
// carries a concrete value when the client computes its tags; these
// fillers lie above the client dummy base and are filtered as dummies.
func fillEmptySlots(t *Table) {
	base := new(big.Int).Lsh(big.NewInt(1), psiIndexBits+1)
	for i := range t.slots {
		if t.slots[i] == nil {
			t.slots[i] = new(big.Int).Add(base, big.NewInt(int64(i)))
		}
	}
}

func randomHashKeys() ([3][2]uint64, error) {
	var keys [3][2]uint64
	buf := make([]byte, 8)
	for i := 0; i < 3; i++ {
		for j := 0; j < 2; j++ {
			if _, err := rand.Read(buf); err != nil {
				return keys, errs.ResourceError("psi.randomHashKeys", err)
			}
			keys[i][j] = binary.BigEndian.Uint64(buf)
		}
	}
	return keys, nil
}

func writeHashKeys(rw io.ReadWriter, keys [3][2]uint64) error {
	buf := make([]byte, 0, 48)
	var tmp [8]byte
	for _, pair := range keys {
		for _, v := range pair {
			binary.BigEndian.PutUint64(tmp[:], v)
			buf = append(buf, tmp[:]...)
		}
	}
	return transport.WriteFrame(rw, buf)
}

func readHashKeys(rw io.ReadWriter) ([3][2]uint64, error) {
	var keys [3][2]uint64
	buf, err := transport.ReadFrame(rw)
	if err != nil {
		return keys, err
	}
	if len(buf) != 48 {
		return keys, errs.ProtocolError("psi.readHashKeys", errTableSizeMismatch)
	}
	off := 0
	for i := range keys {
		for j := range keys[i] {
			keys[i][j] = binary.BigEndian.Uint64(buf[off : off+8])
			off += 8
		}
	}
	return keys, nil
}

func writeTagSet(rw io.ReadWriter, tags map[[32]byte]struct{}) error {
	buf := make([]byte, 0, len(tags)*32)
	for tag := range tags {
		buf = append(buf, tag[:]...)
	}
	return transport.WriteFrame(rw, buf)
}

func readTagSet(rw io.ReadWriter) (map[[32]byte]struct{}, error) {
	buf, err := transport.ReadFrame(rw)
	if err != nil {
		return nil, err
	}
	if len(buf)%32 != 0 {
		return nil, errs.ProtocolError("psi.readTagSet", errTableSizeMismatch)
	}
	out := make(map[[32]byte]struct{}, len(buf)/32)
	for i := 0; i < len(buf); i += 32 {
		var tag [32]byte
		copy(tag[:], buf[i:i+32])
		out[tag] = struct{}{}
	}
	return out, nil
}

func encodeInt(n int) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(n))
	return buf[:]
}

func decodeInt(buf []byte) int {
	return int(binary.BigEndian.Uint64(buf))
}
