package ot

import (
	"crypto/sha256"
	"encoding/binary"
	"io"

	"golang.org/x/crypto/hkdf"
)

// kappa is the IKNP security parameter: the number of base OTs bootstrapped
// once per session, independent of how many rows (n, up to OT_SETSIZE) the
// extension later serves.
const kappa = 128

// columnSeeds is the receiver's view after the kappa base OTs: for every
// column j it holds both PRG seeds, since it played the base-OT sender.
type columnSeeds struct {
	Zero, One [kappa][16]byte
}

// senderSeeds is the sender's view: for every column j it holds exactly one
// seed, the one matching bit j of its secret mask delta, since it played
// the base-OT receiver.
type senderSeeds struct {
	Delta [16]byte // kappa-bit mask, packed into 16 bytes
	S     [kappa][16]byte
}

// prgBit derives one pseudorandom bit of column j's stream at row index
// row, expanding seed via HKDF the way the teacher expands shared ECDH
// secrets into symmetric key material (crypto/ecdh.go's DeriveSharedKey),
// generalized here from "one key" to "one bit per row".
func prgBit(seed [16]byte, row uint64) byte {
	var info [8]byte
	binary.BigEndian.PutUint64(info[:], row)
	r := hkdf.New(sha256.New, seed[:], nil, info[:])
	var out [1]byte
	if _, err := io.ReadFull(r, out[:]); err != nil {
		panic(err)
	}
	return out[0] & 1
}

func deltaBit(delta [16]byte, j int) byte {
	return (delta[j/8] >> uint(j%8)) & 1
}

// receiverColumnMessage is what the receiver sends the sender for column j
// after XORing its one-hot choice vector into the two seed streams: u_j[k]
// = G(seed0)[k] XOR G(seed1)[k] XOR r[k], for every row k. The sender never
// learns r from u_j alone since it is masked by the G(seed0) XOR G(seed1)
// term only the receiver can compute.
func receiverColumnMessage(cols columnSeeds, j int, n int, chooseRow int) []byte {
	out := make([]byte, (n+7)/8)
	for k := 0; k < n; k++ {
		r := byte(0)
		if k == chooseRow {
			r = 1
		}
		bit := prgBit(cols.Zero[j], uint64(k)) ^ prgBit(cols.One[j], uint64(k)) ^ r
		if bit != 0 {
			out[k/8] |= 1 << uint(k%8)
		}
	}
	return out
}

func getBit(packed []byte, k int) byte {
	return (packed[k/8] >> uint(k%8)) & 1
}

// senderRow reconstructs q_k, the sender's kappa-bit row value, from its
// base-OT seeds and the receiver's per-column correction messages u.
func senderRow(seeds senderSeeds, u [kappa][]byte, row int) [16]byte {
	var q [16]byte
	for j := 0; j < kappa; j++ {
		bit := prgBit(seeds.S[j], uint64(row))
		if deltaBit(seeds.Delta, j) == 1 {
			bit ^= getBit(u[j], row)
		}
		if bit != 0 {
			q[j/8] |= 1 << uint(j%8)
		}
	}
	return q
}

// receiverRow reconstructs t_k, the receiver's kappa-bit row value, from
// its own seeds alone (no message from the sender is needed for this half).
func receiverRow(cols columnSeeds, row int) [16]byte {
	var t [16]byte
	for j := 0; j < kappa; j++ {
		if prgBit(cols.Zero[j], uint64(row)) != 0 {
			t[j/8] |= 1 << uint(j%8)
		}
	}
	return t
}

// senderRowKeys derives the two candidate masks for row k: key0 matches
// the receiver's derived key when its choice bit at k is 0, key1 when it
// is 1. The sender cannot tell which the receiver actually holds; the
// receiver cannot compute the one it didn't choose, since that requires
// Delta, which it never learns.
func senderRowKeys(q, delta [16]byte) (key0, key1 [32]byte) {
	key0 = sha256.Sum256(q[:])
	qx := xor16(q, delta)
	key1 = sha256.Sum256(qx[:])
	return key0, key1
}

// receiverRowKey derives the receiver's single key for row k from t_k; it
// equals senderRowKeys's key0 or key1 depending on the choice bit the
// receiver folded into u_j during setup.
func receiverRowKey(t [16]byte) [32]byte {
	return sha256.Sum256(t[:])
}

func xor16(a, b [16]byte) [16]byte {
	var out [16]byte
	for i := range out {
		out[i] = a[i] ^ b[i]
	}
	return out
}
