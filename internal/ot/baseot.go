// Package ot implements the OT-extension engine (C3): a small number of
// expensive elliptic-curve base OTs bootstrap a correlated matrix that
// cheaply serves many 1-out-of-N transfers for the PSI engine (C4) and the
// encryption-key retrieval step of the matching orchestrator (C5).
package ot

import (
	"crypto/sha256"

	"filippo.io/edwards25519"
)

const seedLen = 16

// baseOTSenderStep1 picks the sender's ephemeral scalar and public point.
// Grounded on the teacher's RandomScalar/BlindPoint (blind.go): the same
// random-scalar-times-basepoint idiom, repurposed from PSI blinding to
// seeding a 1-out-of-2 base OT (the "Simplest OT" construction).
func baseOTSenderStep1() (a *edwards25519.Scalar, A *edwards25519.Point) {
	a = randomScalar()
	A = new(edwards25519.Point).ScalarBaseMult(a)
	return a, A
}

// baseOTReceiverStep1 picks the receiver's blinding scalar and computes its
// message point B, which encodes the choice bit without revealing it: B is
// a fresh point on the curve when choice=0, or A-shifted when choice=1.
func baseOTReceiverStep1(A *edwards25519.Point, choice bool) (b *edwards25519.Scalar, B *edwards25519.Point) {
	b = randomScalar()
	Bg := new(edwards25519.Point).ScalarBaseMult(b)
	if !choice {
		return b, Bg
	}
	return b, new(edwards25519.Point).Add(A, Bg)
}

// baseOTSenderKeys derives the sender's two candidate keys from its scalar
// a and the receiver's message point B.
func baseOTSenderKeys(a *edwards25519.Scalar, A, B *edwards25519.Point) (k0, k1 [32]byte) {
	k0 = sha256.Sum256(new(edwards25519.Point).ScalarMult(a, B).Bytes())
	BminusA := new(edwards25519.Point).Subtract(B, A)
	k1 = sha256.Sum256(new(edwards25519.Point).ScalarMult(a, BminusA).Bytes())
	return k0, k1
}

// baseOTReceiverKey derives the receiver's single key from its scalar b and
// the sender's point A; it equals k0 when choice=false and k1 when
// choice=true, matching baseOTSenderKeys without the receiver ever learning
// the other key.
func baseOTReceiverKey(b *edwards25519.Scalar, A *edwards25519.Point) [32]byte {
	return sha256.Sum256(new(edwards25519.Point).ScalarMult(b, A).Bytes())
}

func randomScalar() *edwards25519.Scalar {
	buf := make([]byte, 64)
	if _, err := randRead(buf); err != nil {
		panic(err) // crypto/rand failing is unrecoverable
	}
	s, err := new(edwards25519.Scalar).SetUniformBytes(buf)
	if err != nil {
		panic(err)
	}
	return s
}

// padSeed XORs a 16-byte seed with the leading bytes of a derived key,
// producing a simple one-time-pad ciphertext for the base-OT wire message.
func padSeed(seed [seedLen]byte, key [32]byte) [seedLen]byte {
	var out [seedLen]byte
	for i := range out {
		out[i] = seed[i] ^ key[i]
	}
	return out
}
