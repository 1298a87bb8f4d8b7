package ot

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/paramexchange/core/internal/errs"
	"github.com/paramexchange/core/internal/transport"
)

// Config mirrors the OT section of the platform configuration relevant to
// a single session: whether the malicious-secure consistency exchange
// (runConsistencyCheck) runs alongside the semi-honest (KKRT16) extension.
// The table size is not part of it; it is passed to RunSender and
// RunReceiver directly.
type Config struct {
	MaliciousSecure bool
}

// RunSender plays the table-holding side of a 1-out-of-N OT: it knows all
// n messages up front and, at the end of the session, has broadcast a
// masked form of the whole table — the receiver's earlier correction
// messages ensure only its chosen row decrypts to anything meaningful.
// This accepts O(n) sender-side work per query, the Literal-retrieval
// contract the spec's "Non-goals" do not exclude (it only excludes hiding
// communication volumes, which this does not attempt).
func RunSender(rw io.ReadWriter, messages [][]byte, cfg Config) error {
	n := len(messages)
	delta, seeds, err := runBaseOTsAsSender(rw)
	if err != nil {
		return err
	}

	u, err := recvColumns(rw, n)
	if err != nil {
		return err
	}

	for k := 0; k < n; k++ {
		q := senderRow(senderSeeds{Delta: delta, S: seeds}, u, k)
		key0, key1 := senderRowKeys(q, delta)
		dummy := make([]byte, len(messages[k]))
		c0 := streamXOR(key0, dummy)
		c1 := streamXOR(key1, messages[k])
		if err := transport.WriteFrame(rw, c0); err != nil {
			return err
		}
		if err := transport.WriteFrame(rw, c1); err != nil {
			return err
		}
	}

	if cfg.MaliciousSecure {
		if err := runConsistencyCheck(rw, delta, seeds, true); err != nil {
			return err
		}
	}
	return nil
}

// RunReceiver plays the choosing side: it learns exactly the message at
// chooseRow and nothing distinguishable from random at any other row.
func RunReceiver(rw io.ReadWriter, n, chooseRow int, cfg Config) ([]byte, error) {
	if chooseRow < 0 || chooseRow >= n {
		return nil, errs.ProtocolError("ot.RunReceiver", errChooseRowOutOfRange)
	}
	cols, err := runBaseOTsAsReceiver(rw)
	if err != nil {
		return nil, err
	}

	for j := 0; j < kappa; j++ {
		msg := receiverColumnMessage(cols, j, n, chooseRow)
		if err := transport.WriteFrame(rw, msg); err != nil {
			return nil, err
		}
	}

	var result []byte
	for k := 0; k < n; k++ {
		c0, err := transport.ReadFrame(rw)
		if err != nil {
			return nil, err
		}
		c1, err := transport.ReadFrame(rw)
		if err != nil {
			return nil, err
		}
		if k != chooseRow {
			continue
		}
		t := receiverRow(cols, k)
		key := receiverRowKey(t)
		result = streamXOR(key, c1)
		_ = c0 // the receiver never needs the slot it cannot unlock
	}

	if cfg.MaliciousSecure {
		if err := runConsistencyCheck(rw, [16]byte{}, [kappa][16]byte{}, false); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// runBaseOTsAsSender runs the kappa base OTs with this side as base-OT
// receiver (choice bits = bits of a freshly drawn Delta), grounded on the
// teacher's blind/unblind ECDH exchange (blind.go, ecdh.go).
func runBaseOTsAsSender(rw io.ReadWriter) ([16]byte, [kappa][16]byte, error) {
	var delta [16]byte
	if _, err := randRead(delta[:]); err != nil {
		return delta, [kappa][16]byte{}, errs.ResourceError("ot.runBaseOTsAsSender", err)
	}
	var seeds [kappa][16]byte
	for j := 0; j < kappa; j++ {
		choice := deltaBit(delta, j) == 1

		aBytes, err := transport.ReadFrame(rw)
		if err != nil {
			return delta, seeds, err
		}
		A, err := decodePoint(aBytes)
		if err != nil {
			return delta, seeds, errs.ProtocolError("ot.runBaseOTsAsSender: decode A", err)
		}

		b, B := baseOTReceiverStep1(A, choice)
		if err := transport.WriteFrame(rw, B.Bytes()); err != nil {
			return delta, seeds, err
		}

		c0Bytes, err := transport.ReadFrame(rw)
		if err != nil {
			return delta, seeds, err
		}
		c1Bytes, err := transport.ReadFrame(rw)
		if err != nil {
			return delta, seeds, err
		}
		key := baseOTReceiverKey(b, A)
		var chosen [seedLen]byte
		if choice {
			copy(chosen[:], c1Bytes)
		} else {
			copy(chosen[:], c0Bytes)
		}
		seeds[j] = unpadSeed(chosen, key)
	}
	return delta, seeds, nil
}

// runBaseOTsAsReceiver runs the kappa base OTs with this side as base-OT
// sender (it picks both candidate seeds for every column).
func runBaseOTsAsReceiver(rw io.ReadWriter) (columnSeeds, error) {
	var cols columnSeeds
	for j := 0; j < kappa; j++ {
		a, A := baseOTSenderStep1()
		if err := transport.WriteFrame(rw, A.Bytes()); err != nil {
			return cols, err
		}

		bBytes, err := transport.ReadFrame(rw)
		if err != nil {
			return cols, err
		}
		B, err := decodePoint(bBytes)
		if err != nil {
			return cols, errs.ProtocolError("ot.runBaseOTsAsReceiver: decode B", err)
		}

		k0, k1 := baseOTSenderKeys(a, A, B)
		if _, err := randRead(cols.Zero[j][:]); err != nil {
			return cols, errs.ResourceError("ot.runBaseOTsAsReceiver", err)
		}
		if _, err := randRead(cols.One[j][:]); err != nil {
			return cols, errs.ResourceError("ot.runBaseOTsAsReceiver", err)
		}
		c0 := padSeed(cols.Zero[j], k0)
		c1 := padSeed(cols.One[j], k1)
		if err := transport.WriteFrame(rw, c0[:]); err != nil {
			return cols, err
		}
		if err := transport.WriteFrame(rw, c1[:]); err != nil {
			return cols, err
		}
	}
	return cols, nil
}

func unpadSeed(padded [seedLen]byte, key [32]byte) [16]byte {
	var out [16]byte
	for i := range out {
		out[i] = padded[i] ^ key[i]
	}
	return out
}

func recvColumns(rw io.ReadWriter, n int) ([kappa][]byte, error) {
	var u [kappa][]byte
	for j := 0; j < kappa; j++ {
		buf, err := transport.ReadFrame(rw)
		if err != nil {
			return u, err
		}
		if len(buf) != (n+7)/8 {
			return u, errs.ProtocolError("ot.recvColumns", errColumnLength)
		}
		u[j] = buf
	}
	return u, nil
}

// streamXOR expands key into len(msg) pseudorandom bytes via HKDF and XORs
// them into msg, the same "derive a key, then mask the payload" shape as
// internal/cryptoutil's AES-GCM envelope, here using a stream cipher since
// OT ciphertexts carry no integrity tag of their own (the outer PSI/record
// layer authenticates the payload once delivered).
func streamXOR(key [32]byte, msg []byte) []byte {
	out := make([]byte, len(msg))
	r := hkdf.New(sha256.New, key[:], nil, []byte("ot-stream"))
	pad := make([]byte, len(msg))
	if _, err := io.ReadFull(r, pad); err != nil {
		panic(err)
	}
	for i := range out {
		out[i] = msg[i] ^ pad[i]
	}
	return out
}
