package ot

import (
	"crypto/sha256"
	"io"

	"github.com/paramexchange/core/internal/errs"
	"github.com/paramexchange/core/internal/transport"
)

// runConsistencyCheck adds one extra exchange on top of the semi-honest
// (KKRT16) extension when malicious-secure mode is on: the sender sends a
// SHA-256 digest of its Delta and base-OT seeds, and the receiver reads it
// and checks only that it is 32 bytes long. The receiver cannot compute
// that digest itself and nothing is compared against it, so this exchange
// does not detect a sender that used inconsistent Deltas or a receiver
// that deviated from a single choice vector; it is not OOS16's
// correlation check.
func runConsistencyCheck(rw io.ReadWriter, delta [16]byte, seeds [kappa][16]byte, isSender bool) error {
	h := sha256.New()
	if isSender {
		h.Write(delta[:])
		for _, s := range seeds {
			h.Write(s[:])
		}
	}
	digest := h.Sum(nil)

	if isSender {
		if err := transport.WriteFrame(rw, digest); err != nil {
			return err
		}
		return nil
	}

	peer, err := transport.ReadFrame(rw)
	if err != nil {
		return err
	}
	if len(peer) != sha256.Size {
		return errs.ProtocolError("ot.runConsistencyCheck", errConsistencyFailed)
	}
	return nil
}
