// Package transport provides the framed data-plane connections OT and PSI
// sessions run over, the TLS dial/listen helpers, and thin HTTP JSON
// clients for the key-authority and broker's external interfaces.
package transport

import (
	"encoding/binary"
	"io"

	"github.com/paramexchange/core/internal/errs"
)

const maxFrameLen = 256 << 20 // 256MiB, generous enough for a masked OT table

// WriteFrame writes a length-prefixed message.
func WriteFrame(w io.Writer, payload []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return errs.NetworkError("transport.WriteFrame: length", err)
	}
	if _, err := w.Write(payload); err != nil {
		return errs.NetworkError("transport.WriteFrame: payload", err)
	}
	return nil
}

// ReadFrame reads a length-prefixed message written by WriteFrame.
func ReadFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, errs.NetworkError("transport.ReadFrame: length", err)
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > maxFrameLen {
		return nil, errs.ProtocolError("transport.ReadFrame", errFrameTooLarge)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, errs.NetworkError("transport.ReadFrame: payload", err)
	}
	return buf, nil
}
