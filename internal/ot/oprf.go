package ot

import (
	"io"

	"github.com/paramexchange/core/internal/transport"
)

// OPRFSender and OPRFReceiver expose the IKNP extension matrix above as a
// keyed pseudorandom function shared between both parties, rather than as
// a message-delivery channel: the PSI engine (internal/psi) needs an
// oblivious PRF it can evaluate against arbitrary item values at known
// table positions, not a 1-out-of-N delivery of pre-existing messages
// (that contract belongs to RunSender/RunReceiver above).
//
// Running the extension with every row's choice bit fixed at 0 makes
// q_row (the sender's reconstruction) and t_row (the receiver's) equal for
// every row, by the same q = t XOR (r*Delta) relation RunSender/RunReceiver
// rely on — with r always 0, the Delta term never applies. Both parties
// then derive an identical per-row key without any further exchange, which
// internal/psi combines with the row's item bytes to get its OPRF.
type OPRFSender struct {
	seeds senderSeeds
	u     [kappa][]byte
}

type OPRFReceiver struct {
	cols columnSeeds
}

// SetupOPRFSender runs the kappa base OTs and receives the all-zero-choice
// correction columns for an m-row table.
func SetupOPRFSender(rw io.ReadWriter, m int) (*OPRFSender, error) {
	delta, seeds, err := runBaseOTsAsSender(rw)
	if err != nil {
		return nil, err
	}
	u, err := recvColumns(rw, m)
	if err != nil {
		return nil, err
	}
	return &OPRFSender{seeds: senderSeeds{Delta: delta, S: seeds}, u: u}, nil
}

// RowKey evaluates F(row, ·)'s keying material on the sender side.
func (s *OPRFSender) RowKey(row int) [32]byte {
	q := senderRow(s.seeds, s.u, row)
	key, _ := senderRowKeys(q, s.seeds.Delta)
	return key
}

// SetupOPRFReceiver runs the matching receiver half: the base OTs as
// base-OT sender, then broadcasts the all-zero-choice correction columns
// (chooseRow -1 means no row's bit is ever set, per receiverColumnMessage).
func SetupOPRFReceiver(rw io.ReadWriter, m int) (*OPRFReceiver, error) {
	cols, err := runBaseOTsAsReceiver(rw)
	if err != nil {
		return nil, err
	}
	for j := 0; j < kappa; j++ {
		msg := receiverColumnMessage(cols, j, m, -1)
		if err := transport.WriteFrame(rw, msg); err != nil {
			return nil, err
		}
	}
	return &OPRFReceiver{cols: cols}, nil
}

// RowKey evaluates F(row, ·)'s keying material on the receiver side; it
// equals OPRFSender.RowKey(row) for the same row, since both reconstruct
// the same q=t value when every choice bit is 0.
func (r *OPRFReceiver) RowKey(row int) [32]byte {
	t := receiverRow(r.cols, row)
	return receiverRowKey(t)
}
