package ot

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOPRFSenderReceiverAgreeOnRowKeys(t *testing.T) {
	senderConn, receiverConn := net.Pipe()
	defer senderConn.Close()
	defer receiverConn.Close()

	const m = 5

	senderCh := make(chan *OPRFSender, 1)
	senderErr := make(chan error, 1)
	go func() {
		s, err := SetupOPRFSender(senderConn, m)
		senderCh <- s
		senderErr <- err
	}()

	receiver, err := SetupOPRFReceiver(receiverConn, m)
	require.NoError(t, err)
	require.NoError(t, <-senderErr)
	sender := <-senderCh
	require.NotNil(t, sender)

	for row := 0; row < m; row++ {
		require.Equal(t, sender.RowKey(row), receiver.RowKey(row))
	}
}
