package ot

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunSenderReceiverDeliversChosenRow(t *testing.T) {
	senderConn, receiverConn := net.Pipe()
	defer senderConn.Close()
	defer receiverConn.Close()

	messages := [][]byte{
		[]byte("row-zero-secret!"),
		[]byte("row-one-secret!!"),
		[]byte("row-two-secret!!"),
		[]byte("row-three-secret"),
	}
	cfg := Config{}

	senderErr := make(chan error, 1)
	go func() {
		senderErr <- RunSender(senderConn, messages, cfg)
	}()

	got, err := RunReceiver(receiverConn, len(messages), 2, cfg)
	require.NoError(t, err)
	require.NoError(t, <-senderErr)
	require.Equal(t, messages[2], got)
}

func TestRunReceiverRejectsOutOfRangeChoice(t *testing.T) {
	_, receiverConn := net.Pipe()
	defer receiverConn.Close()

	_, err := RunReceiver(receiverConn, 4, 9, Config{})
	require.Error(t, err)
}
