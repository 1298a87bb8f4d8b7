package orchestrator

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/paramexchange/core/internal/config"
	"github.com/paramexchange/core/internal/logging"
	"github.com/paramexchange/core/internal/ot"
	"github.com/paramexchange/core/internal/record"
)

func TestChunkInts(t *testing.T) {
	got := chunkInts([]int{1, 2, 3, 4, 5}, 2)
	require.Equal(t, [][]int{{1, 2}, {3, 4}, {5}}, got)
}

func TestChunkIntsExactMultiple(t *testing.T) {
	got := chunkInts([]int{1, 2, 3, 4}, 2)
	require.Equal(t, [][]int{{1, 2}, {3, 4}}, got)
}

func TestDedupeIntsPreservesFirstOccurrenceOrder(t *testing.T) {
	got := dedupeInts([]int{3, 1, 3, 2, 1})
	require.Equal(t, []int{3, 1, 2}, got)
}

// fakeKeyAuthority runs a minimal /hash_key + /key_retrieval HTTP control
// plane and a real OT-extension sender on a TCP data-plane listener, so
// retrieveKeys can be exercised end to end without a live binary.
type fakeKeyAuthority struct {
	httpSrv  *httptest.Server
	listener net.Listener
	messages [][]byte
}

func newFakeKeyAuthority(t *testing.T, messages [][]byte) *fakeKeyAuthority {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	f := &fakeKeyAuthority{listener: listener, messages: messages}
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				_ = ot.RunSender(conn, f.messages, ot.Config{})
			}()
		}
	}()

	host, portStr, err := net.SplitHostPort(listener.Addr().String())
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("/hash_key", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"hash_key":"aGFzaC1rZXk="}`)
	})
	mux.HandleFunc("/key_retrieval", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"host":%q,"port":%s,"totalOTs":0,"tls":false}`, host, portStr)
	})
	f.httpSrv = httptest.NewServer(mux)
	return f
}

func (f *fakeKeyAuthority) Close() {
	f.httpSrv.Close()
	f.listener.Close()
}

func testOrchestrator(t *testing.T, keyAuthURL string) *Orchestrator {
	t.Helper()
	lg, err := logging.New(logging.Options{Level: "error"}, "test")
	require.NoError(t, err)
	cfg := &config.Config{MaxProcs: 2}
	cfg.OT.SetSize = 8
	cfg.OT.MaxNum = 2
	return New(cfg, record.Config{}, keyAuthURL, "http://unused.invalid", tls.Certificate{}, lg)
}

func TestRetrieveKeysFetchesEachRequestedRow(t *testing.T) {
	messages := make([][]byte, 8)
	for i := range messages {
		messages[i] = []byte(fmt.Sprintf("row-%d-secret!!!", i))
	}
	ka := newFakeKeyAuthority(t, messages)
	defer ka.Close()

	orch := testOrchestrator(t, ka.httpSrv.URL)

	keys, err := orch.retrieveKeys(context.Background(), []int{0, 3, 7})
	require.NoError(t, err)
	require.Equal(t, messages[0], keys[0])
	require.Equal(t, messages[3], keys[3])
	require.Equal(t, messages[7], keys[7])
}

func TestHashKeyMemoizesAcrossCalls(t *testing.T) {
	ka := newFakeKeyAuthority(t, nil)
	defer ka.Close()

	calls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/hash_key", func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"hash_key":"aGk="}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	orch := testOrchestrator(t, srv.URL)
	k1, err := orch.hashKey(context.Background())
	require.NoError(t, err)
	k2, err := orch.hashKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, k1, k2)
	require.Equal(t, 1, calls)
}
