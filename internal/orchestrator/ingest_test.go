package orchestrator

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/paramexchange/core/internal/config"
	"github.com/paramexchange/core/internal/logging"
	"github.com/paramexchange/core/internal/record"
	"github.com/paramexchange/core/internal/transport"
)

// fakeIngestBroker only implements the /records/batch leg the ingest flow
// needs; it records every stored envelope for the test to inspect.
type fakeIngestBroker struct {
	httpSrv *httptest.Server
	stored  []map[string]string
}

func newFakeIngestBroker(t *testing.T) *fakeIngestBroker {
	t.Helper()
	f := &fakeIngestBroker{}
	mux := http.NewServeMux()
	mux.HandleFunc("/records/batch", func(w http.ResponseWriter, r *http.Request) {
		var reqs []transport.StoreRecordRequest
		require.NoError(t, transport.DecodeJSONBody(r, &reqs))
		for _, req := range reqs {
			f.stored = append(f.stored, req.Envelope)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true}`))
	})
	f.httpSrv = httptest.NewServer(mux)
	return f
}

func (f *fakeIngestBroker) Close() { f.httpSrv.Close() }

func TestIngestBatchStoresOneEnvelopePerRecord(t *testing.T) {
	recordCfg := record.Config{RecordLength: 1, IDLength: 1, RoundingVec: []int{3}, PSIIndexLen: 16, OTIndexLen: 3}

	const otSetSize = 1 << 3
	messages := make([][]byte, otSetSize)
	for i := range messages {
		messages[i] = make([]byte, 32)
		messages[i][0] = byte(i + 1)
	}

	ka := newFakeKeyAuthority(t, messages)
	defer ka.Close()

	broker := newFakeIngestBroker(t)
	defer broker.Close()

	lg, err := logging.New(logging.Options{Level: "error"}, "test")
	require.NoError(t, err)
	cfg := &config.Config{MaxProcs: 2}
	cfg.OT.SetSize = otSetSize
	cfg.OT.MaxNum = 4

	orch := New(cfg, recordCfg, ka.httpSrv.URL, broker.httpSrv.URL, tls.Certificate{}, lg)

	values := [][]float64{{10.0}, {20.5}, {30.25}}
	err = orch.IngestBatch(context.Background(), values, "acme")
	require.NoError(t, err)
	require.Len(t, broker.stored, len(values))

	for _, env := range broker.stored {
		require.NotEmpty(t, env["nonce"])
		require.NotEmpty(t, env["ciphertext"])
		require.NotEmpty(t, env["hash"])
	}
}

func TestIngestBatchFailsWhenKeyAuthorityUnreachable(t *testing.T) {
	recordCfg := record.Config{RecordLength: 1, IDLength: 1, RoundingVec: []int{3}, PSIIndexLen: 16, OTIndexLen: 3}
	broker := newFakeIngestBroker(t)
	defer broker.Close()

	lg, err := logging.New(logging.Options{Level: "error"}, "test")
	require.NoError(t, err)
	cfg := &config.Config{MaxProcs: 1}
	cfg.OT.SetSize = 8
	cfg.OT.MaxNum = 2

	orch := New(cfg, recordCfg, "http://127.0.0.1:1", broker.httpSrv.URL, tls.Certificate{}, lg)

	err = orch.IngestBatch(context.Background(), [][]float64{{1.0}}, "acme")
	require.Error(t, err)
	require.Empty(t, broker.stored)
}
