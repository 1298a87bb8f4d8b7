// Package orchestrator implements the matching and retrieval orchestrator
// (C5): it drives the enumerator (C2) through either the Bloom filter or
// the PSI engine (C4) to find candidate matches, retrieves their AES keys
// through the OT-extension engine (C3, sharded across the key authority's
// rows), fetches ciphertexts from the broker, and decrypts them with the
// rounded-record codec (C1). The provider-side ingest flow runs the same
// hash/OT/encrypt machinery in reverse.
package orchestrator

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/paramexchange/core/internal/config"
	"github.com/paramexchange/core/internal/logging"
	"github.com/paramexchange/core/internal/ot"
	"github.com/paramexchange/core/internal/psi"
	"github.com/paramexchange/core/internal/record"
	"github.com/paramexchange/core/internal/transport"
)

// MatchMode selects how the orchestrator finds candidate matches.
type MatchMode int

const (
	ModeBloom MatchMode = iota
	ModePSI
)

// Orchestrator holds the clients and configuration a query or ingest run
// needs; one instance is built per process and reused across calls.
type Orchestrator struct {
	Config     *config.Config
	RecordCfg  record.Config
	KeyAuth    *transport.KeyAuthorityClient
	Broker     *transport.BrokerClient
	Log        *logging.Logger
	TLSCert    tls.Certificate
	hashKeyMu  sync.Mutex
	hashKeyVal []byte
}

// New builds an Orchestrator from the shared platform configuration.
func New(cfg *config.Config, recordCfg record.Config, keyAuthBaseURL, brokerBaseURL string, cert tls.Certificate, log *logging.Logger) *Orchestrator {
	return &Orchestrator{
		Config:    cfg,
		RecordCfg: recordCfg,
		KeyAuth:   transport.NewKeyAuthorityClient(keyAuthBaseURL),
		Broker:    transport.NewBrokerClient(brokerBaseURL),
		TLSCert:   cert,
		Log:       log,
	}
}

// hashKey fetches and memoizes the global keyed-hash key for the lifetime of
// this Orchestrator; every phase that needs it (hashing candidates,
// deriving PSI/OT indices) shares the one HTTP round trip.
func (o *Orchestrator) hashKey(ctx context.Context) ([]byte, error) {
	o.hashKeyMu.Lock()
	defer o.hashKeyMu.Unlock()
	if o.hashKeyVal != nil {
		return o.hashKeyVal, nil
	}
	key, err := o.KeyAuth.HashKey(ctx)
	if err != nil {
		return nil, err
	}
	o.hashKeyVal = key
	return key, nil
}

// retrieveKeys OT-retrieves the encryption key at each of otIndices from the
// key authority, chunked by OT_MAX_NUM and parallelised up to MAX_PROCS, per
// spec.md §4.5's "(sharded if needed)" key-retrieval phase. The returned map
// is keyed by the same otIndices entries.
func (o *Orchestrator) retrieveKeys(ctx context.Context, otIndices []int) (map[int][]byte, error) {
	maxNum := o.Config.OT.MaxNum
	if maxNum <= 0 {
		maxNum = 1
	}
	chunks := chunkInts(otIndices, maxNum)

	maxProcs := o.Config.MaxProcs
	if maxProcs <= 0 {
		maxProcs = 1
	}

	results := make([]map[int][]byte, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxProcs)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			r, err := o.retrieveKeyChunk(gctx, chunk)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[int][]byte, len(otIndices))
	for _, r := range results {
		for k, v := range r {
			merged[k] = v
		}
	}
	return merged, nil
}

// retrieveKeyChunk makes one key-retrieval request for the whole chunk and
// then runs len(chunk) sequential 1-out-of-N retrievals against the key
// authority's data-plane endpoint, one per index in chunk, each over its
// own connection (the sender serves a single OT session per connection).
func (o *Orchestrator) retrieveKeyChunk(ctx context.Context, chunk []int) (map[int][]byte, error) {
	info, err := o.KeyAuth.KeyRetrieval(ctx, len(chunk))
	if err != nil {
		return nil, err
	}
	if err := transport.CheckTLSMatch(o.Config.OT.TLS, info.TLS); err != nil {
		return nil, err
	}
	addr := fmt.Sprintf("%s:%d", info.Host, info.Port)

	otCfg := ot.Config{MaliciousSecure: o.Config.OT.MaliciousSecure}
	out := make(map[int][]byte, len(chunk))
	for _, row := range chunk {
		conn, err := transport.DialDataPlane(addr, info.TLS, o.TLSCert)
		if err != nil {
			return nil, err
		}
		key, err := ot.RunReceiver(conn, o.Config.OT.SetSize, row, otCfg)
		conn.Close()
		if err != nil {
			return nil, err
		}
		out[row] = key
	}
	return out, nil
}

func chunkInts(items []int, size int) [][]int {
	var out [][]int
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[i:end])
	}
	return out
}

func dedupeInts(items []int) []int {
	seen := make(map[int]struct{}, len(items))
	out := make([]int, 0, len(items))
	for _, v := range items {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// dialPSI opens the data-plane connection the broker's /psi response names.
func (o *Orchestrator) dialPSI(ctx context.Context) (psi.Config, net.Conn, error) {
	info, err := o.Broker.PSI(ctx)
	if err != nil {
		return psi.Config{}, nil, err
	}
	if err := transport.CheckTLSMatch(o.Config.PSI.TLS, info.TLS); err != nil {
		return psi.Config{}, nil, err
	}
	addr := fmt.Sprintf("%s:%d", info.Host, info.Port)
	conn, err := transport.DialDataPlane(addr, info.TLS, o.TLSCert)
	if err != nil {
		return psi.Config{}, nil, err
	}
	return psi.Config{SetSize: info.SetSize}, conn, nil
}
