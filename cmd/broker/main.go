// Command broker serves the three record-storage HTTP endpoints, the
// Bloom-filter export and the PSI connection info, and runs the PSI engine as sender against its
// data-plane listener on behalf of whichever provider's records it holds.
package main

import (
	"crypto/rand"
	"crypto/tls"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"flag"
	"log"
	"math/big"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/paramexchange/core/internal/bloom"
	"github.com/paramexchange/core/internal/config"
	"github.com/paramexchange/core/internal/cryptoutil"
	"github.com/paramexchange/core/internal/logging"
	"github.com/paramexchange/core/internal/psi"
	"github.com/paramexchange/core/internal/recordstore"
	"github.com/paramexchange/core/internal/transport"
)

type broker struct {
	store    *recordstore.Store
	cfg      *config.Config
	filter   *bloom.Filter
	filterMu sync.Mutex
	log      *logging.Logger
	dataHost string
	dataPort int
}

func main() {
	var (
		configFile = flag.String("config", "config.yaml", "Configuration file")
		httpAddr   = flag.String("http", ":8092", "HTTP listen address for the control-plane endpoints")
		dataAddr   = flag.String("data", ":8093", "TCP listen address for the PSI data-plane")
		certFile   = flag.String("cert", "", "TLS certificate (required if psi.tls is set)")
		keyFile    = flag.String("key", "", "TLS private key (required if psi.tls is set)")
	)
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := logging.Init(logging.Options{Level: cfg.Logging.Level, File: cfg.Logging.File, EnableAudit: cfg.Logging.EnableAudit, AuditFile: cfg.Logging.AuditFile}, "broker"); err != nil {
		log.Fatalf("init logging: %v", err)
	}
	lg := logging.Get()

	store, err := recordstore.Open(filepath.Join(cfg.DataDir, cfg.KeyStore.RecordsPath))
	if err != nil {
		log.Fatalf("open record store: %v", err)
	}

	filter, err := loadOrBuildFilter(filepath.Join(cfg.DataDir, cfg.Bloom.FilePath), cfg, store)
	if err != nil {
		log.Fatalf("load bloom filter: %v", err)
	}

	host, port := splitHostPort(*dataAddr)
	b := &broker{store: store, cfg: cfg, filter: filter, log: lg, dataHost: host, dataPort: port}

	var cert tls.Certificate
	if cfg.PSI.TLS {
		cert, err = tls.LoadX509KeyPair(*certFile, *keyFile)
		if err != nil {
			log.Fatalf("load TLS cert: %v", err)
		}
	}
	listener, err := transport.ListenDataPlane(*dataAddr, cfg.PSI.TLS, cert)
	if err != nil {
		log.Fatalf("listen data plane: %v", err)
	}
	go b.servePSI(listener)

	mux := http.NewServeMux()
	mux.HandleFunc("/records", b.handleStore)
	mux.HandleFunc("/records/batch", b.handleStoreBatch)
	mux.HandleFunc("/records/retrieve", b.handleRetrieve)
	mux.HandleFunc("/bloom", b.handleBloom)
	mux.HandleFunc("/psi", b.handlePSIInfo)

	lg.Info("broker listening: http=%s data=%s", *httpAddr, *dataAddr)
	log.Fatal(http.ListenAndServe(*httpAddr, mux))
}

func (b *broker) handleStore(w http.ResponseWriter, r *http.Request) {
	var req transport.StoreRecordRequest
	if err := transport.DecodeJSONBody(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := b.store.Put(recordstore.Entry{Hash: req.Envelope["hash"], Envelope: req.Envelope}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	b.insertBloom(req.Envelope["hash"])
	writeJSON(w, map[string]bool{"success": true})
}

func (b *broker) handleStoreBatch(w http.ResponseWriter, r *http.Request) {
	var reqs []transport.StoreRecordRequest
	if err := transport.DecodeJSONBody(r, &reqs); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	for _, req := range reqs {
		if err := b.store.Put(recordstore.Entry{Hash: req.Envelope["hash"], Envelope: req.Envelope}); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		b.insertBloom(req.Envelope["hash"])
	}
	writeJSON(w, map[string]bool{"success": true})
}

func (b *broker) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req transport.RetrieveRequest
	if err := transport.DecodeJSONBody(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	out := make([]map[string]string, len(req.Hashes))
	for i, h := range req.Hashes {
		if e, ok := b.store.Get(h); ok {
			out[i] = e.Envelope
		}
	}
	writeJSON(w, transport.RetrieveResponse{Envelopes: out})
}

func (b *broker) handleBloom(w http.ResponseWriter, r *http.Request) {
	b.filterMu.Lock()
	defer b.filterMu.Unlock()
	s, err := b.filter.ToBase64()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, transport.BloomResponse{Filter: s})
}

func (b *broker) handlePSIInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, transport.PSIResponse{Host: b.dataHost, Port: b.dataPort, TLS: b.cfg.PSI.TLS, SetSize: b.cfg.PSI.SetSize})
}

// servePSI accepts data-plane connections and runs the PSI engine as sender
// over the broker's own stored PSI indices, one session per connection.
func (b *broker) servePSI(listener net.Listener) {
	psiCfg := psi.Config{SetSize: b.cfg.PSI.SetSize}
	for {
		conn, err := listener.Accept()
		if err != nil {
			b.log.Error("PSI accept: %v", err)
			return
		}
		sessionID := uuid.NewString()
		go func() {
			defer conn.Close()
			items := b.psiItems()
			if err := psi.RunServer(conn, items, psiCfg); err != nil {
				b.log.Error("PSI session %s failed: %v", sessionID, err)
				return
			}
			b.log.Audit("psi_session_served", map[string]any{"session_id": sessionID, "items": len(items)})
		}()
	}
}

// insertBloom adds hash (base64 long_hash, already the Bloom item form) to
// the in-memory filter and persists the updated filter; the filter is
// append-only, so readers never observe a torn state.
func (b *broker) insertBloom(hash string) {
	b.filterMu.Lock()
	defer b.filterMu.Unlock()
	b.filter.Add([]byte(hash))
	if raw, err := b.filter.MarshalBinary(); err == nil {
		_ = writeAtomic(filepath.Join(b.cfg.DataDir, b.cfg.Bloom.FilePath), raw)
	}
}

func loadOrBuildFilter(path string, cfg *config.Config, store *recordstore.Store) (*bloom.Filter, error) {
	if raw, err := os.ReadFile(path); err == nil {
		f := &bloom.Filter{}
		if err := f.UnmarshalBinary(raw); err == nil {
			return f, nil
		}
	}
	key0, key1 := randomSipKeys()
	f := bloom.NewFilter(cfg.Bloom.Capacity, cfg.Bloom.ErrorRate, key0, key1)
	for _, h := range store.AllHashes() {
		f.Add([]byte(h))
	}
	return f, nil
}

func randomSipKeys() (uint64, uint64) {
	var buf [16]byte
	_, _ = rand.Read(buf[:])
	return binary.BigEndian.Uint64(buf[0:8]), binary.BigEndian.Uint64(buf[8:16])
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func splitHostPort(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "localhost", 0
	}
	if host == "" {
		host = "localhost"
	}
	port, _ := strconv.Atoi(portStr)
	return host, port
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// psiItems recomputes the PSI index of every stored record directly from
// its stored long-hash (the low PSI_INDEX_LEN bits, per spec.md's index
// derivation) rather than keeping a denormalised copy, so the broker's PSI
// set always matches what it actually holds.
func (b *broker) psiItems() []*big.Int {
	hashes := b.store.AllHashes()
	out := make([]*big.Int, 0, len(hashes))
	for _, h := range hashes {
		raw, err := base64.StdEncoding.DecodeString(h)
		if err != nil {
			continue
		}
		out = append(out, cryptoutil.HashToIndex(raw, b.cfg.PSI.IndexLen))
	}
	return out
}
