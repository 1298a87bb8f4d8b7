// Command keyauthority serves the key authority's two HTTP endpoints
// (/hash_key, /key_retrieval) and runs the OT-extension engine as sender
// against its data-plane listener, releasing encryption-key rows only
// through 1-out-of-N OT.
package main

import (
	"crypto/tls"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/paramexchange/core/internal/config"
	"github.com/paramexchange/core/internal/keyauth"
	"github.com/paramexchange/core/internal/logging"
	"github.com/paramexchange/core/internal/ot"
	"github.com/paramexchange/core/internal/transport"
)

func main() {
	var (
		configFile = flag.String("config", "config.yaml", "Configuration file")
		httpAddr   = flag.String("http", ":8090", "HTTP listen address for the control-plane endpoints")
		dataAddr   = flag.String("data", ":8091", "TCP listen address for the OT data-plane")
		certFile   = flag.String("cert", "", "TLS certificate (required if ot.tls is set)")
		keyFile    = flag.String("key", "", "TLS private key (required if ot.tls is set)")
	)
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := logging.Init(logging.Options{Level: cfg.Logging.Level, File: cfg.Logging.File, EnableAudit: cfg.Logging.EnableAudit, AuditFile: cfg.Logging.AuditFile}, "keyauthority"); err != nil {
		log.Fatalf("init logging: %v", err)
	}
	lg := logging.Get()

	ka, err := keyauth.LoadOrGenerate(cfg.DataDir, cfg.OT.HashKeyPath, cfg.OT.EncKeysPath, cfg.OT.SetSize, cfg.OT.HashKeyLen, cfg.OT.EncKeyLen)
	if err != nil {
		log.Fatalf("load key authority state: %v", err)
	}

	var cert tls.Certificate
	if cfg.OT.TLS {
		cert, err = tls.LoadX509KeyPair(*certFile, *keyFile)
		if err != nil {
			log.Fatalf("load TLS cert: %v", err)
		}
	}

	listener, err := transport.ListenDataPlane(*dataAddr, cfg.OT.TLS, cert)
	if err != nil {
		log.Fatalf("listen data plane: %v", err)
	}
	go serveOT(listener, ka, cfg, lg)

	host, port := splitHostPort(*dataAddr)
	mux := http.NewServeMux()
	mux.HandleFunc("/hash_key", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, transport.HashKeyResponse{HashKey: ka.HashKey()})
	})
	mux.HandleFunc("/key_retrieval", func(w http.ResponseWriter, r *http.Request) {
		totalOTs, _ := strconv.Atoi(r.URL.Query().Get("totalOTs"))
		writeJSON(w, transport.KeyRetrievalResponse{Host: host, Port: port, TotalOTs: totalOTs, TLS: cfg.OT.TLS})
	})

	lg.Info("key authority listening: http=%s data=%s", *httpAddr, *dataAddr)
	log.Fatal(http.ListenAndServe(*httpAddr, mux))
}

// serveOT accepts data-plane connections and runs one OT-extension sender
// session per connection, transferring the full encryption-key table.
func serveOT(listener net.Listener, ka *keyauth.KeyAuthority, cfg *config.Config, lg *logging.Logger) {
	otCfg := ot.Config{MaliciousSecure: cfg.OT.MaliciousSecure}
	for {
		conn, err := listener.Accept()
		if err != nil {
			lg.Error("OT accept: %v", err)
			return
		}
		sessionID := uuid.NewString()
		go func() {
			defer conn.Close()
			messages := ka.EncKeyTable()
			if err := ot.RunSender(conn, messages, otCfg); err != nil {
				lg.Error("OT session %s failed: %v", sessionID, err)
				return
			}
			lg.Audit("ot_session_served", map[string]any{"session_id": sessionID, "rows": len(messages)})
		}()
	}
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
	if err := json.NewEncoder(w).Encode(v); err != nil {
		fmt.Println("encode response:", err)
	}
}
