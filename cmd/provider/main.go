// Command provider ingests a provider's parameter records from a CSV
// file, encrypting each one under a key retrieved from the key
// authority via OT, and hands the resulting ciphertexts to the broker.
package main

import (
	"context"
	"crypto/tls"
	"flag"
	"log"
	"strings"

	"github.com/manifoldco/promptui"

	"github.com/paramexchange/core/internal/config"
	"github.com/paramexchange/core/internal/logging"
	"github.com/paramexchange/core/internal/orchestrator"
	"github.com/paramexchange/core/internal/record"
	"github.com/paramexchange/core/internal/recordsource"
)

func main() {
	var (
		configFile      = flag.String("config", "config.yaml", "Configuration file")
		keyAuthorityURL = flag.String("key-authority", "http://localhost:8090", "Key authority base URL")
		brokerURL       = flag.String("broker", "http://localhost:8092", "Broker base URL")
		csvFile         = flag.String("csv", "", "CSV file of records to ingest (one row per record)")
		owner           = flag.String("owner", "", "Owner label attached to ingested records")
	)
	flag.Parse()

	if *csvFile == "" {
		prompt := promptui.Prompt{Label: "CSV file to ingest"}
		if result, err := prompt.Run(); err == nil {
			*csvFile = result
		}
	}
	if *csvFile == "" {
		log.Fatal("-csv is required")
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := logging.Init(logging.Options{Level: cfg.Logging.Level, File: cfg.Logging.File, EnableAudit: cfg.Logging.EnableAudit, AuditFile: cfg.Logging.AuditFile}, "provider"); err != nil {
		log.Fatalf("init logging: %v", err)
	}
	lg := logging.Get()

	src, err := recordsource.NewCSVSource(*csvFile, cfg.Record.Length)
	if err != nil {
		log.Fatalf("load CSV: %v", err)
	}

	recordCfg := record.Config{
		RecordLength: cfg.Record.Length,
		IDLength:     cfg.Record.IDLength,
		RoundingVec:  cfg.Record.RoundingVec,
		PSIIndexLen:  cfg.PSI.IndexLen,
		OTIndexLen:   cfg.OT.IndexLen,
	}

	orch := orchestrator.New(cfg, recordCfg, normalizeBase(*keyAuthorityURL), normalizeBase(*brokerURL), tls.Certificate{}, lg)

	if err := orch.IngestBatch(context.Background(), src.All(), *owner); err != nil {
		log.Fatalf("ingest failed: %v", err)
	}
	lg.Info("ingested %d records for owner %q", src.Len(), *owner)
}

func normalizeBase(u string) string {
	return strings.TrimSuffix(u, "/")
}
