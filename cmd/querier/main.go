// Command querier runs a single similarity query against the matching
// subsystem (Bloom or PSI mode) and prints the decrypted matches.
package main

import (
	"context"
	"crypto/tls"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"

	"github.com/paramexchange/core/internal/config"
	"github.com/paramexchange/core/internal/logging"
	"github.com/paramexchange/core/internal/orchestrator"
	"github.com/paramexchange/core/internal/record"
)

func main() {
	var (
		configFile      = flag.String("config", "config.yaml", "Configuration file")
		keyAuthorityURL = flag.String("key-authority", "http://localhost:8090", "Key authority base URL")
		brokerURL       = flag.String("broker", "http://localhost:8092", "Broker base URL")
		queryCSV        = flag.String("query", "", "Comma-separated query vector, e.g. 1.0,22.0")
		metric          = flag.String("metric", "offset-0", "Similarity metric: offset-N, relOffset-N, wzl1, wzl2")
		mode            = flag.String("mode", "bloom", "Matching mode: bloom or psi")
	)
	flag.Parse()

	if *queryCSV == "" {
		*queryCSV = promptLine("Query vector (comma-separated)")
		if *mode == "bloom" {
			*mode = promptMode()
		}
	}
	if *queryCSV == "" {
		log.Fatal("-query is required")
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := logging.Init(logging.Options{Level: cfg.Logging.Level, File: cfg.Logging.File, EnableAudit: cfg.Logging.EnableAudit, AuditFile: cfg.Logging.AuditFile}, "querier"); err != nil {
		log.Fatalf("init logging: %v", err)
	}
	lg := logging.Get()

	query, err := parseQueryVector(*queryCSV)
	if err != nil {
		log.Fatalf("parse query: %v", err)
	}

	matchMode := orchestrator.ModeBloom
	if strings.EqualFold(*mode, "psi") {
		matchMode = orchestrator.ModePSI
	}

	recordCfg := record.Config{
		RecordLength: cfg.Record.Length,
		IDLength:     cfg.Record.IDLength,
		RoundingVec:  cfg.Record.RoundingVec,
		PSIIndexLen:  cfg.PSI.IndexLen,
		OTIndexLen:   cfg.OT.IndexLen,
	}

	orch := orchestrator.New(cfg, recordCfg, strings.TrimSuffix(*keyAuthorityURL, "/"), strings.TrimSuffix(*brokerURL, "/"), tls.Certificate{}, lg)

	results, err := orch.Query(context.Background(), orchestrator.QueryRequest{Query: query, Metric: *metric, Mode: matchMode})
	if err != nil {
		log.Fatalf("query failed: %v", err)
	}

	w := csv.NewWriter(os.Stdout)
	defer w.Flush()
	for _, rec := range results {
		row := make([]string, len(rec.Values))
		for i, v := range rec.Values {
			row[i] = strconv.FormatFloat(v, 'f', -1, 64)
		}
		if err := w.Write(row); err != nil {
			log.Fatalf("write result: %v", err)
		}
	}
	fmt.Fprintf(os.Stderr, "%d matches\n", len(results))
}

// promptLine asks the user for a single line of input, used as the
// interactive fallback when -query is omitted, grounded on the teacher's
// promptui-based menu prompts (cmd/cohort-bridge's promptForChoice).
func promptLine(label string) string {
	prompt := promptui.Prompt{Label: label}
	result, err := prompt.Run()
	if err != nil {
		return ""
	}
	return result
}

func promptMode() string {
	prompt := promptui.Select{Label: "Matching mode", Items: []string{"bloom", "psi"}}
	_, result, err := prompt.Run()
	if err != nil {
		return "bloom"
	}
	return result
}

func parseQueryVector(s string) ([]float64, error) {
	fields := strings.Split(s, ",")
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
