// Package recordsource provides the provider-side ingest readers that turn
// external storage (CSV files, Postgres tables) into the []float64 vectors
// internal/record.New expects, adapted from the teacher's internal/db
// package (which read PHI string fields) to this spec's fixed-arity
// numeric parameter vectors.
package recordsource

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/paramexchange/core/internal/errs"
)

// CSVSource reads a CSV file where every row is recordLength numeric
// fields, mirroring the teacher's CSVDatabase but producing float vectors
// instead of a key/value string map.
type CSVSource struct {
	rows [][]float64
}

// NewCSVSource reads and parses path in full; like the teacher's
// NewCSVDatabase, the whole file is loaded up front rather than streamed,
// since ingest batches are expected to fit comfortably in memory.
func NewCSVSource(path string, recordLength int) (*CSVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.ResourceError("recordsource.NewCSVSource: open", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, errs.ResourceError("recordsource.NewCSVSource: read", err)
	}

	rows := make([][]float64, 0, len(records))
	for _, rec := range records {
		if len(rec) != recordLength {
			return nil, errs.ConfigError("recordsource.NewCSVSource", errRowWidth)
		}
		vals := make([]float64, recordLength)
		for i, field := range rec {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, errs.ConfigError("recordsource.NewCSVSource: parse field", err)
			}
			vals[i] = v
		}
		rows = append(rows, vals)
	}
	return &CSVSource{rows: rows}, nil
}

// Len returns the number of rows available.
func (s *CSVSource) Len() int { return len(s.rows) }

// Row returns the i-th row's value vector.
func (s *CSVSource) Row(i int) []float64 { return s.rows[i] }

// All returns every row, for callers that ingest a whole file at once.
func (s *CSVSource) All() [][]float64 { return s.rows }
