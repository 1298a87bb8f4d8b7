package recordsource

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/paramexchange/core/internal/errs"
)

// PostgresConfig names the connection and the table to stream parameter
// vectors from, generalized from the teacher's ad hoc DatabaseConfig
// reflection shape (PostgresDatabase.NewPostgresDatabase) into a plain,
// directly-constructed struct — this module has exactly one schema to
// support, so the teacher's reflect-based "accept any config-shaped value"
// indirection has no job left to do here.
type PostgresConfig struct {
	Host, User, Password, DBName, Table string
	Port                                int
	Columns                             []string // ordered value columns, length == recordLength
}

// PostgresSource streams rows from a Postgres table as parameter vectors.
type PostgresSource struct {
	db      *sql.DB
	table   string
	columns []string
}

// NewPostgresSource opens the connection and verifies it, mirroring the
// teacher's Ping-on-construction check.
func NewPostgresSource(cfg PostgresConfig) (*PostgresSource, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=require",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName)
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, errs.ResourceError("recordsource.NewPostgresSource: open", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errs.NetworkError("recordsource.NewPostgresSource: ping", err)
	}
	return &PostgresSource{db: db, table: cfg.Table, columns: cfg.Columns}, nil
}

// Close releases the underlying connection pool.
func (s *PostgresSource) Close() error { return s.db.Close() }

// All streams every row of the configured table, in column order, as
// value vectors.
func (s *PostgresSource) All() ([][]float64, error) {
	query := fmt.Sprintf("SELECT %s FROM %s", joinColumns(s.columns), s.table)
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, errs.ResourceError("recordsource.PostgresSource.All: query", err)
	}
	defer rows.Close()

	var out [][]float64
	for rows.Next() {
		vals := make([]float64, len(s.columns))
		ptrs := make([]any, len(vals))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errs.ResourceError("recordsource.PostgresSource.All: scan", err)
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.ResourceError("recordsource.PostgresSource.All: iterate", err)
	}
	return out, nil
}

func joinColumns(cols []string) string {
	out := ""
	for i, c := range cols {
		if i > 0 {
			out += ", "
		}
		out += c
	}
	return out
}
