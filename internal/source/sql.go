// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

package source

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2" // registers the "duckdb" driver
	_ "github.com/mattn/go-sqlite3"    // registers the "sqlite3" driver

	"github.com/tomtom215/logscope/internal/config"
	"github.com/tomtom215/logscope/internal/models"
)

// SQLSource reads access logs from a table or query in an embedded SQL
// database. Column names become document keys.
type SQLSource struct {
	db    *sql.DB
	name  string
	query string
}

// NewDuckDB opens a DuckDB database. An empty DSN opens an in-memory
// database, which is only useful together with a query that reads files,
// e.g. SELECT * FROM read_json_auto('/data/api_logs.json').
func NewDuckDB(cfg config.SQLConfig) (*SQLSource, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = ":memory:"
	}
	return openSQL("duckdb", config.SourceDuckDB, dsn, cfg)
}

// NewSQLite opens a SQLite database file read-only.
func NewSQLite(cfg config.SQLConfig) (*SQLSource, error) {
	dsn := cfg.DSN
	if !strings.Contains(dsn, "?") && !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn + "?mode=ro"
	}
	return openSQL("sqlite3", config.SourceSQLite, dsn, cfg)
}

func openSQL(driver, name, dsn string, cfg config.SQLConfig) (*SQLSource, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	query := cfg.Query
	if query == "" {
		query = "SELECT * FROM " + quoteIdent(cfg.Table)
	}
	return &SQLSource{db: db, name: name, query: query}, nil
}

// quoteIdent double-quotes a table name. Both DuckDB and SQLite accept
// ANSI identifiers; a dotted name is quoted per part.
func quoteIdent(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
	}
	return strings.Join(parts, ".")
}

// Name implements Source.
func (s *SQLSource) Name() string { return s.name }

// Ping implements Source.
func (s *SQLSource) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close implements Source.
func (s *SQLSource) Close() error { return s.db.Close() }

// Fetch implements Source.
func (s *SQLSource) Fetch(ctx context.Context) ([]models.RawDocument, error) {
	return timedFetch(s.name, func() ([]models.RawDocument, error) {
		rows, err := s.db.QueryContext(ctx, s.query)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		return scanDocuments(rows)
	})
}

func scanDocuments(rows *sql.Rows) ([]models.RawDocument, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var docs []models.RawDocument
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		doc := make(models.RawDocument, len(cols))
		for i, c := range cols {
			doc[c] = convertSQLValue(values[i])
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// convertSQLValue maps driver values onto plain Go values. DuckDB DECIMAL
// and HUGEINT values expose Float64; blobs and text arrive as []byte.
func convertSQLValue(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case interface{ Float64() float64 }:
		return x.Float64()
	default:
		return v
	}
}
