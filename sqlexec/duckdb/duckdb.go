// Package duckdb implements the sqlexec dialect for DuckDB via the
// marcboeker/go-duckdb database/sql driver.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/marcboeker/go-duckdb" // register DuckDB driver
	"github.com/viant/dbsync/sqlexec"
)

// Open opens a DuckDB database. An empty dsn opens an in-memory database.
func Open(dsn string) (*sql.DB, error) { return sql.Open("duckdb", dsn) }

// Dialect is the DuckDB dialect. The zero value is ready to use.
type Dialect struct{}

// New returns the DuckDB dialect.
func New() Dialect { return Dialect{} }

// Name implements sqlexec.Dialect.
func (Dialect) Name() string { return "duckdb" }

// QuoteIdent escapes an identifier with double quotes.
func (Dialect) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QualifyTable renders schema.table with both parts escaped. An empty schema
// defaults to main.
func (d Dialect) QualifyTable(schema, table string) string {
	if schema == "" {
		schema = "main"
	}
	return d.QuoteIdent(schema) + "." + d.QuoteIdent(table)
}

// Columns reads the table's column names from information_schema, ordered by
// ordinal position.
func (Dialect) Columns(ctx context.Context, db *sql.DB, schema, table string) ([]string, error) {
	if schema == "" {
		schema = "main"
	}
	cols, err := queryNames(ctx, db,
		`SELECT column_name FROM information_schema.columns
		 WHERE table_schema = ? AND table_name = ?
		 ORDER BY ordinal_position`, schema, table)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("duckdb: table %s.%s not found", schema, table)
	}
	return cols, nil
}

// PrimaryKey reads the primary-key columns from duckdb_constraints. The
// unnest of constraint_column_names preserves the declared key order.
func (Dialect) PrimaryKey(ctx context.Context, db *sql.DB, schema, table string) ([]string, error) {
	if schema == "" {
		schema = "main"
	}
	return queryNames(ctx, db,
		`SELECT unnest(constraint_column_names) AS column_name
		 FROM duckdb_constraints()
		 WHERE schema_name = ? AND table_name = ? AND constraint_type = 'PRIMARY KEY'`,
		schema, table)
}

// UpsertSQL renders the ON CONFLICT upsert form.
func (d Dialect) UpsertSQL(qualified string, insertCols, conflictCols, updateCols []string, rowCount int) string {
	return sqlexec.UpsertStatement(d.QuoteIdent, qualified, insertCols, conflictCols, updateCols, rowCount)
}

func queryNames(ctx context.Context, db *sql.DB, query string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("duckdb: introspection failed: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("duckdb: scanning introspection row: %w", err)
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("duckdb: iterating introspection rows: %w", err)
	}
	return names, nil
}

var _ sqlexec.Dialect = Dialect{}
