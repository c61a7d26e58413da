// Package sqlite implements the sqlexec dialect for SQLite using the
// pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/viant/dbsync/sqlexec"
	_ "modernc.org/sqlite" // register pure-Go SQLite driver
)

// Open opens a SQLite database. For file-based databases pass a path like
// "./db.sqlite"; for in-memory databases pass ":memory:".
func Open(dsn string) (*sql.DB, error) { return sql.Open("sqlite", dsn) }

// Dialect is the SQLite dialect. The zero value is ready to use.
type Dialect struct{}

// New returns the SQLite dialect.
func New() Dialect { return Dialect{} }

// Name implements sqlexec.Dialect.
func (Dialect) Name() string { return "sqlite" }

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

// Columns reads the table's column names via pragma_table_info, ordered by
// declared column position.
func (Dialect) Columns(ctx context.Context, db *sql.DB, schema, table string) ([]string, error) {
	if schema == "" {
		schema = "main"
	}
	cols, err := queryNames(ctx, db,
		`SELECT name FROM pragma_table_info(?, ?) ORDER BY cid`, table, schema)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("sqlite: table %s.%s not found", schema, table)
	}
	return cols, nil
}

// PrimaryKey reads the primary-key columns via pragma_table_info, ordered by
// their position within the key (the pk field is 1-based, 0 for non-key
// columns).
func (Dialect) PrimaryKey(ctx context.Context, db *sql.DB, schema, table string) ([]string, error) {
	if schema == "" {
		schema = "main"
	}
	return queryNames(ctx, db,
		`SELECT name FROM pragma_table_info(?, ?) WHERE pk > 0 ORDER BY pk`, table, schema)
}

// UpsertSQL renders the ON CONFLICT upsert form.
func (d Dialect) UpsertSQL(qualified string, insertCols, conflictCols, updateCols []string, rowCount int) string {
	return sqlexec.UpsertStatement(d.QuoteIdent, qualified, insertCols, conflictCols, updateCols, rowCount)
}

func queryNames(ctx context.Context, db *sql.DB, query string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: introspection failed: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("sqlite: scanning introspection row: %w", err)
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating introspection rows: %w", err)
	}
	return names, nil
}

var _ sqlexec.Dialect = Dialect{}
