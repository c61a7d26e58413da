package sqlexec

import (
	"context"
	"database/sql"
)

// Dialect isolates the engine-specific SQL surface: identifier escaping,
// catalog introspection and the insert-or-update statement form. All
// dialects used here bind positionally with '?' markers.
type Dialect interface {
	// Name identifies the dialect ("sqlite", "duckdb", ...).
	Name() string

	// QuoteIdent escapes a single identifier.
	QuoteIdent(name string) string

	// QualifyTable renders the schema-qualified, escaped table name.
	QualifyTable(schema, table string) string

	// Columns returns the table's column names in declared order.
	Columns(ctx context.Context, db *sql.DB, schema, table string) ([]string, error)

	// PrimaryKey returns the primary-key column names ordered by the key's
	// declared sequence position. An empty result means no primary key.
	PrimaryKey(ctx context.Context, db *sql.DB, schema, table string) ([]string, error)

	// UpsertSQL renders a multi-row INSERT that updates updateCols on a
	// conflict over conflictCols. With no updateCols the conflict is
	// ignored instead. Bind order is insertCols per row, rows in sequence.
	UpsertSQL(qualified string, insertCols, conflictCols, updateCols []string, rowCount int) string
}
