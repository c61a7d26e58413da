package sqlexec

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/viant/dbsync/table"
)

// Session binds one database handle to a dialect. It executes built queries
// and exposes the introspection surface the sync engine needs. A session is
// safe for use by multiple engine instances since database/sql pools
// connections underneath; the engines themselves stay single-caller.
type Session struct {
	db      *sql.DB
	dialect Dialect
}

// New wraps db with the given dialect. The session borrows db; closing it
// remains the caller's responsibility.
func New(db *sql.DB, dialect Dialect) *Session {
	return &Session{db: db, dialect: dialect}
}

// DB returns the underlying handle.
func (s *Session) DB() *sql.DB { return s.db }

// DialectName returns the dialect identifier.
func (s *Session) DialectName() string { return s.dialect.Name() }

// Quote escapes a single identifier using the session's dialect.
func (s *Session) Quote(name string) string { return s.dialect.QuoteIdent(name) }

// Build starts a query builder for schema.table.
func (s *Session) Build(schema, tbl string) *Query {
	return NewQuery(s.dialect.QuoteIdent, s.dialect.QualifyTable(schema, tbl))
}

// IntrospectColumns returns the table's columns in declared order.
func (s *Session) IntrospectColumns(ctx context.Context, schema, tbl string) ([]string, error) {
	return s.dialect.Columns(ctx, s.db, schema, tbl)
}

// IntrospectPrimaryKey returns the primary-key columns in key order.
func (s *Session) IntrospectPrimaryKey(ctx context.Context, schema, tbl string) ([]string, error) {
	return s.dialect.PrimaryKey(ctx, s.db, schema, tbl)
}

// Rows executes the built select and scans every result row into a column
// name keyed map. No ordering beyond the query's own ORDER BY is implied.
func (s *Session) Rows(ctx context.Context, q *Query) ([]table.Row, error) {
	stmt, binds := q.SelectSQL()
	rows, err := s.db.QueryContext(ctx, stmt, binds...)
	if err != nil {
		return nil, fmt.Errorf("sqlexec: query failed: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("sqlexec: reading result columns: %w", err)
	}
	var out []table.Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("sqlexec: scanning row: %w", err)
		}
		r := make(table.Row, len(cols))
		for i, c := range cols {
			r[c] = values[i]
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlexec: iterating rows: %w", err)
	}
	return out, nil
}

// Value executes the built select and returns the single scalar it yields,
// typically an aggregate. A NULL result comes back as nil.
func (s *Session) Value(ctx context.Context, q *Query) (any, error) {
	stmt, binds := q.SelectSQL()
	var v any
	if err := s.db.QueryRowContext(ctx, stmt, binds...).Scan(&v); err != nil {
		return nil, fmt.Errorf("sqlexec: scalar query failed: %w", err)
	}
	return v, nil
}

// ExecDelete renders the builder as a delete and returns the affected count.
func (s *Session) ExecDelete(ctx context.Context, q *Query) (int64, error) {
	stmt, binds := q.DeleteSQL()
	res, err := s.db.ExecContext(ctx, stmt, binds...)
	if err != nil {
		return 0, fmt.Errorf("sqlexec: delete failed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlexec: reading affected count: %w", err)
	}
	return n, nil
}

// Upsert inserts rows into schema.tbl, updating updateCols on a primary-key
// conflict. Every row must carry all insertCols; the affected count covers
// both inserted and updated rows.
func (s *Session) Upsert(ctx context.Context, schema, tbl string, rows []table.Row, insertCols, conflictCols, updateCols []string) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	stmt := s.dialect.UpsertSQL(s.dialect.QualifyTable(schema, tbl), insertCols, conflictCols, updateCols, len(rows))
	binds := make([]any, 0, len(rows)*len(insertCols))
	for _, r := range rows {
		for _, c := range insertCols {
			v, ok := r[c]
			if !ok {
				return 0, fmt.Errorf("sqlexec: upsert row is missing column %q", c)
			}
			binds = append(binds, v)
		}
	}
	res, err := s.db.ExecContext(ctx, stmt, binds...)
	if err != nil {
		return 0, fmt.Errorf("sqlexec: upsert failed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlexec: reading affected count: %w", err)
	}
	return n, nil
}

// QuoteAll escapes every name with quote, preserving order. Shared by the
// dialect implementations when rendering column lists.
func QuoteAll(quote func(string) string, names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = quote(n)
	}
	return out
}

// UpsertStatement renders the ANSI ON CONFLICT upsert form shared by the
// SQLite and DuckDB dialects.
func UpsertStatement(quote func(string) string, qualified string, insertCols, conflictCols, updateCols []string, rowCount int) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(qualified)
	b.WriteString(" (")
	b.WriteString(strings.Join(QuoteAll(quote, insertCols), ", "))
	b.WriteString(") VALUES ")
	row := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(insertCols)), ", ") + ")"
	for i := 0; i < rowCount; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(row)
	}
	b.WriteString(" ON CONFLICT (")
	b.WriteString(strings.Join(QuoteAll(quote, conflictCols), ", "))
	b.WriteString(")")
	if len(updateCols) == 0 {
		b.WriteString(" DO NOTHING")
		return b.String()
	}
	b.WriteString(" DO UPDATE SET ")
	for i, c := range updateCols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quote(c))
		b.WriteString(" = excluded.")
		b.WriteString(quote(c))
	}
	return b.String()
}
