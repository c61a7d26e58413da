package sqlexec

import (
	"strconv"
	"strings"
)

// Query accumulates the parts of a single select or delete statement over
// one table: selected columns, conjoined raw predicates with positional
// bindings, ordering and offset/limit, plus an optional aggregate expression
// evaluated over the selection as a subquery.
type Query struct {
	quote   func(string) string
	table   string // already qualified and escaped
	columns []string
	agg     string
	wheres  []string
	binds   []any
	orderBy []string
	limit   int
	offset  int
}

// NewQuery starts a builder for the given qualified table name. quote is the
// dialect's identifier escape, applied to column names passed to Select and
// OrderBy; raw predicates are taken verbatim.
func NewQuery(quote func(string) string, qualifiedTable string) *Query {
	return &Query{quote: quote, table: qualifiedTable, limit: -1, offset: -1}
}

// Select sets the projected columns.
func (q *Query) Select(columns ...string) *Query {
	q.columns = append([]string(nil), columns...)
	return q
}

// Aggregate wraps the built selection as a subquery and evaluates expr over
// it, so the statement yields a single scalar. expr is opaque raw SQL.
func (q *Query) Aggregate(expr string) *Query {
	q.agg = expr
	return q
}

// Where conjoins a raw boolean predicate with its positional bindings.
// Predicates are AND-ed in the order they are added.
func (q *Query) Where(predicate string, bindings ...any) *Query {
	q.wheres = append(q.wheres, predicate)
	q.binds = append(q.binds, bindings...)
	return q
}

// OrderBy orders ascending by the given columns.
func (q *Query) OrderBy(columns ...string) *Query {
	q.orderBy = append([]string(nil), columns...)
	return q
}

// Limit caps the row count.
func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

// Offset skips n rows. Rendered as LIMIT -1 OFFSET n when no limit is set,
// which both SQLite and DuckDB accept.
func (q *Query) Offset(n int) *Query {
	q.offset = n
	return q
}

// SelectSQL renders the select statement and its bind values.
func (q *Query) SelectSQL() (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT ")
	if len(q.columns) == 0 {
		b.WriteString("*")
	} else {
		for i, c := range q.columns {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(q.quote(c))
		}
	}
	b.WriteString(" FROM ")
	b.WriteString(q.table)
	q.writeWhere(&b)
	if len(q.orderBy) > 0 {
		b.WriteString(" ORDER BY ")
		for i, c := range q.orderBy {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(q.quote(c))
		}
	}
	if q.limit >= 0 || q.offset >= 0 {
		limit := q.limit
		if limit < 0 {
			limit = -1
		}
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(limit))
		if q.offset >= 0 {
			b.WriteString(" OFFSET ")
			b.WriteString(strconv.Itoa(q.offset))
		}
	}
	sel := b.String()
	if q.agg == "" {
		return sel, append([]any(nil), q.binds...)
	}
	return "SELECT " + q.agg + " FROM (" + sel + ") AS chunk", append([]any(nil), q.binds...)
}

// DeleteSQL renders a delete over the same table and predicates.
func (q *Query) DeleteSQL() (string, []any) {
	var b strings.Builder
	b.WriteString("DELETE FROM ")
	b.WriteString(q.table)
	q.writeWhere(&b)
	return b.String(), append([]any(nil), q.binds...)
}

func (q *Query) writeWhere(b *strings.Builder) {
	if len(q.wheres) == 0 {
		return
	}
	b.WriteString(" WHERE ")
	for i, w := range q.wheres {
		if i > 0 {
			b.WriteString(" AND ")
		}
		b.WriteString(w)
	}
}
