package chunker

import (
	"context"
	"fmt"

	"github.com/viant/dbsync/sqlexec"
	"github.com/viant/dbsync/table"
)

// Session is the engine's handle to one database, implemented by
// *sqlexec.Session. It builds and executes queries and answers catalog
// introspection; the engine never touches database/sql directly.
type Session interface {
	Quote(name string) string
	Build(schema, tbl string) *sqlexec.Query
	Rows(ctx context.Context, q *sqlexec.Query) ([]table.Row, error)
	Value(ctx context.Context, q *sqlexec.Query) (any, error)
	ExecDelete(ctx context.Context, q *sqlexec.Query) (int64, error)
	Upsert(ctx context.Context, schema, tbl string, rows []table.Row, insertCols, conflictCols, updateCols []string) (int64, error)
	IntrospectColumns(ctx context.Context, schema, tbl string) ([]string, error)
	IntrospectPrimaryKey(ctx context.Context, schema, tbl string) ([]string, error)
}

// Chunker reconciles one table in primary-key ranges over a borrowed
// session. It owns its schema definition and optional filter; calls are
// issued sequentially by one logical worker, concurrency is
// one-chunker-per-worker.
type Chunker struct {
	session Session
	schema  string
	name    string
	def     *table.Definition
	pk      []string
	preds   tuplePredicates
	filter  *table.Filter
}

// New introspects schema.name once over the session and returns a chunker
// for it. The tuple predicate texts are derived from the primary-key column
// list here and cached for the life of the instance.
func New(ctx context.Context, session Session, schema, name string) (*Chunker, error) {
	columns, err := session.IntrospectColumns(ctx, schema, name)
	if err != nil {
		return nil, fmt.Errorf("chunker: introspecting columns of %s.%s: %w", schema, name, err)
	}
	primaryKey, err := session.IntrospectPrimaryKey(ctx, schema, name)
	if err != nil {
		return nil, fmt.Errorf("chunker: introspecting primary key of %s.%s: %w", schema, name, err)
	}
	def, err := table.NewDefinition(columns, primaryKey)
	if err != nil {
		return nil, fmt.Errorf("chunker: %s.%s: %w", schema, name, err)
	}
	return &Chunker{
		session: session,
		schema:  schema,
		name:    name,
		def:     def,
		pk:      def.PrimaryKey(),
		preds:   newTuplePredicates(session.Quote, def.PrimaryKey()),
	}, nil
}

// Columns returns the table's column names in declared order.
func (c *Chunker) Columns() []string { return c.def.Columns() }

// PrimaryKey returns the primary-key column names in key order.
func (c *Chunker) PrimaryKey() []string { return c.def.PrimaryKey() }

// HasPrimaryKey reports whether ranged operations are supported at all.
func (c *Chunker) HasPrimaryKey() bool { return c.def.HasPrimaryKey() }

// Definition exposes the introspected schema definition.
func (c *Chunker) Definition() *table.Definition { return c.def }

// SetFilter attaches a filter clause AND-ed into every query this chunker
// issues. Attach before first use; the filter itself is validated at
// construction.
func (c *Chunker) SetFilter(f *table.Filter) error {
	if f == nil {
		return fmt.Errorf("chunker: nil filter")
	}
	c.filter = f
	return nil
}

// KeyAt returns the key of the row `position` rows after lastKey in
// ascending primary-key order, or nil when the table has no primary key or
// fewer than position+1 rows remain beyond lastKey. With a nil lastKey the
// walk starts at the first row. Only primary-key columns are read, so
// boundary computation never loads full rows.
func (c *Chunker) KeyAt(ctx context.Context, lastKey table.Key, position int) (table.Key, error) {
	if !c.def.HasPrimaryKey() {
		return nil, nil
	}
	if position < 0 {
		return nil, fmt.Errorf("chunker: negative position %d", position)
	}
	if err := c.checkKey(lastKey); err != nil {
		return nil, err
	}
	q := c.session.Build(c.schema, c.name).
		Select(c.pk...).
		OrderBy(c.pk...).
		Limit(1).
		Offset(position)
	c.applyFilter(q)
	if lastKey != nil {
		q.Where(c.preds.gt, lastKey.Values()...)
	}
	rows, err := c.session.Rows(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("chunker: paginating %s.%s: %w", c.schema, c.name, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return c.def.KeyOf(rows[0])
}

// HashForRange evaluates the opaque SQL aggregate over the given columns of
// all rows in [start, end), returning one scalar. The engine does not choose
// the hash; it only guarantees the aggregate sees exactly the range- and
// filter-scoped rows. An empty range yields the aggregate's neutral value.
func (c *Chunker) HashForRange(ctx context.Context, columns []string, aggregate string, start, end table.Key) (any, error) {
	if aggregate == "" {
		return nil, fmt.Errorf("chunker: empty aggregate expression")
	}
	q := c.session.Build(c.schema, c.name).Select(columns...).Aggregate(aggregate)
	c.applyFilter(q)
	if err := c.applyRange(q, start, end); err != nil {
		return nil, err
	}
	v, err := c.session.Value(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("chunker: fingerprinting %s.%s: %w", c.schema, c.name, err)
	}
	return v, nil
}

// RowsForRange fetches the given columns of all rows in [start, end) scoped
// by the filter. No row order is guaranteed; callers re-sort if they care.
func (c *Chunker) RowsForRange(ctx context.Context, columns []string, start, end table.Key) ([]table.Row, error) {
	q := c.session.Build(c.schema, c.name).Select(columns...)
	c.applyFilter(q)
	if err := c.applyRange(q, start, end); err != nil {
		return nil, err
	}
	rows, err := c.session.Rows(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("chunker: fetching %s.%s: %w", c.schema, c.name, err)
	}
	return rows, nil
}

// DeleteRange removes every row in [start, end) whose primary-key tuple
// differs from all keepRows. Each keep row is projected down to exactly the
// primary-key columns in key order before binding; extra columns are
// ignored and a missing key column is an error. Returns the removed count.
func (c *Chunker) DeleteRange(ctx context.Context, start, end table.Key, keepRows []table.Row) (int64, error) {
	if !c.def.HasPrimaryKey() {
		return 0, fmt.Errorf("chunker: %s.%s has no primary key", c.schema, c.name)
	}
	q := c.session.Build(c.schema, c.name)
	c.applyFilter(q)
	if err := c.applyRange(q, start, end); err != nil {
		return 0, err
	}
	for _, r := range keepRows {
		key, err := c.def.KeyOf(r)
		if err != nil {
			return 0, fmt.Errorf("chunker: keep row: %w", err)
		}
		q.Where(c.preds.ne, key.Values()...)
	}
	n, err := c.session.ExecDelete(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("chunker: deleting from %s.%s: %w", c.schema, c.name, err)
	}
	return n, nil
}

// Upsert inserts rows, updating updateColumns on an existing primary key
// instead. The inserted column set is the table's declared columns present
// in the first row, in declared order; every row must carry them all.
// Returns the number of rows inserted or updated.
func (c *Chunker) Upsert(ctx context.Context, rows []table.Row, updateColumns []string) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if !c.def.HasPrimaryKey() {
		return 0, fmt.Errorf("chunker: %s.%s has no primary key", c.schema, c.name)
	}
	var insertCols []string
	for _, col := range c.def.Columns() {
		if _, ok := rows[0][col]; ok {
			insertCols = append(insertCols, col)
		}
	}
	present := make(map[string]bool, len(insertCols))
	for _, col := range insertCols {
		present[col] = true
	}
	for _, k := range c.pk {
		if !present[k] {
			return 0, fmt.Errorf("chunker: upsert rows are missing primary key column %q", k)
		}
	}
	for _, col := range updateColumns {
		if !c.def.HasColumn(col) {
			return 0, fmt.Errorf("chunker: update column %q is not a table column", col)
		}
	}
	n, err := c.session.Upsert(ctx, c.schema, c.name, rows, insertCols, c.pk, updateColumns)
	if err != nil {
		return 0, fmt.Errorf("chunker: upserting into %s.%s: %w", c.schema, c.name, err)
	}
	return n, nil
}

func (c *Chunker) applyFilter(q *sqlexec.Query) {
	if c.filter == nil {
		return
	}
	q.Where("("+c.filter.Predicate()+")", c.filter.Bindings()...)
}

// applyRange conjoins the predicates selecting primary-key tuples in
// [start, end). Compound keys whose bounds share a leading prefix of equal
// values collapse to per-column equality plus a single-column range on the
// first differing column, which keeps the condition sargable for index and
// partition pruning. An end-only bound on a compound key gets an extra
// single-column bound on the leading key column for the same reason.
func (c *Chunker) applyRange(q *sqlexec.Query, start, end table.Key) error {
	if err := c.checkKey(start); err != nil {
		return err
	}
	if err := c.checkKey(end); err != nil {
		return err
	}
	compound := len(c.pk) > 1
	if compound && start != nil && end != nil {
		if p := sharedPrefixLen(start, end); p > 0 && p < len(c.pk) {
			for i := 0; i < p; i++ {
				q.Where(c.session.Quote(start[i].Column)+" = ?", start[i].Value)
			}
			col := c.session.Quote(start[p].Column)
			q.Where(col+" >= ?", start[p].Value)
			q.Where(col+" <= ?", end[p].Value)
			return nil
		}
		// Bounds equal in every column describe an empty range; the exact
		// tuple form below selects nothing, which is what we want.
	}
	if start != nil {
		q.Where(c.preds.ge, start.Values()...)
	}
	if end != nil {
		q.Where(c.preds.lt, end.Values()...)
		if compound && start == nil {
			q.Where(c.session.Quote(end[0].Column)+" <= ?", end[0].Value)
		}
	}
	return nil
}

// checkKey rejects keys whose columns do not match the primary key in name
// and order; binding a misaligned tuple would silently corrupt the range.
func (c *Chunker) checkKey(k table.Key) error {
	if k == nil {
		return nil
	}
	if len(k) != len(c.pk) {
		return fmt.Errorf("chunker: key has %d columns, primary key has %d", len(k), len(c.pk))
	}
	for i, p := range k {
		if p.Column != c.pk[i] {
			return fmt.Errorf("chunker: key column %d is %q, want %q", i, p.Column, c.pk[i])
		}
	}
	return nil
}
