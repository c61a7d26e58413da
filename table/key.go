package table

// Row is one table row keyed by column name. Rows coming back from a fetch
// carry exactly the selected columns; rows passed into delete/upsert may
// carry extra columns beyond the primary key.
type Row map[string]any

// KeyPart is one (column, value) element of a primary-key tuple.
type KeyPart struct {
	Column string
	Value  any
}

// Key is a row's position in primary-key order: a fixed-order list of
// (column, value) pairs matching the declared key column order. The order is
// authoritative; tuple comparison and prefix-equality detection depend on it.
// A nil Key stands for an open range bound.
type Key []KeyPart

// Columns returns the key column names in key order.
func (k Key) Columns() []string {
	cols := make([]string, len(k))
	for i, p := range k {
		cols[i] = p.Column
	}
	return cols
}

// Values returns the key values in key order, ready for positional binding.
func (k Key) Values() []any {
	vals := make([]any, len(k))
	for i, p := range k {
		vals[i] = p.Value
	}
	return vals
}

// Row converts the key back into a Row holding only the key columns.
func (k Key) Row() Row {
	r := make(Row, len(k))
	for _, p := range k {
		r[p.Column] = p.Value
	}
	return r
}
