package table

import "fmt"

// Definition describes a table's columns and primary-key order. It is built
// once from introspection and never mutated afterwards; accessors return
// copies so callers cannot alter the underlying slices.
type Definition struct {
	columns    []string
	primaryKey []string
}

// NewDefinition validates that every primary-key column is also a table
// column and returns an immutable definition. An empty primary key is legal
// and means ranged operations are unsupported for the table.
func NewDefinition(columns, primaryKey []string) (*Definition, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("table: definition requires at least one column")
	}
	known := make(map[string]bool, len(columns))
	for _, c := range columns {
		known[c] = true
	}
	for _, k := range primaryKey {
		if !known[k] {
			return nil, fmt.Errorf("table: primary key column %q is not a table column", k)
		}
	}
	return &Definition{
		columns:    append([]string(nil), columns...),
		primaryKey: append([]string(nil), primaryKey...),
	}, nil
}

// Columns returns the column names in declared table order.
func (d *Definition) Columns() []string {
	return append([]string(nil), d.columns...)
}

// PrimaryKey returns the primary-key column names ordered by their declared
// key sequence position.
func (d *Definition) PrimaryKey() []string {
	return append([]string(nil), d.primaryKey...)
}

// HasPrimaryKey reports whether the table has a primary key at all.
func (d *Definition) HasPrimaryKey() bool { return len(d.primaryKey) > 0 }

// HasColumn reports whether name is a column of the table.
func (d *Definition) HasColumn(name string) bool {
	for _, c := range d.columns {
		if c == name {
			return true
		}
	}
	return false
}

// KeyOf projects a row down to exactly the primary-key columns, in
// primary-key order. Extra columns in the row are ignored; a missing
// primary-key column is an error since silently binding a partial key would
// corrupt range predicates.
func (d *Definition) KeyOf(r Row) (Key, error) {
	if len(d.primaryKey) == 0 {
		return nil, fmt.Errorf("table: cannot build key, table has no primary key")
	}
	key := make(Key, 0, len(d.primaryKey))
	for _, col := range d.primaryKey {
		v, ok := r[col]
		if !ok {
			return nil, fmt.Errorf("table: row is missing primary key column %q", col)
		}
		key = append(key, KeyPart{Column: col, Value: v})
	}
	return key, nil
}
