// Package table holds the value types shared by the sync engine: the
// immutable schema definition of a table, primary-key tuples, row maps and
// validated filter clauses.
package table
