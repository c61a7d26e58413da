// Package checksum supplies the fingerprint aggregates fed to the range
// engine. The engine treats the aggregate as an opaque SQL expression; this
// package renders order-insensitive sum-of-row-hash expressions per dialect
// and registers the backing hash function where the dialect lacks one.
package checksum

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/zeebo/xxh3"
	sqlite "modernc.org/sqlite"
)

var registerOnce sync.Once

// Register installs the deterministic xx64 scalar function on the SQLite
// driver. Call before opening connections that evaluate Expression output;
// connections opened earlier will not see the function. Safe to call more
// than once.
func Register() {
	registerOnce.Do(func() {
		// The driver rejects duplicate names; inside the once this cannot
		// trigger, the error is ignored for belt and braces only.
		_ = sqlite.RegisterDeterministicScalarFunction("xx64", 1, xx64Impl)
	})
}

// xx64Impl hashes its single argument with xxh3 and masks the result to 32
// bits, so summing one hash per row never overflows SQLite's 64-bit integer
// arithmetic on realistic chunk sizes. NULL hashes to NULL.
func xx64Impl(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("xx64: expected 1 argument, got %d", len(args))
	}
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return int64(xxh3.HashString(v) & 0xffffffff), nil
	case []byte:
		return int64(xxh3.Hash(v) & 0xffffffff), nil
	case int64:
		return int64(xxh3.HashString(strconv.FormatInt(v, 10)) & 0xffffffff), nil
	case float64:
		return int64(xxh3.HashString(strconv.FormatFloat(v, 'g', -1, 64)) & 0xffffffff), nil
	default:
		return nil, fmt.Errorf("xx64: unsupported argument type %T", args[0])
	}
}

// Expression renders the order-insensitive fingerprint aggregate for the
// given dialect over the selected columns: each row's columns are cast to
// text, joined with a unit separator, hashed, and the hashes summed. NULL is
// rendered distinct from the empty string. The column names must match the
// selection handed to the range engine.
func Expression(dialect string, columns []string) (string, error) {
	if len(columns) == 0 {
		return "", fmt.Errorf("checksum: no columns to fingerprint")
	}
	switch dialect {
	case "sqlite":
		return "sum(xx64(" + concatSQLite(columns) + "))", nil
	case "duckdb":
		return "sum(hash(" + concatDuckDB(columns) + "))", nil
	default:
		return "", fmt.Errorf("checksum: no default fingerprint for dialect %q", dialect)
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func concatSQLite(columns []string) string {
	parts := make([]string, len(columns))
	for i, c := range columns {
		// char(2) marks NULL so it cannot collide with an empty string.
		parts[i] = "coalesce(cast(" + quoteIdent(c) + " as text), char(2))"
	}
	return strings.Join(parts, " || char(31) || ")
}

func concatDuckDB(columns []string) string {
	parts := make([]string, len(columns))
	for i, c := range columns {
		parts[i] = "coalesce(cast(" + quoteIdent(c) + " as varchar), chr(2))"
	}
	return strings.Join(parts, " || chr(31) || ")
}
