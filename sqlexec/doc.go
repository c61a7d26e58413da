// Package sqlexec is the SQL execution port used by the sync engine. It
// pairs a database/sql handle with a Dialect for identifier quoting, schema
// introspection and upsert rendering, and offers a small query builder for
// the select/delete shapes the engine issues. Concrete dialects live in the
// sqlite and duckdb subpackages.
package sqlexec
