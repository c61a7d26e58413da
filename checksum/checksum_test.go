package checksum

import (
	"database/sql"
	"strings"
	"testing"

	_ "modernc.org/sqlite"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	Register()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open :memory:: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	db.SetMaxOpenConns(1)
	return db
}

func TestXX64Deterministic(t *testing.T) {
	db := openDB(t)
	var a, b int64
	if err := db.QueryRow(`SELECT xx64('hello')`).Scan(&a); err != nil {
		t.Fatalf("xx64('hello'): %v", err)
	}
	if err := db.QueryRow(`SELECT xx64('hello')`).Scan(&b); err != nil {
		t.Fatalf("xx64('hello') again: %v", err)
	}
	if a != b {
		t.Fatalf("xx64 not deterministic: %d vs %d", a, b)
	}
	if a < 0 || a > 0xffffffff {
		t.Fatalf("xx64 out of 32-bit range: %d", a)
	}

	var c int64
	if err := db.QueryRow(`SELECT xx64('world')`).Scan(&c); err != nil {
		t.Fatalf("xx64('world'): %v", err)
	}
	if a == c {
		t.Fatalf("distinct inputs hashed equal")
	}
}

func TestXX64Null(t *testing.T) {
	db := openDB(t)
	var v sql.NullInt64
	if err := db.QueryRow(`SELECT xx64(NULL)`).Scan(&v); err != nil {
		t.Fatalf("xx64(NULL): %v", err)
	}
	if v.Valid {
		t.Fatalf("xx64(NULL) = %d, want NULL", v.Int64)
	}
}

func TestExpressionOrderInsensitive(t *testing.T) {
	db := openDB(t)
	if _, err := db.Exec(`CREATE TABLE a (id INTEGER, v TEXT)`); err != nil {
		t.Fatalf("create table a: %v", err)
	}
	if _, err := db.Exec(`CREATE TABLE b (id INTEGER, v TEXT)`); err != nil {
		t.Fatalf("create table b: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO a VALUES (1,'x'), (2,'y'), (3,NULL)`); err != nil {
		t.Fatalf("insert a: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO b VALUES (3,NULL), (2,'y'), (1,'x')`); err != nil {
		t.Fatalf("insert b: %v", err)
	}

	expr, err := Expression("sqlite", []string{"id", "v"})
	if err != nil {
		t.Fatalf("Expression: %v", err)
	}
	var ha, hb int64
	if err := db.QueryRow(`SELECT ` + expr + ` FROM a`).Scan(&ha); err != nil {
		t.Fatalf("hash a: %v", err)
	}
	if err := db.QueryRow(`SELECT ` + expr + ` FROM b`).Scan(&hb); err != nil {
		t.Fatalf("hash b: %v", err)
	}
	if ha != hb {
		t.Fatalf("same content hashed differently: %d vs %d", ha, hb)
	}
}

func TestExpressionDistinguishesNullFromEmpty(t *testing.T) {
	db := openDB(t)
	if _, err := db.Exec(`CREATE TABLE a (v TEXT)`); err != nil {
		t.Fatalf("create table a: %v", err)
	}
	if _, err := db.Exec(`CREATE TABLE b (v TEXT)`); err != nil {
		t.Fatalf("create table b: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO a VALUES (NULL)`); err != nil {
		t.Fatalf("insert a: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO b VALUES ('')`); err != nil {
		t.Fatalf("insert b: %v", err)
	}
	expr, err := Expression("sqlite", []string{"v"})
	if err != nil {
		t.Fatalf("Expression: %v", err)
	}
	var ha, hb int64
	if err := db.QueryRow(`SELECT ` + expr + ` FROM a`).Scan(&ha); err != nil {
		t.Fatalf("hash a: %v", err)
	}
	if err := db.QueryRow(`SELECT ` + expr + ` FROM b`).Scan(&hb); err != nil {
		t.Fatalf("hash b: %v", err)
	}
	if ha == hb {
		t.Fatalf("NULL and empty string hashed equal")
	}
}

func TestExpressionUnknownDialect(t *testing.T) {
	if _, err := Expression("oracle", []string{"id"}); err == nil {
		t.Fatalf("expected error for unknown dialect")
	}
	if _, err := Expression("sqlite", nil); err == nil {
		t.Fatalf("expected error for empty column list")
	}
}

func TestExpressionShape(t *testing.T) {
	expr, err := Expression("duckdb", []string{"id", "v"})
	if err != nil {
		t.Fatalf("Expression: %v", err)
	}
	if !strings.HasPrefix(expr, "sum(hash(") {
		t.Fatalf("duckdb expression = %q", expr)
	}
}
