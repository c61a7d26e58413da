package sqlexec_test

import (
	"context"
	"testing"

	"github.com/viant/dbsync/sqlexec"
	"github.com/viant/dbsync/sqlexec/sqlite"
	"github.com/viant/dbsync/table"
)

func newSession(t *testing.T) *sqlexec.Session {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("sqlite.Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	db.SetMaxOpenConns(1)
	return sqlexec.New(db, sqlite.New())
}

func TestSessionRowsAndValue(t *testing.T) {
	s := newSession(t)
	ctx := context.Background()
	if _, err := s.DB().ExecContext(ctx, `CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if _, err := s.DB().ExecContext(ctx, `INSERT INTO t VALUES (1,'a'), (2,'b'), (3,'c')`); err != nil {
		t.Fatalf("insert: %v", err)
	}

	rows, err := s.Rows(ctx, s.Build("", "t").Select("id", "name").Where(`"id" >= ?`, 2).OrderBy("id"))
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0]["id"] != int64(2) || rows[0]["name"] != "b" {
		t.Fatalf("first row = %v", rows[0])
	}

	v, err := s.Value(ctx, s.Build("", "t").Select("id").Aggregate("count(*)"))
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	if v != int64(3) {
		t.Fatalf("count = %v, want 3", v)
	}
}

func TestSessionUpsertAndDelete(t *testing.T) {
	s := newSession(t)
	ctx := context.Background()
	if _, err := s.DB().ExecContext(ctx, `CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT, score INTEGER)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if _, err := s.DB().ExecContext(ctx, `INSERT INTO t VALUES (1,'a',10)`); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// One conflicting row and one fresh row in a single statement. Only the
	// name column is updated on conflict; score must stay untouched.
	n, err := s.Upsert(ctx, "", "t",
		[]table.Row{
			{"id": int64(1), "name": "a2", "score": int64(99)},
			{"id": int64(2), "name": "b", "score": int64(20)},
		},
		[]string{"id", "name", "score"}, []string{"id"}, []string{"name"})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if n != 2 {
		t.Fatalf("affected = %d, want 2", n)
	}

	var name string
	var score int64
	if err := s.DB().QueryRowContext(ctx, `SELECT name, score FROM t WHERE id = 1`).Scan(&name, &score); err != nil {
		t.Fatalf("read back: %v", err)
	}
	if name != "a2" || score != 10 {
		t.Fatalf("row 1 = (%s,%d), want (a2,10)", name, score)
	}

	// Missing column in a row fails before touching the database.
	if _, err := s.Upsert(ctx, "", "t",
		[]table.Row{{"id": int64(3)}},
		[]string{"id", "name", "score"}, []string{"id"}, nil); err == nil {
		t.Fatalf("expected error for row missing insert column")
	}

	del, err := s.ExecDelete(ctx, s.Build("", "t").Where(`"id" = ?`, 2))
	if err != nil {
		t.Fatalf("ExecDelete: %v", err)
	}
	if del != 1 {
		t.Fatalf("deleted = %d, want 1", del)
	}
}
