package sqlite

import (
	"context"
	"reflect"
	"testing"
)

func TestIntrospection(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, `CREATE TABLE events (
		tenant INTEGER,
		id INTEGER,
		payload TEXT,
		PRIMARY KEY (tenant, id)
	)`); err != nil {
		t.Fatalf("create table: %v", err)
	}

	d := New()
	cols, err := d.Columns(ctx, db, "", "events")
	if err != nil {
		t.Fatalf("Columns: %v", err)
	}
	if !reflect.DeepEqual(cols, []string{"tenant", "id", "payload"}) {
		t.Fatalf("Columns = %v", cols)
	}

	pk, err := d.PrimaryKey(ctx, db, "main", "events")
	if err != nil {
		t.Fatalf("PrimaryKey: %v", err)
	}
	if !reflect.DeepEqual(pk, []string{"tenant", "id"}) {
		t.Fatalf("PrimaryKey = %v", pk)
	}

	if _, err := d.Columns(ctx, db, "", "missing"); err == nil {
		t.Fatalf("expected error for unknown table")
	}
}

func TestIntrospectionNoPrimaryKey(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, `CREATE TABLE plain (a TEXT, b TEXT)`); err != nil {
		t.Fatalf("create table: %v", err)
	}

	pk, err := New().PrimaryKey(ctx, db, "", "plain")
	if err != nil {
		t.Fatalf("PrimaryKey: %v", err)
	}
	if len(pk) != 0 {
		t.Fatalf("PrimaryKey = %v, want empty", pk)
	}
}

func TestQualifyTable(t *testing.T) {
	d := New()
	if got := d.QualifyTable("", "t"); got != `"main"."t"` {
		t.Fatalf("QualifyTable = %q", got)
	}
	if got := d.QualifyTable("aux", `we"ird`); got != `"aux"."we""ird"` {
		t.Fatalf("QualifyTable = %q", got)
	}
}
