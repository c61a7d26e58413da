package table

import (
	"reflect"
	"testing"
)

func TestNewDefinitionValidatesPrimaryKey(t *testing.T) {
	if _, err := NewDefinition([]string{"id", "name"}, []string{"id"}); err != nil {
		t.Fatalf("NewDefinition valid: %v", err)
	}
	if _, err := NewDefinition([]string{"id"}, []string{"missing"}); err == nil {
		t.Fatalf("expected error for primary key column not in columns")
	}
	if _, err := NewDefinition(nil, nil); err == nil {
		t.Fatalf("expected error for empty column list")
	}
}

func TestDefinitionAccessorsReturnCopies(t *testing.T) {
	def, err := NewDefinition([]string{"a", "b"}, []string{"a"})
	if err != nil {
		t.Fatalf("NewDefinition: %v", err)
	}
	cols := def.Columns()
	cols[0] = "mutated"
	if got := def.Columns()[0]; got != "a" {
		t.Fatalf("Columns leaked internal slice, got %q", got)
	}
	pk := def.PrimaryKey()
	pk[0] = "mutated"
	if got := def.PrimaryKey()[0]; got != "a" {
		t.Fatalf("PrimaryKey leaked internal slice, got %q", got)
	}
}

func TestKeyOfProjectsInPrimaryKeyOrder(t *testing.T) {
	def, err := NewDefinition([]string{"tenant", "id", "name"}, []string{"tenant", "id"})
	if err != nil {
		t.Fatalf("NewDefinition: %v", err)
	}
	// Row carries extra columns and no particular order; projection must
	// still yield (tenant, id) in key order.
	key, err := def.KeyOf(Row{"name": "x", "id": int64(10), "tenant": int64(5)})
	if err != nil {
		t.Fatalf("KeyOf: %v", err)
	}
	if !reflect.DeepEqual(key.Columns(), []string{"tenant", "id"}) {
		t.Fatalf("key columns = %v, want [tenant id]", key.Columns())
	}
	if !reflect.DeepEqual(key.Values(), []any{int64(5), int64(10)}) {
		t.Fatalf("key values = %v, want [5 10]", key.Values())
	}

	if _, err := def.KeyOf(Row{"tenant": 5}); err == nil {
		t.Fatalf("expected error for row missing primary key column")
	}
}

func TestKeyOfWithoutPrimaryKey(t *testing.T) {
	def, err := NewDefinition([]string{"a"}, nil)
	if err != nil {
		t.Fatalf("NewDefinition: %v", err)
	}
	if def.HasPrimaryKey() {
		t.Fatalf("HasPrimaryKey = true, want false")
	}
	if _, err := def.KeyOf(Row{"a": 1}); err == nil {
		t.Fatalf("expected error building key without primary key")
	}
}

func TestNewFilterPlaceholderValidation(t *testing.T) {
	f, err := NewFilter("tenant_id = ? AND region = ?", int64(5), "eu")
	if err != nil {
		t.Fatalf("NewFilter valid: %v", err)
	}
	if f.Predicate() != "tenant_id = ? AND region = ?" {
		t.Fatalf("Predicate = %q", f.Predicate())
	}
	if len(f.Bindings()) != 2 {
		t.Fatalf("Bindings = %v", f.Bindings())
	}

	if _, err := NewFilter("tenant_id = ?"); err == nil {
		t.Fatalf("expected error for missing binding")
	}
	if _, err := NewFilter("tenant_id = 1", "extra"); err == nil {
		t.Fatalf("expected error for extra binding")
	}
	// '?' inside a string literal is not a placeholder.
	if _, err := NewFilter("note = 'why?' AND tenant_id = ?", int64(1)); err != nil {
		t.Fatalf("placeholder inside literal miscounted: %v", err)
	}
}
