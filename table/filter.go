package table

import "fmt"

// Filter is a pre-validated raw predicate scoping every engine query to a
// subset of rows, e.g. a tenant or shard condition. The engine treats the
// predicate as an opaque boolean expression it conjoins; it never parses it.
type Filter struct {
	predicate string
	bindings  []any
}

// NewFilter validates that the number of positional placeholders in the
// predicate matches the supplied bindings and returns an immutable filter.
// A mismatch is a configuration error and fails here rather than on the
// first query.
func NewFilter(predicate string, bindings ...any) (*Filter, error) {
	if predicate == "" {
		return nil, fmt.Errorf("table: filter predicate is empty")
	}
	if n := placeholderCount(predicate); n != len(bindings) {
		return nil, fmt.Errorf("table: filter predicate has %d placeholders but %d bindings", n, len(bindings))
	}
	return &Filter{predicate: predicate, bindings: append([]any(nil), bindings...)}, nil
}

// Predicate returns the raw boolean expression text.
func (f *Filter) Predicate() string { return f.predicate }

// Bindings returns the positional bind values matching the placeholders.
func (f *Filter) Bindings() []any { return append([]any(nil), f.bindings...) }

// placeholderCount counts '?' markers outside single-quoted string literals.
func placeholderCount(predicate string) int {
	n := 0
	inString := false
	for i := 0; i < len(predicate); i++ {
		switch predicate[i] {
		case '\'':
			inString = !inString
		case '?':
			if !inString {
				n++
			}
		}
	}
	return n
}
