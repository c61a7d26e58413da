package chunker

import (
	"reflect"
	"strings"

	"github.com/viant/dbsync/table"
)

// tuplePredicates holds the predicate texts derived from the primary-key
// column list. They are a pure function of the immutable table definition,
// so they are rendered once at engine construction and reused on every
// call.
type tuplePredicates struct {
	ge string // (k1..kn) >= (?..?)   range start, inclusive
	gt string // (k1..kn) >  (?..?)   pagination, strictly after a key
	lt string // (k1..kn) <  (?..?)   range end, exclusive
	ne string // (k1..kn) <> (?..?)   keep-row exclusion
}

func newTuplePredicates(quote func(string) string, primaryKey []string) tuplePredicates {
	if len(primaryKey) == 0 {
		// No primary key means no ranged operations; nothing to render.
		return tuplePredicates{}
	}
	cols := make([]string, len(primaryKey))
	for i, c := range primaryKey {
		cols[i] = quote(c)
	}
	var lhs, rhs string
	if len(cols) == 1 {
		// Single-column keys use the plain column form; the tuple syntax
		// adds nothing and reads worse in logs.
		lhs = cols[0]
		rhs = "?"
	} else {
		lhs = "(" + strings.Join(cols, ", ") + ")"
		rhs = "(" + strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"
	}
	return tuplePredicates{
		ge: lhs + " >= " + rhs,
		gt: lhs + " > " + rhs,
		lt: lhs + " < " + rhs,
		ne: lhs + " <> " + rhs,
	}
}

// sharedPrefixLen returns how many leading key columns hold equal values in
// both bounds, stopping at the first difference.
func sharedPrefixLen(start, end table.Key) int {
	n := 0
	for n < len(start) && n < len(end) {
		if !valueEqual(start[n].Value, end[n].Value) {
			break
		}
		n++
	}
	return n
}

// valueEqual compares bound values structurally. Keys travel through
// database/sql, so values are driver scalars (int64, float64, string,
// []byte, time.Time); DeepEqual covers the byte-slice case plain equality
// cannot.
func valueEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}
