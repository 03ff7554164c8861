package nitrite

import "github.com/nitrite-go/nitrite/index"

// FindPlan is the find-optimizer's output (spec glossary): either an
// index scan (Descriptor + per-level Constraints) or a full scan.
// Residual is always the original filter, re-evaluated against every
// fetched document regardless of which path produced candidate ids —
// indexes narrow the candidate set but are never trusted as the sole
// arbiter of correctness (spec §8 invariant 4: "regardless of whether an
// index plan was used").
type FindPlan struct {
	Descriptor  *index.Descriptor
	Constraints []index.Constraint
	Residual    Filter
	Reverse     bool
}

// planFind inspects filter's equality constraints and selects the
// longest-prefix-matching index registered on collection (spec invariant
// 6), falling back to a full scan when no equality constraints are
// present or no index begins with the first of them.
func planFind(mgr *index.Manager, collection string, f Filter, sep string) FindPlan {
	if f == nil {
		f = All()
	}
	names, values := EqualityFields(f)
	if len(names) == 0 {
		return FindPlan{Residual: f}
	}
	// Try the longest leading run of equality fields first, so an index
	// over (a) still serves a query over (a, b).
	var desc *index.Descriptor
	k := len(names)
	for ; k > 0; k-- {
		if d, ok := mgr.FindMatching(collection, names[:k]); ok {
			desc = d
			break
		}
	}
	if desc == nil {
		return FindPlan{Residual: f}
	}
	// desc.Fields may be longer than names (e.g. a query over just the
	// leading field of a wider compound index): constrain only the
	// query's prefix levels and leave the trailing index levels
	// unconstrained, which the scanner's default ConstraintRange sweep
	// (scanner.go's scanLevel) already handles.
	constraints := make([]index.Constraint, k)
	for i := 0; i < k; i++ {
		v := values[desc.Fields[i]]
		constraints[i] = index.Constraint{Op: index.ConstraintEq, Eq: v.EncodeKey()}
	}
	return FindPlan{Descriptor: desc, Constraints: constraints, Residual: f}
}
