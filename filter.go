package nitrite

import (
	"regexp"
	"strings"
)

// Filter selects documents (spec §4.6). Filter lives in the root package,
// not a separate subpackage, because every concrete filter needs to read
// Document/Value directly (bundoc/internal/query/ast.go's AST served the
// same role for the teacher's Mongo-like query language, one package over
// from storage.Document for the same reason: the two are inseparable).
type Filter interface {
	// Matches reports whether doc satisfies the filter. sep is the active
	// document path separator (empty means DefaultPathSeparator).
	Matches(doc *Document, sep string) bool
}

// CompareOp is the operator of a FieldFilter.
type CompareOp int

const (
	OpEq CompareOp = iota
	OpNe
	OpGt
	OpGte
	OpLt
	OpLte
)

// FieldFilter compares a single field against a Value (spec's Eq/Ne/Gt/
// Gte/Lt/Lte filters). Exported fields so the find-optimizer (planFind,
// through EqualityFields) can type-switch on it directly without a
// parallel AST.
type FieldFilter struct {
	Field string
	Op    CompareOp
	Value Value
}

func Eq(field string, v Value) *FieldFilter  { return &FieldFilter{Field: field, Op: OpEq, Value: v} }
func Ne(field string, v Value) *FieldFilter  { return &FieldFilter{Field: field, Op: OpNe, Value: v} }
func Gt(field string, v Value) *FieldFilter  { return &FieldFilter{Field: field, Op: OpGt, Value: v} }
func Gte(field string, v Value) *FieldFilter { return &FieldFilter{Field: field, Op: OpGte, Value: v} }
func Lt(field string, v Value) *FieldFilter  { return &FieldFilter{Field: field, Op: OpLt, Value: v} }
func Lte(field string, v Value) *FieldFilter { return &FieldFilter{Field: field, Op: OpLte, Value: v} }

// valueMatchesEq implements eq/ne's array-membership rule (spec §8
// scenario S3): an array-valued field matches target if any of its
// elements does, the same explosion the indexing side already performs
// in Collection.indexKeySets, so residual/full-scan evaluation agrees
// with what a compound or simple index would have returned.
func valueMatchesEq(v, target Value) bool {
	if arr, ok := v.AsArray(); ok {
		for _, elem := range arr {
			if elem.Equal(target) {
				return true
			}
		}
		return false
	}
	return v.Equal(target)
}

func (f *FieldFilter) Matches(doc *Document, sep string) bool {
	v, ok := doc.Get(f.Field, sep)
	if !ok {
		v = Null
	}
	switch f.Op {
	case OpEq:
		return valueMatchesEq(v, f.Value)
	case OpNe:
		return !valueMatchesEq(v, f.Value)
	}
	if !v.IsComparable() || !f.Value.IsComparable() {
		return false
	}
	c := v.Compare(f.Value)
	switch f.Op {
	case OpGt:
		return c > 0
	case OpGte:
		return c >= 0
	case OpLt:
		return c < 0
	case OpLte:
		return c <= 0
	default:
		return false
	}
}

// InFilter matches (or, negated, excludes) any of a set of Values.
type InFilter struct {
	Field  string
	Values []Value
	Negate bool
}

func In(field string, vs ...Value) *InFilter    { return &InFilter{Field: field, Values: vs} }
func NotIn(field string, vs ...Value) *InFilter { return &InFilter{Field: field, Values: vs, Negate: true} }

func (f *InFilter) Matches(doc *Document, sep string) bool {
	v, ok := doc.Get(f.Field, sep)
	if !ok {
		v = Null
	}
	found := false
	for _, want := range f.Values {
		if v.Equal(want) {
			found = true
			break
		}
	}
	if f.Negate {
		return !found
	}
	return found
}

// ExistsFilter matches documents where Field is (or, negated, is not)
// present.
type ExistsFilter struct {
	Field  string
	Should bool
}

func Exists(field string) *ExistsFilter    { return &ExistsFilter{Field: field, Should: true} }
func NotExists(field string) *ExistsFilter { return &ExistsFilter{Field: field, Should: false} }

func (f *ExistsFilter) Matches(doc *Document, sep string) bool {
	_, ok := doc.Get(f.Field, sep)
	return ok == f.Should
}

// RegexFilter matches a string field against a compiled regular
// expression.
type RegexFilter struct {
	Field   string
	Pattern *regexp.Regexp
}

// Regex compiles pattern and panics on an invalid expression, mirroring
// the teacher's fail-fast behavior for malformed filters built from
// program-literal patterns; callers taking patterns from untrusted input
// should compile with regexp.Compile themselves and use RegexFilter
// directly to get an error instead of a panic.
func Regex(field, pattern string) *RegexFilter {
	return &RegexFilter{Field: field, Pattern: regexp.MustCompile(pattern)}
}

func (f *RegexFilter) Matches(doc *Document, sep string) bool {
	v, ok := doc.Get(f.Field, sep)
	if !ok {
		return false
	}
	s, ok := v.AsString()
	if !ok {
		return false
	}
	return f.Pattern.MatchString(s)
}

// TextFilter performs a simple case-insensitive token-containment match
// against a string field, the filter-side counterpart of a full-text
// index (spec §4's FullText index type). The find-optimizer never routes
// it to an index, so it is always evaluated by full scan.
type TextFilter struct {
	Field string
	Query string
}

func Text(field, query string) *TextFilter { return &TextFilter{Field: field, Query: query} }

func (f *TextFilter) Matches(doc *Document, sep string) bool {
	v, ok := doc.Get(f.Field, sep)
	if !ok {
		return false
	}
	s, ok := v.AsString()
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(f.Query))
}

// ElemMatchFilter matches documents having an array Field with at least
// one element satisfying Sub.
type ElemMatchFilter struct {
	Field string
	Sub   Filter
}

func ElemMatch(field string, sub Filter) *ElemMatchFilter {
	return &ElemMatchFilter{Field: field, Sub: sub}
}

func (f *ElemMatchFilter) Matches(doc *Document, sep string) bool {
	v, ok := doc.Get(f.Field, sep)
	if !ok {
		return false
	}
	arr, ok := v.AsArray()
	if !ok {
		return false
	}
	for _, elem := range arr {
		wrapper := NewDocument().Put(f.Field, elem)
		if f.Sub.Matches(wrapper, sep) {
			return true
		}
	}
	return false
}

// AndFilter matches when every sub-filter matches.
type AndFilter struct{ Filters []Filter }

func And(fs ...Filter) *AndFilter { return &AndFilter{Filters: fs} }

func (f *AndFilter) Matches(doc *Document, sep string) bool {
	for _, sub := range f.Filters {
		if !sub.Matches(doc, sep) {
			return false
		}
	}
	return true
}

// OrFilter matches when any sub-filter matches.
type OrFilter struct{ Filters []Filter }

func Or(fs ...Filter) *OrFilter { return &OrFilter{Filters: fs} }

func (f *OrFilter) Matches(doc *Document, sep string) bool {
	for _, sub := range f.Filters {
		if sub.Matches(doc, sep) {
			return true
		}
	}
	return false
}

// NotFilter negates Inner.
type NotFilter struct{ Inner Filter }

func Not(inner Filter) *NotFilter { return &NotFilter{Inner: inner} }

func (f *NotFilter) Matches(doc *Document, sep string) bool {
	return !f.Inner.Matches(doc, sep)
}

// AllFilter matches every document, used as the default full-scan filter
// when a caller passes a nil Filter to Find.
type AllFilter struct{}

func All() *AllFilter { return &AllFilter{} }

func (*AllFilter) Matches(*Document, string) bool { return true }

// EqualityFields walks f, collecting top-level equality constraints
// (FieldFilter with OpEq, recursively through AndFilter) into an ordered
// set of (field, value) pairs. The find-optimizer (planFind in plan.go)
// uses this to pick an index whose Fields begins with a leading run of
// the filter's equality fields (spec invariant 6). Order follows first
// appearance in a left-to-right walk of f's AND tree.
func EqualityFields(f Filter) (names []string, values map[string]Value) {
	values = make(map[string]Value)
	var walk func(Filter)
	walk = func(f Filter) {
		switch t := f.(type) {
		case *AndFilter:
			for _, sub := range t.Filters {
				walk(sub)
			}
		case *FieldFilter:
			if t.Op == OpEq {
				if _, seen := values[t.Field]; !seen {
					names = append(names, t.Field)
				}
				values[t.Field] = t.Value
			}
		}
	}
	walk(f)
	return names, values
}
