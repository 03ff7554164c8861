package nitrite

import "strings"

// fieldsEncodingSeparator joins field names into Fields' encoded form. An
// unprintable separator (distinct from the document path separator,
// which defaults to "." and is user-configurable) avoids collisions with
// real field names that happen to contain dots.
const fieldsEncodingSeparator = "\x1f"

// Fields is an ordered, non-empty, immutable sequence of field names
// (spec §3), grounded on original_source/nitrite/src/common/fields.rs:
// an Arc<FieldsInner>-style immutable value with a cached encoded form
// used both for equality and for prefix-match containment checks.
type Fields struct {
	names   []string
	encoded string
}

// NewFields builds a Fields from one or more field names. Panics if names
// is empty; index.Manager.CreateIndex separately rejects an empty field
// list with a ValidationError.
func NewFields(names ...string) Fields {
	if len(names) == 0 {
		panic("nitrite: Fields requires at least one field name")
	}
	cp := make([]string, len(names))
	copy(cp, names)
	return Fields{names: cp, encoded: strings.Join(cp, fieldsEncodingSeparator)}
}

// Names returns the field names in order.
func (f Fields) Names() []string { return f.names }

// Len returns the number of fields.
func (f Fields) Len() int { return len(f.names) }

// Encoded returns the cached encoded form used for map keys/equality.
func (f Fields) Encoded() string { return f.encoded }

// Equal reports whether two Fields have the same encoded form.
func (f Fields) Equal(o Fields) bool { return f.encoded == o.encoded }

// StartsWith reports whether prefix is a strict or equal leading
// subsequence of f — the prefix-matching rule index.Manager uses to
// decide whether a compound index over f can serve a query over prefix
// (spec invariant 6).
func (f Fields) StartsWith(prefix Fields) bool {
	if prefix.Len() > f.Len() {
		return false
	}
	for i, n := range prefix.names {
		if f.names[i] != n {
			return false
		}
	}
	return true
}

// IsCompound reports whether this Fields has more than one field (spec
// §3's IndexDescriptor.is_compound_index()).
func (f Fields) IsCompound() bool { return len(f.names) > 1 }
