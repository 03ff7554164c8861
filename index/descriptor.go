// Package index implements the index manager (C3), the simple/compound
// index implementations (C4), and the index scanner (C5) of spec.md §4.
// It deliberately knows nothing about Document or Value: callers encode
// field values to sortable byte keys themselves (nitrite.Value.EncodeKey)
// before calling into this package, which keeps the dependency direction
// one-way (index -> store, never index -> the root nitrite package) and
// avoids an import cycle with collection.go.
package index

import "strings"

// Type names an index implementation, matching spec §4.4's "index types
// are named strings" design so new types can be registered without
// changing this package (see registry.go).
type Type string

const (
	Unique    Type = "Unique"
	NonUnique Type = "NonUnique"
	FullText  Type = "FullText"
	Spatial   Type = "Spatial"
)

// Fields is an ordered, non-empty list of field names an index is built
// over. A lightweight counterpart to nitrite.Fields, kept local to avoid
// the import cycle described above.
type Fields []string

func (f Fields) StartsWith(prefix Fields) bool {
	if len(prefix) > len(f) {
		return false
	}
	for i, n := range prefix {
		if f[i] != n {
			return false
		}
	}
	return true
}

func (f Fields) Equal(o Fields) bool {
	if len(f) != len(o) {
		return false
	}
	for i := range f {
		if f[i] != o[i] {
			return false
		}
	}
	return true
}

func (f Fields) String() string { return strings.Join(f, "+") }

// Descriptor is an IndexDescriptor (spec §3): the collection, field list,
// and index type that together name one index's backing map.
type Descriptor struct {
	Collection string
	Fields     Fields
	Type       Type
}

// MapName derives the backing store map name, following the teacher's
// metadata-registry convention of deriving stable names from content
// (bundoc/metadata.go keys collections/indexes by name) rather than
// generating opaque ids.
func (d *Descriptor) MapName() string {
	return d.Collection + "_" + d.Fields.String() + "_" + string(d.Type) + "_idx"
}

func (d *Descriptor) IsCompound() bool { return len(d.Fields) > 1 }
