package index

import "github.com/nitrite-go/nitrite/store"

// CompoundIndex indexes two or more fields as a chain of nested maps: the
// Nth field's id bucket lives under a submap reached by following the
// first N-1 fields' encoded keys in turn (spec §4.4). No original_source
// reference file covered the multi-field case directly; this generalizes
// simple_index.rs's single-field write/remove semantics one level at a
// time via treeIndex.
type CompoundIndex struct{ *treeIndex }

func NewCompoundIndex(s store.Store, desc *Descriptor, root store.OrderedMap) *CompoundIndex {
	return &CompoundIndex{treeIndex: newTreeIndex(s, desc, root)}
}
