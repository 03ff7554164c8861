package index

import "github.com/nitrite-go/nitrite/store"

// SimpleIndex indexes a single field (spec §4.4). It is a treeIndex of
// depth one: Write/Remove take a one-element key slice and the
// nested-map machinery degenerates to a flat bucket map, so there is no
// separate single-field code path to keep in sync with CompoundIndex.
type SimpleIndex struct{ *treeIndex }

func NewSimpleIndex(s store.Store, desc *Descriptor, root store.OrderedMap) *SimpleIndex {
	return &SimpleIndex{treeIndex: newTreeIndex(s, desc, root)}
}
