package index

import (
	"fmt"

	"github.com/nitrite-go/nitrite/store"
)

// Index is the index-type provider interface consumed by the core (spec
// §4.4 / §195's "index-type provider interface"): write/remove a single
// document's entry and clear the whole index. Scan is handled separately
// (scanner.go) since it operates on the backing OrderedMap directly
// rather than through a per-document call.
type Index interface {
	Descriptor() *Descriptor
	Write(keys [][]byte, id uint64) error
	Remove(keys [][]byte, id uint64) error
	Clear() error
}

// Provider constructs the Index implementation for a descriptor of a
// given Type. Text and spatial indexes are explicitly out of scope (spec
// §6: "Tantivy-style inverted index, R-tree... outside this spec") — this
// registry is the extension point a host application would use to plug
// one in without touching this package.
type Provider func(s store.Store, desc *Descriptor, root store.OrderedMap) Index

var providers = map[Type]Provider{
	Unique:    simpleOrCompound,
	NonUnique: simpleOrCompound,
}

func simpleOrCompound(s store.Store, d *Descriptor, root store.OrderedMap) Index {
	if d.IsCompound() {
		return NewCompoundIndex(s, d, root)
	}
	return NewSimpleIndex(s, d, root)
}

// RegisterProvider installs (or overrides) the Index implementation used
// for typ. Call before opening any index of that type.
func RegisterProvider(typ Type, p Provider) { providers[typ] = p }

func newIndex(s store.Store, d *Descriptor, root store.OrderedMap) (Index, error) {
	p, ok := providers[d.Type]
	if !ok {
		return nil, fmt.Errorf("index: no provider registered for type %q", d.Type)
	}
	return p(s, d, root), nil
}
