// Package store defines the pluggable persistence contract (C1, C2): an
// ordered, navigable key space per named map, and a store that owns the
// lifecycle of those maps. Two concrete backends implement it:
// store/memory (pure in-process, github.com/tidwall/btree) and store/lsm
// (durable, adapted from the teacher's paged B+Tree).
package store

import "errors"

// ErrClosed is returned by a Store's OpenMap and RemoveMap after Close has
// been called on it. OrderedMap operations do not check for it.
var ErrClosed = errors.New("store: already closed")

// ErrNotFound is not returned by the memory or lsm backends: Get reports a
// missing key through its ok result, and Remove of a missing key returns nil.
var ErrNotFound = errors.New("store: key not found")

// Entry is a single key/value pair returned from a range query.
type Entry struct {
	Key   []byte
	Value []byte
}

// Attributes is an opaque string-keyed sidecar persisted alongside a map,
// used by the index manager to stash IndexMeta state (dirty flag, type,
// field list) next to the index data it describes.
type Attributes map[string]string

// OrderedMap is a byte-keyed navigable map: besides point lookups it
// supports the first/last/higher/ceiling/lower/floor key queries C1
// requires, plus inclusive range iteration.
type OrderedMap interface {
	Name() string

	Get(key []byte) ([]byte, bool, error)
	Put(key, value []byte) error
	Remove(key []byte) error
	Size() (int, error)

	FirstKey() (key []byte, ok bool, err error)
	LastKey() (key []byte, ok bool, err error)
	HigherKey(key []byte) (result []byte, ok bool, err error)
	CeilingKey(key []byte) (result []byte, ok bool, err error)
	LowerKey(key []byte) (result []byte, ok bool, err error)
	FloorKey(key []byte) (result []byte, ok bool, err error)

	// Range returns entries with start <= key <= end, in ascending key
	// order if !reverse, descending otherwise. A nil bound is open on
	// that side. Iteration is weakly consistent: concurrent writes during
	// a Range call may or may not be observed by it, but it never
	// corrupts or returns inconsistent entries.
	Range(start, end []byte, reverse bool) ([]Entry, error)

	Attributes() (Attributes, error)
	SetAttributes(Attributes) error

	Clear() error
}

// Store owns a set of named OrderedMaps and their on-disk or in-memory
// lifecycle.
type Store interface {
	// OpenMap returns the map with the given name, creating it if it does
	// not yet exist.
	OpenMap(name string) (OrderedMap, error)
	// RemoveMap permanently deletes a map and its data.
	RemoveMap(name string) error
	HasMap(name string) bool
	MapNames() []string

	Close() error
	Closed() bool
}
