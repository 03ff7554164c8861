// Package memory implements the in-memory C1 OrderedMap backend on top of
// github.com/tidwall/btree, grounded on the example repo AKJUS-bsc-erigon's
// use of that library for ordered in-process indices.
package memory

import (
	"sync"

	"github.com/tidwall/btree"

	"github.com/nitrite-go/nitrite/store"
)

// Store is a process-local, non-durable store.Store. All maps and their
// data vanish when the process exits.
type Store struct {
	mu     sync.RWMutex
	maps   map[string]*Map
	closed bool
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{maps: make(map[string]*Map)}
}

func (s *Store) OpenMap(name string) (store.OrderedMap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, store.ErrClosed
	}
	if m, ok := s.maps[name]; ok {
		return m, nil
	}
	m := newMap(name)
	s.maps[name] = m
	return m, nil
}

func (s *Store) RemoveMap(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.ErrClosed
	}
	delete(s.maps, name)
	return nil
}

func (s *Store) HasMap(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.maps[name]
	return ok
}

func (s *Store) MapNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.maps))
	for name := range s.maps {
		names = append(names, name)
	}
	return names
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.maps = nil
	return nil
}

func (s *Store) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Map is an in-memory store.OrderedMap backed by a tidwall/btree.Map,
// keyed on the string conversion of the byte key (Go string comparison is
// byte-wise lexicographic, the same ordering bytes.Compare uses, so no
// ordering is lost in the conversion).
type Map struct {
	name string
	mu   sync.RWMutex
	tree *btree.Map[string, []byte]
	attr store.Attributes
}

func newMap(name string) *Map {
	return &Map{
		name: name,
		tree: btree.NewMap[string, []byte](32),
		attr: make(store.Attributes),
	}
}

func (m *Map) Name() string { return m.name }

func (m *Map) Get(key []byte) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.tree.Get(string(key))
	if !ok {
		return nil, false, nil
	}
	return cloneBytes(v), true, nil
}

func (m *Map) Put(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tree.Set(string(key), cloneBytes(value))
	return nil
}

func (m *Map) Remove(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tree.Delete(string(key))
	return nil
}

func (m *Map) Size() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tree.Len(), nil
}

func (m *Map) FirstKey() ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	iter := m.tree.Iter()
	defer iter.Release()
	if !iter.First() {
		return nil, false, nil
	}
	return []byte(iter.Key()), true, nil
}

func (m *Map) LastKey() ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	iter := m.tree.Iter()
	defer iter.Release()
	if !iter.Last() {
		return nil, false, nil
	}
	return []byte(iter.Key()), true, nil
}

func (m *Map) CeilingKey(key []byte) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	iter := m.tree.Iter()
	defer iter.Release()
	if !iter.Seek(string(key)) {
		return nil, false, nil
	}
	return []byte(iter.Key()), true, nil
}

func (m *Map) HigherKey(key []byte) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	iter := m.tree.Iter()
	defer iter.Release()
	if !iter.Seek(string(key)) {
		return nil, false, nil
	}
	if iter.Key() == string(key) {
		if !iter.Next() {
			return nil, false, nil
		}
	}
	return []byte(iter.Key()), true, nil
}

func (m *Map) FloorKey(key []byte) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	iter := m.tree.Iter()
	defer iter.Release()
	if !iter.Seek(string(key)) {
		if !iter.Last() {
			return nil, false, nil
		}
		return []byte(iter.Key()), true, nil
	}
	if iter.Key() != string(key) {
		if !iter.Prev() {
			return nil, false, nil
		}
	}
	return []byte(iter.Key()), true, nil
}

func (m *Map) LowerKey(key []byte) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	iter := m.tree.Iter()
	defer iter.Release()
	if !iter.Seek(string(key)) {
		if !iter.Last() {
			return nil, false, nil
		}
		return []byte(iter.Key()), true, nil
	}
	if !iter.Prev() {
		return nil, false, nil
	}
	return []byte(iter.Key()), true, nil
}

func (m *Map) Range(start, end []byte, reverse bool) ([]store.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var entries []store.Entry
	visit := func(k string, v []byte) bool {
		if end != nil && k > string(end) {
			return false
		}
		entries = append(entries, store.Entry{Key: []byte(k), Value: cloneBytes(v)})
		return true
	}

	if !reverse {
		if start != nil {
			m.tree.Ascend(string(start), visit)
		} else {
			m.tree.Scan(visit)
		}
		return entries, nil
	}

	visitDesc := func(k string, v []byte) bool {
		if start != nil && k < string(start) {
			return false
		}
		entries = append(entries, store.Entry{Key: []byte(k), Value: cloneBytes(v)})
		return true
	}
	if end != nil {
		m.tree.Descend(string(end), visitDesc)
	} else {
		iter := m.tree.Iter()
		if iter.Last() {
			for {
				if !visitDesc(iter.Key(), iter.Value()) {
					break
				}
				if !iter.Prev() {
					break
				}
			}
		}
		iter.Release()
	}
	return entries, nil
}

func (m *Map) Attributes() (store.Attributes, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(store.Attributes, len(m.attr))
	for k, v := range m.attr {
		out[k] = v
	}
	return out, nil
}

func (m *Map) SetAttributes(attr store.Attributes) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attr = make(store.Attributes, len(attr))
	for k, v := range attr {
		m.attr[k] = v
	}
	return nil
}

func (m *Map) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tree = btree.NewMap[string, []byte](32)
	return nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
