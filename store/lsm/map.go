package lsm

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/nitrite-go/nitrite/store"
	"github.com/nitrite-go/nitrite/store/lsm/internal/util"
)

// Map adapts a *BPlusTree to store.OrderedMap.
type Map struct {
	name string
	tree *BPlusTree
	bp   *BufferPool

	attrMu   sync.RWMutex
	attr     store.Attributes
	attrPath string
}

func (m *Map) Name() string { return m.name }

func (m *Map) Get(key []byte) ([]byte, bool, error) {
	v, err := m.tree.Search(key)
	if err == util.ErrDocumentNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (m *Map) Put(key, value []byte) error {
	return m.tree.Insert(key, value)
}

func (m *Map) Remove(key []byte) error {
	err := m.tree.Delete(key)
	if err == util.ErrDocumentNotFound {
		return nil
	}
	return err
}

func (m *Map) Size() (int, error) {
	return m.tree.Len()
}

func (m *Map) FirstKey() ([]byte, bool, error)          { return m.tree.FirstKey() }
func (m *Map) LastKey() ([]byte, bool, error)           { return m.tree.LastKey() }
func (m *Map) HigherKey(k []byte) ([]byte, bool, error) { return m.tree.HigherKey(k) }
func (m *Map) CeilingKey(k []byte) ([]byte, bool, error) { return m.tree.CeilingKey(k) }
func (m *Map) LowerKey(k []byte) ([]byte, bool, error)  { return m.tree.LowerKey(k) }
func (m *Map) FloorKey(k []byte) ([]byte, bool, error)  { return m.tree.FloorKey(k) }

func (m *Map) Range(start, end []byte, reverse bool) ([]store.Entry, error) {
	lo, hi := start, end
	if lo == nil {
		lo = nil
	}
	if hi == nil {
		hi = maxKeySentinel
	}
	entries, err := m.tree.RangeScan(lo, hi)
	if err != nil {
		return nil, err
	}
	out := make([]store.Entry, len(entries))
	for i, e := range entries {
		out[i] = store.Entry{Key: e.Key, Value: e.Value}
	}
	if reverse {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, nil
}

func (m *Map) Attributes() (store.Attributes, error) {
	m.attrMu.RLock()
	defer m.attrMu.RUnlock()
	out := make(store.Attributes, len(m.attr))
	for k, v := range m.attr {
		out[k] = v
	}
	return out, nil
}

func (m *Map) SetAttributes(attr store.Attributes) error {
	m.attrMu.Lock()
	defer m.attrMu.Unlock()
	m.attr = make(store.Attributes, len(attr))
	for k, v := range attr {
		m.attr[k] = v
	}
	b, err := json.MarshalIndent(m.attr, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.attrPath, b, 0644)
}

func (m *Map) loadAttributes() {
	m.attrMu.Lock()
	defer m.attrMu.Unlock()
	m.attr = make(store.Attributes)
	b, err := os.ReadFile(m.attrPath)
	if err != nil {
		return
	}
	json.Unmarshal(b, &m.attr)
}

func (m *Map) Clear() error {
	entries, err := m.tree.RangeScan(nil, maxKeySentinel)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := m.tree.Delete(e.Key); err != nil && err != util.ErrDocumentNotFound {
			return err
		}
	}
	return nil
}
