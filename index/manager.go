package index

import (
	"sync"

	"github.com/nitrite-go/nitrite/errs"
	"github.com/nitrite-go/nitrite/store"
)

// State is IndexMeta's dirty-flag state (spec §4.3): Absent before an
// index exists, Dirty while a (re)build is in progress or has been
// interrupted, Clean once the index fully reflects the collection's
// current contents.
type State string

const (
	StateAbsent State = "Absent"
	StateClean  State = "Clean"
	StateDirty  State = "Dirty"
)

type record struct {
	desc  *Descriptor
	state State
	m     store.OrderedMap
	idx   Index
}

// Manager is the Index Manager (C3): it owns every index's metadata and
// dirty state for a store, persisting State into each index map's
// Attributes sidecar so it survives a process restart, the same
// persisted-registry idea as bundoc/metadata.go's CollectionMeta.Indexes
// but kept next to the index data itself rather than in a separate JSON
// file (spec §4.2 folds the catalog into the store).
type Manager struct {
	mu           sync.RWMutex
	s            store.Store
	byMapName    map[string]*record
	byCollection map[string][]*record
}

func NewManager(s store.Store) *Manager {
	return &Manager{
		s:            s,
		byMapName:    make(map[string]*record),
		byCollection: make(map[string][]*record),
	}
}

// Restore reattaches to index maps a prior process already created, by
// scanning the store's known map names for ones carrying index
// attributes. Database.Open calls this once, for the whole store, after
// opening the backing store.
func (m *Manager) Restore() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, name := range m.s.MapNames() {
		om, err := m.s.OpenMap(name)
		if err != nil {
			return errs.LiftBackendError(err)
		}
		attrs, err := om.Attributes()
		if err != nil {
			return errs.LiftBackendError(err)
		}
		collection, ok := attrs["collection"]
		if !ok {
			continue // not an index map
		}
		fieldsStr := attrs["fields"]
		typ := Type(attrs["type"])
		desc := &Descriptor{Collection: collection, Fields: splitFields(fieldsStr), Type: typ}
		r := &record{desc: desc, state: State(attrs["state"]), m: om}
		m.byMapName[name] = r
		m.byCollection[collection] = append(m.byCollection[collection], r)
	}
	return nil
}

func splitFields(s string) Fields {
	if s == "" {
		return nil
	}
	var out Fields
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == '+' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return out
}

// CreateIndex registers a new index descriptor, opens its backing map,
// and marks it Dirty — the caller (collection.go) is responsible for the
// actual build pass and must call EndIndexing once it completes.
func (m *Manager) CreateIndex(collection string, fields Fields, typ Type) (*Descriptor, error) {
	if len(fields) == 0 {
		return nil, errs.New(errs.ValidationError, "index requires at least one field")
	}
	desc := &Descriptor{Collection: collection, Fields: fields, Type: typ}
	name := desc.MapName()

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byMapName[name]; exists {
		return nil, errs.New(errs.ValidationError, "index already exists on "+fields.String())
	}
	om, err := m.s.OpenMap(name)
	if err != nil {
		return nil, errs.LiftBackendError(err)
	}
	if err := om.SetAttributes(store.Attributes{
		"state":      string(StateDirty),
		"type":       string(typ),
		"fields":     fields.String(),
		"collection": collection,
	}); err != nil {
		return nil, errs.LiftBackendError(err)
	}
	r := &record{desc: desc, state: StateDirty, m: om}
	m.byMapName[name] = r
	m.byCollection[collection] = append(m.byCollection[collection], r)
	return desc, nil
}

// DropIndex removes an index's descriptor, data, and metadata. A compound
// index's nested submaps are left in the store unreferenced; an index
// created later over the same fields clears each one before reusing it.
func (m *Manager) DropIndex(desc *Descriptor) error {
	name := desc.MapName()
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byMapName[name]; !ok {
		return errs.New(errs.ValidationError, "no such index")
	}
	if err := m.s.RemoveMap(name); err != nil {
		return errs.LiftBackendError(err)
	}
	delete(m.byMapName, name)
	list := m.byCollection[desc.Collection]
	for i, r := range list {
		if r.desc == desc || r.desc.MapName() == name {
			m.byCollection[desc.Collection] = append(list[:i], list[i+1:]...)
			break
		}
	}
	return nil
}

// DropAll removes every index registered for collection.
func (m *Manager) DropAll(collection string) error {
	for _, d := range m.ListIndexes(collection) {
		if err := m.DropIndex(d); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) setState(desc *Descriptor, state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byMapName[desc.MapName()]
	if !ok {
		return errs.New(errs.ValidationError, "no such index")
	}
	r.state = state
	attrs, err := r.m.Attributes()
	if err != nil {
		return errs.LiftBackendError(err)
	}
	attrs["state"] = string(state)
	if err := r.m.SetAttributes(attrs); err != nil {
		return errs.LiftBackendError(err)
	}
	return nil
}

// BeginIndexing transitions an index to Dirty before a rebuild.
func (m *Manager) BeginIndexing(desc *Descriptor) error { return m.setState(desc, StateDirty) }

// EndIndexing transitions an index to Clean once a rebuild completes.
func (m *Manager) EndIndexing(desc *Descriptor) error { return m.setState(desc, StateClean) }

// IsDirty reports whether desc's index is mid-rebuild.
func (m *Manager) IsDirty(desc *Descriptor) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.byMapName[desc.MapName()]
	return ok && r.state == StateDirty
}

// FindExact returns the descriptor with exactly the given fields and
// type, if one is registered for collection.
func (m *Manager) FindExact(collection string, fields Fields, typ Type) (*Descriptor, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.byCollection[collection] {
		if r.desc.Fields.Equal(fields) && r.desc.Type == typ {
			return r.desc, true
		}
	}
	return nil, false
}

// FindByFields returns the descriptor with exactly the given fields,
// regardless of type — used by operations identified by field list alone
// (rebuild_index, drop_index, is_indexing).
func (m *Manager) FindByFields(collection string, fields Fields) (*Descriptor, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.byCollection[collection] {
		if r.desc.Fields.Equal(fields) {
			return r.desc, true
		}
	}
	return nil, false
}

// FindMatching implements spec invariant 6's prefix-matching rule: among
// collection's indexes, return the one whose Fields begins with
// queryFields — a query over just (a) can use a compound index over
// (a,b) or (a,b,c), preferring the shortest (tightest) descriptor that
// still covers the query so the unconstrained suffix the scanner has to
// sweep is as small as possible.
func (m *Manager) FindMatching(collection string, queryFields []string) (*Descriptor, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q := Fields(queryFields)
	var best *Descriptor
	for _, r := range m.byCollection[collection] {
		df := r.desc.Fields
		if len(df) >= len(q) && df.StartsWith(q) {
			if best == nil || len(df) < len(best.Fields) {
				best = r.desc
			}
		}
	}
	return best, best != nil
}

// ListIndexes returns every descriptor registered for collection.
func (m *Manager) ListIndexes(collection string) []*Descriptor {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.byCollection[collection]
	out := make([]*Descriptor, len(list))
	for i, r := range list {
		out[i] = r.desc
	}
	return out
}

// HasIndex reports whether an index with exactly fields+typ exists.
func (m *Manager) HasIndex(collection string, fields Fields, typ Type) bool {
	_, ok := m.FindExact(collection, fields, typ)
	return ok
}

// Index returns the live Index implementation backing desc, constructing
// it on first use and caching it thereafter.
func (m *Manager) Index(desc *Descriptor) (Index, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byMapName[desc.MapName()]
	if !ok {
		return nil, errs.New(errs.ValidationError, "no such index")
	}
	if r.idx == nil {
		idx, err := newIndex(m.s, r.desc, r.m)
		if err != nil {
			return nil, err
		}
		r.idx = idx
	}
	return r.idx, nil
}

// Map returns the backing OrderedMap for desc, used by Scan.
func (m *Manager) Map(desc *Descriptor) (store.OrderedMap, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.byMapName[desc.MapName()]
	if !ok {
		return nil, errs.New(errs.ValidationError, "no such index")
	}
	return r.m, nil
}
