package nitrite

import (
	"log/slog"
	"sync"

	"github.com/nitrite-go/nitrite/errs"
	"github.com/nitrite-go/nitrite/index"
	"github.com/nitrite-go/nitrite/store"
)

type collectionState int

const (
	stateOpen collectionState = iota
	stateClosed
	stateDropped
)

// Collection is the Collection Operations facade (C6): the one component
// that threads every other piece together (spec §4.6), grounded on
// bundoc/collection.go's method surface and rule-check/write/index
// ordering, rebuilt on Fields/Value/index.Manager instead of the
// teacher's flat byte-composite keys. The embedded mutex doubles as the
// "per-collection lock from a process-wide registry" spec §4.6 asks for:
// Database holds exactly one *Collection per name, so the same lock
// handle is always reached for the same collection name without a
// separate registry type.
type Collection struct {
	name         string
	backingStore store.Store
	m            store.OrderedMap
	idxMgr       *index.Manager
	ids          *idGenerator
	chain        *processorChain
	bus          *eventBus
	sep          string
	logger       *slog.Logger

	mu    sync.RWMutex
	state collectionState
}

func (c *Collection) Name() string { return c.name }

func (c *Collection) guardOpen() error {
	switch c.state {
	case stateOpen:
		return nil
	case stateClosed:
		return errs.New(errs.InvalidOperation, "collection "+c.name+" is closed")
	default:
		return errs.New(errs.InvalidOperation, "collection "+c.name+" is dropped")
	}
}

func (c *Collection) IsOpen() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state == stateOpen
}

func (c *Collection) IsDropped() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state == stateDropped
}

func idKey(id NitriteId) []byte { return IdValue(id).EncodeKey() }

func decodeIdKey(k []byte) (NitriteId, bool) {
	if len(k) != 9 || k[0] != 0x05 {
		return 0, false
	}
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(k[1+i])
	}
	return NitriteId(v), true
}

// --- write path -------------------------------------------------------

// Insert adds a single document, assigning _id if absent (spec §4.6's
// write path). The main-map put happens last, after every index write
// succeeds (see DESIGN.md's unique-violation-rollback decision), so a
// failed index write never requires undoing a document the map already
// holds.
func (c *Collection) Insert(doc *Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guardOpen(); err != nil {
		return err
	}
	return c.insertOne(doc)
}

// InsertMany inserts each document in order, stopping at the first error.
func (c *Collection) InsertMany(docs ...*Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guardOpen(); err != nil {
		return err
	}
	for _, doc := range docs {
		if err := c.insertOne(doc); err != nil {
			return err
		}
	}
	return nil
}

func (c *Collection) insertOne(doc *Document) error {
	if err := c.chain.BeforeWrite(doc); err != nil {
		return err
	}
	if !doc.HasId() {
		doc.SetId(c.ids.next())
	}
	id, ok := doc.Id()
	if !ok {
		return errs.New(errs.NotIdentifiable, "document's _id is not a NitriteId")
	}
	key := idKey(id)
	_, exists, err := c.m.Get(key)
	if err != nil {
		return errs.LiftBackendError(err)
	}
	if exists {
		return errs.New(errs.UniqueConstraintViolation, "duplicate _id "+id.String())
	}
	if _, err := c.writeIndexesFor(id, doc); err != nil {
		return err
	}
	body, err := doc.Serialize()
	if err != nil {
		return err
	}
	if err := c.m.Put(key, body); err != nil {
		return errs.LiftBackendError(err)
	}
	c.bus.Publish(CollectionEventInfo{Type: EventInsert, Collection: c.name, Document: doc})
	return nil
}

// writeIndexesFor writes doc's entries into every index registered on
// the collection (dirty or not — rebuild_index holds the write lock for
// its whole duration, so no write is ever concurrent with a rebuild in
// the first place). On failure it unwinds whichever indexes it had
// already written for this document and returns the error.
func (c *Collection) writeIndexesFor(id NitriteId, doc *Document) ([]*index.Descriptor, error) {
	descs := c.idxMgr.ListIndexes(c.name)
	var written []*index.Descriptor
	rollback := func() {
		for _, d := range written {
			idx, err := c.idxMgr.Index(d)
			if err != nil {
				continue
			}
			for _, keys := range c.indexKeySets(d.Fields, doc) {
				_ = idx.Remove(keys, uint64(id))
			}
		}
	}
	for _, d := range descs {
		idx, err := c.idxMgr.Index(d)
		if err != nil {
			rollback()
			return nil, err
		}
		keySets := c.indexKeySets(d.Fields, doc)
		if d.Type == index.Unique && hasDuplicateKeySet(keySets) {
			rollback()
			return nil, errs.New(errs.UniqueConstraintViolation, "duplicate key within array field for unique index "+d.Fields.String())
		}
		for _, keys := range keySets {
			if err := idx.Write(keys, uint64(id)); err != nil {
				written = append(written, d)
				rollback()
				return nil, err
			}
		}
		written = append(written, d)
	}
	return written, nil
}

func (c *Collection) removeIndexesFor(id NitriteId, doc *Document) {
	for _, d := range c.idxMgr.ListIndexes(c.name) {
		idx, err := c.idxMgr.Index(d)
		if err != nil {
			continue
		}
		for _, keys := range c.indexKeySets(d.Fields, doc) {
			if err := idx.Remove(keys, uint64(id)); err != nil {
				c.logger.Warn("index remove failed", "collection", c.name, "error", err)
			}
		}
	}
}

// indexKeySets projects doc through names, exploding any array-valued
// field into its elements and taking the cartesian product across
// fields — spec §4.4 documents this explosion only for SimpleIndex;
// generalized to N fields here (see DESIGN.md).
func (c *Collection) indexKeySets(names index.Fields, doc *Document) [][][]byte {
	perField := make([][]Value, len(names))
	for i, name := range names {
		v, ok := doc.Get(name, c.sep)
		if !ok {
			v = Null
		}
		if arr, isArr := v.AsArray(); isArr {
			elems := arr
			if len(elems) == 0 {
				elems = []Value{Null}
			}
			perField[i] = elems
		} else {
			perField[i] = []Value{v}
		}
	}
	combos := [][]Value{{}}
	for _, vals := range perField {
		next := make([][]Value, 0, len(combos)*len(vals))
		for _, combo := range combos {
			for _, v := range vals {
				nc := make([]Value, len(combo)+1)
				copy(nc, combo)
				nc[len(combo)] = v
				next = append(next, nc)
			}
		}
		combos = next
	}
	out := make([][][]byte, len(combos))
	for i, combo := range combos {
		keys := make([][]byte, len(combo))
		for j, v := range combo {
			keys[j] = v.EncodeKey()
		}
		out[i] = keys
	}
	return out
}

func hasDuplicateKeySet(keySets [][][]byte) bool {
	if len(keySets) < 2 {
		return false
	}
	seen := make(map[string]bool, len(keySets))
	for _, keys := range keySets {
		k := joinKeys(keys)
		if seen[k] {
			return true
		}
		seen[k] = true
	}
	return false
}

func joinKeys(keys [][]byte) string {
	var b []byte
	for _, k := range keys {
		b = append(b, byte(len(k)))
		b = append(b, k...)
	}
	return string(b)
}

// --- update / remove ----------------------------------------------------

func mergeDocument(old, upd *Document) *Document {
	merged := old.Clone()
	for _, name := range upd.Names() {
		if name == IdField {
			continue
		}
		v, _ := upd.Get(name, "")
		merged.Put(name, v)
	}
	return merged
}

func (c *Collection) applyUpdate(old, newDoc *Document) error {
	id, _ := old.Id()
	newDoc.SetId(id)
	c.removeIndexesFor(id, old)
	if _, err := c.writeIndexesFor(id, newDoc); err != nil {
		if _, rerr := c.writeIndexesFor(id, old); rerr != nil {
			c.logger.Error("failed to restore index entries after update rollback", "collection", c.name, "error", rerr)
		}
		return err
	}
	body, err := newDoc.Serialize()
	if err != nil {
		return err
	}
	if err := c.m.Put(idKey(id), body); err != nil {
		return errs.LiftBackendError(err)
	}
	c.bus.Publish(CollectionEventInfo{Type: EventUpdate, Collection: c.name, Document: newDoc})
	return nil
}

// Update applies upd to every document matching f. With insertIfAbsent
// and no match, upd is inserted as a new document. With justOnce, only
// the first matched document is updated. Returns the number of affected
// documents.
func (c *Collection) Update(f Filter, upd *Document, insertIfAbsent, justOnce bool) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guardOpen(); err != nil {
		return 0, err
	}
	ids, err := c.matchIds(f)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		if !insertIfAbsent {
			return 0, nil
		}
		if err := c.insertOne(upd.Clone()); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if justOnce {
		ids = ids[:1]
	}
	affected := 0
	for _, id := range ids {
		old, ok, err := c.getByIdLocked(id)
		if err != nil {
			return affected, err
		}
		if !ok {
			continue
		}
		if err := c.applyUpdate(old, mergeDocument(old, upd)); err != nil {
			return affected, err
		}
		affected++
	}
	return affected, nil
}

// UpdateOne updates the document sharing doc's _id (inserting it when
// insertIfAbsent is set and no such document exists).
func (c *Collection) UpdateOne(doc *Document, insertIfAbsent bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guardOpen(); err != nil {
		return err
	}
	if !doc.HasId() {
		if !insertIfAbsent {
			return errs.New(errs.NotIdentifiable, "update_one requires _id unless insert_if_absent")
		}
		return c.insertOne(doc.Clone())
	}
	id, _ := doc.Id()
	old, ok, err := c.getByIdLocked(id)
	if err != nil {
		return err
	}
	if !ok {
		if insertIfAbsent {
			return c.insertOne(doc.Clone())
		}
		return nil
	}
	return c.applyUpdate(old, mergeDocument(old, doc))
}

// UpdateById is the O(1) fast path (spec scenario S6): no filter
// evaluation, a direct map lookup by id.
func (c *Collection) UpdateById(id NitriteId, doc *Document, insertIfAbsent bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guardOpen(); err != nil {
		return err
	}
	old, ok, err := c.getByIdLocked(id)
	if err != nil {
		return err
	}
	if !ok {
		if !insertIfAbsent {
			return nil
		}
		clone := doc.Clone()
		clone.SetId(id)
		return c.insertOne(clone)
	}
	return c.applyUpdate(old, mergeDocument(old, doc))
}

// Remove deletes every document matching f. justOnce over the all-filter
// is rejected (spec §4.6).
func (c *Collection) Remove(f Filter, justOnce bool) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guardOpen(); err != nil {
		return 0, err
	}
	if justOnce {
		if f == nil {
			return 0, errs.New(errs.InvalidOperation, "remove with all() and just_once=true is not allowed")
		}
		if _, isAll := f.(*AllFilter); isAll {
			return 0, errs.New(errs.InvalidOperation, "remove with all() and just_once=true is not allowed")
		}
	}
	ids, err := c.matchIds(f)
	if err != nil {
		return 0, err
	}
	if justOnce && len(ids) > 1 {
		ids = ids[:1]
	}
	removed := 0
	for _, id := range ids {
		doc, ok, err := c.getByIdLocked(id)
		if err != nil {
			return removed, err
		}
		if !ok {
			continue
		}
		c.removeIndexesFor(id, doc)
		if err := c.m.Remove(idKey(id)); err != nil {
			return removed, errs.LiftBackendError(err)
		}
		c.bus.Publish(CollectionEventInfo{Type: EventRemove, Collection: c.name, Document: doc})
		removed++
	}
	return removed, nil
}

// RemoveOne removes the document sharing doc's _id.
func (c *Collection) RemoveOne(doc *Document) error {
	id, ok := doc.Id()
	if !ok {
		return errs.New(errs.NotIdentifiable, "remove_one requires _id")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guardOpen(); err != nil {
		return err
	}
	old, found, err := c.getByIdLocked(id)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	c.removeIndexesFor(id, old)
	if err := c.m.Remove(idKey(id)); err != nil {
		return errs.LiftBackendError(err)
	}
	c.bus.Publish(CollectionEventInfo{Type: EventRemove, Collection: c.name, Document: old})
	return nil
}

// --- read path ----------------------------------------------------------

func (c *Collection) getByIdLocked(id NitriteId) (*Document, bool, error) {
	raw, ok, err := c.m.Get(idKey(id))
	if err != nil {
		return nil, false, errs.LiftBackendError(err)
	}
	if !ok {
		return nil, false, nil
	}
	doc, err := DeserializeDocument(raw)
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

// GetById fetches a single document by id, applying the processor
// chain's ProcessAfterRead.
func (c *Collection) GetById(id NitriteId) (*Document, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.guardOpen(); err != nil {
		return nil, false, err
	}
	doc, ok, err := c.getByIdLocked(id)
	if err != nil || !ok {
		return nil, ok, err
	}
	if err := c.chain.AfterRead(doc); err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

func (c *Collection) allIdsLocked() ([]NitriteId, error) {
	entries, err := c.m.Range(nil, nil, false)
	if err != nil {
		return nil, errs.LiftBackendError(err)
	}
	out := make([]NitriteId, 0, len(entries))
	for _, e := range entries {
		if id, ok := decodeIdKey(e.Key); ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// matchIds runs the find-optimizer (plan.go) and returns the ids of
// documents currently satisfying f, re-checking the full filter against
// every candidate regardless of whether an index produced it (spec §8
// invariant 4). Assumes the caller already holds c.mu (read or write).
func (c *Collection) matchIds(f Filter) ([]NitriteId, error) {
	plan := planFind(c.idxMgr, c.name, f, c.sep)

	var candidates []NitriteId
	if plan.Descriptor != nil {
		m, err := c.idxMgr.Map(plan.Descriptor)
		if err != nil {
			return nil, err
		}
		raw, err := index.Scan(c.backingStore, m, plan.Constraints, plan.Reverse)
		if err != nil {
			return nil, err
		}
		candidates = make([]NitriteId, len(raw))
		for i, u := range raw {
			candidates[i] = NitriteId(u)
		}
	} else {
		all, err := c.allIdsLocked()
		if err != nil {
			return nil, err
		}
		candidates = all
	}

	matched := make([]NitriteId, 0, len(candidates))
	for _, id := range candidates {
		doc, ok, err := c.getByIdLocked(id)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if plan.Residual.Matches(doc, c.sep) {
			matched = append(matched, id)
		}
	}
	return matched, nil
}

// Find runs f with default options.
func (c *Collection) Find(f Filter) (*Cursor, error) { return c.FindWithOptions(f, FindOptions{}) }

// FindWithOptions runs f, applying sort/skip/limit (spec §4.6's read
// path) before handing back a lazily-processed Cursor.
func (c *Collection) FindWithOptions(f Filter, opts FindOptions) (*Cursor, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.guardOpen(); err != nil {
		return nil, err
	}
	ids, err := c.matchIds(f)
	if err != nil {
		return nil, err
	}

	if len(opts.Sort) > 0 {
		docs := make([]*Document, 0, len(ids))
		for _, id := range ids {
			doc, ok, err := c.getByIdLocked(id)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			docs = append(docs, doc)
		}
		sortDocuments(docs, opts.Sort, c.sep)
		ids = make([]NitriteId, len(docs))
		for i, d := range docs {
			id, _ := d.Id()
			ids[i] = id
		}
	}

	if opts.Skip > 0 {
		if opts.Skip >= len(ids) {
			ids = nil
		} else {
			ids = ids[opts.Skip:]
		}
	}
	if opts.Limit > 0 && opts.Limit < len(ids) {
		ids = ids[:opts.Limit]
	}

	fetch := func(id NitriteId) (*Document, bool, error) { return c.getByIdLocked(id) }
	return newCursor(ids, fetch, c.chain.AfterRead), nil
}

// --- index maintenance ---------------------------------------------------

// CreateIndex registers and builds a new index over fields (spec §4.6).
// fields is the public, root-package Fields type (spec glossary); it is
// converted to the index package's independent Fields representation at
// this boundary (see index/descriptor.go's package doc for why the two
// types are not unified).
func (c *Collection) CreateIndex(fields Fields, opts IndexOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guardOpen(); err != nil {
		return err
	}
	typ := opts.Type
	if typ == "" {
		typ = index.NonUnique
	}
	desc, err := c.idxMgr.CreateIndex(c.name, index.Fields(fields.Names()), typ)
	if err != nil {
		return err
	}
	return c.buildIndex(desc)
}

// buildIndex performs the stop-the-world (re)build: exactly one
// IndexStart and one IndexEnd event, no CRUD events, since it writes
// directly through the Index rather than through insertOne (spec
// scenario S5).
func (c *Collection) buildIndex(desc *index.Descriptor) error {
	c.bus.Publish(CollectionEventInfo{Type: EventIndexStart, Collection: c.name, Fields: desc.Fields})
	idx, err := c.idxMgr.Index(desc)
	if err != nil {
		return err
	}
	if err := idx.Clear(); err != nil {
		return err
	}
	ids, err := c.allIdsLocked()
	if err != nil {
		return err
	}
	for _, id := range ids {
		doc, ok, err := c.getByIdLocked(id)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		keySets := c.indexKeySets(desc.Fields, doc)
		if desc.Type == index.Unique && hasDuplicateKeySet(keySets) {
			return errs.New(errs.UniqueConstraintViolation, "duplicate key within array field for unique index "+desc.Fields.String())
		}
		for _, keys := range keySets {
			if err := idx.Write(keys, uint64(id)); err != nil {
				return err
			}
		}
	}
	if err := c.idxMgr.EndIndexing(desc); err != nil {
		return err
	}
	c.bus.Publish(CollectionEventInfo{Type: EventIndexEnd, Collection: c.name, Fields: desc.Fields})
	return nil
}

// RebuildIndex recreates an existing index's contents from scratch.
func (c *Collection) RebuildIndex(fields Fields) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guardOpen(); err != nil {
		return err
	}
	desc, ok := c.idxMgr.FindByFields(c.name, index.Fields(fields.Names()))
	if !ok {
		return errs.New(errs.IndexingError, "rebuild of non-existent index")
	}
	if err := c.idxMgr.BeginIndexing(desc); err != nil {
		return err
	}
	return c.buildIndex(desc)
}

// DropIndex removes an index's descriptor and backing map.
func (c *Collection) DropIndex(fields Fields) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guardOpen(); err != nil {
		return err
	}
	desc, ok := c.idxMgr.FindByFields(c.name, index.Fields(fields.Names()))
	if !ok {
		return errs.New(errs.ValidationError, "no such index")
	}
	return c.idxMgr.DropIndex(desc)
}

// DropAllIndexes removes every index registered on the collection.
func (c *Collection) DropAllIndexes() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guardOpen(); err != nil {
		return err
	}
	return c.idxMgr.DropAll(c.name)
}

// ListIndexes returns every index descriptor registered on the
// collection.
func (c *Collection) ListIndexes() []index.Descriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	descs := c.idxMgr.ListIndexes(c.name)
	out := make([]index.Descriptor, len(descs))
	for i, d := range descs {
		out[i] = *d
	}
	return out
}

// HasIndex reports whether fields is covered by a registered index,
// including a prefix of a wider compound index (spec §8 scenario S1: a
// compound index over (first_name, last_name) answers has_index for
// (first_name) alone, but not for (last_name, first_name), since the
// query order still has to match the index's field order).
func (c *Collection) HasIndex(fields Fields) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.idxMgr.FindMatching(c.name, fields.Names())
	return ok
}

func (c *Collection) IsIndexing(fields Fields) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	desc, ok := c.idxMgr.FindByFields(c.name, index.Fields(fields.Names()))
	return ok && c.idxMgr.IsDirty(desc)
}

// --- events, processors, lifecycle ---------------------------------------

func (c *Collection) Subscribe(l Listener) SubscriberRef { return c.bus.Subscribe(l) }
func (c *Collection) Unsubscribe(ref SubscriberRef)      { c.bus.Unsubscribe(ref) }
func (c *Collection) AddProcessor(p Processor)           { c.chain.Add(p) }

// Clear removes every document and index entry, keeping the collection
// and its index descriptors registered.
func (c *Collection) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guardOpen(); err != nil {
		return err
	}
	if err := c.m.Clear(); err != nil {
		return errs.LiftBackendError(err)
	}
	for _, d := range c.idxMgr.ListIndexes(c.name) {
		idx, err := c.idxMgr.Index(d)
		if err != nil {
			return err
		}
		if err := idx.Clear(); err != nil {
			return err
		}
	}
	return nil
}

// Dispose permanently removes the collection's data, indexes, and
// metadata (terminal: spec §4.6's collection-lifetime state machine).
func (c *Collection) Dispose() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.idxMgr.DropAll(c.name); err != nil {
		return err
	}
	if err := c.backingStore.RemoveMap(c.m.Name()); err != nil {
		return errs.LiftBackendError(err)
	}
	c.state = stateDropped
	return nil
}

// Close marks the collection closed; it may be reopened via
// Database.GetCollection.
func (c *Collection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == stateOpen {
		c.state = stateClosed
	}
	return nil
}

func (c *Collection) Size() (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.guardOpen(); err != nil {
		return 0, err
	}
	n, err := c.m.Size()
	if err != nil {
		return 0, errs.LiftBackendError(err)
	}
	return n, nil
}

func (c *Collection) Attributes() (store.Attributes, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	attrs, err := c.m.Attributes()
	if err != nil {
		return nil, errs.LiftBackendError(err)
	}
	return attrs, nil
}

func (c *Collection) SetAttributes(a store.Attributes) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.m.SetAttributes(a); err != nil {
		return errs.LiftBackendError(err)
	}
	return nil
}
