package index

import (
	"encoding/json"
	"fmt"

	"github.com/nitrite-go/nitrite/errs"
	"github.com/nitrite-go/nitrite/store"
)

// tagBucket/tagSubmap distinguish a leaf id-bucket entry from an
// intermediate submap-pointer entry stored at the same nesting level, so
// Scan can detect a corrupt index that mixes the two (spec §4.5's
// homogeneous-type validation, generalized from "all NitriteId vs. all
// Map" to a one-byte tag prefix per stored entry).
const (
	tagSubmap byte = 0x00
	tagBucket byte = 0x01
)

// treeIndex is the shared engine behind both SimpleIndex (one field,
// degenerating to a flat bucket map) and CompoundIndex (N fields, a chain
// of nested maps keyed by each field's encoded value in turn). Grounded
// on original_source/nitrite/src/index/simple_index.rs for the
// single-field write/remove semantics; generalized to N levels since no
// compound-index reference file existed in original_source/.
type treeIndex struct {
	desc *Descriptor
	s    store.Store
	root store.OrderedMap
}

func newTreeIndex(s store.Store, desc *Descriptor, root store.OrderedMap) *treeIndex {
	return &treeIndex{desc: desc, s: s, root: root}
}

func (t *treeIndex) Descriptor() *Descriptor { return t.desc }

// Write adds id under the compound key keys, one encoded byte key per
// field in field order. If desc.Type is Unique and the final bucket
// would then hold more than one distinct id, the write is rolled back
// and errs.UniqueConstraintViolation is returned (spec §4.4).
func (t *treeIndex) Write(keys [][]byte, id uint64) error {
	if len(keys) != len(t.desc.Fields) {
		return errs.New(errs.IndexingError, "index key/field count mismatch")
	}
	m := t.root
	for level := 0; level < len(keys)-1; level++ {
		subName, err := t.descendOrCreate(m, keys[level], level)
		if err != nil {
			return err
		}
		next, err := t.s.OpenMap(subName)
		if err != nil {
			return errs.LiftBackendError(err)
		}
		m = next
	}

	lastKey := keys[len(keys)-1]
	ids, err := readBucket(m, lastKey)
	if err != nil {
		return err
	}
	for _, existing := range ids {
		if existing == id {
			return nil
		}
	}
	ids = append(ids, id)
	if t.desc.Type == Unique && len(ids) > 1 {
		return errs.New(errs.UniqueConstraintViolation, "unique index violation on "+t.desc.Fields.String())
	}
	return writeBucket(m, lastKey, ids)
}

// Remove deletes id from the bucket reached by keys, pruning the bucket
// entry entirely once it is empty.
func (t *treeIndex) Remove(keys [][]byte, id uint64) error {
	if len(keys) != len(t.desc.Fields) {
		return errs.New(errs.IndexingError, "index key/field count mismatch")
	}
	m := t.root
	for level := 0; level < len(keys)-1; level++ {
		raw, ok, err := m.Get(keys[level])
		if err != nil {
			return errs.LiftBackendError(err)
		}
		if !ok {
			return nil
		}
		if len(raw) == 0 || raw[0] != tagSubmap {
			return errs.New(errs.IndexingError, "index corruption: expected submap pointer")
		}
		next, err := t.s.OpenMap(string(raw[1:]))
		if err != nil {
			return errs.LiftBackendError(err)
		}
		m = next
	}

	lastKey := keys[len(keys)-1]
	ids, err := readBucket(m, lastKey)
	if err != nil {
		return err
	}
	out := ids[:0]
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return writeBucket(m, lastKey, out)
}

func (t *treeIndex) Clear() error { return t.root.Clear() }

func (t *treeIndex) descendOrCreate(m store.OrderedMap, key []byte, level int) (string, error) {
	raw, ok, err := m.Get(key)
	if err != nil {
		return "", errs.LiftBackendError(err)
	}
	if ok {
		if len(raw) == 0 || raw[0] != tagSubmap {
			return "", errs.New(errs.IndexingError, "index corruption: expected submap pointer")
		}
		return string(raw[1:]), nil
	}
	// Named after the parent map, so each path through the tree gets its
	// own submap.
	subName := fmt.Sprintf("%s/%d/%x", m.Name(), level, key)
	sub, err := t.s.OpenMap(subName)
	if err != nil {
		return "", errs.LiftBackendError(err)
	}
	// Nothing references subName while key is absent from m, so whatever
	// a cleared or dropped index left in it is stale.
	if err := sub.Clear(); err != nil {
		return "", errs.LiftBackendError(err)
	}
	if err := m.Put(key, append([]byte{tagSubmap}, []byte(subName)...)); err != nil {
		return "", errs.LiftBackendError(err)
	}
	return subName, nil
}

func readBucket(m store.OrderedMap, key []byte) ([]uint64, error) {
	raw, ok, err := m.Get(key)
	if err != nil {
		return nil, errs.LiftBackendError(err)
	}
	if !ok {
		return nil, nil
	}
	return decodeIDs(raw)
}

func writeBucket(m store.OrderedMap, key []byte, ids []uint64) error {
	if len(ids) == 0 {
		return m.Remove(key)
	}
	body, err := json.Marshal(ids)
	if err != nil {
		return errs.Wrap(errs.IndexingError, "encode id bucket", err)
	}
	return m.Put(key, append([]byte{tagBucket}, body...))
}

func decodeIDs(raw []byte) ([]uint64, error) {
	if len(raw) == 0 || raw[0] != tagBucket {
		return nil, errs.New(errs.IndexingError, "index corruption: expected id bucket")
	}
	var ids []uint64
	if err := json.Unmarshal(raw[1:], &ids); err != nil {
		return nil, errs.Wrap(errs.IndexingError, "decode id bucket", err)
	}
	return ids, nil
}
