package index

import (
	"sort"

	"github.com/nitrite-go/nitrite/errs"
	"github.com/nitrite-go/nitrite/store"
)

// ConstraintOp is the kind of bound a Scan applies at one field level.
type ConstraintOp int

const (
	// ConstraintRange matches every key between Low and High (either or
	// both may be nil for an open bound) — the zero value, so an absent
	// Constraint for a level means "no restriction at this field".
	ConstraintRange ConstraintOp = iota
	// ConstraintEq matches exactly the key Eq.
	ConstraintEq
)

// Constraint narrows one field level of a Scan.
type Constraint struct {
	Op         ConstraintOp
	Eq         []byte
	Low, High  []byte
	LowInc     bool
	HighInc    bool
}

// Scan walks the nested index maps rooted at root, applying constraints
// (at most one per field, in field order — trailing fields with no
// constraint are left unrestricted) and returns the matching document
// ids, deduplicated and sorted (descending if reverse). This is C5, the
// Index Scanner: grounded on
// original_source/nitrite/src/index/index_scanner.rs's recursive
// pop-first-filter-and-descend algorithm, generalized from that file's
// single compound index to the shared SimpleIndex/CompoundIndex tree
// shape used here.
func Scan(s store.Store, root store.OrderedMap, constraints []Constraint, reverse bool) ([]uint64, error) {
	seen := make(map[uint64]struct{})
	if err := scanLevel(s, root, constraints, reverse, seen); err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	if reverse {
		sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	} else {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}
	return ids, nil
}

func scanLevel(s store.Store, m store.OrderedMap, constraints []Constraint, reverse bool, seen map[uint64]struct{}) error {
	// Missing bound at this level means "take every key" (ConstraintRange
	// with nil Low/High), the same recursion step that lets a query
	// constraining only a prefix of a compound index's fields still
	// collect every id beneath the unconstrained suffix.
	c := Constraint{Op: ConstraintRange}
	var rest []Constraint
	if len(constraints) > 0 {
		c = constraints[0]
		rest = constraints[1:]
	}

	var entries []store.Entry
	if c.Op == ConstraintEq {
		v, ok, err := m.Get(c.Eq)
		if err != nil {
			return errs.LiftBackendError(err)
		}
		if !ok {
			return nil
		}
		entries = []store.Entry{{Key: c.Eq, Value: v}}
	} else {
		got, err := m.Range(c.Low, c.High, reverse)
		if err != nil {
			return errs.LiftBackendError(err)
		}
		entries = got
	}

	var sawBucket, sawSubmap bool
	for _, e := range entries {
		if len(e.Value) == 0 {
			continue
		}
		switch e.Value[0] {
		case tagBucket:
			if sawSubmap {
				return errs.New(errs.IndexingError, "index corruption: level mixes id buckets and submap pointers")
			}
			sawBucket = true
			ids, err := decodeIDs(e.Value)
			if err != nil {
				return err
			}
			for _, id := range ids {
				seen[id] = struct{}{}
			}
		case tagSubmap:
			if sawBucket {
				return errs.New(errs.IndexingError, "index corruption: level mixes id buckets and submap pointers")
			}
			sawSubmap = true
			sub, err := s.OpenMap(string(e.Value[1:]))
			if err != nil {
				return errs.LiftBackendError(err)
			}
			if err := scanLevel(s, sub, rest, reverse, seen); err != nil {
				return err
			}
		default:
			return errs.New(errs.IndexingError, "index corruption: unrecognized entry tag")
		}
	}
	return nil
}
