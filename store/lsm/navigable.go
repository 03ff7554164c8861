package lsm

import "bytes"

// maxKeySentinel is used as the closed upper bound for a full-range scan.
// No finite byte string is greater than every possible key, so this is a
// practical sentinel sized well beyond any key this package produces
// (mirrors the teacher's own 8-byte 0xFF upper-bound convention, used for
// its cross-collection group index scans).
var maxKeySentinel = bytes.Repeat([]byte{0xFF}, 256)

// FirstKey returns the smallest key in the tree.
func (t *BPlusTree) FirstKey() ([]byte, bool, error) {
	entries, err := t.RangeScan(nil, maxKeySentinel)
	if err != nil {
		return nil, false, err
	}
	if len(entries) == 0 {
		return nil, false, nil
	}
	return entries[0].Key, true, nil
}

// LastKey returns the largest key in the tree.
func (t *BPlusTree) LastKey() ([]byte, bool, error) {
	entries, err := t.RangeScan(nil, maxKeySentinel)
	if err != nil {
		return nil, false, err
	}
	if len(entries) == 0 {
		return nil, false, nil
	}
	return entries[len(entries)-1].Key, true, nil
}

// CeilingKey returns the smallest key >= the given key.
func (t *BPlusTree) CeilingKey(key []byte) ([]byte, bool, error) {
	entries, err := t.RangeScan(key, maxKeySentinel)
	if err != nil {
		return nil, false, err
	}
	if len(entries) == 0 {
		return nil, false, nil
	}
	return entries[0].Key, true, nil
}

// HigherKey returns the smallest key strictly greater than the given key.
func (t *BPlusTree) HigherKey(key []byte) ([]byte, bool, error) {
	entries, err := t.RangeScan(key, maxKeySentinel)
	if err != nil {
		return nil, false, err
	}
	for _, e := range entries {
		if !bytes.Equal(e.Key, key) {
			return e.Key, true, nil
		}
	}
	return nil, false, nil
}

// FloorKey returns the largest key <= the given key.
func (t *BPlusTree) FloorKey(key []byte) ([]byte, bool, error) {
	entries, err := t.RangeScan(nil, key)
	if err != nil {
		return nil, false, err
	}
	if len(entries) == 0 {
		return nil, false, nil
	}
	return entries[len(entries)-1].Key, true, nil
}

// LowerKey returns the largest key strictly less than the given key.
func (t *BPlusTree) LowerKey(key []byte) ([]byte, bool, error) {
	entries, err := t.RangeScan(nil, key)
	if err != nil {
		return nil, false, err
	}
	for i := len(entries) - 1; i >= 0; i-- {
		if !bytes.Equal(entries[i].Key, key) {
			return entries[i].Key, true, nil
		}
	}
	return nil, false, nil
}

// Len returns the total number of entries in the tree.
func (t *BPlusTree) Len() (int, error) {
	entries, err := t.RangeScan(nil, maxKeySentinel)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}
