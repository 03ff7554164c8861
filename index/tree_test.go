package index

import (
	"testing"

	"github.com/nitrite-go/nitrite/store/memory"
)

func openTreeIndex(t *testing.T, desc *Descriptor) (*treeIndex, *memory.Store) {
	t.Helper()
	s := memory.New()
	root, err := s.OpenMap(desc.MapName())
	if err != nil {
		t.Fatalf("OpenMap failed: %v", err)
	}
	return newTreeIndex(s, desc, root), s
}

func TestTreeIndexSimpleWriteReadRemove(t *testing.T) {
	desc := &Descriptor{Collection: "c", Fields: Fields{"age"}, Type: NonUnique}
	idx, _ := openTreeIndex(t, desc)

	key := [][]byte{[]byte("k1")}
	if err := idx.Write(key, 1); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := idx.Write(key, 2); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	ids, err := readBucket(idx.root, key[0])
	if err != nil {
		t.Fatalf("readBucket failed: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 ids in bucket, got %d", len(ids))
	}

	if err := idx.Remove(key, 1); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	ids, err = readBucket(idx.root, key[0])
	if err != nil {
		t.Fatalf("readBucket failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != 2 {
		t.Fatalf("expected bucket to hold just id 2, got %v", ids)
	}
}

func TestTreeIndexUniqueViolation(t *testing.T) {
	desc := &Descriptor{Collection: "c", Fields: Fields{"email"}, Type: Unique}
	idx, _ := openTreeIndex(t, desc)

	key := [][]byte{[]byte("a@example.com")}
	if err := idx.Write(key, 1); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	if err := idx.Write(key, 2); err == nil {
		t.Fatal("expected a unique constraint violation on the second distinct id")
	}
}

func TestTreeIndexUniqueWriteSameIdIsIdempotent(t *testing.T) {
	desc := &Descriptor{Collection: "c", Fields: Fields{"email"}, Type: Unique}
	idx, _ := openTreeIndex(t, desc)

	key := [][]byte{[]byte("a@example.com")}
	if err := idx.Write(key, 1); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	if err := idx.Write(key, 1); err != nil {
		t.Fatalf("rewriting the same id should not violate uniqueness: %v", err)
	}
}

func TestTreeIndexCompoundNesting(t *testing.T) {
	desc := &Descriptor{Collection: "c", Fields: Fields{"country", "city"}, Type: NonUnique}
	idx, _ := openTreeIndex(t, desc)

	usNyc := [][]byte{[]byte("us"), []byte("nyc")}
	usSf := [][]byte{[]byte("us"), []byte("sf")}
	frParis := [][]byte{[]byte("fr"), []byte("paris")}

	for _, w := range []struct {
		keys [][]byte
		id   uint64
	}{{usNyc, 1}, {usSf, 2}, {frParis, 3}} {
		if err := idx.Write(w.keys, w.id); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	ids, err := Scan(idx.s, idx.root, []Constraint{{Op: ConstraintEq, Eq: []byte("us")}}, false)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 ids under country=us, got %v", ids)
	}
}

func TestTreeIndexRemoveUnknownKeyIsNoop(t *testing.T) {
	desc := &Descriptor{Collection: "c", Fields: Fields{"age"}, Type: NonUnique}
	idx, _ := openTreeIndex(t, desc)
	if err := idx.Remove([][]byte{[]byte("missing")}, 1); err != nil {
		t.Fatalf("removing a nonexistent key should be a no-op, got error: %v", err)
	}
}
