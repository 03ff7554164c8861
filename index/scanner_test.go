package index

import (
	"testing"

	"github.com/nitrite-go/nitrite/store/memory"
)

func TestScanRangeAcrossUnconstrainedSuffix(t *testing.T) {
	desc := &Descriptor{Collection: "c", Fields: Fields{"country", "city"}, Type: NonUnique}
	idx, _ := openTreeIndex(t, desc)

	write := func(country, city string, id uint64) {
		if err := idx.Write([][]byte{[]byte(country), []byte(city)}, id); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	write("us", "nyc", 1)
	write("us", "sf", 2)
	write("fr", "paris", 3)

	ids, err := Scan(idx.s, idx.root, nil, false)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("an unconstrained scan should return every id, got %v", ids)
	}
}

func TestScanReverseOrdersDescending(t *testing.T) {
	desc := &Descriptor{Collection: "c", Fields: Fields{"n"}, Type: NonUnique}
	idx, _ := openTreeIndex(t, desc)

	for i := byte(1); i <= 3; i++ {
		if err := idx.Write([][]byte{{i}}, uint64(i)); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	ids, err := Scan(idx.s, idx.root, nil, true)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(ids) != 3 || ids[0] != 3 || ids[2] != 1 {
		t.Fatalf("expected descending order [3 2 1], got %v", ids)
	}
}

func TestScanEqConstraintNoMatchReturnsEmpty(t *testing.T) {
	s := memory.New()
	root, err := s.OpenMap("m")
	if err != nil {
		t.Fatalf("OpenMap failed: %v", err)
	}
	ids, err := Scan(s, root, []Constraint{{Op: ConstraintEq, Eq: []byte("nope")}}, false)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected no matches, got %v", ids)
	}
}

func TestScanDetectsMixedBucketAndSubmap(t *testing.T) {
	s := memory.New()
	root, err := s.OpenMap("corrupt")
	if err != nil {
		t.Fatalf("OpenMap failed: %v", err)
	}
	if err := root.Put([]byte("a"), append([]byte{tagBucket}, []byte("[1]")...)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := root.Put([]byte("b"), append([]byte{tagSubmap}, []byte("some/sub/map")...)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if _, err := Scan(s, root, nil, false); err == nil {
		t.Fatal("expected Scan to reject a level mixing id buckets and submap pointers")
	}
}
