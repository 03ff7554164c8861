package index

import (
	"testing"

	"github.com/nitrite-go/nitrite/store/memory"
)

func TestManagerCreateAndFindExact(t *testing.T) {
	mgr := NewManager(memory.New())
	desc, err := mgr.CreateIndex("people", Fields{"age"}, NonUnique)
	if err != nil {
		t.Fatalf("CreateIndex failed: %v", err)
	}
	if !mgr.IsDirty(desc) {
		t.Error("a newly created index should start Dirty")
	}
	if err := mgr.EndIndexing(desc); err != nil {
		t.Fatalf("EndIndexing failed: %v", err)
	}
	if mgr.IsDirty(desc) {
		t.Error("EndIndexing should clear the dirty flag")
	}

	got, ok := mgr.FindExact("people", Fields{"age"}, NonUnique)
	if !ok || got != desc {
		t.Fatal("FindExact should return the created descriptor")
	}
}

func TestManagerCreateIndexRejectsDuplicate(t *testing.T) {
	mgr := NewManager(memory.New())
	if _, err := mgr.CreateIndex("people", Fields{"age"}, NonUnique); err != nil {
		t.Fatalf("CreateIndex failed: %v", err)
	}
	if _, err := mgr.CreateIndex("people", Fields{"age"}, NonUnique); err == nil {
		t.Fatal("expected an error creating a duplicate index")
	}
}

func TestManagerCreateIndexRejectsEmptyFields(t *testing.T) {
	mgr := NewManager(memory.New())
	if _, err := mgr.CreateIndex("people", Fields{}, NonUnique); err == nil {
		t.Fatal("expected an error creating an index with no fields")
	}
}

func TestManagerFindMatchingPrefersTightestCoveringIndex(t *testing.T) {
	mgr := NewManager(memory.New())
	narrow, err := mgr.CreateIndex("people", Fields{"country"}, NonUnique)
	if err != nil {
		t.Fatalf("CreateIndex failed: %v", err)
	}
	wide, err := mgr.CreateIndex("people", Fields{"country", "city"}, NonUnique)
	if err != nil {
		t.Fatalf("CreateIndex failed: %v", err)
	}

	// A query over just the leading field can use either index (both
	// begin with "country"); the tightest one should win.
	got, ok := mgr.FindMatching("people", []string{"country"})
	if !ok || got != narrow {
		t.Fatal("expected the tightest covering index (country) to win for a query over just country")
	}

	// A query over (country, city) can only be served by the wider
	// index: the narrow one does not begin with the full query.
	got, ok = mgr.FindMatching("people", []string{"country", "city"})
	if !ok || got != wide {
		t.Fatal("expected the compound index to serve a query over both its fields")
	}

	// A query longer than any registered index's field list cannot be
	// served by a prefix match.
	if _, ok := mgr.FindMatching("people", []string{"country", "city", "zip"}); ok {
		t.Fatal("no index should match a query longer than its field list")
	}
}

func TestManagerDropIndexRemovesIt(t *testing.T) {
	mgr := NewManager(memory.New())
	desc, err := mgr.CreateIndex("people", Fields{"age"}, NonUnique)
	if err != nil {
		t.Fatalf("CreateIndex failed: %v", err)
	}
	if err := mgr.DropIndex(desc); err != nil {
		t.Fatalf("DropIndex failed: %v", err)
	}
	if _, ok := mgr.FindExact("people", Fields{"age"}, NonUnique); ok {
		t.Fatal("expected index to be gone after DropIndex")
	}
}

func TestManagerRestoreReattachesExistingIndexes(t *testing.T) {
	backing := memory.New()
	mgr1 := NewManager(backing)
	desc, err := mgr1.CreateIndex("people", Fields{"country", "city"}, Unique)
	if err != nil {
		t.Fatalf("CreateIndex failed: %v", err)
	}
	if err := mgr1.EndIndexing(desc); err != nil {
		t.Fatalf("EndIndexing failed: %v", err)
	}

	mgr2 := NewManager(backing)
	if err := mgr2.Restore(); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	got, ok := mgr2.FindExact("people", Fields{"country", "city"}, Unique)
	if !ok {
		t.Fatal("expected Restore to reattach the previously created index")
	}
	if mgr2.IsDirty(got) {
		t.Error("restored index should keep its Clean state")
	}
}
