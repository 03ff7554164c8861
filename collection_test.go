package nitrite

import (
	"testing"

	"github.com/nitrite-go/nitrite/index"
	"github.com/nitrite-go/nitrite/store/memory"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := Open(memory.New(), Options{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return db
}

func mustCollection(t *testing.T, db *Database, name string) *Collection {
	t.Helper()
	c, err := db.GetCollection(name)
	if err != nil {
		t.Fatalf("GetCollection(%q) failed: %v", name, err)
	}
	return c
}

// S1: a compound index over (a, b) serves a query that only constrains
// the prefix field a.
func TestCollectionCompoundIndexPrefixMatch(t *testing.T) {
	db := openTestDB(t)
	c := mustCollection(t, db, "people")

	if err := c.CreateIndex(NewFields("country", "city"), IndexOptions{Type: index.NonUnique}); err != nil {
		t.Fatalf("CreateIndex failed: %v", err)
	}

	docs := []*Document{
		NewDocument().Put("country", String("us")).Put("city", String("nyc")),
		NewDocument().Put("country", String("us")).Put("city", String("sf")),
		NewDocument().Put("country", String("fr")).Put("city", String("paris")),
	}
	for _, d := range docs {
		if err := c.Insert(d); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	cur, err := c.Find(Eq("country", String("us")))
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	got, err := cur.All()
	if err != nil {
		t.Fatalf("cursor iteration failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 matches for country=us, got %d", len(got))
	}

	if !c.HasIndex(NewFields("country")) {
		t.Error("has_index should expose the compound index's leading prefix")
	}
	if c.HasIndex(NewFields("city", "country")) {
		t.Error("has_index should not match a non-prefix field order")
	}
}

// S2: inserting a document that collides on a unique index key rolls
// back cleanly, leaving the collection's prior state untouched.
func TestCollectionUniqueViolationRollback(t *testing.T) {
	db := openTestDB(t)
	c := mustCollection(t, db, "users")

	if err := c.CreateIndex(NewFields("email"), IndexOptions{Type: index.Unique}); err != nil {
		t.Fatalf("CreateIndex failed: %v", err)
	}

	if err := c.Insert(NewDocument().Put("email", String("a@example.com"))); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}

	err := c.Insert(NewDocument().Put("email", String("a@example.com")))
	if err == nil {
		t.Fatal("expected unique constraint violation on duplicate email")
	}

	n, err := c.Size()
	if err != nil {
		t.Fatalf("Size failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected collection to still hold exactly 1 document after rollback, got %d", n)
	}

	cur, err := c.Find(Eq("email", String("a@example.com")))
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	got, err := cur.All()
	if err != nil {
		t.Fatalf("cursor iteration failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected exactly 1 document surviving rollback, got %d", len(got))
	}
}

// A missing field under a unique index is treated as Null, and only a
// single Null is permitted — a second document missing the same field
// collides on the Null key. (Not spec §8 scenario S3 — see
// TestCollectionEqNullMatchesArrayAndPlainNull below for that one.)
func TestCollectionUniqueIndexNullCollision(t *testing.T) {
	db := openTestDB(t)
	c := mustCollection(t, db, "accounts")

	if err := c.CreateIndex(NewFields("ssn"), IndexOptions{Type: index.Unique}); err != nil {
		t.Fatalf("CreateIndex failed: %v", err)
	}

	if err := c.Insert(NewDocument().Put("name", String("no-ssn-1"))); err != nil {
		t.Fatalf("first null insert failed: %v", err)
	}

	err := c.Insert(NewDocument().Put("name", String("no-ssn-2")))
	if err == nil {
		t.Fatal("expected unique constraint violation on second missing-field (null) document")
	}
}

// S3: eq(third, null) must match both a document whose field is
// explicitly null and a document whose field is an array containing a
// null element (spec §8: count == 2 over three documents, only one of
// which has neither).
func TestCollectionEqNullMatchesArrayAndPlainNull(t *testing.T) {
	db := openTestDB(t)
	c := mustCollection(t, db, "s3")

	docs := []*Document{
		NewDocument().Put("third", Array(Int(1), Int(2), Null)),
		NewDocument().Put("third", Array(Int(3), Int(1))),
		NewDocument().Put("third", Null),
	}
	for _, d := range docs {
		if err := c.Insert(d); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	cur, err := c.Find(Eq("third", Null))
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	got, err := cur.All()
	if err != nil {
		t.Fatalf("cursor iteration failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected eq(third, null) to match 2 documents, got %d", len(got))
	}
}

// S4: numeric heterogeneity collapses under equality and index lookups —
// Int(5), Uint(5), Float(5.0) all denote the same key.
func TestCollectionNumericHeterogeneityCollapses(t *testing.T) {
	db := openTestDB(t)
	c := mustCollection(t, db, "metrics")

	if err := c.CreateIndex(NewFields("count"), IndexOptions{Type: index.NonUnique}); err != nil {
		t.Fatalf("CreateIndex failed: %v", err)
	}
	if err := c.Insert(NewDocument().Put("count", Int(5))); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	for _, q := range []Value{Int(5), Uint(5), Float(5.0)} {
		cur, err := c.Find(Eq("count", q))
		if err != nil {
			t.Fatalf("Find(%v) failed: %v", q, err)
		}
		got, err := cur.All()
		if err != nil {
			t.Fatalf("cursor iteration failed: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("expected numeric equality across kinds to match, query %v got %d results", q, len(got))
		}
	}
}

// S5: building an index emits exactly one IndexStart/IndexEnd pair and no
// CRUD events, regardless of how many documents it indexes.
func TestCollectionIndexBuildEventFidelity(t *testing.T) {
	db := openTestDB(t)
	c := mustCollection(t, db, "widgets")

	for i := 0; i < 5; i++ {
		if err := c.Insert(NewDocument().Put("n", Int(int64(i)))); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	var events []EventType
	c.Subscribe(ListenerFunc(func(info CollectionEventInfo) {
		events = append(events, info.Type)
	}))

	if err := c.CreateIndex(NewFields("n"), IndexOptions{Type: index.NonUnique}); err != nil {
		t.Fatalf("CreateIndex failed: %v", err)
	}

	var starts, ends, crud int
	for _, e := range events {
		switch e {
		case EventIndexStart:
			starts++
		case EventIndexEnd:
			ends++
		case EventInsert, EventUpdate, EventRemove:
			crud++
		}
	}
	if starts != 1 || ends != 1 {
		t.Fatalf("expected exactly one IndexStart/IndexEnd pair, got starts=%d ends=%d", starts, ends)
	}
	if crud != 0 {
		t.Fatalf("index build should not emit CRUD events, got %d", crud)
	}
}

// S6: UpdateById finds its target by a direct id lookup and never
// consults a filter or the index scanner.
func TestCollectionUpdateByIdFastPath(t *testing.T) {
	db := openTestDB(t)
	c := mustCollection(t, db, "sessions")

	doc := NewDocument().Put("state", String("pending"))
	if err := c.Insert(doc); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	id, ok := doc.Id()
	if !ok {
		t.Fatal("inserted document should have an _id")
	}

	update := NewDocument().Put("state", String("done"))
	if err := c.UpdateById(id, update, false); err != nil {
		t.Fatalf("UpdateById failed: %v", err)
	}

	got, ok, err := c.GetById(id)
	if err != nil {
		t.Fatalf("GetById failed: %v", err)
	}
	if !ok {
		t.Fatal("expected document to still exist after update")
	}
	v, _ := got.Get("state", ".")
	s, _ := v.AsString()
	if s != "done" {
		t.Errorf("expected state=done after UpdateById, got %q", s)
	}

	missingID := NitriteId(999999)
	if err := c.UpdateById(missingID, update, false); err != nil {
		t.Fatalf("UpdateById on missing id without insertIfAbsent should be a no-op, got error: %v", err)
	}
	if _, ok, _ := c.GetById(missingID); ok {
		t.Fatal("UpdateById without insertIfAbsent should not create a document")
	}
}

func TestCollectionRemoveJustOnceRejectsAllFilter(t *testing.T) {
	db := openTestDB(t)
	c := mustCollection(t, db, "logs")
	if err := c.Insert(NewDocument().Put("x", Int(1))); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if _, err := c.Remove(All(), true); err == nil {
		t.Fatal("expected remove with all() and just_once=true to be rejected")
	}
}

func TestCollectionDropIndex(t *testing.T) {
	db := openTestDB(t)
	c := mustCollection(t, db, "things")
	fields := NewFields("tag")
	if err := c.CreateIndex(fields, IndexOptions{}); err != nil {
		t.Fatalf("CreateIndex failed: %v", err)
	}
	if !c.HasIndex(fields) {
		t.Fatal("expected index to be present after CreateIndex")
	}
	if err := c.DropIndex(fields); err != nil {
		t.Fatalf("DropIndex failed: %v", err)
	}
	if c.HasIndex(fields) {
		t.Fatal("expected index to be gone after DropIndex")
	}
}
