package nitrite

import (
	"testing"

	"github.com/nitrite-go/nitrite/store/memory"
)

func TestDatabaseGetCollectionReopens(t *testing.T) {
	db := openTestDB(t)
	c1 := mustCollection(t, db, "accounts")
	if err := c1.Insert(NewDocument().Put("x", Int(1))); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if err := c1.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if c1.IsOpen() {
		t.Fatal("expected collection to be closed")
	}

	c2 := mustCollection(t, db, "accounts")
	if !c2.IsOpen() {
		t.Fatal("expected GetCollection to reopen a closed collection")
	}
	n, err := c2.Size()
	if err != nil {
		t.Fatalf("Size failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected reopened collection to retain its document, got size %d", n)
	}
}

func TestDatabaseListCollections(t *testing.T) {
	db := openTestDB(t)
	mustCollection(t, db, "a")
	mustCollection(t, db, "b")

	names, err := db.ListCollections()
	if err != nil {
		t.Fatalf("ListCollections failed: %v", err)
	}
	seen := map[string]bool{}
	for _, n := range names {
		seen[n] = true
	}
	if !seen["a"] || !seen["b"] {
		t.Fatalf("expected collections a and b to be listed, got %v", names)
	}
}

func TestDatabaseDropCollection(t *testing.T) {
	db := openTestDB(t)
	c := mustCollection(t, db, "temp")
	if err := c.Insert(NewDocument().Put("x", Int(1))); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if err := db.DropCollection("temp"); err != nil {
		t.Fatalf("DropCollection failed: %v", err)
	}
	if !c.IsDropped() {
		t.Fatal("expected collection handle to reflect dropped state")
	}

	names, err := db.ListCollections()
	if err != nil {
		t.Fatalf("ListCollections failed: %v", err)
	}
	for _, n := range names {
		if n == "temp" {
			t.Fatal("dropped collection should not appear in ListCollections")
		}
	}
}

func TestDatabaseCloseClosesCollections(t *testing.T) {
	backing := memory.New()
	db, err := Open(backing, Options{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	c := mustCollection(t, db, "things")
	if err := db.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if c.IsOpen() {
		t.Fatal("expected collection to be closed after Database.Close")
	}
}
