package nitrite

import "testing"

func TestDocumentPutGetOrderPreserved(t *testing.T) {
	doc := NewDocument().Put("b", Int(2)).Put("a", Int(1)).Put("c", Int(3))
	names := doc.Names()
	want := []string{"b", "a", "c"}
	for i, n := range want {
		if names[i] != n {
			t.Fatalf("field order not preserved: got %v, want %v", names, want)
		}
	}
}

func TestDocumentNestedGet(t *testing.T) {
	inner := NewDocument().Put("city", String("NYC"))
	doc := NewDocument().Put("address", DocValue(inner))

	v, ok := doc.Get("address.city", ".")
	if !ok {
		t.Fatal("expected nested field to be found")
	}
	s, _ := v.AsString()
	if s != "NYC" {
		t.Errorf("got %q, want NYC", s)
	}

	if _, ok := doc.Get("address.zip", "."); ok {
		t.Error("missing nested field should not be found")
	}
}

func TestDocumentCloneIsDeep(t *testing.T) {
	inner := NewDocument().Put("x", Int(1))
	doc := NewDocument().Put("nested", DocValue(inner))
	clone := doc.Clone()

	innerClone, _ := clone.Get("nested", ".")
	d, _ := innerClone.AsDocument()
	d.Put("x", Int(99))

	orig, _ := doc.Get("nested.x", ".")
	i, _ := orig.AsInt()
	if i != 1 {
		t.Errorf("mutating clone's nested document affected original: got %d, want 1", i)
	}
}

func TestDocumentEqual(t *testing.T) {
	a := NewDocument().Put("x", Int(1)).Put("y", String("hi"))
	b := NewDocument().Put("y", String("hi")).Put("x", Int(1))
	if !a.Equal(b) {
		t.Error("documents with same fields in different order should be equal")
	}
	c := NewDocument().Put("x", Int(2))
	if a.Equal(c) {
		t.Error("documents with different values should not be equal")
	}
}

func TestDocumentSerializeRoundTrip(t *testing.T) {
	doc := NewDocument().
		Put("name", String("alice")).
		Put("age", Int(30)).
		Put("active", Bool(true)).
		Put("tags", Array(String("a"), String("b")))
	doc.SetId(NitriteId(42))

	raw, err := doc.Serialize()
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}

	round, err := DeserializeDocument(raw)
	if err != nil {
		t.Fatalf("DeserializeDocument failed: %v", err)
	}

	if !doc.Equal(round) {
		t.Errorf("round-tripped document differs from original")
	}
	id, ok := round.Id()
	if !ok || id != 42 {
		t.Errorf("expected _id 42, got %v (ok=%v)", id, ok)
	}
	if round.Names()[0] != "name" {
		t.Errorf("field order lost across round trip: %v", round.Names())
	}
}

func TestDocumentDelete(t *testing.T) {
	doc := NewDocument().Put("a", Int(1)).Put("b", Int(2))
	doc.Delete("a")
	if doc.Has("a") {
		t.Error("expected field a to be removed")
	}
	if !doc.Has("b") {
		t.Error("expected field b to remain")
	}
}
