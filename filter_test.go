package nitrite

import "testing"

func docWith(fields map[string]Value) *Document {
	d := NewDocument()
	for k, v := range fields {
		d.Put(k, v)
	}
	return d
}

func TestFieldFilterOps(t *testing.T) {
	doc := docWith(map[string]Value{"age": Int(30)})

	if !Eq("age", Int(30)).Matches(doc, ".") {
		t.Error("Eq should match equal value")
	}
	if !Gt("age", Int(20)).Matches(doc, ".") {
		t.Error("Gt should match greater value")
	}
	if Gt("age", Int(30)).Matches(doc, ".") {
		t.Error("Gt should not match equal value")
	}
	if !Gte("age", Int(30)).Matches(doc, ".") {
		t.Error("Gte should match equal value")
	}
	if !Lt("age", Int(40)).Matches(doc, ".") {
		t.Error("Lt should match lesser bound")
	}
	if !Ne("age", Int(99)).Matches(doc, ".") {
		t.Error("Ne should match distinct value")
	}
}

func TestAndOrNotFilters(t *testing.T) {
	doc := docWith(map[string]Value{"age": Int(30), "active": Bool(true)})

	and := And(Eq("age", Int(30)), Eq("active", Bool(true)))
	if !and.Matches(doc, ".") {
		t.Error("AndFilter should match when all sub-filters match")
	}

	and2 := And(Eq("age", Int(31)), Eq("active", Bool(true)))
	if and2.Matches(doc, ".") {
		t.Error("AndFilter should not match when one sub-filter fails")
	}

	or := Or(Eq("age", Int(31)), Eq("active", Bool(true)))
	if !or.Matches(doc, ".") {
		t.Error("OrFilter should match when at least one sub-filter matches")
	}

	not := Not(Eq("age", Int(31)))
	if !not.Matches(doc, ".") {
		t.Error("NotFilter should invert its inner filter")
	}
}

// TestFieldFilterEqArrayMembership covers spec §8 scenario S3: eq against
// an array-valued field matches if any element equals the target,
// including an explicit Null element.
func TestFieldFilterEqArrayMembership(t *testing.T) {
	withNullElem := docWith(map[string]Value{"third": Array(Int(1), Int(2), Null)})
	plainNull := docWith(map[string]Value{"third": Null})
	noNullArr := docWith(map[string]Value{"third": Array(Int(3), Int(1))})

	eqNull := Eq("third", Null)
	if !eqNull.Matches(withNullElem, ".") {
		t.Error("eq(third, null) should match an array containing a null element")
	}
	if !eqNull.Matches(plainNull, ".") {
		t.Error("eq(third, null) should match a plain null field")
	}
	if eqNull.Matches(noNullArr, ".") {
		t.Error("eq(third, null) should not match an array with no null element")
	}

	eqOne := Eq("third", Int(1))
	if !eqOne.Matches(withNullElem, ".") {
		t.Error("eq(third, 1) should match an array containing element 1")
	}
	if eqOne.Matches(plainNull, ".") {
		t.Error("eq(third, 1) should not match a plain null field")
	}

	neOne := Ne("third", Int(1))
	if neOne.Matches(withNullElem, ".") {
		t.Error("ne(third, 1) should be false when 1 is among the array's elements")
	}
}

func TestInFilter(t *testing.T) {
	doc := docWith(map[string]Value{"color": String("red")})
	if !In("color", String("red"), String("blue")).Matches(doc, ".") {
		t.Error("In should match a listed value")
	}
	if In("color", String("blue")).Matches(doc, ".") {
		t.Error("In should not match an unlisted value")
	}
	if !NotIn("color", String("blue")).Matches(doc, ".") {
		t.Error("NotIn should match when value is absent from the list")
	}
}

func TestExistsFilter(t *testing.T) {
	doc := docWith(map[string]Value{"a": Int(1)})
	if !Exists("a").Matches(doc, ".") {
		t.Error("Exists should match a present field")
	}
	if Exists("b").Matches(doc, ".") {
		t.Error("Exists should not match a missing field")
	}
	if !NotExists("b").Matches(doc, ".") {
		t.Error("NotExists should match a missing field")
	}
}

func TestElemMatchFilter(t *testing.T) {
	doc := docWith(map[string]Value{"scores": Array(Int(1), Int(5), Int(9))})
	if !ElemMatch("scores", Gt("scores", Int(8))).Matches(doc, ".") {
		t.Error("ElemMatch should match when an element satisfies the sub-filter")
	}
	if ElemMatch("scores", Gt("scores", Int(100))).Matches(doc, ".") {
		t.Error("ElemMatch should not match when no element satisfies the sub-filter")
	}
}

func TestAllFilterMatchesEverything(t *testing.T) {
	if !All().Matches(NewDocument(), ".") {
		t.Error("All should match every document, including empty ones")
	}
}

func TestEqualityFields(t *testing.T) {
	f := And(Eq("a", Int(1)), Eq("b", String("x")), Gt("c", Int(5)))
	names, values := EqualityFields(f)
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Fatalf("expected equality fields [a b], got %v", names)
	}
	if !values["a"].Equal(Int(1)) || !values["b"].Equal(String("x")) {
		t.Errorf("unexpected equality values: %v", values)
	}
}
