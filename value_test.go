package nitrite

import "testing"

func TestValueNumericNormalization(t *testing.T) {
	if !Int(5).Equal(Uint(5)) {
		t.Error("Int(5) should equal Uint(5)")
	}
	if !Int(5).Equal(Float(5.0)) {
		t.Error("Int(5) should equal Float(5.0)")
	}
	if Int(5).Compare(Float(5.0)) != 0 {
		t.Error("Compare should treat 5 and 5.0 as equal")
	}
	if Int(4).Compare(Float(5.0)) >= 0 {
		t.Error("4 should compare less than 5.0")
	}
}

func TestValueEncodeKeyOrdering(t *testing.T) {
	vals := []Value{Int(-10), Int(-1), Int(0), Int(1), Float(1.5), Int(100)}
	for i := 0; i < len(vals)-1; i++ {
		a, b := vals[i].EncodeKey(), vals[i+1].EncodeKey()
		if string(a) >= string(b) {
			t.Errorf("EncodeKey(%v) should sort before EncodeKey(%v)", vals[i], vals[i+1])
		}
	}
}

func TestValueEncodeKeyNullFixed(t *testing.T) {
	a := Null.EncodeKey()
	b := Null.EncodeKey()
	if string(a) != string(b) {
		t.Error("Null should always encode to the same key")
	}
}

func TestValueIsComparable(t *testing.T) {
	if Array(Int(1)).IsComparable() {
		t.Error("arrays should not be comparable")
	}
	if DocValue(NewDocument()).IsComparable() {
		t.Error("documents should not be comparable")
	}
	if !String("x").IsComparable() {
		t.Error("strings should be comparable")
	}
}

func TestValueEqualArraysAndDocuments(t *testing.T) {
	a := Array(Int(1), String("x"))
	b := Array(Int(1), String("x"))
	if !a.Equal(b) {
		t.Error("structurally identical arrays should be equal")
	}

	d1 := NewDocument().Put("a", Int(1))
	d2 := NewDocument().Put("a", Int(1))
	if !DocValue(d1).Equal(DocValue(d2)) {
		t.Error("structurally identical documents should be equal")
	}
}

func TestSortValues(t *testing.T) {
	vs := []Value{Int(3), Int(1), Int(2)}
	SortValues(vs)
	if vs[0].Compare(Int(1)) != 0 || vs[1].Compare(Int(2)) != 0 || vs[2].Compare(Int(3)) != 0 {
		t.Errorf("SortValues did not sort ascending: %v", vs)
	}
}
