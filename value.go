package nitrite

import (
	"bytes"
	"fmt"
	"math"
	"sort"
)

// Kind tags a Value's variant.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindUint
	KindFloat
	KindString
	KindBytes
	KindNitriteId
	KindArray
	KindDocument
)

// Value is the closed tagged union every field in a Document holds (spec
// §3). Numeric variants are stored normalized (see Int and Uint): a
// Value never distinguishes I64(5) from U64(5), so map-key equality and
// ordering are consistent regardless of which Go numeric type produced
// the Value.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	by   []byte
	id   NitriteId
	arr  []Value
	doc  *Document
}

// Null is the singular null Value.
var Null = Value{kind: KindNull}

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int wraps any Go signed or unsigned integer, normalizing it to a
// comparable int64 representation per spec §3's numeric-normalization
// invariant (I64(5) and U64(5) must compare and hash identically).
func Int(v int64) Value { return Value{kind: KindInt, i: v} }

// Uint is accepted at the boundary but immediately normalized to the
// signed representation — there is no separate KindUint stored value;
// no constructor produces KindUint, so a Value does not record that it
// came from an unsigned integer, and Compare/Equal never distinguish it.
func Uint(v uint64) Value { return Value{kind: KindInt, i: int64(v)} }

func Float(v float64) Value { return Value{kind: KindFloat, f: v} }

func String(v string) Value { return Value{kind: KindString, s: v} }

func Bytes(v []byte) Value {
	cp := make([]byte, len(v))
	copy(cp, v)
	return Value{kind: KindBytes, by: cp}
}

func IdValue(id NitriteId) Value { return Value{kind: KindNitriteId, id: id} }

func Array(vals ...Value) Value { return Value{kind: KindArray, arr: vals} }

func DocValue(d *Document) Value { return Value{kind: KindDocument, doc: d} }

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsBool() (bool, bool)       { return v.b, v.kind == KindBool }
func (v Value) AsInt() (int64, bool)       { return v.i, v.kind == KindInt }
func (v Value) AsFloat() (float64, bool)   { return v.f, v.kind == KindFloat }
func (v Value) AsString() (string, bool)   { return v.s, v.kind == KindString }
func (v Value) AsBytes() ([]byte, bool)    { return v.by, v.kind == KindBytes }
func (v Value) AsId() (NitriteId, bool)    { return v.id, v.kind == KindNitriteId }
func (v Value) AsArray() ([]Value, bool)   { return v.arr, v.kind == KindArray }
func (v Value) AsDocument() (*Document, bool) { return v.doc, v.kind == KindDocument }

// IsComparable reports whether the Value participates in total ordering.
// Arrays and documents are iterable but not comparable (spec §3).
func (v Value) IsComparable() bool {
	switch v.kind {
	case KindArray, KindDocument:
		return false
	default:
		return true
	}
}

// typeRank orders the numeric-ish kinds relative to each other and to
// everything else, so Compare has a single total order across all kinds.
func (v Value) typeRank() int {
	switch v.kind {
	case KindNull:
		return 0
	case KindBool:
		return 1
	case KindInt, KindFloat:
		return 2
	case KindString:
		return 3
	case KindBytes:
		return 4
	case KindNitriteId:
		return 5
	default:
		return 6
	}
}

// Compare returns -1, 0, or 1. Only defined between comparable Values;
// comparing across incompatible comparable kinds falls back to rank
// order so the function is still total (needed for sorted map keys).
func (v Value) Compare(o Value) int {
	if v.kind == KindNull && o.kind == KindNull {
		return 0
	}
	// Numeric cross-kind comparison (int vs float) per the
	// numeric-normalization invariant: compare as float64 when either
	// side is a float, otherwise as int64.
	if (v.kind == KindInt || v.kind == KindFloat) && (o.kind == KindInt || o.kind == KindFloat) {
		if v.kind == KindFloat || o.kind == KindFloat {
			vf, of := v.numericFloat(), o.numericFloat()
			switch {
			case vf < of:
				return -1
			case vf > of:
				return 1
			default:
				return 0
			}
		}
		switch {
		case v.i < o.i:
			return -1
		case v.i > o.i:
			return 1
		default:
			return 0
		}
	}

	if v.typeRank() != o.typeRank() {
		if v.typeRank() < o.typeRank() {
			return -1
		}
		return 1
	}

	switch v.kind {
	case KindBool:
		if v.b == o.b {
			return 0
		}
		if !v.b {
			return -1
		}
		return 1
	case KindString:
		return compareStrings(v.s, o.s)
	case KindBytes:
		return bytes.Compare(v.by, o.by)
	case KindNitriteId:
		switch {
		case v.id < o.id:
			return -1
		case v.id > o.id:
			return 1
		default:
			return 0
		}
	default:
		return 0
	}
}

func (v Value) numericFloat() float64 {
	if v.kind == KindFloat {
		return v.f
	}
	return float64(v.i)
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Equal reports value equality, applying the same numeric normalization
// as Compare (so Int(5) and Float(5.0) are equal).
func (v Value) Equal(o Value) bool {
	if v.kind == KindNull || o.kind == KindNull {
		return v.kind == o.kind
	}
	if v.IsComparable() && o.IsComparable() {
		return v.Compare(o) == 0
	}
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindArray:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	case KindDocument:
		return v.doc.Equal(o.doc)
	default:
		return false
	}
}

// EncodeKey produces a byte encoding of v suitable as an OrderedMap key:
// bytes.Compare on two EncodeKey outputs agrees with Compare on the
// original Values, for every pair of comparable Values this package
// produces. Used by Collection.indexKeySets and planFind to turn a Value
// into an index key, and by idKey for document map keys.
func (v Value) EncodeKey() []byte {
	switch v.kind {
	case KindNull:
		return []byte{0x00}
	case KindBool:
		if v.b {
			return []byte{0x01, 0x01}
		}
		return []byte{0x01, 0x00}
	case KindInt, KindFloat:
		return encodeOrderedFloat(v.numericFloat())
	case KindString:
		return append([]byte{0x03}, []byte(v.s)...)
	case KindBytes:
		return append([]byte{0x04}, v.by...)
	case KindNitriteId:
		return append([]byte{0x05}, encodeUint64BE(uint64(v.id))...)
	default:
		return []byte{0xFF}
	}
}

// encodeOrderedFloat maps a float64 onto a byte string that sorts the
// same way the floats do, including across sign, using the standard
// IEEE-754 bit-flip trick (flip sign bit for positives, flip all bits for
// negatives).
func encodeOrderedFloat(f float64) []byte {
	bits := math.Float64bits(f)
	if bits&(1<<63) != 0 {
		bits = ^bits
	} else {
		bits |= 1 << 63
	}
	out := make([]byte, 9)
	out[0] = 0x02
	for i := 0; i < 8; i++ {
		out[1+i] = byte(bits >> (56 - 8*i))
	}
	return out
}

func encodeUint64BE(v uint64) []byte {
	out := make([]byte, 8)
	for i := 0; i < 8; i++ {
		out[i] = byte(v >> (56 - 8*i))
	}
	return out
}

// String renders a Value for debugging and test failure messages; the
// engine never logs document payloads (see the logging convention in
// SPEC_FULL.md).
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return fmt.Sprintf("%v", v.b)
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindString:
		return v.s
	case KindBytes:
		return fmt.Sprintf("bytes(%d)", len(v.by))
	case KindNitriteId:
		return v.id.String()
	case KindArray:
		return fmt.Sprintf("array(%d)", len(v.arr))
	case KindDocument:
		return "document"
	default:
		return "?"
	}
}

// SortValues sorts a slice of comparable Values ascending.
func SortValues(vs []Value) {
	sort.Slice(vs, func(i, j int) bool { return vs[i].Compare(vs[j]) < 0 })
}
