package nitrite

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/nitrite-go/nitrite/errs"
)

// IdField is the reserved field name holding a document's NitriteId.
const IdField = "_id"

// DefaultPathSeparator is the default dotted-path navigation separator
// (spec §3, "Field-separator" in the glossary). A Database takes its
// separator from Options.FieldSeparator at Open; nothing changes it
// afterwards.
const DefaultPathSeparator = "."

type fieldEntry struct {
	name  string
	value Value
}

// Document is an ordered mapping from field name to Value (spec §3),
// adapted from bundoc/storage/document.go's Serialize/Deserialize/Clone
// shape but backed by an order-preserving slice instead of a Go map,
// since spec.md requires documents to be ordered.
type Document struct {
	mu      sync.RWMutex
	entries []fieldEntry
	index   map[string]int
}

// NewDocument builds an empty document.
func NewDocument() *Document {
	return &Document{index: make(map[string]int)}
}

// bufferPool reuses byte buffers for JSON encoding, matching the
// teacher's storage/document.go pooled-buffer approach.
var bufferPool = sync.Pool{New: func() any { return new(bytes.Buffer) }}

// Put sets or replaces the value of a field, preserving the existing
// position if the field already exists, otherwise appending.
func (d *Document) Put(name string, v Value) *Document {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i, ok := d.index[name]; ok {
		d.entries[i].value = v
		return d
	}
	d.index[name] = len(d.entries)
	d.entries = append(d.entries, fieldEntry{name: name, value: v})
	return d
}

// Get performs dotted-path navigation (using sep, or DefaultPathSeparator
// if sep is empty) into nested documents.
func (d *Document) Get(path string, sep string) (Value, bool) {
	if sep == "" {
		sep = DefaultPathSeparator
	}
	parts := strings.Split(path, sep)
	cur := d
	for i, p := range parts {
		v, ok := cur.field(p)
		if !ok {
			return Value{}, false
		}
		if i == len(parts)-1 {
			return v, true
		}
		sub, ok := v.AsDocument()
		if !ok {
			return Value{}, false
		}
		cur = sub
	}
	return Value{}, false
}

func (d *Document) field(name string) (Value, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	i, ok := d.index[name]
	if !ok {
		return Value{}, false
	}
	return d.entries[i].value, true
}

// Has reports whether a top-level field is present.
func (d *Document) Has(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.index[name]
	return ok
}

// Delete removes a top-level field, if present.
func (d *Document) Delete(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	i, ok := d.index[name]
	if !ok {
		return
	}
	d.entries = append(d.entries[:i], d.entries[i+1:]...)
	delete(d.index, name)
	for n, idx := range d.index {
		if idx > i {
			d.index[n] = idx - 1
		}
	}
}

// Names returns the top-level field names in insertion order.
func (d *Document) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, len(d.entries))
	for i, e := range d.entries {
		out[i] = e.name
	}
	return out
}

// HasId reports whether _id is populated (spec §3's has_id()).
func (d *Document) HasId() bool { return d.Has(IdField) }

// Id returns the document's NitriteId, if present.
func (d *Document) Id() (NitriteId, bool) {
	v, ok := d.field(IdField)
	if !ok {
		return 0, false
	}
	id, ok := v.AsId()
	return id, ok
}

// SetId sets _id.
func (d *Document) SetId(id NitriteId) { d.Put(IdField, IdValue(id)) }

// Clone performs a deep copy (spec §3).
func (d *Document) Clone() *Document {
	d.mu.RLock()
	defer d.mu.RUnlock()
	clone := NewDocument()
	for _, e := range d.entries {
		clone.Put(e.name, cloneValue(e.value))
	}
	return clone
}

func cloneValue(v Value) Value {
	switch v.kind {
	case KindDocument:
		doc, _ := v.AsDocument()
		return DocValue(doc.Clone())
	case KindArray:
		arr, _ := v.AsArray()
		out := make([]Value, len(arr))
		for i, e := range arr {
			out[i] = cloneValue(e)
		}
		return Array(out...)
	default:
		return v
	}
}

// Equal reports deep structural equality between two documents,
// comparing fields by name regardless of order.
func (d *Document) Equal(o *Document) bool {
	if d == nil || o == nil {
		return d == o
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	o.mu.RLock()
	defer o.mu.RUnlock()
	if len(d.entries) != len(o.entries) {
		return false
	}
	for _, e := range d.entries {
		oi, ok := o.index[e.name]
		if !ok || !e.value.Equal(o.entries[oi].value) {
			return false
		}
	}
	return true
}

// FieldValues projects the document through Fields, extracting one Value
// per field using dotted-path navigation (spec glossary: "FieldValues").
// A missing or explicit-null field yields Null, matching the Null key
// Collection.indexKeySets uses for a missing field.
func (d *Document) FieldValues(fields Fields, sep string) []Value {
	out := make([]Value, fields.Len())
	for i, name := range fields.Names() {
		v, ok := d.Get(name, sep)
		if !ok {
			out[i] = Null
			continue
		}
		out[i] = v
	}
	return out
}

// Serialize renders the document as JSON, preserving field order — the
// standard library's map-based json.Marshal cannot do this, so values are
// walked and written directly, matching the shape of the teacher's
// pooled-buffer Serialize (bundoc/storage/document.go) while fixing its
// loss of field order.
func (d *Document) Serialize() ([]byte, error) {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	if err := writeDocumentJSON(buf, d); err != nil {
		return nil, errs.Wrap(errs.ObjectMappingError, "serialize document", err)
	}
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

func writeDocumentJSON(buf *bytes.Buffer, d *Document) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	buf.WriteByte('{')
	for i, e := range d.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(e.name)
		if err != nil {
			return err
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')
		if err := writeValueJSON(buf, e.value); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeValueJSON(buf *bytes.Buffer, v Value) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		b, _ := v.AsBool()
		buf.WriteString(strconv.FormatBool(b))
	case KindInt:
		i, _ := v.AsInt()
		buf.WriteString(strconv.FormatInt(i, 10))
	case KindFloat:
		f, _ := v.AsFloat()
		buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	case KindString:
		s, _ := v.AsString()
		b, err := json.Marshal(s)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindBytes:
		by, _ := v.AsBytes()
		b, err := json.Marshal(by) // base64, standard for []byte
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindNitriteId:
		id, _ := v.AsId()
		buf.WriteByte('"')
		buf.WriteString(id.String())
		buf.WriteByte('"')
	case KindArray:
		arr, _ := v.AsArray()
		buf.WriteByte('[')
		for i, e := range arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeValueJSON(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindDocument:
		doc, _ := v.AsDocument()
		return writeDocumentJSON(buf, doc)
	default:
		return fmt.Errorf("unknown value kind %d", v.kind)
	}
	return nil
}

// DeserializeDocument parses JSON bytes into an ordered Document, using a
// token-based decode so field order survives the round trip (plain
// encoding/json unmarshals objects into Go maps, which do not preserve
// key order). _id fields are recognized as NitriteId when they hold a
// numeric string in that position, matching how Serialize encodes them.
func DeserializeDocument(data []byte) (*Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	v, err := decodeValueJSON(dec)
	if err != nil {
		return nil, errs.Wrap(errs.ObjectMappingError, "deserialize document", err)
	}
	doc, ok := v.AsDocument()
	if !ok {
		return nil, errs.New(errs.ObjectMappingError, "top-level JSON value is not an object")
	}
	return doc, nil
}

func decodeValueJSON(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	return decodeTokenJSON(dec, tok)
}

func decodeTokenJSON(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			doc := NewDocument()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, _ := keyTok.(string)
				val, err := decodeValueJSON(dec)
				if err != nil {
					return Value{}, err
				}
				if key == IdField {
					if s, ok := val.AsString(); ok {
						if n, err := strconv.ParseUint(s, 10, 64); err == nil {
							val = IdValue(NitriteId(n))
						}
					}
				}
				doc.Put(key, val)
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return Value{}, err
			}
			return DocValue(doc), nil
		case '[':
			var vals []Value
			for dec.More() {
				val, err := decodeValueJSON(dec)
				if err != nil {
					return Value{}, err
				}
				vals = append(vals, val)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return Value{}, err
			}
			return Array(vals...), nil
		}
		return Value{}, fmt.Errorf("unexpected JSON delimiter %v", t)
	case nil:
		return Null, nil
	case bool:
		return Bool(t), nil
	case float64:
		// dec is never put into UseNumber mode, so every JSON number
		// token decodes as float64 here; numeric normalization at
		// comparison/index-key time (value.go) makes this equivalent to
		// an int for any integral value.
		return Float(t), nil
	case string:
		return String(t), nil
	default:
		return Value{}, fmt.Errorf("unsupported JSON token type %T", tok)
	}
}
