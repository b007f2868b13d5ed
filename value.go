package wiregob

import (
	"bytes"
	"math"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"
)

// Value is the dynamic tagged-sum value the decoder produces when no
// static Go type is bound to a schema: Nil | Bool | Int | Uint | Float |
// String | Bytes | Array(values) | Map(pairs) | Struct(name, fields).
// Interface values are flattened directly into whichever variant their
// concrete type decodes to - the wire's interface envelope (name, id,
// length) is a transport detail, not part of this sum type.
type Value struct {
	Kind Kind

	Bool  bool
	Int   int64
	Uint  uint64
	Float float64
	Str   string
	Bytes []byte

	Elems []Value // Array variant

	MapPairs []MapPair // Map variant; preserves every decoded pair, in wire order

	StructName string      // Struct variant
	Fields     []FieldValue // Struct variant, in wire order
}

// MapPair is one key/value pair of a Map value.
type MapPair struct {
	Key  Value
	Elem Value
}

// FieldValue is one name/value pair of a Struct value.
type FieldValue struct {
	Name  string
	Value Value
}

// Nil is the dynamic value produced for a nil interface: a zero-length
// interface name on the wire denotes the nil interface.
var Nil = Value{Kind: KindNil}

// IsNil reports whether v is the nil dynamic value.
func (v Value) IsNil() bool { return v.Kind == KindNil }

// field looks up a struct value's field by name.
func (v Value) field(name string) (Value, bool) {
	for _, f := range v.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// CanonicalFields returns this struct value's fields sorted by name, the
// canonical ordering needed for deterministic round-trips.
func (v Value) CanonicalFields() []FieldValue {
	out := append([]FieldValue(nil), v.Fields...)
	slices.SortFunc(out, func(a, b FieldValue) bool { return a.Name < b.Name })
	return out
}

// CanonicalMapPairs returns this map value's pairs deduplicated on key
// (last write wins, matching ordinary Go map-literal semantics) and sorted
// into canonical key order.
func (v Value) CanonicalMapPairs() []MapPair {
	byKey := make(map[string][]int, len(v.MapPairs))
	out := make([]MapPair, 0, len(v.MapPairs))
next:
	for _, p := range v.MapPairs {
		k := canonicalKeyString(p.Key)
		for _, i := range byKey[k] {
			if compareValue(out[i].Key, p.Key) == 0 {
				out[i] = p
				continue next
			}
		}
		byKey[k] = append(byKey[k], len(out))
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b MapPair) bool { return compareValue(a.Key, b.Key) < 0 })
	return out
}

// canonicalKeyString gives a stable, collision-free-enough string for
// deduplication bookkeeping; the actual equality test for dedup purposes is
// compareValue, this is just a fast map key.
func canonicalKeyString(v Value) string {
	var b strings.Builder
	writeCanonicalKey(&b, v)
	return b.String()
}

func writeCanonicalKey(b *strings.Builder, v Value) {
	b.WriteByte(byte(v.Kind))
	switch v.Kind {
	case KindBool:
		if v.Bool {
			b.WriteByte(1)
		} else {
			b.WriteByte(0)
		}
	case KindInt:
		b.WriteString(strconv.FormatInt(v.Int, 10))
	case KindUint:
		b.WriteString(strconv.FormatUint(v.Uint, 10))
	case KindFloat:
		b.WriteString(strconv.FormatUint(math.Float64bits(v.Float), 10))
	case KindString:
		b.WriteString(v.Str)
	case KindByteSlice:
		b.Write(v.Bytes)
	case KindArray:
		for _, e := range v.Elems {
			writeCanonicalKey(b, e)
		}
	case KindStruct:
		b.WriteString(v.StructName)
		for _, f := range v.CanonicalFields() {
			b.WriteString(f.Name)
			writeCanonicalKey(b, f.Value)
		}
	}
}

// Equal reports whether a and b are the same dynamic value under canonical
// ordering; floats compare bit-for-bit so NaN compares by bit pattern.
func Equal(a, b Value) bool {
	return compareValue(a, b) == 0
}

// Compare implements a total order over Value: lexicographic over
// (variant tag, content).
func Compare(a, b Value) int {
	return compareValue(a, b)
}

func compareValue(a, b Value) int {
	if a.Kind != b.Kind {
		if a.Kind < b.Kind {
			return -1
		}
		return 1
	}

	switch a.Kind {
	case KindNil:
		return 0
	case KindBool:
		if a.Bool == b.Bool {
			return 0
		}
		if !a.Bool {
			return -1
		}
		return 1
	case KindInt:
		return compareInt64(a.Int, b.Int)
	case KindUint:
		return compareUint64(a.Uint, b.Uint)
	case KindFloat:
		return compareUint64(math.Float64bits(a.Float), math.Float64bits(b.Float))
	case KindString:
		return strings.Compare(a.Str, b.Str)
	case KindByteSlice:
		return bytes.Compare(a.Bytes, b.Bytes)
	case KindArray:
		n := len(a.Elems)
		if len(b.Elems) < n {
			n = len(b.Elems)
		}
		for i := 0; i < n; i++ {
			if c := compareValue(a.Elems[i], b.Elems[i]); c != 0 {
				return c
			}
		}
		return compareInt64(int64(len(a.Elems)), int64(len(b.Elems)))
	case KindMap:
		ap, bp := a.CanonicalMapPairs(), b.CanonicalMapPairs()
		n := len(ap)
		if len(bp) < n {
			n = len(bp)
		}
		for i := 0; i < n; i++ {
			if c := compareValue(ap[i].Key, bp[i].Key); c != 0 {
				return c
			}
			if c := compareValue(ap[i].Elem, bp[i].Elem); c != 0 {
				return c
			}
		}
		return compareInt64(int64(len(ap)), int64(len(bp)))
	case KindStruct:
		if c := strings.Compare(a.StructName, b.StructName); c != 0 {
			return c
		}
		af, bf := a.CanonicalFields(), b.CanonicalFields()
		n := len(af)
		if len(bf) < n {
			n = len(bf)
		}
		for i := 0; i < n; i++ {
			if c := strings.Compare(af[i].Name, bf[i].Name); c != 0 {
				return c
			}
			if c := compareValue(af[i].Value, bf[i].Value); c != 0 {
				return c
			}
		}
		return compareInt64(int64(len(af)), int64(len(bf)))
	default:
		return 0
	}
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareUint64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// --- decode ---

// decodeValue interprets the next value on r against schema s, recursing
// through composites as needed.
func decodeValue(reg *Registry, s *Schema, r *reader) (Value, error) {
	switch s.Kind {
	case KindBool:
		b, err := r.readBool()
		return Value{Kind: KindBool, Bool: b}, err
	case KindInt:
		i, err := r.readZigzag()
		return Value{Kind: KindInt, Int: i}, err
	case KindUint:
		u, err := r.readUvarint()
		return Value{Kind: KindUint, Uint: u}, err
	case KindFloat:
		f, err := r.readFloat64()
		return Value{Kind: KindFloat, Float: f}, err
	case KindByteSlice:
		b, err := r.readBytes()
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindByteSlice, Bytes: append([]byte(nil), b...)}, nil
	case KindString:
		str, err := r.readString()
		return Value{Kind: KindString, Str: str}, err
	case KindComplex, KindGobEncoder, KindBinaryMarshaler, KindTextMarshaler:
		return Value{}, ErrUnsupported
	case KindInterface:
		return decodeInterfaceValue(reg, r)
	case KindArray:
		return Value{}, ErrUnsupported
	case KindSlice:
		return decodeSliceValue(reg, s, r)
	case KindStruct:
		return decodeStructValue(reg, s, r)
	case KindMap:
		return decodeMapValue(reg, s, r)
	default:
		return Value{}, ErrUnknownType
	}
}

// userDefinedElem reports whether elem is a composite type with no
// primitive backing - slices of such types are rejected rather than
// supported; slices of primitive element types are not affected.
func userDefinedElem(s *Schema) bool {
	switch s.Kind {
	case KindStruct, KindMap, KindSlice, KindArray:
		return true
	default:
		return false
	}
}

func decodeSliceValue(reg *Registry, s *Schema, r *reader) (Value, error) {
	elemSchema, err := reg.MustLookup(s.Elem)
	if err != nil {
		return Value{}, err
	}
	if userDefinedElem(elemSchema) {
		return Value{}, ErrUnsupported
	}

	count, err := r.readUvarint()
	if err != nil {
		return Value{}, err
	}

	elems := make([]Value, count)
	for i := range elems {
		v, err := decodeValue(reg, elemSchema, r)
		if err != nil {
			return Value{}, err
		}
		elems[i] = v
	}
	return Value{Kind: KindArray, Elems: elems}, nil
}

func decodeStructValue(reg *Registry, s *Schema, r *reader) (Value, error) {
	var fields []FieldValue
	err := decodeDeltaFields(r, func(idx int) error {
		if idx < 0 || idx >= len(s.Fields) {
			return ErrInvalidData
		}
		fs := s.Fields[idx]
		fieldSchema, err := reg.MustLookup(fs.ID)
		if err != nil {
			return err
		}
		v, err := decodeValue(reg, fieldSchema, r)
		if err != nil {
			return err
		}
		fields = append(fields, FieldValue{Name: fs.Name, Value: v})
		return nil
	})
	if err != nil {
		return Value{}, err
	}
	return Value{Kind: KindStruct, StructName: s.Name, Fields: fields}, nil
}

func decodeMapValue(reg *Registry, s *Schema, r *reader) (Value, error) {
	keySchema, err := reg.MustLookup(s.Key)
	if err != nil {
		return Value{}, err
	}
	elemSchema, err := reg.MustLookup(s.Elem)
	if err != nil {
		return Value{}, err
	}

	count, err := r.readUvarint()
	if err != nil {
		return Value{}, err
	}

	pairs := make([]MapPair, 0, count)
	for i := uint64(0); i < count; i++ {
		k, err := decodeValue(reg, keySchema, r)
		if err != nil {
			return Value{}, err
		}
		v, err := decodeValue(reg, elemSchema, r)
		if err != nil {
			return Value{}, err
		}
		pairs = append(pairs, MapPair{Key: k, Elem: v})
	}
	return Value{Kind: KindMap, MapPairs: pairs}, nil
}

// decodeInterfaceValue implements the interface-value protocol: name
// (empty = nil), type id (negative = inline definition follows), byte
// length, an optional disambiguating zero byte, then the payload.
func decodeInterfaceValue(reg *Registry, r *reader) (Value, error) {
	name, err := r.readString()
	if err != nil {
		return Value{}, err
	}
	if name == "" {
		return Nil, nil
	}

	id, err := r.readZigzag()
	if err != nil {
		return Value{}, err
	}

	var d int64
	if id < 0 {
		w, err := DecodeWireType(r)
		if err != nil {
			return Value{}, err
		}
		sch, err := schemaFromWireType(w)
		if err != nil {
			return Value{}, err
		}
		sch.ID = -id
		if err := reg.Register(sch); err != nil {
			return Value{}, err
		}
		d = -id
	} else {
		d = id
	}

	length, err := r.readUvarint()
	if err != nil {
		return Value{}, err
	}
	payload, err := r.readRaw(int(length))
	if err != nil {
		return Value{}, err
	}

	pr := newReader(payload)
	first, err := pr.readByte()
	if err == nil && first != 0 {
		pr.unreadByte()
	}

	schema, err := reg.MustLookup(d)
	if err != nil {
		return Value{}, err
	}
	return decodeValue(reg, schema, pr)
}

// --- encode ---

// encodeValue mirrors decodeValue.
func encodeValue(reg *Registry, v Value, s *Schema, buf *buffer) error {
	switch s.Kind {
	case KindBool:
		buf.AppendBool(v.Bool)
		return nil
	case KindInt:
		buf.AppendZigzag(v.Int)
		return nil
	case KindUint:
		buf.AppendUvarint(v.Uint)
		return nil
	case KindFloat:
		buf.AppendFloat64(v.Float)
		return nil
	case KindByteSlice:
		buf.AppendBytes(v.Bytes)
		return nil
	case KindString:
		buf.AppendString(v.Str)
		return nil
	case KindComplex, KindGobEncoder, KindBinaryMarshaler, KindTextMarshaler:
		return ErrUnsupported
	case KindInterface:
		return encodeInterfaceValue(reg, v, buf)
	case KindArray:
		return ErrUnsupported
	case KindSlice:
		return encodeSliceValue(reg, v, s, buf)
	case KindStruct:
		return encodeStructValue(reg, v, s, buf)
	case KindMap:
		return encodeMapValue(reg, v, s, buf)
	default:
		return ErrUnsupported
	}
}

func encodeSliceValue(reg *Registry, v Value, s *Schema, buf *buffer) error {
	elemSchema, err := reg.MustLookup(s.Elem)
	if err != nil {
		return err
	}
	if userDefinedElem(elemSchema) {
		return ErrUnsupported
	}
	buf.AppendUvarint(uint64(len(v.Elems)))
	for _, e := range v.Elems {
		if err := encodeValue(reg, e, elemSchema, buf); err != nil {
			return err
		}
	}
	return nil
}

// isZeroScalar reports whether v is the declared-type zero value, letting
// the struct encoder elide it - a permitted optimization, not a requirement;
// a conforming decoder must tolerate missing fields by leaving them zero.
func isZeroScalar(v Value) bool {
	switch v.Kind {
	case KindBool:
		return !v.Bool
	case KindInt:
		return v.Int == 0
	case KindUint:
		return v.Uint == 0
	case KindFloat:
		return v.Float == 0
	case KindString:
		return v.Str == ""
	case KindByteSlice:
		return len(v.Bytes) == 0
	default:
		return false
	}
}

func encodeStructValue(reg *Registry, v Value, s *Schema, buf *buffer) error {
	last := -1
	for i, fs := range s.Fields {
		fv, ok := v.field(fs.Name)
		if !ok || isZeroScalar(fv) {
			continue
		}
		fieldSchema, err := reg.MustLookup(fs.ID)
		if err != nil {
			return err
		}
		buf.AppendUvarint(uint64(i - last))
		if err := encodeValue(reg, fv, fieldSchema, buf); err != nil {
			return err
		}
		last = i
	}
	buf.AppendUvarint(0)
	return nil
}

func encodeMapValue(reg *Registry, v Value, s *Schema, buf *buffer) error {
	keySchema, err := reg.MustLookup(s.Key)
	if err != nil {
		return err
	}
	elemSchema, err := reg.MustLookup(s.Elem)
	if err != nil {
		return err
	}

	pairs := v.CanonicalMapPairs()
	buf.AppendUvarint(uint64(len(pairs)))
	for _, p := range pairs {
		if err := encodeValue(reg, p.Key, keySchema, buf); err != nil {
			return err
		}
		if err := encodeValue(reg, p.Elem, elemSchema, buf); err != nil {
			return err
		}
	}
	return nil
}

// interfaceSchemaFor finds the registered schema that matches v's concrete
// dynamic kind/name, for writing the interface protocol's name/id pair.
func interfaceSchemaFor(reg *Registry, v Value) (*Schema, error) {
	switch v.Kind {
	case KindBool, KindInt, KindUint, KindFloat, KindByteSlice, KindString:
		return reg.MustLookup(int64(v.Kind))
	case KindStruct:
		if s, ok := reg.FindByKindName(KindStruct, v.StructName); ok {
			return s, nil
		}
		return nil, ErrUnknownType
	default:
		return nil, ErrUnsupported
	}
}

// encodeInterfaceValue writes the interface-value protocol: name, id,
// length-prefixed payload, with a leading zero byte inserted whenever the
// payload's natural first byte would itself be zero (disambiguating it
// from the marker byte decodeInterfaceValue expects).
func encodeInterfaceValue(reg *Registry, v Value, buf *buffer) error {
	if v.IsNil() {
		buf.AppendString("")
		return nil
	}

	schema, err := interfaceSchemaFor(reg, v)
	if err != nil {
		return err
	}

	buf.AppendString(schema.Name)
	buf.AppendZigzag(schema.ID)

	payload := getBuffer()
	defer putBuffer(payload)
	if err := encodeValue(reg, v, schema, payload); err != nil {
		return err
	}

	data := payload.Bytes()
	if len(data) > 0 && data[0] == 0 {
		buf.AppendUvarint(uint64(len(data) + 1))
		buf.AppendUvarint(0)
		buf.AppendRaw(data)
	} else {
		buf.AppendUvarint(uint64(len(data)))
		buf.AppendRaw(data)
	}
	return nil
}
