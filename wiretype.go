package wiregob

// This file hand-codes decode/encode for the WireType descriptor, the
// struct that self-describes every composite schema on the wire. It is
// encoded with the very struct-delta rules it defines, so rather than
// bounce through the generic Value machinery in value.go to describe
// itself, it is decoded and encoded directly: the bootstrap set of
// identifiers is fixed and small enough to hand-write, and a generic
// self-hosting decoder would add a layer of indirection for no behavioral
// difference.

// CommonType is the (name, id) prefix every composite descriptor carries.
type CommonType struct {
	Name string
	ID   int64
}

// ArrayType describes a fixed-length array. Recognized on the wire so a
// definition referencing one doesn't break the stream, but not otherwise
// interpreted.
type ArrayType struct {
	CommonType
	Elem int64
	Len  int
}

// SliceType describes a slice of a single element type.
type SliceType struct {
	CommonType
	Elem int64
}

// FieldType is one entry of a StructType's field list.
type FieldType struct {
	Name string
	ID   int64
}

// StructType describes a struct's ordered field list.
type StructType struct {
	CommonType
	Field []FieldType
}

// MapType describes a map's key and element types.
type MapType struct {
	CommonType
	Key  int64
	Elem int64
}

// opaqueType covers GobEncoder, BinaryMarshaler, and TextMarshaler
// descriptors: the wire carries only their CommonType prefix since this
// codec recognizes, but does not interpret, their payloads.
type opaqueType struct {
	CommonType
}

// WireType is the top-level self-describing schema descriptor: exactly one
// of these fields is populated per definition.
type WireType struct {
	ArrayT           *ArrayType
	SliceT           *SliceType
	StructT          *StructType
	MapT             *MapType
	GobEncoderT      *opaqueType
	BinaryMarshalerT *opaqueType
	TextMarshalerT   *opaqueType
}

// decodeDeltaFields drives the struct field-delta loop shared by every
// bootstrap sub-decoder: field index starts at -1, a delta of 0 ends the
// struct, any other delta advances the index by that amount before set is
// invoked.
func decodeDeltaFields(r *reader, set func(idx int) error) error {
	idx := -1
	for {
		delta, err := r.readUvarint()
		if err != nil {
			return err
		}
		if delta == 0 {
			return nil
		}
		idx += int(delta)
		if err := set(idx); err != nil {
			return err
		}
	}
}

func decodeCommonType(r *reader) (CommonType, error) {
	var c CommonType
	err := decodeDeltaFields(r, func(idx int) error {
		switch idx {
		case 0:
			s, err := r.readString()
			c.Name = s
			return err
		case 1:
			v, err := r.readZigzag()
			c.ID = v
			return err
		default:
			return ErrInvalidData
		}
	})
	return c, err
}

func decodeFieldType(r *reader) (FieldType, error) {
	var f FieldType
	err := decodeDeltaFields(r, func(idx int) error {
		switch idx {
		case 0:
			s, err := r.readString()
			f.Name = s
			return err
		case 1:
			v, err := r.readZigzag()
			f.ID = v
			return err
		default:
			return ErrInvalidData
		}
	})
	return f, err
}

func decodeArrayType(r *reader) (ArrayType, error) {
	var a ArrayType
	err := decodeDeltaFields(r, func(idx int) error {
		switch idx {
		case 0:
			c, err := decodeCommonType(r)
			a.CommonType = c
			return err
		case 1:
			v, err := r.readZigzag()
			a.Elem = v
			return err
		case 2:
			v, err := r.readUvarint()
			a.Len = int(v)
			return err
		default:
			return ErrInvalidData
		}
	})
	return a, err
}

func decodeSliceType(r *reader) (SliceType, error) {
	var s SliceType
	err := decodeDeltaFields(r, func(idx int) error {
		switch idx {
		case 0:
			c, err := decodeCommonType(r)
			s.CommonType = c
			return err
		case 1:
			v, err := r.readZigzag()
			s.Elem = v
			return err
		default:
			return ErrInvalidData
		}
	})
	return s, err
}

func decodeStructType(r *reader) (StructType, error) {
	var s StructType
	err := decodeDeltaFields(r, func(idx int) error {
		switch idx {
		case 0:
			c, err := decodeCommonType(r)
			s.CommonType = c
			return err
		case 1:
			n, err := r.readUvarint()
			if err != nil {
				return err
			}
			fields := make([]FieldType, n)
			for i := range fields {
				f, err := decodeFieldType(r)
				if err != nil {
					return err
				}
				fields[i] = f
			}
			s.Field = fields
			return nil
		default:
			return ErrInvalidData
		}
	})
	return s, err
}

func decodeMapType(r *reader) (MapType, error) {
	var m MapType
	err := decodeDeltaFields(r, func(idx int) error {
		switch idx {
		case 0:
			c, err := decodeCommonType(r)
			m.CommonType = c
			return err
		case 1:
			v, err := r.readZigzag()
			m.Key = v
			return err
		case 2:
			v, err := r.readZigzag()
			m.Elem = v
			return err
		default:
			return ErrInvalidData
		}
	})
	return m, err
}

func decodeOpaqueType(r *reader) (opaqueType, error) {
	var o opaqueType
	err := decodeDeltaFields(r, func(idx int) error {
		switch idx {
		case 0:
			c, err := decodeCommonType(r)
			o.CommonType = c
			return err
		default:
			return ErrInvalidData
		}
	})
	return o, err
}

// DecodeWireType reads one schema-definition message body (everything after
// the message's negative id) and returns the descriptor it carries.
func DecodeWireType(r *reader) (*WireType, error) {
	var w WireType
	err := decodeDeltaFields(r, func(idx int) error {
		switch idx {
		case 0:
			v, err := decodeArrayType(r)
			w.ArrayT = &v
			return err
		case 1:
			v, err := decodeSliceType(r)
			w.SliceT = &v
			return err
		case 2:
			v, err := decodeStructType(r)
			w.StructT = &v
			return err
		case 3:
			v, err := decodeMapType(r)
			w.MapT = &v
			return err
		case 4:
			v, err := decodeOpaqueType(r)
			w.GobEncoderT = &v
			return err
		case 5:
			v, err := decodeOpaqueType(r)
			w.BinaryMarshalerT = &v
			return err
		case 6:
			v, err := decodeOpaqueType(r)
			w.TextMarshalerT = &v
			return err
		default:
			return ErrInvalidData
		}
	})
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// --- encode side: symmetric with the decoders above ---

func encodeCommonType(buf *buffer, c CommonType) {
	buf.AppendUvarint(1)
	buf.AppendString(c.Name)
	buf.AppendUvarint(1)
	buf.AppendZigzag(c.ID)
	buf.AppendUvarint(0)
}

func encodeFieldType(buf *buffer, f FieldType) {
	buf.AppendUvarint(1)
	buf.AppendString(f.Name)
	buf.AppendUvarint(1)
	buf.AppendZigzag(f.ID)
	buf.AppendUvarint(0)
}

// encodeArrayType always emits Elem and Len even when zero: field 0
// (CommonType) is always present first, and the reserved fields after it
// follow unconditionally.
func encodeArrayType(buf *buffer, a ArrayType) {
	buf.AppendUvarint(1)
	encodeCommonType(buf, a.CommonType)
	buf.AppendUvarint(1)
	buf.AppendZigzag(a.Elem)
	buf.AppendUvarint(1)
	buf.AppendUvarint(uint64(a.Len))
	buf.AppendUvarint(0)
}

func encodeSliceType(buf *buffer, s SliceType) {
	buf.AppendUvarint(1)
	encodeCommonType(buf, s.CommonType)
	buf.AppendUvarint(1)
	buf.AppendZigzag(s.Elem)
	buf.AppendUvarint(0)
}

func encodeStructType(buf *buffer, s StructType) {
	buf.AppendUvarint(1)
	encodeCommonType(buf, s.CommonType)
	buf.AppendUvarint(1)
	buf.AppendUvarint(uint64(len(s.Field)))
	for _, f := range s.Field {
		encodeFieldType(buf, f)
	}
	buf.AppendUvarint(0)
}

func encodeMapType(buf *buffer, m MapType) {
	buf.AppendUvarint(1)
	encodeCommonType(buf, m.CommonType)
	buf.AppendUvarint(1)
	buf.AppendZigzag(m.Key)
	buf.AppendUvarint(1)
	buf.AppendZigzag(m.Elem)
	buf.AppendUvarint(0)
}

func encodeOpaqueType(buf *buffer, o opaqueType) {
	buf.AppendUvarint(1)
	encodeCommonType(buf, o.CommonType)
	buf.AppendUvarint(0)
}

// EncodeWireType appends w's wire encoding (the body of a definition
// message, id excluded) to buf.
func EncodeWireType(buf *buffer, w *WireType) {
	switch {
	case w.ArrayT != nil:
		buf.AppendUvarint(1)
		encodeArrayType(buf, *w.ArrayT)
	case w.SliceT != nil:
		buf.AppendUvarint(2)
		encodeSliceType(buf, *w.SliceT)
	case w.StructT != nil:
		buf.AppendUvarint(3)
		encodeStructType(buf, *w.StructT)
	case w.MapT != nil:
		buf.AppendUvarint(4)
		encodeMapType(buf, *w.MapT)
	case w.GobEncoderT != nil:
		buf.AppendUvarint(5)
		encodeOpaqueType(buf, *w.GobEncoderT)
	case w.BinaryMarshalerT != nil:
		buf.AppendUvarint(6)
		encodeOpaqueType(buf, *w.BinaryMarshalerT)
	case w.TextMarshalerT != nil:
		buf.AppendUvarint(7)
		encodeOpaqueType(buf, *w.TextMarshalerT)
	}
	buf.AppendUvarint(0)
}

// schemaFromWireType converts a parsed descriptor into the Schema shape
// the Registry and value layer work with.
func schemaFromWireType(w *WireType) (*Schema, error) {
	switch {
	case w.ArrayT != nil:
		a := w.ArrayT
		return &Schema{ID: a.ID, Kind: KindArray, Name: a.Name, Elem: a.Elem, Len: a.Len}, nil
	case w.SliceT != nil:
		s := w.SliceT
		return &Schema{ID: s.ID, Kind: KindSlice, Name: s.Name, Elem: s.Elem}, nil
	case w.StructT != nil:
		s := w.StructT
		fields := make([]SchemaField, len(s.Field))
		for i, f := range s.Field {
			fields[i] = SchemaField{Name: f.Name, ID: f.ID}
		}
		return &Schema{ID: s.ID, Kind: KindStruct, Name: s.Name, Fields: fields}, nil
	case w.MapT != nil:
		m := w.MapT
		return &Schema{ID: m.ID, Kind: KindMap, Name: m.Name, Key: m.Key, Elem: m.Elem}, nil
	case w.GobEncoderT != nil:
		c := w.GobEncoderT
		return &Schema{ID: c.ID, Kind: KindGobEncoder, Name: c.Name}, nil
	case w.BinaryMarshalerT != nil:
		c := w.BinaryMarshalerT
		return &Schema{ID: c.ID, Kind: KindBinaryMarshaler, Name: c.Name}, nil
	case w.TextMarshalerT != nil:
		c := w.TextMarshalerT
		return &Schema{ID: c.ID, Kind: KindTextMarshaler, Name: c.Name}, nil
	default:
		return nil, ErrInvalidData
	}
}

// wireTypeFromSchema is the reverse conversion, used when the write side
// needs to emit a definition message for a composite schema it has
// assembled.
func wireTypeFromSchema(s *Schema) (*WireType, error) {
	switch s.Kind {
	case KindArray:
		return &WireType{ArrayT: &ArrayType{CommonType: CommonType{Name: s.Name, ID: s.ID}, Elem: s.Elem, Len: s.Len}}, nil
	case KindSlice:
		return &WireType{SliceT: &SliceType{CommonType: CommonType{Name: s.Name, ID: s.ID}, Elem: s.Elem}}, nil
	case KindStruct:
		fields := make([]FieldType, len(s.Fields))
		for i, f := range s.Fields {
			fields[i] = FieldType{Name: f.Name, ID: f.ID}
		}
		return &WireType{StructT: &StructType{CommonType: CommonType{Name: s.Name, ID: s.ID}, Field: fields}}, nil
	case KindMap:
		return &WireType{MapT: &MapType{CommonType: CommonType{Name: s.Name, ID: s.ID}, Key: s.Key, Elem: s.Elem}}, nil
	case KindGobEncoder:
		return &WireType{GobEncoderT: &opaqueType{CommonType{Name: s.Name, ID: s.ID}}}, nil
	case KindBinaryMarshaler:
		return &WireType{BinaryMarshalerT: &opaqueType{CommonType{Name: s.Name, ID: s.ID}}}, nil
	case KindTextMarshaler:
		return &WireType{TextMarshalerT: &opaqueType{CommonType{Name: s.Name, ID: s.ID}}}, nil
	default:
		return nil, ErrUnsupported
	}
}
