package wiregob

import "io"

// Limits bounds resource growth for a stream. The zero value means
// unbounded - an opt-in cap rather than a mandatory one.
type Limits struct {
	// MaxTypes caps the number of user-defined schemas a Registry will
	// accept; 0 means unbounded. Exceeding it fails with ErrTooManyTypes.
	MaxTypes int
}

// DefaultLimits imposes no caps.
var DefaultLimits = Limits{}

// Encoder writes self-describing messages to an underlying byte sink: it
// owns a Registry (so it knows which schemas have been assigned ids), a
// FrameWriter for output, and a set of the schema ids it has actually
// announced on the wire - those are two different questions, since a schema
// can be known locally before the stream it's destined for has been told
// about it.
type Encoder struct {
	fw   *FrameWriter
	reg  *Registry
	sent map[int64]bool
}

// NewEncoder builds an Encoder over w with the default limits.
func NewEncoder(w io.Writer) *Encoder {
	return NewEncoderWithLimits(w, DefaultLimits)
}

// NewEncoderWithLimits is like NewEncoder but applies a registry growth
// cap.
func NewEncoderWithLimits(w io.Writer, limits Limits) *Encoder {
	return &Encoder{
		fw:   NewFrameWriter(w),
		reg:  NewRegistryWithLimit(limits.MaxTypes),
		sent: make(map[int64]bool),
	}
}

// Registry exposes the encoder's type registry so a binding can register
// the schema tree for a Go type before asking this encoder to emit values
// against it.
func (e *Encoder) Registry() *Registry { return e.reg }

// ensureDefined emits a schema-definition message for s, and recursively
// for everything s depends on, if this stream hasn't already announced
// them. Primitives need no announcement - every registry is seeded with
// them.
func (e *Encoder) ensureDefined(s *Schema) error {
	if s.ID < firstUserID || e.sent[s.ID] {
		return nil
	}
	e.sent[s.ID] = true // before recursing: a cyclic reference can't loop forever even though cycles are out of scope

	var deps []int64
	switch s.Kind {
	case KindSlice, KindArray:
		deps = []int64{s.Elem}
	case KindMap:
		deps = []int64{s.Key, s.Elem}
	case KindStruct:
		for _, f := range s.Fields {
			deps = append(deps, f.ID)
		}
	}
	for _, id := range deps {
		depSchema, ok := e.reg.Lookup(id)
		if !ok {
			continue
		}
		if err := e.ensureDefined(depSchema); err != nil {
			return err
		}
	}

	w, err := wireTypeFromSchema(s)
	if err != nil {
		return err
	}
	return e.fw.WriteMessage(-s.ID, func(buf *buffer) error {
		EncodeWireType(buf, w)
		return nil
	})
}

// EncodeValue emits v as a value message against schema s, first emitting
// any not-yet-sent type definitions s depends on.
func (e *Encoder) EncodeValue(s *Schema, v Value) error {
	if err := e.ensureDefined(s); err != nil {
		return err
	}
	return e.fw.WriteMessage(s.ID, func(buf *buffer) error {
		return encodeValue(e.reg, v, s, buf)
	})
}

// Decoder reads self-describing messages from an underlying byte source,
// absorbing schema definitions into its Registry as it encounters them.
type Decoder struct {
	fr  *FrameReader
	reg *Registry
}

// NewDecoder builds a Decoder over r with the default limits.
func NewDecoder(r io.Reader) *Decoder {
	return NewDecoderWithLimits(r, DefaultLimits)
}

// NewDecoderWithLimits is like NewDecoder but applies a registry growth
// cap.
func NewDecoderWithLimits(r io.Reader, limits Limits) *Decoder {
	return &Decoder{
		fr:  NewFrameReader(r),
		reg: NewRegistryWithLimit(limits.MaxTypes),
	}
}

// Registry exposes the decoder's type registry, e.g. so a binding can
// resolve a schema by id once it knows which one a record was encoded
// against.
func (d *Decoder) Registry() *Registry { return d.reg }

// Decode reads the next value message, silently absorbing any schema
// definition messages in front of it. It returns io.EOF once the stream
// ends cleanly at a message boundary.
func (d *Decoder) Decode() (id int64, v Value, err error) {
	for {
		msgID, body, err := d.fr.ReadMessage()
		if err != nil {
			return 0, Value{}, err
		}

		if msgID < 0 {
			w, err := DecodeWireType(body)
			if err != nil {
				return 0, Value{}, err
			}
			schema, err := schemaFromWireType(w)
			if err != nil {
				return 0, Value{}, err
			}
			schema.ID = -msgID
			if err := d.reg.Register(schema); err != nil {
				return 0, Value{}, err
			}
			continue
		}

		schema, err := d.reg.MustLookup(msgID)
		if err != nil {
			return 0, Value{}, err
		}
		val, err := decodeValue(d.reg, schema, body)
		if err != nil {
			return 0, Value{}, err
		}
		body.drain()
		return msgID, val, nil
	}
}
