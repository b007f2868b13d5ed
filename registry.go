package wiregob

// Kind tags a Schema with which wire-type variant it describes. Values 1-8
// coincide with the wire's predefined type identifiers since those ids
// double as both identifier and kind for primitives. Composite kinds (9+)
// are an internal dispatch tag only - the wire never transmits them
// directly, only the registered identifier that a Schema of that kind
// happens to occupy.
type Kind uint8

const (
	KindNil Kind = 0

	KindBool Kind = iota
	KindInt
	KindUint
	KindFloat
	KindByteSlice
	KindString
	KindComplex
	KindInterface

	KindArray
	KindSlice
	KindStruct
	KindMap
	KindGobEncoder
	KindBinaryMarshaler
	KindTextMarshaler
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindByteSlice:
		return "bytes"
	case KindString:
		return "string"
	case KindComplex:
		return "complex"
	case KindInterface:
		return "interface"
	case KindArray:
		return "array"
	case KindSlice:
		return "slice"
	case KindStruct:
		return "struct"
	case KindMap:
		return "map"
	case KindGobEncoder:
		return "gobencoder"
	case KindBinaryMarshaler:
		return "binarymarshaler"
	case KindTextMarshaler:
		return "textmarshaler"
	default:
		return "unknown"
	}
}

// Predeclared primitive identifiers.
const (
	idBool      int64 = 1
	idInt       int64 = 2
	idUint      int64 = 3
	idFloat     int64 = 4
	idByteSlice int64 = 5
	idString    int64 = 6
	idComplex   int64 = 7
	idInterface int64 = 8
)

// Reserved identifiers the gob wire format uses to bootstrap the WireType
// descriptor itself. wiretype.go hand-decodes these sub-structures directly
// rather than routing them through the Registry, so these constants exist
// for documentation and wire compatibility, not as Registry entries.
const (
	reservedWireType   int64 = 16
	reservedArrayType  int64 = 17
	reservedCommonType int64 = 18
	reservedSliceType  int64 = 19
	reservedStructType int64 = 20
	reservedFieldType  int64 = 21
	reservedMapType    int64 = 23
)

// firstUserID is the first identifier available for user-defined composite
// types; 1-23 are reserved for primitives and the bootstrap WireType
// sub-structures.
const firstUserID int64 = 65

// Schema describes one wire-registered type: a primitive or a composite
// built from other registered types.
type Schema struct {
	ID   int64
	Kind Kind
	Name string // composite type name; primitives use their canonical gob name

	Elem int64 // Array/Slice/Map: element type id
	Key  int64 // Map: key type id
	Len  int   // Array: fixed length

	Fields []SchemaField // Struct: declared fields in order
}

// SchemaField is one entry in a StructType's field list; field identifiers
// are implicit 0..N-1 by position, not transmitted explicitly.
type SchemaField struct {
	Name string
	ID   int64
}

// Equal reports whether two schemas describe the same wire type, used by
// Registry.Register to detect a harmless re-announcement versus an actual
// redefinition.
func (s *Schema) Equal(o *Schema) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.Kind != o.Kind || s.Name != o.Name || s.Elem != o.Elem || s.Key != o.Key || s.Len != o.Len {
		return false
	}
	if len(s.Fields) != len(o.Fields) {
		return false
	}
	for i := range s.Fields {
		if s.Fields[i] != o.Fields[i] {
			return false
		}
	}
	return true
}

// Registry maps stream-local numeric identifiers to schema descriptors. It
// is seeded with the eight predeclared primitive identifiers and absorbs
// composite definitions parsed from, or assigned for, the stream it backs.
// A Registry is not safe for concurrent use - each stream's encoder or
// decoder owns exactly one.
type Registry struct {
	entries map[int64]*Schema
	nextID  int64
	limit   int // 0 = unbounded
}

// NewRegistry builds a registry seeded with the predeclared primitives and
// no growth cap.
func NewRegistry() *Registry {
	return NewRegistryWithLimit(0)
}

// NewRegistryWithLimit is like NewRegistry but caps the number of
// user-defined types the registry will hold; exceeding it fails with
// ErrTooManyTypes.
func NewRegistryWithLimit(limit int) *Registry {
	r := &Registry{
		entries: make(map[int64]*Schema, 8),
		nextID:  firstUserID,
		limit:   limit,
	}
	for id, name := range map[int64]string{
		idBool:      "bool",
		idInt:       "int",
		idUint:      "uint",
		idFloat:     "float64",
		idByteSlice: "[]uint8",
		idString:    "string",
		idComplex:   "complex128",
		idInterface: "interface {}",
	} {
		r.entries[id] = &Schema{ID: id, Kind: Kind(id), Name: name}
	}
	return r
}

// Register adds s under s.ID. Re-registering an id with an identical
// schema is a no-op (the wire may legitimately re-announce a type); with a
// different schema it fails with ErrRedefinition.
func (r *Registry) Register(s *Schema) error {
	if existing, ok := r.entries[s.ID]; ok {
		if existing.Equal(s) {
			return nil
		}
		return ErrRedefinition
	}

	if r.limit > 0 && len(r.entries) >= r.limit+8 {
		return ErrTooManyTypes
	}

	r.entries[s.ID] = s
	if s.ID >= r.nextID {
		r.nextID = s.ID + 1
	}
	return nil
}

// Lookup returns the schema registered for id, if any.
func (r *Registry) Lookup(id int64) (*Schema, bool) {
	s, ok := r.entries[id]
	return s, ok
}

// MustLookup is Lookup but returns ErrUnknownType instead of a bool,
// matching the decode path's error-returning convention.
func (r *Registry) MustLookup(id int64) (*Schema, error) {
	s, ok := r.entries[id]
	if !ok {
		return nil, ErrUnknownType
	}
	return s, nil
}

// AllocateID reserves and returns the next available user-defined
// identifier: a monotonic counter starting at 65.
func (r *Registry) AllocateID() int64 {
	id := r.nextID
	r.nextID++
	return id
}

// Has reports whether id already has a registered schema. A registered
// schema is not necessarily announced on a stream; the Encoder tracks
// announcements separately.
func (r *Registry) Has(id int64) bool {
	_, ok := r.entries[id]
	return ok
}

// FindByKindName scans for a registered schema of the given kind and name,
// used when encoding an interface value to recover the (name, id) pair its
// concrete dynamic value was decoded from. The registry is small (one
// entry per distinct type ever seen on the stream) so a linear scan is
// cheap relative to a round-trip over the wire.
func (r *Registry) FindByKindName(kind Kind, name string) (*Schema, bool) {
	for _, s := range r.entries {
		if s.Kind == kind && s.Name == name {
			return s, true
		}
	}
	return nil, false
}
