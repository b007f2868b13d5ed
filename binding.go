package wiregob

import (
	"fmt"
	"reflect"
	"sync"
)

// BindMode selects how a record binding represents its record on the wire.
type BindMode int

const (
	// ModeStructDelta encodes the record as a gob struct, walking fields
	// in declaration order and resolving each field's type against the
	// registry. This is the default.
	ModeStructDelta BindMode = iota
	// ModeInterfaceMap encodes the record as a map[string]interface{}
	// keyed by each field's wire name.
	ModeInterfaceMap
)

// BindOption configures a Bind call.
type BindOption func(*bindConfig)

type bindConfig struct {
	mode        BindMode
	id          int64
	fieldNames  map[string]string // go field name -> wire name override
}

// WithMode selects struct-delta (default) or interface-keyed-map encoding.
func WithMode(m BindMode) BindOption {
	return func(c *bindConfig) { c.mode = m }
}

// WithStreamID reserves a specific registry identifier for this record's
// top-level schema instead of letting the registry auto-assign one. Only
// struct-delta mode uses it; interface-map bindings encode against the
// registry's shared map schema and ignore it.
func WithStreamID(id int64) BindOption {
	return func(c *bindConfig) { c.id = id }
}

// WithFieldName overrides the wire name used for a record field, in either
// mode (struct-delta mode uses it as the field's name in the struct schema;
// interface-map mode uses it as the map key).
func WithFieldName(goFieldName, wireName string) BindOption {
	return func(c *bindConfig) {
		if c.fieldNames == nil {
			c.fieldNames = map[string]string{}
		}
		c.fieldNames[goFieldName] = wireName
	}
}

// Binding is a declarative mapping from a Go record type T onto the wire.
// Construct with Bind; reuse across many Encode/Decode calls against
// encoders and decoders sharing the same stream.
type Binding[T any] struct {
	mode          BindMode
	idOverride    int64
	typ           reflect.Type
	fieldWireName []string // parallel to typ's field index

	mu         sync.Mutex
	byRegistry map[*Registry]*Schema
}

// Bind constructs a Binding for T. T must be a struct type.
func Bind[T any](opts ...BindOption) (*Binding[T], error) {
	cfg := &bindConfig{}
	for _, o := range opts {
		o(cfg)
	}

	var zero T
	typ := reflect.TypeOf(zero)
	if typ == nil {
		return nil, fmt.Errorf("wiregob: Bind requires a concrete struct type")
	}
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("wiregob: Bind requires a struct type, got %s", typ.Kind())
	}

	wireNames := make([]string, typ.NumField())
	seen := make(map[string]string, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		if !f.IsExported() {
			continue
		}

		wireName := f.Name
		if tag, ok := f.Tag.Lookup("wiregob"); ok && tag != "" && tag != "-" {
			wireName = tag
		}
		if override, ok := cfg.fieldNames[f.Name]; ok {
			wireName = override
		}

		if prevField, ok := seen[wireName]; ok && prevField != f.Name {
			return nil, fmt.Errorf("%w: %q claimed by both %s and %s", ErrDuplicateFieldName, wireName, prevField, f.Name)
		}
		seen[wireName] = f.Name
		wireNames[i] = wireName
	}

	return &Binding[T]{
		mode:          cfg.mode,
		idOverride:    cfg.id,
		typ:           typ,
		fieldWireName: wireNames,
		byRegistry:    make(map[*Registry]*Schema),
	}, nil
}

// schemaFor lazily resolves (and caches, per registry) the schema this
// binding encodes against. Struct-delta mode gets its own composite schema;
// interface-map mode shares one generic map[string]interface{} schema
// across every binding using that mode against the same registry.
func (b *Binding[T]) schemaFor(reg *Registry) (*Schema, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if s, ok := b.byRegistry[reg]; ok {
		return s, nil
	}

	var s *Schema
	var err error
	if b.mode == ModeInterfaceMap {
		s, err = sharedInterfaceMapSchema(reg)
	} else {
		s, err = registerStructSchema(reg, b.typ, b.fieldWireName, b.idOverride)
	}
	if err != nil {
		return nil, err
	}
	b.byRegistry[reg] = s
	return s, nil
}

// Encode writes v against enc, registering and announcing this binding's
// schema the first time it's used on enc's stream.
func (b *Binding[T]) Encode(v *T, enc *Encoder) error {
	schema, err := b.schemaFor(enc.Registry())
	if err != nil {
		return err
	}

	rv := reflect.ValueOf(v).Elem()
	var val Value
	if b.mode == ModeInterfaceMap {
		val, err = b.structToMapValue(rv)
	} else {
		val, err = reflectValueToValue(rv)
		if err == nil {
			// top-level fields carry this binding's wire names, overrides
			// included, so they match the registered schema's field names
			j := 0
			for i := 0; i < b.typ.NumField(); i++ {
				if b.typ.Field(i).IsExported() {
					val.Fields[j].Name = b.fieldWireName[i]
					j++
				}
			}
		}
	}
	if err != nil {
		return err
	}
	return enc.EncodeValue(schema, val)
}

// Decode reads the next value off dec and assigns it into a new T.
func (b *Binding[T]) Decode(dec *Decoder) (T, error) {
	var out T
	_, v, err := dec.Decode()
	if err != nil {
		return out, err
	}

	rv := reflect.ValueOf(&out).Elem()
	if b.mode == ModeInterfaceMap {
		if v.Kind != KindMap {
			return out, ErrTypeMismatch
		}
		err = b.assignFromMap(rv, v.MapPairs)
	} else {
		if v.Kind != KindStruct {
			return out, ErrTypeMismatch
		}
		err = assignStructFields(rv, v.Fields, b.fieldWireName)
	}
	if err != nil {
		return out, err
	}
	return out, nil
}

// structToMapValue builds the interface-keyed-map encoding of rv (a T).
func (b *Binding[T]) structToMapValue(rv reflect.Value) (Value, error) {
	t := rv.Type()
	pairs := make([]MapPair, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		fv, err := reflectValueToValue(rv.Field(i))
		if err != nil {
			return Value{}, err
		}
		pairs = append(pairs, MapPair{
			Key:  Value{Kind: KindString, Str: b.fieldWireName[i]},
			Elem: fv,
		})
	}
	return Value{Kind: KindMap, MapPairs: pairs}, nil
}

// assignFromMap assigns rv's (a T's) fields from an interface-keyed-map
// decoded value. Unknown keys are ignored; missing known keys retain their
// zero value.
func (b *Binding[T]) assignFromMap(rv reflect.Value, pairs []MapPair) error {
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		fv, ok := lookupMapPair(pairs, b.fieldWireName[i])
		if !ok {
			continue
		}
		if err := assignValue(rv.Field(i), fv); err != nil {
			return err
		}
	}
	return nil
}

func lookupMapPair(pairs []MapPair, name string) (Value, bool) {
	for _, p := range pairs {
		if p.Key.Kind == KindString && p.Key.Str == name {
			return p.Elem, true
		}
	}
	return Value{}, false
}

func lookupFieldValue(fields []FieldValue, name string) (Value, bool) {
	for _, f := range fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// assignStructFields assigns rv's fields, named per wireNames (parallel to
// rv's field index), from a struct-delta decoded value's fields.
func assignStructFields(rv reflect.Value, fields []FieldValue, wireNames []string) error {
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		fv, ok := lookupFieldValue(fields, wireNames[i])
		if !ok {
			continue
		}
		if err := assignValue(rv.Field(i), fv); err != nil {
			return err
		}
	}
	return nil
}

// assignStructFieldsByTag is assignStructFields for nested struct types a
// top-level Binding doesn't have pre-resolved wire names for; it falls
// back to each field's own tag or name.
func assignStructFieldsByTag(rv reflect.Value, fields []FieldValue) error {
	t := rv.Type()
	names := make([]string, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		names[i] = f.Name
		if tag, ok := f.Tag.Lookup("wiregob"); ok && tag != "" && tag != "-" {
			names[i] = tag
		}
	}
	return assignStructFields(rv, fields, names)
}

// assignValue assigns the dynamic value v into the addressable reflect
// field, attempting widening casts (uint→int, int→uint, int/uint→float)
// and rejecting everything else, notably int→string, with
// ErrTypeMismatch.
func assignValue(field reflect.Value, v Value) error {
	switch field.Kind() {
	case reflect.Bool:
		if v.Kind != KindBool {
			return ErrTypeMismatch
		}
		field.SetBool(v.Bool)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		switch v.Kind {
		case KindInt:
			field.SetInt(v.Int)
		case KindUint:
			field.SetInt(int64(v.Uint))
		default:
			return ErrTypeMismatch
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		switch v.Kind {
		case KindUint:
			field.SetUint(v.Uint)
		case KindInt:
			if v.Int < 0 {
				return ErrTypeMismatch
			}
			field.SetUint(uint64(v.Int))
		default:
			return ErrTypeMismatch
		}

	case reflect.Float32, reflect.Float64:
		switch v.Kind {
		case KindFloat:
			field.SetFloat(v.Float)
		case KindInt:
			field.SetFloat(float64(v.Int))
		case KindUint:
			field.SetFloat(float64(v.Uint))
		default:
			return ErrTypeMismatch
		}

	case reflect.String:
		if v.Kind != KindString {
			return ErrTypeMismatch
		}
		field.SetString(v.Str)

	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.Uint8 {
			if v.Kind != KindByteSlice {
				return ErrTypeMismatch
			}
			field.SetBytes(append([]byte(nil), v.Bytes...))
			return nil
		}
		if v.Kind != KindArray {
			return ErrTypeMismatch
		}
		out := reflect.MakeSlice(field.Type(), len(v.Elems), len(v.Elems))
		for i, ev := range v.Elems {
			if err := assignValue(out.Index(i), ev); err != nil {
				return err
			}
		}
		field.Set(out)

	case reflect.Map:
		if v.Kind != KindMap {
			return ErrTypeMismatch
		}
		out := reflect.MakeMapWithSize(field.Type(), len(v.MapPairs))
		for _, p := range v.MapPairs {
			kv := reflect.New(field.Type().Key()).Elem()
			if err := assignValue(kv, p.Key); err != nil {
				return err
			}
			vv := reflect.New(field.Type().Elem()).Elem()
			if err := assignValue(vv, p.Elem); err != nil {
				return err
			}
			out.SetMapIndex(kv, vv)
		}
		field.Set(out)

	case reflect.Struct:
		if v.Kind != KindStruct {
			return ErrTypeMismatch
		}
		return assignStructFieldsByTag(field, v.Fields)

	case reflect.Interface:
		iv, err := valueToInterface(v)
		if err != nil {
			return err
		}
		if iv == nil {
			field.Set(reflect.Zero(field.Type()))
		} else {
			field.Set(reflect.ValueOf(iv))
		}

	default:
		return ErrUnsupported
	}
	return nil
}

// valueToInterface converts a dynamic value into a plain Go value suitable
// for an interface{}-typed field: native scalars, []byte, []any, and
// map[string]any for nested structs/maps.
func valueToInterface(v Value) (any, error) {
	switch v.Kind {
	case KindNil:
		return nil, nil
	case KindBool:
		return v.Bool, nil
	case KindInt:
		return v.Int, nil
	case KindUint:
		return v.Uint, nil
	case KindFloat:
		return v.Float, nil
	case KindString:
		return v.Str, nil
	case KindByteSlice:
		return append([]byte(nil), v.Bytes...), nil
	case KindArray:
		out := make([]any, len(v.Elems))
		for i, e := range v.Elems {
			iv, err := valueToInterface(e)
			if err != nil {
				return nil, err
			}
			out[i] = iv
		}
		return out, nil
	case KindMap:
		out := make(map[string]any, len(v.MapPairs))
		for _, p := range v.MapPairs {
			if p.Key.Kind != KindString {
				return nil, ErrTypeMismatch
			}
			iv, err := valueToInterface(p.Elem)
			if err != nil {
				return nil, err
			}
			out[p.Key.Str] = iv
		}
		return out, nil
	case KindStruct:
		out := make(map[string]any, len(v.Fields))
		for _, f := range v.Fields {
			iv, err := valueToInterface(f.Value)
			if err != nil {
				return nil, err
			}
			out[f.Name] = iv
		}
		return out, nil
	default:
		return nil, ErrUnsupported
	}
}

// reflectValueToValue converts a live Go value into its dynamic Value
// representation, used on the encode side for both the top-level record
// and any nested struct/slice/map/interface fields it contains.
func reflectValueToValue(rv reflect.Value) (Value, error) {
	if rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return Nil, nil
		}
		return reflectValueToValue(rv.Elem())
	}

	switch rv.Kind() {
	case reflect.Bool:
		return Value{Kind: KindBool, Bool: rv.Bool()}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Value{Kind: KindInt, Int: rv.Int()}, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Value{Kind: KindUint, Uint: rv.Uint()}, nil
	case reflect.Float32, reflect.Float64:
		return Value{Kind: KindFloat, Float: rv.Float()}, nil
	case reflect.String:
		return Value{Kind: KindString, Str: rv.String()}, nil
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return Value{Kind: KindByteSlice, Bytes: append([]byte(nil), rv.Bytes()...)}, nil
		}
		elems := make([]Value, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			v, err := reflectValueToValue(rv.Index(i))
			if err != nil {
				return Value{}, err
			}
			elems[i] = v
		}
		return Value{Kind: KindArray, Elems: elems}, nil
	case reflect.Map:
		pairs := make([]MapPair, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k, err := reflectValueToValue(iter.Key())
			if err != nil {
				return Value{}, err
			}
			v, err := reflectValueToValue(iter.Value())
			if err != nil {
				return Value{}, err
			}
			pairs = append(pairs, MapPair{Key: k, Elem: v})
		}
		return Value{Kind: KindMap, MapPairs: pairs}, nil
	case reflect.Struct:
		t := rv.Type()
		fields := make([]FieldValue, 0, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			wireName := f.Name
			if tag, ok := f.Tag.Lookup("wiregob"); ok && tag != "" && tag != "-" {
				wireName = tag
			}
			fv, err := reflectValueToValue(rv.Field(i))
			if err != nil {
				return Value{}, err
			}
			fields = append(fields, FieldValue{Name: wireName, Value: fv})
		}
		return Value{Kind: KindStruct, StructName: t.Name(), Fields: fields}, nil
	default:
		return Value{}, ErrUnsupported
	}
}

// registerStructSchema builds and registers the composite Schema for a Go
// struct type, recursively resolving (and registering) every field's type
// first - schema construction needs the same "ensure everything referenced
// is defined" recursion the write-side announcement pass does.
func registerStructSchema(reg *Registry, typ reflect.Type, wireNames []string, idOverride int64) (*Schema, error) {
	if existing, ok := reg.FindByKindName(KindStruct, typ.Name()); ok && idOverride == 0 {
		return existing, nil
	}

	fields := make([]SchemaField, 0, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		if !f.IsExported() {
			continue
		}
		fieldID, err := schemaIDForType(reg, f.Type)
		if err != nil {
			return nil, err
		}
		fields = append(fields, SchemaField{Name: wireNames[i], ID: fieldID})
	}

	id := idOverride
	if id == 0 {
		id = reg.AllocateID()
	}
	s := &Schema{ID: id, Kind: KindStruct, Name: typ.Name(), Fields: fields}
	if err := reg.Register(s); err != nil {
		return nil, err
	}
	return s, nil
}

// schemaIDForType resolves (registering composites as needed) the
// registry identifier a Go type decodes/encodes against.
func schemaIDForType(reg *Registry, t reflect.Type) (int64, error) {
	switch t.Kind() {
	case reflect.Bool:
		return idBool, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return idInt, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return idUint, nil
	case reflect.Float32, reflect.Float64:
		return idFloat, nil
	case reflect.String:
		return idString, nil
	case reflect.Interface:
		return idInterface, nil

	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return idByteSlice, nil
		}
		elemID, err := schemaIDForType(reg, t.Elem())
		if err != nil {
			return 0, err
		}
		if elemSchema, ok := reg.Lookup(elemID); ok && userDefinedElem(elemSchema) {
			return 0, ErrUnsupported // slices of user-defined element types are rejected
		}
		name := "[]" + t.Elem().String()
		if existing, ok := reg.FindByKindName(KindSlice, name); ok {
			return existing.ID, nil
		}
		id := reg.AllocateID()
		s := &Schema{ID: id, Kind: KindSlice, Name: name, Elem: elemID}
		if err := reg.Register(s); err != nil {
			return 0, err
		}
		return id, nil

	case reflect.Map:
		keyID, err := schemaIDForType(reg, t.Key())
		if err != nil {
			return 0, err
		}
		elemID, err := schemaIDForType(reg, t.Elem())
		if err != nil {
			return 0, err
		}
		name := "map[" + t.Key().String() + "]" + t.Elem().String()
		if existing, ok := reg.FindByKindName(KindMap, name); ok {
			return existing.ID, nil
		}
		id := reg.AllocateID()
		s := &Schema{ID: id, Kind: KindMap, Name: name, Key: keyID, Elem: elemID}
		if err := reg.Register(s); err != nil {
			return 0, err
		}
		return id, nil

	case reflect.Struct:
		if existing, ok := reg.FindByKindName(KindStruct, t.Name()); ok {
			return existing.ID, nil
		}
		wireNames := make([]string, t.NumField())
		for i := range wireNames {
			f := t.Field(i)
			wireNames[i] = f.Name
			if tag, ok := f.Tag.Lookup("wiregob"); ok && tag != "" && tag != "-" {
				wireNames[i] = tag
			}
		}
		s, err := registerStructSchema(reg, t, wireNames, 0)
		if err != nil {
			return 0, err
		}
		return s.ID, nil

	default:
		return 0, ErrUnsupported
	}
}

// sharedInterfaceMapSchema returns the one map[string]interface{} schema
// every interface-keyed-map binding on reg encodes against, registering it
// on first use.
func sharedInterfaceMapSchema(reg *Registry) (*Schema, error) {
	const name = "map[string]interface {}"
	if existing, ok := reg.FindByKindName(KindMap, name); ok {
		return existing, nil
	}
	id := reg.AllocateID()
	s := &Schema{ID: id, Kind: KindMap, Name: name, Key: idString, Elem: idInterface}
	if err := reg.Register(s); err != nil {
		return nil, err
	}
	return s, nil
}
