package wiregob

import "testing"

func TestRegistrySeedsPrimitives(t *testing.T) {
	r := NewRegistry()
	for id, kind := range map[int64]Kind{
		idBool:      KindBool,
		idInt:       KindInt,
		idUint:      KindUint,
		idFloat:     KindFloat,
		idByteSlice: KindByteSlice,
		idString:    KindString,
		idComplex:   KindComplex,
		idInterface: KindInterface,
	} {
		s, ok := r.Lookup(id)
		if !ok {
			t.Fatalf("Lookup(%d) not found", id)
		}
		if s.Kind != kind {
			t.Errorf("Lookup(%d).Kind = %v, want %v", id, s.Kind, kind)
		}
	}
}

func TestRegistryAllocateIDStartsAtFirstUserID(t *testing.T) {
	r := NewRegistry()
	id := r.AllocateID()
	if id != firstUserID {
		t.Errorf("AllocateID() = %d, want %d", id, firstUserID)
	}
	if next := r.AllocateID(); next != firstUserID+1 {
		t.Errorf("second AllocateID() = %d, want %d", next, firstUserID+1)
	}
}

func TestRegistryRegisterIdempotent(t *testing.T) {
	r := NewRegistry()
	s := &Schema{ID: 65, Kind: KindStruct, Name: "Point", Fields: []SchemaField{{Name: "X", ID: idInt}}}
	if err := r.Register(s); err != nil {
		t.Fatalf("Register: %v", err)
	}
	// re-registering an identical schema is a no-op, not a redefinition.
	again := &Schema{ID: 65, Kind: KindStruct, Name: "Point", Fields: []SchemaField{{Name: "X", ID: idInt}}}
	if err := r.Register(again); err != nil {
		t.Fatalf("Register(same) = %v, want nil", err)
	}
}

func TestRegistryRedefinitionRejected(t *testing.T) {
	r := NewRegistry()
	s := &Schema{ID: 65, Kind: KindStruct, Name: "Point"}
	if err := r.Register(s); err != nil {
		t.Fatalf("Register: %v", err)
	}
	conflict := &Schema{ID: 65, Kind: KindStruct, Name: "Vector"}
	if err := r.Register(conflict); err != ErrRedefinition {
		t.Errorf("Register(conflict) = %v, want ErrRedefinition", err)
	}
}

func TestRegistryUnknownType(t *testing.T) {
	r := NewRegistry()
	if _, err := r.MustLookup(999); err != ErrUnknownType {
		t.Errorf("MustLookup(999) = %v, want ErrUnknownType", err)
	}
}

func TestRegistryLimit(t *testing.T) {
	r := NewRegistryWithLimit(1)
	if err := r.Register(&Schema{ID: 65, Kind: KindStruct, Name: "A"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(&Schema{ID: 66, Kind: KindStruct, Name: "B"}); err != ErrTooManyTypes {
		t.Errorf("Register(second) = %v, want ErrTooManyTypes", err)
	}
}

func TestRegistryFindByKindName(t *testing.T) {
	r := NewRegistry()
	s := &Schema{ID: 65, Kind: KindStruct, Name: "Point"}
	if err := r.Register(s); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if found, ok := r.FindByKindName(KindStruct, "Point"); !ok || found.ID != 65 {
		t.Errorf("FindByKindName(Struct, Point) = (%v, %v)", found, ok)
	}
	if _, ok := r.FindByKindName(KindStruct, "Missing"); ok {
		t.Errorf("FindByKindName(Missing) found an entry")
	}
}
