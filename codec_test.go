package wiregob

import (
	"bytes"
	"io"
	"testing"
)

func TestEncoderDecoderStructRoundTrip(t *testing.T) {
	var out bytes.Buffer
	enc := NewEncoder(&out)

	schema := &Schema{ID: enc.Registry().AllocateID(), Kind: KindStruct, Name: "Point", Fields: []SchemaField{
		{Name: "X", ID: idInt},
		{Name: "Y", ID: idInt},
	}}
	if err := enc.Registry().Register(schema); err != nil {
		t.Fatalf("Register: %v", err)
	}

	v := Value{Kind: KindStruct, StructName: "Point", Fields: []FieldValue{
		{Name: "X", Value: Value{Kind: KindInt, Int: 10}},
		{Name: "Y", Value: Value{Kind: KindInt, Int: 20}},
	}}
	if err := enc.EncodeValue(schema, v); err != nil {
		t.Fatalf("EncodeValue: %v", err)
	}
	// encoding the same schema again must not re-announce the type.
	if err := enc.EncodeValue(schema, v); err != nil {
		t.Fatalf("EncodeValue (second): %v", err)
	}

	dec := NewDecoder(&out)

	id, got, err := dec.Decode()
	if err != nil {
		t.Fatalf("Decode #1: %v", err)
	}
	if id != schema.ID || !Equal(got, v) {
		t.Fatalf("Decode #1 = (%d, %+v), want (%d, %+v)", id, got, schema.ID, v)
	}

	id, got, err = dec.Decode()
	if err != nil {
		t.Fatalf("Decode #2: %v", err)
	}
	if id != schema.ID || !Equal(got, v) {
		t.Fatalf("Decode #2 = (%d, %+v), want (%d, %+v)", id, got, schema.ID, v)
	}

	if _, _, err := dec.Decode(); err != io.EOF {
		t.Fatalf("Decode at end = %v, want io.EOF", err)
	}
}

func TestEncoderAnnouncesDependenciesFirst(t *testing.T) {
	var out bytes.Buffer
	enc := NewEncoder(&out)

	innerID := enc.Registry().AllocateID()
	innerSchema := &Schema{ID: innerID, Kind: KindStruct, Name: "Leaf", Fields: []SchemaField{{Name: "V", ID: idInt}}}
	if err := enc.Registry().Register(innerSchema); err != nil {
		t.Fatalf("Register(inner): %v", err)
	}
	outerID := enc.Registry().AllocateID()
	outerSchema := &Schema{ID: outerID, Kind: KindStruct, Name: "Wrapper", Fields: []SchemaField{{Name: "Inner", ID: innerID}}}
	if err := enc.Registry().Register(outerSchema); err != nil {
		t.Fatalf("Register(outer): %v", err)
	}

	v := Value{Kind: KindStruct, StructName: "Wrapper", Fields: []FieldValue{
		{Name: "Inner", Value: Value{Kind: KindStruct, StructName: "Leaf", Fields: []FieldValue{
			{Name: "V", Value: Value{Kind: KindInt, Int: 1}},
		}}},
	}}
	if err := enc.EncodeValue(outerSchema, v); err != nil {
		t.Fatalf("EncodeValue: %v", err)
	}

	dec := NewDecoder(&out)
	id, got, err := dec.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if id != outerID || !Equal(got, v) {
		t.Fatalf("Decode = (%d, %+v), want (%d, %+v)", id, got, outerID, v)
	}
}

func TestEncoderWithLimitsPropagatesToRegistry(t *testing.T) {
	var out bytes.Buffer
	enc := NewEncoderWithLimits(&out, Limits{MaxTypes: 1})
	if err := enc.Registry().Register(&Schema{ID: enc.Registry().AllocateID(), Kind: KindStruct, Name: "A"}); err != nil {
		t.Fatalf("Register #1: %v", err)
	}
	if err := enc.Registry().Register(&Schema{ID: enc.Registry().AllocateID(), Kind: KindStruct, Name: "B"}); err != ErrTooManyTypes {
		t.Errorf("Register #2 = %v, want ErrTooManyTypes", err)
	}
}
