// SPDX-License-Identifier: GPL-3.0-or-later

package wire

import (
	"fmt"
	"strconv"
)

// FieldKind discriminates the payload carried by a [FieldValue].
//
// This module uses the tagged-primitive encoding uniformly (never the
// alternative opaque-byte-blob encoding): Go has no native 128-bit integer
// type, so values that would be i128/u128 on the wire are represented as
// [FieldKindString] holding their decimal text, the same variant used for
// the debug-serialization fallback.
type FieldKind uint8

const (
	FieldKindBool FieldKind = iota
	FieldKindF64
	FieldKindI64
	FieldKindU64
	FieldKindString
)

// FieldValue is a single typed value attached to a [Fields] map.
type FieldValue struct {
	Kind FieldKind `msgpack:"kind"`
	Bool bool      `msgpack:"bool,omitempty"`
	F64  float64   `msgpack:"f64,omitempty"`
	I64  int64     `msgpack:"i64,omitempty"`
	U64  uint64    `msgpack:"u64,omitempty"`
	Str  string    `msgpack:"str,omitempty"`
}

// BoolValue constructs a boolean [FieldValue].
func BoolValue(v bool) FieldValue { return FieldValue{Kind: FieldKindBool, Bool: v} }

// F64Value constructs a float64 [FieldValue].
func F64Value(v float64) FieldValue { return FieldValue{Kind: FieldKindF64, F64: v} }

// I64Value constructs a signed 64-bit [FieldValue].
func I64Value(v int64) FieldValue { return FieldValue{Kind: FieldKindI64, I64: v} }

// U64Value constructs an unsigned 64-bit [FieldValue].
func U64Value(v uint64) FieldValue { return FieldValue{Kind: FieldKindU64, U64: v} }

// StringValue constructs a string [FieldValue], also used for the i128/u128
// decimal-text fallback and for debug-serialized structured values.
func StringValue(v string) FieldValue { return FieldValue{Kind: FieldKindString, Str: v} }

// Fields is an ordered name-to-value mapping attached to a span or event.
//
// Ordering is by insertion; [Fields.Merge] implements the SpanUpdate
// semantics where newer entries overwrite older ones sharing the same
// name while preserving the position of first insertion.
type Fields struct {
	order []string
	byKey map[string]FieldValue
}

// NewFields returns an empty [Fields].
func NewFields() *Fields {
	return &Fields{byKey: make(map[string]FieldValue)}
}

// Set inserts or overwrites the field named key, preserving its original
// insertion position if it already existed.
func (f *Fields) Set(key string, value FieldValue) {
	if f.byKey == nil {
		f.byKey = make(map[string]FieldValue)
	}
	if _, exists := f.byKey[key]; !exists {
		f.order = append(f.order, key)
	}
	f.byKey[key] = value
}

// Get returns the value stored under key, if any.
func (f *Fields) Get(key string) (FieldValue, bool) {
	if f == nil || f.byKey == nil {
		return FieldValue{}, false
	}
	v, ok := f.byKey[key]
	return v, ok
}

// Len returns the number of fields.
func (f *Fields) Len() int {
	if f == nil {
		return 0
	}
	return len(f.order)
}

// Keys returns the field names in insertion order.
func (f *Fields) Keys() []string {
	if f == nil {
		return nil
	}
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// Merge overlays changes onto f: values in changes replace values with the
// same name in f; names new to f are appended in their changes order. This
// implements the MonitorMsg SpanUpdate semantics (§3.1/§4.6 of the
// governing specification).
func (f *Fields) Merge(changes *Fields) {
	if changes == nil {
		return
	}
	for _, key := range changes.order {
		v, _ := changes.byKey[key]
		f.Set(key, v)
	}
}

// wireFields is the msgpack-serializable representation of [Fields]: a
// slice preserves insertion order, which a plain Go map cannot.
type wireFields struct {
	Keys   []string     `msgpack:"keys"`
	Values []FieldValue `msgpack:"values"`
}

// MarshalMsgpack implements msgpack.Marshaler.
func (f *Fields) MarshalMsgpack() ([]byte, error) {
	w := wireFields{Keys: f.Keys()}
	for _, k := range w.Keys {
		v, _ := f.Get(k)
		w.Values = append(w.Values, v)
	}
	return msgpackMarshal(w)
}

// UnmarshalMsgpack implements msgpack.Unmarshaler.
func (f *Fields) UnmarshalMsgpack(data []byte) error {
	var w wireFields
	if err := msgpackUnmarshal(data, &w); err != nil {
		return err
	}
	*f = Fields{byKey: make(map[string]FieldValue, len(w.Keys))}
	for i, k := range w.Keys {
		f.Set(k, w.Values[i])
	}
	return nil
}

// Visitor converts typed instrumentation values into [FieldValue] entries.
//
// No method may fail visibly to the caller. If serializing a structured
// value fails, the visitor skips inserting that field and instead emits a
// MonitorError via the side channel provided to [NewVisitor].
type Visitor struct {
	fields     *Fields
	errorWrite func(reason string)
}

// NewVisitor returns a [*Visitor] that populates fields, reporting
// serialization failures through errorWrite.
func NewVisitor(fields *Fields, errorWrite func(reason string)) *Visitor {
	return &Visitor{fields: fields, errorWrite: errorWrite}
}

// RecordBool records a boolean field.
func (v *Visitor) RecordBool(name string, value bool) { v.fields.Set(name, BoolValue(value)) }

// RecordF64 records a float64 field.
func (v *Visitor) RecordF64(name string, value float64) { v.fields.Set(name, F64Value(value)) }

// RecordI64 records a signed 64-bit field.
func (v *Visitor) RecordI64(name string, value int64) { v.fields.Set(name, I64Value(value)) }

// RecordU64 records an unsigned 64-bit field.
func (v *Visitor) RecordU64(name string, value uint64) { v.fields.Set(name, U64Value(value)) }

// RecordString records a string field directly.
func (v *Visitor) RecordString(name string, value string) { v.fields.Set(name, StringValue(value)) }

// RecordI128Text records a 128-bit signed integer as decimal text, since Go
// has no native int128 type; callers holding a big.Int or similar should
// format it themselves and call this method.
func (v *Visitor) RecordI128Text(name string, decimal string) { v.fields.Set(name, StringValue(decimal)) }

// RecordU128Text records a 128-bit unsigned integer as decimal text.
func (v *Visitor) RecordU128Text(name string, decimal string) { v.fields.Set(name, StringValue(decimal)) }

// RecordDebug serializes an arbitrary structured value through the
// deterministic encoder and stores its debug text representation. If
// encoding fails, the field is not inserted and a MonitorError is emitted
// on the side channel instead, per the Field Visitor contract.
func (v *Visitor) RecordDebug(name string, value any) {
	encoded, err := encodeAny(value)
	if err != nil {
		if v.errorWrite != nil {
			v.errorWrite(fmt.Sprintf("field %q: %s", name, err))
		}
		return
	}
	v.fields.Set(name, StringValue(debugText(value, encoded)))
}

func debugText(value any, encoded []byte) string {
	if s, ok := value.(fmt.Stringer); ok {
		return s.String()
	}
	return strconv.Quote(fmt.Sprintf("%+v", value)) + " (" + strconv.Itoa(len(encoded)) + " bytes encoded)"
}
