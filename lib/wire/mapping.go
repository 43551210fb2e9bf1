// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MappingOp says which direction a struct mapping failed in.
type MappingOp string

const (
	Serialization   MappingOp = "serialization"
	Materialization MappingOp = "materialization"
)

// MappingError reports a struct field that could not be converted.
// Path is built up as the error leaves each enclosing struct, e.g.
// "CreateRoomParams.Objects[2].ObjectParams.Position".
type MappingError struct {
	Op   MappingOp
	Path string
	Err  error
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("wire: %s of %s: %v", e.Op, e.Path, e.Err)
}

func (e *MappingError) Unwrap() error { return e.Err }

// prefix prepends segment to the error's path.
func (e *MappingError) prefix(segment string) {
	switch {
	case e.Path == "":
		e.Path = segment
	case strings.HasPrefix(e.Path, "["):
		e.Path = segment + e.Path
	default:
		e.Path = segment + "." + e.Path
	}
}

// wrapPath attaches segment to err, converting a plain error into a
// MappingError first.
func wrapPath(op MappingOp, segment string, err error) error {
	var mapping *MappingError
	if !errors.As(err, &mapping) {
		mapping = &MappingError{Op: op, Err: err}
	}
	mapping.prefix(segment)
	return mapping
}

type field struct {
	index    int
	key      Key
	compress bool
}

var fieldCache sync.Map // reflect.Type -> []field

func fieldsOf(t reflect.Type) []field {
	if cached, ok := fieldCache.Load(t); ok {
		return cached.([]field)
	}
	var fields []field
	for i := range t.NumField() {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name, options, _ := strings.Cut(sf.Tag.Get("wire"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = sf.Name
		}
		fields = append(fields, field{
			index:    i,
			key:      Key(name),
			compress: options == "compress",
		})
	}
	fieldCache.Store(t, fields)
	return fields
}

var (
	timeType     = reflect.TypeFor[time.Time]()
	durationType = reflect.TypeFor[time.Duration]()
	uuidType     = reflect.TypeFor[uuid.UUID]()
	mapType      = reflect.TypeFor[Map]()
	valueType    = reflect.TypeFor[Value]()
	keyType      = reflect.TypeFor[Key]()
	point3Type   = reflect.TypeFor[Point3]()
	point2Type   = reflect.TypeFor[Point2]()
	decimalType  = reflect.TypeFor[Decimal]()
	bytesType    = reflect.TypeFor[[]byte]()
)

// Marshal converts a struct, or a pointer to one, into a Map.
func Marshal(v any) (Map, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return Map{}, nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, &MappingError{Op: Serialization, Path: rv.Type().String(), Err: errors.New("not a struct")}
	}
	return marshalStruct(rv)
}

func marshalStruct(rv reflect.Value) (Map, error) {
	t := rv.Type()
	m := make(Map)
	for _, f := range fieldsOf(t) {
		value, err := toValue(rv.Field(f.index), f.compress)
		if err != nil {
			return nil, wrapPath(Serialization, t.Name()+"."+t.Field(f.index).Name, err)
		}
		m[f.key] = value
	}
	return m, nil
}

// From converts a Go value of any supported field type into a Value.
func From(v any) (Value, error) {
	if v == nil {
		return Null(), nil
	}
	return toValue(reflect.ValueOf(v), false)
}

func toValue(rv reflect.Value, compressed bool) (Value, error) {
	t := rv.Type()
	switch t {
	case valueType:
		return rv.Interface().(Value), nil
	case mapType:
		if rv.IsNil() {
			return Null(), nil
		}
		return Dictionary(rv.Interface().(Map)), nil
	case keyType:
		return KeyValue(Key(rv.String())), nil
	case timeType:
		return DateTime(rv.Interface().(time.Time)), nil
	case durationType:
		return TimeSpan(time.Duration(rv.Int())), nil
	case uuidType:
		return Guid(rv.Interface().(uuid.UUID)), nil
	case point3Type:
		return Vector3(rv.Interface().(Point3)), nil
	case point2Type:
		return Vector2(rv.Interface().(Point2)), nil
	case decimalType:
		return DecimalValue(rv.Interface().(Decimal)), nil
	case bytesType:
		if compressed {
			return CompressedByteArray(rv.Bytes()), nil
		}
		return ByteArray(rv.Bytes()), nil
	}

	switch t.Kind() {
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.Int8:
		return SByte(int8(rv.Int())), nil
	case reflect.Int16:
		return Int16(int16(rv.Int())), nil
	case reflect.Int32:
		return Int32(int32(rv.Int())), nil
	case reflect.Int, reflect.Int64:
		return Int64(rv.Int()), nil
	case reflect.Uint8:
		return Byte(uint8(rv.Uint())), nil
	case reflect.Uint16:
		return UInt16(uint16(rv.Uint())), nil
	case reflect.Uint32:
		return UInt32(uint32(rv.Uint())), nil
	case reflect.Uint, reflect.Uint64:
		return UInt64(rv.Uint()), nil
	case reflect.Float32:
		return Float(float32(rv.Float())), nil
	case reflect.Float64:
		return Double(rv.Float()), nil
	case reflect.String:
		if compressed {
			return CompressedString(rv.String()), nil
		}
		return String(rv.String()), nil
	case reflect.Struct:
		m, err := marshalStruct(rv)
		if err != nil {
			return Value{}, err
		}
		return Dictionary(m), nil
	case reflect.Pointer:
		if rv.IsNil() {
			return Null(), nil
		}
		return toValue(rv.Elem(), compressed)
	case reflect.Slice:
		if rv.IsNil() {
			return Null(), nil
		}
		return sliceValue(rv, compressed)
	}
	return Value{}, fmt.Errorf("unsupported type %v", t)
}

func sliceValue(rv reflect.Value, compressed bool) (Value, error) {
	items := make([]Value, rv.Len())
	for i := range items {
		item, err := toValue(rv.Index(i), compressed)
		if err != nil {
			return Value{}, wrapPath(Serialization, fmt.Sprintf("[%d]", i), err)
		}
		items[i] = item
	}
	elem := elementTag(rv.Type().Elem(), compressed)
	if elem == TagObject {
		return Array(items...), nil
	}
	// Nil pointers inside a typed array become Null and force Object.
	array, err := TypedArray(elem, items...)
	if err != nil {
		return Array(items...), nil
	}
	return array, nil
}

// elementTag returns the tag every element of a Go slice type encodes
// with, or TagObject when it varies.
func elementTag(t reflect.Type, compressed bool) Tag {
	switch t {
	case valueType:
		return TagObject
	case mapType:
		return TagDictionary
	case keyType:
		return TagKey
	case timeType:
		return TagDateTime
	case durationType:
		return TagTimeSpan
	case uuidType:
		return TagGuid
	case point3Type:
		return TagPoint3
	case point2Type:
		return TagPoint2
	case decimalType:
		return TagDecimal
	case bytesType:
		if compressed {
			return TagCompressedByteArray
		}
		return TagByteArray
	}
	switch t.Kind() {
	case reflect.Bool:
		return TagBool
	case reflect.Int8:
		return TagSByte
	case reflect.Int16:
		return TagInt16
	case reflect.Int32:
		return TagInt32
	case reflect.Int, reflect.Int64:
		return TagInt64
	case reflect.Uint8:
		return TagByte
	case reflect.Uint16:
		return TagUInt16
	case reflect.Uint32:
		return TagUInt32
	case reflect.Uint, reflect.Uint64:
		return TagUInt64
	case reflect.Float32:
		return TagFloat
	case reflect.Float64:
		return TagDouble
	case reflect.String:
		if compressed {
			return TagCompressedString
		}
		return TagString
	case reflect.Struct:
		return TagDictionary
	case reflect.Slice:
		return TagArray
	}
	return TagObject
}

// Unmarshal fills the struct pointed to by v from m. Keys absent from m
// leave their fields untouched; Null values reset fields to zero.
func Unmarshal(m Map, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return &MappingError{Op: Materialization, Path: fmt.Sprintf("%T", v), Err: errors.New("target is not a non-nil pointer")}
	}
	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return &MappingError{Op: Materialization, Path: rv.Type().String(), Err: errors.New("target is not a struct")}
	}
	return unmarshalStruct(m, rv)
}

func unmarshalStruct(m Map, rv reflect.Value) error {
	t := rv.Type()
	for _, f := range fieldsOf(t) {
		value, ok := m[f.key]
		if !ok {
			continue
		}
		if err := fromValue(value, rv.Field(f.index)); err != nil {
			return wrapPath(Materialization, t.Name()+"."+t.Field(f.index).Name, err)
		}
	}
	return nil
}

func mismatch(v Value, t reflect.Type) error {
	return fmt.Errorf("cannot convert %v to %v", v.Tag(), t)
}

func fromValue(v Value, rv reflect.Value) error {
	t := rv.Type()
	if v.IsNull() && t != valueType {
		rv.SetZero()
		return nil
	}
	switch t {
	case valueType:
		rv.Set(reflect.ValueOf(v))
		return nil
	case mapType:
		m, ok := v.Map()
		if !ok {
			return mismatch(v, t)
		}
		rv.Set(reflect.ValueOf(m))
		return nil
	case keyType:
		k, ok := v.Key()
		if !ok {
			return mismatch(v, t)
		}
		rv.SetString(string(k))
		return nil
	case timeType:
		when, ok := v.Time()
		if !ok {
			return mismatch(v, t)
		}
		rv.Set(reflect.ValueOf(when))
		return nil
	case durationType:
		d, ok := v.Duration()
		if !ok {
			return mismatch(v, t)
		}
		rv.SetInt(int64(d))
		return nil
	case uuidType:
		id, ok := v.Guid()
		if !ok {
			return mismatch(v, t)
		}
		rv.Set(reflect.ValueOf(id))
		return nil
	case point3Type:
		p, ok := v.Point3()
		if !ok {
			return mismatch(v, t)
		}
		rv.Set(reflect.ValueOf(p))
		return nil
	case point2Type:
		p, ok := v.Point2()
		if !ok {
			return mismatch(v, t)
		}
		rv.Set(reflect.ValueOf(p))
		return nil
	case decimalType:
		d, ok := v.Decimal()
		if !ok {
			return mismatch(v, t)
		}
		rv.Set(reflect.ValueOf(d))
		return nil
	case bytesType:
		b, ok := v.Bytes()
		if !ok {
			return mismatch(v, t)
		}
		rv.SetBytes(b)
		return nil
	}

	switch t.Kind() {
	case reflect.Bool:
		b, ok := v.Bool()
		if !ok {
			return mismatch(v, t)
		}
		rv.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, ok := v.Int()
		if !ok || rv.OverflowInt(i) {
			return mismatch(v, t)
		}
		rv.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, ok := v.Uint()
		if !ok || rv.OverflowUint(u) {
			return mismatch(v, t)
		}
		rv.SetUint(u)
	case reflect.Float32, reflect.Float64:
		f, ok := v.Float()
		if !ok {
			return mismatch(v, t)
		}
		rv.SetFloat(f)
	case reflect.String:
		s, ok := v.Str()
		if !ok {
			return mismatch(v, t)
		}
		rv.SetString(s)
	case reflect.Struct:
		m, ok := v.Map()
		if !ok {
			return mismatch(v, t)
		}
		return unmarshalStruct(m, rv)
	case reflect.Pointer:
		target := reflect.New(t.Elem())
		if err := fromValue(v, target.Elem()); err != nil {
			return err
		}
		rv.Set(target)
	case reflect.Slice:
		items, ok := v.Items()
		if !ok {
			return mismatch(v, t)
		}
		slice := reflect.MakeSlice(t, len(items), len(items))
		for i, item := range items {
			if err := fromValue(item, slice.Index(i)); err != nil {
				return wrapPath(Materialization, fmt.Sprintf("[%d]", i), err)
			}
		}
		rv.Set(slice)
	default:
		return fmt.Errorf("unsupported type %v", t)
	}
	return nil
}
