// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Key names an entry of a dictionary. On the wire it is ASCII with a
// one-byte length prefix, so it is at most 255 bytes long.
type Key string

// Point3 is a three-component float32 vector (positions, rotations,
// velocities).
type Point3 struct{ X, Y, Z float32 }

// Point2 is a two-component float32 vector.
type Point2 struct{ X, Y float32 }

// pointTolerance is the distance under which two points compare equal.
const pointTolerance = 1e-4

// Distance returns the euclidean distance between p and q.
func (p Point3) Distance(q Point3) float64 {
	dx, dy, dz := float64(p.X-q.X), float64(p.Y-q.Y), float64(p.Z-q.Z)
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Distance returns the euclidean distance between p and q.
func (p Point2) Distance(q Point2) float64 {
	dx, dy := float64(p.X-q.X), float64(p.Y-q.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// Decimal is a 128-bit decimal carried opaquely. The service never does
// arithmetic on it.
type Decimal [16]byte

// ticksPerSecond is the number of 100ns ticks in a second. TimeSpan and
// DateTime bodies count ticks.
const ticksPerSecond = int64(time.Second / 100)

// epochTicks is the tick count of 1970-01-01 measured from 0001-01-01.
const epochTicks = 621355968000000000

// Value is one wire value. The zero Value is Null.
type Value struct {
	tag   Tag
	n     int64
	f     float64
	s     string
	b     []byte
	p     [3]float32
	elem  Tag
	items []Value
	m     Map
}

func Null() Value { return Value{} }

func Bool(b bool) Value {
	v := Value{tag: TagBool}
	if b {
		v.n = 1
	}
	return v
}

// Char holds one UTF-16 code unit.
func Char(c uint16) Value   { return Value{tag: TagChar, n: int64(c)} }
func Byte(b uint8) Value    { return Value{tag: TagByte, n: int64(b)} }
func SByte(b int8) Value    { return Value{tag: TagSByte, n: int64(b)} }
func Int16(i int16) Value   { return Value{tag: TagInt16, n: int64(i)} }
func UInt16(u uint16) Value { return Value{tag: TagUInt16, n: int64(u)} }
func Int32(i int32) Value   { return Value{tag: TagInt32, n: int64(i)} }
func UInt32(u uint32) Value { return Value{tag: TagUInt32, n: int64(u)} }
func Int64(i int64) Value   { return Value{tag: TagInt64, n: i} }

// UInt64 stores u bitwise; read it back with Uint.
func UInt64(u uint64) Value { return Value{tag: TagUInt64, n: int64(u)} }

func Float(f float32) Value  { return Value{tag: TagFloat, f: float64(f)} }
func Double(f float64) Value { return Value{tag: TagDouble, f: f} }

func DecimalValue(d Decimal) Value {
	return Value{tag: TagDecimal, b: bytes.Clone(d[:])}
}

func KeyValue(k Key) Value { return Value{tag: TagKey, s: string(k)} }

func Guid(id uuid.UUID) Value {
	return Value{tag: TagGuid, b: bytes.Clone(id[:])}
}

// TimeSpan truncates d to 100ns ticks.
func TimeSpan(d time.Duration) Value {
	return Value{tag: TagTimeSpan, n: int64(d / 100)}
}

// DateTime stores t in UTC as ticks since 0001-01-01, truncated to
// 100ns.
func DateTime(t time.Time) Value {
	t = t.UTC()
	ticks := t.Unix()*ticksPerSecond + int64(t.Nanosecond()/100) + epochTicks
	return Value{tag: TagDateTime, n: ticks}
}

func String(s string) Value           { return Value{tag: TagString, s: s} }
func CompressedString(s string) Value { return Value{tag: TagCompressedString, s: s} }
func ByteArray(b []byte) Value        { return Value{tag: TagByteArray, b: b} }

func CompressedByteArray(b []byte) Value {
	return Value{tag: TagCompressedByteArray, b: b}
}

func Vector3(p Point3) Value { return Value{tag: TagPoint3, p: [3]float32{p.X, p.Y, p.Z}} }
func Vector2(p Point2) Value { return Value{tag: TagPoint2, p: [3]float32{p.X, p.Y}} }

// Dictionary wraps m. A nil m encodes as an empty dictionary.
func Dictionary(m Map) Value { return Value{tag: TagDictionary, m: m} }

// Array builds an array. When every element shares one tag the array is
// written with that element tag; otherwise each element carries its own
// tag under the Object element tag.
func Array(items ...Value) Value {
	elem := TagObject
	if len(items) > 0 {
		elem = items[0].tag
		for _, item := range items[1:] {
			if item.tag != elem {
				elem = TagObject
				break
			}
		}
	}
	return Value{tag: TagArray, elem: elem, items: items}
}

// TypedArray builds an array with an explicit element tag. It returns an
// error if an element does not carry that tag and elem is not
// TagObject.
func TypedArray(elem Tag, items ...Value) (Value, error) {
	if !elem.Known() {
		return Value{}, fmt.Errorf("wire: unknown element tag %v", elem)
	}
	if elem != TagObject {
		for i, item := range items {
			if item.tag != elem {
				return Value{}, fmt.Errorf("wire: array element %d is %v, want %v", i, item.tag, elem)
			}
		}
	}
	return Value{tag: TagArray, elem: elem, items: items}, nil
}

// Tag returns the tag v is encoded with.
func (v Value) Tag() Tag { return v.tag }

func (v Value) IsNull() bool { return v.tag == TagNull }

// Bool reads a Bool, or any integer as nonzero.
func (v Value) Bool() (bool, bool) {
	if v.tag.integral() {
		return v.n != 0, true
	}
	return false, false
}

// Int reads any integer or Char tag. Floating values convert when they
// hold a whole number that fits in an int64.
func (v Value) Int() (int64, bool) {
	switch {
	case v.tag == TagUInt64:
		if v.n < 0 {
			return 0, false
		}
		return v.n, true
	case v.tag.integral():
		return v.n, true
	case v.tag.floating():
		if v.f != math.Trunc(v.f) || v.f < math.MinInt64 || v.f >= math.MaxInt64 {
			return 0, false
		}
		return int64(v.f), true
	}
	return 0, false
}

// Uint reads any non-negative integer.
func (v Value) Uint() (uint64, bool) {
	if v.tag == TagUInt64 {
		return uint64(v.n), true
	}
	i, ok := v.Int()
	if !ok || i < 0 {
		return 0, false
	}
	return uint64(i), true
}

// Float reads any numeric tag as a float64.
func (v Value) Float() (float64, bool) {
	switch {
	case v.tag.floating():
		return v.f, true
	case v.tag == TagUInt64:
		return float64(uint64(v.n)), true
	case v.tag.integral():
		return float64(v.n), true
	}
	return 0, false
}

// Str reads a String, CompressedString or Key.
func (v Value) Str() (string, bool) {
	switch v.tag {
	case TagString, TagCompressedString, TagKey:
		return v.s, true
	}
	return "", false
}

// Key reads a Key, or a String that fits in a key.
func (v Value) Key() (Key, bool) {
	s, ok := v.Str()
	if !ok || len(s) > maxKeyLength {
		return "", false
	}
	return Key(s), true
}

// Bytes reads a ByteArray or CompressedByteArray. The slice is shared
// with v.
func (v Value) Bytes() ([]byte, bool) {
	switch v.tag {
	case TagByteArray, TagCompressedByteArray:
		return v.b, true
	}
	return nil, false
}

func (v Value) Decimal() (Decimal, bool) {
	var d Decimal
	if v.tag != TagDecimal {
		return d, false
	}
	copy(d[:], v.b)
	return d, true
}

// Guid reads a Guid, or a String holding a canonical UUID.
func (v Value) Guid() (uuid.UUID, bool) {
	switch v.tag {
	case TagGuid:
		id, err := uuid.FromBytes(v.b)
		return id, err == nil
	case TagString:
		id, err := uuid.Parse(v.s)
		return id, err == nil
	}
	return uuid.Nil, false
}

func (v Value) Duration() (time.Duration, bool) {
	if v.tag != TagTimeSpan {
		return 0, false
	}
	return time.Duration(v.n) * 100, true
}

// Time reads a DateTime as a UTC time.
func (v Value) Time() (time.Time, bool) {
	if v.tag != TagDateTime {
		return time.Time{}, false
	}
	unixTicks := v.n - epochTicks
	seconds := unixTicks / ticksPerSecond
	remainder := unixTicks % ticksPerSecond
	if remainder < 0 {
		seconds--
		remainder += ticksPerSecond
	}
	return time.Unix(seconds, remainder*100).UTC(), true
}

func (v Value) Point3() (Point3, bool) {
	switch v.tag {
	case TagPoint3:
		return Point3{v.p[0], v.p[1], v.p[2]}, true
	case TagPoint2:
		return Point3{X: v.p[0], Y: v.p[1]}, true
	}
	return Point3{}, false
}

func (v Value) Point2() (Point2, bool) {
	if v.tag != TagPoint2 {
		return Point2{}, false
	}
	return Point2{v.p[0], v.p[1]}, true
}

// Map reads a Dictionary. The map is shared with v.
func (v Value) Map() (Map, bool) {
	if v.tag != TagDictionary {
		return nil, false
	}
	return v.m, true
}

// Items reads an Array. The slice is shared with v.
func (v Value) Items() ([]Value, bool) {
	if v.tag != TagArray {
		return nil, false
	}
	return v.items, true
}

// ElemTag returns the element tag of an Array value.
func (v Value) ElemTag() Tag { return v.elem }

// Equal compares structurally. Compressed values equal their plain
// counterparts, dictionaries compare by key set, arrays element-wise,
// and points within a small distance.
func (v Value) Equal(o Value) bool {
	a, b := v.plainTag(), o.plainTag()
	if a != b {
		return false
	}
	switch a {
	case TagNull:
		return true
	case TagFloat, TagDouble:
		return v.f == o.f || math.IsNaN(v.f) && math.IsNaN(o.f)
	case TagKey, TagString:
		return v.s == o.s
	case TagByteArray, TagDecimal, TagGuid:
		return bytes.Equal(v.b, o.b)
	case TagPoint3:
		p, _ := v.Point3()
		q, _ := o.Point3()
		return p.Distance(q) < pointTolerance
	case TagPoint2:
		p, _ := v.Point2()
		q, _ := o.Point2()
		return p.Distance(q) < pointTolerance
	case TagDictionary:
		return v.m.Equal(o.m)
	case TagArray:
		if len(v.items) != len(o.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(o.items[i]) {
				return false
			}
		}
		return true
	}
	return v.n == o.n
}

func (v Value) plainTag() Tag {
	switch v.tag {
	case TagCompressedString:
		return TagString
	case TagCompressedByteArray:
		return TagByteArray
	}
	return v.tag
}

// String formats v for logs.
func (v Value) String() string {
	switch v.tag {
	case TagNull:
		return "null"
	case TagBool:
		return strconv.FormatBool(v.n != 0)
	case TagUInt64:
		return strconv.FormatUint(uint64(v.n), 10)
	case TagFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 32)
	case TagDouble:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case TagKey, TagString, TagCompressedString:
		return strconv.Quote(v.s)
	case TagByteArray, TagCompressedByteArray:
		return fmt.Sprintf("bytes[%d]", len(v.b))
	case TagDecimal:
		return fmt.Sprintf("decimal(%x)", v.b)
	case TagGuid:
		id, _ := v.Guid()
		return id.String()
	case TagTimeSpan:
		d, _ := v.Duration()
		return d.String()
	case TagDateTime:
		t, _ := v.Time()
		return t.Format(time.RFC3339Nano)
	case TagPoint3:
		return fmt.Sprintf("(%g, %g, %g)", v.p[0], v.p[1], v.p[2])
	case TagPoint2:
		return fmt.Sprintf("(%g, %g)", v.p[0], v.p[1])
	case TagDictionary:
		return v.m.String()
	case TagArray:
		parts := make([]string, len(v.items))
		for i, item := range v.items {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return strconv.FormatInt(v.n, 10)
}
