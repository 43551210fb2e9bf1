// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Map is a dictionary of wire values. Keys are unique; iteration order
// is irrelevant on the wire, and [Map.Keys] gives a sorted order where a
// deterministic one is needed.
type Map map[Key]Value

// Clone returns a shallow copy of m. Nested dictionaries are shared.
func (m Map) Clone() Map {
	if m == nil {
		return Map{}
	}
	return maps.Clone(m)
}

// Merge writes every entry of delta into m, last write wins.
func (m Map) Merge(delta Map) {
	maps.Copy(m, delta)
}

// Keys returns the keys of m in sorted order.
func (m Map) Keys() []Key {
	return slices.Sorted(maps.Keys(m))
}

// Has reports whether key is present, even with a Null value.
func (m Map) Has(key Key) bool {
	_, ok := m[key]
	return ok
}

// Equal compares key sets and values with [Value.Equal].
func (m Map) Equal(o Map) bool {
	if len(m) != len(o) {
		return false
	}
	for key, value := range m {
		other, ok := o[key]
		if !ok || !value.Equal(other) {
			return false
		}
	}
	return true
}

func (m Map) String() string {
	var builder strings.Builder
	builder.WriteByte('{')
	for i, key := range m.Keys() {
		if i > 0 {
			builder.WriteString(", ")
		}
		builder.WriteString(string(key))
		builder.WriteString(": ")
		builder.WriteString(m[key].String())
	}
	builder.WriteByte('}')
	return builder.String()
}

func (m Map) Bool(key Key) (bool, bool)              { return m[key].Bool() }
func (m Map) Int(key Key) (int64, bool)              { return m[key].Int() }
func (m Map) Float(key Key) (float64, bool)          { return m[key].Float() }
func (m Map) Str(key Key) (string, bool)             { return m[key].Str() }
func (m Map) Bytes(key Key) ([]byte, bool)           { return m[key].Bytes() }
func (m Map) Guid(key Key) (uuid.UUID, bool)         { return m[key].Guid() }
func (m Map) Duration(key Key) (time.Duration, bool) { return m[key].Duration() }
func (m Map) Time(key Key) (time.Time, bool)         { return m[key].Time() }
func (m Map) Point3(key Key) (Point3, bool)          { return m[key].Point3() }
func (m Map) Map(key Key) (Map, bool)                { return m[key].Map() }

// StringOr returns the string at key, or fallback when it is absent or
// not a string.
func (m Map) StringOr(key Key, fallback string) string {
	if s, ok := m.Str(key); ok {
		return s
	}
	return fallback
}

// IntOr returns the integer at key, or fallback.
func (m Map) IntOr(key Key, fallback int64) int64 {
	if i, ok := m.Int(key); ok {
		return i
	}
	return fallback
}

// BoolOr returns the boolean at key, or fallback.
func (m Map) BoolOr(key Key, fallback bool) bool {
	if b, ok := m.Bool(key); ok {
		return b
	}
	return fallback
}
