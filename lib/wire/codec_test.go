// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func sampleMap() Map {
	return Map{
		"Null":     Null(),
		"Bool":     Bool(true),
		"Char":     Char('x'),
		"Byte":     Byte(200),
		"SByte":    SByte(-5),
		"Int16":    Int16(-300),
		"UInt16":   UInt16(60000),
		"Float":    Float(1.5),
		"Int32":    Int32(-70000),
		"UInt32":   UInt32(4000000000),
		"Double":   Double(3.25),
		"Int64":    Int64(-1 << 40),
		"UInt64":   UInt64(1 << 63),
		"Decimal":  DecimalValue(Decimal{1, 2, 3}),
		"Key":      KeyValue("RoomId"),
		"Guid":     Guid(uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")),
		"TimeSpan": TimeSpan(90 * time.Second),
		"DateTime": DateTime(time.Date(2026, 3, 4, 5, 6, 7, 800, time.UTC)),
		"String":   String("héllo"),
		"Packed":   CompressedString(strings.Repeat("position ", 50)),
		"Bytes":    ByteArray([]byte{0, 1, 2, 255}),
		"PackedB":  CompressedByteArray(bytes.Repeat([]byte{7}, 1000)),
		"Point3":   Vector3(Point3{1, 2, 3}),
		"Point2":   Vector2(Point2{-1, 0.5}),
		"Nested": Dictionary(Map{
			"Inner": Array(Int32(1), Int32(2), Int32(3)),
			"Deep":  Dictionary(Map{"X": String("y")}),
		}),
		"Mixed":   Array(String("a"), Int32(1), Null(), Dictionary(Map{"K": Bool(false)})),
		"Players": Array(Dictionary(Map{"UserId": String("p1")}), Dictionary(Map{"UserId": String("p2")})),
		"Empty":   Array(),
		"Grid":    Array(Array(Byte(1)), Array(Byte(2), Byte(3))),
	}
}

func TestEncodeDecodeRoundtrip(t *testing.T) {
	original := sampleMap()
	data, err := Encode(original)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !decoded.Equal(original) {
		t.Fatalf("roundtrip mismatch:\n got  %v\n want %v", decoded, original)
	}
	for _, key := range original.Keys() {
		if !decoded[key].Equal(original[key]) {
			t.Errorf("%s: got %v, want %v", key, decoded[key], original[key])
		}
	}
}

func TestEncodeDeterministic(t *testing.T) {
	first, err := Encode(sampleMap())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	for range 5 {
		again, err := Encode(sampleMap())
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		// Compressed bodies are deterministic for identical input.
		if !bytes.Equal(first, again) {
			t.Fatal("encoding the same map twice produced different bytes")
		}
	}
}

func TestEncodeLayout(t *testing.T) {
	data, err := Encode(Map{"A": Int32(258)})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := []byte{
		1, 0, 0, 0, // count
		1, 'A', // key
		byte(TagInt32), 2, 1, 0, 0, // value
	}
	if !bytes.Equal(data, want) {
		t.Fatalf("layout = %v, want %v", data, want)
	}

	data, err = AppendValue(nil, Array(Byte(1), Byte(2)))
	if err != nil {
		t.Fatalf("AppendValue: %v", err)
	}
	want = []byte{byte(TagArray), byte(TagByte), 2, 0, 0, 0, 1, 2}
	if !bytes.Equal(data, want) {
		t.Fatalf("array layout = %v, want %v", data, want)
	}
}

func TestEncodeRejectsBadKeys(t *testing.T) {
	tests := []struct {
		name string
		key  Key
	}{
		{"too long", Key(strings.Repeat("k", 256))},
		{"non-ascii", Key("ключ")},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := Encode(Map{test.key: Null()}); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestDecodeTruncatedNeverPanics(t *testing.T) {
	data, err := Encode(sampleMap())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	for cut := range len(data) {
		if _, err := Decode(data[:cut]); err == nil {
			t.Fatalf("Decode of %d/%d bytes succeeded", cut, len(data))
		}
	}
}

func TestDecodeRejectsCorruptCounts(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"negative count", []byte{0xff, 0xff, 0xff, 0xff}},
		{"huge count", []byte{0xff, 0xff, 0xff, 0x7f}},
		{"unknown tag", []byte{1, 0, 0, 0, 1, 'A', 99}},
		{"huge array", []byte{1, 0, 0, 0, 1, 'A', byte(TagArray), byte(TagInt64), 0xff, 0xff, 0xff, 0x7f}},
		{"negative string", []byte{1, 0, 0, 0, 1, 'A', byte(TagString), 0xfe, 0xff, 0xff, 0xff}},
		{"trailing", []byte{0, 0, 0, 0, 9}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := Decode(test.data); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestDecodeTruncatedIsErrTruncated(t *testing.T) {
	_, err := Decode([]byte{1, 0})
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("err = %v, want ErrTruncated", err)
	}
}

func TestDecodeUnwrapsObject(t *testing.T) {
	data := []byte{1, 0, 0, 0, 1, 'A', byte(TagObject), byte(TagInt16), 7, 0}
	m, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := m["A"]; got.Tag() != TagInt16 || !got.Equal(Int16(7)) {
		t.Fatalf("A = %v (%v), want Int16 7", got, got.Tag())
	}
}

func TestSkipEveryTag(t *testing.T) {
	original := sampleMap()
	for _, key := range original.Keys() {
		value := original[key]
		t.Run(string(key), func(t *testing.T) {
			encoded, err := AppendValue(nil, value)
			if err != nil {
				t.Fatalf("AppendValue: %v", err)
			}
			encoded = append(encoded, 0xAB)
			r := NewReader(encoded)
			if err := r.SkipValue(); err != nil {
				t.Fatalf("SkipValue: %v", err)
			}
			if rest := r.Rest(); len(rest) != 1 || rest[0] != 0xAB {
				t.Fatalf("skip left %v, want the sentinel byte", rest)
			}
		})
	}
}

func TestSkipDictionaryUsesKeyLengths(t *testing.T) {
	// Read as an int32 blob length, the key prefix 3 'a' 'b' 'c' would
	// claim far more bytes than the input holds.
	encoded := []byte{byte(TagDictionary), 1, 0, 0, 0, 3, 'a', 'b', 'c', byte(TagBool), 1}
	r := NewReader(encoded)
	if err := r.SkipValue(); err != nil {
		t.Fatalf("SkipValue: %v", err)
	}
	if r.Len() != 0 {
		t.Fatalf("%d bytes left after skip", r.Len())
	}
}

func TestLookup(t *testing.T) {
	original := sampleMap()
	data, err := Encode(original)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	for _, key := range []Key{"Null", "Packed", "Nested", "Grid", "UInt64"} {
		value, ok, err := Lookup(data, key)
		if err != nil || !ok {
			t.Fatalf("Lookup(%s) = %v, %v", key, ok, err)
		}
		if !value.Equal(original[key]) {
			t.Errorf("Lookup(%s) = %v, want %v", key, value, original[key])
		}
	}
	if _, ok, err := Lookup(data, "Missing"); ok || err != nil {
		t.Fatalf("Lookup(Missing) = %v, %v", ok, err)
	}
}

func TestKeyValueReaderRevisitsEarlierKeys(t *testing.T) {
	data, err := Encode(Map{"A": Int32(1), "B": String("two"), "C": Bool(true)})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	reader, err := NewKeyValueReader(data)
	if err != nil {
		t.Fatalf("NewKeyValueReader: %v", err)
	}
	if reader.Len() != 3 {
		t.Fatalf("Len = %d, want 3", reader.Len())
	}
	for _, key := range []Key{"C", "A", "B", "C"} {
		value, ok, err := reader.Get(key)
		if err != nil || !ok {
			t.Fatalf("Get(%s) = %v, %v", key, ok, err)
		}
		if value.IsNull() {
			t.Fatalf("Get(%s) returned null", key)
		}
	}
	if _, ok, _ := reader.Get("D"); ok {
		t.Fatal("Get(D) found a missing key")
	}
}
