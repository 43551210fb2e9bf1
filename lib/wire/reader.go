// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"unicode/utf8"
)

// ErrTruncated is returned when input ends in the middle of a value.
var ErrTruncated = errors.New("wire: truncated input")

// maxDepth bounds nesting of dictionaries and arrays.
const maxDepth = 64

// maxEmptyElements bounds the count of an array whose elements have no
// body, which the remaining input length cannot bound.
const maxEmptyElements = 1 << 16

// Reader decodes wire data from a byte slice.
type Reader struct {
	data  []byte
	off   int
	depth int
}

// NewReader returns a Reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Len returns the number of unread bytes.
func (r *Reader) Len() int { return len(r.data) - r.off }

// Rest returns the unread bytes without consuming them.
func (r *Reader) Rest() []byte { return r.data[r.off:] }

func (r *Reader) next(n int) ([]byte, error) {
	if n < 0 || r.Len() < n {
		return nil, ErrTruncated
	}
	chunk := r.data[r.off : r.off+n]
	r.off += n
	return chunk, nil
}

func (r *Reader) ReadByte() (byte, error) {
	chunk, err := r.next(1)
	if err != nil {
		return 0, err
	}
	return chunk[0], nil
}

func (r *Reader) ReadTag() (Tag, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	tag := Tag(b)
	if !tag.Known() {
		return 0, fmt.Errorf("wire: unknown tag %d at offset %d", b, r.off-1)
	}
	return tag, nil
}

func (r *Reader) ReadInt16() (int16, error) {
	chunk, err := r.next(2)
	if err != nil {
		return 0, err
	}
	return int16(binary.LittleEndian.Uint16(chunk)), nil
}

func (r *Reader) ReadInt32() (int32, error) {
	chunk, err := r.next(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(chunk)), nil
}

func (r *Reader) ReadInt64() (int64, error) {
	chunk, err := r.next(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(chunk)), nil
}

func (r *Reader) ReadFloat32() (float32, error) {
	bits, err := r.ReadInt32()
	return math.Float32frombits(uint32(bits)), err
}

func (r *Reader) ReadFloat64() (float64, error) {
	bits, err := r.ReadInt64()
	return math.Float64frombits(uint64(bits)), err
}

// ReadKey reads a one-byte length and that many ASCII bytes.
func (r *Reader) ReadKey() (Key, error) {
	length, err := r.ReadByte()
	if err != nil {
		return "", err
	}
	chunk, err := r.next(int(length))
	if err != nil {
		return "", err
	}
	return Key(chunk), nil
}

// ReadBlob reads an int32 length and that many bytes. The returned slice
// aliases the input.
func (r *Reader) ReadBlob() ([]byte, error) {
	length, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	if length < 0 {
		return nil, fmt.Errorf("wire: negative length %d", length)
	}
	return r.next(int(length))
}

// ReadValue reads a tag and its body.
func (r *Reader) ReadValue() (Value, error) {
	tag, err := r.ReadTag()
	if err != nil {
		return Value{}, err
	}
	return r.ReadBody(tag)
}

// ReadMap reads a dictionary body.
func (r *Reader) ReadMap() (Map, error) {
	if err := r.enter(); err != nil {
		return nil, err
	}
	defer r.leave()

	count, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, fmt.Errorf("wire: negative dictionary count %d", count)
	}
	// Each entry is at least a key length byte and a tag.
	if int(count) > r.Len()/2 {
		return nil, ErrTruncated
	}
	m := make(Map, count)
	for range count {
		key, err := r.ReadKey()
		if err != nil {
			return nil, err
		}
		value, err := r.ReadValue()
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", key, err)
		}
		m[key] = value
	}
	return m, nil
}

// ReadBody reads the body of a value whose tag is already consumed.
func (r *Reader) ReadBody(tag Tag) (Value, error) {
	v := Value{tag: tag}
	switch tag {
	case TagNull:
	case TagBool, TagByte:
		b, err := r.ReadByte()
		if err != nil {
			return Value{}, err
		}
		v.n = int64(b)
	case TagSByte:
		b, err := r.ReadByte()
		if err != nil {
			return Value{}, err
		}
		v.n = int64(int8(b))
	case TagChar, TagUInt16:
		i, err := r.ReadInt16()
		if err != nil {
			return Value{}, err
		}
		v.n = int64(uint16(i))
	case TagInt16:
		i, err := r.ReadInt16()
		if err != nil {
			return Value{}, err
		}
		v.n = int64(i)
	case TagInt32:
		i, err := r.ReadInt32()
		if err != nil {
			return Value{}, err
		}
		v.n = int64(i)
	case TagUInt32:
		i, err := r.ReadInt32()
		if err != nil {
			return Value{}, err
		}
		v.n = int64(uint32(i))
	case TagInt64, TagUInt64, TagTimeSpan, TagDateTime:
		i, err := r.ReadInt64()
		if err != nil {
			return Value{}, err
		}
		v.n = i
	case TagFloat:
		f, err := r.ReadFloat32()
		if err != nil {
			return Value{}, err
		}
		v.f = float64(f)
	case TagDouble:
		f, err := r.ReadFloat64()
		if err != nil {
			return Value{}, err
		}
		v.f = f
	case TagDecimal, TagGuid:
		chunk, err := r.next(16)
		if err != nil {
			return Value{}, err
		}
		v.b = append([]byte(nil), chunk...)
	case TagKey:
		key, err := r.ReadKey()
		if err != nil {
			return Value{}, err
		}
		v.s = string(key)
	case TagString:
		blob, err := r.ReadBlob()
		if err != nil {
			return Value{}, err
		}
		if !utf8.Valid(blob) {
			return Value{}, errors.New("wire: string is not valid UTF-8")
		}
		v.s = string(blob)
	case TagByteArray:
		blob, err := r.ReadBlob()
		if err != nil {
			return Value{}, err
		}
		v.b = append([]byte{}, blob...)
	case TagCompressedString, TagCompressedByteArray:
		blob, err := r.ReadBlob()
		if err != nil {
			return Value{}, err
		}
		plain, err := decompress(blob)
		if err != nil {
			return Value{}, err
		}
		if tag == TagCompressedString {
			if !utf8.Valid(plain) {
				return Value{}, errors.New("wire: compressed string is not valid UTF-8")
			}
			v.s = string(plain)
		} else {
			v.b = plain
		}
	case TagPoint3, TagPoint2:
		components := 3
		if tag == TagPoint2 {
			components = 2
		}
		for i := range components {
			f, err := r.ReadFloat32()
			if err != nil {
				return Value{}, err
			}
			v.p[i] = f
		}
	case TagObject:
		// An object is a value carrying its own tag. It only appears
		// standalone from peers that box values; unwrap it.
		if err := r.enter(); err != nil {
			return Value{}, err
		}
		defer r.leave()
		return r.ReadValue()
	case TagDictionary:
		m, err := r.ReadMap()
		if err != nil {
			return Value{}, err
		}
		v.m = m
	case TagArray:
		return r.readArray()
	default:
		return Value{}, fmt.Errorf("wire: cannot decode %v", tag)
	}
	return v, nil
}

func (r *Reader) readArray() (Value, error) {
	if err := r.enter(); err != nil {
		return Value{}, err
	}
	defer r.leave()

	elem, err := r.ReadTag()
	if err != nil {
		return Value{}, err
	}
	count, err := r.ReadInt32()
	if err != nil {
		return Value{}, err
	}
	if count < 0 {
		return Value{}, fmt.Errorf("wire: negative array count %d", count)
	}
	if err := r.checkCount(elem, int(count)); err != nil {
		return Value{}, err
	}
	items := make([]Value, count)
	for i := range items {
		var item Value
		if elem == TagObject {
			item, err = r.ReadValue()
		} else {
			item, err = r.ReadBody(elem)
		}
		if err != nil {
			return Value{}, fmt.Errorf("reading element %d: %w", i, err)
		}
		items[i] = item
	}
	return Value{tag: TagArray, elem: elem, items: items}, nil
}

// checkCount rejects element counts the remaining input cannot hold, so
// a corrupt count cannot force a huge allocation.
func (r *Reader) checkCount(elem Tag, count int) error {
	minimum := elem.fixedSize()
	switch {
	case minimum == 0:
		if count > maxEmptyElements {
			return fmt.Errorf("wire: array of %d empty elements", count)
		}
		return nil
	case minimum < 0:
		// Every variable-size body is at least one byte.
		minimum = 1
	}
	if count > r.Len()/minimum {
		return ErrTruncated
	}
	return nil
}

func (r *Reader) enter() error {
	r.depth++
	if r.depth > maxDepth {
		return fmt.Errorf("wire: nesting deeper than %d", maxDepth)
	}
	return nil
}

func (r *Reader) leave() { r.depth-- }

// Decode reads a dictionary body. Trailing bytes are an error.
func Decode(data []byte) (Map, error) {
	r := NewReader(data)
	m, err := r.ReadMap()
	if err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("wire: %d trailing bytes after dictionary", r.Len())
	}
	return m, nil
}

// ReadValue decodes one tagged value from the front of data and reports
// how many bytes it consumed.
func ReadValue(data []byte) (Value, int, error) {
	r := NewReader(data)
	v, err := r.ReadValue()
	if err != nil {
		return Value{}, 0, err
	}
	return v, r.off, nil
}
