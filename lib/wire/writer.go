// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

const maxKeyLength = 255

// Writer appends wire-encoded data to a buffer. The first error sticks:
// later writes are ignored and Err reports it.
type Writer struct {
	buf []byte
	err error
}

// NewWriter returns a Writer appending to buf.
func NewWriter(buf []byte) *Writer {
	return &Writer{buf: buf}
}

// Bytes returns the encoded data.
func (w *Writer) Bytes() []byte { return w.buf }

// Err returns the first error encountered.
func (w *Writer) Err() error { return w.err }

func (w *Writer) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

func (w *Writer) PutByte(b byte) {
	w.buf = append(w.buf, b)
}

func (w *Writer) PutTag(t Tag) {
	w.buf = append(w.buf, byte(t))
}

func (w *Writer) PutInt16(i int16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, uint16(i))
}

func (w *Writer) PutInt32(i int32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(i))
}

func (w *Writer) PutInt64(i int64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, uint64(i))
}

func (w *Writer) PutFloat32(f float32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, math.Float32bits(f))
}

func (w *Writer) PutFloat64(f float64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, math.Float64bits(f))
}

// PutRaw appends data without a length prefix.
func (w *Writer) PutRaw(data []byte) {
	w.buf = append(w.buf, data...)
}

// PutKey writes k as a one-byte length and its ASCII bytes.
func (w *Writer) PutKey(k Key) {
	if len(k) > maxKeyLength {
		w.fail(fmt.Errorf("wire: key %.32q... is %d bytes, limit %d", string(k), len(k), maxKeyLength))
		return
	}
	for i := 0; i < len(k); i++ {
		if k[i] >= 0x80 {
			w.fail(fmt.Errorf("wire: key %q is not ASCII", string(k)))
			return
		}
	}
	w.buf = append(w.buf, byte(len(k)))
	w.buf = append(w.buf, k...)
}

// PutBlob writes an int32 length followed by data.
func (w *Writer) PutBlob(data []byte) {
	if len(data) > math.MaxInt32 {
		w.fail(fmt.Errorf("wire: blob of %d bytes exceeds int32 length", len(data)))
		return
	}
	w.PutInt32(int32(len(data)))
	w.buf = append(w.buf, data...)
}

// PutValue writes v's tag followed by its body.
func (w *Writer) PutValue(v Value) {
	w.PutTag(v.tag)
	w.PutBody(v)
}

// PutMap writes a dictionary body: the entry count, then each entry's
// key, tag and body. Keys are written in sorted order.
func (w *Writer) PutMap(m Map) {
	if len(m) > math.MaxInt32 {
		w.fail(fmt.Errorf("wire: dictionary of %d entries exceeds int32 count", len(m)))
		return
	}
	w.PutInt32(int32(len(m)))
	for _, key := range m.Keys() {
		w.PutKey(key)
		w.PutValue(m[key])
	}
}

// PutBody writes v's body without its tag.
func (w *Writer) PutBody(v Value) {
	switch v.tag {
	case TagNull:
	case TagBool, TagByte, TagSByte:
		w.PutByte(byte(v.n))
	case TagChar, TagInt16, TagUInt16:
		w.PutInt16(int16(v.n))
	case TagInt32, TagUInt32:
		w.PutInt32(int32(v.n))
	case TagInt64, TagUInt64, TagTimeSpan, TagDateTime:
		w.PutInt64(v.n)
	case TagFloat:
		w.PutFloat32(float32(v.f))
	case TagDouble:
		w.PutFloat64(v.f)
	case TagDecimal, TagGuid:
		var fixed [16]byte
		copy(fixed[:], v.b)
		w.PutRaw(fixed[:])
	case TagKey:
		w.PutKey(Key(v.s))
	case TagString:
		w.PutBlob([]byte(v.s))
	case TagByteArray:
		w.PutBlob(v.b)
	case TagCompressedString, TagCompressedByteArray:
		plain := v.b
		if v.tag == TagCompressedString {
			plain = []byte(v.s)
		}
		packed, err := compress(plain)
		if err != nil {
			w.fail(err)
			return
		}
		w.PutBlob(packed)
	case TagPoint3:
		w.PutFloat32(v.p[0])
		w.PutFloat32(v.p[1])
		w.PutFloat32(v.p[2])
	case TagPoint2:
		w.PutFloat32(v.p[0])
		w.PutFloat32(v.p[1])
	case TagDictionary:
		w.PutMap(v.m)
	case TagArray:
		w.putArray(v)
	default:
		w.fail(fmt.Errorf("wire: cannot encode %v", v.tag))
	}
}

func (w *Writer) putArray(v Value) {
	if len(v.items) > math.MaxInt32 {
		w.fail(fmt.Errorf("wire: array of %d elements exceeds int32 count", len(v.items)))
		return
	}
	elem := v.elem
	if elem == TagNull && len(v.items) == 0 {
		elem = TagObject
	}
	w.PutTag(elem)
	w.PutInt32(int32(len(v.items)))
	for i, item := range v.items {
		if elem == TagObject {
			w.PutValue(item)
			continue
		}
		if item.tag != elem {
			w.fail(fmt.Errorf("wire: array element %d is %v, want %v", i, item.tag, elem))
			return
		}
		w.PutBody(item)
	}
}

// Encode writes m as a dictionary body.
func Encode(m Map) ([]byte, error) {
	w := NewWriter(nil)
	w.PutMap(m)
	if w.err != nil {
		return nil, w.err
	}
	return w.buf, nil
}

// AppendValue appends v's tag and body to dst.
func AppendValue(dst []byte, v Value) ([]byte, error) {
	w := NewWriter(dst)
	w.PutValue(v)
	if w.err != nil {
		return dst, w.err
	}
	return w.buf, nil
}
