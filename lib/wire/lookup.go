// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import "fmt"

// Lookup scans an encoded dictionary body for key and decodes only that
// entry. Entries before it are skipped; entries after it are not read.
// The boolean is false when the key is absent.
func Lookup(data []byte, key Key) (Value, bool, error) {
	r := NewReader(data)
	count, err := r.ReadInt32()
	if err != nil {
		return Value{}, false, err
	}
	if count < 0 {
		return Value{}, false, fmt.Errorf("wire: negative dictionary count %d", count)
	}
	for range count {
		entry, err := r.ReadKey()
		if err != nil {
			return Value{}, false, err
		}
		if entry == key {
			value, err := r.ReadValue()
			if err != nil {
				return Value{}, false, fmt.Errorf("reading %q: %w", key, err)
			}
			return value, true, nil
		}
		if err := r.SkipValue(); err != nil {
			return Value{}, false, fmt.Errorf("skipping %q: %w", entry, err)
		}
	}
	return Value{}, false, nil
}

// KeyValueReader answers repeated single-key lookups against one encoded
// dictionary, remembering the offset of every entry it has passed.
type KeyValueReader struct {
	data    []byte
	count   int
	seen    int
	offsets map[Key]int
	reader  *Reader
}

// NewKeyValueReader reads the entry count of an encoded dictionary body.
func NewKeyValueReader(data []byte) (*KeyValueReader, error) {
	r := NewReader(data)
	count, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, fmt.Errorf("wire: negative dictionary count %d", count)
	}
	return &KeyValueReader{
		data:    data,
		count:   int(count),
		offsets: make(map[Key]int),
		reader:  r,
	}, nil
}

// Len returns the number of entries in the dictionary.
func (kv *KeyValueReader) Len() int { return kv.count }

// Get decodes the value stored under key.
func (kv *KeyValueReader) Get(key Key) (Value, bool, error) {
	if offset, ok := kv.offsets[key]; ok {
		value, _, err := ReadValue(kv.data[offset:])
		return value, err == nil, err
	}
	for kv.seen < kv.count {
		entry, err := kv.reader.ReadKey()
		if err != nil {
			return Value{}, false, err
		}
		offset := kv.reader.off
		if err := kv.reader.SkipValue(); err != nil {
			return Value{}, false, fmt.Errorf("skipping %q: %w", entry, err)
		}
		kv.seen++
		kv.offsets[entry] = offset
		if entry == key {
			value, _, err := ReadValue(kv.data[offset:])
			return value, err == nil, err
		}
	}
	return Value{}, false, nil
}
