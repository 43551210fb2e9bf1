// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import "fmt"

// Skip advances past the body of a value with the given tag without
// decoding it.
func (r *Reader) Skip(tag Tag) error {
	if size := tag.fixedSize(); size >= 0 {
		_, err := r.next(size)
		return err
	}
	switch tag {
	case TagKey:
		_, err := r.ReadKey()
		return err
	case TagString, TagByteArray, TagCompressedString, TagCompressedByteArray:
		_, err := r.ReadBlob()
		return err
	case TagObject:
		if err := r.enter(); err != nil {
			return err
		}
		defer r.leave()
		return r.SkipValue()
	case TagArray:
		return r.skipArray()
	case TagDictionary:
		return r.skipMap()
	}
	return fmt.Errorf("wire: cannot skip %v", tag)
}

// SkipValue advances past a tag and its body.
func (r *Reader) SkipValue() error {
	tag, err := r.ReadTag()
	if err != nil {
		return err
	}
	return r.Skip(tag)
}

func (r *Reader) skipArray() error {
	if err := r.enter(); err != nil {
		return err
	}
	defer r.leave()

	elem, err := r.ReadTag()
	if err != nil {
		return err
	}
	count, err := r.ReadInt32()
	if err != nil {
		return err
	}
	if count < 0 {
		return fmt.Errorf("wire: negative array count %d", count)
	}
	if size := elem.fixedSize(); size >= 0 {
		_, err := r.next(int(count) * size)
		return err
	}
	for range count {
		if elem == TagObject {
			err = r.SkipValue()
		} else {
			err = r.Skip(elem)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Reader) skipMap() error {
	if err := r.enter(); err != nil {
		return err
	}
	defer r.leave()

	count, err := r.ReadInt32()
	if err != nil {
		return err
	}
	if count < 0 {
		return fmt.Errorf("wire: negative dictionary count %d", count)
	}
	for range count {
		if _, err := r.ReadKey(); err != nil {
			return err
		}
		if err := r.SkipValue(); err != nil {
			return err
		}
	}
	return nil
}
