// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package wire implements the binary value format spoken between
// clients, Auth, Jump and Game services.
//
// Every value on the wire is a one-byte [Tag] followed by a body whose
// shape the tag fixes. Parameters travel as a dictionary: an int32
// entry count followed by (key, tag, body) triples, where a key is a
// short ASCII string with a one-byte length prefix. All integers are
// little-endian.
//
// In memory a value is a [Value], a tagged union over the tag table.
// There is no interface{} escape hatch: a Value is always one of the
// tags, and accessors convert between numeric widths so a handler that
// wants an int64 can read an Int32 or a Byte without caring which width
// the sender chose.
//
//	params := wire.Map{
//		"RoomId":     wire.String("lobby"),
//		"MaxPlayers": wire.Int32(8),
//	}
//	data, err := wire.Encode(params)
//	...
//	decoded, err := wire.Decode(data)
//	max, _ := decoded.Int("MaxPlayers")
//
// Every tag has a skip routine, so [Lookup] can find one entry of an
// encoded dictionary without materializing the rest.
//
// [Marshal] and [Unmarshal] map structs to and from a [Map]. Exported
// fields are visited in declaration order; `wire:"Name"` renames the
// key, `wire:"-"` excludes the field, and `wire:"Name,compress"` writes
// strings and byte slices in their gzip-compressed form. A field that
// cannot be converted produces a [*MappingError] whose Path names the
// offending field through every enclosing struct and slice index.
package wire
