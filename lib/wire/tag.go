// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import "strconv"

// Tag identifies the type of an encoded value.
type Tag byte

const (
	TagNull                Tag = 0
	TagBool                Tag = 1
	TagChar                Tag = 2
	TagByte                Tag = 3
	TagSByte               Tag = 4
	TagInt16               Tag = 5
	TagUInt16              Tag = 6
	TagFloat               Tag = 7
	TagInt32               Tag = 8
	TagUInt32              Tag = 9
	TagDouble              Tag = 10
	TagInt64               Tag = 11
	TagUInt64              Tag = 12
	TagDecimal             Tag = 13
	TagKey                 Tag = 21
	TagGuid                Tag = 22
	TagTimeSpan            Tag = 23
	TagDateTime            Tag = 24
	TagString              Tag = 31
	TagCompressedString    Tag = 32
	TagByteArray           Tag = 33
	TagCompressedByteArray Tag = 34
	TagObject              Tag = 41
	TagArray               Tag = 42
	TagDictionary          Tag = 43
	TagPoint3              Tag = 101
	TagPoint2              Tag = 102
)

var tagNames = map[Tag]string{
	TagNull:                "Null",
	TagBool:                "Bool",
	TagChar:                "Char",
	TagByte:                "Byte",
	TagSByte:               "SByte",
	TagInt16:               "Int16",
	TagUInt16:              "UInt16",
	TagFloat:               "Float",
	TagInt32:               "Int32",
	TagUInt32:              "UInt32",
	TagDouble:              "Double",
	TagInt64:               "Int64",
	TagUInt64:              "UInt64",
	TagDecimal:             "Decimal",
	TagKey:                 "Key",
	TagGuid:                "Guid",
	TagTimeSpan:            "TimeSpan",
	TagDateTime:            "DateTime",
	TagString:              "String",
	TagCompressedString:    "CompressedString",
	TagByteArray:           "ByteArray",
	TagCompressedByteArray: "CompressedByteArray",
	TagObject:              "Object",
	TagArray:               "Array",
	TagDictionary:          "Dictionary",
	TagPoint3:              "Point3",
	TagPoint2:              "Point2",
}

func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return "Tag(" + strconv.Itoa(int(t)) + ")"
}

// Known reports whether t is in the tag table.
func (t Tag) Known() bool {
	_, ok := tagNames[t]
	return ok
}

// fixedSize returns the body size of fixed-width tags, or -1 for tags
// whose body carries its own length.
func (t Tag) fixedSize() int {
	switch t {
	case TagNull:
		return 0
	case TagBool, TagByte, TagSByte:
		return 1
	case TagChar, TagInt16, TagUInt16:
		return 2
	case TagFloat, TagInt32, TagUInt32:
		return 4
	case TagDouble, TagInt64, TagUInt64, TagTimeSpan, TagDateTime:
		return 8
	case TagPoint2:
		return 8
	case TagPoint3:
		return 12
	case TagDecimal, TagGuid:
		return 16
	}
	return -1
}

func (t Tag) integral() bool {
	switch t {
	case TagBool, TagChar, TagByte, TagSByte, TagInt16, TagUInt16,
		TagInt32, TagUInt32, TagInt64, TagUInt64:
		return true
	}
	return false
}

func (t Tag) floating() bool {
	return t == TagFloat || t == TagDouble
}
