// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import "github.com/bureau-foundation/loadbalancer/lib/wire"

// Authentication parameters and claims.
const (
	KeyUserName   wire.Key = "UserName"
	KeyPassword   wire.Key = "Password"
	KeyUserID     wire.Key = "UserId"
	KeyLanguageID wire.Key = "LanguageId"
)

// Player properties.
const (
	KeyNickname      wire.Key = "Nickname"
	KeyIsHost        wire.Key = "IsHost"
	KeyLevel         wire.Key = "Level"
	KeyPosition      wire.Key = "Position"
	KeyRotation      wire.Key = "Rotation"
	KeyMoveDirection wire.Key = "MoveDirection"
	KeyIsSprint      wire.Key = "IsSprint"
	KeyIsJump        wire.Key = "IsJump"
)

// Room properties.
const (
	KeyMaxPlayers wire.Key = "MaxPlayers"
	KeyIsPrivate  wire.Key = "IsPrivate"
	KeySceneName  wire.Key = "SceneName"
)

// Room object properties. Position and Rotation are shared with players.
const (
	KeyCreatorID       wire.Key = "CreatorId"
	KeyOwnerID         wire.Key = "OwnerId"
	KeyHostID          wire.Key = "HostId"
	KeyName            wire.Key = "Name"
	KeyVelocity        wire.Key = "Velocity"
	KeyAngularVelocity wire.Key = "AngularVelocity"
)

// Room event parameters.
const (
	KeyObjectID wire.Key = "ObjectId"
	KeyForce    wire.Key = "Force"
	KeyTimes    wire.Key = "Times"
	KeyInterval wire.Key = "Interval"
)

// Service properties a Jump advertises to Auth and a Game host to Jump.
const (
	KeyRegion    wire.Key = "Region"
	KeyTitleID   wire.Key = "TitleId"
	KeyVersion   wire.Key = "Version"
	KeyLoadLevel wire.Key = "LoadLevel"
)

// DefaultMaxPlayers is the capacity a Game host gives every new room.
const DefaultMaxPlayers = 10

// DefaultPlayerLevel is the Level a Game host gives every new player.
const DefaultPlayerLevel = 10

// BaseRoomKeys are the room properties Jump keeps in its directory.
var BaseRoomKeys = []wire.Key{KeyMaxPlayers, KeyIsPrivate, KeySceneName}

// BasePlayerKeys are the player properties Jump keeps in its directory.
var BasePlayerKeys = []wire.Key{KeyUserID, KeyNickname}

// Extract returns the entries of m whose keys are listed, skipping
// absent ones. A nil map yields an empty one.
func Extract(m wire.Map, keys []wire.Key) wire.Map {
	out := make(wire.Map, len(keys))
	for _, key := range keys {
		if value, ok := m[key]; ok {
			out[key] = value
		}
	}
	return out
}
