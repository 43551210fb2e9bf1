// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import "github.com/bureau-foundation/loadbalancer/lib/wire"

// Auth operations.
const (
	Authenticate       wire.Key = "Authenticate"
	ListJumpServices   wire.Key = "ListJumpServices"
	OnJumpServiceAdded wire.Key = "OnJumpServiceAdded"
)

// Jump operations. The On* names below FindServer are raised by Game
// hosts over their link to Jump.
const (
	FindRoom             wire.Key = "FindRoom"
	FindServer           wire.Key = "FindServer"
	OnGameServiceAdded   wire.Key = "OnGameServiceAdded"
	OnGameServiceUpdated wire.Key = "OnGameServiceUpdated"
	OnRoomPublished      wire.Key = "OnRoomPublished"
	OnRoomCreated        wire.Key = "OnRoomCreated"
)

// Game operations called by clients.
const (
	CreateRoom     wire.Key = "CreateRoom"
	JoinRoom       wire.Key = "JoinRoom"
	UpdateRoom     wire.Key = "UpdateRoom"
	UpdatePlayer   wire.Key = "UpdatePlayer"
	RaiseRoomEvent wire.Key = "RaiseRoomEvent"
	SpawnObject    wire.Key = "SpawnObject"
	UpdateObject   wire.Key = "UpdateObject"
	DestroyObject  wire.Key = "DestroyObject"
)

// Room notifications. Game raises them to clients; the first four are
// also the S2S calls a Game host makes to Jump.
const (
	OnRoomUpdated     wire.Key = "OnRoomUpdated"
	OnPlayerUpdated   wire.Key = "OnPlayerUpdated"
	OnRoomJoined      wire.Key = "OnRoomJoined"
	OnRoomLeaved      wire.Key = "OnRoomLeaved"
	OnRoomEventRaised wire.Key = "OnRoomEventRaised"
	OnObjectSpawned   wire.Key = "OnObjectSpawned"
	OnObjectUpdated   wire.Key = "OnObjectUpdated"
	OnObjectDestroyed wire.Key = "OnObjectDestroyed"
)

// Debug operations that toggle a Game host's link to Jump.
const (
	OnJumpServiceConnectEnabled  wire.Key = "OnJumpServiceConnectEnabled"
	OnJumpServiceConnectDisabled wire.Key = "OnJumpServiceConnectDisabled"
)

// Room event names.
const (
	ApplyForce wire.Key = "ApplyForce"
)

// Authentication providers.
const (
	ProviderTest  = "Test"
	ProviderToken = "Token"
)

// Statuses. A status is shared by every tier that reports it; the
// common framework statuses live in package rpc.
const (
	StatusProviderNotSupported wire.Key = "Error_ProviderNotSupported"
	StatusParameterMissed      wire.Key = "Error_ParameterMissed"
	StatusNotAuthenticated     wire.Key = "Error_NotAuthenticated"
	StatusTokenInvalid         wire.Key = "Error_TokenInvalid"
	StatusJumpServerNotFound   wire.Key = "Error_JumpServerNotFound"
	StatusWrongTitle           wire.Key = "Error_WrongTitle"
	StatusWrongVersion         wire.Key = "Error_WrongVersion"
	StatusServerFull           wire.Key = "Error_ServerFull"
	StatusRoomNotFound         wire.Key = "Error_RoomNotFound"
	StatusRoomAlreadyCreated   wire.Key = "Error_RoomAlreadyCreated"
	StatusRoomFull             wire.Key = "Error_RoomFull"
	StatusPlayerNotFound       wire.Key = "Error_PlayerNotFound"
	StatusPlayerAlreadyJoined  wire.Key = "Error_PlayerAlreadyJoined"
	StatusObjectAlreadySpawned wire.Key = "Error_ObjectAlreadySpawned"
	StatusObjectNotFound       wire.Key = "Error_ObjectNotFound"
)
