// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"github.com/bureau-foundation/loadbalancer/lib/endpoint"
	"github.com/bureau-foundation/loadbalancer/lib/wire"
)

// AuthenticateParams is accepted by every tier. Provider "Test" reads
// UserName from Params; provider "Token" reads Token.
type AuthenticateParams struct {
	Provider string
	Token    string
	Params   wire.Map
}

type AuthenticateResult struct {
	AuthToken string
}

// ListJumpServicesParams filters Jump services by their advertised
// properties. Empty fields match anything.
type ListJumpServicesParams struct {
	Region  string
	TitleID string `wire:"TitleId"`
	Version string
}

type ListJumpServicesResult struct {
	Endpoints []endpoint.Endpoint
}

// SelectClosestServiceResult is produced locally by the client.
type SelectClosestServiceResult struct {
	ServiceEndpoint endpoint.Endpoint
}

// AddServiceParams registers the sender as a service: a Jump on Auth or
// a Game host on Jump.
type AddServiceParams struct {
	ServiceEndpoint   endpoint.Endpoint
	ServiceProperties wire.Map
}

// UpdateServiceParams replaces some of a registered service's
// properties.
type UpdateServiceParams struct {
	ServiceProperties wire.Map
}

type FindRoomParams struct {
	TitleID        string `wire:"TitleId"`
	Version        string
	RoomID         string `wire:"RoomId"`
	RoomProperties wire.Map
	PlayerIDs      []string `wire:"PlayerIds"`
}

// RoomLocator tells a client where to create or join a room.
type RoomLocator struct {
	ServiceEndpoint endpoint.Endpoint
	RoomID          string `wire:"RoomId"`
	RoomProperties  wire.Map
	IsExistingRoom  bool
}

type FindRoomResult struct {
	Rooms []RoomLocator
}

type FindServerParams struct {
	TitleID        string `wire:"TitleId"`
	Version        string
	RoomProperties wire.Map
}

type FindServerResult struct {
	Room RoomLocator
}

// ObjectSpec describes one room object in snapshots and spawn requests.
type ObjectSpec struct {
	ObjectID         string `wire:"ObjectId"`
	Tag              string
	ObjectProperties wire.Map
}

// PlayerSpec describes one player in snapshots.
type PlayerSpec struct {
	PlayerID         string `wire:"PlayerId"`
	PlayerProperties wire.Map
}

type CreateRoomParams struct {
	RoomID           string `wire:"RoomId"`
	RoomProperties   wire.Map
	PlayerID         string `wire:"PlayerId"`
	PlayerProperties wire.Map
	RoomObjects      []ObjectSpec
}

// CreateRoomResult is the room as created, with the properties the
// host added.
type CreateRoomResult struct {
	RoomID           string `wire:"RoomId"`
	RoomProperties   wire.Map
	PlayerID         string `wire:"PlayerId"`
	PlayerProperties wire.Map
	RoomObjects      []ObjectSpec
}

type JoinRoomParams struct {
	RoomID           string `wire:"RoomId"`
	PlayerID         string `wire:"PlayerId"`
	PlayerProperties wire.Map
}

// JoinRoomResult is a snapshot of the joined room. RoomPlayers excludes
// the joining player, who is described by PlayerID and
// PlayerProperties.
type JoinRoomResult struct {
	RoomID           string `wire:"RoomId"`
	RoomProperties   wire.Map
	RoomObjects      []ObjectSpec
	RoomPlayers      []PlayerSpec
	PlayerID         string `wire:"PlayerId"`
	PlayerProperties wire.Map
}

type LeaveRoomParams struct {
	RoomID   string `wire:"RoomId"`
	PlayerID string `wire:"PlayerId"`
}

type UpdateRoomParams struct {
	RoomID         string `wire:"RoomId"`
	RoomProperties wire.Map
}

type UpdatePlayerParams struct {
	RoomID           string `wire:"RoomId"`
	PlayerID         string `wire:"PlayerId"`
	PlayerProperties wire.Map
}

// RoomEvent is relayed between the players of a room. A sender sets
// PlayerID to address one player, or leaves it empty for everyone; each
// delivered copy carries the recipient's id and the SenderID the host
// filled in.
type RoomEvent struct {
	SenderID   string `wire:"SenderId"`
	RoomID     string `wire:"RoomId"`
	PlayerID   string `wire:"PlayerId"`
	Name       wire.Key
	Parameters wire.Map
}

type SpawnObjectParams struct {
	RoomID           string `wire:"RoomId"`
	ObjectID         string `wire:"ObjectId"`
	Tag              string
	ObjectProperties wire.Map
}

type SpawnObjectResult struct {
	RoomID           string `wire:"RoomId"`
	ObjectID         string `wire:"ObjectId"`
	Tag              string
	ObjectProperties wire.Map
}

type UpdateObjectParams struct {
	RoomID           string `wire:"RoomId"`
	ObjectID         string `wire:"ObjectId"`
	ObjectProperties wire.Map
}

type DestroyObjectParams struct {
	RoomID   string `wire:"RoomId"`
	ObjectID string `wire:"ObjectId"`
}

// PublishRoomParams is the full directory entry of a room, sent by a
// Game host to Jump after (re)connecting or when an incremental update
// was rejected.
type PublishRoomParams struct {
	RoomID         string `wire:"RoomId"`
	RoomProperties wire.Map
	RoomPlayers    []PlayerSpec
}
