// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package room

import (
	"github.com/bureau-foundation/loadbalancer/lib/props"
	"github.com/bureau-foundation/loadbalancer/lib/protocol"
	"github.com/bureau-foundation/loadbalancer/lib/wire"
)

// Sender delivers an event to one player's connection. *rpc.Peer
// satisfies it on a Game host. Directory rooms on Jump and the client
// model keep players without a sender.
type Sender interface {
	RaiseEventWith(name wire.Key, v any) error
}

// Player is a member of a room. It refers to its room by id; mutations
// that notify other players go through the owning [Room].
type Player struct {
	id         string
	roomID     string
	sender     Sender
	properties *props.Bag
}

func (p *Player) ID() string     { return p.id }
func (p *Player) RoomID() string { return p.roomID }
func (p *Player) Sender() Sender { return p.sender }

// Properties is the player's live property bag. Writing to it directly
// bypasses observers and notifications.
func (p *Player) Properties() *props.Bag { return p.properties }

// IsHost reports whether the player currently holds the IsHost flag.
func (p *Player) IsHost() bool {
	host, _ := p.properties.Bool(protocol.KeyIsHost)
	return host
}

// Spec is the player's wire description with a copy of its properties.
func (p *Player) Spec() protocol.PlayerSpec {
	return protocol.PlayerSpec{PlayerID: p.id, PlayerProperties: p.properties.Snapshot()}
}

// Object is a tagged, player-owned entity in a room. The OwnerId
// property names the player whose departure destroys it; HostId names
// the player simulating it.
type Object struct {
	id         string
	roomID     string
	tag        string
	properties *props.Bag
}

func (o *Object) ID() string             { return o.id }
func (o *Object) RoomID() string         { return o.roomID }
func (o *Object) Tag() string            { return o.tag }
func (o *Object) Properties() *props.Bag { return o.properties }

// OwnerID returns the OwnerId property, or "" when unset.
func (o *Object) OwnerID() string {
	owner, _ := o.properties.Str(protocol.KeyOwnerID)
	return owner
}

// HostID returns the HostId property, or "" when unset.
func (o *Object) HostID() string {
	host, _ := o.properties.Str(protocol.KeyHostID)
	return host
}

func (o *Object) Spec() protocol.ObjectSpec {
	return protocol.ObjectSpec{ObjectID: o.id, Tag: o.tag, ObjectProperties: o.properties.Snapshot()}
}
