// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package room is the replicated state model shared by every tier: a
// room with its properties, its players and its objects.
//
// A Room owns id-keyed tables of players and objects and keeps their
// insertion order, so enumeration is deterministic. Every mutation
// takes two switches: raise runs the room's local observers with the
// applied change, and the [Recipients] selection decides which
// players' senders are told about it with the matching On*
// notification. Notifications are sent after the room lock is
// released, from a snapshot of the selected players.
//
// The Game host drives rooms from a per-room action queue. Jump keeps
// a directory copy of each published room with sender-less players,
// and the client SDK keeps a local model fed by notifications.
package room

import (
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/bureau-foundation/loadbalancer/lib/props"
	"github.com/bureau-foundation/loadbalancer/lib/protocol"
	"github.com/bureau-foundation/loadbalancer/lib/wire"
)

var (
	ErrPlayerExists   = errors.New("player already in room")
	ErrPlayerNotFound = errors.New("player not in room")
	ErrObjectExists   = errors.New("object already spawned")
	ErrObjectNotFound = errors.New("object not found")
)

// Room is safe for concurrent use. Observers run on the goroutine that
// made the change, without the room lock held.
type Room struct {
	id         string
	logger     *slog.Logger
	properties *props.Bag

	mu          sync.Mutex
	players     map[string]*Player
	playerOrder []string
	objects     map[string]*Object
	objectOrder []string
	observers   observers
}

type observers struct {
	propertiesChanged       []func(delta wire.Map)
	playerJoined            []func(*Player)
	playerLeft              []func(*Player)
	playerPropertiesChanged []func(*Player, wire.Map)
	objectSpawned           []func(*Object)
	objectDestroyed         []func(*Object)
	objectPropertiesChanged []func(*Object, wire.Map)
	eventReceived           []func(protocol.RoomEvent)
}

// New returns an empty room holding a copy of initial as its
// properties.
func New(id string, initial wire.Map, logger *slog.Logger) *Room {
	return &Room{
		id:         id,
		logger:     logger.With("room_id", id),
		properties: props.New(initial),
		players:    make(map[string]*Player),
		objects:    make(map[string]*Object),
	}
}

func (r *Room) ID() string { return r.id }

// Properties is the room's live property bag. Writing to it directly
// bypasses observers and notifications.
func (r *Room) Properties() *props.Bag { return r.properties }

// NewPlayer builds a player for this room. It is not a member until
// passed to AddPlayer.
func (r *Room) NewPlayer(id string, sender Sender, initial wire.Map) *Player {
	return &Player{id: id, roomID: r.id, sender: sender, properties: props.New(initial)}
}

// NewObject builds an object for this room. It is not spawned until
// passed to AddObject.
func (r *Room) NewObject(id, tag string, initial wire.Map) *Object {
	return &Object{id: id, roomID: r.id, tag: tag, properties: props.New(initial)}
}

// Observer registration. Observers run in registration order.

func (r *Room) OnPropertiesChanged(fn func(delta wire.Map)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers.propertiesChanged = append(r.observers.propertiesChanged, fn)
}

func (r *Room) OnPlayerJoined(fn func(*Player)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers.playerJoined = append(r.observers.playerJoined, fn)
}

func (r *Room) OnPlayerLeft(fn func(*Player)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers.playerLeft = append(r.observers.playerLeft, fn)
}

func (r *Room) OnPlayerPropertiesChanged(fn func(*Player, wire.Map)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers.playerPropertiesChanged = append(r.observers.playerPropertiesChanged, fn)
}

func (r *Room) OnObjectSpawned(fn func(*Object)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers.objectSpawned = append(r.observers.objectSpawned, fn)
}

func (r *Room) OnObjectDestroyed(fn func(*Object)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers.objectDestroyed = append(r.observers.objectDestroyed, fn)
}

func (r *Room) OnObjectPropertiesChanged(fn func(*Object, wire.Map)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers.objectPropertiesChanged = append(r.observers.objectPropertiesChanged, fn)
}

func (r *Room) OnEventReceived(fn func(protocol.RoomEvent)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers.eventReceived = append(r.observers.eventReceived, fn)
}

// Snapshot accessors.

// Players returns the members in join order.
func (r *Room) Players() []*Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.playersLocked()
}

func (r *Room) playersLocked() []*Player {
	players := make([]*Player, 0, len(r.playerOrder))
	for _, id := range r.playerOrder {
		players = append(players, r.players[id])
	}
	return players
}

// Objects returns the spawned objects in spawn order.
func (r *Room) Objects() []*Object {
	r.mu.Lock()
	defer r.mu.Unlock()
	objects := make([]*Object, 0, len(r.objectOrder))
	for _, id := range r.objectOrder {
		objects = append(objects, r.objects[id])
	}
	return objects
}

func (r *Room) Player(id string) (*Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	player, ok := r.players[id]
	return player, ok
}

func (r *Room) Object(id string) (*Object, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	object, ok := r.objects[id]
	return object, ok
}

func (r *Room) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

func (r *Room) IsEmpty() bool { return r.PlayerCount() == 0 }

// PlayerIDs returns the member ids in join order.
func (r *Room) PlayerIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.playerOrder)
}

// PlayerSpecs describes every member except the one named by skip.
func (r *Room) PlayerSpecs(skip string) []protocol.PlayerSpec {
	players := r.Players()
	specs := make([]protocol.PlayerSpec, 0, len(players))
	for _, player := range players {
		if player.id != skip {
			specs = append(specs, player.Spec())
		}
	}
	return specs
}

func (r *Room) ObjectSpecs() []protocol.ObjectSpec {
	objects := r.Objects()
	specs := make([]protocol.ObjectSpec, 0, len(objects))
	for _, object := range objects {
		specs = append(specs, object.Spec())
	}
	return specs
}

// MaxPlayers returns the room's MaxPlayers property, or
// [protocol.DefaultMaxPlayers] when unset.
func (r *Room) MaxPlayers() int {
	if limit, ok := r.properties.Int(protocol.KeyMaxPlayers); ok {
		return int(limit)
	}
	return protocol.DefaultMaxPlayers
}

// IsFull reports whether the member count reached MaxPlayers.
func (r *Room) IsFull() bool { return r.PlayerCount() >= r.MaxPlayers() }

// IsPrivate reports the IsPrivate property.
func (r *Room) IsPrivate() bool {
	private, _ := r.properties.Bool(protocol.KeyIsPrivate)
	return private
}

// Mutations.

// UpdateProperties merges delta into the room's properties. An empty
// delta is a no-op.
func (r *Room) UpdateProperties(delta wire.Map, raise bool, to Recipients) {
	if len(delta) == 0 {
		return
	}
	r.properties.Merge(delta)

	r.mu.Lock()
	observers := slices.Clone(r.observers.propertiesChanged)
	recipients := r.selectLocked(to)
	r.mu.Unlock()

	if raise {
		for _, fn := range observers {
			fn(delta)
		}
	}
	r.notify(recipients, protocol.OnRoomUpdated, protocol.UpdateRoomParams{
		RoomID:         r.id,
		RoomProperties: delta,
	})
}

// AddPlayer makes player a member. The player's own connection is
// notified only if to selects it.
func (r *Room) AddPlayer(player *Player, raise bool, to Recipients) error {
	r.mu.Lock()
	if _, exists := r.players[player.id]; exists {
		r.mu.Unlock()
		return ErrPlayerExists
	}
	r.players[player.id] = player
	r.playerOrder = append(r.playerOrder, player.id)
	observers := slices.Clone(r.observers.playerJoined)
	recipients := r.selectLocked(to)
	r.mu.Unlock()

	r.logger.Debug("player joined", "player_id", player.id)
	if raise {
		for _, fn := range observers {
			fn(player)
		}
	}
	r.notify(recipients, protocol.OnRoomJoined, protocol.JoinRoomParams{
		RoomID:           r.id,
		PlayerID:         player.id,
		PlayerProperties: player.properties.Snapshot(),
	})
	return nil
}

// RemovePlayer drops a member and returns it. Recipients are selected
// from the remaining members.
func (r *Room) RemovePlayer(playerID string, raise bool, to Recipients) (*Player, error) {
	r.mu.Lock()
	player, ok := r.players[playerID]
	if !ok {
		r.mu.Unlock()
		return nil, ErrPlayerNotFound
	}
	delete(r.players, playerID)
	r.playerOrder = slices.DeleteFunc(r.playerOrder, func(id string) bool { return id == playerID })
	observers := slices.Clone(r.observers.playerLeft)
	recipients := r.selectLocked(to)
	r.mu.Unlock()

	r.logger.Debug("player left", "player_id", playerID)
	r.notify(recipients, protocol.OnRoomLeaved, protocol.LeaveRoomParams{
		RoomID:   r.id,
		PlayerID: playerID,
	})
	if raise {
		for _, fn := range observers {
			fn(player)
		}
	}
	return player, nil
}

// ClearPlayers drops every member without observers or notifications.
func (r *Room) ClearPlayers() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.players)
	r.playerOrder = nil
}

// UpdatePlayer merges delta into a member's properties.
func (r *Room) UpdatePlayer(playerID string, delta wire.Map, raise bool, to Recipients) error {
	r.mu.Lock()
	player, ok := r.players[playerID]
	if !ok {
		r.mu.Unlock()
		return ErrPlayerNotFound
	}
	observers := slices.Clone(r.observers.playerPropertiesChanged)
	recipients := r.selectLocked(to)
	r.mu.Unlock()

	if len(delta) == 0 {
		return nil
	}
	player.properties.Merge(delta)
	if raise {
		for _, fn := range observers {
			fn(player, delta)
		}
	}
	r.notify(recipients, protocol.OnPlayerUpdated, protocol.UpdatePlayerParams{
		RoomID:           r.id,
		PlayerID:         playerID,
		PlayerProperties: delta,
	})
	return nil
}

// AddObject spawns object into the room.
func (r *Room) AddObject(object *Object, raise bool, to Recipients) error {
	r.mu.Lock()
	if _, exists := r.objects[object.id]; exists {
		r.mu.Unlock()
		return ErrObjectExists
	}
	r.objects[object.id] = object
	r.objectOrder = append(r.objectOrder, object.id)
	observers := slices.Clone(r.observers.objectSpawned)
	recipients := r.selectLocked(to)
	r.mu.Unlock()

	if raise {
		for _, fn := range observers {
			fn(object)
		}
	}
	r.notify(recipients, protocol.OnObjectSpawned, protocol.SpawnObjectParams{
		RoomID:           r.id,
		ObjectID:         object.id,
		Tag:              object.tag,
		ObjectProperties: object.properties.Snapshot(),
	})
	return nil
}

// UpdateObject merges delta into an object's properties. Velocity and
// AngularVelocity travel only with a HostId change: without one they
// are applied locally but left out of the notification.
func (r *Room) UpdateObject(objectID string, delta wire.Map, raise bool, to Recipients) error {
	r.mu.Lock()
	object, ok := r.objects[objectID]
	if !ok {
		r.mu.Unlock()
		return ErrObjectNotFound
	}
	observers := slices.Clone(r.observers.objectPropertiesChanged)
	recipients := r.selectLocked(to)
	r.mu.Unlock()

	if len(delta) == 0 {
		return nil
	}
	object.properties.Merge(delta)
	if raise {
		for _, fn := range observers {
			fn(object, delta)
		}
	}

	outgoing := delta
	if !delta.Has(protocol.KeyHostID) && (delta.Has(protocol.KeyVelocity) || delta.Has(protocol.KeyAngularVelocity)) {
		outgoing = delta.Clone()
		delete(outgoing, protocol.KeyVelocity)
		delete(outgoing, protocol.KeyAngularVelocity)
		if len(outgoing) == 0 {
			return nil
		}
	}
	r.notify(recipients, protocol.OnObjectUpdated, protocol.UpdateObjectParams{
		RoomID:           r.id,
		ObjectID:         objectID,
		ObjectProperties: outgoing,
	})
	return nil
}

// DestroyObject removes an object and returns it.
func (r *Room) DestroyObject(objectID string, raise bool, to Recipients) (*Object, error) {
	r.mu.Lock()
	object, ok := r.objects[objectID]
	if !ok {
		r.mu.Unlock()
		return nil, ErrObjectNotFound
	}
	delete(r.objects, objectID)
	r.objectOrder = slices.DeleteFunc(r.objectOrder, func(id string) bool { return id == objectID })
	observers := slices.Clone(r.observers.objectDestroyed)
	recipients := r.selectLocked(to)
	r.mu.Unlock()

	if raise {
		for _, fn := range observers {
			fn(object)
		}
	}
	r.notify(recipients, protocol.OnObjectDestroyed, protocol.DestroyObjectParams{
		RoomID:   r.id,
		ObjectID: objectID,
	})
	return object, nil
}

// ClearObjects drops every object without observers or notifications.
func (r *Room) ClearObjects() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.objects)
	r.objectOrder = nil
}

// RaiseEvent delivers a room event. Each recipient gets its own copy
// with PlayerID set to the recipient's id.
func (r *Room) RaiseEvent(event protocol.RoomEvent, raise bool, to Recipients) {
	r.mu.Lock()
	observers := slices.Clone(r.observers.eventReceived)
	recipients := r.selectLocked(to)
	r.mu.Unlock()

	event.RoomID = r.id
	if raise {
		for _, fn := range observers {
			fn(event)
		}
	}
	for _, player := range recipients {
		delivered := event
		delivered.PlayerID = player.id
		r.send(player, protocol.OnRoomEventRaised, delivered)
	}
}

// selectLocked returns the members chosen by to that have a sender.
func (r *Room) selectLocked(to Recipients) []*Player {
	if to.none {
		return nil
	}
	var selected []*Player
	for _, id := range r.playerOrder {
		player := r.players[id]
		if player.sender != nil && to.Includes(id) {
			selected = append(selected, player)
		}
	}
	return selected
}

func (r *Room) notify(recipients []*Player, name wire.Key, params any) {
	for _, player := range recipients {
		r.send(player, name, params)
	}
}

// send is best effort: a player whose connection is gone is about to
// leave through its own disconnect path.
func (r *Room) send(player *Player, name wire.Key, params any) {
	if err := player.sender.RaiseEventWith(name, params); err != nil {
		r.logger.Debug("notification not delivered",
			"player_id", player.id,
			"event", string(name),
			"error", err,
		)
	}
}
