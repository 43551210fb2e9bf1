// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bureau-foundation/loadbalancer/lib/protocol"
	"github.com/bureau-foundation/loadbalancer/lib/room"
	"github.com/bureau-foundation/loadbalancer/lib/rpc"
	"github.com/bureau-foundation/loadbalancer/lib/scheduler"
	"github.com/bureau-foundation/loadbalancer/lib/wire"
)

// GameClient talks to a Game host and mirrors the joined room locally.
//
// The mirror is a [room.Room] whose players have no sender. Changes
// made through the client are applied to it at once without raising
// its observers; changes pushed by the host are applied on the
// connection's queue and raise them. When the connection drops the
// mirror is discarded.
type GameClient struct {
	*Conn

	mu       sync.Mutex
	room     *room.Room
	player   *room.Player
	commit   *scheduler.Item
	realtime func(code int32, payload []byte)
}

func NewGameClient(options Options) *GameClient {
	g := &GameClient{Conn: New(options)}
	g.SetHandler(g)
	return g
}

var gameEvents = func() *rpc.Table[*GameClient] {
	table := rpc.NewTable[*GameClient]()
	rpc.Register(table, protocol.OnRoomUpdated, (*GameClient).onRoomUpdated)
	rpc.Register(table, protocol.OnPlayerUpdated, (*GameClient).onPlayerUpdated)
	rpc.Register(table, protocol.OnRoomJoined, (*GameClient).onRoomJoined)
	rpc.Register(table, protocol.OnRoomLeaved, (*GameClient).onRoomLeaved)
	rpc.Register(table, protocol.OnRoomEventRaised, (*GameClient).onRoomEventRaised)
	rpc.Register(table, protocol.OnObjectSpawned, (*GameClient).onObjectSpawned)
	rpc.Register(table, protocol.OnObjectUpdated, (*GameClient).onObjectUpdated)
	rpc.Register(table, protocol.OnObjectDestroyed, (*GameClient).onObjectDestroyed)
	rpc.RegisterCall(table, rpc.MethodDisconnect, (*GameClient).onDisconnect)
	return table
}()

func (g *GameClient) HandleCall(call *rpc.Call) rpc.Result {
	return gameEvents.Dispatch(g, call)
}

func (g *GameClient) HandleRealtime(call *rpc.Call) {
	g.mu.Lock()
	fn := g.realtime
	g.mu.Unlock()
	if fn != nil {
		fn(call.Code, call.Payload)
	}
}

// OnRealtime installs the receiver of Realtime frames. It runs on the
// read goroutine.
func (g *GameClient) OnRealtime(fn func(code int32, payload []byte)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.realtime = fn
}

// Room returns the mirrored room, or nil outside a room.
func (g *GameClient) Room() *room.Room {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.room
}

// Player returns this client's player, or nil outside a room.
func (g *GameClient) Player() *room.Player {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.player
}

func (g *GameClient) current() (*room.Room, *room.Player, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.room == nil {
		return nil, nil, &rpc.StatusError{Status: protocol.StatusRoomNotFound}
	}
	return g.room, g.player, nil
}

// Authenticate presents a token issued by Auth, with provider Token.
func (g *GameClient) Authenticate(ctx context.Context, params protocol.AuthenticateParams) (protocol.AuthenticateResult, error) {
	var result protocol.AuthenticateResult
	err := g.Call(ctx, protocol.Authenticate, params, &result)
	return result, err
}

func (g *GameClient) CreateRoom(ctx context.Context, params protocol.CreateRoomParams) (protocol.CreateRoomResult, error) {
	var result protocol.CreateRoomResult
	if g.Room() != nil {
		return result, &rpc.StatusError{Status: protocol.StatusRoomAlreadyCreated}
	}
	if err := g.Call(ctx, protocol.CreateRoom, params, &result); err != nil {
		return result, err
	}
	mirror := room.New(result.RoomID, result.RoomProperties, g.logger)
	g.mirrorObjects(mirror, result.RoomObjects)
	g.enter(mirror, result.PlayerID, result.PlayerProperties)
	return result, nil
}

func (g *GameClient) JoinRoom(ctx context.Context, params protocol.JoinRoomParams) (protocol.JoinRoomResult, error) {
	var result protocol.JoinRoomResult
	if g.Room() != nil {
		return result, &rpc.StatusError{Status: protocol.StatusRoomAlreadyCreated}
	}
	if err := g.Call(ctx, protocol.JoinRoom, params, &result); err != nil {
		return result, err
	}
	mirror := room.New(result.RoomID, result.RoomProperties, g.logger)
	g.mirrorObjects(mirror, result.RoomObjects)
	for _, other := range result.RoomPlayers {
		mirror.AddPlayer(mirror.NewPlayer(other.PlayerID, nil, other.PlayerProperties), false, room.NoOne)
	}
	g.enter(mirror, result.PlayerID, result.PlayerProperties)
	return result, nil
}

func (g *GameClient) mirrorObjects(mirror *room.Room, objects []protocol.ObjectSpec) {
	for _, spec := range objects {
		mirror.AddObject(mirror.NewObject(spec.ObjectID, spec.Tag, spec.ObjectProperties), false, room.NoOne)
	}
}

func (g *GameClient) enter(mirror *room.Room, playerID string, properties wire.Map) {
	player := mirror.NewPlayer(playerID, nil, properties)
	mirror.AddPlayer(player, false, room.NoOne)
	g.mu.Lock()
	g.room = mirror
	g.player = player
	g.mu.Unlock()
}

// UpdateRoom merges delta into the room and sends it to the host.
func (g *GameClient) UpdateRoom(delta wire.Map) error {
	mirror, _, err := g.current()
	if err != nil {
		return err
	}
	if len(delta) == 0 {
		return nil
	}
	mirror.UpdateProperties(delta, false, room.NoOne)
	return g.RaiseEventWith(protocol.UpdateRoom, protocol.UpdateRoomParams{
		RoomID:         mirror.ID(),
		RoomProperties: delta,
	})
}

// UpdatePlayer merges delta into this client's player and sends it at
// once, bypassing change tracking.
func (g *GameClient) UpdatePlayer(delta wire.Map) error {
	mirror, player, err := g.current()
	if err != nil {
		return err
	}
	if len(delta) == 0 {
		return nil
	}
	player.Properties().MergeCommitted(delta)
	if err := mirror.UpdatePlayer(player.ID(), delta, false, room.NoOne); err != nil {
		return err
	}
	return g.sendPlayerUpdate(mirror.ID(), player.ID(), delta)
}

func (g *GameClient) sendPlayerUpdate(roomID, playerID string, delta wire.Map) error {
	return g.RaiseEventWith(protocol.UpdatePlayer, protocol.UpdatePlayerParams{
		RoomID:           roomID,
		PlayerID:         playerID,
		PlayerProperties: delta,
	})
}

// TrackPlayerChanges switches this client's player to batched updates:
// writes made with Player().Properties().Set are collected and sent as
// one UpdatePlayer every interval, when anything changed.
func (g *GameClient) TrackPlayerChanges(interval time.Duration) error {
	if interval <= 0 {
		return errors.New("client: commit interval must be positive")
	}
	_, player, err := g.current()
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.commit != nil {
		return errors.New("client: player changes are already tracked")
	}
	player.Properties().EnableTracking()
	item := g.Scheduler().Schedule(func() { g.CommitPlayerChanges() }, interval, interval, false)
	if item == nil {
		return fmt.Errorf("client: scheduler %s is not started", g.Scheduler().Name())
	}
	g.commit = item
	return nil
}

// CommitPlayerChanges sends the tracked changes now. It reports whether
// there was anything to send.
func (g *GameClient) CommitPlayerChanges() bool {
	mirror, player, err := g.current()
	if err != nil {
		return false
	}
	return player.Properties().CommitChanges(func(changes wire.Map) {
		if err := g.sendPlayerUpdate(mirror.ID(), player.ID(), changes); err != nil {
			g.logger.Debug("committing player changes failed", "player_id", player.ID(), "error", err)
		}
	})
}

// RaiseRoomEvent relays event to the room: to event.PlayerID when set,
// otherwise to every other player.
func (g *GameClient) RaiseRoomEvent(event protocol.RoomEvent) error {
	mirror, _, err := g.current()
	if err != nil {
		return err
	}
	event.RoomID = mirror.ID()
	return g.RaiseEventWith(protocol.RaiseRoomEvent, event)
}

func (g *GameClient) SpawnObject(ctx context.Context, params protocol.SpawnObjectParams) (protocol.SpawnObjectResult, error) {
	var result protocol.SpawnObjectResult
	mirror, _, err := g.current()
	if err != nil {
		return result, err
	}
	params.RoomID = mirror.ID()
	if err := g.Call(ctx, protocol.SpawnObject, params, &result); err != nil {
		return result, err
	}
	object := mirror.NewObject(result.ObjectID, result.Tag, result.ObjectProperties)
	if err := mirror.AddObject(object, false, room.NoOne); err != nil {
		g.logger.Debug("spawned object already mirrored", "object_id", result.ObjectID)
	}
	return result, nil
}

// UpdateObject merges delta into an object and sends it to the host.
func (g *GameClient) UpdateObject(objectID string, delta wire.Map) error {
	mirror, _, err := g.current()
	if err != nil {
		return err
	}
	if err := mirror.UpdateObject(objectID, delta, false, room.NoOne); err != nil {
		return &rpc.StatusError{Status: protocol.StatusObjectNotFound}
	}
	if len(delta) == 0 {
		return nil
	}
	return g.RaiseEventWith(protocol.UpdateObject, protocol.UpdateObjectParams{
		RoomID:           mirror.ID(),
		ObjectID:         objectID,
		ObjectProperties: delta,
	})
}

func (g *GameClient) DestroyObject(objectID string) error {
	mirror, _, err := g.current()
	if err != nil {
		return err
	}
	if _, err := mirror.DestroyObject(objectID, false, room.NoOne); err != nil {
		return &rpc.StatusError{Status: protocol.StatusObjectNotFound}
	}
	return g.RaiseEventWith(protocol.DestroyObject, protocol.DestroyObjectParams{
		RoomID:   mirror.ID(),
		ObjectID: objectID,
	})
}

// SetJumpServiceConnect asks a Game host with debug operations enabled
// to drop or restore its link to Jump.
func (g *GameClient) SetJumpServiceConnect(enabled bool) error {
	if enabled {
		return g.RaiseEvent(protocol.OnJumpServiceConnectEnabled, nil)
	}
	return g.RaiseEvent(protocol.OnJumpServiceConnectDisabled, nil)
}

// Pushed notifications, on the connection's queue.

func (g *GameClient) target(call *rpc.Call, roomID string) *room.Room {
	g.mu.Lock()
	mirror := g.room
	g.mu.Unlock()
	if mirror == nil || mirror.ID() != roomID {
		call.Fail(protocol.StatusRoomNotFound, "")
		return nil
	}
	return mirror
}

func (g *GameClient) onRoomUpdated(call *rpc.Call, params *protocol.UpdateRoomParams) rpc.Result {
	mirror := g.target(call, params.RoomID)
	if mirror == nil {
		return rpc.Failed
	}
	mirror.UpdateProperties(params.RoomProperties, true, room.NoOne)
	return call.Complete(nil)
}

func (g *GameClient) onPlayerUpdated(call *rpc.Call, params *protocol.UpdatePlayerParams) rpc.Result {
	mirror := g.target(call, params.RoomID)
	if mirror == nil {
		return rpc.Failed
	}
	player, ok := mirror.Player(params.PlayerID)
	if !ok {
		return call.Fail(protocol.StatusPlayerNotFound, "")
	}
	// Host-originated changes must not be echoed back by the commit
	// tick.
	player.Properties().MergeCommitted(params.PlayerProperties)
	mirror.UpdatePlayer(params.PlayerID, params.PlayerProperties, true, room.NoOne)
	return call.Complete(nil)
}

func (g *GameClient) onRoomJoined(call *rpc.Call, params *protocol.JoinRoomParams) rpc.Result {
	mirror := g.target(call, params.RoomID)
	if mirror == nil {
		return rpc.Failed
	}
	player := mirror.NewPlayer(params.PlayerID, nil, params.PlayerProperties)
	if err := mirror.AddPlayer(player, true, room.NoOne); err != nil {
		return call.Fail(protocol.StatusPlayerAlreadyJoined, "")
	}
	return call.Complete(nil)
}

func (g *GameClient) onRoomLeaved(call *rpc.Call, params *protocol.LeaveRoomParams) rpc.Result {
	mirror := g.target(call, params.RoomID)
	if mirror == nil {
		return rpc.Failed
	}
	if _, err := mirror.RemovePlayer(params.PlayerID, true, room.NoOne); err != nil {
		return call.Fail(protocol.StatusPlayerNotFound, "")
	}
	return call.Complete(nil)
}

func (g *GameClient) onRoomEventRaised(call *rpc.Call, params *protocol.RoomEvent) rpc.Result {
	mirror := g.target(call, params.RoomID)
	if mirror == nil {
		return rpc.Failed
	}
	mirror.RaiseEvent(*params, true, room.NoOne)
	return call.Complete(nil)
}

func (g *GameClient) onObjectSpawned(call *rpc.Call, params *protocol.SpawnObjectParams) rpc.Result {
	mirror := g.target(call, params.RoomID)
	if mirror == nil {
		return rpc.Failed
	}
	object := mirror.NewObject(params.ObjectID, params.Tag, params.ObjectProperties)
	if err := mirror.AddObject(object, true, room.NoOne); err != nil {
		return call.Fail(protocol.StatusObjectAlreadySpawned, "")
	}
	return call.Complete(nil)
}

func (g *GameClient) onObjectUpdated(call *rpc.Call, params *protocol.UpdateObjectParams) rpc.Result {
	mirror := g.target(call, params.RoomID)
	if mirror == nil {
		return rpc.Failed
	}
	if err := mirror.UpdateObject(params.ObjectID, params.ObjectProperties, true, room.NoOne); err != nil {
		return call.Fail(protocol.StatusObjectNotFound, "")
	}
	return call.Complete(nil)
}

func (g *GameClient) onObjectDestroyed(call *rpc.Call, params *protocol.DestroyObjectParams) rpc.Result {
	mirror := g.target(call, params.RoomID)
	if mirror == nil {
		return rpc.Failed
	}
	if _, err := mirror.DestroyObject(params.ObjectID, true, room.NoOne); err != nil {
		return call.Fail(protocol.StatusObjectNotFound, "")
	}
	return call.Complete(nil)
}

func (g *GameClient) onDisconnect(call *rpc.Call) rpc.Result {
	g.mu.Lock()
	if g.commit != nil {
		g.commit.Dispose()
		g.commit = nil
	}
	g.room = nil
	g.player = nil
	g.mu.Unlock()
	return call.Complete(nil)
}
