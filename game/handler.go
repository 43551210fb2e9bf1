// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package game

import (
	"context"
	"errors"
	"sync"

	"github.com/bureau-foundation/loadbalancer/lib/protocol"
	"github.com/bureau-foundation/loadbalancer/lib/room"
	"github.com/bureau-foundation/loadbalancer/lib/rpc"
	"github.com/bureau-foundation/loadbalancer/lib/session"
	"github.com/bureau-foundation/loadbalancer/lib/wire"
)

// Handler serves one player connection. A connection is in at most one
// room at a time and leaves it when it disconnects.
type Handler struct {
	service *Service
	peer    *rpc.Peer

	mu      sync.Mutex
	session *session.Session
	room    *Room
	player  *room.Player
	gone    bool
}

var handlers = func() *rpc.Table[*Handler] {
	table := rpc.NewTable[*Handler]()
	rpc.Register(table, protocol.Authenticate, (*Handler).authenticate)
	rpc.Register(table, protocol.CreateRoom, (*Handler).createRoom)
	rpc.Register(table, protocol.JoinRoom, (*Handler).joinRoom)
	rpc.Register(table, protocol.UpdateRoom, (*Handler).updateRoom)
	rpc.Register(table, protocol.UpdatePlayer, (*Handler).updatePlayer)
	rpc.Register(table, protocol.RaiseRoomEvent, (*Handler).raiseRoomEvent)
	rpc.Register(table, protocol.SpawnObject, (*Handler).spawnObject)
	rpc.Register(table, protocol.UpdateObject, (*Handler).updateObject)
	rpc.Register(table, protocol.DestroyObject, (*Handler).destroyObject)
	return table
}()

// debugHandlers are served only with Settings.DebugOperations.
var debugHandlers = func() *rpc.Table[*Handler] {
	table := rpc.NewTable[*Handler]()
	rpc.RegisterCall(table, protocol.OnJumpServiceConnectEnabled, (*Handler).onJumpServiceConnectEnabled)
	rpc.RegisterCall(table, protocol.OnJumpServiceConnectDisabled, (*Handler).onJumpServiceConnectDisabled)
	return table
}()

func (h *Handler) HandleCall(call *rpc.Call) rpc.Result {
	if h.service.settings.DebugOperations && debugHandlers.Has(call.Name) {
		return debugHandlers.Dispatch(h, call)
	}
	return handlers.Dispatch(h, call)
}

func (h *Handler) HandleRealtime(*rpc.Call) {}

// OnDisconnected takes the player out of its room on the room's queue.
func (h *Handler) OnDisconnected(reason string) {
	h.mu.Lock()
	h.gone = true
	r, player := h.room, h.player
	h.room, h.player = nil, nil
	h.mu.Unlock()
	if r == nil || player == nil {
		return
	}
	accepted := r.queue.Enqueue(func() { h.leave(r, player, reason) })
	if !accepted {
		h.peer.Logger().Debug("room stopped before leave", "room_id", r.ID(), "player_id", player.ID())
	}
}

func (h *Handler) leave(r *Room, player *room.Player, reason string) {
	// A failed join may have left another connection's player under
	// this id.
	if current, ok := r.Player(player.ID()); !ok || current != player {
		return
	}
	if _, err := r.RemovePlayer(player.ID(), true, room.Except(player.ID())); err != nil {
		return
	}
	h.peer.Logger().Info("room left",
		"room_id", r.ID(),
		"player_id", player.ID(),
		"reason", reason,
	)
	h.service.notifyJump(r, protocol.OnRoomLeaved, protocol.LeaveRoomParams{
		RoomID:   r.ID(),
		PlayerID: player.ID(),
	})
}

func (h *Handler) authenticate(call *rpc.Call, params *protocol.AuthenticateParams) rpc.Result {
	verified, err := session.Verify(h.service.tokens, *params)
	if err != nil {
		h.peer.Logger().Debug("authentication refused", "provider", params.Provider, "error", err)
		return call.FailWith(err)
	}
	h.mu.Lock()
	h.session = &verified
	h.mu.Unlock()
	h.peer.SetAuthenticated(true)
	h.peer.Logger().Info("client authenticated",
		"user_id", verified.UserID,
		"session_id", verified.ID.String(),
		"token", h.service.tokens.Fingerprint(params.Token),
	)
	return call.Complete(nil)
}

// claim makes r and player this connection's membership. It fails when
// the connection already has one or is gone.
func (h *Handler) claim(r *Room, player *room.Player) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.gone || h.room != nil {
		return false
	}
	h.room, h.player = r, player
	return true
}

func (h *Handler) release(r *Room) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.room == r {
		h.room, h.player = nil, nil
	}
}

func (h *Handler) userID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.session == nil {
		return ""
	}
	return h.session.UserID
}

// member fails the call unless the connection is authenticated and in
// the room named roomID.
func (h *Handler) member(call *rpc.Call, roomID string) (*Room, *room.Player, bool) {
	if !h.peer.Authenticated() {
		call.Fail(protocol.StatusNotAuthenticated, "")
		return nil, nil, false
	}
	h.mu.Lock()
	r, player := h.room, h.player
	h.mu.Unlock()
	if r == nil || player == nil || r.ID() != roomID {
		call.Fail(protocol.StatusRoomNotFound, roomID)
		return nil, nil, false
	}
	return r, player, true
}

// newPlayer builds this connection's player in r. UserId defaults to
// the Nickname, or to the session's user, and Level to
// protocol.DefaultPlayerLevel.
func (h *Handler) newPlayer(r *Room, playerID string, requested wire.Map) *room.Player {
	player := r.NewPlayer(playerID, h.peer, requested)
	properties := player.Properties()
	if !properties.Has(protocol.KeyUserID) {
		userID, ok := properties.Str(protocol.KeyNickname)
		if !ok {
			userID = h.userID()
		}
		properties.Set(protocol.KeyUserID, wire.String(userID))
	}
	if !properties.Has(protocol.KeyLevel) {
		properties.Set(protocol.KeyLevel, wire.Int32(protocol.DefaultPlayerLevel))
	}
	return player
}

func (h *Handler) createRoom(call *rpc.Call, params *protocol.CreateRoomParams) rpc.Result {
	if !h.peer.Authenticated() {
		return call.Fail(protocol.StatusNotAuthenticated, "")
	}
	if _, exists := h.service.Room(params.RoomID); exists {
		return call.Fail(protocol.StatusRoomAlreadyCreated, params.RoomID)
	}

	r := h.service.newRoom(params.RoomID, params.RoomProperties)
	for _, spec := range params.RoomObjects {
		object := r.NewObject(spec.ObjectID, spec.Tag, spec.ObjectProperties)
		if err := r.AddObject(object, false, room.NoOne); err != nil {
			return call.Fail(protocol.StatusObjectAlreadySpawned, spec.ObjectID)
		}
	}
	player := h.newPlayer(r, params.PlayerID, params.PlayerProperties)
	player.Properties().Set(protocol.KeyIsHost, wire.Bool(true))
	if err := r.AddPlayer(player, false, room.NoOne); err != nil {
		return call.FailWith(err)
	}

	if !h.claim(r, player) {
		return call.Fail(protocol.StatusPlayerAlreadyJoined, h.currentRoomID())
	}
	announce := func() {
		h.service.notifyJump(r, protocol.OnRoomCreated, protocol.CreateRoomParams{
			RoomID:           r.ID(),
			RoomProperties:   r.Properties().Extract(protocol.BaseRoomKeys...),
			PlayerID:         player.ID(),
			PlayerProperties: player.Properties().Extract(protocol.BasePlayerKeys...),
		})
	}
	if !h.service.addRoom(r, announce) {
		h.release(r)
		return call.Fail(protocol.StatusRoomAlreadyCreated, params.RoomID)
	}
	h.peer.Logger().Info("room created",
		"room_id", r.ID(),
		"player_id", player.ID(),
		"objects", len(params.RoomObjects),
		"remote_address", h.peer.RemoteAddress(),
	)
	return call.CompleteWith(protocol.CreateRoomResult{
		RoomID:           r.ID(),
		RoomProperties:   r.Properties().Snapshot(),
		PlayerID:         player.ID(),
		PlayerProperties: player.Properties().Snapshot(),
		RoomObjects:      r.ObjectSpecs(),
	})
}

func (h *Handler) currentRoomID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.room == nil {
		return ""
	}
	return h.room.ID()
}

func (h *Handler) joinRoom(call *rpc.Call, params *protocol.JoinRoomParams) rpc.Result {
	if !h.peer.Authenticated() {
		return call.Fail(protocol.StatusNotAuthenticated, "")
	}
	r, ok := h.service.Room(params.RoomID)
	if !ok {
		return call.Fail(protocol.StatusRoomNotFound, params.RoomID)
	}
	player := h.newPlayer(r, params.PlayerID, params.PlayerProperties)
	if !h.claim(r, player) {
		return call.Fail(protocol.StatusPlayerAlreadyJoined, h.currentRoomID())
	}

	result := call.Continue(r.queue, func() error {
		if err := h.join(r, player); err != nil {
			h.release(r)
			return err
		}
		call.CompleteWith(protocol.JoinRoomResult{
			RoomID:           r.ID(),
			RoomProperties:   r.Properties().Snapshot(),
			RoomObjects:      r.ObjectSpecs(),
			RoomPlayers:      r.PlayerSpecs(player.ID()),
			PlayerID:         player.ID(),
			PlayerProperties: player.Properties().Snapshot(),
		})
		return nil
	})
	if result == rpc.Failed {
		h.release(r)
	}
	return result
}

// join adds player to r. It runs on r's queue.
func (h *Handler) join(r *Room, player *room.Player) error {
	switch {
	case !h.service.hosts(r):
		return &rpc.StatusError{Status: protocol.StatusRoomNotFound, Message: r.ID()}
	case r.IsFull():
		return &rpc.StatusError{Status: protocol.StatusRoomFull, Message: r.ID()}
	}
	if err := r.AddPlayer(player, true, room.Except(player.ID())); err != nil {
		return &rpc.StatusError{Status: protocol.StatusPlayerAlreadyJoined, Message: player.ID()}
	}
	h.peer.Logger().Info("room joined",
		"room_id", r.ID(),
		"player_id", player.ID(),
		"players", r.PlayerCount(),
		"remote_address", h.peer.RemoteAddress(),
	)
	h.service.notifyJump(r, protocol.OnRoomJoined, protocol.JoinRoomParams{
		RoomID:           r.ID(),
		PlayerID:         player.ID(),
		PlayerProperties: player.Properties().Extract(protocol.BasePlayerKeys...),
	})
	return nil
}

func (h *Handler) updateRoom(call *rpc.Call, params *protocol.UpdateRoomParams) rpc.Result {
	r, player, ok := h.member(call, params.RoomID)
	if !ok {
		return rpc.Failed
	}
	return call.Continue(r.queue, func() error {
		r.UpdateProperties(params.RoomProperties, true, room.Except(player.ID()))
		h.peer.Logger().Debug("room updated",
			"room_id", r.ID(),
			"player_id", player.ID(),
			"properties", len(params.RoomProperties),
		)
		if base := protocol.Extract(params.RoomProperties, protocol.BaseRoomKeys); len(base) > 0 {
			h.service.notifyJump(r, protocol.OnRoomUpdated, protocol.UpdateRoomParams{
				RoomID:         r.ID(),
				RoomProperties: base,
			})
		}
		call.Complete(nil)
		return nil
	})
}

func (h *Handler) updatePlayer(call *rpc.Call, params *protocol.UpdatePlayerParams) rpc.Result {
	r, player, ok := h.member(call, params.RoomID)
	if !ok {
		return rpc.Failed
	}
	if params.PlayerID != player.ID() {
		return call.Fail(protocol.StatusPlayerNotFound, params.PlayerID)
	}
	return call.Continue(r.queue, func() error {
		if err := r.UpdatePlayer(player.ID(), params.PlayerProperties, true, room.Except(player.ID())); err != nil {
			return &rpc.StatusError{Status: protocol.StatusPlayerNotFound, Message: player.ID()}
		}
		h.peer.Logger().Debug("player updated",
			"room_id", r.ID(),
			"player_id", player.ID(),
			"properties", len(params.PlayerProperties),
		)
		if base := protocol.Extract(params.PlayerProperties, protocol.BasePlayerKeys); len(base) > 0 {
			h.service.notifyJump(r, protocol.OnPlayerUpdated, protocol.UpdatePlayerParams{
				RoomID:           r.ID(),
				PlayerID:         player.ID(),
				PlayerProperties: base,
			})
		}
		call.Complete(nil)
		return nil
	})
}

// raiseRoomEvent relays an event from this player to params.PlayerID,
// or to every other player when it is empty.
func (h *Handler) raiseRoomEvent(call *rpc.Call, params *protocol.RoomEvent) rpc.Result {
	r, player, ok := h.member(call, params.RoomID)
	if !ok {
		return rpc.Failed
	}
	event := *params
	event.SenderID = player.ID()
	if event.Parameters == nil {
		event.Parameters = wire.Map{}
	}
	return call.Continue(r.queue, func() error {
		r.RaiseEvent(event, true, room.Except(player.ID()).Only(params.PlayerID))
		h.peer.Logger().Debug("room event raised",
			"room_id", r.ID(),
			"player_id", player.ID(),
			"event", string(event.Name),
		)
		call.Complete(nil)
		return nil
	})
}

func (h *Handler) spawnObject(call *rpc.Call, params *protocol.SpawnObjectParams) rpc.Result {
	r, player, ok := h.member(call, params.RoomID)
	if !ok {
		return rpc.Failed
	}
	object := r.NewObject(params.ObjectID, params.Tag, params.ObjectProperties)
	return call.Continue(r.queue, func() error {
		if err := r.AddObject(object, true, room.Except(player.ID())); err != nil {
			return objectStatus(err, params.ObjectID)
		}
		h.peer.Logger().Info("object spawned",
			"room_id", r.ID(),
			"player_id", player.ID(),
			"object_id", object.ID(),
			"tag", object.Tag(),
		)
		call.CompleteWith(protocol.SpawnObjectResult{
			RoomID:           r.ID(),
			ObjectID:         object.ID(),
			Tag:              object.Tag(),
			ObjectProperties: object.Properties().Snapshot(),
		})
		return nil
	})
}

func (h *Handler) updateObject(call *rpc.Call, params *protocol.UpdateObjectParams) rpc.Result {
	r, player, ok := h.member(call, params.RoomID)
	if !ok {
		return rpc.Failed
	}
	return call.Continue(r.queue, func() error {
		err := r.UpdateObject(params.ObjectID, params.ObjectProperties, true, room.Except(player.ID()))
		if err != nil {
			return objectStatus(err, params.ObjectID)
		}
		call.Complete(nil)
		return nil
	})
}

func (h *Handler) destroyObject(call *rpc.Call, params *protocol.DestroyObjectParams) rpc.Result {
	r, player, ok := h.member(call, params.RoomID)
	if !ok {
		return rpc.Failed
	}
	return call.Continue(r.queue, func() error {
		if _, err := r.DestroyObject(params.ObjectID, true, room.Except(player.ID())); err != nil {
			return objectStatus(err, params.ObjectID)
		}
		h.peer.Logger().Debug("object destroyed",
			"room_id", r.ID(),
			"player_id", player.ID(),
			"object_id", params.ObjectID,
		)
		call.Complete(nil)
		return nil
	})
}

func objectStatus(err error, objectID string) error {
	if errors.Is(err, room.ErrObjectExists) {
		return &rpc.StatusError{Status: protocol.StatusObjectAlreadySpawned, Message: objectID}
	}
	return &rpc.StatusError{Status: protocol.StatusObjectNotFound, Message: objectID}
}

func (h *Handler) onJumpServiceConnectEnabled(call *rpc.Call) rpc.Result {
	h.peer.Logger().Info("jump link enabled by debug operation")
	h.service.link.Enable()
	return call.Complete(nil)
}

func (h *Handler) onJumpServiceConnectDisabled(call *rpc.Call) rpc.Result {
	h.peer.Logger().Info("jump link disabled by debug operation")
	return call.Continue(h.service.queue, func() error {
		if err := h.service.link.Disable(context.Background()); err != nil {
			return err
		}
		call.Complete(nil)
		return nil
	})
}
