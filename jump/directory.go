// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jump

import (
	"errors"

	"github.com/bureau-foundation/loadbalancer/lib/protocol"
	"github.com/bureau-foundation/loadbalancer/lib/room"
	"github.com/bureau-foundation/loadbalancer/lib/rpc"
)

// Operations a registered Game host raises to keep its directory entry
// current. They all run on the directory queue. Inconsistencies fail
// the call with a typed status so the host republishes the room.

var errNotRegistered = &rpc.StatusError{Status: protocol.StatusNotAuthenticated, Message: "game service not registered"}

// directoryWork runs work against the caller's GameService on the
// directory queue and completes the call when work returns nil.
func (h *Handler) directoryWork(call *rpc.Call, work func(game *GameService) error) rpc.Result {
	return call.Continue(h.service.directory, func() error {
		game := h.gameService()
		if game == nil {
			return errNotRegistered
		}
		if err := work(game); err != nil {
			return err
		}
		call.Complete(nil)
		return nil
	})
}

func (h *Handler) onGameServiceAdded(call *rpc.Call, params *protocol.AddServiceParams) rpc.Result {
	return call.Continue(h.service.directory, func() error {
		game := newGameService(params.ServiceEndpoint, params.ServiceProperties, h, h.service.logger)
		h.mu.Lock()
		h.game = game
		h.mu.Unlock()
		h.peer.Logger().Info("game service registered",
			"endpoint", game.Endpoint.String(),
			"load_level", game.LoadLevel().String(),
		)

		for _, other := range h.service.GameServices() {
			if other != game && other.Endpoint.Equal(game.Endpoint) {
				h.peer.Logger().Info("disconnecting replaced game service", "endpoint", other.Endpoint.String())
				other.handler.peer.Disconnect("replaced by a newer registration")
			}
		}
		call.Complete(nil)
		return nil
	})
}

func (h *Handler) onGameServiceUpdated(call *rpc.Call, params *protocol.UpdateServiceParams) rpc.Result {
	return h.directoryWork(call, func(game *GameService) error {
		before := game.LoadLevel()
		game.properties.Merge(params.ServiceProperties)
		if after := game.LoadLevel(); after != before {
			h.peer.Logger().Info("game service load level changed",
				"endpoint", game.Endpoint.String(),
				"load_level", after.String(),
			)
		}
		return nil
	})
}

// onRoomPublished replaces the directory entry of a room wholesale. A
// room published without players is dropped.
func (h *Handler) onRoomPublished(call *rpc.Call, params *protocol.PublishRoomParams) rpc.Result {
	return h.directoryWork(call, func(game *GameService) error {
		entry, exists := game.Room(params.RoomID)
		if len(params.RoomPlayers) == 0 {
			if exists {
				game.removeRoom(params.RoomID)
				h.peer.Logger().Debug("published room removed", "room_id", params.RoomID)
			}
			return nil
		}
		if !exists {
			entry = room.New(params.RoomID, nil, h.service.logger)
		}
		entry.Properties().Clear()
		entry.Properties().Merge(params.RoomProperties)
		entry.ClearPlayers()
		for _, spec := range params.RoomPlayers {
			player := entry.NewPlayer(spec.PlayerID, nil, spec.PlayerProperties)
			if err := entry.AddPlayer(player, false, room.NoOne); err != nil {
				h.peer.Logger().Debug("skipping duplicate published player",
					"room_id", params.RoomID,
					"player_id", spec.PlayerID,
				)
			}
		}
		if !exists {
			game.addRoom(entry)
		}
		h.peer.Logger().Debug("room published", "room_id", params.RoomID, "players", entry.PlayerCount())
		return nil
	})
}

func (h *Handler) onRoomCreated(call *rpc.Call, params *protocol.CreateRoomParams) rpc.Result {
	return h.directoryWork(call, func(game *GameService) error {
		if _, exists := game.Room(params.RoomID); exists {
			return &rpc.StatusError{Status: protocol.StatusRoomAlreadyCreated, Message: params.RoomID}
		}
		entry := room.New(params.RoomID, params.RoomProperties, h.service.logger)
		creator := entry.NewPlayer(params.PlayerID, nil, params.PlayerProperties)
		if err := entry.AddPlayer(creator, false, room.NoOne); err != nil {
			return err
		}
		game.addRoom(entry)
		h.peer.Logger().Debug("room created", "room_id", params.RoomID, "player_id", params.PlayerID)
		return nil
	})
}

func (h *Handler) onRoomJoined(call *rpc.Call, params *protocol.JoinRoomParams) rpc.Result {
	return h.directoryWork(call, func(game *GameService) error {
		entry, err := directoryRoom(game, params.RoomID)
		if err != nil {
			return err
		}
		player := entry.NewPlayer(params.PlayerID, nil, params.PlayerProperties)
		if err := entry.AddPlayer(player, false, room.NoOne); err != nil {
			return playerStatus(err, params.PlayerID)
		}
		return nil
	})
}

func (h *Handler) onRoomLeaved(call *rpc.Call, params *protocol.LeaveRoomParams) rpc.Result {
	return h.directoryWork(call, func(game *GameService) error {
		entry, err := directoryRoom(game, params.RoomID)
		if err != nil {
			return err
		}
		if _, err := entry.RemovePlayer(params.PlayerID, false, room.NoOne); err != nil {
			return playerStatus(err, params.PlayerID)
		}
		if entry.IsEmpty() {
			game.removeRoom(params.RoomID)
			h.peer.Logger().Debug("empty room removed", "room_id", params.RoomID)
		}
		return nil
	})
}

func (h *Handler) onRoomUpdated(call *rpc.Call, params *protocol.UpdateRoomParams) rpc.Result {
	return h.directoryWork(call, func(game *GameService) error {
		entry, err := directoryRoom(game, params.RoomID)
		if err != nil {
			return err
		}
		entry.UpdateProperties(params.RoomProperties, false, room.NoOne)
		return nil
	})
}

func (h *Handler) onPlayerUpdated(call *rpc.Call, params *protocol.UpdatePlayerParams) rpc.Result {
	return h.directoryWork(call, func(game *GameService) error {
		entry, err := directoryRoom(game, params.RoomID)
		if err != nil {
			return err
		}
		if err := entry.UpdatePlayer(params.PlayerID, params.PlayerProperties, false, room.NoOne); err != nil {
			return playerStatus(err, params.PlayerID)
		}
		return nil
	})
}

func directoryRoom(game *GameService, roomID string) (*room.Room, error) {
	entry, ok := game.Room(roomID)
	if !ok {
		return nil, &rpc.StatusError{Status: protocol.StatusRoomNotFound, Message: roomID}
	}
	return entry, nil
}

// playerStatus maps room membership errors to protocol statuses.
func playerStatus(err error, playerID string) error {
	switch {
	case errors.Is(err, room.ErrPlayerExists):
		return &rpc.StatusError{Status: protocol.StatusPlayerAlreadyJoined, Message: playerID}
	case errors.Is(err, room.ErrPlayerNotFound):
		return &rpc.StatusError{Status: protocol.StatusPlayerNotFound, Message: playerID}
	}
	return err
}
