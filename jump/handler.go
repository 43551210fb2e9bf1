// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jump

import (
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/bureau-foundation/loadbalancer/lib/protocol"
	"github.com/bureau-foundation/loadbalancer/lib/room"
	"github.com/bureau-foundation/loadbalancer/lib/rpc"
	"github.com/bureau-foundation/loadbalancer/lib/session"
)

// Handler serves one connection: a client looking for a room or a
// registered Game host.
type Handler struct {
	service *Service
	peer    *rpc.Peer

	mu      sync.Mutex
	session *session.Session
	game    *GameService
}

var handlers = func() *rpc.Table[*Handler] {
	table := rpc.NewTable[*Handler]()
	rpc.Register(table, protocol.Authenticate, (*Handler).authenticate)
	rpc.Register(table, protocol.FindRoom, (*Handler).findRoom)
	rpc.Register(table, protocol.FindServer, (*Handler).findServer)

	rpc.Register(table, protocol.OnGameServiceAdded, (*Handler).onGameServiceAdded)
	rpc.Register(table, protocol.OnGameServiceUpdated, (*Handler).onGameServiceUpdated)
	rpc.Register(table, protocol.OnRoomPublished, (*Handler).onRoomPublished)
	rpc.Register(table, protocol.OnRoomCreated, (*Handler).onRoomCreated)
	rpc.Register(table, protocol.OnRoomJoined, (*Handler).onRoomJoined)
	rpc.Register(table, protocol.OnRoomLeaved, (*Handler).onRoomLeaved)
	rpc.Register(table, protocol.OnRoomUpdated, (*Handler).onRoomUpdated)
	rpc.Register(table, protocol.OnPlayerUpdated, (*Handler).onPlayerUpdated)
	return table
}()

func (h *Handler) HandleCall(call *rpc.Call) rpc.Result { return handlers.Dispatch(h, call) }
func (h *Handler) HandleRealtime(*rpc.Call)             {}

func (h *Handler) OnDisconnected(reason string) {
	if game := h.gameService(); game != nil {
		h.peer.Logger().Info("game service unregistered",
			"endpoint", game.Endpoint.String(),
			"rooms", len(game.Rooms()),
			"reason", reason,
		)
	}
}

func (h *Handler) gameService() *GameService {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.game
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

// checkTitle fails the call unless the client is authenticated and
// asks for this Jump's title and version. Empty fields match.
func (h *Handler) checkTitle(call *rpc.Call, titleID, version string) bool {
	settings := h.service.settings
	switch {
	case !h.peer.Authenticated():
		call.Fail(protocol.StatusNotAuthenticated, "")
	case titleID != "" && titleID != settings.TitleID:
		call.Fail(protocol.StatusWrongTitle, titleID)
	case version != "" && version != settings.Version:
		call.Fail(protocol.StatusWrongVersion, version)
	default:
		return true
	}
	return false
}

func (h *Handler) findRoom(call *rpc.Call, params *protocol.FindRoomParams) rpc.Result {
	if !h.checkTitle(call, params.TitleID, params.Version) {
		return rpc.Failed
	}
	return call.Continue(h.service.directory, func() error {
		var rooms []protocol.RoomLocator
		for _, game := range h.service.AvailableGameServices() {
			for _, candidate := range game.Rooms() {
				if roomMatches(candidate, params) {
					rooms = append(rooms, protocol.RoomLocator{
						ServiceEndpoint: game.Endpoint,
						RoomID:          candidate.ID(),
						RoomProperties:  candidate.Properties().Snapshot(),
						IsExistingRoom:  true,
					})
				}
			}
		}
		if len(rooms) == 0 {
			call.Fail(protocol.StatusRoomNotFound, params.RoomID)
			return nil
		}
		h.peer.Logger().Debug("rooms found", "count", len(rooms))
		call.CompleteWith(protocol.FindRoomResult{Rooms: rooms})
		return nil
	})
}

// roomMatches applies every FindRoom filter. A private room is only
// found by a request that names it: by id, by one of its players or
// by asking for IsPrivate explicitly.
func roomMatches(candidate *room.Room, params *protocol.FindRoomParams) bool {
	if params.RoomID != "" && candidate.ID() != params.RoomID {
		return false
	}
	if !candidate.Properties().Match(params.RoomProperties) {
		return false
	}
	if len(params.PlayerIDs) > 0 && !slices.ContainsFunc(candidate.PlayerIDs(), func(id string) bool {
		return slices.Contains(params.PlayerIDs, id)
	}) {
		return false
	}
	if candidate.IsFull() {
		return false
	}
	if candidate.IsPrivate() {
		named := params.RoomID != "" ||
			len(params.PlayerIDs) > 0 ||
			params.RoomProperties.Has(protocol.KeyIsPrivate)
		if !named {
			return false
		}
	}
	return true
}

func (h *Handler) findServer(call *rpc.Call, params *protocol.FindServerParams) rpc.Result {
	if !h.checkTitle(call, params.TitleID, params.Version) {
		return rpc.Failed
	}
	return call.Continue(h.service.directory, func() error {
		available := h.service.AvailableGameServices()
		if len(available) == 0 {
			call.Fail(protocol.StatusServerFull, "")
			return nil
		}
		game := available[0]
		locator := protocol.RoomLocator{
			ServiceEndpoint: game.Endpoint,
			RoomID:          uuid.NewString(),
			RoomProperties:  params.RoomProperties.Clone(),
			IsExistingRoom:  false,
		}
		h.peer.Logger().Debug("server found",
			"endpoint", game.Endpoint.String(),
			"load_level", game.LoadLevel().String(),
			"room_id", locator.RoomID,
		)
		call.CompleteWith(protocol.FindServerResult{Room: locator})
		return nil
	})
}
