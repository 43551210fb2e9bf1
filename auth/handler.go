// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"sync"

	"github.com/bureau-foundation/loadbalancer/lib/endpoint"
	"github.com/bureau-foundation/loadbalancer/lib/protocol"
	"github.com/bureau-foundation/loadbalancer/lib/rpc"
	"github.com/bureau-foundation/loadbalancer/lib/wire"
)

// Handler serves one connection: a client or a registered Jump.
type Handler struct {
	service *Service
	peer    *rpc.Peer

	mu   sync.Mutex
	jump *JumpService
}

var handlers = func() *rpc.Table[*Handler] {
	table := rpc.NewTable[*Handler]()
	rpc.Register(table, protocol.Authenticate, (*Handler).authenticate)
	rpc.Register(table, protocol.ListJumpServices, (*Handler).listJumpServices)
	rpc.Register(table, protocol.OnJumpServiceAdded, (*Handler).onJumpServiceAdded)
	return table
}()

func (h *Handler) HandleCall(call *rpc.Call) rpc.Result { return handlers.Dispatch(h, call) }
func (h *Handler) HandleRealtime(*rpc.Call)             {}

func (h *Handler) OnDisconnected(reason string) {
	if state := h.jumpService(); state != nil {
		h.peer.Logger().Info("jump service unregistered",
			"endpoint", state.Endpoint.String(),
			"reason", reason,
		)
	}
}

func (h *Handler) jumpService() *JumpService {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.jump
}

func (h *Handler) authenticate(call *rpc.Call, params *protocol.AuthenticateParams) rpc.Result {
	h.peer.Logger().Debug("authenticate", "provider", params.Provider)

	var claims wire.Map
	switch params.Provider {
	case protocol.ProviderTest:
		userName := params.Params.StringOr(protocol.KeyUserName, "")
		if userName == "" {
			return call.Fail(protocol.StatusParameterMissed, string(protocol.KeyUserName))
		}
		claims = wire.Map{
			protocol.KeyUserID:     wire.String(userName),
			protocol.KeyUserName:   wire.String(userName),
			protocol.KeyLanguageID: wire.Int32(1),
		}
	default:
		return call.Fail(protocol.StatusProviderNotSupported, params.Provider)
	}

	token, payload, err := h.service.tokens.Issue(claims)
	if err != nil {
		return call.FailWith(err)
	}
	h.peer.SetAuthenticated(true)
	h.peer.Logger().Info("client authenticated",
		"provider", params.Provider,
		"session_id", payload.SessionID.String(),
		"token", h.service.tokens.Fingerprint(token),
	)
	return call.CompleteWith(protocol.AuthenticateResult{AuthToken: token})
}

func (h *Handler) listJumpServices(call *rpc.Call, params *protocol.ListJumpServicesParams) rpc.Result {
	if !h.peer.Authenticated() {
		return call.Fail(protocol.StatusNotAuthenticated, "")
	}

	var endpoints []endpoint.Endpoint
	for _, state := range h.service.JumpServices() {
		if matches(params.Region, state.Region()) &&
			matches(params.TitleID, state.TitleID()) &&
			matches(params.Version, state.Version()) {
			endpoints = append(endpoints, state.Endpoint)
		}
	}
	if len(endpoints) == 0 {
		return call.Fail(protocol.StatusJumpServerNotFound, "")
	}
	return call.CompleteWith(protocol.ListJumpServicesResult{Endpoints: endpoints})
}

// matches treats an empty filter as a wildcard.
func matches(filter, advertised string) bool {
	return filter == "" || filter == advertised
}

func (h *Handler) onJumpServiceAdded(call *rpc.Call, params *protocol.AddServiceParams) rpc.Result {
	state := &JumpService{
		Endpoint:   params.ServiceEndpoint,
		Properties: params.ServiceProperties.Clone(),
		handler:    h,
	}
	h.mu.Lock()
	h.jump = state
	h.mu.Unlock()
	h.peer.Logger().Info("jump service registered",
		"endpoint", state.Endpoint.String(),
		"region", state.Region(),
		"title_id", state.TitleID(),
		"version", state.Version(),
	)

	for _, other := range h.service.JumpServices() {
		if other != state && other.Endpoint.Equal(state.Endpoint) {
			h.peer.Logger().Info("disconnecting replaced jump service", "endpoint", other.Endpoint.String())
			other.handler.peer.Disconnect("replaced by a newer registration")
		}
	}
	return call.Complete(nil)
}
