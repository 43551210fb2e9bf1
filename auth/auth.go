// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package auth is the Auth tier: it authenticates clients, issues the
// session tokens Jump and Game hosts accept, and lists the Jump
// services that registered with it.
//
// A Jump service registers by connecting like any client and raising
// OnJumpServiceAdded with its public endpoint and its Region, TitleId
// and Version. The registration lives as long as that connection. A
// newer registration of the same endpoint replaces the older one and
// disconnects it.
package auth

import (
	"log/slog"

	"github.com/bureau-foundation/loadbalancer/lib/authtoken"
	"github.com/bureau-foundation/loadbalancer/lib/endpoint"
	"github.com/bureau-foundation/loadbalancer/lib/protocol"
	"github.com/bureau-foundation/loadbalancer/lib/rpc"
	"github.com/bureau-foundation/loadbalancer/lib/scheduler"
	"github.com/bureau-foundation/loadbalancer/lib/wire"
	"github.com/bureau-foundation/loadbalancer/transport"
)

// Service is one Auth process.
type Service struct {
	logger *slog.Logger
	tokens *authtoken.Sealer
	server *rpc.Server[*Handler]
}

// New returns a Service issuing tokens with tokens. Connection
// schedulers live on sched.
func New(sched *scheduler.Service, tokens *authtoken.Sealer, logger *slog.Logger) *Service {
	s := &Service{logger: logger, tokens: tokens}
	s.server = rpc.NewServer(sched, logger, func(peer *rpc.Peer) *Handler {
		return &Handler{service: s, peer: peer}
	})
	return s
}

// Accept serves conn. It matches transport.Listener's accept callback.
func (s *Service) Accept(conn transport.Conn) { s.server.Accept(conn) }

// Close disconnects every client and registered Jump service.
func (s *Service) Close() { s.server.Close() }

// JumpService is a registered Jump, as advertised on registration.
type JumpService struct {
	Endpoint   endpoint.Endpoint
	Properties wire.Map

	handler *Handler
}

func (j *JumpService) Region() string  { return j.Properties.StringOr(protocol.KeyRegion, "") }
func (j *JumpService) TitleID() string { return j.Properties.StringOr(protocol.KeyTitleID, "") }
func (j *JumpService) Version() string { return j.Properties.StringOr(protocol.KeyVersion, "") }

// JumpServices returns the live registrations in connection order.
func (s *Service) JumpServices() []*JumpService {
	var services []*JumpService
	for _, handler := range s.server.Handlers() {
		if state := handler.jumpService(); state != nil {
			services = append(services, state)
		}
	}
	return services
}
