// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rpc

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/bureau-foundation/loadbalancer/lib/scheduler"
	"github.com/bureau-foundation/loadbalancer/transport"
)

// Server tracks the handlers of live connections.
type Server[H Handler] struct {
	service    *scheduler.Service
	logger     *slog.Logger
	newHandler func(*Peer) H

	mu      sync.Mutex
	entries []serverEntry[H]
}

type serverEntry[H Handler] struct {
	peer    *Peer
	handler H
}

// NewServer returns a Server that builds a handler for each accepted
// connection with newHandler. Peer schedulers live on service.
func NewServer[H Handler](service *scheduler.Service, logger *slog.Logger, newHandler func(*Peer) H) *Server[H] {
	return &Server[H]{service: service, logger: logger, newHandler: newHandler}
}

// Accept takes ownership of conn. It matches transport.Listener's accept
// callback.
func (s *Server[H]) Accept(conn transport.Conn) {
	peer := newPeer(conn, s.service, s.logger)
	handler := s.newHandler(peer)
	peer.handler = handler

	s.mu.Lock()
	s.entries = append(s.entries, serverEntry[H]{peer: peer, handler: handler})
	s.mu.Unlock()

	peer.OnDisconnect(func(string) { s.remove(peer) })
	peer.logger.Debug("peer connected", "path", conn.Path())
	go peer.serve()
}

func (s *Server[H]) remove(peer *Peer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = slices.DeleteFunc(s.entries, func(entry serverEntry[H]) bool {
		return entry.peer == peer
	})
}

// Handlers returns a snapshot of the live handlers in connection order.
func (s *Server[H]) Handlers() []H {
	s.mu.Lock()
	defer s.mu.Unlock()
	handlers := make([]H, len(s.entries))
	for i, entry := range s.entries {
		handlers[i] = entry.handler
	}
	return handlers
}

// Len returns the number of live connections.
func (s *Server[H]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close disconnects every live connection and waits for their
// disconnect sequences to finish.
func (s *Server[H]) Close() {
	s.mu.Lock()
	peers := make([]*Peer, len(s.entries))
	for i, entry := range s.entries {
		peers[i] = entry.peer
	}
	s.mu.Unlock()

	for _, peer := range peers {
		peer.Disconnect("server shutting down")
	}
	for _, peer := range peers {
		<-peer.Done()
	}
}
