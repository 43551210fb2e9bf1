// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package game

import (
	"context"
	"time"

	"github.com/bureau-foundation/loadbalancer/lib/client"
	"github.com/bureau-foundation/loadbalancer/lib/link"
	"github.com/bureau-foundation/loadbalancer/lib/protocol"
	"github.com/bureau-foundation/loadbalancer/lib/scheduler"
	"github.com/bureau-foundation/loadbalancer/lib/wire"
)

// newJumpLink links conn to Jump. Each time the connection comes up the
// host registers, republishes every room and starts reporting its load
// every interval; the reports stop while the connection is down.
func (s *Service) newJumpLink(conn *client.Conn, options link.Options, interval time.Duration) (*link.Link, *scheduler.Item) {
	l := link.New(conn, s.settings.JumpServiceEndpoint, options, s.logger)
	update := conn.Scheduler().Schedule(s.reportLoad, interval, interval, true)
	conn.OnConnected(func() {
		err := conn.RaiseEventWith(protocol.OnGameServiceAdded, protocol.AddServiceParams{
			ServiceEndpoint:   s.settings.PublicServiceEndpoint,
			ServiceProperties: s.serviceProperties(),
		})
		if err != nil {
			l.Logger().Warn("registering with jump failed", "error", err)
			return
		}
		rooms := s.Rooms()
		l.Logger().Info("registered with jump",
			"public_endpoint", s.settings.PublicServiceEndpoint.String(),
			"load_level", s.LoadLevel().String(),
			"rooms", len(rooms),
		)
		for _, r := range rooms {
			s.republish(r)
		}
		if update != nil {
			update.Resume()
		}
	})
	conn.OnDisconnected(func(string) {
		if update != nil {
			update.Suspend()
		}
	})
	return l, update
}

func (s *Service) reportLoad() {
	err := s.link.Conn().RaiseEventWith(protocol.OnGameServiceUpdated, protocol.UpdateServiceParams{
		ServiceProperties: s.serviceProperties(),
	})
	if err != nil {
		s.link.Logger().Debug("reporting load failed", "error", err)
	}
}

// notifyJump reports one change of r to Jump. Nothing is sent while the
// link is down; the next connect republishes everything. When Jump
// rejects the change, r is republished in full.
func (s *Service) notifyJump(r *Room, name wire.Key, params any) {
	s.sendToJump(r, name, params, true)
}

// republish snapshots r on its own queue and sends the snapshot as
// OnRoomPublished.
func (s *Service) republish(r *Room) {
	accepted := r.queue.Enqueue(func() {
		if !s.hosts(r) {
			return
		}
		s.sendToJump(r, protocol.OnRoomPublished, r.publishParams(), false)
	})
	if !accepted {
		s.logger.Debug("room stopped before republish", "room_id", r.ID())
	}
}

// sendToJump queues a call to Jump on the link's queue, so room queues
// never wait for Jump.
func (s *Service) sendToJump(r *Room, name wire.Key, params any, republishOnFailure bool) {
	conn := s.link.Conn()
	if !conn.Connected() {
		return
	}
	request, err := wire.Marshal(params)
	if err != nil {
		s.logger.Error("encoding jump notification", "operation", string(name), "error", err)
		return
	}
	conn.Queue().Enqueue(func() {
		if !conn.Connected() {
			return
		}
		response := conn.CallMethod(context.Background(), name, request, s.callTimeout)
		if response.IsOK() {
			return
		}
		s.link.Logger().Warn("jump rejected room change",
			"operation", string(name),
			"room_id", r.ID(),
			"status", string(response.Status),
			"message", response.Message,
		)
		if republishOnFailure {
			s.republish(r)
		}
	})
}
