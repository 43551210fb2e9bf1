// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package game is the Game tier: it hosts rooms and relays their state
// between the players connected to them.
//
// Each room runs its mutations on its own action queue, so players in
// different rooms never contend and every change to one room is applied
// and broadcast in a single order. A player's own connection is never
// told about its own change; the call's reply covers it.
//
// The host keeps Jump's directory current over a [link.Link]: it
// registers with its load level, republishes every room after each
// (re)connect, reports each room change as it happens and republishes
// a room whenever Jump rejects one of those reports. The load level
// comes from a [sysload.Sampler] and is reported again every update
// interval.
package game

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/loadbalancer/lib/actionqueue"
	"github.com/bureau-foundation/loadbalancer/lib/authtoken"
	"github.com/bureau-foundation/loadbalancer/lib/client"
	"github.com/bureau-foundation/loadbalancer/lib/clock"
	"github.com/bureau-foundation/loadbalancer/lib/endpoint"
	"github.com/bureau-foundation/loadbalancer/lib/link"
	"github.com/bureau-foundation/loadbalancer/lib/protocol"
	"github.com/bureau-foundation/loadbalancer/lib/room"
	"github.com/bureau-foundation/loadbalancer/lib/rpc"
	"github.com/bureau-foundation/loadbalancer/lib/scheduler"
	"github.com/bureau-foundation/loadbalancer/lib/sysload"
	"github.com/bureau-foundation/loadbalancer/lib/wire"
	"github.com/bureau-foundation/loadbalancer/transport"
)

// DefaultUpdateInterval is how often a connected host reports its load
// level to Jump.
const DefaultUpdateInterval = 10 * time.Second

// DefaultCallTimeout bounds each room notification sent to Jump.
const DefaultCallTimeout = 5 * time.Second

type Settings struct {
	// JumpServiceEndpoint is the Jump this host registers with.
	JumpServiceEndpoint endpoint.Endpoint

	// PublicServiceEndpoint is the address clients reach this host at,
	// as advertised to Jump.
	PublicServiceEndpoint endpoint.Endpoint

	// DebugOperations enables the events that drop and restore the
	// link to Jump.
	DebugOperations bool
}

type Options struct {
	Settings Settings

	// Tokens opens the session tokens clients present.
	Tokens *authtoken.Sealer

	// Scheduler runs connection schedulers, the Jump link schedules and
	// load sampling.
	Scheduler *scheduler.Service

	// Dialer reaches Jump. Nil means websockets.
	Dialer transport.Dialer

	// Clock times Jump calls. Nil means the wall clock.
	Clock clock.Clock

	// Link tunes the Jump connect schedule.
	Link link.Options

	// UpdateInterval is how often the load level is reported while
	// connected. Zero means DefaultUpdateInterval.
	UpdateInterval time.Duration

	// CallTimeout bounds each room notification sent to Jump; a call
	// that times out counts as rejected. Zero means DefaultCallTimeout.
	CallTimeout time.Duration

	// LoadSource feeds the load sampler. Nil means the host's own
	// counters.
	LoadSource sysload.Source

	// SampleInterval and LoadWindow tune the sampler. Zero means
	// sysload.SampleInterval and sysload.DefaultWindow.
	SampleInterval time.Duration
	LoadWindow     int

	Logger *slog.Logger
}

// Service is one Game host.
type Service struct {
	settings Settings
	tokens   *authtoken.Sealer
	logger   *slog.Logger
	server   *rpc.Server[*Handler]

	// queue runs service-wide work: load sampling and debug link
	// toggles.
	queue          *actionqueue.Queue
	sampling       *scheduler.Scheduler
	sampler        *sysload.Sampler
	sampleInterval time.Duration

	link        *link.Link
	update      *scheduler.Item
	callTimeout time.Duration

	mu    sync.Mutex
	rooms map[string]*Room
	order []string
}

// New builds the service and its Jump link. Nothing connects until
// Start.
func New(options Options) *Service {
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	source := options.LoadSource
	if source == nil {
		source = sysload.HostSource()
	}
	sampleInterval := options.SampleInterval
	if sampleInterval <= 0 {
		sampleInterval = sysload.SampleInterval
	}
	updateInterval := options.UpdateInterval
	if updateInterval <= 0 {
		updateInterval = DefaultUpdateInterval
	}
	callTimeout := options.CallTimeout
	if callTimeout <= 0 {
		callTimeout = DefaultCallTimeout
	}

	s := &Service{
		settings:       options.Settings,
		tokens:         options.Tokens,
		logger:         logger,
		queue:          actionqueue.New(logger.With("queue", "service")),
		sampler:        sysload.NewSampler(source, options.LoadWindow, logger),
		sampleInterval: sampleInterval,
		callTimeout:    callTimeout,
		rooms:          make(map[string]*Room),
	}
	s.sampling = options.Scheduler.NewScheduler("sysload", s.queue)
	s.server = rpc.NewServer(options.Scheduler, logger, func(peer *rpc.Peer) *Handler {
		return &Handler{service: s, peer: peer}
	})
	conn := client.New(client.Options{
		Dialer:    options.Dialer,
		Clock:     options.Clock,
		Logger:    logger.With("link", "jump"),
		Scheduler: options.Scheduler,
	})
	s.link, s.update = s.newJumpLink(conn, options.Link, updateInterval)
	return s
}

func (s *Service) Settings() Settings       { return s.settings }
func (s *Service) JumpLink() *link.Link     { return s.link }
func (s *Service) LoadLevel() sysload.Level { return s.sampler.Level() }

// Start begins load sampling and schedules the Jump link.
func (s *Service) Start() error {
	s.queue.Start()
	s.sampling.Start()
	if err := s.sampler.Start(s.sampling, s.sampleInterval); err != nil {
		return fmt.Errorf("starting load sampler: %w", err)
	}
	if s.update == nil {
		return errors.New("game: jump link scheduler is stopped")
	}
	if err := s.link.Start(); err != nil {
		return fmt.Errorf("starting link to %s: %w", s.settings.JumpServiceEndpoint, err)
	}
	s.logger.Info("game service started",
		"public_endpoint", s.settings.PublicServiceEndpoint.String(),
		"jump_endpoint", s.settings.JumpServiceEndpoint.String(),
		"debug_operations", s.settings.DebugOperations,
	)
	return nil
}

// Accept serves conn. It matches transport.Listener's accept callback.
func (s *Service) Accept(conn transport.Conn) { s.server.Accept(conn) }

// Close drops the Jump link and every player.
func (s *Service) Close() {
	s.sampler.Stop()
	s.sampling.Stop()
	if err := s.link.Close(); err != nil {
		s.logger.Debug("closing jump link", "error", err)
	}
	s.server.Close()
	s.queue.Stop()
}

// Rooms returns the hosted rooms in creation order.
func (s *Service) Rooms() []*Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	rooms := make([]*Room, 0, len(s.order))
	for _, id := range s.order {
		rooms = append(rooms, s.rooms[id])
	}
	return rooms
}

func (s *Service) Room(id string) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	return r, ok
}

func (s *Service) hosts(r *Room) bool {
	current, ok := s.Room(r.ID())
	return ok && current == r
}

// addRoom registers r and starts its queue with first as its first
// item, so nothing another player does to r can run before it. It
// returns false when the id is taken.
func (s *Service) addRoom(r *Room, first func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rooms[r.ID()]; exists {
		return false
	}
	s.rooms[r.ID()] = r
	s.order = append(s.order, r.ID())
	r.queue.Start()
	r.queue.Enqueue(first)
	return true
}

// removeRoom unregisters r and stops its queue. Items already queued
// still run and find the room gone.
func (s *Service) removeRoom(r *Room) {
	s.mu.Lock()
	if current, ok := s.rooms[r.ID()]; ok && current == r {
		delete(s.rooms, r.ID())
		for i, id := range s.order {
			if id == r.ID() {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
	s.mu.Unlock()
	r.queue.Stop()
	s.logger.Info("room removed", "room_id", r.ID())
}

// serviceProperties is what the host reports to Jump about itself.
func (s *Service) serviceProperties() wire.Map {
	return wire.Map{protocol.KeyLoadLevel: wire.Byte(uint8(s.sampler.Level()))}
}

// Room is a hosted room and the queue its mutations run on.
type Room struct {
	*room.Room

	queue *actionqueue.Queue
}

// newRoom builds a room from its creator's request. MaxPlayers defaults
// to protocol.DefaultMaxPlayers. When the last player leaves, the room
// is removed; otherwise the leaver's duties pass to a new host.
func (s *Service) newRoom(id string, properties wire.Map) *Room {
	r := &Room{
		Room:  room.New(id, properties, s.logger),
		queue: actionqueue.New(s.logger.With("room_id", id)),
	}
	if !r.Properties().Has(protocol.KeyMaxPlayers) {
		r.Properties().Set(protocol.KeyMaxPlayers, wire.Int32(protocol.DefaultMaxPlayers))
	}
	r.OnPlayerLeft(func(leaver *room.Player) {
		if r.IsEmpty() {
			s.removeRoom(r)
			return
		}
		r.ElectHost(leaver)
	})
	return r
}

// publishParams is the room's full directory entry. Call it on the
// room's queue.
func (r *Room) publishParams() protocol.PublishRoomParams {
	players := r.Players()
	specs := make([]protocol.PlayerSpec, 0, len(players))
	for _, player := range players {
		specs = append(specs, protocol.PlayerSpec{
			PlayerID:         player.ID(),
			PlayerProperties: player.Properties().Extract(protocol.BasePlayerKeys...),
		})
	}
	return protocol.PublishRoomParams{
		RoomID:         r.ID(),
		RoomProperties: r.Properties().Extract(protocol.BaseRoomKeys...),
		RoomPlayers:    specs,
	}
}
