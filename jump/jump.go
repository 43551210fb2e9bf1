// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package jump is the Jump tier: the matchmaker between clients and
// Game hosts.
//
// Game hosts connect to Jump and register with OnGameServiceAdded. From
// then on they report their load level and every change to their rooms,
// and Jump keeps a directory of those rooms with their base properties
// and players. Clients authenticate with a token issued by Auth and ask
// FindRoom for existing rooms or FindServer for the least-loaded host
// to create one on.
//
// Every directory mutation and every directory search runs on one
// service-wide action queue, so a search never observes a half-applied
// update. Jump registers itself with each configured Auth endpoint
// over a [link.Link].
package jump

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/bureau-foundation/loadbalancer/lib/actionqueue"
	"github.com/bureau-foundation/loadbalancer/lib/authtoken"
	"github.com/bureau-foundation/loadbalancer/lib/client"
	"github.com/bureau-foundation/loadbalancer/lib/clock"
	"github.com/bureau-foundation/loadbalancer/lib/endpoint"
	"github.com/bureau-foundation/loadbalancer/lib/link"
	"github.com/bureau-foundation/loadbalancer/lib/props"
	"github.com/bureau-foundation/loadbalancer/lib/protocol"
	"github.com/bureau-foundation/loadbalancer/lib/room"
	"github.com/bureau-foundation/loadbalancer/lib/rpc"
	"github.com/bureau-foundation/loadbalancer/lib/scheduler"
	"github.com/bureau-foundation/loadbalancer/lib/sysload"
	"github.com/bureau-foundation/loadbalancer/lib/wire"
	"github.com/bureau-foundation/loadbalancer/transport"
)

// Settings describe what this Jump serves and where it registers.
type Settings struct {
	Region  string
	TitleID string
	Version string

	// AuthServiceEndpoints are the Auth services to register with.
	AuthServiceEndpoints []endpoint.Endpoint

	// PublicServiceEndpoint is the address clients reach this Jump at,
	// as advertised to Auth.
	PublicServiceEndpoint endpoint.Endpoint
}

// Properties is what Jump advertises to Auth on registration.
func (s Settings) Properties() wire.Map {
	return wire.Map{
		protocol.KeyRegion:  wire.String(s.Region),
		protocol.KeyTitleID: wire.String(s.TitleID),
		protocol.KeyVersion: wire.String(s.Version),
	}
}

type Options struct {
	Settings Settings

	// Tokens opens the session tokens clients present.
	Tokens *authtoken.Sealer

	// Scheduler runs connection schedulers, the Auth link schedules
	// included.
	Scheduler *scheduler.Service

	// Dialer reaches Auth. Nil means websockets.
	Dialer transport.Dialer

	// Clock times Auth calls. Nil means the wall clock.
	Clock clock.Clock

	// Link tunes the Auth connect schedule.
	Link link.Options

	Logger *slog.Logger
}

// Service is one Jump process.
type Service struct {
	settings  Settings
	tokens    *authtoken.Sealer
	logger    *slog.Logger
	server    *rpc.Server[*Handler]
	directory *actionqueue.Queue
	links     []*link.Link
}

// New builds the service and its Auth links. Nothing connects until
// Start.
func New(options Options) *Service {
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Service{
		settings:  options.Settings,
		tokens:    options.Tokens,
		logger:    logger,
		directory: actionqueue.New(logger.With("queue", "directory")),
	}
	s.server = rpc.NewServer(options.Scheduler, logger, func(peer *rpc.Peer) *Handler {
		return &Handler{service: s, peer: peer}
	})
	for _, target := range options.Settings.AuthServiceEndpoints {
		conn := client.New(client.Options{
			Dialer:    options.Dialer,
			Clock:     options.Clock,
			Logger:    logger.With("link", "auth"),
			Scheduler: options.Scheduler,
		})
		s.links = append(s.links, s.newAuthLink(conn, target, options.Link))
	}
	return s
}

func (s *Service) Settings() Settings      { return s.settings }
func (s *Service) AuthLinks() []*link.Link { return s.links }

// Start opens the directory queue and schedules the Auth links.
func (s *Service) Start() error {
	s.directory.Start()
	for _, l := range s.links {
		if err := l.Start(); err != nil {
			return fmt.Errorf("starting link to %s: %w", l.Target(), err)
		}
	}
	s.logger.Info("jump service started",
		"region", s.settings.Region,
		"title_id", s.settings.TitleID,
		"version", s.settings.Version,
		"public_endpoint", s.settings.PublicServiceEndpoint.String(),
		"auth_endpoints", len(s.links),
	)
	return nil
}

// Accept serves conn. It matches transport.Listener's accept callback.
func (s *Service) Accept(conn transport.Conn) { s.server.Accept(conn) }

// Close drops the Auth links, every client and every Game host.
func (s *Service) Close() {
	var errs []error
	for _, l := range s.links {
		errs = append(errs, l.Close())
	}
	if err := errors.Join(errs...); err != nil {
		s.logger.Debug("closing auth links", "error", err)
	}
	s.server.Close()
	s.directory.Stop()
}

// GameServices returns the registered Game hosts in connection order.
func (s *Service) GameServices() []*GameService {
	var games []*GameService
	for _, handler := range s.server.Handlers() {
		if game := handler.gameService(); game != nil {
			games = append(games, game)
		}
	}
	return games
}

// AvailableGameServices returns the Game hosts that can take more
// players, least loaded first. Hosts at the same level keep connection
// order.
func (s *Service) AvailableGameServices() []*GameService {
	games := slices.DeleteFunc(s.GameServices(), func(game *GameService) bool {
		return !game.LoadLevel().Available()
	})
	slices.SortStableFunc(games, func(a, b *GameService) int {
		return cmp.Compare(a.LoadLevel(), b.LoadLevel())
	})
	return games
}

// GameService is a registered Game host and its directory of rooms.
type GameService struct {
	Endpoint endpoint.Endpoint

	properties *props.Bag
	handler    *Handler
	logger     *slog.Logger

	mu    sync.Mutex
	rooms map[string]*room.Room
	order []string
}

func newGameService(service endpoint.Endpoint, properties wire.Map, handler *Handler, logger *slog.Logger) *GameService {
	return &GameService{
		Endpoint:   service,
		properties: props.New(properties),
		handler:    handler,
		logger:     logger,
		rooms:      make(map[string]*room.Room),
	}
}

// Properties are the service properties the host reported.
func (g *GameService) Properties() *props.Bag { return g.properties }

// LoadLevel is the last level the host reported. A host that never
// reported one counts as Lowest.
func (g *GameService) LoadLevel() sysload.Level {
	level, _ := g.properties.Int(protocol.KeyLoadLevel)
	return sysload.Level(level)
}

// Rooms returns the directory rooms in creation order.
func (g *GameService) Rooms() []*room.Room {
	g.mu.Lock()
	defer g.mu.Unlock()
	rooms := make([]*room.Room, 0, len(g.order))
	for _, id := range g.order {
		rooms = append(rooms, g.rooms[id])
	}
	return rooms
}

func (g *GameService) Room(id string) (*room.Room, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.rooms[id]
	return r, ok
}

func (g *GameService) addRoom(r *room.Room) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.rooms[r.ID()]; !exists {
		g.order = append(g.order, r.ID())
	}
	g.rooms[r.ID()] = r
}

func (g *GameService) removeRoom(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.rooms[id]; !exists {
		return false
	}
	delete(g.rooms, id)
	g.order = slices.DeleteFunc(g.order, func(candidate string) bool { return candidate == id })
	return true
}
