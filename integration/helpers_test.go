// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package integration_test runs the three tiers together in one
// process: an Auth service, a Jump registered with it and a Game host
// registered with the Jump, all connected through an in-memory dialer.
// Tests drive them only through the client library, the way a game
// runtime does.
package integration_test

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/bureau-foundation/loadbalancer/auth"
	"github.com/bureau-foundation/loadbalancer/game"
	"github.com/bureau-foundation/loadbalancer/jump"
	"github.com/bureau-foundation/loadbalancer/lib/authtoken"
	"github.com/bureau-foundation/loadbalancer/lib/client"
	"github.com/bureau-foundation/loadbalancer/lib/clock"
	"github.com/bureau-foundation/loadbalancer/lib/endpoint"
	"github.com/bureau-foundation/loadbalancer/lib/link"
	"github.com/bureau-foundation/loadbalancer/lib/protocol"
	"github.com/bureau-foundation/loadbalancer/lib/rpc"
	"github.com/bureau-foundation/loadbalancer/lib/scheduler"
	"github.com/bureau-foundation/loadbalancer/lib/secret"
	"github.com/bureau-foundation/loadbalancer/lib/sysload"
	"github.com/bureau-foundation/loadbalancer/lib/testutil"
	"github.com/bureau-foundation/loadbalancer/lib/wire"
	"github.com/bureau-foundation/loadbalancer/transport"
)

const (
	titleID = "shooter"
	version = "1.0"
)

var (
	authEndpoint = endpoint.MustParse("ws://auth.test:7700/auth")
	jumpEndpoint = endpoint.MustParse("ws://jump.test:7701/jump")
	gameEndpoint = endpoint.MustParse("ws://game.test:7702/game")
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// idleHost reports an unloaded machine so the Game host stays
// available.
type idleHost struct{}

func (idleHost) CPU() *sysload.CPUReading { return nil }
func (idleHost) Memory() (float64, bool)  { return 0, true }

var _ sysload.Source = idleHost{}

// cluster is one Auth, one Jump and one Game host sharing a token
// secret.
type cluster struct {
	auth   *auth.Service
	jump   *jump.Service
	game   *game.Service
	sched  *scheduler.Service
	dialer *transport.PipeDialer
}

func newCluster(t *testing.T) *cluster {
	t.Helper()
	key, err := secret.NewFromBytes([]byte("0123456789abcdef0123456789abcdef"))
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}
	t.Cleanup(func() { key.Close() })
	tokens, err := authtoken.NewSealer(key, "integration", time.Hour, clock.Real())
	if err != nil {
		t.Fatalf("NewSealer: %v", err)
	}
	t.Cleanup(func() { tokens.Close() })

	sched := scheduler.NewService(clock.Real(), discardLogger())
	t.Cleanup(sched.Close)
	dialer := &transport.PipeDialer{}
	fastLink := link.Options{ConnectDelay: time.Millisecond, ReconnectInterval: 20 * time.Millisecond}

	authService := auth.New(sched, tokens, discardLogger())
	t.Cleanup(authService.Close)
	dialer.Register(authEndpoint.URL(), authService.Accept)

	jumpService := jump.New(jump.Options{
		Settings: jump.Settings{
			Region:                "eu",
			TitleID:               titleID,
			Version:               version,
			AuthServiceEndpoints:  []endpoint.Endpoint{authEndpoint},
			PublicServiceEndpoint: jumpEndpoint,
		},
		Tokens:    tokens,
		Scheduler: sched,
		Dialer:    dialer,
		Link:      fastLink,
		Logger:    discardLogger(),
	})
	if err := jumpService.Start(); err != nil {
		t.Fatalf("starting jump: %v", err)
	}
	t.Cleanup(jumpService.Close)
	dialer.Register(jumpEndpoint.URL(), jumpService.Accept)

	gameService := game.New(game.Options{
		Settings: game.Settings{
			JumpServiceEndpoint:   jumpEndpoint,
			PublicServiceEndpoint: gameEndpoint,
		},
		Tokens:         tokens,
		Scheduler:      sched,
		Dialer:         dialer,
		Link:           fastLink,
		UpdateInterval: 50 * time.Millisecond,
		LoadSource:     idleHost{},
		SampleInterval: 10 * time.Millisecond,
		LoadWindow:     1,
		Logger:         discardLogger(),
	})
	if err := gameService.Start(); err != nil {
		t.Fatalf("starting game: %v", err)
	}
	t.Cleanup(gameService.Close)
	dialer.Register(gameEndpoint.URL(), gameService.Accept)

	c := &cluster{auth: authService, jump: jumpService, game: gameService, sched: sched, dialer: dialer}
	testutil.RequireEventually(t, 5*time.Second, func() bool {
		return len(authService.JumpServices()) == 1 && len(jumpService.AvailableGameServices()) == 1
	}, "jump registered with auth and game registered with jump")
	return c
}

func (c *cluster) options() client.Options {
	return client.Options{Dialer: c.dialer, Logger: discardLogger(), Scheduler: c.sched}
}

// player is one game runtime's view of the cluster.
type player struct {
	name  string
	token string
	jump  *client.JumpClient
	game  *client.GameClient
}

// login authenticates name with Auth, picks the Jump it lists and
// authenticates there with the issued token.
func (c *cluster) login(t *testing.T, name string) *player {
	t.Helper()
	authClient := client.NewAuthClient(c.options())
	defer authClient.Close()
	if err := authClient.Connect(t.Context(), authEndpoint); err != nil {
		t.Fatalf("connecting to auth: %v", err)
	}
	issued, err := authClient.Authenticate(t.Context(), protocol.AuthenticateParams{
		Provider: protocol.ProviderTest,
		Params:   wire.Map{protocol.KeyUserName: wire.String(name)},
	})
	if err != nil {
		t.Fatalf("Authenticate with auth: %v", err)
	}
	listed, err := authClient.ListJumpServices(t.Context(), protocol.ListJumpServicesParams{TitleID: titleID, Version: version})
	if err != nil {
		t.Fatalf("ListJumpServices: %v", err)
	}
	if len(listed.Endpoints) != 1 || !listed.Endpoints[0].Equal(jumpEndpoint) {
		t.Fatalf("jump services = %v, want [%s]", listed.Endpoints, jumpEndpoint)
	}
	if err := authClient.Disconnect(t.Context()); err != nil {
		t.Fatalf("disconnecting from auth: %v", err)
	}

	jumpClient := client.NewJumpClient(c.options())
	t.Cleanup(func() { jumpClient.Close() })
	if err := jumpClient.Connect(t.Context(), listed.Endpoints[0]); err != nil {
		t.Fatalf("connecting to jump: %v", err)
	}
	_, err = jumpClient.Authenticate(t.Context(), protocol.AuthenticateParams{Provider: protocol.ProviderToken, Token: issued.AuthToken})
	if err != nil {
		t.Fatalf("Authenticate with jump: %v", err)
	}
	return &player{name: name, token: issued.AuthToken, jump: jumpClient}
}

// enter connects to the Game host a locator names and authenticates.
func (p *player) enter(t *testing.T, c *cluster, locator protocol.RoomLocator) {
	t.Helper()
	p.game = client.NewGameClient(c.options())
	t.Cleanup(func() { p.game.Close() })
	if err := p.game.Connect(t.Context(), locator.ServiceEndpoint); err != nil {
		t.Fatalf("connecting to game: %v", err)
	}
	_, err := p.game.Authenticate(t.Context(), protocol.AuthenticateParams{Provider: protocol.ProviderToken, Token: p.token})
	if err != nil {
		t.Fatalf("Authenticate with game: %v", err)
	}
}

// host asks Jump for a server and creates a room there.
func (p *player) host(t *testing.T, c *cluster, properties wire.Map) protocol.CreateRoomResult {
	t.Helper()
	found, err := p.jump.FindServer(t.Context(), protocol.FindServerParams{TitleID: titleID, RoomProperties: properties})
	if err != nil {
		t.Fatalf("FindServer: %v", err)
	}
	if found.Room.IsExistingRoom || !found.Room.ServiceEndpoint.Equal(gameEndpoint) {
		t.Fatalf("FindServer = %+v", found.Room)
	}
	p.enter(t, c, found.Room)
	created, err := p.game.CreateRoom(t.Context(), protocol.CreateRoomParams{
		RoomID:           found.Room.RoomID,
		RoomProperties:   found.Room.RoomProperties,
		PlayerID:         p.name,
		PlayerProperties: wire.Map{protocol.KeyNickname: wire.String(p.name)},
	})
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	return created
}

// findRoom polls Jump until a room matching params is listed; rooms
// reach the directory asynchronously.
func (p *player) findRoom(t *testing.T, params protocol.FindRoomParams) protocol.RoomLocator {
	t.Helper()
	var found protocol.FindRoomResult
	testutil.RequireEventually(t, 5*time.Second, func() bool {
		var err error
		found, err = p.jump.FindRoom(t.Context(), params)
		return err == nil && len(found.Rooms) > 0
	}, "room listed by jump")
	return found.Rooms[0]
}

// join enters the room a locator names.
func (p *player) join(t *testing.T, c *cluster, locator protocol.RoomLocator) protocol.JoinRoomResult {
	t.Helper()
	p.enter(t, c, locator)
	joined, err := p.game.JoinRoom(t.Context(), protocol.JoinRoomParams{
		RoomID:           locator.RoomID,
		PlayerID:         p.name,
		PlayerProperties: wire.Map{protocol.KeyNickname: wire.String(p.name)},
	})
	if err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}
	return joined
}

func requireStatus(t *testing.T, err error, status wire.Key) {
	t.Helper()
	var statusErr *rpc.StatusError
	if !errors.As(err, &statusErr) || statusErr.Status != status {
		t.Fatalf("error = %v, want status %s", err, status)
	}
}
