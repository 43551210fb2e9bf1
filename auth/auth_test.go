// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/bureau-foundation/loadbalancer/lib/authtoken"
	"github.com/bureau-foundation/loadbalancer/lib/client"
	"github.com/bureau-foundation/loadbalancer/lib/clock"
	"github.com/bureau-foundation/loadbalancer/lib/endpoint"
	"github.com/bureau-foundation/loadbalancer/lib/protocol"
	"github.com/bureau-foundation/loadbalancer/lib/rpc"
	"github.com/bureau-foundation/loadbalancer/lib/scheduler"
	"github.com/bureau-foundation/loadbalancer/lib/secret"
	"github.com/bureau-foundation/loadbalancer/lib/testutil"
	"github.com/bureau-foundation/loadbalancer/lib/wire"
	"github.com/bureau-foundation/loadbalancer/transport"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var authEndpoint = endpoint.MustParse("ws://auth.test:7700/auth")

type fixture struct {
	service *Service
	tokens  *authtoken.Sealer
	sched   *scheduler.Service
	dialer  *transport.PipeDialer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	key, err := secret.NewFromBytes([]byte("0123456789abcdef0123456789abcdef"))
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}
	t.Cleanup(func() { key.Close() })
	tokens, err := authtoken.NewSealer(key, "auth-test", time.Hour, clock.Real())
	if err != nil {
		t.Fatalf("NewSealer: %v", err)
	}
	t.Cleanup(func() { tokens.Close() })

	sched := scheduler.NewService(clock.Real(), discardLogger())
	t.Cleanup(sched.Close)
	service := New(sched, tokens, discardLogger())
	t.Cleanup(service.Close)

	dialer := &transport.PipeDialer{}
	dialer.Register(authEndpoint.URL(), service.Accept)
	return &fixture{service: service, tokens: tokens, sched: sched, dialer: dialer}
}

func (f *fixture) options() client.Options {
	return client.Options{Dialer: f.dialer, Logger: discardLogger(), Scheduler: f.sched}
}

func (f *fixture) client(t *testing.T) *client.AuthClient {
	t.Helper()
	c := client.NewAuthClient(f.options())
	t.Cleanup(func() { c.Close() })
	if err := c.Connect(t.Context(), authEndpoint); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return c
}

func (f *fixture) authenticated(t *testing.T) *client.AuthClient {
	t.Helper()
	c := f.client(t)
	_, err := c.Authenticate(t.Context(), protocol.AuthenticateParams{
		Provider: protocol.ProviderTest,
		Params:   wire.Map{protocol.KeyUserName: wire.String("ada")},
	})
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	return c
}

// registerJump connects as a Jump service and registers public.
func (f *fixture) registerJump(t *testing.T, public, region, titleID, version string) *client.Conn {
	t.Helper()
	conn := client.New(f.options())
	t.Cleanup(func() { conn.Close() })
	if err := conn.Connect(t.Context(), authEndpoint); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	err := conn.RaiseEventWith(protocol.OnJumpServiceAdded, protocol.AddServiceParams{
		ServiceEndpoint: endpoint.MustParse(public),
		ServiceProperties: wire.Map{
			protocol.KeyRegion:  wire.String(region),
			protocol.KeyTitleID: wire.String(titleID),
			protocol.KeyVersion: wire.String(version),
		},
	})
	if err != nil {
		t.Fatalf("raising OnJumpServiceAdded: %v", err)
	}
	return conn
}

func requireStatus(t *testing.T, err error, status wire.Key) {
	t.Helper()
	var statusErr *rpc.StatusError
	if !errors.As(err, &statusErr) || statusErr.Status != status {
		t.Fatalf("error = %v, want status %s", err, status)
	}
}

func TestAuthenticateIssuesToken(t *testing.T) {
	fixture := newFixture(t)
	c := fixture.client(t)

	result, err := c.Authenticate(t.Context(), protocol.AuthenticateParams{
		Provider: protocol.ProviderTest,
		Params:   wire.Map{protocol.KeyUserName: wire.String("ada")},
	})
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	payload, err := fixture.tokens.Open(result.AuthToken)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for key, want := range map[wire.Key]string{protocol.KeyUserID: "ada", protocol.KeyUserName: "ada"} {
		if got, _ := payload.Claims.Str(key); got != want {
			t.Errorf("claim %s = %q, want %q", key, got, want)
		}
	}
	if language, _ := payload.Claims.Int(protocol.KeyLanguageID); language != 1 {
		t.Errorf("LanguageId = %d, want 1", language)
	}
}

func TestAuthenticateFailures(t *testing.T) {
	fixture := newFixture(t)
	c := fixture.client(t)
	tests := []struct {
		name    string
		params  protocol.AuthenticateParams
		status  wire.Key
		message string
	}{
		{
			name:    "missing user name",
			params:  protocol.AuthenticateParams{Provider: protocol.ProviderTest},
			status:  protocol.StatusParameterMissed,
			message: "UserName",
		},
		{
			name:    "unknown provider",
			params:  protocol.AuthenticateParams{Provider: "Steam"},
			status:  protocol.StatusProviderNotSupported,
			message: "Steam",
		},
		{
			name:    "token provider is not Auth's",
			params:  protocol.AuthenticateParams{Provider: protocol.ProviderToken, Token: "x"},
			status:  protocol.StatusProviderNotSupported,
			message: protocol.ProviderToken,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := c.Authenticate(t.Context(), test.params)
			var statusErr *rpc.StatusError
			if !errors.As(err, &statusErr) {
				t.Fatalf("error = %v", err)
			}
			if statusErr.Status != test.status || statusErr.Message != test.message {
				t.Fatalf("got %s %q, want %s %q", statusErr.Status, statusErr.Message, test.status, test.message)
			}
		})
	}
}

func TestListJumpServicesRequiresAuthentication(t *testing.T) {
	fixture := newFixture(t)
	c := fixture.client(t)
	_, err := c.ListJumpServices(t.Context(), protocol.ListJumpServicesParams{})
	requireStatus(t, err, protocol.StatusNotAuthenticated)
}

func TestListJumpServicesFilters(t *testing.T) {
	fixture := newFixture(t)
	fixture.registerJump(t, "ws://jump-eu.test:7701/jump", "eu", "shooter", "1.0")
	fixture.registerJump(t, "ws://jump-us.test:7701/jump", "us", "shooter", "2.0")
	testutil.RequireEventually(t, 5*time.Second, func() bool {
		return len(fixture.service.JumpServices()) == 2
	}, "both jump services registered")

	c := fixture.authenticated(t)
	tests := []struct {
		name   string
		params protocol.ListJumpServicesParams
		want   []string
	}{
		{"no filter", protocol.ListJumpServicesParams{}, []string{"jump-eu.test", "jump-us.test"}},
		{"region", protocol.ListJumpServicesParams{Region: "eu"}, []string{"jump-eu.test"}},
		{"title", protocol.ListJumpServicesParams{TitleID: "shooter"}, []string{"jump-eu.test", "jump-us.test"}},
		{"version", protocol.ListJumpServicesParams{Version: "2.0"}, []string{"jump-us.test"}},
		{"all three", protocol.ListJumpServicesParams{Region: "us", TitleID: "shooter", Version: "2.0"}, []string{"jump-us.test"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result, err := c.ListJumpServices(t.Context(), test.params)
			if err != nil {
				t.Fatalf("ListJumpServices: %v", err)
			}
			var hosts []string
			for _, e := range result.Endpoints {
				hosts = append(hosts, e.Host)
			}
			if len(hosts) != len(test.want) {
				t.Fatalf("hosts = %v, want %v", hosts, test.want)
			}
			for i := range hosts {
				if hosts[i] != test.want[i] {
					t.Fatalf("hosts = %v, want %v", hosts, test.want)
				}
			}
		})
	}

	_, err := c.ListJumpServices(t.Context(), protocol.ListJumpServicesParams{Region: "asia"})
	requireStatus(t, err, protocol.StatusJumpServerNotFound)
}

func TestRegistrationEndsWithConnection(t *testing.T) {
	fixture := newFixture(t)
	jump := fixture.registerJump(t, "ws://jump.test:7701/jump", "eu", "shooter", "1.0")
	testutil.RequireEventually(t, 5*time.Second, func() bool {
		return len(fixture.service.JumpServices()) == 1
	}, "registration")

	if err := jump.Disconnect(t.Context()); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	testutil.RequireEventually(t, 5*time.Second, func() bool {
		return len(fixture.service.JumpServices()) == 0
	}, "registration removed")
}

func TestDuplicateRegistrationReplacesOlder(t *testing.T) {
	fixture := newFixture(t)
	older := fixture.registerJump(t, "ws://jump.test:7701/jump", "eu", "shooter", "1.0")
	dropped := make(chan string, 1)
	older.OnDisconnected(func(reason string) { dropped <- reason })
	testutil.RequireEventually(t, 5*time.Second, func() bool {
		return len(fixture.service.JumpServices()) == 1
	}, "first registration")

	fixture.registerJump(t, "WS://JUMP.test:7701/jump", "eu", "shooter", "1.1")
	testutil.RequireReceive(t, dropped, 5*time.Second, "older registration disconnected")

	testutil.RequireEventually(t, 5*time.Second, func() bool {
		services := fixture.service.JumpServices()
		return len(services) == 1 && services[0].Version() == "1.1"
	}, "only the newer registration remains")
}
