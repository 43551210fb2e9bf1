// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"errors"
	"testing"
	"time"

	"github.com/bureau-foundation/loadbalancer/lib/authtoken"
	"github.com/bureau-foundation/loadbalancer/lib/clock"
	"github.com/bureau-foundation/loadbalancer/lib/protocol"
	"github.com/bureau-foundation/loadbalancer/lib/rpc"
	"github.com/bureau-foundation/loadbalancer/lib/secret"
	"github.com/bureau-foundation/loadbalancer/lib/wire"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newSealer(t *testing.T, c clock.Clock) *authtoken.Sealer {
	t.Helper()
	key, err := secret.NewFromBytes([]byte("session-test-shared-secret-bytes"))
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}
	t.Cleanup(func() { key.Close() })
	sealer, err := authtoken.NewSealer(key, "session-test", time.Hour, c)
	if err != nil {
		t.Fatalf("NewSealer: %v", err)
	}
	t.Cleanup(func() { sealer.Close() })
	return sealer
}

func TestVerifyAcceptsIssuedToken(t *testing.T) {
	sealer := newSealer(t, clock.Fake(epoch))
	token, payload, err := sealer.Issue(wire.Map{
		protocol.KeyUserID:   wire.String("ada"),
		protocol.KeyUserName: wire.String("ada"),
	})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	session, err := Verify(sealer, protocol.AuthenticateParams{Provider: protocol.ProviderToken, Token: token})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if session.UserID != "ada" {
		t.Errorf("UserID = %q, want ada", session.UserID)
	}
	if session.ID != payload.SessionID {
		t.Errorf("ID = %s, want %s", session.ID, payload.SessionID)
	}
}

func TestVerifyFailures(t *testing.T) {
	fake := clock.Fake(epoch)
	sealer := newSealer(t, fake)
	stale, _, err := sealer.Issue(wire.Map{protocol.KeyUserID: wire.String("ada")})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	fake.Advance(30 * time.Minute)
	valid, _, err := sealer.Issue(wire.Map{protocol.KeyUserID: wire.String("ada")})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	fake.Advance(45 * time.Minute)

	tests := []struct {
		name    string
		params  protocol.AuthenticateParams
		status  wire.Key
		message string
	}{
		{"test provider", protocol.AuthenticateParams{Provider: protocol.ProviderTest, Token: valid}, protocol.StatusProviderNotSupported, protocol.ProviderTest},
		{"missing token", protocol.AuthenticateParams{Provider: protocol.ProviderToken}, protocol.StatusParameterMissed, "Token"},
		{"garbage", protocol.AuthenticateParams{Provider: protocol.ProviderToken, Token: "not-a-token"}, protocol.StatusTokenInvalid, "invalid"},
		{"expired", protocol.AuthenticateParams{Provider: protocol.ProviderToken, Token: stale}, protocol.StatusTokenInvalid, "expired"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Verify(sealer, test.params)
			var statusErr *rpc.StatusError
			if !errors.As(err, &statusErr) {
				t.Fatalf("error = %v, want *rpc.StatusError", err)
			}
			if statusErr.Status != test.status || statusErr.Message != test.message {
				t.Fatalf("got %s %q, want %s %q", statusErr.Status, statusErr.Message, test.status, test.message)
			}
		})
	}

	if _, err := Verify(sealer, protocol.AuthenticateParams{Provider: protocol.ProviderToken, Token: valid}); err != nil {
		t.Fatalf("token issued 45 minutes ago: %v", err)
	}
}

func TestVerifyRequiresUserID(t *testing.T) {
	sealer := newSealer(t, clock.Fake(epoch))
	token, _, err := sealer.Issue(wire.Map{protocol.KeyUserName: wire.String("ada")})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	_, err = Verify(sealer, protocol.AuthenticateParams{Provider: protocol.ProviderToken, Token: token})
	var statusErr *rpc.StatusError
	if !errors.As(err, &statusErr) || statusErr.Status != protocol.StatusTokenInvalid || statusErr.Message != "no user id" {
		t.Fatalf("error = %v, want TokenInvalid \"no user id\"", err)
	}
}
