// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package session checks the session tokens Auth issues when a client
// presents one to a Jump or Game host with provider Token.
package session

import (
	"errors"

	"github.com/google/uuid"

	"github.com/bureau-foundation/loadbalancer/lib/authtoken"
	"github.com/bureau-foundation/loadbalancer/lib/protocol"
	"github.com/bureau-foundation/loadbalancer/lib/rpc"
	"github.com/bureau-foundation/loadbalancer/lib/wire"
)

// Session is an authenticated client as described by its token.
type Session struct {
	ID     uuid.UUID
	UserID string
	Claims wire.Map
}

// Verify opens the token in params. Failures are *rpc.StatusError
// values ready to fail the Authenticate call with:
//   - a provider other than Token is ProviderNotSupported
//   - an empty token is ParameterMissed "Token"
//   - a token that does not open, is stale or carries no UserId is
//     TokenInvalid
func Verify(tokens *authtoken.Sealer, params protocol.AuthenticateParams) (Session, error) {
	if params.Provider != protocol.ProviderToken {
		return Session{}, &rpc.StatusError{Status: protocol.StatusProviderNotSupported, Message: params.Provider}
	}
	if params.Token == "" {
		return Session{}, &rpc.StatusError{Status: protocol.StatusParameterMissed, Message: "Token"}
	}
	payload, err := tokens.Open(params.Token)
	if err != nil {
		message := "invalid"
		if errors.Is(err, authtoken.ErrExpired) {
			message = "expired"
		}
		return Session{}, &rpc.StatusError{Status: protocol.StatusTokenInvalid, Message: message}
	}
	userID, _ := payload.Claims.Str(protocol.KeyUserID)
	if userID == "" {
		return Session{}, &rpc.StatusError{Status: protocol.StatusTokenInvalid, Message: "no user id"}
	}
	return Session{ID: payload.SessionID, UserID: userID, Claims: payload.Claims}, nil
}
