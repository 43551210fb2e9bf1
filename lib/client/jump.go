// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"

	"github.com/bureau-foundation/loadbalancer/lib/protocol"
)

// JumpClient talks to a Jump service.
type JumpClient struct {
	*Conn
}

func NewJumpClient(options Options) *JumpClient {
	return &JumpClient{Conn: New(options)}
}

// Authenticate presents a token issued by Auth, with provider Token.
func (c *JumpClient) Authenticate(ctx context.Context, params protocol.AuthenticateParams) (protocol.AuthenticateResult, error) {
	var result protocol.AuthenticateResult
	err := c.Call(ctx, protocol.Authenticate, params, &result)
	return result, err
}

func (c *JumpClient) FindRoom(ctx context.Context, params protocol.FindRoomParams) (protocol.FindRoomResult, error) {
	var result protocol.FindRoomResult
	err := c.Call(ctx, protocol.FindRoom, params, &result)
	return result, err
}

func (c *JumpClient) FindServer(ctx context.Context, params protocol.FindServerParams) (protocol.FindServerResult, error) {
	var result protocol.FindServerResult
	err := c.Call(ctx, protocol.FindServer, params, &result)
	return result, err
}
