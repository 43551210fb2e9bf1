// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"

	"github.com/bureau-foundation/loadbalancer/lib/endpoint"
	"github.com/bureau-foundation/loadbalancer/lib/protocol"
)

// AuthClient talks to an Auth service.
type AuthClient struct {
	*Conn
}

func NewAuthClient(options Options) *AuthClient {
	return &AuthClient{Conn: New(options)}
}

func (c *AuthClient) Authenticate(ctx context.Context, params protocol.AuthenticateParams) (protocol.AuthenticateResult, error) {
	var result protocol.AuthenticateResult
	err := c.Call(ctx, protocol.Authenticate, params, &result)
	return result, err
}

func (c *AuthClient) ListJumpServices(ctx context.Context, params protocol.ListJumpServicesParams) (protocol.ListJumpServicesResult, error) {
	var result protocol.ListJumpServicesResult
	err := c.Call(ctx, protocol.ListJumpServices, params, &result)
	return result, err
}

// SelectClosestService pings endpoints over fresh connections made
// with this client's options.
func (c *AuthClient) SelectClosestService(ctx context.Context, endpoints []endpoint.Endpoint) (protocol.SelectClosestServiceResult, error) {
	options := c.options
	options.Scheduler = c.service
	return SelectClosestService(ctx, options, endpoints)
}
