// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"time"

	"github.com/bureau-foundation/loadbalancer/lib/endpoint"
	"github.com/bureau-foundation/loadbalancer/lib/protocol"
	"github.com/bureau-foundation/loadbalancer/lib/rpc"
)

// Ping opens a fresh connection to target, measures one Echo round trip
// and disconnects. An unreachable target fails with ConnectException
// "can't connect".
func Ping(ctx context.Context, options Options, target endpoint.Endpoint) (time.Duration, error) {
	conn := New(options)
	defer conn.Close()
	if err := conn.Connect(ctx, target); err != nil {
		return 0, err
	}
	return conn.Ping(ctx)
}

// SelectClosestService pings each endpoint in turn and returns the one
// with the shortest round trip. Endpoints that fail are skipped; when
// none answers the result is ConnectException "can't connect".
func SelectClosestService(ctx context.Context, options Options, endpoints []endpoint.Endpoint) (protocol.SelectClosestServiceResult, error) {
	logger := options.withDefaults().Logger
	var (
		best     endpoint.Endpoint
		bestPing time.Duration
		found    bool
	)
	for _, candidate := range endpoints {
		if err := ctx.Err(); err != nil {
			return protocol.SelectClosestServiceResult{}, err
		}
		ping, err := Ping(ctx, options, candidate)
		if err != nil {
			logger.Debug("ping failed", "endpoint", candidate.String(), "error", err)
			continue
		}
		if !found || ping < bestPing {
			best, bestPing, found = candidate, ping, true
		}
	}
	if !found {
		return protocol.SelectClosestServiceResult{}, connectError(rpc.MessageCannotConnect)
	}
	logger.Debug("closest service selected", "endpoint", best.String(), "ping", bestPing)
	return protocol.SelectClosestServiceResult{ServiceEndpoint: best}, nil
}
