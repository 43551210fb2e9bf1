// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/loadbalancer/lib/authtoken"
	"github.com/bureau-foundation/loadbalancer/lib/clock"
	"github.com/bureau-foundation/loadbalancer/lib/config"
	"github.com/bureau-foundation/loadbalancer/transport"
)

// OpenTokens builds the session token sealer from the crypto section.
// The shared secret is released once the token keys are derived.
func OpenTokens(crypto config.CryptoConfig, c clock.Clock) (*authtoken.Sealer, error) {
	sharedSecret, err := crypto.LoadSharedSecret()
	if err != nil {
		return nil, err
	}
	defer sharedSecret.Close()
	tokens, err := authtoken.NewSealer(sharedSecret, crypto.TokenSalt, crypto.TokenTTL(), c)
	if err != nil {
		return nil, fmt.Errorf("creating token sealer: %w", err)
	}
	return tokens, nil
}

// Serve accepts websocket connections on address until ctx is done.
func Serve(ctx context.Context, address string, logger *slog.Logger, accept func(transport.Conn)) error {
	listener, err := transport.NewWebsocketListener(address, transport.Options{}, logger)
	if err != nil {
		return err
	}
	defer listener.Close()
	logger.Info("listening", "address", listener.Address())
	if err := listener.Serve(ctx, accept); err != nil {
		return fmt.Errorf("serving %s: %w", address, err)
	}
	return nil
}
