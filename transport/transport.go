// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
)

// ErrClosed is returned by Send and Receive after Close.
var ErrClosed = errors.New("transport: connection closed")

// Conn is one framed connection.
type Conn interface {
	// Send writes one frame. Safe for concurrent use.
	Send(frame []byte) error

	// Receive blocks for the next frame. It returns an error once the
	// connection is closed from either side. Only one goroutine may
	// call Receive.
	Receive() ([]byte, error)

	// Close tears the connection down. Safe to call more than once.
	Close() error

	// RemoteAddress returns the peer's network address.
	RemoteAddress() string

	// Path returns the URL path the connection was opened on.
	Path() string
}

// Listener accepts inbound connections.
type Listener interface {
	// Serve accepts connections and passes each to accept until ctx is
	// cancelled or Close is called. It returns nil on clean shutdown.
	// accept must not block; it owns the Conn from then on.
	Serve(ctx context.Context, accept func(Conn)) error

	// Address returns the host:port the listener is bound to.
	Address() string

	Close() error
}

// Dialer opens outbound connections.
type Dialer interface {
	Dial(ctx context.Context, address string) (Conn, error)
}
