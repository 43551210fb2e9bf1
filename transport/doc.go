// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport carries frames between clients and services, and
// between services, over websockets.
//
// A [Conn] is an ordered, reliable stream of whole frames. Each frame is
// one binary websocket message; the transport never splits or merges
// them. [Conn.Receive] returns an error once the peer goes away, which
// is how the layers above learn about a disconnect.
//
// [Listener] accepts connections and hands each to a callback. The
// [WebsocketListener] serves every path on its address, so one process
// can answer wss://host:7700/auth and wss://host:7700/game alike; the
// path is reported on the Conn for routing. [Handler] exposes the same
// upgrade logic as an http.Handler for tests and for embedding in an
// existing server.
//
// [Dialer] opens outbound connections to a websocket URL, as returned by
// endpoint.Endpoint.URL.
package transport
