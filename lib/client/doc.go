// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package client is the caller's side of the Auth, Jump and Game
// services.
//
// [Conn] owns one connection and its lifecycle:
//
//	Disconnected -> Connecting -> Connected -> Disconnecting -> Disconnected
//
// Concurrent Connect calls share one attempt, as do concurrent
// Disconnect calls. Connect while a disconnect runs fails with
// "awaiting disconnect" and Disconnect while a connect runs fails with
// "awaiting connect". Method calls are matched to replies by name and
// counter; a call pending when the connection drops resolves as
// ConnectException "disconnected" and one without a reply within its
// timeout as "timed out". Service-pushed events run on the Conn's
// action queue in arrival order.
//
// [AuthClient], [JumpClient] and [GameClient] wrap a Conn with the
// typed operations of each tier. GameClient also mirrors the joined
// room locally and can batch the local player's property writes into
// one UpdatePlayer per commit tick.
package client
