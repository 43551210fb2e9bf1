// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package rpc implements the call protocol shared by every tier: frame
// encoding, the call lifecycle, per-handler dispatch tables and the
// server side of a connection.
//
// # Frames
//
// Every transport frame starts with a [Kind] byte:
//
//	Realtime  [1][code:int32][payload...]
//	Event     [2][counter:int64][name:key][dictionary]
//	Method    [3][counter:int64][name:key][dictionary]
//
// A Method is answered by exactly one Method frame with the same name
// and counter whose dictionary carries Status (empty on success) and,
// on failure, Message. Events and Realtime frames are never answered.
//
// # Call lifecycle
//
// A received [Call] is accepted when a handler for its name exists,
// then finishes with [Call.Complete] or [Call.Fail]. A handler that
// needs to run on another owner's action queue returns
// [Call.Continue], which defers the rest of the work. If the deferred
// work returns without finishing a Method call, the caller receives a
// ServerException with the message "not completed" instead of waiting
// for a reply that will never come. Unfinished Events are logged and
// dropped, since nobody is waiting on them.
//
// # Dispatch
//
// Handlers register operations once per handler type:
//
//	var table = rpc.NewTable[*Handler]()
//
//	func init() {
//		rpc.Register(table, protocol.MethodFindRoom, (*Handler).findRoom)
//	}
//
// Parameters are materialized from the call's dictionary with
// wire.Unmarshal before the handler runs; a conversion failure answers
// MaterializationException with the failing field path.
//
// # Server
//
// A [Server] builds one handler per accepted connection. Each
// connection gets a [Peer] with its own action queue, so all of a
// connection's calls run in arrival order, and its own scheduler
// front-end on that queue.
package rpc
