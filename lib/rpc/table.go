// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rpc

import (
	"github.com/bureau-foundation/loadbalancer/lib/wire"
)

// HandlerFunc handles one call on a handler of type H.
type HandlerFunc[H any] func(handler H, call *Call) Result

// Table maps operation names to handler functions for one handler type.
// Build it once at init time; lookups afterwards are read-only.
type Table[H any] struct {
	entries map[wire.Key]HandlerFunc[H]
}

func NewTable[H any]() *Table[H] {
	return &Table[H]{entries: make(map[wire.Key]HandlerFunc[H])}
}

// RegisterCall adds an operation that reads its parameters itself.
// Registering a name twice panics.
func RegisterCall[H any](table *Table[H], name wire.Key, fn func(H, *Call) Result) {
	if _, exists := table.entries[name]; exists {
		panic("rpc: duplicate registration for operation " + string(name))
	}
	table.entries[name] = fn
}

// Register adds an operation whose parameters are materialized into a P
// before fn runs. Materialization failures answer
// MaterializationException with the failing field path.
func Register[H, P any](table *Table[H], name wire.Key, fn func(H, *Call, *P) Result) {
	RegisterCall(table, name, func(handler H, call *Call) Result {
		var params P
		if err := wire.Unmarshal(call.Params, &params); err != nil {
			return call.Fail(StatusMaterializationException, err.Error())
		}
		return fn(handler, call, &params)
	})
}

// Has reports whether name is registered.
func (t *Table[H]) Has(name wire.Key) bool {
	_, ok := t.entries[name]
	return ok
}

// Dispatch runs the handler registered for call.Name. An unknown name
// returns NotHandled and leaves the call untouched.
func (t *Table[H]) Dispatch(handler H, call *Call) Result {
	fn, ok := t.entries[call.Name]
	if !ok {
		return NotHandled
	}
	call.accept()
	return fn(handler, call)
}
