// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rpc

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/bureau-foundation/loadbalancer/lib/wire"
)

// Result is what a handler reports about a call.
type Result int

const (
	NotHandled Result = iota
	Completed
	Failed
	Reenqueued
)

func (r Result) String() string {
	switch r {
	case NotHandled:
		return "not handled"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case Reenqueued:
		return "reenqueued"
	}
	return fmt.Sprintf("Result(%d)", int(r))
}

// Enqueuer accepts deferred work; *actionqueue.Queue satisfies it.
type Enqueuer interface {
	Enqueue(item func()) bool
}

type callState int

const (
	stateReceived callState = iota
	stateAccepted
	stateCompleted
	stateFailed
)

// Call is one received operation.
type Call struct {
	Kind    Kind
	Counter int64
	Name    wire.Key
	Params  wire.Map

	// Realtime calls carry a code and the raw payload instead.
	Code    int32
	Payload []byte

	reply  func(wire.Map) error
	logger *slog.Logger

	mu         sync.Mutex
	state      callState
	generation uint64
	failure    *StatusError
}

// NewCall wraps a received frame. reply sends a Method's answer and is
// ignored for other kinds.
func NewCall(frame Frame, reply func(wire.Map) error, logger *slog.Logger) *Call {
	params := frame.Params
	if params == nil {
		params = wire.Map{}
	}
	return &Call{
		Kind:    frame.Kind,
		Counter: frame.Counter,
		Name:    frame.Name,
		Params:  params,
		Code:    frame.Code,
		Payload: frame.Payload,
		reply:   reply,
		logger:  logger,
	}
}

func (c *Call) accept() {
	c.mu.Lock()
	if c.state == stateReceived {
		c.state = stateAccepted
	}
	c.mu.Unlock()
}

// Accepted reports whether a handler took the call.
func (c *Call) Accepted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state != stateReceived
}

// Finished reports whether the call completed or failed.
func (c *Call) Finished() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finishedLocked()
}

func (c *Call) finishedLocked() bool {
	return c.state == stateCompleted || c.state == stateFailed
}

func (c *Call) terminalLocked() Result {
	if c.state == stateFailed {
		return Failed
	}
	return Completed
}

// Err returns the failure recorded by Fail, or nil.
func (c *Call) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failure == nil {
		return nil
	}
	return c.failure
}

// Complete finishes the call successfully. A Method call is answered
// with result plus an empty Status. Calling Complete or Fail on a
// finished call does nothing and returns the earlier outcome.
func (c *Call) Complete(result wire.Map) Result {
	c.mu.Lock()
	if c.finishedLocked() {
		defer c.mu.Unlock()
		return c.terminalLocked()
	}
	c.state = stateCompleted
	c.mu.Unlock()

	if c.Kind == KindMethod {
		params := result.Clone()
		params[ParamStatus] = wire.KeyValue(StatusOK)
		c.send(params)
	}
	return Completed
}

// CompleteWith marshals v as the result. A marshaling failure fails the
// call with SerializationException.
func (c *Call) CompleteWith(v any) Result {
	result, err := wire.Marshal(v)
	if err != nil {
		return c.Fail(StatusSerializationException, err.Error())
	}
	return c.Complete(result)
}

// Fail finishes the call with status. A Method call is answered with the
// status and message; for other kinds the failure is recorded for the
// connection to log.
func (c *Call) Fail(status wire.Key, message string) Result {
	c.mu.Lock()
	if c.finishedLocked() {
		defer c.mu.Unlock()
		return c.terminalLocked()
	}
	c.state = stateFailed
	c.failure = &StatusError{Status: status, Message: message}
	c.mu.Unlock()

	if c.Kind == KindMethod {
		params := wire.Map{ParamStatus: wire.KeyValue(status)}
		if message != "" {
			params[ParamMessage] = wire.String(message)
		}
		c.send(params)
	}
	return Failed
}

// FailWith fails the call from an error: a *StatusError keeps its
// status, anything else becomes ServerException.
func (c *Call) FailWith(err error) Result {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return c.Fail(statusErr.Status, statusErr.Message)
	}
	return c.Fail(StatusServerException, err.Error())
}

func (c *Call) send(params wire.Map) {
	if c.reply == nil {
		return
	}
	if err := c.reply(params); err != nil {
		c.logger.Debug("sending reply failed",
			"operation", string(c.Name),
			"counter", c.Counter,
			"error", err,
		)
	}
}

// Continue runs work on queue and returns Reenqueued, or fails the call
// with "not enqueued" when queue rejects it.
//
// When work returns, a *StatusError fails the call with its status and
// any other error or a panic fails it with ServerException. A Method
// call that work leaves unfinished fails with "not completed", unless
// work itself called Continue again, which hands that check to the
// newer continuation.
func (c *Call) Continue(queue Enqueuer, work func() error) Result {
	c.mu.Lock()
	c.generation++
	generation := c.generation
	if c.state == stateReceived {
		c.state = stateAccepted
	}
	c.mu.Unlock()

	accepted := queue.Enqueue(func() {
		if err := c.runRecovered(work); err != nil {
			c.FailWith(err)
		}

		c.mu.Lock()
		superseded := c.generation != generation
		finished := c.finishedLocked()
		failure := c.failure
		c.mu.Unlock()

		switch {
		case superseded:
		case !finished && c.Kind == KindMethod:
			c.Fail(StatusServerException, MessageNotCompleted)
		case !finished:
			c.logger.Debug("event finished without completing",
				"operation", string(c.Name),
			)
		case failure != nil && c.Kind != KindMethod:
			c.logger.Warn("event failed",
				"operation", string(c.Name),
				"status", string(failure.Status),
				"message", failure.Message,
			)
		}
	})
	if !accepted {
		return c.Fail(StatusServerException, MessageNotEnqueued)
	}
	return Reenqueued
}

func (c *Call) runRecovered(work func() error) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			c.logger.Error("call handler panicked",
				"operation", string(c.Name),
				"panic", fmt.Sprint(recovered),
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("panic in %s: %v", c.Name, recovered)
		}
	}()
	return work()
}
