// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rpc

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/bureau-foundation/loadbalancer/lib/actionqueue"
	"github.com/bureau-foundation/loadbalancer/lib/scheduler"
	"github.com/bureau-foundation/loadbalancer/lib/wire"
	"github.com/bureau-foundation/loadbalancer/transport"
)

// Handler is the per-connection application object a Server creates.
type Handler interface {
	// HandleCall dispatches an Event or Method. It runs on the peer's
	// action queue.
	HandleCall(call *Call) Result

	// HandleRealtime receives Realtime frames on the read goroutine,
	// without queuing.
	HandleRealtime(call *Call)

	// OnDisconnected runs on the peer's queue once the connection is
	// gone.
	OnDisconnected(reason string)
}

// Peer is the server side of one connection.
type Peer struct {
	id        string
	conn      transport.Conn
	logger    *slog.Logger
	queue     *actionqueue.Queue
	scheduler *scheduler.Scheduler
	handler   Handler

	authenticated atomic.Bool
	counter       atomic.Int64

	mu           sync.Mutex
	observers    []func(reason string)
	disconnected bool
	forcedReason string
	done         chan struct{}
}

func newPeer(conn transport.Conn, service *scheduler.Service, logger *slog.Logger) *Peer {
	id := uuid.NewString()
	logger = logger.With("peer_id", id, "remote_address", conn.RemoteAddress())
	queue := actionqueue.New(logger)
	queue.Start()
	sched := service.NewScheduler("peer-"+id, queue)
	sched.Start()
	return &Peer{
		id:        id,
		conn:      conn,
		logger:    logger,
		queue:     queue,
		scheduler: sched,
		done:      make(chan struct{}),
	}
}

func (p *Peer) ID() string                      { return p.id }
func (p *Peer) Logger() *slog.Logger            { return p.logger }
func (p *Peer) Queue() *actionqueue.Queue       { return p.queue }
func (p *Peer) Scheduler() *scheduler.Scheduler { return p.scheduler }
func (p *Peer) RemoteAddress() string           { return p.conn.RemoteAddress() }

// Done is closed after the disconnect sequence has finished.
func (p *Peer) Done() <-chan struct{} { return p.done }

func (p *Peer) Authenticated() bool      { return p.authenticated.Load() }
func (p *Peer) SetAuthenticated(ok bool) { p.authenticated.Store(ok) }

// OnDisconnect registers fn to run, in registration order, after the
// handler's OnDisconnected.
func (p *Peer) OnDisconnect(fn func(reason string)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, fn)
}

// RaiseEvent sends an Event frame to the connection.
func (p *Peer) RaiseEvent(name wire.Key, params wire.Map) error {
	return p.send(Frame{
		Kind:    KindEvent,
		Counter: p.counter.Add(1),
		Name:    name,
		Params:  params,
	})
}

// RaiseEventWith marshals v as the event parameters.
func (p *Peer) RaiseEventWith(name wire.Key, v any) error {
	params, err := wire.Marshal(v)
	if err != nil {
		return fmt.Errorf("raising %s: %w", name, err)
	}
	return p.RaiseEvent(name, params)
}

// SendRealtime sends a Realtime frame.
func (p *Peer) SendRealtime(code int32, payload []byte) error {
	return p.send(Frame{Kind: KindRealtime, Code: code, Payload: payload})
}

// Disconnect closes the connection from the server side.
func (p *Peer) Disconnect(reason string) {
	p.mu.Lock()
	if p.forcedReason == "" {
		p.forcedReason = reason
	}
	p.mu.Unlock()
	p.conn.Close()
}

func (p *Peer) send(frame Frame) error {
	data, err := frame.Encode()
	if err != nil {
		return err
	}
	return p.conn.Send(data)
}

// serve reads frames until the connection fails, then runs the
// disconnect sequence.
func (p *Peer) serve() {
	for {
		data, err := p.conn.Receive()
		if err != nil {
			p.disconnect(err)
			return
		}
		frame, err := DecodeFrame(data)
		if err != nil {
			p.logger.Warn("dropping malformed frame", "error", err)
			continue
		}
		p.receive(frame)
	}
}

func (p *Peer) receive(frame Frame) {
	var reply func(wire.Map) error
	if frame.Kind == KindMethod {
		reply = func(params wire.Map) error {
			return p.send(Frame{
				Kind:    KindMethod,
				Counter: frame.Counter,
				Name:    frame.Name,
				Params:  params,
			})
		}
	}
	call := NewCall(frame, reply, p.logger)

	switch {
	case frame.Kind == KindRealtime:
		err := call.runRecovered(func() error {
			p.handler.HandleRealtime(call)
			return call.Err()
		})
		if err != nil {
			p.logger.Warn("realtime call failed", "code", call.Code, "error", err)
		}
	case frame.Kind == KindMethod && frame.Name == MethodEcho:
		call.accept()
		call.Complete(call.Params)
	default:
		call.Continue(p.queue, func() error {
			if p.handler.HandleCall(call) == NotHandled && call.Kind == KindEvent {
				p.logger.Debug("event not handled", "operation", string(call.Name))
			}
			return nil
		})
	}
}

func (p *Peer) disconnect(cause error) {
	p.mu.Lock()
	if p.disconnected {
		p.mu.Unlock()
		return
	}
	p.disconnected = true
	reason := p.forcedReason
	p.mu.Unlock()

	if reason == "" {
		reason = MessageDisconnected
		if cause != nil && !errors.Is(cause, transport.ErrClosed) {
			reason = cause.Error()
		}
	}

	finish := func() {
		call := NewCall(Frame{
			Kind:   KindEvent,
			Name:   MethodDisconnect,
			Params: wire.Map{ParamReason: wire.String(reason)},
		}, nil, p.logger)
		p.handler.HandleCall(call)
		p.handler.OnDisconnected(reason)

		p.mu.Lock()
		observers := append([]func(string){}, p.observers...)
		p.mu.Unlock()
		for _, observer := range observers {
			observer(reason)
		}

		p.scheduler.Stop()
		p.queue.Stop()
		p.conn.Close()
		close(p.done)
		p.logger.Debug("peer disconnected", "reason", reason)
	}
	if !p.queue.Enqueue(finish) {
		finish()
	}
}
