// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/bureau-foundation/loadbalancer/lib/actionqueue"
	"github.com/bureau-foundation/loadbalancer/lib/clock"
	"github.com/bureau-foundation/loadbalancer/lib/endpoint"
	"github.com/bureau-foundation/loadbalancer/lib/rpc"
	"github.com/bureau-foundation/loadbalancer/lib/scheduler"
	"github.com/bureau-foundation/loadbalancer/lib/wire"
	"github.com/bureau-foundation/loadbalancer/transport"
)

const (
	DefaultCallTimeout       = 300 * time.Second
	DefaultConnectTimeout    = 30 * time.Second
	DefaultDisconnectTimeout = 30 * time.Second
)

// ErrNotConnected is returned by the fire-and-forget senders when the
// connection is not established.
var ErrNotConnected = errors.New("client: not connected")

// State is the connection lifecycle state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateDisconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Options configure a Conn. Zero fields take defaults: a websocket
// dialer, the wall clock, a discarding logger, a private scheduler
// service and the Default* timeouts.
type Options struct {
	Dialer transport.Dialer
	Clock  clock.Clock
	Logger *slog.Logger

	// Scheduler hosts the connection's periodic work. A Conn without
	// one starts its own service and closes it on Close.
	Scheduler *scheduler.Service

	CallTimeout       time.Duration
	ConnectTimeout    time.Duration
	DisconnectTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Dialer == nil {
		o.Dialer = &transport.WebsocketDialer{}
	}
	if o.Clock == nil {
		o.Clock = clock.Real()
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = DefaultCallTimeout
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = DefaultConnectTimeout
	}
	if o.DisconnectTimeout <= 0 {
		o.DisconnectTimeout = DefaultDisconnectTimeout
	}
	return o
}

// EventHandler receives what the service pushes. HandleCall runs on the
// connection's action queue, in arrival order, and also receives the
// Disconnect pseudo-event carrying the Reason parameter once the
// connection is gone. HandleRealtime runs on the read goroutine.
type EventHandler interface {
	HandleCall(call *rpc.Call) rpc.Result
	HandleRealtime(call *rpc.Call)
}

// Conn is the client side of one service connection. It is safe for
// concurrent use.
type Conn struct {
	options   Options
	logger    *slog.Logger
	queue     *actionqueue.Queue
	service   *scheduler.Service
	ownsSched bool
	scheduler *scheduler.Scheduler

	mu           sync.Mutex
	state        State
	conn         transport.Conn
	endpoint     endpoint.Endpoint
	attempt      *attempt
	counter      int64
	pending      map[pendingKey]chan rpc.Response
	handler      EventHandler
	connected    []func()
	disconnected []func(reason string)
}

type pendingKey struct {
	name    wire.Key
	counter int64
}

// attempt is one connect or disconnect shared by every caller that
// arrives while it runs.
type attempt struct {
	done chan struct{}
	err  error
}

func newAttempt() *attempt { return &attempt{done: make(chan struct{})} }

func (a *attempt) finish(err error) {
	a.err = err
	close(a.done)
}

// New returns a disconnected Conn.
func New(options Options) *Conn {
	options = options.withDefaults()
	c := &Conn{
		options: options,
		logger:  options.Logger,
		queue:   actionqueue.New(options.Logger),
		service: options.Scheduler,
		pending: make(map[pendingKey]chan rpc.Response),
	}
	if c.service == nil {
		c.service = scheduler.NewService(options.Clock, options.Logger)
		c.ownsSched = true
	}
	c.queue.Start()
	c.scheduler = c.service.NewScheduler("client", c.queue)
	c.scheduler.Start()
	return c
}

// Close disconnects and releases the queue and scheduler.
func (c *Conn) Close() error {
	err := c.Disconnect(context.Background())
	c.scheduler.Stop()
	c.queue.Stop()
	if c.ownsSched {
		c.service.Close()
	}
	return err
}

func (c *Conn) Logger() *slog.Logger            { return c.logger }
func (c *Conn) Clock() clock.Clock              { return c.options.Clock }
func (c *Conn) Queue() *actionqueue.Queue       { return c.queue }
func (c *Conn) Scheduler() *scheduler.Scheduler { return c.scheduler }

// SetHandler installs the receiver of pushed events. Set it before
// connecting.
func (c *Conn) SetHandler(handler EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = handler
}

// OnConnected registers fn to run after every successful connect,
// before Connect returns. fn must not call Connect or Disconnect.
func (c *Conn) OnConnected(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = append(c.connected, fn)
}

// OnDisconnected registers fn to run on the action queue after the
// connection is gone, following the handler's Disconnect event.
func (c *Conn) OnDisconnected(fn func(reason string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected = append(c.disconnected, fn)
}

func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Conn) Connected() bool { return c.State() == StateConnected }

// Endpoint returns the endpoint of the current or last connection.
func (c *Conn) Endpoint() endpoint.Endpoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.endpoint
}

// Connect opens the connection to target. It returns nil at once when
// already connected, and joins an attempt already in flight. While a
// disconnect is running it fails with "awaiting disconnect"; a target
// that cannot be reached fails with "can't connect". Failures are
// *rpc.StatusError with ConnectException.
func (c *Conn) Connect(ctx context.Context, target endpoint.Endpoint) error {
	c.mu.Lock()
	switch c.state {
	case StateConnected:
		c.mu.Unlock()
		return nil
	case StateDisconnecting:
		c.mu.Unlock()
		return connectError(rpc.MessageAwaitingDisconnect)
	case StateConnecting:
		pending := c.attempt
		c.mu.Unlock()
		return c.wait(ctx, pending, c.options.ConnectTimeout)
	}
	pending := newAttempt()
	c.state = StateConnecting
	c.attempt = pending
	c.mu.Unlock()

	go c.connect(target, pending)
	return c.wait(ctx, pending, c.options.ConnectTimeout)
}

func (c *Conn) connect(target endpoint.Endpoint, pending *attempt) {
	ctx, cancel := context.WithCancel(context.Background())
	timer := c.options.Clock.AfterFunc(c.options.ConnectTimeout, cancel)
	conn, err := c.options.Dialer.Dial(ctx, target.URL())
	timer.Stop()
	cancel()

	if err != nil {
		c.logger.Debug("connect failed", "endpoint", target.String(), "error", err)
		c.mu.Lock()
		c.state = StateDisconnected
		c.attempt = nil
		c.mu.Unlock()
		pending.finish(connectError(rpc.MessageCannotConnect))
		return
	}

	c.mu.Lock()
	c.conn = conn
	c.endpoint = target
	c.state = StateConnected
	c.attempt = nil
	observers := slices.Clone(c.connected)
	c.mu.Unlock()

	go c.read(conn)
	c.logger.Debug("connected", "endpoint", target.String())
	for _, fn := range observers {
		fn()
	}
	pending.finish(nil)
}

// Disconnect closes the connection and waits until the handler and the
// disconnect observers have run. It returns nil when already
// disconnected, including after the service dropped the connection,
// and joins a disconnect already in flight. While a connect is running
// it fails with "awaiting connect".
func (c *Conn) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case StateDisconnected:
		c.mu.Unlock()
		return nil
	case StateConnecting:
		c.mu.Unlock()
		return connectError(rpc.MessageAwaitingConnect)
	case StateDisconnecting:
		pending := c.attempt
		c.mu.Unlock()
		return c.wait(ctx, pending, c.options.DisconnectTimeout)
	}
	pending := newAttempt()
	c.state = StateDisconnecting
	c.attempt = pending
	conn := c.conn
	c.mu.Unlock()

	conn.Close()
	return c.wait(ctx, pending, c.options.DisconnectTimeout)
}

func (c *Conn) wait(ctx context.Context, pending *attempt, timeout time.Duration) error {
	expired := make(chan struct{})
	timer := c.options.Clock.AfterFunc(timeout, func() { close(expired) })
	defer timer.Stop()
	select {
	case <-pending.done:
		return pending.err
	case <-expired:
		return connectError(rpc.MessageTimedOut)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func connectError(message string) error {
	return &rpc.StatusError{Status: rpc.StatusConnectException, Message: message}
}

func (c *Conn) read(conn transport.Conn) {
	for {
		data, err := conn.Receive()
		if err != nil {
			c.finishDisconnect(conn, err)
			return
		}
		frame, err := rpc.DecodeFrame(data)
		if err != nil {
			c.logger.Warn("dropping malformed frame", "error", err)
			continue
		}
		switch frame.Kind {
		case rpc.KindMethod:
			c.resolve(frame)
		case rpc.KindEvent:
			c.dispatch(frame)
		case rpc.KindRealtime:
			if handler := c.eventHandler(); handler != nil {
				handler.HandleRealtime(rpc.NewCall(frame, nil, c.logger))
			}
		}
	}
}

func (c *Conn) eventHandler() EventHandler {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handler
}

func (c *Conn) resolve(frame rpc.Frame) {
	key := pendingKey{name: frame.Name, counter: frame.Counter}
	c.mu.Lock()
	reply, ok := c.pending[key]
	delete(c.pending, key)
	c.mu.Unlock()
	if !ok {
		c.logger.Debug("dropping unmatched reply",
			"operation", string(frame.Name),
			"counter", frame.Counter,
		)
		return
	}
	reply <- rpc.ResponseFromParams(frame.Params)
}

func (c *Conn) dispatch(frame rpc.Frame) {
	handler := c.eventHandler()
	if handler == nil {
		return
	}
	call := rpc.NewCall(frame, nil, c.logger)
	call.Continue(c.queue, func() error {
		if handler.HandleCall(call) == rpc.NotHandled {
			c.logger.Debug("event not handled", "operation", string(call.Name))
		}
		return nil
	})
}

// finishDisconnect runs once per connection, from its read goroutine.
// The Conn stays Disconnecting until the handler and the observers have
// run, so a Disconnect arriving meanwhile joins the same attempt.
func (c *Conn) finishDisconnect(conn transport.Conn, cause error) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	reason := rpc.MessageDisconnected
	if c.state != StateDisconnecting && !errors.Is(cause, transport.ErrClosed) {
		reason = cause.Error()
	}
	pending := c.attempt
	if pending == nil {
		pending = newAttempt()
		c.attempt = pending
	}
	c.state = StateDisconnecting
	c.conn = nil
	calls := c.pending
	c.pending = make(map[pendingKey]chan rpc.Response)
	handler := c.handler
	observers := slices.Clone(c.disconnected)
	c.mu.Unlock()

	conn.Close()
	for _, reply := range calls {
		reply <- rpc.FailedResponse(rpc.StatusConnectException, rpc.MessageDisconnected)
	}

	finish := func() {
		if handler != nil {
			handler.HandleCall(rpc.NewCall(rpc.Frame{
				Kind:   rpc.KindEvent,
				Name:   rpc.MethodDisconnect,
				Params: wire.Map{rpc.ParamReason: wire.String(reason)},
			}, nil, c.logger))
		}
		for _, fn := range observers {
			fn(reason)
		}
		c.mu.Lock()
		c.state = StateDisconnected
		c.attempt = nil
		c.mu.Unlock()
		c.logger.Debug("disconnected", "reason", reason)
		pending.finish(nil)
	}
	if !c.queue.Enqueue(finish) {
		finish()
	}
}

// CallMethod sends a Method and waits for the reply with the same name
// and counter. It never returns a Go error: a connection that is down
// or drops resolves as ConnectException "disconnected", a reply that
// does not arrive within timeout (the default call timeout when
// timeout is not positive) as "timed out". StatusName is filled in on
// every response.
func (c *Conn) CallMethod(ctx context.Context, name wire.Key, params wire.Map, timeout time.Duration) rpc.Response {
	if timeout <= 0 {
		timeout = c.options.CallTimeout
	}

	c.mu.Lock()
	if c.state != StateConnected {
		c.mu.Unlock()
		return rpc.FailedResponse(rpc.StatusConnectException, rpc.MessageDisconnected)
	}
	c.counter++
	key := pendingKey{name: name, counter: c.counter}
	reply := make(chan rpc.Response, 1)
	c.pending[key] = reply
	conn := c.conn
	c.mu.Unlock()

	data, err := rpc.Frame{Kind: rpc.KindMethod, Counter: key.counter, Name: name, Params: params}.Encode()
	if err != nil {
		c.forget(key)
		return rpc.FailedResponse(rpc.StatusSerializationException, err.Error())
	}
	if err := conn.Send(data); err != nil {
		c.forget(key)
		c.logger.Debug("sending call failed", "operation", string(name), "error", err)
		return rpc.FailedResponse(rpc.StatusConnectException, rpc.MessageDisconnected)
	}

	timer := c.options.Clock.AfterFunc(timeout, func() {
		if c.forget(key) {
			reply <- rpc.FailedResponse(rpc.StatusConnectException, rpc.MessageTimedOut)
		}
	})
	defer timer.Stop()

	select {
	case response := <-reply:
		return response
	case <-ctx.Done():
		c.forget(key)
		return rpc.FailedResponse(rpc.StatusConnectException, ctx.Err().Error())
	}
}

// forget drops a pending call and reports whether it was still
// pending.
func (c *Conn) forget(key pendingKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[key]
	delete(c.pending, key)
	return ok
}

// Call marshals params, calls name and decodes a successful reply into
// result, which may be nil. A failed reply is returned as
// *rpc.StatusError.
func (c *Conn) Call(ctx context.Context, name wire.Key, params, result any) error {
	var request wire.Map
	if params != nil {
		var err error
		if request, err = wire.Marshal(params); err != nil {
			return &rpc.StatusError{Status: rpc.StatusSerializationException, Message: err.Error()}
		}
	}
	response := c.CallMethod(ctx, name, request, 0)
	if err := response.Err(); err != nil {
		return err
	}
	if result == nil {
		return nil
	}
	if err := response.Decode(result); err != nil {
		return &rpc.StatusError{Status: rpc.StatusMaterializationException, Message: err.Error()}
	}
	return nil
}

// RaiseEvent sends an Event; no reply is expected.
func (c *Conn) RaiseEvent(name wire.Key, params wire.Map) error {
	c.mu.Lock()
	if c.state != StateConnected {
		c.mu.Unlock()
		return ErrNotConnected
	}
	c.counter++
	frame := rpc.Frame{Kind: rpc.KindEvent, Counter: c.counter, Name: name, Params: params}
	conn := c.conn
	c.mu.Unlock()
	return send(conn, frame)
}

// RaiseEventWith marshals v as the event parameters.
func (c *Conn) RaiseEventWith(name wire.Key, v any) error {
	params, err := wire.Marshal(v)
	if err != nil {
		return fmt.Errorf("raising %s: %w", name, err)
	}
	return c.RaiseEvent(name, params)
}

// SendRealtime sends a Realtime frame.
func (c *Conn) SendRealtime(code int32, payload []byte) error {
	c.mu.Lock()
	conn := c.conn
	connected := c.state == StateConnected
	c.mu.Unlock()
	if !connected {
		return ErrNotConnected
	}
	return send(conn, rpc.Frame{Kind: rpc.KindRealtime, Code: code, Payload: payload})
}

func send(conn transport.Conn, frame rpc.Frame) error {
	data, err := frame.Encode()
	if err != nil {
		return err
	}
	return conn.Send(data)
}

// Echo asks the service to return params unchanged.
func (c *Conn) Echo(ctx context.Context, params wire.Map) rpc.Response {
	return c.CallMethod(ctx, rpc.MethodEcho, params, 0)
}

// Ping measures one Echo round trip.
func (c *Conn) Ping(ctx context.Context) (time.Duration, error) {
	start := c.options.Clock.Now()
	if err := c.Echo(ctx, nil).Err(); err != nil {
		return 0, err
	}
	return clock.Since(c.options.Clock, start), nil
}
