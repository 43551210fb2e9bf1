// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	_ Listener = (*WebsocketListener)(nil)
	_ Dialer   = (*WebsocketDialer)(nil)
	_ Conn     = (*wsConn)(nil)
)

// Options tune websocket connections on both the listening and the
// dialing side. Zero fields take the defaults below.
type Options struct {
	// MaxFrameSize bounds the size of one received frame.
	MaxFrameSize int64

	// WriteTimeout bounds one Send.
	WriteTimeout time.Duration

	// PingInterval is how often a keepalive ping is sent. A peer that
	// does not answer within two intervals is disconnected.
	PingInterval time.Duration
}

const (
	defaultMaxFrameSize = 4 << 20
	defaultWriteTimeout = 10 * time.Second
	defaultPingInterval = 15 * time.Second
)

func (o Options) withDefaults() Options {
	if o.MaxFrameSize <= 0 {
		o.MaxFrameSize = defaultMaxFrameSize
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = defaultWriteTimeout
	}
	if o.PingInterval <= 0 {
		o.PingInterval = defaultPingInterval
	}
	return o
}

// Handler returns an http.Handler that upgrades every request to a
// websocket and passes the connection to accept.
func Handler(options Options, logger *slog.Logger, accept func(Conn)) http.Handler {
	options = options.withDefaults()
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		// Clients are game runtimes, not browsers bound to an origin.
		CheckOrigin: func(*http.Request) bool { return true },
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		socket, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Debug("websocket upgrade failed",
				"remote_address", r.RemoteAddr,
				"error", err,
			)
			return
		}
		accept(newConn(socket, r.URL.Path, options))
	})
}

// WebsocketListener serves websocket upgrades on a TCP address.
type WebsocketListener struct {
	listener net.Listener
	options  Options
	logger   *slog.Logger

	mu     sync.Mutex
	server *http.Server
	closed bool
}

// NewWebsocketListener binds address, e.g. ":7700" or "127.0.0.1:0".
func NewWebsocketListener(address string, options Options, logger *slog.Logger) (*WebsocketListener, error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", address, err)
	}
	return &WebsocketListener{listener: listener, options: options, logger: logger}, nil
}

func (l *WebsocketListener) Serve(ctx context.Context, accept func(Conn)) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.server = &http.Server{
		Handler:           Handler(l.options, l.logger, accept),
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := l.server
	l.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { server.Close() })
	defer stop()

	err := server.Serve(l.listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Address returns the bound host:port.
func (l *WebsocketListener) Address() string {
	return l.listener.Addr().String()
}

func (l *WebsocketListener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	if l.server != nil {
		return l.server.Close()
	}
	return l.listener.Close()
}

// WebsocketDialer opens client connections.
type WebsocketDialer struct {
	Options Options

	// HandshakeTimeout bounds the opening handshake when ctx has no
	// earlier deadline.
	HandshakeTimeout time.Duration
}

func (d *WebsocketDialer) Dial(ctx context.Context, address string) (Conn, error) {
	target, err := url.Parse(address)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", address, err)
	}
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.HandshakeTimeout,
		ReadBufferSize:   4096,
		WriteBufferSize:  4096,
	}
	socket, response, err := dialer.DialContext(ctx, address, nil)
	if response != nil && response.Body != nil {
		response.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", address, err)
	}
	return newConn(socket, target.Path, d.Options.withDefaults()), nil
}

type wsConn struct {
	socket  *websocket.Conn
	path    string
	options Options

	writeMu sync.Mutex

	closeOnce sync.Once
	done      chan struct{}
}

func newConn(socket *websocket.Conn, path string, options Options) *wsConn {
	c := &wsConn{
		socket:  socket,
		path:    path,
		options: options,
		done:    make(chan struct{}),
	}
	socket.SetReadLimit(options.MaxFrameSize)
	socket.SetReadDeadline(time.Now().Add(2 * options.PingInterval))
	socket.SetPongHandler(func(string) error {
		return socket.SetReadDeadline(time.Now().Add(2 * options.PingInterval))
	})
	go c.keepalive()
	return c
}

func (c *wsConn) keepalive() {
	ticker := time.NewTicker(c.options.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(c.options.WriteTimeout)
			if err := c.socket.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.Close()
				return
			}
		}
	}
}

func (c *wsConn) Send(frame []byte) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.socket.SetWriteDeadline(time.Now().Add(c.options.WriteTimeout))
	if err := c.socket.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return fmt.Errorf("sending frame: %w", err)
	}
	return nil
}

func (c *wsConn) Receive() ([]byte, error) {
	for {
		kind, frame, err := c.socket.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return nil, ErrClosed
			default:
			}
			if isExpectedClose(err) {
				return nil, ErrClosed
			}
			return nil, err
		}
		// Any message proves the peer is alive.
		c.socket.SetReadDeadline(time.Now().Add(2 * c.options.PingInterval))
		if kind == websocket.BinaryMessage {
			return frame, nil
		}
	}
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		deadline := time.Now().Add(time.Second)
		message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		c.socket.WriteControl(websocket.CloseMessage, message, deadline)
		err = c.socket.Close()
	})
	return err
}

func (c *wsConn) RemoteAddress() string {
	return c.socket.RemoteAddr().String()
}

func (c *wsConn) Path() string { return c.path }
