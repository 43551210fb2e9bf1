// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package link keeps a service-to-service connection open. A Link owns
// a client connection to one upstream endpoint and a scheduled connect
// item on that connection's scheduler: the item first fires after the
// connect delay, then retries every reconnect interval until the
// connection is up. It is suspended while connected and resumed when
// the connection drops, so a link heals itself after the upstream
// restarts.
//
// Jump holds one link per Auth endpoint and a Game host holds one to
// its Jump. What to send once connected is up to the owner, through
// the connection's OnConnected observers.
package link

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/loadbalancer/lib/client"
	"github.com/bureau-foundation/loadbalancer/lib/endpoint"
	"github.com/bureau-foundation/loadbalancer/lib/scheduler"
)

const (
	DefaultConnectDelay      = 200 * time.Millisecond
	DefaultReconnectInterval = 5 * time.Second
)

// Options tunes the connect schedule. Zero fields take the defaults.
type Options struct {
	ConnectDelay      time.Duration
	ReconnectInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.ConnectDelay <= 0 {
		o.ConnectDelay = DefaultConnectDelay
	}
	if o.ReconnectInterval <= 0 {
		o.ReconnectInterval = DefaultReconnectInterval
	}
	return o
}

// Link is safe for concurrent use.
type Link struct {
	conn    *client.Conn
	target  endpoint.Endpoint
	options Options
	logger  *slog.Logger

	mu       sync.Mutex
	connect  *scheduler.Item
	disabled bool
	closed   bool
}

// New returns a link that will keep conn connected to target once
// started. The link takes ownership of conn.
func New(conn *client.Conn, target endpoint.Endpoint, options Options, logger *slog.Logger) *Link {
	l := &Link{
		conn:    conn,
		target:  target,
		options: options.withDefaults(),
		logger:  logger.With("upstream", target.String()),
	}
	conn.OnConnected(l.connected)
	conn.OnDisconnected(l.disconnected)
	return l
}

func (l *Link) Conn() *client.Conn        { return l.conn }
func (l *Link) Target() endpoint.Endpoint { return l.target }
func (l *Link) Connected() bool           { return l.conn.Connected() }
func (l *Link) Logger() *slog.Logger      { return l.logger }

// Start schedules the first connect attempt.
func (l *Link) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return errors.New("link: closed")
	}
	if l.connect != nil {
		return errors.New("link: already started")
	}
	item := l.conn.Scheduler().Schedule(l.attempt, l.options.ConnectDelay, l.options.ReconnectInterval, false)
	if item == nil {
		return errors.New("link: connection scheduler is stopped")
	}
	l.connect = item
	return nil
}

// attempt runs on the connection's queue.
func (l *Link) attempt() {
	if l.conn.Connected() {
		return
	}
	if err := l.conn.Connect(context.Background(), l.target); err != nil {
		l.logger.Debug("upstream connect failed", "error", err)
	}
}

func (l *Link) connected() {
	l.mu.Lock()
	if l.connect != nil {
		l.connect.Suspend()
	}
	l.mu.Unlock()
	l.logger.Info("upstream connected")
}

func (l *Link) disconnected(reason string) {
	l.mu.Lock()
	resume := l.connect != nil && !l.disabled && !l.closed
	if resume {
		l.connect.Resume()
	}
	l.mu.Unlock()
	l.logger.Info("upstream disconnected", "reason", reason, "reconnecting", resume)
}

// Disable drops the connection and stops reconnecting until Enable.
func (l *Link) Disable(ctx context.Context) error {
	l.mu.Lock()
	l.disabled = true
	if l.connect != nil {
		l.connect.Suspend()
	}
	l.mu.Unlock()
	l.logger.Info("upstream link disabled")
	return l.conn.Disconnect(ctx)
}

// Enable resumes reconnecting after Disable. The first attempt comes
// after the connect delay.
func (l *Link) Enable() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.disabled {
		return
	}
	l.disabled = false
	l.logger.Info("upstream link enabled")
	if l.connect != nil && !l.closed && !l.conn.Connected() {
		l.connect.ResumeAfter(l.options.ConnectDelay)
	}
}

func (l *Link) Disabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.disabled
}

// Close stops the schedule and closes the connection.
func (l *Link) Close() error {
	l.mu.Lock()
	l.closed = true
	if l.connect != nil {
		l.connect.Dispose()
	}
	l.mu.Unlock()
	return l.conn.Close()
}
