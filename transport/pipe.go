// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"sync"
)

// Pipe returns two connected in-memory Conns. Frames sent on one are
// received on the other in order. Closing either end closes both.
func Pipe(path string) (Conn, Conn) {
	shared := &pipeShared{done: make(chan struct{})}
	ab := make(chan []byte, 64)
	ba := make(chan []byte, 64)
	a := &pipeConn{shared: shared, in: ba, out: ab, path: path, address: "pipe-a"}
	b := &pipeConn{shared: shared, in: ab, out: ba, path: path, address: "pipe-b"}
	return a, b
}

type pipeShared struct {
	once sync.Once
	done chan struct{}
}

type pipeConn struct {
	shared  *pipeShared
	in      <-chan []byte
	out     chan<- []byte
	path    string
	address string
}

func (c *pipeConn) Send(frame []byte) error {
	select {
	case <-c.shared.done:
		return ErrClosed
	default:
	}
	copied := append([]byte(nil), frame...)
	select {
	case c.out <- copied:
		return nil
	case <-c.shared.done:
		return ErrClosed
	}
}

func (c *pipeConn) Receive() ([]byte, error) {
	// Frames already delivered are still readable after close, matching
	// a socket that drains its receive buffer before reporting EOF.
	select {
	case frame := <-c.in:
		return frame, nil
	default:
	}
	select {
	case frame := <-c.in:
		return frame, nil
	case <-c.shared.done:
		return nil, ErrClosed
	}
}

func (c *pipeConn) Close() error {
	c.shared.once.Do(func() { close(c.shared.done) })
	return nil
}

func (c *pipeConn) RemoteAddress() string { return c.address }
func (c *pipeConn) Path() string          { return c.path }

// PipeDialer dials in-process servers registered by URL.
type PipeDialer struct {
	mu      sync.Mutex
	servers map[string]func(Conn)
}

// Register routes dials of url to accept.
func (d *PipeDialer) Register(url string, accept func(Conn)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.servers == nil {
		d.servers = make(map[string]func(Conn))
	}
	d.servers[url] = accept
}

// Unregister makes later dials of url fail, as if the server went away.
func (d *PipeDialer) Unregister(url string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.servers, url)
}

func (d *PipeDialer) Dial(ctx context.Context, url string) (Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	accept, ok := d.servers[url]
	d.mu.Unlock()
	if !ok {
		return nil, &DialError{URL: url}
	}
	client, server := Pipe(url)
	accept(server)
	return client, nil
}

// DialError reports a dial to an address nothing listens on.
type DialError struct{ URL string }

func (e *DialError) Error() string { return "transport: nothing listening at " + e.URL }
