// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package actionqueue runs the work of one owner (a connection, a room,
// a service link) strictly one item at a time, in enqueue order, on a
// goroutine other than the caller's.
//
// Code that only ever touches a room from that room's queue can be
// written as if it were single-threaded, even though the work arrives
// from many connections at once. Queues of different owners run in
// parallel with each other.
//
//	q := actionqueue.New(logger.With("room_id", id))
//	q.Start()
//	q.Enqueue(func() { room.Join(player) })
//
// An item may block (on a network round trip, for example); the next
// item does not start until it returns. A panicking item is recovered
// and logged and the queue moves on.
package actionqueue

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

// Queue is a FIFO of work items executed one at a time.
type Queue struct {
	logger *slog.Logger

	mu      sync.Mutex
	items   []func()
	started bool
	running bool
	idle    chan struct{}
}

// New returns a stopped queue. Call Start before enqueuing.
func New(logger *slog.Logger) *Queue {
	return &Queue{logger: logger}
}

// Start allows Enqueue to accept work.
func (q *Queue) Start() {
	q.mu.Lock()
	q.started = true
	q.mu.Unlock()
}

// Stop makes Enqueue reject new work. Items already queued still run.
func (q *Queue) Stop() {
	q.mu.Lock()
	q.started = false
	q.mu.Unlock()
}

func (q *Queue) Started() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.started
}

// Len returns the number of items waiting, not counting one that is
// executing.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Enqueue appends item and returns true, or returns false without
// queuing when the queue is stopped.
func (q *Queue) Enqueue(item func()) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.started {
		return false
	}
	q.items = append(q.items, item)
	if !q.running {
		q.running = true
		q.idle = make(chan struct{})
		go q.drain()
	}
	return true
}

// Execute satisfies the scheduler's executor interface.
func (q *Queue) Execute(item func()) bool {
	return q.Enqueue(item)
}

// Idle returns a channel that is closed once the queue has no item
// executing or waiting. Items enqueued after the call are not waited
// for unless the queue never went idle in between.
func (q *Queue) Idle() <-chan struct{} {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.running {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return q.idle
}

func (q *Queue) drain() {
	for {
		q.mu.Lock()
		if len(q.items) == 0 {
			q.running = false
			close(q.idle)
			q.mu.Unlock()
			return
		}
		item := q.items[0]
		q.items[0] = nil
		q.items = q.items[1:]
		q.mu.Unlock()

		q.run(item)
	}
}

func (q *Queue) run(item func()) {
	defer func() {
		if recovered := recover(); recovered != nil {
			q.logger.Error("action queue item panicked",
				"panic", fmt.Sprint(recovered),
				"stack", string(debug.Stack()),
			)
		}
	}()
	item()
}
