// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scheduler

import "time"

// Scheduler is a named front-end on a Service. Its items run through
// its executor and only while it is started.
type Scheduler struct {
	service  *Service
	name     string
	executor Executor

	// Guarded by service.mu.
	started bool
	items   map[*Item]struct{}
}

func (sc *Scheduler) Name() string { return sc.name }

// Start allows Schedule to create items.
func (sc *Scheduler) Start() {
	sc.service.mu.Lock()
	sc.started = true
	sc.service.mu.Unlock()
}

// Stop disposes every item of this scheduler. Work already handed to
// the executor does not run.
func (sc *Scheduler) Stop() {
	s := sc.service
	s.mu.Lock()
	defer s.mu.Unlock()
	sc.started = false
	for item := range sc.items {
		item.disposed = true
		s.removeLocked(item)
	}
	clear(sc.items)
}

func (sc *Scheduler) Started() bool {
	sc.service.mu.Lock()
	defer sc.service.mu.Unlock()
	return sc.started
}

// Schedule creates an item that runs work after delay and then every
// interval if interval is positive. A suspended item waits for Resume.
// It returns nil when the scheduler is not started.
func (sc *Scheduler) Schedule(work func(), delay, interval time.Duration, suspended bool) *Item {
	s := sc.service
	s.mu.Lock()
	defer s.mu.Unlock()
	if !sc.started || s.closed {
		return nil
	}
	item := &Item{
		scheduler: sc,
		work:      work,
		delay:     max(delay, 0),
		interval:  max(interval, 0),
		suspended: suspended,
	}
	sc.items[item] = struct{}{}
	if !suspended {
		item.nextRun = s.clock.Now().Add(item.delay)
		s.insertLocked(item)
	}
	return item
}

// Item is a handle on one scheduled piece of work.
type Item struct {
	scheduler *Scheduler
	work      func()
	delay     time.Duration
	interval  time.Duration

	// Guarded by scheduler.service.mu.
	nextRun   time.Time
	sequence  uint64
	queued    bool
	suspended bool
	executed  bool
	disposed  bool
}

// Suspend takes the item off the timeline until Resume.
func (it *Item) Suspend() {
	s := it.scheduler.service
	s.mu.Lock()
	defer s.mu.Unlock()
	if it.disposed {
		return
	}
	it.suspended = true
	s.removeLocked(it)
}

// Resume puts the item back on the timeline: after its original delay
// if it never ran, after one interval if it is periodic and has run.
// A one-shot that already ran stays off the timeline.
func (it *Item) Resume() {
	s := it.scheduler.service
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case !it.executed:
		it.resumeLocked(it.delay)
	case it.interval > 0:
		it.resumeLocked(it.interval)
	default:
		it.suspended = false
		s.removeLocked(it)
	}
}

// ResumeAfter puts the item back on the timeline d from now.
func (it *Item) ResumeAfter(d time.Duration) {
	s := it.scheduler.service
	s.mu.Lock()
	defer s.mu.Unlock()
	it.resumeLocked(max(d, 0))
}

func (it *Item) resumeLocked(d time.Duration) {
	s := it.scheduler.service
	if it.disposed || !it.scheduler.started {
		return
	}
	it.suspended = false
	s.removeLocked(it)
	it.nextRun = s.clock.Now().Add(d)
	it.scheduler.items[it] = struct{}{}
	s.insertLocked(it)
}

// Dispose removes the item permanently.
func (it *Item) Dispose() {
	s := it.scheduler.service
	s.mu.Lock()
	defer s.mu.Unlock()
	it.disposed = true
	s.removeLocked(it)
	delete(it.scheduler.items, it)
}

func (it *Item) Disposed() bool {
	it.scheduler.service.mu.Lock()
	defer it.scheduler.service.mu.Unlock()
	return it.disposed
}

func (it *Item) Suspended() bool {
	it.scheduler.service.mu.Lock()
	defer it.scheduler.service.mu.Unlock()
	return it.suspended
}

// Executed reports whether the item has run at least once.
func (it *Item) Executed() bool {
	it.scheduler.service.mu.Lock()
	defer it.scheduler.service.mu.Unlock()
	return it.executed
}

// NextRun returns the time the item is due, or the zero time when it
// is not on the timeline.
func (it *Item) NextRun() time.Time {
	it.scheduler.service.mu.Lock()
	defer it.scheduler.service.mu.Unlock()
	if !it.queued {
		return time.Time{}
	}
	return it.nextRun
}
