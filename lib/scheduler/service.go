// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scheduler

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/bureau-foundation/loadbalancer/lib/clock"
)

// Executor runs scheduled work for one owner. Execute returns false
// when the work was not accepted.
type Executor interface {
	Execute(work func()) bool
}

// GoExecutor runs each item on a new goroutine.
type GoExecutor struct{}

func (GoExecutor) Execute(work func()) bool {
	go work()
	return true
}

// Service owns the timeline and the one goroutine that watches it.
type Service struct {
	clock  clock.Clock
	logger *slog.Logger

	// mu guards the timeline and the state of every Item and Scheduler
	// created from this service.
	mu       sync.Mutex
	timeline []*Item
	sequence uint64
	timer    *clock.Timer
	waiting  *Item
	closed   bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

// NewService starts the service goroutine.
func NewService(c clock.Clock, logger *slog.Logger) *Service {
	s := &Service{
		clock:  c,
		logger: logger,
		wake:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go s.loop()
	return s
}

// Close stops the service goroutine. Pending items never run.
func (s *Service) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timeline = nil
	s.waiting = nil
	s.mu.Unlock()

	close(s.stop)
	<-s.done
}

// NewScheduler returns a stopped front-end whose work runs through
// executor.
func (s *Service) NewScheduler(name string, executor Executor) *Scheduler {
	return &Scheduler{
		service:  s,
		name:     name,
		executor: executor,
		items:    make(map[*Item]struct{}),
	}
}

// Len returns the number of items waiting on the timeline.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timeline)
}

func (s *Service) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Service) loop() {
	defer close(s.done)
	for {
		select {
		case <-s.stop:
			return
		case <-s.wake:
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		due := s.collectDueLocked(s.clock.Now())
		s.armLocked()
		s.mu.Unlock()

		for _, dispatch := range due {
			dispatch()
		}
	}
}

// collectDueLocked removes every item due at now, re-arms periodic ones
// and returns the dispatch calls to make once the lock is released.
func (s *Service) collectDueLocked(now time.Time) []func() {
	var due []func()
	for len(s.timeline) > 0 && !s.timeline[0].nextRun.After(now) {
		item := s.timeline[0]
		s.removeLocked(item)
		if item.disposed || !item.scheduler.started {
			continue
		}
		if item.interval > 0 {
			next := item.nextRun.Add(item.interval)
			if !next.After(now) {
				missed := now.Sub(next)/item.interval + 1
				next = next.Add(missed * item.interval)
			}
			item.nextRun = next
			s.insertLocked(item)
		} else {
			delete(item.scheduler.items, item)
		}
		due = append(due, s.dispatchFor(item))
	}
	return due
}

func (s *Service) dispatchFor(item *Item) func() {
	executor := item.scheduler.executor
	name := item.scheduler.name
	return func() {
		accepted := executor.Execute(func() {
			s.mu.Lock()
			if item.disposed || !item.scheduler.started || s.closed {
				s.mu.Unlock()
				return
			}
			item.executed = true
			s.mu.Unlock()
			item.work()
		})
		if !accepted {
			s.logger.Debug("scheduled item rejected by executor", "scheduler", name)
		}
	}
}

// armLocked points the timer at the head of the timeline.
func (s *Service) armLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.waiting = nil
	if len(s.timeline) == 0 {
		return
	}
	head := s.timeline[0]
	s.waiting = head
	s.timer = s.clock.AfterFunc(head.nextRun.Sub(s.clock.Now()), s.signal)
}

func (s *Service) insertLocked(item *Item) {
	if s.closed {
		return
	}
	s.sequence++
	item.sequence = s.sequence
	index := sort.Search(len(s.timeline), func(i int) bool {
		other := s.timeline[i]
		if other.nextRun.Equal(item.nextRun) {
			return other.sequence > item.sequence
		}
		return other.nextRun.After(item.nextRun)
	})
	s.timeline = append(s.timeline, nil)
	copy(s.timeline[index+1:], s.timeline[index:])
	s.timeline[index] = item
	item.queued = true
	if index == 0 {
		s.signal()
	}
}

func (s *Service) removeLocked(item *Item) {
	if !item.queued {
		return
	}
	item.queued = false
	for i, candidate := range s.timeline {
		if candidate == item {
			s.timeline = append(s.timeline[:i], s.timeline[i+1:]...)
			break
		}
	}
	if s.waiting == item {
		s.signal()
	}
}
