// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package scheduler drives delayed and periodic work for many
// independent owners from a single background goroutine.
//
// A process creates one [Service]. Each owner (a connection, a room, a
// service link) creates a named [Scheduler] front-end on it with its
// own [Executor], usually the owner's action queue:
//
//	service := scheduler.NewService(clock.Real(), logger)
//	defer service.Close()
//
//	link := service.NewScheduler("jump-link", queue)
//	link.Start()
//	connect := link.Schedule(dial, 200*time.Millisecond, 5*time.Second, false)
//
// The service goroutine only decides what is due. Work always runs
// through the front-end's executor, never on the service goroutine, so
// a slow item never delays the timers of other owners.
//
// Periodic items are re-armed at their previous scheduled time plus the
// interval, so execution jitter does not accumulate. If the service
// falls a whole interval behind, missed runs are skipped rather than
// replayed in a burst.
//
// [Item.Suspend] takes an item out of the timeline without disposing
// it. [Item.Resume] puts it back: at its original delay if it has never
// run, at one interval from now if it is periodic and has run, and
// nowhere if it is a one-shot that already ran. [Item.ResumeAfter]
// chooses the delay explicitly.
package scheduler
