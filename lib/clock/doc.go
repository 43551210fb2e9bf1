// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock is the time source for every component that reads the
// time or waits on it: the action scheduler, token expiry, load
// sampling, client call timeouts.
//
// Production wiring passes Real(). Tests pass Fake() and drive time
// explicitly:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	service := scheduler.NewService(fake, logger)
//	item := front.Schedule(work, 200*time.Millisecond, 0, false)
//	fake.WaitForTimers(1)             // the loop armed its timer
//	fake.Advance(200 * time.Millisecond) // the item fires
//
// WaitForTimers closes the race between a goroutine arming a timer and
// the test advancing past it.
package clock
