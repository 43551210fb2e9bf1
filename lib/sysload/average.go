// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sysload

import "sync"

// DefaultWindow is the number of samples a [Sampler] averages over.
const DefaultWindow = 100

// Average is the mean of the most recent samples, at most window of
// them. It is safe for concurrent use.
type Average struct {
	mu      sync.Mutex
	samples []float64
	next    int
	filled  bool
	sum     float64
}

// NewAverage returns an empty average over window samples. A window
// below one is treated as one.
func NewAverage(window int) *Average {
	return &Average{samples: make([]float64, max(window, 1))}
}

func (a *Average) Add(sample float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sum += sample - a.samples[a.next]
	a.samples[a.next] = sample
	a.next++
	if a.next == len(a.samples) {
		a.next = 0
		a.filled = true
	}
}

// Value returns the current mean, or 0 before the first sample.
func (a *Average) Value() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	count := a.next
	if a.filled {
		count = len(a.samples)
	}
	if count == 0 {
		return 0
	}
	return a.sum / float64(count)
}

// Count returns how many samples the mean covers.
func (a *Average) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.filled {
		return len(a.samples)
	}
	return a.next
}
