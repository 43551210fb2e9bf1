// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sysload

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/loadbalancer/lib/scheduler"
)

// SampleInterval is how often a started Sampler takes a reading.
const SampleInterval = time.Second

// Source supplies raw readings. [HostSource] reads the local machine.
type Source interface {
	CPU() *CPUReading
	Memory() (percent float64, ok bool)
}

type hostSource struct{}

func (hostSource) CPU() *CPUReading                  { return ReadCPUStats() }
func (hostSource) Memory() (percent float64, ok bool) { return MemoryPercent() }

// HostSource reads /proc/stat and sysinfo.
func HostSource() Source { return hostSource{} }

// Sampler turns periodic readings into a smoothed [Level].
type Sampler struct {
	source Source
	logger *slog.Logger
	cpu    *Average
	memory *Average

	mu       sync.Mutex
	previous *CPUReading
	level    Level
	item     *scheduler.Item
}

// NewSampler averages over window samples; zero means [DefaultWindow].
func NewSampler(source Source, window int, logger *slog.Logger) *Sampler {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Sampler{
		source: source,
		logger: logger,
		cpu:    NewAverage(window),
		memory: NewAverage(window),
	}
}

// Sample takes one reading. The first call only establishes the CPU
// baseline.
func (s *Sampler) Sample() {
	current := s.source.CPU()
	memory, memoryOK := s.source.Memory()

	s.mu.Lock()
	previous := s.previous
	if current != nil {
		s.previous = current
	}
	s.mu.Unlock()

	if previous != nil && current != nil {
		s.cpu.Add(CPUPercent(previous, current))
	}
	if memoryOK {
		s.memory.Add(memory)
	}

	level := Combine(s.cpu.Value(), s.memory.Value())
	s.mu.Lock()
	changed := level != s.level
	s.level = level
	s.mu.Unlock()

	if changed {
		s.logger.Info("load level changed",
			"level", level.String(),
			"cpu_percent", s.cpu.Value(),
			"memory_percent", s.memory.Value(),
		)
	}
}

func (s *Sampler) Level() Level {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level
}

// CPUPercent returns the averaged CPU utilization.
func (s *Sampler) CPUPercent() float64 { return s.cpu.Value() }

// MemoryPercent returns the averaged memory utilization.
func (s *Sampler) MemoryPercent() float64 { return s.memory.Value() }

// Start samples immediately and then every interval on sc, which must
// be started.
func (s *Sampler) Start(sc *scheduler.Scheduler, interval time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.item != nil {
		return errors.New("sysload: sampler already started")
	}
	item := sc.Schedule(s.Sample, 0, interval, false)
	if item == nil {
		return errors.New("sysload: scheduler " + sc.Name() + " is not started")
	}
	s.item = item
	return nil
}

func (s *Sampler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.item != nil {
		s.item.Dispose()
		s.item = nil
	}
}
