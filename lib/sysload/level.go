// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sysload

import "fmt"

// Level is a coarse load classification. It travels on the wire as a
// Byte in the LoadLevel service property.
type Level uint8

const (
	Lowest Level = iota
	Low
	Normal
	High
	Highest
)

func (l Level) String() string {
	switch l {
	case Lowest:
		return "lowest"
	case Low:
		return "low"
	case Normal:
		return "normal"
	case High:
		return "high"
	case Highest:
		return "highest"
	}
	return fmt.Sprintf("level(%d)", uint8(l))
}

// Available reports whether a host at this level accepts new rooms.
func (l Level) Available() bool { return l <= High }

type threshold struct {
	above float64
	level Level
}

var (
	cpuThresholds    = []threshold{{90, Highest}, {70, High}, {50, Normal}, {35, Low}}
	memoryThresholds = []threshold{{95, Highest}, {80, High}, {60, Normal}, {45, Low}}
)

func classify(percent float64, thresholds []threshold) Level {
	for _, t := range thresholds {
		if percent > t.above {
			return t.level
		}
	}
	return Lowest
}

// CPULevel maps a CPU utilization percentage to a level.
func CPULevel(percent float64) Level { return classify(percent, cpuThresholds) }

// MemoryLevel maps a memory utilization percentage to a level.
func MemoryLevel(percent float64) Level { return classify(percent, memoryThresholds) }

// Combine returns the higher of the CPU and memory levels.
func Combine(cpuPercent, memoryPercent float64) Level {
	return max(CPULevel(cpuPercent), MemoryLevel(memoryPercent))
}
