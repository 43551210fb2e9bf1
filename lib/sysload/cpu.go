// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sysload

// CPUReading is cumulative CPU time in jiffies, for delta computation.
//
//	busy = user + nice + system + irq + softirq + steal
//	idle = idle + iowait
type CPUReading struct {
	Busy uint64
	Idle uint64
}

// CPUPercent computes utilization between two readings. It returns 0
// when either reading is nil, no time passed, or the counters went
// backwards.
func CPUPercent(previous, current *CPUReading) float64 {
	if previous == nil || current == nil {
		return 0
	}
	if current.Busy < previous.Busy || current.Idle < previous.Idle {
		return 0
	}
	busyDelta := current.Busy - previous.Busy
	idleDelta := current.Idle - previous.Idle
	totalDelta := busyDelta + idleDelta
	if totalDelta == 0 {
		return 0
	}
	return float64(busyDelta) / float64(totalDelta) * 100
}
