// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sysload

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// ReadCPUStats parses the aggregate line of /proc/stat. It returns nil
// on any failure; callers treat nil as "no reading".
func ReadCPUStats() *CPUReading {
	return readCPUStatsFrom("/proc/stat")
}

func readCPUStatsFrom(path string) *CPUReading {
	file, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	if !scanner.Scan() {
		return nil
	}

	// "cpu  user nice system idle iowait irq softirq steal [guest guest_nice]"
	fields := strings.Fields(scanner.Text())
	if len(fields) < 9 || fields[0] != "cpu" {
		return nil
	}
	values := make([]uint64, len(fields)-1)
	for i, field := range fields[1:] {
		parsed, err := strconv.ParseUint(field, 10, 64)
		if err != nil {
			return nil
		}
		values[i] = parsed
	}

	// guest and guest_nice are already counted in user and nice.
	return &CPUReading{
		Busy: values[0] + values[1] + values[2] + values[5] + values[6] + values[7],
		Idle: values[3] + values[4],
	}
}

// MemoryPercent returns the share of RAM in use according to sysinfo.
// ok is false when the syscall fails.
func MemoryPercent() (percent float64, ok bool) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0, false
	}
	return memoryPercent(uint64(info.Totalram), uint64(info.Freeram), uint64(info.Unit)), true
}

func memoryPercent(total, free, unit uint64) float64 {
	if unit == 0 {
		unit = 1
	}
	totalBytes := total * unit
	freeBytes := free * unit
	if totalBytes == 0 || freeBytes > totalBytes {
		return 0
	}
	return float64(totalBytes-freeBytes) / float64(totalBytes) * 100
}
