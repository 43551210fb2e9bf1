// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sysload reports how busy the host is as a coarse [Level],
// which a Game host advertises to Jump so FindServer can prefer idle
// hosts.
//
// # Readings
//
// Host CPU utilization comes from /proc/stat deltas ([ReadCPUStats],
// [CPUPercent]) and memory utilization from the sysinfo syscall
// ([MemoryPercent]). Both are Linux-only; elsewhere the readings are
// absent and the level stays at [Lowest].
//
// # Levels
//
// A [Sampler] takes one reading per second on a scheduler and keeps a
// sliding average of each. The CPU average maps to a level through
// the thresholds 35, 50, 70 and 90 percent, the memory average through
// 45, 60, 80 and 95 percent, and the reported level is the higher of
// the two.
package sysload
