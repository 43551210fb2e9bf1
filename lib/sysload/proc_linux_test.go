// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sysload

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadCPUStatsFromSyntheticFile(t *testing.T) {
	statPath := filepath.Join(t.TempDir(), "stat")
	content := "cpu  851491738 26345625 738865283 5623198410 28471623 0 15284567 2345678 0 0\n" +
		"cpu0 106436467 3293203 92358160 702899801 3558952 0 1910570 293209 0 0\n"
	if err := os.WriteFile(statPath, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	reading := readCPUStatsFrom(statPath)
	if reading == nil {
		t.Fatal("readCPUStatsFrom returned nil for valid /proc/stat content")
	}
	expectedBusy := uint64(851491738 + 26345625 + 738865283 + 0 + 15284567 + 2345678)
	expectedIdle := uint64(5623198410 + 28471623)
	if reading.Busy != expectedBusy {
		t.Errorf("Busy = %d, want %d", reading.Busy, expectedBusy)
	}
	if reading.Idle != expectedIdle {
		t.Errorf("Idle = %d, want %d", reading.Idle, expectedIdle)
	}
}

func TestReadCPUStatsFromMalformedFile(t *testing.T) {
	directory := t.TempDir()
	tests := []struct {
		name    string
		content string
	}{
		{"empty file", ""},
		{"wrong label", "mem  123 456 789 0 0 0 0 0\n"},
		{"too few fields", "cpu  123 456\n"},
		{"non-numeric field", "cpu  123 abc 789 0 0 0 0 0\n"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			statPath := filepath.Join(directory, test.name+".stat")
			if err := os.WriteFile(statPath, []byte(test.content), 0644); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
			if reading := readCPUStatsFrom(statPath); reading != nil {
				t.Errorf("readCPUStatsFrom = %+v, want nil", reading)
			}
		})
	}

	if reading := readCPUStatsFrom("/nonexistent/proc/stat"); reading != nil {
		t.Errorf("missing file gave %+v", reading)
	}
}

func TestMemoryPercent(t *testing.T) {
	if got := memoryPercent(1000, 250, 4096); got != 75 {
		t.Errorf("memoryPercent = %v, want 75", got)
	}
	if got := memoryPercent(0, 0, 1); got != 0 {
		t.Errorf("empty total gave %v", got)
	}
	if got := memoryPercent(100, 200, 1); got != 0 {
		t.Errorf("free above total gave %v", got)
	}

	percent, ok := MemoryPercent()
	if !ok {
		t.Skip("sysinfo unavailable")
	}
	if percent <= 0 || percent > 100 {
		t.Errorf("host MemoryPercent = %v", percent)
	}
}
