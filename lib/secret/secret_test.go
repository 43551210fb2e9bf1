// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewIsZeroFilled(t *testing.T) {
	buffer, err := New(32)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer buffer.Close()

	if buffer.Len() != 32 {
		t.Fatalf("Len = %d, want 32", buffer.Len())
	}
	for index, value := range buffer.Bytes() {
		if value != 0 {
			t.Fatalf("byte %d = %d, want 0", index, value)
		}
	}
	for _, size := range []int{0, -1} {
		if _, err := New(size); err == nil {
			t.Errorf("New(%d) succeeded", size)
		}
	}
}

func TestNewFromBytesZeroesSource(t *testing.T) {
	source := []byte("cluster-shared-secret")
	buffer, err := NewFromBytes(source)
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}
	defer buffer.Close()

	if got := buffer.String(); got != "cluster-shared-secret" {
		t.Fatalf("String = %q", got)
	}
	for index, value := range source {
		if value != 0 {
			t.Fatalf("source byte %d not zeroed", index)
		}
	}
	if _, err := NewFromBytes(nil); err == nil {
		t.Fatal("NewFromBytes(nil) succeeded")
	}
}

func TestEqual(t *testing.T) {
	first, _ := NewFromBytes([]byte("alpha"))
	second, _ := NewFromBytes([]byte("alpha"))
	third, _ := NewFromBytes([]byte("bravo"))
	defer first.Close()
	defer second.Close()
	defer third.Close()

	if !first.Equal(second) {
		t.Error("equal buffers compared unequal")
	}
	if first.Equal(third) {
		t.Error("different buffers compared equal")
	}
	if first.Equal(nil) {
		t.Error("buffer equal to nil")
	}
}

func TestCloseIsIdempotentAndPoisonsReads(t *testing.T) {
	buffer, err := NewFromBytes([]byte("x"))
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}
	if err := buffer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := buffer.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Fatal("Bytes after Close did not panic")
		}
	}()
	buffer.Bytes()
}

func TestReadFromPathTrims(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared-secret")
	if err := os.WriteFile(path, []byte("  s3cret \n"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	buffer, err := ReadFromPath(path)
	if err != nil {
		t.Fatalf("ReadFromPath: %v", err)
	}
	defer buffer.Close()
	if got := buffer.String(); got != "s3cret" {
		t.Fatalf("ReadFromPath = %q, want s3cret", got)
	}

	blank := filepath.Join(t.TempDir(), "blank")
	os.WriteFile(blank, []byte(" \n\t"), 0600)
	if _, err := ReadFromPath(blank); err == nil {
		t.Fatal("ReadFromPath accepted a whitespace-only file")
	}
	if _, err := ReadFromPath(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("ReadFromPath accepted a missing file")
	}
}

func TestReadFirstLine(t *testing.T) {
	buffer, err := readFirstLine(strings.NewReader("first\nsecond\n"))
	if err != nil {
		t.Fatalf("readFirstLine: %v", err)
	}
	defer buffer.Close()
	if got := buffer.String(); got != "first" {
		t.Fatalf("readFirstLine = %q", got)
	}
	if _, err := readFirstLine(strings.NewReader("")); err == nil {
		t.Fatal("empty reader accepted")
	}
}

func TestFromEnvUnsets(t *testing.T) {
	t.Setenv("LOADBALANCER_TEST_SECRET", "from-env")
	buffer, err := FromEnv("LOADBALANCER_TEST_SECRET")
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	defer buffer.Close()
	if got := buffer.String(); got != "from-env" {
		t.Fatalf("FromEnv = %q", got)
	}
	if _, ok := os.LookupEnv("LOADBALANCER_TEST_SECRET"); ok {
		t.Fatal("variable still set after FromEnv")
	}
	if _, err := FromEnv("LOADBALANCER_TEST_SECRET"); err == nil {
		t.Fatal("FromEnv on an unset variable succeeded")
	}
}
