// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli holds the startup plumbing shared by the loadbalancer
// binaries: common flags, logger construction and config loading.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/loadbalancer/lib/config"
	"github.com/bureau-foundation/loadbalancer/lib/version"
)

// CommonFlags are the flags every service binary accepts.
type CommonFlags struct {
	ConfigPath string
	LogLevel   string
}

// AddFlags registers --config and --log-level on flagSet.
func (f *CommonFlags) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&f.ConfigPath, "config", "", "path to the config file (default: $"+config.EnvConfigPath+")")
	flagSet.StringVar(&f.LogLevel, "log-level", "info", "log level: debug, info, warn or error")
}

// LoadConfig loads --config, or the file named by LOADBALANCER_CONFIG
// when the flag is empty.
func (f *CommonFlags) LoadConfig() (*config.Config, error) {
	if f.ConfigPath != "" {
		return config.LoadFile(f.ConfigPath)
	}
	return config.Load()
}

// Logger builds the process logger at --log-level.
func (f *CommonFlags) Logger() (*slog.Logger, error) {
	level, err := ParseLevel(f.LogLevel)
	if err != nil {
		return nil, err
	}
	return NewLogger(level), nil
}

// ParseLevel accepts debug, info, warn and error in any case.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid --log-level %q: %w", s, err)
	}
	return level, nil
}

// NewLogger logs to stderr: text when stderr is a terminal, JSON
// otherwise.
func NewLogger(level slog.Level) *slog.Logger {
	var handler slog.Handler
	options := &slog.HandlerOptions{Level: level}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}
	return slog.New(handler)
}

// HandleVersion prints version information and reports true when the
// first argument is --version. Binaries call it before flag parsing.
func HandleVersion(binary string, args []string) bool {
	if len(args) > 1 && args[1] == "--version" {
		version.Print(binary)
		return true
	}
	return false
}
