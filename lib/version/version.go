// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports which build of the loadbalancer binaries is
// running.
//
// Release builds stamp the values with -ldflags, for example:
//
//	go build -ldflags "-X github.com/bureau-foundation/loadbalancer/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// Builds without ldflags fall back to the VCS stamp the go command
// records in the binary.
package version

import (
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
)

// Stamped at build time. Empty means not stamped.
var (
	Version   = "0.1.0-dev"
	GitCommit = ""
	GitDirty  = ""
	BuildTime = ""
)

// Build describes one binary.
type Build struct {
	Version string
	Commit  string
	Dirty   bool
	Time    string
}

// Current returns the running binary's build, preferring ldflags values
// over the recorded VCS stamp.
func Current() Build {
	build := Build{Version: Version, Commit: GitCommit, Dirty: GitDirty == "true", Time: BuildTime}
	if build.Commit != "" {
		return build
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		build = fromSettings(build, info.Settings)
	}
	return build
}

func fromSettings(build Build, settings []debug.BuildSetting) Build {
	for _, setting := range settings {
		switch setting.Key {
		case "vcs.revision":
			build.Commit = setting.Value
			if len(build.Commit) > 12 {
				build.Commit = build.Commit[:12]
			}
		case "vcs.modified":
			build.Dirty = setting.Value == "true"
		case "vcs.time":
			if build.Time == "" {
				build.Time = setting.Value
			}
		}
	}
	return build
}

// String renders "version (commit[-dirty], time)".
func (b Build) String() string {
	commit, buildTime := b.Commit, b.Time
	if commit == "" {
		commit = "unknown"
	}
	if b.Dirty {
		commit += "-dirty"
	}
	if buildTime == "" {
		buildTime = "unknown"
	}
	return fmt.Sprintf("%s (%s, %s)", b.Version, commit, buildTime)
}

// LogValue groups the build fields under one log attribute.
func (b Build) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("version", b.Version),
		slog.String("commit", b.Commit),
		slog.Bool("dirty", b.Dirty),
		slog.String("time", b.Time),
	)
}

// Info is Current().String().
func Info() string { return Current().String() }

// Full returns Info plus the Go version and platform.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Print writes "<binary> <Full>" to stdout for --version.
func Print(binary string) {
	fmt.Printf("%s %s\n", binary, Full())
}
