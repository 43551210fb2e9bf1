// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds the entrypoint helpers shared by the service
// binaries and the probe: reporting the error that ended run() and
// choosing the exit status for it. Everything else a binary prints goes
// through its structured logger or its command output.
package process
