// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds the helpers shared by the module's tests.
//
// [RequireReceive], [RequireSend], [RequireClosed] and
// [RequireNoReceive] wrap the select-with-deadline pattern so that
// tests never block forever on a channel. They are the only place test
// code waits on the wall clock; everything else advances a fake clock.
//
// [UniqueID] hands out distinct identifiers (room ids, player ids) so
// tests that share a server never collide.
//
// Helpers fail the test with Fatalf instead of returning errors.
package testutil
