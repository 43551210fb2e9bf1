// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package protocol defines the operations, statuses, property keys and
// parameter structs shared by the Auth, Jump and Game tiers and their
// clients.
//
// Operation and status names are wire keys: a Method reply carries its
// status as a Key value, empty on success. Parameter structs map to
// wire dictionaries through [wire.Marshal] and [wire.Unmarshal]; their
// field tags give the dictionary key where it differs from the Go
// field name.
package protocol
