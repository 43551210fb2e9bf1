// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the configuration of the Auth, Jump and Game
// services.
//
// Configuration comes from a single file named by the
// LOADBALANCER_CONFIG environment variable (via [Load]) or a --config
// flag (via [LoadFile]). There is no discovery and no search path. YAML
// is the native format; files ending in .json or .jsonc are accepted
// too, with comments and trailing commas stripped first.
//
// One file can describe all three tiers. Each binary reads the crypto
// section and its own tier section and ignores the rest. Sections named
// development, staging and production override base values when
// [Config].Environment matches.
//
// String values are expanded after loading: ${VAR} and ${VAR:-default}
// read the process environment, so a shared file can carry per-host
// endpoints.
//
// The token secret is given in one of three ways: inline
// (shared_secret), from a file (shared_secret_file), or age-sealed to
// the host identity in identity_file (shared_secret_sealed).
// [CryptoConfig.LoadSharedSecret] resolves whichever is set into
// protected memory.
package config
