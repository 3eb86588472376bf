// Copyright 2026 The RMate Launcher Authors
// SPDX-License-Identifier: Apache-2.0

// Package config builds the launcher's immutable configuration record.
//
// Settings come from three layers, later layers winning: built-in
// defaults, an optional YAML config file named by RMATE_CONFIG, and
// the RMATE_* environment variables. The environment is authoritative,
// so a launcher configured purely through the environment behaves
// identically whether or not a config file exists.
//
// The listener mode is chosen from the merged settings: an explicit
// socket path (or nothing TCP-specific at all) selects a Unix socket;
// an explicit IP or port without a socket path selects TCP.
package config
