// Copyright 2026 The RMate Launcher Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for launcher packages.
package testutil
