// Copyright 2026 The RMate Launcher Authors
// SPDX-License-Identifier: Apache-2.0

// Package version holds the launcher's semantic version. The version
// appears in the protocol greeting line sent to every client and in
// the --version output, so it lives in its own dependency-free package
// that both cmd and lib/session can import.
package version

// Version is the semantic version of this build.
const Version = "1.3.0"
