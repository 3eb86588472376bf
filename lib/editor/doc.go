// Copyright 2026 The RMate Launcher Authors
// SPDX-License-Identifier: Apache-2.0

// Package editor runs the user-configured editor command as a blocking
// child process, one invocation per mirrored file. The command is a
// shell snippet; it must block until the user finishes editing (for
// GUI editors that means a --wait-style flag). An editor that returns
// immediately makes the launcher close the file while the user is
// still typing, so a suspiciously fast successful exit is logged as a
// probable configuration mistake.
package editor
