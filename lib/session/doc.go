// Copyright 2026 The RMate Launcher Authors
// SPDX-License-Identifier: Apache-2.0

// Package session orchestrates one client connection: it parses the
// incoming command stream, materializes each opened file as a mirror,
// couples a file watcher and a blocking editor process to it, and
// writes save and close frames back on the shared socket.
//
// Concurrency shape: the session goroutine parses commands serially;
// each open spawns one editor goroutine (blocking on the child), and
// each watched file runs one watcher goroutine. All protocol writes go
// through a single per-connection mutex, so frames never interleave.
// For a given token, the watcher is stopped — its goroutine joined —
// before the close frame is written, so no save for a token can ever
// follow its close.
//
// Teardown: the session stays on the socket until every editor has
// exited and every mirror has been pruned, whether the command stream
// ended cleanly (".", EOF) or with a parse error.
package session
