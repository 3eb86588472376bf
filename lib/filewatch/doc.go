// Copyright 2026 The RMate Launcher Authors
// SPDX-License-Identifier: Apache-2.0

// Package filewatch reports content modifications of a single file
// through the OS-native notification mechanism: inotify on Linux,
// kqueue on macOS and FreeBSD. There is no backend for other
// platforms — building there fails rather than silently degrading to
// polling.
//
// A [Watcher] runs one goroutine that invokes the registered callback
// sequentially, once per OS-reported event. Events are not coalesced:
// a single editor save can produce several callbacks, so callers must
// make their handler idempotent (re-read the file and re-send).
//
// [Watcher.Stop] signals the goroutine, joins it, and only then
// releases the kernel resources, so a callback can never observe a
// closed descriptor. Stop is idempotent.
package filewatch
