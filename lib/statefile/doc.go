// Copyright 2026 The RMate Launcher Authors
// SPDX-License-Identifier: Apache-2.0

// Package statefile persists a journal of the files currently being
// edited. Every accepted open adds an entry; every completed close
// removes it. On a clean shutdown the journal is empty and the file is
// gone; after a crash the leftover journal names exactly the files
// whose mirrors the startup quarantine is about to move aside, so the
// daemon can tell the user which edits were in flight.
//
// The journal is advisory: recording failures are logged and
// suppressed, never failing the open they accompany. Writes are
// atomic (temporary file, fsync, rename) so a reader never sees a
// partial journal.
package statefile
