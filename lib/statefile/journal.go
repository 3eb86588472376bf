// Copyright 2026 The RMate Launcher Authors
// SPDX-License-Identifier: Apache-2.0

package statefile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rmatelabs/rmate-launcher/lib/codec"
)

// FileName is the journal's name inside the base directory. A regular
// file, so the startup quarantine (which only moves directories)
// leaves it in place for recovery reporting.
const FileName = "state.cbor"

// Entry records one file session in flight. Keyed by mirror path:
// tokens are only unique per connection, but O_EXCL guarantees at most
// one live session per mirror path daemon-wide.
type Entry struct {
	Token      string    `cbor:"token"`
	Host       string    `cbor:"host"`
	RemotePath string    `cbor:"remote_path"`
	MirrorPath string    `cbor:"mirror_path"`
	OpenedAt   time.Time `cbor:"opened_at"`
}

// journalState is the on-disk shape of the journal.
type journalState struct {
	Entries map[string]Entry `cbor:"entries"`
}

// Journal tracks in-flight file sessions in a CBOR file. Safe for
// concurrent use by all session goroutines.
type Journal struct {
	path   string
	logger *slog.Logger

	mu      sync.Mutex
	entries map[string]Entry
}

// Open creates a journal persisted at the given path. The file itself
// is only created once the first entry is recorded.
func Open(path string, logger *slog.Logger) *Journal {
	return &Journal{
		path:    path,
		logger:  logger,
		entries: make(map[string]Entry),
	}
}

// RecoverLeftovers reads entries left by a previous run, removes the
// file, and returns the entries so the caller can report them. Returns
// nil when there is no leftover journal. Read failures are logged and
// treated as no leftovers — recovery reporting is best-effort.
func (j *Journal) RecoverLeftovers() []Entry {
	data, err := os.ReadFile(j.path)
	if err != nil {
		if !os.IsNotExist(err) {
			j.logger.Warn("reading leftover session journal failed", "path", j.path, "error", err)
		}
		return nil
	}

	var state journalState
	if err := codec.Unmarshal(data, &state); err != nil {
		j.logger.Warn("parsing leftover session journal failed", "path", j.path, "error", err)
	}

	if err := os.Remove(j.path); err != nil && !os.IsNotExist(err) {
		j.logger.Warn("removing leftover session journal failed", "path", j.path, "error", err)
	}

	leftovers := make([]Entry, 0, len(state.Entries))
	for _, entry := range state.Entries {
		leftovers = append(leftovers, entry)
	}
	return leftovers
}

// Record adds an entry and rewrites the journal. Failures are logged
// and suppressed: the journal never fails the open it accompanies.
func (j *Journal) Record(entry Entry) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries[entry.MirrorPath] = entry
	j.persistLocked()
}

// Remove deletes the entry for mirrorPath and rewrites the journal.
func (j *Journal) Remove(mirrorPath string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.entries, mirrorPath)
	j.persistLocked()
}

// persistLocked rewrites the journal file atomically. An empty journal
// removes the file instead, so a clean shutdown leaves no state
// behind. Caller holds j.mu.
func (j *Journal) persistLocked() {
	if len(j.entries) == 0 {
		if err := os.Remove(j.path); err != nil && !os.IsNotExist(err) {
			j.logger.Warn("removing empty session journal failed", "path", j.path, "error", err)
		}
		return
	}

	if err := j.writeAtomic(); err != nil {
		j.logger.Warn("persisting session journal failed", "path", j.path, "error", err)
	}
}

// writeAtomic writes the current entries to a temporary file, syncs
// it, and renames it into place so readers never see a partial write.
func (j *Journal) writeAtomic() error {
	data, err := codec.Marshal(journalState{Entries: j.entries})
	if err != nil {
		return fmt.Errorf("marshaling session journal: %w", err)
	}

	temporaryPath := j.path + ".tmp"
	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating temporary journal file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("writing temporary journal file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("syncing temporary journal file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("closing temporary journal file: %w", err)
	}

	if err := os.Rename(temporaryPath, j.path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("renaming journal file into place: %w", err)
	}

	// Sync the parent directory so the rename survives power loss.
	parentDirectory, err := os.Open(filepath.Dir(j.path))
	if err == nil {
		parentDirectory.Sync()
		parentDirectory.Close()
	}
	return nil
}
