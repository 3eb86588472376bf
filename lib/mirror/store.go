// Copyright 2026 The RMate Launcher Authors
// SPDX-License-Identifier: Apache-2.0

package mirror

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/rmatelabs/rmate-launcher/lib/clock"
)

// ErrOutsideBase reports a path that is not lexically under the base
// directory. Prune refuses to touch anything outside the base.
var ErrOutsideBase = errors.New("path outside base directory")

// recoveredDirName is the top-level directory quarantined subtrees are
// moved into. Never itself quarantined.
const recoveredDirName = "_recovered"

// InitBase creates the base directory if it does not exist and
// tightens its mode to 0700. The chmod is best-effort: a base
// directory on a filesystem without POSIX permissions still works,
// just without the privacy bit.
func InitBase(baseDir string) error {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return fmt.Errorf("creating base directory %s: %w", baseDir, err)
	}
	_ = os.Chmod(baseDir, 0700)
	return nil
}

// QuarantineLeftovers moves every top-level directory of baseDir other
// than _recovered into _recovered/<YYYYMMDD-HHMMSS>/<name>. Leftover
// directories are mirrors from an unclean shutdown; moving them aside
// preserves any edits the user had in flight. The timestamp directory
// is created once per call, on the first leftover found. Failures on
// individual entries are logged and skipped.
func QuarantineLeftovers(baseDir string, clk clock.Clock, logger *slog.Logger) error {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return fmt.Errorf("reading base directory %s: %w", baseDir, err)
	}

	var quarantineDir string
	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == recoveredDirName {
			continue
		}

		if quarantineDir == "" {
			stamp := clk.Now().Format("20060102-150405")
			quarantineDir = filepath.Join(baseDir, recoveredDirName, stamp)
			if err := os.MkdirAll(quarantineDir, 0700); err != nil {
				return fmt.Errorf("creating quarantine directory %s: %w", quarantineDir, err)
			}
		}

		source := filepath.Join(baseDir, entry.Name())
		destination := filepath.Join(quarantineDir, entry.Name())
		if err := os.Rename(source, destination); err != nil {
			logger.Warn("quarantining leftover directory failed",
				"path", source,
				"error", err,
			)
			continue
		}
		logger.Info("quarantined leftover directory",
			"path", source,
			"moved_to", destination,
		)
	}
	return nil
}

// CreateMirror computes the mirror path for (host, remotePath) and
// creates all parent directories. It does not create the file itself:
// the caller creates it with WriteExclusive so that concurrent opens
// for the same path collide there.
func CreateMirror(baseDir, host, remotePath string) (string, error) {
	mirrorPath := Path(baseDir, host, remotePath)
	if err := os.MkdirAll(filepath.Dir(mirrorPath), 0700); err != nil {
		return "", fmt.Errorf("creating mirror parents for %s: %w", mirrorPath, err)
	}
	return mirrorPath, nil
}

// WriteExclusive creates the file at path with O_CREAT|O_EXCL|O_WRONLY
// and writes data to it. When the file already exists the error wraps
// fs.ErrExist (check with errors.Is) — this is the collision signal
// between concurrent opens of the same remote path.
func WriteExclusive(path string, data []byte) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("creating mirror file %s: %w", path, err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		return fmt.Errorf("writing mirror file %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing mirror file %s: %w", path, err)
	}
	return nil
}

// IsExist reports whether err is the WriteExclusive collision signal.
func IsExist(err error) bool {
	return errors.Is(err, fs.ErrExist)
}

// ReadAll reads the full contents of the file at path: open, stat the
// size, then read exactly that many bytes (short reads are retried by
// io.ReadFull). Editors that append while we read can make the file
// longer than the stat; those extra bytes are picked up by the next
// change event.
func ReadAll(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stating %s: %w", path, err)
	}

	data := make([]byte, info.Size())
	if _, err := io.ReadFull(file, data); err != nil {
		return nil, fmt.Errorf("reading %d bytes from %s: %w", info.Size(), path, err)
	}
	return data, nil
}

// Prune deletes the mirror file at mirrorPath, then walks upward
// removing each ancestor directory that is empty and strictly under
// baseDir, stopping at the first non-empty ancestor. A mirrorPath that
// is not lexically under baseDir is refused with ErrOutsideBase — the
// daemon never deletes outside its own base directory.
func Prune(baseDir, mirrorPath string, logger *slog.Logger) error {
	if !isUnder(baseDir, mirrorPath) {
		logger.Error("refusing to prune path outside base directory",
			"base", baseDir,
			"path", mirrorPath,
		)
		return fmt.Errorf("pruning %s: %w", mirrorPath, ErrOutsideBase)
	}

	if err := os.Remove(mirrorPath); err != nil {
		return fmt.Errorf("removing mirror file %s: %w", mirrorPath, err)
	}

	for parent := filepath.Dir(mirrorPath); isUnder(baseDir, parent); parent = filepath.Dir(parent) {
		if err := os.Remove(parent); err != nil {
			// Non-empty (or otherwise unremovable) ancestor: another
			// mirror shares it. Stop here.
			return nil
		}
	}
	return nil
}

// isUnder reports whether path is lexically a strict descendant of
// baseDir. Purely lexical: no symlink resolution, matching the rule
// that mirror paths are constructed, never trusted.
func isUnder(baseDir, path string) bool {
	relative, err := filepath.Rel(baseDir, path)
	if err != nil {
		return false
	}
	if relative == "." || relative == ".." {
		return false
	}
	return !strings.HasPrefix(relative, ".."+string(filepath.Separator))
}
