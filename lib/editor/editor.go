// Copyright 2026 The RMate Launcher Authors
// SPDX-License-Identifier: Apache-2.0

package editor

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/rmatelabs/rmate-launcher/lib/clock"
)

// fastExitThreshold is the duration under which a successful editor
// exit is suspicious: the user almost certainly launched a GUI editor
// without its blocking flag, and the file will be closed before any
// edit happens.
const fastExitThreshold = 500 * time.Millisecond

// Run executes the editor command for filePath via the shell:
//
//	/bin/sh -c '<command> "<filePath>"'
//
// stdin, stdout, and stderr are inherited from the daemon so terminal
// editors work when the daemon runs in a terminal. Run blocks until
// the child exits.
//
// A non-zero exit is logged as a warning, not returned as an error —
// the file session still completes (close frame, prune) regardless of
// how the editor ended. Only a spawn failure is returned.
func Run(command, filePath string, clk clock.Clock, logger *slog.Logger) error {
	shellCommand := command + ` "` + filePath + `"`

	child := exec.Command("/bin/sh", "-c", shellCommand)
	child.Stdin = os.Stdin
	child.Stdout = os.Stdout
	child.Stderr = os.Stderr

	started := clk.Now()
	if err := child.Start(); err != nil {
		return fmt.Errorf("starting editor %q: %w", shellCommand, err)
	}

	waitError := child.Wait()
	elapsed := clk.Now().Sub(started)

	if waitError != nil {
		logger.Warn("editor exited with failure",
			"command", command,
			"path", filePath,
			"error", waitError,
		)
		return nil
	}

	if elapsed < fastExitThreshold {
		logger.Warn("editor exited suspiciously fast; did you forget a --wait-style flag?",
			"command", command,
			"path", filePath,
			"elapsed", elapsed,
		)
	}
	return nil
}
