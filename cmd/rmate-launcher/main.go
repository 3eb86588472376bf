// Copyright 2026 The RMate Launcher Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"golang.org/x/term"

	"github.com/rmatelabs/rmate-launcher/lib/clock"
	"github.com/rmatelabs/rmate-launcher/lib/config"
	"github.com/rmatelabs/rmate-launcher/lib/mirror"
	"github.com/rmatelabs/rmate-launcher/lib/statefile"
	"github.com/rmatelabs/rmate-launcher/lib/version"
)

const usageText = `Usage: rmate-launcher [--help|-h] [--version]

Listens for rmate clients and opens each announced file in a local
editor. Configuration comes from the environment:

  RMATE_EDITOR    (required) shell command invoked per file; must
                  block until editing completes (e.g. "code --wait")
  RMATE_SOCKET    Unix socket path (default $HOME/.rmate_launcher/rmate.sock)
  RMATE_IP        TCP bind address, selects TCP mode (default 127.0.0.1)
  RMATE_PORT      TCP bind port, selects TCP mode (default 52698)
  RMATE_BASE_DIR  directory for mirror files (default $HOME/.rmate_launcher)
  RMATE_CONFIG    optional YAML config file; environment overrides it
`

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		showHelp    bool
		showVersion bool
	)
	flag.BoolVar(&showHelp, "help", false, "print usage and exit")
	flag.BoolVar(&showHelp, "h", false, "print usage and exit")
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usageText) }
	flag.Parse()

	if showHelp {
		fmt.Print(usageText)
		return nil
	}
	if showVersion {
		fmt.Printf("rmate-launcher %s\n", version.Version)
		return nil
	}

	logger := newLogger()
	slog.SetDefault(logger)

	cfg, err := config.Load(logger)
	if err != nil {
		return err
	}

	if err := mirror.InitBase(cfg.BaseDir); err != nil {
		return err
	}

	// Report what a previous unclean shutdown left in flight, then
	// move the leftover mirror trees aside before accepting anyone.
	clk := clock.Real()
	journal := statefile.Open(filepath.Join(cfg.BaseDir, statefile.FileName), logger)
	for _, leftover := range journal.RecoverLeftovers() {
		logger.Warn("file was in flight during previous shutdown; its mirror will be quarantined",
			"token", leftover.Token,
			"host", leftover.Host,
			"real_path", leftover.RemotePath,
			"opened_at", leftover.OpenedAt,
		)
	}
	if err := mirror.QuarantineLeftovers(cfg.BaseDir, clk, logger); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listener, cleanup, err := listen(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	serve(ctx, listener, cfg, journal, clk, logger)
	logger.Info("shutdown complete")
	return nil
}

// newLogger builds the process logger: human-readable when stderr is
// a terminal, JSON when it is a pipe or a service manager's journal.
func newLogger() *slog.Logger {
	options := &slog.HandlerOptions{Level: slog.LevelInfo}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return slog.New(slog.NewTextHandler(os.Stderr, options))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, options))
}
