// Copyright 2026 The RMate Launcher Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"

	"github.com/rmatelabs/rmate-launcher/lib/clock"
	"github.com/rmatelabs/rmate-launcher/lib/config"
	"github.com/rmatelabs/rmate-launcher/lib/session"
	"github.com/rmatelabs/rmate-launcher/lib/statefile"
)

// serve accepts connections until ctx is cancelled, then waits for
// every in-flight session to finish. Sessions are never interrupted:
// a SIGTERM stops the accept loop, but a user mid-edit keeps their
// editor, and the daemon exits only after the last close frame.
func serve(ctx context.Context, listener net.Listener, cfg *config.Config, journal *statefile.Journal, clk clock.Clock, logger *slog.Logger) {
	// Unblock Accept when the context is cancelled.
	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	var sessions sync.WaitGroup
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			// Transient failures (including aborted handshakes) keep
			// the loop alive.
			logger.Error("accept failed", "error", err)
			continue
		}

		remote := conn.RemoteAddr().String()
		logger.Info("connection accepted", "remote", remote)

		sessions.Add(1)
		go func() {
			defer sessions.Done()
			session.New(conn, cfg, journal, clk, logger.With("remote", remote)).Run()
			logger.Info("connection finished", "remote", remote)
		}()
	}

	logger.Info("accept loop stopped, draining sessions")
	sessions.Wait()
}
