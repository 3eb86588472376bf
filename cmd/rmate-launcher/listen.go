// Copyright 2026 The RMate Launcher Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rmatelabs/rmate-launcher/lib/config"
)

// listen binds the configured listener. The returned cleanup closes
// the listener and, in Unix mode, removes the socket file.
func listen(cfg *config.Config, logger *slog.Logger) (net.Listener, func(), error) {
	switch cfg.Mode {
	case config.ModeUnix:
		return listenUnix(cfg.SocketPath, logger)
	case config.ModeTCP:
		return listenTCP(cfg.IP, cfg.Port, logger)
	default:
		return nil, nil, fmt.Errorf("unknown listener mode %q", cfg.Mode)
	}
}

// listenUnix binds a Unix socket: stale socket file removed, parent
// directory created, mode tightened to 0600 so only the owner can
// reach the daemon.
func listenUnix(socketPath string, logger *slog.Logger) (net.Listener, func(), error) {
	if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("removing stale socket %s: %w", socketPath, err)
	}
	if err := os.MkdirAll(filepath.Dir(socketPath), 0700); err != nil {
		return nil, nil, fmt.Errorf("creating socket directory for %s: %w", socketPath, err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, nil, fmt.Errorf("listening on %s: %w", socketPath, err)
	}
	if err := os.Chmod(socketPath, 0600); err != nil {
		listener.Close()
		os.Remove(socketPath)
		return nil, nil, fmt.Errorf("restricting socket mode on %s: %w", socketPath, err)
	}

	logger.Info("listening", "mode", "unix", "socket", socketPath)
	cleanup := func() {
		listener.Close()
		os.Remove(socketPath)
	}
	return listener, cleanup, nil
}

// listenTCP binds a TCP address. The Go runtime sets SO_REUSEADDR on
// listening sockets, so restart-after-crash does not trip over
// TIME_WAIT.
func listenTCP(ip string, port int, logger *slog.Logger) (net.Listener, func(), error) {
	address := net.JoinHostPort(ip, strconv.Itoa(port))
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, nil, fmt.Errorf("listening on %s: %w", address, err)
	}

	logger.Info("listening", "mode", "tcp", "address", listener.Addr().String())
	cleanup := func() { listener.Close() }
	return listener, cleanup, nil
}
