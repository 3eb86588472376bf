// Copyright 2026 The RMate Launcher Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/rmatelabs/rmate-launcher/lib/clock"
	"github.com/rmatelabs/rmate-launcher/lib/config"
	"github.com/rmatelabs/rmate-launcher/lib/editor"
	"github.com/rmatelabs/rmate-launcher/lib/filewatch"
	"github.com/rmatelabs/rmate-launcher/lib/mirror"
	"github.com/rmatelabs/rmate-launcher/lib/protocol"
	"github.com/rmatelabs/rmate-launcher/lib/statefile"
	"github.com/rmatelabs/rmate-launcher/lib/version"
)

// Session drives one accepted connection from greeting to teardown.
type Session struct {
	conn    net.Conn
	cfg     *config.Config
	journal *statefile.Journal
	clk     clock.Clock
	logger  *slog.Logger

	// writeMu serializes every protocol write on conn. The watcher
	// callbacks and the editor-exit paths write concurrently; the
	// mutex guarantees whole frames, nothing more — frames for
	// different tokens interleave in whatever order the goroutines
	// arrive.
	writeMu sync.Mutex

	// editors tracks the in-flight editor goroutines. Run returns
	// only after the group drains, so the socket outlives every
	// editor.
	editors sync.WaitGroup
}

// New creates a session for an accepted connection. The journal may be
// shared across sessions; Config and Clock are read-only.
func New(conn net.Conn, cfg *config.Config, journal *statefile.Journal, clk clock.Clock, logger *slog.Logger) *Session {
	return &Session{
		conn:    conn,
		cfg:     cfg,
		journal: journal,
		clk:     clk,
		logger:  logger,
	}
}

// Run processes the connection to completion: greeting, command
// stream, per-open handling, drain, close. It blocks until every
// editor spawned by this connection has exited and its mirror has
// been pruned.
func (s *Session) Run() {
	defer s.conn.Close()

	s.writeMu.Lock()
	greetingError := protocol.WriteGreeting(s.conn, version.Version)
	s.writeMu.Unlock()
	if greetingError != nil {
		s.logger.Warn("writing greeting failed", "error", greetingError)
		return
	}

	parser := protocol.NewParser(s.conn, s.logger)
	for {
		request, err := parser.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// A damaged stream ends command intake but not the
			// connection: in-flight editors below still finish and
			// emit their close frames.
			s.logger.Warn("command stream error", "error", err)
			break
		}
		s.handleOpen(request)
	}

	s.editors.Wait()
}

// handleOpen materializes one open request: mirror file, optional
// watcher, editor goroutine. Any failure before the editor starts
// emits a close for the token so the client is never left hanging.
func (s *Session) handleOpen(request *protocol.OpenRequest) {
	host := mirror.Host(request.DisplayName)
	fileLogger := s.logger.With("token", request.Token, "host", host, "real_path", request.RealPath)

	mirrorPath, err := mirror.CreateMirror(s.cfg.BaseDir, host, request.RealPath)
	if err != nil {
		fileLogger.Error("creating mirror path failed", "error", err)
		s.writeClose(request.Token, fileLogger)
		return
	}
	fileLogger = fileLogger.With("mirror_path", mirrorPath)

	if err := mirror.WriteExclusive(mirrorPath, request.Data); err != nil {
		if mirror.IsExist(err) {
			// Another session (or an earlier open on this one) is
			// already editing this path. The later open loses:
			// close it immediately and track nothing.
			fileLogger.Info("mirror already in use, rejecting duplicate open")
		} else {
			fileLogger.Error("writing mirror file failed", "error", err)
		}
		s.writeClose(request.Token, fileLogger)
		return
	}

	s.journal.Record(statefile.Entry{
		Token:      request.Token,
		Host:       host,
		RemotePath: request.RealPath,
		MirrorPath: mirrorPath,
		OpenedAt:   s.clk.Now(),
	})

	var watcher *filewatch.Watcher
	if request.DataOnSave {
		watcher, err = filewatch.New(mirrorPath, s.saveCallback(request.Token, mirrorPath, fileLogger))
		if err != nil {
			fileLogger.Error("starting file watcher failed", "error", err)
			s.abandonMirror(mirrorPath, fileLogger)
			s.writeClose(request.Token, fileLogger)
			return
		}
	}

	fileLogger.Info("file session opened",
		"data_on_save", request.DataOnSave,
		"initial_bytes", len(request.Data),
	)

	s.editors.Add(1)
	go s.runEditor(request.Token, mirrorPath, watcher, fileLogger)
}

// runEditor blocks on the editor child, then tears the file session
// down in the order the protocol requires: watcher joined first, close
// frame second, prune last.
func (s *Session) runEditor(token, mirrorPath string, watcher *filewatch.Watcher, fileLogger *slog.Logger) {
	defer s.editors.Done()

	if err := editor.Run(s.cfg.EditorCommand, mirrorPath, s.clk, fileLogger); err != nil {
		// Spawn failure: the close below still tells the client the
		// file is done.
		fileLogger.Error("spawning editor failed", "error", err)
	}

	if watcher != nil {
		// Joining the watcher before writing close guarantees no save
		// for this token is emitted after its close frame.
		watcher.Stop()
	}

	s.writeClose(token, fileLogger)
	s.abandonMirror(mirrorPath, fileLogger)
	fileLogger.Info("file session closed")
}

// saveCallback returns the watcher callback for one file: re-read the
// mirror and stream it to the client as a save frame. Errors are
// logged and suppressed — the session stays live and later events
// retry naturally.
func (s *Session) saveCallback(token, mirrorPath string, fileLogger *slog.Logger) func(string) {
	return func(string) {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()

		data, err := mirror.ReadAll(mirrorPath)
		if err != nil {
			fileLogger.Warn("reading mirror for save failed", "error", err)
			return
		}
		if err := protocol.WriteSave(s.conn, token, data); err != nil {
			fileLogger.Warn("writing save frame failed", "error", err)
			return
		}
		fileLogger.Debug("save frame sent", "bytes", len(data))
	}
}

// writeClose emits the close frame for a token under the write mutex.
func (s *Session) writeClose(token string, fileLogger *slog.Logger) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := protocol.WriteClose(s.conn, token); err != nil {
		fileLogger.Warn("writing close frame failed", "error", err)
	}
}

// abandonMirror prunes a mirror file and drops its journal entry.
func (s *Session) abandonMirror(mirrorPath string, fileLogger *slog.Logger) {
	if err := mirror.Prune(s.cfg.BaseDir, mirrorPath, fileLogger); err != nil {
		fileLogger.Warn("pruning mirror failed", "error", err)
	}
	s.journal.Remove(mirrorPath)
}
