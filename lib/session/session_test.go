// Copyright 2026 The RMate Launcher Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"bufio"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rmatelabs/rmate-launcher/lib/clock"
	"github.com/rmatelabs/rmate-launcher/lib/config"
	"github.com/rmatelabs/rmate-launcher/lib/statefile"
	"github.com/rmatelabs/rmate-launcher/lib/testutil"
)

const frameTimeout = 10 * time.Second

// frame is one daemon→client protocol frame as seen by the test
// client.
type frame struct {
	kind  string // "save" or "close"
	token string
	data  []byte
}

// testClient drives the client side of a net.Pipe connected to a
// running session. It consumes the daemon's output concurrently so
// the unbuffered pipe never deadlocks.
type testClient struct {
	conn     net.Conn
	greeting chan string
	frames   chan frame
	closed   chan struct{}
}

func newTestClient(t *testing.T, conn net.Conn) *testClient {
	client := &testClient{
		conn:     conn,
		greeting: make(chan string, 1),
		frames:   make(chan frame, 64),
		closed:   make(chan struct{}),
	}
	go client.readLoop(t)
	return client
}

func (c *testClient) readLoop(t *testing.T) {
	defer close(c.closed)
	reader := bufio.NewReader(c.conn)

	greeting, err := reader.ReadString('\n')
	if err != nil {
		return
	}
	c.greeting <- strings.TrimSuffix(greeting, "\n")

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		switch strings.TrimSuffix(line, "\n") {
		case "save":
			tokenLine, _ := reader.ReadString('\n')
			token := strings.TrimSuffix(strings.TrimPrefix(tokenLine, "token: "), "\n")
			lengthLine, _ := reader.ReadString('\n')
			length, convErr := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(lengthLine, "data: "), "\n"))
			if convErr != nil {
				t.Errorf("bad save length line %q", lengthLine)
				return
			}
			data := make([]byte, length)
			if _, err := io.ReadFull(reader, data); err != nil {
				t.Errorf("short save payload: %v", err)
				return
			}
			if b, err := reader.ReadByte(); err != nil || b != '\n' {
				t.Errorf("missing framing newline after save payload")
				return
			}
			c.frames <- frame{kind: "save", token: token, data: data}
		case "close":
			tokenLine, _ := reader.ReadString('\n')
			token := strings.TrimSuffix(strings.TrimPrefix(tokenLine, "token: "), "\n")
			if blank, _ := reader.ReadString('\n'); blank != "\n" {
				t.Errorf("close frame not terminated by blank line, got %q", blank)
			}
			c.frames <- frame{kind: "close", token: token}
		default:
			t.Errorf("unexpected frame line %q", line)
			return
		}
	}
}

func (c *testClient) send(t *testing.T, wire string) {
	t.Helper()
	if _, err := io.WriteString(c.conn, wire); err != nil {
		t.Fatalf("writing to session: %v", err)
	}
}

// writeEditorScript creates an executable shell script used as the
// configured editor. The session invokes it with the mirror path as
// its only argument.
func writeEditorScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "editor.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755); err != nil {
		t.Fatalf("writing editor script: %v", err)
	}
	return path
}

// startSession wires a session over a net.Pipe and runs it. Returns
// the test client and a channel closed when Run returns.
func startSession(t *testing.T, editorCommand, baseDir string) (*testClient, chan struct{}) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{
		EditorCommand: editorCommand,
		Mode:          config.ModeUnix,
		BaseDir:       baseDir,
	}
	journal := statefile.Open(filepath.Join(baseDir, statefile.FileName), logger)

	serverEnd, clientEnd := net.Pipe()
	s := New(serverEnd, cfg, journal, clock.Real(), logger)

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run()
	}()
	return newTestClient(t, clientEnd), done
}

func openCommand(token, realPath string, dataOnSave bool, data string, hasData bool) string {
	wire := "open\n" +
		"display-name: h:" + realPath + "\n" +
		"real-path: " + realPath + "\n" +
		"token: " + token + "\n"
	if dataOnSave {
		wire += "data-on-save: yes\n"
	} else {
		wire += "data-on-save: no\n"
	}
	if hasData {
		wire += "data: " + strconv.Itoa(len(data)) + "\n" + data + "\n"
	} else {
		wire += "\n"
	}
	return wire
}

func TestOpenSaveClose(t *testing.T) {
	baseDir := t.TempDir()
	editorScript := writeEditorScript(t, `printf '!' >> "$1"`+"\nsleep 0.2\n")
	client, done := startSession(t, editorScript, baseDir)

	greeting := testutil.RequireReceive(t, client.greeting, frameTimeout, "greeting")
	if !strings.HasPrefix(greeting, "RMate Launcher ") {
		t.Errorf("greeting = %q", greeting)
	}

	client.send(t, openCommand("T1", "/f.txt", true, "hello", true))
	client.send(t, ".\n")

	var saves []frame
	var closeSeen bool
	for !closeSeen {
		f := testutil.RequireReceive(t, client.frames, frameTimeout, "waiting for frames")
		switch f.kind {
		case "save":
			if f.token != "T1" {
				t.Errorf("save token = %q", f.token)
			}
			saves = append(saves, f)
		case "close":
			if f.token != "T1" {
				t.Errorf("close token = %q", f.token)
			}
			closeSeen = true
		}
	}

	if len(saves) == 0 {
		t.Fatal("no save frame received")
	}
	if got := string(saves[len(saves)-1].data); got != "hello!" {
		t.Errorf("final save payload = %q, want %q", got, "hello!")
	}

	testutil.RequireClosed(t, done, frameTimeout, "session drain")

	// No frame follows the close for a token.
	testutil.RequireNoReceive(t, client.frames, 200*time.Millisecond, "frame after close")

	// Mirror and its host directory are pruned, journal is gone.
	if _, err := os.Stat(filepath.Join(baseDir, "h")); !os.IsNotExist(err) {
		t.Errorf("host directory not pruned (err=%v)", err)
	}
	if _, err := os.Stat(filepath.Join(baseDir, statefile.FileName)); !os.IsNotExist(err) {
		t.Errorf("journal left behind (err=%v)", err)
	}
}

func TestOpenWithoutDataOnSave(t *testing.T) {
	baseDir := t.TempDir()
	editorScript := writeEditorScript(t, `printf '!' >> "$1"`+"\n")
	client, done := startSession(t, editorScript, baseDir)

	testutil.RequireReceive(t, client.greeting, frameTimeout, "greeting")
	client.send(t, openCommand("T2", "/f.txt", false, "", false))
	client.send(t, ".\n")

	f := testutil.RequireReceive(t, client.frames, frameTimeout, "waiting for close")
	if f.kind != "close" || f.token != "T2" {
		t.Errorf("frame = %+v, want close T2", f)
	}

	testutil.RequireClosed(t, done, frameTimeout, "session drain")
	testutil.RequireNoReceive(t, client.frames, 200*time.Millisecond, "unexpected extra frame")
}

func TestDuplicateOpenRejected(t *testing.T) {
	baseDir := t.TempDir()
	editorScript := writeEditorScript(t, "sleep 0.8\n")
	client, done := startSession(t, editorScript, baseDir)

	testutil.RequireReceive(t, client.greeting, frameTimeout, "greeting")
	client.send(t, openCommand("T1", "/f.txt", false, "", false))
	client.send(t, openCommand("T2", "/f.txt", false, "", false))
	client.send(t, ".\n")

	// The duplicate loses immediately, while the first editor is
	// still running.
	first := testutil.RequireReceive(t, client.frames, frameTimeout, "duplicate close")
	if first.kind != "close" || first.token != "T2" {
		t.Errorf("first frame = %+v, want close T2", first)
	}

	second := testutil.RequireReceive(t, client.frames, frameTimeout, "original close")
	if second.kind != "close" || second.token != "T1" {
		t.Errorf("second frame = %+v, want close T1", second)
	}

	testutil.RequireClosed(t, done, frameTimeout, "session drain")
	if _, err := os.Stat(filepath.Join(baseDir, "h")); !os.IsNotExist(err) {
		t.Errorf("mirror tree not pruned after duplicate handling (err=%v)", err)
	}
}

func TestUnknownCommandTolerated(t *testing.T) {
	baseDir := t.TempDir()
	editorScript := writeEditorScript(t, "exit 0\n")
	client, done := startSession(t, editorScript, baseDir)

	testutil.RequireReceive(t, client.greeting, frameTimeout, "greeting")
	client.send(t, "foo\nx: y\n\n")
	client.send(t, openCommand("T3", "/f.txt", false, "", false))
	client.send(t, ".\n")

	f := testutil.RequireReceive(t, client.frames, frameTimeout, "close after unknown command")
	if f.kind != "close" || f.token != "T3" {
		t.Errorf("frame = %+v, want close T3", f)
	}
	testutil.RequireClosed(t, done, frameTimeout, "session drain")
}

func TestParseErrorStillDrainsEditors(t *testing.T) {
	baseDir := t.TempDir()
	editorScript := writeEditorScript(t, "sleep 0.5\n")
	client, done := startSession(t, editorScript, baseDir)

	testutil.RequireReceive(t, client.greeting, frameTimeout, "greeting")
	client.send(t, openCommand("T1", "/f.txt", false, "", false))
	// Malformed open: mandatory keys missing. The parser fails, the
	// session falls into draining, and the in-flight editor is still
	// awaited.
	client.send(t, "open\nselection: 1\n\n")

	f := testutil.RequireReceive(t, client.frames, frameTimeout, "close after parse error")
	if f.kind != "close" || f.token != "T1" {
		t.Errorf("frame = %+v, want close T1", f)
	}
	testutil.RequireClosed(t, done, frameTimeout, "session drain")
	if _, err := os.Stat(filepath.Join(baseDir, "h")); !os.IsNotExist(err) {
		t.Errorf("mirror tree not pruned after parse error (err=%v)", err)
	}
}

func TestEmptyInitialData(t *testing.T) {
	baseDir := t.TempDir()
	editorScript := writeEditorScript(t, `printf 'x' >> "$1"`+"\nsleep 0.2\n")
	client, done := startSession(t, editorScript, baseDir)

	testutil.RequireReceive(t, client.greeting, frameTimeout, "greeting")
	client.send(t, openCommand("T4", "/empty.txt", true, "", true))
	client.send(t, ".\n")

	var lastSave []byte
	for {
		f := testutil.RequireReceive(t, client.frames, frameTimeout, "frames for empty file")
		if f.kind == "close" {
			break
		}
		lastSave = f.data
	}
	if string(lastSave) != "x" {
		t.Errorf("final save payload = %q, want %q", lastSave, "x")
	}
	testutil.RequireClosed(t, done, frameTimeout, "session drain")
}

func TestConcurrentOpensDistinctFiles(t *testing.T) {
	baseDir := t.TempDir()
	editorScript := writeEditorScript(t, "sleep 0.3\n")
	client, done := startSession(t, editorScript, baseDir)

	testutil.RequireReceive(t, client.greeting, frameTimeout, "greeting")
	client.send(t, openCommand("A", "/a.txt", false, "aa", true))
	client.send(t, openCommand("B", "/b.txt", false, "bb", true))
	client.send(t, ".\n")

	closes := map[string]int{}
	for i := 0; i < 2; i++ {
		f := testutil.RequireReceive(t, client.frames, frameTimeout, "closes for both files")
		if f.kind != "close" {
			t.Errorf("unexpected frame %+v", f)
		}
		closes[f.token]++
	}
	if closes["A"] != 1 || closes["B"] != 1 {
		t.Errorf("close counts = %v, want one each", closes)
	}
	testutil.RequireClosed(t, done, frameTimeout, "session drain")

	entries, err := os.ReadDir(baseDir)
	if err != nil {
		t.Fatalf("reading base: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("base not empty after drain: %v", entries)
	}
}
