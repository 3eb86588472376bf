// Copyright 2026 The RMate Launcher Authors
// SPDX-License-Identifier: Apache-2.0

package filewatch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rmatelabs/rmate-launcher/lib/testutil"
)

func watchedFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "watched.txt")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("creating watched file: %v", err)
	}
	return path
}

func TestReportsModification(t *testing.T) {
	path := watchedFile(t, "initial")

	events := make(chan string, 16)
	watcher, err := New(path, func(changedPath string) {
		events <- changedPath
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer watcher.Stop()

	if err := os.WriteFile(path, []byte("modified"), 0600); err != nil {
		t.Fatalf("modifying watched file: %v", err)
	}

	reported := testutil.RequireReceive(t, events, 5*time.Second, "waiting for change event")
	if reported != path {
		t.Errorf("callback path = %q, want %q", reported, path)
	}
}

func TestReportsAppend(t *testing.T) {
	path := watchedFile(t, "line\n")

	events := make(chan string, 16)
	watcher, err := New(path, func(string) { events <- "event" })
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer watcher.Stop()

	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		t.Fatalf("opening for append: %v", err)
	}
	if _, err := file.WriteString("more\n"); err != nil {
		t.Fatalf("appending: %v", err)
	}
	file.Close()

	testutil.RequireReceive(t, events, 5*time.Second, "waiting for append event")
}

func TestNoCallbackAfterStop(t *testing.T) {
	path := watchedFile(t, "initial")

	events := make(chan string, 16)
	watcher, err := New(path, func(string) { events <- "event" })
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	watcher.Stop()

	// Stop joined the goroutine, so a modification after Stop can
	// never reach the callback.
	if err := os.WriteFile(path, []byte("modified"), 0600); err != nil {
		t.Fatalf("modifying watched file: %v", err)
	}
	testutil.RequireNoReceive(t, events, 300*time.Millisecond, "callback fired after Stop")
}

func TestStopIdempotent(t *testing.T) {
	path := watchedFile(t, "initial")

	watcher, err := New(path, func(string) {})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	watcher.Stop()
	watcher.Stop()
	watcher.Stop()
}

func TestMissingFile(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "does-not-exist"), func(string) {})
	if err == nil {
		t.Fatal("New on a missing file succeeded")
	}
}
