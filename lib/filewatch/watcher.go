// Copyright 2026 The RMate Launcher Authors
// SPDX-License-Identifier: Apache-2.0

package filewatch

import "sync"

// Watcher invokes a callback whenever the OS reports a
// content-modifying event on one file. Create with New, release with
// Stop.
type Watcher struct {
	path     string
	onChange func(path string)

	// stopChannel signals the watch goroutine to exit; done is closed
	// by the goroutine on its way out. closeResources releases the
	// kernel descriptors and must only run after done — the goroutine
	// reads them until it exits.
	stopChannel    chan struct{}
	done           chan struct{}
	closeResources func()
	stopOnce       sync.Once
}

// New starts watching the existing file at path. onChange is invoked
// from the watch goroutine, sequentially, once per reported event,
// with the watched path as its argument.
func New(path string, onChange func(path string)) (*Watcher, error) {
	w := &Watcher{
		path:        path,
		onChange:    onChange,
		stopChannel: make(chan struct{}),
		done:        make(chan struct{}),
	}
	if err := w.start(); err != nil {
		return nil, err
	}
	return w, nil
}

// Stop signals the watch goroutine, waits for it to exit, then
// releases the kernel resources. After Stop returns, no further
// callback invocation is in flight or will ever start. Idempotent.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopChannel)
		<-w.done
		w.closeResources()
	})
}
