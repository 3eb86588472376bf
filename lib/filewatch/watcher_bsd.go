// Copyright 2026 The RMate Launcher Authors
// SPDX-License-Identifier: Apache-2.0

//go:build darwin || freebsd

package filewatch

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// noteMask covers the kqueue vnode events that indicate a content
// modification: writes, extends, and attribute changes.
const noteMask = unix.NOTE_WRITE | unix.NOTE_EXTEND | unix.NOTE_ATTRIB

// start opens the target, registers an EVFILT_VNODE kevent, and
// launches the wait loop.
func (w *Watcher) start() error {
	fileDescriptor, err := unix.Open(w.path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("opening %s for kqueue watch: %w", w.path, err)
	}

	kernelQueue, err := unix.Kqueue()
	if err != nil {
		unix.Close(fileDescriptor)
		return fmt.Errorf("kqueue: %w", err)
	}

	registration := []unix.Kevent_t{{
		Ident:  uint64(fileDescriptor),
		Filter: unix.EVFILT_VNODE,
		Flags:  unix.EV_ADD | unix.EV_ENABLE | unix.EV_CLEAR,
		Fflags: noteMask,
	}}
	if _, err := unix.Kevent(kernelQueue, registration, nil, nil); err != nil {
		unix.Close(kernelQueue)
		unix.Close(fileDescriptor)
		return fmt.Errorf("registering kevent for %s: %w", w.path, err)
	}

	w.closeResources = func() {
		unix.Close(kernelQueue)
		unix.Close(fileDescriptor)
	}

	go w.waitLoop(kernelQueue)
	return nil
}

// waitLoop blocks in kevent with a 100ms timeout so the goroutine
// remains responsive to the stop signal, and invokes the callback for
// every event whose fflags intersect noteMask.
func (w *Watcher) waitLoop(kernelQueue int) {
	defer close(w.done)

	timeout := unix.NsecToTimespec(100 * 1000 * 1000)
	events := make([]unix.Kevent_t, 1)
	for {
		select {
		case <-w.stopChannel:
			// Deliver events already queued before exiting: an
			// editor's final save may land between the last kevent
			// wait and the stop signal, and it must still reach the
			// callback before Stop returns.
			w.drain(kernelQueue, events)
			return
		default:
		}

		count, err := unix.Kevent(kernelQueue, nil, events, &timeout)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return
		}
		if count > 0 && events[0].Fflags&noteMask != 0 {
			w.onChange(w.path)
		}
	}
}

// drain delivers any events already queued on the kernel queue,
// returning as soon as a zero-timeout kevent comes back empty.
func (w *Watcher) drain(kernelQueue int, events []unix.Kevent_t) {
	zero := unix.Timespec{}
	for {
		count, err := unix.Kevent(kernelQueue, nil, events, &zero)
		if err != nil || count == 0 {
			return
		}
		if events[0].Fflags&noteMask != 0 {
			w.onChange(w.path)
		}
	}
}
