// Copyright 2026 The RMate Launcher Authors
// SPDX-License-Identifier: Apache-2.0

package filewatch

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"
)

// modificationMask covers every inotify event that can change the
// watched file's content or identity: in-place writes, metadata
// changes, close-after-write, and replace-by-rename (editors that
// write a temporary file and rename it over the original).
const modificationMask = unix.IN_MODIFY |
	unix.IN_ATTRIB |
	unix.IN_CLOSE_WRITE |
	unix.IN_MOVED_FROM |
	unix.IN_MOVED_TO |
	unix.IN_CREATE |
	unix.IN_DELETE

// start registers the inotify watch and launches the read loop.
func (w *Watcher) start() error {
	fd, err := unix.InotifyInit1(unix.IN_NONBLOCK | unix.IN_CLOEXEC)
	if err != nil {
		return fmt.Errorf("inotify_init1: %w", err)
	}

	watchDescriptor, err := unix.InotifyAddWatch(fd, w.path, modificationMask)
	if err != nil {
		unix.Close(fd)
		return fmt.Errorf("inotify_add_watch on %s: %w", w.path, err)
	}

	w.closeResources = func() {
		unix.InotifyRmWatch(fd, uint32(watchDescriptor))
		unix.Close(fd)
	}

	go w.readLoop(fd)
	return nil
}

// readLoop polls the inotify fd for events on the watched file and
// invokes the callback for each matching event.
//
// Uses poll(2) with a 100ms timeout so the goroutine remains
// responsive to the stop signal without burning CPU on a tight loop.
// The fd stays open for the whole loop; Stop closes it only after
// done is observed closed.
func (w *Watcher) readLoop(fd int) {
	defer close(w.done)

	buffer := make([]byte, 4096)
	for {
		select {
		case <-w.stopChannel:
			// Deliver events already queued in the kernel before
			// exiting: an editor's final save may land between the
			// last poll and the stop signal, and it must still reach
			// the callback before Stop returns.
			w.drain(fd, buffer)
			return
		default:
		}

		pollDescriptors := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		count, err := unix.Poll(pollDescriptors, 100)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return
		}
		if count == 0 {
			continue // timeout, check stopChannel
		}

		bytesRead, err := unix.Read(fd, buffer)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EINTR {
				continue
			}
			return
		}

		for i := 0; i < countModificationEvents(buffer[:bytesRead]); i++ {
			w.onChange(w.path)
		}
	}
}

// drain reads and delivers any events already queued on the inotify
// fd, returning at the first would-block.
func (w *Watcher) drain(fd int, buffer []byte) {
	for {
		bytesRead, err := unix.Read(fd, buffer)
		if err != nil || bytesRead == 0 {
			return
		}
		for i := 0; i < countModificationEvents(buffer[:bytesRead]); i++ {
			w.onChange(w.path)
		}
	}
}

// countModificationEvents scans a buffer of raw inotify events and
// returns how many carry a mask intersecting modificationMask.
//
// Inotify event layout (from inotify(7)):
//
//	struct inotify_event {
//	    int32_t  wd;     // offset 0
//	    uint32_t mask;   // offset 4
//	    uint32_t cookie; // offset 8
//	    uint32_t len;    // offset 12
//	    char     name[]; // offset 16, padded to alignment
//	};
func countModificationEvents(buffer []byte) int {
	matches := 0
	offset := 0
	for offset+unix.SizeofInotifyEvent <= len(buffer) {
		mask := binary.NativeEndian.Uint32(buffer[offset+4 : offset+8])
		nameLength := int(binary.NativeEndian.Uint32(buffer[offset+12 : offset+16]))
		eventSize := unix.SizeofInotifyEvent + nameLength
		if offset+eventSize > len(buffer) {
			break
		}
		if mask&modificationMask != 0 {
			matches++
		}
		offset += eventSize
	}
	return matches
}
