// Copyright 2026 The RMate Launcher Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"bytes"
	"fmt"
	"io"
)

// WriteSave emits a save frame carrying the current file contents:
//
//	save\n
//	token: <token>\n
//	data: <len>\n
//	<bytes>\n
//
// The frame is assembled in memory and written with a single Write so
// that a caller serializing writers with a mutex never interleaves
// partial frames on the socket.
func WriteSave(w io.Writer, token string, data []byte) error {
	var frame bytes.Buffer
	fmt.Fprintf(&frame, "save\ntoken: %s\ndata: %d\n", token, len(data))
	frame.Write(data)
	frame.WriteByte('\n')

	if _, err := w.Write(frame.Bytes()); err != nil {
		return fmt.Errorf("writing save frame for token %s: %w", token, err)
	}
	return nil
}

// WriteClose emits a close frame:
//
//	close\n
//	token: <token>\n
//	\n
//
// Single Write, same as WriteSave.
func WriteClose(w io.Writer, token string) error {
	frame := fmt.Sprintf("close\ntoken: %s\n\n", token)
	if _, err := io.WriteString(w, frame); err != nil {
		return fmt.Errorf("writing close frame for token %s: %w", token, err)
	}
	return nil
}

// WriteGreeting emits the banner line a client sees immediately after
// its connection is accepted, before any save or close frame.
func WriteGreeting(w io.Writer, version string) error {
	if _, err := fmt.Fprintf(w, "RMate Launcher %s\n", version); err != nil {
		return fmt.Errorf("writing greeting: %w", err)
	}
	return nil
}
