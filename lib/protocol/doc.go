// Copyright 2026 The RMate Launcher Authors
// SPDX-License-Identifier: Apache-2.0

// Package protocol implements the rmate wire protocol: a line-oriented
// text format with an optional binary payload per command.
//
// A command is a name line followed by "key: value" header lines. A
// command with no payload ends at a blank line; a command with a
// payload declares it with a final "data: <N>" header followed by
// exactly N payload bytes and a terminating newline. A line containing
// a single "." ends the command stream.
//
// The client→daemon direction carries only "open" commands, parsed by
// [Parser]. The daemon→client direction carries only "save" and
// "close" frames, emitted by [WriteSave] and [WriteClose]. Both frame
// writers issue a single Write call so a caller holding a write lock
// gets whole frames on the socket.
package protocol
