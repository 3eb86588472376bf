// Copyright 2026 The RMate Launcher Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts time measurement for testability. Production
// code injects [Real]; tests inject a [FakeClock] whose time only
// moves when the test advances it.
//
// The launcher reads the clock to measure how long an editor child
// process ran (to warn about editors that return immediately instead
// of blocking), to stamp the quarantine directory, and to record when
// a journal entry was opened. It has no timers or tickers, so the
// interface is deliberately small: just Now and Sleep.
package clock
