// Copyright 2026 The RMate Launcher Authors
// SPDX-License-Identifier: Apache-2.0

// Package mirror manages the local files that mirror remote files
// being edited. Every mirror lives under a single base directory, in a
// per-host subtree whose layout mirrors the remote path:
//
//	<base>/<sanitized-host>/<remote>/<path>/<file>
//
// The package enforces the path-safety rules for that layout (host
// bytes restricted to [A-Za-z0-9._-], no ".." components, everything
// lexically under the base), creates mirror files with O_EXCL so that
// concurrent opens of the same remote path collide deterministically,
// and prunes a mirror together with its emptied ancestor directories
// when editing finishes.
//
// On startup, [QuarantineLeftovers] moves subtrees surviving an
// unclean shutdown into _recovered/<timestamp>/ rather than deleting
// them, so user edits are never silently discarded.
package mirror
