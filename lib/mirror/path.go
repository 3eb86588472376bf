// Copyright 2026 The RMate Launcher Authors
// SPDX-License-Identifier: Apache-2.0

package mirror

import (
	"path/filepath"
	"strings"
)

// Host extracts the host component from a display name of the
// conventional "host:/path" form. A display name without a colon is
// used whole; sanitization makes any byte sequence safe either way.
func Host(displayName string) string {
	host, _, found := strings.Cut(displayName, ":")
	if !found {
		return displayName
	}
	return host
}

// Path computes the mirror path for a remote file. The result is
// always lexically under baseDir and never contains "." or ".."
// components: host bytes outside [A-Za-z0-9._-] are mapped to "_",
// and remote path components equal to "", ".", or ".." are dropped.
func Path(baseDir, host, remotePath string) string {
	elements := []string{baseDir, sanitizeHost(host)}
	for _, component := range strings.Split(remotePath, "/") {
		switch component {
		case "", ".", "..":
			continue
		}
		elements = append(elements, component)
	}
	return filepath.Join(elements...)
}

// sanitizeHost maps every byte outside [A-Za-z0-9._-] to "_" so the
// host can never introduce path separators or relative components. A
// host of "." or ".." cannot result: "." and ".." both survive as
// themselves only if the client sent exactly those names, so they are
// rewritten explicitly.
func sanitizeHost(host string) string {
	if host == "" || host == "." || host == ".." {
		return "_"
	}
	mapped := []byte(host)
	for i, b := range mapped {
		switch {
		case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		case b == '.', b == '_', b == '-':
		default:
			mapped[i] = '_'
		}
	}
	return string(mapped)
}
