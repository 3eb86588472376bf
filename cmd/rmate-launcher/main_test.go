// Copyright 2026 The RMate Launcher Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"strings"
	"testing"
)

func TestUsageDocumentsEveryVariable(t *testing.T) {
	for _, name := range []string{
		"RMATE_EDITOR", "RMATE_SOCKET", "RMATE_IP",
		"RMATE_PORT", "RMATE_BASE_DIR", "RMATE_CONFIG",
	} {
		if !strings.Contains(usageText, name) {
			t.Errorf("usage text does not mention %s", name)
		}
	}
}
