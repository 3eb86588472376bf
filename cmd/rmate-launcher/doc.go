// Copyright 2026 The RMate Launcher Authors
// SPDX-License-Identifier: Apache-2.0

// rmate-launcher is a local daemon for the rmate remote-editing
// protocol. A client on a remote host — typically the rmate script
// reached through a reverse SSH tunnel — connects, announces files
// with open commands, and streams their initial contents. The daemon
// mirrors each file under its base directory, opens the configured
// local editor on it, streams in-editor modifications back as save
// frames, and emits a close frame when the editor exits.
//
// Configuration is environment-driven (RMATE_EDITOR, RMATE_SOCKET,
// RMATE_IP, RMATE_PORT, RMATE_BASE_DIR), with an optional YAML file
// named by RMATE_CONFIG underneath the environment. See lib/config.
package main
