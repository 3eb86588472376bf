// Copyright 2026 The RMate Launcher Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Defaults for TCP mode, matching the rmate convention.
const (
	DefaultIP   = "127.0.0.1"
	DefaultPort = 52698
)

// baseDirName is the default base directory name under $HOME.
const baseDirName = ".rmate_launcher"

// socketFileName is the default Unix socket name inside the base
// directory.
const socketFileName = "rmate.sock"

// ErrMissing reports configuration the launcher cannot start without:
// no editor command, or no HOME when a default path needs it.
var ErrMissing = errors.New("missing required configuration")

// Mode selects the listener type.
type Mode string

const (
	// ModeUnix listens on a Unix domain socket.
	ModeUnix Mode = "unix"
	// ModeTCP listens on a TCP address.
	ModeTCP Mode = "tcp"
)

// Config is the launcher's immutable per-process configuration. Built
// once by Load before any goroutine starts; read freely afterwards.
type Config struct {
	// EditorCommand is the shell command invoked per file. It must
	// block until the user finishes editing.
	EditorCommand string

	// Mode selects Unix socket vs TCP listening. SocketPath is
	// meaningful in ModeUnix; IP and Port in ModeTCP.
	Mode       Mode
	SocketPath string
	IP         string
	Port       int

	// BaseDir is the absolute directory where mirror files live.
	BaseDir string
}

// fileConfig is the YAML shape of the optional RMATE_CONFIG file. All
// fields are optional; the environment overrides every one of them.
type fileConfig struct {
	Editor  string `yaml:"editor"`
	Socket  string `yaml:"socket"`
	IP      string `yaml:"ip"`
	Port    *int   `yaml:"port"`
	BaseDir string `yaml:"base_dir"`
}

// Load builds the configuration from the optional RMATE_CONFIG YAML
// file and the RMATE_* environment variables, environment winning.
// An unparsable RMATE_PORT falls back to the default with a warning;
// a missing editor command or missing HOME (when a default path needs
// it) is fatal and wraps ErrMissing.
func Load(logger *slog.Logger) (*Config, error) {
	var file fileConfig
	if path := os.Getenv("RMATE_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	editorCommand := firstNonEmpty(os.Getenv("RMATE_EDITOR"), file.Editor)
	if editorCommand == "" {
		return nil, fmt.Errorf("%w: RMATE_EDITOR is not set (a shell command that blocks until editing completes)", ErrMissing)
	}

	socketPath := firstNonEmpty(os.Getenv("RMATE_SOCKET"), file.Socket)
	ip := firstNonEmpty(os.Getenv("RMATE_IP"), file.IP)

	port := 0
	portConfigured := false
	if portText := os.Getenv("RMATE_PORT"); portText != "" {
		portConfigured = true
		parsed, err := strconv.Atoi(portText)
		if err != nil || parsed < 1 || parsed > 65535 {
			logger.Warn("RMATE_PORT does not parse as a port, using default",
				"value", portText,
				"default", DefaultPort,
			)
			port = DefaultPort
		} else {
			port = parsed
		}
	} else if file.Port != nil {
		portConfigured = true
		port = *file.Port
	}

	baseDir := firstNonEmpty(os.Getenv("RMATE_BASE_DIR"), file.BaseDir)
	if baseDir == "" {
		home, err := requireHome()
		if err != nil {
			return nil, err
		}
		baseDir = filepath.Join(home, baseDirName)
	}

	cfg := &Config{
		EditorCommand: editorCommand,
		BaseDir:       baseDir,
	}

	// Mode selection: an explicit socket path (or nothing TCP-specific
	// at all) means Unix; explicit TCP settings without a socket path
	// mean TCP.
	if socketPath != "" || (ip == "" && !portConfigured) {
		cfg.Mode = ModeUnix
		if socketPath == "" {
			home, err := requireHome()
			if err != nil {
				return nil, err
			}
			socketPath = filepath.Join(home, baseDirName, socketFileName)
		}
		cfg.SocketPath = socketPath
		return cfg, nil
	}

	cfg.Mode = ModeTCP
	cfg.IP = ip
	if cfg.IP == "" {
		cfg.IP = DefaultIP
	}
	cfg.Port = port
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	return cfg, nil
}

// requireHome returns $HOME or an ErrMissing-wrapping error.
func requireHome() (string, error) {
	home := os.Getenv("HOME")
	if home == "" {
		return "", fmt.Errorf("%w: HOME is not set and no explicit path configured", ErrMissing)
	}
	return home, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
