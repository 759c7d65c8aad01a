// Copyright 2026 The rendezvous Authors
// This file is part of the rendezvous library.
//
// The rendezvous library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The rendezvous library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the rendezvous library. If not, see <http://www.gnu.org/licenses/>.

// Package logging wires up the structured, leveled logging shared by the
// server and client binaries. It follows the teacher's own convention of
// building on log/slog rather than a bespoke logger: level-named,
// key-value structured records, with color applied only when the
// destination is a real terminal.
package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ParseLevel maps a CLI-provided level name to its slog.Level, accepting
// the same four names the teacher's own verbosity flag documents.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("logging: unknown level %q", name)
	}
}

// Options configures New.
type Options struct {
	// Level sets the minimum record level that is emitted.
	Level slog.Level
	// FilePath, if non-empty, writes logs to a rotated file via
	// lumberjack instead of (not in addition to) the terminal.
	FilePath string
}

// New builds the root logger for a binary. When Options.FilePath is set
// the destination is a rotating log file and color is never applied,
// since a log file is read back by tools that do not expect ANSI escape
// codes. Otherwise records go to stderr through the terminal-style
// handler, colorized only when stderr is a real terminal.
func New(opts Options) *slog.Logger {
	if opts.FilePath != "" {
		w := &lumberjack.Logger{
			Filename:   ExpandHome(opts.FilePath),
			MaxSize:    100, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
		}
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: opts.Level}))
	}

	stderr := os.Stderr
	color := isatty.IsTerminal(stderr.Fd()) || isatty.IsCygwinTerminal(stderr.Fd())
	if color {
		return slog.New(newTerminalHandler(colorable.NewColorable(stderr), opts.Level, true))
	}
	return slog.New(newTerminalHandler(stderr, opts.Level, false))
}

// ExpandHome expands a leading "~" or "~/" in path to the user's home
// directory, the same path-expansion convention the teacher's
// internal/flags applies to its own file-path flags (HomeDir() plus
// tilde substitution). Used for any user-supplied file path flag
// (--log-file, --export-key) so "~/..." behaves as shells expect even
// though these are plain string flags with no shell doing the expansion
// for us.
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	if path != "~" && !strings.HasPrefix(path, "~/") {
		// "~otheruser/..." is left alone; only the invoking user's own
		// home directory is resolved here.
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}
