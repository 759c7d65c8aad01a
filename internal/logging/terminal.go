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

package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// termMsgJust is the column the message field is padded out to before
// attrs are appended, so that a line of key=val pairs lines up across
// records of varying message length (the same visual convention as
// go-ethereum's NewTerminalHandler).
const termMsgJust = 40

// level colors, ANSI SGR codes: cyan for debug, green for info, yellow
// for warn, red for error.
const (
	colorDebug = 36
	colorInfo  = 32
	colorWarn  = 33
	colorError = 31
)

func levelColor(level slog.Level) int {
	switch {
	case level < slog.LevelInfo:
		return colorDebug
	case level < slog.LevelWarn:
		return colorInfo
	case level < slog.LevelError:
		return colorWarn
	default:
		return colorError
	}
}

func levelString(level slog.Level) string {
	switch {
	case level < slog.LevelInfo:
		return "DEBG"
	case level < slog.LevelWarn:
		return "INFO"
	case level < slog.LevelError:
		return "WARN"
	default:
		return "EROR"
	}
}

// terminalHandler is a slog.Handler rendering one line per record in the
// "LVL [timestamp] message   key=val ..." shape, optionally colorizing
// the level tag with an ANSI escape sequence when attached to a real
// terminal. It exists so that wrapping the output writer in
// go-colorable actually has an effect: slog.TextHandler never emits
// color, so pairing it with a color-capable writer was a no-op.
type terminalHandler struct {
	mu    *sync.Mutex
	w     io.Writer
	level slog.Leveler
	color bool

	groupPrefix string
	attrs       []slog.Attr
}

func newTerminalHandler(w io.Writer, level slog.Leveler, color bool) *terminalHandler {
	return &terminalHandler{mu: new(sync.Mutex), w: w, level: level, color: color}
}

func (h *terminalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *terminalHandler) Handle(_ context.Context, r slog.Record) error {
	levelStr := levelString(r.Level)
	if h.color {
		levelStr = fmt.Sprintf("\x1b[%dm%s\x1b[0m", levelColor(r.Level), levelStr)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s [%s] %s", levelStr, r.Time.Format("01-02|15:04:05.000"), r.Message)
	if pad := termMsgJust - buf.Len(); pad > 0 {
		buf.WriteString(strings.Repeat(" ", pad))
	}

	for _, a := range h.attrs {
		h.writeAttr(&buf, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		h.writeAttr(&buf, a)
		return true
	})
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func (h *terminalHandler) writeAttr(buf *bytes.Buffer, a slog.Attr) {
	key := a.Key
	if h.groupPrefix != "" {
		key = h.groupPrefix + "." + key
	}
	fmt.Fprintf(buf, " %s=%v", key, a.Value.Any())
}

func (h *terminalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &next
}

func (h *terminalHandler) WithGroup(name string) slog.Handler {
	next := *h
	if h.groupPrefix == "" {
		next.groupPrefix = name
	} else {
		next.groupPrefix = h.groupPrefix + "." + name
	}
	return &next
}
