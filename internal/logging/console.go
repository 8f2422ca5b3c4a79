package logging

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

const consoleTimeLayout = "2006-01-02 15:04:05"

// lockedWriter is shared by a handler and every handler derived from it so
// lines from component loggers never interleave.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) write(p []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := l.w.Write(p)
	return err
}

// consoleHandler writes one line per record:
//
//	2026-01-02 15:04:05 WARN session: focus window unavailable key=value ...
//
// Attributes bound through With are rendered once, when the derived handler
// is created.
type consoleHandler struct {
	out        *lockedWriter
	level      slog.Level
	withSource bool
	component  string
	group      string
	bound      []byte
}

func newConsoleHandler(w io.Writer, level slog.Level, withSource bool) *consoleHandler {
	return &consoleHandler{out: &lockedWriter{w: w}, level: level, withSource: withSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	component := h.component
	var attrs []byte
	r.Attrs(func(a slog.Attr) bool {
		if component == "" && h.group == "" && a.Key == FieldComponent {
			component = a.Value.String()
			return true
		}
		attrs = appendAttr(attrs, h.group, a)
		return true
	})

	line := make([]byte, 0, 96+len(h.bound)+len(attrs))
	line = ts.Local().AppendFormat(line, consoleTimeLayout)
	line = append(line, ' ')
	line = append(line, levelLabel(r.Level)...)
	line = append(line, ' ')
	if component != "" {
		line = append(line, component...)
		line = append(line, ": "...)
	}
	msg := strings.TrimSpace(r.Message)
	if msg == "" {
		msg = "(no message)"
	}
	line = append(line, msg...)
	if h.withSource {
		if src := r.Source(); src != nil {
			line = append(line, " ["...)
			line = append(line, filepath.Base(src.File)...)
			line = append(line, ':')
			line = strconv.AppendInt(line, int64(src.Line), 10)
			line = append(line, ']')
		}
	}
	line = append(line, h.bound...)
	line = append(line, attrs...)
	line = append(line, '\n')
	return h.out.write(line)
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.bound = append([]byte(nil), h.bound...)
	for _, a := range attrs {
		if h.group == "" && a.Key == FieldComponent {
			next.component = a.Value.String()
			continue
		}
		next.bound = appendAttr(next.bound, h.group, a)
	}
	return &next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.group = h.group + name + "."
	return &next
}

// appendAttr renders a as " key=value", flattening groups into dotted keys.
func appendAttr(buf []byte, prefix string, a slog.Attr) []byte {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return buf
	}
	if a.Value.Kind() == slog.KindGroup {
		if a.Key != "" {
			prefix += a.Key + "."
		}
		for _, member := range a.Value.Group() {
			buf = appendAttr(buf, prefix, member)
		}
		return buf
	}
	buf = append(buf, ' ')
	buf = append(buf, prefix...)
	buf = append(buf, a.Key...)
	buf = append(buf, '=')
	return append(buf, formatValue(a.Value)...)
}

func formatValue(v slog.Value) string {
	var s string
	if v.Kind() == slog.KindTime {
		s = v.Time().UTC().Format(time.RFC3339)
	} else {
		s = v.String()
	}
	if s == "" || strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
		return strconv.Quote(s)
	}
	return s
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	}
	return "DEBUG"
}
