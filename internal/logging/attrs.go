package logging

import (
	"context"
	"log/slog"
	"slices"
)

// Attr is the attribute type accepted by the helpers in this package.
type Attr = slog.Attr

const (
	defaultHint   = "rerun with --log-level debug for details"
	defaultImpact = "command continued with partial results"
)

func String(key, value string) Attr { return slog.String(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func Uint64(key string, value uint64) Attr { return slog.Uint64(key, value) }

func Bool(key string, value bool) Attr { return slog.Bool(key, value) }

// Error records err under the "error" key. A nil error yields an empty
// attribute, which handlers drop.
func Error(err error) Attr {
	if err == nil {
		return Attr{}
	}
	return slog.Any("error", err)
}

// NewNop returns a logger whose handler reports every level as disabled.
func NewNop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// NewComponentLogger tags logger with the component name shown as the console
// line prefix. A nil logger yields a no-op logger.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(String(FieldComponent, component))
}

// WarnWithContext logs a warning that always carries event_type, error_hint
// and impact. Caller supplied values win over the defaults.
func WarnWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	if logger == nil {
		return
	}
	attrs = withDefaults(attrs,
		String(FieldEventType, eventType),
		String(FieldErrorHint, defaultHint),
		String(FieldImpact, defaultImpact),
	)
	logger.LogAttrs(context.Background(), slog.LevelWarn, msg, attrs...)
}

// ErrorWithContext is WarnWithContext at error level without an impact default.
func ErrorWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	if logger == nil {
		return
	}
	attrs = withDefaults(attrs,
		String(FieldEventType, eventType),
		String(FieldErrorHint, defaultHint),
	)
	logger.LogAttrs(context.Background(), slog.LevelError, msg, attrs...)
}

func withDefaults(attrs []Attr, defaults ...Attr) []Attr {
	out := slices.Clone(attrs)
	for _, def := range defaults {
		if !slices.ContainsFunc(attrs, func(a Attr) bool { return a.Key == def.Key }) {
			out = append(out, def)
		}
	}
	return out
}
