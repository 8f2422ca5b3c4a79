package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"winfp/internal/focus"
	"winfp/internal/logging"
	"winfp/internal/winbio"
)

// Options configure Open.
type Options struct {
	Flags winbio.SessionFlags
	// WantFocus creates a focus window and requests subsystem focus before the
	// session is opened. Interactive commands need it.
	WantFocus bool
	// Host creates the focus window. A nil host behaves like a failed window
	// creation.
	Host   focus.Host
	Logger *slog.Logger
}

// Guard owns one open session handle.
type Guard struct {
	gw     winbio.Gateway
	handle winbio.SessionHandle
	window *focus.Window
	logger *slog.Logger

	once     sync.Once
	closeErr error
}

// Open constructs a Guard. A window that cannot be created is reported as a
// warning and the session is opened without it. Failure to open the session
// tears down any window already created and is returned.
func Open(gw winbio.Gateway, opts Options) (*Guard, error) {
	logger := logging.NewComponentLogger(opts.Logger, "session")
	g := &Guard{gw: gw, logger: logger}

	if opts.WantFocus {
		window, err := focus.Open(opts.Host, gw, opts.Logger)
		if err != nil {
			logging.WarnWithContext(logger, "focus window unavailable; continuing without it", "focus_window_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "identify, verify and enroll may wait indefinitely for a touch"),
				logging.String(logging.FieldErrorHint, "run winfp from an interactive desktop session"),
			)
		} else {
			g.window = window
		}
	}

	handle, err := gw.OpenSession(opts.Flags)
	if err != nil {
		if g.window != nil {
			if werr := g.window.Close(); werr != nil {
				logger.Error("focus window teardown failed", logging.Error(werr))
			}
		}
		return nil, fmt.Errorf("open biometric session: %w", err)
	}
	g.handle = handle
	logger.Debug("session opened",
		logging.Uint64(logging.FieldSession, uint64(handle)),
		logging.Bool("focus_window", g.window != nil),
		logging.Bool("subsystem_focus", g.window.HasFocus()),
	)
	return g, nil
}

// Session returns the guarded handle. It is invalid after Close.
func (g *Guard) Session() winbio.SessionHandle {
	return g.handle
}

// Focused reports whether subsystem focus is held for this session.
func (g *Guard) Focused() bool {
	return g.window.HasFocus()
}

// Close runs the full teardown once. Every step runs even when an earlier one
// fails; the errors are joined.
func (g *Guard) Close() error {
	if g == nil {
		return nil
	}
	g.once.Do(func() {
		var errs []error
		if g.handle.Valid() {
			if err := g.gw.CloseSession(g.handle); err != nil {
				errs = append(errs, fmt.Errorf("close session: %w", err))
			}
			g.logger.Debug("session closed", logging.Uint64(logging.FieldSession, uint64(g.handle)))
			g.handle = 0
		}
		if g.window != nil {
			if err := g.window.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close focus window: %w", err))
			}
		}
		g.closeErr = errors.Join(errs...)
	})
	return g.closeErr
}
