package focus

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"winfp/internal/logging"
)

// Handle is an opaque native window handle.
type Handle uintptr

// Host creates and drives a native window. CreateWindow and Pump are called
// on the same locked OS thread; PostQuit may be called from any thread.
type Host interface {
	CreateWindow() (Handle, error)
	// Pump blocks dispatching messages until a quit message arrives, then
	// destroys the window.
	Pump(h Handle)
	PostQuit(h Handle) error
}

// Focuser requests and returns subsystem-level input focus.
type Focuser interface {
	AcquireFocus() error
	ReleaseFocus() error
}

// ErrNoHost is returned by Open when no window host is available on this
// platform.
var ErrNoHost = errors.New("focus window host unavailable")

// Window is a live focus window and its pump goroutine.
type Window struct {
	host    Host
	focuser Focuser
	logger  *slog.Logger

	handle   Handle
	focused  bool
	done     chan struct{}
	closeErr error
	once     sync.Once
}

type created struct {
	handle Handle
	err    error
}

// Open creates the window on a dedicated thread and waits for it to report
// either a handle or a failure. On success it asks focuser for subsystem focus
// and records whether that worked. A focus failure is logged, not returned.
func Open(host Host, focuser Focuser, logger *slog.Logger) (*Window, error) {
	if host == nil {
		return nil, ErrNoHost
	}
	logger = logging.NewComponentLogger(logger, "focus")

	ready := make(chan created, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		h, err := host.CreateWindow()
		ready <- created{handle: h, err: err}
		if err != nil {
			return
		}
		host.Pump(h)
	}()

	res := <-ready
	if res.err != nil {
		<-done
		return nil, fmt.Errorf("create focus window: %w", res.err)
	}

	w := &Window{
		host:    host,
		focuser: focuser,
		logger:  logger,
		handle:  res.handle,
		done:    done,
	}
	if focuser != nil {
		if err := focuser.AcquireFocus(); err != nil {
			logging.WarnWithContext(logger, "subsystem focus request failed", "focus_acquire_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "interactive sensor calls may not return until focus is granted"),
				logging.String(logging.FieldErrorHint, "keep the console window in the foreground"),
			)
		} else {
			w.focused = true
		}
	}
	logger.Debug("focus window ready", logging.Bool("subsystem_focus", w.focused))
	return w, nil
}

// HasFocus reports whether subsystem focus was acquired and is still held.
func (w *Window) HasFocus() bool {
	return w != nil && w.focused
}

// Close releases subsystem focus if it was acquired, posts a quit message to
// the pump, and waits for the pump goroutine to exit. It runs once; later
// calls return the first result.
//
// If the quit message cannot be posted the pump would never return, so Close
// does not wait: it returns the post error and the goroutine stays blocked
// until the process exits.
func (w *Window) Close() error {
	if w == nil {
		return nil
	}
	w.once.Do(func() {
		var errs []error
		if w.focused {
			if err := w.focuser.ReleaseFocus(); err != nil {
				errs = append(errs, fmt.Errorf("release focus: %w", err))
			}
			w.focused = false
		}
		if err := w.host.PostQuit(w.handle); err != nil {
			errs = append(errs, fmt.Errorf("post quit: %w", err))
			w.logger.Error("focus window did not accept quit; pump left running", logging.Error(err))
			w.closeErr = errors.Join(errs...)
			return
		}
		<-w.done
		w.closeErr = errors.Join(errs...)
	})
	return w.closeErr
}
