package svcctl

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrTimeout is returned when the service does not reach the wanted state
	// within the poll budget.
	ErrTimeout = errors.New("timed out waiting for service state")
	// ErrUnsupportedPlatform is returned where no service control manager exists.
	ErrUnsupportedPlatform = errors.New("service control requires Windows")
)

// Access selects the rights requested when a service is opened.
type Access int

const (
	// AccessQuery allows status and configuration queries.
	AccessQuery Access = iota
	// AccessControl additionally allows start and stop.
	AccessControl
)

// Config is the static configuration of a service.
type Config struct {
	DisplayName string
	StartType   string
	BinaryPath  string
	Account     string
}

// Service is an open service handle. Close must be called on every path.
type Service interface {
	Query() (State, error)
	Stop() error
	Start() error
	Config() (Config, error)
	Close() error
}

// Opener opens services by name.
type Opener interface {
	Open(name string, access Access) (Service, error)
}

// Poller waits for a state change with fixed-interval, fixed-count polling.
type Poller struct {
	Interval time.Duration
	Attempts int
	// Sleep waits between polls. Nil uses a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPoller polls every 500ms, 30 times.
func DefaultPoller() Poller {
	return Poller{Interval: 500 * time.Millisecond, Attempts: 30}
}

// WaitFor polls svc until its state projects onto want.
func (p Poller) WaitFor(ctx context.Context, svc Service, want RunState) (State, error) {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	var last State
	for i := 0; i < attempts; i++ {
		if err := sleep(ctx, p.Interval); err != nil {
			return last, err
		}
		state, err := svc.Query()
		if err != nil {
			return last, fmt.Errorf("query service: %w", err)
		}
		last = state
		if state.Run() == want {
			return state, nil
		}
	}
	return last, fmt.Errorf("%w: wanted %s after %d checks, last state %s", ErrTimeout, want, attempts, last)
}

// Stop requests a stop if needed and waits until the service is stopped. It
// reports whether the service was in any state other than stopped on entry.
func (p Poller) Stop(ctx context.Context, svc Service) (bool, error) {
	state, err := svc.Query()
	if err != nil {
		return false, fmt.Errorf("query service: %w", err)
	}
	switch state {
	case StateStopped:
		return false, nil
	case StateStopPending:
		// Someone else already asked; wait for it.
	case StateStartPending, StateContinuePending:
		if _, err := p.WaitFor(ctx, svc, RunRunning); err != nil {
			return true, fmt.Errorf("wait for pending start before stop: %w", err)
		}
		fallthrough
	default:
		if err := svc.Stop(); err != nil {
			return true, fmt.Errorf("stop service: %w", err)
		}
	}
	if _, err := p.WaitFor(ctx, svc, RunStopped); err != nil {
		return true, fmt.Errorf("wait for service stop: %w", err)
	}
	return true, nil
}

// Start requests a start and waits until the service is running.
func (p Poller) Start(ctx context.Context, svc Service) error {
	state, err := svc.Query()
	if err != nil {
		return fmt.Errorf("query service: %w", err)
	}
	if state == StateRunning {
		return nil
	}
	if state != StateStartPending {
		if err := svc.Start(); err != nil {
			return fmt.Errorf("start service: %w", err)
		}
	}
	if _, err := p.WaitFor(ctx, svc, RunRunning); err != nil {
		return fmt.Errorf("wait for service start: %w", err)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
