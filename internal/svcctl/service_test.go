package svcctl

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeService walks through a scripted list of states, one per Query.
type fakeService struct {
	states    []State
	queries   int
	stops     int
	starts    int
	stopErr   error
	afterStop []State
	afterRun  []State
}

func (f *fakeService) Query() (State, error) {
	i := f.queries
	f.queries++
	if i >= len(f.states) {
		return f.states[len(f.states)-1], nil
	}
	return f.states[i], nil
}

func (f *fakeService) Stop() error {
	f.stops++
	if f.stopErr != nil {
		return f.stopErr
	}
	f.states = append(f.states[:f.queries], f.afterStop...)
	return nil
}

func (f *fakeService) Start() error {
	f.starts++
	f.states = append(f.states[:f.queries], f.afterRun...)
	return nil
}

func (f *fakeService) Config() (Config, error) { return Config{}, nil }
func (f *fakeService) Close() error            { return nil }

func instantPoller(attempts int) (Poller, *int) {
	sleeps := 0
	return Poller{
		Interval: 500 * time.Millisecond,
		Attempts: attempts,
		Sleep: func(ctx context.Context, d time.Duration) error {
			sleeps++
			return ctx.Err()
		},
	}, &sleeps
}

func TestRunProjection(t *testing.T) {
	cases := map[State]RunState{
		StateStopped:         RunStopped,
		StateRunning:         RunRunning,
		StateStartPending:    RunTransitioning,
		StateStopPending:     RunTransitioning,
		StateContinuePending: RunTransitioning,
		StatePausePending:    RunTransitioning,
		StatePaused:          RunTransitioning,
	}
	for state, want := range cases {
		if got := state.Run(); got != want {
			t.Fatalf("%s projected to %s, want %s", state, got, want)
		}
	}
}

func TestStopRunningServiceWaitsForStopped(t *testing.T) {
	svc := &fakeService{
		states:    []State{StateRunning},
		afterStop: []State{StateStopPending, StateStopPending, StateStopped},
	}
	p, sleeps := instantPoller(30)

	wasRunning, err := p.Stop(context.Background(), svc)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !wasRunning || svc.stops != 1 {
		t.Fatalf("wasRunning=%v stops=%d", wasRunning, svc.stops)
	}
	if *sleeps != 3 {
		t.Fatalf("expected 3 polls, got %d", *sleeps)
	}
}

func TestStopAlreadyStoppedIsNoop(t *testing.T) {
	svc := &fakeService{states: []State{StateStopped}}
	p, sleeps := instantPoller(30)

	wasRunning, err := p.Stop(context.Background(), svc)
	if err != nil || wasRunning {
		t.Fatalf("wasRunning=%v err=%v", wasRunning, err)
	}
	if svc.stops != 0 || *sleeps != 0 {
		t.Fatalf("expected no control or polling, stops=%d sleeps=%d", svc.stops, *sleeps)
	}
}

func TestStopPendingOnlyPolls(t *testing.T) {
	svc := &fakeService{states: []State{StateStopPending, StateStopPending, StateStopped}}
	p, _ := instantPoller(30)

	wasRunning, err := p.Stop(context.Background(), svc)
	if err != nil || !wasRunning {
		t.Fatalf("wasRunning=%v err=%v", wasRunning, err)
	}
	if svc.stops != 0 {
		t.Fatal("stop control must not be sent to a stopping service")
	}
}

func TestStopTimesOutAfterAttemptBudget(t *testing.T) {
	svc := &fakeService{states: []State{StateRunning}, afterStop: []State{StateStopPending}}
	p, sleeps := instantPoller(30)

	_, err := p.Stop(context.Background(), svc)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if *sleeps != 30 {
		t.Fatalf("expected 30 polls, got %d", *sleeps)
	}
}

func TestStopControlFailure(t *testing.T) {
	denied := errors.New("access denied")
	svc := &fakeService{states: []State{StateRunning}, stopErr: denied}
	p, _ := instantPoller(30)

	wasRunning, err := p.Stop(context.Background(), svc)
	if !errors.Is(err, denied) || !wasRunning {
		t.Fatalf("wasRunning=%v err=%v", wasRunning, err)
	}
}

func TestStartWaitsForRunning(t *testing.T) {
	svc := &fakeService{
		states:   []State{StateStopped},
		afterRun: []State{StateStartPending, StateRunning},
	}
	p, _ := instantPoller(30)

	if err := p.Start(context.Background(), svc); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if svc.starts != 1 {
		t.Fatalf("expected one start, got %d", svc.starts)
	}
}

func TestStartAlreadyRunning(t *testing.T) {
	svc := &fakeService{states: []State{StateRunning}}
	p, _ := instantPoller(30)
	if err := p.Start(context.Background(), svc); err != nil || svc.starts != 0 {
		t.Fatalf("starts=%d err=%v", svc.starts, err)
	}
}

func TestWaitForHonoursContext(t *testing.T) {
	svc := &fakeService{states: []State{StateStopPending}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := Poller{Interval: time.Hour, Attempts: 30}

	if _, err := p.WaitFor(ctx, svc, RunStopped); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
	if svc.queries != 0 {
		t.Fatal("no query expected after cancellation")
	}
}
