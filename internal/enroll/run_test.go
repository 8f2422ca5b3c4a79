package enroll

import (
	"errors"
	"testing"

	"winfp/internal/logging"
	"winfp/internal/winbio"
)

type capture struct {
	status winbio.Status
	reject winbio.RejectDetail
}

type scriptedGateway struct {
	captures  []capture
	beginErr  error
	commitErr error
	identity  winbio.Identity

	beginCalls   int
	captureCalls int
	commitCalls  int
	discardCalls int
	discardErr   error
}

func (g *scriptedGateway) EnrollBegin(winbio.SessionHandle, winbio.FingerPosition, winbio.UnitID) error {
	g.beginCalls++
	return g.beginErr
}

func (g *scriptedGateway) EnrollCapture(winbio.SessionHandle) (winbio.Status, winbio.RejectDetail) {
	if g.captureCalls >= len(g.captures) {
		panic("capture called past end of script")
	}
	c := g.captures[g.captureCalls]
	g.captureCalls++
	return c.status, c.reject
}

func (g *scriptedGateway) EnrollCommit(winbio.SessionHandle) (winbio.Identity, bool, error) {
	g.commitCalls++
	if g.commitErr != nil {
		return winbio.Identity{}, false, g.commitErr
	}
	return g.identity, true, nil
}

func (g *scriptedGateway) EnrollDiscard(winbio.SessionHandle) error {
	g.discardCalls++
	return g.discardErr
}

type promptLog struct {
	prompts []int
	kinds   []CaptureKind
}

func (p *promptLog) Prompt(sample int)          { p.prompts = append(p.prompts, sample) }
func (p *promptLog) Captured(res CaptureResult) { p.kinds = append(p.kinds, res.Kind) }

func run(t *testing.T, gw *scriptedGateway, obs Observer) (Result, error) {
	t.Helper()
	return Run(gw, 7, winbio.FingerPosition(2), 1, Options{Observer: obs, Logger: logging.NewNop()})
}

func TestMoreMoreCompleteCommits(t *testing.T) {
	gw := &scriptedGateway{
		captures: []capture{{status: winbio.StatusMoreData}, {status: winbio.StatusMoreData}, {status: winbio.StatusOK}},
		identity: winbio.Identity{Type: winbio.IdentitySID, Value: []byte{1, 5}},
	}
	obs := &promptLog{}

	res, err := run(t, gw, obs)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Outcome != OutcomeCommitted || res.State != StateCommitted {
		t.Fatalf("unexpected result: %+v", res)
	}
	if gw.captureCalls != 3 || res.Samples != 3 {
		t.Fatalf("expected exactly 3 captures, got calls=%d samples=%d", gw.captureCalls, res.Samples)
	}
	if gw.discardCalls != 0 {
		t.Fatalf("discard must not be called, got %d", gw.discardCalls)
	}
	if gw.commitCalls != 1 || !res.IsNewTemplate || res.Identity.Type != winbio.IdentitySID {
		t.Fatalf("unexpected commit: calls=%d res=%+v", gw.commitCalls, res)
	}
	wantPrompts := []int{1, 2, 3}
	for i, p := range wantPrompts {
		if obs.prompts[i] != p {
			t.Fatalf("prompts = %v, want %v", obs.prompts, wantPrompts)
		}
	}
}

func TestBadCaptureIsRetriedAndRecorded(t *testing.T) {
	gw := &scriptedGateway{
		captures: []capture{
			{status: winbio.StatusMoreData},
			{status: winbio.StatusBadCapture, reject: 7},
			{status: winbio.StatusOK},
		},
	}
	obs := &promptLog{}

	res, err := run(t, gw, obs)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Outcome != OutcomeCommitted {
		t.Fatalf("unexpected outcome: %v", res.Outcome)
	}
	if res.Samples != 3 {
		t.Fatalf("expected sample counter 3, got %d", res.Samples)
	}
	if len(res.Rejects) != 1 || res.Rejects[0] != 7 {
		t.Fatalf("expected one rejection detail of 7, got %v", res.Rejects)
	}
	if gw.discardCalls != 0 {
		t.Fatal("bad capture must not discard")
	}
	// The rejected touch is retried at the same sample index.
	wantPrompts := []int{1, 2, 2}
	for i, p := range wantPrompts {
		if obs.prompts[i] != p {
			t.Fatalf("prompts = %v, want %v", obs.prompts, wantPrompts)
		}
	}
	if obs.kinds[1] != CaptureBadCapture {
		t.Fatalf("unexpected kinds: %v", obs.kinds)
	}
}

func TestTooManyAttemptsDiscards(t *testing.T) {
	script := make([]capture, 21)
	for i := range script {
		script[i] = capture{status: winbio.StatusMoreData}
	}
	gw := &scriptedGateway{captures: script}

	res, err := run(t, gw, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Outcome != OutcomeTooManyAttempts || res.State != StateDiscarded {
		t.Fatalf("unexpected result: %+v", res)
	}
	if gw.captureCalls != DefaultMaxAttempts {
		t.Fatalf("expected %d captures, got %d", DefaultMaxAttempts, gw.captureCalls)
	}
	if gw.discardCalls != 1 || gw.commitCalls != 0 {
		t.Fatalf("expected one discard and no commit, got discard=%d commit=%d", gw.discardCalls, gw.commitCalls)
	}
}

func TestUnclassifiedStatusDiscardsAndFails(t *testing.T) {
	gw := &scriptedGateway{
		captures: []capture{{status: winbio.StatusMoreData}, {status: winbio.StatusDeviceBusy}},
	}

	res, err := run(t, gw, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !winbio.HasStatus(err, winbio.StatusDeviceBusy) {
		t.Fatalf("expected device busy status in %v", err)
	}
	if res.State != StateFailed || gw.discardCalls != 1 || gw.commitCalls != 0 {
		t.Fatalf("unexpected state=%v discard=%d commit=%d", res.State, gw.discardCalls, gw.commitCalls)
	}
}

func TestDuplicateCommitIsNonFatal(t *testing.T) {
	gw := &scriptedGateway{
		captures:  []capture{{status: winbio.StatusOK}},
		commitErr: &winbio.StatusError{Op: "WinBioEnrollCommit", Status: winbio.StatusDuplicateEnrollment},
	}

	res, err := run(t, gw, nil)
	if err != nil {
		t.Fatalf("duplicate must not be an error: %v", err)
	}
	if res.Outcome != OutcomeDuplicate || gw.discardCalls != 1 {
		t.Fatalf("unexpected result: %+v discard=%d", res, gw.discardCalls)
	}
}

func TestOtherCommitErrorDiscardsAndPropagates(t *testing.T) {
	gw := &scriptedGateway{
		captures:   []capture{{status: winbio.StatusOK}},
		commitErr:  &winbio.StatusError{Op: "WinBioEnrollCommit", Status: winbio.StatusDatabaseFull},
		discardErr: errors.New("discard failed"),
	}

	res, err := run(t, gw, nil)
	if !winbio.HasStatus(err, winbio.StatusDatabaseFull) {
		t.Fatalf("expected database full error, got %v", err)
	}
	if res.State != StateFailed || gw.discardCalls != 1 {
		t.Fatalf("unexpected state=%v discard=%d", res.State, gw.discardCalls)
	}
}

func TestBeginValidation(t *testing.T) {
	gw := &scriptedGateway{}
	for _, finger := range []winbio.FingerPosition{0, 11, winbio.FingerAny} {
		if _, err := Run(gw, 1, finger, 1, Options{}); !errors.Is(err, ErrInvalidFinger) {
			t.Fatalf("finger %d: expected ErrInvalidFinger, got %v", finger, err)
		}
	}
	if _, err := Run(gw, 1, 3, 0, Options{}); !errors.Is(err, ErrInvalidUnit) {
		t.Fatalf("expected ErrInvalidUnit, got %v", err)
	}
	if gw.beginCalls != 0 {
		t.Fatal("begin must not reach the gateway with invalid arguments")
	}

	gw.beginErr = &winbio.StatusError{Op: "WinBioEnrollBegin", Status: winbio.StatusEnrollmentInProgress}
	res, err := Run(gw, 1, 3, 1, Options{})
	if !winbio.HasStatus(err, winbio.StatusEnrollmentInProgress) || res.State != StateFailed {
		t.Fatalf("unexpected begin failure handling: res=%+v err=%v", res, err)
	}
	if gw.discardCalls != 0 {
		t.Fatal("nothing to discard when begin fails")
	}
}

func TestAttemptRejectsOutOfOrderSteps(t *testing.T) {
	gw := &scriptedGateway{captures: []capture{{status: winbio.StatusOK}}}
	a, err := Begin(gw, 1, 1, 1, nil)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := a.Commit(); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("commit before capture: expected ErrInvalidState, got %v", err)
	}
	if _, err := a.Capture(); err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if _, err := a.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if _, err := a.Capture(); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("capture after commit: expected ErrInvalidState, got %v", err)
	}
	a.Discard()
	if gw.discardCalls != 0 || a.State() != StateCommitted {
		t.Fatal("discard after commit must be a no-op")
	}
}

func TestClassifyKeepsSuccessCodesApart(t *testing.T) {
	cases := []struct {
		status winbio.Status
		want   CaptureKind
	}{
		{winbio.StatusOK, CaptureComplete},
		{winbio.StatusMoreData, CaptureMoreData},
		{winbio.StatusBadCapture, CaptureBadCapture},
		{winbio.StatusNoMatch, CaptureFailed},
		{winbio.StatusCanceled, CaptureFailed},
		{winbio.Status(0x00090002), CaptureFailed},
	}
	for _, tc := range cases {
		got := Classify(tc.status, 3)
		if got.Kind != tc.want || got.Status != tc.status {
			t.Fatalf("Classify(%s) = %+v, want kind %v", tc.status, got, tc.want)
		}
	}
	if Classify(winbio.StatusMoreData, 3).Reject != 0 {
		t.Fatal("reject detail only applies to bad captures")
	}
}
