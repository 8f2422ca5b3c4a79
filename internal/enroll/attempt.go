package enroll

import (
	"errors"
	"fmt"
	"log/slog"

	"winfp/internal/logging"
	"winfp/internal/winbio"
)

var (
	ErrInvalidFinger = errors.New("finger position must be 1-10")
	ErrInvalidUnit   = errors.New("sensor unit id is invalid")
	// ErrInvalidState is returned when a step is called out of order.
	ErrInvalidState = errors.New("enrollment step not valid in current state")
)

// Gateway is the subset of winbio.Gateway used during enrollment.
type Gateway interface {
	EnrollBegin(h winbio.SessionHandle, finger winbio.FingerPosition, unit winbio.UnitID) error
	EnrollCapture(h winbio.SessionHandle) (winbio.Status, winbio.RejectDetail)
	EnrollCommit(h winbio.SessionHandle) (winbio.Identity, bool, error)
	EnrollDiscard(h winbio.SessionHandle) error
}

// State of an Attempt.
type State int

const (
	StateIdle State = iota
	StateBegun
	StateCapturing
	StateCommitted
	StateDiscarded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBegun:
		return "begun"
	case StateCapturing:
		return "capturing"
	case StateCommitted:
		return "committed"
	case StateDiscarded:
		return "discarded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further steps are allowed.
func (s State) Terminal() bool {
	return s == StateCommitted || s == StateDiscarded || s == StateFailed
}

// Attempt is one enrollment for one finger on one unit.
type Attempt struct {
	gw      Gateway
	session winbio.SessionHandle
	finger  winbio.FingerPosition
	unit    winbio.UnitID
	logger  *slog.Logger

	state    State
	samples  int
	accepted int
	rejects  []winbio.RejectDetail
}

// Begin validates the arguments and starts enrollment. On failure no
// subsystem state is held and nothing needs discarding.
func Begin(gw Gateway, session winbio.SessionHandle, finger winbio.FingerPosition, unit winbio.UnitID, logger *slog.Logger) (*Attempt, error) {
	if !finger.Valid() {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidFinger, uint8(finger))
	}
	if unit == 0 {
		return nil, ErrInvalidUnit
	}
	a := &Attempt{
		gw:      gw,
		session: session,
		finger:  finger,
		unit:    unit,
		logger: logging.NewComponentLogger(logger, "enroll").With(
			logging.String(logging.FieldFinger, finger.Name()),
			logging.Uint64(logging.FieldUnitID, uint64(unit)),
		),
	}
	if err := gw.EnrollBegin(session, finger, unit); err != nil {
		a.state = StateFailed
		return nil, fmt.Errorf("begin enrollment: %w", err)
	}
	a.state = StateBegun
	a.logger.Debug("enrollment begun")
	return a, nil
}

// State returns the current state.
func (a *Attempt) State() State { return a.state }

// Samples returns the number of capture calls made so far.
func (a *Attempt) Samples() int { return a.samples }

// Accepted returns the number of samples the subsystem kept.
func (a *Attempt) Accepted() int { return a.accepted }

// Rejects returns the rejection detail of every bad capture, in order.
func (a *Attempt) Rejects() []winbio.RejectDetail {
	return append([]winbio.RejectDetail(nil), a.rejects...)
}

// LastReject returns the most recent rejection detail, or zero.
func (a *Attempt) LastReject() winbio.RejectDetail {
	if len(a.rejects) == 0 {
		return 0
	}
	return a.rejects[len(a.rejects)-1]
}

// Capture waits for one touch and classifies the result. A CaptureFailed
// status discards the attempt and is returned as a *winbio.StatusError.
func (a *Attempt) Capture() (CaptureResult, error) {
	if a.state != StateBegun && a.state != StateCapturing {
		return CaptureResult{}, fmt.Errorf("capture: %w (%s)", ErrInvalidState, a.state)
	}
	status, reject := a.gw.EnrollCapture(a.session)
	a.samples++
	a.state = StateCapturing

	res := Classify(status, reject)
	switch res.Kind {
	case CaptureComplete:
		a.accepted++
		a.logger.Debug("template complete", logging.Int("samples", a.samples))
	case CaptureMoreData:
		a.accepted++
		a.logger.Debug("sample accepted", logging.Int("accepted", a.accepted))
	case CaptureBadCapture:
		a.rejects = append(a.rejects, res.Reject)
		a.logger.Info("sample rejected",
			logging.String("reason", res.Reject.Reason()),
			logging.Status(uint32(status)),
		)
	default:
		err := &winbio.StatusError{Op: "WinBioEnrollCapture", Status: status}
		a.discard()
		a.state = StateFailed
		return res, fmt.Errorf("capture sample %d: %w", a.samples, err)
	}
	return res, nil
}

// Commit finalizes the template. A duplicate enrollment discards the attempt
// and reports OutcomeDuplicate without an error.
func (a *Attempt) Commit() (Result, error) {
	if a.state != StateCapturing {
		return a.result(OutcomeNone), fmt.Errorf("commit: %w (%s)", ErrInvalidState, a.state)
	}
	identity, isNew, err := a.gw.EnrollCommit(a.session)
	if err != nil {
		a.discard()
		if winbio.HasStatus(err, winbio.StatusDuplicateEnrollment) {
			a.state = StateDiscarded
			a.logger.Info("finger already enrolled")
			return a.result(OutcomeDuplicate), nil
		}
		a.state = StateFailed
		return a.result(OutcomeNone), fmt.Errorf("commit enrollment: %w", err)
	}
	a.state = StateCommitted
	res := a.result(OutcomeCommitted)
	res.Identity = identity
	res.IsNewTemplate = isNew
	a.logger.Info("enrollment committed", logging.Bool("new_template", isNew), logging.Int("samples", a.samples))
	return res, nil
}

// Discard abandons the attempt. It is a no-op once the attempt is terminal.
func (a *Attempt) Discard() {
	if a.state.Terminal() || a.state == StateIdle {
		return
	}
	a.discard()
	a.state = StateDiscarded
}

// discard is best effort: its failure is logged and never returned.
func (a *Attempt) discard() {
	if err := a.gw.EnrollDiscard(a.session); err != nil {
		logging.WarnWithContext(a.logger, "discard enrollment failed", "enroll_discard_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "subsystem may keep partial enrollment state until the session closes"),
		)
	}
}

func (a *Attempt) result(outcome Outcome) Result {
	return Result{
		Outcome:  outcome,
		State:    a.state,
		Finger:   a.finger,
		Unit:     a.unit,
		Samples:  a.samples,
		Accepted: a.accepted,
		Rejects:  a.Rejects(),
	}
}
