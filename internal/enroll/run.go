package enroll

import (
	"log/slog"

	"winfp/internal/logging"
	"winfp/internal/winbio"
)

// DefaultMaxAttempts bounds the total number of capture calls per attempt.
const DefaultMaxAttempts = 20

// Outcome is the non-error end of an enrollment.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeCommitted
	OutcomeDuplicate
	OutcomeTooManyAttempts
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCommitted:
		return "committed"
	case OutcomeDuplicate:
		return "already enrolled"
	case OutcomeTooManyAttempts:
		return "too many attempts"
	default:
		return "none"
	}
}

// Result summarizes a finished attempt.
type Result struct {
	Outcome       Outcome
	State         State
	Finger        winbio.FingerPosition
	Unit          winbio.UnitID
	Identity      winbio.Identity
	IsNewTemplate bool
	// Samples counts every capture call, rejected ones included.
	Samples  int
	Accepted int
	Rejects  []winbio.RejectDetail
}

// Observer receives progress while Run waits for touches.
type Observer interface {
	// Prompt is called before each capture; sample is the 1-based index of
	// the sample being collected, so a rejected touch repeats the index.
	Prompt(sample int)
	Captured(res CaptureResult)
}

type nopObserver struct{}

func (nopObserver) Prompt(int)             {}
func (nopObserver) Captured(CaptureResult) {}

// Options configure Run.
type Options struct {
	MaxAttempts int
	Observer    Observer
	Logger      *slog.Logger
}

// Run performs a whole enrollment: begin, capture until the template is
// complete or the attempt cap is reached, then commit.
func Run(gw Gateway, session winbio.SessionHandle, finger winbio.FingerPosition, unit winbio.UnitID, opts Options) (Result, error) {
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	observer := opts.Observer
	if observer == nil {
		observer = nopObserver{}
	}

	attempt, err := Begin(gw, session, finger, unit, opts.Logger)
	if err != nil {
		return Result{Outcome: OutcomeNone, State: StateFailed, Finger: finger, Unit: unit}, err
	}

	for {
		if attempt.Samples() >= maxAttempts {
			attempt.Discard()
			logging.WarnWithContext(attempt.logger, "enrollment abandoned after too many attempts", "enroll_too_many_attempts",
				logging.Int("attempts", attempt.Samples()),
				logging.String(logging.FieldImpact, "no template was stored"),
				logging.String(logging.FieldErrorHint, "clean the sensor and try again"),
			)
			return attempt.result(OutcomeTooManyAttempts), nil
		}

		observer.Prompt(attempt.Accepted() + 1)
		res, err := attempt.Capture()
		observer.Captured(res)
		if err != nil {
			return attempt.result(OutcomeNone), err
		}
		if res.Kind == CaptureComplete {
			break
		}
	}

	return attempt.Commit()
}
