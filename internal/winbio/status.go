package winbio

import (
	"errors"
	"fmt"
)

// Status is a raw HRESULT returned by the biometric subsystem.
type Status uint32

const (
	StatusOK       Status = 0x00000000
	StatusMoreData Status = 0x00090001

	StatusFail         Status = 0x80004005
	StatusNoInterface  Status = 0x80004002
	StatusUnexpected   Status = 0x8000FFFF
	StatusAccessDenied Status = 0x80070005
	StatusInvalidArg   Status = 0x80070057

	StatusUnsupportedFactor        Status = 0x80098001
	StatusInvalidUnit              Status = 0x80098002
	StatusUnknownID                Status = 0x80098003
	StatusCanceled                 Status = 0x80098004
	StatusNoMatch                  Status = 0x80098005
	StatusCaptureAborted           Status = 0x80098006
	StatusEnrollmentInProgress     Status = 0x80098007
	StatusBadCapture               Status = 0x80098008
	StatusSessionBusy              Status = 0x8009800B
	StatusSessionHandleClosed      Status = 0x8009800E
	StatusDatabaseFull             Status = 0x80098010
	StatusDatabaseLocked           Status = 0x80098011
	StatusNotEnrolled              Status = 0x80098014
	StatusDuplicateEnrollment      Status = 0x80098015
	StatusNoSuchRecord             Status = 0x80098016
	StatusDeviceBusy               Status = 0x80098019
	StatusNoPrebootIdentity        Status = 0x80098029
	StatusDataCollectionInProgress Status = 0x8009802E
)

var statusMessages = map[Status]string{
	StatusOK:                       "Success (S_OK)",
	StatusMoreData:                 "Sample needed for enrollment (WINBIO_I_MORE_DATA)",
	StatusFail:                     "Unspecified error (E_FAIL)",
	StatusNoInterface:              "No such interface (E_NOINTERFACE)",
	StatusUnexpected:               "Catastrophic failure (E_UNEXPECTED)",
	StatusAccessDenied:             "Access denied (E_ACCESSDENIED)",
	StatusInvalidArg:               "Invalid argument (E_INVALIDARG)",
	StatusUnsupportedFactor:        "Unsupported biometric factor (WINBIO_E_UNSUPPORTED_FACTOR)",
	StatusInvalidUnit:              "Invalid unit (WINBIO_E_INVALID_UNIT)",
	StatusUnknownID:                "Unknown ID (WINBIO_E_UNKNOWN_ID)",
	StatusCanceled:                 "Operation canceled (WINBIO_E_CANCELED)",
	StatusNoMatch:                  "No match (WINBIO_E_NO_MATCH)",
	StatusCaptureAborted:           "Capture aborted (WINBIO_E_CAPTURE_ABORTED)",
	StatusEnrollmentInProgress:     "Enrollment in progress (WINBIO_E_ENROLLMENT_IN_PROGRESS)",
	StatusBadCapture:               "Bad capture (WINBIO_E_BAD_CAPTURE)",
	StatusSessionBusy:              "Session busy (WINBIO_E_SESSION_BUSY)",
	StatusSessionHandleClosed:      "Session handle closed (WINBIO_E_SESSION_HANDLE_CLOSED)",
	StatusDatabaseFull:             "Database full (WINBIO_E_DATABASE_FULL)",
	StatusDatabaseLocked:           "Database locked (WINBIO_E_DATABASE_LOCKED)",
	StatusNotEnrolled:              "Not enrolled",
	StatusDuplicateEnrollment:      "Duplicate enrollment (WINBIO_E_DUPLICATE_ENROLLMENT)",
	StatusNoSuchRecord:             "Database has no such record (WINBIO_E_DATABASE_NO_SUCH_RECORD)",
	StatusDeviceBusy:               "Sensor unavailable (WINBIO_E_DEVICE_BUSY)",
	StatusNoPrebootIdentity:        "No preboot identity (WINBIO_E_NO_PREBOOT_IDENTITY)",
	StatusDataCollectionInProgress: "Data collection in progress",
}

// Message returns a human-readable description of the status.
func (s Status) Message() string {
	if msg, ok := statusMessages[s]; ok {
		return msg
	}
	return "Unknown HRESULT"
}

// Succeeded reports whether the status is in the HRESULT success range. Both
// StatusOK and StatusMoreData succeed.
func (s Status) Succeeded() bool {
	return s&0x80000000 == 0
}

func (s Status) String() string {
	return fmt.Sprintf("%s (0x%08X)", s.Message(), uint32(s))
}

// MissingRecord reports whether the status means the addressed template does
// not exist. The subsystem is not guaranteed to keep StatusNotEnrolled and
// StatusNoSuchRecord apart, so delete and lookup paths treat both alike.
func (s Status) MissingRecord() bool {
	return s == StatusNoSuchRecord || s == StatusNotEnrolled
}

// StatusError reports a failed subsystem call.
type StatusError struct {
	Op     string
	Status Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Status)
}

// Is matches another *StatusError carrying the same status regardless of Op.
func (e *StatusError) Is(target error) bool {
	var other *StatusError
	if errors.As(target, &other) {
		return other.Status == e.Status
	}
	return false
}

// NewStatusError returns nil when status succeeded, otherwise a *StatusError.
func NewStatusError(op string, status Status) error {
	if status.Succeeded() {
		return nil
	}
	return &StatusError{Op: op, Status: status}
}

// StatusOf extracts the subsystem status carried by err. It returns StatusOK
// and false when err does not wrap a *StatusError.
func StatusOf(err error) (Status, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status, true
	}
	return StatusOK, false
}

// HasStatus reports whether err wraps a *StatusError with the given status.
func HasStatus(err error, status Status) bool {
	got, ok := StatusOf(err)
	return ok && got == status
}
