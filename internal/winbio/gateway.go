package winbio

import "errors"

var (
	// ErrUnsupportedPlatform is returned when the biometric subsystem is not
	// available on the running operating system.
	ErrUnsupportedPlatform = errors.New("biometric subsystem requires Windows")
	// ErrNoSensor is returned when enumeration finds no fingerprint unit.
	ErrNoSensor = errors.New("no fingerprint biometric units found")
)

// Gateway exposes the blocking calls of the biometric subsystem. Interactive
// calls (Identify, Verify, EnrollCapture, CaptureSample) return only after a
// touch or a subsystem error; they cannot be canceled.
//
// Failures are reported as *StatusError. EnrollCapture is the exception: it
// returns the raw status because success codes carry meaning there.
type Gateway interface {
	EnumUnits() ([]UnitSchema, error)
	EnumDatabases() ([]StorageSchema, error)

	OpenSession(flags SessionFlags) (SessionHandle, error)
	CloseSession(h SessionHandle) error
	AcquireFocus() error
	ReleaseFocus() error

	Identify(h SessionHandle) (IdentifyResult, error)
	Verify(h SessionHandle, id Identity, finger FingerPosition) (VerifyResult, error)
	EnumEnrollments(h SessionHandle, unit UnitID, id Identity) ([]FingerPosition, error)
	DeleteTemplate(h SessionHandle, unit UnitID, id Identity, finger FingerPosition) error
	CaptureSample(h SessionHandle) (Sample, error)
	CredentialState(id Identity) (CredentialState, error)

	EnrollBegin(h SessionHandle, finger FingerPosition, unit UnitID) error
	EnrollCapture(h SessionHandle) (Status, RejectDetail)
	EnrollCommit(h SessionHandle) (Identity, bool, error)
	EnrollDiscard(h SessionHandle) error
}

// UnitEnumerator is the subset of Gateway needed to resolve a sensor.
type UnitEnumerator interface {
	EnumUnits() ([]UnitSchema, error)
}

// FirstUnit returns the first enumerated fingerprint unit. It works when no
// finger is enrolled yet, unlike resolving the unit through Identify.
func FirstUnit(e UnitEnumerator) (UnitSchema, error) {
	units, err := e.EnumUnits()
	if err != nil {
		return UnitSchema{}, err
	}
	if len(units) == 0 {
		return UnitSchema{}, ErrNoSensor
	}
	return units[0], nil
}
