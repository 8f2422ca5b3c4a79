package winbio

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// SessionHandle identifies an open subsystem session. Zero is never a valid
// handle.
type SessionHandle uint32

// Valid reports whether h refers to a session that was opened.
func (h SessionHandle) Valid() bool { return h != 0 }

// UnitID identifies a biometric unit. Zero is never a valid unit.
type UnitID uint32

// SessionFlags select the session mode passed to OpenSession.
type SessionFlags uint32

const (
	FlagDefault SessionFlags = 0x00000000
	FlagRaw     SessionFlags = 0x00000001
)

const (
	typeFingerprint uint32 = 0x00000008
	poolSystem      uint32 = 1
)

// FingerPosition is the biometric sub-factor of a fingerprint sample.
// Positions 1-10 follow ANSI 381; 0 and 0xFF are reserved.
type FingerPosition uint8

const (
	FingerUnknown FingerPosition = 0x00
	FingerAny     FingerPosition = 0xFF
)

var fingerNames = [...]string{
	1:  "Right Thumb",
	2:  "Right Index",
	3:  "Right Middle",
	4:  "Right Ring",
	5:  "Right Little",
	6:  "Left Thumb",
	7:  "Left Index",
	8:  "Left Middle",
	9:  "Left Ring",
	10: "Left Little",
}

// Valid reports whether f is one of the ten enrollable positions.
func (f FingerPosition) Valid() bool {
	return f >= 1 && f <= 10
}

// Name returns a stable label for the position. Match-on-chip sensors may
// report vendor-specific values outside the ANSI range.
func (f FingerPosition) Name() string {
	switch {
	case f.Valid():
		return fingerNames[f]
	case f == FingerAny:
		return "Any Finger"
	case f == FingerUnknown:
		return "Unknown"
	default:
		return fmt.Sprintf("Vendor-specific (0x%02X)", uint8(f))
	}
}

func (f FingerPosition) String() string { return f.Name() }

// ParseFinger validates a user-supplied finger number.
func ParseFinger(n int) (FingerPosition, error) {
	if n < 1 || n > 10 {
		return FingerUnknown, fmt.Errorf("finger must be 1-10, got %d", n)
	}
	return FingerPosition(n), nil
}

// RejectDetail is the fine-grained reason a single sample was unusable.
type RejectDetail uint32

var rejectReasons = [...]string{
	1:  "Too high",
	2:  "Too low",
	3:  "Too left",
	4:  "Too right",
	5:  "Too fast",
	6:  "Too slow",
	7:  "Poor quality",
	8:  "Too skewed",
	9:  "Too short",
	10: "Merge failure",
}

// Reason returns a human-readable rejection reason.
func (r RejectDetail) Reason() string {
	if r >= 1 && int(r) < len(rejectReasons) {
		return rejectReasons[r]
	}
	return "Unknown rejection reason"
}

// IdentityType tags the payload of an Identity.
type IdentityType uint32

const (
	IdentityNull     IdentityType = 0
	IdentityWildcard IdentityType = 1
	IdentityGUID     IdentityType = 2
	IdentitySID      IdentityType = 3
)

// Identity is an opaque user identity returned by identify, verify and
// enrollment commit.
type Identity struct {
	Type  IdentityType
	Value []byte
}

// String renders the identity for display.
func (id Identity) String() string {
	switch id.Type {
	case IdentitySID:
		return "SID " + spacedHex(id.Value)
	case IdentityGUID:
		if len(id.Value) == 16 {
			return "GUID " + guidFromBytes(id.Value).String()
		}
		return "GUID " + spacedHex(id.Value)
	case IdentityWildcard:
		return "wildcard"
	case IdentityNull:
		return "null"
	default:
		return fmt.Sprintf("type %d", uint32(id.Type))
	}
}

func spacedHex(b []byte) string {
	parts := make([]string, len(b))
	for i := range b {
		parts[i] = strings.ToUpper(hex.EncodeToString(b[i : i+1]))
	}
	return strings.Join(parts, " ")
}

// Capabilities is the WINBIO_CAPABILITIES bit mask of a unit.
type Capabilities uint32

var capabilityNames = []string{
	"Sensor", "Matching", "Database", "Processing",
	"Encryption", "Navigation", "Indicator", "VirtualSensor",
}

func (c Capabilities) String() string {
	var parts []string
	for i, name := range capabilityNames {
		if c&(1<<i) != 0 {
			parts = append(parts, name)
		}
	}
	if len(parts) == 0 {
		return "None"
	}
	return strings.Join(parts, " | ")
}

// SensorSubtype is the physical sensor kind.
type SensorSubtype uint32

func (s SensorSubtype) String() string {
	switch s {
	case 0:
		return "Unknown"
	case 1:
		return "Swipe"
	case 2:
		return "Touch"
	default:
		return "Other"
	}
}

// PoolType is the sensor pool a unit belongs to.
type PoolType uint32

func (p PoolType) String() string {
	switch p {
	case 1:
		return "System"
	case 2:
		return "Private"
	default:
		return fmt.Sprintf("Unknown (%d)", uint32(p))
	}
}

// StorageAttributes is the attribute mask of a storage database.
type StorageAttributes uint32

func (a StorageAttributes) String() string {
	var parts []string
	if a&0x01 != 0 {
		parts = append(parts, "OWNED")
	}
	if a&0x02 != 0 {
		parts = append(parts, "REMOTE")
	}
	if len(parts) == 0 {
		return fmt.Sprintf("0x%08X", uint32(a))
	}
	return fmt.Sprintf("%s (0x%08X)", strings.Join(parts, " | "), uint32(a))
}

// FirmwareVersion of a unit.
type FirmwareVersion struct {
	Major uint32
	Minor uint32
}

func (v FirmwareVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// UnitSchema describes one enumerated biometric unit.
type UnitSchema struct {
	UnitID           UnitID
	Pool             PoolType
	BiometricFactor  uint32
	SensorSubtype    SensorSubtype
	Capabilities     Capabilities
	DeviceInstanceID string
	Description      string
	Manufacturer     string
	Model            string
	SerialNumber     string
	Firmware         FirmwareVersion
}

// StorageSchema describes one registered storage database.
type StorageSchema struct {
	BiometricFactor  uint32
	DatabaseID       GUID
	DataFormat       GUID
	Attributes       StorageAttributes
	FilePath         string
	ConnectionString string
}

// IdentifyResult is returned by Identify. Reject is populated for no-match
// and bad-capture failures as well.
type IdentifyResult struct {
	Unit     UnitID
	Identity Identity
	Finger   FingerPosition
	Reject   RejectDetail
}

// VerifyResult is returned by Verify.
type VerifyResult struct {
	Unit   UnitID
	Match  bool
	Reject RejectDetail
}

// DataBlock locates one block inside a captured BIR.
type DataBlock struct {
	Offset uint32
	Size   uint32
}

// Sample summarizes a raw captured biometric information record.
type Sample struct {
	Unit      UnitID
	Size      int
	Reject    RejectDetail
	Header    DataBlock
	Standard  DataBlock
	Vendor    DataBlock
	Signature DataBlock
}

// CredentialState reports whether a credential is linked to an identity.
type CredentialState uint32

const (
	CredentialNotSet CredentialState = 1
	CredentialSet    CredentialState = 2
)

func (c CredentialState) String() string {
	switch c {
	case CredentialNotSet:
		return "not set"
	case CredentialSet:
		return "set"
	default:
		return fmt.Sprintf("unknown (%d)", uint32(c))
	}
}
