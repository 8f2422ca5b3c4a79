//go:build windows && (amd64 || arm64)

package winbio

import (
	"encoding/binary"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	maxStringLength = 256
	maxSIDBytes     = 68

	purposeNoPurposeAvailable = 0x00
	dataFlagRaw               = 0x20
	credentialTypePassword    = 1
)

var (
	modwinbio = windows.NewLazySystemDLL("winbio.dll")

	procEnumBiometricUnits = modwinbio.NewProc("WinBioEnumBiometricUnits")
	procEnumDatabases      = modwinbio.NewProc("WinBioEnumDatabases")
	procOpenSession        = modwinbio.NewProc("WinBioOpenSession")
	procCloseSession       = modwinbio.NewProc("WinBioCloseSession")
	procAcquireFocus       = modwinbio.NewProc("WinBioAcquireFocus")
	procReleaseFocus       = modwinbio.NewProc("WinBioReleaseFocus")
	procIdentify           = modwinbio.NewProc("WinBioIdentify")
	procVerify             = modwinbio.NewProc("WinBioVerify")
	procEnumEnrollments    = modwinbio.NewProc("WinBioEnumEnrollments")
	procDeleteTemplate     = modwinbio.NewProc("WinBioDeleteTemplate")
	procCaptureSample      = modwinbio.NewProc("WinBioCaptureSample")
	procGetCredentialState = modwinbio.NewProc("WinBioGetCredentialState")
	procEnrollBegin        = modwinbio.NewProc("WinBioEnrollBegin")
	procEnrollCapture      = modwinbio.NewProc("WinBioEnrollCapture")
	procEnrollCommit       = modwinbio.NewProc("WinBioEnrollCommit")
	procEnrollDiscard      = modwinbio.NewProc("WinBioEnrollDiscard")
	procFree               = modwinbio.NewProc("WinBioFree")
)

type rawUnitSchema struct {
	UnitID           uint32
	PoolType         uint32
	BiometricFactor  uint32
	SensorSubType    uint32
	Capabilities     uint32
	DeviceInstanceID [maxStringLength]uint16
	Description      [maxStringLength]uint16
	Manufacturer     [maxStringLength]uint16
	Model            [maxStringLength]uint16
	SerialNumber     [maxStringLength]uint16
	FirmwareMajor    uint32
	FirmwareMinor    uint32
}

type rawStorageSchema struct {
	BiometricFactor  uint32
	DatabaseID       GUID
	DataFormat       GUID
	Attributes       uint32
	FilePath         [maxStringLength]uint16
	ConnectionString [maxStringLength]uint16
}

// rawIdentity mirrors WINBIO_IDENTITY: a type tag followed by a union whose
// largest member is the account SID {Size uint32, Data [68]byte}.
type rawIdentity struct {
	Type  uint32
	Value [4 + maxSIDBytes]byte
}

type rawBIR struct {
	Header    DataBlock
	Standard  DataBlock
	Vendor    DataBlock
	Signature DataBlock
}

type systemGateway struct{}

// NewSystemGateway binds winbio.dll. The DLL is loaded on first use; a
// missing DLL is reported here rather than on the first call.
func NewSystemGateway() (Gateway, error) {
	if err := modwinbio.Load(); err != nil {
		return nil, err
	}
	return systemGateway{}, nil
}

func call(proc *windows.LazyProc, args ...uintptr) Status {
	r1, _, _ := syscall.SyscallN(proc.Addr(), args...)
	return Status(uint32(r1))
}

func free(p unsafe.Pointer) {
	if p != nil {
		syscall.SyscallN(procFree.Addr(), uintptr(p))
	}
}

func (systemGateway) EnumUnits() ([]UnitSchema, error) {
	var array *rawUnitSchema
	var count uintptr
	status := call(procEnumBiometricUnits,
		uintptr(typeFingerprint),
		uintptr(unsafe.Pointer(&array)),
		uintptr(unsafe.Pointer(&count)),
	)
	defer free(unsafe.Pointer(array))
	if err := NewStatusError("WinBioEnumBiometricUnits", status); err != nil {
		return nil, err
	}
	if array == nil || count == 0 {
		return nil, nil
	}
	raw := unsafe.Slice(array, count)
	units := make([]UnitSchema, 0, len(raw))
	for i := range raw {
		u := &raw[i]
		units = append(units, UnitSchema{
			UnitID:           UnitID(u.UnitID),
			Pool:             PoolType(u.PoolType),
			BiometricFactor:  u.BiometricFactor,
			SensorSubtype:    SensorSubtype(u.SensorSubType),
			Capabilities:     Capabilities(u.Capabilities),
			DeviceInstanceID: windows.UTF16ToString(u.DeviceInstanceID[:]),
			Description:      windows.UTF16ToString(u.Description[:]),
			Manufacturer:     windows.UTF16ToString(u.Manufacturer[:]),
			Model:            windows.UTF16ToString(u.Model[:]),
			SerialNumber:     windows.UTF16ToString(u.SerialNumber[:]),
			Firmware:         FirmwareVersion{Major: u.FirmwareMajor, Minor: u.FirmwareMinor},
		})
	}
	return units, nil
}

func (systemGateway) EnumDatabases() ([]StorageSchema, error) {
	var array *rawStorageSchema
	var count uintptr
	status := call(procEnumDatabases,
		uintptr(typeFingerprint),
		uintptr(unsafe.Pointer(&array)),
		uintptr(unsafe.Pointer(&count)),
	)
	defer free(unsafe.Pointer(array))
	if err := NewStatusError("WinBioEnumDatabases", status); err != nil {
		return nil, err
	}
	if array == nil || count == 0 {
		return nil, nil
	}
	raw := unsafe.Slice(array, count)
	dbs := make([]StorageSchema, 0, len(raw))
	for i := range raw {
		s := &raw[i]
		dbs = append(dbs, StorageSchema{
			BiometricFactor:  s.BiometricFactor,
			DatabaseID:       s.DatabaseID,
			DataFormat:       s.DataFormat,
			Attributes:       StorageAttributes(s.Attributes),
			FilePath:         windows.UTF16ToString(s.FilePath[:]),
			ConnectionString: windows.UTF16ToString(s.ConnectionString[:]),
		})
	}
	return dbs, nil
}

func (systemGateway) OpenSession(flags SessionFlags) (SessionHandle, error) {
	var handle uint32
	status := call(procOpenSession,
		uintptr(typeFingerprint),
		uintptr(poolSystem),
		uintptr(flags),
		0, 0, 0,
		uintptr(unsafe.Pointer(&handle)),
	)
	if err := NewStatusError("WinBioOpenSession", status); err != nil {
		return 0, err
	}
	return SessionHandle(handle), nil
}

func (systemGateway) CloseSession(h SessionHandle) error {
	return NewStatusError("WinBioCloseSession", call(procCloseSession, uintptr(h)))
}

func (systemGateway) AcquireFocus() error {
	return NewStatusError("WinBioAcquireFocus", call(procAcquireFocus))
}

func (systemGateway) ReleaseFocus() error {
	return NewStatusError("WinBioReleaseFocus", call(procReleaseFocus))
}

func (systemGateway) Identify(h SessionHandle) (IdentifyResult, error) {
	var unit uint32
	var identity rawIdentity
	var finger uint8
	var reject uint32
	status := call(procIdentify,
		uintptr(h),
		uintptr(unsafe.Pointer(&unit)),
		uintptr(unsafe.Pointer(&identity)),
		uintptr(unsafe.Pointer(&finger)),
		uintptr(unsafe.Pointer(&reject)),
	)
	result := IdentifyResult{
		Unit:   UnitID(unit),
		Finger: FingerPosition(finger),
		Reject: RejectDetail(reject),
	}
	if err := NewStatusError("WinBioIdentify", status); err != nil {
		return result, err
	}
	result.Identity = identity.decode()
	return result, nil
}

func (systemGateway) Verify(h SessionHandle, id Identity, finger FingerPosition) (VerifyResult, error) {
	raw := encodeIdentity(id)
	var unit uint32
	var match uint8
	var reject uint32
	status := call(procVerify,
		uintptr(h),
		uintptr(unsafe.Pointer(&raw)),
		uintptr(finger),
		uintptr(unsafe.Pointer(&unit)),
		uintptr(unsafe.Pointer(&match)),
		uintptr(unsafe.Pointer(&reject)),
	)
	result := VerifyResult{Unit: UnitID(unit), Match: match != 0, Reject: RejectDetail(reject)}
	return result, NewStatusError("WinBioVerify", status)
}

func (systemGateway) EnumEnrollments(h SessionHandle, unit UnitID, id Identity) ([]FingerPosition, error) {
	raw := encodeIdentity(id)
	var array *uint8
	var count uintptr
	status := call(procEnumEnrollments,
		uintptr(h),
		uintptr(unit),
		uintptr(unsafe.Pointer(&raw)),
		uintptr(unsafe.Pointer(&array)),
		uintptr(unsafe.Pointer(&count)),
	)
	defer free(unsafe.Pointer(array))
	if err := NewStatusError("WinBioEnumEnrollments", status); err != nil {
		return nil, err
	}
	if array == nil || count == 0 {
		return nil, nil
	}
	raw8 := unsafe.Slice(array, count)
	fingers := make([]FingerPosition, len(raw8))
	for i, v := range raw8 {
		fingers[i] = FingerPosition(v)
	}
	return fingers, nil
}

func (systemGateway) DeleteTemplate(h SessionHandle, unit UnitID, id Identity, finger FingerPosition) error {
	raw := encodeIdentity(id)
	status := call(procDeleteTemplate,
		uintptr(h),
		uintptr(unit),
		uintptr(unsafe.Pointer(&raw)),
		uintptr(finger),
	)
	return NewStatusError("WinBioDeleteTemplate", status)
}

func (systemGateway) CaptureSample(h SessionHandle) (Sample, error) {
	var unit uint32
	var bir *rawBIR
	var size uintptr
	var reject uint32
	status := call(procCaptureSample,
		uintptr(h),
		uintptr(purposeNoPurposeAvailable),
		uintptr(dataFlagRaw),
		uintptr(unsafe.Pointer(&unit)),
		uintptr(unsafe.Pointer(&bir)),
		uintptr(unsafe.Pointer(&size)),
		uintptr(unsafe.Pointer(&reject)),
	)
	defer free(unsafe.Pointer(bir))
	sample := Sample{Unit: UnitID(unit), Size: int(size), Reject: RejectDetail(reject)}
	if err := NewStatusError("WinBioCaptureSample", status); err != nil {
		return sample, err
	}
	if bir != nil {
		sample.Header = bir.Header
		sample.Standard = bir.Standard
		sample.Vendor = bir.Vendor
		sample.Signature = bir.Signature
	}
	return sample, nil
}

// CredentialState passes WINBIO_IDENTITY by value; the 64-bit calling
// conventions pass aggregates of this size by reference to a caller copy.
func (systemGateway) CredentialState(id Identity) (CredentialState, error) {
	raw := encodeIdentity(id)
	var state uint32
	status := call(procGetCredentialState,
		uintptr(unsafe.Pointer(&raw)),
		uintptr(credentialTypePassword),
		uintptr(unsafe.Pointer(&state)),
	)
	return CredentialState(state), NewStatusError("WinBioGetCredentialState", status)
}

func (systemGateway) EnrollBegin(h SessionHandle, finger FingerPosition, unit UnitID) error {
	return NewStatusError("WinBioEnrollBegin", call(procEnrollBegin, uintptr(h), uintptr(finger), uintptr(unit)))
}

func (systemGateway) EnrollCapture(h SessionHandle) (Status, RejectDetail) {
	var reject uint32
	status := call(procEnrollCapture, uintptr(h), uintptr(unsafe.Pointer(&reject)))
	return status, RejectDetail(reject)
}

func (systemGateway) EnrollCommit(h SessionHandle) (Identity, bool, error) {
	var identity rawIdentity
	var isNew uint8
	status := call(procEnrollCommit,
		uintptr(h),
		uintptr(unsafe.Pointer(&identity)),
		uintptr(unsafe.Pointer(&isNew)),
	)
	if err := NewStatusError("WinBioEnrollCommit", status); err != nil {
		return Identity{}, false, err
	}
	return identity.decode(), isNew != 0, nil
}

func (systemGateway) EnrollDiscard(h SessionHandle) error {
	return NewStatusError("WinBioEnrollDiscard", call(procEnrollDiscard, uintptr(h)))
}

func (r *rawIdentity) decode() Identity {
	id := Identity{Type: IdentityType(r.Type)}
	switch id.Type {
	case IdentitySID:
		size := int(binary.LittleEndian.Uint32(r.Value[0:4]))
		if size > maxSIDBytes {
			size = maxSIDBytes
		}
		id.Value = append([]byte(nil), r.Value[4:4+size]...)
	case IdentityGUID:
		id.Value = append([]byte(nil), r.Value[0:16]...)
	}
	return id
}

func encodeIdentity(id Identity) rawIdentity {
	raw := rawIdentity{Type: uint32(id.Type)}
	switch id.Type {
	case IdentitySID:
		n := copy(raw.Value[4:], id.Value)
		binary.LittleEndian.PutUint32(raw.Value[0:4], uint32(n))
	case IdentityGUID:
		copy(raw.Value[0:16], id.Value)
	}
	return raw
}
