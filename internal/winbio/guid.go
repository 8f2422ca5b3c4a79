package winbio

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// GUID has the in-memory layout of a Windows GUID.
type GUID struct {
	Data1 uint32
	Data2 uint16
	Data3 uint16
	Data4 [8]byte
}

// String formats the GUID in the canonical braced uppercase form used for
// registry key names: {XXXXXXXX-XXXX-XXXX-XXXX-XXXXXXXXXXXX}.
func (g GUID) String() string {
	return "{" + strings.ToUpper(g.UUID().String()) + "}"
}

// UUID converts to the RFC 4122 byte order used by github.com/google/uuid.
func (g GUID) UUID() uuid.UUID {
	var u uuid.UUID
	binary.BigEndian.PutUint32(u[0:4], g.Data1)
	binary.BigEndian.PutUint16(u[4:6], g.Data2)
	binary.BigEndian.PutUint16(u[6:8], g.Data3)
	copy(u[8:], g.Data4[:])
	return u
}

// IsZero reports whether every field is zero.
func (g GUID) IsZero() bool {
	return g == GUID{}
}

// GUIDFromUUID converts an RFC 4122 UUID to the Windows layout.
func GUIDFromUUID(u uuid.UUID) GUID {
	g := GUID{
		Data1: binary.BigEndian.Uint32(u[0:4]),
		Data2: binary.BigEndian.Uint16(u[4:6]),
		Data3: binary.BigEndian.Uint16(u[6:8]),
	}
	copy(g.Data4[:], u[8:])
	return g
}

// ParseGUID accepts a GUID with or without braces, in any letter case.
func ParseGUID(s string) (GUID, error) {
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "{") != strings.HasSuffix(trimmed, "}") {
		return GUID{}, fmt.Errorf("parse guid %q: unbalanced braces", s)
	}
	trimmed = strings.TrimSuffix(strings.TrimPrefix(trimmed, "{"), "}")
	if len(trimmed) != 36 {
		return GUID{}, fmt.Errorf("parse guid %q: expected 36 characters", s)
	}
	u, err := uuid.Parse(trimmed)
	if err != nil {
		return GUID{}, fmt.Errorf("parse guid %q: %w", s, err)
	}
	return GUIDFromUUID(u), nil
}

// guidFromBytes decodes the little-endian in-memory GUID representation.
func guidFromBytes(b []byte) GUID {
	g := GUID{
		Data1: binary.LittleEndian.Uint32(b[0:4]),
		Data2: binary.LittleEndian.Uint16(b[4:6]),
		Data3: binary.LittleEndian.Uint16(b[6:8]),
	}
	copy(g.Data4[:], b[8:16])
	return g
}
