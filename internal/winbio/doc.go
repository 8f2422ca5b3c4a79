// Package winbio is the boundary to the platform biometric subsystem.
//
// It defines the raw status domain returned by the subsystem (a closed set of
// HRESULT codes, preserved numerically for diagnostics), the records returned
// by unit and database enumeration, identities, finger positions and
// rejection details, and the Gateway interface through which every blocking
// subsystem call is made. On Windows the gateway is bound to winbio.dll; on
// every other platform NewSystemGateway reports ErrUnsupportedPlatform.
//
// Callers must never collapse Status to a boolean: enrollment distinguishes
// StatusOK from StatusMoreData even though both are success codes.
package winbio
