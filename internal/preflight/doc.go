// Package preflight provides the diagnostic checks behind "winfp diagnose".
//
// Checks are grouped into levels, each building on the previous one:
//   - Hardware: PnP biometric devices and their status.
//   - Service: the biometric service run state and start type.
//   - Sensor: enumerated fingerprint units and a session open/close test.
//
// When no unit enumerates, the sensor level adds follow-up results from the
// biometric event log and the sensor database configuration, which usually
// name the root cause. Checks never modify the system.
package preflight
