// Package main hosts the winfp CLI entrypoint and command graph.
//
// winfp diagnoses and operates the Windows biometric (fingerprint)
// subsystem. The Cobra command tree covers:
//   - diagnostics (diagnose, check-hardware, check-driver, check-sensor),
//   - interactive sensor operations over a focused session (identify,
//     verify, list-fingerprints, delete, credential-state, capture, enroll),
//   - database and service maintenance (enum-databases, delete-database,
//     service, history),
//
// plus config init/validate and a logs command that tails winfp.log.
//
// Platform bindings are resolved through the platform struct in context.go so
// tests can run every command against fakes. Keep this package about
// presentation: behavior belongs in the internal packages.
package main
