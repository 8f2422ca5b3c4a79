// Package session provides Guard, the single owner of an open biometric
// session handle and, for interactive use, of the focus window that lets
// sensor calls return.
//
// Guard teardown always runs in the same order: close the session, release
// subsystem focus if it was acquired, post quit to the window pump, and join
// the pump goroutine.
package session
