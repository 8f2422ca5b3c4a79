// Package focus owns the hidden window whose message pump lets the process
// hold OS input focus while interactive sensor calls are outstanding.
//
// Open starts a dedicated goroutine locked to its OS thread, creates the
// window there, and hands the result back over a one-shot channel. The
// goroutine then pumps messages until Close posts a quit message and joins it.
package focus
