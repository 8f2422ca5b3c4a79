// Package deps reports whether external binaries used by diagnostics are
// installed.
package deps
