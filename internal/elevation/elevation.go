// Package elevation reports whether the process runs with administrative
// rights.
package elevation
