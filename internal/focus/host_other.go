//go:build !windows

package focus

// NewSystemHost returns nil; focus windows exist only on Windows.
func NewSystemHost() Host { return nil }
