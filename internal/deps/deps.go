package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Status reports whether an external binary could be resolved on PATH.
// Command holds the resolved path when Available, otherwise the first
// candidate that was requested.
type Status struct {
	Name        string
	Command     string
	Description string
	Available   bool
	Detail      string
}

// Resolve looks up each candidate in order and reports the first one found.
// Blank candidates are skipped.
func Resolve(name, description string, candidates ...string) Status {
	status := Status{Name: name, Description: description}
	var requested string
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		if requested == "" {
			requested = candidate
		}
		if resolved, err := exec.LookPath(candidate); err == nil {
			status.Command = resolved
			status.Available = true
			return status
		}
	}
	status.Command = requested
	if requested == "" {
		status.Detail = "command not configured"
	} else {
		status.Detail = fmt.Sprintf("binary %q not found", requested)
	}
	return status
}
