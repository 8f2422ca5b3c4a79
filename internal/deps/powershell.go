package deps

import "strings"

// powerShellFallback is tried when the configured Windows PowerShell binary
// is missing, for hosts that only ship PowerShell 7.
const powerShellFallback = "pwsh"

// CheckPowerShell resolves the PowerShell binary used for device and event
// log queries. The configured command is tried first, then pwsh.
func CheckPowerShell(configured string) Status {
	configured = strings.TrimSpace(configured)
	candidates := []string{configured}
	if configured != "" && !strings.EqualFold(configured, powerShellFallback) {
		candidates = append(candidates, powerShellFallback)
	}
	return Resolve("PowerShell", "Required for PnP device and event log diagnostics", candidates...)
}
