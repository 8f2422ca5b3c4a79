// Package registry reads and removes the biometric service's database keys
// and the per-device WinBio configuration keys that link sensors to
// databases. All paths are relative to HKEY_LOCAL_MACHINE.
package registry
