// Package hardware lists Plug and Play biometric devices and recent
// biometric service events by running PowerShell.
//
// PowerShell's ConvertTo-Json emits a bare object when the pipeline holds a
// single item and an array otherwise; both shapes are accepted. Output may
// arrive as UTF-16 with a byte order mark depending on the host console, so
// it is decoded before parsing.
package hardware
