// Package config loads, normalizes, and validates winfp configuration data.
//
// It supplies defaults for the biometric service name, database locations,
// polling cadence, and enrollment limits, expands user paths (including tilde
// shortcuts), reads TOML files, and applies WINFP_* environment overrides.
//
// Always obtain settings through this package so commands receive sanitized
// paths, canonical log formats, and clear validation errors.
package config
