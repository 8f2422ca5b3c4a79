// Package logging assembles structured slog loggers and attribute helpers used
// across winfp.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and defines the standard field keys (component, event_type,
// error_hint, impact, session, unit_id, finger, database_id). A no-op logger
// is provided for tests and wiring code that cannot fail.
package logging
