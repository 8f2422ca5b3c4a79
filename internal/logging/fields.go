package logging

import (
	"fmt"
	"log/slog"
)

// Standard attribute keys shared by every component.
const (
	FieldComponent  = "component"
	FieldEventType  = "event_type"
	FieldErrorHint  = "error_hint"
	FieldImpact     = "impact"
	FieldSession    = "session"
	FieldUnitID     = "unit_id"
	FieldFinger     = "finger"
	FieldDatabaseID = "database_id"
	FieldPath       = "path"
	FieldStatus     = "status"
	FieldService    = "service"
)

// Status renders a numeric subsystem status as a fixed-width hex attribute.
func Status(code uint32) Attr {
	return slog.String(FieldStatus, fmt.Sprintf("0x%08X", code))
}
