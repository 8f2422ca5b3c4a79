package maintenance

import "fmt"

// Op names the sub-operation a TargetError belongs to.
type Op string

const (
	OpFile     Op = "delete file"
	OpRegistry Op = "delete registry entry"
	OpOrphan   Op = "delete orphan file"
	OpBackup   Op = "backup file"
)

// TargetError is the failure of one sub-operation on one target.
type TargetError struct {
	// Index is the database number, or 0 for orphan files.
	Index      int
	DatabaseID string
	Path       string
	Op         Op
	Err        error
}

func (e TargetError) Error() string {
	switch {
	case e.Index > 0:
		return fmt.Sprintf("database %d %s: %s: %v", e.Index, e.DatabaseID, e.Op, e.Err)
	default:
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
}

func (e TargetError) Unwrap() error { return e.Err }

// Report summarizes a maintenance run.
type Report struct {
	Plan Plan
	// Noop is set when there was nothing to process; the service was not
	// touched.
	Noop bool

	TargetsProcessed       int
	FilesDeleted           int
	FilesMissing           int
	RegistryEntriesDeleted int
	RegistryMissing        int
	OrphansDeleted         int
	Backups                []string

	ServiceWasRunning  bool
	ServiceRestarted   bool
	ServiceLeftStopped bool

	Errors []TargetError
}

func (r *Report) addError(err TargetError) {
	r.Errors = append(r.Errors, err)
}

// Failed reports whether any sub-operation failed.
func (r Report) Failed() bool {
	return len(r.Errors) > 0
}
