package maintenance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"winfp/internal/logging"
	"winfp/internal/registry"
	"winfp/internal/svcctl"
	"winfp/internal/winbio"
)

var (
	ErrNotElevated      = errors.New("administrator privileges are required")
	ErrNothingRequested = errors.New("nothing to delete: request file and/or registry deletion")
	ErrTargetOutOfRange = errors.New("database number out of range")
	// ErrPartialFailure is joined with the individual failures when at least
	// one target could not be fully processed.
	ErrPartialFailure = errors.New("some operations failed")
)

// DatabaseSource enumerates registered databases.
type DatabaseSource interface {
	EnumDatabases() ([]winbio.StorageSchema, error)
}

// RegistryStore removes service database keys. It returns an error matching
// registry.ErrNotFound when the key is already gone.
type RegistryStore interface {
	DeleteDatabase(id winbio.GUID) error
}

// Deps are the collaborators of an Orchestrator.
type Deps struct {
	Databases DatabaseSource
	Services  svcctl.Opener
	Registry  RegistryStore
	// Files defaults to OSFiles.
	Files    Files
	Elevated func() bool
	Logger   *slog.Logger
}

// Options configure an Orchestrator.
type Options struct {
	ServiceName string
	DatabaseDir string
	Extension   string
	// BackupDir, when set, receives a verified copy of every file before it
	// is deleted.
	BackupDir string
	Poller    svcctl.Poller
}

// Target selects the registered databases to process.
type Target struct {
	index int
	all   bool
}

// One selects the database with the given 1-based enumeration index. Indexes
// outside the enumerated range fail with ErrTargetOutOfRange.
func One(index int) Target { return Target{index: index} }

// All selects every registered database and, for file deletion, orphans.
func All() Target { return Target{all: true} }

// IsAll reports whether t selects every database.
func (t Target) IsAll() bool { return t.all }

// Index returns the 1-based index of a single target, or 0 for All.
func (t Target) Index() int { return t.index }

// Request describes one maintenance run.
type Request struct {
	Target         Target
	DeleteFile     bool
	DeleteRegistry bool
}

// DatabaseTarget is one registered database selected for processing.
type DatabaseTarget struct {
	Index    int
	ID       winbio.GUID
	FilePath string
}

// Plan is what a request would touch.
type Plan struct {
	Targets []DatabaseTarget
	Orphans []string
}

// Empty reports whether the plan touches nothing.
func (p Plan) Empty() bool {
	return len(p.Targets) == 0 && len(p.Orphans) == 0
}

// Orchestrator runs maintenance requests.
type Orchestrator struct {
	deps   Deps
	opts   Options
	logger *slog.Logger
}

// New constructs an Orchestrator.
func New(deps Deps, opts Options) *Orchestrator {
	if deps.Files == nil {
		deps.Files = OSFiles()
	}
	if opts.Poller.Attempts == 0 {
		opts.Poller = svcctl.DefaultPoller()
	}
	return &Orchestrator{
		deps:   deps,
		opts:   opts,
		logger: logging.NewComponentLogger(deps.Logger, "maintenance"),
	}
}

// Plan enumerates the targets and orphans of req without changing anything.
func (o *Orchestrator) Plan(req Request) (Plan, error) {
	schemas, err := o.deps.Databases.EnumDatabases()
	if err != nil {
		return Plan{}, fmt.Errorf("enumerate databases: %w", err)
	}

	var plan Plan
	if req.Target.IsAll() {
		for i, s := range schemas {
			plan.Targets = append(plan.Targets, DatabaseTarget{Index: i + 1, ID: s.DatabaseID, FilePath: s.FilePath})
		}
	} else {
		idx := req.Target.Index()
		if idx < 1 || idx > len(schemas) {
			return Plan{}, fmt.Errorf("%w: %d (valid: 1-%d)", ErrTargetOutOfRange, idx, len(schemas))
		}
		s := schemas[idx-1]
		plan.Targets = []DatabaseTarget{{Index: idx, ID: s.DatabaseID, FilePath: s.FilePath}}
	}

	if req.Target.IsAll() && req.DeleteFile {
		registered := make([]string, 0, len(schemas))
		for _, s := range schemas {
			registered = append(registered, s.FilePath)
		}
		orphans, err := FindOrphans(o.deps.Files, o.opts.DatabaseDir, o.opts.Extension, registered)
		if err != nil {
			logging.WarnWithContext(o.logger, "orphan scan failed", "orphan_scan_failed",
				logging.String(logging.FieldPath, o.opts.DatabaseDir),
				logging.Error(err),
				logging.String(logging.FieldImpact, "unregistered database files are not cleaned up"),
			)
		}
		plan.Orphans = orphans
	}
	return plan, nil
}

// Run executes req. The returned Report is populated as far as the run got,
// also when an error is returned.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Report, error) {
	var report Report
	if !req.DeleteFile && !req.DeleteRegistry {
		return report, ErrNothingRequested
	}
	if o.deps.Elevated != nil && !o.deps.Elevated() {
		return report, ErrNotElevated
	}

	plan, err := o.Plan(req)
	if err != nil {
		return report, err
	}
	report.Plan = plan
	if plan.Empty() {
		report.Noop = true
		o.logger.Info("no databases or orphan files to process")
		return report, nil
	}

	svc, err := o.deps.Services.Open(o.opts.ServiceName, svcctl.AccessControl)
	if err != nil {
		return report, fmt.Errorf("open service %s: %w", o.opts.ServiceName, err)
	}
	defer svc.Close()

	serviceLog := o.logger.With(logging.String(logging.FieldService, o.opts.ServiceName))
	wasRunning, err := o.opts.Poller.Stop(ctx, svc)
	report.ServiceWasRunning = wasRunning
	if err != nil {
		return report, fmt.Errorf("stop %s before maintenance: %w", o.opts.ServiceName, err)
	}
	if wasRunning {
		serviceLog.Info("service stopped")
	} else {
		serviceLog.Info("service was already stopped")
	}

	for _, target := range plan.Targets {
		o.processTarget(req, target, &report)
	}
	for _, orphan := range plan.Orphans {
		o.processOrphan(orphan, &report)
	}

	var restartErr error
	if wasRunning {
		// Restart even when the caller's context is done; leaving the
		// service down is worse than a stale database.
		if err := o.opts.Poller.Start(context.WithoutCancel(ctx), svc); err != nil {
			restartErr = fmt.Errorf("restart %s: %w", o.opts.ServiceName, err)
			logging.ErrorWithContext(serviceLog, "service restart failed", "service_restart_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "start the service manually with 'winfp service start'"),
			)
		} else {
			report.ServiceRestarted = true
			serviceLog.Info("service restarted")
		}
	} else {
		report.ServiceLeftStopped = true
	}

	return report, o.aggregate(report, restartErr)
}

func (o *Orchestrator) aggregate(report Report, restartErr error) error {
	var errs []error
	if restartErr != nil {
		errs = append(errs, restartErr)
	}
	if len(report.Errors) > 0 {
		errs = append(errs, fmt.Errorf("%w: %d failed", ErrPartialFailure, len(report.Errors)))
		for _, te := range report.Errors {
			errs = append(errs, te)
		}
	}
	return errors.Join(errs...)
}

func (o *Orchestrator) processTarget(req Request, target DatabaseTarget, report *Report) {
	logger := o.logger.With(
		logging.Int("index", target.Index),
		logging.String(logging.FieldDatabaseID, target.ID.String()),
	)
	report.TargetsProcessed++

	if req.DeleteFile {
		switch o.deleteFile(logger, target.Index, target.ID.String(), target.FilePath, OpFile, report) {
		case fileDeleted:
			report.FilesDeleted++
		case fileMissing:
			report.FilesMissing++
		}
	}

	if req.DeleteRegistry {
		err := o.deps.Registry.DeleteDatabase(target.ID)
		switch {
		case err == nil:
			report.RegistryEntriesDeleted++
			logger.Info("registry entry deleted")
		case errors.Is(err, registry.ErrNotFound):
			report.RegistryMissing++
			logger.Info("registry entry already absent")
		default:
			report.addError(TargetError{Index: target.Index, DatabaseID: target.ID.String(), Op: OpRegistry, Err: err})
			logging.WarnWithContext(logger, "registry entry deletion failed", "registry_delete_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "database stays registered with the biometric service"),
			)
		}
	}
}

func (o *Orchestrator) processOrphan(path string, report *Report) {
	logger := o.logger.With(logging.Bool("orphan", true))
	if o.deleteFile(logger, 0, "", path, OpOrphan, report) == fileDeleted {
		report.OrphansDeleted++
	}
}

type fileResult int

const (
	fileFailed fileResult = iota
	fileDeleted
	fileMissing
)

// deleteFile removes one database file, backing it up first when configured.
// A missing file is not a failure. A failed backup keeps the file.
func (o *Orchestrator) deleteFile(logger *slog.Logger, index int, id, path string, op Op, report *Report) fileResult {
	if path == "" {
		logger.Info("database has no file on disk")
		return fileMissing
	}
	logger = logger.With(logging.String(logging.FieldPath, path))

	exists, err := o.deps.Files.Exists(path)
	if err != nil {
		report.addError(TargetError{Index: index, DatabaseID: id, Path: path, Op: op, Err: err})
		logging.WarnWithContext(logger, "database file could not be checked", "file_stat_failed", logging.Error(err))
		return fileFailed
	}
	if !exists {
		logger.Info("database file already absent")
		return fileMissing
	}

	if o.opts.BackupDir != "" {
		backup, err := o.deps.Files.Backup(path, o.opts.BackupDir)
		if err != nil {
			report.addError(TargetError{Index: index, DatabaseID: id, Path: path, Op: OpBackup, Err: err})
			logging.WarnWithContext(logger, "backup failed; file kept", "backup_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "database file was not deleted"),
				logging.String(logging.FieldErrorHint, "check storage.backup_dir permissions and free space"),
			)
			return fileFailed
		}
		report.Backups = append(report.Backups, backup)
		logger.Info("database file backed up", logging.String("backup", backup))
	}

	if err := o.deps.Files.Remove(path); err != nil {
		report.addError(TargetError{Index: index, DatabaseID: id, Path: path, Op: op, Err: err})
		logging.WarnWithContext(logger, "database file deletion failed", "file_delete_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "database file remains on disk"),
		)
		return fileFailed
	}
	logger.Info("database file deleted")
	return fileDeleted
}
