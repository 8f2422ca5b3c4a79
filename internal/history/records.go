package history

import (
	"context"
	"fmt"

	"winfp/internal/enroll"
	"winfp/internal/maintenance"
)

type enrollmentDetail struct {
	Finger        int      `json:"finger"`
	FingerName    string   `json:"finger_name"`
	Unit          uint32   `json:"unit"`
	State         string   `json:"state"`
	Identity      string   `json:"identity,omitempty"`
	IsNewTemplate bool     `json:"is_new_template"`
	Samples       int      `json:"samples"`
	Accepted      int      `json:"accepted"`
	Rejects       []string `json:"rejects,omitempty"`
}

// RecordEnrollment journals a finished enrollment. runErr is the error
// returned by the enrollment, if any.
func (s *Store) RecordEnrollment(ctx context.Context, res enroll.Result, runErr error) (Entry, error) {
	detail := enrollmentDetail{
		Finger:        int(res.Finger),
		FingerName:    res.Finger.Name(),
		Unit:          uint32(res.Unit),
		State:         res.State.String(),
		IsNewTemplate: res.IsNewTemplate,
		Samples:       res.Samples,
		Accepted:      res.Accepted,
	}
	if res.Outcome == enroll.OutcomeCommitted {
		detail.Identity = res.Identity.String()
	}
	for _, r := range res.Rejects {
		detail.Rejects = append(detail.Rejects, r.Reason())
	}

	outcome := res.Outcome.String()
	if runErr != nil {
		outcome = "failed"
	}
	summary := fmt.Sprintf("%s on unit %d: %s after %d sample(s)", res.Finger.Name(), res.Unit, outcome, res.Samples)
	return s.insert(ctx, record{
		kind:    KindEnrollment,
		outcome: outcome,
		summary: summary,
		failed:  res.Outcome == enroll.OutcomeTooManyAttempts,
		err:     runErr,
		detail:  detail,
	})
}

type maintenanceDetail struct {
	Target                 string   `json:"target"`
	DeleteFile             bool     `json:"delete_file"`
	DeleteRegistry         bool     `json:"delete_registry"`
	Databases              []string `json:"databases,omitempty"`
	Orphans                []string `json:"orphans,omitempty"`
	TargetsProcessed       int      `json:"targets_processed"`
	FilesDeleted           int      `json:"files_deleted"`
	FilesMissing           int      `json:"files_missing"`
	RegistryEntriesDeleted int      `json:"registry_entries_deleted"`
	RegistryMissing        int      `json:"registry_missing"`
	OrphansDeleted         int      `json:"orphans_deleted"`
	Backups                []string `json:"backups,omitempty"`
	ServiceRestarted       bool     `json:"service_restarted"`
	ServiceLeftStopped     bool     `json:"service_left_stopped"`
	Failures               []string `json:"failures,omitempty"`
}

// RecordMaintenance journals a maintenance run.
func (s *Store) RecordMaintenance(ctx context.Context, req maintenance.Request, report maintenance.Report, runErr error) (Entry, error) {
	target := "all"
	if !req.Target.IsAll() {
		target = fmt.Sprintf("database %d", req.Target.Index())
	}
	detail := maintenanceDetail{
		Target:                 target,
		DeleteFile:             req.DeleteFile,
		DeleteRegistry:         req.DeleteRegistry,
		Orphans:                report.Plan.Orphans,
		TargetsProcessed:       report.TargetsProcessed,
		FilesDeleted:           report.FilesDeleted,
		FilesMissing:           report.FilesMissing,
		RegistryEntriesDeleted: report.RegistryEntriesDeleted,
		RegistryMissing:        report.RegistryMissing,
		OrphansDeleted:         report.OrphansDeleted,
		Backups:                report.Backups,
		ServiceRestarted:       report.ServiceRestarted,
		ServiceLeftStopped:     report.ServiceLeftStopped,
	}
	for _, t := range report.Plan.Targets {
		detail.Databases = append(detail.Databases, t.ID.String())
	}
	for _, e := range report.Errors {
		detail.Failures = append(detail.Failures, e.Error())
	}

	outcome := "completed"
	switch {
	case report.Noop:
		outcome = "nothing to do"
	case runErr != nil && len(report.Errors) > 0:
		outcome = "partial failure"
	case runErr != nil:
		outcome = "failed"
	}
	summary := fmt.Sprintf("%s: %d file(s), %d registry entr(ies), %d orphan(s) deleted",
		target, report.FilesDeleted, report.RegistryEntriesDeleted, report.OrphansDeleted)
	return s.insert(ctx, record{
		kind:    KindMaintenance,
		outcome: outcome,
		summary: summary,
		err:     runErr,
		detail:  detail,
	})
}
