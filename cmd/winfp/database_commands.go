package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"winfp/internal/fileutil"
	"winfp/internal/logging"
	"winfp/internal/maintenance"
	"winfp/internal/registry"
	"winfp/internal/winbio"
)

// registryValueNames are shown in this order when present.
var registryValueNames = []string{"BiometricType", "SensorPool", "AutoCreate", "AutoName", "FilePath", "ConnectionString"}

type databaseFileView struct {
	Exists   bool       `json:"exists"`
	Size     int64      `json:"size,omitempty"`
	Created  *time.Time `json:"created,omitempty"`
	Modified *time.Time `json:"modified,omitempty"`
	Error    string     `json:"error,omitempty"`
}

type sensorLinkView struct {
	Unit             uint32 `json:"unit,omitempty"`
	Active           bool   `json:"active"`
	Description      string `json:"description"`
	Manufacturer     string `json:"manufacturer,omitempty"`
	Model            string `json:"model,omitempty"`
	SensorSubtype    string `json:"sensor_subtype,omitempty"`
	DeviceInstanceID string `json:"device_instance_id"`
	ConfigIndex      int    `json:"config_index"`
	EngineAdapter    string `json:"engine_adapter,omitempty"`
	StorageAdapter   string `json:"storage_adapter,omitempty"`
	SensorMode       string `json:"sensor_mode,omitempty"`
	VirtualSecure    bool   `json:"virtual_secure_mode"`
}

type databaseView struct {
	Number           int               `json:"number"`
	DatabaseID       string            `json:"database_id"`
	DataFormat       string            `json:"data_format"`
	Attributes       string            `json:"attributes"`
	FilePath         string            `json:"file_path,omitempty"`
	ConnectionString string            `json:"connection_string,omitempty"`
	File             *databaseFileView `json:"file,omitempty"`
	Registry         map[string]string `json:"registry,omitempty"`
	Sensors          []sensorLinkView  `json:"sensors,omitempty"`
}

type databasesView struct {
	Databases []databaseView `json:"databases"`
	Orphans   []string       `json:"orphans,omitempty"`
	Warnings  []string       `json:"warnings,omitempty"`
}

func (c *commandContext) collectDatabases() (databasesView, error) {
	view := databasesView{Databases: []databaseView{}}
	gw, err := c.gateway()
	if err != nil {
		return view, err
	}
	schemas, err := gw.EnumDatabases()
	if err != nil {
		return view, err
	}

	units, err := gw.EnumUnits()
	if err != nil {
		view.Warnings = append(view.Warnings, fmt.Sprintf("unit enumeration failed: %v", err))
	}
	subtypes := make(map[winbio.UnitID]winbio.SensorSubtype, len(units))
	for _, u := range units {
		subtypes[u.UnitID] = u.SensorSubtype
	}

	store := c.registryStore()
	links, err := store.SensorLinks(units)
	if err != nil {
		view.Warnings = append(view.Warnings, fmt.Sprintf("sensor configuration scan incomplete: %v", err))
	}

	registered := make([]string, 0, len(schemas))
	for i, s := range schemas {
		id := s.DatabaseID.String()
		db := databaseView{
			Number:           i + 1,
			DatabaseID:       id,
			DataFormat:       s.DataFormat.String(),
			Attributes:       s.Attributes.String(),
			FilePath:         s.FilePath,
			ConnectionString: s.ConnectionString,
		}
		registered = append(registered, s.FilePath)

		if s.FilePath != "" {
			db.File = describeFile(s.FilePath)
		}
		if entry, err := store.DatabaseValues(s.DatabaseID); err == nil {
			db.Registry = entry.Values
		} else if !errors.Is(err, registry.ErrNotFound) {
			view.Warnings = append(view.Warnings, fmt.Sprintf("database %d registry values: %v", i+1, err))
		}
		for _, link := range links[id] {
			lv := sensorLinkView{
				Unit:             uint32(link.Unit),
				Active:           link.Active,
				Description:      link.Description,
				Manufacturer:     link.Manufacturer,
				Model:            link.Model,
				DeviceInstanceID: link.DeviceInstanceID,
				ConfigIndex:      link.ConfigIndex,
				EngineAdapter:    link.EngineAdapter,
				StorageAdapter:   link.StorageAdapter,
				SensorMode:       link.SensorMode,
				VirtualSecure:    link.VirtualSecure,
			}
			if st, ok := subtypes[link.Unit]; ok && link.Active {
				lv.SensorSubtype = st.String()
			}
			db.Sensors = append(db.Sensors, lv)
		}
		view.Databases = append(view.Databases, db)
	}

	cfg := c.configValue()
	orphans, err := maintenance.FindOrphans(c.platform.files(), cfg.Storage.DatabaseDir, cfg.Storage.DatabaseExtension, registered)
	if err != nil {
		view.Warnings = append(view.Warnings, fmt.Sprintf("orphan scan of %s failed: %v", cfg.Storage.DatabaseDir, err))
	}
	view.Orphans = orphans
	return view, nil
}

func describeFile(path string) *databaseFileView {
	meta, err := fileutil.Describe(path)
	if err != nil {
		return &databaseFileView{Error: err.Error()}
	}
	fv := &databaseFileView{Exists: meta.Exists}
	if !meta.Exists {
		return fv
	}
	fv.Size = meta.Size
	if !meta.Created.IsZero() {
		created := meta.Created.UTC()
		fv.Created = &created
	}
	if !meta.Modified.IsZero() {
		modified := meta.Modified.UTC()
		fv.Modified = &modified
	}
	return fv
}

func newEnumDatabasesCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "enum-databases",
		Short: "List biometric storage databases (ids, files, registry, sensors)",
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := ctx.collectDatabases()
			if err != nil {
				return err
			}
			for _, w := range view.Warnings {
				ctx.loggerValue().Warn(w)
			}
			if jsonOutput {
				return writeJSON(cmd, view)
			}
			renderDatabases(newPrinter(cmd), view)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func renderDatabases(p *printer, view databasesView) {
	p.header("Biometric Storage Databases")
	if len(view.Databases) == 0 {
		p.warn("No biometric databases found")
	} else {
		p.pass("%d database(s) found", len(view.Databases))
	}
	for _, db := range view.Databases {
		p.blank()
		p.step("Database %d", db.Number)
		p.info("Database ID", db.DatabaseID)
		p.info("Data Format", db.DataFormat)
		p.info("Attributes", db.Attributes)
		p.info("File Path", orEmpty(db.FilePath))
		p.info("Connection String", orEmpty(db.ConnectionString))
		if f := db.File; f != nil {
			switch {
			case f.Error != "":
				p.warn("Could not read file metadata: %s", f.Error)
			case !f.Exists:
				p.warn("Database file does not exist on disk")
			default:
				p.info("  File Size", fmt.Sprintf("%s (%d bytes)", humanize.IBytes(uint64(f.Size)), f.Size))
				if f.Created != nil {
					p.info("  Created", formatTime(*f.Created))
				}
				if f.Modified != nil {
					p.info("  Modified", formatTime(*f.Modified))
				}
			}
		}
		if db.Registry == nil {
			p.info("  Registry", "(no registry entry found)")
		} else {
			for _, name := range registryValueNames {
				if v, ok := db.Registry[name]; ok && v != "" {
					p.info("  "+name+" (reg)", registry.DescribeValue(name, v))
				}
			}
		}
		if len(db.Sensors) == 0 {
			p.info("  Sensor", "(no matching sensor found)")
		}
		for _, s := range db.Sensors {
			renderSensorLink(p, s)
		}
	}

	if len(view.Orphans) > 0 {
		p.blank()
		p.warn("%d orphan database file(s) not registered with the service", len(view.Orphans))
		for _, o := range view.Orphans {
			p.info("  Orphan", o)
		}
		p.step("Remove them with: winfp delete-database --all --file")
	}
}

func renderSensorLink(p *printer, s sensorLinkView) {
	unit := "no unit"
	if s.Active {
		unit = fmt.Sprintf("Unit %d", s.Unit)
	}
	var tags []string
	if s.VirtualSecure {
		tags = append(tags, "[VSM]")
	}
	if !s.Active {
		tags = append(tags, "(not active)")
	}
	suffix := ""
	if len(tags) > 0 {
		suffix = " " + strings.Join(tags, " ")
	}
	p.info("  Sensor", fmt.Sprintf("%s (%s, %s mode)%s", s.Description, unit, s.SensorMode, suffix))
	if s.Manufacturer != "" {
		p.info("    Manufacturer", s.Manufacturer)
	}
	if s.Model != "" {
		p.info("    Model", s.Model)
	}
	if s.SensorSubtype != "" {
		p.info("    Sensor Type", s.SensorSubtype)
	}
	p.info("    Device Instance", s.DeviceInstanceID)
	p.info("    Config", fmt.Sprintf("#%d, engine %s, storage %s", s.ConfigIndex, s.EngineAdapter, s.StorageAdapter))
}

func newDeleteDatabaseCommand(ctx *commandContext) *cobra.Command {
	var (
		dbNumber       int
		all            bool
		deleteFile     bool
		deleteRegistry bool
	)
	cmd := &cobra.Command{
		Use:   "delete-database",
		Short: "Delete biometric database files and/or registry entries (stops the service)",
		Long: "Stops the biometric service, deletes the selected database file and/or its\n" +
			"service registry entry, and restarts the service. With --all and --file,\n" +
			"unregistered database files in the database directory are removed too.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (dbNumber != 0) {
				return errors.New("specify exactly one of --db N or --all")
			}
			target := maintenance.All()
			if !all {
				target = maintenance.One(dbNumber)
			}
			req := maintenance.Request{Target: target, DeleteFile: deleteFile, DeleteRegistry: deleteRegistry}

			p := newPrinter(cmd)
			p.header("Delete Biometric Database")
			report, runErr := ctx.runMaintenance(cmd, req)
			if errors.Is(runErr, maintenance.ErrNothingRequested) ||
				errors.Is(runErr, maintenance.ErrNotElevated) ||
				errors.Is(runErr, maintenance.ErrTargetOutOfRange) {
				return runErr
			}
			ctx.recordMaintenance(cmd.Context(), req, report, runErr)
			renderReport(p, ctx.configValue().Service.Name, report)
			return runErr
		},
	}
	cmd.Flags().IntVar(&dbNumber, "db", 0, "Database number (1-based, from enum-databases output)")
	cmd.Flags().BoolVar(&all, "all", false, "Process every registered database and orphan files")
	cmd.Flags().BoolVar(&deleteFile, "file", true, "Delete the database file")
	cmd.Flags().BoolVar(&deleteRegistry, "registry", false, "Delete the service registry entry")
	return cmd
}

func (c *commandContext) runMaintenance(cmd *cobra.Command, req maintenance.Request) (maintenance.Report, error) {
	cfg := c.configValue()
	gw, err := c.gateway()
	if err != nil {
		return maintenance.Report{}, err
	}
	orchestrator := maintenance.New(maintenance.Deps{
		Databases: gw,
		Services:  c.platform.services(),
		Registry:  c.registryStore(),
		Files:     c.platform.files(),
		Elevated:  c.isElevated,
		Logger:    c.loggerValue(),
	}, maintenance.Options{
		ServiceName: cfg.Service.Name,
		DatabaseDir: cfg.Storage.DatabaseDir,
		Extension:   cfg.Storage.DatabaseExtension,
		BackupDir:   cfg.Storage.BackupDir,
		Poller:      c.poller(),
	})
	report, err := orchestrator.Run(cmd.Context(), req)
	if err != nil {
		c.loggerValue().Debug("maintenance finished with error", logging.Error(err))
	}
	return report, err
}

func renderReport(p *printer, service string, r maintenance.Report) {
	if r.Noop {
		p.pass("Nothing to delete: no registered databases or orphan files")
		return
	}
	for _, t := range r.Plan.Targets {
		p.info("Target", fmt.Sprintf("Database %d: %s", t.Index, t.ID))
		p.info("  File", orEmpty(t.FilePath))
	}
	for _, o := range r.Plan.Orphans {
		p.info("Orphan", o)
	}
	p.blank()
	if r.ServiceWasRunning {
		p.info(service, "was stopped for maintenance")
	} else {
		p.info(service, "was already stopped")
	}
	for _, b := range r.Backups {
		p.info("Backup", b)
	}
	if r.TargetsProcessed == 0 && len(r.Errors) == 0 {
		return
	}

	rows := [][]string{
		{"Databases processed", fmt.Sprint(r.TargetsProcessed)},
		{"Files deleted", fmt.Sprint(r.FilesDeleted)},
		{"Files already absent", fmt.Sprint(r.FilesMissing)},
		{"Registry entries deleted", fmt.Sprint(r.RegistryEntriesDeleted)},
		{"Registry entries already absent", fmt.Sprint(r.RegistryMissing)},
		{"Orphan files deleted", fmt.Sprint(r.OrphansDeleted)},
		{"Failures", fmt.Sprint(len(r.Errors))},
	}
	p.table([]string{"Result", "Count"}, rows, []columnAlignment{alignLeft, alignRight})

	for _, e := range r.Errors {
		p.fail("%s", e.Error())
	}
	switch {
	case r.ServiceRestarted:
		p.pass("%s restarted", service)
	case r.ServiceLeftStopped:
		p.warn("%s left stopped; start it manually with: winfp service start", service)
	}
	if !r.Failed() {
		p.blank()
		p.pass("Database maintenance completed")
		if r.FilesDeleted > 0 || r.RegistryEntriesDeleted > 0 {
			p.step("Re-enroll fingerprints via Windows Settings > Accounts > Sign-in options")
		}
	}
}

func orEmpty(s string) string {
	if s == "" {
		return "(empty)"
	}
	return s
}

func formatTime(t time.Time) string {
	return fmt.Sprintf("%s (%s)", t.UTC().Format("2006-01-02 15:04:05 UTC"), humanize.Time(t))
}
