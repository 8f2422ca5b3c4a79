package preflight

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"winfp/internal/hardware"
	"winfp/internal/registry"
	"winfp/internal/svcctl"
	"winfp/internal/winbio"
)

// DeviceLister lists PnP biometric devices.
type DeviceLister interface {
	Devices(ctx context.Context) ([]hardware.Device, error)
}

// EventSource returns recent biometric configuration errors.
type EventSource interface {
	ConfigurationEvents(ctx context.Context, maxEvents int) ([]hardware.Event, error)
}

// ServiceOpener opens services for querying.
type ServiceOpener = svcctl.Opener

// SensorGateway is the subset of the biometric gateway used by the sensor
// check.
type SensorGateway interface {
	EnumUnits() ([]winbio.UnitSchema, error)
	OpenSession(flags winbio.SessionFlags) (winbio.SessionHandle, error)
	CloseSession(h winbio.SessionHandle) error
}

// DatabaseRegistry reads registered databases and sensor configurations.
type DatabaseRegistry interface {
	RegisteredDatabases() ([]winbio.GUID, error)
	SensorLinks(units []winbio.UnitSchema) (map[string][]registry.SensorLink, error)
}

const recentEvents = 20

// CheckHardware lists biometric PnP devices and their status.
func CheckHardware(ctx context.Context, lister DeviceLister) Section {
	section := Section{Title: "Level 1: Hardware Detection (PnP Biometric Devices)"}
	if lister == nil {
		section.Results = append(section.Results, fail("Devices", "device listing unavailable"))
		return section
	}
	devices, err := lister.Devices(ctx)
	if err != nil {
		section.Results = append(section.Results, fail("Devices", fmt.Sprintf("PowerShell query failed: %v", err)))
		return section
	}
	if len(devices) == 0 {
		r := fail("Devices", "no biometric PnP devices found")
		r.Hint = "Check Device Manager > Biometric devices"
		section.Results = append(section.Results, r)
		return section
	}
	section.Results = append(section.Results, pass("Devices", fmt.Sprintf("found %d biometric device(s)", len(devices))))
	for i, d := range devices {
		name := fmt.Sprintf("Device %d", i+1)
		detail := fmt.Sprintf("%s (%s) status %s, instance %s",
			orUnknown(d.FriendlyName), orUnknown(d.Manufacturer), orUnknown(d.Status), orUnknown(d.InstanceID))
		if d.OK() {
			section.Results = append(section.Results, pass(name, detail))
			continue
		}
		if d.HasProblem() {
			detail += ", problem " + d.Problem
		}
		section.Results = append(section.Results, fail(name, detail))
	}
	return section
}

// CheckService reports the run state and configuration of the biometric
// service.
func CheckService(opener ServiceOpener, name string) Section {
	section := Section{Title: fmt.Sprintf("Level 2: %s Service Status", name)}
	if opener == nil {
		section.Results = append(section.Results, fail("Service", "service control unavailable"))
		return section
	}
	svc, err := opener.Open(name, svcctl.AccessQuery)
	if err != nil {
		r := fail("Service", fmt.Sprintf("cannot open %s: %v", name, err))
		r.Hint = "Is the Windows Biometric Service installed?"
		section.Results = append(section.Results, r)
		return section
	}
	defer svc.Close()

	state, err := svc.Query()
	switch {
	case err != nil:
		section.Results = append(section.Results, fail("State", fmt.Sprintf("query failed: %v", err)))
	case state == svcctl.StateRunning:
		section.Results = append(section.Results, pass("State", fmt.Sprintf("%s is %s", name, state)))
	default:
		r := fail("State", fmt.Sprintf("%s is %s", name, state))
		if state == svcctl.StateStopped {
			r.Hint = "Try: winfp service start (as Administrator)"
		}
		section.Results = append(section.Results, r)
	}

	cfg, err := svc.Config()
	if err != nil {
		section.Results = append(section.Results, Result{Name: "Config", Status: StatusWarn, Detail: fmt.Sprintf("query failed: %v", err)})
		return section
	}
	if cfg.StartType == "disabled" {
		section.Results = append(section.Results, Result{
			Name:   "Start type",
			Status: StatusWarn,
			Detail: "service is disabled; fingerprint operations will not work",
			Hint:   fmt.Sprintf("Enable via: sc config %s start=auto (as Administrator)", name),
		})
	} else {
		section.Results = append(section.Results, info("Start type", cfg.StartType))
	}
	if cfg.BinaryPath != "" {
		section.Results = append(section.Results, info("Binary path", cfg.BinaryPath))
	}
	return section
}

// CheckSensor enumerates fingerprint units and tests a session open/close.
func CheckSensor(ctx context.Context, env Env) Section {
	section := Section{Title: "Level 3: WinBio Sensor Enumeration"}
	if env.Sensor == nil {
		detail := "biometric gateway unavailable"
		if env.SensorErr != nil {
			detail += ": " + env.SensorErr.Error()
		}
		section.Results = append(section.Results, fail("Units", detail))
		return section
	}
	units, err := env.Sensor.EnumUnits()
	if err != nil {
		section.Results = append(section.Results, fail("Units", fmt.Sprintf("enumeration failed: %s", describeError(err))))
		return section
	}
	if len(units) == 0 {
		section.Results = append(section.Results, fail("Units", "no fingerprint biometric units found"))
		section.Results = append(section.Results, CheckEvents(ctx, env.Events)...)
		section.Results = append(section.Results, CheckDatabaseConfig(env.Databases, nil)...)
		return section
	}

	section.Results = append(section.Results, pass("Units", fmt.Sprintf("found %d biometric unit(s)", len(units))))
	for i, u := range units {
		serial := u.SerialNumber
		if serial == "" {
			serial = "(none)"
		}
		section.Results = append(section.Results, info(fmt.Sprintf("Unit %d", i+1), fmt.Sprintf(
			"id %d, %s pool, factor 0x%08X, subtype %s, capabilities %s, %s / %s / %s, serial %s, firmware %s",
			u.UnitID, u.Pool, u.BiometricFactor, u.SensorSubtype, u.Capabilities,
			orUnknown(u.Description), orUnknown(u.Manufacturer), orUnknown(u.Model), serial, u.Firmware,
		)))
	}

	h, err := env.Sensor.OpenSession(winbio.FlagDefault)
	if err != nil {
		section.Results = append(section.Results, fail("Session", fmt.Sprintf("open failed: %s", describeError(err))))
		return section
	}
	if err := env.Sensor.CloseSession(h); err != nil {
		section.Results = append(section.Results, fail("Session", fmt.Sprintf("opened, close failed: %s", describeError(err))))
		return section
	}
	section.Results = append(section.Results, pass("Session", "open and close succeeded"))
	return section
}

// CheckEvents reports configuration errors from the biometric event log.
func CheckEvents(ctx context.Context, source EventSource) []Result {
	if source == nil {
		return nil
	}
	events, err := source.ConfigurationEvents(ctx, recentEvents)
	if err != nil {
		return []Result{{Name: "Event log", Status: StatusWarn, Detail: fmt.Sprintf("not readable: %v", err)}}
	}
	if len(events) == 0 {
		return []Result{pass("Event log", "no WinBio configuration errors in event log")}
	}
	results := make([]Result, 0, len(events))
	for _, e := range events {
		status := StatusWarn
		if e.Severe() {
			status = StatusFail
		}
		results = append(results, Result{Name: "Event log", Status: status, Detail: e.Summary()})
	}
	return results
}

// CheckDatabaseConfig verifies that every database referenced by a sensor
// configuration is registered with the service.
func CheckDatabaseConfig(reg DatabaseRegistry, units []winbio.UnitSchema) []Result {
	if reg == nil {
		return nil
	}
	registered, err := reg.RegisteredDatabases()
	if err != nil && !errors.Is(err, registry.ErrNotFound) {
		return []Result{{Name: "Database config", Status: StatusWarn, Detail: fmt.Sprintf("registered databases not readable: %v", err)}}
	}
	known := make(map[string]struct{}, len(registered))
	for _, id := range registered {
		known[id.String()] = struct{}{}
	}

	links, err := reg.SensorLinks(units)
	if err != nil {
		return []Result{{Name: "Database config", Status: StatusWarn, Detail: fmt.Sprintf("sensor configuration not readable: %v", err)}}
	}
	if len(links) == 0 {
		return []Result{info("Database config", "no biometric devices with WinBio configuration found")}
	}

	var results []Result
	mismatch := false
	for _, id := range slices.Sorted(maps.Keys(links)) {
		for _, link := range links[id] {
			name := fmt.Sprintf("%s config %d", link.Description, link.ConfigIndex)
			if _, ok := known[id]; ok {
				results = append(results, pass(name, fmt.Sprintf("database %s registered", id)))
				continue
			}
			mismatch = true
			results = append(results, fail(name, fmt.Sprintf("database %s not registered with the service", id)))
		}
	}
	if mismatch {
		results[len(results)-1].Hint = "Reinstall the fingerprint sensor driver to recreate missing database entries"
	}
	return results
}

func describeError(err error) string {
	if status, ok := winbio.StatusOf(err); ok {
		return status.String()
	}
	return err.Error()
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(unknown)"
	}
	return s
}
