package preflight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"winfp/internal/config"
	"winfp/internal/hardware"
	"winfp/internal/registry"
	"winfp/internal/svcctl"
	"winfp/internal/winbio"
)

type stubDevices struct {
	devices []hardware.Device
	err     error
}

func (s stubDevices) Devices(context.Context) ([]hardware.Device, error) { return s.devices, s.err }

type stubEvents struct {
	events []hardware.Event
	err    error
	calls  int
}

func (s *stubEvents) ConfigurationEvents(context.Context, int) ([]hardware.Event, error) {
	s.calls++
	return s.events, s.err
}

type stubService struct {
	state     svcctl.State
	queryErr  error
	cfg       svcctl.Config
	closed    bool
	openedFor svcctl.Access
}

func (s *stubService) Query() (svcctl.State, error)   { return s.state, s.queryErr }
func (s *stubService) Stop() error                    { return errors.New("unexpected stop") }
func (s *stubService) Start() error                   { return errors.New("unexpected start") }
func (s *stubService) Config() (svcctl.Config, error) { return s.cfg, nil }
func (s *stubService) Close() error {
	s.closed = true
	return nil
}

type stubOpener struct {
	svc *stubService
	err error
}

func (o stubOpener) Open(name string, access svcctl.Access) (svcctl.Service, error) {
	if o.err != nil {
		return nil, o.err
	}
	o.svc.openedFor = access
	return o.svc, nil
}

type stubSensor struct {
	units    []winbio.UnitSchema
	enumErr  error
	openErr  error
	closeErr error
	closed   []winbio.SessionHandle
}

func (s *stubSensor) EnumUnits() ([]winbio.UnitSchema, error) { return s.units, s.enumErr }

func (s *stubSensor) OpenSession(winbio.SessionFlags) (winbio.SessionHandle, error) {
	if s.openErr != nil {
		return 0, s.openErr
	}
	return 7, nil
}

func (s *stubSensor) CloseSession(h winbio.SessionHandle) error {
	s.closed = append(s.closed, h)
	return s.closeErr
}

type stubRegistry struct {
	registered []winbio.GUID
	links      map[string][]registry.SensorLink
}

func (r stubRegistry) RegisteredDatabases() ([]winbio.GUID, error) { return r.registered, nil }

func (r stubRegistry) SensorLinks([]winbio.UnitSchema) (map[string][]registry.SensorLink, error) {
	return r.links, nil
}

func TestCheckHardware(t *testing.T) {
	section := CheckHardware(context.Background(), stubDevices{devices: []hardware.Device{
		{FriendlyName: "Synaptics FS7605", Status: "OK", InstanceID: `USB\VID_06CB`},
		{FriendlyName: "Goodix", Status: "Error", Problem: "28"},
	}})
	if len(section.Results) != 3 {
		t.Fatalf("expected summary plus two devices, got %+v", section.Results)
	}
	if section.Results[0].Status != StatusPass || section.Results[1].Status != StatusPass {
		t.Fatalf("unexpected results: %+v", section.Results)
	}
	if section.Results[2].Status != StatusFail || !strings.Contains(section.Results[2].Detail, "problem 28") {
		t.Fatalf("unexpected failing device result: %+v", section.Results[2])
	}
	if !section.Failed() {
		t.Fatal("section with a failing device must fail")
	}
}

func TestCheckHardwareNoDevices(t *testing.T) {
	section := CheckHardware(context.Background(), stubDevices{})
	if len(section.Results) != 1 || section.Results[0].Passed() || section.Results[0].Hint == "" {
		t.Fatalf("unexpected results: %+v", section.Results)
	}

	section = CheckHardware(context.Background(), stubDevices{err: errors.New("not found")})
	if !section.Failed() || !strings.Contains(section.Results[0].Detail, "PowerShell query failed") {
		t.Fatalf("unexpected results: %+v", section.Results)
	}
}

func TestCheckServiceRunning(t *testing.T) {
	svc := &stubService{state: svcctl.StateRunning, cfg: svcctl.Config{StartType: "automatic", BinaryPath: `C:\Windows\system32\svchost.exe -k WbioSvcGroup`}}
	section := CheckService(stubOpener{svc: svc}, "WbioSrvc")

	if section.Failed() {
		t.Fatalf("unexpected failure: %+v", section.Results)
	}
	if svc.openedFor != svcctl.AccessQuery || !svc.closed {
		t.Fatalf("service must be opened for query and closed: %+v", svc)
	}
	if len(section.Results) != 3 || section.Results[0].Detail != "WbioSrvc is running" {
		t.Fatalf("unexpected results: %+v", section.Results)
	}
}

func TestCheckServiceStoppedAndDisabled(t *testing.T) {
	svc := &stubService{state: svcctl.StateStopped, cfg: svcctl.Config{StartType: "disabled"}}
	section := CheckService(stubOpener{svc: svc}, "WbioSrvc")

	if !section.Failed() {
		t.Fatal("stopped service must fail")
	}
	if section.Results[0].Hint == "" {
		t.Fatal("stopped service needs a hint")
	}
	if section.Results[1].Status != StatusWarn || !strings.Contains(section.Results[1].Hint, "start=auto") {
		t.Fatalf("unexpected start type result: %+v", section.Results[1])
	}
}

func TestCheckServiceOpenFailure(t *testing.T) {
	section := CheckService(stubOpener{err: errors.New("does not exist")}, "WbioSrvc")
	if !section.Failed() || len(section.Results) != 1 {
		t.Fatalf("unexpected results: %+v", section.Results)
	}
}

func TestCheckSensorUnitsAndSession(t *testing.T) {
	sensor := &stubSensor{units: []winbio.UnitSchema{{UnitID: 1, Pool: 1, Description: "Fingerprint"}}}
	events := &stubEvents{}
	section := CheckSensor(context.Background(), Env{Sensor: sensor, Events: events})

	if section.Failed() {
		t.Fatalf("unexpected failure: %+v", section.Results)
	}
	if len(sensor.closed) != 1 || sensor.closed[0] != 7 {
		t.Fatalf("session must be closed once: %v", sensor.closed)
	}
	if events.calls != 0 {
		t.Fatal("event log is only consulted when no unit enumerates")
	}
	last := section.Results[len(section.Results)-1]
	if last.Name != "Session" || last.Status != StatusPass {
		t.Fatalf("unexpected session result: %+v", last)
	}
}

func TestCheckSensorNoUnitsRunsFollowUps(t *testing.T) {
	registered := winbio.GUID{Data1: 1}
	missing := winbio.GUID{Data1: 2}
	reg := stubRegistry{
		registered: []winbio.GUID{registered},
		links: map[string][]registry.SensorLink{
			registered.String(): {{Description: "Sensor", ConfigIndex: 0}},
			missing.String():    {{Description: "Sensor", ConfigIndex: 1}},
		},
	}
	events := &stubEvents{events: []hardware.Event{{ID: 1106, Level: 2, Message: "bad db"}}}
	sensor := &stubSensor{}

	section := CheckSensor(context.Background(), Env{Sensor: sensor, Events: events, Databases: reg})
	if !section.Failed() {
		t.Fatal("no units must fail")
	}
	if events.calls != 1 {
		t.Fatalf("expected event log query, got %d", events.calls)
	}
	var notRegistered *Result
	for i := range section.Results {
		if strings.Contains(section.Results[i].Detail, "not registered") {
			notRegistered = &section.Results[i]
		}
	}
	if notRegistered == nil || notRegistered.Hint == "" {
		t.Fatalf("expected unregistered database result with hint: %+v", section.Results)
	}
	if len(sensor.closed) != 0 {
		t.Fatal("no session test without units")
	}
}

func TestCheckSensorSessionFailure(t *testing.T) {
	sensor := &stubSensor{
		units:   []winbio.UnitSchema{{UnitID: 1}},
		openErr: winbio.NewStatusError("open session", winbio.StatusAccessDenied),
	}
	section := CheckSensor(context.Background(), Env{Sensor: sensor})
	last := section.Results[len(section.Results)-1]
	if last.Passed() || !strings.Contains(last.Detail, "0x80070005") {
		t.Fatalf("unexpected session result: %+v", last)
	}
}

func TestCheckEventsEmpty(t *testing.T) {
	results := CheckEvents(context.Background(), &stubEvents{})
	if len(results) != 1 || results[0].Status != StatusPass {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestRunAllOrder(t *testing.T) {
	sections := RunAll(context.Background(), Env{
		Devices:     stubDevices{},
		Services:    stubOpener{svc: &stubService{state: svcctl.StateRunning}},
		ServiceName: "WbioSrvc",
		Sensor:      &stubSensor{units: []winbio.UnitSchema{{UnitID: 1}}},
	})
	if len(sections) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(sections))
	}
	for i, prefix := range []string{"Level 1", "Level 2", "Level 3"} {
		if !strings.HasPrefix(sections[i].Title, prefix) {
			t.Fatalf("section %d: unexpected title %q", i, sections[i].Title)
		}
	}
}

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()
	if result := CheckDirectoryAccess("test", dir); !result.Passed() {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 0 {
		t.Fatalf("probe file left behind: %v %v", entries, err)
	}

	if result := CheckDirectoryAccess("test", filepath.Join(dir, "missing")); result.Passed() {
		t.Fatal("expected failure for missing dir")
	}

	file := filepath.Join(dir, "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if result := CheckDirectoryAccess("test", file); result.Passed() || !strings.Contains(result.Detail, "not a directory") {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestCheckSystemDeps(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	cfg := config.Default()
	statuses := CheckSystemDeps(&cfg)
	if len(statuses) != 1 || statuses[0].Name != "PowerShell" || statuses[0].Available {
		t.Fatalf("unexpected statuses: %+v", statuses)
	}
}
