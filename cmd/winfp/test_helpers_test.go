package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"winfp/internal/config"
	"winfp/internal/focus"
	"winfp/internal/hardware"
	"winfp/internal/logging"
	"winfp/internal/maintenance"
	"winfp/internal/registry"
	"winfp/internal/svcctl"
	"winfp/internal/winbio"
)

const (
	testDatabaseDir = `C:\Windows\System32\WinBioDatabase`
	testRegistryKey = `SYSTEM\CurrentControlSet\Services\WbioSrvc\Databases`
	testInstanceID  = `USB\VID_06CB&PID_00BD\0123456789AB`
)

func testGUID(n byte) winbio.GUID {
	return winbio.GUID{Data1: 0x1F2E3D4C, Data2: 0x5B6A, Data3: 0x7988, Data4: [8]byte{0, 1, 2, 3, 4, 5, 6, n}}
}

func testDatabasePath(n byte) string {
	return testDatabaseDir + `\` + strings.Trim(testGUID(n).String(), "{}") + ".DAT"
}

var testIdentity = winbio.Identity{Type: winbio.IdentitySID, Value: []byte{0x01, 0x05, 0x00, 0x00}}

// fakeGateway scripts every subsystem call and records what was asked.
type fakeGateway struct {
	mu sync.Mutex

	units        []winbio.UnitSchema
	unitsErr     error
	databases    []winbio.StorageSchema
	openErr      error
	focusErr     error
	identify     winbio.IdentifyResult
	identifyErr  error
	verify       winbio.VerifyResult
	verifyErr    error
	enrolled     []winbio.FingerPosition
	deleteErr    error
	sample       winbio.Sample
	sampleErr    error
	credential   winbio.CredentialState
	captures     []winbio.Status
	commitErr    error
	openFlags    []winbio.SessionFlags
	openSessions int
	focusHeld    bool
	deleted      []winbio.FingerPosition
	discarded    int
	captureCalls int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		units: []winbio.UnitSchema{{
			UnitID:           1,
			Pool:             1,
			SensorSubtype:    2,
			DeviceInstanceID: testInstanceID,
			Description:      "Synaptics FP Sensor",
			Manufacturer:     "Synaptics",
			Model:            "FS7600",
		}},
		databases: []winbio.StorageSchema{
			{DatabaseID: testGUID(1), FilePath: testDatabasePath(1)},
			{DatabaseID: testGUID(2), FilePath: testDatabasePath(2)},
		},
		identify:   winbio.IdentifyResult{Unit: 1, Identity: testIdentity, Finger: 2},
		credential: winbio.CredentialSet,
	}
}

func (g *fakeGateway) EnumUnits() ([]winbio.UnitSchema, error) { return g.units, g.unitsErr }
func (g *fakeGateway) EnumDatabases() ([]winbio.StorageSchema, error) {
	return g.databases, nil
}

func (g *fakeGateway) OpenSession(flags winbio.SessionFlags) (winbio.SessionHandle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.openErr != nil {
		return 0, g.openErr
	}
	g.openFlags = append(g.openFlags, flags)
	g.openSessions++
	return 7, nil
}

func (g *fakeGateway) CloseSession(winbio.SessionHandle) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.openSessions--
	return nil
}

func (g *fakeGateway) AcquireFocus() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.focusErr != nil {
		return g.focusErr
	}
	g.focusHeld = true
	return nil
}

func (g *fakeGateway) ReleaseFocus() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.focusHeld = false
	return nil
}

func (g *fakeGateway) Identify(winbio.SessionHandle) (winbio.IdentifyResult, error) {
	return g.identify, g.identifyErr
}

func (g *fakeGateway) Verify(winbio.SessionHandle, winbio.Identity, winbio.FingerPosition) (winbio.VerifyResult, error) {
	return g.verify, g.verifyErr
}

func (g *fakeGateway) EnumEnrollments(winbio.SessionHandle, winbio.UnitID, winbio.Identity) ([]winbio.FingerPosition, error) {
	return g.enrolled, nil
}

func (g *fakeGateway) DeleteTemplate(_ winbio.SessionHandle, _ winbio.UnitID, _ winbio.Identity, finger winbio.FingerPosition) error {
	if g.deleteErr != nil {
		return g.deleteErr
	}
	g.deleted = append(g.deleted, finger)
	return nil
}

func (g *fakeGateway) CaptureSample(winbio.SessionHandle) (winbio.Sample, error) {
	return g.sample, g.sampleErr
}

func (g *fakeGateway) CredentialState(winbio.Identity) (winbio.CredentialState, error) {
	return g.credential, nil
}

func (g *fakeGateway) EnrollBegin(winbio.SessionHandle, winbio.FingerPosition, winbio.UnitID) error {
	return nil
}

// EnrollCapture replays captures; once they run out every touch is rejected.
func (g *fakeGateway) EnrollCapture(winbio.SessionHandle) (winbio.Status, winbio.RejectDetail) {
	i := g.captureCalls
	g.captureCalls++
	if i < len(g.captures) {
		status := g.captures[i]
		if status == winbio.StatusBadCapture {
			return status, 3
		}
		return status, 0
	}
	return winbio.StatusBadCapture, 3
}

func (g *fakeGateway) EnrollCommit(winbio.SessionHandle) (winbio.Identity, bool, error) {
	if g.commitErr != nil {
		return winbio.Identity{}, false, g.commitErr
	}
	return testIdentity, true, nil
}

func (g *fakeGateway) EnrollDiscard(winbio.SessionHandle) error {
	g.discarded++
	return nil
}

func (g *fakeGateway) sessionsLeftOpen() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.openSessions
}

// fakeHost is a window host whose pump returns once quit is posted.
type fakeHost struct {
	mu   sync.Mutex
	quit chan struct{}
}

func (h *fakeHost) CreateWindow() (focus.Handle, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.quit = make(chan struct{})
	return 1, nil
}

func (h *fakeHost) Pump(focus.Handle) {
	h.mu.Lock()
	quit := h.quit
	h.mu.Unlock()
	<-quit
}

func (h *fakeHost) PostQuit(focus.Handle) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	close(h.quit)
	return nil
}

// fakeService switches to the requested state on the next query.
type fakeService struct {
	state    svcctl.State
	config   svcctl.Config
	startErr error
	stops    int
	starts   int
	closed   int
}

func (s *fakeService) Query() (svcctl.State, error) { return s.state, nil }
func (s *fakeService) Config() (svcctl.Config, error) {
	return s.config, nil
}

func (s *fakeService) Stop() error {
	s.stops++
	s.state = svcctl.StateStopped
	return nil
}

func (s *fakeService) Start() error {
	s.starts++
	if s.startErr != nil {
		return s.startErr
	}
	s.state = svcctl.StateRunning
	return nil
}

func (s *fakeService) Close() error {
	s.closed++
	return nil
}

type fakeOpener struct {
	svc      *fakeService
	err      error
	accesses []svcctl.Access
}

func (o *fakeOpener) Open(_ string, access svcctl.Access) (svcctl.Service, error) {
	if o.err != nil {
		return nil, o.err
	}
	o.accesses = append(o.accesses, access)
	return o.svc, nil
}

// memRegistry is an in-memory HKLM keyed by full key path.
type memRegistry struct {
	keys map[string]map[string]string
}

func (r *memRegistry) Values(path string) (map[string]string, error) {
	values, ok := r.keys[path]
	if !ok {
		return nil, registry.ErrNotFound
	}
	return values, nil
}

func (r *memRegistry) Subkeys(path string) ([]string, error) {
	prefix := path + `\`
	seen := map[string]struct{}{}
	found := false
	for key := range r.keys {
		if key == path {
			found = true
		}
		if rest, ok := strings.CutPrefix(key, prefix); ok {
			found = true
			seen[strings.SplitN(rest, `\`, 2)[0]] = struct{}{}
		}
	}
	if !found {
		return nil, registry.ErrNotFound
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (r *memRegistry) DeleteTree(path string) error {
	found := false
	for key := range r.keys {
		if key == path || strings.HasPrefix(key, path+`\`) {
			delete(r.keys, key)
			found = true
		}
	}
	if !found {
		return registry.ErrNotFound
	}
	return nil
}

func newMemRegistry() *memRegistry {
	configs := `SYSTEM\CurrentControlSet\Enum\` + testInstanceID + `\Device Parameters\WinBio\Configurations\0`
	return &memRegistry{keys: map[string]map[string]string{
		testRegistryKey + `\` + testGUID(1).String(): {
			"BiometricType": "8",
			"SensorPool":    "1",
			"AutoCreate":    "1",
			"FilePath":      testDatabasePath(1),
		},
		testRegistryKey + `\` + testGUID(2).String(): {
			"BiometricType": "8",
			"SensorPool":    "2",
		},
		configs: {
			"DatabaseId":           strings.ToLower(strings.Trim(testGUID(1).String(), "{}")),
			"EngineAdapterBinary":  "SynaEngine.dll",
			"StorageAdapterBinary": "winbiostorageadapter.dll",
			"SensorMode":           "1",
			"VirtualSecureMode":    "1",
		},
	}}
}

// memFiles holds Windows-style database paths.
type memFiles struct {
	files   map[string]bool
	removed []string
}

func (f *memFiles) Exists(path string) (bool, error) { return f.files[path], nil }

func (f *memFiles) Remove(path string) error {
	delete(f.files, path)
	f.removed = append(f.removed, path)
	return nil
}

func (f *memFiles) List(dir string) ([]string, error) {
	var names []string
	for path := range f.files {
		if rest, ok := strings.CutPrefix(path, dir+`\`); ok {
			names = append(names, rest)
		}
	}
	return names, nil
}

func (f *memFiles) Backup(path, dir string) (string, error) {
	return dir + `\` + path[strings.LastIndex(path, `\`)+1:], nil
}

type fakeInspector struct {
	devices []hardware.Device
	events  []hardware.Event
}

func (i fakeInspector) Devices(context.Context) ([]hardware.Device, error) { return i.devices, nil }
func (i fakeInspector) ConfigurationEvents(context.Context, int) ([]hardware.Event, error) {
	return i.events, nil
}

type cliTestEnv struct {
	gw         *fakeGateway
	gatewayErr error
	host       *fakeHost
	service    *fakeService
	opener     *fakeOpener
	registry   *memRegistry
	files      *memFiles
	inspector  fakeInspector
	elevated   bool
	configPath string
	historyDB  string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	base := t.TempDir()
	t.Setenv("HOME", base)
	for _, name := range []string{"WINFP_LOG_LEVEL", "WINFP_LOG_FORMAT", "WINFP_LOG_DIR", "WINFP_SERVICE_NAME", "WINFP_DATABASE_DIR", "WINFP_BACKUP_DIR", "WINFP_HISTORY_PATH"} {
		t.Setenv(name, "")
	}

	env := &cliTestEnv{
		gw:   newFakeGateway(),
		host: &fakeHost{},
		service: &fakeService{
			state:  svcctl.StateRunning,
			config: svcctl.Config{DisplayName: "Windows Biometric Service", StartType: "manual", BinaryPath: `C:\Windows\system32\svchost.exe -k WbioSvcGroup`, Account: "LocalSystem"},
		},
		registry: newMemRegistry(),
		files: &memFiles{files: map[string]bool{
			testDatabasePath(1): true,
			testDatabasePath(2): true,
		}},
		inspector: fakeInspector{devices: []hardware.Device{{
			FriendlyName: "Synaptics FP Sensor",
			InstanceID:   testInstanceID,
			Status:       "OK",
			Class:        "Biometric",
			Manufacturer: "Synaptics",
		}}},
		elevated:   true,
		configPath: filepath.Join(base, "config.toml"),
		historyDB:  filepath.Join(base, "history", "history.db"),
	}
	env.opener = &fakeOpener{svc: env.service}

	content := fmt.Sprintf(`[service]
poll_interval_ms = 1
poll_attempts = 3

[storage]
database_dir = '%s'
registry_key = '%s'

[history]
enabled = true
path = %q
`, testDatabaseDir, testRegistryKey, env.historyDB)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func (e *cliTestEnv) fakePlatform() platform {
	return platform{
		gateway: func() (winbio.Gateway, error) {
			if e.gatewayErr != nil {
				return nil, e.gatewayErr
			}
			return e.gw, nil
		},
		focusHost: func() focus.Host { return e.host },
		services:  func() svcctl.Opener { return e.opener },
		registry:  func() registry.Reader { return e.registry },
		files:     func() maintenance.Files { return e.files },
		elevated:  func() bool { return e.elevated },
		inspector: func(string) deviceInspector { return e.inspector },
		newLogger: func(*config.Config) (*slog.Logger, error) { return logging.NewNop(), nil },
		sleep:     func(ctx context.Context, _ time.Duration) error { return ctx.Err() },
	}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommandWith(env.fakePlatform())
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected output to contain %q, got:\n%s", substr, output)
	}
}

func requireNotContains(t *testing.T, output, substr string) {
	t.Helper()
	if strings.Contains(output, substr) {
		t.Fatalf("expected output not to contain %q, got:\n%s", substr, output)
	}
}

var errBoom = errors.New("boom")
