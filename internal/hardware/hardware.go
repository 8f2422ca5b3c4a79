package hardware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultTimeout bounds a single PowerShell invocation.
const DefaultTimeout = 30 * time.Second

// Runner executes a command and returns its standard output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return out, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return out, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// Device is one PnP device of the Biometric class.
type Device struct {
	FriendlyName string `json:"FriendlyName"`
	InstanceID   string `json:"InstanceId"`
	Status       string `json:"Status"`
	Problem      string `json:"Problem"`
	Class        string `json:"Class"`
	Manufacturer string `json:"Manufacturer"`
}

// OK reports whether PnP considers the device healthy.
func (d Device) OK() bool { return strings.EqualFold(d.Status, "OK") }

// HasProblem reports whether a problem code other than zero is set.
func (d Device) HasProblem() bool {
	p := strings.TrimSpace(d.Problem)
	return p != "" && p != "0" && !strings.EqualFold(p, "CM_PROB_NONE")
}

// Event is an entry from the biometric operational event log.
type Event struct {
	ID      int    `json:"Id"`
	Level   int    `json:"Level"`
	Message string `json:"Message"`
}

// Severe reports whether the event is critical or an error.
func (e Event) Severe() bool { return e.Level > 0 && e.Level <= 2 }

// Summary returns the first line of the event message.
func (e Event) Summary() string {
	msg := strings.TrimSpace(e.Message)
	if i := strings.IndexAny(msg, "\r\n"); i >= 0 {
		msg = msg[:i]
	}
	if msg == "" {
		msg = "(no message)"
	}
	return fmt.Sprintf("Event %d: %s", e.ID, msg)
}

// Configuration event ids logged when a sensor references a database the
// service cannot open.
var configurationEventIDs = []int{1106, 1109}

const devicesScript = `
$devs = Get-PnpDevice -Class Biometric -ErrorAction SilentlyContinue
if ($null -eq $devs) { exit 0 }
$devs | ForEach-Object {
    [PSCustomObject]@{
        FriendlyName = [string]$_.FriendlyName
        InstanceId   = [string]$_.InstanceId
        Status       = [string]$_.Status
        Problem      = [string]$_.Problem
        Class        = [string]$_.Class
        Manufacturer = [string]$_.Manufacturer
    }
} | ConvertTo-Json -Compress
`

const eventsScriptTemplate = `
try {
    $events = Get-WinEvent -LogName 'Microsoft-Windows-Biometrics/Operational' -MaxEvents %d -ErrorAction Stop
    $events | Where-Object { $_.Id -in @(%s) } | ForEach-Object {
        [PSCustomObject]@{
            Id      = [int]$_.Id
            Level   = [int]$_.Level
            Message = [string]$_.Message
        }
    } | ConvertTo-Json -Compress
} catch {}
`

// Inspector queries device state through PowerShell.
type Inspector struct {
	PowerShell string
	Runner     Runner
	Timeout    time.Duration
}

// NewInspector returns an Inspector using the given PowerShell binary.
func NewInspector(powershell string) *Inspector {
	return &Inspector{PowerShell: powershell, Runner: ExecRunner{}, Timeout: DefaultTimeout}
}

// Devices lists biometric PnP devices. No devices is an empty result, not an
// error.
func (i *Inspector) Devices(ctx context.Context) ([]Device, error) {
	out, err := i.run(ctx, devicesScript)
	if err != nil {
		return nil, fmt.Errorf("list biometric devices: %w", err)
	}
	devices, err := ParseList[Device](out)
	if err != nil {
		return nil, fmt.Errorf("parse device list: %w", err)
	}
	return devices, nil
}

// ConfigurationEvents returns configuration errors among the most recent
// maxEvents biometric log entries. An inaccessible log yields no events.
func (i *Inspector) ConfigurationEvents(ctx context.Context, maxEvents int) ([]Event, error) {
	if maxEvents <= 0 {
		maxEvents = 20
	}
	ids := make([]string, len(configurationEventIDs))
	for idx, id := range configurationEventIDs {
		ids[idx] = fmt.Sprint(id)
	}
	out, err := i.run(ctx, fmt.Sprintf(eventsScriptTemplate, maxEvents, strings.Join(ids, ", ")))
	if err != nil {
		return nil, fmt.Errorf("read biometric event log: %w", err)
	}
	events, err := ParseList[Event](out)
	if err != nil {
		return nil, fmt.Errorf("parse event log: %w", err)
	}
	return events, nil
}

func (i *Inspector) run(ctx context.Context, script string) ([]byte, error) {
	binary := strings.TrimSpace(i.PowerShell)
	if binary == "" {
		binary = "powershell"
	}
	runner := i.Runner
	if runner == nil {
		runner = ExecRunner{}
	}
	timeout := i.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return runner.Run(runCtx, binary, "-NoProfile", "-NonInteractive", "-Command", script)
}

// Decode converts PowerShell output to UTF-8. A UTF-16 or UTF-8 byte order
// mark selects the encoding; without one the input is taken as UTF-8.
func Decode(raw []byte) ([]byte, error) {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(decoder, raw)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ParseList decodes ConvertTo-Json output holding either one object or an
// array of objects. Empty output yields nil.
func ParseList[T any](raw []byte) ([]T, error) {
	decoded, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(decoded)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		return items, nil
	}
	var item T
	if err := json.Unmarshal(trimmed, &item); err != nil {
		return nil, err
	}
	return []T{item}, nil
}
